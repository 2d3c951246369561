package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"pocketledger/internal/config"
	"pocketledger/internal/database"
	"pocketledger/internal/logger"
	"pocketledger/internal/services"
)

// openUsers returns a user service and a function that releases it.
type openUsers func() (services.UserServicer, func(), error)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, openDatabase); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openDatabase() (services.UserServicer, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	manager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return services.NewUserService(manager.DB()), func() { _ = manager.Close() }, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, open openUsers) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	userName := fs.String("user", "", "Username")
	name := fs.String("name", "", "Display name (defaults to the username)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	cash := fs.Int64("cash", 0, "Opening cash balance in minor units")
	online := fs.Int64("online", 0, "Opening online balance in minor units")
	budget := fs.Int64("budget", 0, "Monthly budget in minor units")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *userName == "" {
		fmt.Fprintln(stdout, "Usage: adduser -user <username> [-name <name>] [-password <password>] [-cash N] [-online N] [-budget N]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: user")
	}
	if *name == "" {
		*name = *userName
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	users, closeFn, err := open()
	if err != nil {
		return err
	}
	defer closeFn()

	user, err := users.Signup(context.Background(), services.SignupInput{
		Name:          *name,
		UserName:      *userName,
		Password:      password,
		CashBalance:   *cash,
		OnlineBalance: *online,
		MonthlyBudget: *budget,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", user.UserName, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
