package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pocketledger/internal/config"
	"pocketledger/internal/database"
	"pocketledger/internal/events"
	"pocketledger/internal/ledger"
	"pocketledger/internal/lock"
	"pocketledger/internal/logger"
	"pocketledger/internal/middleware"
	"pocketledger/internal/scanner"
	"pocketledger/internal/server"
	"pocketledger/internal/services"
	"pocketledger/internal/validator"

	_ "pocketledger/internal/docs" // Import swagger docs
)

// @title           PocketLedger API
// @version         1.0
// @description     PocketLedger tracks cash and online balances, a monthly budget, categorised expenses and incomes for each user.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	var locker lock.Locker = lock.NewLocal()
	if appConfig.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, appConfig.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		locker = lock.NewRedis(client, appConfig.LockTTL)
		log.Info("Using redis for per-user write locks")
	}

	var publisher events.Publisher = events.Nop{}
	if appConfig.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(appConfig.AMQPURL, appConfig.AMQPExchange)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		publisher = amqpPublisher
		log.Infof("Publishing ledger events to exchange %s", appConfig.AMQPExchange)
	}
	defer publisher.Close()

	billScanner, err := scanner.New(ctx, appConfig.BillScanner, appConfig.GeminiAPIKey, appConfig.GeminiModel)
	if err != nil {
		return fmt.Errorf("failed to create bill scanner: %w", err)
	}

	validator.Register()

	db := dbManager.DB()
	router := server.NewRouter(server.Deps{
		Auth:       middleware.NewJWTAuth(appConfig.JWTSecret, appConfig.JWTExpirationDur),
		Users:      services.NewUserService(db),
		Categories: services.NewCategoryService(db, locker, publisher),
		Expenses: services.NewExpenseService(db, locker, publisher, services.ExpenseOptions{
			RequireFundsOnAdd: appConfig.RequireFundsOnAdd,
		}),
		Incomes:     services.NewIncomeService(db, locker, publisher, ledger.NewWindow(appConfig.IncomeWindowDays)),
		Scanner:     billScanner,
		CORSOrigins: appConfig.CORSOrigins,
		MaxUpload:   appConfig.MaxUploadMB << 20,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting PocketLedger server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
