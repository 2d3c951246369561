package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "fallback-secret-key-for-dev-only"

// Config holds application configuration
type Config struct {
	Env string

	// Server
	Port        string
	CORSOrigins []string
	MaxUploadMB int64

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Ledger
	IncomeWindowDays  int
	RequireFundsOnAdd bool

	// Per-user write locks. An empty RedisURL keeps locks in-process.
	RedisURL string
	LockTTL  time.Duration

	// Ledger events. An empty AMQPURL disables publishing.
	AMQPURL      string
	AMQPExchange string

	// Bill scanning: "gemini", "tesseract" or empty for disabled.
	BillScanner  string
	GeminiAPIKey string
	GeminiModel  string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env: getEnv("ENV", "development"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "pocketledger"),
		DBPassword: getEnv("DB_PASSWORD", "pocketledger"),
		DBName:     getEnv("DB_NAME", "pocketledger"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisURL:     os.Getenv("REDIS_URL"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger.events"),

		BillScanner:  strings.ToLower(os.Getenv("BILL_SCANNER")),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	if config.JWTSecret == "" {
		if config.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		config.JWTSecret = devJWTSecret
	}

	config.JWTExpirationDur = getDuration("JWT_EXPIRES_IN", 2*time.Hour)
	config.LockTTL = getDuration("LOCK_TTL", 10*time.Second)

	var err error
	if config.IncomeWindowDays, err = getInt("INCOME_WINDOW_DAYS", 15); err != nil {
		return nil, err
	}
	if config.IncomeWindowDays <= 0 {
		return nil, fmt.Errorf("INCOME_WINDOW_DAYS must be positive, got %d", config.IncomeWindowDays)
	}
	maxUpload, err := getInt("MAX_UPLOAD_MB", 5)
	if err != nil {
		return nil, err
	}
	config.MaxUploadMB = int64(maxUpload)

	if config.RequireFundsOnAdd, err = getBool("REQUIRE_FUNDS_ON_ADD", false); err != nil {
		return nil, err
	}

	switch config.BillScanner {
	case "", "gemini", "tesseract":
	default:
		return nil, fmt.Errorf("unknown BILL_SCANNER %q (use gemini or tesseract)", config.BillScanner)
	}
	if config.BillScanner == "gemini" && config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when BILL_SCANNER=gemini")
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return v, nil
}

// getDuration parses key as a time.Duration, falling back to
// defaultValue with a warning when it is malformed.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
