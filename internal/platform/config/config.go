package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	DatabaseURL           string
	Port                  string
	IsProduction          bool
	EnableDBCheck         bool
	WebhookSharedSecret   string
	ReconciliationAutoResolve bool
	WebhookRateLimitPerMinute int
	WebhookRateLimitBurst     int
}

// LoadConfig loads configuration from environment variables, attempting a
// .env file first.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("PGSQL_URL")
	if dbURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", port)
	}

	isProdStr := os.Getenv("IS_PRODUCTION")
	isProd, err := strconv.ParseBool(isProdStr)
	if err != nil {
		isProd = false
		if isProdStr != "" {
			log.Printf("Warning: Invalid value for IS_PRODUCTION ('%s'). Defaulting to false.\n", isProdStr)
		}
	}

	enableDBCheckStr := os.Getenv("ENABLE_DB_CHECK")
	enableDBCheck, err := strconv.ParseBool(enableDBCheckStr)
	if err != nil {
		enableDBCheck = false
		if enableDBCheckStr != "" {
			log.Printf("Warning: Invalid value for ENABLE_DB_CHECK ('%s'). Defaulting to false.\n", enableDBCheckStr)
		}
	}

	webhookSecret := os.Getenv("WEBHOOK_SHARED_SECRET")
	if webhookSecret == "" {
		log.Println("Warning: WEBHOOK_SHARED_SECRET not set; webhook signature verification will reject everything.")
	}

	autoResolveStr := os.Getenv("RECONCILIATION_AUTO_RESOLVE")
	autoResolve, err := strconv.ParseBool(autoResolveStr)
	if err != nil {
		autoResolve = true
	}

	webhookRateLimit, err := strconv.Atoi(os.Getenv("WEBHOOK_RATE_LIMIT_PER_MINUTE"))
	if err != nil || webhookRateLimit <= 0 {
		webhookRateLimit = 600
	}

	webhookBurst, err := strconv.Atoi(os.Getenv("WEBHOOK_RATE_LIMIT_BURST"))
	if err != nil || webhookBurst <= 0 {
		webhookBurst = 50
	}

	return &Config{
		DatabaseURL:               dbURL,
		Port:                      port,
		IsProduction:              isProd,
		EnableDBCheck:             enableDBCheck,
		WebhookSharedSecret:       webhookSecret,
		ReconciliationAutoResolve: autoResolve,
		WebhookRateLimitPerMinute: webhookRateLimit,
		WebhookRateLimitBurst:     webhookBurst,
	}, nil
}
