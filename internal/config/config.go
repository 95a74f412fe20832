/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the marketplace-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix   string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	MilestoneEventQueue    string `mapstructure:"MILESTONE_EVENT_QUEUE"`
	ClerkJWKSURL           string `mapstructure:"CLERK_JWKS_URL"`
	BlobStoreBaseURL       string `mapstructure:"BLOB_STORE_BASE_URL"`
	BlobStoreAPIKey        string `mapstructure:"BLOB_STORE_API_KEY"`
	PlatformFeeBps         int64  `mapstructure:"PLATFORM_FEE_BPS"`
	BidRateLimitPerMinute  int    `mapstructure:"BID_RATE_LIMIT_PER_MINUTE"`
	StrayBidSweepSchedule  string `mapstructure:"STRAY_BID_SWEEP_SCHEDULE"`
	InvoiceOverdueSchedule string `mapstructure:"INVOICE_OVERDUE_SCHEDULE"`
	CORSAllowedOrigins     string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MILESTONE_EVENT_QUEUE", "marketplace_service.milestone_releases")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "workbridge:rate_limit")
	viper.SetDefault("PLATFORM_FEE_BPS", 1000) // 10% platform fee
	viper.SetDefault("BID_RATE_LIMIT_PER_MINUTE", 20)
	viper.SetDefault("STRAY_BID_SWEEP_SCHEDULE", "*/10 * * * *")
	viper.SetDefault("INVOICE_OVERDUE_SCHEDULE", "0 * * * *")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "MARKETPLACE_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("MILESTONE_EVENT_QUEUE")
	_ = viper.BindEnv("CLERK_JWKS_URL")
	_ = viper.BindEnv("BLOB_STORE_BASE_URL")
	_ = viper.BindEnv("BLOB_STORE_API_KEY")
	_ = viper.BindEnv("PLATFORM_FEE_BPS")
	_ = viper.BindEnv("PLATFORM_FEE_PERCENT")
	_ = viper.BindEnv("BID_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("STRAY_BID_SWEEP_SCHEDULE")
	_ = viper.BindEnv("INVOICE_OVERDUE_SCHEDULE")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "workbridge:rate_limit"
	}

	// Allow specifying the platform fee as a percentage via PLATFORM_FEE_PERCENT.
	if viper.IsSet("PLATFORM_FEE_PERCENT") {
		percentStr := strings.TrimSpace(viper.GetString("PLATFORM_FEE_PERCENT"))
		if percentStr != "" {
			percentValue, parseErr := strconv.ParseFloat(percentStr, 64)
			if parseErr != nil {
				log.Printf("level=warn component=config msg=\"invalid PLATFORM_FEE_PERCENT\" value=%q err=%v", percentStr, parseErr)
			} else {
				config.PlatformFeeBps = int64(math.Round(percentValue * 100))
			}
		}
	}

	if config.PlatformFeeBps < 0 {
		log.Printf("level=warn component=config msg=\"negative platform fee configured; coercing to zero\" fee_bps=%d", config.PlatformFeeBps)
		config.PlatformFeeBps = 0
	}
	if config.PlatformFeeBps > 10000 {
		log.Printf("level=warn component=config msg=\"platform fee exceeds 100%%; capping\" fee_bps=%d", config.PlatformFeeBps)
		config.PlatformFeeBps = 10000
	}

	if config.BidRateLimitPerMinute <= 0 {
		config.BidRateLimitPerMinute = 20
	}
	if strings.TrimSpace(config.StrayBidSweepSchedule) == "" {
		config.StrayBidSweepSchedule = "*/10 * * * *"
	}
	if strings.TrimSpace(config.InvoiceOverdueSchedule) == "" {
		config.InvoiceOverdueSchedule = "0 * * * *"
	}

	return
}
