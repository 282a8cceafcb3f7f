// internal/config/config.go
// Centralized configuration management
// Loads from environment variables with sensible defaults

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	BaseURL     string

	// Persistence
	RedisURL       string
	StoreNamespace string

	// Security
	JWTSecret         string
	BCryptCost        int
	AccessTokenExpiry time.Duration

	// AI assistant
	GeminiAPIKey string
	GeminiModel  string

	// Media storage
	UseS3              bool
	LocalUploadDir     string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3BucketName       string
	MaxUploadSize      int64

	// Mock reply simulator
	ReplyDelayMin time.Duration
	ReplyDelayMax time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", ""),

		// Persistence
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StoreNamespace: getEnv("STORE_NAMESPACE", "giit"),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-this-in-production"),
		BCryptCost:        getEnvInt("BCRYPT_COST", 10),
		AccessTokenExpiry: getEnvDuration("ACCESS_TOKEN_EXPIRY", "24h"),

		// AI assistant
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		// Media storage
		UseS3:              getEnvBool("USE_S3", false),
		LocalUploadDir:     getEnv("LOCAL_UPLOAD_DIR", "./uploads"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "futurenet-uploads"),
		MaxUploadSize:      int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 10)) << 20,

		// Simulator
		ReplyDelayMin: getEnvDuration("REPLY_DELAY_MIN", "500ms"),
		ReplyDelayMax: getEnvDuration("REPLY_DELAY_MAX", "2500ms"),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWTSecret == "change-this-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret must be changed for production")
	}

	if c.StoreNamespace == "" {
		return fmt.Errorf("store namespace is required")
	}

	if c.ReplyDelayMin <= 0 || c.ReplyDelayMax < c.ReplyDelayMin {
		return fmt.Errorf("invalid reply delay range: %s..%s", c.ReplyDelayMin, c.ReplyDelayMax)
	}

	if c.UseS3 {
		if c.AWSAccessKeyID == "" || c.AWSSecretAccessKey == "" || c.S3BucketName == "" {
			return fmt.Errorf("S3 configuration incomplete")
		}
	} else if c.LocalUploadDir == "" {
		return fmt.Errorf("local upload directory not specified")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper functions

// getEnv gets a string value from environment with a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment with a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration value from environment with a default
func getEnvDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

// getEnvBool gets a boolean value from environment with a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
