// Package config provides configuration management for the application.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// AWS
	AWSRegion string
	S3Bucket  string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// External services
	GoogleMapsAPIKey   string
	GeminiAPIKey       string
	ExchangeRateAPIURL string

	// SES
	SESSenderEmail string
	AdvisorEmail   string

	// OTP
	OTPCountdownSeconds int
	OTPExpiryMinutes    int

	// Application
	Stage    string
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// AWS
		AWSRegion: getEnv("AWS_REGION", "ap-south-1"),
		S3Bucket:  getEnv("S3_BUCKET", "edumate-documents-dev"),

		// Database
		DBHost:     getEnv("DB_HOST", getEnv("EDUMATE_DB_HOST", "localhost")),
		DBPort:     getEnvInt("DB_PORT", getEnvInt("EDUMATE_DB_PORT", 5432)),
		DBName:     getEnv("DB_NAME", getEnv("EDUMATE_DB_NAME", "edumate")),
		DBUser:     getEnv("DB_USER", getEnv("EDUMATE_DB_USER", "postgres")),
		DBPassword: getEnv("DB_PASSWORD", getEnv("EDUMATE_DB_PASSWORD", "")),

		// External services
		GoogleMapsAPIKey:   getEnv("GOOGLE_MAPS_API_KEY", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		ExchangeRateAPIURL: getEnv("EXCHANGE_RATE_API_URL", "https://open.er-api.com/v6/latest/INR"),

		// SES
		SESSenderEmail: getEnv("SES_SENDER_EMAIL", ""),
		AdvisorEmail:   getEnv("ADVISOR_EMAIL", ""),

		// OTP
		OTPCountdownSeconds: getEnvInt("OTP_COUNTDOWN_SECONDS", 30),
		OTPExpiryMinutes:    getEnvInt("OTP_EXPIRY_MINUTES", 5),

		// Application
		Stage:    getEnv("STAGE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	sslMode := "require" // Use SSL for RDS
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable" // Disable SSL for local development
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
