// Package config provides environment variable loading for the platform.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the analysis platform.
type Config struct {
	// Gemini API
	GeminiAPIKey string
	GeminiModel  string

	// Serper search API
	SerperAPIKey      string
	SearchGeo         string
	SearchResultCount int

	// Minimum spacing between generative-model calls.
	GenCallDelay time.Duration

	// Database (analysis history and knowledge base)
	DatabaseURL string

	// R2 document storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string

	// HTTP API
	ListenAddr string

	// Optional
	LogLevel string
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first (for local development).
func Load() *Config {
	// Load .env file if present (ignore errors - file may not exist in production)
	_ = godotenv.Load()

	return &Config{
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", ""),
		SerperAPIKey:      getEnv("SERPER_API_KEY", ""),
		SearchGeo:         getEnv("SEARCH_GEO", "uz"),
		SearchResultCount: getEnvInt("SEARCH_RESULT_COUNT", 10),
		GenCallDelay:      time.Duration(getEnvInt("GEN_CALL_DELAY_MS", 4100)) * time.Millisecond,
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:          getEnv("R2_BUCKET", "tender-documents"),
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
