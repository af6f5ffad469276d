package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port   string
	DBPath string

	// Insight generation (external text-completion service). An empty
	// endpoint disables the external call and forces the deterministic
	// fallback.
	InsightEndpoint string
	InsightAPIKey   string
	InsightModel    string
	InsightTimeout  time.Duration
}

// Load reads configuration from the environment, with an optional .env
// file for local development
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[Config] Loaded .env file")
	}

	return &Config{
		Port:            getEnv("PORT", ":8080"),
		DBPath:          getEnv("DB_PATH", "./data/signals.db"),
		InsightEndpoint: getEnv("INSIGHT_ENDPOINT", ""),
		InsightAPIKey:   getEnv("INSIGHT_API_KEY", ""),
		InsightModel:    getEnv("INSIGHT_MODEL", "gpt-4o-mini"),
		InsightTimeout:  getDurationEnv("INSIGHT_TIMEOUT_SECONDS", 30) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationEnv(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(fallback)
}
