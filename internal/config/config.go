package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime settings for the auction API.
type Config struct {
	Port               string
	DBPath             string
	JWTSecret          string
	Debug              bool
	SettlementInterval time.Duration
	MaxBidRetries      int
}

// Load reads configuration from the environment, preferring a local .env
// file when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment")
	}

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		DBPath:             getEnvOrDefault("DB_PATH", "auction.db"),
		JWTSecret:          getEnvOrDefault("JWT_SECRET", "auction-secret-key"),
		Debug:              os.Getenv("DEBUG") == "true",
		SettlementInterval: time.Minute,
		MaxBidRetries:      3,
	}

	if raw := os.Getenv("SETTLEMENT_INTERVAL_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			cfg.SettlementInterval = time.Duration(secs) * time.Second
		}
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
