package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the static, environment-driven settings. Schedule times live
// in Schedule because the owner can change them at runtime.
type Config struct {
	BotToken string
	MongoURI string
	DBName   string
	OwnerID  int64
	Port     string
	Timezone string
}

// Load reads configuration from the environment. main is expected to have
// called godotenv.Load beforehand.
func Load() (Config, error) {
	cfg := Config{
		BotToken: strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		MongoURI: strings.TrimSpace(os.Getenv("MONGODB_URI")),
		DBName:   strings.TrimSpace(os.Getenv("DB_NAME")),
		Port:     strings.TrimSpace(os.Getenv("PORT")),
		Timezone: strings.TrimSpace(os.Getenv("TZ_NAME")),
	}
	if cfg.BotToken == "" {
		return cfg, fmt.Errorf("BOT_TOKEN is not set")
	}
	if cfg.MongoURI == "" {
		return cfg, fmt.Errorf("MONGODB_URI is not set")
	}
	if cfg.DBName == "" {
		cfg.DBName = "TD"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Kolkata"
	}
	if raw := strings.TrimSpace(os.Getenv("OWNER_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("OWNER_ID %q: %w", raw, err)
		}
		cfg.OwnerID = id
	}
	return cfg, nil
}
