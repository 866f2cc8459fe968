package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string
	CookieSecure  bool

	RateLimitPerMinute      int
	RateLimitBurst          int
	PlantRateLimitPerMinute int
	PlantRateLimitBurst     int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                    port,
		DatabaseURL:             os.Getenv("DB_DSN"),
		SessionSecret:           os.Getenv("SESSION_SECRET"),
		CookieSecure:            readBool("COOKIE_SECURE", true),
		RateLimitPerMinute:      readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:          readInt("RATE_LIMIT_BURST", 30),
		PlantRateLimitPerMinute: readInt("PLANT_RATE_LIMIT_PER_MIN", 300),
		PlantRateLimitBurst:     readInt("PLANT_RATE_LIMIT_BURST", 60),
	}
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
