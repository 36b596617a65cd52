package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/cinetalk/cinetalk/pkg/config"
)

type Config struct {
	Port        int
	DatabaseURL string

	AuthServiceURL string

	CacheTTL           time.Duration
	CacheSweepInterval time.Duration

	LogLevel string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: no .env file, using process environment")
	}

	cfg := Config{
		Port:        pkgconfig.EnvIntDefault("PORT", 5002),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AuthServiceURL: pkgconfig.EnvDefault("AUTH_SERVICE_URL", "http://localhost:5001"),

		CacheTTL:           pkgconfig.EnvDurationDefault("TOKEN_CACHE_TTL", time.Minute),
		CacheSweepInterval: pkgconfig.EnvDurationDefault("TOKEN_CACHE_SWEEP_INTERVAL", 5*time.Minute),

		LogLevel: pkgconfig.EnvDefault("LOG_LEVEL", "info"),
	}

	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	return cfg
}
