package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/cinetalk/cinetalk/pkg/config"
)

type Config struct {
	Port        int
	DatabaseURL string

	JWTSecret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SweepInterval time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	LogLevel string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: no .env file, using process environment")
	}

	cfg := Config{
		Port:        pkgconfig.EnvIntDefault("PORT", 5001),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),

		AccessTTL:  pkgconfig.EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL: pkgconfig.EnvDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		SweepInterval: pkgconfig.EnvDurationDefault("TOKEN_SWEEP_INTERVAL", time.Hour),

		KafkaBrokers: csv(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   pkgconfig.EnvDefault("KAFKA_AUTH_TOPIC", "auth.events"),

		LogLevel: pkgconfig.EnvDefault("LOG_LEVEL", "info"),
	}

	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	return cfg
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
