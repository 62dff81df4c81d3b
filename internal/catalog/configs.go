package catalog

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the Postgres connection settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DbName   string
	SSLMode  string

	MaxConns        int32
	ConnMaxLifetime time.Duration
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	cfg := Config{
		Host:            envOr("POSTGRES_HOST", "localhost"),
		Port:            envOr("POSTGRES_PORT", "5432"),
		User:            envOr("POSTGRES_USER", "ingest"),
		Password:        os.Getenv("POSTGRES_PASSWORD"),
		DbName:          envOr("POSTGRES_DB", "ingest"),
		SSLMode:         envOr("POSTGRES_SSLMODE", "disable"),
		MaxConns:        10,
		ConnMaxLifetime: time.Minute,
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConns = int32(n)
		}
	}
	return cfg
}

// DSN builds the connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DbName, c.SSLMode)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
