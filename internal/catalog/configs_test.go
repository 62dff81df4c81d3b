package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{
		Host:     "db.internal",
		Port:     "5433",
		User:     "ingest",
		Password: "secret",
		DbName:   "catalog",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=ingest password=secret dbname=catalog sslmode=require",
		cfg.DSN())
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, int32(10), cfg.MaxConns)
}
