package catalog

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Catalog is the pgx-backed Store.
type Catalog struct {
	pool *pgxpool.Pool
}

// NewCatalog connects to Postgres, verifies the connection, and applies
// the schema migrations.
func NewCatalog(cfg Config) (*Catalog, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("catalog: parse config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("catalog: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}

	c := &Catalog{pool: pool}
	if err := c.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("INFO: Successfully connected to PostgresSQL catalog database")
	return c, nil
}

// Close releases the connection pool.
func (c *Catalog) Close() {
	c.pool.Close()
}
