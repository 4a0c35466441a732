package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/credentials"
)

// PoolConfig tunes the shared connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// DefaultPoolConfig is sized for a small admin service.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// Client owns the store connection pool. It is constructed once at startup,
// passed explicitly to every component that queries the store, and closed on
// shutdown.
type Client struct {
	*sql.DB
}

// Open connects to the maintenance database described by desc and verifies
// the connection. The descriptor is not retained.
func Open(ctx context.Context, desc credentials.Descriptor, cfg PoolConfig) (*Client, error) {
	db, err := sql.Open("pgx", desc.MaintenanceConnString())
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return &Client{DB: db}, nil
}

// Health checks if the pool can reach the server.
func (c *Client) Health(ctx context.Context) error {
	return c.PingContext(ctx)
}

// Close releases every pooled connection.
func (c *Client) Close() error {
	return c.DB.Close()
}
