// Package db owns the connection to PostgreSQL: it normalizes the configured
// connection string, keeps a bounded pool, hands out connections with a
// timeout and verifies connectivity at startup.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// PoolOptions bound the pool: PoolSize connections are kept idle, up to
// MaxOverflow more may be opened under load, and Acquire gives up after
// PoolTimeout.
type PoolOptions struct {
	PoolSize        int
	MaxOverflow     int
	PoolTimeout     time.Duration
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPoolOptions mirror common ORM defaults: 5 + 10 overflow, 30s wait.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		PoolSize:        5,
		MaxOverflow:     10,
		PoolTimeout:     30 * time.Second,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

func (o PoolOptions) withDefaults() PoolOptions {
	d := DefaultPoolOptions()
	if o.PoolSize <= 0 {
		o.PoolSize = d.PoolSize
	}
	if o.MaxOverflow < 0 {
		o.MaxOverflow = 0
	}
	if o.PoolTimeout <= 0 {
		o.PoolTimeout = d.PoolTimeout
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = d.ConnMaxLifetime
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	return o
}

// Manager is the single owner of the connection pool. It is created once
// at startup and passed explicitly to whatever needs the database.
type Manager struct {
	db          *sql.DB
	poolTimeout time.Duration
	bootstrap   BootstrapOptions
	logger      logging.Logger
}

// NewPostgresManager opens a pool for a canonical connection string (see
// Normalize). No connection is made until first use.
func NewPostgresManager(canonical string, opts PoolOptions, bootstrap BootstrapOptions, logger logging.Logger) (*Manager, error) {
	dsn, err := DriverDSN(canonical)
	if err != nil {
		return nil, err
	}

	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse DSN: %v", common.ErrConfig, err)
	}

	opts = opts.withDefaults()
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = opts.ConnectTimeout
	}

	return newManager(stdlib.OpenDB(*cfg), opts, bootstrap, logger), nil
}

func newManager(db *sql.DB, opts PoolOptions, bootstrap BootstrapOptions, logger logging.Logger) *Manager {
	opts = opts.withDefaults()

	db.SetMaxOpenConns(opts.PoolSize + opts.MaxOverflow)
	db.SetMaxIdleConns(opts.PoolSize)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return &Manager{
		db:          db,
		poolTimeout: opts.PoolTimeout,
		bootstrap:   bootstrap,
		logger:      logger.With("module", "db"),
	}
}

// DB exposes the pool for migrations.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Acquire waits for a free connection for at most the pool timeout.
// Running out of time while the caller's ctx is still live is reported as
// common.ErrPoolExhausted.
func (m *Manager) Acquire(ctx context.Context) (*sql.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, m.poolTimeout)
	defer cancel()

	conn, err := m.db.Conn(actx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			m.logger.Warn(ctx, "connection pool exhausted", "wait", m.poolTimeout, "in_use", m.db.Stats().InUse)
			return nil, common.ErrPoolExhausted
		}
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// Ping runs a trivial round-trip query on a pooled connection.
func (m *Manager) Ping(ctx context.Context) error {
	conn, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var one int
	if err := conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Bootstrap probes the database with the manager's retry policy.
func (m *Manager) Bootstrap(ctx context.Context) error {
	return Bootstrap(ctx, m, m.bootstrap, m.logger)
}

func (m *Manager) Close() error {
	return m.db.Close()
}
