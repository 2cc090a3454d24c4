// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal query interface (DBTX) implemented by *sql.DB, *sql.Tx and
// *sql.Conn, and the Connector that hands out pooled connections.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our repos.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Connector hands out a dedicated connection from a bounded pool.
// The caller must Close the connection to give it back.
type Connector interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
	_ DBTX = (*sql.Conn)(nil)
)
