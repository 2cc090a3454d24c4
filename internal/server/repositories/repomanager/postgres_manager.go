// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/humanist/internal/dbx"
	"github.com/dmitrijs2005/humanist/internal/server/migrations"
	"github.com/dmitrijs2005/humanist/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories and owns
// the schema migrations.
type PostgresRepositoryManager struct{}

// Users returns a users.Repository that draws connections from c.
func (m *PostgresRepositoryManager) Users(c dbx.Connector) users.Repository {
	return users.NewPostgresRepository(c)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations. It is safe to run on every
// start; goose skips versions already recorded.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// MemoryRepositoryManager serves a single in-process user store; migrations
// are a no-op.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Users(dbx.Connector) users.Repository { return m.users }

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }
