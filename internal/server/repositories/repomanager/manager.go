package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/humanist/internal/dbx"
	"github.com/dmitrijs2005/humanist/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.Connector) users.Repository
}
