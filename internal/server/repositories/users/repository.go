// Package users is the identity store: persistence of models.User keyed by
// id and by case-insensitive email.
package users

import (
	"context"

	"github.com/dmitrijs2005/humanist/internal/server/models"
)

// Repository stores users. Implementations return common.ErrorNotFound for
// absent users, common.ErrDuplicateEmail when the lower-cased email is taken
// and common.ErrAuthorAlreadyExists when a second author is inserted.
// Create is atomic: of two concurrent inserts for one email exactly one wins.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
