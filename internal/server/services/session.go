package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/dbx"
	"github.com/dmitrijs2005/humanist/internal/logging"
	"github.com/dmitrijs2005/humanist/internal/server/auth"
	"github.com/dmitrijs2005/humanist/internal/server/models"
	"github.com/dmitrijs2005/humanist/internal/server/repositories/repomanager"
)

// TokenValidator is satisfied by *auth.TokenCodec.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// SessionService turns bearer tokens back into users and gates
// author-only operations.
type SessionService struct {
	db          dbx.Connector
	repomanager repomanager.RepositoryManager
	tokens      TokenValidator
	logger      logging.Logger
}

func NewSessionService(db dbx.Connector, m repomanager.RepositoryManager, tokens TokenValidator, logger logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		logger:      logger.With("module", "sessions"),
	}
}

// ResolveCurrentUser returns the user a token was issued to. Bad or expired
// tokens and tokens whose subject no longer exists are all
// ErrUnauthenticated; the underlying cause stays in the chain. Storage
// failures are returned as they are.
func (s *SessionService) ResolveCurrentUser(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: subject %d no longer exists", common.ErrUnauthenticated, claims.UserID)
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// RequireAuthor lets the author through.
func (s *SessionService) RequireAuthor(user *models.User) error {
	switch {
	case user == nil:
		return common.ErrUnauthenticated
	case !user.IsAuthor():
		return common.ErrForbidden
	}
	return nil
}
