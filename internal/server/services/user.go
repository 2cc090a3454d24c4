// Package services contains server-side business logic. This file implements
// UserService, which handles registration, credential checks and issuing
// session tokens.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/dbx"
	"github.com/dmitrijs2005/humanist/internal/logging"
	"github.com/dmitrijs2005/humanist/internal/server/auth"
	"github.com/dmitrijs2005/humanist/internal/server/config"
	"github.com/dmitrijs2005/humanist/internal/server/models"
	"github.com/dmitrijs2005/humanist/internal/server/repositories/repomanager"
)

const dummyPassword = "timing-equalisation-password"

// PasswordHasher is satisfied by *auth.PasswordHasher.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, digest string) bool
}

// TokenIssuer is satisfied by *auth.TokenCodec.
type TokenIssuer interface {
	Issue(claims auth.Claims, ttl time.Duration) (string, error)
}

// Session is what a successful login hands back to the client.
type Session struct {
	AccessToken string
	TokenType   string
	User        *models.User
}

// UserService provides authentication-related operations:
// - Register: create users, deciding their role once
// - Authenticate: check an email/password pair
// - Login: authenticate and mint a session token
type UserService struct {
	db          dbx.Connector
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	tokens      TokenIssuer
	roles       RolePolicy
	notifier    ResetNotifier
	tokenTTL    time.Duration
	logger      logging.Logger

	dummyMu     sync.Mutex
	dummyDigest string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db dbx.Connector, m repomanager.RepositoryManager, hasher PasswordHasher, tokens TokenIssuer, cfg *config.Config, logger logging.Logger) *UserService {
	logger = logger.With("module", "users")
	s := &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		roles:       NewAuthorEmailPolicy(cfg.AuthorEmail),
		notifier:    LogNotifier{Logger: logger},
		tokenTTL:    cfg.AccessTokenTTL,
		logger:      logger,
	}
	s.dummy()
	return s
}

// SetResetNotifier replaces the default log-only reset notifier.
func (s *UserService) SetResetNotifier(n ResetNotifier) {
	s.notifier = n
}

// Register creates a reader account, or the author account when email is
// the configured author address. The returned user carries the digest; it
// is up to the transport layer not to expose it.
func (s *UserService) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > common.MaxDisplayNameLength {
		return nil, common.ErrDisplayNameLong
	}

	digest, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: digest,
		DisplayName:  displayName,
		Role:         s.roles.RoleFor(email),
		Active:       true,
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Authenticate returns the user owning email if password matches.
// "No such account" and "wrong password" are both ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same bcrypt time as a real check
			s.hasher.Verify(ctx, password, s.dummy())
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}

// IssueSessionFor mints an access token for user with the configured TTL.
func (s *UserService) IssueSessionFor(user *models.User) (string, error) {
	return s.tokens.Issue(auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, s.tokenTTL)
}

// Login verifies credentials and, on success, returns a new Session.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.logger.Info(ctx, "login rejected")
		}
		return nil, err
	}

	token, err := s.IssueSessionFor(user)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &Session{AccessToken: token, TokenType: common.BearerScheme, User: user}, nil
}

// dummy returns the digest verified when an email is unknown. It is built
// outside any request context and retried until it exists, so a miss never
// verifies against an empty digest once hashing works.
func (s *UserService) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyDigest == "" {
		ctx := context.Background()
		digest, err := s.hasher.Hash(ctx, dummyPassword)
		if err != nil {
			s.logger.Warn(ctx, "cannot prepare dummy digest", "error", err)
			return ""
		}
		s.dummyDigest = digest
	}
	return s.dummyDigest
}
