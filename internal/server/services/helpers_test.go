package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/humanist/internal/dbx"
	"github.com/dmitrijs2005/humanist/internal/logging"
	"github.com/dmitrijs2005/humanist/internal/server/auth"
	"github.com/dmitrijs2005/humanist/internal/server/config"
	"github.com/dmitrijs2005/humanist/internal/server/models"
	"github.com/dmitrijs2005/humanist/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/humanist/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAuthor = "denise@example.com"
	testSecret = "test-secret"
)

type fixture struct {
	users    *UserService
	sessions *SessionService
	codec    *auth.TokenCodec
	hasher   *auth.PasswordHasher
}

func newFixture(t *testing.T, rm repomanager.RepositoryManager) *fixture {
	t.Helper()

	if rm == nil {
		rm = repomanager.NewMemoryRepositoryManager()
	}
	cfg := &config.Config{AuthorEmail: "Denise@Example.com", AccessTokenTTL: time.Hour}
	hasher := auth.NewPasswordHasher(bcrypt.MinCost, 4)
	codec, err := auth.NewTokenCodec([]byte(testSecret), "HS256")
	require.NoError(t, err)

	return &fixture{
		users:    NewUserService(nil, rm, hasher, codec, cfg, logging.Nop{}),
		sessions: NewSessionService(nil, rm, codec, logging.Nop{}),
		codec:    codec,
		hasher:   hasher,
	}
}

// --- fakes ---

type fakeRepoManager struct {
	repo users.Repository
}

func (f fakeRepoManager) Users(dbx.Connector) users.Repository         { return f.repo }
func (f fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

type fakeUsersRepo struct {
	createErr error
	getOut    *models.User
	getErr    error
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	created := *u
	created.ID = 1
	return &created, nil
}

func (f *fakeUsersRepo) GetByEmail(context.Context, string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) GetByID(context.Context, int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	emails []string
	err    error
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
	return n.err
}

// flakyHasher fails the first hashFailures calls to Hash and records every
// digest handed to Verify.
type flakyHasher struct {
	inner        *auth.PasswordHasher
	mu           sync.Mutex
	hashFailures int
	verified     []string
}

func (h *flakyHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	h.mu.Lock()
	if h.hashFailures > 0 {
		h.hashFailures--
		h.mu.Unlock()
		return "", context.DeadlineExceeded
	}
	h.mu.Unlock()
	return h.inner.Hash(ctx, plaintext)
}

func (h *flakyHasher) Verify(ctx context.Context, plaintext, digest string) bool {
	h.mu.Lock()
	h.verified = append(h.verified, digest)
	h.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	return h.inner.Verify(ctx, plaintext, digest)
}

func (h *flakyHasher) digests() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.verified...)
}

func newFlakyService(t *testing.T, rm repomanager.RepositoryManager, failures int) (*UserService, *flakyHasher) {
	t.Helper()
	if rm == nil {
		rm = repomanager.NewMemoryRepositoryManager()
	}
	codec, err := auth.NewTokenCodec([]byte(testSecret), "HS256")
	require.NoError(t, err)

	h := &flakyHasher{inner: auth.NewPasswordHasher(bcrypt.MinCost, 1), hashFailures: failures}
	cfg := &config.Config{AuthorEmail: testAuthor, AccessTokenTTL: time.Hour}
	return NewUserService(nil, rm, h, codec, cfg, logging.Nop{}), h
}
