package auth

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dmitrijs2005/humanist/internal/common"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher produces and checks bcrypt digests. A digest embeds its
// own algorithm version, cost and salt, so raising the cost later does not
// invalidate digests created earlier.
//
// bcrypt is deliberately slow; the semaphore keeps a burst of logins from
// occupying every CPU at once.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewPasswordHasher clamps cost into bcrypt's valid range and falls back to
// GOMAXPROCS workers when workers <= 0.
func NewPasswordHasher(cost, workers int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &PasswordHasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

func (h *PasswordHasher) Cost() int { return h.cost }

// Hash returns a fresh salted digest of plaintext.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > common.MaxPasswordBytes {
		return "", common.ErrPasswordTooLong
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Malformed digests and a
// cancelled ctx both yield false.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, digest string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
