package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/server/auth"
	"github.com/dmitrijs2005/humanist/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister_Reader(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	u, err := f.users.Register(ctx, "  Reader@Example.COM ", "correct horse", " Rita ")
	require.NoError(t, err)

	assert.Positive(t, u.ID)
	assert.Equal(t, "reader@example.com", u.Email)
	assert.Equal(t, "Rita", u.DisplayName)
	assert.Equal(t, models.RoleReader, u.Role)
	assert.True(t, u.Active)
	assert.NotEqual(t, "correct horse", u.PasswordHash)
	assert.True(t, f.hasher.Verify(ctx, "correct horse", u.PasswordHash))
}

func TestRegister_AuthorByConfiguredEmail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	u, err := f.users.Register(ctx, "DENISE@example.com", "password123", "Denise")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAuthor, u.Role)
	assert.Equal(t, testAuthor, u.Email)

	other, err := f.users.Register(ctx, "denise@example.org", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleReader, other.Role)
}

func TestRegister_DuplicateIgnoresCase(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.users.Register(ctx, "Foo@x.com", "password123", "")
	require.NoError(t, err)

	_, err = f.users.Register(ctx, "foo@x.com", "password456", "")
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)

	_, err = f.users.Register(ctx, "FOO@X.COM", "password456", "")
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestRegister_InputErrors(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		password    string
		displayName string
		want        error
	}{
		{"short password", "a@x.com", "1234567", "", common.ErrWeakPassword},
		{"empty password", "a@x.com", "", "", common.ErrWeakPassword},
		{"password over 72 bytes", "a@x.com", strings.Repeat("p", 73), "", common.ErrPasswordTooLong},
		{"empty email", "", "password123", "", common.ErrInvalidEmail},
		{"no at sign", "not-an-email", "password123", "", common.ErrInvalidEmail},
		{"no dot in domain", "a@localhost", "password123", "", common.ErrInvalidEmail},
		{"display name form", "Alice <a@x.com>", "password123", "", common.ErrInvalidEmail},
		{"long display name", "a@x.com", "password123", strings.Repeat("n", 256), common.ErrDisplayNameLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.users.Register(context.Background(), tt.email, tt.password, tt.displayName)
			assert.ErrorIs(t, err, tt.want)

			_, err = f.users.Authenticate(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, common.ErrInvalidCredentials, "nothing may be stored")
		})
	}
}

func TestRegister_ExactlyEightCharacters(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.users.Register(context.Background(), "a@x.com", "12345678", "")
	assert.NoError(t, err)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const n = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "race@x.com"
			if i%2 == 1 {
				email = "Race@X.com"
			}
			_, err := f.users.Register(ctx, email, "password123", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, common.ErrDuplicateEmail):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dups)
}

func TestRegister_RepositoryErrorsPassThrough(t *testing.T) {
	f := newFixture(t, fakeRepoManager{repo: &fakeUsersRepo{createErr: common.ErrPoolExhausted}})

	_, err := f.users.Register(context.Background(), "a@x.com", "password123", "")
	assert.ErrorIs(t, err, common.ErrPoolExhausted)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	reg, err := f.users.Register(ctx, "a@x.com", "password123", "")
	require.NoError(t, err)

	u, err := f.users.Authenticate(ctx, "A@X.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, u.ID)

	_, err = f.users.Authenticate(ctx, "a@x.com", "password124")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, errUnknown := f.users.Authenticate(ctx, "nobody@x.com", "password123")
	assert.ErrorIs(t, errUnknown, common.ErrInvalidCredentials)
	assert.Equal(t, err.Error(), errUnknown.Error(), "unknown account and wrong password must look the same")
}

func TestAuthenticate_StorageFailureIsNotInvalidCredentials(t *testing.T) {
	f := newFixture(t, fakeRepoManager{repo: &fakeUsersRepo{getErr: common.ErrPoolExhausted}})

	_, err := f.users.Authenticate(context.Background(), "a@x.com", "password123")
	assert.ErrorIs(t, err, common.ErrPoolExhausted)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	reg, err := f.users.Register(ctx, testAuthor, "password123", "Denise")
	require.NoError(t, err)

	s, err := f.users.Login(ctx, testAuthor, "password123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", s.TokenType)
	assert.Equal(t, reg.ID, s.User.ID)

	claims, err := f.codec.Validate(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, claims.UserID)
	assert.Equal(t, testAuthor, claims.Email)
	assert.Equal(t, models.RoleAuthor, claims.Role)

	_, err = f.users.Login(ctx, testAuthor, "wrong-password")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestIssueSessionFor(t *testing.T) {
	f := newFixture(t, nil)

	token, err := f.users.IssueSessionFor(&models.User{ID: 9, Email: "r@x.com", Role: models.RoleReader})
	require.NoError(t, err)

	claims, err := f.codec.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.UserID)
	assert.Equal(t, models.RoleReader, claims.Role)
}

func TestRequestPasswordReset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	n := &recordingNotifier{}
	f.users.SetResetNotifier(n)

	_, err := f.users.Register(ctx, "a@x.com", "password123", "")
	require.NoError(t, err)

	require.NoError(t, f.users.RequestPasswordReset(ctx, "A@x.com"))
	require.NoError(t, f.users.RequestPasswordReset(ctx, "ghost@x.com"))
	assert.Equal(t, []string{"a@x.com"}, n.emails)

	assert.ErrorIs(t, f.users.RequestPasswordReset(ctx, "nope"), common.ErrInvalidEmail)
}

func TestRequestPasswordReset_HidesFailures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.users.SetResetNotifier(&recordingNotifier{err: errors.New("smtp down")})

	_, err := f.users.Register(ctx, "a@x.com", "password123", "")
	require.NoError(t, err)
	assert.NoError(t, f.users.RequestPasswordReset(ctx, "a@x.com"))

	broken := newFixture(t, fakeRepoManager{repo: &fakeUsersRepo{getErr: errors.New("db down")}})
	assert.NoError(t, broken.users.RequestPasswordReset(ctx, "a@x.com"))
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.users.ResetPassword(ctx, "tok", "short"), common.ErrWeakPassword)
	assert.ErrorIs(t, f.users.ResetPassword(ctx, "tok", "long enough"), common.ErrInvalidResetLink)
}

func TestAuthenticate_UnknownEmailVerifiesRealDigest(t *testing.T) {
	us, h := newFlakyService(t, nil, 0)
	require.Len(t, h.digests(), 0)

	for i := 0; i < 3; i++ {
		_, err := us.Authenticate(context.Background(), "ghost@x.com", "password123")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	}

	got := h.digests()
	require.Len(t, got, 3)
	for _, d := range got {
		_, err := bcrypt.Cost([]byte(d))
		assert.NoError(t, err, "digest %q", d)
		assert.Equal(t, got[0], d)
	}
}

func TestAuthenticate_DummyDigestRecoversFromFailedPreparation(t *testing.T) {
	// construction fails to hash; the first miss runs under a request
	// context that has already expired
	us, h := newFlakyService(t, fakeRepoManager{repo: &fakeUsersRepo{getErr: common.ErrorNotFound}}, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	_, err := us.Authenticate(ctx, "ghost@x.com", "password123")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = us.Authenticate(context.Background(), "ghost@x.com", "password123")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	got := h.digests()
	require.Len(t, got, 2)
	for _, d := range got {
		_, err := bcrypt.Cost([]byte(d))
		assert.NoError(t, err, "miss path verified malformed digest %q", d)
	}
}

func TestAuthenticate_CancelledIsNotInvalidCredentials(t *testing.T) {
	hasher := auth.NewPasswordHasher(bcrypt.MinCost, 1)
	digest, err := hasher.Hash(context.Background(), "password123")
	require.NoError(t, err)

	repo := &fakeUsersRepo{getOut: &models.User{ID: 7, Email: "a@x.com", PasswordHash: digest, Role: models.RoleReader}}
	us, _ := newFlakyService(t, fakeRepoManager{repo: repo}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = us.Authenticate(ctx, "a@x.com", "password123")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = us.Login(ctx, "a@x.com", "password123")
	assert.ErrorIs(t, err, context.Canceled)

	u, err := us.Authenticate(context.Background(), "a@x.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
}
