package services

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/server/models"
)

// RolePolicy decides the role of a new account from its normalized email.
type RolePolicy interface {
	RoleFor(email string) models.Role
}

// AuthorEmailPolicy grants the author role to exactly one configured
// address, compared case-insensitively.
type AuthorEmailPolicy struct {
	authorEmail string
}

func NewAuthorEmailPolicy(authorEmail string) AuthorEmailPolicy {
	return AuthorEmailPolicy{authorEmail: NormalizeEmail(authorEmail)}
}

func (p AuthorEmailPolicy) RoleFor(email string) models.Role {
	if p.authorEmail != "" && NormalizeEmail(email) == p.authorEmail {
		return models.RoleAuthor
	}
	return models.RoleReader
}

// NormalizeEmail is the single canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare addr-spec with a dotted domain.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return common.ErrInvalidEmail
	}

	_, domain, ok := strings.Cut(email, "@")
	if !ok || !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return common.ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the length rules shared by registration and
// password reset.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < common.MinPasswordLength {
		return common.ErrWeakPassword
	}
	if len(password) > common.MaxPasswordBytes {
		return common.ErrPasswordTooLong
	}
	return nil
}
