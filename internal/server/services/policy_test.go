package services

import (
	"testing"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestAuthorEmailPolicy(t *testing.T) {
	p := NewAuthorEmailPolicy(" Denise@TheIncurableHumanist.com ")

	assert.Equal(t, models.RoleAuthor, p.RoleFor("denise@theincurablehumanist.com"))
	assert.Equal(t, models.RoleAuthor, p.RoleFor("DENISE@theincurablehumanist.com"))
	assert.Equal(t, models.RoleReader, p.RoleFor("denise@theincurablehumanist.org"))
	assert.Equal(t, models.RoleReader, p.RoleFor("reader@example.com"))

	empty := NewAuthorEmailPolicy("")
	assert.Equal(t, models.RoleReader, empty.RoleFor(""))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "foo@x.com", NormalizeEmail("  Foo@X.com\t"))
	assert.Equal(t, NormalizeEmail("Foo@x.com"), NormalizeEmail("foo@x.com"))
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@x.com", "first.last+tag@sub.example.org"} {
		assert.NoError(t, ValidateEmail(ok), ok)
	}
	for _, bad := range []string{"", "a", "a@", "@x.com", "a@x", "a@x.com.", "a@.com", "a b@x.com", "<a@x.com>"} {
		assert.ErrorIs(t, ValidateEmail(bad), common.ErrInvalidEmail, bad)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("1234567"), common.ErrWeakPassword)
	assert.NoError(t, ValidatePassword("12345678"))
	assert.NoError(t, ValidatePassword("пароль12"), "length counts characters, not bytes")
	assert.NoError(t, ValidatePassword(string(make([]byte, 72))))
	assert.ErrorIs(t, ValidatePassword(string(make([]byte, 73))), common.ErrPasswordTooLong)
}
