// Package auth holds the credential primitives of the identity core:
// bcrypt password digests and HMAC-signed session tokens.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is what a session token asserts about its bearer.
type Claims struct {
	UserID int64
	Email  string
	Role   models.Role
}

// tokenClaims is the wire payload. Subject carries the user id as a string.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsAuthor bool   `json:"is_author"`
}

// TokenCodec signs and checks stateless session tokens with a process-wide
// HMAC secret. It is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// NewTokenCodec accepts HS256, HS384 or HS512.
func NewTokenCodec(secret []byte, algorithm string) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty token secret", common.ErrConfig)
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported token algorithm %q", common.ErrConfig, algorithm)
	}
	return &TokenCodec{secret: secret, method: method, now: time.Now}, nil
}

func (c *TokenCodec) Algorithm() string { return c.method.Alg() }

// Issue signs claims with exp = now + ttl. A non-positive ttl yields a token
// that is already expired.
func (c *TokenCodec) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(c.method, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:    claims.Email,
		Role:     string(claims.Role),
		IsAuthor: claims.Role.IsAuthor(),
	})

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Validate returns the claims of a well-formed, correctly signed, unexpired
// token. The signature is checked before expiry, so ErrTokenExpired is only
// ever reported for tokens this codec actually issued.
func (c *TokenCodec) Validate(tokenString string) (*Claims, error) {
	tc := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, tc, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(tc.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: bad subject", common.ErrInvalidToken)
	}
	if tc.Email == "" {
		return nil, fmt.Errorf("%w: missing email", common.ErrInvalidToken)
	}
	role, err := models.ParseRole(tc.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	return &Claims{UserID: userID, Email: tc.Email, Role: role}, nil
}
