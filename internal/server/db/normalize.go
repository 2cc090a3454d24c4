package db

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/humanist/internal/common"
)

const (
	legacyScheme    = "postgres"
	canonicalScheme = "postgresql"
	driverQualifier = "pgx"

	sslParam     = "ssl"
	sslModeParam = "sslmode"
)

// CanonicalScheme is the scheme every normalized connection string carries.
const CanonicalScheme = canonicalScheme + "+" + driverQualifier

// sslModes maps libpq sslmode values onto the canonical ssl parameter.
// An empty value means the parameter is omitted.
var sslModes = map[string]string{
	"require":     "require",
	"verify-ca":   "require",
	"verify-full": "require",
	"prefer":      "prefer",
	"disable":     "",
	"allow":       "",
}

// Normalize rewrites a raw DATABASE_URL into the canonical
// postgresql+pgx://...?ssl=... form. sslOverride is the operator's
// DB_SSL/DB_SSLMODE value and only matters when the URL itself ends up
// without an ssl parameter. Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw, sslOverride string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: DATABASE_URL is not set", common.ErrConfig)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: parse DATABASE_URL: %v", common.ErrConfig, err)
	}

	scheme, _, _ := strings.Cut(strings.ToLower(u.Scheme), "+")
	if scheme == legacyScheme {
		scheme = canonicalScheme
	}
	if scheme != canonicalScheme {
		return "", fmt.Errorf("%w: unsupported DATABASE_URL scheme %q", common.ErrConfig, u.Scheme)
	}
	u.Scheme = CanonicalScheme

	q := u.Query()
	if q.Has(sslModeParam) {
		mode := q.Get(sslModeParam)
		q.Del(sslModeParam)
		if mapped := sslModes[mode]; mapped != "" {
			q.Set(sslParam, mapped)
		}
	}

	if q.Get(sslParam) == "" {
		q.Del(sslParam)
		mode, err := overrideMode(sslOverride)
		if err != nil {
			return "", err
		}
		if mode != "" {
			q.Set(sslParam, mode)
		}
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func overrideMode(override string) (string, error) {
	override = strings.ToLower(strings.TrimSpace(override))
	if override == "" {
		return "require", nil
	}
	mode, ok := sslModes[override]
	if !ok {
		return "", fmt.Errorf("%w: unsupported DB_SSL value %q", common.ErrConfig, override)
	}
	return mode, nil
}

// DriverDSN turns a canonical connection string into the URL form pgx
// parses: plain postgres scheme and a libpq sslmode.
func DriverDSN(canonical string) (string, error) {
	u, err := url.Parse(canonical)
	if err != nil {
		return "", fmt.Errorf("%w: parse connection string: %v", common.ErrConfig, err)
	}
	if u.Scheme != CanonicalScheme {
		return "", fmt.Errorf("%w: connection string is not normalized", common.ErrConfig)
	}
	u.Scheme = legacyScheme

	q := u.Query()
	ssl := q.Get(sslParam)
	q.Del(sslParam)
	switch ssl {
	case "", "disable", "false":
		q.Set(sslModeParam, "disable")
	case "require", "true":
		q.Set(sslModeParam, "require")
	case "prefer":
		q.Set(sslModeParam, "prefer")
	default:
		return "", fmt.Errorf("%w: unsupported ssl value %q", common.ErrConfig, ssl)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
