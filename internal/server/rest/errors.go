package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/humanist/internal/common"
)

const (
	detailNotAuthenticated = "Not authenticated"
	detailBadCredentials   = "Could not validate credentials"
	detailLoginFailed      = "Invalid email or password"
	detailInternal         = "Internal server error"
	detailUnavailable      = "Service temporarily unavailable"
)

// statusFor maps core errors onto the HTTP contract. The second value is
// the client-facing detail; storage errors never get past here.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrInvalidEmail),
		errors.Is(err, common.ErrWeakPassword),
		errors.Is(err, common.ErrPasswordTooLong),
		errors.Is(err, common.ErrDisplayNameLong),
		errors.Is(err, common.ErrInvalidResetLink):
		return http.StatusBadRequest, capitalize(rootMessage(err))
	case errors.Is(err, common.ErrDuplicateEmail):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, common.ErrAuthorAlreadyExists):
		return http.StatusBadRequest, "Author account already exists"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, detailLoginFailed
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, detailBadCredentials
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Author access required"
	case errors.Is(err, common.ErrPoolExhausted),
		errors.Is(err, common.ErrNotReady),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, detailUnavailable
	default:
		return http.StatusInternalServerError, detailInternal
	}
}

// rootMessage returns the message of the sentinel err wraps.
func rootMessage(err error) string {
	for _, s := range []error{
		common.ErrInvalidEmail,
		common.ErrWeakPassword,
		common.ErrPasswordTooLong,
		common.ErrDisplayNameLong,
		common.ErrInvalidResetLink,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)

	ctx := r.Context()
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		h.logger.Error(ctx, "request failed", "request_id", RequestID(ctx), "error", err)
	case status == http.StatusServiceUnavailable:
		h.logger.Warn(ctx, "request shed", "request_id", RequestID(ctx), "error", err)
	case status == http.StatusUnauthorized:
		h.logger.Debug(ctx, "request unauthenticated", "request_id", RequestID(ctx), "error", err)
	}

	writeDetail(w, status, detail)
}
