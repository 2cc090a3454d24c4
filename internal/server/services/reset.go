package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/logging"
)

// ResetNotifier delivers password-reset messages.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email string) error
}

// LogNotifier only records that a reset was requested. No mail is sent.
type LogNotifier struct {
	Logger logging.Logger
}

func (n LogNotifier) NotifyPasswordReset(ctx context.Context, email string) error {
	n.Logger.Info(ctx, "password reset requested")
	return nil
}

// RequestPasswordReset notifies the owner of email, if any. The result never
// reveals whether the account exists.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil
	case err != nil:
		s.logger.Warn(ctx, "password reset lookup failed", "error", err)
		return nil
	}

	if err := s.notifier.NotifyPasswordReset(ctx, user.Email); err != nil {
		s.logger.Warn(ctx, "password reset notification failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword checks newPassword and then the reset token. No reset
// tokens are ever issued, so every well-formed request ends in
// ErrInvalidResetLink.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	return common.ErrInvalidResetLink
}
