package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wandertours/wandertours/internal/api"
	"github.com/wandertours/wandertours/internal/types"
)

const minPasswordLength = 8

// passwordChangedSkew is subtracted from password_changed_at so the
// session token issued in the same request (a moment later) is never
// rejected as stale by the gate.
const passwordChangedSkew = time.Second

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService orchestrates signup, login and the password flows. It
// holds no state of its own beyond calls to the user store.
type AuthService interface {
	// SignUp registers a new account with the default role and logs it in.
	SignUp(ctx context.Context, name, email, password, passwordConfirm string) (*types.User, string, error)

	// Login authenticates by email and password. Unknown email, inactive
	// account and wrong password are indistinguishable to the caller.
	Login(ctx context.Context, email, password string) (*types.User, string, error)

	// ForgotPassword issues a reset token and emails the reset link.
	// resetURLBase is the absolute URL prefix the token gets appended to.
	ForgotPassword(ctx context.Context, email, resetURLBase string) error

	// ResetPassword consumes a reset token and sets a new password.
	ResetPassword(ctx context.Context, plaintextToken, newPassword, passwordConfirm string) (*types.User, string, error)

	// UpdatePassword changes the password of an authenticated user after
	// verifying the current one, and returns a fresh session token.
	UpdatePassword(ctx context.Context, user *types.User, currentPassword, newPassword, passwordConfirm string) (string, error)
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	store    UserStore
	mailer   Mailer
	hasher   *Hasher
	codec    *TokenCodec
	resetTTL time.Duration
}

func NewAuthService(store UserStore, mailer Mailer, hasher *Hasher, codec *TokenCodec, resetTTL time.Duration, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		store:    store,
		mailer:   mailer,
		hasher:   hasher,
		codec:    codec,
		resetTTL: resetTTL,
	}
}

func validateNewPassword(password, passwordConfirm string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", api.ErrValidation, minPasswordLength)
	}
	if password != passwordConfirm {
		return fmt.Errorf("%w: passwords are not the same", api.ErrValidation)
	}
	return nil
}

// SignUp implements AuthService. The role is always the default; a
// caller can never register itself into a privileged role.
func (s *AuthServiceImpl) SignUp(ctx context.Context, name, email, password, passwordConfirm string) (*types.User, string, error) {
	if name == "" || email == "" {
		return nil, "", fmt.Errorf("%w: name and email are required", api.ErrValidation)
	}
	if err := validateNewPassword(password, passwordConfirm); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user, err := s.store.CreateUser(ctx, name, strings.ToLower(email), hash)
	if err != nil {
		return nil, "", err
	}

	// Welcome email is best-effort; the account exists either way.
	if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
		s.logger.WarnContext(ctx, "Failed to send welcome email",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err))
	}

	token, err := s.codec.Issue(user.ID, time.Now())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login implements AuthService.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: please provide email and password", api.ErrValidation)
	}

	user, err := s.store.GetUserByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// Same error as a wrong password so callers cannot probe
			// which emails are registered.
			return nil, "", fmt.Errorf("login: %w", api.ErrBadCredentials)
		}
		return nil, "", err
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, "", fmt.Errorf("login: %w", api.ErrBadCredentials)
	}

	token, err := s.codec.Issue(user.ID, time.Now())
	if err != nil {
		return nil, "", err
	}
	user.PasswordHash = ""
	return user, token, nil
}

// ForgotPassword implements AuthService. A token that could not be
// delivered is cleared again before the error propagates; a live but
// unreachable token must never remain.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	user, err := s.store.GetUserByEmail(ctx, email, false)
	if err != nil {
		return err
	}

	plaintext, tokenHash, expiresAt, err := NewResetToken(s.resetTTL)
	if err != nil {
		return err
	}
	if err := s.store.SetResetToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return err
	}

	resetURL := strings.TrimSuffix(resetURLBase, "/") + "/" + plaintext
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, resetURL); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send password reset email",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err))
		if clearErr := s.store.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.ErrorContext(ctx, "Failed to clear undeliverable reset token",
				slog.String("user_id", user.ID.String()),
				slog.Any("error", clearErr))
		}
		return fmt.Errorf("%w: %v", api.ErrEmailDelivery, err)
	}
	return nil
}

// ResetPassword implements AuthService. The token is consumed by the
// same UPDATE that sets the new hash, so it is accepted at most once.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, plaintextToken, newPassword, passwordConfirm string) (*types.User, string, error) {
	if err := validateNewPassword(newPassword, passwordConfirm); err != nil {
		return nil, "", err
	}

	user, err := s.store.GetUserByResetToken(ctx, HashResetToken(plaintextToken))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, "", fmt.Errorf("reset password: %w", api.ErrResetToken)
		}
		return nil, "", err
	}

	token, err := s.rotatePassword(ctx, user, newPassword)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// UpdatePassword implements AuthService. The caller has already passed
// the access gate; the stored hash is re-read here because gate lookups
// exclude it.
func (s *AuthServiceImpl) UpdatePassword(ctx context.Context, user *types.User, currentPassword, newPassword, passwordConfirm string) (string, error) {
	if err := validateNewPassword(newPassword, passwordConfirm); err != nil {
		return "", err
	}

	withHash, err := s.store.GetUserByEmail(ctx, user.Email, true)
	if err != nil {
		return "", err
	}
	if !s.hasher.Compare(withHash.PasswordHash, currentPassword) {
		return "", fmt.Errorf("current password is wrong: %w", api.ErrBadCredentials)
	}

	return s.rotatePassword(ctx, user, newPassword)
}

// rotatePassword hashes and stores the new password, stamps
// password_changed_at slightly in the past and issues a fresh token.
func (s *AuthServiceImpl) rotatePassword(ctx context.Context, user *types.User, newPassword string) (string, error) {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", err
	}

	changedAt := time.Now().Add(-passwordChangedSkew)
	if err := s.store.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		return "", err
	}
	user.PasswordChangedAt = &changedAt
	user.ResetTokenHash = nil
	user.ResetTokenExpires = nil

	return s.codec.Issue(user.ID, time.Now())
}
