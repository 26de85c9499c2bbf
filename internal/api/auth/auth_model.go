package auth

import (
	"context"

	"github.com/wandertours/wandertours/internal/types"
)

// Mailer is the outbound email collaborator. Implementations must bound
// their own connection timeouts; a failure is an error return, never a
// hang.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

// SignUpRequest represents the signup request body. A caller-supplied
// role is deliberately absent: new accounts always get the default role.
type SignUpRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the forgot-password request body.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest carries the new password; the reset token itself
// travels in the URL path.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// UpdatePasswordRequest represents the authenticated password-change body.
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"password_current"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// TokenResponse is the envelope returned whenever a session token is
// issued. The user's sensitive fields are hidden by their JSON tags.
type TokenResponse struct {
	Status string     `json:"status"`
	Token  string     `json:"token"`
	Data   *TokenData `json:"data,omitempty"`
}

type TokenData struct {
	User *types.User `json:"user"`
}

// MessageResponse is a simple success envelope.
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
