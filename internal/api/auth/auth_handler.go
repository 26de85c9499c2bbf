package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wandertours/wandertours/config"
	"github.com/wandertours/wandertours/internal/api"
	"github.com/wandertours/wandertours/internal/types"
)

// logoutCookieTTL keeps the replacement cookie around just long enough
// for the client to pick it up.
const logoutCookieTTL = 10 * time.Second

// AuthHandler exposes the auth flows over HTTP and owns the session
// cookie transport. The same token also works as a Bearer header.
type AuthHandler struct {
	authService  AuthService
	logger       *slog.Logger
	cookieName   string
	tokenTTL     time.Duration
	secureCookie bool
}

func NewAuthHandler(authService AuthService, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		logger:       logger,
		cookieName:   cfg.JWT.CookieName,
		tokenTTL:     cfg.JWT.TokenTTL,
		secureCookie: cfg.IsProduction(),
	}
}

func (h *AuthHandler) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// sendToken delivers a freshly issued session token as both cookie and
// response body.
func (h *AuthHandler) sendToken(w http.ResponseWriter, r *http.Request, status int, user *types.User, token string) {
	http.SetCookie(w, h.sessionCookie(token, h.tokenTTL))
	api.WriteJSONResponse(w, r, status, TokenResponse{
		Status: "success",
		Token:  token,
		Data:   &TokenData{User: user},
	})
}

// SignUp handles POST /auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.authService.SignUp(r.Context(), req.Name, req.Email, req.Password, req.PasswordConfirm)
	if err != nil {
		api.ErrorResponseFromError(w, r, h.logger, err)
		return
	}
	h.sendToken(w, r, http.StatusCreated, user, token)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		api.ErrorResponseFromError(w, r, h.logger, err)
		return
	}
	h.sendToken(w, r, http.StatusOK, user, token)
}

// Logout handles GET /auth/logout. A stateless token cannot be revoked
// server-side; the client's cookie is overwritten with a short-lived
// dummy so browsers drop the session immediately.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("loggedout", logoutCookieTTL))
	api.WriteJSONResponse(w, r, http.StatusOK, MessageResponse{Status: "success"})
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	resetURLBase := scheme + "://" + r.Host + "/api/v1/auth/reset-password"

	if err := h.authService.ForgotPassword(r.Context(), req.Email, resetURLBase); err != nil {
		api.ErrorResponseFromError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, MessageResponse{
		Status:  "success",
		Message: "Token sent to email",
	})
}

// ResetPassword handles PATCH /auth/reset-password/{token}.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	plaintextToken := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.authService.ResetPassword(r.Context(), plaintextToken, req.Password, req.PasswordConfirm)
	if err != nil {
		api.ErrorResponseFromError(w, r, h.logger, err)
		return
	}
	h.sendToken(w, r, http.StatusOK, user, token)
}

// UpdatePassword handles PATCH /auth/update-password. Runs behind the
// access gate.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}

	var req UpdatePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authService.UpdatePassword(r.Context(), user, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		api.ErrorResponseFromError(w, r, h.logger, err)
		return
	}
	h.sendToken(w, r, http.StatusOK, user, token)
}
