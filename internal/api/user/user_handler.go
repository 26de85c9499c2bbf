package user

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wandertours/wandertours/internal/api"
	"github.com/wandertours/wandertours/internal/api/auth"
)

// UserHandler serves the account endpoints that belong to the auth
// subsystem: reading the authenticated profile and deactivation.
// Accounts are never physically deleted here.
type UserHandler struct {
	store  auth.UserStore
	logger *slog.Logger
}

func NewUserHandler(store auth.UserStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		store:  store,
		logger: logger,
	}
}

// GetMe handles GET /users/me. Runs behind the access gate.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"user": user},
	})
}

// DeleteMe handles DELETE /users/me: soft-deletes the caller's account
// by flipping the active flag. The gate rejects its tokens from then on.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}
	if err := h.store.DeactivateUser(r.Context(), user.ID); err != nil {
		api.ErrorResponseFromError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// DeactivateUser handles DELETE /users/{userID}, an admin-only action.
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.store.DeactivateUser(r.Context(), userID); err != nil {
		api.ErrorResponseFromError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
