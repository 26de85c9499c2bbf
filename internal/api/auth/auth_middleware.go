package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wandertours/wandertours/internal/api"
	"github.com/wandertours/wandertours/internal/types"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// UserFromContext returns the identity attached by Authenticate.
func UserFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(userContextKey).(*types.User)
	return user, ok
}

// ContextWithUser attaches an identity to the context. Exported for
// handler tests that bypass the middleware.
func ContextWithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Gate validates bearer session tokens and resolves the subject
// identity. cookieName is where the session cookie lives when no
// Authorization header is present.
type Gate struct {
	logger     *slog.Logger
	codec      *TokenCodec
	store      UserStore
	cookieName string
}

func NewGate(codec *TokenCodec, store UserStore, cookieName string, logger *slog.Logger) *Gate {
	return &Gate{
		logger:     logger,
		codec:      codec,
		store:      store,
		cookieName: cookieName,
	}
}

// extractToken takes the bearer token from the Authorization header
// first, falling back to the session cookie.
func (g *Gate) extractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
			return "", fmt.Errorf("%w: authorization header format must be Bearer {token}", api.ErrUnauthenticated)
		}
		return headerParts[1], nil
	}
	if cookie, err := r.Cookie(g.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", fmt.Errorf("%w: you are not logged in", api.ErrUnauthenticated)
}

// resolveUser runs the full gate: token extraction, verification,
// subject lookup (deleted or deactivated subjects fail here) and the
// stale-password check.
func (g *Gate) resolveUser(r *http.Request) (*types.User, error) {
	tokenString, err := g.extractToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := g.codec.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	userID, err := claims.SubjectID()
	if err != nil {
		return nil, err
	}

	user, err := g.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("%w: the user belonging to this token no longer exists", api.ErrUnauthenticated)
		}
		return nil, err
	}

	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, fmt.Errorf("user recently changed password: %w", api.ErrStalePassword)
	}
	return user, nil
}

// Authenticate is the hard gate: requests without a valid token for a
// live identity are rejected.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := g.logger.With(slog.String("middleware", "Authenticate"))

		user, err := g.resolveUser(r)
		if err != nil {
			api.ErrorResponseFromError(w, r, l, err)
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SoftAuthenticate attaches the identity when a valid token is present
// but never rejects the request. For routes that render differently for
// anonymous and authenticated callers.
func (g *Gate) SoftAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.resolveUser(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireRole gates a route on an allow-list of roles. Must run after
// Authenticate.
func RequireRole(logger *slog.Logger, roles ...types.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With(slog.String("middleware", "RequireRole"))

			user, ok := UserFromContext(r.Context())
			if !ok {
				api.ErrorResponseFromError(w, r, l,
					fmt.Errorf("%w: no authenticated user in context", api.ErrUnauthenticated))
				return
			}
			if !roleAllowed(user.Role, roles) {
				l.WarnContext(r.Context(), "Role not permitted",
					slog.String("user_id", user.ID.String()),
					slog.String("role", string(user.Role)))
				api.ErrorResponseFromError(w, r, l,
					fmt.Errorf("you do not have permission to perform this action: %w", api.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func roleAllowed(role types.Role, allowed []types.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
