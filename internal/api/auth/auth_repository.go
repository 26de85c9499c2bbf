package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wandertours/wandertours/internal/api"
	"github.com/wandertours/wandertours/internal/types"
)

var _ UserStore = (*PostgresUserStore)(nil)

// UserStore abstracts persistence of user identity, hashed credentials
// and password-reset bookkeeping. Every lookup used for authentication
// excludes inactive users explicitly.
type UserStore interface {
	// GetUserByID returns an active user. api.ErrNotFound if the user
	// doesn't exist or is inactive. Password hash is not loaded.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)

	// GetUserByEmail returns an active user by (case-insensitive) email.
	// The password hash is only loaded when includePassword is set; it is
	// excluded from default reads.
	GetUserByEmail(ctx context.Context, email string, includePassword bool) (*types.User, error)

	// GetUserByResetToken matches the stored reset-token digest with an
	// expiry strictly in the future. Expired tokens behave like unknown
	// ones: api.ErrNotFound.
	GetUserByResetToken(ctx context.Context, tokenHash string) (*types.User, error)

	// CreateUser persists a new user with the default role. A duplicate
	// email surfaces as api.ErrConflict.
	CreateUser(ctx context.Context, name, email, passwordHash string) (*types.User, error)

	// UpdatePassword stores a new hash, records changedAt and clears the
	// reset-token fields in the same statement, consuming any
	// outstanding reset token atomically.
	UpdatePassword(ctx context.Context, userID uuid.UUID, newHash string, changedAt time.Time) error

	// SetResetToken stores the reset-token digest and expiry.
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error

	// ClearResetToken removes the reset-token fields, e.g. after a
	// failed email delivery.
	ClearResetToken(ctx context.Context, userID uuid.UUID) error

	// DeactivateUser marks a user inactive (soft delete). Users are
	// never physically deleted here.
	DeactivateUser(ctx context.Context, userID uuid.UUID) error
}

type PostgresUserStore struct {
	logger *slog.Logger
	pgpool PGXPool
}

// PGXPool is the subset of pgxpool.Pool the store uses; pgxmock
// satisfies it in tests.
type PGXPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ PGXPool = (*pgxpool.Pool)(nil)

func NewPostgresUserStore(pgpool PGXPool, logger *slog.Logger) *PostgresUserStore {
	return &PostgresUserStore{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, name, email, role, password_changed_at, reset_token_hash, reset_token_expires_at, active, created_at, updated_at`

func scanUser(row pgx.Row, withPassword bool) (*types.User, error) {
	var u types.User
	dest := []any{
		&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordChangedAt,
		&u.ResetTokenHash, &u.ResetTokenExpires, &u.Active,
		&u.CreatedAt, &u.UpdatedAt,
	}
	if withPassword {
		dest = append(dest, &u.PasswordHash)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", api.ErrNotFound)
		}
		// Keep the driver error in the chain so callers can inspect
		// pgconn.PgError codes.
		return nil, fmt.Errorf("%w: scanning user: %w", api.ErrInternal, err)
	}
	return &u, nil
}

func (s *PostgresUserStore) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	row := s.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND active = TRUE`,
		userID)
	return scanUser(row, false)
}

func (s *PostgresUserStore) GetUserByEmail(ctx context.Context, email string, includePassword bool) (*types.User, error) {
	email = strings.ToLower(email)
	if includePassword {
		row := s.pgpool.QueryRow(ctx,
			`SELECT `+userColumns+`, password_hash FROM users WHERE email = $1 AND active = TRUE`,
			email)
		return scanUser(row, true)
	}
	row := s.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND active = TRUE`,
		email)
	return scanUser(row, false)
}

func (s *PostgresUserStore) GetUserByResetToken(ctx context.Context, tokenHash string) (*types.User, error) {
	row := s.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
         WHERE reset_token_hash = $1 AND reset_token_expires_at > now() AND active = TRUE`,
		tokenHash)
	return scanUser(row, false)
}

func (s *PostgresUserStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*types.User, error) {
	row := s.pgpool.QueryRow(ctx,
		`INSERT INTO users (name, email, role, password_hash)
         VALUES ($1, $2, $3, $4)
         RETURNING `+userColumns,
		name, strings.ToLower(email), types.RoleUser, passwordHash)
	user, err := scanUser(row, false)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("email already registered: %w", api.ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

func (s *PostgresUserStore) UpdatePassword(ctx context.Context, userID uuid.UUID, newHash string, changedAt time.Time) error {
	tag, err := s.pgpool.Exec(ctx,
		`UPDATE users
         SET password_hash = $1, password_changed_at = $2,
             reset_token_hash = NULL, reset_token_expires_at = NULL,
             updated_at = now()
         WHERE id = $3 AND active = TRUE`,
		newHash, changedAt, userID)
	if err != nil {
		return fmt.Errorf("update password: %v: %w", err, api.ErrInternal)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found for password update: %w", api.ErrNotFound)
	}
	return nil
}

func (s *PostgresUserStore) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	tag, err := s.pgpool.Exec(ctx,
		`UPDATE users
         SET reset_token_hash = $1, reset_token_expires_at = $2, updated_at = now()
         WHERE id = $3 AND active = TRUE`,
		tokenHash, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("set reset token: %v: %w", err, api.ErrInternal)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found for reset token: %w", api.ErrNotFound)
	}
	return nil
}

func (s *PostgresUserStore) ClearResetToken(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pgpool.Exec(ctx,
		`UPDATE users
         SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()
         WHERE id = $1`,
		userID)
	if err != nil {
		return fmt.Errorf("clear reset token: %v: %w", err, api.ErrInternal)
	}
	return nil
}

func (s *PostgresUserStore) DeactivateUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := s.pgpool.Exec(ctx,
		`UPDATE users SET active = FALSE, updated_at = now() WHERE id = $1 AND active = TRUE`,
		userID)
	if err != nil {
		return fmt.Errorf("deactivate user: %v: %w", err, api.ErrInternal)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found for deactivation: %w", api.ErrNotFound)
	}
	return nil
}
