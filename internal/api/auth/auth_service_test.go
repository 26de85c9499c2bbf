package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wandertours/wandertours/internal/api"
	"github.com/wandertours/wandertours/internal/types"
)

// MockUserStore is a mock implementation of the UserStore interface.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) GetUserByEmail(ctx context.Context, email string, includePassword bool) (*types.User, error) {
	args := m.Called(ctx, email, includePassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) GetUserByResetToken(ctx context.Context, tokenHash string) (*types.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*types.User, error) {
	args := m.Called(ctx, name, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, userID uuid.UUID, newHash string, changedAt time.Time) error {
	args := m.Called(ctx, userID, newHash, changedAt)
	return args.Error(0)
}

func (m *MockUserStore) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockUserStore) ClearResetToken(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserStore) DeactivateUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockMailer is a mock implementation of the Mailer interface.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendWelcome(ctx context.Context, to, name string) error {
	args := m.Called(ctx, to, name)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	args := m.Called(ctx, to, name, resetURL)
	return args.Error(0)
}

func newTestService(store UserStore, mailer Mailer) *AuthServiceImpl {
	return NewAuthService(
		store,
		mailer,
		NewHasher(bcrypt.MinCost),
		NewTokenCodec("test-secret", time.Hour, "test-issuer"),
		10*time.Minute,
		slog.Default(),
	)
}

func testUser() *types.User {
	return &types.User{
		ID:     uuid.New(),
		Name:   "Jane Traveler",
		Email:  "jane@example.com",
		Role:   types.RoleUser,
		Active: true,
	}
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockStore := new(MockUserStore)
		mockMailer := new(MockMailer)
		service := newTestService(mockStore, mockMailer)
		created := testUser()

		mockStore.On("CreateUser", ctx, "Jane Traveler", "jane@example.com", mock.AnythingOfType("string")).
			Return(created, nil).Once()
		mockMailer.On("SendWelcome", ctx, created.Email, created.Name).Return(nil).Once()

		// Mixed-case email is normalized before it reaches the store.
		user, token, err := service.SignUp(ctx, "Jane Traveler", "Jane@Example.com", "password123", "password123")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		require.NotNil(t, user)
		assert.Equal(t, types.RoleUser, user.Role)
		mockStore.AssertExpectations(t)
		mockMailer.AssertExpectations(t)
	})

	t.Run("PasswordMismatch", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))

		_, _, err := service.SignUp(ctx, "Jane", "jane@example.com", "password123", "password124")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrValidation)
		mockStore.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PasswordTooShort", func(t *testing.T) {
		service := newTestService(new(MockUserStore), new(MockMailer))

		_, _, err := service.SignUp(ctx, "Jane", "jane@example.com", "short", "short")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrValidation)
	})

	t.Run("MissingName", func(t *testing.T) {
		service := newTestService(new(MockUserStore), new(MockMailer))

		_, _, err := service.SignUp(ctx, "", "jane@example.com", "password123", "password123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrValidation)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		mockStore := new(MockUserStore)
		mockMailer := new(MockMailer)
		service := newTestService(mockStore, mockMailer)

		mockStore.On("CreateUser", ctx, "Jane", "jane@example.com", mock.AnythingOfType("string")).
			Return(nil, api.ErrConflict).Once()

		_, _, err := service.SignUp(ctx, "Jane", "jane@example.com", "password123", "password123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrConflict)
		mockMailer.AssertNotCalled(t, "SendWelcome", mock.Anything, mock.Anything, mock.Anything)
		mockStore.AssertExpectations(t)
	})

	t.Run("WelcomeEmailFailureIsNotFatal", func(t *testing.T) {
		mockStore := new(MockUserStore)
		mockMailer := new(MockMailer)
		service := newTestService(mockStore, mockMailer)
		created := testUser()

		mockStore.On("CreateUser", ctx, "Jane Traveler", "jane@example.com", mock.AnythingOfType("string")).
			Return(created, nil).Once()
		mockMailer.On("SendWelcome", ctx, created.Email, created.Name).
			Return(errors.New("smtp unavailable")).Once()

		user, token, err := service.SignUp(ctx, "Jane Traveler", "jane@example.com", "password123", "password123")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.NotNil(t, user)
		mockMailer.AssertExpectations(t)
	})
}

func TestLoginService(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))

		hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
		user := testUser()
		user.PasswordHash = string(hashed)

		mockStore.On("GetUserByEmail", ctx, user.Email, true).Return(user, nil).Once()

		got, token, err := service.Login(ctx, user.Email, "password123")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		require.NotNil(t, got)
		assert.Empty(t, got.PasswordHash, "hash must not leave the service")
		mockStore.AssertExpectations(t)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))

		mockStore.On("GetUserByEmail", ctx, "nobody@example.com", true).
			Return(nil, api.ErrNotFound).Once()

		_, token, err := service.Login(ctx, "nobody@example.com", "password123")

		assert.Error(t, err)
		assert.Empty(t, token)
		assert.ErrorIs(t, err, api.ErrBadCredentials)
		// Callers must not be able to tell unknown emails apart.
		assert.NotErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))

		hashed, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
		user := testUser()
		user.PasswordHash = string(hashed)

		mockStore.On("GetUserByEmail", ctx, user.Email, true).Return(user, nil).Once()

		_, token, err := service.Login(ctx, user.Email, "wrong-password")

		assert.Error(t, err)
		assert.Empty(t, token)
		assert.ErrorIs(t, err, api.ErrBadCredentials)
	})

	t.Run("MissingFields", func(t *testing.T) {
		service := newTestService(new(MockUserStore), new(MockMailer))

		_, _, err := service.Login(ctx, "", "")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrValidation)
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()
	resetURLBase := "https://tours.example.com/api/v1/auth/reset-password"

	t.Run("Success", func(t *testing.T) {
		mockStore := new(MockUserStore)
		mockMailer := new(MockMailer)
		service := newTestService(mockStore, mockMailer)
		user := testUser()

		var storedHash string
		var mailedURL string

		mockStore.On("GetUserByEmail", ctx, user.Email, false).Return(user, nil).Once()
		mockStore.On("SetResetToken", ctx, user.ID,
			mock.MatchedBy(func(hash string) bool { storedHash = hash; return true }),
			mock.AnythingOfType("time.Time")).Return(nil).Once()
		mockMailer.On("SendPasswordReset", ctx, user.Email, user.Name,
			mock.MatchedBy(func(url string) bool { mailedURL = url; return true })).Return(nil).Once()

		err := service.ForgotPassword(ctx, user.Email, resetURLBase)

		assert.NoError(t, err)
		require.True(t, strings.HasPrefix(mailedURL, resetURLBase+"/"))
		// The mailed plaintext must digest to exactly what was stored.
		plaintext := strings.TrimPrefix(mailedURL, resetURLBase+"/")
		assert.Equal(t, storedHash, HashResetToken(plaintext))
		mockStore.AssertExpectations(t)
		mockMailer.AssertExpectations(t)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))

		mockStore.On("GetUserByEmail", ctx, "nobody@example.com", false).
			Return(nil, api.ErrNotFound).Once()

		err := service.ForgotPassword(ctx, "nobody@example.com", resetURLBase)

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("EmailFailureClearsToken", func(t *testing.T) {
		mockStore := new(MockUserStore)
		mockMailer := new(MockMailer)
		service := newTestService(mockStore, mockMailer)
		user := testUser()

		mockStore.On("GetUserByEmail", ctx, user.Email, false).Return(user, nil).Once()
		mockStore.On("SetResetToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Return(nil).Once()
		mockMailer.On("SendPasswordReset", ctx, user.Email, user.Name, mock.AnythingOfType("string")).
			Return(errors.New("smtp timeout")).Once()
		mockStore.On("ClearResetToken", ctx, user.ID).Return(nil).Once()

		err := service.ForgotPassword(ctx, user.Email, resetURLBase)

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrEmailDelivery)
		mockStore.AssertExpectations(t)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))
		user := testUser()

		plaintext, hash, expiresAt, err := NewResetToken(10 * time.Minute)
		require.NoError(t, err)
		user.ResetTokenHash = &hash
		user.ResetTokenExpires = &expiresAt

		mockStore.On("GetUserByResetToken", ctx, hash).Return(user, nil).Once()
		mockStore.On("UpdatePassword", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Return(nil).Once()

		got, token, err := service.ResetPassword(ctx, plaintext, "new-password", "new-password")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		require.NotNil(t, got)
		assert.Nil(t, got.ResetTokenHash)
		assert.Nil(t, got.ResetTokenExpires)
		assert.NotNil(t, got.PasswordChangedAt)
		mockStore.AssertExpectations(t)
	})

	t.Run("InvalidOrExpiredToken", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))

		mockStore.On("GetUserByResetToken", ctx, mock.AnythingOfType("string")).
			Return(nil, api.ErrNotFound).Once()

		_, _, err := service.ResetPassword(ctx, "deadbeef", "new-password", "new-password")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrResetToken)
	})

	t.Run("PasswordMismatch", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))

		_, _, err := service.ResetPassword(ctx, "deadbeef", "new-password", "other-password")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrValidation)
		mockStore.AssertNotCalled(t, "GetUserByResetToken", mock.Anything, mock.Anything)
	})
}

func TestUpdatePasswordService(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))
		user := testUser()

		hashed, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
		withHash := testUser()
		withHash.ID = user.ID
		withHash.PasswordHash = string(hashed)

		var changedAt time.Time
		mockStore.On("GetUserByEmail", ctx, user.Email, true).Return(withHash, nil).Once()
		mockStore.On("UpdatePassword", ctx, user.ID, mock.AnythingOfType("string"),
			mock.MatchedBy(func(ts time.Time) bool { changedAt = ts; return true })).Return(nil).Once()

		token, err := service.UpdatePassword(ctx, user, "old-password", "new-password", "new-password")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		// Stamped slightly in the past so the fresh token is not stale.
		assert.True(t, changedAt.Before(time.Now()))
		claims, err := service.codec.Verify(token)
		require.NoError(t, err)
		assert.False(t, user.ChangedPasswordAfter(claims.IssuedAt.Time),
			"token issued alongside the change must pass the gate")
		mockStore.AssertExpectations(t)
	})

	t.Run("WrongCurrentPassword", func(t *testing.T) {
		mockStore := new(MockUserStore)
		service := newTestService(mockStore, new(MockMailer))
		user := testUser()

		hashed, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
		withHash := testUser()
		withHash.ID = user.ID
		withHash.PasswordHash = string(hashed)

		mockStore.On("GetUserByEmail", ctx, user.Email, true).Return(withHash, nil).Once()

		_, err := service.UpdatePassword(ctx, user, "not-the-password", "new-password", "new-password")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrBadCredentials)
		mockStore.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PasswordMismatch", func(t *testing.T) {
		service := newTestService(new(MockUserStore), new(MockMailer))

		_, err := service.UpdatePassword(ctx, testUser(), "old-password", "new-password", "other")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrValidation)
	})
}
