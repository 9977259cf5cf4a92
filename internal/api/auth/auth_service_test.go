package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-group-trip-planner/config"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api"
	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, username, email, passwordHash, role string) (*types.UserAuth, error) {
	args := m.Called(ctx, username, email, passwordHash, role)
	user, _ := args.Get(0).(*types.UserAuth)
	return user, args.Error(1)
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*types.UserAuth)
	return user, args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID string) (*types.UserAuth, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*types.UserAuth)
	return user, args.Error(1)
}

func (m *MockAuthRepo) UpdatePasswordHash(ctx context.Context, userID, newPasswordHash string) error {
	args := m.Called(ctx, userID, newPasswordHash)
	return args.Error(0)
}

func (m *MockAuthRepo) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockAuthRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshTokenRecord, error) {
	args := m.Called(ctx, tokenHash)
	rec, _ := args.Get(0).(*RefreshTokenRecord)
	return rec, args.Error(1)
}

func (m *MockAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockAuthRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.JWTRefreshSecret = "test-refresh-secret"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute
	cfg.Auth.RefreshTokenTTL = 24 * time.Hour
	cfg.Auth.Issuer = "tripcrew-test"
	return cfg
}

func newTestService(repo Repository) *ServiceImpl {
	return NewAuthService(repo, testConfig(), slog.New(slog.NewTextHandler(testWriter{}, nil)))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestServiceImpl_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		mockRepo.On("CreateUser", ctx, "ana", "ana@example.com", mock.AnythingOfType("string"), "user").
			Run(func(args mock.Arguments) {
				hash := args.String(3)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
			}).
			Return(&types.UserAuth{ID: "u1", Username: "ana", Email: "ana@example.com", Role: "user"}, nil).Once()

		user, err := svc.Register(ctx, "ana", "ana@example.com", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		_, err := svc.Register(ctx, "", "ana@example.com", "s3cret")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		mockRepo.AssertNotCalled(t, "CreateUser")
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		mockRepo.On("CreateUser", ctx, "ana", "ana@example.com", mock.AnythingOfType("string"), "user").
			Return(nil, ErrConflict).Once()

		_, err := svc.Register(ctx, "ana", "ana@example.com", "s3cret")
		assert.ErrorIs(t, err, ErrConflict)
		mockRepo.AssertExpectations(t)
	})
}

func TestServiceImpl_Login(t *testing.T) {
	ctx := context.Background()
	storedUser := &types.UserAuth{
		ID:       "u1",
		Username: "ana",
		Email:    "ana@example.com",
		Role:     "user",
	}

	t.Run("success issues signed access token and stores refresh token", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		user := *storedUser
		user.Password = mustHash(t, "s3cret")
		mockRepo.On("GetUserByEmail", ctx, "ana@example.com").Return(&user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, "u1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Return(nil).Once()

		pair, err := svc.Login(ctx, "ana@example.com", "s3cret")
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, "u1", pair.UserID)

		claims := &api.Claims{}
		token, err := jwt.ParseWithClaims(pair.AccessToken, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		require.NoError(t, err)
		assert.True(t, token.Valid)
		assert.Equal(t, "u1", claims.UserID)
		assert.Equal(t, "ana", claims.Username)
		assert.Equal(t, "tripcrew-test", claims.Issuer)

		mockRepo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		user := *storedUser
		user.Password = mustHash(t, "s3cret")
		mockRepo.On("GetUserByEmail", ctx, "ana@example.com").Return(&user, nil).Once()

		_, err := svc.Login(ctx, "ana@example.com", "wrong")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		mockRepo.AssertNotCalled(t, "StoreRefreshToken")
	})

	t.Run("unknown email", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		mockRepo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, ErrNotFound).Once()

		_, err := svc.Login(ctx, "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestServiceImpl_RefreshSession(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation revokes the presented token", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		presented := "old-refresh-token"
		presentedHash := hashToken(presented)
		rec := &RefreshTokenRecord{
			ID:        "rt1",
			UserID:    "u1",
			TokenHash: presentedHash,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		user := &types.UserAuth{ID: "u1", Username: "ana", Email: "ana@example.com", Role: "user"}

		mockRepo.On("GetRefreshToken", ctx, presentedHash).Return(rec, nil).Once()
		mockRepo.On("GetUserByID", ctx, "u1").Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, "u1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Return(nil).Once()
		mockRepo.On("RevokeRefreshToken", ctx, presentedHash).Return(nil).Once()

		pair, err := svc.RefreshSession(ctx, presented)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEqual(t, presented, pair.RefreshToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		presented := "expired-token"
		rec := &RefreshTokenRecord{
			UserID:    "u1",
			TokenHash: hashToken(presented),
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		mockRepo.On("GetRefreshToken", ctx, hashToken(presented)).Return(rec, nil).Once()

		_, err := svc.RefreshSession(ctx, presented)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		mockRepo.AssertNotCalled(t, "StoreRefreshToken")
	})

	t.Run("revoked token rejected", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		presented := "revoked-token"
		revokedAt := time.Now().Add(-time.Minute)
		rec := &RefreshTokenRecord{
			UserID:    "u1",
			TokenHash: hashToken(presented),
			ExpiresAt: time.Now().Add(time.Hour),
			RevokedAt: &revokedAt,
		}
		mockRepo.On("GetRefreshToken", ctx, hashToken(presented)).Return(rec, nil).Once()

		_, err := svc.RefreshSession(ctx, presented)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		mockRepo.On("GetRefreshToken", ctx, mock.AnythingOfType("string")).Return(nil, ErrNotFound).Once()

		_, err := svc.RefreshSession(ctx, "nope")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestServiceImpl_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("success revokes outstanding refresh tokens", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		user := &types.UserAuth{ID: "u1", Password: mustHash(t, "old-pass")}
		mockRepo.On("GetUserByID", ctx, "u1").Return(user, nil).Once()
		mockRepo.On("UpdatePasswordHash", ctx, "u1", mock.AnythingOfType("string")).Return(nil).Once()
		mockRepo.On("RevokeAllUserRefreshTokens", ctx, "u1").Return(nil).Once()

		err := svc.ChangePassword(ctx, "u1", "old-pass", "new-pass")
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("bad old password", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo)

		user := &types.UserAuth{ID: "u1", Password: mustHash(t, "old-pass")}
		mockRepo.On("GetUserByID", ctx, "u1").Return(user, nil).Once()

		err := svc.ChangePassword(ctx, "u1", "wrong", "new-pass")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		mockRepo.AssertNotCalled(t, "UpdatePasswordHash")
	})
}
