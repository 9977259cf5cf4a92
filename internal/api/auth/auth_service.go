package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-group-trip-planner/config"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api"
	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

// Service issues and rotates credentials. Access tokens are short-lived JWTs,
// refresh tokens are opaque values stored hashed and revoked on rotation.
type Service interface {
	Register(ctx context.Context, username, email, password string) (*types.UserAuth, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	GetUserByID(ctx context.Context, userID string) (*types.UserAuth, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	cfg    *config.Config
}

func NewAuthService(repo Repository, cfg *config.Config, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *ServiceImpl) generateAccessToken(user *types.UserAuth) (string, error) {
	now := time.Now()
	claims := &api.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Auth.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Auth.AccessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *ServiceImpl) issueTokenPair(ctx context.Context, user *types.UserAuth) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.NewString()
	expiresAt := time.Now().Add(s.cfg.Auth.RefreshTokenTTL)
	if err := s.repo.StoreRefreshToken(ctx, user.ID, hashToken(refreshToken), expiresAt); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, UserID: user.ID}, nil
}

func (s *ServiceImpl) Register(ctx context.Context, username, email, password string) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register")
	defer span.End()
	l := s.logger.With(slog.String("method", "Register"), slog.String("email", email))

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("username, email and password are required: %w", ErrUnauthenticated)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, username, email, string(passwordHash), "user")
	if err != nil {
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		return nil, err
	}

	l.InfoContext(ctx, "User registered", slog.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "user registered")
	return user, nil
}

func (s *ServiceImpl) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		l.WarnContext(ctx, "Login failed, user lookup", slog.Any("error", err))
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, ErrUnauthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		l.WarnContext(ctx, "Login failed, bad password")
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, ErrUnauthenticated
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue tokens", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issuance failed")
		return nil, err
	}

	l.InfoContext(ctx, "Login successful", slog.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "login successful")
	return pair, nil
}

// RefreshSession rotates the refresh token: the presented token is revoked
// and a new pair is issued. Expired or already revoked tokens are rejected.
func (s *ServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "RefreshSession")
	defer span.End()
	l := s.logger.With(slog.String("method", "RefreshSession"))

	rec, err := s.repo.GetRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		l.WarnContext(ctx, "Refresh failed, token lookup", slog.Any("error", err))
		span.SetStatus(codes.Error, "token lookup failed")
		return nil, ErrUnauthenticated
	}

	if time.Now().After(rec.ExpiresAt) || rec.RevokedAt != nil {
		l.WarnContext(ctx, "Refresh failed, token expired or revoked")
		span.SetStatus(codes.Error, "token expired or revoked")
		return nil, ErrUnauthenticated
	}

	user, err := s.repo.GetUserByID(ctx, rec.UserID)
	if err != nil {
		l.ErrorContext(ctx, "Refresh failed, user lookup", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, ErrUnauthenticated
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue tokens", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issuance failed")
		return nil, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, rec.TokenHash); err != nil {
		l.WarnContext(ctx, "Failed to revoke old refresh token", slog.Any("error", err))
	}

	l.InfoContext(ctx, "Session refreshed", slog.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "session refreshed")
	return pair, nil
}

func (s *ServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Logout")
	defer span.End()
	l := s.logger.With(slog.String("method", "Logout"))

	if err := s.repo.RevokeRefreshToken(ctx, hashToken(refreshToken)); err != nil {
		l.ErrorContext(ctx, "Logout failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "revoke failed")
		return err
	}

	span.SetStatus(codes.Ok, "logged out")
	return nil
}

// ChangePassword verifies the old password, stores the new hash and revokes
// every outstanding refresh token for the user.
func (s *ServiceImpl) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ChangePassword")
	defer span.End()
	l := s.logger.With(slog.String("method", "ChangePassword"), slog.String("user_id", userID))

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "user lookup failed")
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		l.WarnContext(ctx, "Change password failed, bad old password")
		span.SetStatus(codes.Error, "invalid old password")
		return ErrUnauthenticated
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, string(newHash)); err != nil {
		l.ErrorContext(ctx, "Failed to update password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "password update failed")
		return err
	}

	if err := s.repo.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
		l.WarnContext(ctx, "Failed to revoke refresh tokens after password change", slog.Any("error", err))
	}

	l.InfoContext(ctx, "Password changed")
	span.SetStatus(codes.Ok, "password changed")
	return nil
}

func (s *ServiceImpl) GetUserByID(ctx context.Context, userID string) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "GetUserByID")
	defer span.End()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, err
	}
	user.Password = ""
	span.SetStatus(codes.Ok, "user fetched")
	return user, nil
}
