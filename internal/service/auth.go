package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mokosho/shop/internal/hash"
	"github.com/mokosho/shop/internal/logging"
	"github.com/mokosho/shop/internal/models"
	"github.com/mokosho/shop/internal/repo"
	"github.com/mokosho/shop/pkg/tokens"
	"gorm.io/gorm"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	IsAdmin      bool
}

func (s *AuthService) Register(ctx context.Context, username, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if username == "" || password == "" {
		return fmt.Errorf("username and password required: %w", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return err
	}

	user := models.User{
		Username:     username,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "reason", "user already exist")
			return repo.ErrUserAlreadyExist
		}
		l.Error("register_error", "error", err)
		return err
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required: %w", ErrValidation)
	}

	user, err := s.Repo.UserExist(ctx, username, password)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredentials) {
			l.Warn("login_failed", "reason", "invalid username or password")
			return nil, repo.ErrInvalidCredentials
		}
		l.Error("login_failed", "error", err)
		return nil, err
	}

	res, err := s.issueSession(ctx, user)
	if err != nil {
		l.Error("login_failed", "reason", "cannot issue session", "error", err)
		return nil, err
	}
	return res, nil
}

// Refresh rotates the session: the presented refresh token must parse, be
// stored unrevoked and unexpired. The old token is revoked before a fresh
// access/refresh pair is issued, so every refresh token redeems at most once.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(rawRefresh, s.RefreshSecret)
	if err != nil || claims == nil {
		l.Warn("refresh_failed", "reason", "invalid refresh token")
		return nil, repo.ErrInvalidCredentials
	}

	tokenHash := tokens.Sha256Hex(rawRefresh)
	stored, err := s.Repo.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "reason", "unknown refresh token")
			return nil, repo.ErrInvalidCredentials
		}
		return nil, err
	}
	if stored.Revoked || time.Now().After(stored.ExpiresAt) {
		l.Warn("refresh_failed", "reason", "refresh token revoked or expired")
		return nil, repo.ErrInvalidCredentials
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, repo.ErrInvalidCredentials
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.Repo.RevokeRefreshToken(ctx, tokenHash); err != nil {
		l.Error("refresh_failed", "reason", "cannot revoke old token", "error", err)
		return nil, err
	}

	res, err := s.issueSession(ctx, user)
	if err != nil {
		l.Error("refresh_failed", "reason", "cannot issue session", "error", err)
		return nil, err
	}
	return res, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	accessExp := time.Now().Add(accessTTL)
	accessToken, err := tokens.NewAccessToken(s.JWTSecret, user.Role, user.ID.String(), accessExp)
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(refreshTTL)
	refreshToken, err := tokens.NewRefreshToken(s.RefreshSecret, user.ID.String(), refreshExp)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.SaveRefreshToken(ctx, user.ID, tokens.Sha256Hex(refreshToken), refreshExp); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		IsAdmin:      user.Role == "admin",
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, tokens.Sha256Hex(refreshToken))
}
