package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rewards-service/internal/models"
	"rewards-service/internal/session"
	"rewards-service/pkg/token"
)

const minPasswordLength = 8

type AuthService struct {
	DB         *gorm.DB
	Secret     []byte
	SessionTTL time.Duration
	Revoked    session.RevocationStore
	Logger     *zap.Logger
}

func NewAuthService(db *gorm.DB, secret []byte, ttl time.Duration, revoked session.RevocationStore, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{DB: db, Secret: secret, SessionTTL: ttl, Revoked: revoked, Logger: logger}
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", invalid("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, invalid("email and password are required")
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, errors.Wrap(err, "find user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.Active {
		return LoginResult{}, ErrUserInactive
	}

	signed, claims, err := token.Issue(s.Secret, user.ID, user.Role, s.SessionTTL)
	if err != nil {
		return LoginResult{}, errors.Wrap(err, "issue session token")
	}

	s.Logger.Info("user logged in", zap.Uint("user_id", user.ID), zap.String("role", user.Role))

	return LoginResult{Token: signed, ExpiresAt: claims.ExpiresAt.Time, User: &user}, nil
}

// Authenticate validates a session token and loads the current user. The
// token's role claim is ignored in favour of the stored role.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*models.User, *token.Claims, error) {
	claims, err := token.Parse(s.Secret, tokenStr)
	if err != nil {
		return nil, nil, ErrUnauthorized
	}

	if s.Revoked != nil {
		revoked, err := s.Revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, errors.Wrap(err, "check session revocation")
		}
		if revoked {
			return nil, nil, ErrUnauthorized
		}
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, errors.Wrap(err, "load session user")
	}
	if !user.Active {
		return nil, nil, ErrUserInactive
	}
	return &user, claims, nil
}

func (s *AuthService) Logout(ctx context.Context, claims *token.Claims) error {
	if claims == nil || s.Revoked == nil {
		return nil
	}
	if err := s.Revoked.Revoke(ctx, claims.ID, claims.Remaining()); err != nil {
		return errors.Wrap(err, "revoke session")
	}
	s.Logger.Info("user logged out", zap.Uint("user_id", claims.UserID))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
