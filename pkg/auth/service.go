package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

var (
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong
	// password, deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned when the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserDisabled is returned for deactivated accounts.
	ErrUserDisabled = errors.New("account is disabled")
)

// Service handles registration, login and logout.
type Service struct {
	db              *gorm.DB
	blacklist       *TokenBlacklist
	jwtSecret       string
	expirationHours int
}

// NewService creates a new auth service.
func NewService(db *gorm.DB, blacklist *TokenBlacklist, jwtSecret string, expirationHours int) *Service {
	return &Service{
		db:              db,
		blacklist:       blacklist,
		jwtSecret:       jwtSecret,
		expirationHours: expirationHours,
	}
}

// Register creates a user account with the default sales role and
// returns a fresh token.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         models.RoleSales,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueToken(&user)
}

// Login verifies the credentials and returns a token. The last-login
// timestamp is updated best-effort.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	now := time.Now()
	s.db.WithContext(ctx).Model(&user).Update("last_login_at", &now)

	return s.issueToken(&user)
}

// Logout revokes the token until its natural expiry.
func (s *Service) Logout(ctx context.Context, token string) error {
	if s.blacklist == nil {
		return nil
	}

	expiration := time.Hour * time.Duration(s.expirationHours)
	if claims, err := ValidateJWT(token, s.jwtSecret); err == nil && claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			expiration = remaining
		}
	}

	return s.blacklist.Add(ctx, token, expiration)
}

// GetUser fetches a user by id.
func (s *Service) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

func (s *Service) issueToken(user *models.User) (*models.AuthResponse, error) {
	token, err := GenerateJWT(user.ID, user.Email, user.Role, s.jwtSecret, s.expirationHours)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.AuthResponse{
		Token: token,
		User: &models.UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  string(user.Role),
		},
	}, nil
}
