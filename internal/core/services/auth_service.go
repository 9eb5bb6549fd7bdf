package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/adapters/persistence/repositories"
	"bosscode-hub/internal/config"
	"bosscode-hub/internal/pkg/jwt"
	"bosscode-hub/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("username already taken")
	ErrUsernameTooShort   = errors.New("username must be at least 3 characters")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	redemptionSvc    *RedemptionService
	cfg              *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	redemptionSvc *RedemptionService,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		redemptionSvc:    redemptionSvc,
		cfg:              cfg,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// Register registers a new user. New accounts start with the configured
// default daily quota.
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	username := strings.TrimSpace(input.Username)

	// 1. Validate
	if len(username) < 3 {
		return nil, ErrUsernameTooShort
	}
	if !password.Validate(input.Password) {
		return nil, ErrPasswordTooShort
	}

	// 2. Check if username already exists
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	// 3. Hash password
	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 4. Create user
	user := &models.User{
		Username:        username,
		Password:        hashedPassword,
		Role:            models.RoleUser,
		RemainingClaims: s.cfg.Quota.DefaultDaily,
		DailyQuota:      s.cfg.Quota.DefaultDaily,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	// 5. Generate tokens
	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}

	// 6. Store refresh token
	if err := s.storeRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, err
	}

	log.Printf("✅ User registered: %s", user.Username)

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Login authenticates a user and runs the daily quota reset touchpoint
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	// 1. Find user by username
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify password
	if !password.Verify(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	// 3. Daily quota reset (lazy, idempotent per calendar day)
	if err := s.redemptionSvc.EnsureDailyReset(ctx, user.ID); err != nil {
		return nil, err
	}
	user, err = s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	// 4. Generate tokens
	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}

	// 5. Store refresh token
	if err := s.storeRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, err
	}

	log.Printf("✅ User logged in: %s", user.Username)

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// RefreshToken refreshes the access token using refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	// 1. Validate refresh token JWT
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	// 2. Find token in DB by its hash
	tokenHash := password.HashToken(refreshToken)
	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// 3. Check revocation and expiry
	if storedToken.IsRevoked() {
		return nil, ErrTokenRevoked
	}
	if storedToken.IsExpired() {
		return nil, ErrTokenExpired
	}

	// 4. Get user
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	// 5. Revoke old refresh token (rotation)
	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID); err != nil {
		return nil, err
	}

	// 6. Generate and store new tokens
	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}
	if err := s.storeRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := password.HashToken(refreshToken)
	return s.refreshTokenRepo.RevokeByTokenHash(ctx, tokenHash)
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	return s.refreshTokenRepo.RevokeAllByUserID(ctx, userID)
}

// ResetPassword is the unauthenticated self-service reset path. It aborts
// entirely on the first violated precondition.
func (s *AuthService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if !password.Validate(newPassword) {
		return ErrPasswordTooShort
	}

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hashedPassword, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return err
	}

	// Force re-login everywhere after a reset
	return s.refreshTokenRepo.RevokeAllByUserID(ctx, user.ID)
}

// ValidateAccessToken validates an access token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	return jwt.ValidateAccessToken(accessToken, s.cfg.JWT.Secret)
}

// GetUserByID gets a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(user *models.User) (*TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		user.ID,
		user.Username,
		user.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	tokenID := uuid.New().String()

	refreshToken, err := jwt.GenerateRefreshToken(
		user.ID,
		tokenID,
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// storeRefreshToken stores a refresh token in the database
func (s *AuthService) storeRefreshToken(ctx context.Context, userID uint, refreshToken string) error {
	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}
	return s.refreshTokenRepo.Create(ctx, token)
}
