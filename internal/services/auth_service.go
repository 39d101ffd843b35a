package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/robwestplumbing/sitecms/internal/config"
	"github.com/robwestplumbing/sitecms/internal/dto"
	"github.com/robwestplumbing/sitecms/internal/models"
	"github.com/robwestplumbing/sitecms/internal/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("email required and password must be at least 8 characters")
)

// AuthService signs editors in. Access tokens are short-lived JWTs; refresh
// tokens are random strings whose hashes live in the session store and are
// rotated on every refresh.
type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	sessions session.Store
}

func NewAuthService(db *gorm.DB, cfg *config.Config, sessions session.Store) *AuthService {
	return &AuthService{
		db:       db,
		cfg:      cfg,
		sessions: sessions,
	}
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)

	sess, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			slog.Error("refresh session lookup failed", "error", err)
		}
		return nil, ErrInvalidToken
	}

	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", sess.UserID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	return s.sessions.RevokeRefreshSession(ctx, hashToken(req.RefreshToken))
}

// CreateEditor provisions another editor account.
func (s *AuthService) CreateEditor(ctx context.Context, createdBy uuid.UUID, req *dto.CreateEditorRequest) (*dto.UserResponse, error) {
	user, err := s.createUser(ctx, req.Email, req.Password, models.RoleEditor, &createdBy)
	if err != nil {
		return nil, err
	}
	return &dto.UserResponse{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// SeedEditor creates the bootstrap account when no editor exists yet.
func (s *AuthService) SeedEditor(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role IN ?", []string{models.RoleEditor, models.RoleAdmin}).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count editors: %w", err)
	}
	if count > 0 {
		return nil
	}
	if _, err := s.createUser(ctx, email, password, models.RoleAdmin, nil); err != nil {
		return err
	}
	slog.Info("bootstrap editor created", "email", email)
	return nil
}

func (s *AuthService) createUser(ctx context.Context, email, password, role string, createdBy *uuid.UUID) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, ErrWeakPassword
	}

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  string(hash),
		Role:      role,
		CreatedBy: createdBy,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: dto.UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)
	expiresAt := time.Now().Add(s.cfg.JWTRefreshExpiry)
	if err := s.sessions.SaveRefreshSession(ctx, hashToken(rawToken), user.ID.String(), expiresAt); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
