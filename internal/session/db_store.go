package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robwestplumbing/sitecms/internal/models"
	"gorm.io/gorm"
)

// DBStore keeps refresh sessions in the refresh_tokens table.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    uid,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (s *DBStore) LookupRefreshSession(ctx context.Context, tokenHash string) (*Session, error) {
	var stored models.RefreshToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND revoked = false", tokenHash).
		First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	if time.Now().After(stored.ExpiresAt) {
		s.db.WithContext(ctx).Model(&stored).Update("revoked", true)
		return nil, ErrSessionNotFound
	}
	return &Session{UserID: stored.UserID.String(), CreatedAt: stored.CreatedAt}, nil
}

func (s *DBStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
}

var _ Store = (*DBStore)(nil)
