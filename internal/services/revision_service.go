package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/robwestplumbing/sitecms/internal/contentsync"
	"github.com/robwestplumbing/sitecms/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RevisionService keeps the audit trail of content saves.
type RevisionService struct {
	db *gorm.DB
}

func NewRevisionService(db *gorm.DB) *RevisionService {
	return &RevisionService{db: db}
}

var _ contentsync.SaveRecorder = (*RevisionService)(nil)

func (s *RevisionService) RecordSave(ctx context.Context, rec contentsync.SaveRecord) error {
	paths := rec.Paths
	if paths == nil {
		paths = []string{}
	}
	raw, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("encode changed paths: %w", err)
	}

	rev := models.ContentRevision{
		EditorID:      rec.Editor,
		ChangedPaths:  datatypes.JSON(raw),
		CoreBytes:     rec.CoreBytes,
		LogoChanged:   rec.LogoChanged,
		ImagesAdded:   rec.ImagesAdded,
		ImagesRemoved: rec.ImagesRemoved,
		Succeeded:     rec.Err == nil,
	}
	if rec.Err != nil {
		rev.Error = rec.Err.Error()
	}
	if err := s.db.WithContext(ctx).Create(&rev).Error; err != nil {
		return fmt.Errorf("record content revision: %w", err)
	}
	return nil
}

// List returns the newest revisions first.
func (s *RevisionService) List(ctx context.Context, limit int) ([]models.ContentRevision, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var revs []models.ContentRevision
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&revs).Error; err != nil {
		return nil, fmt.Errorf("list content revisions: %w", err)
	}
	return revs, nil
}
