package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ContentRevision is an audit entry written after every content save.
type ContentRevision struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EditorID      string         `gorm:"size:36;not null;index" json:"editor_id"`
	ChangedPaths  datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"changed_paths"`
	CoreBytes     int            `json:"core_bytes"`
	LogoChanged   bool           `json:"logo_changed"`
	ImagesAdded   int            `json:"images_added"`
	ImagesRemoved int            `json:"images_removed"`
	Succeeded     bool           `gorm:"index" json:"succeeded"`
	Error         string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}
