// Package contentsync keeps an in-memory view of the site content in step with
// the document store and mediates every editor change to it.
package contentsync

import (
	"context"
	"errors"
)

// LoadState tracks whether the content document has been seen yet.
type LoadState string

const (
	LoadLoading LoadState = "loading"
	LoadLive    LoadState = "live"
)

// EditState tracks the local draft relative to the last known live content.
type EditState string

const (
	EditClean      EditState = "clean"
	EditDirty      EditState = "dirty"
	EditSaving     EditState = "saving"
	EditSaveFailed EditState = "save_failed"
)

// SavedNotice is shown after a successful save until the notice TTL passes.
const SavedNotice = "Changes saved"

// Status is what the editor UI shows next to the draft.
type Status struct {
	Load      LoadState `json:"load"`
	Edit      EditState `json:"edit"`
	LastError string    `json:"lastError,omitempty"`
	ReadError string    `json:"readError,omitempty"`
	Notice    string    `json:"notice,omitempty"`
}

var (
	ErrNotLoaded            = errors.New("content has not loaded yet")
	ErrSaveInProgress       = errors.New("a save is already in progress")
	ErrReadOnly             = errors.New("this session cannot edit content")
	ErrConfirmationRequired = errors.New("this action must be confirmed")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrPageNotFound         = errors.New("page not found")
	ErrFixedPage            = errors.New("fixed pages cannot be deleted or edited as custom pages")
	ErrUnknownSection       = errors.New("unknown section")
	ErrSessionNotFound      = errors.New("no editing session")
)

// SaveRecord describes one save attempt.
type SaveRecord struct {
	Editor        string
	Paths         []string
	CoreBytes     int
	LogoChanged   bool
	ImagesAdded   int
	ImagesRemoved int
	Err           error
}

// SaveRecorder is notified after every save attempt.
type SaveRecorder interface {
	RecordSave(ctx context.Context, rec SaveRecord) error
}
