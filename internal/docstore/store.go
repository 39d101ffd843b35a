// Package docstore is the client boundary to the remote document database that
// holds the site content, the logo document and the gallery/reviews collections.
package docstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxDocumentSize is the per-document ceiling enforced by every backend.
const MaxDocumentSize = 1 << 20

// TimestampLayout is the fixed-width UTC layout used for server timestamps so
// that they order correctly as strings.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// Fields is the JSON-shaped body of a document.
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp may be used as a field value on writes; the backend replaces
// it with its own commit time.
var ServerTimestamp = serverTimestamp{}

// DocumentSnapshot is a point-in-time read of one document. Exists is false
// when the document has never been written or has been deleted.
type DocumentSnapshot struct {
	Path       string    `json:"path"`
	ID         string    `json:"id"`
	Exists     bool      `json:"exists"`
	Fields     Fields    `json:"fields,omitempty"`
	CreateTime time.Time `json:"createTime,omitempty"`
	UpdateTime time.Time `json:"updateTime,omitempty"`
}

// OrderBy orders collection snapshots by a top-level field.
type OrderBy struct {
	Field      string
	Descending bool
}

// Store is implemented by MemoryStore and KVStore.
type Store interface {
	// WatchDocument pushes the current state of path and then every change,
	// in commit order, until the watch is stopped or ctx is done.
	WatchDocument(ctx context.Context, path string) (*Watch[DocumentSnapshot], error)
	// WatchCollection pushes the full ordered contents of a collection after
	// every change to any of its documents.
	WatchCollection(ctx context.Context, collection string, order OrderBy) (*Watch[[]DocumentSnapshot], error)
	GetDocument(ctx context.Context, path string) (DocumentSnapshot, error)
	ListCollection(ctx context.Context, collection string, order OrderBy) ([]DocumentSnapshot, error)
	// WriteDocument creates or updates path. With merge set, nested maps are
	// merged key by key and everything else (arrays, scalars) is replaced.
	WriteDocument(ctx context.Context, path string, fields Fields, merge bool) error
	AppendToCollection(ctx context.Context, collection string, fields Fields) (string, error)
	// DeleteDocument removes path. Deleting a missing document is not an error.
	DeleteDocument(ctx context.Context, path string) error
	Close() error
}

var (
	ErrClosed      = errors.New("docstore: store closed")
	ErrInvalidPath = errors.New("docstore: invalid path")
)

// JoinPath builds a document path from a collection and a document id.
func JoinPath(collection, id string) string {
	return collection + "/" + id
}

// SplitPath splits a document path into collection and id.
func SplitPath(path string) (collection, id string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 2 || !validSegment(parts[0]) || !validSegment(parts[1]) {
		return "", "", ErrInvalidPath
	}
	return parts[0], parts[1], nil
}

func validCollection(collection string) bool {
	return validSegment(collection) && !strings.Contains(collection, "/")
}

func validSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
