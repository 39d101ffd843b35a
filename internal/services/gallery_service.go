package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/robwestplumbing/sitecms/internal/imaging"
)

var (
	ErrEditorRequired      = errors.New("an authenticated editor is required")
	ErrGalleryItemNotFound = errors.New("gallery item not found")
)

var galleryOrder = docstore.OrderBy{Field: "createdAt", Descending: true}

// GalleryService manages the public gallery collection. Items owned by a
// section are left to the content synchronizer.
type GalleryService struct {
	store      docstore.Store
	normalizer *imaging.Normalizer
	opts       imaging.Options
}

func NewGalleryService(store docstore.Store, normalizer *imaging.Normalizer, opts imaging.Options) *GalleryService {
	return &GalleryService{store: store, normalizer: normalizer, opts: opts}
}

// Upload normalizes the image and appends it to the gallery.
func (s *GalleryService) Upload(ctx context.Context, editor string, r io.Reader, description, folder string) (content.GalleryItem, error) {
	if editor == "" {
		return content.GalleryItem{}, ErrEditorRequired
	}
	ref, err := s.normalizer.Normalize(ctx, r, s.opts)
	if err != nil {
		return content.GalleryItem{}, err
	}

	fields := content.NewGalleryFields(ref, editor, strings.TrimSpace(description), strings.TrimSpace(folder), "")
	id, err := s.store.AppendToCollection(ctx, content.GalleryCollection, fields)
	if err != nil {
		return content.GalleryItem{}, fmt.Errorf("upload gallery image: %w", err)
	}

	snap, err := s.store.GetDocument(ctx, docstore.JoinPath(content.GalleryCollection, id))
	if err != nil {
		return content.GalleryItem{}, fmt.Errorf("read uploaded image: %w", err)
	}
	return content.GalleryItemFromSnapshot(snap), nil
}

// publicItem loads a public gallery item. Section-owned items are reported
// as missing.
func (s *GalleryService) publicItem(ctx context.Context, id string) (string, docstore.DocumentSnapshot, error) {
	path := docstore.JoinPath(content.GalleryCollection, id)
	snap, err := s.store.GetDocument(ctx, path)
	if err != nil {
		if errors.Is(err, docstore.ErrInvalidPath) {
			return "", snap, ErrGalleryItemNotFound
		}
		return "", snap, fmt.Errorf("read gallery item: %w", err)
	}
	if !snap.Exists || content.GalleryItemFromSnapshot(snap).Section != "" {
		return "", snap, ErrGalleryItemNotFound
	}
	return path, snap, nil
}

// Annotate changes the description and folder of an item. Nothing else on a
// gallery item is mutable.
func (s *GalleryService) Annotate(ctx context.Context, id, description, folder string) (content.GalleryItem, error) {
	path, snap, err := s.publicItem(ctx, id)
	if err != nil {
		return content.GalleryItem{}, err
	}

	patch := docstore.Fields{
		"description": strings.TrimSpace(description),
		"folder":      strings.TrimSpace(folder),
	}
	if err := s.store.WriteDocument(ctx, path, patch, true); err != nil {
		return content.GalleryItem{}, fmt.Errorf("annotate gallery item: %w", err)
	}

	item := content.GalleryItemFromSnapshot(snap)
	item.Description = patch["description"].(string)
	item.Folder = patch["folder"].(string)
	return item, nil
}

func (s *GalleryService) Delete(ctx context.Context, id string) error {
	path, _, err := s.publicItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, path); err != nil {
		return fmt.Errorf("delete gallery item: %w", err)
	}
	return nil
}

// List returns public gallery items newest first, optionally limited to one
// folder.
func (s *GalleryService) List(ctx context.Context, folder string) ([]content.GalleryItem, error) {
	docs, err := s.store.ListCollection(ctx, content.GalleryCollection, galleryOrder)
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}
	items := make([]content.GalleryItem, 0, len(docs))
	for _, d := range docs {
		item := content.GalleryItemFromSnapshot(d)
		if item.Section != "" {
			continue
		}
		if folder != "" && item.Folder != folder {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
