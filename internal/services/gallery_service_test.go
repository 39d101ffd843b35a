package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/robwestplumbing/sitecms/internal/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGalleryService(t *testing.T) (*GalleryService, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	opts := imaging.Options{MaxDimension: 1000, Quality: 70, MaxBytes: 716800}
	return NewGalleryService(store, imaging.NewNormalizer(1), opts), store
}

func TestGalleryUpload(t *testing.T) {
	svc, _ := newGalleryService(t)
	ctx := context.Background()

	item, err := svc.Upload(ctx, "editor-1", bytes.NewReader(jpegBytes(t, 2000, 1000)), " Boiler swap ", "jobs")
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.True(t, item.URL.IsInline())
	assert.Equal(t, "editor-1", item.UploadedBy)
	assert.Equal(t, "Boiler swap", item.Description)
	assert.Equal(t, "jobs", item.Folder)
	assert.Empty(t, item.Section)
	assert.False(t, item.CreatedAt.IsZero())
}

func TestGalleryUploadRequiresEditor(t *testing.T) {
	svc, store := newGalleryService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "", bytes.NewReader(jpegBytes(t, 10, 10)), "", "")
	assert.ErrorIs(t, err, ErrEditorRequired)

	docs, err := store.ListCollection(ctx, content.GalleryCollection, galleryOrder)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestGalleryUploadRejectsGarbage(t *testing.T) {
	svc, _ := newGalleryService(t)

	_, err := svc.Upload(context.Background(), "editor-1", bytes.NewReader([]byte("not an image")), "", "")
	var derr *imaging.DecodeError
	assert.True(t, errors.As(err, &derr))
}

func TestGalleryAnnotate(t *testing.T) {
	svc, store := newGalleryService(t)
	ctx := context.Background()

	item, err := svc.Upload(ctx, "editor-1", bytes.NewReader(jpegBytes(t, 50, 50)), "", "")
	require.NoError(t, err)

	got, err := svc.Annotate(ctx, item.ID, "Kitchen sink", "kitchens")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen sink", got.Description)
	assert.Equal(t, "kitchens", got.Folder)

	snap, err := store.GetDocument(ctx, docstore.JoinPath(content.GalleryCollection, item.ID))
	require.NoError(t, err)
	stored := content.GalleryItemFromSnapshot(snap)
	assert.Equal(t, item.URL, stored.URL, "image is not touched")
	assert.Equal(t, "editor-1", stored.UploadedBy)
	assert.Equal(t, "kitchens", stored.Folder)

	_, err = svc.Annotate(ctx, "missing", "x", "y")
	assert.ErrorIs(t, err, ErrGalleryItemNotFound)
	_, err = svc.Annotate(ctx, "../etc", "x", "y")
	assert.ErrorIs(t, err, ErrGalleryItemNotFound)
}

func TestGalleryListAndDelete(t *testing.T) {
	svc, store := newGalleryService(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "editor-1", bytes.NewReader(jpegBytes(t, 20, 20)), "", "jobs")
	require.NoError(t, err)
	second, err := svc.Upload(ctx, "editor-1", bytes.NewReader(jpegBytes(t, 20, 20)), "", "team")
	require.NoError(t, err)
	_, err = store.AppendToCollection(ctx, content.GalleryCollection,
		content.NewGalleryFields("https://cdn.example/h.jpg", "editor-1", "", "", content.SectionHome))
	require.NoError(t, err)

	items, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 2, "section images are not part of the public gallery")
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)

	items, err = svc.List(ctx, "jobs")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)

	require.NoError(t, svc.Delete(ctx, first.ID))
	items, err = svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, second.ID, items[0].ID)

	assert.ErrorIs(t, svc.Delete(ctx, "a/b"), ErrGalleryItemNotFound)
}

func TestGallerySectionItemsAreNotEditable(t *testing.T) {
	svc, store := newGalleryService(t)
	ctx := context.Background()

	id, err := store.AppendToCollection(ctx, content.GalleryCollection,
		content.NewGalleryFields("https://cdn.example/about.jpg", "editor-1", "", "", content.SectionAbout))
	require.NoError(t, err)

	_, err = svc.Annotate(ctx, id, "x", "y")
	assert.ErrorIs(t, err, ErrGalleryItemNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, id), ErrGalleryItemNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrGalleryItemNotFound)

	snap, err := store.GetDocument(ctx, docstore.JoinPath(content.GalleryCollection, id))
	require.NoError(t, err)
	require.True(t, snap.Exists)
	stored := content.GalleryItemFromSnapshot(snap)
	assert.Equal(t, content.SectionAbout, stored.Section)
	assert.Empty(t, stored.Folder)
}
