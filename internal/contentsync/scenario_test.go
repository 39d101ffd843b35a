package contentsync_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/contentsync"
	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/robwestplumbing/sitecms/internal/imaging"
	"github.com/robwestplumbing/sitecms/internal/pages"
	"github.com/robwestplumbing/sitecms/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func startManager(t *testing.T, store docstore.Store) *contentsync.Manager {
	t.Helper()
	m := contentsync.NewManager(store, contentsync.ManagerOptions{NoticeTTL: time.Minute})
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Close)
	require.Eventually(t, m.Public().Loaded, waitFor, tick)
	return m
}

func openEditor(t *testing.T, m *contentsync.Manager, editor string) *contentsync.Synchronizer {
	t.Helper()
	s, err := m.Open(editor)
	require.NoError(t, err)
	require.Eventually(t, s.Loaded, waitFor, tick)
	return s
}

func TestFreshSiteShowsDefaults(t *testing.T) {
	store := docstore.NewMemoryStore()
	m := startManager(t, store)
	public := m.Public()

	live := public.Live()
	assert.Equal(t, "Quality & Reliability Meet Service.", live.Home.HeroTitle)
	assert.Empty(t, public.Gallery())

	reviews, err := services.NewReviewService(store, nil).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.0, services.ComputeAverage(reviews))
}

func TestUploadedAboutImageReachesVisitors(t *testing.T) {
	store := docstore.NewMemoryStore()
	m := startManager(t, store)
	editor := openEditor(t, m, "editor-1")

	src := image.NewGray(image.Rect(0, 0, 4000, 3000))
	for x := 0; x < 4000; x += 3 {
		src.SetGray(x, 1500, color.Gray{Y: uint8(x % 255)})
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 85}))

	ref, err := imaging.NewNormalizer(1).Normalize(context.Background(), &buf,
		imaging.Options{MaxDimension: 1000, Quality: 70, MaxBytes: 716800})
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(decodeInline(t, ref)))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 1000)
	assert.LessOrEqual(t, img.Bounds().Dy(), 1000)

	require.NoError(t, editor.SetSectionImage(content.SectionAbout, "", ref))
	require.NoError(t, editor.Save(context.Background()))
	assert.Equal(t, contentsync.EditClean, editor.State().Edit)

	require.Eventually(t, func() bool {
		return m.Public().Live().About.Image == ref
	}, waitFor, tick)
}

func TestDisabledPageLeavesMenuButStaysReachable(t *testing.T) {
	store := docstore.NewMemoryStore()
	m := startManager(t, store)
	editor := openEditor(t, m, "editor-1")

	enabled, err := editor.TogglePageVisibility(context.Background(), "services")
	require.NoError(t, err)
	assert.False(t, enabled)

	public := m.Public()
	require.Eventually(t, func() bool {
		for _, item := range pages.Menu(public.Live().Pages) {
			if item.ID == "services" {
				return false
			}
		}
		return true
	}, waitFor, tick)

	target := pages.Resolve("services", public.Live().Pages)
	assert.Equal(t, pages.RendererServices, target.Renderer)
	assert.False(t, target.Enabled)
}

func decodeInline(t *testing.T, ref content.ImageRef) []byte {
	t.Helper()
	require.True(t, ref.IsInline())
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(string(ref), "data:image/jpeg;base64,"))
	require.NoError(t, err)
	return raw
}
