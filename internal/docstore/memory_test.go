package docstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextDoc(t *testing.T, w *Watch[DocumentSnapshot]) DocumentSnapshot {
	t.Helper()
	select {
	case snap, ok := <-w.Updates():
		require.True(t, ok, "watch closed")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return DocumentSnapshot{}
}

func TestWatchDocumentInitialNotFound(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	w, err := s.WatchDocument(context.Background(), "site/content")
	require.NoError(t, err)
	defer w.Stop()

	snap := nextDoc(t, w)
	assert.False(t, snap.Exists)
	assert.Equal(t, "content", snap.ID)
}

func TestMergeWriteKeepsUnrelatedFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.WriteDocument(ctx, "site/content", Fields{
		"home":     map[string]any{"heroTitle": "A", "heroSubtitle": "B"},
		"services": map[string]any{"title": "S"},
		"pages":    []any{"x", "y"},
	}, false))

	require.NoError(t, s.WriteDocument(ctx, "site/content", Fields{
		"home":  map[string]any{"heroTitle": "A2"},
		"pages": []any{"z"},
	}, true))

	snap, err := s.GetDocument(ctx, "site/content")
	require.NoError(t, err)
	home := snap.Fields["home"].(map[string]any)
	assert.Equal(t, "A2", home["heroTitle"])
	assert.Equal(t, "B", home["heroSubtitle"])
	assert.Equal(t, "S", snap.Fields["services"].(map[string]any)["title"])
	assert.Equal(t, []any{"z"}, snap.Fields["pages"], "arrays are replaced, not merged")
}

func TestOverwriteWithoutMerge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.WriteDocument(ctx, "site/logo", Fields{"logo": "a", "extra": true}, false))
	require.NoError(t, s.WriteDocument(ctx, "site/logo", Fields{"logo": "b"}, false))

	snap, err := s.GetDocument(ctx, "site/logo")
	require.NoError(t, err)
	assert.Equal(t, Fields{"logo": "b"}, snap.Fields)
}

func TestWatchDeliversCommitOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	w, err := s.WatchDocument(ctx, "site/content")
	require.NoError(t, err)
	defer w.Stop()
	nextDoc(t, w)

	for i := 1; i <= 50; i++ {
		require.NoError(t, s.WriteDocument(ctx, "site/content", Fields{"n": i}, true))
	}

	last := 0.0
	deadline := time.After(2 * time.Second)
	for last < 50 {
		select {
		case snap := <-w.Updates():
			n := snap.Fields["n"].(float64)
			assert.Greater(t, n, last, "snapshots must never go backwards")
			last = n
		case <-deadline:
			t.Fatalf("stalled at %v", last)
		}
	}
}

func TestSizeLimitRejected(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	big := strings.Repeat("x", MaxDocumentSize)
	err := s.WriteDocument(ctx, "site/content", Fields{"blob": big}, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSizeLimit))

	snap, err := s.GetDocument(ctx, "site/content")
	require.NoError(t, err)
	assert.False(t, snap.Exists, "rejected write must not be applied")
}

func TestMergeThatGrowsPastLimitRejected(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	half := strings.Repeat("x", MaxDocumentSize/2+10)
	require.NoError(t, s.WriteDocument(ctx, "site/content", Fields{"a": half}, true))
	err := s.WriteDocument(ctx, "site/content", Fields{"b": half}, true)
	assert.True(t, IsKind(err, KindSizeLimit))
}

func TestAppendAndWatchCollectionOrdered(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s := NewMemoryStore(WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))
	ctx := context.Background()

	w, err := s.WatchCollection(ctx, "reviews", OrderBy{Field: "createdAt", Descending: true})
	require.NoError(t, err)
	defer w.Stop()
	initial := <-w.Updates()
	assert.Empty(t, initial)

	first, err := s.AppendToCollection(ctx, "reviews", Fields{"name": "a", "createdAt": ServerTimestamp})
	require.NoError(t, err)
	second, err := s.AppendToCollection(ctx, "reviews", Fields{"name": "b", "createdAt": ServerTimestamp})
	require.NoError(t, err)

	var list []DocumentSnapshot
	require.Eventually(t, func() bool {
		select {
		case list = <-w.Updates():
		default:
		}
		return len(list) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	ts, err := time.Parse(TimestampLayout, list[0].Fields["createdAt"].(string))
	require.NoError(t, err)
	assert.True(t, ts.After(base))

	require.NoError(t, s.DeleteDocument(ctx, JoinPath("reviews", second)))
	require.Eventually(t, func() bool {
		select {
		case list = <-w.Updates():
		default:
		}
		return len(list) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, first, list[0].ID)
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.DeleteDocument(context.Background(), "gallery/nope"))
}

func TestWatchStopsWithContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	w, err := s.WatchDocument(ctx, "site/logo")
	require.NoError(t, err)
	nextDoc(t, w)

	cancel()
	require.Eventually(t, w.stopped, time.Second, 5*time.Millisecond)

	_, ok := <-w.Updates()
	assert.False(t, ok)

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.docWatchers["site/logo"]) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSnapshotsAreIsolatedCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.WriteDocument(ctx, "site/content", Fields{"home": map[string]any{"heroTitle": "A"}}, false))

	snap, err := s.GetDocument(ctx, "site/content")
	require.NoError(t, err)
	snap.Fields["home"].(map[string]any)["heroTitle"] = "mutated"

	again, err := s.GetDocument(ctx, "site/content")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Fields["home"].(map[string]any)["heroTitle"])
}

func TestInvalidPaths(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.WatchDocument(ctx, "site")
	assert.ErrorIs(t, err, ErrInvalidPath)

	err = s.WriteDocument(ctx, "a/b/c", Fields{}, true)
	assert.True(t, IsKind(err, KindInvalid))

	_, err = s.AppendToCollection(ctx, "bad.name", Fields{})
	assert.True(t, IsKind(err, KindInvalid))
}

func TestClosedStore(t *testing.T) {
	s := NewMemoryStore()
	w, err := s.WatchDocument(context.Background(), "site/content")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.Eventually(t, w.stopped, time.Second, 5*time.Millisecond)
	err = s.WriteDocument(context.Background(), "site/content", Fields{"a": 1}, true)
	assert.True(t, IsKind(err, KindUnavailable))
}
