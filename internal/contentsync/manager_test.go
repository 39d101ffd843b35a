package contentsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func startManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(docstore.NewMemoryStore(), ManagerOptions{IdleTimeout: 10 * time.Minute, SweepInterval: time.Hour})
	m.now = clock.Now
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Close)
	return m, clock
}

func TestManagerSessions(t *testing.T) {
	m, _ := startManager(t)

	_, err := m.Session("u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	s1, err := m.Open("u1")
	require.NoError(t, err)
	again, err := m.Open("u1")
	require.NoError(t, err)
	assert.Same(t, s1, again)
	assert.Equal(t, "u1", s1.Editor())

	got, err := m.Session("u1")
	require.NoError(t, err)
	assert.Same(t, s1, got)

	require.NoError(t, m.CloseSession("u1"))
	assert.ErrorIs(t, m.CloseSession("u1"), ErrSessionNotFound)
}

func TestManagerPublicIsReadOnly(t *testing.T) {
	m, _ := startManager(t)
	public := m.Public()
	require.NotNil(t, public)
	require.Eventually(t, public.Loaded, waitFor, tick)
	assert.ErrorIs(t, public.SetLogo("x"), ErrReadOnly)
}

func TestManagerSweepKeepsDirtySessions(t *testing.T) {
	m, clock := startManager(t)

	idle, err := m.Open("idle")
	require.NoError(t, err)
	busy, err := m.Open("busy")
	require.NoError(t, err)
	require.Eventually(t, idle.Loaded, waitFor, tick)
	require.Eventually(t, busy.Loaded, waitFor, tick)
	require.NoError(t, busy.SetSectionFields(content.SectionHome, map[string]string{"heroTitle": "wip"}))

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 0, m.Sweep())

	clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, err = m.Session("idle")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Session("busy")
	assert.NoError(t, err)
}

func TestManagerOpenAfterClose(t *testing.T) {
	m, _ := startManager(t)
	m.Close()
	_, err := m.Open("u1")
	assert.ErrorIs(t, err, ErrNotLoaded)
}
