package contentsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/robwestplumbing/sitecms/internal/metrics"
)

type ManagerOptions struct {
	NoticeTTL     time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Recorder      SaveRecorder
	Logger        *slog.Logger
}

type editorSession struct {
	sync     *Synchronizer
	lastSeen time.Time
}

// Manager owns the read-only synchronizer that serves public traffic and one
// editing synchronizer per signed-in editor.
type Manager struct {
	store  docstore.Store
	opts   ManagerOptions
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	public   *Synchronizer
	sessions map[string]*editorSession
	done     chan struct{}
}

func NewManager(store docstore.Store, opts ManagerOptions) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*editorSession),
	}
}

// Start begins watching for public readers and runs the idle sweeper.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	public := New(m.store, Options{Logger: m.logger})
	if err := public.Start(ctx); err != nil {
		cancel()
		return err
	}

	m.mu.Lock()
	m.ctx, m.cancel = ctx, cancel
	m.public = public
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.opts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Info("closed idle editing sessions", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Public is the read-only synchronizer. It is nil before Start.
func (m *Manager) Public() *Synchronizer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.public
}

// Open returns the editor's session, creating and starting it if needed.
func (m *Manager) Open(editor string) (*Synchronizer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return nil, ErrNotLoaded
	}
	if s, ok := m.sessions[editor]; ok {
		s.lastSeen = m.now()
		return s.sync, nil
	}

	s := New(m.store, Options{
		Editor:    editor,
		NoticeTTL: m.opts.NoticeTTL,
		Recorder:  m.opts.Recorder,
		Logger:    m.logger,
	})
	if err := s.Start(m.ctx); err != nil {
		return nil, err
	}
	m.sessions[editor] = &editorSession{sync: s, lastSeen: m.now()}
	metrics.EditorSessions.Inc()
	m.logger.Info("editing session opened", "user_id", editor)
	return s, nil
}

// Session returns an existing session and marks it as used.
func (m *Manager) Session(editor string) (*Synchronizer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[editor]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = m.now()
	return s.sync, nil
}

// CloseSession stops an editor's session, discarding unsaved changes.
func (m *Manager) CloseSession(editor string) error {
	m.mu.Lock()
	s, ok := m.sessions[editor]
	delete(m.sessions, editor)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.sync.Stop()
	metrics.EditorSessions.Dec()
	m.logger.Info("editing session closed", "user_id", editor)
	return nil
}

// Sweep closes sessions idle for longer than the idle timeout. Sessions
// holding unsaved or failed edits are kept.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var idle []*Synchronizer
	for editor, s := range m.sessions {
		if s.lastSeen.After(cutoff) {
			continue
		}
		if st := s.sync.State(); st.Edit != EditClean {
			continue
		}
		idle = append(idle, s.sync)
		delete(m.sessions, editor)
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Stop()
		metrics.EditorSessions.Dec()
	}
	return len(idle)
}

// Close stops every synchronizer.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel, done, public := m.cancel, m.done, m.public
	sessions := m.sessions
	m.sessions = make(map[string]*editorSession)
	m.ctx, m.cancel = nil, nil
	m.mu.Unlock()

	for _, s := range sessions {
		s.sync.Stop()
		metrics.EditorSessions.Dec()
	}
	if public != nil {
		public.Stop()
	}
	if cancel != nil {
		cancel()
		<-done
	}
}
