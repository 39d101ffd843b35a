package contentsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/robwestplumbing/sitecms/internal/metrics"
)

// Options configure a Synchronizer. A synchronizer without an Editor is
// read-only.
type Options struct {
	Editor    string
	NoticeTTL time.Duration
	Recorder  SaveRecorder
	Logger    *slog.Logger
}

// Synchronizer joins the content document, the logo document and the gallery
// into one live SiteContent, and holds an editable draft on top of it.
//
// While the draft has unsaved changes, incoming snapshots only move the
// baseline; the draft is rebased so that fields it changed keep their local
// values and every other field follows the store.
type Synchronizer struct {
	store     docstore.Store
	editor    string
	noticeTTL time.Duration
	recorder  SaveRecorder
	logger    *slog.Logger

	mu        sync.Mutex
	load      LoadState
	edit      EditState
	lastErr   string
	readErr   string
	notice    string
	noticeGen int

	contentFields docstore.Fields
	logoFields    docstore.Fields
	logoExists    bool
	items         []content.GalleryItem
	public        []content.GalleryItem

	live     content.SiteContent
	baseline content.SiteContent
	draft    content.SiteContent

	subscribers map[chan struct{}]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func New(store docstore.Store, opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.NoticeTTL
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	defaults := content.Defaults()
	return &Synchronizer{
		store:       store,
		editor:      opts.Editor,
		noticeTTL:   ttl,
		recorder:    opts.Recorder,
		logger:      logger.With("component", "contentsync", "editor", opts.Editor),
		load:        LoadLoading,
		edit:        EditClean,
		live:        defaults,
		baseline:    defaults.Clone(),
		draft:       defaults.Clone(),
		subscribers: make(map[chan struct{}]struct{}),
	}
}

// Start opens the three watches and applies their snapshots until Stop is
// called or ctx is done.
func (s *Synchronizer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	contentW, err := s.store.WatchDocument(ctx, content.ContentPath)
	if err != nil {
		cancel()
		return fmt.Errorf("watch content: %w", err)
	}
	logoW, err := s.store.WatchDocument(ctx, content.LogoPath)
	if err != nil {
		contentW.Stop()
		cancel()
		return fmt.Errorf("watch logo: %w", err)
	}
	galleryW, err := s.store.WatchCollection(ctx, content.GalleryCollection,
		docstore.OrderBy{Field: "createdAt", Descending: true})
	if err != nil {
		contentW.Stop()
		logoW.Stop()
		cancel()
		return fmt.Errorf("watch gallery: %w", err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	metrics.WatchSubscriptions.Add(3)
	go func() {
		defer close(done)
		defer metrics.WatchSubscriptions.Sub(3)
		defer galleryW.Stop()
		defer logoW.Stop()
		defer contentW.Stop()
		s.run(ctx, contentW, logoW, galleryW)
	}()
	return nil
}

func (s *Synchronizer) run(ctx context.Context,
	contentW, logoW *docstore.Watch[docstore.DocumentSnapshot],
	galleryW *docstore.Watch[[]docstore.DocumentSnapshot],
) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-contentW.Updates():
			if !ok {
				return
			}
			s.apply(func() {
				s.contentFields = snap.Fields
				s.load = LoadLive
			})
		case snap, ok := <-logoW.Updates():
			if !ok {
				return
			}
			s.apply(func() {
				s.logoFields = snap.Fields
				s.logoExists = snap.Exists
			})
		case docs, ok := <-galleryW.Updates():
			if !ok {
				return
			}
			items := make([]content.GalleryItem, 0, len(docs))
			for _, d := range docs {
				items = append(items, content.GalleryItemFromSnapshot(d))
			}
			s.apply(func() { s.items = items })
		case err, ok := <-contentW.Errors():
			if !ok {
				return
			}
			s.readFailed(err)
		case err, ok := <-logoW.Errors():
			if !ok {
				return
			}
			s.readFailed(err)
		case err, ok := <-galleryW.Errors():
			if !ok {
				return
			}
			s.readFailed(err)
		}
	}
}

// Stop cancels every watch and waits for the read loop to exit.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Synchronizer) readFailed(err error) {
	s.logger.Warn("content watch failed", "error", err)
	s.mu.Lock()
	s.readErr = err.Error()
	s.notifyLocked()
	s.mu.Unlock()
}

func (s *Synchronizer) apply(update func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update()
	s.readErr = ""

	live := s.composeLocked()
	if s.edit == EditClean {
		s.baseline = live
		s.draft = live.Clone()
	} else {
		s.draft = content.RebaseContent(s.baseline, s.draft, live)
		s.baseline = live
		if s.edit == EditDirty && content.Equal(s.draft, s.baseline) {
			s.edit = EditClean
		}
	}
	s.live = live
	s.notifyLocked()
}

func (s *Synchronizer) composeLocked() content.SiteContent {
	live := content.MergeWithDefaults(s.contentFields)
	if s.logoExists {
		if logo, ok := s.logoFields["logo"].(string); ok {
			live.Global.Logo = content.ImageRef(logo)
		}
	}
	s.public = content.JoinGallery(&live, s.items)
	return live
}

// hasOverflowLocked reports whether the stored content document still embeds
// the logo or section image arrays.
func (s *Synchronizer) hasOverflowLocked() bool {
	if global, ok := s.contentFields[content.SectionGlobal].(map[string]any); ok {
		if _, ok := global["logo"]; ok {
			return true
		}
	}
	for _, key := range content.ImageSections {
		if section, ok := s.contentFields[key].(map[string]any); ok {
			if _, ok := section["images"]; ok {
				return true
			}
		}
	}
	return false
}

// Subscribe returns a channel that receives a value after every change to the
// live content, the draft or the status. Pending notifications coalesce.
func (s *Synchronizer) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// Only notifyLocked sends on ch, so this send cannot block while mu is held.
	ch <- struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

func (s *Synchronizer) notifyLocked() {
	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Synchronizer) Editor() string { return s.editor }

func (s *Synchronizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load == LoadLive
}

// Live is the merged store content, without local edits.
func (s *Synchronizer) Live() content.SiteContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Clone()
}

// Draft is the editable copy.
func (s *Synchronizer) Draft() content.SiteContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Gallery returns the public gallery, newest first.
func (s *Synchronizer) Gallery() []content.GalleryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]content.GalleryItem(nil), s.public...)
}

// GalleryItem finds any gallery item, public or section-owned, by id.
func (s *Synchronizer) GalleryItem(id string) (content.GalleryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return content.GalleryItem{}, false
}

func (s *Synchronizer) State() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Load:      s.load,
		Edit:      s.edit,
		LastError: s.lastErr,
		ReadError: s.readErr,
		Notice:    s.notice,
	}
}

// Save writes the draft. The core document receives only the fields that
// differ from the baseline, merged into the stored document. The logo goes
// to its own document and each section image added or removed since the
// baseline becomes one gallery append or delete.
func (s *Synchronizer) Save(ctx context.Context) error {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	draft := s.draft.Clone()
	if err := content.Validate(draft); err != nil {
		s.edit = EditSaveFailed
		s.lastErr = err.Error()
		s.notifyLocked()
		s.mu.Unlock()
		metrics.ContentSaves.WithLabelValues("invalid").Inc()
		return err
	}
	base := s.baseline.Clone()
	items := append([]content.GalleryItem(nil), s.items...)
	replaceCore := s.hasOverflowLocked()
	logoMissing := !s.logoExists && !draft.Global.Logo.IsEmpty()

	s.edit = EditSaving
	s.lastErr = ""
	s.notice = ""
	s.notifyLocked()
	s.mu.Unlock()

	rec, added, removed, err := s.write(ctx, base, draft, items, replaceCore, logoMissing)
	s.finishSave(added, removed, err)

	rec.Err = err
	if s.recorder != nil {
		if rerr := s.recorder.RecordSave(context.WithoutCancel(ctx), rec); rerr != nil {
			s.logger.Error("failed to record content save", "error", rerr)
		}
	}
	return err
}

func (s *Synchronizer) write(ctx context.Context, base, draft content.SiteContent, items []content.GalleryItem,
	replaceCore, logoMissing bool,
) (SaveRecord, []content.GalleryItem, []string, error) {
	rec := SaveRecord{Editor: s.editor}

	logoChanged := draft.Global.Logo != base.Global.Logo || logoMissing || replaceCore
	if logoChanged {
		err := s.store.WriteDocument(ctx, content.LogoPath, docstore.Fields{
			"logo":      string(draft.Global.Logo),
			"updatedBy": s.editor,
			"updatedAt": docstore.ServerTimestamp,
		}, false)
		if err != nil {
			return rec, nil, nil, err
		}
		rec.LogoChanged = true
	}

	var core docstore.Fields
	if replaceCore {
		core = content.CoreFields(draft)
	} else {
		core = content.Diff(content.CoreFields(base), content.CoreFields(draft))
	}
	rec.Paths = content.ChangedPaths(content.Diff(content.CoreFields(base), content.CoreFields(draft)))
	core[content.KeyMeta] = map[string]any{
		"updatedBy": s.editor,
		"updatedAt": docstore.ServerTimestamp,
	}
	if size, err := docstore.EncodedSize(core); err == nil {
		rec.CoreBytes = size
	}
	if err := s.store.WriteDocument(ctx, content.ContentPath, core, !replaceCore); err != nil {
		return rec, nil, nil, err
	}

	adds, deletes := content.ImageWrites(base, draft, items)
	var added []content.GalleryItem
	for _, a := range adds {
		id, err := s.store.AppendToCollection(ctx, content.GalleryCollection,
			content.NewGalleryFields(a.URL, s.editor, "", "", a.Section))
		if err != nil {
			return rec, added, nil, err
		}
		added = append(added, content.GalleryItem{
			ID:         id,
			URL:        a.URL,
			CreatedAt:  time.Now().UTC(),
			UploadedBy: s.editor,
			Section:    a.Section,
		})
		rec.ImagesAdded++
	}
	var removed []string
	for _, id := range deletes {
		if err := s.store.DeleteDocument(ctx, docstore.JoinPath(content.GalleryCollection, id)); err != nil {
			return rec, added, removed, err
		}
		removed = append(removed, id)
		rec.ImagesRemoved++
	}
	return rec, added, removed, nil
}

// finishSave records gallery writes locally so that a save issued before the
// gallery watch catches up does not repeat them.
func (s *Synchronizer) finishSave(added []content.GalleryItem, removed []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(added) > 0 || len(removed) > 0 {
		s.items = patchItems(s.items, added, removed)
		live := s.composeLocked()
		s.live = live
	}

	if err != nil {
		s.edit = EditSaveFailed
		s.lastErr = err.Error()
		s.notifyLocked()
		metrics.ContentSaves.WithLabelValues(saveResult(err)).Inc()
		s.logger.Warn("content save failed", "error", err)
		return
	}

	s.baseline = s.draft.Clone()
	s.edit = EditClean
	s.notice = SavedNotice
	s.noticeGen++
	gen := s.noticeGen
	time.AfterFunc(s.noticeTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.noticeGen == gen && s.notice == SavedNotice {
			s.notice = ""
			s.notifyLocked()
		}
	})
	s.notifyLocked()
	metrics.ContentSaves.WithLabelValues("ok").Inc()
	s.logger.Info("content saved")
}

func patchItems(items, added []content.GalleryItem, removed []string) []content.GalleryItem {
	gone := make(map[string]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
	}
	out := make([]content.GalleryItem, 0, len(items)+len(added))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		seen[item.ID] = true
		if !gone[item.ID] {
			out = append(out, item)
		}
	}
	for _, item := range added {
		if !seen[item.ID] {
			out = append([]content.GalleryItem{item}, out...)
		}
	}
	return out
}

func saveResult(err error) string {
	var we *docstore.WriteError
	if errors.As(err, &we) {
		return string(we.Kind)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

// Discard drops every unsaved change.
func (s *Synchronizer) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.draft = s.baseline.Clone()
	s.edit = EditClean
	s.lastErr = ""
	s.notifyLocked()
	return nil
}

func (s *Synchronizer) editableLocked() error {
	switch {
	case s.editor == "":
		return ErrReadOnly
	case s.load != LoadLive:
		return ErrNotLoaded
	case s.edit == EditSaving:
		return ErrSaveInProgress
	}
	return nil
}
