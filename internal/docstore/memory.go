package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type record struct {
	fields  Fields
	created time.Time
	updated time.Time
}

// MemoryStore is an in-process Store. Every commit and the snapshots it
// produces happen under one lock, so watchers observe commit order.
type MemoryStore struct {
	mu           sync.Mutex
	now          func() time.Time
	last         time.Time
	closed       bool
	collections  map[string]map[string]*record
	docWatchers  map[string]map[*Watch[DocumentSnapshot]]struct{}
	collWatchers map[string]map[*Watch[[]DocumentSnapshot]]OrderBy
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the commit clock.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:          time.Now,
		collections:  make(map[string]map[string]*record),
		docWatchers:  make(map[string]map[*Watch[DocumentSnapshot]]struct{}),
		collWatchers: make(map[string]map[*Watch[[]DocumentSnapshot]]OrderBy),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) WatchDocument(ctx context.Context, path string) (*Watch[DocumentSnapshot], error) {
	coll, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	var w *Watch[DocumentSnapshot]
	w = newWatch[DocumentSnapshot](func() {
		s.mu.Lock()
		delete(s.docWatchers[path], w)
		s.mu.Unlock()
	})
	w.bind(ctx)

	if s.docWatchers[path] == nil {
		s.docWatchers[path] = make(map[*Watch[DocumentSnapshot]]struct{})
	}
	s.docWatchers[path][w] = struct{}{}
	w.publish(s.snapshotLocked(coll, id))
	return w, nil
}

func (s *MemoryStore) WatchCollection(ctx context.Context, collection string, order OrderBy) (*Watch[[]DocumentSnapshot], error) {
	if !validCollection(collection) {
		return nil, ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	var w *Watch[[]DocumentSnapshot]
	w = newWatch[[]DocumentSnapshot](func() {
		s.mu.Lock()
		delete(s.collWatchers[collection], w)
		s.mu.Unlock()
	})
	w.bind(ctx)

	if s.collWatchers[collection] == nil {
		s.collWatchers[collection] = make(map[*Watch[[]DocumentSnapshot]]OrderBy)
	}
	s.collWatchers[collection][w] = order
	w.publish(s.listLocked(collection, order))
	return w, nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, path string) (DocumentSnapshot, error) {
	coll, id, err := SplitPath(path)
	if err != nil {
		return DocumentSnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return DocumentSnapshot{}, &ReadError{Path: path, Err: ErrClosed}
	}
	return s.snapshotLocked(coll, id), nil
}

func (s *MemoryStore) ListCollection(ctx context.Context, collection string, order OrderBy) ([]DocumentSnapshot, error) {
	if !validCollection(collection) {
		return nil, ErrInvalidPath
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &ReadError{Path: collection, Err: ErrClosed}
	}
	return s.listLocked(collection, order), nil
}

func (s *MemoryStore) WriteDocument(ctx context.Context, path string, fields Fields, merge bool) error {
	err := s.write("write", path, fields, merge)
	observeWrite("write", err)
	return err
}

func (s *MemoryStore) AppendToCollection(ctx context.Context, collection string, fields Fields) (string, error) {
	if !validCollection(collection) {
		return "", &WriteError{Op: "append", Path: collection, Kind: KindInvalid, Err: ErrInvalidPath}
	}
	id := uuid.NewString()
	err := s.write("append", JoinPath(collection, id), fields, false)
	observeWrite("append", err)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, path string) error {
	coll, id, err := SplitPath(path)
	if err != nil {
		observeWrite("delete", err)
		return &WriteError{Op: "delete", Path: path, Kind: KindInvalid, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		observeWrite("delete", ErrClosed)
		return &WriteError{Op: "delete", Path: path, Kind: KindUnavailable, Err: ErrClosed}
	}
	if _, ok := s.collections[coll][id]; !ok {
		observeWrite("delete", nil)
		return nil
	}
	delete(s.collections[coll], id)
	s.notifyLocked(coll, id)
	observeWrite("delete", nil)
	return nil
}

// Close stops every open watch.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var docWatches []*Watch[DocumentSnapshot]
	for _, set := range s.docWatchers {
		for w := range set {
			docWatches = append(docWatches, w)
		}
	}
	var collWatches []*Watch[[]DocumentSnapshot]
	for _, set := range s.collWatchers {
		for w := range set {
			collWatches = append(collWatches, w)
		}
	}
	s.mu.Unlock()

	for _, w := range docWatches {
		w.Stop()
	}
	for _, w := range collWatches {
		w.Stop()
	}
	return nil
}

func (s *MemoryStore) write(op, path string, fields Fields, merge bool) error {
	coll, id, err := SplitPath(path)
	if err != nil {
		return &WriteError{Op: op, Path: path, Kind: KindInvalid, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &WriteError{Op: op, Path: path, Kind: KindUnavailable, Err: ErrClosed}
	}

	now := s.tickLocked()
	incoming, err := normalize(fields, now)
	if err != nil {
		return &WriteError{Op: op, Path: path, Kind: KindInvalid, Err: err}
	}

	existing := s.collections[coll][id]
	next := incoming
	created := now
	if existing != nil {
		created = existing.created
		if merge {
			next = MergeFields(CloneFields(existing.fields), incoming)
		}
	}

	size, err := EncodedSize(next)
	if err != nil {
		return &WriteError{Op: op, Path: path, Kind: KindInvalid, Err: err}
	}
	if size >= MaxDocumentSize {
		return &WriteError{
			Op: op, Path: path, Kind: KindSizeLimit,
			Err: fmt.Errorf("document is %d bytes, limit is %d", size, MaxDocumentSize),
		}
	}

	if s.collections[coll] == nil {
		s.collections[coll] = make(map[string]*record)
	}
	s.collections[coll][id] = &record{fields: next, created: created, updated: now}
	s.notifyLocked(coll, id)
	return nil
}

func (s *MemoryStore) tickLocked() time.Time {
	now := s.now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now
}

func (s *MemoryStore) notifyLocked(coll, id string) {
	path := JoinPath(coll, id)
	if watchers := s.docWatchers[path]; len(watchers) > 0 {
		snap := s.snapshotLocked(coll, id)
		for w := range watchers {
			w.publish(cloneSnapshot(snap))
		}
	}
	for w, order := range s.collWatchers[coll] {
		w.publish(s.listLocked(coll, order))
	}
}

func (s *MemoryStore) snapshotLocked(coll, id string) DocumentSnapshot {
	snap := DocumentSnapshot{Path: JoinPath(coll, id), ID: id}
	rec, ok := s.collections[coll][id]
	if !ok {
		return snap
	}
	snap.Exists = true
	snap.Fields = CloneFields(rec.fields)
	snap.CreateTime = rec.created
	snap.UpdateTime = rec.updated
	return snap
}

func (s *MemoryStore) listLocked(coll string, order OrderBy) []DocumentSnapshot {
	docs := make([]DocumentSnapshot, 0, len(s.collections[coll]))
	for id := range s.collections[coll] {
		docs = append(docs, s.snapshotLocked(coll, id))
	}
	sortSnapshots(docs, order)
	return docs
}

func cloneSnapshot(s DocumentSnapshot) DocumentSnapshot {
	s.Fields = CloneFields(s.Fields)
	return s
}

var _ Store = (*MemoryStore)(nil)
