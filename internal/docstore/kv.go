package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const maxCASAttempts = 8

// envelope is the stored form of a document in the bucket.
type envelope struct {
	Fields  Fields    `json:"fields"`
	Created time.Time `json:"created"`
}

// KVStore keeps each document as one key in a JetStream key-value bucket.
// Document "gallery/abc" lives under key "gallery.abc", so a collection is
// the key pattern "gallery.*".
type KVStore struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	logger *slog.Logger
}

// NewKVStore binds to (creating if needed) the named bucket.
func NewKVStore(ctx context.Context, nc *nats.Conn, bucket string) (*KVStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:       bucket,
		Description:  "Site content documents and collections",
		History:      5,
		MaxValueSize: MaxDocumentSize + 4096,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}

	return &KVStore{nc: nc, kv: kv, logger: slog.Default().With("component", "docstore")}, nil
}

func documentKey(path string) (key, coll, id string, err error) {
	coll, id, err = SplitPath(path)
	if err != nil {
		return "", "", "", err
	}
	return coll + "." + id, coll, id, nil
}

func collectionPattern(collection string) string {
	return collection + ".*"
}

func idFromKey(key string) string {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		return key[i+1:]
	}
	return key
}

func (s *KVStore) WatchDocument(ctx context.Context, path string) (*Watch[DocumentSnapshot], error) {
	key, coll, id, err := documentKey(path)
	if err != nil {
		return nil, err
	}

	wctx, cancel := context.WithCancel(ctx)
	kw, err := s.kv.Watch(wctx, key)
	if err != nil {
		cancel()
		return nil, &ReadError{Path: path, Err: err}
	}

	w := newWatch[DocumentSnapshot](func() {
		cancel()
		_ = kw.Stop()
	})
	w.bind(ctx)

	go func() {
		seen := false
		for {
			select {
			case <-wctx.Done():
				return
			case entry, ok := <-kw.Updates():
				if !ok {
					if wctx.Err() == nil {
						w.fail(&ReadError{Path: path, Err: errors.New("watch closed by server")})
					}
					return
				}
				// nil marks the end of the initial values
				if entry == nil {
					if !seen {
						w.publish(DocumentSnapshot{Path: JoinPath(coll, id), ID: id})
					}
					seen = true
					continue
				}
				seen = true
				snap, err := snapshotFromEntry(coll, id, entry)
				if err != nil {
					w.fail(&ReadError{Path: path, Err: err})
					continue
				}
				w.publish(snap)
			}
		}
	}()

	return w, nil
}

func (s *KVStore) WatchCollection(ctx context.Context, collection string, order OrderBy) (*Watch[[]DocumentSnapshot], error) {
	if !validCollection(collection) {
		return nil, ErrInvalidPath
	}

	wctx, cancel := context.WithCancel(ctx)
	kw, err := s.kv.Watch(wctx, collectionPattern(collection))
	if err != nil {
		cancel()
		return nil, &ReadError{Path: collection, Err: err}
	}

	w := newWatch[[]DocumentSnapshot](func() {
		cancel()
		_ = kw.Stop()
	})
	w.bind(ctx)

	go func() {
		docs := make(map[string]DocumentSnapshot)
		synced := false
		emit := func() {
			list := make([]DocumentSnapshot, 0, len(docs))
			for _, d := range docs {
				list = append(list, cloneSnapshot(d))
			}
			sortSnapshots(list, order)
			w.publish(list)
		}
		for {
			select {
			case <-wctx.Done():
				return
			case entry, ok := <-kw.Updates():
				if !ok {
					if wctx.Err() == nil {
						w.fail(&ReadError{Path: collection, Err: errors.New("watch closed by server")})
					}
					return
				}
				if entry == nil {
					synced = true
					emit()
					continue
				}
				id := idFromKey(entry.Key())
				snap, err := snapshotFromEntry(collection, id, entry)
				if err != nil {
					s.logger.Warn("skipping undecodable document", "key", entry.Key(), "error", err)
					continue
				}
				if snap.Exists {
					docs[id] = snap
				} else {
					delete(docs, id)
				}
				if synced {
					emit()
				}
			}
		}
	}()

	return w, nil
}

func (s *KVStore) GetDocument(ctx context.Context, path string) (DocumentSnapshot, error) {
	key, coll, id, err := documentKey(path)
	if err != nil {
		return DocumentSnapshot{}, err
	}
	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return DocumentSnapshot{Path: path, ID: id}, nil
	}
	if err != nil {
		return DocumentSnapshot{}, &ReadError{Path: path, Err: err}
	}
	snap, err := snapshotFromEntry(coll, id, entry)
	if err != nil {
		return DocumentSnapshot{}, &ReadError{Path: path, Err: err}
	}
	return snap, nil
}

func (s *KVStore) ListCollection(ctx context.Context, collection string, order OrderBy) ([]DocumentSnapshot, error) {
	if !validCollection(collection) {
		return nil, ErrInvalidPath
	}
	kw, err := s.kv.Watch(ctx, collectionPattern(collection), jetstream.IgnoreDeletes())
	if err != nil {
		return nil, &ReadError{Path: collection, Err: err}
	}
	defer kw.Stop()

	var docs []DocumentSnapshot
	for {
		select {
		case <-ctx.Done():
			return nil, &ReadError{Path: collection, Err: ctx.Err()}
		case entry, ok := <-kw.Updates():
			if !ok {
				return nil, &ReadError{Path: collection, Err: errors.New("watch closed by server")}
			}
			if entry == nil {
				sortSnapshots(docs, order)
				return docs, nil
			}
			snap, err := snapshotFromEntry(collection, idFromKey(entry.Key()), entry)
			if err != nil {
				s.logger.Warn("skipping undecodable document", "key", entry.Key(), "error", err)
				continue
			}
			if snap.Exists {
				docs = append(docs, snap)
			}
		}
	}
}

func (s *KVStore) WriteDocument(ctx context.Context, path string, fields Fields, merge bool) error {
	err := s.write(ctx, "write", path, fields, merge)
	observeWrite("write", err)
	return err
}

func (s *KVStore) AppendToCollection(ctx context.Context, collection string, fields Fields) (string, error) {
	if !validCollection(collection) {
		return "", &WriteError{Op: "append", Path: collection, Kind: KindInvalid, Err: ErrInvalidPath}
	}
	id := uuid.NewString()
	err := s.write(ctx, "append", JoinPath(collection, id), fields, false)
	observeWrite("append", err)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *KVStore) DeleteDocument(ctx context.Context, path string) error {
	key, _, _, err := documentKey(path)
	if err != nil {
		observeWrite("delete", err)
		return &WriteError{Op: "delete", Path: path, Kind: KindInvalid, Err: err}
	}
	if err := s.kv.Delete(ctx, key); err != nil {
		observeWrite("delete", err)
		return &WriteError{Op: "delete", Path: path, Kind: classify(err), Err: err}
	}
	observeWrite("delete", nil)
	return nil
}

// Close drains the underlying connection.
func (s *KVStore) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}

func (s *KVStore) write(ctx context.Context, op, path string, fields Fields, merge bool) error {
	key, _, _, err := documentKey(path)
	if err != nil {
		return &WriteError{Op: op, Path: path, Kind: KindInvalid, Err: err}
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		now := time.Now().UTC()
		incoming, err := normalize(fields, now)
		if err != nil {
			return &WriteError{Op: op, Path: path, Kind: KindInvalid, Err: err}
		}

		entry, err := s.kv.Get(ctx, key)
		switch {
		case errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted):
			var payload []byte
			payload, err = encodeEnvelope(op, path, incoming, now)
			if err != nil {
				return err
			}
			_, err = s.kv.Create(ctx, key, payload)
		case err != nil:
			return &WriteError{Op: op, Path: path, Kind: classify(err), Err: err}
		default:
			var env envelope
			if err := json.Unmarshal(entry.Value(), &env); err != nil {
				return &WriteError{Op: op, Path: path, Kind: KindInvalid, Err: err}
			}
			next := incoming
			if merge {
				next = MergeFields(env.Fields, incoming)
			}
			var payload []byte
			payload, err = encodeEnvelope(op, path, next, env.Created)
			if err != nil {
				return err
			}
			_, err = s.kv.Update(ctx, key, payload, entry.Revision())
		}

		if err == nil {
			return nil
		}
		var we *WriteError
		if errors.As(err, &we) {
			return we
		}
		if errors.Is(err, jetstream.ErrKeyExists) {
			s.logger.Debug("revision conflict, retrying", "path", path, "attempt", attempt+1)
			continue
		}
		return &WriteError{Op: op, Path: path, Kind: classify(err), Err: err}
	}

	return &WriteError{Op: op, Path: path, Kind: KindConflict, Err: errors.New("too many concurrent writers")}
}

func encodeEnvelope(op, path string, fields Fields, created time.Time) ([]byte, error) {
	size, err := EncodedSize(fields)
	if err != nil {
		return nil, &WriteError{Op: op, Path: path, Kind: KindInvalid, Err: err}
	}
	if size >= MaxDocumentSize {
		return nil, &WriteError{
			Op: op, Path: path, Kind: KindSizeLimit,
			Err: fmt.Errorf("document is %d bytes, limit is %d", size, MaxDocumentSize),
		}
	}
	payload, err := json.Marshal(envelope{Fields: fields, Created: created})
	if err != nil {
		return nil, &WriteError{Op: op, Path: path, Kind: KindInvalid, Err: err}
	}
	return payload, nil
}

func snapshotFromEntry(coll, id string, entry jetstream.KeyValueEntry) (DocumentSnapshot, error) {
	snap := DocumentSnapshot{Path: JoinPath(coll, id), ID: id}
	if entry.Operation() != jetstream.KeyValuePut {
		return snap, nil
	}
	var env envelope
	if err := json.Unmarshal(entry.Value(), &env); err != nil {
		return snap, fmt.Errorf("decode %s: %w", entry.Key(), err)
	}
	snap.Exists = true
	snap.Fields = env.Fields
	if snap.Fields == nil {
		snap.Fields = Fields{}
	}
	snap.CreateTime = env.Created
	snap.UpdateTime = entry.Created()
	return snap, nil
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, nats.ErrMaxPayload):
		return KindSizeLimit
	case errors.Is(err, nats.ErrPermissionViolation), errors.Is(err, nats.ErrAuthorization):
		return KindPermission
	case errors.Is(err, jetstream.ErrKeyExists):
		return KindConflict
	default:
		return KindUnavailable
	}
}

var _ Store = (*KVStore)(nil)
