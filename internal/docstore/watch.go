package docstore

import (
	"context"
	"sync"
)

// Watch delivers snapshots of type T. A slow consumer only ever sees the most
// recent pending snapshot; older ones are dropped, never reordered.
type Watch[T any] struct {
	mu      sync.Mutex
	updates chan T
	errs    chan error
	closed  bool
	onStop  func()
	release func() bool
}

func newWatch[T any](onStop func()) *Watch[T] {
	return &Watch[T]{
		updates: make(chan T, 1),
		errs:    make(chan error, 1),
		onStop:  onStop,
	}
}

// Updates is closed once the watch stops.
func (w *Watch[T]) Updates() <-chan T { return w.updates }

// Errors carries ReadErrors from the backend. It is closed with Updates.
func (w *Watch[T]) Errors() <-chan error { return w.errs }

// Stop cancels the watch. It is safe to call more than once.
func (w *Watch[T]) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.updates)
	close(w.errs)
	release := w.release
	w.mu.Unlock()

	if release != nil {
		release()
	}
	if w.onStop != nil {
		w.onStop()
	}
}

// bind stops the watch when ctx is done.
func (w *Watch[T]) bind(ctx context.Context) {
	release := context.AfterFunc(ctx, w.Stop)
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		release()
		return
	}
	w.release = release
	w.mu.Unlock()
}

func (w *Watch[T]) publish(v T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case <-w.updates:
	default:
	}
	w.updates <- v
	return true
}

func (w *Watch[T]) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case <-w.errs:
	default:
	}
	w.errs <- err
}

func (w *Watch[T]) stopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
