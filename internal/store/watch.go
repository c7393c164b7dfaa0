package store

import (
	"log/slog"
	"sync"
)

// Watch keeps a typed in-process snapshot of one collection, fed by a
// subscription. Reads never touch the database; filtering and sorting
// happen as pure functions over Snapshot copies.
type Watch[T any] struct {
	collection string
	mu         sync.RWMutex
	items      []T
	unsub      func()
}

// NewWatch subscribes to a collection and keeps its decoded snapshot
// current. A decode failure keeps the previous snapshot and logs the
// error; the view degrades rather than crashes.
func NewWatch[T any](s *Store, collection string) *Watch[T] {
	w := &Watch[T]{collection: collection}
	w.unsub = s.Subscribe(collection,
		func(docs []Document) {
			items, err := DecodeAll[T](docs)
			if err != nil {
				slog.Error("decode collection snapshot", "collection", collection, "error", err)
				return
			}
			w.mu.Lock()
			w.items = items
			w.mu.Unlock()
		},
		func(err error) {
			slog.Error("watch collection", "collection", collection, "error", err)
		},
	)
	return w
}

// Snapshot returns a copy of the current decoded document set.
func (w *Watch[T]) Snapshot() []T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}

// Close cancels the underlying subscription.
func (w *Watch[T]) Close() {
	if w.unsub != nil {
		w.unsub()
	}
}
