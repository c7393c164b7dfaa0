package store

import (
	"log/slog"
	"sync"
)

// subscriber receives collection snapshots until unsubscribed.
type subscriber struct {
	onChange func([]Document)
	onError  func(error)
}

// hub tracks subscribers per collection. Notifications for different
// collections are independent; no ordering is guaranteed across them.
type hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]subscriber
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]subscriber)}
}

func (h *hub) add(collection string, sub subscriber) (id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[int]subscriber)
	}
	h.subs[collection][h.nextID] = sub
	return h.nextID
}

func (h *hub) remove(collection string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[collection], id)
}

func (h *hub) snapshot(collection string) []subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]subscriber, 0, len(h.subs[collection]))
	for _, sub := range h.subs[collection] {
		out = append(out, sub)
	}
	return out
}

// Subscribe registers a listener on a collection. The listener
// receives the full current document set immediately, then again after
// every write to the collection, from the writing goroutine. The
// returned function cancels the subscription.
func (s *Store) Subscribe(collection string, onChange func([]Document), onError func(error)) func() {
	if onError == nil {
		onError = func(err error) {
			slog.Error("subscription error", "collection", collection, "error", err)
		}
	}
	id := s.subs.add(collection, subscriber{onChange: onChange, onError: onError})

	docs, err := s.List(collection)
	if err != nil {
		onError(err)
	} else {
		onChange(docs)
	}

	return func() { s.subs.remove(collection, id) }
}

// notify pushes the current snapshot of a collection to its
// subscribers. Called after every committed write.
func (s *Store) notify(collection string) {
	listeners := s.subs.snapshot(collection)
	if len(listeners) == 0 {
		return
	}
	docs, err := s.List(collection)
	for _, sub := range listeners {
		if err != nil {
			sub.onError(err)
			continue
		}
		sub.onChange(docs)
	}
}
