package relay

import (
	"encoding/json"
	"sync"

	"github.com/Shugur-Network/norc/filter"
)

// Subscription binds a subscription id and its filters to a buffer of
// raw inbound EVENT frames and per-relay settlement state. A relay is
// Awaiting until its EOSE for this id arrives, then Settled. The
// client never garbage-collects subscriptions; they live until
// Unsubscribe or until a one-shot collection drains them.
type Subscription struct {
	ID      string
	Filters []filter.Filter

	mu      sync.Mutex
	seen    map[string]struct{}
	frames  []json.RawMessage
	pending map[string]struct{}
	done    chan struct{}
	closed  bool
}

func newSubscription(id string, filters []filter.Filter, relays []string) *Subscription {
	pending := make(map[string]struct{}, len(relays))
	for _, url := range relays {
		pending[url] = struct{}{}
	}
	s := &Subscription{
		ID:      id,
		Filters: filters,
		seen:    make(map[string]struct{}),
		pending: pending,
		done:    make(chan struct{}),
	}
	if len(pending) == 0 {
		close(s.done)
		s.closed = true
	}
	return s
}

// addFrame buffers one raw EVENT frame, dropping byte-identical
// duplicates.
func (s *Subscription) addFrame(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := string(raw)
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	s.frames = append(s.frames, json.RawMessage(append([]byte(nil), raw...)))
}

// settle marks one relay as having sent EOSE. When every relay that
// received the subscription has settled, Settled() fires.
func (s *Subscription) settle(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, url)
	if len(s.pending) == 0 && !s.closed {
		s.closed = true
		close(s.done)
	}
}

// Settled returns a channel closed once every participating relay has
// sent its end-of-stored-events marker (or been dropped).
func (s *Subscription) Settled() <-chan struct{} { return s.done }

// Pending returns the relays still awaited.
func (s *Subscription) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.pending))
	for url := range s.pending {
		urls = append(urls, url)
	}
	return urls
}

// drain returns the buffered frames and empties the buffer.
func (s *Subscription) drain() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := s.frames
	s.frames = nil
	s.seen = make(map[string]struct{})
	return frames
}
