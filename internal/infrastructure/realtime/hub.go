package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/stream"
)

const defaultSubscriberBuffer = 64

// Hub is the in-process fanout for match channels. Publishing assigns a
// per-match monotonic sequence under the topic lock, so every subscriber
// receives the same ordered stream. A subscriber that cannot keep up is
// dropped rather than allowed to block the publisher.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]*topic
	bufferSize int
	closed     bool
	logger     *slog.Logger
	now        func() time.Time
}

type topic struct {
	mu       sync.Mutex
	sequence int64
	subs     map[*subscriber]struct{}
}

type subscriber struct {
	ch   chan stream.Delta
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

type Option func(*Hub)

func WithSubscriberBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		topics:     make(map[string]*topic),
		bufferSize: defaultSubscriberBuffer,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish appends a delta to the match channel and fans it out.
func (h *Hub) Publish(matchID string, kind stream.Kind, payload any) stream.Delta {
	t := h.topic(matchID, true)
	if t == nil {
		return stream.Delta{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sequence++
	delta := stream.Delta{
		MatchID:   matchID,
		Sequence:  t.sequence,
		Kind:      kind,
		Payload:   payload,
		EmittedAt: h.now(),
	}

	for sub := range t.subs {
		select {
		case sub.ch <- delta:
		default:
			delete(t.subs, sub)
			sub.close()
			h.logger.Warn("dropping slow match channel subscriber",
				"match_id", matchID, "sequence", delta.Sequence)
		}
	}

	return delta
}

// Subscribe attaches a new consumer to the match channel. The returned
// cancel func detaches it; the channel is closed on cancel, on slow
// consumption and on CloseMatch/Close.
func (h *Hub) Subscribe(matchID string) (<-chan stream.Delta, func()) {
	t := h.topic(matchID, true)
	if t == nil {
		ch := make(chan stream.Delta)
		close(ch)
		return ch, func() {}
	}

	sub := &subscriber{ch: make(chan stream.Delta, h.bufferSize)}

	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		_, attached := t.subs[sub]
		delete(t.subs, sub)
		t.mu.Unlock()
		if attached {
			sub.close()
		}
	}

	return sub.ch, cancel
}

// SubscriberCount reports how many consumers a match channel has.
func (h *Hub) SubscriberCount(matchID string) int {
	t := h.topic(matchID, false)
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// CloseMatch tears down one match channel, e.g. at match completion.
func (h *Hub) CloseMatch(matchID string) {
	h.mu.Lock()
	t, ok := h.topics[matchID]
	delete(h.topics, matchID)
	h.mu.Unlock()
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for sub := range t.subs {
		sub.close()
	}
	t.subs = make(map[*subscriber]struct{})
}

// Close tears down every channel. Publish and Subscribe become no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	topics := h.topics
	h.topics = make(map[string]*topic)
	h.closed = true
	h.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		for sub := range t.subs {
			sub.close()
		}
		t.subs = make(map[*subscriber]struct{})
		t.mu.Unlock()
	}
}

func (h *Hub) topic(matchID string, create bool) *topic {
	h.mu.RLock()
	t, ok := h.topics[matchID]
	closed := h.closed
	h.mu.RUnlock()
	if ok || !create || closed {
		return t
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	if t, ok = h.topics[matchID]; ok {
		return t
	}
	t = &topic{subs: make(map[*subscriber]struct{})}
	h.topics[matchID] = t
	return t
}
