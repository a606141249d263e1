package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

const DefaultBufferSize = 32

// Hub is an in-memory Sink that fans notifications out to subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// notification.
type Hub struct {
	logger zerolog.Logger

	mu     sync.RWMutex
	subs   map[uint64]chan Notification
	nextID uint64
	closed bool
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "notify-hub").Logger(),
		subs:   make(map[uint64]chan Notification),
	}
}

// Subscribe returns a channel receiving every notification published after
// the call, and a cancel func that closes it.
func (h *Hub) Subscribe(bufferSize int) (<-chan Notification, func()) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ch := make(chan Notification, bufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.logger.Debug().Int("subscribers", len(h.subs)).Msg("subscriber added")

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(ch)
}

func (h *Hub) Notify(n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.logger.Warn().
				Uint64("subscriber", id).
				Str("notification_id", n.ID).
				Msg("subscriber buffer full, dropping notification")
		}
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later subscriptions receive a
// closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
