package agent

import (
	"sync"

	"github.com/futig/workspace-agent/internal/entity"
)

// Broker fans progress events out to the SSE subscriber of each request.
// A request has at most one subscriber; a newer one replaces the older.
type Broker struct {
	mu         sync.RWMutex
	clients    map[string]chan entity.ProgressEvent
	bufferSize int
}

func NewBroker(bufferSize int) *Broker {
	return &Broker{
		clients:    make(map[string]chan entity.ProgressEvent),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a subscriber for reqID. The returned func removes it
// and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(reqID string) (<-chan entity.ProgressEvent, func()) {
	ch := make(chan entity.ProgressEvent, b.bufferSize)

	b.mu.Lock()
	if old, ok := b.clients[reqID]; ok {
		close(old)
	}
	b.clients[reqID] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.clients[reqID] == ch {
				delete(b.clients, reqID)
				close(ch)
			}
		})
	}
}

// Publish delivers ev without blocking. It reports false when there is no
// subscriber or the subscriber's buffer is full.
func (b *Broker) Publish(reqID string, ev entity.ProgressEvent) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, ok := b.clients[reqID]
	if !ok {
		return false
	}

	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}

// PublishFinal delivers the terminal event of a request. When the buffer is
// full the oldest buffered events are evicted to make room, so the last event
// a subscriber reads is always ev.
func (b *Broker) PublishFinal(reqID string, ev entity.ProgressEvent) bool {
	// The write lock keeps other publishers out while room is made.
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.clients[reqID]
	if !ok {
		return false
	}

	for {
		select {
		case ch <- ev:
			return true
		default:
		}

		select {
		case <-ch:
		default:
			// Unbuffered and nobody reading.
			if cap(ch) == 0 {
				return false
			}
		}
	}
}

func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
