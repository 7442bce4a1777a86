// Package eventbus implements scheduler.EventBus: a best-effort fan-out of
// lifecycle events to observers, modeled on Nomad's own event-broker idiom
// (bounded per-subscriber channels, never blocking the publisher).
package eventbus

import (
	"sync"

	"github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/marathon-go/appsched/scheduler"
)

// subscriberBuffer is how many undelivered events a slow subscriber may
// accumulate before new events are dropped for it.
const subscriberBuffer = 64

// Bus fans scheduler.Event values out to subscribers.
type Bus struct {
	logger hclog.Logger

	mu     sync.RWMutex
	subs   map[int]chan scheduler.Event
	next   int
	closed bool
}

// New constructs an empty Bus.
func New(logger hclog.Logger) *Bus {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Bus{
		logger: logger.Named("eventbus"),
		subs:   make(map[int]chan scheduler.Event),
	}
}

// Subscribe registers a new observer and returns its channel plus an
// unsubscribe func. The channel is closed when Unsubscribe or Close runs.
func (b *Bus) Subscribe() (<-chan scheduler.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan scheduler.Event, subscriberBuffer)
	b.subs[id] = ch

	return ch, func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Post fans event out to every current subscriber, non-blocking: a
// subscriber whose buffer is full has the event dropped for it rather than
// stalling the publisher, since publishing is defined as best-effort.
func (b *Bus) Post(event scheduler.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			metrics.IncrCounter([]string{"eventbus", "dropped"}, 1)
			b.logger.Warn("dropping event for slow subscriber")
		}
	}
}

// Close unsubscribes and closes every subscriber channel. Safe to call once.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
