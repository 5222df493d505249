package dispatch

import (
	"context"
	"sync"
	"time"

	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/pkg/logger"
)

// Sink receives drained events on the consumer side. Implementations are
// only ever called from the Bus drain loop, so they may mutate consumer
// state without locking.
type Sink interface {
	Deliver(ev models.Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev models.Event)

func (f SinkFunc) Deliver(ev models.Event) { f(ev) }

// Bus is the bounded per-category event queue bridging producer goroutines
// to a single consumer. Publish never blocks: when a category's buffer is
// full the event is dropped and counted. Within a category FIFO order is
// preserved; across categories there is no ordering guarantee.
type Bus struct {
	logger  *logger.Logger
	metrics repository.Metrics

	mu     sync.RWMutex
	chans  map[models.EventCategory]chan models.Event
	size   int
	closed bool
}

func NewBus(size int, log *logger.Logger, metrics repository.Metrics) *Bus {
	if size <= 0 {
		size = 1024
	}
	return &Bus{
		logger:  log.Component("dispatch"),
		metrics: metrics,
		chans:   make(map[models.EventCategory]chan models.Event),
		size:    size,
	}
}

// Publish enqueues an event for its category. Returns false when the event
// was dropped because the category buffer is full or the bus is closed.
func (b *Bus) Publish(ev models.Event) bool {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return false
	}
	ch, ok := b.chans[ev.Category]
	b.mu.RUnlock()

	if !ok {
		ch = b.register(ev.Category)
	}

	select {
	case ch <- ev:
		b.metrics.RecordEvent(string(ev.Category), ev.Symbol)
		return true
	default:
		b.metrics.RecordError("dispatch_drop_" + string(ev.Category))
		b.logger.Warn("event dropped, queue full",
			logger.String("category", string(ev.Category)),
			logger.String("symbol", ev.Symbol))
		return false
	}
}

func (b *Bus) register(cat models.EventCategory) chan models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.chans[cat]; ok {
		return ch
	}
	ch := make(chan models.Event, b.size)
	b.chans[cat] = ch
	return ch
}

// Drain pops every currently available event, category by category, and
// hands each to the sink. Called on the consumer's tick; must not be called
// from more than one goroutine.
func (b *Bus) Drain(sink Sink) int {
	b.mu.RLock()
	chans := make([]chan models.Event, 0, len(b.chans))
	for _, ch := range b.chans {
		chans = append(chans, ch)
	}
	b.mu.RUnlock()

	n := 0
	for _, ch := range chans {
		// Snapshot the depth so a fast producer cannot pin the drain loop.
		for pending := len(ch); pending > 0; pending-- {
			select {
			case ev := <-ch:
				sink.Deliver(ev)
				n++
			default:
				pending = 0
			}
		}
	}
	return n
}

// Run drains on a fixed tick until the context is cancelled, then performs
// a final drain so queued events are not lost on shutdown.
func (b *Bus) Run(ctx context.Context, interval time.Duration, sink Sink) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.Drain(sink)
			return
		case <-ticker.C:
			if n := b.Drain(sink); n > 0 {
				b.metrics.RecordGauge("dispatch_drained", float64(n))
			}
		}
	}
}

// Close marks the bus closed; subsequent publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Depth reports the current number of queued events for a category.
func (b *Bus) Depth(cat models.EventCategory) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ch, ok := b.chans[cat]; ok {
		return len(ch)
	}
	return 0
}
