package engine

import (
	"context"
	"sync"
	"time"

	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/internal/dispatch"
	"signalscan/internal/state"
	"signalscan/pkg/logger"
)

// tickInterval is how often each engine sweeps the live-state cache.
const tickInterval = 5 * time.Second

// SymbolEngine is one per-symbol streaming analytic. Process consumes the
// latest merged quote and optionally emits an event payload. Implementations
// own their per-symbol state and are only called from their Runner's tick
// goroutine, so they need no locking.
type SymbolEngine interface {
	Name() string
	Category() models.EventCategory
	Process(q models.LiveQuote, now time.Time) (payload any, emit bool)
	Reset()
}

// Runner drives one SymbolEngine on a fixed tick over every symbol in the
// cache. Each engine gets its own Runner and failure domain.
type Runner struct {
	engine  SymbolEngine
	cache   *state.MarketCache
	bus     *dispatch.Bus
	metrics repository.Metrics
	logger  *logger.Logger

	// mu serializes sweeps against session resets; engines themselves are
	// not safe for concurrent use.
	mu sync.Mutex
}

func NewRunner(
	engine SymbolEngine,
	cache *state.MarketCache,
	bus *dispatch.Bus,
	metrics repository.Metrics,
	log *logger.Logger,
) *Runner {
	return &Runner{
		engine:  engine,
		cache:   cache,
		bus:     bus,
		metrics: metrics,
		logger:  log.Component("engine." + engine.Name()),
	}
}

// Run ticks until the context is cancelled. A panic in one sweep is caught
// and logged so one bad symbol cannot stop the engine.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Runner) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.RecordError("engine_" + r.engine.Name())
			r.logger.Error("sweep panic", logger.Any("panic", rec))
		}
	}()

	started := time.Now()
	for _, q := range r.cache.Snapshot() {
		payload, emit := r.engine.Process(q, started)
		if !emit {
			continue
		}
		r.bus.Publish(models.Event{
			Category: r.engine.Category(),
			Symbol:   q.Symbol,
			Payload:  payload,
			At:       started,
		})
	}
	r.metrics.RecordLatency("engine_"+r.engine.Name(), time.Since(started).Seconds())
}

// ResetSession clears engine state at session open.
func (r *Runner) ResetSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engine.Reset()
}
