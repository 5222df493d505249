package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/internal/dispatch"
	"signalscan/pkg/logger"
)

const (
	activeHaltsKey     = "halts:active"
	historicalHaltsKey = "halts:historical"
	haltRetention      = 72 * time.Hour
)

// HaltReconciler merges halt entries from multiple feeds into one state
// machine per symbol. Higher-priority sources override lower ones for the
// same symbol; a resume is only accepted when its timestamp is strictly
// after the halt timestamp.
type HaltReconciler struct {
	sources  []repository.HaltSource
	store    repository.DocumentStore
	bus      *dispatch.Bus
	metrics  repository.Metrics
	logger   *logger.Logger
	interval time.Duration

	mu         sync.Mutex
	active     map[string]models.HaltRecord
	historical map[string]models.HaltRecord

	now func() time.Time
}

func NewHaltReconciler(
	sources []repository.HaltSource,
	store repository.DocumentStore,
	bus *dispatch.Bus,
	metrics repository.Metrics,
	log *logger.Logger,
	interval time.Duration,
) *HaltReconciler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	// Stable low-to-high priority order so higher-priority fetches merge
	// last and win.
	sorted := make([]repository.HaltSource, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &HaltReconciler{
		sources:    sorted,
		store:      store,
		bus:        bus,
		metrics:    metrics,
		logger:     log.Component("halts"),
		interval:   interval,
		active:     make(map[string]models.HaltRecord),
		historical: make(map[string]models.HaltRecord),
		now:        time.Now,
	}
}

// Run polls the feeds until the context is cancelled. A failing source is
// logged and skipped for that cycle.
func (h *HaltReconciler) Run(ctx context.Context) {
	h.poll(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.poll(ctx)
		}
	}
}

func (h *HaltReconciler) poll(ctx context.Context) {
	merged := make(map[string]models.HaltRecord)
	for _, src := range h.sources {
		recs, err := src.Fetch(ctx)
		if err != nil {
			h.metrics.RecordError("halts_" + src.Name())
			h.logger.Warn("halt source failed",
				logger.String("source", src.Name()), logger.Error(err))
			continue
		}
		for _, rec := range recs {
			// Sources merge in ascending priority, so a later entry for
			// the same symbol is from an equal-or-higher priority feed.
			merged[rec.Symbol] = rec
		}
	}
	if len(merged) == 0 {
		return
	}
	h.Reconcile(merged)
}

// Reconcile applies one cycle's merged feed entries to the per-symbol state
// machine and emits events for every transition.
func (h *HaltReconciler) Reconcile(entries map[string]models.HaltRecord) {
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	for sym, rec := range entries {
		if isForeignListing(sym) {
			continue
		}
		// Stale entries from a prior trading day must not resurrect halts
		// after a restart.
		if !SameTradingDay(rec.HaltTime, now) {
			continue
		}

		// A premature resume field leaves the symbol halted.
		if !rec.Resumed() {
			rec.Status = models.HaltStatusHalted
			rec.ResumeTime = nil
		}

		prev, known := h.active[sym]
		switch {
		case !known && rec.Status == models.HaltStatusHalted:
			h.active[sym] = rec
			h.logger.Info("halt detected",
				logger.String("symbol", sym),
				logger.String("reason", rec.Reason),
				logger.String("source", rec.Source))
			h.emit(rec, now)

		case !known && rec.Status == models.HaltStatusResumed:
			if hist, ok := h.historical[sym]; ok && hist.Status == models.HaltStatusResumed {
				continue // already reconciled this resume
			}
			h.historical[sym] = rec
			h.emit(rec, now)

		case known && rec.Status == models.HaltStatusResumed:
			delete(h.active, sym)
			h.historical[sym] = rec
			h.logger.Info("halt resumed",
				logger.String("symbol", sym),
				logger.String("source", rec.Source))
			h.emit(rec, now)

		case known && rec.Status == models.HaltStatusHalted:
			// A newer halt time on an already-halted symbol is a re-halt.
			if rec.HaltTime.After(prev.HaltTime) {
				h.active[sym] = rec
				h.logger.Warn("re-halt",
					logger.String("symbol", sym),
					logger.String("reason", rec.Reason))
				h.emit(rec, now)
			}
		}

		// Re-halt of a previously resumed symbol.
		if !known && rec.Status == models.HaltStatusHalted {
			if hist, ok := h.historical[sym]; ok && hist.Resumed() && rec.HaltTime.After(*hist.ResumeTime) {
				h.logger.Warn("re-halt after resume", logger.String("symbol", sym))
			}
		}
	}

	h.pruneLocked(now)
	h.metrics.RecordGauge("halts_active", float64(len(h.active)))
}

// isForeignListing flags Canadian-exchange symbols the feeds occasionally
// carry; the pipeline only tracks US listings.
func isForeignListing(symbol string) bool {
	s := strings.ToUpper(symbol)
	return strings.HasSuffix(s, ".TO") ||
		strings.HasSuffix(s, ".TSX") ||
		strings.HasPrefix(s, "TSX:")
}

func (h *HaltReconciler) emit(rec models.HaltRecord, now time.Time) {
	h.bus.Publish(models.Event{
		Category: models.EventHalt,
		Symbol:   rec.Symbol,
		Payload:  rec,
		At:       now,
	})
}

// pruneLocked drops entries past retention. Caller holds the lock.
func (h *HaltReconciler) pruneLocked(now time.Time) {
	cutoff := now.Add(-haltRetention)
	for sym, rec := range h.active {
		if rec.HaltTime.Before(cutoff) {
			delete(h.active, sym)
		}
	}
	for sym, rec := range h.historical {
		if rec.HaltTime.Before(cutoff) {
			delete(h.historical, sym)
		}
	}
}

// Cleanup is the midnight job: prunes retention and persists both stores.
func (h *HaltReconciler) Cleanup(ctx context.Context) {
	h.mu.Lock()
	h.pruneLocked(h.now())
	h.mu.Unlock()
	h.Persist(ctx)
}

// Persist writes both halt stores.
func (h *HaltReconciler) Persist(ctx context.Context) {
	h.mu.Lock()
	active := make(map[string]models.HaltRecord, len(h.active))
	for k, v := range h.active {
		active[k] = v
	}
	historical := make(map[string]models.HaltRecord, len(h.historical))
	for k, v := range h.historical {
		historical[k] = v
	}
	h.mu.Unlock()

	if err := h.store.Save(ctx, activeHaltsKey, active); err != nil {
		h.logger.Error("persist active halts", logger.Error(err))
	}
	if err := h.store.Save(ctx, historicalHaltsKey, historical); err != nil {
		h.logger.Error("persist historical halts", logger.Error(err))
	}
}

// Restore loads both halt stores.
func (h *HaltReconciler) Restore(ctx context.Context) error {
	var active, historical map[string]models.HaltRecord
	if err := h.store.Load(ctx, activeHaltsKey, &active); err != nil && err != repository.ErrNotFound {
		return err
	}
	if err := h.store.Load(ctx, historicalHaltsKey, &historical); err != nil && err != repository.ErrNotFound {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if active != nil {
		h.active = active
	}
	if historical != nil {
		h.historical = historical
	}
	return nil
}

// Active returns a copy of the currently halted set.
func (h *HaltReconciler) Active() []models.HaltRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.HaltRecord, 0, len(h.active))
	for _, rec := range h.active {
		out = append(out, rec)
	}
	return out
}

// IsHalted reports whether a symbol is currently halted.
func (h *HaltReconciler) IsHalted(symbol string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.active[symbol]
	return ok
}
