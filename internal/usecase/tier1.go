package usecase

import (
	"context"
	"sync"
	"time"

	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/pkg/logger"
)

const candidatesKey = "tier1:candidates"

// Tier1 is the historical volume filter. It scans the full ticker universe
// in batches, computes the trailing average volume, and keeps symbols whose
// average volume and last close fall inside the configured bounds. The
// candidate list is replaced wholesale on every run.
type Tier1 struct {
	universe repository.UniverseSource
	market   repository.MarketData
	store    repository.DocumentStore
	metrics  repository.Metrics
	logger   *logger.Logger

	lookbackDays int
	minAvgVolume int64
	minPrice     float64
	maxPrice     float64
	batchSize    int

	onCandidates func([]models.CandidateEntry)

	mu         sync.Mutex
	candidates []models.CandidateEntry
	lastRun    time.Time
}

type Tier1Config struct {
	LookbackDays int
	MinAvgVolume int64
	MinPrice     float64
	MaxPrice     float64
	BatchSize    int
}

func NewTier1(
	universe repository.UniverseSource,
	market repository.MarketData,
	store repository.DocumentStore,
	metrics repository.Metrics,
	log *logger.Logger,
	cfg Tier1Config,
) *Tier1 {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 60
	}
	return &Tier1{
		universe:     universe,
		market:       market,
		store:        store,
		metrics:      metrics,
		logger:       log.Component("tier1"),
		lookbackDays: cfg.LookbackDays,
		minAvgVolume: cfg.MinAvgVolume,
		minPrice:     cfg.MinPrice,
		maxPrice:     cfg.MaxPrice,
		batchSize:    cfg.BatchSize,
	}
}

// OnCandidates registers the downstream callback invoked with the fresh
// candidate list after each completed run. Must be set before Run is called.
func (t *Tier1) OnCandidates(fn func([]models.CandidateEntry)) {
	t.onCandidates = fn
}

// Run executes one full scan. A failed sub-batch is logged and skipped; the
// run completes with whatever succeeded.
func (t *Tier1) Run(ctx context.Context) error {
	started := time.Now()

	universe, err := t.universe.Symbols(ctx)
	if err != nil {
		t.metrics.RecordError("tier1_universe")
		return err
	}

	symbols := universe[:0]
	for _, sym := range universe {
		if isCommonStock(sym) {
			symbols = append(symbols, sym)
		}
	}

	var candidates []models.CandidateEntry
	for start := 0; start < len(symbols); start += t.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + t.batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		bars, err := t.market.DailyBars(ctx, batch, t.lookbackDays)
		if err != nil {
			t.metrics.RecordError("tier1_batch")
			t.logger.Warn("batch failed, skipping",
				logger.Int("offset", start), logger.Error(err))
			continue
		}

		for _, sym := range batch {
			entry, ok := t.evaluate(sym, bars[sym])
			if ok {
				candidates = append(candidates, entry)
			}
		}
	}

	t.mu.Lock()
	t.candidates = candidates
	t.lastRun = time.Now()
	t.mu.Unlock()

	if err := t.store.Save(ctx, candidatesKey, candidates); err != nil {
		t.metrics.RecordError("tier1_persist")
		t.logger.Error("persist candidates", logger.Error(err))
	}

	t.metrics.RecordGauge("tier1_candidates", float64(len(candidates)))
	t.metrics.RecordLatency("tier1_scan", time.Since(started).Seconds())
	t.logger.Info("scan complete",
		logger.Int("universe", len(symbols)),
		logger.Int("candidates", len(candidates)),
		logger.Duration("took", time.Since(started)))

	if t.onCandidates != nil {
		t.onCandidates(candidates)
	}
	return nil
}

// isCommonStock rejects preferred shares, warrants, and units, whose symbols
// carry a class suffix like BRK$A or FOO.WS.
func isCommonStock(symbol string) bool {
	if symbol == "" {
		return false
	}
	for _, r := range symbol {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (t *Tier1) evaluate(symbol string, bars []models.Bar) (models.CandidateEntry, bool) {
	if len(bars) == 0 {
		return models.CandidateEntry{}, false
	}

	var total int64
	for _, b := range bars {
		total += b.Volume
	}
	avgVol := float64(total) / float64(len(bars))
	lastClose := bars[len(bars)-1].Close

	if avgVol <= float64(t.minAvgVolume) {
		return models.CandidateEntry{}, false
	}
	if lastClose <= t.minPrice || lastClose >= t.maxPrice {
		return models.CandidateEntry{}, false
	}
	return models.CandidateEntry{Symbol: symbol, AvgVolume: avgVol}, true
}

// Candidates returns the most recent scan result.
func (t *Tier1) Candidates() []models.CandidateEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.CandidateEntry, len(t.candidates))
	copy(out, t.candidates)
	return out
}

// Restore loads the persisted candidate list, used to warm Tier2 before the
// first scan of the day completes.
func (t *Tier1) Restore(ctx context.Context) error {
	var candidates []models.CandidateEntry
	if err := t.store.Load(ctx, candidatesKey, &candidates); err != nil {
		if err == repository.ErrNotFound {
			return nil
		}
		return err
	}

	t.mu.Lock()
	t.candidates = candidates
	t.mu.Unlock()

	if t.onCandidates != nil && len(candidates) > 0 {
		t.onCandidates(candidates)
	}
	return nil
}

// LastRun reports when the last completed scan finished.
func (t *Tier1) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRun
}
