package app

import (
	"sync"

	"signalscan/internal/domain/models"
)

// Board is the consumer-side view of the pipeline, mutated only from the
// dispatch drain loop. It keeps the latest record per symbol for each
// category so the ops endpoints can serve current state.
type Board struct {
	mu         sync.RWMutex
	channels   map[string]models.ChannelAssignment
	halts      map[string]models.HaltRecord
	news       []models.NewsItem
	indicators map[models.EventCategory]map[string]any

	maxNews int
}

func NewBoard() *Board {
	return &Board{
		channels:   make(map[string]models.ChannelAssignment),
		halts:      make(map[string]models.HaltRecord),
		indicators: make(map[models.EventCategory]map[string]any),
		maxNews:    200,
	}
}

// Deliver implements dispatch.Sink.
func (b *Board) Deliver(ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev.Category {
	case models.EventChannel:
		if a, ok := ev.Payload.(models.ChannelAssignment); ok {
			b.channels[a.Symbol] = a
		}
	case models.EventHalt:
		if h, ok := ev.Payload.(models.HaltRecord); ok {
			if h.Status == models.HaltStatusResumed {
				delete(b.halts, h.Symbol)
			} else {
				b.halts[h.Symbol] = h
			}
		}
	case models.EventNews:
		if n, ok := ev.Payload.(models.NewsItem); ok {
			b.news = append(b.news, n)
			if len(b.news) > b.maxNews {
				b.news = b.news[len(b.news)-b.maxNews:]
			}
		}
	case models.EventVector, models.EventSqueeze, models.EventTrend:
		m, ok := b.indicators[ev.Category]
		if !ok {
			m = make(map[string]any)
			b.indicators[ev.Category] = m
		}
		m[ev.Symbol] = ev.Payload
	}
}

// Channels returns the latest assignment per symbol.
func (b *Board) Channels() []models.ChannelAssignment {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.ChannelAssignment, 0, len(b.channels))
	for _, a := range b.channels {
		out = append(out, a)
	}
	return out
}

// Halts returns the currently displayed halt set.
func (b *Board) Halts() []models.HaltRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.HaltRecord, 0, len(b.halts))
	for _, h := range b.halts {
		out = append(out, h)
	}
	return out
}

// News returns the recent news tape, oldest first.
func (b *Board) News() []models.NewsItem {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.NewsItem, len(b.news))
	copy(out, b.news)
	return out
}

// Indicators returns the latest per-symbol snapshot for one engine.
func (b *Board) Indicators(cat models.EventCategory) map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]any, len(b.indicators[cat]))
	for k, v := range b.indicators[cat] {
		out[k] = v
	}
	return out
}
