package usecase

import (
	"sync"
	"time"

	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/internal/dispatch"
	"signalscan/pkg/logger"
)

const (
	// priceHistoryWindow bounds the trailing ring used for 5/10-minute moves.
	priceHistoryWindow = 15 * time.Minute
	// classifyCooldown throttles re-evaluation of symbols that keep failing
	// to classify.
	classifyCooldown = 60 * time.Second
	// defaultFloatShares stands in when no float data is available.
	defaultFloatShares = 50e6
)

// BreakingLookup answers whether a symbol currently has a breaking news
// item, and how old it is.
type BreakingLookup interface {
	Breaking(symbol string) (ageHours float64, ok bool)
}

type pricePoint struct {
	at    time.Time
	price float64
}

type symbolTrack struct {
	history  []pricePoint
	dayHigh  float64
	cooldown time.Time
}

// Classifier is the Tier3 channel classifier. Every merged live update is
// enriched into a metric snapshot and run through the priority rule set;
// the first matching channel emits a ChannelAssignment event.
type Classifier struct {
	news    BreakingLookup
	bus     *dispatch.Bus
	metrics repository.Metrics
	logger  *logger.Logger

	mu     sync.Mutex
	tracks map[string]*symbolTrack

	now func() time.Time // swapped in tests
}

func NewClassifier(news BreakingLookup, bus *dispatch.Bus, metrics repository.Metrics, log *logger.Logger) *Classifier {
	return &Classifier{
		news:    news,
		bus:     bus,
		metrics: metrics,
		logger:  log.Component("tier3"),
		tracks:  make(map[string]*symbolTrack),
		now:     time.Now,
	}
}

// Handle processes one merged live update. Safe to call from the Tier2
// consume loop only.
func (c *Classifier) Handle(q models.LiveQuote) {
	now := c.now()
	price := q.EffectivePrice()
	if price <= 0 {
		return
	}

	snap := c.enrich(&q, price, now)
	if snap == nil {
		return // on cooldown
	}

	channel := EvaluateChannels(snap)
	if channel == models.ChannelNone {
		c.startCooldown(q.Symbol, now)
		return
	}

	c.bus.Publish(models.Event{
		Category: models.EventChannel,
		Symbol:   q.Symbol,
		At:       now,
		Payload: models.ChannelAssignment{
			Symbol:   q.Symbol,
			Channel:  channel,
			Snapshot: *snap,
			At:       now,
		},
	})
}

// enrich computes the derived metric snapshot, updating the per-symbol
// running high and trailing price ring as side effects. Returns nil when
// the symbol is on its failed-classification cooldown.
func (c *Classifier) enrich(q *models.LiveQuote, price float64, now time.Time) *models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	tr, ok := c.tracks[q.Symbol]
	if !ok {
		tr = &symbolTrack{}
		c.tracks[q.Symbol] = tr
	}

	// High-of-day check precedes the high update: is_hod means this print
	// exceeds everything seen before it.
	isHOD := tr.dayHigh > 0 && price > tr.dayHigh
	if price > tr.dayHigh {
		tr.dayHigh = price
	}

	move5 := movePct(tr.history, price, now, 5*time.Minute)
	move10 := movePct(tr.history, price, now, 10*time.Minute)

	tr.history = append(tr.history, pricePoint{at: now, price: price})
	cutoff := now.Add(-priceHistoryWindow)
	for len(tr.history) > 0 && tr.history[0].at.Before(cutoff) {
		tr.history = tr.history[1:]
	}

	if now.Before(tr.cooldown) {
		return nil
	}

	floatShares := q.FloatShares
	if floatShares <= 0 {
		floatShares = defaultFloatShares
	}

	var hasBreaking bool
	var newsAge float64
	if c.news != nil {
		newsAge, hasBreaking = c.news.Breaking(q.Symbol)
	}

	return &models.Snapshot{
		Symbol:       q.Symbol,
		Price:        price,
		PrevClose:    q.PrevClose,
		GapPct:       GapPct(price, q.PrevClose),
		RVOL:         RVOL(q.Volume, q.AvgVolume),
		Volume:       q.Volume,
		AvgVolume:    q.AvgVolume,
		FloatShares:  floatShares,
		IsHOD:        isHOD,
		HODPrice:     tr.dayHigh,
		Move5Min:     move5,
		Move10Min:    move10,
		HasBreaking:  hasBreaking,
		NewsAgeHours: newsAge,
		Session:      SessionAt(now),
		At:           now,
	}
}

func (c *Classifier) startCooldown(symbol string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tr, ok := c.tracks[symbol]; ok {
		tr.cooldown = now.Add(classifyCooldown)
	}
}

// ResetSession clears per-symbol day highs and price history at session
// open.
func (c *Classifier) ResetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracks = make(map[string]*symbolTrack)
}

// movePct returns the percentage change vs the oldest recorded price at
// least `ago` old, 0 when history does not reach back that far.
func movePct(history []pricePoint, price float64, now time.Time, ago time.Duration) float64 {
	target := now.Add(-ago)
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].at.After(target) {
			base := history[i].price
			if base <= 0 {
				return 0
			}
			return (price - base) / base * 100
		}
	}
	return 0
}
