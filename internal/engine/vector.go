package engine

import (
	"math"
	"time"

	"signalscan/internal/domain/models"
)

// Vector thresholds and weights.
const (
	vectorEmitScore   = 4.0
	vectorMinQuality  = 1.2
	vectorWarmupBars  = 5 // one-minute bars
	vectorWeight1Min  = 0.5
	vectorWeight5Min  = 0.3
	vectorWeight15Min = 0.2
)

// vwapFrame holds one timeframe's VWAP accumulator and trailing VWAP ring.
type vwapFrame struct {
	barLen   time.Duration
	barStart time.Time
	pvSum    float64 // sum(price*volume) within the open bar
	volSum   float64
	lastVol  int64 // cumulative session volume at last sample
	vwaps    *Ring
	barsSeen int
}

func newVWAPFrame(barLen time.Duration, ringSize int) *vwapFrame {
	return &vwapFrame{barLen: barLen, vwaps: NewRing(ringSize)}
}

// sample folds the latest print into the open bar, rolling the bar over
// when its window elapses.
func (f *vwapFrame) sample(price float64, cumVolume int64, now time.Time) {
	dv := cumVolume - f.lastVol
	if dv < 0 {
		dv = 0 // session reset
	}
	f.lastVol = cumVolume

	if f.barStart.IsZero() {
		f.barStart = now.Truncate(f.barLen)
	}
	if now.Sub(f.barStart) >= f.barLen {
		if f.volSum > 0 {
			f.vwaps.Push(f.pvSum / f.volSum)
		} else if f.vwaps.Len() > 0 {
			f.vwaps.Push(f.vwaps.Last())
		}
		f.barsSeen++
		f.pvSum, f.volSum = 0, 0
		f.barStart = now.Truncate(f.barLen)
	}

	f.pvSum += price * float64(dv)
	f.volSum += float64(dv)
}

// score converts the trailing VWAP slope to an arctangent-bounded ±10
// momentum score.
func (f *vwapFrame) score() float64 {
	if f.vwaps.Len() < 2 {
		return 0
	}
	prev, last := f.vwaps.Ago(1), f.vwaps.Last()
	if prev <= 0 {
		return 0
	}
	slopePct := (last - prev) / prev * 100
	return math.Atan(slopePct) / (math.Pi / 2) * 10
}

type vectorState struct {
	frames [3]*vwapFrame
}

// VectorEngine scores multi-timeframe VWAP momentum weighted toward the
// shortest frame, gated by a volume-quality check.
type VectorEngine struct {
	symbols map[string]*vectorState
}

func NewVectorEngine() *VectorEngine {
	return &VectorEngine{symbols: make(map[string]*vectorState)}
}

func (e *VectorEngine) Name() string                   { return "vector" }
func (e *VectorEngine) Category() models.EventCategory { return models.EventVector }

func (e *VectorEngine) Reset() {
	e.symbols = make(map[string]*vectorState)
}

func (e *VectorEngine) Process(q models.LiveQuote, now time.Time) (any, bool) {
	price := q.EffectivePrice()
	if price <= 0 {
		return nil, false
	}

	st, ok := e.symbols[q.Symbol]
	if !ok {
		st = &vectorState{frames: [3]*vwapFrame{
			newVWAPFrame(time.Minute, 20),
			newVWAPFrame(5*time.Minute, 50),
			newVWAPFrame(15*time.Minute, 100),
		}}
		e.symbols[q.Symbol] = st
	}

	for _, f := range st.frames {
		f.sample(price, q.Volume, now)
	}

	if st.frames[0].barsSeen < vectorWarmupBars {
		return nil, false
	}

	s1 := st.frames[0].score()
	s5 := st.frames[1].score()
	s15 := st.frames[2].score()
	composite := s1*vectorWeight1Min + s5*vectorWeight5Min + s15*vectorWeight15Min

	quality := volQuality(&q, price)

	if math.Abs(composite) < vectorEmitScore || quality < vectorMinQuality {
		return nil, false
	}

	vwap := 0.0
	if st.frames[0].vwaps.Len() > 0 {
		vwap = st.frames[0].vwaps.Last()
	}

	signal := "LONG"
	if composite < 0 {
		signal = "SHORT"
	}

	return models.VectorSnapshot{
		Symbol:       q.Symbol,
		Price:        price,
		Score:        composite,
		Score1Min:    s1,
		Score5Min:    s5,
		Score15Min:   s15,
		MTFAlignment: alignment(s1, s5, s15),
		VolQuality:   quality,
		VWAP:         vwap,
		VWAPDistance: vwapDistance(price, vwap),
		Signal:       signal,
		At:           now,
	}, true
}

// volQuality scores participation: relative volume damped by how wide the
// spread is relative to price.
func volQuality(q *models.LiveQuote, price float64) float64 {
	if q.AvgVolume <= 0 || price <= 0 {
		return 0
	}
	rel := float64(q.Volume) / q.AvgVolume
	damp := 1 - q.Spread()/price
	if damp < 0 {
		damp = 0
	}
	return rel * damp
}

func vwapDistance(price, vwap float64) float64 {
	if vwap <= 0 {
		return 0
	}
	return (price - vwap) / vwap * 100
}

// alignment labels whether the per-timeframe scores agree in direction.
func alignment(s1, s5, s15 float64) string {
	pos := 0
	for _, s := range []float64{s1, s5, s15} {
		if s > 0 {
			pos++
		}
	}
	switch pos {
	case 3:
		return "bullish"
	case 0:
		return "bearish"
	default:
		return "mixed"
	}
}
