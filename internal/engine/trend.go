package engine

import (
	"math"
	"time"

	"signalscan/internal/domain/models"
)

// Trend thresholds.
const (
	trendWarmupBars  = 20
	trendEmitMin     = 1.5
	trendStrengthCap = 3.0
	trendRingSize    = 64

	// Kalman noise terms. Process noise scales with the selected model;
	// observation noise is fixed.
	trendProcessNoise = 0.001
	trendObsNoise     = 0.01
)

type trendSymbol struct {
	closes    *Ring
	highs     *Ring
	lows      *Ring
	estimates *Ring

	mu   float64 // state estimate
	beta float64 // drift estimate
	p    float64 // estimate variance
	init bool
}

// TrendEngine runs a scalar Kalman filter with random-walk drift per symbol.
// The process-noise model is auto-selected from the bar's range and volume
// character each tick.
type TrendEngine struct {
	symbols map[string]*trendSymbol
}

func NewTrendEngine() *TrendEngine {
	return &TrendEngine{symbols: make(map[string]*trendSymbol)}
}

func (e *TrendEngine) Name() string                   { return "trend" }
func (e *TrendEngine) Category() models.EventCategory { return models.EventTrend }

func (e *TrendEngine) Reset() {
	e.symbols = make(map[string]*trendSymbol)
}

// selectModel picks the process-noise model: Standard for a narrow high-low
// range, Vol-Adj for elevated relative volume, Parkinson for a wide range.
func selectModel(hlRangePct, volRatio float64) (models.TrendModel, float64) {
	switch {
	case hlRangePct < 2.0:
		return models.TrendModelStandard, trendProcessNoise
	case volRatio > 1.5:
		return models.TrendModelVolAdj, trendProcessNoise * (1 + volRatio)
	default:
		return models.TrendModelParkinson, trendProcessNoise * (1 + hlRangePct)
	}
}

func (e *TrendEngine) Process(q models.LiveQuote, now time.Time) (any, bool) {
	price := q.EffectivePrice()
	if price <= 0 {
		return nil, false
	}

	st, ok := e.symbols[q.Symbol]
	if !ok {
		st = &trendSymbol{
			closes:    NewRing(trendRingSize),
			highs:     NewRing(trendRingSize),
			lows:      NewRing(trendRingSize),
			estimates: NewRing(trendRingSize),
		}
		e.symbols[q.Symbol] = st
	}

	st.closes.Push(price)
	high, low := q.High, q.Low
	if high <= 0 {
		high = price
	}
	if low <= 0 {
		low = price
	}
	st.highs.Push(high)
	st.lows.Push(low)

	hlRangePct := 0.0
	if price > 0 {
		hlRangePct = (high - low) / price * 100
	}
	volRatio := 0.0
	if q.AvgVolume > 0 {
		volRatio = float64(q.Volume) / q.AvgVolume
	}
	model, qNoise := selectModel(hlRangePct, volRatio)

	if !st.init {
		st.mu = price
		st.p = 1.0
		st.init = true
	}

	// Predict with drift, then correct.
	predicted := st.mu + st.beta
	st.p += qNoise
	gain := st.p / (st.p + trendObsNoise)
	st.mu = predicted + gain*(price-predicted)
	st.p *= 1 - gain
	st.beta = 0.9*st.beta + 0.1*(st.mu-predicted)

	st.estimates.Push(st.mu)

	if st.closes.Len() < trendWarmupBars {
		return nil, false
	}

	atr := ATR(st.highs, st.lows, st.closes, 14)
	if atr <= 0 {
		return nil, false
	}

	strength := Clamp((st.mu-st.estimates.Ago(trendWarmupBars))/atr,
		-trendStrengthCap, trendStrengthCap)

	sd := math.Sqrt(st.p)
	var confidence models.TrendConfidence
	dist := math.Abs(price - st.mu)
	switch {
	case sd <= 0 || dist/sd < 1:
		confidence = models.TrendConfidenceHigh
	case dist/sd < 2:
		confidence = models.TrendConfidenceMed
	default:
		confidence = models.TrendConfidenceLow
	}

	if math.Abs(strength) < trendEmitMin || confidence == models.TrendConfidenceLow {
		return nil, false
	}

	direction := "up"
	signal := "LONG"
	if strength < 0 {
		direction = "down"
		signal = "SHORT"
	}

	return models.TrendSnapshot{
		Symbol:     q.Symbol,
		Price:      price,
		Estimate:   st.mu,
		Strength:   strength,
		Model:      model,
		Confidence: confidence,
		UpperBand:  st.mu + 2*sd,
		LowerBand:  st.mu - 2*sd,
		Direction:  direction,
		Signal:     signal,
		At:         now,
	}, true
}
