package engine

import (
	"time"

	"signalscan/internal/domain/models"
)

// Squeeze thresholds.
const (
	squeezeWarmupBars   = 26
	squeezeMinIntensity = 0.4
	squeezeFiredHold    = 15 * time.Second
	squeezeRingSize     = 64
)

// squeezeParams are the band parameters for one volatility regime.
type squeezeParams struct {
	bbMult float64
	kcMult float64
	period int
}

// adaptParams picks band parameters from ATR as a percent of price: tight
// bands in quiet tape, wide bands in fast tape.
func adaptParams(atrPct float64) squeezeParams {
	switch {
	case atrPct < 2.0:
		return squeezeParams{bbMult: 1.5, kcMult: 1.0, period: 15}
	case atrPct > 5.0:
		return squeezeParams{bbMult: 2.5, kcMult: 2.0, period: 25}
	default:
		return squeezeParams{bbMult: 2.0, kcMult: 1.5, period: 20}
	}
}

type squeezeSymbol struct {
	closes *Ring
	highs  *Ring
	lows   *Ring

	state       models.SqueezeState
	barsCoiling int
	firedAt     time.Time
}

// SqueezeEngine detects volatility compression: Bollinger bands fully inside
// the Keltner channel arm the setup, the release bar fires it.
type SqueezeEngine struct {
	symbols map[string]*squeezeSymbol
}

func NewSqueezeEngine() *SqueezeEngine {
	return &SqueezeEngine{symbols: make(map[string]*squeezeSymbol)}
}

func (e *SqueezeEngine) Name() string                   { return "squeeze" }
func (e *SqueezeEngine) Category() models.EventCategory { return models.EventSqueeze }

func (e *SqueezeEngine) Reset() {
	e.symbols = make(map[string]*squeezeSymbol)
}

func (e *SqueezeEngine) Process(q models.LiveQuote, now time.Time) (any, bool) {
	price := q.EffectivePrice()
	if price <= 0 {
		return nil, false
	}

	st, ok := e.symbols[q.Symbol]
	if !ok {
		st = &squeezeSymbol{
			closes: NewRing(squeezeRingSize),
			highs:  NewRing(squeezeRingSize),
			lows:   NewRing(squeezeRingSize),
			state:  models.SqueezeIdle,
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

	if st.closes.Len() < squeezeWarmupBars {
		return nil, false
	}

	atr := ATR(st.highs, st.lows, st.closes, 14)
	if atr <= 0 {
		return nil, false
	}
	params := adaptParams(atr / price * 100)

	mean := st.closes.Mean(params.period)
	sd := st.closes.StdDev(params.period)
	bbUpper := mean + params.bbMult*sd
	bbLower := mean - params.bbMult*sd
	kcUpper := mean + params.kcMult*atr
	kcLower := mean - params.kcMult*atr

	squeezeOn := bbUpper < kcUpper && bbLower > kcLower

	bbWidth := bbUpper - bbLower
	kcWidth := kcUpper - kcLower
	intensity := (kcWidth - bbWidth) / atr
	if intensity < 0 {
		intensity = 0
	}

	histogram := EMA(st.closes, 12) - EMA(st.closes, 26)

	prev := st.state
	switch prev {
	case models.SqueezeIdle:
		if squeezeOn {
			st.state = models.SqueezeCoiling
			st.barsCoiling = 1
		}
	case models.SqueezeCoiling:
		if squeezeOn {
			st.barsCoiling++
		} else {
			st.state = models.SqueezeFired
			st.firedAt = now
		}
	case models.SqueezeFired:
		if now.Sub(st.firedAt) >= squeezeFiredHold {
			st.state = models.SqueezeIdle
			st.barsCoiling = 0
			if squeezeOn {
				st.state = models.SqueezeCoiling
				st.barsCoiling = 1
			}
		}
	}

	emit := false
	switch st.state {
	case models.SqueezeCoiling:
		emit = intensity >= squeezeMinIntensity
	case models.SqueezeFired:
		// Fired emits once, on the release bar.
		emit = prev == models.SqueezeCoiling
	}
	if !emit {
		return nil, false
	}

	setup := "compression"
	if st.state == models.SqueezeFired {
		if histogram >= 0 {
			setup = "breakout long"
		} else {
			setup = "breakout short"
		}
	}

	return models.SqueezeSnapshot{
		Symbol:      q.Symbol,
		Price:       price,
		State:       st.state,
		BarsCoiling: st.barsCoiling,
		Intensity:   intensity,
		Histogram:   histogram,
		BBWidth:     bbWidth,
		KCWidth:     kcWidth,
		Setup:       setup,
		At:          now,
	}, true
}
