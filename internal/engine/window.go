package engine

import "math"

// Ring is a fixed-capacity rolling window of float64 samples. Pushing past
// capacity evicts the oldest sample.
type Ring struct {
	buf  []float64
	head int
	n    int
}

func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]float64, capacity)}
}

func (r *Ring) Push(v float64) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *Ring) Len() int { return r.n }

// At returns the i-th oldest sample, i in [0, Len).
func (r *Ring) At(i int) float64 {
	idx := (r.head - r.n + i + 2*len(r.buf)) % len(r.buf)
	return r.buf[idx]
}

// Last returns the newest sample.
func (r *Ring) Last() float64 {
	return r.At(r.n - 1)
}

// Ago returns the sample k positions before the newest, clamping to the
// oldest available.
func (r *Ring) Ago(k int) float64 {
	i := r.n - 1 - k
	if i < 0 {
		i = 0
	}
	return r.At(i)
}

// Mean averages the newest period samples.
func (r *Ring) Mean(period int) float64 {
	if period > r.n {
		period = r.n
	}
	if period == 0 {
		return 0
	}
	sum := 0.0
	for i := r.n - period; i < r.n; i++ {
		sum += r.At(i)
	}
	return sum / float64(period)
}

// StdDev is the population standard deviation of the newest period samples.
func (r *Ring) StdDev(period int) float64 {
	if period > r.n {
		period = r.n
	}
	if period < 2 {
		return 0
	}
	mean := r.Mean(period)
	sum := 0.0
	for i := r.n - period; i < r.n; i++ {
		d := r.At(i) - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period))
}

// ATR computes the average true range over the newest period bars from
// parallel high/low/close rings.
func ATR(highs, lows, closes *Ring, period int) float64 {
	n := closes.Len()
	if n < 2 {
		return 0
	}
	if period > n-1 {
		period = n - 1
	}
	sum := 0.0
	for i := n - period; i < n; i++ {
		h, l, prevC := highs.At(i), lows.At(i), closes.At(i-1)
		tr := h - l
		if d := math.Abs(h - prevC); d > tr {
			tr = d
		}
		if d := math.Abs(l - prevC); d > tr {
			tr = d
		}
		sum += tr
	}
	return sum / float64(period)
}

// EMA computes an exponential moving average over all samples in the ring
// with the given period's smoothing factor.
func EMA(r *Ring, period int) float64 {
	if r.Len() == 0 {
		return 0
	}
	k := 2.0 / float64(period+1)
	ema := r.At(0)
	for i := 1; i < r.Len(); i++ {
		ema = r.At(i)*k + ema*(1-k)
	}
	return ema
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
