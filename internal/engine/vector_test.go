package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalscan/internal/domain/models"
)

func TestVectorWarmup(t *testing.T) {
	e := NewVectorEngine()
	now := time.Now().Truncate(time.Minute)

	q := models.LiveQuote{Symbol: "X", Price: 5.00, Volume: 100_000, AvgVolume: 1_000_000}
	_, emit := e.Process(q, now)
	assert.False(t, emit, "no output before warm-up")
}

func TestVectorRisingSeriesEmits(t *testing.T) {
	e := NewVectorEngine()
	start := time.Now().Truncate(15 * time.Minute)

	// Monotonically rising one-minute prints, volume running at twice the
	// average, no spread.
	avg := 1_000_000.0
	var snap models.VectorSnapshot
	emitted := false
	for i := 0; i <= 12; i++ {
		q := models.LiveQuote{
			Symbol:    "X",
			Price:     5.00 * (1 + 0.05*float64(i)),
			Volume:    int64(2*avg) + int64(i)*100_000, // cumulative
			AvgVolume: avg,
		}
		payload, emit := e.Process(q, start.Add(time.Duration(i)*time.Minute))
		if emit {
			emitted = true
			snap = payload.(models.VectorSnapshot)
		}
	}

	require.True(t, emitted)
	assert.Greater(t, snap.Score, 4.0)
	assert.GreaterOrEqual(t, snap.VolQuality, 1.2)
	assert.Equal(t, "LONG", snap.Signal)
}

func TestVectorQualityGate(t *testing.T) {
	e := NewVectorEngine()
	start := time.Now().Truncate(15 * time.Minute)

	// Same rise but volume running below average: quality gate holds.
	for i := 0; i <= 12; i++ {
		q := models.LiveQuote{
			Symbol:    "X",
			Price:     5.00 * (1 + 0.05*float64(i)),
			Volume:    500_000 + int64(i)*10_000, // cumulative, below average
			AvgVolume: 1_000_000,
		}
		_, emit := e.Process(q, start.Add(time.Duration(i)*time.Minute))
		assert.False(t, emit)
	}
}

func TestVolQualitySpreadDamping(t *testing.T) {
	q := models.LiveQuote{Volume: 2_000_000, AvgVolume: 1_000_000, Bid: 4.95, Ask: 5.05}
	// 2x relative volume damped by a 2% spread.
	assert.InDelta(t, 2.0*(1-0.10/5.0), volQuality(&q, 5.0), 1e-9)

	zero := models.LiveQuote{Volume: 1000}
	assert.Zero(t, volQuality(&zero, 5.0))
}

func TestVectorAlignment(t *testing.T) {
	assert.Equal(t, "bullish", alignment(1, 2, 3))
	assert.Equal(t, "bearish", alignment(-1, -2, -3))
	assert.Equal(t, "mixed", alignment(1, -2, 3))
}
