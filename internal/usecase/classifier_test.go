package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalscan/internal/dispatch"
	"signalscan/internal/domain/models"
)

type fakeBreaking struct {
	age float64
	ok  bool
}

func (f fakeBreaking) Breaking(symbol string) (float64, bool) { return f.age, f.ok }

func drainChannels(bus *dispatch.Bus) []models.ChannelAssignment {
	var out []models.ChannelAssignment
	bus.Drain(dispatch.SinkFunc(func(ev models.Event) {
		if a, ok := ev.Payload.(models.ChannelAssignment); ok {
			out = append(out, a)
		}
	}))
	return out
}

// premarketClock pins the classifier to a premarket Monday and advances it
// manually.
func premarketClock(t *testing.T) (func() time.Time, func(d time.Duration)) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	cur := time.Date(2026, 1, 5, 8, 0, 0, 0, loc)
	return func() time.Time { return cur }, func(d time.Duration) { cur = cur.Add(d) }
}

func TestClassifierEmitsPreGap(t *testing.T) {
	bus := testBus(t)
	c := NewClassifier(fakeBreaking{}, bus, nopMetrics{}, testLogger(t))
	clock, _ := premarketClock(t)
	c.now = clock

	c.Handle(models.LiveQuote{
		Symbol:    "X",
		Price:     5.00,
		PrevClose: 4.00,
		Volume:    3_000_000,
		AvgVolume: 1_000_000,
	})

	got := drainChannels(bus)
	require.Len(t, got, 1)
	assert.Equal(t, models.ChannelPreGap, got[0].Channel)
	assert.InDelta(t, 25.0, got[0].Snapshot.GapPct, 1e-9)
	assert.InDelta(t, 3.0, got[0].Snapshot.RVOL, 1e-9)
}

func TestClassifierFloatDefaultApplied(t *testing.T) {
	bus := testBus(t)
	c := NewClassifier(fakeBreaking{}, bus, nopMetrics{}, testLogger(t))
	clock, _ := premarketClock(t)
	c.now = clock

	c.Handle(models.LiveQuote{
		Symbol:    "X",
		Price:     5.00,
		PrevClose: 4.00,
		Volume:    3_000_000,
		AvgVolume: 1_000_000,
		// FloatShares unset: defaults below the PreGap cap.
	})

	got := drainChannels(bus)
	require.Len(t, got, 1)
	assert.InDelta(t, defaultFloatShares, got[0].Snapshot.FloatShares, 1)
}

func TestClassifierCooldownOnNoMatch(t *testing.T) {
	bus := testBus(t)
	c := NewClassifier(fakeBreaking{}, bus, nopMetrics{}, testLogger(t))
	clock, advance := premarketClock(t)
	c.now = clock

	dull := models.LiveQuote{Symbol: "X", Price: 5.00, PrevClose: 5.00,
		Volume: 1000, AvgVolume: 1_000_000}
	c.Handle(dull)
	assert.Empty(t, drainChannels(bus))

	// Even a now-qualifying update inside the cooldown window is skipped.
	hot := models.LiveQuote{Symbol: "X", Price: 6.25, PrevClose: 5.00,
		Volume: 3_000_000, AvgVolume: 1_000_000}
	advance(10 * time.Second)
	c.Handle(hot)
	assert.Empty(t, drainChannels(bus))

	advance(60 * time.Second)
	c.Handle(hot)
	assert.Len(t, drainChannels(bus), 1)
}

func TestClassifierHODTracking(t *testing.T) {
	bus := testBus(t)
	c := NewClassifier(fakeBreaking{}, bus, nopMetrics{}, testLogger(t))
	loc, _ := time.LoadLocation("America/New_York")
	cur := time.Date(2026, 1, 5, 10, 0, 0, 0, loc) // regular session
	c.now = func() time.Time { return cur }

	q := models.LiveQuote{Symbol: "X", Price: 5.00, PrevClose: 4.00,
		Volume: 6_000_000, AvgVolume: 1_000_000, FloatShares: 40e6}

	// First print seeds the high; is_hod requires exceeding a prior high.
	c.Handle(q)
	first := drainChannels(bus)
	for _, a := range first {
		assert.False(t, a.Snapshot.IsHOD)
	}

	cur = cur.Add(2 * time.Minute)
	q.Price = 5.50
	c.Handle(q)
	got := drainChannels(bus)
	require.NotEmpty(t, got)
	assert.True(t, got[0].Snapshot.IsHOD)
	assert.Equal(t, models.ChannelHighOfDay, got[0].Channel)
	assert.InDelta(t, 5.50, got[0].Snapshot.HODPrice, 1e-9)
}

func TestClassifierBreakingNewsWins(t *testing.T) {
	bus := testBus(t)
	c := NewClassifier(fakeBreaking{age: 0.25, ok: true}, bus, nopMetrics{}, testLogger(t))
	clock, _ := premarketClock(t)
	c.now = clock

	c.Handle(models.LiveQuote{Symbol: "X", Price: 5.00, PrevClose: 4.00,
		Volume: 3_000_000, AvgVolume: 1_000_000})

	got := drainChannels(bus)
	require.Len(t, got, 1)
	assert.Equal(t, models.ChannelBreakingNews, got[0].Channel)
}

func TestMovePctWindow(t *testing.T) {
	now := time.Now()
	history := []pricePoint{
		{at: now.Add(-12 * time.Minute), price: 4.00},
		{at: now.Add(-6 * time.Minute), price: 4.40},
		{at: now.Add(-2 * time.Minute), price: 4.80},
	}
	assert.InDelta(t, (5.0-4.40)/4.40*100, movePct(history, 5.0, now, 5*time.Minute), 1e-9)
	assert.InDelta(t, (5.0-4.00)/4.00*100, movePct(history, 5.0, now, 10*time.Minute), 1e-9)
	assert.Zero(t, movePct(nil, 5.0, now, 5*time.Minute))
}
