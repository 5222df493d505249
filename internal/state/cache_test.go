package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalscan/internal/domain/models"
)

func TestApplyQuoteMergesPartialFields(t *testing.T) {
	c := NewMarketCache()
	now := time.Now()

	c.ApplyQuote(models.QuoteUpdate{Symbol: "AAA", Bid: 4.95, Ask: 5.05, BidSize: 100, AskSize: 200, At: now})
	// A bid-only update must not clear the ask side.
	q := c.ApplyQuote(models.QuoteUpdate{Symbol: "AAA", Bid: 4.98, At: now.Add(time.Second)})

	assert.Equal(t, 4.98, q.Bid)
	assert.Equal(t, 5.05, q.Ask)
	assert.Equal(t, int64(200), q.AskSize)
}

func TestApplyTradeAccumulatesVolume(t *testing.T) {
	c := NewMarketCache()
	now := time.Now()

	c.ApplyTrade(models.TradeUpdate{Symbol: "AAA", Price: 5.00, Size: 300, At: now})
	q := c.ApplyTrade(models.TradeUpdate{Symbol: "AAA", Price: 5.10, Size: 200, At: now.Add(time.Second)})

	assert.Equal(t, 5.10, q.Price)
	assert.Equal(t, int64(500), q.Volume)
}

func TestTradeDoesNotClobberQuoteSide(t *testing.T) {
	c := NewMarketCache()
	now := time.Now()

	c.ApplyQuote(models.QuoteUpdate{Symbol: "AAA", Bid: 4.95, Ask: 5.05, At: now})
	q := c.ApplyTrade(models.TradeUpdate{Symbol: "AAA", Price: 5.00, Size: 100, At: now})

	assert.Equal(t, 4.95, q.Bid)
	assert.Equal(t, 5.05, q.Ask)
}

func TestDayHighLowTracking(t *testing.T) {
	c := NewMarketCache()
	now := time.Now()

	for _, p := range []float64{5.00, 5.40, 5.20, 4.80, 5.10} {
		c.ApplyTrade(models.TradeUpdate{Symbol: "AAA", Price: p, Size: 100, At: now})
	}

	q, ok := c.Get("AAA")
	require.True(t, ok)
	assert.Equal(t, 5.40, q.High)
	assert.Equal(t, 4.80, q.Low)
}

func TestSetReferenceIgnoresZeroes(t *testing.T) {
	c := NewMarketCache()
	c.SetReference("AAA", 5.00, 750000, 20e6)
	c.SetReference("AAA", 0, 0, 0)

	q, ok := c.Get("AAA")
	require.True(t, ok)
	assert.Equal(t, 5.00, q.PrevClose)
	assert.Equal(t, 750000.0, q.AvgVolume)
	assert.Equal(t, 20e6, q.FloatShares)
}

func TestResetSessionClearsSessionFields(t *testing.T) {
	c := NewMarketCache()
	now := time.Now()
	c.ApplyTrade(models.TradeUpdate{Symbol: "AAA", Price: 5.00, Size: 1000, At: now})
	c.SetReference("AAA", 4.50, 750000, 0)

	c.ResetSession(now.Add(time.Hour))

	q, _ := c.Get("AAA")
	assert.Zero(t, q.Volume)
	assert.Zero(t, q.High)
	assert.Zero(t, q.Low)
	assert.Equal(t, 5.00, q.Price, "last price survives the reset")
	assert.Equal(t, 4.50, q.PrevClose, "reference data survives the reset")
}

func TestRemoveAndSnapshot(t *testing.T) {
	c := NewMarketCache()
	now := time.Now()
	c.ApplyTrade(models.TradeUpdate{Symbol: "AAA", Price: 5.00, Size: 1, At: now})
	c.ApplyTrade(models.TradeUpdate{Symbol: "BBB", Price: 6.00, Size: 1, At: now})

	c.Remove("AAA")

	assert.Equal(t, []string{"BBB"}, c.Symbols())
	snap := c.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "BBB", snap[0].Symbol)

	_, ok := c.Get("AAA")
	assert.False(t, ok)
}

func TestRestoreSeedsState(t *testing.T) {
	c := NewMarketCache()
	c.Restore(models.LiveQuote{Symbol: "AAA", Price: 5.00, Volume: 1234, PrevClose: 4.80})

	q, ok := c.Get("AAA")
	require.True(t, ok)
	assert.Equal(t, int64(1234), q.Volume)
	assert.Equal(t, 4.80, q.PrevClose)
}
