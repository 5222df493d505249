package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalscan/internal/domain/models"
	"signalscan/internal/state"
	"signalscan/internal/store"
)

// fakeStream records subscription traffic so tests can assert on the exact
// delta sent to the provider.
type fakeStream struct {
	subscribed   [][]string
	unsubscribed [][]string
}

func (f *fakeStream) Connect(ctx context.Context) error { return nil }

func (f *fakeStream) Subscribe(ctx context.Context, symbols []string) error {
	f.subscribed = append(f.subscribed, symbols)
	return nil
}

func (f *fakeStream) Unsubscribe(ctx context.Context, symbols []string) error {
	f.unsubscribed = append(f.unsubscribed, symbols)
	return nil
}

func (f *fakeStream) Read(ctx context.Context) (<-chan models.QuoteUpdate, <-chan models.TradeUpdate, <-chan error) {
	return nil, nil, nil
}

func (f *fakeStream) Reconnect(ctx context.Context) error { return nil }
func (f *fakeStream) Close() error                        { return nil }
func (f *fakeStream) IsConnected() bool                   { return true }

func newTestTier2(t *testing.T) (*Tier2, *fakeStream, *state.MarketCache) {
	t.Helper()
	stream := &fakeStream{}
	cache := state.NewMarketCache()
	tier2 := NewTier2(stream, nil, store.NewMemoryStore(), cache, nopMetrics{}, testLogger(t), Tier2Config{})
	return tier2, stream, cache
}

func TestSetCandidatesSubscribesOnlyDelta(t *testing.T) {
	tier2, stream, cache := newTestTier2(t)
	ctx := context.Background()

	tier2.SetCandidates(ctx, []models.CandidateEntry{
		{Symbol: "AAA", AvgVolume: 1e6},
		{Symbol: "BBB", AvgVolume: 2e6},
	})
	require.Len(t, stream.subscribed, 1)
	assert.ElementsMatch(t, []string{"AAA", "BBB"}, stream.subscribed[0])
	assert.Empty(t, stream.unsubscribed)

	// A second scan keeps BBB, drops AAA, adds CCC. Only the changes go
	// over the wire.
	tier2.SetCandidates(ctx, []models.CandidateEntry{
		{Symbol: "BBB", AvgVolume: 2e6},
		{Symbol: "CCC", AvgVolume: 3e6},
	})
	require.Len(t, stream.subscribed, 2)
	assert.Equal(t, []string{"CCC"}, stream.subscribed[1])
	require.Len(t, stream.unsubscribed, 1)
	assert.Equal(t, []string{"AAA"}, stream.unsubscribed[0])

	assert.ElementsMatch(t, []string{"BBB", "CCC"}, cache.Symbols())
}

func TestSetCandidatesUnchangedListIsQuiet(t *testing.T) {
	tier2, stream, _ := newTestTier2(t)
	ctx := context.Background()

	list := []models.CandidateEntry{{Symbol: "AAA", AvgVolume: 1e6}}
	tier2.SetCandidates(ctx, list)
	tier2.SetCandidates(ctx, list)

	require.Len(t, stream.subscribed, 1, "identical list must not re-subscribe")
	assert.Empty(t, stream.unsubscribed)
}

func TestSetCandidatesSeedsAvgVolume(t *testing.T) {
	tier2, _, cache := newTestTier2(t)

	tier2.SetCandidates(context.Background(), []models.CandidateEntry{
		{Symbol: "AAA", AvgVolume: 5e5},
	})

	q, ok := cache.Get("AAA")
	require.True(t, ok)
	assert.Equal(t, 5e5, q.AvgVolume)
}
