package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalscan/internal/domain/models"
	"signalscan/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordEvent(category, symbol string)      {}
func (nopMetrics) RecordError(kind string)                  {}
func (nopMetrics) RecordLatency(op string, seconds float64) {}
func (nopMetrics) RecordGauge(name string, value float64)   {}

func newTestBus(t *testing.T, size int) *Bus {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return NewBus(size, l, nopMetrics{})
}

func event(cat models.EventCategory, symbol string) models.Event {
	return models.Event{Category: cat, Symbol: symbol, At: time.Now()}
}

func TestBusFIFOWithinCategory(t *testing.T) {
	b := newTestBus(t, 8)
	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		require.True(t, b.Publish(event(models.EventChannel, sym)))
	}

	var got []string
	b.Drain(SinkFunc(func(ev models.Event) { got = append(got, ev.Symbol) }))
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, got)
}

func TestBusDropsWhenFull(t *testing.T) {
	b := newTestBus(t, 2)
	assert.True(t, b.Publish(event(models.EventHalt, "AAA")))
	assert.True(t, b.Publish(event(models.EventHalt, "BBB")))
	assert.False(t, b.Publish(event(models.EventHalt, "CCC")), "third publish overflows")
	assert.Equal(t, 2, b.Depth(models.EventHalt))

	n := b.Drain(SinkFunc(func(models.Event) {}))
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, b.Depth(models.EventHalt))
}

func TestBusCategoriesIndependent(t *testing.T) {
	b := newTestBus(t, 1)
	assert.True(t, b.Publish(event(models.EventChannel, "AAA")))
	assert.True(t, b.Publish(event(models.EventNews, "AAA")), "full channel queue does not block news")
	assert.False(t, b.Publish(event(models.EventChannel, "BBB")))
}

func TestBusDrainCount(t *testing.T) {
	b := newTestBus(t, 16)
	for i := 0; i < 5; i++ {
		b.Publish(event(models.EventVector, "AAA"))
	}
	for i := 0; i < 3; i++ {
		b.Publish(event(models.EventSqueeze, "BBB"))
	}

	assert.Equal(t, 8, b.Drain(SinkFunc(func(models.Event) {})))
	assert.Equal(t, 0, b.Drain(SinkFunc(func(models.Event) {})), "second drain is empty")
}

func TestBusClosedRejectsPublish(t *testing.T) {
	b := newTestBus(t, 8)
	b.Close()
	assert.False(t, b.Publish(event(models.EventChannel, "AAA")))
}

func TestBusDepthUnknownCategory(t *testing.T) {
	b := newTestBus(t, 8)
	assert.Equal(t, 0, b.Depth(models.EventTrend))
}
