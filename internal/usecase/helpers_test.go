package usecase

import (
	"testing"

	"signalscan/internal/dispatch"
	"signalscan/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordEvent(category, symbol string)      {}
func (nopMetrics) RecordError(kind string)                  {}
func (nopMetrics) RecordLatency(op string, seconds float64) {}
func (nopMetrics) RecordGauge(name string, value float64)   {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testBus(t *testing.T) *dispatch.Bus {
	t.Helper()
	return dispatch.NewBus(64, testLogger(t), nopMetrics{})
}
