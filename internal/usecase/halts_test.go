package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/internal/store"
)

type fakeHaltSource struct {
	name     string
	priority int
	recs     []models.HaltRecord
	err      error
}

func (f *fakeHaltSource) Name() string  { return f.name }
func (f *fakeHaltSource) Priority() int { return f.priority }
func (f *fakeHaltSource) Fetch(ctx context.Context) ([]models.HaltRecord, error) {
	return f.recs, f.err
}

func newTestReconciler(t *testing.T, sources ...*fakeHaltSource) *HaltReconciler {
	t.Helper()
	srcs := make([]repository.HaltSource, len(sources))
	for i, s := range sources {
		srcs[i] = s
	}
	return NewHaltReconciler(srcs, store.NewMemoryStore(), testBus(t), nopMetrics{}, testLogger(t), time.Minute)
}

func TestResumeRequiresLaterTimestamp(t *testing.T) {
	h := newTestReconciler(t)
	now := time.Now()
	h.now = func() time.Time { return now }

	haltAt := now.Add(-30 * time.Minute)
	early := haltAt.Add(-time.Minute)

	h.Reconcile(map[string]models.HaltRecord{
		"Y": {Symbol: "Y", Status: models.HaltStatusHalted, HaltTime: haltAt, ResumeTime: &early},
	})
	assert.True(t, h.IsHalted("Y"), "premature resume must leave symbol halted")

	late := haltAt.Add(10 * time.Minute)
	h.Reconcile(map[string]models.HaltRecord{
		"Y": {Symbol: "Y", Status: models.HaltStatusResumed, HaltTime: haltAt, ResumeTime: &late},
	})
	assert.False(t, h.IsHalted("Y"))
}

func TestTableSourceOverridesRSS(t *testing.T) {
	now := time.Now()
	haltAt := now.Add(-time.Hour)
	resumeAt := haltAt.Add(20 * time.Minute)

	rss := &fakeHaltSource{name: "rss", priority: 1, recs: []models.HaltRecord{
		{Symbol: "Y", Status: models.HaltStatusHalted, HaltTime: haltAt, Source: "rss"},
	}}
	table := &fakeHaltSource{name: "table", priority: 2, recs: []models.HaltRecord{
		{Symbol: "Y", Status: models.HaltStatusResumed, HaltTime: haltAt, ResumeTime: &resumeAt, Source: "table"},
	}}

	h := newTestReconciler(t, table, rss) // constructor sorts by priority
	h.now = func() time.Time { return now }
	h.poll(context.Background())

	assert.False(t, h.IsHalted("Y"), "table resume must win over rss halt")
}

func TestStaleDayEntriesDiscarded(t *testing.T) {
	h := newTestReconciler(t)
	now := time.Now()
	h.now = func() time.Time { return now }

	h.Reconcile(map[string]models.HaltRecord{
		"Z": {Symbol: "Z", Status: models.HaltStatusHalted, HaltTime: now.AddDate(0, 0, -2)},
	})
	assert.False(t, h.IsHalted("Z"))
}

func TestReHaltUpdatesRecord(t *testing.T) {
	h := newTestReconciler(t)
	now := time.Now()
	h.now = func() time.Time { return now }

	first := now.Add(-2 * time.Hour)
	h.Reconcile(map[string]models.HaltRecord{
		"Q": {Symbol: "Q", Status: models.HaltStatusHalted, HaltTime: first, Reason: "LUDP"},
	})

	second := now.Add(-10 * time.Minute)
	h.Reconcile(map[string]models.HaltRecord{
		"Q": {Symbol: "Q", Status: models.HaltStatusHalted, HaltTime: second, Reason: "T1"},
	})

	active := h.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "T1", active[0].Reason)
	assert.True(t, active[0].HaltTime.Equal(second))
}

func TestFailingSourceSkipped(t *testing.T) {
	now := time.Now()
	haltAt := now.Add(-time.Hour)

	bad := &fakeHaltSource{name: "rss", priority: 1, err: context.DeadlineExceeded}
	good := &fakeHaltSource{name: "table", priority: 2, recs: []models.HaltRecord{
		{Symbol: "W", Status: models.HaltStatusHalted, HaltTime: haltAt},
	}}

	h := newTestReconciler(t, bad, good)
	h.now = func() time.Time { return now }
	h.poll(context.Background())

	assert.True(t, h.IsHalted("W"))
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	mem := store.NewMemoryStore()
	h := NewHaltReconciler(nil, mem, testBus(t), nopMetrics{}, testLogger(t), time.Minute)
	now := time.Now()
	h.now = func() time.Time { return now }

	h.Reconcile(map[string]models.HaltRecord{
		"A": {Symbol: "A", Status: models.HaltStatusHalted, HaltTime: now.Add(-time.Hour)},
	})
	h.Persist(context.Background())

	h2 := NewHaltReconciler(nil, mem, testBus(t), nopMetrics{}, testLogger(t), time.Minute)
	require.NoError(t, h2.Restore(context.Background()))
	assert.True(t, h2.IsHalted("A"))
}

func TestForeignListingsSkipped(t *testing.T) {
	h := newTestReconciler(t)
	now := time.Now()
	h.now = func() time.Time { return now }

	haltAt := now.Add(-10 * time.Minute)
	h.Reconcile(map[string]models.HaltRecord{
		"ABC.TO": {Symbol: "ABC.TO", Status: models.HaltStatusHalted, HaltTime: haltAt},
		"TSX:XY": {Symbol: "TSX:XY", Status: models.HaltStatusHalted, HaltTime: haltAt},
		"USA":    {Symbol: "USA", Status: models.HaltStatusHalted, HaltTime: haltAt},
	})

	assert.False(t, h.IsHalted("ABC.TO"))
	assert.False(t, h.IsHalted("TSX:XY"))
	assert.True(t, h.IsHalted("USA"))
}
