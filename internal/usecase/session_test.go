package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"signalscan/internal/domain/models"
)

func etTime(t *testing.T, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	// 2026-01-05 is a Monday.
	return time.Date(2026, 1, 5, hour, min, 0, 0, loc)
}

func TestSessionBoundaries(t *testing.T) {
	cases := []struct {
		hour, min int
		want      models.Session
	}{
		{3, 59, models.SessionClosed},
		{4, 0, models.SessionPremarket},
		{9, 29, models.SessionPremarket},
		{9, 30, models.SessionRegular},
		{15, 59, models.SessionRegular},
		{16, 0, models.SessionAfterHours},
		{19, 59, models.SessionAfterHours},
		{20, 0, models.SessionClosed},
	}
	for _, tc := range cases {
		got := SessionAt(etTime(t, tc.hour, tc.min))
		assert.Equalf(t, tc.want, got, "%02d:%02d", tc.hour, tc.min)
	}
}

func TestSessionWeekendClosed(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	saturday := time.Date(2026, 1, 3, 10, 0, 0, 0, loc)
	assert.Equal(t, models.SessionClosed, SessionAt(saturday))
}

func TestSameTradingDay(t *testing.T) {
	a := etTime(t, 9, 30)
	b := etTime(t, 15, 0)
	assert.True(t, SameTradingDay(a, b))
	assert.False(t, SameTradingDay(a, b.AddDate(0, 0, 1)))
}
