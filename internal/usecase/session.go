package usecase

import (
	"time"

	"signalscan/internal/domain/models"
)

// Exchange-local session boundaries, minutes since midnight ET.
const (
	premarketOpenMin = 4 * 60    // 04:00
	regularOpenMin   = 9*60 + 30 // 09:30
	regularCloseMin  = 16 * 60   // 16:00
	afterHoursEndMin = 20 * 60   // 20:00
)

var etZone = mustLoadET()

func mustLoadET() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return loc
}

// SessionAt maps a timestamp to the exchange-local trading session.
func SessionAt(t time.Time) models.Session {
	et := t.In(etZone)
	if wd := et.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return models.SessionClosed
	}
	mins := et.Hour()*60 + et.Minute()
	switch {
	case mins >= premarketOpenMin && mins < regularOpenMin:
		return models.SessionPremarket
	case mins >= regularOpenMin && mins < regularCloseMin:
		return models.SessionRegular
	case mins >= regularCloseMin && mins < afterHoursEndMin:
		return models.SessionAfterHours
	default:
		return models.SessionClosed
	}
}

// SameTradingDay reports whether both timestamps fall on the same
// exchange-local calendar date.
func SameTradingDay(a, b time.Time) bool {
	ay, am, ad := a.In(etZone).Date()
	by, bm, bd := b.In(etZone).Date()
	return ay == by && am == bm && ad == bd
}
