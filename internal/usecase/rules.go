package usecase

import (
	"math"

	"signalscan/internal/domain/models"
)

// Channel thresholds. Rules are evaluated in strict priority order and the
// first match wins, so at most one channel fires per snapshot.
const (
	breakingMaxAgeHours = 2.0

	preGapMinPrice  = 1.0
	preGapMaxPrice  = 15.0
	preGapMinGap    = 10.0
	preGapMinRVOL   = 2.0
	preGapMaxFloat  = 100e6
	preGapMinAvgVol = 500e3

	runUpMinPrice  = 1.0
	runUpMaxPrice  = 15.0
	runUpMinRVOL   = 5.0
	runUpMaxFloat  = 10e6
	runUpMinGap    = 10.0
	runUpMinMove5  = 5.0
	runUpMinMove10 = 10.0

	hodMinRVOL  = 5.0
	hodMaxFloat = 100e6
	hodMinGap   = 10.0
	hodMinPrice = 1.0
	hodMaxPrice = 15.0

	rvslMaxPrice = 15.0
	rvslMinRVOL  = 8.0
	rvslMinGap   = 8.0 // absolute value
)

// channelRule is one priority rung of the classifier.
type channelRule struct {
	channel models.Channel
	match   func(s *models.Snapshot) bool
}

// channelRules is the total, deterministic evaluation order.
var channelRules = []channelRule{
	{models.ChannelBreakingNews, matchBreakingNews},
	{models.ChannelPreGap, matchPreGap},
	{models.ChannelRunUp, matchRunUp},
	{models.ChannelHighOfDay, matchHighOfDay},
	{models.ChannelReversal, matchReversal},
}

// EvaluateChannels returns the first matching channel for a snapshot, or
// ChannelNone.
func EvaluateChannels(s *models.Snapshot) models.Channel {
	for _, rule := range channelRules {
		if rule.match(s) {
			return rule.channel
		}
	}
	return models.ChannelNone
}

func matchBreakingNews(s *models.Snapshot) bool {
	return s.HasBreaking && s.NewsAgeHours <= breakingMaxAgeHours
}

func matchPreGap(s *models.Snapshot) bool {
	return s.Session == models.SessionPremarket &&
		s.Price >= preGapMinPrice && s.Price <= preGapMaxPrice &&
		s.GapPct >= preGapMinGap &&
		s.RVOL >= preGapMinRVOL &&
		s.FloatShares <= preGapMaxFloat &&
		s.AvgVolume >= preGapMinAvgVol
}

func matchRunUp(s *models.Snapshot) bool {
	return s.Session == models.SessionRegular &&
		s.Price >= runUpMinPrice && s.Price <= runUpMaxPrice &&
		s.RVOL >= runUpMinRVOL &&
		s.FloatShares <= runUpMaxFloat &&
		s.GapPct >= runUpMinGap &&
		(s.Move5Min >= runUpMinMove5 || s.Move10Min >= runUpMinMove10)
}

func matchHighOfDay(s *models.Snapshot) bool {
	return s.Session == models.SessionRegular &&
		s.IsHOD &&
		s.RVOL >= hodMinRVOL &&
		s.FloatShares <= hodMaxFloat &&
		s.GapPct >= hodMinGap &&
		s.Price >= hodMinPrice && s.Price <= hodMaxPrice
}

func matchReversal(s *models.Snapshot) bool {
	return s.Session == models.SessionRegular &&
		s.Price <= rvslMaxPrice &&
		s.RVOL >= rvslMinRVOL &&
		math.Abs(s.GapPct) >= rvslMinGap
}

// GapPct computes the percentage gap from the prior close. Unknown or
// non-positive prior close yields 0 so downstream math never divides by
// zero.
func GapPct(price, prevClose float64) float64 {
	if prevClose <= 0 {
		return 0
	}
	return (price - prevClose) / prevClose * 100
}

// RVOL computes relative volume against the trailing average. Unknown
// average yields 0.
func RVOL(sessionVolume int64, avgVolume float64) float64 {
	if avgVolume <= 0 {
		return 0
	}
	return float64(sessionVolume) / avgVolume
}
