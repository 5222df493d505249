package models

import "time"

// Channel is one of the mutually-exclusive trading-opportunity categories.
type Channel string

const (
	ChannelNone         Channel = ""
	ChannelBreakingNews Channel = "bkgnews"
	ChannelPreGap       Channel = "pregap"
	ChannelRunUp        Channel = "runup"
	ChannelHighOfDay    Channel = "hod"
	ChannelReversal     Channel = "rvsl"
)

// Session is the exchange-local trading session a timestamp falls into.
type Session string

const (
	SessionClosed     Session = "closed"
	SessionPremarket  Session = "premarket"
	SessionRegular    Session = "regular"
	SessionAfterHours Session = "afterhours"
)

// Snapshot is the enriched metric set computed for one live update. The rule
// engine decides channel membership from these fields only.
type Snapshot struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	PrevClose    float64   `json:"prev_close"`
	GapPct       float64   `json:"gap_pct"`
	RVOL         float64   `json:"rvol"`
	Volume       int64     `json:"volume"`
	AvgVolume    float64   `json:"avg_volume"`
	FloatShares  float64   `json:"float"`
	IsHOD        bool      `json:"is_hod"`
	HODPrice     float64   `json:"hod_price"`
	Move5Min     float64   `json:"move_5min"`  // pct change vs ~5 minutes ago
	Move10Min    float64   `json:"move_10min"` // pct change vs ~10 minutes ago
	HasBreaking  bool      `json:"has_breaking_news"`
	NewsAgeHours float64   `json:"news_age_hours"`
	Session      Session   `json:"session"`
	At           time.Time `json:"at"`
}

// ChannelAssignment is emitted when a snapshot matches a channel. Downstream
// treats it as an upsert by symbol.
type ChannelAssignment struct {
	Symbol   string    `json:"symbol"`
	Channel  Channel   `json:"channel"`
	Snapshot Snapshot  `json:"snapshot"`
	At       time.Time `json:"at"`
}
