package models

import "time"

// LiveQuote is the merged real-time state for one symbol. Quote callbacks
// write the bid/ask side, trade callbacks write price/volume/high/low;
// fields are partially merged so one side never clobbers the other.
type LiveQuote struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Bid         float64   `json:"bid"`
	Ask         float64   `json:"ask"`
	BidSize     int64     `json:"bid_size"`
	AskSize     int64     `json:"ask_size"`
	Volume      int64     `json:"volume"` // cumulative session volume
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	PrevClose   float64   `json:"prev_close"`
	AvgVolume   float64   `json:"avg_volume"` // trailing 30-session mean
	FloatShares float64   `json:"float"`
	LastUpdate  time.Time `json:"last_update"`
}

// EffectivePrice returns the last trade price, falling back to the bid/ask
// midpoint when no trade has been seen yet.
func (q *LiveQuote) EffectivePrice() float64 {
	if q.Price > 0 {
		return q.Price
	}
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return 0
}

// Spread returns the absolute bid/ask spread, 0 when either side is missing.
func (q *LiveQuote) Spread() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return 0
	}
	s := q.Ask - q.Bid
	if s < 0 {
		return -s
	}
	return s
}

// CandidateEntry is one Tier1 result row. The candidate list is replaced
// wholesale on every scan.
type CandidateEntry struct {
	Symbol    string  `json:"symbol"`
	AvgVolume float64 `json:"avg_volume"`
}

// QuoteUpdate is a normalized streaming quote tick.
type QuoteUpdate struct {
	Symbol  string
	Bid     float64
	Ask     float64
	BidSize int64
	AskSize int64
	At      time.Time
}

// TradeUpdate is a normalized streaming trade print.
type TradeUpdate struct {
	Symbol string
	Price  float64
	Size   int64
	At     time.Time
}

// Bar is one daily OHLCV bar from the historical endpoint.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}
