package models

import "time"

// VectorSnapshot is one multi-timeframe VWAP momentum reading.
type VectorSnapshot struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Score        float64   `json:"v_score"` // composite, -10..+10
	Score1Min    float64   `json:"v_1min"`
	Score5Min    float64   `json:"v_5min"`
	Score15Min   float64   `json:"v_15min"`
	MTFAlignment string    `json:"mtf_alignment"`
	VolQuality   float64   `json:"vol_quality"`
	VWAP         float64   `json:"vwap"`
	VWAPDistance float64   `json:"vwap_dist"` // in ATR units
	Signal       string    `json:"signal"`
	At           time.Time `json:"at"`
}

// SqueezeState is the per-symbol squeeze state machine position.
type SqueezeState string

const (
	SqueezeIdle    SqueezeState = "idle"
	SqueezeCoiling SqueezeState = "coiling"
	SqueezeFired   SqueezeState = "fired"
)

// SqueezeSnapshot is one volatility-compression reading.
type SqueezeSnapshot struct {
	Symbol      string       `json:"symbol"`
	Price       float64      `json:"price"`
	State       SqueezeState `json:"state"`
	BarsCoiling int          `json:"bars_coiling"`
	Intensity   float64      `json:"intensity"` // >= 0
	Histogram   float64      `json:"histogram"` // EMA12 - EMA26
	BBWidth     float64      `json:"bb_width"`
	KCWidth     float64      `json:"kc_width"`
	Setup       string       `json:"setup"`
	At          time.Time    `json:"at"`
}

// TrendModel is the auto-selected Kalman process-noise model.
type TrendModel string

const (
	TrendModelStandard  TrendModel = "Standard"
	TrendModelVolAdj    TrendModel = "Vol-Adj"
	TrendModelParkinson TrendModel = "Parkinson"
)

// TrendConfidence buckets the Kalman estimate uncertainty.
type TrendConfidence string

const (
	TrendConfidenceHigh TrendConfidence = "High"
	TrendConfidenceMed  TrendConfidence = "Med"
	TrendConfidenceLow  TrendConfidence = "Low"
)

// TrendSnapshot is one adaptive-Kalman trend reading.
type TrendSnapshot struct {
	Symbol     string          `json:"symbol"`
	Price      float64         `json:"price"`
	Estimate   float64         `json:"trend_mu"`
	Strength   float64         `json:"trend_strength"` // clamped to [-3, 3]
	Model      TrendModel      `json:"model"`
	Confidence TrendConfidence `json:"confidence"`
	UpperBand  float64         `json:"upper_band"`
	LowerBand  float64         `json:"lower_band"`
	Direction  string          `json:"direction"`
	Signal     string          `json:"signal"`
	At         time.Time       `json:"at"`
}
