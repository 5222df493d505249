package models

import "time"

// HaltStatus is the reconciled halt state for a symbol.
type HaltStatus string

const (
	HaltStatusHalted  HaltStatus = "halted"
	HaltStatusResumed HaltStatus = "resumed"
)

// HaltRecord is one reconciled halt entry. ResumeTime is nil while the
// symbol is still halted.
type HaltRecord struct {
	Symbol     string     `json:"symbol"`
	Status     HaltStatus `json:"status"`
	HaltTime   time.Time  `json:"halt_time"`
	ResumeTime *time.Time `json:"resume_time,omitempty"`
	Reason     string     `json:"reason"`
	Exchange   string     `json:"exchange"`
	Source     string     `json:"source"` // feed that produced this entry
	LastUpdate time.Time  `json:"last_update"`
}

// Resumed reports whether the record carries a resume time that is strictly
// after the halt time. A premature resume field does not count.
func (h *HaltRecord) Resumed() bool {
	return h.ResumeTime != nil && h.ResumeTime.After(h.HaltTime)
}
