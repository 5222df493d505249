package models

import "time"

// EventCategory names one producer stream feeding the dispatch queues.
type EventCategory string

const (
	EventChannel EventCategory = "channel"
	EventHalt    EventCategory = "halt"
	EventNews    EventCategory = "news"
	EventVector  EventCategory = "vector"
	EventSqueeze EventCategory = "squeeze"
	EventTrend   EventCategory = "trend"
)

// Event is one record handed from a producer to the single consumer drain.
// Payload is one of ChannelAssignment, HaltRecord, NewsItem, or an
// indicator snapshot, depending on Category.
type Event struct {
	Category EventCategory
	Symbol   string
	Payload  any
	At       time.Time
}
