package models

import (
	"fmt"
	"time"
)

// NewsCategory is the age-based classification of an article.
type NewsCategory string

const (
	NewsBreaking NewsCategory = "breaking"
	NewsGeneral  NewsCategory = "general"
	NewsIgnore   NewsCategory = "ignore"
)

// NewsItem is one normalized article from any provider. The feed adapters
// expand a multi-symbol article into one item per symbol, so items are
// deduplicated by (ID, Symbol): the article id is global across providers,
// the symbol keeps each expansion alive.
type NewsItem struct {
	Provider    string       `json:"provider"`
	ID          string       `json:"id"` // provider-native id
	Symbol      string       `json:"symbol"`
	Headline    string       `json:"headline"`
	Summary     string       `json:"summary"`
	Source      string       `json:"source"`
	URL         string       `json:"url"`
	PublishedAt time.Time    `json:"published_at"`
	Category    NewsCategory `json:"category"`
}

// Key returns the deduplication key.
func (n *NewsItem) Key() string {
	return fmt.Sprintf("%s:%s", n.ID, n.Symbol)
}

// AgeHours returns the article age relative to now, in hours.
func (n *NewsItem) AgeHours(now time.Time) float64 {
	return now.Sub(n.PublishedAt).Hours()
}
