package haltfeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"signalscan/internal/domain/models"
	"signalscan/pkg/logger"
)

// etZone is the exchange-local zone halt feed timestamps are quoted in.
var etZone = mustLoadET()

func mustLoadET() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return loc
}

// RSSSource parses the syndication halt feed. Entries carry halt fields in a
// feed-specific extension namespace; status is inferred from the presence of
// a resumption trade time.
type RSSSource struct {
	url    string
	parser *gofeed.Parser
	logger *logger.Logger
}

func NewRSSSource(url string, log *logger.Logger) *RSSSource {
	return &RSSSource{
		url:    url,
		parser: gofeed.NewParser(),
		logger: log.Component("haltfeed.rss"),
	}
}

func (s *RSSSource) Name() string  { return "rss" }
func (s *RSSSource) Priority() int { return 1 }

func (s *RSSSource) Fetch(ctx context.Context) ([]models.HaltRecord, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse halt rss: %w", err)
	}

	now := time.Now()
	var out []models.HaltRecord
	for _, item := range feed.Items {
		rec, ok := s.parseItem(item)
		if !ok {
			continue
		}
		rec.Source = s.Name()
		rec.LastUpdate = now
		out = append(out, rec)
	}
	return out, nil
}

func (s *RSSSource) parseItem(item *gofeed.Item) (models.HaltRecord, bool) {
	symbol := extField(item, "IssueSymbol")
	if symbol == "" {
		// Fall back to the title, formatted "SYMB - Issue Name".
		if i := strings.Index(item.Title, " - "); i > 0 {
			symbol = strings.TrimSpace(item.Title[:i])
		}
	}
	if symbol == "" {
		return models.HaltRecord{}, false
	}

	haltAt, err := parseFeedTime(extField(item, "HaltDate"), extField(item, "HaltTime"))
	if err != nil {
		if item.PublishedParsed == nil {
			s.logger.Warn("halt entry missing timestamp", logger.String("symbol", symbol))
			return models.HaltRecord{}, false
		}
		haltAt = *item.PublishedParsed
	}

	rec := models.HaltRecord{
		Symbol:   strings.ToUpper(symbol),
		Status:   models.HaltStatusHalted,
		HaltTime: haltAt,
		Reason:   extractReason(item),
		Exchange: extField(item, "Market"),
	}

	if resumeAt, err := parseFeedTime(
		extField(item, "ResumptionDate"),
		extField(item, "ResumptionTradeTime"),
	); err == nil {
		rec.ResumeTime = &resumeAt
	} else if titleSaysResumed(item) && item.PublishedParsed != nil {
		// Some entries only announce the resumption in prose; the publish
		// time is the best resume timestamp available.
		at := *item.PublishedParsed
		rec.ResumeTime = &at
	}
	if rec.Resumed() {
		rec.Status = models.HaltStatusResumed
	}
	return rec, true
}

func titleSaysResumed(item *gofeed.Item) bool {
	text := strings.ToLower(item.Title + " " + item.Description)
	return strings.Contains(text, "resum")
}

// knownReasonCodes are the provider's published halt codes, longest first so
// token matching never clips T12 down to T1.
var knownReasonCodes = []string{"LUDP", "MWC1", "MWC2", "MWC3", "T12", "T1", "T2", "T5", "T6", "H10", "H4", "M"}

// extractReason resolves the halt reason by precedence: an explicit code
// field, then a known code token in the text, then the description prefix.
func extractReason(item *gofeed.Item) string {
	if code := extField(item, "ReasonCode"); code != "" {
		return code
	}
	text := item.Title + " " + item.Description
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
	}) {
		for _, code := range knownReasonCodes {
			if tok == code {
				return code
			}
		}
	}
	desc := strings.TrimSpace(item.Description)
	if len(desc) > 40 {
		desc = desc[:40]
	}
	return desc
}

// extField pulls a value out of the feed's extension namespace, trying the
// namespaces the feed has been observed to use.
func extField(item *gofeed.Item, name string) string {
	for _, ns := range []string{"ndaq", "halt"} {
		if exts, ok := item.Extensions[ns]; ok {
			if vals, ok := exts[name]; ok && len(vals) > 0 {
				return strings.TrimSpace(vals[0].Value)
			}
		}
	}
	if v, ok := item.Custom[name]; ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// parseFeedTime combines the feed's separate date and time columns. Either
// part missing is an error so callers can fall back.
func parseFeedTime(date, clock string) (time.Time, error) {
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("empty halt timestamp")
	}
	for _, layout := range []string{"01/02/2006 15:04:05", "01/02/2006 15:04"} {
		if t, err := time.ParseInLocation(layout, date+" "+clock, etZone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable halt timestamp %q %q", date, clock)
}
