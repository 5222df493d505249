package haltfeed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"signalscan/internal/domain/models"
	"signalscan/pkg/httpx"
	"signalscan/pkg/logger"
)

// Column order of the structured halt table.
const (
	colHaltDate = iota
	colHaltTime
	colSymbol
	colIssueName
	colMarket
	colReason
	colPauseThreshold
	colResumeDate
	colResumeQuoteTime
	colResumeTradeTime
	tableColumns
)

// TableSource scrapes the structured halt table. Explicit resume columns
// make it more authoritative than the syndication feed, so it carries the
// higher priority.
type TableSource struct {
	url    string
	http   *httpx.Client
	logger *logger.Logger
}

func NewTableSource(url string, log *logger.Logger) *TableSource {
	return &TableSource{
		url:    url,
		http:   httpx.NewClient(httpx.WithTimeout(20 * time.Second)),
		logger: log.Component("haltfeed.table"),
	}
}

func (s *TableSource) Name() string  { return "table" }
func (s *TableSource) Priority() int { return 2 }

func (s *TableSource) Fetch(ctx context.Context) ([]models.HaltRecord, error) {
	resp, err := s.http.SendRequest(ctx, &httpx.RequestOptions{
		Method: http.MethodGet,
		URL:    s.url,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch halt table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("halt table status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse halt table: %w", err)
	}

	now := time.Now()
	var out []models.HaltRecord
	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < tableColumns {
			return // header or malformed row
		}
		rec, ok := s.parseRow(cells)
		if !ok {
			return
		}
		rec.Source = s.Name()
		rec.LastUpdate = now
		out = append(out, rec)
	})
	return out, nil
}

func (s *TableSource) parseRow(cells *goquery.Selection) (models.HaltRecord, bool) {
	cell := func(n int) string {
		return strings.TrimSpace(cells.Eq(n).Text())
	}

	symbol := strings.ToUpper(cell(colSymbol))
	if symbol == "" {
		return models.HaltRecord{}, false
	}

	haltAt, err := parseFeedTime(cell(colHaltDate), cell(colHaltTime))
	if err != nil {
		s.logger.Warn("unparsable halt row", logger.String("symbol", symbol))
		return models.HaltRecord{}, false
	}

	rec := models.HaltRecord{
		Symbol:   symbol,
		Status:   models.HaltStatusHalted,
		HaltTime: haltAt,
		Reason:   cell(colReason),
		Exchange: cell(colMarket),
	}

	if resumeAt, err := parseFeedTime(cell(colResumeDate), cell(colResumeTradeTime)); err == nil {
		rec.ResumeTime = &resumeAt
		if rec.Resumed() {
			rec.Status = models.HaltStatusResumed
		}
	}
	return rec, true
}
