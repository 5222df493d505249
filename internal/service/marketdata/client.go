package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/pkg/httpx"
	"signalscan/pkg/logger"
)

// Client implements MarketData against the provider's REST daily-bar and
// snapshot endpoints.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
	logger  *logger.Logger
}

type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

func New(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	opts := []httpx.ClientOption{httpx.WithTimeout(cfg.Timeout)}
	if cfg.RateLimit > 0 {
		opts = append(opts, httpx.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpx.NewClient(opts...),
		logger:  log.Component("marketdata"),
	}
}

type barRow struct {
	T string  `json:"t"` // RFC3339 date
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V int64   `json:"v"`
}

type barsResponse struct {
	Bars map[string][]barRow `json:"bars"`
}

// DailyBars fetches trailing daily bars for a batch of symbols in one call.
// Symbols the provider omits from the response are simply absent from the
// result map.
func (c *Client) DailyBars(ctx context.Context, symbols []string, days int) (map[string][]models.Bar, error) {
	if len(symbols) == 0 {
		return map[string][]models.Bar{}, nil
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days*2) // weekends and holidays thin the window

	var resp barsResponse
	err := c.http.SendAndParse(ctx, &httpx.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/v2/stocks/bars",
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
		},
		QueryParams: map[string][]string{
			"symbols":   {strings.Join(symbols, ",")},
			"timeframe": {"1Day"},
			"start":     {start.Format("2006-01-02")},
			"end":       {end.Format("2006-01-02")},
			"limit":     {strconv.Itoa(days * len(symbols))},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("daily bars: %w", err)
	}

	out := make(map[string][]models.Bar, len(resp.Bars))
	for sym, rows := range resp.Bars {
		bars := make([]models.Bar, 0, len(rows))
		for _, r := range rows {
			date, err := time.Parse(time.RFC3339, r.T)
			if err != nil {
				c.logger.Warn("bad bar timestamp",
					logger.String("symbol", sym), logger.String("t", r.T))
				continue
			}
			bars = append(bars, models.Bar{
				Symbol: sym,
				Date:   date,
				Open:   r.O,
				High:   r.H,
				Low:    r.L,
				Close:  r.C,
				Volume: r.V,
			})
		}
		if len(bars) > days {
			bars = bars[len(bars)-days:]
		}
		out[sym] = bars
	}
	return out, nil
}

type assetRow struct {
	Symbol   string `json:"symbol"`
	Tradable bool   `json:"tradable"`
}

// Symbols fetches the full active-equity universe. Implements
// repository.UniverseSource.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	var assets []assetRow
	err := c.http.SendAndParse(ctx, &httpx.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/v2/assets",
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
		},
		QueryParams: map[string][]string{
			"status":      {"active"},
			"asset_class": {"us_equity"},
		},
	}, &assets)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}

	out := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.Tradable {
			out = append(out, a.Symbol)
		}
	}
	return out, nil
}

type snapshotResponse struct {
	PrevDailyBar *barRow `json:"prevDailyBar"`
}

// PrevClose fetches the prior session close for one symbol. A response with
// no prior bar maps to ErrNotFound so callers can blacklist the symbol.
func (c *Client) PrevClose(ctx context.Context, symbol string) (float64, error) {
	var resp snapshotResponse
	err := c.http.SendAndParse(ctx, &httpx.RequestOptions{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v2/stocks/%s/snapshot", c.baseURL, symbol),
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
		},
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", symbol, err)
	}
	if resp.PrevDailyBar == nil || resp.PrevDailyBar.C <= 0 {
		return 0, repository.ErrNotFound
	}
	return resp.PrevDailyBar.C, nil
}
