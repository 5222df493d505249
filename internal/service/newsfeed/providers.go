package newsfeed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"signalscan/internal/domain/models"
	"signalscan/pkg/httpx"
	"signalscan/pkg/logger"
)

// breakerSettings builds the circuit breaker every secondary provider sits
// behind. A provider that keeps failing is skipped for a cooldown instead of
// burning its poll slot on doomed requests.
func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:    name,
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
}

// RESTProvider polls a JSON news endpoint.
type RESTProvider struct {
	name    string
	url     string
	apiKey  string
	http    *httpx.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

func NewRESTProvider(name, url, apiKey string, timeout time.Duration, log *logger.Logger) *RESTProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTProvider{
		name:    name,
		url:     url,
		apiKey:  apiKey,
		http:    httpx.NewClient(httpx.WithTimeout(timeout)),
		breaker: gobreaker.NewCircuitBreaker(breakerSettings(name)),
		logger:  log.Component("newsfeed." + name),
	}
}

func (p *RESTProvider) Name() string { return p.name }

type restArticle struct {
	ID        string   `json:"id"`
	Headline  string   `json:"title"`
	Summary   string   `json:"description"`
	Source    string   `json:"source"`
	URL       string   `json:"url"`
	Symbols   []string `json:"tickers"`
	Published string   `json:"published_utc"`
}

type restResponse struct {
	Results []restArticle `json:"results"`
}

func (p *RESTProvider) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	res, err := p.breaker.Execute(func() (interface{}, error) {
		var resp restResponse
		err := p.http.SendAndParse(ctx, &httpx.RequestOptions{
			Method:  http.MethodGet,
			URL:     p.url,
			Headers: map[string]string{"Authorization": "Bearer " + p.apiKey},
		}, &resp)
		if err != nil {
			return nil, err
		}
		return resp.Results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.name, err)
	}

	arts := res.([]restArticle)
	var out []models.NewsItem
	for _, a := range arts {
		published, _ := time.Parse(time.RFC3339, a.Published)
		symbols := a.Symbols
		if len(symbols) == 0 {
			symbols = []string{""}
		}
		for _, sym := range symbols {
			out = append(out, models.NewsItem{
				Provider:    p.name,
				ID:          a.ID,
				Symbol:      sym,
				Headline:    a.Headline,
				Summary:     a.Summary,
				Source:      a.Source,
				URL:         a.URL,
				PublishedAt: published,
			})
		}
	}
	return out, nil
}

// RSSProvider polls a syndication news feed.
type RSSProvider struct {
	name    string
	url     string
	parser  *gofeed.Parser
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

func NewRSSProvider(name, url string, log *logger.Logger) *RSSProvider {
	return &RSSProvider{
		name:    name,
		url:     url,
		parser:  gofeed.NewParser(),
		breaker: gobreaker.NewCircuitBreaker(breakerSettings(name)),
		logger:  log.Component("newsfeed." + name),
	}
}

func (p *RSSProvider) Name() string { return p.name }

func (p *RSSProvider) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	res, err := p.breaker.Execute(func() (interface{}, error) {
		return p.parser.ParseURLWithContext(p.url, ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.name, err)
	}

	feed := res.(*gofeed.Feed)
	var out []models.NewsItem
	for _, item := range feed.Items {
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		if id == "" {
			continue
		}
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}
		out = append(out, models.NewsItem{
			Provider:    p.name,
			ID:          id,
			Headline:    item.Title,
			Summary:     item.Description,
			Source:      feed.Title,
			URL:         item.Link,
			PublishedAt: published,
		})
	}
	return out, nil
}
