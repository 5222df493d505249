package newsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signalscan/internal/domain/models"
	"signalscan/pkg/logger"
)

// StreamClient is the continuous primary news subscription over WebSocket.
type StreamClient struct {
	url            string
	apiKey         string
	reconnectDelay time.Duration
	logger         *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func NewStreamClient(url, apiKey string, reconnectDelay time.Duration, log *logger.Logger) *StreamClient {
	return &StreamClient{
		url:            url,
		apiKey:         apiKey,
		reconnectDelay: reconnectDelay,
		logger:         log.Component("newsfeed.stream"),
	}
}

func (c *StreamClient) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.url, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("news connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	// The feed requires an explicit subscribe frame after dial.
	if err := conn.WriteJSON(map[string]any{"action": "subscribe", "news": []string{"*"}}); err != nil {
		return fmt.Errorf("news subscribe: %w", err)
	}

	c.logger.Info("connected")
	return nil
}

type wsArticle struct {
	ID        int64    `json:"id"`
	Headline  string   `json:"headline"`
	Summary   string   `json:"summary"`
	Source    string   `json:"source"`
	URL       string   `json:"url"`
	Symbols   []string `json:"symbols"`
	CreatedAt string   `json:"created_at"`
}

// Read streams normalized news items and a terminal error. An article tagged
// with multiple symbols yields one item per symbol, all sharing the
// provider-native id.
func (c *StreamClient) Read(ctx context.Context) (<-chan models.NewsItem, <-chan error) {
	items := make(chan models.NewsItem, 256)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("news conn nil")
				return
			}

			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("news read: %w", err)
				return
			}

			var arts []wsArticle
			if err := json.Unmarshal(b, &arts); err != nil {
				continue
			}
			for _, a := range arts {
				published, _ := time.Parse(time.RFC3339, a.CreatedAt)
				symbols := a.Symbols
				if len(symbols) == 0 {
					symbols = []string{""}
				}
				for _, sym := range symbols {
					item := models.NewsItem{
						Provider:    "primary",
						ID:          fmt.Sprintf("%d", a.ID),
						Symbol:      sym,
						Headline:    a.Headline,
						Summary:     a.Summary,
						Source:      a.Source,
						URL:         a.URL,
						PublishedAt: published,
					}
					select {
					case items <- item:
					default:
					}
				}
			}
		}
	}()

	return items, errs
}

func (c *StreamClient) Reconnect(ctx context.Context) error {
	_ = c.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	return c.Connect(ctx)
}

func (c *StreamClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
