package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signalscan/internal/domain/models"
	"signalscan/pkg/logger"
)

// Client implements a MarketStream over a WebSocket quote/trade feed.
// Subscribe accumulates the symbol set and only sends the delta; the full
// set is replayed after Reconnect.
type Client struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	batchSize      int
	logger         *logger.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	subscribed map[string]struct{}
}

type Config struct {
	APIKey         string
	WebSocketURL   string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	BatchSize      int
}

func New(cfg Config, log *logger.Logger) *Client {
	if cfg.BatchSize <= 0 || cfg.BatchSize > 50 {
		cfg.BatchSize = 50
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Client{
		apiKey:         cfg.APIKey,
		websocketURL:   cfg.WebSocketURL,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		batchSize:      cfg.BatchSize,
		logger:         log.Component("stream"),
		subscribed:     make(map[string]struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("connected", logger.String("url", c.websocketURL))
	return nil
}

// Subscribe adds symbols to the subscription. Already-subscribed symbols are
// skipped; new symbols are sent in batches.
func (c *Client) Subscribe(ctx context.Context, symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.connected {
		return fmt.Errorf("stream not connected")
	}

	var delta []string
	for _, s := range symbols {
		if _, ok := c.subscribed[s]; ok {
			continue
		}
		delta = append(delta, s)
	}
	if len(delta) == 0 {
		return nil
	}
	sort.Strings(delta)

	for start := 0; start < len(delta); start += c.batchSize {
		end := start + c.batchSize
		if end > len(delta) {
			end = len(delta)
		}
		batch := delta[start:end]
		msg := map[string]any{"type": "subscribe", "symbols": batch}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe batch: %w", err)
		}
		for _, s := range batch {
			c.subscribed[s] = struct{}{}
		}
	}

	c.logger.Info("subscribed delta",
		logger.Int("new", len(delta)),
		logger.Int("total", len(c.subscribed)))
	return nil
}

// Unsubscribe removes symbols from the subscription set.
func (c *Client) Unsubscribe(ctx context.Context, symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.connected {
		return fmt.Errorf("stream not connected")
	}

	var gone []string
	for _, s := range symbols {
		if _, ok := c.subscribed[s]; !ok {
			continue
		}
		gone = append(gone, s)
		delete(c.subscribed, s)
	}
	if len(gone) == 0 {
		return nil
	}

	msg := map[string]any{"type": "unsubscribe", "symbols": gone}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

type wsQuote struct {
	Symbol  string  `json:"s"`
	Bid     float64 `json:"bp"`
	Ask     float64 `json:"ap"`
	BidSize int64   `json:"bs"`
	AskSize int64   `json:"as"`
	TS      int64   `json:"t"` // ms
}

type wsTrade struct {
	Symbol string  `json:"s"`
	Price  float64 `json:"p"`
	Size   int64   `json:"v"`
	TS     int64   `json:"t"` // ms
}

type wsMessage struct {
	Type   string    `json:"type"`
	Quotes []wsQuote `json:"quotes"`
	Trades []wsTrade `json:"trades"`
}

// Read streams normalized quote and trade updates plus a terminal error.
// The channels close when the read loop exits.
func (c *Client) Read(ctx context.Context) (<-chan models.QuoteUpdate, <-chan models.TradeUpdate, <-chan error) {
	quotes := make(chan models.QuoteUpdate, 1024)
	trades := make(chan models.TradeUpdate, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(quotes)
		defer close(trades)
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
				errs <- fmt.Errorf("stream conn nil")
				return
			}

			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("stream read: %w", err)
				return
			}

			var m wsMessage
			if err := json.Unmarshal(b, &m); err != nil {
				// ignore non-data frames
				continue
			}

			for _, q := range m.Quotes {
				u := models.QuoteUpdate{
					Symbol:  q.Symbol,
					Bid:     q.Bid,
					Ask:     q.Ask,
					BidSize: q.BidSize,
					AskSize: q.AskSize,
					At:      time.UnixMilli(q.TS),
				}
				select {
				case quotes <- u:
				default:
					// drop on backpressure
				}
			}
			for _, t := range m.Trades {
				u := models.TradeUpdate{
					Symbol: t.Symbol,
					Price:  t.Price,
					Size:   t.Size,
					At:     time.UnixMilli(t.TS),
				}
				select {
				case trades <- u:
				default:
				}
			}
		}
	}()

	return quotes, trades, errs
}

// Reconnect closes the connection, waits the reconnect delay, redials, and
// replays the full accumulated subscription set.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	replay := make([]string, 0, len(c.subscribed))
	for s := range c.subscribed {
		replay = append(replay, s)
	}
	c.subscribed = make(map[string]struct{})
	c.mu.Unlock()

	return c.Subscribe(ctx, replay)
}

// Close closes the WS connection.
func (c *Client) Close() error {
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

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
