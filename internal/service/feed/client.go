package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"FlowTrack/internal/domain/models"
	drepo "FlowTrack/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a TradeStream backed by an options time-and-sales
// WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new feed TradeStream.
func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration) drepo.TradeStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("feed: connected")
	return nil
}

// Subscribe subscribes to the option chains of configured underlyings.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "channel": "option_trades", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("feed: subscribed %s", s)
	}
	return nil
}

type wsTrade struct {
	Sym    string  `json:"sym"`    // underlying symbol
	Strike float64 `json:"strike"` // strike price
	Right  string  `json:"right"`  // "C" or "P"
	Exp    string  `json:"exp"`    // expiration, YYYYMMDD
	Price  float64 `json:"p"`
	Size   int64   `json:"v"`
	Venue  string  `json:"x"` // exchange code
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Spot   float64 `json:"spot"` // underlying last
	T      int64   `json:"t"`    // ms since epoch
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

// Read streams Trade events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, 1024)
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
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(trades)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("feed read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-trade frames
					continue
				}
				if m.Type != "option_trade" {
					continue
				}
				for _, d := range m.Data {
					t := toTrade(d)
					if t == nil {
						continue
					}
					select {
					case trades <- t:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return trades, errs
}

func toTrade(d wsTrade) *models.Trade {
	right := models.OptionRight(d.Right)
	if right != models.Call && right != models.Put {
		return nil
	}
	return &models.Trade{
		Contract:        models.NewContract(d.Sym, d.Strike, right, d.Exp),
		Timestamp:       time.UnixMilli(d.T),
		Price:           d.Price,
		Size:            d.Size,
		Venue:           d.Venue,
		Bid:             d.Bid,
		Ask:             d.Ask,
		UnderlyingPrice: d.Spot,
		Side:            models.SideUnknown,
	}
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
