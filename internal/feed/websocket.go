package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// WebSocketSource streams trades and quotes from a venue's public
// WebSocket feed for a single symbol.
type WebSocketSource struct {
	url    string
	symbol string

	mu          sync.Mutex
	conn        *websocket.Conn
	isConnected bool
}

// NewWebSocketSource builds a source dialing wsURL and subscribing to
// symbol's trade/quote channels on connect.
func NewWebSocketSource(wsURL, symbol string) *WebSocketSource {
	return &WebSocketSource{url: wsURL, symbol: symbol}
}

// wireMessage is the minimal venue-agnostic shape this source expects
// over the wire: a channel tag plus one populated payload.
type wireMessage struct {
	Channel string     `json:"channel"`
	Trade   *wireTrade `json:"trade,omitempty"`
	Quote   *wireQuote `json:"quote,omitempty"`
}

type wireTrade struct {
	TimestampMs int64   `json:"ts_ms"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size"`
}

type wireQuote struct {
	TimestampMs int64   `json:"ts_ms"`
	BidPrice    float64 `json:"bid_price"`
	BidSize     float64 `json:"bid_size"`
	AskPrice    float64 `json:"ask_price"`
	AskSize     float64 `json:"ask_size"`
}

// Connect dials the WebSocket endpoint and sends the subscription
// message for the configured symbol. This is the call boundary an
// internal/breaker wrapper guards.
func (w *WebSocketSource) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isConnected {
		return fmt.Errorf("websocket source for %s already connected", w.symbol)
	}

	u, err := url.Parse(w.url)
	if err != nil {
		return fmt.Errorf("invalid websocket url: %w", err)
	}

	dialer := &websocket.Dialer{HandshakeTimeout: 30 * time.Second}

	log.Info().Str("url", u.String()).Str("symbol", w.symbol).Msg("connecting to feed websocket")

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket connection failed: %w", err)
	}

	sub := map[string]interface{}{
		"op":     "subscribe",
		"symbol": w.symbol,
		"channels": []string{"trades", "quotes"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe request failed: %w", err)
	}

	w.conn = conn
	w.isConnected = true
	return nil
}

// Run reads messages until ctx is cancelled or the connection drops.
func (w *WebSocketSource) Run(ctx context.Context, handler Handler) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("websocket source for %s not connected", w.symbol)
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read failed: %w", err)
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("discarding malformed feed message")
			continue
		}

		switch msg.Channel {
		case "trades":
			if msg.Trade != nil {
				handler.OnTrade(domain.Trade{
					Symbol:    w.symbol,
					Timestamp: domain.TimestampMs(msg.Trade.TimestampMs),
					Price:     msg.Trade.Price,
					Size:      msg.Trade.Size,
				})
			}
		case "quotes":
			if msg.Quote != nil {
				handler.OnQuote(domain.Quote{
					Symbol:    w.symbol,
					Timestamp: domain.TimestampMs(msg.Quote.TimestampMs),
					BidPrice:  msg.Quote.BidPrice,
					BidSize:   msg.Quote.BidSize,
					AskPrice:  msg.Quote.AskPrice,
					AskSize:   msg.Quote.AskSize,
				})
			}
		}
	}
}

// Close tears down the WebSocket connection.
func (w *WebSocketSource) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return nil
	}
	w.isConnected = false
	return w.conn.Close()
}
