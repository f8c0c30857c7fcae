package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/spreadwatch/internal/adapters/wsfeed"
	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

const defaultStreamURL = "wss://api.hyperliquid.xyz/ws"

// El servidor cierra conexiones sin tráfico en 60s.
var pingPayload = []byte(`{"method":"ping"}`)

// Stream es el adapter websocket: una suscripción l2Book por coin.
type Stream struct {
	feed *wsfeed.Feed
}

// NewStream crea un Stream para los coins dados.
func NewStream(url string, coins []string, maxAge time.Duration) *Stream {
	if url == "" {
		url = defaultStreamURL
	}
	return &Stream{
		feed: wsfeed.New(wsfeed.Options{
			Name:         "hyperliquid",
			URL:          url,
			Subscribe:    subscribe(coins),
			Decode:       decodeStream,
			MaxAge:       maxAge,
			PingInterval: 30 * time.Second,
			PingPayload:  pingPayload,
		}),
	}
}

func subscribe(coins []string) wsfeed.Subscriber {
	return func(conn *websocket.Conn) error {
		for _, coin := range coins {
			msg := subscribeMsg{
				Method:       "subscribe",
				Subscription: l2Request{Type: "l2Book", Coin: coin},
			}
			if err := conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("subscribe %s: %w", coin, err)
			}
		}
		return nil
	}
}

func decodeStream(msg []byte) (domain.OrderBook, bool, error) {
	var m wsMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return domain.OrderBook{}, false, fmt.Errorf("hyperliquid.decodeStream: %w", err)
	}
	// subscriptionResponse, pong...
	if m.Channel != "l2Book" {
		return domain.OrderBook{}, false, nil
	}
	book, err := mapBook(m.Data.Coin, m.Data, time.Now())
	if err != nil {
		return domain.OrderBook{}, false, fmt.Errorf("hyperliquid.decodeStream: %w", err)
	}
	return book, true, nil
}

// Run mantiene la conexión viva hasta que se cancele ctx.
func (s *Stream) Run(ctx context.Context) error { return s.feed.Run(ctx) }

// FetchOrderBook implementa ports.BookProvider leyendo el último snapshot.
func (s *Stream) FetchOrderBook(ctx context.Context, symbol string) (domain.OrderBook, error) {
	book, err := s.feed.FetchOrderBook(ctx, symbol)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("hyperliquid.Stream.FetchOrderBook: %w", err)
	}
	return book, nil
}
