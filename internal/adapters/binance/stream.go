package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/spreadwatch/internal/adapters/wsfeed"
	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

const (
	defaultStreamBase  = "wss://stream.binance.com:9443"
	defaultStreamDepth = 20
)

// Stream es el adapter de profundidad parcial por websocket.
// Binance empuja un snapshot de los N mejores niveles cada 100ms.
type Stream struct {
	feed *wsfeed.Feed
}

// NewStream crea un Stream para los símbolos dados (formato REST: "RDNTUSDT").
// depth admite 5, 10 o 20.
func NewStream(base string, symbols []string, depth int, maxAge time.Duration) *Stream {
	if base == "" {
		base = defaultStreamBase
	}
	if depth != 5 && depth != 10 && depth != 20 {
		depth = defaultStreamDepth
	}
	return &Stream{
		feed: wsfeed.New(wsfeed.Options{
			Name:   "binance",
			URL:    streamURL(base, symbols, depth),
			Decode: decodeStream,
			MaxAge: maxAge,
		}),
	}
}

// streamURL arma el combined stream: /stream?streams=rdntusdt@depth20@100ms/...
func streamURL(base string, symbols []string, depth int) string {
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		names = append(names, fmt.Sprintf("%s@depth%d@100ms", strings.ToLower(s), depth))
	}
	return strings.TrimRight(base, "/") + "/stream?streams=" + strings.Join(names, "/")
}

func decodeStream(msg []byte) (domain.OrderBook, bool, error) {
	var env streamEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return domain.OrderBook{}, false, fmt.Errorf("binance.decodeStream: %w", err)
	}
	if env.Stream == "" {
		// respuestas a comandos ({"result":null,"id":1})
		return domain.OrderBook{}, false, nil
	}
	name, _, _ := strings.Cut(env.Stream, "@")
	return mapDepth(strings.ToUpper(name), env.Data, time.Now()), true, nil
}

// Run mantiene la conexión viva hasta que se cancele ctx.
func (s *Stream) Run(ctx context.Context) error { return s.feed.Run(ctx) }

// FetchOrderBook implementa ports.BookProvider leyendo el último snapshot.
func (s *Stream) FetchOrderBook(ctx context.Context, symbol string) (domain.OrderBook, error) {
	book, err := s.feed.FetchOrderBook(ctx, symbol)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("binance.Stream.FetchOrderBook: %w", err)
	}
	return book, nil
}
