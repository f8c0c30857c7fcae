package hyperliquid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/spreadwatch/internal/adapters/restclient"
	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

const (
	defaultRESTBase = "https://api.hyperliquid.xyz"
	infoPath        = "/info"

	// 1200 de peso por minuto por IP; l2Book pesa 2 → 10/s. Usamos la mitad.
	infoRatePerSec = 5
)

// Client es el adapter REST de market data de Hyperliquid (perp).
type Client struct {
	rest *restclient.Client
}

// NewClient crea un Client. Si base está vacío usa mainnet.
func NewClient(base string, timeout time.Duration) *Client {
	if base == "" {
		base = defaultRESTBase
	}
	return &Client{
		rest: restclient.New("hyperliquid", base, restclient.Options{
			RatePerSec: infoRatePerSec,
			Burst:      2,
			Timeout:    timeout,
		}),
	}
}

// FetchOrderBook implementa ports.BookProvider. symbol es el coin ("RDNT").
func (c *Client) FetchOrderBook(ctx context.Context, symbol string) (domain.OrderBook, error) {
	var resp l2Book
	if err := c.rest.Post(ctx, infoPath, l2Request{Type: "l2Book", Coin: symbol}, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("hyperliquid.FetchOrderBook %s: %w", symbol, err)
	}

	book, err := mapBook(symbol, resp, time.Now())
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("hyperliquid.FetchOrderBook %s: %w", symbol, err)
	}
	slog.Debug("hyperliquid l2Book fetched",
		"coin", symbol,
		"exchange_time", resp.Time,
		"bids", len(book.Bids),
		"asks", len(book.Asks),
	)
	return book, nil
}
