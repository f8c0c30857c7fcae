package binance

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/alejandrodnm/spreadwatch/internal/adapters/restclient"
	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

const (
	defaultRESTBase = "https://api.binance.com"
	depthPath       = "/api/v3/depth"

	// /api/v3/depth con limit <= 100 pesa 5; 6000 de peso por minuto → 20/s.
	// Nos quedamos al 50%.
	depthRatePerSec = 10
	defaultDepth    = 20
)

// Client es el adapter REST de market data de Binance spot.
type Client struct {
	rest  *restclient.Client
	depth int
}

// NewClient crea un Client. Si base está vacío usa producción.
// depth es el número de niveles pedidos por lado (5, 10, 20, 50, 100...).
func NewClient(base string, depth int, timeout time.Duration) *Client {
	if base == "" {
		base = defaultRESTBase
	}
	if depth <= 0 {
		depth = defaultDepth
	}
	return &Client{
		rest: restclient.New("binance", base, restclient.Options{
			RatePerSec: depthRatePerSec,
			Burst:      2,
			Timeout:    timeout,
		}),
		depth: depth,
	}
}

// FetchOrderBook implementa ports.BookProvider.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string) (domain.OrderBook, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", fmt.Sprint(c.depth))

	var resp depthResponse
	if err := c.rest.Get(ctx, depthPath+"?"+q.Encode(), &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("binance.FetchOrderBook %s: %w", symbol, err)
	}

	book := mapDepth(symbol, resp, time.Now())
	slog.Debug("binance depth fetched",
		"symbol", symbol,
		"last_update_id", resp.LastUpdateID,
		"bids", len(book.Bids),
		"asks", len(book.Asks),
	)
	return book, nil
}
