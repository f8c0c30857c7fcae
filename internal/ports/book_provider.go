package ports

import (
	"context"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

// BookProvider es el adapter de market data de un exchange.
type BookProvider interface {
	// FetchOrderBook devuelve un snapshot del libro para el símbolo nativo dado.
	// Timeouts y retries son responsabilidad del adapter; cualquier fallo se
	// devuelve como error y el monitor lo trata como FetchError.
	FetchOrderBook(ctx context.Context, symbol string) (domain.OrderBook, error)
}
