package domain

import "fmt"

// FetchError envuelve un fallo del adapter de un exchange (red, API, timeout).
// El monitor lo registra y deja stale ese lado del PriceState durante el ciclo.
type FetchError struct {
	Exchange ExchangeID
	Symbol   string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Exchange, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
