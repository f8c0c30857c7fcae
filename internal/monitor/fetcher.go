package monitor

// fetcher.go: fetch concurrente de los dos orderbooks de cada ciclo.
//
// Las dos llamadas salen a la vez para que los snapshots queden lo más cerca
// posible en el tiempo. Cada lado es independiente: un fallo en un exchange
// nunca descarta el resultado del otro.

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
	"github.com/alejandrodnm/spreadwatch/internal/ports"
)

// Leg es un exchange junto con su adapter de market data.
type Leg struct {
	Exchange domain.ExchangeID
	Books    ports.BookProvider
}

// FetchResult es el resultado de un lado del fetch.
// Exactamente uno de Book o Err es significativo.
type FetchResult struct {
	Exchange  domain.ExchangeID
	Symbol    string
	Book      domain.OrderBook
	Err       error
	Latency   time.Duration
	FetchedAt time.Time
}

// Fetcher pide los libros de los dos exchanges en paralelo.
type Fetcher struct {
	markets domain.MarketTable
	legs    [2]Leg
}

// NewFetcher crea un Fetcher para los dos legs dados (A, B).
func NewFetcher(markets domain.MarketTable, a, b Leg) *Fetcher {
	return &Fetcher{markets: markets, legs: [2]Leg{a, b}}
}

// FetchBoth lanza una goroutine por exchange y espera a ambas.
// Las goroutines nunca devuelven error al errgroup: cada fallo queda en su
// FetchResult para que el otro lado siga siendo utilizable.
func (f *Fetcher) FetchBoth(ctx context.Context, pair domain.TradingPair) [2]FetchResult {
	var results [2]FetchResult
	var g errgroup.Group

	for i, leg := range f.legs {
		g.Go(func() error {
			results[i] = f.fetch(ctx, leg, pair)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetch resuelve el símbolo y llama al adapter. Un panic del adapter se
// convierte en FetchError en lugar de tumbar el proceso.
func (f *Fetcher) fetch(ctx context.Context, leg Leg, pair domain.TradingPair) (res FetchResult) {
	res.Exchange = leg.Exchange

	symbol, err := f.markets.Symbol(leg.Exchange, pair)
	if err != nil {
		res.Err = err
		res.FetchedAt = time.Now()
		return res
	}
	res.Symbol = symbol

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Err = &domain.FetchError{
				Exchange: leg.Exchange,
				Symbol:   symbol,
				Err:      fmt.Errorf("adapter panic: %v", p),
			}
			res.Book = domain.OrderBook{}
		}
		res.FetchedAt = time.Now()
		res.Latency = res.FetchedAt.Sub(start)
	}()

	book, err := leg.Books.FetchOrderBook(ctx, symbol)
	if err != nil {
		res.Err = &domain.FetchError{Exchange: leg.Exchange, Symbol: symbol, Err: err}
		return res
	}

	book.Exchange = leg.Exchange
	if book.Symbol == "" {
		book.Symbol = symbol
	}
	res.Book = book
	return res
}
