package monitor_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

// --- mocks ---

// step es la respuesta scripted de una llamada al adapter.
type step struct {
	book  domain.OrderBook
	err   error
	panic bool
}

// mockBookProvider devuelve los steps en orden; el último se repite.
type mockBookProvider struct {
	mu      sync.Mutex
	steps   []step
	calls   int
	symbols []string
}

func (m *mockBookProvider) FetchOrderBook(_ context.Context, symbol string) (domain.OrderBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.symbols = append(m.symbols, symbol)
	i := m.calls
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	m.calls++
	s := m.steps[i]
	if s.panic {
		panic("boom")
	}
	return s.book, s.err
}

func (m *mockBookProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// blockingBookProvider no responde hasta que se cierre release o se cancele ctx.
type blockingBookProvider struct {
	started chan struct{}
	release chan struct{}
	book    domain.OrderBook
}

func newBlockingBookProvider(book domain.OrderBook) *blockingBookProvider {
	return &blockingBookProvider{
		started: make(chan struct{}),
		release: make(chan struct{}),
		book:    book,
	}
}

func (b *blockingBookProvider) FetchOrderBook(ctx context.Context, _ string) (domain.OrderBook, error) {
	close(b.started)
	select {
	case <-b.release:
		return b.book, nil
	case <-ctx.Done():
		return domain.OrderBook{}, ctx.Err()
	}
}

// signalBookProvider avisa por done en cuanto devuelve su libro.
type signalBookProvider struct {
	done chan struct{}
	book domain.OrderBook
}

func (s *signalBookProvider) FetchOrderBook(_ context.Context, _ string) (domain.OrderBook, error) {
	defer close(s.done)
	return s.book, nil
}

type mockNotifier struct {
	mu      sync.Mutex
	reports []domain.OpportunityReport
	err     error
}

func (m *mockNotifier) Notify(_ context.Context, r domain.OpportunityReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return m.err
}

func (m *mockNotifier) Reports() []domain.OpportunityReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OpportunityReport(nil), m.reports...)
}

type mockRecorder struct {
	mu            sync.Mutex
	fetches       map[domain.ExchangeID]int
	fetchErrors   map[domain.ExchangeID]int
	quotes        map[domain.ExchangeID]domain.Quote
	cycles        int
	opportunities int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{
		fetches:     map[domain.ExchangeID]int{},
		fetchErrors: map[domain.ExchangeID]int{},
		quotes:      map[domain.ExchangeID]domain.Quote{},
	}
}

func (m *mockRecorder) ObserveFetch(ex domain.ExchangeID, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[ex]++
	if err != nil {
		m.fetchErrors[ex]++
	}
}

func (m *mockRecorder) ObserveQuote(ex domain.ExchangeID, q domain.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[ex] = q
}

func (m *mockRecorder) ObserveCycle(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
}

func (m *mockRecorder) ObserveOpportunity(domain.OpportunityReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opportunities++
}

// --- helpers ---

var errAPIDown = errors.New("API down")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func makeBook(bid, ask string) domain.OrderBook {
	var ob domain.OrderBook
	if bid != "" {
		ob.Bids = []domain.PriceLevel{{Price: dec(bid), Size: dec("100")}}
	}
	if ask != "" {
		ob.Asks = []domain.PriceLevel{{Price: dec(ask), Size: dec("100")}}
	}
	return ob
}

func bookStep(bid, ask string) step { return step{book: makeBook(bid, ask)} }

func errStep(err error) step { return step{err: err} }

func provider(steps ...step) *mockBookProvider {
	return &mockBookProvider{steps: steps}
}
