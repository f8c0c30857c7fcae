package fixture

// fixture.go: libros scripted desde YAML para -dry-run y demos sin red.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

// File es el formato del YAML de fixtures.
//
//	books:
//	  binance:
//	    - bids: [["105", "10"]]
//	      asks: [["106", "10"]]
//	    - error: "API down"
type File struct {
	Books map[string][]Snapshot `yaml:"books"`
}

// Snapshot es una respuesta scripted: un libro, o un error simulado.
type Snapshot struct {
	Bids  [][]string    `yaml:"bids"`
	Asks  [][]string    `yaml:"asks"`
	Error string        `yaml:"error"`
	Delay time.Duration `yaml:"delay"`
}

// Set son los scripts por exchange cargados de un fichero.
type Set struct {
	books map[domain.ExchangeID][]Snapshot
}

// Load lee y valida el fichero de fixtures.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture.Load: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodifica el YAML de fixtures.
func Parse(data []byte) (*Set, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture.Parse: %w", err)
	}

	set := &Set{books: make(map[domain.ExchangeID][]Snapshot, len(f.Books))}
	for name, snaps := range f.Books {
		ex, err := domain.ParseExchangeID(name)
		if err != nil {
			return nil, fmt.Errorf("fixture.Parse: %w", err)
		}
		if len(snaps) == 0 {
			return nil, fmt.Errorf("fixture.Parse: %s has no snapshots", ex)
		}
		for i, s := range snaps {
			if _, err := toLevels(s.Bids); err != nil {
				return nil, fmt.Errorf("fixture.Parse: %s[%d] bids: %w", ex, i, err)
			}
			if _, err := toLevels(s.Asks); err != nil {
				return nil, fmt.Errorf("fixture.Parse: %s[%d] asks: %w", ex, i, err)
			}
		}
		set.books[ex] = snaps
	}
	return set, nil
}

// Provider devuelve el BookProvider scripted de un exchange.
func (s *Set) Provider(ex domain.ExchangeID) (*Provider, error) {
	snaps, ok := s.books[ex]
	if !ok {
		return nil, fmt.Errorf("fixture.Provider: no fixtures for %s", ex)
	}
	return &Provider{exchange: ex, snaps: snaps}, nil
}

// Provider recorre los snapshots en orden y vuelve a empezar al final.
type Provider struct {
	exchange domain.ExchangeID

	mu    sync.Mutex
	snaps []Snapshot
	next  int
}

// FetchOrderBook implementa ports.BookProvider.
func (p *Provider) FetchOrderBook(ctx context.Context, symbol string) (domain.OrderBook, error) {
	p.mu.Lock()
	s := p.snaps[p.next]
	p.next = (p.next + 1) % len(p.snaps)
	p.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return domain.OrderBook{}, ctx.Err()
		}
	}
	if s.Error != "" {
		return domain.OrderBook{}, errors.New(s.Error)
	}

	// Ya validados en Parse.
	bids, _ := toLevels(s.Bids)
	asks, _ := toLevels(s.Asks)
	return domain.OrderBook{
		Exchange:  p.exchange,
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		FetchedAt: time.Now(),
	}, nil
}

func toLevels(raw [][]string) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(raw))
	for _, r := range raw {
		if len(r) != 2 {
			return nil, fmt.Errorf("level %v: want [price, size]", r)
		}
		lvl, err := domain.ParseLevel(r[0], r[1])
		if err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	return out, nil
}
