package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Quote guarda los últimos precios conocidos de un exchange.
// HasBid/HasAsk distinguen "nunca visto" de un precio legítimo.
type Quote struct {
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	HasBid bool
	HasAsk bool
	BidAt  time.Time
	AskAt  time.Time
}

// Ready devuelve true si ya se observaron ambos lados al menos una vez.
func (q Quote) Ready() bool {
	return q.HasBid && q.HasAsk
}

// PriceState es el último top-of-book conocido de cada uno de los dos exchanges.
//
// Tiene un solo dueño (el loop del monitor), que lo muta con Update. El
// detector recibe una copia por valor, así que no hace falta locking.
type PriceState struct {
	Pair   TradingPair
	A      ExchangeID
	B      ExchangeID
	quotes [2]Quote
}

// NewPriceState crea el estado vacío para el par y los dos exchanges dados.
func NewPriceState(pair TradingPair, a, b ExchangeID) (PriceState, error) {
	if a == b {
		return PriceState{}, fmt.Errorf("domain.NewPriceState: exchanges must differ, got %s twice", a)
	}
	return PriceState{Pair: pair, A: a, B: b}, nil
}

func (s PriceState) index(exchange ExchangeID) (int, error) {
	switch exchange {
	case s.A:
		return 0, nil
	case s.B:
		return 1, nil
	default:
		return 0, fmt.Errorf("domain.PriceState: exchange %s is not tracked", exchange)
	}
}

// Update escribe bid y ask de exchange como una sola unidad a partir de una
// extracción. Un lado no válido en tob conserva su valor anterior.
func (s *PriceState) Update(exchange ExchangeID, tob TopOfBook, observedAt time.Time) error {
	i, err := s.index(exchange)
	if err != nil {
		return err
	}

	q := s.quotes[i]
	if tob.Bid.Valid {
		q.Bid, q.HasBid, q.BidAt = tob.Bid.Decimal, true, observedAt
	}
	if tob.Ask.Valid {
		q.Ask, q.HasAsk, q.AskAt = tob.Ask.Decimal, true, observedAt
	}
	s.quotes[i] = q
	return nil
}

// Quote devuelve los precios conocidos del exchange.
func (s PriceState) Quote(exchange ExchangeID) (Quote, bool) {
	i, err := s.index(exchange)
	if err != nil {
		return Quote{}, false
	}
	return s.quotes[i], true
}

// Ready devuelve true cuando ambos exchanges tienen bid y ask observados.
func (s PriceState) Ready() bool {
	return s.quotes[0].Ready() && s.quotes[1].Ready()
}
