package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// OpportunityReport es una oportunidad de arbitraje detectada en un ciclo.
// Se produce y se consume en el momento (notifier); nunca se persiste.
type OpportunityReport struct {
	ID           string
	Cycle        uint64
	DetectedAt   time.Time
	Pair         TradingPair
	BuyExchange  ExchangeID
	SellExchange ExchangeID
	BuyPrice     decimal.Decimal // ask del venue donde se compra
	SellPrice    decimal.Decimal // bid del venue donde se vende
	Profit       decimal.Decimal // SellPrice - BuyPrice
	ProfitPct    decimal.Decimal // Profit / BuyPrice × 100

	// Miscalibrated es true si ambos cruces se daban a la vez
	// (bid(A) > ask(B) y bid(B) > ask(A)). Solo con un feed roto.
	Miscalibrated bool
}

// Detect compara el estado actual y devuelve una oportunidad si algún bid
// supera el ask del otro exchange. No aplica fees ni umbral mínimo.
//
//	1. bid(A) > ask(B) → comprar en B, vender en A
//	2. bid(B) > ask(A) → comprar en A, vender en B
//
// La regla 1 tiene prioridad. No reporta nada hasta que ambos exchanges
// tengan bid y ask observados.
func Detect(state PriceState, cycle uint64, at time.Time) (OpportunityReport, bool) {
	if !state.Ready() {
		return OpportunityReport{}, false
	}
	a, b := state.quotes[0], state.quotes[1]

	crossAB := a.Bid.GreaterThan(b.Ask)
	crossBA := b.Bid.GreaterThan(a.Ask)

	switch {
	case crossAB:
		r := newReport(state.Pair, cycle, at, state.B, b.Ask, state.A, a.Bid)
		r.Miscalibrated = crossBA
		return r, true
	case crossBA:
		return newReport(state.Pair, cycle, at, state.A, a.Ask, state.B, b.Bid), true
	default:
		return OpportunityReport{}, false
	}
}

func newReport(pair TradingPair, cycle uint64, at time.Time, buyEx ExchangeID, buy decimal.Decimal, sellEx ExchangeID, sell decimal.Decimal) OpportunityReport {
	profit := sell.Sub(buy)
	pct := decimal.Zero
	if buy.IsPositive() {
		pct = profit.Div(buy).Mul(hundred)
	}
	return OpportunityReport{
		ID:           uuid.NewString(),
		Cycle:        cycle,
		DetectedAt:   at,
		Pair:         pair,
		BuyExchange:  buyEx,
		SellExchange: sellEx,
		BuyPrice:     buy,
		SellPrice:    sell,
		Profit:       profit,
		ProfitPct:    pct,
	}
}
