package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tob(bid, ask string) TopOfBook {
	var t TopOfBook
	if bid != "" {
		t.Bid = decimal.NewNullDecimal(d(bid))
	}
	if ask != "" {
		t.Ask = decimal.NewNullDecimal(d(ask))
	}
	return t
}

func newState(t *testing.T) PriceState {
	t.Helper()
	s, err := NewPriceState(PairRDNTUSDT, Binance, Hyperliquid)
	require.NoError(t, err)
	return s
}

func TestNewPriceState_SameExchange(t *testing.T) {
	_, err := NewPriceState(PairRDNTUSDT, Binance, Binance)
	assert.Error(t, err)
}

func TestPriceState_UpdateBothSides(t *testing.T) {
	s := newState(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Update(Binance, tob("105", "106"), at))

	q, ok := s.Quote(Binance)
	require.True(t, ok)
	assert.True(t, q.Ready())
	assert.Equal(t, "105", q.Bid.String())
	assert.Equal(t, "106", q.Ask.String())
	assert.Equal(t, at, q.BidAt)
	assert.Equal(t, at, q.AskAt)

	other, _ := s.Quote(Hyperliquid)
	assert.False(t, other.HasBid)
	assert.False(t, s.Ready())
}

func TestPriceState_EmptySideIsSticky(t *testing.T) {
	s := newState(t)
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(1001, 0)

	require.NoError(t, s.Update(Hyperliquid, tob("100", "104"), t0))
	// Segundo snapshot sin asks: el ask anterior se conserva.
	require.NoError(t, s.Update(Hyperliquid, tob("101", ""), t1))

	q, _ := s.Quote(Hyperliquid)
	assert.Equal(t, "101", q.Bid.String())
	assert.Equal(t, t1, q.BidAt)
	assert.Equal(t, "104", q.Ask.String())
	assert.Equal(t, t0, q.AskAt)
}

func TestPriceState_EmptyBookLeavesStateUnchanged(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.Update(Binance, tob("1", "2"), time.Unix(5, 0)))
	before := s

	empty, err := Extract(OrderBook{Exchange: Binance})
	require.Error(t, err)
	require.NoError(t, s.Update(Binance, empty, time.Unix(6, 0)))

	assert.Equal(t, before, s)
}

func TestPriceState_UpdateIdempotent(t *testing.T) {
	once := newState(t)
	twice := newState(t)
	at := time.Unix(42, 0)
	top := tob("0.0342", "0.0345")

	require.NoError(t, once.Update(Binance, top, at))
	require.NoError(t, twice.Update(Binance, top, at))
	require.NoError(t, twice.Update(Binance, top, at))

	assert.Equal(t, once, twice)
}

func TestPriceState_UnknownExchange(t *testing.T) {
	s := newState(t)
	err := s.Update(ExchangeID("kraken"), tob("1", "2"), time.Now())
	assert.Error(t, err)

	_, ok := s.Quote(ExchangeID("kraken"))
	assert.False(t, ok)
}

func TestPriceState_Ready(t *testing.T) {
	s := newState(t)
	now := time.Now()

	require.NoError(t, s.Update(Binance, tob("1", "2"), now))
	require.NoError(t, s.Update(Hyperliquid, tob("1", ""), now))
	assert.False(t, s.Ready(), "hyperliquid sin ask todavía")

	require.NoError(t, s.Update(Hyperliquid, tob("", "2"), now))
	assert.True(t, s.Ready())
}
