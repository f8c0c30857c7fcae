package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateWith(t *testing.T, bidA, askA, bidB, askB string) PriceState {
	t.Helper()
	s := newState(t)
	now := time.Unix(100, 0)
	require.NoError(t, s.Update(Binance, tob(bidA, askA), now))
	require.NoError(t, s.Update(Hyperliquid, tob(bidB, askB), now))
	return s
}

func TestDetect_BuyBSellA(t *testing.T) {
	s := stateWith(t, "105", "106", "100", "104")
	at := time.Unix(200, 0)

	r, ok := Detect(s, 7, at)
	require.True(t, ok)
	assert.Equal(t, Hyperliquid, r.BuyExchange)
	assert.Equal(t, Binance, r.SellExchange)
	assert.Equal(t, "104", r.BuyPrice.String())
	assert.Equal(t, "105", r.SellPrice.String())
	assert.Equal(t, "1", r.Profit.String())
	assert.Equal(t, PairRDNTUSDT, r.Pair)
	assert.Equal(t, uint64(7), r.Cycle)
	assert.Equal(t, at, r.DetectedAt)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Miscalibrated)
}

func TestDetect_BuyASellB(t *testing.T) {
	s := stateWith(t, "99", "100", "102", "103")

	r, ok := Detect(s, 1, time.Now())
	require.True(t, ok)
	assert.Equal(t, Binance, r.BuyExchange)
	assert.Equal(t, Hyperliquid, r.SellExchange)
	assert.Equal(t, "100", r.BuyPrice.String())
	assert.Equal(t, "102", r.SellPrice.String())
	assert.Equal(t, "2", r.Profit.String())
	assert.Equal(t, "2", r.ProfitPct.String())
}

func TestDetect_NoCrossing(t *testing.T) {
	s := stateWith(t, "100", "101", "100", "101")
	_, ok := Detect(s, 1, time.Now())
	assert.False(t, ok)
}

// bid igual al ask del otro venue no es oportunidad: el cruce es estricto.
func TestDetect_EqualPricesNotReported(t *testing.T) {
	s := stateWith(t, "104", "105", "103", "104")
	_, ok := Detect(s, 1, time.Now())
	assert.False(t, ok)
}

func TestDetect_TinySpreadReported(t *testing.T) {
	s := stateWith(t, "0.03420001", "0.0343", "0.0341", "0.0342")
	r, ok := Detect(s, 1, time.Now())
	require.True(t, ok)
	assert.Equal(t, "0.00000001", r.Profit.String())
}

func TestDetect_BothCrossedRuleOneWins(t *testing.T) {
	// Feed mal calibrado: los dos venues con libro cruzado entre sí.
	s := stateWith(t, "110", "100", "109", "101")
	r, ok := Detect(s, 1, time.Now())
	require.True(t, ok)
	assert.Equal(t, Hyperliquid, r.BuyExchange)
	assert.Equal(t, Binance, r.SellExchange)
	assert.Equal(t, "9", r.Profit.String())
	assert.True(t, r.Miscalibrated)
}

func TestDetect_SuppressedUntilReady(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.Update(Binance, tob("105", "106"), time.Now()))
	// hyperliquid nunca actualizado: sus precios cero no deben generar oportunidad.
	_, ok := Detect(s, 1, time.Now())
	assert.False(t, ok)
}

func TestDetect_EmptyPollDoesNotManufactureOpportunity(t *testing.T) {
	s := stateWith(t, "100", "101", "100", "101")

	empty, _ := Extract(OrderBook{Exchange: Hyperliquid})
	require.NoError(t, s.Update(Hyperliquid, empty, time.Now()))

	_, ok := Detect(s, 2, time.Now())
	assert.False(t, ok)
}

func TestDetect_StaleSideStillCompared(t *testing.T) {
	s := stateWith(t, "105", "106", "100", "110")
	// Un nuevo ciclo solo actualiza B; A queda stale pero sigue valiendo.
	require.NoError(t, s.Update(Hyperliquid, tob("100", "104"), time.Now()))

	r, ok := Detect(s, 2, time.Now())
	require.True(t, ok)
	assert.Equal(t, "1", r.Profit.String())
}

func TestDetect_ReportIDsUnique(t *testing.T) {
	s := stateWith(t, "105", "106", "100", "104")
	r1, _ := Detect(s, 1, time.Now())
	r2, _ := Detect(s, 2, time.Now())
	assert.NotEqual(t, r1.ID, r2.ID)
}
