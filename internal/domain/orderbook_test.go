package domain

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func levels(prices ...string) []PriceLevel {
	out := make([]PriceLevel, len(prices))
	for i, p := range prices {
		out[i] = PriceLevel{Price: d(p), Size: d("10")}
	}
	return out
}

func TestExtract_MaxBidMinAsk(t *testing.T) {
	book := OrderBook{
		Exchange: Binance,
		Bids:     levels("0.0340", "0.0342", "0.0339"),
		Asks:     levels("0.0347", "0.0344", "0.0350"),
	}

	tob, err := Extract(book)
	require.NoError(t, err)
	assert.True(t, tob.Bid.Decimal.Equal(d("0.0342")))
	assert.True(t, tob.Ask.Decimal.Equal(d("0.0344")))
}

// El resultado no depende del orden en que el exchange entrega los niveles.
func TestExtract_IndependentOfOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	bids := levels("99.5", "100.25", "98", "100.2", "97.75", "100.249")
	asks := levels("101", "100.5", "103.3", "100.51", "102")

	for i := 0; i < 50; i++ {
		rng.Shuffle(len(bids), func(a, b int) { bids[a], bids[b] = bids[b], bids[a] })
		rng.Shuffle(len(asks), func(a, b int) { asks[a], asks[b] = asks[b], asks[a] })

		tob, err := Extract(OrderBook{Bids: bids, Asks: asks})
		require.NoError(t, err)
		assert.Equal(t, "100.25", tob.Bid.Decimal.String())
		assert.Equal(t, "100.5", tob.Ask.Decimal.String())
	}
}

// El orden del exchange no se asume: el último nivel de cada lista no es el mejor.
func TestExtract_IgnoresLastElementOrdering(t *testing.T) {
	book := OrderBook{
		Bids: levels("105", "104", "103"),
		Asks: levels("106", "107", "108"),
	}
	tob, err := Extract(book)
	require.NoError(t, err)
	assert.Equal(t, "105", tob.Bid.Decimal.String())
	assert.Equal(t, "106", tob.Ask.Decimal.String())
}

func TestExtract_EmptyBids(t *testing.T) {
	tob, err := Extract(OrderBook{Exchange: Hyperliquid, Asks: levels("1.5")})

	var empty *EmptyBookError
	require.True(t, errors.As(err, &empty))
	assert.True(t, empty.NoBids)
	assert.False(t, empty.NoAsks)
	assert.Equal(t, Hyperliquid, empty.Exchange)

	assert.False(t, tob.Bid.Valid)
	require.True(t, tob.Ask.Valid)
	assert.Equal(t, "1.5", tob.Ask.Decimal.String())
}

func TestExtract_EmptyBook(t *testing.T) {
	tob, err := Extract(OrderBook{Exchange: Binance})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bids, asks")
	assert.False(t, tob.Bid.Valid)
	assert.False(t, tob.Ask.Valid)
}

func TestExtract_DecimalPrecision(t *testing.T) {
	// 0.1 + 0.2 en float64 no es 0.3; con decimal los niveles se comparan exactos.
	book := OrderBook{
		Bids: levels("0.30000000000000001", "0.3"),
		Asks: levels("0.30000000000000002"),
	}
	tob, err := Extract(book)
	require.NoError(t, err)
	assert.Equal(t, "0.30000000000000001", tob.Bid.Decimal.String())
	assert.True(t, tob.Ask.Decimal.GreaterThan(tob.Bid.Decimal))
}

func TestTopOfBook_Spread(t *testing.T) {
	tob := TopOfBook{Bid: decimal.NewNullDecimal(d("100")), Ask: decimal.NewNullDecimal(d("100.2"))}
	spread, ok := tob.Spread()
	require.True(t, ok)
	assert.Equal(t, "0.2", spread.String())

	_, ok = TopOfBook{Bid: decimal.NewNullDecimal(d("100"))}.Spread()
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("0.03421", "1500.5")
	require.NoError(t, err)
	assert.Equal(t, "0.03421", lvl.Price.String())
	assert.Equal(t, "1500.5", lvl.Size.String())

	_, err = ParseLevel("abc", "1")
	assert.Error(t, err)
	_, err = ParseLevel("1", "")
	assert.Error(t, err)
}
