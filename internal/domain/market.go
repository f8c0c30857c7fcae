package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ExchangeID identifica un venue soportado.
type ExchangeID string

const (
	Binance     ExchangeID = "binance"
	Hyperliquid ExchangeID = "hyperliquid"
)

// Exchanges devuelve los venues soportados en orden estable.
func Exchanges() []ExchangeID {
	return []ExchangeID{Binance, Hyperliquid}
}

// ParseExchangeID valida un nombre de exchange leído de la configuración.
func ParseExchangeID(s string) (ExchangeID, error) {
	id := ExchangeID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Exchanges() {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("domain.ParseExchangeID: unknown exchange %q", s)
}

func (e ExchangeID) String() string { return string(e) }

// TradingPair es el instrumento lógico que se sigue, p.ej. "RDNT/USDT".
type TradingPair string

const (
	PairRDNTUSDT TradingPair = "RDNT/USDT"
	PairRDNTUSDC TradingPair = "RDNT/USDC"
	PairBTCUSDT  TradingPair = "BTC/USDT"
	PairETHUSDT  TradingPair = "ETH/USDT"
)

// ParsePair normaliza un par "BASE/QUOTE". No exige que el par esté en la
// tabla de mercados: eso lo decide MarketTable.Validate.
func ParsePair(s string) (TradingPair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	base, quote, ok := strings.Cut(s, "/")
	if !ok || base == "" || quote == "" {
		return "", fmt.Errorf("domain.ParsePair: %q is not BASE/QUOTE", s)
	}
	return TradingPair(s), nil
}

func (p TradingPair) String() string { return string(p) }

// UnsupportedMarketError indica que el par no tiene símbolo nativo en el exchange.
type UnsupportedMarketError struct {
	Exchange ExchangeID
	Pair     TradingPair
}

func (e *UnsupportedMarketError) Error() string {
	return fmt.Sprintf("unsupported market: %s has no symbol for %s", e.Exchange, e.Pair)
}

// MarketTable traduce (exchange, par) al símbolo nativo del exchange.
// Es inmutable: With devuelve una copia extendida.
type MarketTable struct {
	symbols map[TradingPair]map[ExchangeID]string
}

// DefaultMarkets devuelve la tabla incorporada.
// RDNT/USDC solo existe en hyperliquid (los perps cotizan contra USDC).
func DefaultMarkets() MarketTable {
	return MarketTable{symbols: map[TradingPair]map[ExchangeID]string{
		PairRDNTUSDT: {Binance: "RDNTUSDT", Hyperliquid: "RDNT"},
		PairRDNTUSDC: {Hyperliquid: "RDNT"},
		PairBTCUSDT:  {Binance: "BTCUSDT", Hyperliquid: "BTC"},
		PairETHUSDT:  {Binance: "ETHUSDT", Hyperliquid: "ETH"},
	}}
}

// With devuelve una copia de la tabla con el símbolo añadido o reemplazado.
func (t MarketTable) With(pair TradingPair, exchange ExchangeID, symbol string) MarketTable {
	out := MarketTable{symbols: make(map[TradingPair]map[ExchangeID]string, len(t.symbols)+1)}
	for p, bySym := range t.symbols {
		cp := make(map[ExchangeID]string, len(bySym))
		for ex, s := range bySym {
			cp[ex] = s
		}
		out.symbols[p] = cp
	}
	if out.symbols[pair] == nil {
		out.symbols[pair] = make(map[ExchangeID]string, 2)
	}
	out.symbols[pair][exchange] = symbol
	return out
}

// Symbol devuelve el símbolo nativo o *UnsupportedMarketError si no hay mapping.
func (t MarketTable) Symbol(exchange ExchangeID, pair TradingPair) (string, error) {
	sym, ok := t.symbols[pair][exchange]
	if !ok || sym == "" {
		return "", &UnsupportedMarketError{Exchange: exchange, Pair: pair}
	}
	return sym, nil
}

// Validate comprueba que el par tenga símbolo en todos los exchanges dados.
func (t MarketTable) Validate(pair TradingPair, exchanges ...ExchangeID) error {
	for _, ex := range exchanges {
		if _, err := t.Symbol(ex, pair); err != nil {
			return err
		}
	}
	return nil
}

// Pairs lista los pares conocidos, ordenados.
func (t MarketTable) Pairs() []TradingPair {
	pairs := make([]TradingPair, 0, len(t.symbols))
	for p := range t.symbols {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i] < pairs[j] })
	return pairs
}
