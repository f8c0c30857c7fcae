package binance

import (
	"sort"
	"time"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

// mapDepth convierte la respuesta de profundidad a domain.OrderBook.
func mapDepth(symbol string, raw depthResponse, at time.Time) domain.OrderBook {
	return domain.OrderBook{
		Exchange:  domain.Binance,
		Symbol:    symbol,
		Bids:      mapLevels(raw.Bids, false),
		Asks:      mapLevels(raw.Asks, true),
		FetchedAt: at,
	}
}

// mapLevels convierte niveles [precio, cantidad] a domain.PriceLevel y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
// Niveles mal formados o con precio/tamaño no positivo se descartan.
func mapLevels(raw [][]string, ascending bool) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			continue
		}
		lvl, err := domain.ParseLevel(r[0], r[1])
		if err != nil || !lvl.Price.IsPositive() || !lvl.Size.IsPositive() {
			continue
		}
		levels = append(levels, lvl)
	}

	sort.Slice(levels, func(i, j int) bool {
		if ascending {
			return levels[i].Price.LessThan(levels[j].Price)
		}
		return levels[i].Price.GreaterThan(levels[j].Price)
	})
	return levels
}
