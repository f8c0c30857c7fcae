package hyperliquid

import (
	"errors"
	"sort"
	"time"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

var errMalformedLevels = errors.New("l2Book levels must have two sides")

func mapBook(symbol string, raw l2Book, at time.Time) (domain.OrderBook, error) {
	if len(raw.Levels) != 2 {
		return domain.OrderBook{}, errMalformedLevels
	}
	return domain.OrderBook{
		Exchange:  domain.Hyperliquid,
		Symbol:    symbol,
		Bids:      mapLevels(raw.Levels[0], false),
		Asks:      mapLevels(raw.Levels[1], true),
		FetchedAt: at,
	}, nil
}

// mapLevels descarta niveles no parseables o no positivos y ordena.
func mapLevels(raw []l2Level, ascending bool) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, r := range raw {
		lvl, err := domain.ParseLevel(r.Px, r.Sz)
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
