package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/spreadwatch/config"
	"github.com/alejandrodnm/spreadwatch/internal/adapters/binance"
	"github.com/alejandrodnm/spreadwatch/internal/adapters/fixture"
	"github.com/alejandrodnm/spreadwatch/internal/adapters/hyperliquid"
	"github.com/alejandrodnm/spreadwatch/internal/domain"
	"github.com/alejandrodnm/spreadwatch/internal/ports"
)

// streamRunner es un adapter que necesita una goroutine viva (websocket).
type streamRunner interface {
	Run(ctx context.Context) error
}

type providers struct {
	byExchange map[domain.ExchangeID]ports.BookProvider
	streams    []streamRunner
}

// buildProviders crea un BookProvider por exchange según el transporte.
func buildProviders(cfg *config.Config, markets domain.MarketTable, transport string, dryRun bool, fixturesPath string) (providers, error) {
	out := providers{byExchange: make(map[domain.ExchangeID]ports.BookProvider, 2)}
	a, b := cfg.ExchangePair()
	pair := cfg.Pair()

	if dryRun {
		set, err := fixture.Load(fixturesPath)
		if err != nil {
			return out, err
		}
		for _, ex := range []domain.ExchangeID{a, b} {
			p, err := set.Provider(ex)
			if err != nil {
				return out, err
			}
			out.byExchange[ex] = p
		}
		return out, nil
	}

	for _, ex := range []domain.ExchangeID{a, b} {
		symbol, err := markets.Symbol(ex, pair)
		if err != nil {
			return out, err
		}

		switch {
		case ex == domain.Binance && transport == config.TransportStream:
			s := binance.NewStream(cfg.Exchanges.Binance.StreamBase, []string{symbol}, cfg.Exchanges.Binance.Depth, cfg.StreamMaxAge())
			out.byExchange[ex] = s
			out.streams = append(out.streams, s)
		case ex == domain.Binance:
			out.byExchange[ex] = binance.NewClient(cfg.Exchanges.Binance.RESTBase, cfg.Exchanges.Binance.Depth, cfg.BinanceTimeout())
		case ex == domain.Hyperliquid && transport == config.TransportStream:
			s := hyperliquid.NewStream(cfg.Exchanges.Hyperliquid.StreamURL, []string{symbol}, cfg.StreamMaxAge())
			out.byExchange[ex] = s
			out.streams = append(out.streams, s)
		case ex == domain.Hyperliquid:
			out.byExchange[ex] = hyperliquid.NewClient(cfg.Exchanges.Hyperliquid.RESTBase, cfg.HyperliquidTimeout())
		default:
			return out, fmt.Errorf("buildProviders: no adapter for %s", ex)
		}
	}
	return out, nil
}
