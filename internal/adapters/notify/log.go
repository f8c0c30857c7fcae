package notify

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

// Log implementa ports.Notifier emitiendo un registro slog por oportunidad.
// Con handler JSON es la salida machine-readable.
type Log struct {
	logger *slog.Logger
}

// NewLog crea un notificador sobre logger. nil usa slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, r domain.OpportunityReport) error {
	l.logger.LogAttrs(ctx, slog.LevelInfo, "arbitrage opportunity",
		slog.String("id", r.ID),
		slog.Uint64("cycle", r.Cycle),
		slog.Time("detected_at", r.DetectedAt),
		slog.String("pair", r.Pair.String()),
		slog.String("buy_exchange", r.BuyExchange.String()),
		slog.String("buy_price", r.BuyPrice.String()),
		slog.String("sell_exchange", r.SellExchange.String()),
		slog.String("sell_price", r.SellPrice.String()),
		slog.String("profit", r.Profit.String()),
		slog.String("profit_pct", r.ProfitPct.StringFixed(4)),
		slog.Bool("miscalibrated", r.Miscalibrated),
	)
	return nil
}
