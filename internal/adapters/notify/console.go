package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
	"github.com/alejandrodnm/spreadwatch/internal/monitor"
)

// Format es el formato de salida del Console.
type Format string

const (
	// FormatLine imprime una línea por oportunidad.
	FormatLine Format = "line"
	// FormatBlock imprime el bloque multi-línea clásico.
	FormatBlock Format = "block"
)

// ParseFormat valida el formato leído de flags o config.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatLine, FormatBlock:
		return f, nil
	case "":
		return FormatLine, nil
	default:
		return "", fmt.Errorf("notify.ParseFormat: unknown format %q (want line|block)", s)
	}
}

// Console implementa ports.Notifier escribiendo texto legible.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	format Format
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(format Format) *Console {
	return NewConsoleWriter(os.Stdout, format)
}

// NewConsoleWriter crea un notificador sobre un writer arbitrario (tests).
func NewConsoleWriter(w io.Writer, format Format) *Console {
	if format == "" {
		format = FormatLine
	}
	return &Console{out: w, format: format}
}

// Notify imprime la oportunidad en el formato configurado.
func (c *Console) Notify(_ context.Context, r domain.OpportunityReport) error {
	var sb strings.Builder
	switch c.format {
	case FormatBlock:
		writeBlock(&sb, r)
	default:
		writeLine(&sb, r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, sb.String()); err != nil {
		return fmt.Errorf("notify.Console: %w", err)
	}
	return nil
}

// 2026-10-14 12:00:00.000 RDNT/USDT buy hyperliquid@104 sell binance@105 profit=1 (0.96%)
func writeLine(sb *strings.Builder, r domain.OpportunityReport) {
	fmt.Fprintf(sb, "%s %s buy %s@%s sell %s@%s profit=%s (%s%%)",
		r.DetectedAt.Format("2006-01-02 15:04:05.000"),
		r.Pair,
		r.BuyExchange, r.BuyPrice,
		r.SellExchange, r.SellPrice,
		r.Profit, r.ProfitPct.StringFixed(2),
	)
	if r.Miscalibrated {
		sb.WriteString(" [miscalibrated]")
	}
	sb.WriteByte('\n')
}

func writeBlock(sb *strings.Builder, r domain.OpportunityReport) {
	fmt.Fprintf(sb, "%s\n", r.DetectedAt.Format(time.ANSIC))
	sb.WriteString("Arbitrage opportunity found\n")
	fmt.Fprintf(sb, "Buy:  %s at %s on %s\n", r.Pair, r.BuyPrice, r.BuyExchange)
	fmt.Fprintf(sb, "Sell: %s at %s on %s\n", r.Pair, r.SellPrice, r.SellExchange)
	fmt.Fprintf(sb, "Profit: %s (%s%%)\n", r.Profit, r.ProfitPct.StringFixed(2))
	if r.Miscalibrated {
		sb.WriteString("Warning: both books crossed, feed may be miscalibrated\n")
	}
	sb.WriteByte('\n')
}

// PrintBanner imprime la cabecera de arranque.
func (c *Console) PrintBanner(pair domain.TradingPair, a, b domain.ExchangeID, transport string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "=== spreadwatch %s | %s vs %s | transport=%s ===\n", pair, a, b, transport)
}

// PrintSummary imprime el resumen de la sesión al salir.
func (c *Console) PrintSummary(s monitor.Stats, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	uptime := time.Duration(0)
	if !s.StartedAt.IsZero() {
		uptime = now.Sub(s.StartedAt).Round(time.Second)
	}
	fmt.Fprintf(c.out, "\n=== SESSION SUMMARY (uptime %s) ===\n", uptime)
	fmt.Fprintf(c.out, "  Cycles: %d | Opportunities: %d | Miscalibrated: %d\n",
		s.Cycles, s.Opportunities, s.Miscalibrated)

	exchanges := make([]domain.ExchangeID, 0, len(s.FetchFailures))
	for ex := range s.FetchFailures {
		exchanges = append(exchanges, ex)
	}
	sort.Slice(exchanges, func(i, j int) bool { return exchanges[i] < exchanges[j] })

	table := tablewriter.NewWriter(c.out)
	table.Header("Exchange", "Fetch failures", "Empty books")
	for _, ex := range exchanges {
		table.Append(
			ex.String(),
			fmt.Sprintf("%d", s.FetchFailures[ex]),
			fmt.Sprintf("%d", s.EmptyBooks[ex]),
		)
	}
	table.Render()

	if s.Best == nil {
		fmt.Fprintln(c.out, "  Best: none")
		return
	}
	b := s.Best
	fmt.Fprintf(c.out, "  Best: buy %s@%s sell %s@%s profit=%s (%s%%) at cycle %d\n",
		b.BuyExchange, b.BuyPrice, b.SellExchange, b.SellPrice,
		b.Profit, b.ProfitPct.StringFixed(2), b.Cycle)
}
