package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
	"github.com/alejandrodnm/spreadwatch/internal/ports"
)

const (
	defaultMinCycleInterval  = 250 * time.Millisecond
	defaultHeartbeatInterval = 30 * time.Second
)

// Config contiene la configuración del monitor.
type Config struct {
	Pair      domain.TradingPair
	ExchangeA domain.ExchangeID
	ExchangeB domain.ExchangeID

	// MinCycleInterval es la separación mínima entre el inicio de dos ciclos.
	// 0 = sin espera, tan rápido como respondan los adapters.
	MinCycleInterval time.Duration

	// HeartbeatInterval controla cada cuánto se loguea "seeking arbitrage
	// opportunity". 0 lo desactiva.
	HeartbeatInterval time.Duration
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		Pair:              domain.PairRDNTUSDT,
		ExchangeA:         domain.Binance,
		ExchangeB:         domain.Hyperliquid,
		MinCycleInterval:  defaultMinCycleInterval,
		HeartbeatInterval: defaultHeartbeatInterval,
	}
}

// CycleResult resume lo que pasó en un ciclo.
type CycleResult struct {
	Cycle   uint64
	Fetches [2]FetchResult
	State   domain.PriceState
	Report  *domain.OpportunityReport
}

// Monitor es el loop fetch → extract → update → detect → notify.
//
// El PriceState lo posee y lo muta únicamente el goroutine que ejecuta Run;
// las goroutines del fetch nunca lo tocan. Las escrituras van bajo mu para que
// State se pueda leer desde otras goroutines.
type Monitor struct {
	cfg      Config
	fetcher  *Fetcher
	notifier ports.Notifier
	recorder ports.Recorder
	limiter  *rate.Limiter
	now      func() time.Time

	state         domain.PriceState
	cycle         uint64
	lastHeartbeat time.Time

	mu    sync.Mutex
	stats Stats
}

// New crea un Monitor con todas las dependencias inyectadas.
// Falla si el par no tiene símbolo en alguno de los dos exchanges.
func New(
	cfg Config,
	markets domain.MarketTable,
	booksA, booksB ports.BookProvider,
	notifier ports.Notifier,
	recorder ports.Recorder,
) (*Monitor, error) {
	if booksA == nil || booksB == nil {
		return nil, errors.New("monitor.New: both book providers are required")
	}
	if notifier == nil {
		return nil, errors.New("monitor.New: notifier is required")
	}
	if err := markets.Validate(cfg.Pair, cfg.ExchangeA, cfg.ExchangeB); err != nil {
		return nil, fmt.Errorf("monitor.New: %w", err)
	}
	state, err := domain.NewPriceState(cfg.Pair, cfg.ExchangeA, cfg.ExchangeB)
	if err != nil {
		return nil, fmt.Errorf("monitor.New: %w", err)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	limit := rate.Inf
	if cfg.MinCycleInterval > 0 {
		limit = rate.Every(cfg.MinCycleInterval)
	}

	return &Monitor{
		cfg: cfg,
		fetcher: NewFetcher(markets,
			Leg{Exchange: cfg.ExchangeA, Books: booksA},
			Leg{Exchange: cfg.ExchangeB, Books: booksB},
		),
		notifier: notifier,
		recorder: recorder,
		limiter:  rate.NewLimiter(limit, 1),
		now:      time.Now,
		state:    state,
		stats:    newStats(cfg.ExchangeA, cfg.ExchangeB),
	}, nil
}

// Run ejecuta ciclos hasta que el contexto se cancele. Ningún error de un
// ciclo termina el loop.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor starting",
		"pair", m.cfg.Pair,
		"exchange_a", m.cfg.ExchangeA,
		"exchange_b", m.cfg.ExchangeB,
		"min_cycle_interval", m.cfg.MinCycleInterval,
	)

	m.mu.Lock()
	m.stats.StartedAt = m.now()
	m.mu.Unlock()
	m.lastHeartbeat = m.now()

	for {
		if err := m.limiter.Wait(ctx); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		m.runCycle(ctx)
		m.heartbeat()
	}

	slog.Info("monitor stopped", "cycles", m.cycle)
	return nil
}

// RunOnce ejecuta exactamente un ciclo y devuelve su resultado.
func (m *Monitor) RunOnce(ctx context.Context) CycleResult {
	m.mu.Lock()
	if m.stats.StartedAt.IsZero() {
		m.stats.StartedAt = m.now()
	}
	m.mu.Unlock()
	return m.runCycle(ctx)
}

// State devuelve una copia del PriceState. Es seguro llamarlo durante Run.
func (m *Monitor) State() domain.PriceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// runCycle hace fetch → extract → update → detect → notify.
func (m *Monitor) runCycle(ctx context.Context) CycleResult {
	start := m.now()
	m.cycle++
	res := CycleResult{Cycle: m.cycle}

	res.Fetches = m.fetcher.FetchBoth(ctx, m.cfg.Pair)
	for _, f := range res.Fetches {
		m.recorder.ObserveFetch(f.Exchange, f.Latency, f.Err)
		m.apply(f)
	}

	res.State = m.state
	if report, ok := domain.Detect(m.state, m.cycle, m.now()); ok {
		res.Report = &report
		m.report(ctx, report)
	}

	m.mu.Lock()
	m.stats.Cycles++
	m.mu.Unlock()

	elapsed := m.now().Sub(start)
	m.recorder.ObserveCycle(elapsed)
	slog.Debug("cycle complete",
		"cycle", m.cycle,
		"duration", elapsed.Round(time.Microsecond),
		"opportunity", res.Report != nil,
	)
	return res
}

// apply actualiza el lado de un exchange con su resultado del ciclo. Un fetch
// fallido deja el lado stale; un libro vacío conserva el último precio.
func (m *Monitor) apply(f FetchResult) {
	if f.Err != nil {
		m.mu.Lock()
		m.stats.FetchFailures[f.Exchange]++
		m.mu.Unlock()

		var unsupported *domain.UnsupportedMarketError
		if errors.As(f.Err, &unsupported) {
			slog.Warn("market not mapped, skipping exchange this cycle",
				"exchange", f.Exchange, "pair", unsupported.Pair)
			return
		}
		slog.Warn("order book fetch failed, keeping last known prices",
			"exchange", f.Exchange,
			"symbol", f.Symbol,
			"err", f.Err,
		)
		return
	}

	tob, err := domain.Extract(f.Book)
	if err != nil {
		m.mu.Lock()
		m.stats.EmptyBooks[f.Exchange]++
		m.mu.Unlock()
		slog.Debug("empty book side, keeping last known price",
			"exchange", f.Exchange, "err", err)
	}

	observedAt := f.Book.FetchedAt
	if observedAt.IsZero() {
		observedAt = f.FetchedAt
	}
	m.mu.Lock()
	err = m.state.Update(f.Exchange, tob, observedAt)
	q, ok := m.state.Quote(f.Exchange)
	m.mu.Unlock()
	if err != nil {
		slog.Error("price state update rejected", "exchange", f.Exchange, "err", err)
		return
	}
	if ok {
		m.recorder.ObserveQuote(f.Exchange, q)
	}
}

// report notifica la oportunidad y actualiza las estadísticas.
func (m *Monitor) report(ctx context.Context, r domain.OpportunityReport) {
	if r.Miscalibrated {
		slog.Warn("both books crossed against each other, feed looks miscalibrated",
			"cycle", r.Cycle,
			"pair", r.Pair,
		)
	}

	m.mu.Lock()
	m.stats.record(r)
	m.mu.Unlock()
	m.recorder.ObserveOpportunity(r)

	if err := m.notifier.Notify(ctx, r); err != nil {
		slog.Warn("notifier error", "err", err)
	}
}

// heartbeat loguea periódicamente que el monitor sigue buscando.
func (m *Monitor) heartbeat() {
	if m.cfg.HeartbeatInterval <= 0 {
		return
	}
	now := m.now()
	if now.Sub(m.lastHeartbeat) < m.cfg.HeartbeatInterval {
		return
	}
	m.lastHeartbeat = now

	s := m.Stats()
	slog.Info("seeking arbitrage opportunity",
		"pair", m.cfg.Pair,
		"cycles", s.Cycles,
		"opportunities", s.Opportunities,
		"ready", m.state.Ready(),
	)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(domain.ExchangeID, time.Duration, error) {}
func (nopRecorder) ObserveQuote(domain.ExchangeID, domain.Quote) {}
func (nopRecorder) ObserveCycle(time.Duration) {}
func (nopRecorder) ObserveOpportunity(domain.OpportunityReport) {}
