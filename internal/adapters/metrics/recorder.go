package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

const namespace = "spreadwatch"

// Recorder implementa ports.Recorder sobre un registry propio de Prometheus.
type Recorder struct {
	reg *prometheus.Registry

	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	bestBid       *prometheus.GaugeVec
	bestAsk       *prometheus.GaugeVec
	cycleDuration prometheus.Histogram
	opportunities *prometheus.CounterVec
	lastProfit    prometheus.Gauge
}

// NewRecorder crea el Recorder y registra sus métricas.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of order book fetches per exchange.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"exchange"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed order book fetches per exchange.",
		}, []string{"exchange"}),
		bestBid: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_bid",
			Help:      "Last known best bid per exchange.",
		}, []string{"exchange"}),
		bestAsk: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_ask",
			Help:      "Last known best ask per exchange.",
		}, []string{"exchange"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full fetch/detect cycle.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		opportunities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Detected arbitrage opportunities by direction.",
		}, []string{"buy_exchange", "sell_exchange"}),
		lastProfit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_profit",
			Help:      "Profit of the last detected opportunity, in quote currency.",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.fetchDuration, r.fetchErrors,
		r.bestBid, r.bestAsk,
		r.cycleDuration,
		r.opportunities, r.lastProfit,
	)
	return r
}

func (r *Recorder) ObserveFetch(exchange domain.ExchangeID, latency time.Duration, err error) {
	r.fetchDuration.WithLabelValues(exchange.String()).Observe(latency.Seconds())
	if err != nil {
		r.fetchErrors.WithLabelValues(exchange.String()).Inc()
	}
}

func (r *Recorder) ObserveQuote(exchange domain.ExchangeID, q domain.Quote) {
	// Los gauges son float64: pierden precisión, solo sirven para dashboards.
	if q.HasBid {
		r.bestBid.WithLabelValues(exchange.String()).Set(q.Bid.InexactFloat64())
	}
	if q.HasAsk {
		r.bestAsk.WithLabelValues(exchange.String()).Set(q.Ask.InexactFloat64())
	}
}

func (r *Recorder) ObserveCycle(d time.Duration) {
	r.cycleDuration.Observe(d.Seconds())
}

func (r *Recorder) ObserveOpportunity(report domain.OpportunityReport) {
	r.opportunities.WithLabelValues(report.BuyExchange.String(), report.SellExchange.String()).Inc()
	r.lastProfit.Set(report.Profit.InexactFloat64())
}

// Handler devuelve el handler de /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Server es el endpoint /metrics ya enlazado a su dirección.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen enlaza addr para /metrics. Una dirección inválida u ocupada falla aquí,
// antes de arrancar el loop.
func (r *Recorder) Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics.Listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// Addr devuelve la dirección enlazada (útil con ":0").
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve atiende /metrics hasta que se cancele ctx. Los errores de servicio se
// loguean y no se devuelven: las métricas nunca paran el monitor.
func (s *Server) Serve(ctx context.Context) {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics server listening", "addr", s.Addr())
		errCh <- s.srv.Serve(s.ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "addr", s.Addr(), "err", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown", "err", err)
		}
		<-errCh
	}
}
