package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/spreadwatch/config"
	"github.com/alejandrodnm/spreadwatch/internal/adapters/metrics"
	"github.com/alejandrodnm/spreadwatch/internal/adapters/notify"
	"github.com/alejandrodnm/spreadwatch/internal/monitor"
	"github.com/alejandrodnm/spreadwatch/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file (empty: defaults + env only)")
	once := flag.Bool("once", false, "run one poll cycle and exit")
	dryRun := flag.Bool("dry-run", false, "use scripted order books instead of the exchanges")
	fixtures := flag.String("fixtures", "config/fixtures.yaml", "order book fixtures for -dry-run")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	output := flag.String("output", "", "console output: line|block (overrides config)")
	sink := flag.String("sink", "", "report sink: console|log|both (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, flagOverrides(*verbose, *logFormat, *output, *sink))
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	format, err := notify.ParseFormat(cfg.Output.Format)
	if err != nil {
		slog.Error("invalid output format", "err", err)
		os.Exit(1)
	}

	a, b := cfg.ExchangePair()
	slog.Info("spreadwatch starting",
		"config", *configPath,
		"pair", cfg.Pair(),
		"exchange_a", a,
		"exchange_b", b,
		"transport", cfg.Monitor.Transport,
		"dry_run", *dryRun,
		"once", *once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, format, *once, *dryRun, *fixtures); err != nil {
		slog.Error("spreadwatch exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("spreadwatch stopped cleanly")
}

func loadConfig(path string, overrides ...config.Override) (*config.Config, error) {
	if path == "" {
		return config.Default(overrides...)
	}
	return config.Load(path, overrides...)
}

// flagOverrides aplica los flags de la CLI antes de normalizar y validar.
// Un flag vacío no toca el valor del YAML o del entorno.
func flagOverrides(verbose bool, logFormat, output, sink string) config.Override {
	return func(c *config.Config) {
		if verbose {
			c.Log.Level = "debug"
		}
		if logFormat != "" {
			c.Log.Format = logFormat
		}
		if output != "" {
			c.Output.Format = output
		}
		if sink != "" {
			c.Output.Sink = sink
		}
	}
}

func run(ctx context.Context, cfg *config.Config, format notify.Format, once, dryRun bool, fixturesPath string) error {
	markets, err := cfg.MarketTable()
	if err != nil {
		return err
	}

	transport := cfg.Monitor.Transport
	if once && transport == config.TransportStream {
		// Un solo ciclo no da tiempo a que llegue el primer snapshot.
		slog.Info("-once uses REST transport")
		transport = config.TransportREST
	}

	books, err := buildProviders(cfg, markets, transport, dryRun, fixturesPath)
	if err != nil {
		return err
	}

	var recorder *metrics.Recorder
	var rec ports.Recorder
	if cfg.Metrics.Addr != "" {
		recorder = metrics.NewRecorder()
		rec = recorder
	}

	console := notify.NewConsole(format)
	var notifier ports.Notifier
	switch cfg.Output.Sink {
	case config.SinkLog:
		notifier = notify.NewLog(slog.Default())
	case config.SinkBoth:
		notifier = notify.Multi{console, notify.NewLog(slog.Default())}
	default:
		notifier = console
	}

	a, b := cfg.ExchangePair()
	monCfg := monitor.Config{
		Pair:              cfg.Pair(),
		ExchangeA:         a,
		ExchangeB:         b,
		MinCycleInterval:  cfg.MinCycleInterval(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
	}
	m, err := monitor.New(monCfg, markets, books.byExchange[a], books.byExchange[b], notifier, rec)
	if err != nil {
		return err
	}

	if once {
		res := m.RunOnce(ctx)
		for _, f := range res.Fetches {
			if f.Err != nil {
				slog.Warn("fetch failed", "exchange", f.Exchange, "err", f.Err)
			}
		}
		if res.Report == nil {
			slog.Info("no arbitrage opportunity this cycle", "ready", res.State.Ready())
		}
		return nil
	}

	// El bind falla aquí, antes del loop. Lo que pase después solo se loguea.
	if recorder != nil {
		srv, err := recorder.Listen(cfg.Metrics.Addr)
		if err != nil {
			return err
		}

		mctx, stop := context.WithCancel(ctx)
		served := make(chan struct{})
		go func() {
			srv.Serve(mctx)
			close(served)
		}()
		defer func() {
			stop()
			<-served
		}()
	}

	console.PrintBanner(cfg.Pair(), a, b, transport)

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range books.streams {
		g.Go(func() error { return s.Run(gctx) })
	}
	g.Go(func() error { return m.Run(gctx) })

	err = g.Wait()
	console.PrintSummary(m.Stats(), time.Now())
	return err
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
