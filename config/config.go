package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

// Transportes de market data soportados.
const (
	TransportREST   = "rest"
	TransportStream = "stream"
)

// Sinks de salida soportados.
const (
	SinkConsole = "console"
	SinkLog     = "log"
	SinkBoth    = "both"
)

// Config es la configuración completa del monitor.
type Config struct {
	Monitor   MonitorConfig   `yaml:"monitor"`
	Exchanges ExchangesConfig `yaml:"exchanges"`
	Output    OutputConfig    `yaml:"output"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`

	// Markets añade o reemplaza símbolos de la tabla incorporada:
	// par → exchange → símbolo nativo.
	Markets map[string]map[string]string `yaml:"markets"`
}

// MonitorConfig controla el loop de polling.
type MonitorConfig struct {
	Pair      string `yaml:"pair"`       // "RDNT/USDT"
	ExchangeA string `yaml:"exchange_a"` // prioridad en la regla 1 del detector
	ExchangeB string `yaml:"exchange_b"`
	Transport string `yaml:"transport"` // rest | stream

	// Duraciones Go ("250ms", "30s"). Vacío → default; "0s" desactiva.
	MinCycleInterval  string `yaml:"min_cycle_interval"`
	HeartbeatInterval string `yaml:"heartbeat_interval"`
	StreamMaxAge      string `yaml:"stream_max_age"` // solo transport=stream
}

// ExchangesConfig contiene los endpoints de cada venue.
type ExchangesConfig struct {
	Binance     BinanceConfig     `yaml:"binance"`
	Hyperliquid HyperliquidConfig `yaml:"hyperliquid"`
}

// BinanceConfig contiene los endpoints de Binance spot.
type BinanceConfig struct {
	RESTBase   string `yaml:"rest_base"`
	StreamBase string `yaml:"stream_base"`
	Depth      int    `yaml:"depth"`
	Timeout    string `yaml:"timeout"`
}

// HyperliquidConfig contiene los endpoints de Hyperliquid.
type HyperliquidConfig struct {
	RESTBase  string `yaml:"rest_base"`
	StreamURL string `yaml:"stream_url"`
	Timeout   string `yaml:"timeout"`
}

// OutputConfig controla cómo se presentan las oportunidades.
type OutputConfig struct {
	Format string `yaml:"format"` // line | block
	Sink   string `yaml:"sink"`   // console | log | both
}

// MetricsConfig controla el endpoint Prometheus. Addr vacío lo desactiva.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Override modifica la configuración después del YAML y del entorno, antes de
// defaults y validación. Lo usan los flags de la CLI.
type Override func(*Config)

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Prioridad: overrides > entorno > YAML > defaults.
func Load(path string, overrides ...Override) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data, overrides...)
}

// Parse decodifica YAML, aplica entorno, overrides y defaults, y valida una
// sola vez al final.
func Parse(data []byte, overrides ...Override) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	for _, o := range overrides {
		o(&cfg)
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default devuelve la configuración sin fichero: solo entorno, overrides y defaults.
func Default(overrides ...Override) (*Config, error) {
	return Parse(nil, overrides...)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SPREADWATCH_PAIR"); v != "" {
		cfg.Monitor.Pair = v
	}
	if v := os.Getenv("SPREADWATCH_TRANSPORT"); v != "" {
		cfg.Monitor.Transport = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Monitor.Pair == "" {
		cfg.Monitor.Pair = string(domain.PairRDNTUSDT)
	}
	if cfg.Monitor.ExchangeA == "" {
		cfg.Monitor.ExchangeA = string(domain.Binance)
	}
	if cfg.Monitor.ExchangeB == "" {
		cfg.Monitor.ExchangeB = string(domain.Hyperliquid)
	}
	if cfg.Monitor.Transport == "" {
		cfg.Monitor.Transport = TransportREST
	}
	if cfg.Monitor.MinCycleInterval == "" {
		cfg.Monitor.MinCycleInterval = "250ms"
	}
	if cfg.Monitor.HeartbeatInterval == "" {
		cfg.Monitor.HeartbeatInterval = "30s"
	}
	if cfg.Monitor.StreamMaxAge == "" {
		cfg.Monitor.StreamMaxAge = "5s"
	}
	if cfg.Exchanges.Binance.Depth <= 0 {
		cfg.Exchanges.Binance.Depth = 20
	}
	if cfg.Exchanges.Binance.Timeout == "" {
		cfg.Exchanges.Binance.Timeout = "5s"
	}
	if cfg.Exchanges.Hyperliquid.Timeout == "" {
		cfg.Exchanges.Hyperliquid.Timeout = "5s"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "line"
	}
	if cfg.Output.Sink == "" {
		cfg.Output.Sink = SinkConsole
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	cfg.Monitor.Transport = normalize(cfg.Monitor.Transport)
	cfg.Output.Format = normalize(cfg.Output.Format)
	cfg.Output.Sink = normalize(cfg.Output.Sink)
	cfg.Log.Level = normalize(cfg.Log.Level)
	cfg.Log.Format = normalize(cfg.Log.Format)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate comprueba valores que setDefaults no puede corregir.
func (c *Config) Validate() error {
	var errs []error

	pair, err := domain.ParsePair(c.Monitor.Pair)
	if err != nil {
		errs = append(errs, err)
	}
	a, errA := domain.ParseExchangeID(c.Monitor.ExchangeA)
	b, errB := domain.ParseExchangeID(c.Monitor.ExchangeB)
	errs = append(errs, errA, errB)
	if errA == nil && errB == nil && a == b {
		errs = append(errs, fmt.Errorf("exchange_a and exchange_b must differ (both %s)", a))
	}

	switch c.Monitor.Transport {
	case TransportREST, TransportStream:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q (want rest|stream)", c.Monitor.Transport))
	}
	switch c.Output.Sink {
	case SinkConsole, SinkLog, SinkBoth:
	default:
		errs = append(errs, fmt.Errorf("unknown output sink %q (want console|log|both)", c.Output.Sink))
	}

	for name, v := range map[string]string{
		"monitor.min_cycle_interval":    c.Monitor.MinCycleInterval,
		"monitor.heartbeat_interval":    c.Monitor.HeartbeatInterval,
		"monitor.stream_max_age":        c.Monitor.StreamMaxAge,
		"exchanges.binance.timeout":     c.Exchanges.Binance.Timeout,
		"exchanges.hyperliquid.timeout": c.Exchanges.Hyperliquid.Timeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", name))
		}
	}

	markets, err := c.MarketTable()
	if err != nil {
		errs = append(errs, err)
	} else if pair != "" && errA == nil && errB == nil {
		errs = append(errs, markets.Validate(pair, a, b))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

// Pair devuelve el par validado.
func (c *Config) Pair() domain.TradingPair {
	p, _ := domain.ParsePair(c.Monitor.Pair)
	return p
}

// ExchangePair devuelve (A, B) validados.
func (c *Config) ExchangePair() (domain.ExchangeID, domain.ExchangeID) {
	a, _ := domain.ParseExchangeID(c.Monitor.ExchangeA)
	b, _ := domain.ParseExchangeID(c.Monitor.ExchangeB)
	return a, b
}

// MinCycleInterval devuelve la separación mínima entre ciclos. 0 = sin espera.
func (c *Config) MinCycleInterval() time.Duration { return mustDuration(c.Monitor.MinCycleInterval) }

// HeartbeatInterval devuelve el intervalo del heartbeat. 0 lo desactiva.
func (c *Config) HeartbeatInterval() time.Duration { return mustDuration(c.Monitor.HeartbeatInterval) }

// StreamMaxAge devuelve la edad máxima de un libro recibido por stream.
func (c *Config) StreamMaxAge() time.Duration { return mustDuration(c.Monitor.StreamMaxAge) }

// BinanceTimeout devuelve el timeout por request de Binance.
func (c *Config) BinanceTimeout() time.Duration { return mustDuration(c.Exchanges.Binance.Timeout) }

// HyperliquidTimeout devuelve el timeout por request de Hyperliquid.
func (c *Config) HyperliquidTimeout() time.Duration {
	return mustDuration(c.Exchanges.Hyperliquid.Timeout)
}

// MarketTable devuelve la tabla incorporada con los símbolos extra del YAML.
func (c *Config) MarketTable() (domain.MarketTable, error) {
	table := domain.DefaultMarkets()
	for rawPair, bySymbol := range c.Markets {
		pair, err := domain.ParsePair(rawPair)
		if err != nil {
			return domain.MarketTable{}, fmt.Errorf("markets: %w", err)
		}
		for rawEx, symbol := range bySymbol {
			ex, err := domain.ParseExchangeID(rawEx)
			if err != nil {
				return domain.MarketTable{}, fmt.Errorf("markets[%s]: %w", pair, err)
			}
			if strings.TrimSpace(symbol) == "" {
				return domain.MarketTable{}, fmt.Errorf("markets[%s][%s]: empty symbol", pair, ex)
			}
			table = table.With(pair, ex, strings.TrimSpace(symbol))
		}
	}
	return table, nil
}

// mustDuration solo se llama con valores ya validados.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
