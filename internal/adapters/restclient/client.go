package restclient

// client.go: HTTP client JSON compartido por los adapters REST de exchanges.
//
// Cada venue tiene su propio token bucket: el rate limiting de la API es
// responsabilidad del adapter, no del loop del monitor.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 5 * time.Second
	defaultMaxRetries    = 2
	defaultBaseRetryWait = 200 * time.Millisecond
)

// Options configura un Client.
type Options struct {
	// RatePerSec y Burst definen el token bucket. RatePerSec <= 0 = sin límite.
	RatePerSec float64
	Burst      int

	// Timeout por request (incluye leer el body).
	Timeout time.Duration

	MaxRetries    int
	BaseRetryWait time.Duration
}

// Client es un HTTP client con rate limiting y retries con backoff.
type Client struct {
	http    *http.Client
	base    string
	name    string
	limiter *rate.Limiter
	retries int
	wait    time.Duration
}

// New crea un Client para el base URL dado. name solo se usa en logs.
func New(name, base string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BaseRetryWait <= 0 {
		opts.BaseRetryWait = defaultBaseRetryWait
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}

	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		base:    base,
		name:    name,
		limiter: rate.NewLimiter(limit, opts.Burst),
		retries: opts.MaxRetries,
		wait:    opts.BaseRetryWait,
	}
}

// BaseURL devuelve el base URL configurado.
func (c *Client) BaseURL() string { return c.base }

// Get hace un GET path con rate limiting y retries y decodifica el JSON en out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	url := c.base + path
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// Post hace un POST JSON con rate limiting y retries y decodifica el JSON en out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	url := c.base + path
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("restclient.Post: marshal body: %w", err)
	}
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
// 429 y 5xx se reintentan; el resto de 4xx se devuelve directamente.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
			slog.Debug("retryable response", "api", c.name, "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("request failed after %d retries: %w", c.retries, lastErr)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	if attempt >= c.retries {
		return
	}
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.wait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
