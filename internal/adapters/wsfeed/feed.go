package wsfeed

// feed.go: cliente websocket genérico que mantiene en caché el último libro
// recibido por símbolo.
//
// El exchange empuja snapshots; FetchOrderBook solo lee la caché, así el
// monitor puede tratar un adapter de stream igual que uno REST.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

const (
	defaultMaxAge       = 5 * time.Second
	defaultReconnectMin = 500 * time.Millisecond
	defaultReconnectMax = 30 * time.Second
	defaultPingInterval = 20 * time.Second
	writeTimeout        = 5 * time.Second
)

// ErrNoBook se devuelve cuando todavía no ha llegado ningún libro del símbolo.
var ErrNoBook = errors.New("no book received yet")

// ErrStaleBook se devuelve cuando el último libro es más viejo que MaxAge.
var ErrStaleBook = errors.New("book is stale")

// Decoder convierte un mensaje en un libro. ok=false para mensajes de control
// (acks de suscripción, pongs) que no traen libro.
type Decoder func(msg []byte) (book domain.OrderBook, ok bool, err error)

// Subscriber envía los mensajes de suscripción tras cada conexión.
type Subscriber func(conn *websocket.Conn) error

// Options configura un Feed.
type Options struct {
	Name string // solo para logs
	URL  string

	Subscribe Subscriber // opcional
	Decode    Decoder

	// MaxAge es la edad máxima de un libro en caché. Más viejo → ErrStaleBook.
	MaxAge time.Duration

	ReconnectMin time.Duration
	ReconnectMax time.Duration

	// PingInterval y PingPayload controlan el keepalive. Con PingPayload nil
	// se envía un ping de control websocket; si no, un mensaje de texto.
	PingInterval time.Duration
	PingPayload  []byte
}

type cached struct {
	book       domain.OrderBook
	receivedAt time.Time
}

// Feed mantiene una conexión websocket viva y reconecta con backoff.
type Feed struct {
	opts   Options
	dialer *websocket.Dialer

	mu    sync.RWMutex
	books map[string]cached
}

// New crea un Feed. No conecta hasta Run.
func New(opts Options) *Feed {
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultMaxAge
	}
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = defaultReconnectMin
	}
	if opts.ReconnectMax < opts.ReconnectMin {
		opts.ReconnectMax = defaultReconnectMax
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	return &Feed{
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		books:  make(map[string]cached),
	}
}

// Run mantiene la conexión hasta que se cancele ctx. Siempre devuelve nil
// tras la cancelación; los errores de conexión se loguean y se reintentan.
func (f *Feed) Run(ctx context.Context) error {
	wait := f.opts.ReconnectMin
	for {
		received, err := f.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if received > 0 {
			wait = f.opts.ReconnectMin
		}
		slog.Warn("stream disconnected, reconnecting",
			"feed", f.opts.Name,
			"err", err,
			"messages", received,
			"retry_in", wait,
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
		wait *= 2
		if wait > f.opts.ReconnectMax {
			wait = f.opts.ReconnectMax
		}
	}
}

// session abre una conexión y lee hasta que falle. Devuelve cuántos libros recibió.
func (f *Feed) session(ctx context.Context) (int, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.opts.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("wsfeed.session: dial: %w", err)
	}
	defer conn.Close()

	if f.opts.Subscribe != nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := f.opts.Subscribe(conn); err != nil {
			return 0, fmt.Errorf("wsfeed.session: subscribe: %w", err)
		}
	}
	slog.Info("stream connected", "feed", f.opts.Name, "url", f.opts.URL)

	// ReadMessage no acepta contexto: cerrar la conexión lo desbloquea.
	done := make(chan struct{})
	defer close(done)
	go f.keepalive(ctx, conn, done)

	received := 0
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return received, fmt.Errorf("wsfeed.session: read: %w", err)
		}

		book, ok, err := f.opts.Decode(msg)
		if err != nil {
			slog.Debug("stream message skipped", "feed", f.opts.Name, "err", err)
			continue
		}
		if !ok {
			continue
		}
		f.store(book)
		received++
	}
}

// keepalive envía pings periódicos y cierra la conexión al cancelar ctx.
// Es el único escritor de conn después de la suscripción.
func (f *Feed) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(f.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			return
		case <-ticker.C:
			var err error
			if f.opts.PingPayload != nil {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				err = conn.WriteMessage(websocket.TextMessage, f.opts.PingPayload)
			} else {
				err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			}
			if err != nil {
				slog.Debug("stream ping failed", "feed", f.opts.Name, "err", err)
				conn.Close()
				return
			}
		}
	}
}

func (f *Feed) store(book domain.OrderBook) {
	now := time.Now()
	if book.FetchedAt.IsZero() {
		book.FetchedAt = now
	}
	f.mu.Lock()
	f.books[book.Symbol] = cached{book: book, receivedAt: now}
	f.mu.Unlock()
}

// FetchOrderBook devuelve el último libro recibido para symbol.
// Implementa ports.BookProvider; nunca bloquea en red.
func (f *Feed) FetchOrderBook(ctx context.Context, symbol string) (domain.OrderBook, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderBook{}, err
	}

	f.mu.RLock()
	c, ok := f.books[symbol]
	f.mu.RUnlock()

	if !ok {
		return domain.OrderBook{}, fmt.Errorf("%s %s: %w", f.opts.Name, symbol, ErrNoBook)
	}
	if age := time.Since(c.receivedAt); age > f.opts.MaxAge {
		return domain.OrderBook{}, fmt.Errorf("%s %s: %w (age %s)", f.opts.Name, symbol, ErrStaleBook, age.Round(time.Millisecond))
	}
	return c.book, nil
}
