package wsfeed_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/spreadwatch/internal/adapters/wsfeed"
	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

type testMsg struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
}

func decode(msg []byte) (domain.OrderBook, bool, error) {
	var m testMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return domain.OrderBook{}, false, err
	}
	if m.Type != "book" {
		return domain.OrderBook{}, false, nil
	}
	return domain.OrderBook{
		Symbol: m.Symbol,
		Bids:   []domain.PriceLevel{{Price: decimal.RequireFromString(m.Bid), Size: decimal.NewFromInt(1)}},
		Asks:   []domain.PriceLevel{{Price: decimal.RequireFromString(m.Ask), Size: decimal.NewFromInt(1)}},
	}, true, nil
}

// wsServer arranca un servidor websocket; handle recibe cada conexión y su índice.
func wsServer(t *testing.T, handle func(conn *websocket.Conn, n int)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn, int(conns.Add(1)))
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// holdOpen lee hasta que el cliente cierre.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func runFeed(t *testing.T, f *wsfeed.Feed) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("feed did not stop after cancel")
		}
	})
}

func TestFeed_SubscribesAndCachesBook(t *testing.T) {
	subscribed := make(chan string, 1)
	srv, _ := wsServer(t, func(conn *websocket.Conn, _ int) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subscribed <- string(msg)
		conn.WriteJSON(testMsg{Type: "ack"})
		conn.WriteJSON(testMsg{Type: "book", Symbol: "RDNT", Bid: "0.05", Ask: "0.051"})
		holdOpen(conn)
	})

	f := wsfeed.New(wsfeed.Options{
		Name:   "test",
		URL:    wsURL(srv),
		Decode: decode,
		Subscribe: func(conn *websocket.Conn) error {
			return conn.WriteMessage(websocket.TextMessage, []byte(`{"sub":"RDNT"}`))
		},
		MaxAge: time.Minute,
	})
	runFeed(t, f)

	select {
	case msg := <-subscribed:
		assert.Equal(t, `{"sub":"RDNT"}`, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not sent")
	}

	var book domain.OrderBook
	require.Eventually(t, func() bool {
		var err error
		book, err = f.FetchOrderBook(context.Background(), "RDNT")
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "0.05", book.Bids[0].Price.String())
	assert.Equal(t, "0.051", book.Asks[0].Price.String())
	assert.False(t, book.FetchedAt.IsZero())
}

func TestFeed_NoBookYet(t *testing.T) {
	f := wsfeed.New(wsfeed.Options{Name: "test", URL: "ws://127.0.0.1:1", Decode: decode})

	_, err := f.FetchOrderBook(context.Background(), "RDNT")
	assert.True(t, errors.Is(err, wsfeed.ErrNoBook))
}

func TestFeed_StaleBook(t *testing.T) {
	srv, _ := wsServer(t, func(conn *websocket.Conn, _ int) {
		conn.WriteJSON(testMsg{Type: "book", Symbol: "RDNT", Bid: "1", Ask: "2"})
		holdOpen(conn)
	})

	f := wsfeed.New(wsfeed.Options{Name: "test", URL: wsURL(srv), Decode: decode, MaxAge: 50 * time.Millisecond})
	runFeed(t, f)

	require.Eventually(t, func() bool {
		_, err := f.FetchOrderBook(context.Background(), "RDNT")
		return err == nil
	}, 2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := f.FetchOrderBook(context.Background(), "RDNT")
		return errors.Is(err, wsfeed.ErrStaleBook)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFeed_ReconnectsAfterDrop(t *testing.T) {
	srv, conns := wsServer(t, func(conn *websocket.Conn, n int) {
		if n == 1 {
			conn.WriteJSON(testMsg{Type: "book", Symbol: "RDNT", Bid: "1", Ask: "2"})
			return // cierra la conexión
		}
		conn.WriteJSON(testMsg{Type: "book", Symbol: "RDNT", Bid: "3", Ask: "4"})
		holdOpen(conn)
	})

	f := wsfeed.New(wsfeed.Options{
		Name:         "test",
		URL:          wsURL(srv),
		Decode:       decode,
		MaxAge:       time.Minute,
		ReconnectMin: 5 * time.Millisecond,
		ReconnectMax: 20 * time.Millisecond,
	})
	runFeed(t, f)

	require.Eventually(t, func() bool {
		book, err := f.FetchOrderBook(context.Background(), "RDNT")
		return err == nil && book.Bids[0].Price.String() == "3"
	}, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestFeed_SkipsUndecodableMessages(t *testing.T) {
	srv, _ := wsServer(t, func(conn *websocket.Conn, _ int) {
		conn.WriteMessage(websocket.TextMessage, []byte("garbage"))
		conn.WriteJSON(testMsg{Type: "book", Symbol: "RDNT", Bid: "1", Ask: "2"})
		holdOpen(conn)
	})

	f := wsfeed.New(wsfeed.Options{Name: "test", URL: wsURL(srv), Decode: decode, MaxAge: time.Minute})
	runFeed(t, f)

	require.Eventually(t, func() bool {
		_, err := f.FetchOrderBook(context.Background(), "RDNT")
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestFeed_CancelledContext(t *testing.T) {
	f := wsfeed.New(wsfeed.Options{Name: "test", URL: "ws://127.0.0.1:1", Decode: decode})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchOrderBook(ctx, "RDNT")
	assert.ErrorIs(t, err, context.Canceled)
}
