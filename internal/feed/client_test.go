package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tradecore/internal/book"
	"tradecore/internal/models"
)

// wsTestServer поднимает WebSocket сервер, который держит соединение
// и отдаёт полученные текстовые сообщения в канал
type wsTestServer struct {
	server   *httptest.Server
	received chan []byte
	send     chan []byte
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	ts := &wsTestServer{
		received: make(chan []byte, 16),
		send:     make(chan []byte, 16),
	}

	upgrader := websocket.Upgrader{}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				ts.received <- msg
			}
		}()

		for {
			select {
			case <-done:
				return
			case msg := <-ts.send:
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *wsTestServer) url() string {
	return "ws" + strings.TrimPrefix(ts.server.URL, "http")
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		URL:            url,
		Venue:          "BITMEX",
		TopicDelimiter: ":",
		PingInterval:   time.Minute,
		ReadTimeout:    time.Minute,
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func waitFor(t *testing.T, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("NewClient() expected error for empty url")
	}
}

func TestClientConnectAndSubscribe(t *testing.T) {
	ts := newWSTestServer(t)
	client := newTestClient(t, ts.url())

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}

	if err := client.Subscribe("orderBookL2:XBTUSD"); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	// Запрос подписки ушёл на сервер
	select {
	case msg := <-ts.received:
		if !strings.Contains(string(msg), "orderBookL2:XBTUSD") {
			t.Errorf("subscribe message = %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe message not received by server")
	}

	if !client.Tracker().IsPendingSubscribe("orderBookL2:XBTUSD") {
		t.Error("topic not marked pending subscribe")
	}

	// ACK площадки подтверждает подписку
	ts.send <- []byte(`{"success":true,"subscribe":"orderBookL2:XBTUSD"}`)
	waitFor(t, func() bool {
		return client.Tracker().IsConfirmed("orderBookL2:XBTUSD")
	}, "subscription never confirmed")
}

func TestClientDispatchesBookDeltas(t *testing.T) {
	ts := newWSTestServer(t)
	client := newTestClient(t, ts.url())

	deltas := make(chan book.BookDelta, 16)
	client.OnDelta(func(d book.BookDelta) { deltas <- d })

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	ts.send <- []byte(`{
		"table":"orderBookL2","action":"insert",
		"data":[{"symbol":"XBTUSD","id":100,"side":"Buy","size":1500,"price":50000.5}]
	}`)

	select {
	case d := <-deltas:
		if d.Action != models.BookAdd {
			t.Errorf("Action = %s, want ADD", d.Action)
		}
		if d.Order.Side != models.Buy {
			t.Errorf("Side = %s, want BUY", d.Order.Side)
		}
		if d.InstrumentID.Venue != "BITMEX" {
			t.Errorf("Venue = %s, want BITMEX", d.InstrumentID.Venue)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delta not dispatched")
	}
}

func TestClientDispatchesQuotesAndTrades(t *testing.T) {
	ts := newWSTestServer(t)
	client := newTestClient(t, ts.url())

	quotes := make(chan models.QuoteTick, 16)
	trades := make(chan models.TradeTick, 16)
	client.OnQuote(func(q models.QuoteTick) { quotes <- q })
	client.OnTrade(func(tr models.TradeTick) { trades <- tr })

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	ts.send <- []byte(`{
		"table":"quote",
		"data":[{"symbol":"XBTUSD","bidPrice":50000.5,"bidSize":100,"askPrice":50001.0,"askSize":50}]
	}`)
	ts.send <- []byte(`{
		"table":"trade",
		"data":[{"symbol":"XBTUSD","side":"Sell","size":10,"price":50000.5,"trdMatchID":"T-9"}]
	}`)

	select {
	case q := <-quotes:
		if q.BidPrice.Cmp(models.MustPrice(50000.5, 1)) != 0 {
			t.Errorf("BidPrice = %s, want 50000.5", q.BidPrice)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("quote not dispatched")
	}

	select {
	case tr := <-trades:
		if tr.AggressorSide != models.AggressorSeller {
			t.Errorf("AggressorSide = %s, want SELLER", tr.AggressorSide)
		}
		if tr.TradeID != "T-9" {
			t.Errorf("TradeID = %s, want T-9", tr.TradeID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("trade not dispatched")
	}
}

func TestClientRejectedRequestMarksFailure(t *testing.T) {
	ts := newWSTestServer(t)
	client := newTestClient(t, ts.url())

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := client.Subscribe("garbage:TOPIC"); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	ts.send <- []byte(`{"error":"Unknown table: garbage","request":{"op":"subscribe","args":["garbage:TOPIC"]}}`)

	waitFor(t, func() bool {
		return !client.Tracker().IsPendingSubscribe("garbage:TOPIC")
	}, "failed topic still pending")
}

func TestClientClose(t *testing.T) {
	ts := newWSTestServer(t)
	client := newTestClient(t, ts.url())

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if client.State() != StateClosed {
		t.Errorf("State = %s, want closed", client.State())
	}

	// Повторное подключение после Close запрещено
	if err := client.Connect(context.Background()); err == nil {
		t.Error("Connect() after Close expected error")
	}

	// Отправка после Close возвращает ошибку
	if err := client.Subscribe("quote:XBTUSD"); err == nil {
		t.Error("Subscribe() after Close expected error")
	}
}

func TestConnStateString(t *testing.T) {
	tests := []struct {
		state ConnState
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateReconnecting, "reconnecting"},
		{StateClosed, "closed"},
		{ConnState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}
