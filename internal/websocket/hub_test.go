package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"tradecore/internal/execution"
	"tradecore/internal/models"
)

// ============================================================
// Unit Tests
// ============================================================

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.DroppedMessages() != 0 {
		t.Errorf("expected 0 dropped messages, got %d", hub.DroppedMessages())
	}
}

func TestOriginChecker_Check(t *testing.T) {
	checker := &OriginChecker{
		allowedOrigins: map[string]struct{}{
			"http://localhost:3000": {},
			"https://example.com":   {},
		},
		allowAll: false,
	}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},                       // empty origin allowed
		{"http://localhost:3000", true},  // allowed
		{"https://example.com", true},    // allowed
		{"http://evil.com", false},       // not allowed
		{"http://localhost:8080", false}, // not in list
	}

	for _, tt := range tests {
		got := checker.Check(tt.origin)
		if got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestOriginChecker_AllowAll(t *testing.T) {
	checker := &OriginChecker{
		allowAll: true,
	}

	origins := []string{
		"http://localhost:3000",
		"https://evil.com",
		"http://anything.example.org",
	}

	for _, origin := range origins {
		if !checker.Check(origin) {
			t.Errorf("allowAll=true but Check(%q) = false", origin)
		}
	}
}

func TestHub_DeliversToClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		hub:  hub,
		send: make(chan []byte, clientSendBufferSize),
	}
	hub.register <- client

	hub.Broadcast(map[string]string{"type": "test"})

	select {
	case message := <-client.send:
		var decoded map[string]string
		if err := json.Unmarshal(message, &decoded); err != nil {
			t.Fatalf("broadcast payload is not JSON: %v", err)
		}
		if decoded["type"] != "test" {
			t.Errorf("expected type test, got %q", decoded["type"])
		}
	case <-time.After(time.Second):
		t.Fatal("client did not receive broadcast")
	}

	hub.unregister <- client
	deadline := time.After(time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client was not unregistered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHub_BroadcastNonBlocking(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	// Переполняем broadcast канал
	for i := 0; i < 10000; i++ {
		hub.Broadcast(map[string]int{"i": i})
	}

	// Не должно блокироваться: лишнее отбрасывается
	time.Sleep(10 * time.Millisecond)

	if hub.DroppedMessages() == 0 {
		t.Log("No messages dropped (channel was not full)")
	}
}

func TestHub_Stop(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	hub.Stop()

	select {
	case <-done:
		// Run() завершился
	case <-time.After(1 * time.Second):
		t.Error("Hub.Run() did not exit after Stop()")
	}

	// Повторный Stop безопасен
	hub.Stop()
}

// ============================================================
// Message factories
// ============================================================

func TestNewBookTopMessage(t *testing.T) {
	top := execution.TopOfBook{
		InstrumentID: models.NewInstrumentID("XBTUSD", "BITMEX"),
		BidPrice:     models.MustPrice(50000, 1),
		BidSize:      models.MustQuantity(100, 0),
		HasBid:       true,
		Spread:       0.5,
		Midpoint:     50000.25,
	}

	msg := NewBookTopMessage(top)
	if msg.Type != MessageTypeBookTop {
		t.Errorf("expected type %s, got %s", MessageTypeBookTop, msg.Type)
	}
	if msg.Instrument != "XBTUSD.BITMEX" {
		t.Errorf("expected XBTUSD.BITMEX, got %s", msg.Instrument)
	}
	if msg.BidPrice == nil || *msg.BidPrice != 50000 {
		t.Errorf("expected bid price 50000, got %v", msg.BidPrice)
	}
	if msg.AskPrice != nil {
		t.Error("missing ask side must serialize as null")
	}
}

func TestNewTradeMessage(t *testing.T) {
	msg := NewTradeMessage(models.TradeTick{
		InstrumentID:  models.NewInstrumentID("XBTUSD", "BITMEX"),
		Price:         models.MustPrice(50000.5, 1),
		Size:          models.MustQuantity(10, 0),
		AggressorSide: models.AggressorBuyer,
		TradeID:       "T-1",
	})

	if msg.Type != MessageTypeTrade {
		t.Errorf("expected type %s, got %s", MessageTypeTrade, msg.Type)
	}
	if msg.Price != 50000.5 || msg.Size != 10 {
		t.Errorf("unexpected price/size: %v/%v", msg.Price, msg.Size)
	}
	if msg.TradeID != "T-1" {
		t.Errorf("expected trade id T-1, got %s", msg.TradeID)
	}
}

// ============================================================
// Benchmarks
// ============================================================

func BenchmarkHub_Broadcast(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	msg := map[string]interface{}{
		"type": "test",
		"data": "benchmark message",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.Broadcast(msg)
	}
}

func BenchmarkHub_BroadcastRaw(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	data := []byte(`{"type":"test","data":"benchmark message"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.BroadcastRaw(data)
	}
}

func BenchmarkOriginChecker_Check(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		originChecker.Check("http://localhost:3000")
	}
}

// ============================================================
// Parallel Stress Test
// ============================================================

func TestHub_ConcurrentOperations(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	var wg sync.WaitGroup
	const goroutines = 10
	const operations = 1000

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				hub.Broadcast(map[string]int{"goroutine": id, "op": j})
			}
		}(i)
	}

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				_ = hub.ClientCount()
			}
		}()
	}

	wg.Wait()
}
