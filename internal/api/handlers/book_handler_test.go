package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"tradecore/internal/execution"
	"tradecore/internal/models"
)

// ============================================================
// Фикстуры
// ============================================================

func testInstrument(t *testing.T) models.Instrument {
	t.Helper()
	inst, err := models.NewPerpetualInstrument(models.InstrumentBase{
		InstrumentID:  models.NewInstrumentID("XBTUSD", "BITMEX"),
		Symbol:        "XBTUSD",
		Base:          "XBT",
		Quote:         "USD",
		Settlement:    "XBT",
		Inverse:       true,
		PriceAccuracy: 1,
		SizeAccuracy:  0,
		PriceStep:     models.MustPrice(0.5, 1),
		SizeStep:      models.MustQuantity(1, 0),
	})
	if err != nil {
		t.Fatalf("failed to build instrument: %v", err)
	}
	return inst
}

// fakeBookSource подменяет движок заранее заданными снимками
type fakeBookSource struct {
	instruments []models.Instrument
	snapshot    execution.BookSnapshot
	top         execution.TopOfBook
	err         error
	lastDepth   int
}

func (f *fakeBookSource) Instruments() []models.Instrument {
	return f.instruments
}

func (f *fakeBookSource) Snapshot(id models.InstrumentID, depth int) (execution.BookSnapshot, error) {
	f.lastDepth = depth
	if f.err != nil {
		return execution.BookSnapshot{}, f.err
	}
	return f.snapshot, nil
}

func (f *fakeBookSource) Top(id models.InstrumentID) (execution.TopOfBook, error) {
	if f.err != nil {
		return execution.TopOfBook{}, f.err
	}
	return f.top, nil
}

func (f *fakeBookSource) LastTrade(id models.InstrumentID) (models.TradeTick, bool) {
	return models.TradeTick{}, false
}

func newBookRouter(source *fakeBookSource) *mux.Router {
	handler := NewBookHandler(source)
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/books", handler.GetBooks).Methods("GET")
	router.HandleFunc("/api/v1/books/{instrument}", handler.GetBook).Methods("GET")
	router.HandleFunc("/api/v1/books/{instrument}/top", handler.GetTop).Methods("GET")
	return router
}

func bookSourceFixture(t *testing.T) *fakeBookSource {
	t.Helper()
	return &fakeBookSource{
		instruments: []models.Instrument{testInstrument(t)},
		snapshot: execution.BookSnapshot{
			InstrumentID: models.NewInstrumentID("XBTUSD", "BITMEX"),
			Sequence:     7,
			Bids: []execution.PriceLevel{
				{Price: models.MustPrice(50000, 1), Size: models.MustQuantity(100, 0), Orders: 2},
			},
			Asks: []execution.PriceLevel{
				{Price: models.MustPrice(50000.5, 1), Size: models.MustQuantity(150, 0), Orders: 1},
			},
		},
		top: execution.TopOfBook{
			InstrumentID: models.NewInstrumentID("XBTUSD", "BITMEX"),
			BidPrice:     models.MustPrice(50000, 1),
			BidSize:      models.MustQuantity(100, 0),
			HasBid:       true,
			Spread:       0.5,
		},
	}
}

// ============================================================
// Тесты
// ============================================================

func TestGetBook(t *testing.T) {
	source := bookSourceFixture(t)
	router := newBookRouter(source)

	req := httptest.NewRequest("GET", "/api/v1/books/XBTUSD.BITMEX?depth=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if source.lastDepth != 5 {
		t.Errorf("depth parameter must be forwarded, got %d", source.lastDepth)
	}

	var view BookView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.Instrument != "XBTUSD.BITMEX" {
		t.Errorf("expected XBTUSD.BITMEX, got %s", view.Instrument)
	}
	if view.Sequence != 7 {
		t.Errorf("expected sequence 7, got %d", view.Sequence)
	}
	if len(view.Bids) != 1 || view.Bids[0].Price != 50000 {
		t.Errorf("unexpected bids: %+v", view.Bids)
	}
}

func TestGetBookDefaultDepth(t *testing.T) {
	source := bookSourceFixture(t)
	router := newBookRouter(source)

	req := httptest.NewRequest("GET", "/api/v1/books/XBTUSD.BITMEX", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if source.lastDepth != defaultBookDepth {
		t.Errorf("expected default depth %d, got %d", defaultBookDepth, source.lastDepth)
	}
}

func TestGetBookBareSymbol(t *testing.T) {
	source := bookSourceFixture(t)
	router := newBookRouter(source)

	// Голый символ разрешается через зарегистрированные инструменты
	req := httptest.NewRequest("GET", "/api/v1/books/XBTUSD", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for bare symbol, got %d", rec.Code)
	}
}

func TestGetBookErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"invalid depth", "/api/v1/books/XBTUSD.BITMEX?depth=abc", nil, http.StatusBadRequest},
		{"negative depth", "/api/v1/books/XBTUSD.BITMEX?depth=-1", nil, http.StatusBadRequest},
		{"unknown instrument", "/api/v1/books/ETHUSD.BITMEX", execution.ErrUnknownInstrument, http.StatusNotFound},
		{"unresolvable symbol", "/api/v1/books/NOPE", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := bookSourceFixture(t)
			source.err = tt.err
			router := newBookRouter(source)

			req := httptest.NewRequest("GET", tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetTop(t *testing.T) {
	source := bookSourceFixture(t)
	router := newBookRouter(source)

	req := httptest.NewRequest("GET", "/api/v1/books/XBTUSD.BITMEX/top", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var view TopView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.BidPrice == nil || *view.BidPrice != 50000 {
		t.Errorf("expected bid price 50000, got %v", view.BidPrice)
	}
	// Отсутствующая сторона сериализуется как null
	if view.AskPrice != nil {
		t.Errorf("expected null ask price, got %v", *view.AskPrice)
	}
}

func TestGetBooks(t *testing.T) {
	source := bookSourceFixture(t)
	router := newBookRouter(source)

	req := httptest.NewRequest("GET", "/api/v1/books", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var views []InstrumentView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 instrument, got %d", len(views))
	}
	if views[0].Symbol != "XBTUSD" {
		t.Errorf("expected symbol XBTUSD, got %s", views[0].Symbol)
	}
	if views[0].PriceIncrement != 0.5 {
		t.Errorf("expected price increment 0.5, got %v", views[0].PriceIncrement)
	}
}
