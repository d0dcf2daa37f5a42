package feed

import (
	"testing"

	"github.com/shopspring/decimal"

	"tradecore/internal/models"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	codec := NewCodec("BITMEX")

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
	codec.RegisterInstrument(inst)
	return codec
}

func TestParseDeltas(t *testing.T) {
	codec := testCodec(t)
	data := []byte(`[
		{"symbol":"XBTUSD","id":8799275050,"side":"Buy","size":1500,"price":50000.5},
		{"symbol":"XBTUSD","id":8799275000,"side":"Sell","size":800,"price":50001.0}
	]`)

	tests := []struct {
		name       string
		action     string
		wantCount  int
		wantAction models.BookAction
		wantErr    bool
	}{
		{
			name:       "insert",
			action:     "insert",
			wantCount:  2,
			wantAction: models.BookAdd,
		},
		{
			name:       "update",
			action:     "update",
			wantCount:  2,
			wantAction: models.BookUpdate,
		},
		{
			name:       "delete",
			action:     "delete",
			wantCount:  2,
			wantAction: models.BookDelete,
		},
		{
			// partial предваряется BookClear: снимок замещает книгу
			name:       "partial emits clear first",
			action:     "partial",
			wantCount:  3,
			wantAction: models.BookClear,
		},
		{
			name:    "unknown action",
			action:  "upsert",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deltas, err := codec.ParseDeltas(tt.action, data, 7, 1_000)
			if tt.wantErr {
				if err == nil {
					t.Error("ParseDeltas() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDeltas() error: %v", err)
			}
			if len(deltas) != tt.wantCount {
				t.Fatalf("deltas = %d, want %d", len(deltas), tt.wantCount)
			}
			if deltas[0].Action != tt.wantAction {
				t.Errorf("first action = %s, want %s", deltas[0].Action, tt.wantAction)
			}
			for _, d := range deltas {
				if d.Sequence != 7 {
					t.Errorf("Sequence = %d, want 7", d.Sequence)
				}
				if d.InstrumentID.Symbol != "XBTUSD" || d.InstrumentID.Venue != "BITMEX" {
					t.Errorf("InstrumentID = %s", d.InstrumentID)
				}
			}
		})
	}
}

func TestParseDeltasValues(t *testing.T) {
	codec := testCodec(t)
	data := []byte(`[{"symbol":"XBTUSD","id":8799275050,"side":"Buy","size":1500,"price":50000.5}]`)

	deltas, err := codec.ParseDeltas("insert", data, 1, 0)
	if err != nil {
		t.Fatalf("ParseDeltas() error: %v", err)
	}

	order := deltas[0].Order
	if order.Side != models.Buy {
		t.Errorf("Side = %s, want BUY", order.Side)
	}
	// Точности взяты из зарегистрированного инструмента
	if order.Price.Cmp(models.MustPrice(50000.5, 1)) != 0 || order.Price.Precision != 1 {
		t.Errorf("Price = %s (precision %d), want 50000.5 (1)", order.Price, order.Price.Precision)
	}
	if order.Size.Cmp(models.MustQuantity(1500, 0)) != 0 {
		t.Errorf("Size = %s, want 1500", order.Size)
	}
	if order.OrderID != 8799275050 {
		t.Errorf("OrderID = %d, want 8799275050", order.OrderID)
	}
}

func TestParseQuotes(t *testing.T) {
	codec := testCodec(t)
	data := []byte(`[{
		"symbol":"XBTUSD",
		"bidPrice":50000.5,"bidSize":1500,
		"askPrice":50001.0,"askSize":800,
		"timestamp":"2024-01-15T10:30:00.000Z"
	}]`)

	quotes, err := codec.ParseQuotes(data)
	if err != nil {
		t.Fatalf("ParseQuotes() error: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("quotes = %d, want 1", len(quotes))
	}

	q := quotes[0]
	if q.BidPrice.Cmp(models.MustPrice(50000.5, 1)) != 0 {
		t.Errorf("BidPrice = %s, want 50000.5", q.BidPrice)
	}
	if q.AskPrice.Cmp(models.MustPrice(50001.0, 1)) != 0 {
		t.Errorf("AskPrice = %s, want 50001.0", q.AskPrice)
	}
	if q.BidSize.Cmp(models.MustQuantity(1500, 0)) != 0 {
		t.Errorf("BidSize = %s, want 1500", q.BidSize)
	}
	if q.TsEvent == 0 {
		t.Error("TsEvent is zero, want parsed timestamp")
	}
}

func TestParseTrades(t *testing.T) {
	codec := testCodec(t)
	data := []byte(`[
		{"symbol":"XBTUSD","side":"Buy","size":100,"price":50000.5,"trdMatchID":"T-1","timestamp":"2024-01-15T10:30:00.000Z"},
		{"symbol":"XBTUSD","side":"Sell","size":50,"price":50000.0,"trdMatchID":"T-2","timestamp":"2024-01-15T10:30:01.000Z"}
	]`)

	trades, err := codec.ParseTrades(data)
	if err != nil {
		t.Fatalf("ParseTrades() error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(trades))
	}

	if trades[0].AggressorSide != models.AggressorBuyer {
		t.Errorf("AggressorSide = %s, want BUYER", trades[0].AggressorSide)
	}
	if trades[1].AggressorSide != models.AggressorSeller {
		t.Errorf("AggressorSide = %s, want SELLER", trades[1].AggressorSide)
	}
	if trades[0].TradeID != "T-1" {
		t.Errorf("TradeID = %s, want T-1", trades[0].TradeID)
	}
	if trades[0].Price.Cmp(models.MustPrice(50000.5, 1)) != 0 {
		t.Errorf("Price = %s, want 50000.5", trades[0].Price)
	}
}

func TestParseMalformedData(t *testing.T) {
	codec := testCodec(t)
	garbage := []byte(`{"not":"an array"}`)

	if _, err := codec.ParseDeltas("insert", garbage, 1, 0); err == nil {
		t.Error("ParseDeltas() expected error for malformed data")
	}
	if _, err := codec.ParseQuotes(garbage); err == nil {
		t.Error("ParseQuotes() expected error for malformed data")
	}
	if _, err := codec.ParseTrades(garbage); err == nil {
		t.Error("ParseTrades() expected error for malformed data")
	}
}

func TestUnknownSymbolPrecisionFromDecimal(t *testing.T) {
	codec := testCodec(t)
	// ETHUSD не зарегистрирован: точность выводится из строки значения
	data := []byte(`[{"symbol":"ETHUSD","id":100,"side":"Buy","size":2.55,"price":3000.05}]`)

	deltas, err := codec.ParseDeltas("insert", data, 1, 0)
	if err != nil {
		t.Fatalf("ParseDeltas() error: %v", err)
	}

	order := deltas[0].Order
	if order.Price.Precision != 2 {
		t.Errorf("price precision = %d, want 2", order.Price.Precision)
	}
	if order.Size.Precision != 2 {
		t.Errorf("size precision = %d, want 2", order.Size.Precision)
	}
	if order.Price.Cmp(models.MustPrice(3000.05, 2)) != 0 {
		t.Errorf("Price = %s, want 3000.05", order.Price)
	}
}

func TestDecimalPrecision(t *testing.T) {
	tests := []struct {
		in   string
		want uint8
	}{
		{"100", 0},
		{"0.5", 1},
		{"50000.05", 2},
		{"0.00000001", 8},
		{"0.0000000001", models.FixedPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.in)
			if err != nil {
				t.Fatalf("bad fixture: %v", err)
			}
			if got := decimalPrecision(d); got != tt.want {
				t.Errorf("decimalPrecision(%s) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestPriceFromDecimalExact(t *testing.T) {
	// 0.1 непредставим в float64; через decimal конвертация точная
	d, _ := decimal.NewFromString("0.1")
	p := priceFromDecimal(d, 1)
	if p.Raw != models.FixedScalar/10 {
		t.Errorf("Raw = %d, want %d", p.Raw, models.FixedScalar/10)
	}
}
