package book

import (
	"errors"
	"testing"

	"tradecore/internal/models"
)

func TestLadderPriorityOrdering(t *testing.T) {
	tests := []struct {
		name   string
		side   models.OrderSide
		prices []float64
		want   []float64
	}{
		{"bids descending", models.Buy, []float64{99, 101, 100}, []float64{101, 100, 99}},
		{"asks ascending", models.Sell, []float64{101, 99, 100}, []float64{99, 100, 101}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLadder(tt.side)
			for i, p := range tt.prices {
				order := BookOrder{
					Side:    tt.side,
					Price:   models.MustPrice(p, 2),
					Size:    models.MustQuantity(1, 0),
					OrderID: uint64(i + 1),
				}
				if err := l.Add(order); err != nil {
					t.Fatalf("add failed: %v", err)
				}
			}
			levels := l.Levels(0)
			if len(levels) != len(tt.want) {
				t.Fatalf("levels = %d, want %d", len(levels), len(tt.want))
			}
			for i, level := range levels {
				if level.Price.Float64() != tt.want[i] {
					t.Errorf("level[%d] = %v, want %v", i, level.Price.Float64(), tt.want[i])
				}
			}
		})
	}
}

func TestLadderUpdateMovesOrderOnPriceChange(t *testing.T) {
	l := NewLadder(models.Sell)

	order := BookOrder{Side: models.Sell, Price: models.MustPrice(100, 2), Size: models.MustQuantity(5, 0), OrderID: 1}
	if err := l.Add(order); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	order.Price = models.MustPrice(101, 2)
	if err := l.Update(order); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if l.Len() != 1 {
		t.Fatalf("levels = %d, want 1 (old level dropped)", l.Len())
	}
	top, _ := l.Top()
	if top.Price.Float64() != 101 {
		t.Errorf("top = %v, want 101", top.Price.Float64())
	}
}

func TestLadderDeleteUnknownOrder(t *testing.T) {
	l := NewLadder(models.Buy)

	err := l.Delete(42)
	if err == nil {
		t.Fatal("expected error for unknown order")
	}
	var notFound *OrderNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("error type = %T, want *OrderNotFoundError", err)
	}
}

func TestLadderClear(t *testing.T) {
	l := NewLadder(models.Buy)
	_ = l.Add(BookOrder{Side: models.Buy, Price: models.MustPrice(100, 0), Size: models.MustQuantity(1, 0), OrderID: 1})

	l.Clear()

	if !l.IsEmpty() {
		t.Error("ladder should be empty after clear")
	}
	if err := l.Delete(1); err == nil {
		t.Error("cache should be cleared too")
	}
}

func TestLevelFIFOOrder(t *testing.T) {
	level := NewBookLevel(models.MustPrice(100, 0), models.Buy)

	for i := uint64(1); i <= 3; i++ {
		order := BookOrder{Side: models.Buy, Price: models.MustPrice(100, 0), Size: models.MustQuantity(float64(i), 0), OrderID: i}
		if err := level.Add(order); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	orders := level.Orders()
	for i, o := range orders {
		if o.OrderID != uint64(i+1) {
			t.Errorf("order[%d].OrderID = %d, want %d (insertion order)", i, o.OrderID, i+1)
		}
	}
	if level.Size().Float64() != 6 {
		t.Errorf("level size = %v, want 6", level.Size().Float64())
	}
}

func TestLevelZeroSizeOrdersAccepted(t *testing.T) {
	level := NewBookLevel(models.MustPrice(100, 0), models.Buy)

	order := BookOrder{Side: models.Buy, Price: models.MustPrice(100, 0), Size: models.ZeroQuantity(0), OrderID: 1}
	if err := level.Add(order); err != nil {
		t.Fatalf("zero-size order should be accepted: %v", err)
	}
	if level.Size().Float64() != 0 {
		t.Errorf("level size = %v, want 0", level.Size().Float64())
	}
}

func TestLevelRejectsPriceMismatch(t *testing.T) {
	level := NewBookLevel(models.MustPrice(100, 0), models.Buy)

	order := BookOrder{Side: models.Buy, Price: models.MustPrice(101, 0), Size: models.MustQuantity(1, 0), OrderID: 1}
	if err := level.Add(order); err == nil {
		t.Error("expected error for price mismatch")
	}
}

func TestLadderSimulateFillsFIFOWithinLevel(t *testing.T) {
	l := NewLadder(models.Sell)
	// Два ордера на одном уровне: потребляются в порядке поступления
	_ = l.Add(BookOrder{Side: models.Sell, Price: models.MustPrice(100, 0), Size: models.MustQuantity(2, 0), OrderID: 1})
	_ = l.Add(BookOrder{Side: models.Sell, Price: models.MustPrice(100, 0), Size: models.MustQuantity(3, 0), OrderID: 2})

	taker := BookOrder{Side: models.Buy, Price: models.MustPrice(100, 0), Size: models.MustQuantity(4, 0)}
	fills := l.SimulateFills(taker, false)

	if len(fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(fills))
	}
	if fills[0].Size.Float64() != 2 || fills[1].Size.Float64() != 2 {
		t.Errorf("fill sizes = %v/%v, want 2/2 (FIFO, partial second)", fills[0].Size.Float64(), fills[1].Size.Float64())
	}
}
