package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tradecore/internal/models"
)

// ============================================================
// FillRepository Tests
// ============================================================

func testFill() *models.FillReport {
	return &models.FillReport{
		AccountID:     "ACC-1",
		InstrumentID:  models.NewInstrumentID("XBTUSD", "BITMEX"),
		ClientOrderID: "O-001",
		VenueOrderID:  "V-001",
		TradeID:       "T-001",
		OrderSide:     models.Buy,
		LastQty:       models.MustQuantity(40, 0),
		LastPx:        models.MustPrice(50000.5, 1),
		Commission:    models.MustMoney(0.25, "USDT"),
		LiquiditySide: models.Maker,
		PositionID:    "P-001",
		TsEvent:       5000,
	}
}

// fillRows строит sqlmock-строки из сделок в порядке колонок SELECT
func fillRows(fills ...*models.FillReport) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"account_id", "symbol", "venue", "client_order_id", "venue_order_id", "trade_id",
		"side", "qty_raw", "qty_precision", "px_raw", "px_precision",
		"commission_raw", "commission_currency", "liquidity_side", "position_id", "ts_event",
	})
	for _, f := range fills {
		rows.AddRow(
			string(f.AccountID), string(f.InstrumentID.Symbol), string(f.InstrumentID.Venue),
			string(f.ClientOrderID), string(f.VenueOrderID), string(f.TradeID),
			int(f.OrderSide), int64(f.LastQty.Raw), int(f.LastQty.Precision),
			f.LastPx.Raw, int(f.LastPx.Precision),
			f.Commission.Raw, string(f.Commission.Currency),
			int(f.LiquiditySide), string(f.PositionID), int64(f.TsEvent),
		)
	}
	return rows
}

func TestNewFillRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewFillRepository(db)
	if repo == nil {
		t.Fatal("NewFillRepository returned nil")
	}
	if repo.db != db {
		t.Error("db not set correctly")
	}
}

func TestFillRepositoryInsert(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		mockErr      error
		expectError  bool
	}{
		{"inserted", 1, nil, false},
		{"duplicate ignored", 0, nil, false},
		{"database error", 0, errors.New("database error"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			exp := mock.ExpectExec(`INSERT INTO fills`)
			if tt.mockErr != nil {
				exp.WillReturnError(tt.mockErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			}

			repo := NewFillRepository(db)
			err = repo.Insert(testFill())

			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestFillRepositoryGetByTradeID(t *testing.T) {
	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "success",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM fills WHERE venue = \$1 AND trade_id = \$2`).
					WithArgs("BITMEX", "T-001").
					WillReturnRows(fillRows(testFill()))
			},
			expectError: nil,
		},
		{
			name: "not found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM fills WHERE venue = \$1 AND trade_id = \$2`).
					WithArgs("BITMEX", "T-001").
					WillReturnError(sql.ErrNoRows)
			},
			expectError: ErrFillNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewFillRepository(db)
			fill, err := repo.GetByTradeID("BITMEX", "T-001")

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := testFill()
			if fill.TradeID != want.TradeID {
				t.Errorf("TradeID = %s, want %s", fill.TradeID, want.TradeID)
			}
			if fill.LastPx.Raw != want.LastPx.Raw {
				t.Errorf("LastPx.Raw = %d, want %d", fill.LastPx.Raw, want.LastPx.Raw)
			}
			if fill.Commission.Raw != want.Commission.Raw || fill.Commission.Currency != want.Commission.Currency {
				t.Errorf("Commission = %+v, want %+v", fill.Commission, want.Commission)
			}
			if fill.LiquiditySide != models.Maker {
				t.Errorf("LiquiditySide = %s, want MAKER", fill.LiquiditySide)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestFillRepositoryGetByClientOrderID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	first := testFill()
	second := testFill()
	second.TradeID = "T-002"
	second.TsEvent = 6000

	mock.ExpectQuery(`SELECT .+ FROM fills WHERE client_order_id = \$1 ORDER BY ts_event ASC`).
		WithArgs("O-001").
		WillReturnRows(fillRows(first, second))

	repo := NewFillRepository(db)
	fills, err := repo.GetByClientOrderID("O-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fills) != 2 {
		t.Fatalf("got %d fills, want 2", len(fills))
	}
	if fills[1].TradeID != "T-002" {
		t.Errorf("second fill TradeID = %s, want T-002", fills[1].TradeID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFillRepositoryDeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	cutoff := time.Now().AddDate(0, 0, -90)

	mock.ExpectExec(`DELETE FROM fills WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 13))

	repo := NewFillRepository(db)
	deleted, err := repo.DeleteOlderThan(cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 13 {
		t.Errorf("deleted = %d, want 13", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
