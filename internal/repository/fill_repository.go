package repository

import (
	"database/sql"
	"errors"
	"time"

	"tradecore/internal/models"
)

// Ошибки журнала сделок
var (
	ErrFillNotFound = errors.New("fill not found")
)

// FillRepository - журнал исполнений (таблица fills)
//
// Сделки дедуплицируются по (venue, trade_id): повторная доставка
// отчёта при реконнекте не создаёт дубликат строки.
type FillRepository struct {
	db *sql.DB
}

// NewFillRepository создает новый экземпляр репозитория
func NewFillRepository(db *sql.DB) *FillRepository {
	return &FillRepository{db: db}
}

const fillColumns = `account_id, symbol, venue, client_order_id, venue_order_id, trade_id,
		side, qty_raw, qty_precision, px_raw, px_precision,
		commission_raw, commission_currency, liquidity_side, position_id, ts_event`

// Insert добавляет сделку в журнал. Дубликат по (venue, trade_id) игнорируется.
func (r *FillRepository) Insert(fill *models.FillReport) error {
	query := `
		INSERT INTO fills (` + fillColumns + `, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (venue, trade_id) DO NOTHING`

	_, err := r.db.Exec(
		query,
		string(fill.AccountID),
		string(fill.InstrumentID.Symbol),
		string(fill.InstrumentID.Venue),
		string(fill.ClientOrderID),
		string(fill.VenueOrderID),
		string(fill.TradeID),
		int(fill.OrderSide),
		int64(fill.LastQty.Raw),
		int(fill.LastQty.Precision),
		fill.LastPx.Raw,
		int(fill.LastPx.Precision),
		fill.Commission.Raw,
		string(fill.Commission.Currency),
		int(fill.LiquiditySide),
		string(fill.PositionID),
		int64(fill.TsEvent),
		time.Now(),
	)

	return err
}

// GetByTradeID возвращает сделку по биржевому идентификатору
func (r *FillRepository) GetByTradeID(venue models.Venue, tradeID models.TradeID) (*models.FillReport, error) {
	query := `
		SELECT ` + fillColumns + `
		FROM fills
		WHERE venue = $1 AND trade_id = $2`

	fill, err := r.scanFill(r.db.QueryRow(query, string(venue), string(tradeID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFillNotFound
		}
		return nil, err
	}

	return fill, nil
}

// GetByClientOrderID возвращает все сделки ордера (в порядке исполнения)
func (r *FillRepository) GetByClientOrderID(clientOrderID models.ClientOrderID) ([]*models.FillReport, error) {
	query := `
		SELECT ` + fillColumns + `
		FROM fills
		WHERE client_order_id = $1
		ORDER BY ts_event ASC`

	return r.queryFills(query, string(clientOrderID))
}

// GetRecent возвращает последние N сделок
func (r *FillRepository) GetRecent(limit int) ([]*models.FillReport, error) {
	query := `
		SELECT ` + fillColumns + `
		FROM fills
		ORDER BY ts_event DESC
		LIMIT $1`

	return r.queryFills(query, limit)
}

// Count возвращает общее количество сделок
func (r *FillRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM fills`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteOlderThan удаляет сделки старше указанной даты, возвращает число удалённых
func (r *FillRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM fills WHERE created_at < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// scanFill читает одну строку журнала в отчёт о сделке
func (r *FillRepository) scanFill(row scanner) (*models.FillReport, error) {
	var (
		fill                        models.FillReport
		accountID, symbol, venue    string
		clientOrderID, venueOrderID string
		tradeID, positionID         string
		side, liquidity             int
		qtyRaw, pxRaw, commRaw      int64
		qtyPrec, pxPrec             int
		commCurrency                string
		tsEvent                     int64
	)

	err := row.Scan(
		&accountID,
		&symbol,
		&venue,
		&clientOrderID,
		&venueOrderID,
		&tradeID,
		&side,
		&qtyRaw,
		&qtyPrec,
		&pxRaw,
		&pxPrec,
		&commRaw,
		&commCurrency,
		&liquidity,
		&positionID,
		&tsEvent,
	)
	if err != nil {
		return nil, err
	}

	fill.AccountID = models.AccountID(accountID)
	fill.InstrumentID = models.NewInstrumentID(models.Symbol(symbol), models.Venue(venue))
	fill.ClientOrderID = models.ClientOrderID(clientOrderID)
	fill.VenueOrderID = models.VenueOrderID(venueOrderID)
	fill.TradeID = models.TradeID(tradeID)
	fill.OrderSide = models.OrderSide(side)
	fill.LastQty = models.QuantityFromRaw(uint64(qtyRaw), uint8(qtyPrec))
	fill.LastPx = models.PriceFromRaw(pxRaw, uint8(pxPrec))
	fill.Commission = models.Money{Raw: commRaw, Currency: models.Currency(commCurrency)}
	fill.LiquiditySide = models.LiquiditySide(liquidity)
	fill.PositionID = models.PositionID(positionID)
	fill.TsEvent = models.UnixNanos(tsEvent)

	return &fill, nil
}

// queryFills выполняет запрос и читает все строки
func (r *FillRepository) queryFills(query string, args ...interface{}) ([]*models.FillReport, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fills []*models.FillReport
	for rows.Next() {
		fill, err := r.scanFill(rows)
		if err != nil {
			return nil, err
		}
		fills = append(fills, fill)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return fills, nil
}
