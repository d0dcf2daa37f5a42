package repository

import (
	"database/sql"
	"errors"
	"time"

	"tradecore/internal/models"
)

// Ошибки журнала отчётов
var (
	ErrReportNotFound = errors.New("report not found")
)

// ReportRepository - журнал отчётов о состоянии ордеров (таблица order_status_reports)
//
// Каждое обновление статуса пишется отдельной строкой: журнал append-only,
// текущее состояние ордера - последняя строка по client_order_id.
// Цены и объёмы хранятся в fixed-point виде (raw + precision), чтобы
// не терять точность при чтении обратно.
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository создает новый экземпляр репозитория
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `account_id, symbol, venue, client_order_id, venue_order_id,
		side, order_type, time_in_force, status,
		qty_raw, qty_precision, filled_raw, price_raw, price_precision,
		trigger_raw, trigger_precision, avg_px, post_only, reduce_only,
		cancel_reason, ts_accepted, ts_triggered, ts_last, ts_init`

// Insert добавляет отчёт в журнал
func (r *ReportRepository) Insert(report *models.OrderStatusReport) error {
	query := `
		INSERT INTO order_status_reports (` + reportColumns + `, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err := r.db.Exec(
		query,
		string(report.AccountID),
		string(report.InstrumentID.Symbol),
		string(report.InstrumentID.Venue),
		string(report.ClientOrderID),
		string(report.VenueOrderID),
		int(report.OrderSide),
		int(report.OrderType),
		int(report.TimeInForce),
		int(report.OrderStatus),
		int64(report.Quantity.Raw),
		int(report.Quantity.Precision),
		int64(report.FilledQty.Raw),
		report.Price.Raw,
		int(report.Price.Precision),
		report.TriggerPrice.Raw,
		int(report.TriggerPrice.Precision),
		report.AvgPx,
		report.PostOnly,
		report.ReduceOnly,
		report.CancelReason,
		int64(report.TsAccepted),
		int64(report.TsTriggered),
		int64(report.TsLast),
		int64(report.TsInit),
		time.Now(),
	)

	return err
}

// GetLatestByClientOrderID возвращает последний отчёт по клиентскому ID ордера
func (r *ReportRepository) GetLatestByClientOrderID(clientOrderID models.ClientOrderID) (*models.OrderStatusReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM order_status_reports
		WHERE client_order_id = $1
		ORDER BY ts_last DESC
		LIMIT 1`

	report, err := r.scanReport(r.db.QueryRow(query, string(clientOrderID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	return report, nil
}

// GetByClientOrderID возвращает всю историю отчётов ордера (от новых к старым)
func (r *ReportRepository) GetByClientOrderID(clientOrderID models.ClientOrderID) ([]*models.OrderStatusReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM order_status_reports
		WHERE client_order_id = $1
		ORDER BY ts_last DESC`

	return r.queryReports(query, string(clientOrderID))
}

// GetByInstrument возвращает последние отчёты по инструменту
func (r *ReportRepository) GetByInstrument(instrumentID models.InstrumentID, limit int) ([]*models.OrderStatusReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM order_status_reports
		WHERE symbol = $1 AND venue = $2
		ORDER BY ts_last DESC
		LIMIT $3`

	return r.queryReports(query, string(instrumentID.Symbol), string(instrumentID.Venue), limit)
}

// GetRecent возвращает последние N отчётов
func (r *ReportRepository) GetRecent(limit int) ([]*models.OrderStatusReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM order_status_reports
		ORDER BY ts_last DESC
		LIMIT $1`

	return r.queryReports(query, limit)
}

// CountByStatus возвращает количество отчётов с определенным статусом
func (r *ReportRepository) CountByStatus(status models.OrderStatus) (int, error) {
	query := `SELECT COUNT(*) FROM order_status_reports WHERE status = $1`

	var count int
	err := r.db.QueryRow(query, int(status)).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Count возвращает общее количество отчётов
func (r *ReportRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM order_status_reports`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteOlderThan удаляет отчёты старше указанной даты, возвращает число удалённых
func (r *ReportRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM order_status_reports WHERE created_at < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// scanner - общий интерфейс *sql.Row / *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanReport читает одну строку журнала в отчёт
func (r *ReportRepository) scanReport(row scanner) (*models.OrderStatusReport, error) {
	var (
		report                          models.OrderStatusReport
		accountID, symbol, venue        string
		clientOrderID, venueOrderID     string
		side, orderType, tif, status    int
		qtyRaw, filledRaw               int64
		qtyPrec, pricePrec, trigPrec    int
		priceRaw, trigRaw               int64
		tsAccepted, tsTriggered, tsLast, tsInit int64
	)

	err := row.Scan(
		&accountID,
		&symbol,
		&venue,
		&clientOrderID,
		&venueOrderID,
		&side,
		&orderType,
		&tif,
		&status,
		&qtyRaw,
		&qtyPrec,
		&filledRaw,
		&priceRaw,
		&pricePrec,
		&trigRaw,
		&trigPrec,
		&report.AvgPx,
		&report.PostOnly,
		&report.ReduceOnly,
		&report.CancelReason,
		&tsAccepted,
		&tsTriggered,
		&tsLast,
		&tsInit,
	)
	if err != nil {
		return nil, err
	}

	report.AccountID = models.AccountID(accountID)
	report.InstrumentID = models.NewInstrumentID(models.Symbol(symbol), models.Venue(venue))
	report.ClientOrderID = models.ClientOrderID(clientOrderID)
	report.VenueOrderID = models.VenueOrderID(venueOrderID)
	report.OrderSide = models.OrderSide(side)
	report.OrderType = models.OrderType(orderType)
	report.TimeInForce = models.TimeInForce(tif)
	report.OrderStatus = models.OrderStatus(status)
	report.Quantity = models.QuantityFromRaw(uint64(qtyRaw), uint8(qtyPrec))
	report.FilledQty = models.QuantityFromRaw(uint64(filledRaw), uint8(qtyPrec))
	report.Price = models.PriceFromRaw(priceRaw, uint8(pricePrec))
	report.TriggerPrice = models.PriceFromRaw(trigRaw, uint8(trigPrec))
	report.TsAccepted = models.UnixNanos(tsAccepted)
	report.TsTriggered = models.UnixNanos(tsTriggered)
	report.TsLast = models.UnixNanos(tsLast)
	report.TsInit = models.UnixNanos(tsInit)

	return &report, nil
}

// queryReports выполняет запрос и читает все строки
func (r *ReportRepository) queryReports(query string, args ...interface{}) ([]*models.OrderStatusReport, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.OrderStatusReport
	for rows.Next() {
		report, err := r.scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return reports, nil
}
