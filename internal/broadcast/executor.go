package broadcast

import (
	"context"

	"tradecore/internal/models"
)

// CancelExecutor - способность транспорта отменять ордера на площадке
//
// Все методы могут вызываться конкурентно из нескольких горутин.
// Ошибки классифицируются broadcaster'ом по подстрокам сообщения:
// часть отказов площадки означает "уже отменён" и считается успехом.
type CancelExecutor interface {
	// HealthCheck проверяет доступность площадки через этот транспорт
	HealthCheck(ctx context.Context) error

	// CancelOrder отменяет один ордер по клиентскому или биржевому id
	CancelOrder(ctx context.Context, instrumentID models.InstrumentID,
		clientOrderID models.ClientOrderID, venueOrderID models.VenueOrderID) (*models.OrderStatusReport, error)

	// CancelOrders отменяет пакет ордеров одного инструмента
	CancelOrders(ctx context.Context, instrumentID models.InstrumentID,
		clientOrderIDs []models.ClientOrderID, venueOrderIDs []models.VenueOrderID) ([]models.OrderStatusReport, error)

	// CancelAllOrders отменяет все ордера инструмента; NoOrderSide = обе стороны
	CancelAllOrders(ctx context.Context, instrumentID models.InstrumentID,
		side models.OrderSide) ([]models.OrderStatusReport, error)

	// AddInstrument регистрирует инструмент у транспорта
	AddInstrument(instrument models.Instrument) error
}
