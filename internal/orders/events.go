package orders

import (
	"tradecore/internal/models"
)

// events.go - события жизненного цикла ордера
//
// Tagged union: интерфейс OrderEvent с конкретной структурой на каждый
// переход машины состояний. Событие OrderFilled одно - итоговый статус
// (PARTIALLY_FILLED или FILLED) вычисляется из количеств при применении.

// EventType - вид события ордера
type EventType uint8

const (
	EventInitialized EventType = iota + 1
	EventDenied
	EventEmulated
	EventReleased
	EventSubmitted
	EventAccepted
	EventRejected
	EventCanceled
	EventExpired
	EventTriggered
	EventPendingUpdate
	EventPendingCancel
	EventUpdated
	EventPartiallyFilled
	EventFilled
	EventModifyRejected
	EventCancelRejected
)

func (t EventType) String() string {
	switch t {
	case EventInitialized:
		return "INITIALIZED"
	case EventDenied:
		return "DENIED"
	case EventEmulated:
		return "EMULATED"
	case EventReleased:
		return "RELEASED"
	case EventSubmitted:
		return "SUBMITTED"
	case EventAccepted:
		return "ACCEPTED"
	case EventRejected:
		return "REJECTED"
	case EventCanceled:
		return "CANCELED"
	case EventExpired:
		return "EXPIRED"
	case EventTriggered:
		return "TRIGGERED"
	case EventPendingUpdate:
		return "PENDING_UPDATE"
	case EventPendingCancel:
		return "PENDING_CANCEL"
	case EventUpdated:
		return "UPDATED"
	case EventPartiallyFilled:
		return "PARTIALLY_FILLED"
	case EventFilled:
		return "FILLED"
	case EventModifyRejected:
		return "MODIFY_REJECTED"
	case EventCancelRejected:
		return "CANCEL_REJECTED"
	default:
		return "UNKNOWN"
	}
}

// OrderEvent - общая поверхность всех событий ордера
type OrderEvent interface {
	EventType() EventType
	OrderID() models.ClientOrderID
	Timestamp() models.UnixNanos
}

// OrderInitialized - ордер создан; несёт все параметры варианта,
// достаточные для реконструкции из журнала событий
type OrderInitialized struct {
	TraderID        models.TraderID
	StrategyID      models.StrategyID
	InstrumentID    models.InstrumentID
	ClientOrderID   models.ClientOrderID
	Side            models.OrderSide
	OrderType       models.OrderType
	Quantity        models.Quantity
	TimeInForce     models.TimeInForce
	PostOnly        bool
	ReduceOnly      bool
	QuoteQuantity   bool
	Price           *models.Price
	TriggerPrice    *models.Price
	TriggerType     models.TriggerType
	LimitOffset     *models.Price
	TrailingOffset  *models.Price
	TrailingType    models.TrailingOffsetType
	DisplayQty      *models.Quantity
	ExpireTime      models.UnixNanos
	EmulationTrigger models.TriggerType
	ContingencyType models.ContingencyType
	OrderListID     models.OrderListID
	LinkedOrderIDs  []models.ClientOrderID
	ParentOrderID   models.ClientOrderID
	ExecAlgorithmID models.ExecAlgorithmID
	ExecSpawnID     models.ClientOrderID
	Tags            []string
	TsEvent         models.UnixNanos
	TsInit          models.UnixNanos
}

func (e *OrderInitialized) EventType() EventType            { return EventInitialized }
func (e *OrderInitialized) OrderID() models.ClientOrderID   { return e.ClientOrderID }
func (e *OrderInitialized) Timestamp() models.UnixNanos     { return e.TsEvent }

// OrderDenied - ордер отклонён внутренней проверкой до отправки
type OrderDenied struct {
	ClientOrderID models.ClientOrderID
	Reason        string
	TsEvent       models.UnixNanos
}

func (e *OrderDenied) EventType() EventType          { return EventDenied }
func (e *OrderDenied) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderDenied) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderEmulated - ордер удерживается локальным эмулятором
type OrderEmulated struct {
	ClientOrderID models.ClientOrderID
	TsEvent       models.UnixNanos
}

func (e *OrderEmulated) EventType() EventType          { return EventEmulated }
func (e *OrderEmulated) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderEmulated) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderReleased - ордер выпущен эмулятором к отправке
type OrderReleased struct {
	ClientOrderID models.ClientOrderID
	ReleasedPrice models.Price
	TsEvent       models.UnixNanos
}

func (e *OrderReleased) EventType() EventType          { return EventReleased }
func (e *OrderReleased) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderReleased) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderSubmitted - ордер отправлен на площадку
type OrderSubmitted struct {
	ClientOrderID models.ClientOrderID
	AccountID     models.AccountID
	TsEvent       models.UnixNanos
}

func (e *OrderSubmitted) EventType() EventType          { return EventSubmitted }
func (e *OrderSubmitted) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderSubmitted) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderAccepted - площадка приняла ордер
type OrderAccepted struct {
	ClientOrderID models.ClientOrderID
	VenueOrderID  models.VenueOrderID
	AccountID     models.AccountID
	TsEvent       models.UnixNanos
}

func (e *OrderAccepted) EventType() EventType          { return EventAccepted }
func (e *OrderAccepted) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderAccepted) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderRejected - площадка отклонила ордер
type OrderRejected struct {
	ClientOrderID models.ClientOrderID
	AccountID     models.AccountID
	Reason        string
	TsEvent       models.UnixNanos
}

func (e *OrderRejected) EventType() EventType          { return EventRejected }
func (e *OrderRejected) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderRejected) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderCanceled - ордер отменён
type OrderCanceled struct {
	ClientOrderID models.ClientOrderID
	VenueOrderID  models.VenueOrderID
	TsEvent       models.UnixNanos
}

func (e *OrderCanceled) EventType() EventType          { return EventCanceled }
func (e *OrderCanceled) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderCanceled) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderExpired - ордер истёк по времени жизни
type OrderExpired struct {
	ClientOrderID models.ClientOrderID
	TsEvent       models.UnixNanos
}

func (e *OrderExpired) EventType() EventType          { return EventExpired }
func (e *OrderExpired) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderExpired) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderTriggered - сработал триггер стоп-ордера
type OrderTriggered struct {
	ClientOrderID models.ClientOrderID
	TsEvent       models.UnixNanos
}

func (e *OrderTriggered) EventType() EventType          { return EventTriggered }
func (e *OrderTriggered) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderTriggered) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderPendingUpdate - запрошено изменение, ждём подтверждения площадки
type OrderPendingUpdate struct {
	ClientOrderID models.ClientOrderID
	TsEvent       models.UnixNanos
}

func (e *OrderPendingUpdate) EventType() EventType          { return EventPendingUpdate }
func (e *OrderPendingUpdate) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderPendingUpdate) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderPendingCancel - запрошена отмена, ждём подтверждения площадки
type OrderPendingCancel struct {
	ClientOrderID models.ClientOrderID
	TsEvent       models.UnixNanos
}

func (e *OrderPendingCancel) EventType() EventType          { return EventPendingCancel }
func (e *OrderPendingCancel) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderPendingCancel) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderUpdated - площадка подтвердила изменение параметров
type OrderUpdated struct {
	ClientOrderID models.ClientOrderID
	Quantity      *models.Quantity
	Price         *models.Price
	TriggerPrice  *models.Price
	TsEvent       models.UnixNanos
}

func (e *OrderUpdated) EventType() EventType          { return EventUpdated }
func (e *OrderUpdated) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderUpdated) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderFilled - исполнение (полное или частичное)
type OrderFilled struct {
	ClientOrderID models.ClientOrderID
	VenueOrderID  models.VenueOrderID
	AccountID     models.AccountID
	TradeID       models.TradeID
	PositionID    models.PositionID
	LastQty       models.Quantity
	LastPx        models.Price
	Commission    models.Money
	LiquiditySide models.LiquiditySide
	TsEvent       models.UnixNanos
}

func (e *OrderFilled) EventType() EventType          { return EventFilled }
func (e *OrderFilled) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderFilled) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderModifyRejected - площадка отклонила изменение; статус откатывается
type OrderModifyRejected struct {
	ClientOrderID models.ClientOrderID
	Reason        string
	TsEvent       models.UnixNanos
}

func (e *OrderModifyRejected) EventType() EventType          { return EventModifyRejected }
func (e *OrderModifyRejected) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderModifyRejected) Timestamp() models.UnixNanos   { return e.TsEvent }

// OrderCancelRejected - площадка отклонила отмену; статус откатывается
type OrderCancelRejected struct {
	ClientOrderID models.ClientOrderID
	Reason        string
	TsEvent       models.UnixNanos
}

func (e *OrderCancelRejected) EventType() EventType          { return EventCancelRejected }
func (e *OrderCancelRejected) OrderID() models.ClientOrderID { return e.ClientOrderID }
func (e *OrderCancelRejected) Timestamp() models.UnixNanos   { return e.TsEvent }
