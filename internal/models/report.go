package models

// report.go - отчёты, производимые адаптерами исполнения
//
// Чистые value-типы: ядро их не интерпретирует сверх полей,
// транспортные слои отвечают за сериализацию.

// OrderStatusReport - снимок состояния ордера на площадке
type OrderStatusReport struct {
	AccountID      AccountID
	InstrumentID   InstrumentID
	ClientOrderID  ClientOrderID
	VenueOrderID   VenueOrderID
	OrderSide      OrderSide
	OrderType      OrderType
	TimeInForce    TimeInForce
	OrderStatus    OrderStatus
	Quantity       Quantity
	FilledQty      Quantity
	Price          Price    // нулевая = не задано
	TriggerPrice   Price    // нулевая = не задано
	AvgPx          float64  // 0 = не задано
	PostOnly       bool
	ReduceOnly     bool
	CancelReason   string
	TsAccepted     UnixNanos
	TsTriggered    UnixNanos
	TsLast         UnixNanos
	TsInit         UnixNanos
}

// LeavesQty возвращает остаток ордера по отчёту
func (r *OrderStatusReport) LeavesQty() Quantity {
	return r.Quantity.Sub(r.FilledQty)
}

// FillReport - отчёт об исполнении (сделке)
type FillReport struct {
	AccountID     AccountID
	InstrumentID  InstrumentID
	ClientOrderID ClientOrderID
	VenueOrderID  VenueOrderID
	TradeID       TradeID
	OrderSide     OrderSide
	LastQty       Quantity
	LastPx        Price
	Commission    Money
	LiquiditySide LiquiditySide
	PositionID    PositionID
	TsEvent       UnixNanos
	TsInit        UnixNanos
}

// PositionStatusReport - снимок позиции на площадке
type PositionStatusReport struct {
	AccountID    AccountID
	InstrumentID InstrumentID
	PositionSide PositionSide
	Quantity     Quantity
	PositionID   PositionID
	AvgPxOpen    float64
	TsLast       UnixNanos
	TsInit       UnixNanos
}

// SignedQty возвращает количество со знаком стороны позиции
func (r *PositionStatusReport) SignedQty() float64 {
	switch r.PositionSide {
	case Short:
		return -r.Quantity.Float64()
	case Long:
		return r.Quantity.Float64()
	default:
		return 0
	}
}
