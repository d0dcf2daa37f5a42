package orders

import (
	"fmt"

	"tradecore/internal/models"
)

// any.go - полиморфная поверхность ордера
//
// Order - tagged union поверх девяти вариантов. Опциональные
// аксессоры возвращают (значение, ok): false у вариантов без поля.
// Проекции LimitOrderAny и StopOrderAny сужают union до вариантов
// с лимитной или триггерной ценой; конверсия тотальна на своём
// подмножестве и падает на чужом.

// Order - единый интерфейс всех вариантов ордера
type Order interface {
	Core() *OrderCore
	OrderType() models.OrderType
	Apply(event OrderEvent) error

	Price() (models.Price, bool)
	TriggerPrice() (models.Price, bool)
	TriggerType() (models.TriggerType, bool)
	LimitOffset() (models.Price, bool)
	TrailingOffset() (models.Price, bool)

	IsOpen() bool
	IsClosed() bool
	IsInflight() bool
	IsPendingCancel() bool
	IsAggressive() bool
	IsPassive() bool
}

// Дефолтные опциональные аксессоры: вариант без поля наследует
// отказ от OrderCore, вариант с полем затеняет метод своим.

// Price - нет лимитной цены по умолчанию
func (c *OrderCore) Price() (models.Price, bool) {
	return models.Price{}, false
}

// TriggerPrice - нет триггерной цены по умолчанию
func (c *OrderCore) TriggerPrice() (models.Price, bool) {
	return models.Price{}, false
}

// TriggerType - нет триггера по умолчанию
func (c *OrderCore) TriggerType() (models.TriggerType, bool) {
	return models.NoTrigger, false
}

// LimitOffset - нет лимитного смещения по умолчанию
func (c *OrderCore) LimitOffset() (models.Price, bool) {
	return models.Price{}, false
}

// TrailingOffset - нет трейлинг-смещения по умолчанию
func (c *OrderCore) TrailingOffset() (models.Price, bool) {
	return models.Price{}, false
}

// NewOrder создаёт вариант по типу из события инициализации
func NewOrder(init *OrderInitialized) (Order, error) {
	switch init.OrderType {
	case models.Market:
		return NewMarketOrder(init)
	case models.Limit:
		return NewLimitOrder(init)
	case models.StopMarket:
		return NewStopMarketOrder(init)
	case models.StopLimit:
		return NewStopLimitOrder(init)
	case models.MarketToLimit:
		return NewMarketToLimitOrder(init)
	case models.MarketIfTouched:
		return NewMarketIfTouchedOrder(init)
	case models.LimitIfTouched:
		return NewLimitIfTouchedOrder(init)
	case models.TrailingStopMarket:
		return NewTrailingStopMarketOrder(init)
	case models.TrailingStopLimit:
		return NewTrailingStopLimitOrder(init)
	default:
		return nil, fmt.Errorf("unknown order type: %d", init.OrderType)
	}
}

// FromEvents реконструирует ордер из упорядоченного журнала событий
//
// Первым событием обязан быть OrderInitialized; остальные
// применяются по порядку.
func FromEvents(events []OrderEvent) (Order, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	init, ok := events[0].(*OrderInitialized)
	if !ok {
		return nil, fmt.Errorf("first event must be INITIALIZED, got %s", events[0].EventType())
	}
	order, err := NewOrder(init)
	if err != nil {
		return nil, err
	}
	for _, event := range events[1:] {
		if err := order.Apply(event); err != nil {
			return nil, fmt.Errorf("replay event %s: %w", event.EventType(), err)
		}
	}
	return order, nil
}

// ============================================================
// Проекции
// ============================================================

// LimitOrderAny - представление вариантов с лимитной ценой
type LimitOrderAny struct {
	Order
}

// AsLimitOrderAny сужает ордер до лимитного представления
func AsLimitOrderAny(o Order) (*LimitOrderAny, error) {
	switch o.OrderType() {
	case models.Limit, models.StopLimit, models.LimitIfTouched,
		models.MarketToLimit, models.TrailingStopLimit:
		return &LimitOrderAny{Order: o}, nil
	default:
		return nil, fmt.Errorf("order type %s has no limit price", o.OrderType())
	}
}

// LimitPrice возвращает лимитную цену представления
func (v *LimitOrderAny) LimitPrice() (models.Price, bool) {
	return v.Price()
}

// StopOrderAny - представление вариантов с триггерной ценой
type StopOrderAny struct {
	Order
}

// AsStopOrderAny сужает ордер до стопового представления
func AsStopOrderAny(o Order) (*StopOrderAny, error) {
	switch o.OrderType() {
	case models.StopMarket, models.StopLimit, models.MarketIfTouched,
		models.LimitIfTouched, models.TrailingStopMarket, models.TrailingStopLimit:
		return &StopOrderAny{Order: o}, nil
	default:
		return nil, fmt.Errorf("order type %s has no trigger price", o.OrderType())
	}
}

// StopPrice возвращает триггерную цену представления
func (v *StopOrderAny) StopPrice() (models.Price, bool) {
	return v.TriggerPrice()
}
