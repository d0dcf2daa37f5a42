package orders

import (
	"fmt"

	"tradecore/internal/models"
)

// trailing.go - трейлинг-варианты: TrailingStopMarket и TrailingStopLimit
//
// Триггерная цена следует за рынком на заданном смещении;
// лимитный вариант дополнительно несёт смещение лимитной цены.

// TrailingStopMarketOrder - трейлинг-стоп с рыночным исполнением
type TrailingStopMarketOrder struct {
	OrderCore
	triggerPrice   models.Price
	hasTrigger     bool
	triggerType    models.TriggerType
	trailingOffset models.Price
	trailingType   models.TrailingOffsetType
	expireTime     models.UnixNanos
}

// NewTrailingStopMarketOrder создаёт trailing-stop-market ордер
func NewTrailingStopMarketOrder(init *OrderInitialized) (*TrailingStopMarketOrder, error) {
	if init.OrderType != models.TrailingStopMarket {
		return nil, fmt.Errorf("expected TRAILING_STOP_MARKET order type, got %s", init.OrderType)
	}
	if err := validateInit(init); err != nil {
		return nil, err
	}
	if init.TrailingOffset == nil {
		return nil, fmt.Errorf("trailing stop market order requires a trailing offset")
	}
	if init.TrailingType == models.NoTrailingOffset {
		return nil, fmt.Errorf("trailing stop market order requires a trailing offset type")
	}
	o := &TrailingStopMarketOrder{
		OrderCore:      newOrderCore(init),
		triggerType:    init.TriggerType,
		trailingOffset: *init.TrailingOffset,
		trailingType:   init.TrailingType,
		expireTime:     init.ExpireTime,
	}
	// Триггер может быть не задан при создании: площадка вычислит
	// его от текущего рынка
	if init.TriggerPrice != nil {
		o.triggerPrice = *init.TriggerPrice
		o.hasTrigger = true
	}
	return o, nil
}

// TriggerPrice возвращает текущую триггерную цену
func (o *TrailingStopMarketOrder) TriggerPrice() (models.Price, bool) {
	return o.triggerPrice, o.hasTrigger
}

// TriggerType возвращает источник цены триггера
func (o *TrailingStopMarketOrder) TriggerType() (models.TriggerType, bool) {
	return o.triggerType, true
}

// TrailingOffset возвращает смещение триггера от рынка
func (o *TrailingStopMarketOrder) TrailingOffset() (models.Price, bool) {
	return o.trailingOffset, true
}

// TrailingOffsetType возвращает единицы смещения
func (o *TrailingStopMarketOrder) TrailingOffsetType() models.TrailingOffsetType {
	return o.trailingType
}

// ExpireTime возвращает время экспирации (0 = бессрочно)
func (o *TrailingStopMarketOrder) ExpireTime() models.UnixNanos {
	return o.expireTime
}

// Apply применяет событие; изменение двигает триггерную цену
func (o *TrailingStopMarketOrder) Apply(event OrderEvent) error {
	return o.apply(event, func(e *OrderUpdated) {
		if e.TriggerPrice != nil {
			o.triggerPrice = *e.TriggerPrice
			o.hasTrigger = true
		}
	})
}

// TrailingStopLimitOrder - трейлинг-стоп с лимитным исполнением
type TrailingStopLimitOrder struct {
	OrderCore
	price          models.Price
	hasPrice       bool
	triggerPrice   models.Price
	hasTrigger     bool
	triggerType    models.TriggerType
	limitOffset    models.Price
	trailingOffset models.Price
	trailingType   models.TrailingOffsetType
	expireTime     models.UnixNanos
}

// NewTrailingStopLimitOrder создаёт trailing-stop-limit ордер
func NewTrailingStopLimitOrder(init *OrderInitialized) (*TrailingStopLimitOrder, error) {
	if init.OrderType != models.TrailingStopLimit {
		return nil, fmt.Errorf("expected TRAILING_STOP_LIMIT order type, got %s", init.OrderType)
	}
	if err := validateInit(init); err != nil {
		return nil, err
	}
	if init.TrailingOffset == nil {
		return nil, fmt.Errorf("trailing stop limit order requires a trailing offset")
	}
	if init.LimitOffset == nil {
		return nil, fmt.Errorf("trailing stop limit order requires a limit offset")
	}
	if init.TrailingType == models.NoTrailingOffset {
		return nil, fmt.Errorf("trailing stop limit order requires a trailing offset type")
	}
	o := &TrailingStopLimitOrder{
		OrderCore:      newOrderCore(init),
		triggerType:    init.TriggerType,
		limitOffset:    *init.LimitOffset,
		trailingOffset: *init.TrailingOffset,
		trailingType:   init.TrailingType,
		expireTime:     init.ExpireTime,
	}
	if init.Price != nil {
		o.price = *init.Price
		o.hasPrice = true
	}
	if init.TriggerPrice != nil {
		o.triggerPrice = *init.TriggerPrice
		o.hasTrigger = true
	}
	return o, nil
}

// Price возвращает текущую лимитную цену
func (o *TrailingStopLimitOrder) Price() (models.Price, bool) {
	return o.price, o.hasPrice
}

// TriggerPrice возвращает текущую триггерную цену
func (o *TrailingStopLimitOrder) TriggerPrice() (models.Price, bool) {
	return o.triggerPrice, o.hasTrigger
}

// TriggerType возвращает источник цены триггера
func (o *TrailingStopLimitOrder) TriggerType() (models.TriggerType, bool) {
	return o.triggerType, true
}

// LimitOffset возвращает смещение лимитной цены от триггера
func (o *TrailingStopLimitOrder) LimitOffset() (models.Price, bool) {
	return o.limitOffset, true
}

// TrailingOffset возвращает смещение триггера от рынка
func (o *TrailingStopLimitOrder) TrailingOffset() (models.Price, bool) {
	return o.trailingOffset, true
}

// TrailingOffsetType возвращает единицы смещения
func (o *TrailingStopLimitOrder) TrailingOffsetType() models.TrailingOffsetType {
	return o.trailingType
}

// ExpireTime возвращает время экспирации (0 = бессрочно)
func (o *TrailingStopLimitOrder) ExpireTime() models.UnixNanos {
	return o.expireTime
}

// Apply применяет событие; изменение двигает цену и триггер
func (o *TrailingStopLimitOrder) Apply(event OrderEvent) error {
	return o.apply(event, func(e *OrderUpdated) {
		if e.Price != nil {
			o.price = *e.Price
			o.hasPrice = true
		}
		if e.TriggerPrice != nil {
			o.triggerPrice = *e.TriggerPrice
			o.hasTrigger = true
		}
	})
}
