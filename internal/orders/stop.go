package orders

import (
	"fmt"

	"tradecore/internal/models"
)

// stop.go - стоп-варианты: StopMarket и StopLimit

// StopMarketOrder - рыночный ордер, активируемый триггерной ценой
type StopMarketOrder struct {
	OrderCore
	triggerPrice models.Price
	triggerType  models.TriggerType
	expireTime   models.UnixNanos
}

// NewStopMarketOrder создаёт stop-market ордер
func NewStopMarketOrder(init *OrderInitialized) (*StopMarketOrder, error) {
	if init.OrderType != models.StopMarket {
		return nil, fmt.Errorf("expected STOP_MARKET order type, got %s", init.OrderType)
	}
	if err := validateInit(init); err != nil {
		return nil, err
	}
	if init.TriggerPrice == nil {
		return nil, fmt.Errorf("stop market order requires a trigger price")
	}
	return &StopMarketOrder{
		OrderCore:    newOrderCore(init),
		triggerPrice: *init.TriggerPrice,
		triggerType:  init.TriggerType,
		expireTime:   init.ExpireTime,
	}, nil
}

// TriggerPrice возвращает триггерную цену
func (o *StopMarketOrder) TriggerPrice() (models.Price, bool) {
	return o.triggerPrice, true
}

// TriggerType возвращает источник цены триггера
func (o *StopMarketOrder) TriggerType() (models.TriggerType, bool) {
	return o.triggerType, true
}

// ExpireTime возвращает время экспирации (0 = бессрочно)
func (o *StopMarketOrder) ExpireTime() models.UnixNanos {
	return o.expireTime
}

// Apply применяет событие; изменение обновляет триггерную цену
func (o *StopMarketOrder) Apply(event OrderEvent) error {
	return o.apply(event, func(e *OrderUpdated) {
		if e.TriggerPrice != nil {
			o.triggerPrice = *e.TriggerPrice
		}
	})
}

// StopLimitOrder - лимитный ордер, активируемый триггерной ценой
type StopLimitOrder struct {
	OrderCore
	price        models.Price
	triggerPrice models.Price
	triggerType  models.TriggerType
	postOnly     bool
	expireTime   models.UnixNanos
}

// NewStopLimitOrder создаёт stop-limit ордер
func NewStopLimitOrder(init *OrderInitialized) (*StopLimitOrder, error) {
	if init.OrderType != models.StopLimit {
		return nil, fmt.Errorf("expected STOP_LIMIT order type, got %s", init.OrderType)
	}
	if err := validateInit(init); err != nil {
		return nil, err
	}
	if init.Price == nil {
		return nil, fmt.Errorf("stop limit order requires a price")
	}
	if init.TriggerPrice == nil {
		return nil, fmt.Errorf("stop limit order requires a trigger price")
	}
	return &StopLimitOrder{
		OrderCore:    newOrderCore(init),
		price:        *init.Price,
		triggerPrice: *init.TriggerPrice,
		triggerType:  init.TriggerType,
		postOnly:     init.PostOnly,
		expireTime:   init.ExpireTime,
	}, nil
}

// Price возвращает лимитную цену
func (o *StopLimitOrder) Price() (models.Price, bool) {
	return o.price, true
}

// TriggerPrice возвращает триггерную цену
func (o *StopLimitOrder) TriggerPrice() (models.Price, bool) {
	return o.triggerPrice, true
}

// TriggerType возвращает источник цены триггера
func (o *StopLimitOrder) TriggerType() (models.TriggerType, bool) {
	return o.triggerType, true
}

// IsPostOnly сообщает, разрешено ли ордеру забирать ликвидность
func (o *StopLimitOrder) IsPostOnly() bool {
	return o.postOnly
}

// ExpireTime возвращает время экспирации (0 = бессрочно)
func (o *StopLimitOrder) ExpireTime() models.UnixNanos {
	return o.expireTime
}

// Apply применяет событие; изменение обновляет цену и триггер
func (o *StopLimitOrder) Apply(event OrderEvent) error {
	return o.apply(event, func(e *OrderUpdated) {
		if e.Price != nil {
			o.price = *e.Price
		}
		if e.TriggerPrice != nil {
			o.triggerPrice = *e.TriggerPrice
		}
	})
}
