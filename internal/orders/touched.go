package orders

import (
	"fmt"

	"tradecore/internal/models"
)

// touched.go - if-touched варианты: MarketIfTouched и LimitIfTouched
//
// Зеркальные стоп-ордерам, но срабатывают при движении цены
// в благоприятную сторону.

// MarketIfTouchedOrder - рыночный ордер при касании цены
type MarketIfTouchedOrder struct {
	OrderCore
	triggerPrice models.Price
	triggerType  models.TriggerType
	expireTime   models.UnixNanos
}

// NewMarketIfTouchedOrder создаёт market-if-touched ордер
func NewMarketIfTouchedOrder(init *OrderInitialized) (*MarketIfTouchedOrder, error) {
	if init.OrderType != models.MarketIfTouched {
		return nil, fmt.Errorf("expected MARKET_IF_TOUCHED order type, got %s", init.OrderType)
	}
	if err := validateInit(init); err != nil {
		return nil, err
	}
	if init.TriggerPrice == nil {
		return nil, fmt.Errorf("market if touched order requires a trigger price")
	}
	return &MarketIfTouchedOrder{
		OrderCore:    newOrderCore(init),
		triggerPrice: *init.TriggerPrice,
		triggerType:  init.TriggerType,
		expireTime:   init.ExpireTime,
	}, nil
}

// TriggerPrice возвращает триггерную цену
func (o *MarketIfTouchedOrder) TriggerPrice() (models.Price, bool) {
	return o.triggerPrice, true
}

// TriggerType возвращает источник цены триггера
func (o *MarketIfTouchedOrder) TriggerType() (models.TriggerType, bool) {
	return o.triggerType, true
}

// ExpireTime возвращает время экспирации (0 = бессрочно)
func (o *MarketIfTouchedOrder) ExpireTime() models.UnixNanos {
	return o.expireTime
}

// Apply применяет событие; изменение обновляет триггерную цену
func (o *MarketIfTouchedOrder) Apply(event OrderEvent) error {
	return o.apply(event, func(e *OrderUpdated) {
		if e.TriggerPrice != nil {
			o.triggerPrice = *e.TriggerPrice
		}
	})
}

// LimitIfTouchedOrder - лимитный ордер при касании цены
type LimitIfTouchedOrder struct {
	OrderCore
	price        models.Price
	triggerPrice models.Price
	triggerType  models.TriggerType
	postOnly     bool
	expireTime   models.UnixNanos
}

// NewLimitIfTouchedOrder создаёт limit-if-touched ордер
func NewLimitIfTouchedOrder(init *OrderInitialized) (*LimitIfTouchedOrder, error) {
	if init.OrderType != models.LimitIfTouched {
		return nil, fmt.Errorf("expected LIMIT_IF_TOUCHED order type, got %s", init.OrderType)
	}
	if err := validateInit(init); err != nil {
		return nil, err
	}
	if init.Price == nil {
		return nil, fmt.Errorf("limit if touched order requires a price")
	}
	if init.TriggerPrice == nil {
		return nil, fmt.Errorf("limit if touched order requires a trigger price")
	}
	return &LimitIfTouchedOrder{
		OrderCore:    newOrderCore(init),
		price:        *init.Price,
		triggerPrice: *init.TriggerPrice,
		triggerType:  init.TriggerType,
		postOnly:     init.PostOnly,
		expireTime:   init.ExpireTime,
	}, nil
}

// Price возвращает лимитную цену
func (o *LimitIfTouchedOrder) Price() (models.Price, bool) {
	return o.price, true
}

// TriggerPrice возвращает триггерную цену
func (o *LimitIfTouchedOrder) TriggerPrice() (models.Price, bool) {
	return o.triggerPrice, true
}

// TriggerType возвращает источник цены триггера
func (o *LimitIfTouchedOrder) TriggerType() (models.TriggerType, bool) {
	return o.triggerType, true
}

// IsPostOnly сообщает, разрешено ли ордеру забирать ликвидность
func (o *LimitIfTouchedOrder) IsPostOnly() bool {
	return o.postOnly
}

// ExpireTime возвращает время экспирации (0 = бессрочно)
func (o *LimitIfTouchedOrder) ExpireTime() models.UnixNanos {
	return o.expireTime
}

// Apply применяет событие; изменение обновляет цену и триггер
func (o *LimitIfTouchedOrder) Apply(event OrderEvent) error {
	return o.apply(event, func(e *OrderUpdated) {
		if e.Price != nil {
			o.price = *e.Price
		}
		if e.TriggerPrice != nil {
			o.triggerPrice = *e.TriggerPrice
		}
	})
}
