package orders

import (
	"fmt"

	"tradecore/internal/models"
)

// limit.go - лимитный ордер

// LimitOrder - отдыхающий ордер с лимитной ценой
type LimitOrder struct {
	OrderCore
	price      models.Price
	postOnly   bool
	displayQty models.Quantity // 0 = показывать полностью (iceberg)
	hasDisplay bool
	expireTime models.UnixNanos
}

// NewLimitOrder создаёт лимитный ордер из события инициализации
func NewLimitOrder(init *OrderInitialized) (*LimitOrder, error) {
	if init.OrderType != models.Limit {
		return nil, fmt.Errorf("expected LIMIT order type, got %s", init.OrderType)
	}
	if err := validateInit(init); err != nil {
		return nil, err
	}
	if init.Price == nil {
		return nil, fmt.Errorf("limit order requires a price")
	}
	o := &LimitOrder{
		OrderCore:  newOrderCore(init),
		price:      *init.Price,
		postOnly:   init.PostOnly,
		expireTime: init.ExpireTime,
	}
	if init.DisplayQty != nil {
		o.displayQty = *init.DisplayQty
		o.hasDisplay = true
	}
	return o, nil
}

// Price возвращает лимитную цену
func (o *LimitOrder) Price() (models.Price, bool) {
	return o.price, true
}

// IsPostOnly сообщает, разрешено ли ордеру забирать ликвидность
func (o *LimitOrder) IsPostOnly() bool {
	return o.postOnly
}

// DisplayQty возвращает показываемую часть размера (iceberg)
func (o *LimitOrder) DisplayQty() (models.Quantity, bool) {
	return o.displayQty, o.hasDisplay
}

// ExpireTime возвращает время экспирации (0 = бессрочно)
func (o *LimitOrder) ExpireTime() models.UnixNanos {
	return o.expireTime
}

// Apply применяет событие; подтверждённое изменение обновляет цену
func (o *LimitOrder) Apply(event OrderEvent) error {
	return o.apply(event, func(e *OrderUpdated) {
		if e.Price != nil {
			o.price = *e.Price
		}
	})
}
