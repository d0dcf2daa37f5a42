package orders

import (
	"fmt"

	"tradecore/internal/models"
)

// market.go - рыночные варианты: Market и MarketToLimit

// MarketOrder - немедленное исполнение по рынку
type MarketOrder struct {
	OrderCore
}

// NewMarketOrder создаёт рыночный ордер из события инициализации
func NewMarketOrder(init *OrderInitialized) (*MarketOrder, error) {
	if init.OrderType != models.Market {
		return nil, fmt.Errorf("expected MARKET order type, got %s", init.OrderType)
	}
	if err := validateInit(init); err != nil {
		return nil, err
	}
	return &MarketOrder{OrderCore: newOrderCore(init)}, nil
}

// Apply применяет событие к ордеру
func (o *MarketOrder) Apply(event OrderEvent) error {
	return o.apply(event, nil)
}

// MarketToLimitOrder - рыночный ордер, остаток которого становится
// лимитным по цене первого исполнения
type MarketToLimitOrder struct {
	OrderCore
	price      models.Price // площадка присваивает после первого исполнения
	hasPrice   bool
	expireTime models.UnixNanos
}

// NewMarketToLimitOrder создаёт market-to-limit ордер
func NewMarketToLimitOrder(init *OrderInitialized) (*MarketToLimitOrder, error) {
	if init.OrderType != models.MarketToLimit {
		return nil, fmt.Errorf("expected MARKET_TO_LIMIT order type, got %s", init.OrderType)
	}
	if err := validateInit(init); err != nil {
		return nil, err
	}
	o := &MarketToLimitOrder{OrderCore: newOrderCore(init), expireTime: init.ExpireTime}
	if init.Price != nil {
		o.price = *init.Price
		o.hasPrice = true
	}
	return o, nil
}

// Price возвращает лимитную цену остатка, если уже присвоена
func (o *MarketToLimitOrder) Price() (models.Price, bool) {
	return o.price, o.hasPrice
}

// ExpireTime возвращает время экспирации (0 = бессрочно)
func (o *MarketToLimitOrder) ExpireTime() models.UnixNanos {
	return o.expireTime
}

// Apply применяет событие; подтверждённое изменение обновляет цену остатка
func (o *MarketToLimitOrder) Apply(event OrderEvent) error {
	return o.apply(event, func(e *OrderUpdated) {
		if e.Price != nil {
			o.price = *e.Price
			o.hasPrice = true
		}
	})
}

// validateInit - общая проверка события инициализации
func validateInit(init *OrderInitialized) error {
	if init.ClientOrderID == "" {
		return fmt.Errorf("client order id is required")
	}
	if init.InstrumentID.IsZero() {
		return fmt.Errorf("instrument id is required")
	}
	if init.Side == models.NoOrderSide {
		return fmt.Errorf("order side is required")
	}
	if !init.Quantity.IsPositive() {
		return fmt.Errorf("order quantity must be positive, got %s", init.Quantity)
	}
	return nil
}
