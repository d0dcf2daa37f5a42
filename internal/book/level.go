package book

import (
	"fmt"

	"tradecore/internal/models"
)

// level.go - ценовой уровень книги
//
// Уровень хранит ордера в порядке поступления (time priority).
// Инвариант: все ордера уровня имеют одну цену и одну сторону.

// BookLevel - ценовой уровень с FIFO-очередью ордеров
type BookLevel struct {
	Price models.Price
	Side  models.OrderSide

	orderIDs []uint64
	orders   map[uint64]BookOrder
}

// NewBookLevel создаёт пустой уровень
func NewBookLevel(price models.Price, side models.OrderSide) *BookLevel {
	return &BookLevel{
		Price:  price,
		Side:   side,
		orders: make(map[uint64]BookOrder),
	}
}

// Len возвращает количество ордеров на уровне
func (l *BookLevel) Len() int {
	return len(l.orderIDs)
}

// IsEmpty сообщает, пуст ли уровень
func (l *BookLevel) IsEmpty() bool {
	return len(l.orderIDs) == 0
}

// Add добавляет ордер в конец очереди уровня
func (l *BookLevel) Add(order BookOrder) error {
	if order.Price.Raw != l.Price.Raw {
		return fmt.Errorf("level price mismatch: order %s vs level %s", order.Price, l.Price)
	}
	if _, exists := l.orders[order.OrderID]; exists {
		// Повторное добавление того же order_id - замена размера на месте
		l.orders[order.OrderID] = order
		return nil
	}
	l.orderIDs = append(l.orderIDs, order.OrderID)
	l.orders[order.OrderID] = order
	return nil
}

// Update изменяет размер существующего ордера; нулевой размер удаляет его
func (l *BookLevel) Update(order BookOrder) error {
	if _, exists := l.orders[order.OrderID]; !exists {
		return &OrderNotFoundError{OrderID: order.OrderID}
	}
	if order.Size.IsZero() {
		l.remove(order.OrderID)
		return nil
	}
	l.orders[order.OrderID] = order
	return nil
}

// Delete удаляет ордер по идентификатору
func (l *BookLevel) Delete(orderID uint64) error {
	if _, exists := l.orders[orderID]; !exists {
		return &OrderNotFoundError{OrderID: orderID}
	}
	l.remove(orderID)
	return nil
}

func (l *BookLevel) remove(orderID uint64) {
	delete(l.orders, orderID)
	for i, id := range l.orderIDs {
		if id == orderID {
			l.orderIDs = append(l.orderIDs[:i], l.orderIDs[i+1:]...)
			return
		}
	}
}

// Size возвращает суммарный размер уровня
func (l *BookLevel) Size() models.Quantity {
	var raw uint64
	precision := uint8(0)
	for _, o := range l.orders {
		raw += o.Size.Raw
		if o.Size.Precision > precision {
			precision = o.Size.Precision
		}
	}
	return models.QuantityFromRaw(raw, precision)
}

// Exposure возвращает суммарный нотионал уровня
func (l *BookLevel) Exposure() float64 {
	return l.Price.Float64() * l.Size().Float64()
}

// Orders возвращает ордера уровня в порядке поступления
func (l *BookLevel) Orders() []BookOrder {
	out := make([]BookOrder, 0, len(l.orderIDs))
	for _, id := range l.orderIDs {
		out = append(out, l.orders[id])
	}
	return out
}

// First возвращает первый (самый старый) ордер уровня
func (l *BookLevel) First() (BookOrder, bool) {
	if len(l.orderIDs) == 0 {
		return BookOrder{}, false
	}
	return l.orders[l.orderIDs[0]], true
}
