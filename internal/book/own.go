package book

import (
	"tradecore/internal/models"
)

// own.go - книга собственных ордеров трейдера
//
// Используется для вычитания своих заявок из публичной глубины,
// чтобы стратегия не реагировала на собственную ликвидность.
// Ключ - клиентский идентификатор ордера.

// OwnBookOrder - собственный отдыхающий ордер
type OwnBookOrder struct {
	ClientOrderID models.ClientOrderID
	Side          models.OrderSide
	Price         models.Price
	Size          models.Quantity
	Status        models.OrderStatus
	TsAccepted    models.UnixNanos
	TsLast        models.UnixNanos
}

// OwnOrderBook - собственные ордера одного инструмента
type OwnOrderBook struct {
	InstrumentID models.InstrumentID
	TsLast       models.UnixNanos

	index map[models.ClientOrderID]OwnBookOrder
	// FIFO порядок на уровне: очередь client_order_id по цене
	bidLevels map[models.Price][]models.ClientOrderID
	askLevels map[models.Price][]models.ClientOrderID
}

// NewOwnOrderBook создаёт пустую книгу собственных ордеров
func NewOwnOrderBook(instrumentID models.InstrumentID) *OwnOrderBook {
	return &OwnOrderBook{
		InstrumentID: instrumentID,
		index:        make(map[models.ClientOrderID]OwnBookOrder),
		bidLevels:    make(map[models.Price][]models.ClientOrderID),
		askLevels:    make(map[models.Price][]models.ClientOrderID),
	}
}

// Len возвращает количество собственных ордеров
func (b *OwnOrderBook) Len() int {
	return len(b.index)
}

// Add добавляет собственный ордер
func (b *OwnOrderBook) Add(order OwnBookOrder) error {
	if order.ClientOrderID == "" {
		return &OrderNotFoundError{OrderID: 0}
	}
	if _, exists := b.index[order.ClientOrderID]; exists {
		// Повторное добавление - замена через update
		return b.Update(order)
	}
	b.index[order.ClientOrderID] = order
	levels := b.levelsFor(order.Side)
	levels[order.Price] = append(levels[order.Price], order.ClientOrderID)
	b.TsLast = order.TsLast
	return nil
}

// Update изменяет собственный ордер; смена цены перемещает его в конец
// очереди нового уровня (потеря time priority при replace)
func (b *OwnOrderBook) Update(order OwnBookOrder) error {
	existing, exists := b.index[order.ClientOrderID]
	if !exists {
		return b.Add(order)
	}
	if existing.Price != order.Price || existing.Side != order.Side {
		b.removeFromLevel(existing)
		levels := b.levelsFor(order.Side)
		levels[order.Price] = append(levels[order.Price], order.ClientOrderID)
	}
	b.index[order.ClientOrderID] = order
	b.TsLast = order.TsLast
	return nil
}

// Delete удаляет собственный ордер
func (b *OwnOrderBook) Delete(clientOrderID models.ClientOrderID) error {
	existing, exists := b.index[clientOrderID]
	if !exists {
		return &OrderNotFoundError{OrderID: 0}
	}
	b.removeFromLevel(existing)
	delete(b.index, clientOrderID)
	return nil
}

// Clear удаляет все собственные ордера
func (b *OwnOrderBook) Clear() {
	b.index = make(map[models.ClientOrderID]OwnBookOrder)
	b.bidLevels = make(map[models.Price][]models.ClientOrderID)
	b.askLevels = make(map[models.Price][]models.ClientOrderID)
}

// Get возвращает собственный ордер по идентификатору
func (b *OwnOrderBook) Get(clientOrderID models.ClientOrderID) (OwnBookOrder, bool) {
	order, ok := b.index[clientOrderID]
	return order, ok
}

// BidsAsMap возвращает собственные bid-ордера, сгруппированные по цене
func (b *OwnOrderBook) BidsAsMap() map[models.Price][]OwnBookOrder {
	return b.levelsAsMap(b.bidLevels)
}

// AsksAsMap возвращает собственные ask-ордера, сгруппированные по цене
func (b *OwnOrderBook) AsksAsMap() map[models.Price][]OwnBookOrder {
	return b.levelsAsMap(b.askLevels)
}

func (b *OwnOrderBook) levelsAsMap(levels map[models.Price][]models.ClientOrderID) map[models.Price][]OwnBookOrder {
	out := make(map[models.Price][]OwnBookOrder, len(levels))
	for price, ids := range levels {
		orders := make([]OwnBookOrder, 0, len(ids))
		for _, id := range ids {
			if order, ok := b.index[id]; ok {
				orders = append(orders, order)
			}
		}
		if len(orders) > 0 {
			out[price] = orders
		}
	}
	return out
}

func (b *OwnOrderBook) levelsFor(side models.OrderSide) map[models.Price][]models.ClientOrderID {
	if side == models.Buy {
		return b.bidLevels
	}
	return b.askLevels
}

func (b *OwnOrderBook) removeFromLevel(order OwnBookOrder) {
	levels := b.levelsFor(order.Side)
	ids := levels[order.Price]
	for i, id := range ids {
		if id == order.ClientOrderID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(levels, order.Price)
	} else {
		levels[order.Price] = ids
	}
}
