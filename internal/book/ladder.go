package book

import (
	"fmt"
	"sort"

	"tradecore/internal/models"
)

// ladder.go - лестница одной стороны книги
//
// Уровни хранятся в порядке приоритета: bids по убыванию цены,
// asks по возрастанию. Кэш order_id -> цена позволяет обновлять
// и удалять ордера без обхода всех уровней.

// Fill - один элемент результата симуляции исполнения
type Fill struct {
	Price models.Price
	Size  models.Quantity
}

// Ladder - лестница уровней одной стороны
type Ladder struct {
	Side models.OrderSide

	levels map[int64]*BookLevel // по сырой цене
	sorted []int64              // сырые цены в порядке приоритета
	cache  map[uint64]int64     // order_id -> сырая цена
}

// NewLadder создаёт пустую лестницу
func NewLadder(side models.OrderSide) *Ladder {
	return &Ladder{
		Side:   side,
		levels: make(map[int64]*BookLevel),
		cache:  make(map[uint64]int64),
	}
}

// Len возвращает количество уровней
func (l *Ladder) Len() int {
	return len(l.sorted)
}

// IsEmpty сообщает, пуста ли лестница
func (l *Ladder) IsEmpty() bool {
	return len(l.sorted) == 0
}

// Clear удаляет все уровни
func (l *Ladder) Clear() {
	l.levels = make(map[int64]*BookLevel)
	l.sorted = l.sorted[:0]
	l.cache = make(map[uint64]int64)
}

// priorityLess сообщает, стоит ли цена a раньше цены b в приоритете стороны
func (l *Ladder) priorityLess(a, b int64) bool {
	if l.Side == models.Buy {
		return a > b // bids: лучшая цена - максимальная
	}
	return a < b // asks: лучшая цена - минимальная
}

// Add добавляет ордер, создавая уровень при необходимости
func (l *Ladder) Add(order BookOrder) error {
	raw := order.Price.Raw
	level, exists := l.levels[raw]
	if !exists {
		level = NewBookLevel(order.Price, l.Side)
		l.levels[raw] = level
		l.insertSorted(raw)
	}
	if err := level.Add(order); err != nil {
		return fmt.Errorf("ladder add: %w", err)
	}
	l.cache[order.OrderID] = raw
	return nil
}

// Update изменяет ордер; смена цены перемещает его между уровнями
func (l *Ladder) Update(order BookOrder) error {
	prevRaw, known := l.cache[order.OrderID]
	if !known {
		// Неизвестный ордер - трактуем как добавление
		return l.Add(order)
	}
	if prevRaw == order.Price.Raw {
		level := l.levels[prevRaw]
		if err := level.Update(order); err != nil {
			return fmt.Errorf("ladder update: %w", err)
		}
		if order.Size.IsZero() {
			delete(l.cache, order.OrderID)
		}
		l.dropIfEmpty(prevRaw)
		return nil
	}
	// Цена изменилась: удаляем со старого уровня, добавляем на новый
	if err := l.removeFromLevel(order.OrderID, prevRaw); err != nil {
		return fmt.Errorf("ladder update move: %w", err)
	}
	if order.Size.IsZero() {
		return nil
	}
	return l.Add(order)
}

// Delete удаляет ордер по идентификатору
func (l *Ladder) Delete(orderID uint64) error {
	raw, known := l.cache[orderID]
	if !known {
		return &OrderNotFoundError{OrderID: orderID}
	}
	return l.removeFromLevel(orderID, raw)
}

func (l *Ladder) removeFromLevel(orderID uint64, raw int64) error {
	level, exists := l.levels[raw]
	if !exists {
		delete(l.cache, orderID)
		return &OrderNotFoundError{OrderID: orderID}
	}
	if err := level.Delete(orderID); err != nil {
		return err
	}
	delete(l.cache, orderID)
	l.dropIfEmpty(raw)
	return nil
}

func (l *Ladder) dropIfEmpty(raw int64) {
	level, exists := l.levels[raw]
	if !exists || !level.IsEmpty() {
		return
	}
	delete(l.levels, raw)
	idx := sort.Search(len(l.sorted), func(i int) bool {
		return !l.priorityLess(l.sorted[i], raw)
	})
	if idx < len(l.sorted) && l.sorted[idx] == raw {
		l.sorted = append(l.sorted[:idx], l.sorted[idx+1:]...)
	}
}

func (l *Ladder) insertSorted(raw int64) {
	idx := sort.Search(len(l.sorted), func(i int) bool {
		return !l.priorityLess(l.sorted[i], raw)
	})
	l.sorted = append(l.sorted, 0)
	copy(l.sorted[idx+1:], l.sorted[idx:])
	l.sorted[idx] = raw
}

// Top возвращает лучший уровень лестницы
func (l *Ladder) Top() (*BookLevel, bool) {
	if len(l.sorted) == 0 {
		return nil, false
	}
	return l.levels[l.sorted[0]], true
}

// Levels возвращает уровни в порядке приоритета, усечённые до depth (0 = все)
func (l *Ladder) Levels(depth int) []*BookLevel {
	n := len(l.sorted)
	if depth > 0 && depth < n {
		n = depth
	}
	out := make([]*BookLevel, 0, n)
	for _, raw := range l.sorted[:n] {
		out = append(out, l.levels[raw])
	}
	return out
}

// TotalSize возвращает суммарный размер всех уровней
func (l *Ladder) TotalSize() models.Quantity {
	var raw uint64
	precision := uint8(0)
	for _, level := range l.levels {
		s := level.Size()
		raw += s.Raw
		if s.Precision > precision {
			precision = s.Precision
		}
	}
	return models.QuantityFromRaw(raw, precision)
}

// SimulateFills выполняет детерминированный price-time обход лестницы
//
// order - агрессор, исполняемый против этой лестницы (противоположной
// его стороне). При aggressive=true лимит цены игнорируется (market).
// В пределах уровня ордера потребляются в порядке поступления.
func (l *Ladder) SimulateFills(order BookOrder, aggressive bool) []Fill {
	var fills []Fill
	remaining := order.Size

	for _, raw := range l.sorted {
		if remaining.IsZero() {
			break
		}
		level := l.levels[raw]
		if !aggressive && l.beyondLimit(level.Price, order.Price) {
			break
		}
		for _, resting := range level.Orders() {
			if remaining.IsZero() {
				break
			}
			take := remaining.Min(resting.Size)
			if take.IsZero() {
				continue
			}
			fills = append(fills, Fill{Price: level.Price, Size: take})
			remaining = remaining.Sub(take)
		}
	}
	return fills
}

// beyondLimit сообщает, хуже ли цена уровня лимита агрессора
func (l *Ladder) beyondLimit(levelPrice, limit models.Price) bool {
	if l.Side == models.Buy {
		// Продавец-агрессор против bids: уровень ниже лимита недостижим
		return levelPrice.Raw < limit.Raw
	}
	// Покупатель-агрессор против asks: уровень выше лимита недостижим
	return levelPrice.Raw > limit.Raw
}
