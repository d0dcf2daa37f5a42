// Package execution содержит движок исполнения: кэш ордеров,
// книги инструментов и применение отчётов площадки к машинам
// состояний ордеров.
package execution

import (
	"sync"

	"tradecore/internal/models"
	"tradecore/internal/orders"
)

// Cache - индекс ордеров по идентификаторам.
//
// Ордера не удаляются: журнал событий хранится целиком, терминальные
// ордера остаются доступными для запросов. Кэш только индексирует,
// применение событий сериализует движок.
type Cache struct {
	mu         sync.RWMutex
	byClientID map[models.ClientOrderID]orders.Order
	byVenueID  map[models.VenueOrderID]models.ClientOrderID
	seenTrades map[models.TradeID]struct{}
}

// NewCache создаёт пустой кэш ордеров
func NewCache() *Cache {
	return &Cache{
		byClientID: make(map[models.ClientOrderID]orders.Order),
		byVenueID:  make(map[models.VenueOrderID]models.ClientOrderID),
		seenTrades: make(map[models.TradeID]struct{}),
	}
}

// Add индексирует новый ордер
func (c *Cache) Add(order orders.Order) bool {
	core := order.Core()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byClientID[core.ClientOrderID]; exists {
		return false
	}
	c.byClientID[core.ClientOrderID] = order
	if core.VenueOrderID != "" {
		c.byVenueID[core.VenueOrderID] = core.ClientOrderID
	}
	return true
}

// IndexVenueID связывает биржевой идентификатор с клиентским.
// Вызывается после того, как площадка присвоила ордеру свой id.
func (c *Cache) IndexVenueID(venueOrderID models.VenueOrderID, clientOrderID models.ClientOrderID) {
	if venueOrderID == "" {
		return
	}
	c.mu.Lock()
	c.byVenueID[venueOrderID] = clientOrderID
	c.mu.Unlock()
}

// Get возвращает ордер по клиентскому идентификатору
func (c *Cache) Get(clientOrderID models.ClientOrderID) (orders.Order, bool) {
	c.mu.RLock()
	order, ok := c.byClientID[clientOrderID]
	c.mu.RUnlock()
	return order, ok
}

// GetByVenueID возвращает ордер по биржевому идентификатору
func (c *Cache) GetByVenueID(venueOrderID models.VenueOrderID) (orders.Order, bool) {
	c.mu.RLock()
	clientID, ok := c.byVenueID[venueOrderID]
	if !ok {
		c.mu.RUnlock()
		return nil, false
	}
	order, ok := c.byClientID[clientID]
	c.mu.RUnlock()
	return order, ok
}

// MarkTrade регистрирует сделку; false = сделка уже была применена.
// Защищает от повторной доставки исполнений после переподключения.
func (c *Cache) MarkTrade(tradeID models.TradeID) bool {
	if tradeID == "" {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.seenTrades[tradeID]; seen {
		return false
	}
	c.seenTrades[tradeID] = struct{}{}
	return true
}

// Open возвращает открытые ордера
func (c *Cache) Open() []orders.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]orders.Order, 0)
	for _, order := range c.byClientID {
		if order.IsOpen() {
			out = append(out, order)
		}
	}
	return out
}

// OpenForInstrument возвращает открытые ордера инструмента
func (c *Cache) OpenForInstrument(instrumentID models.InstrumentID) []orders.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]orders.Order, 0)
	for _, order := range c.byClientID {
		if order.IsOpen() && order.Core().InstrumentID == instrumentID {
			out = append(out, order)
		}
	}
	return out
}

// Len возвращает общее количество ордеров в кэше
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byClientID)
}

// OpenCount возвращает количество открытых ордеров
func (c *Cache) OpenCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, order := range c.byClientID {
		if order.IsOpen() {
			count++
		}
	}
	return count
}
