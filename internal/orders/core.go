package orders

import (
	"errors"
	"fmt"

	"tradecore/internal/models"
)

// core.go - общее состояние всех вариантов ордера
//
// OrderCore встраивается в каждый вариант и ведёт журнал событий,
// статусную машину, количества и комиссии. Применение событий
// сериализовано владельцем ордера; журнал только дописывается.

// Ошибки применения событий
var (
	ErrAlreadyInitialized = errors.New("order already initialized")
	ErrNoEvents           = errors.New("event list is empty")
)

// OrderCore - общий заголовок ордера
type OrderCore struct {
	TraderID      models.TraderID
	StrategyID    models.StrategyID
	InstrumentID  models.InstrumentID
	ClientOrderID models.ClientOrderID
	VenueOrderID  models.VenueOrderID // пустой = площадка ещё не присвоила
	AccountID     models.AccountID
	PositionID    models.PositionID
	LastTradeID   models.TradeID

	Side        models.OrderSide
	Type        models.OrderType
	Quantity    models.Quantity
	TimeInForce models.TimeInForce

	Status        models.OrderStatus
	FilledQty     models.Quantity
	LeavesQty     models.Quantity
	AvgPx         float64
	LiquiditySide models.LiquiditySide

	IsReduceOnly    bool
	IsQuoteQuantity bool

	EmulationTrigger models.TriggerType
	ContingencyType  models.ContingencyType
	OrderListID      models.OrderListID
	LinkedOrderIDs   []models.ClientOrderID
	ParentOrderID    models.ClientOrderID
	ExecAlgorithmID  models.ExecAlgorithmID
	ExecSpawnID      models.ClientOrderID
	Tags             []string

	TsInit      models.UnixNanos
	TsSubmitted models.UnixNanos
	TsAccepted  models.UnixNanos
	TsTriggered models.UnixNanos
	TsLast      models.UnixNanos

	previousStatus models.OrderStatus
	events         []OrderEvent
	commissions    map[models.Currency]models.Money
	tradeIDs       []models.TradeID
}

// newOrderCore создаёт заголовок из события инициализации
func newOrderCore(init *OrderInitialized) OrderCore {
	core := OrderCore{
		TraderID:         init.TraderID,
		StrategyID:       init.StrategyID,
		InstrumentID:     init.InstrumentID,
		ClientOrderID:    init.ClientOrderID,
		Side:             init.Side,
		Type:             init.OrderType,
		Quantity:         init.Quantity,
		TimeInForce:      init.TimeInForce,
		Status:           models.StatusInitialized,
		FilledQty:        models.ZeroQuantity(init.Quantity.Precision),
		LeavesQty:        init.Quantity,
		IsReduceOnly:     init.ReduceOnly,
		IsQuoteQuantity:  init.QuoteQuantity,
		EmulationTrigger: init.EmulationTrigger,
		ContingencyType:  init.ContingencyType,
		OrderListID:      init.OrderListID,
		LinkedOrderIDs:   init.LinkedOrderIDs,
		ParentOrderID:    init.ParentOrderID,
		ExecAlgorithmID:  init.ExecAlgorithmID,
		ExecSpawnID:      init.ExecSpawnID,
		Tags:             init.Tags,
		TsInit:           init.TsInit,
		TsLast:           init.TsEvent,
		commissions:      make(map[models.Currency]models.Money),
	}
	core.events = append(core.events, init)
	return core
}

// Core возвращает сам заголовок (реализация интерфейса Order через встраивание)
func (c *OrderCore) Core() *OrderCore {
	return c
}

// OrderType возвращает тип ордера
func (c *OrderCore) OrderType() models.OrderType {
	return c.Type
}

// Events возвращает журнал событий в порядке применения
func (c *OrderCore) Events() []OrderEvent {
	out := make([]OrderEvent, len(c.events))
	copy(out, c.events)
	return out
}

// EventCount возвращает длину журнала событий
func (c *OrderCore) EventCount() int {
	return len(c.events)
}

// LastEvent возвращает последнее применённое событие
func (c *OrderCore) LastEvent() OrderEvent {
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

// Commissions возвращает накопленные комиссии по валютам
func (c *OrderCore) Commissions() map[models.Currency]models.Money {
	out := make(map[models.Currency]models.Money, len(c.commissions))
	for cur, m := range c.commissions {
		out[cur] = m
	}
	return out
}

// TradeIDs возвращает идентификаторы сделок в порядке исполнения
func (c *OrderCore) TradeIDs() []models.TradeID {
	out := make([]models.TradeID, len(c.tradeIDs))
	copy(out, c.tradeIDs)
	return out
}

// ============================================================
// Предикаты состояния
// ============================================================

// IsOpen - ордер находится на площадке
func (c *OrderCore) IsOpen() bool {
	switch c.Status {
	case models.StatusAccepted, models.StatusTriggered, models.StatusPendingUpdate,
		models.StatusPendingCancel, models.StatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// IsClosed - ордер в терминальном статусе
func (c *OrderCore) IsClosed() bool {
	return c.Status.IsTerminal()
}

// IsInflight - запрос к площадке в полёте, подтверждение не получено
func (c *OrderCore) IsInflight() bool {
	switch c.Status {
	case models.StatusSubmitted, models.StatusPendingUpdate, models.StatusPendingCancel:
		return true
	default:
		return false
	}
}

// IsPendingCancel - ждём подтверждения отмены
func (c *OrderCore) IsPendingCancel() bool {
	return c.Status == models.StatusPendingCancel
}

// IsAggressive - ордер забирает ликвидность немедленно
func (c *OrderCore) IsAggressive() bool {
	return c.Type == models.Market
}

// IsPassive - ордер предоставляет ликвидность
func (c *OrderCore) IsPassive() bool {
	return !c.IsAggressive()
}

// WouldReduceOnly - сократит ли исполнение остатка существующую позицию
func (c *OrderCore) WouldReduceOnly(side models.PositionSide, positionQty models.Quantity) bool {
	if side == models.Flat {
		return false
	}
	switch {
	case c.Side == models.Buy && side == models.Long:
		return false
	case c.Side == models.Buy && side == models.Short:
		return c.LeavesQty.Cmp(positionQty) <= 0
	case c.Side == models.Sell && side == models.Short:
		return false
	case c.Side == models.Sell && side == models.Long:
		return c.LeavesQty.Cmp(positionQty) <= 0
	default:
		return true
	}
}

// ============================================================
// Применение событий
// ============================================================

// apply применяет событие к заголовку; onUpdated даёт варианту шанс
// обновить типизированные поля (цену, триггер) при OrderUpdated.
//
// Невалидный переход возвращает ошибку, состояние не меняется.
func (c *OrderCore) apply(event OrderEvent, onUpdated func(*OrderUpdated)) error {
	if event.OrderID() != c.ClientOrderID {
		return fmt.Errorf("client order id mismatch: event %s, order %s", event.OrderID(), c.ClientOrderID)
	}

	switch e := event.(type) {
	case *OrderInitialized:
		return ErrAlreadyInitialized

	case *OrderModifyRejected:
		// Откат статуса к значению до PENDING_UPDATE
		if c.Status != models.StatusPendingUpdate {
			return &InvalidTransitionError{From: c.Status, Event: EventModifyRejected}
		}
		c.Status = c.previousStatus

	case *OrderCancelRejected:
		if c.Status != models.StatusPendingCancel {
			return &InvalidTransitionError{From: c.Status, Event: EventCancelRejected}
		}
		c.Status = c.previousStatus

	case *OrderFilled:
		kind := EventFilled
		if c.FilledQty.Add(e.LastQty).Cmp(c.Quantity) < 0 {
			kind = EventPartiallyFilled
		}
		target, err := TransitionStatus(c.Status, kind)
		if err != nil {
			return err
		}
		c.previousStatus = c.Status
		c.Status = target
		c.fill(e)

	case *OrderUpdated:
		target, err := TransitionStatus(c.Status, EventUpdated)
		if err != nil {
			return err
		}
		c.previousStatus = c.Status
		c.Status = target
		if e.Quantity != nil {
			c.Quantity = *e.Quantity
			c.LeavesQty = c.Quantity.Sub(c.FilledQty)
		}
		if onUpdated != nil {
			onUpdated(e)
		}

	default:
		target, err := TransitionStatus(c.Status, event.EventType())
		if err != nil {
			return err
		}
		c.previousStatus = c.Status
		c.Status = target
		c.applySideEffects(event)
	}

	c.events = append(c.events, event)
	c.TsLast = event.Timestamp()
	return nil
}

// applySideEffects обновляет поля заголовка для простых событий
func (c *OrderCore) applySideEffects(event OrderEvent) {
	switch e := event.(type) {
	case *OrderSubmitted:
		c.AccountID = e.AccountID
		c.TsSubmitted = e.TsEvent
	case *OrderAccepted:
		c.VenueOrderID = e.VenueOrderID
		c.AccountID = e.AccountID
		if c.TsAccepted == 0 {
			c.TsAccepted = e.TsEvent
		}
	case *OrderTriggered:
		c.TsTriggered = e.TsEvent
	}
	// В терминальном состоянии остаток обнуляется: отмена, экспирация
	// и отклонение снимают несведённую часть с рынка
	if c.Status.IsTerminal() && c.Status != models.StatusFilled {
		c.LeavesQty = models.ZeroQuantity(c.Quantity.Precision)
	}
}

// fill обновляет количества, среднюю цену и комиссии по исполнению
func (c *OrderCore) fill(e *OrderFilled) {
	prevFilled := c.FilledQty.Float64()
	c.FilledQty = c.FilledQty.Add(e.LastQty)
	c.LeavesQty = c.Quantity.Sub(c.FilledQty)

	newFilled := c.FilledQty.Float64()
	if newFilled > 0 {
		c.AvgPx = (c.AvgPx*prevFilled + e.LastPx.Float64()*e.LastQty.Float64()) / newFilled
	}

	if !e.Commission.IsZero() {
		if existing, ok := c.commissions[e.Commission.Currency]; ok {
			if sum, err := existing.Add(e.Commission); err == nil {
				c.commissions[e.Commission.Currency] = sum
			}
		} else {
			c.commissions[e.Commission.Currency] = e.Commission
		}
	}

	c.tradeIDs = append(c.tradeIDs, e.TradeID)
	c.LastTradeID = e.TradeID
	c.LiquiditySide = e.LiquiditySide

	if c.VenueOrderID == "" {
		c.VenueOrderID = e.VenueOrderID
	}
	if c.PositionID == "" && e.PositionID != "" {
		c.PositionID = e.PositionID
	}
	// Исполнение без явного ACCEPTED: берём время сделки
	if c.TsAccepted == 0 {
		c.TsAccepted = e.TsEvent
	}
}
