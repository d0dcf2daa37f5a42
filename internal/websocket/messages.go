// Package websocket раздаёт поток рыночных данных и событий ордеров
// подключенным клиентам.
package websocket

import (
	"time"

	"tradecore/internal/execution"
	"tradecore/internal/models"
	"tradecore/internal/orders"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeBookTop - вершина книги изменилась
	MessageTypeBookTop MessageType = "bookTop"

	// MessageTypeOrderUpdate - ордер сменил состояние
	MessageTypeOrderUpdate MessageType = "orderUpdate"

	// MessageTypeTrade - сделка на площадке
	MessageTypeTrade MessageType = "trade"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// BookTopMessage - вершина книги инструмента
type BookTopMessage struct {
	BaseMessage
	Instrument string   `json:"instrument"`
	BidPrice   *float64 `json:"bid_price"`
	BidSize    *float64 `json:"bid_size"`
	AskPrice   *float64 `json:"ask_price"`
	AskSize    *float64 `json:"ask_size"`
	Spread     float64  `json:"spread"`
	Midpoint   float64  `json:"midpoint"`
}

// OrderUpdateMessage - изменение состояния ордера
type OrderUpdateMessage struct {
	BaseMessage
	Data *OrderUpdateData `json:"data"`
}

// OrderUpdateData - состояние ордера после события
type OrderUpdateData struct {
	ClientOrderID string  `json:"client_order_id"`
	VenueOrderID  string  `json:"venue_order_id,omitempty"`
	Instrument    string  `json:"instrument"`
	Side          string  `json:"side"`
	Status        string  `json:"status"`
	Quantity      float64 `json:"quantity"`
	FilledQty     float64 `json:"filled_qty"`
	LeavesQty     float64 `json:"leaves_qty"`
	AvgPx         float64 `json:"avg_px,omitempty"`
}

// TradeMessage - сделка на площадке
type TradeMessage struct {
	BaseMessage
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	Aggressor  string  `json:"aggressor"`
	TradeID    string  `json:"trade_id"`
}

// ============ Фабричные функции для создания сообщений ============

// NewBookTopMessage создает сообщение вершины книги
func NewBookTopMessage(top execution.TopOfBook) *BookTopMessage {
	msg := &BookTopMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeBookTop,
			Timestamp: time.Now(),
		},
		Instrument: top.InstrumentID.String(),
		Spread:     top.Spread,
		Midpoint:   top.Midpoint,
	}
	if top.HasBid {
		bidPrice := top.BidPrice.Float64()
		bidSize := top.BidSize.Float64()
		msg.BidPrice = &bidPrice
		msg.BidSize = &bidSize
	}
	if top.HasAsk {
		askPrice := top.AskPrice.Float64()
		askSize := top.AskSize.Float64()
		msg.AskPrice = &askPrice
		msg.AskSize = &askSize
	}
	return msg
}

// NewOrderUpdateMessage создает сообщение о состоянии ордера
func NewOrderUpdateMessage(order orders.Order) *OrderUpdateMessage {
	core := order.Core()
	return &OrderUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeOrderUpdate,
			Timestamp: time.Now(),
		},
		Data: &OrderUpdateData{
			ClientOrderID: string(core.ClientOrderID),
			VenueOrderID:  string(core.VenueOrderID),
			Instrument:    core.InstrumentID.String(),
			Side:          core.Side.String(),
			Status:        core.Status.String(),
			Quantity:      core.Quantity.Float64(),
			FilledQty:     core.FilledQty.Float64(),
			LeavesQty:     core.LeavesQty.Float64(),
			AvgPx:         core.AvgPx,
		},
	}
}

// NewTradeMessage создает сообщение о сделке
func NewTradeMessage(trade models.TradeTick) *TradeMessage {
	return &TradeMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTrade,
			Timestamp: time.Now(),
		},
		Instrument: trade.InstrumentID.String(),
		Price:      trade.Price.Float64(),
		Size:       trade.Size.Float64(),
		Aggressor:  trade.AggressorSide.String(),
		TradeID:    string(trade.TradeID),
	}
}
