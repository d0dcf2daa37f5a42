// Package feed реализует приём рыночных данных: переподключающийся
// WebSocket клиент площадки и кодек wire-сообщений в события книги.
package feed

import (
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"tradecore/internal/book"
	"tradecore/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ============================================================
// Wire-формат площадки
// ============================================================

// wireMessage - конверт сообщения стрима
type wireMessage struct {
	Table       string              `json:"table"`
	Action      string              `json:"action"`
	Success     bool                `json:"success"`
	Subscribe   string              `json:"subscribe"`
	Unsubscribe string              `json:"unsubscribe"`
	Error       string              `json:"error"`
	Request     wireRequest         `json:"request"`
	Data        jsoniter.RawMessage `json:"data"`
}

type wireRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// wireLevel - запись уровня книги в стриме.
// В update/delete цена опущена: уровень адресуется по id.
type wireLevel struct {
	Symbol string          `json:"symbol"`
	ID     uint64          `json:"id"`
	Side   string          `json:"side"`
	Size   decimal.Decimal `json:"size"`
	Price  decimal.Decimal `json:"price"`
}

// wireQuote - лучшие bid/ask
type wireQuote struct {
	Symbol    string          `json:"symbol"`
	BidPrice  decimal.Decimal `json:"bidPrice"`
	BidSize   decimal.Decimal `json:"bidSize"`
	AskPrice  decimal.Decimal `json:"askPrice"`
	AskSize   decimal.Decimal `json:"askSize"`
	Timestamp string          `json:"timestamp"`
}

// wireTrade - сделка
type wireTrade struct {
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Size       decimal.Decimal `json:"size"`
	Price      decimal.Decimal `json:"price"`
	TrdMatchID string          `json:"trdMatchID"`
	Timestamp  string          `json:"timestamp"`
}

// ============================================================
// Кодек
// ============================================================

// Codec разбирает wire-сообщения стрима в доменные события.
//
// Точности берутся из зарегистрированных инструментов; для
// незнакомого символа точность выводится из экспоненты decimal.
type Codec struct {
	venue models.Venue

	mu          sync.RWMutex
	instruments map[models.Symbol]models.Instrument
}

// NewCodec создаёт кодек для площадки
func NewCodec(venue models.Venue) *Codec {
	return &Codec{
		venue:       venue,
		instruments: make(map[models.Symbol]models.Instrument),
	}
}

// RegisterInstrument сохраняет инструмент для выбора точностей
func (c *Codec) RegisterInstrument(instrument models.Instrument) {
	c.mu.Lock()
	c.instruments[instrument.ID().Symbol] = instrument
	c.mu.Unlock()
}

// precisions возвращает точности цены и размера для символа
func (c *Codec) precisions(symbol string, price, size decimal.Decimal) (uint8, uint8) {
	c.mu.RLock()
	inst, ok := c.instruments[models.Symbol(symbol)]
	c.mu.RUnlock()
	if ok {
		return inst.PricePrecision(), inst.SizePrecision()
	}
	return decimalPrecision(price), decimalPrecision(size)
}

// ParseDeltas разбирает сообщение таблицы книги в дельты.
//
// Действие partial означает полный снимок: перед уровнями
// эмитится BookClear, чтобы книга сбросила устаревшее состояние.
func (c *Codec) ParseDeltas(action string, data []byte, sequence uint64, tsEvent models.UnixNanos) ([]book.BookDelta, error) {
	var levels []wireLevel
	if err := json.Unmarshal(data, &levels); err != nil {
		return nil, fmt.Errorf("unmarshal book levels: %w", err)
	}

	var bookAction models.BookAction
	switch action {
	case "partial", "insert":
		bookAction = models.BookAdd
	case "update":
		bookAction = models.BookUpdate
	case "delete":
		bookAction = models.BookDelete
	default:
		return nil, fmt.Errorf("unknown book action %q", action)
	}

	tsInit := models.NanosNow()
	deltas := make([]book.BookDelta, 0, len(levels)+1)

	if action == "partial" && len(levels) > 0 {
		deltas = append(deltas, book.BookDelta{
			InstrumentID: models.NewInstrumentID(models.Symbol(levels[0].Symbol), c.venue),
			Action:       models.BookClear,
			Sequence:     sequence,
			TsEvent:      tsEvent,
			TsInit:       tsInit,
		})
	}

	for _, level := range levels {
		pricePrec, sizePrec := c.precisions(level.Symbol, level.Price, level.Size)
		deltas = append(deltas, book.BookDelta{
			InstrumentID: models.NewInstrumentID(models.Symbol(level.Symbol), c.venue),
			Action:       bookAction,
			Order: book.NewBookOrder(
				parseBookSide(level.Side),
				priceFromDecimal(level.Price, pricePrec),
				qtyFromDecimal(level.Size, sizePrec),
				level.ID,
			),
			Sequence: sequence,
			TsEvent:  tsEvent,
			TsInit:   tsInit,
		})
	}
	return deltas, nil
}

// ParseQuotes разбирает сообщение таблицы котировок
func (c *Codec) ParseQuotes(data []byte) ([]models.QuoteTick, error) {
	var quotes []wireQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, fmt.Errorf("unmarshal quotes: %w", err)
	}

	tsInit := models.NanosNow()
	ticks := make([]models.QuoteTick, 0, len(quotes))
	for _, q := range quotes {
		pricePrec, sizePrec := c.precisions(q.Symbol, q.BidPrice, q.BidSize)
		ticks = append(ticks, models.QuoteTick{
			InstrumentID: models.NewInstrumentID(models.Symbol(q.Symbol), c.venue),
			BidPrice:     priceFromDecimal(q.BidPrice, pricePrec),
			AskPrice:     priceFromDecimal(q.AskPrice, pricePrec),
			BidSize:      qtyFromDecimal(q.BidSize, sizePrec),
			AskSize:      qtyFromDecimal(q.AskSize, sizePrec),
			TsEvent:      parseTimestamp(q.Timestamp, tsInit),
			TsInit:       tsInit,
		})
	}
	return ticks, nil
}

// ParseTrades разбирает сообщение таблицы сделок
func (c *Codec) ParseTrades(data []byte) ([]models.TradeTick, error) {
	var trades []wireTrade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("unmarshal trades: %w", err)
	}

	tsInit := models.NanosNow()
	ticks := make([]models.TradeTick, 0, len(trades))
	for _, t := range trades {
		pricePrec, sizePrec := c.precisions(t.Symbol, t.Price, t.Size)
		ticks = append(ticks, models.TradeTick{
			InstrumentID:  models.NewInstrumentID(models.Symbol(t.Symbol), c.venue),
			Price:         priceFromDecimal(t.Price, pricePrec),
			Size:          qtyFromDecimal(t.Size, sizePrec),
			AggressorSide: parseAggressor(t.Side),
			TradeID:       models.TradeID(t.TrdMatchID),
			TsEvent:       parseTimestamp(t.Timestamp, tsInit),
			TsInit:        tsInit,
		})
	}
	return ticks, nil
}

// ============================================================
// Конвертация значений
// ============================================================

// priceFromDecimal конвертирует decimal в фиксированную точку без
// промежуточного float64
func priceFromDecimal(d decimal.Decimal, precision uint8) models.Price {
	return models.PriceFromRaw(d.Shift(models.FixedPrecision).IntPart(), precision)
}

// qtyFromDecimal конвертирует decimal в фиксированную точку;
// отрицательные размеры невалидны и схлопываются в ноль
func qtyFromDecimal(d decimal.Decimal, precision uint8) models.Quantity {
	raw := d.Shift(models.FixedPrecision).IntPart()
	if raw < 0 {
		raw = 0
	}
	return models.QuantityFromRaw(uint64(raw), precision)
}

// decimalPrecision выводит точность из экспоненты значения
func decimalPrecision(d decimal.Decimal) uint8 {
	if exp := d.Exponent(); exp < 0 {
		p := int32(-exp)
		if p > models.FixedPrecision {
			p = models.FixedPrecision
		}
		return uint8(p)
	}
	return 0
}

func parseBookSide(side string) models.OrderSide {
	switch side {
	case "Buy":
		return models.Buy
	case "Sell":
		return models.Sell
	default:
		return models.NoOrderSide
	}
}

// parseAggressor: сторона сделки в стриме - сторона тейкера
func parseAggressor(side string) models.AggressorSide {
	switch side {
	case "Buy":
		return models.AggressorBuyer
	case "Sell":
		return models.AggressorSeller
	default:
		return models.NoAggressor
	}
}

// parseTimestamp разбирает RFC3339 метку; fallback - время приёма
func parseTimestamp(s string, fallback models.UnixNanos) models.UnixNanos {
	if s == "" {
		return fallback
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback
	}
	return models.NanosFromTime(ts)
}
