package book

import (
	"time"

	"go.uber.org/zap"

	"tradecore/internal/models"
	"tradecore/pkg/utils"
)

// book.go - книга ордеров с тремя уровнями детализации
//
// L1_MBP: только вершина, одна запись на сторону.
// L2_MBP: агрегированные ценовые уровни.
// L3_MBO: отдельные ордера с сохранением time priority.
//
// Книга принадлежит одному логическому владельцу: внутренних
// блокировок нет, конкурентная мутация не поддерживается.

// OrderBook - книга ордеров одного инструмента
type OrderBook struct {
	InstrumentID models.InstrumentID
	BookType     models.BookType
	Sequence     uint64
	TsLast       models.UnixNanos
	Count        uint64

	bids *Ladder
	asks *Ladder
}

// NewOrderBook создаёт пустую книгу
func NewOrderBook(instrumentID models.InstrumentID, bookType models.BookType) *OrderBook {
	return &OrderBook{
		InstrumentID: instrumentID,
		BookType:     bookType,
		bids:         NewLadder(models.Buy),
		asks:         NewLadder(models.Sell),
	}
}

// increment продвигает sequence и ts_last
//
// Отставший sequence допустим: монотонность информационная,
// событие применяется, расхождение только логируется.
func (b *OrderBook) increment(sequence uint64, ts models.UnixNanos) {
	if sequence < b.Sequence {
		utils.Warn("book sequence went backwards",
			zap.String("instrument", b.InstrumentID.String()),
			zap.Uint64("current", b.Sequence),
			zap.Uint64("received", sequence),
		)
	} else {
		b.Sequence = sequence
	}
	if ts < b.TsLast {
		utils.Warn("book timestamp went backwards",
			zap.String("instrument", b.InstrumentID.String()),
			zap.Uint64("current", uint64(b.TsLast)),
			zap.Uint64("received", uint64(ts)),
		)
	} else {
		b.TsLast = ts
	}
	b.Count++
}

// ladderFor возвращает лестницу стороны
func (b *OrderBook) ladderFor(side models.OrderSide) *Ladder {
	if side == models.Buy {
		return b.bids
	}
	return b.asks
}

// Add добавляет запись в книгу
func (b *OrderBook) Add(order BookOrder, flags uint8, sequence uint64, ts models.UnixNanos) error {
	order = preProcessOrder(b.BookType, order)
	if b.BookType == models.L1_MBP {
		// L1: добавление - это замена вершины стороны
		b.replaceTop(order)
		b.increment(sequence, ts)
		return nil
	}
	if err := b.ladderFor(order.Side).Add(order); err != nil {
		return err
	}
	b.increment(sequence, ts)
	return nil
}

// Update изменяет запись книги
func (b *OrderBook) Update(order BookOrder, flags uint8, sequence uint64, ts models.UnixNanos) error {
	order = preProcessOrder(b.BookType, order)
	if b.BookType == models.L1_MBP {
		b.replaceTop(order)
		b.increment(sequence, ts)
		return nil
	}
	if err := b.ladderFor(order.Side).Update(order); err != nil {
		return err
	}
	b.increment(sequence, ts)
	return nil
}

// Delete удаляет запись книги
func (b *OrderBook) Delete(order BookOrder, flags uint8, sequence uint64, ts models.UnixNanos) error {
	order = preProcessOrder(b.BookType, order)
	if err := b.ladderFor(order.Side).Delete(order.OrderID); err != nil {
		return err
	}
	b.increment(sequence, ts)
	return nil
}

// replaceTop снимает текущую вершину стороны и ставит новую запись
func (b *OrderBook) replaceTop(order BookOrder) {
	ladder := b.ladderFor(order.Side)
	if top, ok := ladder.Top(); ok {
		if first, ok := top.First(); ok {
			_ = ladder.Delete(first.OrderID)
		}
	}
	if order.Size.IsPositive() {
		_ = ladder.Add(order)
	}
}

// Clear опустошает обе лестницы
func (b *OrderBook) Clear(sequence uint64, ts models.UnixNanos) {
	b.bids.Clear()
	b.asks.Clear()
	b.increment(sequence, ts)
}

// ClearBids опустошает сторону bids
func (b *OrderBook) ClearBids(sequence uint64, ts models.UnixNanos) {
	b.bids.Clear()
	b.increment(sequence, ts)
}

// ClearAsks опустошает сторону asks
func (b *OrderBook) ClearAsks(sequence uint64, ts models.UnixNanos) {
	b.asks.Clear()
	b.increment(sequence, ts)
}

// ApplyDelta применяет одно инкрементальное событие
func (b *OrderBook) ApplyDelta(delta BookDelta) error {
	switch delta.Action {
	case models.BookAdd:
		return b.Add(delta.Order, delta.Flags, delta.Sequence, delta.TsEvent)
	case models.BookUpdate:
		return b.Update(delta.Order, delta.Flags, delta.Sequence, delta.TsEvent)
	case models.BookDelete:
		return b.Delete(delta.Order, delta.Flags, delta.Sequence, delta.TsEvent)
	case models.BookClear:
		b.Clear(delta.Sequence, delta.TsEvent)
		return nil
	default:
		return &InvalidBookOperationError{Operation: delta.Action.String(), BookType: b.BookType}
	}
}

// ApplyDeltas применяет серию событий по порядку
func (b *OrderBook) ApplyDeltas(deltas []BookDelta) error {
	for _, delta := range deltas {
		if err := b.ApplyDelta(delta); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDepth атомарно заменяет обе лестницы десятиуровневым снапшотом
//
// Записи-заполнители (NoOrderSide или неположительный размер)
// пропускаются.
func (b *OrderBook) ApplyDepth(depth Depth10) {
	b.bids.Clear()
	b.asks.Clear()
	for _, order := range depth.Bids {
		if order.Side == models.NoOrderSide || !order.Size.IsPositive() {
			continue
		}
		_ = b.bids.Add(preProcessOrder(b.BookType, order))
	}
	for _, order := range depth.Asks {
		if order.Side == models.NoOrderSide || !order.Size.IsPositive() {
			continue
		}
		_ = b.asks.Add(preProcessOrder(b.BookType, order))
	}
	b.increment(depth.Sequence, depth.TsEvent)
}

// UpdateQuoteTick обновляет вершину книги по котировке (только L1)
func (b *OrderBook) UpdateQuoteTick(quote models.QuoteTick) error {
	if b.BookType != models.L1_MBP {
		return &InvalidBookOperationError{Operation: "update_quote_tick", BookType: b.BookType}
	}
	bid := BookOrder{Side: models.Buy, Price: quote.BidPrice, Size: quote.BidSize, OrderID: uint64(models.Buy)}
	ask := BookOrder{Side: models.Sell, Price: quote.AskPrice, Size: quote.AskSize, OrderID: uint64(models.Sell)}
	b.replaceTop(bid)
	b.replaceTop(ask)
	b.increment(b.Sequence+1, quote.TsEvent)
	return nil
}

// UpdateTradeTick ставит обе стороны по цене последней сделки (только L1)
func (b *OrderBook) UpdateTradeTick(trade models.TradeTick) error {
	if b.BookType != models.L1_MBP {
		return &InvalidBookOperationError{Operation: "update_trade_tick", BookType: b.BookType}
	}
	bid := BookOrder{Side: models.Buy, Price: trade.Price, Size: trade.Size, OrderID: uint64(models.Buy)}
	ask := BookOrder{Side: models.Sell, Price: trade.Price, Size: trade.Size, OrderID: uint64(models.Sell)}
	b.replaceTop(bid)
	b.replaceTop(ask)
	b.increment(b.Sequence+1, trade.TsEvent)
	return nil
}

// ============================================================
// Доступ к вершине книги
// ============================================================

// BestBidPrice возвращает лучшую цену покупки
func (b *OrderBook) BestBidPrice() (models.Price, bool) {
	top, ok := b.bids.Top()
	if !ok {
		return models.Price{}, false
	}
	return top.Price, true
}

// BestAskPrice возвращает лучшую цену продажи
func (b *OrderBook) BestAskPrice() (models.Price, bool) {
	top, ok := b.asks.Top()
	if !ok {
		return models.Price{}, false
	}
	return top.Price, true
}

// BestBidSize возвращает размер лучшего bid-уровня
func (b *OrderBook) BestBidSize() (models.Quantity, bool) {
	top, ok := b.bids.Top()
	if !ok {
		return models.Quantity{}, false
	}
	return top.Size(), true
}

// BestAskSize возвращает размер лучшего ask-уровня
func (b *OrderBook) BestAskSize() (models.Quantity, bool) {
	top, ok := b.asks.Top()
	if !ok {
		return models.Quantity{}, false
	}
	return top.Size(), true
}

// Spread возвращает разницу между лучшими ask и bid
func (b *OrderBook) Spread() (float64, bool) {
	bid, okBid := b.BestBidPrice()
	ask, okAsk := b.BestAskPrice()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask.Float64() - bid.Float64(), true
}

// Midpoint возвращает середину между лучшими bid и ask
func (b *OrderBook) Midpoint() (float64, bool) {
	bid, okBid := b.BestBidPrice()
	ask, okAsk := b.BestAskPrice()
	if !okBid || !okAsk {
		return 0, false
	}
	return (ask.Float64() + bid.Float64()) / 2, true
}

// Bids возвращает уровни bids по убыванию цены (depth 0 = все)
func (b *OrderBook) Bids(depth int) []*BookLevel {
	return b.bids.Levels(depth)
}

// Asks возвращает уровни asks по возрастанию цены (depth 0 = все)
func (b *OrderBook) Asks(depth int) []*BookLevel {
	return b.asks.Levels(depth)
}

// BidsAsMap возвращает агрегированный размер по каждой цене bids
func (b *OrderBook) BidsAsMap(depth int) map[models.Price]models.Quantity {
	return levelsAsMap(b.bids.Levels(depth))
}

// AsksAsMap возвращает агрегированный размер по каждой цене asks
func (b *OrderBook) AsksAsMap(depth int) map[models.Price]models.Quantity {
	return levelsAsMap(b.asks.Levels(depth))
}

func levelsAsMap(levels []*BookLevel) map[models.Price]models.Quantity {
	out := make(map[models.Price]models.Quantity, len(levels))
	for _, level := range levels {
		out[level.Price] = level.Size()
	}
	return out
}

// ============================================================
// Группировка и фильтрация
// ============================================================

// GroupBids агрегирует bids по корзинам groupSize, цены округляются вниз
func (b *OrderBook) GroupBids(groupSize models.Price, depth int) map[models.Price]models.Quantity {
	return groupLevels(b.bids, groupSize, depth, false)
}

// GroupAsks агрегирует asks по корзинам groupSize, цены округляются вверх
func (b *OrderBook) GroupAsks(groupSize models.Price, depth int) map[models.Price]models.Quantity {
	return groupLevels(b.asks, groupSize, depth, true)
}

func groupLevels(ladder *Ladder, groupSize models.Price, depth int, ceil bool) map[models.Price]models.Quantity {
	out := make(map[models.Price]models.Quantity)
	if !groupSize.IsPositive() {
		return out
	}
	group := groupSize.Raw
	for _, level := range ladder.Levels(0) {
		bucketRaw := bucketPrice(level.Price.Raw, group, ceil)
		bucket := models.PriceFromRaw(bucketRaw, groupSize.Precision)
		size := level.Size()
		if existing, ok := out[bucket]; ok {
			out[bucket] = existing.Add(size)
			continue
		}
		if depth > 0 && len(out) >= depth {
			break
		}
		out[bucket] = size
	}
	return out
}

// bucketPrice округляет сырую цену к кратному group вниз или вверх
func bucketPrice(raw, group int64, ceil bool) int64 {
	q := raw / group
	r := raw % group
	if r == 0 {
		return raw
	}
	if ceil {
		if raw > 0 {
			return (q + 1) * group
		}
		return q * group
	}
	if raw < 0 {
		return (q - 1) * group
	}
	return q * group
}

// BidsFilteredAsMap возвращает публичные bids за вычетом своих ордеров
func (b *OrderBook) BidsFilteredAsMap(depth int, own *OwnOrderBook, statusFilter map[models.OrderStatus]struct{}, acceptedBuffer time.Duration, now models.UnixNanos) map[models.Price]models.Quantity {
	public := b.BidsAsMap(depth)
	if own == nil {
		return public
	}
	filterOwnQuantities(public, own.BidsAsMap(), statusFilter, acceptedBuffer, now)
	return public
}

// AsksFilteredAsMap возвращает публичные asks за вычетом своих ордеров
func (b *OrderBook) AsksFilteredAsMap(depth int, own *OwnOrderBook, statusFilter map[models.OrderStatus]struct{}, acceptedBuffer time.Duration, now models.UnixNanos) map[models.Price]models.Quantity {
	public := b.AsksAsMap(depth)
	if own == nil {
		return public
	}
	filterOwnQuantities(public, own.AsksAsMap(), statusFilter, acceptedBuffer, now)
	return public
}

// filterOwnQuantities вычитает размеры своих ордеров из публичных уровней
//
// Вычитаются ордера, проходящие фильтр статусов и чей ts_accepted
// с учётом буфера видимости уже наступил. Без фильтра статусов буфер
// применяется только к ордерам в статусе ACCEPTED; остальные статусы
// вычитаются безусловно. Результат прижимается к нулю, пустые уровни
// удаляются.
func filterOwnQuantities(public map[models.Price]models.Quantity, own map[models.Price][]OwnBookOrder, statusFilter map[models.OrderStatus]struct{}, acceptedBuffer time.Duration, now models.UnixNanos) {
	for price, publicSize := range public {
		ownOrders, ok := own[price]
		if !ok {
			continue
		}
		var ownRaw uint64
		for _, o := range ownOrders {
			if statusFilter != nil {
				if _, ok := statusFilter[o.Status]; !ok {
					continue
				}
				if !visibleByNow(o, acceptedBuffer, now) {
					continue
				}
			} else if o.Status == models.StatusAccepted && !visibleByNow(o, acceptedBuffer, now) {
				continue
			}
			ownRaw += o.Size.Raw
		}
		if ownRaw == 0 {
			continue
		}
		if ownRaw >= publicSize.Raw {
			delete(public, price)
			continue
		}
		public[price] = models.QuantityFromRaw(publicSize.Raw-ownRaw, publicSize.Precision)
	}
}

func visibleByNow(o OwnBookOrder, buffer time.Duration, now models.UnixNanos) bool {
	if buffer <= 0 {
		return true
	}
	return o.TsAccepted.Add(buffer) <= now
}

// ============================================================
// Аналитика исполнения
// ============================================================

// GetAvgPxForQuantity возвращает средневзвешенную цену исполнения
// количества qty против противоположной стороны (0 если книга пуста)
func (b *OrderBook) GetAvgPxForQuantity(qty models.Quantity, side models.OrderSide) float64 {
	ladder := b.oppositeLadder(side)
	var cumNotional, cumQty float64
	remaining := qty
	for _, level := range ladder.Levels(0) {
		if remaining.IsZero() {
			break
		}
		take := remaining.Min(level.Size())
		cumNotional += level.Price.Float64() * take.Float64()
		cumQty += take.Float64()
		remaining = remaining.Sub(take)
	}
	if cumQty == 0 {
		return 0
	}
	return cumNotional / cumQty
}

// GetAvgPxQtyForExposure обходит противоположную сторону до достижения
// нотионала exposure, возвращая (средняя цена, количество, набранный нотионал)
func (b *OrderBook) GetAvgPxQtyForExposure(exposure float64, side models.OrderSide) (float64, models.Quantity, float64) {
	ladder := b.oppositeLadder(side)
	var cumNotional, cumQty float64
	for _, level := range ladder.Levels(0) {
		if cumNotional >= exposure {
			break
		}
		price := level.Price.Float64()
		available := level.Size().Float64()
		needed := (exposure - cumNotional) / price
		take := available
		if needed < available {
			take = needed
		}
		cumNotional += price * take
		cumQty += take
	}
	if cumQty == 0 {
		return 0, models.Quantity{}, 0
	}
	qty, err := models.NewQuantity(cumQty, models.FixedPrecision)
	if err != nil {
		return 0, models.Quantity{}, 0
	}
	return cumNotional / cumQty, qty, cumNotional
}

// GetQuantityForPrice возвращает суммарный размер противоположной стороны
// по ценам не хуже указанной
func (b *OrderBook) GetQuantityForPrice(price models.Price, side models.OrderSide) models.Quantity {
	ladder := b.oppositeLadder(side)
	var raw uint64
	precision := uint8(0)
	for _, level := range ladder.Levels(0) {
		if side == models.Buy && level.Price.Raw > price.Raw {
			break
		}
		if side == models.Sell && level.Price.Raw < price.Raw {
			break
		}
		s := level.Size()
		raw += s.Raw
		if s.Precision > precision {
			precision = s.Precision
		}
	}
	return models.QuantityFromRaw(raw, precision)
}

// SimulateFills выполняет обход противоположной стороны с лимитом цены ордера
func (b *OrderBook) SimulateFills(order BookOrder) []Fill {
	return b.oppositeLadder(order.Side).SimulateFills(order, false)
}

// SimulateAggressiveFills - обход без лимита цены (market-ордер)
func (b *OrderBook) SimulateAggressiveFills(side models.OrderSide, qty models.Quantity) []Fill {
	order := BookOrder{Side: side, Size: qty}
	return b.oppositeLadder(side).SimulateFills(order, true)
}

func (b *OrderBook) oppositeLadder(side models.OrderSide) *Ladder {
	if side == models.Buy {
		return b.asks
	}
	return b.bids
}

// ============================================================
// Целостность
// ============================================================

// CheckIntegrity проверяет инварианты книги
//
// Нарушение возвращается классифицированной ошибкой и логируется;
// книга при этом не модифицируется и не паникует.
func (b *OrderBook) CheckIntegrity() error {
	bid, okBid := b.BestBidPrice()
	ask, okAsk := b.BestAskPrice()
	if okBid && okAsk && bid.Raw >= ask.Raw {
		err := &OrdersCrossedError{BestBid: bid, BestAsk: ask}
		utils.Error("book integrity violation",
			zap.String("instrument", b.InstrumentID.String()),
			zap.String("error", err.Error()),
		)
		return err
	}
	if b.BookType == models.L1_MBP {
		if b.bids.Len() > 1 {
			return &TooManyLevelsError{Side: models.Buy, Levels: b.bids.Len()}
		}
		if b.asks.Len() > 1 {
			return &TooManyLevelsError{Side: models.Sell, Levels: b.asks.Len()}
		}
	}
	return nil
}
