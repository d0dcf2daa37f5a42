package book

import (
	"tradecore/internal/models"
)

// order.go - запись книги ордеров и пред-обработка по типу книги
//
// BookOrder - единица хранения лестницы. В L3 order_id честный
// идентификатор площадки; в L1/L2 он синтезируется детерминированно,
// чтобы общий код лестницы работал во всех режимах.

// BookOrder - одна запись в книге
type BookOrder struct {
	Side    models.OrderSide
	Price   models.Price
	Size    models.Quantity
	OrderID uint64
}

// NewBookOrder создаёт запись книги
func NewBookOrder(side models.OrderSide, price models.Price, size models.Quantity, orderID uint64) BookOrder {
	return BookOrder{Side: side, Price: price, Size: size, OrderID: orderID}
}

// Exposure возвращает нотионал записи (цена * размер)
func (o BookOrder) Exposure() float64 {
	return o.Price.Float64() * o.Size.Float64()
}

// SignedSize возвращает размер со знаком стороны (bid положительный)
func (o BookOrder) SignedSize() float64 {
	if o.Side == models.Sell {
		return -o.Size.Float64()
	}
	return o.Size.Float64()
}

// BookDelta - инкрементальное событие книги
type BookDelta struct {
	InstrumentID models.InstrumentID
	Action       models.BookAction
	Order        BookOrder
	Flags        uint8
	Sequence     uint64
	TsEvent      models.UnixNanos
	TsInit       models.UnixNanos
}

// Depth10 - снапшот десяти уровней с каждой стороны
//
// Неиспользуемые уровни заполняются записями с NoOrderSide
// или нулевым размером; при применении они пропускаются.
type Depth10 struct {
	InstrumentID models.InstrumentID
	Bids         [10]BookOrder
	Asks         [10]BookOrder
	BidCounts    [10]uint32
	AskCounts    [10]uint32
	Flags        uint8
	Sequence     uint64
	TsEvent      models.UnixNanos
	TsInit       models.UnixNanos
}

// preProcessOrder приводит запись к инвариантам типа книги
//
// L1: одна запись на сторону, order_id - значение стороны.
// L2: агрегация по цене, order_id - функция цены.
// L3: order_id площадки сохраняется как есть.
func preProcessOrder(bookType models.BookType, order BookOrder) BookOrder {
	switch bookType {
	case models.L1_MBP:
		order.OrderID = uint64(order.Side)
	case models.L2_MBP:
		order.OrderID = orderIDFromPrice(order.Price)
	}
	return order
}

// orderIDFromPrice синтезирует order_id из сырого значения цены
func orderIDFromPrice(price models.Price) uint64 {
	return uint64(price.Raw)
}
