package models

// data.go - рыночные данные, потребляемые книгой ордеров
//
// Адаптеры парсят wire-сообщения площадок в эти типы;
// ядро их только применяет.

// QuoteTick - лучшие bid/ask в один момент времени
type QuoteTick struct {
	InstrumentID InstrumentID
	BidPrice     Price
	AskPrice     Price
	BidSize      Quantity
	AskSize      Quantity
	TsEvent      UnixNanos
	TsInit       UnixNanos
}

// TradeTick - совершённая сделка
type TradeTick struct {
	InstrumentID  InstrumentID
	Price         Price
	Size          Quantity
	AggressorSide AggressorSide
	TradeID       TradeID
	TsEvent       UnixNanos
	TsInit        UnixNanos
}
