package models

import (
	"fmt"
	"strings"
)

// identifiers.go - типизированные идентификаторы доменных сущностей
//
// Каждый идентификатор - отдельный тип поверх строки: идентификаторы
// разных сущностей несравнимы между собой на уровне типов.
// Все идентификаторы value-типы, пригодны как ключи map и упорядочены
// лексикографически строковой формой.

// Venue - идентификатор торговой площадки
type Venue string

func (v Venue) String() string { return string(v) }

// Symbol - сырой тикер инструмента на площадке
type Symbol string

func (s Symbol) String() string { return string(s) }

// InstrumentID - идентификатор инструмента вида SYMBOL.VENUE
type InstrumentID struct {
	Symbol Symbol
	Venue  Venue
}

// NewInstrumentID создаёт идентификатор инструмента
func NewInstrumentID(symbol Symbol, venue Venue) InstrumentID {
	return InstrumentID{Symbol: symbol, Venue: venue}
}

// ParseInstrumentID парсит строку вида "XBTUSD.BITMEX"
// Точка-разделитель - последняя в строке: сам символ может содержать точки.
func ParseInstrumentID(s string) (InstrumentID, error) {
	idx := strings.LastIndexByte(s, '.')
	if idx <= 0 || idx == len(s)-1 {
		return InstrumentID{}, fmt.Errorf("invalid instrument id %q: expected SYMBOL.VENUE", s)
	}
	return InstrumentID{Symbol: Symbol(s[:idx]), Venue: Venue(s[idx+1:])}, nil
}

func (id InstrumentID) String() string {
	return string(id.Symbol) + "." + string(id.Venue)
}

// IsZero сообщает, пуст ли идентификатор
func (id InstrumentID) IsZero() bool {
	return id.Symbol == "" && id.Venue == ""
}

// MarshalJSON сериализует идентификатор как строку SYMBOL.VENUE
func (id InstrumentID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON парсит идентификатор из строки
func (id *InstrumentID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseInstrumentID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ClientOrderID - клиентский идентификатор ордера
type ClientOrderID string

func (id ClientOrderID) String() string { return string(id) }

// VenueOrderID - идентификатор ордера на площадке
type VenueOrderID string

func (id VenueOrderID) String() string { return string(id) }

// TradeID - идентификатор сделки
type TradeID string

func (id TradeID) String() string { return string(id) }

// AccountID - идентификатор торгового счёта
type AccountID string

func (id AccountID) String() string { return string(id) }

// StrategyID - идентификатор стратегии
type StrategyID string

func (id StrategyID) String() string { return string(id) }

// TraderID - идентификатор трейдера
type TraderID string

func (id TraderID) String() string { return string(id) }

// OrderListID - идентификатор списка связанных ордеров
type OrderListID string

func (id OrderListID) String() string { return string(id) }

// PositionID - идентификатор позиции
type PositionID string

func (id PositionID) String() string { return string(id) }

// ExecAlgorithmID - идентификатор алгоритма исполнения
type ExecAlgorithmID string

func (id ExecAlgorithmID) String() string { return string(id) }
