package models

import (
	"fmt"
	"math"
)

// instrument.go - описания инструментов, потребляемые ядром
//
// Ядро не интерпретирует метаданные площадок: ему нужны только
// точности, инкременты, лимиты и комиссии. Четыре вида инструментов
// реализуют общий интерфейс Instrument.

// Instrument - общая поверхность всех видов инструментов
type Instrument interface {
	ID() InstrumentID
	RawSymbol() Symbol
	BaseCurrency() Currency
	QuoteCurrency() Currency
	SettlementCurrency() Currency
	IsInverse() bool
	PricePrecision() uint8
	SizePrecision() uint8
	PriceIncrement() Price
	SizeIncrement() Quantity
	Multiplier() Quantity
	LotSize() Quantity
	MakerFee() float64
	TakerFee() float64
}

// InstrumentBase - общие поля всех инструментов
type InstrumentBase struct {
	InstrumentID   InstrumentID
	Symbol         Symbol
	Base           Currency
	Quote          Currency
	Settlement     Currency
	Inverse        bool
	PriceAccuracy  uint8 // знаков после запятой в цене
	SizeAccuracy   uint8 // знаков после запятой в размере
	PriceStep      Price
	SizeStep       Quantity
	ContractSize   Quantity // множитель контракта
	Lot            Quantity
	MinQuantity    Quantity
	MaxQuantity    Quantity
	MaxPrice       Price // нулевая цена = не задано
	MarginInit     float64
	MarginMaint    float64
	FeeMaker       float64
	FeeTaker       float64
	TsEvent        UnixNanos
	TsInit         UnixNanos
}

// Validate проверяет согласованность базовых полей
func (b *InstrumentBase) Validate() error {
	if b.InstrumentID.IsZero() {
		return fmt.Errorf("instrument id is required")
	}
	if b.PriceAccuracy > FixedPrecision || b.SizeAccuracy > FixedPrecision {
		return ErrPrecisionOutOfRange
	}
	if !b.PriceStep.IsPositive() {
		return fmt.Errorf("price increment must be positive, got %s", b.PriceStep)
	}
	if !b.SizeStep.IsPositive() {
		return fmt.Errorf("size increment must be positive, got %s", b.SizeStep)
	}
	return nil
}

// normalize приводит поля к каноническому виду
// Отрицательный множитель трактуется по модулю: знак оставлен адаптерам.
func (b *InstrumentBase) normalize() {
	if b.ContractSize.IsZero() {
		b.ContractSize = MustQuantity(1, 0)
	}
	if b.Lot.IsZero() {
		b.Lot = MustQuantity(1, 0)
	}
	b.MarginInit = math.Abs(b.MarginInit)
	b.MarginMaint = math.Abs(b.MarginMaint)
}

func (b *InstrumentBase) ID() InstrumentID              { return b.InstrumentID }
func (b *InstrumentBase) RawSymbol() Symbol             { return b.Symbol }
func (b *InstrumentBase) BaseCurrency() Currency        { return b.Base }
func (b *InstrumentBase) QuoteCurrency() Currency       { return b.Quote }
func (b *InstrumentBase) SettlementCurrency() Currency  { return b.Settlement }
func (b *InstrumentBase) IsInverse() bool               { return b.Inverse }
func (b *InstrumentBase) PricePrecision() uint8         { return b.PriceAccuracy }
func (b *InstrumentBase) SizePrecision() uint8          { return b.SizeAccuracy }
func (b *InstrumentBase) PriceIncrement() Price         { return b.PriceStep }
func (b *InstrumentBase) SizeIncrement() Quantity       { return b.SizeStep }
func (b *InstrumentBase) Multiplier() Quantity          { return b.ContractSize }
func (b *InstrumentBase) LotSize() Quantity             { return b.Lot }
func (b *InstrumentBase) MakerFee() float64             { return b.FeeMaker }
func (b *InstrumentBase) TakerFee() float64             { return b.FeeTaker }

// SpotInstrument - спотовая пара
type SpotInstrument struct {
	InstrumentBase
}

// NewSpotInstrument создаёт спотовый инструмент
func NewSpotInstrument(base InstrumentBase) (*SpotInstrument, error) {
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("spot instrument: %w", err)
	}
	base.normalize()
	return &SpotInstrument{InstrumentBase: base}, nil
}

// PerpetualInstrument - бессрочный своп
type PerpetualInstrument struct {
	InstrumentBase
}

// NewPerpetualInstrument создаёт бессрочный своп
func NewPerpetualInstrument(base InstrumentBase) (*PerpetualInstrument, error) {
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("perpetual instrument: %w", err)
	}
	base.normalize()
	return &PerpetualInstrument{InstrumentBase: base}, nil
}

// FutureInstrument - фьючерс с датами активации и экспирации
type FutureInstrument struct {
	InstrumentBase
	Activation UnixNanos
	Expiration UnixNanos
}

// NewFutureInstrument создаёт фьючерс
func NewFutureInstrument(base InstrumentBase, activation, expiration UnixNanos) (*FutureInstrument, error) {
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("future instrument: %w", err)
	}
	if expiration <= activation {
		return nil, fmt.Errorf("future instrument: expiration %d must be after activation %d", expiration, activation)
	}
	base.normalize()
	return &FutureInstrument{InstrumentBase: base, Activation: activation, Expiration: expiration}, nil
}

// OptionInstrument - опцион со страйком и видом
type OptionInstrument struct {
	InstrumentBase
	Activation UnixNanos
	Expiration UnixNanos
	Kind       OptionKind
	Strike     Price
}

// NewOptionInstrument создаёт опцион
func NewOptionInstrument(base InstrumentBase, activation, expiration UnixNanos, kind OptionKind, strike Price) (*OptionInstrument, error) {
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("option instrument: %w", err)
	}
	if kind == NoOptionKind {
		return nil, fmt.Errorf("option instrument: kind is required")
	}
	if !strike.IsPositive() {
		return nil, fmt.Errorf("option instrument: strike must be positive, got %s", strike)
	}
	base.normalize()
	return &OptionInstrument{
		InstrumentBase: base,
		Activation:     activation,
		Expiration:     expiration,
		Kind:           kind,
		Strike:         strike,
	}, nil
}
