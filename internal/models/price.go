package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// price.go - цена с фиксированной точностью
//
// Назначение:
// Детерминированное представление цены без ошибок округления float64.
// Сырое значение хранится как int64, масштабированное на FixedScalar,
// precision задаёт количество знаков после запятой для отображения
// и инкремента инструмента.

const (
	// FixedPrecision - максимальная точность (знаков после запятой)
	FixedPrecision = 9

	// FixedScalar - масштаб сырого значения (10^FixedPrecision)
	FixedScalar = 1_000_000_000

	// PriceMax - максимальная представимая цена
	PriceMax = 9_223_372_036.0

	// PriceMin - минимальная представимая цена
	PriceMin = -9_223_372_036.0
)

// Ошибки числовых примитивов
var (
	ErrPrecisionOutOfRange = fmt.Errorf("precision exceeds maximum of %d", FixedPrecision)
)

// Price - цена с фиксированной точностью
//
// Raw масштабирован на FixedScalar независимо от precision,
// поэтому цены с разной точностью сравнимы напрямую по Raw.
type Price struct {
	Raw       int64
	Precision uint8
}

// NewPrice создаёт цену из float64 с указанной точностью
func NewPrice(value float64, precision uint8) (Price, error) {
	if precision > FixedPrecision {
		return Price{}, ErrPrecisionOutOfRange
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Price{}, fmt.Errorf("invalid price value: %v", value)
	}
	if value > PriceMax || value < PriceMin {
		return Price{}, fmt.Errorf("price %v out of range [%v, %v]", value, PriceMin, PriceMax)
	}
	// Округляем до заданной точности перед масштабированием
	pow := math.Pow10(int(precision))
	rounded := math.Round(value*pow) / pow
	return Price{
		Raw:       int64(math.Round(rounded * FixedScalar)),
		Precision: precision,
	}, nil
}

// MustPrice - как NewPrice, но panic при ошибке (для констант и тестов)
func MustPrice(value float64, precision uint8) Price {
	p, err := NewPrice(value, precision)
	if err != nil {
		panic(err)
	}
	return p
}

// PriceFromRaw создаёт цену из сырого значения
func PriceFromRaw(raw int64, precision uint8) Price {
	return Price{Raw: raw, Precision: precision}
}

// PriceFromString парсит строку вида "123.45"
func PriceFromString(s string) (Price, error) {
	s = strings.TrimSpace(s)
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	precision := uint8(0)
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		precision = uint8(len(s) - idx - 1)
		if precision > FixedPrecision {
			precision = FixedPrecision
		}
	}
	return NewPrice(value, precision)
}

// Float64 возвращает приближённое значение цены
func (p Price) Float64() float64 {
	return float64(p.Raw) / FixedScalar
}

// IsZero сообщает, равна ли цена нулю
func (p Price) IsZero() bool {
	return p.Raw == 0
}

// IsPositive сообщает, строго ли положительна цена
func (p Price) IsPositive() bool {
	return p.Raw > 0
}

// Cmp сравнивает цены: -1 если p < other, 0 если равны, +1 если p > other
func (p Price) Cmp(other Price) int {
	switch {
	case p.Raw < other.Raw:
		return -1
	case p.Raw > other.Raw:
		return 1
	default:
		return 0
	}
}

// Add возвращает сумму цен; точность результата - максимальная из двух
func (p Price) Add(other Price) Price {
	return Price{Raw: p.Raw + other.Raw, Precision: maxPrecision(p.Precision, other.Precision)}
}

// Sub возвращает разность цен
func (p Price) Sub(other Price) Price {
	return Price{Raw: p.Raw - other.Raw, Precision: maxPrecision(p.Precision, other.Precision)}
}

// String форматирует цену с precision знаками после запятой
func (p Price) String() string {
	return strconv.FormatFloat(p.Float64(), 'f', int(p.Precision), 64)
}

// MarshalJSON сериализует цену как строку для сохранения точности
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func maxPrecision(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}
