package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// quantity.go - количество (размер) с фиксированной точностью
//
// Беззнаковое: отрицательные размеры не существуют.
// Нулевое количество легально и используется как сентинел "нет размера".

// QuantityMax - максимальное представимое количество
const QuantityMax = 18_446_744_073.0

// Quantity - количество с фиксированной точностью
type Quantity struct {
	Raw       uint64
	Precision uint8
}

// NewQuantity создаёт количество из float64 с указанной точностью
func NewQuantity(value float64, precision uint8) (Quantity, error) {
	if precision > FixedPrecision {
		return Quantity{}, ErrPrecisionOutOfRange
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Quantity{}, fmt.Errorf("invalid quantity value: %v", value)
	}
	if value < 0 {
		return Quantity{}, fmt.Errorf("quantity cannot be negative, got %v", value)
	}
	if value > QuantityMax {
		return Quantity{}, fmt.Errorf("quantity %v exceeds maximum %v", value, QuantityMax)
	}
	pow := math.Pow10(int(precision))
	rounded := math.Round(value*pow) / pow
	return Quantity{
		Raw:       uint64(math.Round(rounded * FixedScalar)),
		Precision: precision,
	}, nil
}

// MustQuantity - как NewQuantity, но panic при ошибке (для тестов)
func MustQuantity(value float64, precision uint8) Quantity {
	q, err := NewQuantity(value, precision)
	if err != nil {
		panic(err)
	}
	return q
}

// QuantityFromRaw создаёт количество из сырого значения
func QuantityFromRaw(raw uint64, precision uint8) Quantity {
	return Quantity{Raw: raw, Precision: precision}
}

// QuantityFromString парсит строку вида "0.001"
func QuantityFromString(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	precision := uint8(0)
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		precision = uint8(len(s) - idx - 1)
		if precision > FixedPrecision {
			precision = FixedPrecision
		}
	}
	return NewQuantity(value, precision)
}

// ZeroQuantity возвращает нулевое количество с указанной точностью
func ZeroQuantity(precision uint8) Quantity {
	return Quantity{Raw: 0, Precision: precision}
}

// Float64 возвращает приближённое значение количества
func (q Quantity) Float64() float64 {
	return float64(q.Raw) / FixedScalar
}

// IsZero сообщает, равно ли количество нулю
func (q Quantity) IsZero() bool {
	return q.Raw == 0
}

// IsPositive сообщает, строго ли положительно количество
func (q Quantity) IsPositive() bool {
	return q.Raw > 0
}

// Cmp сравнивает количества
func (q Quantity) Cmp(other Quantity) int {
	switch {
	case q.Raw < other.Raw:
		return -1
	case q.Raw > other.Raw:
		return 1
	default:
		return 0
	}
}

// Add возвращает сумму количеств
func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{Raw: q.Raw + other.Raw, Precision: maxPrecision(q.Precision, other.Precision)}
}

// Sub возвращает разность количеств с насыщением в ноль
func (q Quantity) Sub(other Quantity) Quantity {
	raw := uint64(0)
	if q.Raw > other.Raw {
		raw = q.Raw - other.Raw
	}
	return Quantity{Raw: raw, Precision: maxPrecision(q.Precision, other.Precision)}
}

// Min возвращает меньшее из двух количеств
func (q Quantity) Min(other Quantity) Quantity {
	if q.Raw <= other.Raw {
		return q
	}
	return other
}

// String форматирует количество с precision знаками после запятой
func (q Quantity) String() string {
	return strconv.FormatFloat(q.Float64(), 'f', int(q.Precision), 64)
}

// MarshalJSON сериализует количество как строку
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.String() + `"`), nil
}
