package models

import (
	"fmt"
	"math"
	"strconv"
)

// money.go - денежная сумма в валюте
//
// Используется для комиссий и нотионалов. Сырое значение
// масштабировано на FixedScalar, как у Price.

// Currency - код валюты (ISO или тикер криптовалюты)
type Currency string

func (c Currency) String() string { return string(c) }

// Money - денежная сумма в конкретной валюте
type Money struct {
	Raw      int64
	Currency Currency
}

// NewMoney создаёт сумму из float64
func NewMoney(value float64, currency Currency) (Money, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Money{}, fmt.Errorf("invalid money value: %v", value)
	}
	if currency == "" {
		return Money{}, fmt.Errorf("currency cannot be empty")
	}
	return Money{Raw: int64(math.Round(value * FixedScalar)), Currency: currency}, nil
}

// MustMoney - как NewMoney, но panic при ошибке (для тестов)
func MustMoney(value float64, currency Currency) Money {
	m, err := NewMoney(value, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Float64 возвращает приближённое значение суммы
func (m Money) Float64() float64 {
	return float64(m.Raw) / FixedScalar
}

// Add суммирует в одной валюте; разные валюты - ошибка
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Raw: m.Raw + other.Raw, Currency: m.Currency}, nil
}

// IsZero сообщает, равна ли сумма нулю
func (m Money) IsZero() bool {
	return m.Raw == 0
}

func (m Money) String() string {
	return strconv.FormatFloat(m.Float64(), 'f', -1, 64) + " " + string(m.Currency)
}
