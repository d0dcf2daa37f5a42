package models

import (
	"strconv"
	"time"
)

// timestamp.go - метка времени в наносекундах UNIX
//
// Беззнаковые 64-битные наносекунды от эпохи.
// Монотонность в пределах одного источника обеспечивается
// отправителем событий, не самим типом.

// UnixNanos - наносекунды UNIX
type UnixNanos uint64

// NanosNow возвращает текущее время в наносекундах
func NanosNow() UnixNanos {
	return UnixNanos(time.Now().UnixNano())
}

// NanosFromTime конвертирует time.Time в UnixNanos
func NanosFromTime(t time.Time) UnixNanos {
	return UnixNanos(t.UnixNano())
}

// Time конвертирует в time.Time
func (n UnixNanos) Time() time.Time {
	return time.Unix(0, int64(n)).UTC()
}

// Add прибавляет длительность
func (n UnixNanos) Add(d time.Duration) UnixNanos {
	return n + UnixNanos(d.Nanoseconds())
}

// String возвращает десятичное представление
func (n UnixNanos) String() string {
	return strconv.FormatUint(uint64(n), 10)
}
