// Package ratelimit содержит token bucket лимитер для REST-запросов
// к площадке. Каждый транспорт пула отмен держит собственный лимитер,
// чтобы суммарная частота пулов не превышала лимиты площадки.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - token bucket лимитер частоты запросов.
//
// Ведро наполняется с постоянной скоростью rate токенов в секунду
// до ёмкости burst; запрос потребляет один токен. Burst покрывает
// всплеск параллельных отмен, rate ограничивает устоявшийся поток.
// BitMEX: 120 запросов в минуту на ключ, burst 10.
type RateLimiter struct {
	mu         sync.Mutex
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter создаёт лимитер c полным ведром.
// Неположительные параметры заменяются консервативными значениями.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 2
	}
	if burst < rate {
		burst = rate
	}
	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// refill пополняет ведро по прошедшему времени. Вызывается под mu.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
}

// reserve списывает токен и возвращает задержку до его доступности.
// Нулевая задержка - токен был в ведре.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.rate * float64(time.Second))
}

// Wait блокирует до доступности токена или отмены контекста.
// Токен списывается сразу: отменённое ожидание токен не возвращает.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	delay := rl.reserve()
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Allow сообщает, доступен ли токен, и списывает его при наличии
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Tokens возвращает текущее количество токенов в ведре
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return rl.tokens
}

// Rate возвращает скорость пополнения (токенов в секунду)
func (rl *RateLimiter) Rate() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.rate
}

// Burst возвращает ёмкость ведра
func (rl *RateLimiter) Burst() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.burst
}

// SetRate меняет скорость пополнения на лету
// (площадка может вернуть обновлённый лимит в заголовках)
func (rl *RateLimiter) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	rl.rate = rate
	if rl.burst < rate {
		rl.burst = rate
	}
}
