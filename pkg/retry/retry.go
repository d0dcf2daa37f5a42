package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config конфигурация для retry логики
//
// Экспоненциальный backoff с аддитивным jitter:
// delay = min(MaxDelay, InitialDelay * Multiplier^n) + U(0, Jitter)
//
// Jitter добавляет случайность чтобы избежать "thundering herd"
// когда много клиентов retry'ят одновременно
type Config struct {
	// MaxRetries - количество повторов после первой попытки
	// 0 = ровно одна попытка без повторов
	MaxRetries int

	// InitialDelay - начальная задержка между попытками
	// По умолчанию: 100ms
	InitialDelay time.Duration

	// MaxDelay - максимальная задержка между попытками
	// По умолчанию: 30s
	MaxDelay time.Duration

	// Multiplier - множитель для экспоненциального роста (>= 1.0)
	// По умолчанию: 2.0 (удвоение после каждой попытки)
	Multiplier float64

	// Jitter - верхняя граница равномерной случайной добавки
	// 0 = без jitter
	Jitter time.Duration

	// OperationTimeout - таймаут одной попытки
	// 0 = без таймаута; срабатывание проходит через RetryIf
	// как обычная ошибка
	OperationTimeout time.Duration

	// ImmediateFirst - первый повтор без задержки
	ImmediateFirst bool

	// MaxElapsed - бюджет суммарного времени всех попыток
	// 0 = без бюджета
	MaxElapsed time.Duration

	// RetryIf - функция для определения нужно ли retry'ить ошибку
	// По умолчанию: retry все ошибки
	RetryIf func(error) bool

	// OnRetry - callback вызываемый перед каждым retry
	// Полезно для логирования
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig возвращает конфигурацию по умолчанию
//
// Подходит для большинства запросов:
// - 1 попытка + 3 повтора
// - Задержки: 100ms, 200ms, 400ms (+ jitter)
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       50 * time.Millisecond,
	}
}

// HTTPConfig для REST запросов к площадке
//
// - 1 попытка + 3 повтора, задержки 1s, 2s, 4s (+ до 1s jitter)
// - Таймаут попытки 60s, бюджет вызова 180s
func HTTPConfig() Config {
	return Config{
		MaxRetries:       3,
		InitialDelay:     1 * time.Second,
		MaxDelay:         10 * time.Second,
		Multiplier:       2.0,
		Jitter:           1 * time.Second,
		OperationTimeout: 60 * time.Second,
		MaxElapsed:       180 * time.Second,
	}
}

// WebSocketConfig для переподключений стримов
//
// Первый повтор немедленный: обрыв чаще всего мгновенный глюк сети
func WebSocketConfig() Config {
	return Config{
		MaxRetries:     5,
		InitialDelay:   1 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		Jitter:         1 * time.Second,
		ImmediateFirst: true,
		MaxElapsed:     120 * time.Second,
	}
}

// AggressiveConfig для критичных операций (например, отмена ордеров)
//
// Больше попыток, быстрее retry
func AggressiveConfig() Config {
	return Config{
		MaxRetries:   5,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       25 * time.Millisecond,
	}
}

// validate проверяет и устанавливает значения по умолчанию
func (c *Config) validate() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier < 1.0 {
		c.Multiplier = 2.0
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
}

// ============================================================
// Ошибки
// ============================================================

// CanceledError - вызов прерван контекстом
type CanceledError struct {
	Cause error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("operation canceled: %v", e.Cause)
}

func (e *CanceledError) Unwrap() error {
	return e.Cause
}

// BudgetExceededError - исчерпан бюджет суммарного времени вызова
type BudgetExceededError struct {
	Elapsed time.Duration
	Budget  time.Duration
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("Budget exceeded after %dms (budget %dms)",
		e.Elapsed.Milliseconds(), e.Budget.Milliseconds())
}

// TimeoutError - истёк таймаут одной попытки
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Timed out after %dms", e.Timeout.Milliseconds())
}

// ============================================================
// Backoff
// ============================================================

// Backoff - итератор задержек между попытками
//
// Next выдаёт min(MaxDelay, InitialDelay * Multiplier^n) + U(0, Jitter);
// при ImmediateFirst первое значение - ноль. Достигнув MaxDelay,
// последующие значения остаются на MaxDelay + jitter.
type Backoff struct {
	initial        time.Duration
	max            time.Duration
	jitter         time.Duration
	multiplier     float64
	immediateFirst bool

	n       int
	yielded bool
}

// NewBackoff создаёт итератор задержек из конфигурации
func NewBackoff(cfg Config) *Backoff {
	cfg.validate()
	return &Backoff{
		initial:        cfg.InitialDelay,
		max:            cfg.MaxDelay,
		jitter:         cfg.Jitter,
		multiplier:     cfg.Multiplier,
		immediateFirst: cfg.ImmediateFirst,
	}
}

// Next возвращает следующую задержку
func (b *Backoff) Next() time.Duration {
	if b.immediateFirst && !b.yielded {
		b.yielded = true
		return 0
	}
	b.yielded = true

	delay := float64(b.initial) * math.Pow(b.multiplier, float64(b.n))
	b.n++
	if delay > float64(b.max) {
		delay = float64(b.max)
	}

	d := time.Duration(delay)
	if b.jitter > 0 {
		d += time.Duration(rand.Int63n(int64(b.jitter) + 1))
	}
	return d
}

// Reset возвращает итератор к началу последовательности
func (b *Backoff) Reset() {
	b.n = 0
	b.yielded = false
}

// ============================================================
// Выполнение
// ============================================================

// Do выполняет операцию с повторными попытками
//
// Отмена контекста проверяется перед каждой попыткой, во время
// самой попытки и во время межпопыточного сна.
//
// Пример:
//
//	err := retry.Do(ctx, func() error {
//	    return client.CancelOrder(...)
//	}, retry.HTTPConfig())
func Do(ctx context.Context, operation func() error, cfg Config) error {
	_, err := DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg)
	return err
}

// DoWithResult выполняет операцию с результатом и retry
//
// Полезно когда операция возвращает значение:
//
//	result, err := retry.DoWithResult(ctx, func() (*Order, error) {
//	    return client.PlaceOrder(...)
//	}, retry.DefaultConfig())
func DoWithResult[T any](ctx context.Context, operation func() (T, error), cfg Config) (T, error) {
	cfg.validate()

	var zero T
	start := time.Now()
	backoff := NewBackoff(cfg)

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return zero, &CanceledError{Cause: ctx.Err()}
		default:
		}

		if cfg.MaxElapsed > 0 {
			if elapsed := time.Since(start); elapsed >= cfg.MaxElapsed {
				return zero, &BudgetExceededError{Elapsed: elapsed, Budget: cfg.MaxElapsed}
			}
		}

		result, err := runAttempt(ctx, operation, cfg.OperationTimeout)
		if err == nil {
			return result, nil
		}
		var canceled *CanceledError
		if errors.As(err, &canceled) {
			return zero, err
		}

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return zero, err
		}
		if attempt >= cfg.MaxRetries {
			return zero, err
		}

		delay := backoff.Next()
		if cfg.MaxElapsed > 0 {
			remaining := cfg.MaxElapsed - time.Since(start)
			if delay > remaining {
				delay = remaining
			}
			if delay < 0 {
				delay = 0
			}
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, &CanceledError{Cause: ctx.Err()}
			}
		}
	}
}

// runAttempt выполняет одну попытку с селектом на отмену и таймаут.
// Горутина попытки доживает свой вызов даже после проигрыша селекта.
func runAttempt[T any](ctx context.Context, operation func() (T, error), timeout time.Duration) (T, error) {
	type outcome struct {
		result T
		err    error
	}
	var zero T

	done := make(chan outcome, 1)
	go func() {
		result, err := operation()
		done <- outcome{result: result, err: err}
	}()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case out := <-done:
		return out.result, out.err
	case <-timeoutCh:
		return zero, &TimeoutError{Timeout: timeout}
	case <-ctx.Done():
		return zero, &CanceledError{Cause: ctx.Err()}
	}
}

// ============================================================
// Predefined RetryIf functions
// ============================================================

// RetryableError интерфейс для ошибок которые можно retry'ить
type RetryableError interface {
	error
	Retryable() bool
}

// IsRetryable проверяет можно ли retry'ить ошибку
//
// Возвращает true если:
// - Ошибка реализует RetryableError и Retryable() == true
// - Ошибка временная (Temporary() == true)
// - Ошибка содержит wrapped RetryableError
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	type temporary interface {
		Temporary() bool
	}
	var temp temporary
	if errors.As(err, &temp) {
		return temp.Temporary()
	}

	// По умолчанию - retry'им
	return true
}

// RetryIfTemporary retry'ит только временные ошибки
func RetryIfTemporary(err error) bool {
	type temporary interface {
		Temporary() bool
	}
	var temp temporary
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return false
}

// RetryIfNotContext не retry'ит ошибки контекста (cancel, timeout)
func RetryIfNotContext(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// ============================================================
// Wrapper errors
// ============================================================

// PermanentError оборачивает ошибку которую не нужно retry'ить
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func (e *PermanentError) Retryable() bool {
	return false
}

// Permanent оборачивает ошибку в PermanentError
//
// Пример:
//
//	if validationError {
//	    return retry.Permanent(errors.New("invalid input"))
//	}
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// TemporaryError оборачивает ошибку которую нужно retry'ить
type TemporaryError struct {
	Err error
}

func (e *TemporaryError) Error() string {
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error {
	return e.Err
}

func (e *TemporaryError) Retryable() bool {
	return true
}

func (e *TemporaryError) Temporary() bool {
	return true
}

// Temporary оборачивает ошибку в TemporaryError
//
// Пример:
//
//	if networkError {
//	    return retry.Temporary(err)
//	}
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &TemporaryError{Err: err}
}

// ============================================================
// Retryer - объект для многократного использования
// ============================================================

// Retryer предоставляет методы для retry с сохранённой конфигурацией
//
// Полезно когда нужно использовать одну конфигурацию много раз:
//
//	r := retry.NewRetryer(retry.HTTPConfig())
//	err := r.Do(ctx, operation1)
//	err = r.Do(ctx, operation2)
type Retryer struct {
	cfg Config
}

// NewRetryer создаёт новый Retryer с указанной конфигурацией
func NewRetryer(cfg Config) *Retryer {
	cfg.validate()
	return &Retryer{cfg: cfg}
}

// Do выполняет операцию с retry
func (r *Retryer) Do(ctx context.Context, operation func() error) error {
	return Do(ctx, operation, r.cfg)
}

// DoWithResult выполняет операцию с результатом и retry
func (r *Retryer) DoWithResult(ctx context.Context, operation func() (interface{}, error)) (interface{}, error) {
	return DoWithResult(ctx, operation, r.cfg)
}

// WithOnRetry возвращает копию Retryer с callback'ом
func (r *Retryer) WithOnRetry(onRetry func(attempt int, err error, delay time.Duration)) *Retryer {
	newCfg := r.cfg
	newCfg.OnRetry = onRetry
	return &Retryer{cfg: newCfg}
}

// WithRetryIf возвращает копию Retryer с функцией фильтрации ошибок
func (r *Retryer) WithRetryIf(retryIf func(error) bool) *Retryer {
	newCfg := r.cfg
	newCfg.RetryIf = retryIf
	return &Retryer{cfg: newCfg}
}

// ============================================================
// Простые функции-хелперы
// ============================================================

// Once выполняет операцию один раз (без retry)
// Полезно для унификации API
func Once(ctx context.Context, operation func() error) error {
	select {
	case <-ctx.Done():
		return &CanceledError{Cause: ctx.Err()}
	default:
	}
	return operation()
}

// Retry выполняет операцию с дефолтной конфигурацией
//
// Сокращённая форма:
//
//	retry.Retry(ctx, operation) == retry.Do(ctx, operation, retry.DefaultConfig())
func Retry(ctx context.Context, operation func() error) error {
	return Do(ctx, operation, DefaultConfig())
}

// RetryN выполняет операцию с указанным количеством повторов
//
// Сокращённая форма для простых случаев:
//
//	retry.RetryN(ctx, operation, 3) // 1 попытка + 3 повтора
func RetryN(ctx context.Context, operation func() error, maxRetries int) error {
	cfg := DefaultConfig()
	cfg.MaxRetries = maxRetries
	return Do(ctx, operation, cfg)
}
