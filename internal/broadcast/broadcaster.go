package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tradecore/internal/models"
	"tradecore/pkg/utils"
)

// broadcaster.go - избыточная рассылка запросов отмены
//
// Каждая отмена уходит параллельно через все здоровые транспорты
// пула. Побеждает первый успех, остальные попытки обрываются.
// Отказы площадки со смыслом "уже отменён" считаются успехом
// с пустым результатом.

// ErrNoHealthyTransports - в пуле нет живых транспортов
var ErrNoHealthyTransports = errors.New("No healthy transport clients available")

// Stats - снимок счётчиков broadcaster'а
//
// TotalCancels == SuccessfulCancels + IdempotentSuccesses + FailedCancels
type Stats struct {
	TotalCancels        int64
	SuccessfulCancels   int64
	FailedCancels       int64
	ExpectedRejects     int64
	IdempotentSuccesses int64
	HealthyClients      int
	TotalClients        int
}

// Broadcaster - пул транспортов с мониторингом здоровья
type Broadcaster struct {
	cfg Config

	mu         sync.RWMutex
	transports []*Transport

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	totalCancels        atomic.Int64
	successfulCancels   atomic.Int64
	failedCancels       atomic.Int64
	expectedRejects     atomic.Int64
	idempotentSuccesses atomic.Int64
}

// ExecutorFactory создаёт executor для одного транспорта пула
type ExecutorFactory func(cfg Config) (CancelExecutor, error)

// NewBroadcaster создаёт пул из cfg.PoolSize транспортов
func NewBroadcaster(cfg Config, factory ExecutorFactory) (*Broadcaster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid broadcaster config: %w", err)
	}

	transports := make([]*Transport, 0, cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		executor, err := factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("create executor %d: %w", i, err)
		}
		transports = append(transports, newTransport(executor, cfg))
	}

	return &Broadcaster{
		cfg:        cfg,
		transports: transports,
	}, nil
}

// ============================================================
// Жизненный цикл
// ============================================================

// Start выполняет начальный health sweep и запускает периодический
// мониторинг. Повторный вызов на работающем broadcaster'е - no-op.
func (b *Broadcaster) Start(ctx context.Context) {
	if !b.running.CompareAndSwap(false, true) {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})

	b.healthSweep(loopCtx)
	go b.healthLoop(loopCtx)

	utils.Info("cancel broadcaster started",
		zap.Int("pool_size", len(b.transports)),
		zap.Duration("health_check_interval", b.cfg.HealthCheckInterval))
}

// Stop останавливает мониторинг. Идемпотентен.
func (b *Broadcaster) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}
	b.cancel()
	<-b.done
	utils.Info("cancel broadcaster stopped")
}

// IsRunning сообщает, запущен ли мониторинг
func (b *Broadcaster) IsRunning() bool {
	return b.running.Load()
}

// healthLoop периодически опрашивает транспорты.
// time.Ticker сбрасывает пропущенные тики сам.
func (b *Broadcaster) healthLoop(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.healthSweep(ctx)
		}
	}
}

// healthSweep параллельно проверяет все транспорты пула
func (b *Broadcaster) healthSweep(ctx context.Context) {
	transports := b.snapshot()

	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t *Transport) {
			defer wg.Done()
			if !t.checkHealth(ctx, b.cfg.HealthCheckTimeout) {
				utils.Warn("transport failed health check", zap.String("client_id", t.ClientID()))
			}
		}(t)
	}
	wg.Wait()

	healthy := 0
	for _, t := range transports {
		if t.IsHealthy() {
			healthy++
		}
	}
	SetClientCounts(healthy, len(transports))
}

// snapshot копирует срез транспортов; пул не блокируется на время I/O
func (b *Broadcaster) snapshot() []*Transport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Transport, len(b.transports))
	copy(out, b.transports)
	return out
}

func (b *Broadcaster) healthyTransports() []*Transport {
	all := b.snapshot()
	out := make([]*Transport, 0, len(all))
	for _, t := range all {
		if t.IsHealthy() {
			out = append(out, t)
		}
	}
	return out
}

// AddInstrument регистрирует инструмент у всех транспортов пула
func (b *Broadcaster) AddInstrument(instrument models.Instrument) error {
	for _, t := range b.snapshot() {
		if err := t.executor.AddInstrument(instrument); err != nil {
			return fmt.Errorf("add instrument to transport %s: %w", t.ClientID(), err)
		}
	}
	return nil
}

// Stats возвращает снимок счётчиков
func (b *Broadcaster) Stats() Stats {
	transports := b.snapshot()
	healthy := 0
	for _, t := range transports {
		if t.IsHealthy() {
			healthy++
		}
	}
	return Stats{
		TotalCancels:        b.totalCancels.Load(),
		SuccessfulCancels:   b.successfulCancels.Load(),
		FailedCancels:       b.failedCancels.Load(),
		ExpectedRejects:     b.expectedRejects.Load(),
		IdempotentSuccesses: b.idempotentSuccesses.Load(),
		HealthyClients:      healthy,
		TotalClients:        len(transports),
	}
}

// ============================================================
// Рассылка
// ============================================================

// CancelOrder отменяет один ордер через все здоровые транспорты.
// Идемпотентный успех возвращает (nil, nil).
func (b *Broadcaster) CancelOrder(ctx context.Context, instrumentID models.InstrumentID,
	clientOrderID models.ClientOrderID, venueOrderID models.VenueOrderID) (*models.OrderStatusReport, error) {
	return broadcastCall(ctx, b, "cancel order", nil,
		func(ctx context.Context, t *Transport) (*models.OrderStatusReport, error) {
			return t.cancelOrder(ctx, instrumentID, clientOrderID, venueOrderID)
		})
}

// CancelOrders отменяет пакет ордеров через все здоровые транспорты.
// Идемпотентный успех возвращает пустой список.
func (b *Broadcaster) CancelOrders(ctx context.Context, instrumentID models.InstrumentID,
	clientOrderIDs []models.ClientOrderID, venueOrderIDs []models.VenueOrderID) ([]models.OrderStatusReport, error) {
	return broadcastCall(ctx, b, "batch cancel", []models.OrderStatusReport{},
		func(ctx context.Context, t *Transport) ([]models.OrderStatusReport, error) {
			return t.cancelOrders(ctx, instrumentID, clientOrderIDs, venueOrderIDs)
		})
}

// CancelAllOrders отменяет все ордера инструмента.
// NoOrderSide = обе стороны. Идемпотентный успех - пустой список.
func (b *Broadcaster) CancelAllOrders(ctx context.Context, instrumentID models.InstrumentID,
	side models.OrderSide) ([]models.OrderStatusReport, error) {
	return broadcastCall(ctx, b, "cancel all", []models.OrderStatusReport{},
		func(ctx context.Context, t *Transport) ([]models.OrderStatusReport, error) {
			return t.cancelAllOrders(ctx, instrumentID, side)
		})
}

type attemptResult[T any] struct {
	value    T
	err      error
	clientID string
}

// broadcastCall - общий протокол рассылки
//
// Ровно один из счётчиков успеха/идемпотентности/провала
// инкрементируется на вызов.
func broadcastCall[T any](ctx context.Context, b *Broadcaster, operation string,
	empty T, attempt func(context.Context, *Transport) (T, error)) (T, error) {
	b.totalCancels.Add(1)
	RecordBroadcast(operation)

	var zero T
	healthy := b.healthyTransports()
	if len(healthy) == 0 {
		b.failedCancels.Add(1)
		RecordOutcome(operation, "failed")
		return zero, ErrNoHealthyTransports
	}

	attemptCtx, abort := context.WithCancel(ctx)
	defer abort()

	results := make(chan attemptResult[T], len(healthy))
	for _, t := range healthy {
		go func(t *Transport) {
			value, err := attempt(attemptCtx, t)
			results <- attemptResult[T]{value: value, err: err, clientID: t.ClientID()}
		}(t)
	}

	var attemptErrs []error
	for i := 0; i < len(healthy); i++ {
		var res attemptResult[T]
		select {
		case res = <-results:
		case <-ctx.Done():
			b.failedCancels.Add(1)
			RecordOutcome(operation, "failed")
			return zero, fmt.Errorf("%s canceled: %w", operation, ctx.Err())
		}

		if res.err == nil {
			// Первый успех: обрываем остальные попытки
			b.successfulCancels.Add(1)
			RecordOutcome(operation, "success")
			return res.value, nil
		}

		if matchesAny(res.err, b.cfg.IdempotentSuccessPatterns) {
			// Нужное состояние уже достигнуто
			b.idempotentSuccesses.Add(1)
			RecordOutcome(operation, "idempotent")
			utils.Debug("idempotent cancel success",
				zap.String("operation", operation),
				zap.String("client_id", res.clientID),
				zap.String("reason", res.err.Error()))
			return empty, nil
		}

		if matchesAny(res.err, b.cfg.ExpectedRejectPatterns) {
			b.expectedRejects.Add(1)
			RecordExpectedReject(operation)
		}
		attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", res.clientID, res.err))
	}

	b.failedCancels.Add(1)
	RecordOutcome(operation, "failed")
	return zero, fmt.Errorf("All %s requests failed: %w", operation, errors.Join(attemptErrs...))
}

func matchesAny(err error, patterns []string) bool {
	msg := err.Error()
	for _, pattern := range patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
