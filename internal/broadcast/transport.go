package broadcast

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tradecore/internal/models"
	"tradecore/pkg/ratelimit"
)

// Transport - один независимый канал отмены в пуле
//
// Счётчики и флаг здоровья атомарные: health-sweep и broadcast'ы
// работают с транспортом конкурентно.
type Transport struct {
	clientID string
	executor CancelExecutor
	limiter  *ratelimit.RateLimiter

	healthy     atomic.Bool
	cancelCount atomic.Int64
	errorCount  atomic.Int64
}

func newTransport(executor CancelExecutor, cfg Config) *Transport {
	t := &Transport{
		clientID: uuid.NewString(),
		executor: executor,
		limiter:  ratelimit.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
	// До первого health sweep транспорт считается живым
	t.healthy.Store(true)
	return t
}

// ClientID возвращает идентификатор транспорта
func (t *Transport) ClientID() string {
	return t.clientID
}

// IsHealthy сообщает результат последней проверки здоровья
func (t *Transport) IsHealthy() bool {
	return t.healthy.Load()
}

// CancelCount возвращает число выполненных отмен
func (t *Transport) CancelCount() int64 {
	return t.cancelCount.Load()
}

// ErrorCount возвращает число ошибок транспорта
func (t *Transport) ErrorCount() int64 {
	return t.errorCount.Load()
}

// checkHealth пробует площадку с таймаутом и обновляет флаг
func (t *Transport) checkHealth(ctx context.Context, timeout time.Duration) bool {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := t.executor.HealthCheck(probeCtx)
	t.healthy.Store(err == nil)
	if err != nil {
		t.errorCount.Add(1)
	}
	return err == nil
}

// cancelOrder выполняет отмену одного ордера через этот транспорт
func (t *Transport) cancelOrder(ctx context.Context, instrumentID models.InstrumentID,
	clientOrderID models.ClientOrderID, venueOrderID models.VenueOrderID) (*models.OrderStatusReport, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		t.errorCount.Add(1)
		return nil, err
	}
	report, err := t.executor.CancelOrder(ctx, instrumentID, clientOrderID, venueOrderID)
	t.record(err)
	return report, err
}

// cancelOrders выполняет пакетную отмену через этот транспорт
func (t *Transport) cancelOrders(ctx context.Context, instrumentID models.InstrumentID,
	clientOrderIDs []models.ClientOrderID, venueOrderIDs []models.VenueOrderID) ([]models.OrderStatusReport, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		t.errorCount.Add(1)
		return nil, err
	}
	reports, err := t.executor.CancelOrders(ctx, instrumentID, clientOrderIDs, venueOrderIDs)
	t.record(err)
	return reports, err
}

// cancelAllOrders отменяет все ордера инструмента через этот транспорт
func (t *Transport) cancelAllOrders(ctx context.Context, instrumentID models.InstrumentID,
	side models.OrderSide) ([]models.OrderStatusReport, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		t.errorCount.Add(1)
		return nil, err
	}
	reports, err := t.executor.CancelAllOrders(ctx, instrumentID, side)
	t.record(err)
	return reports, err
}

func (t *Transport) record(err error) {
	if err == nil {
		t.cancelCount.Add(1)
	} else {
		t.errorCount.Add(1)
	}
}
