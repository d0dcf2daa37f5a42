package broadcast

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tradecore/internal/models"
)

// fakeExecutor - управляемый executor для тестов пула
type fakeExecutor struct {
	healthErr   error
	cancelFn    func(ctx context.Context) (*models.OrderStatusReport, error)
	batchFn     func(ctx context.Context) ([]models.OrderStatusReport, error)
	instruments int32
}

func (f *fakeExecutor) HealthCheck(ctx context.Context) error {
	return f.healthErr
}

func (f *fakeExecutor) CancelOrder(ctx context.Context, _ models.InstrumentID,
	_ models.ClientOrderID, _ models.VenueOrderID) (*models.OrderStatusReport, error) {
	return f.cancelFn(ctx)
}

func (f *fakeExecutor) CancelOrders(ctx context.Context, _ models.InstrumentID,
	_ []models.ClientOrderID, _ []models.VenueOrderID) ([]models.OrderStatusReport, error) {
	return f.batchFn(ctx)
}

func (f *fakeExecutor) CancelAllOrders(ctx context.Context, _ models.InstrumentID,
	_ models.OrderSide) ([]models.OrderStatusReport, error) {
	return f.batchFn(ctx)
}

func (f *fakeExecutor) AddInstrument(_ models.Instrument) error {
	atomic.AddInt32(&f.instruments, 1)
	return nil
}

func testConfig(poolSize int) Config {
	cfg := DefaultConfig()
	cfg.PoolSize = poolSize
	cfg.HealthCheckInterval = time.Hour // тики в тестах не нужны
	cfg.HealthCheckTimeout = time.Second
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 1000
	return cfg
}

// newPool собирает broadcaster, раздавая executors по порядку
func newPool(t *testing.T, executors ...*fakeExecutor) *Broadcaster {
	t.Helper()
	idx := 0
	b, err := NewBroadcaster(testConfig(len(executors)), func(Config) (CancelExecutor, error) {
		e := executors[idx]
		idx++
		return e, nil
	})
	if err != nil {
		t.Fatalf("NewBroadcaster: %v", err)
	}
	return b
}

func instrID() models.InstrumentID {
	return models.NewInstrumentID("ETHUSDT", "BINANCE")
}

func report(id string) *models.OrderStatusReport {
	return &models.OrderStatusReport{
		InstrumentID:  instrID(),
		ClientOrderID: models.ClientOrderID(id),
		OrderStatus:   models.StatusCanceled,
	}
}

func TestFirstSuccessWins(t *testing.T) {
	fast := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		return report("O-1"), nil
	}}
	var slowAborted atomic.Bool
	slow := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		select {
		case <-ctx.Done():
			slowAborted.Store(true)
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return report("O-1"), nil
		}
	}}

	b := newPool(t, fast, slow)
	got, err := b.CancelOrder(context.Background(), instrID(), "O-1", "")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got == nil || got.ClientOrderID != "O-1" {
		t.Fatalf("report = %+v, want O-1", got)
	}

	stats := b.Stats()
	if stats.SuccessfulCancels != 1 || stats.FailedCancels != 0 {
		t.Errorf("stats = %+v, want one successful cancel", stats)
	}

	// Обрыв соседей - fire-and-forget, даём ему время сработать
	deadline := time.Now().Add(time.Second)
	for !slowAborted.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !slowAborted.Load() {
		t.Error("sibling attempt must be aborted after the winner returns")
	}
}

func TestIdempotentCancelSuccess(t *testing.T) {
	// Первый транспорт отвечает "уже отменён", второй медленный
	already := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		return nil, errors.New("AlreadyCanceled")
	}}
	slow := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return report("O-2"), nil
		}
	}}

	b := newPool(t, already, slow)
	got, err := b.CancelOrder(context.Background(), instrID(), "O-2", "")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got != nil {
		t.Errorf("report = %+v, want nil (empty success)", got)
	}

	stats := b.Stats()
	if stats.IdempotentSuccesses != 1 {
		t.Errorf("idempotent successes = %d, want 1", stats.IdempotentSuccesses)
	}
	if stats.FailedCancels != 0 {
		t.Errorf("failed cancels = %d, want 0", stats.FailedCancels)
	}
}

func TestIdempotentBatchReturnsEmptyList(t *testing.T) {
	already := &fakeExecutor{batchFn: func(ctx context.Context) ([]models.OrderStatusReport, error) {
		return nil, errors.New("orderID not found")
	}}

	b := newPool(t, already)
	got, err := b.CancelOrders(context.Background(), instrID(), []models.ClientOrderID{"O-3"}, nil)
	if err != nil {
		t.Fatalf("CancelOrders: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("reports = %v, want empty non-nil list", got)
	}
}

func TestExpectedRejectContinuesToSibling(t *testing.T) {
	rejecting := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		return nil, errors.New("Order had execInst of ParticipateDoNotInitiate")
	}}
	succeeding := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		time.Sleep(20 * time.Millisecond)
		return report("O-4"), nil
	}}

	b := newPool(t, rejecting, succeeding)
	got, err := b.CancelOrder(context.Background(), instrID(), "O-4", "")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got == nil {
		t.Fatal("expected report from the surviving sibling")
	}

	stats := b.Stats()
	if stats.ExpectedRejects != 1 {
		t.Errorf("expected rejects = %d, want 1", stats.ExpectedRejects)
	}
	if stats.SuccessfulCancels != 1 || stats.FailedCancels != 0 {
		t.Errorf("stats = %+v, expected reject must not fail the broadcast", stats)
	}
}

func TestAllAttemptsFailed(t *testing.T) {
	failing1 := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		return nil, errors.New("connection refused")
	}}
	failing2 := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		return nil, errors.New("Order had execInst of ParticipateDoNotInitiate")
	}}

	b := newPool(t, failing1, failing2)
	_, err := b.CancelOrder(context.Background(), instrID(), "O-5", "")
	if err == nil {
		t.Fatal("expected error when every sibling fails")
	}
	if !strings.HasPrefix(err.Error(), "All cancel order requests failed") {
		t.Errorf("error = %q, want 'All cancel order requests failed' prefix", err.Error())
	}

	stats := b.Stats()
	if stats.FailedCancels != 1 {
		t.Errorf("failed cancels = %d, want 1", stats.FailedCancels)
	}
	if stats.ExpectedRejects != 1 {
		t.Errorf("expected rejects = %d, want 1", stats.ExpectedRejects)
	}
}

func TestNoHealthyTransports(t *testing.T) {
	var calls int32
	sick := &fakeExecutor{
		healthErr: errors.New("venue down"),
		cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
			atomic.AddInt32(&calls, 1)
			return report("O-6"), nil
		},
	}

	b := newPool(t, sick)
	b.Start(context.Background())
	defer b.Stop()

	_, err := b.CancelOrder(context.Background(), instrID(), "O-6", "")
	if !errors.Is(err, ErrNoHealthyTransports) {
		t.Fatalf("err = %v, want ErrNoHealthyTransports", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("broadcast with zero healthy transports must not spawn attempts")
	}

	stats := b.Stats()
	if stats.FailedCancels != 1 || stats.HealthyClients != 0 {
		t.Errorf("stats = %+v, want one failed cancel and zero healthy clients", stats)
	}
}

func TestStatsInvariant(t *testing.T) {
	flaky := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		return nil, errors.New("connection reset")
	}}
	b := newPool(t, flaky)

	ctx := context.Background()
	_, _ = b.CancelOrder(ctx, instrID(), "O-7", "")

	flaky.cancelFn = func(ctx context.Context) (*models.OrderStatusReport, error) {
		return report("O-7"), nil
	}
	_, _ = b.CancelOrder(ctx, instrID(), "O-7", "")

	flaky.cancelFn = func(ctx context.Context) (*models.OrderStatusReport, error) {
		return nil, errors.New("Unable to cancel order due to existing state")
	}
	_, _ = b.CancelOrder(ctx, instrID(), "O-7", "")

	stats := b.Stats()
	sum := stats.SuccessfulCancels + stats.IdempotentSuccesses + stats.FailedCancels
	if stats.TotalCancels != sum {
		t.Errorf("total = %d, sum of outcomes = %d, must be equal", stats.TotalCancels, sum)
	}
	if stats.TotalCancels != 3 {
		t.Errorf("total = %d, want 3", stats.TotalCancels)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	ok := &fakeExecutor{cancelFn: func(ctx context.Context) (*models.OrderStatusReport, error) {
		return report("O-8"), nil
	}}
	b := newPool(t, ok)

	b.Start(context.Background())
	b.Start(context.Background())
	if !b.IsRunning() {
		t.Fatal("broadcaster must be running after start")
	}

	b.Stop()
	b.Stop()
	if b.IsRunning() {
		t.Fatal("broadcaster must not be running after stop")
	}
}

func TestAddInstrumentReachesAllTransports(t *testing.T) {
	e1 := &fakeExecutor{}
	e2 := &fakeExecutor{}
	b := newPool(t, e1, e2)

	inst, err := models.NewPerpetualInstrument(models.InstrumentBase{
		InstrumentID:  instrID(),
		Symbol:        "ETHUSDT",
		PriceAccuracy: 2,
		SizeAccuracy:  3,
		PriceStep:     models.MustPrice(0.01, 2),
		SizeStep:      models.MustQuantity(0.001, 3),
	})
	if err != nil {
		t.Fatalf("NewPerpetualInstrument: %v", err)
	}
	if err := b.AddInstrument(inst); err != nil {
		t.Fatalf("AddInstrument: %v", err)
	}
	if e1.instruments != 1 || e2.instruments != 1 {
		t.Errorf("instrument counts = %d / %d, want 1 / 1", e1.instruments, e2.instruments)
	}
}
