package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики cancel broadcaster'а
var (
	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "broadcast",
		Name:      "requests_total",
		Help:      "Total number of cancel broadcasts",
	}, []string{"operation"})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "broadcast",
		Name:      "outcomes_total",
		Help:      "Broadcast outcomes by kind (success, idempotent, failed)",
	}, []string{"operation", "outcome"})

	expectedRejectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "broadcast",
		Name:      "expected_rejects_total",
		Help:      "Venue rejections pre-classified as normal outcomes",
	}, []string{"operation"})

	healthyClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "broadcast",
		Name:      "healthy_clients",
		Help:      "Number of transports passing health checks",
	})

	totalClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "broadcast",
		Name:      "total_clients",
		Help:      "Total number of transports in the pool",
	})
)

// RecordBroadcast учитывает запуск рассылки
func RecordBroadcast(operation string) {
	broadcastsTotal.WithLabelValues(operation).Inc()
}

// RecordOutcome учитывает итог рассылки
func RecordOutcome(operation, outcome string) {
	outcomesTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordExpectedReject учитывает штатный отказ площадки
func RecordExpectedReject(operation string) {
	expectedRejectsTotal.WithLabelValues(operation).Inc()
}

// SetClientCounts публикует размеры пула после health sweep
func SetClientCounts(healthy, total int) {
	healthyClients.Set(float64(healthy))
	totalClients.Set(float64(total))
}
