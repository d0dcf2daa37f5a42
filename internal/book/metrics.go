package book

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики книги ордеров
// ============================================================
//
// Книга сама метрики не пишет (горячий путь без побочных эффектов);
// хелперы вызываются владельцем книги - движком исполнения и фидом.

// DeltasApplied - количество применённых дельт по инструментам и действиям
var DeltasApplied = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "book",
		Name:      "deltas_applied_total",
		Help:      "Total number of book deltas applied",
	},
	[]string{"instrument", "action"},
)

// IntegrityErrors - нарушения целостности книги по видам
var IntegrityErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "book",
		Name:      "integrity_errors_total",
		Help:      "Total number of book integrity violations",
	},
	[]string{"instrument", "kind"},
)

// BestBidPriceGauge - текущая лучшая цена покупки
var BestBidPriceGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "book",
		Name:      "best_bid_price",
		Help:      "Current best bid price",
	},
	[]string{"instrument"},
)

// BestAskPriceGauge - текущая лучшая цена продажи
var BestAskPriceGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "book",
		Name:      "best_ask_price",
		Help:      "Current best ask price",
	},
	[]string{"instrument"},
)

// ApplyLatency - время применения одной дельты
var ApplyLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "tradecore",
		Subsystem: "book",
		Name:      "apply_latency_ms",
		Help:      "Time to apply one book delta in milliseconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	},
	[]string{"instrument"},
)

// RecordDelta фиксирует применённую дельту
func RecordDelta(instrument, action string) {
	DeltasApplied.WithLabelValues(instrument, action).Inc()
}

// RecordIntegrityError фиксирует нарушение целостности
func RecordIntegrityError(instrument, kind string) {
	IntegrityErrors.WithLabelValues(instrument, kind).Inc()
}

// SetTopOfBook обновляет gauge вершины книги
func SetTopOfBook(instrument string, bid, ask float64) {
	BestBidPriceGauge.WithLabelValues(instrument).Set(bid)
	BestAskPriceGauge.WithLabelValues(instrument).Set(ask)
}

// RecordApplyLatency фиксирует латентность применения дельты
func RecordApplyLatency(instrument string, ms float64) {
	ApplyLatency.WithLabelValues(instrument).Observe(ms)
}
