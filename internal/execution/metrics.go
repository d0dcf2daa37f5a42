package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "execution",
		Name:      "orders_created_total",
		Help:      "Orders initialized by the engine.",
	})

	eventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "execution",
		Name:      "events_applied_total",
		Help:      "Order events applied, by event type.",
	}, []string{"event"})

	reconcileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "execution",
		Name:      "reconcile_errors_total",
		Help:      "Reports that could not be reconciled with order state.",
	})

	duplicateFills = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "execution",
		Name:      "duplicate_fills_total",
		Help:      "Fill reports dropped by trade id deduplication.",
	})

	journalErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "execution",
		Name:      "journal_errors_total",
		Help:      "Failed journal writes, by record kind.",
	}, []string{"kind"})

	openOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "execution",
		Name:      "open_orders",
		Help:      "Orders currently open on the venue.",
	})
)
