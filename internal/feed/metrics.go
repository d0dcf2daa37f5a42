package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики клиента рыночных данных
var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "feed",
		Name:      "messages_total",
		Help:      "Total number of stream messages received by table",
	}, []string{"table"})

	parseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "feed",
		Name:      "parse_errors_total",
		Help:      "Total number of stream messages that failed to parse",
	})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "feed",
		Name:      "reconnects_total",
		Help:      "Total number of websocket reconnect attempts",
	})

	connectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "feed",
		Name:      "connection_state",
		Help:      "Current websocket connection state (0=disconnected, 2=connected)",
	})
)
