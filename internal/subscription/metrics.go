package subscription

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики трекера подписок
var (
	confirmedTopics = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "subscription",
		Name:      "confirmed_topics",
		Help:      "Number of confirmed subscription topics",
	})

	pendingSubscribeTopics = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "subscription",
		Name:      "pending_subscribe_topics",
		Help:      "Number of topics awaiting subscribe acknowledgement",
	})

	pendingUnsubscribeTopics = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradecore",
		Subsystem: "subscription",
		Name:      "pending_unsubscribe_topics",
		Help:      "Number of topics awaiting unsubscribe acknowledgement",
	})

	staleAcksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradecore",
		Subsystem: "subscription",
		Name:      "stale_acks_total",
		Help:      "Total number of ignored out-of-order acknowledgements",
	}, []string{"kind"})
)

// SetTopicCounts публикует размеры трёх множеств трекера
func SetTopicCounts(confirmed, pendingSubscribe, pendingUnsubscribe int) {
	confirmedTopics.Set(float64(confirmed))
	pendingSubscribeTopics.Set(float64(pendingSubscribe))
	pendingUnsubscribeTopics.Set(float64(pendingUnsubscribe))
}

// RecordStaleAck учитывает проигнорированный устаревший ACK
func RecordStaleAck(kind string) {
	staleAcksTotal.WithLabelValues(kind).Inc()
}
