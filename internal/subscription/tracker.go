package subscription

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"tradecore/pkg/utils"
)

// tracker.go - трекер состояния подписок транспорта
//
// Топик живёт ровно в одном из трёх множеств: confirmed,
// pendingSubscribe, pendingUnsubscribe. ACK площадки приходят
// не по порядку, поэтому подтверждения сверяются с текущим
// намерением и устаревшие игнорируются. Счётчики ссылок
// строго положительны: нулевой счётчик удаляет ключ.

// DefaultDelimiter разделяет канал и символ в строке топика
const DefaultDelimiter = "."

// Tracker - потокобезопасный трекер подписок одного транспорта
type Tracker struct {
	mu sync.RWMutex

	delimiter          string
	confirmed          map[string]struct{}
	pendingSubscribe   map[string]struct{}
	pendingUnsubscribe map[string]struct{}
	refCounts          map[string]int
}

// NewTracker создаёт трекер с разделителем топиков
func NewTracker(delimiter string) *Tracker {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &Tracker{
		delimiter:          delimiter,
		confirmed:          make(map[string]struct{}),
		pendingSubscribe:   make(map[string]struct{}),
		pendingUnsubscribe: make(map[string]struct{}),
		refCounts:          make(map[string]int),
	}
}

// SplitTopic разбирает топик на канал и символ по первому разделителю.
// Отсутствующий разделитель и пустой символ дают канальный топик.
func (t *Tracker) SplitTopic(topic string) (channel, symbol string) {
	idx := strings.Index(topic, t.delimiter)
	if idx < 0 {
		return topic, ""
	}
	return topic[:idx], topic[idx+len(t.delimiter):]
}

// normalize приводит топик с висящим разделителем к канальной форме
func (t *Tracker) normalize(topic string) string {
	channel, symbol := t.SplitTopic(topic)
	if symbol == "" {
		return channel
	}
	return topic
}

// ============================================================
// Переходы состояния
// ============================================================

// MarkSubscribe фиксирует намерение подписаться
func (t *Tracker) MarkSubscribe(topic string) {
	topic = t.normalize(topic)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.confirmed[topic]; ok {
		return
	}
	delete(t.pendingUnsubscribe, topic)
	t.pendingSubscribe[topic] = struct{}{}
	t.setGauges()
}

// ConfirmSubscribe применяет ACK подписки от площадки
func (t *Tracker) ConfirmSubscribe(topic string) {
	topic = t.normalize(topic)
	t.mu.Lock()
	defer t.mu.Unlock()

	// Запоздавший ACK: подписка уже отменяется
	if _, ok := t.pendingUnsubscribe[topic]; ok {
		RecordStaleAck("subscribe")
		utils.Debug("ignoring stale subscribe ack", zap.String("topic", topic))
		return
	}
	delete(t.pendingSubscribe, topic)
	t.confirmed[topic] = struct{}{}
	t.setGauges()
}

// MarkUnsubscribe фиксирует намерение отписаться
func (t *Tracker) MarkUnsubscribe(topic string) {
	topic = t.normalize(topic)
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pendingUnsubscribe[topic] = struct{}{}
	delete(t.confirmed, topic)
	delete(t.pendingSubscribe, topic)
	t.setGauges()
}

// ConfirmUnsubscribe применяет ACK отписки от площадки.
// ACK, пришедший после повторной подписки, игнорируется и не
// трогает pendingSubscribe.
func (t *Tracker) ConfirmUnsubscribe(topic string) {
	topic = t.normalize(topic)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pendingUnsubscribe[topic]; !ok {
		RecordStaleAck("unsubscribe")
		utils.Debug("ignoring stale unsubscribe ack", zap.String("topic", topic))
		return
	}
	delete(t.pendingUnsubscribe, topic)
	delete(t.confirmed, topic)
	t.setGauges()
}

// MarkFailure возвращает подтверждённый топик в очередь переподписки.
// Отписывающийся топик проваливаться не может: его и так снимают.
func (t *Tracker) MarkFailure(topic string) {
	topic = t.normalize(topic)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pendingUnsubscribe[topic]; ok {
		return
	}
	if _, ok := t.confirmed[topic]; ok {
		delete(t.confirmed, topic)
		t.pendingSubscribe[topic] = struct{}{}
		t.setGauges()
	}
}

// ============================================================
// Счётчики ссылок
// ============================================================

// AddReference увеличивает счётчик ссылок топика.
// true - переход 0->1: вызывающий должен отправить кадр подписки.
func (t *Tracker) AddReference(topic string) bool {
	topic = t.normalize(topic)
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refCounts[topic]++
	return t.refCounts[topic] == 1
}

// RemoveReference уменьшает счётчик ссылок топика.
// true - переход 1->0: вызывающий должен отправить кадр отписки.
func (t *Tracker) RemoveReference(topic string) bool {
	topic = t.normalize(topic)
	t.mu.Lock()
	defer t.mu.Unlock()

	count, ok := t.refCounts[topic]
	if !ok {
		return false
	}
	if count <= 1 {
		delete(t.refCounts, topic)
		return true
	}
	t.refCounts[topic] = count - 1
	return false
}

// ReferenceCount возвращает текущий счётчик ссылок топика
func (t *Tracker) ReferenceCount(topic string) int {
	topic = t.normalize(topic)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.refCounts[topic]
}

// ============================================================
// Чтение состояния
// ============================================================

// AllTopics возвращает топики для повтора подписок после реконнекта:
// confirmed вместе с pendingSubscribe, отписывающиеся не включаются
func (t *Tracker) AllTopics() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.confirmed)+len(t.pendingSubscribe))
	for topic := range t.confirmed {
		out = append(out, topic)
	}
	for topic := range t.pendingSubscribe {
		out = append(out, topic)
	}
	return out
}

// IsConfirmed сообщает, подтверждена ли подписка на топик
func (t *Tracker) IsConfirmed(topic string) bool {
	topic = t.normalize(topic)
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.confirmed[topic]
	return ok
}

// IsPendingSubscribe сообщает, ждёт ли топик подтверждения подписки
func (t *Tracker) IsPendingSubscribe(topic string) bool {
	topic = t.normalize(topic)
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.pendingSubscribe[topic]
	return ok
}

// IsPendingUnsubscribe сообщает, ждёт ли топик подтверждения отписки
func (t *Tracker) IsPendingUnsubscribe(topic string) bool {
	topic = t.normalize(topic)
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.pendingUnsubscribe[topic]
	return ok
}

// Confirmed возвращает снимок подтверждённых топиков
func (t *Tracker) Confirmed() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return keys(t.confirmed)
}

// PendingSubscribe возвращает снимок ожидающих подписки
func (t *Tracker) PendingSubscribe() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return keys(t.pendingSubscribe)
}

// PendingUnsubscribe возвращает снимок ожидающих отписки
func (t *Tracker) PendingUnsubscribe() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return keys(t.pendingUnsubscribe)
}

// Len возвращает число активных топиков (confirmed + pendingSubscribe)
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.confirmed) + len(t.pendingSubscribe)
}

// IsEmpty сообщает, пуст ли трекер полностью
func (t *Tracker) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.confirmed) == 0 && len(t.pendingSubscribe) == 0 &&
		len(t.pendingUnsubscribe) == 0 && len(t.refCounts) == 0
}

// Clear сбрасывает все множества и счётчики
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.confirmed = make(map[string]struct{})
	t.pendingSubscribe = make(map[string]struct{})
	t.pendingUnsubscribe = make(map[string]struct{})
	t.refCounts = make(map[string]int)
	t.setGauges()
}

// setGauges публикует размеры множеств; вызывается под t.mu
func (t *Tracker) setGauges() {
	SetTopicCounts(len(t.confirmed), len(t.pendingSubscribe), len(t.pendingUnsubscribe))
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
