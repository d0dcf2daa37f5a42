package orders

import (
	"fmt"

	"tradecore/internal/models"
)

// status.go - машина состояний ордера
//
// Переход определён на паре (текущий статус, вид события).
// Невалидная пара возвращает ошибку, состояние не меняется.
// Исполнения после CANCELED допустимы: отмена и сделка могли
// разминуться в полёте.

// InvalidTransitionError - недопустимый переход машины состояний
type InvalidTransitionError struct {
	From  models.OrderStatus
	Event EventType
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order event: %s from status %s", e.Event, e.From)
}

type transitionKey struct {
	from  models.OrderStatus
	event EventType
}

// validTransitions - полная таблица переходов (статус, событие) -> статус
var validTransitions = map[transitionKey]models.OrderStatus{
	{models.StatusInitialized, EventDenied}:    models.StatusDenied,
	{models.StatusInitialized, EventEmulated}:  models.StatusEmulated,
	{models.StatusInitialized, EventReleased}:  models.StatusReleased,
	{models.StatusInitialized, EventSubmitted}: models.StatusSubmitted,
	{models.StatusInitialized, EventRejected}:  models.StatusRejected,
	{models.StatusInitialized, EventAccepted}:  models.StatusAccepted,
	{models.StatusInitialized, EventCanceled}:  models.StatusCanceled,
	{models.StatusInitialized, EventExpired}:   models.StatusExpired,
	{models.StatusInitialized, EventTriggered}: models.StatusTriggered,

	{models.StatusEmulated, EventCanceled}: models.StatusCanceled,
	{models.StatusEmulated, EventExpired}:  models.StatusExpired,
	{models.StatusEmulated, EventReleased}: models.StatusReleased,

	{models.StatusReleased, EventSubmitted}: models.StatusSubmitted,
	{models.StatusReleased, EventDenied}:    models.StatusDenied,
	{models.StatusReleased, EventCanceled}:  models.StatusCanceled,

	{models.StatusSubmitted, EventPendingUpdate}:   models.StatusPendingUpdate,
	{models.StatusSubmitted, EventPendingCancel}:   models.StatusPendingCancel,
	{models.StatusSubmitted, EventRejected}:        models.StatusRejected,
	{models.StatusSubmitted, EventCanceled}:        models.StatusCanceled,
	{models.StatusSubmitted, EventAccepted}:        models.StatusAccepted,
	{models.StatusSubmitted, EventUpdated}:         models.StatusSubmitted,
	{models.StatusSubmitted, EventPartiallyFilled}: models.StatusPartiallyFilled,
	{models.StatusSubmitted, EventFilled}:          models.StatusFilled,

	{models.StatusAccepted, EventRejected}:        models.StatusRejected,
	{models.StatusAccepted, EventPendingUpdate}:   models.StatusPendingUpdate,
	{models.StatusAccepted, EventPendingCancel}:   models.StatusPendingCancel,
	{models.StatusAccepted, EventCanceled}:        models.StatusCanceled,
	{models.StatusAccepted, EventTriggered}:       models.StatusTriggered,
	{models.StatusAccepted, EventExpired}:         models.StatusExpired,
	{models.StatusAccepted, EventUpdated}:         models.StatusAccepted,
	{models.StatusAccepted, EventPartiallyFilled}: models.StatusPartiallyFilled,
	{models.StatusAccepted, EventFilled}:          models.StatusFilled,

	// Сделка догнала отмену
	{models.StatusCanceled, EventPartiallyFilled}: models.StatusPartiallyFilled,
	{models.StatusCanceled, EventFilled}:          models.StatusFilled,

	{models.StatusPendingUpdate, EventRejected}:        models.StatusRejected,
	{models.StatusPendingUpdate, EventAccepted}:        models.StatusAccepted,
	{models.StatusPendingUpdate, EventCanceled}:        models.StatusCanceled,
	{models.StatusPendingUpdate, EventExpired}:         models.StatusExpired,
	{models.StatusPendingUpdate, EventUpdated}:         models.StatusAccepted,
	{models.StatusPendingUpdate, EventTriggered}:       models.StatusTriggered,
	{models.StatusPendingUpdate, EventPendingUpdate}:   models.StatusPendingUpdate,
	{models.StatusPendingUpdate, EventPendingCancel}:   models.StatusPendingCancel,
	{models.StatusPendingUpdate, EventPartiallyFilled}: models.StatusPartiallyFilled,
	{models.StatusPendingUpdate, EventFilled}:          models.StatusFilled,

	{models.StatusPendingCancel, EventRejected}:        models.StatusRejected,
	{models.StatusPendingCancel, EventPendingCancel}:   models.StatusPendingCancel,
	{models.StatusPendingCancel, EventCanceled}:        models.StatusCanceled,
	{models.StatusPendingCancel, EventExpired}:         models.StatusExpired,
	{models.StatusPendingCancel, EventAccepted}:        models.StatusAccepted,
	{models.StatusPendingCancel, EventPartiallyFilled}: models.StatusPartiallyFilled,
	{models.StatusPendingCancel, EventFilled}:          models.StatusFilled,

	{models.StatusTriggered, EventRejected}:        models.StatusRejected,
	{models.StatusTriggered, EventPendingUpdate}:   models.StatusPendingUpdate,
	{models.StatusTriggered, EventPendingCancel}:   models.StatusPendingCancel,
	{models.StatusTriggered, EventCanceled}:        models.StatusCanceled,
	{models.StatusTriggered, EventExpired}:         models.StatusExpired,
	{models.StatusTriggered, EventPartiallyFilled}: models.StatusPartiallyFilled,
	{models.StatusTriggered, EventFilled}:          models.StatusFilled,

	{models.StatusPartiallyFilled, EventPendingUpdate}:   models.StatusPendingUpdate,
	{models.StatusPartiallyFilled, EventPendingCancel}:   models.StatusPendingCancel,
	{models.StatusPartiallyFilled, EventCanceled}:        models.StatusCanceled,
	{models.StatusPartiallyFilled, EventExpired}:         models.StatusExpired,
	{models.StatusPartiallyFilled, EventPartiallyFilled}: models.StatusPartiallyFilled,
	{models.StatusPartiallyFilled, EventFilled}:          models.StatusFilled,
	{models.StatusPartiallyFilled, EventAccepted}:        models.StatusAccepted,
}

// CanTransition проверяет допустимость события в текущем статусе
func CanTransition(from models.OrderStatus, event EventType) bool {
	_, ok := validTransitions[transitionKey{from, event}]
	return ok
}

// TransitionStatus возвращает новый статус или ошибку для пары
// (статус, событие); состояние вызывающего не модифицируется
func TransitionStatus(from models.OrderStatus, event EventType) (models.OrderStatus, error) {
	to, ok := validTransitions[transitionKey{from, event}]
	if !ok {
		return from, &InvalidTransitionError{From: from, Event: event}
	}
	return to, nil
}
