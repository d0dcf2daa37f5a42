package execution

import (
	"errors"
	"fmt"

	"tradecore/internal/models"
	"tradecore/internal/orders"
)

// reconcile.go - сверка локального состояния ордера с отчётом площадки
//
// Отчёт - снимок, событие - переход. Сверка превращает разницу между
// снимком и текущим состоянием в последовательность событий, каждое
// из которых проходит статусную машину ордера. Совпадающий отчёт
// даёт пустой список: повторная доставка безопасна.

// Ошибки сверки
var (
	ErrReportMismatch = errors.New("report does not match order")
	ErrNilReport      = errors.New("report is nil")
)

// ReconcileReport строит события из разницы между ордером и отчётом.
// События упорядочены: принятие, исполнения, терминальный статус.
// Исполнение синтезируется из прироста FilledQty с ценой AvgPx;
// сделки с собственным TradeID приходят отдельным FillReport и
// применяются через FillEvent.
func ReconcileReport(order orders.Order, report *models.OrderStatusReport) ([]orders.OrderEvent, error) {
	if report == nil {
		return nil, ErrNilReport
	}
	core := order.Core()
	if report.ClientOrderID != "" && report.ClientOrderID != core.ClientOrderID {
		return nil, fmt.Errorf("%w: client order id %s vs %s",
			ErrReportMismatch, report.ClientOrderID, core.ClientOrderID)
	}

	tsEvent := report.TsLast
	if tsEvent == 0 {
		tsEvent = models.NanosNow()
	}

	events := make([]orders.OrderEvent, 0, 3)
	status := core.Status

	// Площадка видела ордер - локальная машина обязана пройти
	// через Submitted и Accepted, даже если подтверждения потерялись.
	if venueAcknowledged(report.OrderStatus) {
		if status == models.StatusInitialized {
			events = append(events, &orders.OrderSubmitted{
				ClientOrderID: core.ClientOrderID,
				AccountID:     report.AccountID,
				TsEvent:       tsEvent,
			})
			status = models.StatusSubmitted
		}
		if status == models.StatusSubmitted {
			events = append(events, &orders.OrderAccepted{
				ClientOrderID: core.ClientOrderID,
				VenueOrderID:  report.VenueOrderID,
				AccountID:     report.AccountID,
				TsEvent:       tsEvent,
			})
			status = models.StatusAccepted
		}
	}

	// Прирост исполненного количества без отдельного отчёта о сделке
	if report.FilledQty.Cmp(core.FilledQty) > 0 {
		lastQty := report.FilledQty.Sub(core.FilledQty)
		events = append(events, &orders.OrderFilled{
			ClientOrderID: core.ClientOrderID,
			VenueOrderID:  report.VenueOrderID,
			AccountID:     report.AccountID,
			TradeID:       inferredTradeID(report),
			LastQty:       lastQty,
			LastPx:        inferredFillPrice(core, report),
			LiquiditySide: models.NoLiquiditySide,
			TsEvent:       tsEvent,
		})
		if report.FilledQty.Cmp(report.Quantity) >= 0 {
			status = models.StatusFilled
		} else {
			status = models.StatusPartiallyFilled
		}
	}

	if ev := statusEvent(core, report, status, tsEvent); ev != nil {
		events = append(events, ev)
	}
	return events, nil
}

// FillEvent переводит отчёт о сделке в событие исполнения.
// Дедупликацию по TradeID делает вызывающий: журнал ордера
// дописывает сделки без проверки повторов.
func FillEvent(order orders.Order, fill *models.FillReport) (*orders.OrderFilled, error) {
	if fill == nil {
		return nil, ErrNilReport
	}
	core := order.Core()
	if fill.ClientOrderID != "" && fill.ClientOrderID != core.ClientOrderID {
		return nil, fmt.Errorf("%w: client order id %s vs %s",
			ErrReportMismatch, fill.ClientOrderID, core.ClientOrderID)
	}

	tsEvent := fill.TsEvent
	if tsEvent == 0 {
		tsEvent = models.NanosNow()
	}
	return &orders.OrderFilled{
		ClientOrderID: core.ClientOrderID,
		VenueOrderID:  fill.VenueOrderID,
		AccountID:     fill.AccountID,
		TradeID:       fill.TradeID,
		PositionID:    fill.PositionID,
		LastQty:       fill.LastQty,
		LastPx:        fill.LastPx,
		Commission:    fill.Commission,
		LiquiditySide: fill.LiquiditySide,
		TsEvent:       tsEvent,
	}, nil
}

// statusEvent строит событие для статуса отчёта, если локальный
// статус ещё не совпал. Статусы исполнения покрыты событием
// OrderFilled и отдельного события не требуют.
func statusEvent(core *orders.OrderCore, report *models.OrderStatusReport, current models.OrderStatus, tsEvent models.UnixNanos) orders.OrderEvent {
	if report.OrderStatus == current {
		return nil
	}
	switch report.OrderStatus {
	case models.StatusRejected:
		return &orders.OrderRejected{
			ClientOrderID: core.ClientOrderID,
			AccountID:     report.AccountID,
			Reason:        report.CancelReason,
			TsEvent:       tsEvent,
		}
	case models.StatusCanceled:
		return &orders.OrderCanceled{
			ClientOrderID: core.ClientOrderID,
			VenueOrderID:  report.VenueOrderID,
			TsEvent:       tsEvent,
		}
	case models.StatusExpired:
		return &orders.OrderExpired{ClientOrderID: core.ClientOrderID, TsEvent: tsEvent}
	case models.StatusTriggered:
		return &orders.OrderTriggered{ClientOrderID: core.ClientOrderID, TsEvent: tsEvent}
	case models.StatusPendingCancel:
		if current == models.StatusPendingCancel {
			return nil
		}
		return &orders.OrderPendingCancel{ClientOrderID: core.ClientOrderID, TsEvent: tsEvent}
	case models.StatusPendingUpdate:
		return &orders.OrderPendingUpdate{ClientOrderID: core.ClientOrderID, TsEvent: tsEvent}
	default:
		return nil
	}
}

// venueAcknowledged - статусы, которые площадка присваивает только
// известному ей ордеру
func venueAcknowledged(status models.OrderStatus) bool {
	switch status {
	case models.StatusAccepted, models.StatusTriggered,
		models.StatusPendingUpdate, models.StatusPendingCancel,
		models.StatusPartiallyFilled, models.StatusFilled,
		models.StatusCanceled, models.StatusExpired:
		return true
	default:
		return false
	}
}

// inferredTradeID - детерминированный идентификатор синтезированной
// сделки. Повторный отчёт с тем же FilledQty даёт тот же id,
// дедупликация движка отбрасывает повтор.
func inferredTradeID(report *models.OrderStatusReport) models.TradeID {
	return models.TradeID(fmt.Sprintf("%s-inferred-%d", report.VenueOrderID, report.FilledQty.Raw))
}

// inferredFillPrice выбирает цену синтезированного исполнения:
// средняя цена отчёта, иначе лимитная цена ордера
func inferredFillPrice(core *orders.OrderCore, report *models.OrderStatusReport) models.Price {
	precision := report.Price.Precision
	if report.Price.IsZero() {
		precision = models.FixedPrecision
	}
	if report.AvgPx != 0 {
		if px, err := models.NewPrice(report.AvgPx, precision); err == nil {
			return px
		}
	}
	return report.Price
}
