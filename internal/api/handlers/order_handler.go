package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"tradecore/internal/execution"
	"tradecore/internal/models"
	"tradecore/internal/orders"
)

// OrderEngine - поверхность движка, нужная обработчикам ордеров
type OrderEngine interface {
	Order(clientOrderID models.ClientOrderID) (orders.Order, bool)
	OpenOrders() []orders.Order
	CancelOrder(ctx context.Context, clientOrderID models.ClientOrderID) (*models.OrderStatusReport, error)
	CancelAll(ctx context.Context, instrumentID models.InstrumentID, side models.OrderSide) ([]models.OrderStatusReport, error)
}

// ReportStore - доступ к журналу отчётов о статусе
type ReportStore interface {
	GetByClientOrderID(clientOrderID models.ClientOrderID) ([]*models.OrderStatusReport, error)
}

// OrderHandler обрабатывает запросы к ордерам.
//
// Endpoints:
// - GET /api/v1/orders - открытые ордера
// - GET /api/v1/orders/{id} - состояние ордера
// - GET /api/v1/orders/{id}/reports - журнал отчётов ордера
// - DELETE /api/v1/orders/{id} - отмена через рассыльщик
// - DELETE /api/v1/orders?instrument=X&side=buy - массовая отмена
type OrderHandler struct {
	engine  OrderEngine
	reports ReportStore
}

// NewOrderHandler создает новый OrderHandler. Журнал отчётов
// опционален: nil отключает endpoint /orders/{id}/reports.
func NewOrderHandler(engine OrderEngine, reports ReportStore) *OrderHandler {
	return &OrderHandler{engine: engine, reports: reports}
}

// OrderView - состояние ордера в JSON-ответе
type OrderView struct {
	ClientOrderID string   `json:"client_order_id"`
	VenueOrderID  string   `json:"venue_order_id,omitempty"`
	Instrument    string   `json:"instrument"`
	Side          string   `json:"side"`
	Type          string   `json:"type"`
	TimeInForce   string   `json:"time_in_force"`
	Status        string   `json:"status"`
	Quantity      float64  `json:"quantity"`
	FilledQty     float64  `json:"filled_qty"`
	LeavesQty     float64  `json:"leaves_qty"`
	AvgPx         float64  `json:"avg_px,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	TsInit        uint64   `json:"ts_init"`
	TsLast        uint64   `json:"ts_last"`
	EventCount    int      `json:"event_count"`
}

// ReportView - отчёт площадки в JSON-ответе
type ReportView struct {
	ClientOrderID string  `json:"client_order_id"`
	VenueOrderID  string  `json:"venue_order_id,omitempty"`
	Status        string  `json:"status"`
	Quantity      float64 `json:"quantity"`
	FilledQty     float64 `json:"filled_qty"`
	AvgPx         float64 `json:"avg_px,omitempty"`
	CancelReason  string  `json:"cancel_reason,omitempty"`
	TsLast        uint64  `json:"ts_last"`
}

// GetOrders возвращает открытые ордера.
//
// GET /api/v1/orders
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	open := h.engine.OpenOrders()
	views := make([]OrderView, 0, len(open))
	for _, order := range open {
		views = append(views, orderView(order))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetOrder возвращает состояние ордера по клиентскому идентификатору.
//
// GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := models.ClientOrderID(mux.Vars(r)["id"])
	order, ok := h.engine.Order(id)
	if !ok {
		writeError(w, http.StatusNotFound, "order not found", string(id))
		return
	}
	writeJSON(w, http.StatusOK, orderView(order))
}

// GetOrderReports возвращает журнал отчётов ордера.
//
// GET /api/v1/orders/{id}/reports
func (h *OrderHandler) GetOrderReports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report journal disabled", "")
		return
	}
	id := models.ClientOrderID(mux.Vars(r)["id"])
	reports, err := h.reports.GetByClientOrderID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read reports", err.Error())
		return
	}
	views := make([]ReportView, 0, len(reports))
	for _, report := range reports {
		views = append(views, reportView(report))
	}
	writeJSON(w, http.StatusOK, views)
}

// CancelOrder отменяет ордер через рассыльщик отмен.
//
// DELETE /api/v1/orders/{id}
//
// Response 200 OK: отчёт площадки об отмене.
// 404 - ордер неизвестен, 409 - уже закрыт, 502 - площадка отказала.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := models.ClientOrderID(mux.Vars(r)["id"])
	report, err := h.engine.CancelOrder(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, execution.ErrUnknownOrder):
			writeError(w, http.StatusNotFound, "order not found", string(id))
		case errors.Is(err, execution.ErrOrderClosed):
			writeError(w, http.StatusConflict, "order is already closed", string(id))
		default:
			writeError(w, http.StatusBadGateway, "cancel rejected", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, reportView(report))
}

// CancelAll отменяет все ордера инструмента.
//
// DELETE /api/v1/orders?instrument=XBTUSD.BITMEX&side=buy
//
// Параметр side необязателен: без него отменяются обе стороны.
func (h *OrderHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	rawInstrument := r.URL.Query().Get("instrument")
	if rawInstrument == "" {
		writeError(w, http.StatusBadRequest, "instrument is required", "")
		return
	}
	instrumentID, err := models.ParseInstrumentID(rawInstrument)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instrument", rawInstrument)
		return
	}

	side := models.NoOrderSide
	switch strings.ToLower(r.URL.Query().Get("side")) {
	case "":
	case "buy":
		side = models.Buy
	case "sell":
		side = models.Sell
	default:
		writeError(w, http.StatusBadRequest, "invalid side", r.URL.Query().Get("side"))
		return
	}

	reports, err := h.engine.CancelAll(r.Context(), instrumentID, side)
	if err != nil {
		if errors.Is(err, execution.ErrUnknownInstrument) {
			writeError(w, http.StatusNotFound, "instrument not found", rawInstrument)
			return
		}
		writeError(w, http.StatusBadGateway, "cancel-all failed", err.Error())
		return
	}
	views := make([]ReportView, 0, len(reports))
	for i := range reports {
		views = append(views, reportView(&reports[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func orderView(order orders.Order) OrderView {
	core := order.Core()
	view := OrderView{
		ClientOrderID: string(core.ClientOrderID),
		VenueOrderID:  string(core.VenueOrderID),
		Instrument:    core.InstrumentID.String(),
		Side:          core.Side.String(),
		Type:          core.Type.String(),
		TimeInForce:   core.TimeInForce.String(),
		Status:        core.Status.String(),
		Quantity:      core.Quantity.Float64(),
		FilledQty:     core.FilledQty.Float64(),
		LeavesQty:     core.LeavesQty.Float64(),
		AvgPx:         core.AvgPx,
		TsInit:        uint64(core.TsInit),
		TsLast:        uint64(core.TsLast),
		EventCount:    core.EventCount(),
	}
	if price, ok := order.Price(); ok {
		value := price.Float64()
		view.Price = &value
	}
	return view
}

func reportView(report *models.OrderStatusReport) ReportView {
	return ReportView{
		ClientOrderID: string(report.ClientOrderID),
		VenueOrderID:  string(report.VenueOrderID),
		Status:        report.OrderStatus.String(),
		Quantity:      report.Quantity.Float64(),
		FilledQty:     report.FilledQty.Float64(),
		AvgPx:         report.AvgPx,
		CancelReason:  report.CancelReason,
		TsLast:        uint64(report.TsLast),
	}
}
