// Package api собирает HTTP-маршруты management API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradecore/internal/api/handlers"
	"tradecore/internal/api/middleware"
	"tradecore/internal/execution"
	"tradecore/internal/feed"
)

// Dependencies содержит все зависимости HTTP-обработчиков
type Dependencies struct {
	Engine   *execution.Engine
	Reports  handlers.ReportStore // nil отключает /orders/{id}/reports
	Feed     *feed.Client         // nil убирает состояние фида из /health
	APIToken string               // пустой отключает аутентификацию
}

// SetupRoutes настраивает HTTP маршруты приложения.
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /books/
//	│   ├── GET / - инструменты с книгами
//	│   ├── GET /{instrument}?depth=N - снимок книги
//	│   └── GET /{instrument}/top - вершина книги
//	└── /orders/
//	    ├── GET / - открытые ордера
//	    ├── DELETE /?instrument=X&side=buy - массовая отмена
//	    ├── GET /{id} - состояние ордера
//	    ├── GET /{id}/reports - журнал отчётов
//	    └── DELETE /{id} - отмена ордера
//
// /health - проверка живости, /metrics - Prometheus.
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. TokenAuth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	api := router.PathPrefix("/api/v1").Subrouter()
	if deps != nil {
		api.Use(middleware.TokenAuth(deps.APIToken))
	}

	if deps != nil && deps.Engine != nil {
		bookHandler := handlers.NewBookHandler(deps.Engine)
		api.HandleFunc("/books", bookHandler.GetBooks).Methods("GET")
		api.HandleFunc("/books/{instrument}", bookHandler.GetBook).Methods("GET")
		api.HandleFunc("/books/{instrument}/top", bookHandler.GetTop).Methods("GET")

		orderHandler := handlers.NewOrderHandler(deps.Engine, deps.Reports)
		api.HandleFunc("/orders", orderHandler.GetOrders).Methods("GET")
		api.HandleFunc("/orders", orderHandler.CancelAll).Methods("DELETE")
		api.HandleFunc("/orders/{id}", orderHandler.GetOrder).Methods("GET")
		api.HandleFunc("/orders/{id}/reports", orderHandler.GetOrderReports).Methods("GET")
		api.HandleFunc("/orders/{id}", orderHandler.CancelOrder).Methods("DELETE")
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", healthHandler(deps)).Methods("GET")

	return router
}

// healthHandler отдаёт живость процесса и состояние фида
func healthHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps == nil || deps.Feed == nil {
			w.Write([]byte(`{"status":"ok"}`))
			return
		}
		state := deps.Feed.State()
		if state != feed.StateConnected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		w.Write([]byte(`{"status":"ok","feed":"` + state.String() + `"}`))
	}
}
