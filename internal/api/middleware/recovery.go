package middleware

import (
	"net/http"
	"runtime/debug"

	"tradecore/pkg/utils"
)

// Recovery перехватывает panic в обработчиках: логирует stack trace
// и возвращает клиенту 500, не роняя сервер
func Recovery(next http.Handler) http.Handler {
	log := utils.GetGlobalLogger().WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("handler panic",
					utils.Any("panic", err),
					utils.String("path", r.URL.Path),
					utils.String("stack", string(debug.Stack())),
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
