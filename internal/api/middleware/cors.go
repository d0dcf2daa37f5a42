package middleware

import (
	"net/http"
	"os"
	"strings"
)

// corsOrigins - разрешённые origins браузерных клиентов терминала.
// Дополняется из CORS_ALLOWED_ORIGINS (через запятую).
var corsOrigins = map[string]bool{
	"http://localhost:3000": true,
	"http://127.0.0.1:3000": true,
	"http://localhost:5173": true,
	"http://127.0.0.1:5173": true,
}

func init() {
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				corsOrigins[origin] = true
			}
		}
	}
}

// CORS выставляет заголовки Cross-Origin Resource Sharing и
// отвечает на preflight запросы.
//
// Разрешённому origin отдаётся его точное значение вместе с
// Allow-Credentials: токен доступа ходит в заголовке Authorization.
// Запросы без Origin (curl, сервисные клиенты) проходят свободно.
// Чужой origin заголовков не получает - браузер заблокирует ответ.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		switch {
		case origin != "" && corsOrigins[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		case origin == "":
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
