// auth.go — проверка API-ключа.
// Ключ передаётся в заголовке x-api-key или query-параметре apikey.
// Сравнение через crypto/subtle для защиты от timing-атак.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/hivestore/internal/api/errors"
)

// HeaderAPIKey — заголовок с API-ключом.
const HeaderAPIKey = "x-api-key"

// QueryAPIKey — query-параметр с API-ключом.
const QueryAPIKey = "apikey"

// APIKeyMiddleware возвращает middleware проверки API-ключа.
// Отсутствующий ключ — 401 MISSING_API_KEY, несовпадающий — 403
// INVALID_API_KEY.
func APIKeyMiddleware(expectedKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := []byte(expectedKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(HeaderAPIKey)
			if provided == "" {
				provided = r.URL.Query().Get(QueryAPIKey)
			}

			if provided == "" {
				logger.Warn("Запрос без API-ключа",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote", r.RemoteAddr),
				)
				apierrors.MissingAPIKey(w, "API-ключ обязателен: заголовок x-api-key или параметр apikey")
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				logger.Warn("Запрос с неверным API-ключом",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote", r.RemoteAddr),
				)
				apierrors.InvalidAPIKey(w, "Неверный API-ключ")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
