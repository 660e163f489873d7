package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/notifyhub/github-relay/internal/github"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// CorrelationHeader is echoed on every response.
const CorrelationHeader = "X-Correlation-ID"

// CorrelationID assigns each request a correlation id: an explicit
// X-Correlation-ID wins, then GitHub's X-GitHub-Delivery GUID, otherwise a
// new UUID. The id is stored on the request context and echoed back.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = r.Header.Get(github.HeaderDelivery)
		}
		if id == "" {
			id = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), correlationIDKey, id)
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the id stored by CorrelationID, or "".
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}
