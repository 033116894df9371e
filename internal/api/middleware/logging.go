package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tivoli/internal/logging"
)

// RequestIDKey is the context key for request ID
type contextKey string

const RequestIDKey contextKey = "request_id"

// LoggingMiddleware logs one line per request/response pair through the
// server's structured logger.
type LoggingMiddleware struct {
	logger logging.Logger
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware() *LoggingMiddleware {
	return &LoggingMiddleware{logger: logging.ServerLogger}
}

// Handler returns the logging middleware handler.
func (lm *LoggingMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = logging.WithTraceID(ctx, requestID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", requestID)

			wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			duration := time.Since(start)
			lm.logResponse(ctx, r, wrapper.statusCode, duration, requestID)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (lm *LoggingMiddleware) logResponse(ctx context.Context, r *http.Request, statusCode int, duration time.Duration, requestID string) {
	if r.URL.Path == "/ping" {
		return
	}

	fields := []interface{}{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status", statusCode,
		"duration_ms", duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		lm.logger.ErrorContext(ctx, "request failed", fields...)
	case statusCode >= 400:
		lm.logger.WarnContext(ctx, "request rejected", fields...)
	default:
		lm.logger.InfoContext(ctx, "request handled", fields...)
	}
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
