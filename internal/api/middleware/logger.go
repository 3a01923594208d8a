package middleware

import (
	"context"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const loggerKey contextKey = "logger"

// RequestLogger logs one line per request and stores a request-scoped entry
// in the context for handlers. It expects chi's RequestID to run first.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := log.WithFields(logrus.Fields{
				"request_id": chiMiddleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), loggerKey, entry)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := entry.WithFields(logrus.Fields{
				"status":   status,
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
				"ip":       r.RemoteAddr,
			})
			switch {
			case status >= 500:
				fields.Error("request completed")
			case status >= 400:
				fields.Warn("request completed")
			default:
				fields.Info("request completed")
			}
		})
	}
}

// LoggerFrom returns the request-scoped logger, or the standard logger when
// RequestLogger did not run.
func LoggerFrom(ctx context.Context) logrus.FieldLogger {
	if entry, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok {
		return entry
	}
	return logrus.StandardLogger()
}
