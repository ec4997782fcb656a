// AngelaMos | 2026
// logger.go

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/carterperez-dev/insighta/internal/core"
)

type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logger writes one structured line per request. 5xx logs at error, 4xx at
// warn, everything else at info.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []any{
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(started).Milliseconds(),
				"client_ip", clientIP(r),
			}

			if traceID := core.TraceIDFromContext(r.Context()); traceID != "" {
				attrs = append(attrs, "trace_id", traceID)
			}

			ctx := r.Context()
			switch {
			case rec.status >= http.StatusInternalServerError:
				logger.ErrorContext(ctx, "request", attrs...)
			case rec.status >= http.StatusBadRequest:
				logger.WarnContext(ctx, "request", attrs...)
			default:
				logger.InfoContext(ctx, "request", attrs...)
			}
		})
	}
}

// Recoverer turns a handler panic into a 500 envelope.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				logger.ErrorContext(r.Context(), "panic recovered",
					"request_id", GetRequestID(r.Context()),
					"error", fmt.Sprintf("%v", recovered),
					"stack", string(debug.Stack()),
				)
				err := fmt.Errorf("panic: %v", recovered)
				core.SetSpanError(r.Context(), err)
				core.InternalServerError(w, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
