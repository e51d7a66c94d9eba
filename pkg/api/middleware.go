package api

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-vortexguard/pkg/cors"
	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/metrics"
	"go-vortexguard/pkg/models"
)

const headerRequestID = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// requestID tags each request with the caller's X-Request-ID or a new uuid.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestLog(r *http.Request) *zap.SugaredLogger {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return logger.Log.With("request_id", id)
	}
	return logger.Log
}

// accessLog records one log line and the request metrics per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		elapsed := time.Since(start)

		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		requestLog(r).Infof("%s %s status=%d bytes=%d duration=%s", r.Method, r.URL.Path, status, ww.BytesWritten(), elapsed)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// recoverer turns a panic into the 500 error envelope.
func recoverer(guard *cors.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestLog(r).Errorf("panic serving %s: %v\n%s", r.URL.Path, rec, debug.Stack())
				if w.Header().Get("Access-Control-Allow-Headers") == "" {
					guard.Apply(w, r, cors.MethodsPost)
				}
				writeError(w, http.StatusInternalServerError, msgInternalError, models.CodeInternalError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
