package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/throttle"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	requestIDHeader    = "X-Request-ID"
	forwardedForHeader = "X-Forwarded-For"
)

// Middleware is a standard net/http middleware.
type Middleware func(http.Handler) http.Handler

// statusWriter records the status code and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.count += n
	return n, err
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Recover turns a panic into a 500 response without leaking details.
func (s *Server) Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					s.requestLogger(r).Error(r.Context(), "panic", "path", r.URL.Path, "reason", rec)
					writeJSON(w, http.StatusInternalServerError, errorResponse{
						StatusCode: http.StatusInternalServerError,
						Message:    "internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID keeps an incoming X-Request-ID or assigns a new one, and echoes
// it on the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(requestIDHeader, id)
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// Logging writes one access log line per request and observes latency.
func (s *Server) Logging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := sw.code()
			s.metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Observe(dur.Seconds())

			s.requestLogger(r).Info(r.Context(), "http",
				"method", r.Method,
				"route", route,
				"status", status,
				"dur", dur,
				"bytes", sw.count,
			)
		})
	}
}

// Timeout sets a deadline on the request context unless one exists.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Throttle rejects requests over the client's budget with 429 before the
// wrapped handler runs.
func (s *Server) Throttle(group string, t Admitter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := throttle.ClientID(r.Header.Get(forwardedForHeader), r.RemoteAddr)
			if !t.Admit(client) {
				s.metrics.Throttle.WithLabelValues(group, "reject").Inc()
				s.requestLogger(r).Warn(r.Context(), "request throttled", "group", group, "client", client)
				w.Header().Set("Retry-After", strconv.Itoa(int(t.Window().Seconds())))
				s.writeError(w, r, common.ErrRateLimited)
				return
			}
			s.metrics.Throttle.WithLabelValues(group, "allow").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requestLogger(r *http.Request) logging.Logger {
	if id := r.Header.Get(requestIDHeader); id != "" {
		return s.logger.With("request_id", id)
	}
	return s.logger
}
