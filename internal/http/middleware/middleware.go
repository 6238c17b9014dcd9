// Package middleware holds the net/http wrappers applied around the
// router: request logging, panic recovery, per-route metrics and bearer
// token authentication for the JSON API.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VanDeGall/EduTestor/internal/auth"
	"github.com/VanDeGall/EduTestor/internal/metrics"
	"github.com/VanDeGall/EduTestor/internal/session"
	"github.com/VanDeGall/EduTestor/internal/utils/response"
)

var errInvalidAuthHeader = errors.New("invalid authorization header")

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// RequestLogger logs HTTP request/response metadata.
func RequestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.code()),
			slog.String("client_ip", r.RemoteAddr),
			slog.String("latency", time.Since(start).String()),
		)
	})
}

// Recover turns a panicking handler into a 500 instead of a dropped
// connection.
func Recover(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.Error("handler panicked",
					slog.String("path", r.URL.Path),
					slog.Any("panic", v),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Instrument records request count and latency under a fixed route label,
// so path parameters such as question ids do not explode cardinality.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.code())).Inc()
	})
}

// Bearer authenticates requests carrying "Authorization: Bearer <token>"
// and binds the token's user to the request. Requests without the header
// fall through to the cookie session; a malformed or rejected token is
// answered with 401.
func Bearer(tokens *auth.Tokens, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.GeneralError(errInvalidAuthHeader))
			return
		}

		userID, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(session.Bind(r.Context(), userID)))
	})
}
