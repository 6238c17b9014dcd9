// Package health serves the liveness endpoint.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/VanDeGall/EduTestor/internal/utils/response"
)

// Pinger is anything that can report whether its backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check handles GET /healthz. Every pinger must answer within two seconds.
//
//	200 { "status": "ok" }
//	503 { "status": "error", "error": "..." }
func Check(pingers ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(err))
				return
			}
		}

		response.WriteJSON(w, http.StatusOK, response.Response{Status: response.StatusOK})
	}
}
