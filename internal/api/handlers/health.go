package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports backend reachability. *pgxpool.Pool satisfies this; the
// in-memory store has no backend and passes nil.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz is the liveness probe.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}

// Readyz is the readiness probe. With a database configured it pings the
// pool; otherwise the server is ready as soon as it is serving.
func Readyz(pinger Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
}
