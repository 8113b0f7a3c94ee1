package handlers

import (
	"net/http"
)

// HandlePing handles /ping endpoint
func HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

// Health serves /health. It reports 503 once the session pool has shut down.
func Health(pool PoolStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if pool != nil && pool.Stats().Closed {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("session pool closed\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}
