package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Vodeneev/linesniper/internal/pkg/performance"
	"github.com/Vodeneev/linesniper/internal/pkg/session"
)

// PoolStats reports the session pool counters.
type PoolStats interface {
	Stats() session.Stats
}

type metricsResponse struct {
	Performance performance.Summary `json:"performance"`
	Pool        *session.Stats      `json:"pool,omitempty"`
}

// Metrics serves /metrics: tracker totals plus the current pool snapshot.
func Metrics(tracker *performance.Tracker, pool PoolStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := metricsResponse{Performance: tracker.Snapshot()}
		if pool != nil {
			st := pool.Stats()
			resp.Pool = &st
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, fmt.Sprintf("failed to encode metrics: %v", err), http.StatusInternalServerError)
			return
		}
	}
}
