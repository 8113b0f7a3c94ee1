package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

// MoversSource lists watch-flagged and recently moved outcomes.
type MoversSource interface {
	ListMovers(ctx context.Context, now time.Time, horizon time.Duration, minShift float64) ([]models.Mover, error)
}

type moverResponse struct {
	models.Mover
	Current      float64 `json:"current"`
	ShiftPercent float64 `json:"shift_percent"`
}

// Movers serves /movers. The defaults can be overridden with ?horizon=2h&min_shift=0.01.
func Movers(source MoversSource, horizon time.Duration, minShift float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, ms := horizon, minShift
		if v := r.URL.Query().Get("horizon"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				http.Error(w, fmt.Sprintf("invalid horizon %q", v), http.StatusBadRequest)
				return
			}
			h = d
		}
		if v := r.URL.Query().Get("min_shift"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				http.Error(w, fmt.Sprintf("invalid min_shift %q", v), http.StatusBadRequest)
				return
			}
			ms = f
		}

		movers, err := source.ListMovers(r.Context(), time.Now(), h, ms)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to list movers: %v", err), http.StatusInternalServerError)
			return
		}

		resp := make([]moverResponse, 0, len(movers))
		for _, m := range movers {
			cur, _ := m.Current()
			resp = append(resp, moverResponse{Mover: m, Current: cur, ShiftPercent: m.ShiftPercent()})
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, fmt.Sprintf("failed to encode movers: %v", err), http.StatusInternalServerError)
		}
	}
}
