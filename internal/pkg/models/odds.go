package models

import (
	"math"
	"time"
)

// Quote is one calibrated price for an outcome, ready to be appended to its history.
type Quote struct {
	MarketType string  `json:"market_type"`
	Label      string  `json:"label"`
	Price      float64 `json:"price"`
}

// OddsRecord is the append-only price history of one (event, market, outcome).
type OddsRecord struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"event_id"`
	MarketType   string    `json:"market_type"`
	OutcomeLabel string    `json:"outcome_label"`
	PriceHistory []float64 `json:"price_history"`
	Watch        bool      `json:"watch"`
}

// Current returns the latest observed price.
func (r OddsRecord) Current() (float64, bool) {
	if len(r.PriceHistory) == 0 {
		return 0, false
	}
	return r.PriceHistory[len(r.PriceHistory)-1], true
}

// Previous returns the price observed before the current one.
func (r OddsRecord) Previous() (float64, bool) {
	if len(r.PriceHistory) < 2 {
		return 0, false
	}
	return r.PriceHistory[len(r.PriceHistory)-2], true
}

// ProbShift is the change in implied probability between the last two prices
// (positive when the price shortened). Zero when there is no previous price.
func (r OddsRecord) ProbShift() float64 {
	cur, ok1 := r.Current()
	prev, ok2 := r.Previous()
	if !ok1 || !ok2 || cur <= 0 || prev <= 0 {
		return 0
	}
	return 1/cur - 1/prev
}

// Capture is the result of one successful event refresh, handed to observers.
type Capture struct {
	CycleID    string       `json:"cycle_id"`
	Event      Event        `json:"event"`
	Records    []OddsRecord `json:"records"`
	CapturedAt time.Time    `json:"captured_at"`
}

// Mover is an outcome worth surfacing: watch-flagged or recently moved close to kickoff.
type Mover struct {
	OddsRecord
	EventName string    `json:"event_name"`
	KickoffAt time.Time `json:"kickoff_at"`
	Sport     string    `json:"sport"`
}

// ShiftPercent returns ProbShift in percentage points rounded to two decimals.
func (m Mover) ShiftPercent() float64 {
	return math.Round(m.ProbShift()*10000) / 100
}
