package performance

import (
	"log/slog"
	"sync"
	"time"
)

const maxEventTimings = 1000

// Tracker accumulates per-cycle and per-event refresh metrics.
type Tracker struct {
	mu sync.RWMutex

	totalCycles      int
	totalLeagues     int
	offlineLeagues   int
	totalEvents      int
	failedEvents     int
	totalQuotes      int
	totalDuration    time.Duration
	leagueDuration   time.Duration
	refreshDuration  time.Duration
	lastCycle        *CycleStats
	eventTimings     []EventTiming
	eventTimingsNext int
}

// CycleStats summarises one full cycle.
type CycleStats struct {
	CycleID         string        `json:"cycle_id"`
	StartedAt       time.Time     `json:"started_at"`
	LeaguesSynced   int           `json:"leagues_synced"`
	LeaguesOffline  int           `json:"leagues_offline"`
	EventsRefreshed int           `json:"events_refreshed"`
	EventsFailed    int           `json:"events_failed"`
	QuotesStored    int           `json:"quotes_stored"`
	LeagueDuration  time.Duration `json:"league_duration"`
	RefreshDuration time.Duration `json:"refresh_duration"`
	TotalDuration   time.Duration `json:"total_duration"`
}

// EventTiming is the outcome of one event refresh.
type EventTiming struct {
	EventID  int64         `json:"event_id"`
	Quotes   int           `json:"quotes"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// Summary is a point-in-time copy of the tracker, safe to serialise.
type Summary struct {
	TotalCycles       int           `json:"total_cycles"`
	TotalLeagues      int           `json:"total_leagues_synced"`
	OfflineLeagues    int           `json:"total_leagues_offline"`
	TotalEvents       int           `json:"total_events_refreshed"`
	FailedEvents      int           `json:"total_events_failed"`
	TotalQuotes       int           `json:"total_quotes"`
	AvgCycleDuration  time.Duration `json:"avg_cycle_duration"`
	AvgLeagueDuration time.Duration `json:"avg_league_duration"`
	AvgEventDuration  time.Duration `json:"avg_event_duration"`
	LastCycle         *CycleStats   `json:"last_cycle,omitempty"`
}

func NewTracker() *Tracker {
	return &Tracker{eventTimings: make([]EventTiming, 0, 64)}
}

// RecordCycle adds a finished cycle to the totals.
func (t *Tracker) RecordCycle(c CycleStats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalCycles++
	t.totalLeagues += c.LeaguesSynced
	t.offlineLeagues += c.LeaguesOffline
	t.totalEvents += c.EventsRefreshed
	t.failedEvents += c.EventsFailed
	t.totalQuotes += c.QuotesStored
	t.totalDuration += c.TotalDuration
	t.leagueDuration += c.LeagueDuration
	t.refreshDuration += c.RefreshDuration
	last := c
	t.lastCycle = &last
}

// RecordEvent records one event refresh. Only the most recent timings are kept.
func (t *Tracker) RecordEvent(eventID int64, quotes int, d time.Duration, err error) {
	et := EventTiming{EventID: eventID, Quotes: quotes, Duration: d, Success: err == nil}
	if err != nil {
		et.Error = err.Error()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.eventTimings) < maxEventTimings {
		t.eventTimings = append(t.eventTimings, et)
		return
	}
	t.eventTimings[t.eventTimingsNext] = et
	t.eventTimingsNext = (t.eventTimingsNext + 1) % maxEventTimings
}

// Snapshot returns the current totals and averages.
func (t *Tracker) Snapshot() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summary{
		TotalCycles:    t.totalCycles,
		TotalLeagues:   t.totalLeagues,
		OfflineLeagues: t.offlineLeagues,
		TotalEvents:    t.totalEvents,
		FailedEvents:   t.failedEvents,
		TotalQuotes:    t.totalQuotes,
	}
	if t.lastCycle != nil {
		last := *t.lastCycle
		s.LastCycle = &last
	}
	if t.totalCycles > 0 {
		s.AvgCycleDuration = t.totalDuration / time.Duration(t.totalCycles)
		s.AvgLeagueDuration = t.leagueDuration / time.Duration(t.totalCycles)
	}
	if n := len(t.eventTimings); n > 0 {
		var sum time.Duration
		for _, et := range t.eventTimings {
			sum += et.Duration
		}
		s.AvgEventDuration = sum / time.Duration(n)
	}
	return s
}

// LogSummary writes the current totals to logger.
func (t *Tracker) LogSummary(logger *slog.Logger) {
	s := t.Snapshot()
	if s.TotalCycles == 0 {
		logger.Info("No performance data collected yet")
		return
	}

	logger.Info("Performance summary",
		"cycles", s.TotalCycles,
		"leagues_synced", s.TotalLeagues,
		"leagues_offline", s.OfflineLeagues,
		"events_refreshed", s.TotalEvents,
		"events_failed", s.FailedEvents,
		"quotes", s.TotalQuotes,
		"avg_cycle", s.AvgCycleDuration,
		"avg_league_sync", s.AvgLeagueDuration,
		"avg_event", s.AvgEventDuration)

	if t.failureRate() > 0.5 {
		logger.Warn("More than half of recent event refreshes failed", "failure_rate", t.failureRate())
	}
}

func (t *Tracker) failureRate() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.eventTimings) == 0 {
		return 0
	}
	failed := 0
	for _, et := range t.eventTimings {
		if !et.Success {
			failed++
		}
	}
	return float64(failed) / float64(len(t.eventTimings))
}
