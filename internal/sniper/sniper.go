// Package sniper runs one full refresh cycle: stale leagues first, then due events.
package sniper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/linesniper/internal/pkg/performance"
	"github.com/Vodeneev/linesniper/internal/sniper/leagues"
	"github.com/Vodeneev/linesniper/internal/sniper/scheduler"
)

// LeagueSyncer re-syncs leagues whose fixture lists are stale.
type LeagueSyncer interface {
	SyncStale(ctx context.Context, now time.Time) (leagues.Report, error)
}

// EventRefresher refreshes every due event once.
type EventRefresher interface {
	RunCycle(ctx context.Context, cycleID string, now time.Time) (scheduler.CycleResult, error)
}

// Maintenance removes events that already kicked off.
type Maintenance interface {
	DeleteStartedEvents(ctx context.Context, now time.Time) (int64, error)
}

// CycleReport is what one RunOnce call did.
type CycleReport struct {
	CycleID  string                `json:"cycle_id"`
	Leagues  leagues.Report        `json:"leagues"`
	Events   scheduler.CycleResult `json:"events"`
	Duration time.Duration         `json:"duration"`
}

type Sniper struct {
	leagues     LeagueSyncer
	events      EventRefresher
	maintenance Maintenance
	tracker     *performance.Tracker
	logger      *slog.Logger
	now         func() time.Time
}

func New(l LeagueSyncer, e EventRefresher, m Maintenance, tracker *performance.Tracker, logger *slog.Logger) *Sniper {
	return &Sniper{
		leagues:     l,
		events:      e,
		maintenance: m,
		tracker:     tracker,
		logger:      logger,
		now:         time.Now,
	}
}

// Prepare deletes events whose kickoff has passed. Run it once at start-up.
func (s *Sniper) Prepare(ctx context.Context) error {
	n, err := s.maintenance.DeleteStartedEvents(ctx, s.now())
	if err != nil {
		return fmt.Errorf("delete started events: %w", err)
	}
	s.logger.Info("Start-up maintenance done", "deleted_events", n)
	return nil
}

// RunOnce syncs stale leagues, then rebuilds and drains the event queue. It returns only after
// every task of the cycle finished. A failing stage is reported but does not skip the other.
func (s *Sniper) RunOnce(ctx context.Context) (CycleReport, error) {
	start := s.now()
	report := CycleReport{CycleID: uuid.NewString()}
	log := s.logger.With("cycle_id", report.CycleID)

	var errs []error
	lr, err := s.leagues.SyncStale(ctx, start)
	if err != nil {
		log.Error("League sync failed", "error", err)
		errs = append(errs, err)
	}
	report.Leagues = lr
	leaguesDone := s.now()

	er, err := s.events.RunCycle(ctx, report.CycleID, leaguesDone)
	if err != nil {
		log.Error("Event refresh failed", "error", err)
		errs = append(errs, err)
	}
	report.Events = er
	report.Duration = s.now().Sub(start)

	if s.tracker != nil {
		s.tracker.RecordCycle(performance.CycleStats{
			CycleID:         report.CycleID,
			StartedAt:       start,
			LeaguesSynced:   lr.Synced,
			LeaguesOffline:  lr.Offline,
			EventsRefreshed: er.Succeeded,
			EventsFailed:    er.Failed,
			QuotesStored:    er.Quotes,
			LeagueDuration:  leaguesDone.Sub(start),
			RefreshDuration: report.Duration - leaguesDone.Sub(start),
			TotalDuration:   report.Duration,
		})
	}

	log.Info("Cycle finished",
		"leagues_synced", lr.Synced, "events_due", er.Due, "events_refreshed", er.Succeeded,
		"events_failed", er.Failed, "duration", report.Duration)
	return report, errors.Join(errs...)
}
