package sniper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/linesniper/internal/pkg/performance"
	"github.com/Vodeneev/linesniper/internal/sniper/leagues"
	"github.com/Vodeneev/linesniper/internal/sniper/scheduler"
)

type fakeLeagues struct {
	calls  []string
	report leagues.Report
	err    error
}

func (f *fakeLeagues) SyncStale(context.Context, time.Time) (leagues.Report, error) {
	f.calls = append(f.calls, "leagues")
	return f.report, f.err
}

type fakeEvents struct {
	log     *[]string
	cycleID string
	result  scheduler.CycleResult
}

func (f *fakeEvents) RunCycle(_ context.Context, cycleID string, _ time.Time) (scheduler.CycleResult, error) {
	*f.log = append(*f.log, "events")
	f.cycleID = cycleID
	return f.result, nil
}

type fakeMaintenance struct {
	at  time.Time
	err error
}

func (f *fakeMaintenance) DeleteStartedEvents(_ context.Context, now time.Time) (int64, error) {
	f.at = now
	return 4, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce(t *testing.T) {
	l := &fakeLeagues{report: leagues.Report{Stale: 2, Synced: 1, Offline: 1}}
	e := &fakeEvents{log: &l.calls, result: scheduler.CycleResult{Due: 5, Quotes: 40, DrainStats: scheduler.DrainStats{Processed: 5, Succeeded: 4, Failed: 1}}}
	tracker := performance.NewTracker()

	s := New(l, e, &fakeMaintenance{}, tracker, discard())
	report, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(l.calls) != 2 || l.calls[0] != "leagues" || l.calls[1] != "events" {
		t.Errorf("stage order = %v, want [leagues events]", l.calls)
	}
	if _, err := uuid.Parse(report.CycleID); err != nil {
		t.Errorf("CycleID %q is not a uuid: %v", report.CycleID, err)
	}
	if e.cycleID != report.CycleID {
		t.Errorf("scheduler got cycle %q, report has %q", e.cycleID, report.CycleID)
	}

	snap := tracker.Snapshot()
	if snap.TotalCycles != 1 || snap.TotalLeagues != 1 || snap.OfflineLeagues != 1 ||
		snap.TotalEvents != 4 || snap.FailedEvents != 1 || snap.TotalQuotes != 40 {
		t.Errorf("tracker snapshot = %+v", snap)
	}
}

func TestRunOnceLeagueFailureStillRefreshesEvents(t *testing.T) {
	l := &fakeLeagues{err: errors.New("list leagues: connection refused")}
	e := &fakeEvents{log: &l.calls}

	_, err := New(l, e, &fakeMaintenance{}, nil, discard()).RunOnce(context.Background())
	if err == nil {
		t.Fatal("RunOnce() should report the league failure")
	}
	if len(l.calls) != 2 {
		t.Errorf("stage calls = %v, event stage skipped", l.calls)
	}
}

func TestPrepare(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	m := &fakeMaintenance{}
	s := New(&fakeLeagues{}, &fakeEvents{log: new([]string)}, m, nil, discard())
	s.now = func() time.Time { return now }

	if err := s.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if !m.at.Equal(now) {
		t.Errorf("DeleteStartedEvents called with %v, want %v", m.at, now)
	}

	m.err = errors.New("permission denied")
	if err := s.Prepare(context.Background()); err == nil {
		t.Error("Prepare() should fail when maintenance fails")
	}
}
