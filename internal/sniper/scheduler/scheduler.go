// Package scheduler decides which events are due for a price refresh and drains them
// through the session pool, closest to kickoff first.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
	"github.com/Vodeneev/linesniper/internal/pkg/performance"
	"github.com/Vodeneev/linesniper/internal/pkg/session"
	"github.com/Vodeneev/linesniper/internal/sniper/markets"
)

// Store is the persistence the scheduler needs.
type Store interface {
	ListActiveEvents(ctx context.Context) ([]models.Event, error)
	AppendQuotes(ctx context.Context, eventID int64, quotes []models.Quote) ([]models.OddsRecord, error)
	MarkEventRefreshed(ctx context.Context, eventID int64, at time.Time) error
}

// Extractor captures the tracked markets of one event page.
type Extractor interface {
	Capture(ctx context.Context, page markets.Page, event models.Event, cfg models.SportConfig) ([]models.Quote, error)
}

// Observer is notified after an event's prices were stored. Observer errors are logged only.
type Observer interface {
	ObserveCapture(ctx context.Context, c models.Capture) error
}

// CycleResult summarises one RunCycle call.
type CycleResult struct {
	Events    int `json:"events"`
	Due       int `json:"due"`
	Untracked int `json:"untracked"`
	Quotes    int `json:"quotes"`
	DrainStats
}

type Scheduler struct {
	pool      *session.Pool
	store     Store
	extractor Extractor
	sports    models.SportSet
	observers []Observer
	tracker   *performance.Tracker
	logger    *slog.Logger
	now       func() time.Time
}

func New(pool *session.Pool, store Store, extractor Extractor, sports models.SportSet, tracker *performance.Tracker, logger *slog.Logger, observers ...Observer) *Scheduler {
	return &Scheduler{
		pool:      pool,
		store:     store,
		extractor: extractor,
		sports:    sports,
		observers: observers,
		tracker:   tracker,
		logger:    logger,
		now:       time.Now,
	}
}

// RunCycle rebuilds the queue from the current events and drains it with one worker per
// pooled session. It returns after every task has finished.
func (s *Scheduler) RunCycle(ctx context.Context, cycleID string, now time.Time) (CycleResult, error) {
	events, err := s.store.ListActiveEvents(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("list events: %w", err)
	}

	q, untracked := Build(events, s.sports, now)
	res := CycleResult{Events: len(events), Due: q.Len(), Untracked: untracked}
	if res.Due == 0 {
		return res, nil
	}

	var quotes atomic.Int64
	res.DrainStats = Drain(ctx, q, s.pool.Capacity(), func(ctx context.Context, t Task) error {
		n, err := s.refresh(ctx, cycleID, t)
		quotes.Add(int64(n))
		return err
	})
	res.Quotes = int(quotes.Load())

	s.logger.Info("Event refresh finished",
		"cycle_id", cycleID, "due", res.Due, "refreshed", res.Succeeded,
		"failed", res.Failed, "quotes", res.Quotes)
	return res, nil
}

// refresh captures, stores and publishes one event. The event's timestamp only moves
// forward when every step up to storage succeeded.
func (s *Scheduler) refresh(ctx context.Context, cycleID string, t Task) (int, error) {
	start := time.Now()
	log := s.logger.With("event_id", t.Event.ID, "event", t.Event.Name)

	var quotes []models.Quote
	err := s.pool.WithSession(ctx, func(sess *session.Session) error {
		var err error
		quotes, err = s.extractor.Capture(ctx, sess, t.Event, t.Sport)
		return err
	})
	if err != nil {
		log.Warn("Event capture failed", "error", err)
		s.record(t, 0, start, err)
		return 0, err
	}

	records, err := s.store.AppendQuotes(ctx, t.Event.ID, quotes)
	if err != nil {
		log.Error("Failed to store quotes", "error", err)
		s.record(t, 0, start, err)
		return 0, err
	}

	capture := models.Capture{CycleID: cycleID, Event: t.Event, Records: records, CapturedAt: s.now()}
	for _, o := range s.observers {
		if err := o.ObserveCapture(ctx, capture); err != nil {
			log.Warn("Capture observer failed", "error", err)
		}
	}

	if err := s.store.MarkEventRefreshed(ctx, t.Event.ID, capture.CapturedAt); err != nil {
		log.Error("Failed to mark event refreshed", "error", err)
		s.record(t, len(quotes), start, err)
		return len(quotes), err
	}

	log.Debug("Event refreshed", "quotes", len(quotes), "priority", t.Priority, "duration", time.Since(start))
	s.record(t, len(quotes), start, nil)
	return len(quotes), nil
}

func (s *Scheduler) record(t Task, quotes int, start time.Time, err error) {
	if s.tracker != nil {
		s.tracker.RecordEvent(t.Event.ID, quotes, time.Since(start), err)
	}
}
