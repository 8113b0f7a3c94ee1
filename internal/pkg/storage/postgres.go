package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/Vodeneev/linesniper/internal/pkg/config"
	"github.com/Vodeneev/linesniper/internal/pkg/enums"
	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore keeps leagues, events and odds histories in PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore connects, pings and creates the schema if needed.
func NewPostgresStore(ctx context.Context, cfg *config.PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{db: db, logger: logger}
	if err := s.initSchema(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("PostgreSQL store initialized successfully")
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS leagues (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		url VARCHAR(1000) NOT NULL UNIQUE,
		sport VARCHAR(50) NOT NULL,
		last_synced_at TIMESTAMPTZ NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(500) NOT NULL,
		url VARCHAR(1000) NOT NULL,
		kickoff_at TIMESTAMPTZ NOT NULL,
		league_id BIGINT NOT NULL REFERENCES leagues(id) ON DELETE CASCADE,
		last_refreshed_at TIMESTAMPTZ NULL,
		UNIQUE(name, league_id)
	);

	CREATE TABLE IF NOT EXISTS odds (
		id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		market_type VARCHAR(255) NOT NULL,
		outcome_label VARCHAR(255) NOT NULL,
		price_history NUMERIC(10, 3)[] NOT NULL DEFAULT '{}',
		watch BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(event_id, market_type, outcome_label)
	);

	CREATE INDEX IF NOT EXISTS idx_events_kickoff_at ON events(kickoff_at);
	CREATE INDEX IF NOT EXISTS idx_odds_event_id ON odds(event_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) AddLeague(ctx context.Context, name, url string, sport enums.Sport) (models.League, error) {
	query := `
	INSERT INTO leagues (name, url, sport) VALUES ($1, $2, $3)
	ON CONFLICT (url) DO UPDATE SET name = EXCLUDED.name, sport = EXCLUDED.sport
	RETURNING id, last_synced_at
	`
	l := models.League{Name: name, URL: url, Sport: sport}
	var synced sql.NullTime
	if err := s.db.QueryRowContext(ctx, query, name, url, string(sport)).Scan(&l.ID, &synced); err != nil {
		return models.League{}, fmt.Errorf("failed to add league: %w", err)
	}
	l.LastSyncedAt = nullTimePtr(synced)
	return l, nil
}

func (s *PostgresStore) ListLeagues(ctx context.Context) ([]models.League, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, url, sport, last_synced_at FROM leagues ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	defer rows.Close()

	var leagues []models.League
	for rows.Next() {
		var l models.League
		var sport string
		var synced sql.NullTime
		if err := rows.Scan(&l.ID, &l.Name, &l.URL, &sport, &synced); err != nil {
			return nil, fmt.Errorf("failed to scan league: %w", err)
		}
		l.Sport = enums.Sport(sport)
		l.LastSyncedAt = nullTimePtr(synced)
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}

func (s *PostgresStore) MarkLeagueSynced(ctx context.Context, leagueID int64, at time.Time) error {
	return s.execOne(ctx, `UPDATE leagues SET last_synced_at = $2 WHERE id = $1`, leagueID, at)
}

func (s *PostgresStore) UpsertEvents(ctx context.Context, leagueID int64, fixtures []models.Fixture) (int, error) {
	if len(fixtures) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO events (name, url, kickoff_at, league_id) VALUES ($1, $2, $3, $4)
	ON CONFLICT (name, league_id) DO UPDATE SET
		url = EXCLUDED.url,
		kickoff_at = EXCLUDED.kickoff_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare event upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range fixtures {
		if _, err := stmt.ExecContext(ctx, f.Name, f.URL, f.KickoffAt, leagueID); err != nil {
			return 0, fmt.Errorf("failed to upsert event %q: %w", f.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}
	return len(fixtures), nil
}

// ListActiveEvents returns every tracked event with its league's sport.
// Events that already started stay listed until DeleteStartedEvents runs.
func (s *PostgresStore) ListActiveEvents(ctx context.Context) ([]models.Event, error) {
	query := `
	SELECT e.id, e.name, e.url, e.kickoff_at, e.league_id, l.sport, e.last_refreshed_at
	FROM events e
	JOIN leagues l ON l.id = e.league_id
	ORDER BY e.kickoff_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var sport string
		var refreshed sql.NullTime
		if err := rows.Scan(&e.ID, &e.Name, &e.URL, &e.KickoffAt, &e.LeagueID, &sport, &refreshed); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Sport = enums.Sport(sport)
		e.LastRefreshedAt = nullTimePtr(refreshed)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) MarkEventRefreshed(ctx context.Context, eventID int64, at time.Time) error {
	return s.execOne(ctx, `UPDATE events SET last_refreshed_at = $2 WHERE id = $1`, eventID, at)
}

func (s *PostgresStore) DeleteStartedEvents(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE kickoff_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete started events: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows > 0 {
		s.logger.Info("Deleted started events", "rows_deleted", rows)
	}
	return rows, nil
}

// AppendQuotes appends each quote's price to its history in one transaction.
// Histories are never rewritten, only extended.
func (s *PostgresStore) AppendQuotes(ctx context.Context, eventID int64, quotes []models.Quote) ([]models.OddsRecord, error) {
	if len(quotes) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO odds (event_id, market_type, outcome_label, price_history)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (event_id, market_type, outcome_label) DO UPDATE SET
		price_history = odds.price_history || EXCLUDED.price_history,
		updated_at = NOW()
	RETURNING id, price_history, watch
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare odds append: %w", err)
	}
	defer stmt.Close()

	records := make([]models.OddsRecord, 0, len(quotes))
	for _, q := range quotes {
		r := models.OddsRecord{EventID: eventID, MarketType: q.MarketType, OutcomeLabel: q.Label}
		var history pq.Float64Array
		err := stmt.QueryRowContext(ctx, eventID, q.MarketType, q.Label, pq.Float64Array{q.Price}).
			Scan(&r.ID, &history, &r.Watch)
		if err != nil {
			return nil, fmt.Errorf("failed to append %s/%s: %w", q.MarketType, q.Label, err)
		}
		r.PriceHistory = []float64(history)
		records = append(records, r)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit odds: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) SetWatch(ctx context.Context, eventID int64, marketType, outcome string, watch bool) error {
	query := `UPDATE odds SET watch = $4 WHERE event_id = $1 AND market_type = $2 AND outcome_label = $3`
	return s.execOne(ctx, query, eventID, marketType, outcome, watch)
}

// ListMovers returns watch-flagged outcomes plus outcomes of events kicking off within horizon
// whose last move exceeds minShift in implied probability.
func (s *PostgresStore) ListMovers(ctx context.Context, now time.Time, horizon time.Duration, minShift float64) ([]models.Mover, error) {
	query := `
	SELECT o.id, o.event_id, o.market_type, o.outcome_label, o.price_history, o.watch,
		e.name, e.kickoff_at, l.sport
	FROM odds o
	JOIN events e ON e.id = o.event_id
	JOIN leagues l ON l.id = e.league_id
	WHERE o.watch OR (cardinality(o.price_history) >= 2 AND e.kickoff_at < $1)
	`
	rows, err := s.db.QueryContext(ctx, query, now.Add(horizon))
	if err != nil {
		return nil, fmt.Errorf("failed to list movers: %w", err)
	}
	defer rows.Close()

	var candidates []models.Mover
	for rows.Next() {
		var m models.Mover
		var history pq.Float64Array
		if err := rows.Scan(&m.ID, &m.EventID, &m.MarketType, &m.OutcomeLabel, &history, &m.Watch,
			&m.EventName, &m.KickoffAt, &m.Sport); err != nil {
			return nil, fmt.Errorf("failed to scan mover: %w", err)
		}
		m.PriceHistory = []float64(history)
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return SelectMovers(candidates, minShift), nil
}

// SelectMovers keeps watch-flagged candidates and those whose last probability shift exceeds
// minShift, ordered watch first then by shift size.
func SelectMovers(candidates []models.Mover, minShift float64) []models.Mover {
	out := make([]models.Mover, 0, len(candidates))
	for _, m := range candidates {
		if m.Watch || math.Abs(m.ProbShift()) > minShift {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Watch != out[j].Watch {
			return out[i].Watch
		}
		return math.Abs(out[i].ProbShift()) > math.Abs(out[j].ProbShift())
	})
	return out
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
