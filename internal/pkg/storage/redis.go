package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/linesniper/internal/pkg/config"
	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

// StreamPublisher pushes every refreshed price to a per-sport Redis stream
// so downstream consumers can follow line movement without polling PostgreSQL.
type StreamPublisher struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// PriceUpdate is the payload of one stream entry.
type PriceUpdate struct {
	CycleID    string    `json:"cycle_id"`
	EventID    int64     `json:"event_id"`
	EventName  string    `json:"event_name"`
	KickoffAt  time.Time `json:"kickoff_at"`
	MarketType string    `json:"market_type"`
	Outcome    string    `json:"outcome"`
	Price      float64   `json:"price"`
	Previous   float64   `json:"previous,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

func NewStreamPublisher(ctx context.Context, cfg *config.RedisConfig, logger *slog.Logger) (*StreamPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &StreamPublisher{client: client, prefix: cfg.StreamPrefix, logger: logger}, nil
}

// ObserveCapture publishes the capture's current prices in a single pipeline.
func (p *StreamPublisher) ObserveCapture(ctx context.Context, c models.Capture) error {
	updates := PriceUpdates(c)
	if len(updates) == 0 {
		return nil
	}

	stream := StreamKey(p.prefix, string(c.Event.Sport))
	pipe := p.client.Pipeline()
	for _, u := range updates {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("failed to marshal price update: %w", err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			MaxLen: 100000,
			Approx: true,
			Values: map[string]interface{}{"data": data},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}

	p.logger.Debug("Published price updates", "stream", stream, "count", len(updates), "event", c.Event.Name)
	return nil
}

func (p *StreamPublisher) Close() error {
	return p.client.Close()
}

// StreamKey returns the stream name for a sport, e.g. "odds.prices.soccer".
func StreamKey(prefix, sport string) string {
	return prefix + "." + strings.ToLower(strings.ReplaceAll(strings.TrimSpace(sport), " ", "_"))
}

// PriceUpdates flattens a capture into one update per record with a current price.
func PriceUpdates(c models.Capture) []PriceUpdate {
	out := make([]PriceUpdate, 0, len(c.Records))
	for _, r := range c.Records {
		cur, ok := r.Current()
		if !ok {
			continue
		}
		prev, _ := r.Previous()
		out = append(out, PriceUpdate{
			CycleID:    c.CycleID,
			EventID:    c.Event.ID,
			EventName:  c.Event.Name,
			KickoffAt:  c.Event.KickoffAt,
			MarketType: r.MarketType,
			Outcome:    r.OutcomeLabel,
			Price:      cur,
			Previous:   prev,
			CapturedAt: c.CapturedAt,
		})
	}
	return out
}
