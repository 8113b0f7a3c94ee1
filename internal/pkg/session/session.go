package session

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Driver is one stateful browser connection. All waits are bounded by the driver;
// a selector that never appears yields an *ElementNotFoundError.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, script string) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	Close() error
}

// Session is a pooled driver. It is only valid between Acquire and Release.
type Session struct {
	id      int
	driver  Driver
	limiter *rate.Limiter
	held    bool
}

// ID identifies the session in logs.
func (s *Session) ID() int { return s.id }

// Navigate loads url, waiting for the shared navigation limiter first.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("navigation limiter: %w", err)
		}
	}
	return s.driver.Navigate(ctx, url)
}

func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	return s.driver.WaitVisible(ctx, selector)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.driver.Click(ctx, selector)
}

func (s *Session) Evaluate(ctx context.Context, script string) error {
	return s.driver.Evaluate(ctx, script)
}

func (s *Session) OuterHTML(ctx context.Context, selector string) (string, error) {
	return s.driver.OuterHTML(ctx, selector)
}

// NewNavigationLimiter returns a limiter allowing perMinute page loads across all sessions,
// or nil when perMinute is not positive.
func NewNavigationLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
}
