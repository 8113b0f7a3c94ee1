package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Vodeneev/linesniper/internal/pkg/config"
)

type chromeDriver struct {
	id          int
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
}

// NewChromeFactory returns a Factory that starts one Chrome instance per session.
func NewChromeFactory(cfg config.BrowserConfig, logger *slog.Logger) Factory {
	return func(_ context.Context, id int) (Driver, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.UserAgent(cfg.UserAgent),
		)
		if cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
		}

		// The browser outlives the caller's context; it is stopped by Close.
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
			logger.Debug(fmt.Sprintf("chromedp: "+format, v...), "session", id)
		}))

		// First Run starts the browser so a broken install fails here, not mid-cycle.
		if err := chromedp.Run(browserCtx); err != nil {
			cancel()
			allocCancel()
			return nil, fmt.Errorf("start browser: %w", err)
		}

		logger.Debug("Browser session started", "session", id)
		return &chromeDriver{
			id:          id,
			ctx:         browserCtx,
			cancel:      cancel,
			allocCancel: allocCancel,
			timeout:     cfg.WaitTimeout,
		}, nil
	}
}

// run executes actions bounded by the driver timeout. The caller's ctx can cut it short.
func (d *chromeDriver) run(ctx context.Context, selector string, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		if selector == "" {
			return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		return &ElementNotFoundError{Selector: selector, Err: err}
	}
	return err
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, "", chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (d *chromeDriver) WaitVisible(ctx context.Context, selector string) error {
	return d.run(ctx, selector, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (d *chromeDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, selector, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (d *chromeDriver) Evaluate(ctx context.Context, script string) error {
	return d.run(ctx, "", chromedp.Evaluate(script, nil))
}

func (d *chromeDriver) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := d.run(ctx, selector, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (d *chromeDriver) Close() error {
	err := chromedp.Cancel(d.ctx)
	d.cancel()
	d.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser %d: %w", d.id, err)
	}
	return nil
}
