package db

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/logging"
	"github.com/sethvargo/go-retry"
)

// Prober is anything that can do a cheap connectivity round trip.
type Prober interface {
	Ping(ctx context.Context) error
}

// BootstrapOptions describe the startup retry policy: at most MaxAttempts
// probes, waiting BaseDelay, BaseDelay*Factor, BaseDelay*Factor^2, ...
// between them.
type BootstrapOptions struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	Factor       float64
	ProbeTimeout time.Duration
}

func DefaultBootstrapOptions() BootstrapOptions {
	return BootstrapOptions{
		MaxAttempts:  5,
		BaseDelay:    time.Second,
		Factor:       2,
		ProbeTimeout: 5 * time.Second,
	}
}

func (o BootstrapOptions) withDefaults() BootstrapOptions {
	d := DefaultBootstrapOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = d.BaseDelay
	}
	if o.Factor <= 1 {
		o.Factor = d.Factor
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = d.ProbeTimeout
	}
	return o
}

// Bootstrap blocks until p answers or the attempts run out. Failure is
// fatal for the caller: it wraps common.ErrBootstrapFailed. Only the startup
// goroutine ever sleeps here.
func Bootstrap(ctx context.Context, p Prober, opts BootstrapOptions, logger logging.Logger) error {
	opts = opts.withDefaults()

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(opts.MaxAttempts-1), exponentialBackoff(opts.BaseDelay, opts.Factor, func(d time.Duration) {
		logger.Info(ctx, "retrying database probe", "next_attempt", attempt+1, "delay", d)
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		pctx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
		defer cancel()

		if err := p.Ping(pctx); err != nil {
			logger.Warn(ctx, "database probe failed", "attempt", attempt, "max_attempts", opts.MaxAttempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.Error(ctx, "database unreachable, giving up", "attempts", attempt, "error", err)
		return fmt.Errorf("%w after %d attempts: %w", common.ErrBootstrapFailed, attempt, err)
	}

	logger.Info(ctx, "database reachable", "attempt", attempt)
	return nil
}

// exponentialBackoff never stops on its own; WithMaxRetries bounds it.
func exponentialBackoff(base time.Duration, factor float64, onDelay func(time.Duration)) retry.Backoff {
	next := base
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d := next
		next = time.Duration(float64(next) * factor)
		if onDelay != nil {
			onDelay(d)
		}
		return d, false
	})
}
