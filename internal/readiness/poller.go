package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrNotReady = errors.New("service not ready")

	// ErrUnbounded is returned by Wait when the poller has no timeout or no
	// interval, since it would either never give up or spin on the probe.
	ErrUnbounded = errors.New("readiness poller needs a positive interval and timeout")

	errProbeFailed = errors.New("probe failed")
)

// Poller checks a probe at a fixed interval until it succeeds or the timeout
// elapses.
type Poller struct {
	probe    Probe
	interval time.Duration
	timeout  time.Duration
	timer    backoff.Timer
}

func NewPoller(probe Probe, interval, timeout time.Duration) *Poller {
	return &Poller{probe: probe, interval: interval, timeout: timeout}
}

func (p *Poller) WithTimer(t backoff.Timer) *Poller {
	p.timer = t
	return p
}

// Wait blocks until the probe succeeds or the timeout elapses. It returns the
// number of checks made.
func (p *Poller) Wait(ctx context.Context) (int, error) {
	if p.interval <= 0 || p.timeout <= 0 {
		return 0, fmt.Errorf("%w: interval %s, timeout %s", ErrUnbounded, p.interval, p.timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	checks := 0
	var lastErr error

	err := backoff.RetryNotifyWithTimer(func() error {
		checks++
		lastErr = p.probe.Check(ctx)
		return lastErr
	}, backoff.WithContext(backoff.NewConstantBackOff(p.interval), ctx), func(err error, next time.Duration) {
		slog.Debug("service not ready yet", "probe", p.probe.String(), "check", checks, "error", err)
	}, p.timer)

	if err != nil {
		if lastErr == nil {
			lastErr = errProbeFailed
		}
		return checks, fmt.Errorf("%w: %s after %d checks in %s: %w", ErrNotReady, p.probe.String(), checks, time.Since(start).Round(time.Millisecond), lastErr)
	}

	slog.Info("service is ready", "probe", p.probe.String(), "checks", checks, "waited", time.Since(start).Round(time.Millisecond))
	return checks, nil
}

// Settle waits for a fixed period. It is the legacy alternative to polling.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
