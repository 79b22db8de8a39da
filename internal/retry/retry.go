package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrExhausted = errors.New("retry attempts exhausted")

// Policy is a bounded retry with a constant delay between attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Notify is called before each retry with the attempt that just failed
// (1-based), its error and the delay until the next attempt.
type Notify func(attempt int, err error, next time.Duration)

type Retrier struct {
	policy Policy
	timer  backoff.Timer
}

func New(policy Policy) *Retrier {
	return &Retrier{policy: policy}
}

// WithTimer replaces the wall-clock timer used between attempts.
func (r *Retrier) WithTimer(t backoff.Timer) *Retrier {
	return &Retrier{policy: r.policy, timer: t}
}

func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs op until it succeeds, returns a permanent error, the context is
// cancelled or MaxAttempts is reached. It returns the number of attempts made.
// On exhaustion the returned error wraps both ErrExhausted and the last error.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error, notify Notify) (int, error) {
	maxAttempts := max(r.policy.MaxAttempts, 1)

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.policy.Delay), uint64(maxAttempts-1)),
		ctx,
	)

	attempts := 0
	var lastErr error
	operation := func() error {
		attempts++
		lastErr = op(ctx)
		return lastErr
	}

	onRetry := func(err error, next time.Duration) {
		if notify != nil {
			notify(attempts, err, next)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, b, onRetry, r.timer)
	if err == nil {
		return attempts, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return attempts, fmt.Errorf("retry cancelled after %d attempts: %w", attempts, err)
	}

	var permanent *backoff.PermanentError
	if errors.As(lastErr, &permanent) {
		return attempts, err
	}

	return attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
