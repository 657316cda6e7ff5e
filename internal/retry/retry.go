package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is wrapped into the error returned once every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds an operation to Attempts tries with a fixed Delay between them.
type Policy struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// Once is a policy that makes a single attempt.
var Once = Policy{Attempts: 1}

// Sleeper pauses between attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// WallSleeper sleeps on the real clock and wakes early on cancellation.
type WallSleeper struct{}

func (WallSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Options tunes a single Do call.
type Options struct {
	Sleeper Sleeper
	// OnRetry runs after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Do runs op until it succeeds, returns a Permanent error, or the policy runs
// out of attempts. Attempts are numbered from 1. A policy with fewer than one
// attempt still runs op once.
func Do(ctx context.Context, p Policy, opts Options, op func(attempt int) error) error {
	_, err := Value(ctx, p, opts, func(attempt int) (struct{}, error) {
		return struct{}{}, op(attempt)
	})
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, opts Options, op func(attempt int) (T, error)) (T, error) {
	var zero T
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = WallSleeper{}
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		v, err := op(i)
		if err == nil {
			return v, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err
		if i == attempts {
			break
		}
		if opts.OnRetry != nil {
			opts.OnRetry(i, err)
		}
		if serr := sleeper.Sleep(ctx, p.Delay); serr != nil {
			return zero, fmt.Errorf("retry interrupted after attempt %d: %w", i, errors.Join(serr, lastErr))
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
