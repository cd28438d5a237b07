// Package retry wraps operations in a bounded, fixed-delay retry policy.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultMaxAttempts is the number of attempts made before giving up
	DefaultMaxAttempts = 3
	// DefaultDelay is the pause between attempts
	DefaultDelay = 60 * time.Second
)

// Policy describes how an operation is retried
type Policy struct {
	// MaxAttempts bounds the number of calls to the operation, including the first
	MaxAttempts uint
	// Delay is the fixed wait between attempts
	Delay time.Duration
	// Abandon reports errors that stop retrying on first occurrence
	Abandon func(error) bool
	// OnFailure is called after every failed attempt
	OnFailure func(attempt int, err error)
}

// DefaultPolicy returns a policy with the default attempt count and delay
func DefaultPolicy(abandon func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Abandon:     abandon,
	}
}

// Operation is a single attempt. attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// Do runs op until it succeeds, returns an abandon error, exhausts the
// policy's attempts, or ctx is done. The returned error is the last
// error produced by op, unwrapped from any retry bookkeeping.
func Do(ctx context.Context, p Policy, name string, op Operation) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	attempt := 0
	_, err := backoff.Retry(ctx,
		func() (struct{}, error) {
			attempt++
			err := op(ctx, attempt)
			if err == nil {
				return struct{}{}, nil
			}
			if p.OnFailure != nil {
				p.OnFailure(attempt, err)
			}
			if p.Abandon != nil && p.Abandon(err) {
				slog.Info("Abandoning operation without retry",
					"operation", name,
					"attempt", attempt,
					"reason", err)
				return struct{}{}, backoff.Permanent(err)
			}
			slog.Warn("Operation attempt failed",
				"operation", name,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err)
			return struct{}{}, err
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithMaxElapsedTime(0),
	)
	// An abandon error on the final attempt comes back still marked permanent
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
