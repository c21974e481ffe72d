// Package retry holds the single retry policy shared by date resolution and
// date sync.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how often and how patiently an operation is retried
type Policy struct {
	MaxAttempts int           // total attempts, including the first; < 1 means 1
	Delay       time.Duration // wait before the first retry
	Factor      float64       // multiplier applied to Delay after each retry
}

// None runs an operation exactly once
var None = Policy{MaxAttempts: 1}

// Default matches the async-operation hook behaviour: one retry after a second
var Default = Policy{MaxAttempts: 2, Delay: time.Second, Factor: 2}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	factor := p.Factor
	if factor < 1 {
		factor = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Delay
	exp.Multiplier = factor
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Hour
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a Permanent error, the attempts are
// used up, or ctx is done. The last error from op is returned.
func (p Policy) Do(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return backoff.Retry(op, p.backOff(ctx))
}
