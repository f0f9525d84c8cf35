// Package retry applies bounded attempt budgets to remote workflow steps.
package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy is the attempt budget for one workflow step. MaxAttempts counts the
// first attempt, so a policy of 6 fails permanently on the 6th consecutive
// failure. Backoff is the fixed pause between attempts; zero retries
// immediately.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Once is a policy that never retries.
var Once = Policy{MaxAttempts: 1}

// Attempts returns the budget as used by Do; anything below one counts as one.
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn until it succeeds or the budget is spent. The error of the last
// attempt is returned unchanged. Context cancellation stops the loop between
// attempts and returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := goretry.WithMaxRetries(uint64(p.Attempts()-1), p.backoff())
	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return goretry.RetryableError(err)
		}
		return nil
	})
}

func (p Policy) backoff() goretry.Backoff {
	if p.Backoff > 0 {
		return goretry.NewConstant(p.Backoff)
	}
	return goretry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})
}
