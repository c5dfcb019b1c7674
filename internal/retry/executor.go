// Package retry makes model calls resilient: bounded attempts with
// exponential backoff against the primary provider, then at most one
// fallback provider for the same role.
package retry

import (
	"context"
	"fmt"
	"time"

	"ideaforge/domain/core"
)

// Policy bounds one logical call. Total underlying calls never exceed
// MaxAttempts for the primary plus MaxAttempts for the fallback.
type Policy struct {
	MaxAttempts int           // attempts per provider
	BaseDelay   time.Duration // first backoff delay, doubles each retry
	MaxDelay    time.Duration // backoff cap
}

// DefaultPolicy matches the documented defaults: 3 attempts, 500ms base
// backoff capped at 8s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 8 * time.Second
	}
	return p
}

// Op is one attempt of a logical call: invoke the model and parse the
// response. Parse failures must surface as ErrMalformedResponse so the
// executor can route them to the fallback provider instead of retrying.
type Op[T any] func(ctx context.Context) (T, error)

// state of the per-call machine: attempting against the primary, or
// spending the fallback's budget. Success and exhaustion are returns.
type state int

const (
	stateAttempting state = iota
	stateFallingBack
)

// Outcome reports what one logical call cost.
type Outcome struct {
	PrimaryAttempts  int
	FallbackAttempts int
}

// Attempts is the total number of underlying provider calls.
func (o Outcome) Attempts() int { return o.PrimaryAttempts + o.FallbackAttempts }

// UsedFallback reports whether the alternate provider was invoked.
func (o Outcome) UsedFallback() bool { return o.FallbackAttempts > 0 }

// Do runs a logical call under the policy. Timeout and transient network
// errors are retried against the same provider with exponential backoff;
// ProviderRejected and MalformedResponse switch to the fallback
// immediately. A nil fallback disables the FallingBack transition. The
// returned error wraps the last underlying error kind.
func Do[T any](ctx context.Context, pol Policy, primary Op[T], fallback Op[T]) (T, Outcome, error) {
	pol = pol.normalized()

	var (
		zero    T
		out     Outcome
		lastErr error
	)

	op := primary
	st := stateAttempting
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return zero, out, fmt.Errorf("%w: %v", core.ErrTimeout, err)
		}

		attempt++
		if st == stateFallingBack {
			out.FallbackAttempts++
		} else {
			out.PrimaryAttempts++
		}

		result, err := op(ctx)
		if err == nil {
			return result, out, nil
		}
		lastErr = err

		exhaustedProvider := attempt >= pol.MaxAttempts
		if core.IsRetryable(err) && !exhaustedProvider {
			if err := sleep(ctx, backoff(pol, attempt)); err != nil {
				return zero, out, fmt.Errorf("%w: %v", core.ErrTimeout, err)
			}
			continue
		}

		// Non-retryable error, or this provider is spent: try the
		// fallback once, with its own attempt budget.
		if st == stateAttempting && fallback != nil {
			st = stateFallingBack
			op = fallback
			attempt = 0
			continue
		}

		return zero, out, fmt.Errorf("exhausted after %d attempts: %w", out.Attempts(), lastErr)
	}
}

func backoff(pol Policy, attempt int) time.Duration {
	d := pol.BaseDelay << (attempt - 1)
	if d > pol.MaxDelay || d <= 0 {
		d = pol.MaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
