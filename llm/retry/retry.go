// Package retry provides bounded retry with exponential backoff for backend
// calls. Policies are failure-class aware: the classifier decides whether an
// error consumes another attempt, and exhaustion surfaces the last attempt's
// error unchanged so callers can still classify it.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/types"
)

// Policy controls the retry behavior for a class of operations.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first call.
	MaxAttempts int

	// MinWait and MaxWait bound the backoff delay between attempts.
	MinWait time.Duration
	MaxWait time.Duration

	// Multiplier grows the delay after each failed attempt.
	Multiplier float64

	// Jitter randomizes each delay by ±25% to avoid thundering herds.
	Jitter bool

	// Timeout bounds each individual attempt. Zero disables the per-attempt
	// deadline.
	Timeout time.Duration

	// Classify reports whether an error is worth another attempt. Nil falls
	// back to types.IsRetryable.
	Classify func(error) bool

	// OnRetry is invoked before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultExecutionPolicy returns the policy applied to model invocations.
func DefaultExecutionPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		MinWait:     1 * time.Second,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		Timeout:     120 * time.Second,
	}
}

// DefaultSetupPolicy returns the policy applied to client construction and
// other short control-plane calls.
func DefaultSetupPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		MinWait:     1 * time.Second,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		Timeout:     10 * time.Second,
	}
}

// Retryer executes functions under a Policy.
type Retryer struct {
	policy Policy
	logger *zap.Logger
}

// NewRetryer creates a Retryer. A nil logger disables retry logging.
func NewRetryer(policy Policy, logger *zap.Logger) *Retryer {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Classify == nil {
		policy.Classify = types.IsRetryable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retryer{policy: policy, logger: logger}
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or the
// parent context is done. Each attempt runs under its own deadline when the
// policy sets one. On exhaustion the last error is returned as is.
func (r *Retryer) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = r.attempt(ctx, fn)
		if lastErr == nil {
			return nil
		}

		if !r.policy.Classify(lastErr) {
			return lastErr
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.backoff(attempt)
		r.logger.Warn("attempt failed, backing off",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.String("error_code", string(types.GetErrorCode(lastErr))),
			zap.Error(lastErr),
		)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

func (r *Retryer) attempt(ctx context.Context, fn func(context.Context) error) error {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if r.policy.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
	}

	err := fn(attemptCtx)
	if err == nil {
		return nil
	}

	// A tripped per-attempt deadline with a live parent is a timeout, not a
	// caller cancellation.
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return types.NewError(types.ErrTimeout, "attempt deadline exceeded").
			WithRetryable(true).WithCause(err)
	}
	return err
}

func (r *Retryer) backoff(attempt int) time.Duration {
	delay := float64(r.policy.MinWait) * math.Pow(r.policy.Multiplier, float64(attempt-1))
	if max := float64(r.policy.MaxWait); delay > max {
		delay = max
	}
	if r.policy.Jitter {
		delay *= 0.75 + rand.Float64()*0.5
	}
	return time.Duration(delay)
}

// DoValue runs fn under the retryer and returns its value on success.
func DoValue[T any](ctx context.Context, r *Retryer, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}
