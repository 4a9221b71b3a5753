// Package retry wraps failure-prone operations with bounded, classified
// retry. Policies are explicit values passed at each call site rather than
// ambient configuration, so every operation keeps control of its own attempt
// budget and tests can observe behavior precisely.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Class partitions errors into those worth retrying unchanged and those that
// require different input or operator action first.
type Class int

const (
	// ClassTransient marks errors that are safe to retry as-is: connection
	// resets, timeouts, serialization failures.
	ClassTransient Class = iota
	// ClassFatal marks errors retrying cannot fix: constraint violations,
	// validation failures, structural mismatches.
	ClassFatal
)

// Classifier decides the retry class of an error.
type Classifier func(error) Class

// Policy describes one operation's retry behavior.
type Policy struct {
	// MaxAttempts bounds the total number of attempts, including the first.
	MaxAttempts int
	// InitialInterval seeds the exponential backoff schedule.
	InitialInterval time.Duration
	// MaxInterval caps the delay between attempts.
	MaxInterval time.Duration
	// Classify decides whether a failure is retried. A nil classifier
	// treats every error as fatal.
	Classify Classifier
}

// DefaultPolicy mirrors the loader's standard budget: three attempts with
// jittered exponential backoff starting at one second.
func DefaultPolicy(classify Classifier) Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Classify:        classify,
	}
}

// Do runs op, retrying transient failures according to the policy. Fatal
// errors and context cancellation propagate immediately. The returned error
// is the last attempt's error, unwrapped from any retry bookkeeping.
func Do(ctx context.Context, p Policy, op func(context.Context) error) error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy requires at least one attempt")
	}

	sched := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		sched.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		sched.MaxInterval = p.MaxInterval
	}
	sched.Reset()

	wrapped := backoff.WithContext(
		backoff.WithMaxRetries(sched, uint64(p.MaxAttempts-1)), ctx)

	return backoff.Retry(func() error {
		if err := op(ctx); err != nil {
			if p.Classify == nil || p.Classify(err) == ClassFatal {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}, wrapped)
}
