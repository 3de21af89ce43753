package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	appLog "sportcal/internal/log"
)

// Error reports a failed acquisition. RateLimited errors are worth
// retrying within the budget; everything else aborts the run
// immediately, before any store write can happen.
type Error struct {
	Op          string
	RateLimited bool
	// RetryAfter is the reset hint supplied by the upstream source, if
	// any. Zero means the caller picks its own backoff delay.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Source produces one OCR text blob per invocation. Implementations
// wrap the acquisition chain (social-media API or web page, image
// download, OCR engine); the pipeline only ever sees the text.
type Source interface {
	Text(ctx context.Context) (string, error)
}

// Retrier wraps a Source with the bounded rate-limit retry contract:
// a fixed attempt budget, base delay plus random jitter, or the
// source's reset hint when it provides one. Non-rate-limit errors are
// surfaced on the spot.
type Retrier struct {
	Source      Source
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error
}

func NewRetrier(src Source, maxAttempts int, baseDelay, maxJitter time.Duration) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Retrier{
		Source:      src,
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxJitter:   maxJitter,
		sleep:       sleepCtx,
	}
}

// Text attempts the underlying source up to MaxAttempts times. Only
// rate-limited failures consume retries; the loop blocks the calling
// goroutine between attempts, which is fine for a one-schedule-per-run
// batch tool.
func (r *Retrier) Text(ctx context.Context) (string, error) {
	var lastErr *Error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		text, err := r.Source.Text(ctx)
		if err == nil {
			return text, nil
		}

		fe := asFetchError(err)
		if !fe.RateLimited {
			return "", fe
		}
		lastErr = fe

		if attempt == r.MaxAttempts {
			break
		}

		delay := r.BaseDelay
		if fe.RetryAfter > 0 {
			delay = fe.RetryAfter
		} else if r.MaxJitter > 0 {
			delay += time.Duration(rand.Int63n(int64(r.MaxJitter)))
		}

		appLog.Warn("rate limited, backing off",
			"op", fe.Op, "attempt", attempt, "max_attempts", r.MaxAttempts, "delay", delay)

		if err := r.sleep(ctx, delay); err != nil {
			return "", &Error{Op: fe.Op, Err: err}
		}
	}

	return "", &Error{
		Op:  lastErr.Op,
		Err: fmt.Errorf("retry budget exhausted after %d attempts: %w", r.MaxAttempts, lastErr.Err),
	}
}

func asFetchError(err error) *Error {
	if fe, ok := err.(*Error); ok {
		return fe
	}
	return &Error{Op: "source", Err: err}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
