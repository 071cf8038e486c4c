package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Retrier repeats a failing operation with exponential backoff
type Retrier struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Fatal, when set, stops retrying immediately (e.g. once a credential was rejected)
	Fatal func() bool

	sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op until it succeeds, fails for good, or MaxRetries retries were spent.
// what is only used for logging.
func (r Retrier) Do(ctx context.Context, what string, op func() error) error {
	var err error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := r.delay(attempt, err)
			log.Warn().Err(err).Str("op", what).Int("attempt", attempt).Dur("wait", wait).Msg("Retrying upstream request")
			if serr := r.doSleep(ctx, wait); serr != nil {
				return serr
			}
		}
		err = op()
		if err == nil {
			return nil
		}
		if !r.retryable(ctx, err) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", what, ErrRetriesExhausted, err)
}

func (r Retrier) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrUnauthorized) || (r.Fatal != nil && r.Fatal()) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	// Network errors and malformed bodies
	return true
}

// delay doubles the backoff on each attempt, honours Retry-After, and stays under MaxBackoff
func (r Retrier) delay(attempt int, err error) time.Duration {
	base := r.Backoff
	if base <= 0 {
		base = time.Second
	}
	shift := attempt - 1
	if shift > 10 {
		shift = 10
	}
	wait := base * time.Duration(1<<shift)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > wait {
		wait = statusErr.RetryAfter
	}
	if r.MaxBackoff > 0 && wait > r.MaxBackoff {
		wait = r.MaxBackoff
	}
	return wait
}

func (r Retrier) doSleep(ctx context.Context, d time.Duration) error {
	if r.sleep != nil {
		return r.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
