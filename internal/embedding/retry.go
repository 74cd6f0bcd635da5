package embedding

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxRetries is how many extra attempts HTTP providers make.
const DefaultMaxRetries = 2

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 10 * time.Second
)

// RetryableError is a 429 or 5xx reply from an embedding service.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // from the Retry-After header, 0 if absent
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("embedding service returned %d: %s", e.StatusCode, clip(e.Message, 200))
}

// IsRetryable reports whether err wraps a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff doubles from 500ms per attempt (0-indexed), capped at 10s, plus
// up to 50% jitter.
func Backoff(attempt int) time.Duration {
	d := backoffCap
	if attempt < 5 {
		d = min(backoffBase<<attempt, backoffCap)
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}

// withRetry calls fn until it succeeds, fails with a non-retryable error or
// has been retried maxRetries times. A server's Retry-After wins over a
// shorter backoff.
func withRetry[T any](ctx context.Context, maxRetries int, backoff func(int) time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		var re *RetryableError
		if !errors.As(err, &re) || attempt >= maxRetries {
			return zero, err
		}
		wait := max(backoff(attempt), re.RetryAfter)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
}

// parseRetryAfter reads a delay-seconds Retry-After value. HTTP dates are
// ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, time.Minute)
}

// clip shortens s to at most n runes for error messages.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
