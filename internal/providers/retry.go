package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"
)

// ErrUpstreamUnavailable marks failures where the LLM backend could not be
// reached or refused the credentials. Callers map it to a retryable 503.
var ErrUpstreamUnavailable = errors.New("llm upstream unavailable")

// HTTPError is a non-200 response from a provider API.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Is reports auth failures, throttling and server errors as ErrUpstreamUnavailable.
func (e *HTTPError) Is(target error) bool {
	if target != ErrUpstreamUnavailable {
		return false
	}
	return e.Status == http.StatusUnauthorized ||
		e.Status == http.StatusForbidden ||
		e.Status == http.StatusTooManyRequests ||
		e.Status >= 500
}

// RetryConfig controls RetryDo backoff.
type RetryConfig struct {
	Attempts int           // total tries including the first (min 1)
	MinDelay time.Duration // first backoff
	MaxDelay time.Duration // backoff cap
	Jitter   float64       // 0..1 fraction of the delay randomized
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 3,
		MinDelay: 500 * time.Millisecond,
		MaxDelay: 8 * time.Second,
		Jitter:   0.2,
	}
}

// IsRetryableError reports whether err is worth another attempt:
// 429, 5xx and transport errors. Auth errors and 4xx are final.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == http.StatusTooManyRequests || httpErr.Status >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, errTransport)
}

// errTransport tags request failures that never produced an HTTP status.
var errTransport = errors.New("transport error")

// RetryDo runs fn until it succeeds, returns a final error, or attempts run out.
// Transport failures that survive every attempt are reported as ErrUpstreamUnavailable.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryableError(err) || attempt == attempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.RetryAfter > delay {
			delay = httpErr.RetryAfter
		}
		slog.Debug("provider request failed, retrying", "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	if errors.Is(lastErr, errTransport) && !errors.Is(lastErr, ErrUpstreamUnavailable) {
		return zero, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, lastErr)
	}
	return zero, lastErr
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.MinDelay << (attempt - 1)
	if cfg.MaxDelay > 0 && (delay > cfg.MaxDelay || delay <= 0) {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter > 0 {
		spread := float64(delay) * cfg.Jitter
		delay += time.Duration(spread * (rand.Float64()*2 - 1))
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
