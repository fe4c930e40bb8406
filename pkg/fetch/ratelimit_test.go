package fetch

import (
	"net/http"
	"testing"
	"time"

	"sitemap-crawler/pkg/config"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestWaitIfNeeded_EnforcesSpacing(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitPolicy{
		DelayBetweenRequests: config.Duration{Duration: 200 * time.Millisecond},
	}, testLogger())

	rl.WaitIfNeeded()
	start := time.Now()
	rl.WaitIfNeeded()
	elapsed := time.Since(start)

	if elapsed < 200*time.Millisecond {
		t.Errorf("expected at least 200ms between calls, got %v", elapsed)
	}
}

func TestWaitIfNeeded_ZeroDelayNoWait(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitPolicy{}, testLogger())

	start := time.Now()
	rl.WaitIfNeeded()
	rl.WaitIfNeeded()
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no wait with zero delay, got %v", elapsed)
	}
}

func TestHandle429_SleepsForRetryAfter(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitPolicy{
		DelayBetweenRequests: config.Duration{Duration: 10 * time.Millisecond},
		Respect429:           boolPtr(true),
	}, testLogger())

	header := http.Header{}
	header.Set("Retry-After", "0")
	resp := &Response{StatusCode: 429, Header: header}

	// Retry-After: 0 should return promptly rather than use the fallback delay
	start := time.Now()
	rl.Handle429(resp)
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected immediate return for Retry-After 0, got %v", elapsed)
	}
}

func TestHandle429_DisabledIsNoop(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitPolicy{
		DelayBetweenRequests: config.Duration{Duration: 500 * time.Millisecond},
		Respect429:           boolPtr(false),
	}, testLogger())

	resp := &Response{StatusCode: 429, Header: http.Header{}}

	start := time.Now()
	rl.Handle429(resp)
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no sleep when respect_429 is off, got %v", elapsed)
	}
}

func TestHandle429_IgnoresOtherStatuses(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitPolicy{
		DelayBetweenRequests: config.Duration{Duration: 500 * time.Millisecond},
		Respect429:           boolPtr(true),
	}, testLogger())

	start := time.Now()
	rl.Handle429(&Response{StatusCode: 200, Header: http.Header{}})
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no sleep for non-429 response, got %v", elapsed)
	}
}
