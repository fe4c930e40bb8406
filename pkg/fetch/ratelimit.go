package fetch

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/config"
)

// RateLimiter enforces a minimum spacing between outbound requests for one
// crawl session. A zero configured delay disables waiting entirely.
type RateLimiter struct {
	mu          sync.Mutex
	delay       time.Duration
	respect429  bool
	lastRequest time.Time
	log         *logrus.Logger
}

// NewRateLimiter creates a RateLimiter from the configured policy.
func NewRateLimiter(policy config.RateLimitPolicy, log *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		delay:      policy.DelayBetweenRequests.Duration,
		respect429: policy.ShouldRespect429(),
		log:        log,
	}
}

// WaitIfNeeded blocks until at least the configured delay has elapsed since
// the previous call, then records the current time as the last request time.
func (rl *RateLimiter) WaitIfNeeded() {
	if rl.delay <= 0 {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.lastRequest.IsZero() {
		elapsed := time.Since(rl.lastRequest)
		if elapsed < rl.delay {
			sleep := rl.delay - elapsed
			rl.log.WithField("sleep", sleep).Debug("rate_limit_wait")
			time.Sleep(sleep)
		}
	}
	rl.lastRequest = time.Now()
}

// Handle429 sleeps for a 429 response's Retry-After value when respect_429
// is set, falling back to the configured delay if the header is absent or
// unparseable. Used by callers handling 429s outside the generic retry path.
func (rl *RateLimiter) Handle429(resp *Response) {
	if !rl.respect429 || resp == nil || resp.StatusCode != 429 {
		return
	}

	if wait, ok := resp.RetryAfter(); ok {
		rl.log.WithField("retry_after", wait).Warn("rate_limit_429")
		time.Sleep(wait)
		return
	}

	rl.log.Warn("rate_limit_429_no_header")
	time.Sleep(rl.delay)
}
