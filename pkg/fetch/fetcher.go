package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/config"
	"sitemap-crawler/pkg/utils"
)

// Response is the outcome of one HTTP attempt that produced a server reply.
// The body has been fully read and the connection released.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// RetryAfter returns the response's Retry-After header as a duration.
// Only integer-second values are understood; HTTP-date forms report false.
func (r *Response) RetryAfter() (time.Duration, bool) {
	raw := r.Header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// Fetcher performs HTTP GETs with configured headers, and wraps them with
// the retry policy for manifest and sub-sitemap fetches.
type Fetcher struct {
	client  *http.Client
	httpCfg config.HTTPConfig
	retry   config.RetryPolicy
	log     *logrus.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client *http.Client, httpCfg config.HTTPConfig, retry config.RetryPolicy, log *logrus.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		httpCfg: httpCfg,
		retry:   retry,
		log:     log,
	}
}

// Do performs a single GET attempt. A *Response is returned for any HTTP
// reply, including non-2xx; err is non-nil only for transport-level
// failures (DNS, TCP, TLS, timeout) or request construction problems.
func (f *Fetcher) Do(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", f.httpCfg.UserAgent)
	req.Header.Set("Accept", f.httpCfg.Accept)
	req.Header.Set("Accept-Encoding", f.httpCfg.AcceptEncoding)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrResponseBodyRead, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// DoWithRetry performs a GET with retry-and-backoff semantics.
//
// Connection and timeout errors are always retryable. Non-2xx statuses are
// retryable only when listed in retry_on_status; any other status fails
// immediately. The backoff for attempt i is
// min(initial * multiplier^i, max), unless the failed response carried a
// Retry-After hint, in which case min(retry_after, max) is used. After
// max_retries retries the last error is returned wrapped in ErrRetryFailed.
func (f *Fetcher) DoWithRetry(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error
	var lastResp *Response

	reqLog := f.log.WithField("url", rawURL)
	maxRetries := f.retry.RetryCount()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Back off before retry attempts, not before the first one
		if attempt > 0 {
			delay := f.backoffDelay(attempt-1, lastResp)
			reqLog.WithFields(logrus.Fields{
				"attempt":     attempt,
				"max_retries": maxRetries,
				"backoff":     delay,
			}).Warn("request_retry")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				if lastErr != nil {
					return nil, fmt.Errorf("context cancelled (%v) during retry backoff after error: %w", ctx.Err(), lastErr)
				}
				return nil, ctx.Err()
			}
		}

		resp, err := f.Do(ctx, rawURL)

		// Transport-level failure
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if errors.Is(err, utils.ErrRequestCreation) {
				return nil, err // malformed URL, retrying cannot help
			}
			reqLog.WithField("attempt", attempt).Warnf("Network error: %v", err)
			lastErr = err
			lastResp = nil
			continue
		}

		// 2xx success
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		statusErr := wrapStatusError(resp)
		if !f.retryableStatus(resp.StatusCode) {
			reqLog.WithFields(logrus.Fields{
				"status_code": resp.StatusCode,
				"attempt":     attempt,
			}).Warn("request_not_retryable")
			return resp, statusErr
		}

		reqLog.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"attempt":     attempt,
		}).Warn("Retryable status, retrying...")
		lastErr = statusErr
		lastResp = resp
	}

	reqLog.WithField("attempts", maxRetries+1).Errorf("All fetch retries failed. Last error: %v", lastErr)
	if lastErr == nil {
		return nil, utils.ErrRetryFailed
	}
	return lastResp, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

// backoffDelay computes the sleep before the retry following failed attempt
// index i (0-based). A server Retry-After hint overrides the exponential
// schedule; both are capped at max_backoff.
func (f *Fetcher) backoffDelay(i int, failed *Response) time.Duration {
	maxBackoff := f.retry.MaxBackoff.Duration

	if failed != nil {
		if hint, ok := failed.RetryAfter(); ok {
			if hint > maxBackoff {
				return maxBackoff
			}
			return hint
		}
	}

	backoff := float64(f.retry.InitialBackoff.Duration) * math.Pow(f.retry.BackoffMultiplier, float64(i))
	delay := time.Duration(backoff)
	if delay <= 0 || delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

func (f *Fetcher) retryableStatus(code int) bool {
	for _, s := range f.retry.RetryOnStatus {
		if s == code {
			return true
		}
	}
	return false
}

// wrapStatusError wraps a non-2xx response in the matching sentinel error.
func wrapStatusError(resp *Response) error {
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %s", utils.ErrServerHTTPError, resp.Status)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %s", utils.ErrClientHTTPError, resp.Status)
	default:
		return fmt.Errorf("%w: status %s", utils.ErrOtherHTTPError, resp.Status)
	}
}
