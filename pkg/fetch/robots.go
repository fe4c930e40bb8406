package fetch

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"sitemap-crawler/pkg/config"
)

// robotsEntry is one cached robots.txt rule set. Entries are replaced on
// expiry, never mutated in place.
type robotsEntry struct {
	data      *robotstxt.RobotsData // nil means fetch/parse failed (fail-open)
	fetchedAt time.Time
}

// RobotsCache manages fetching, parsing, caching-with-TTL and checking of
// robots.txt data, keyed per scheme://host. All checks fail open: a disabled
// policy, a fetch error or a parse error all allow the URL; only an explicit
// disallow directive for the configured user agent denies it.
type RobotsCache struct {
	policy    config.RobotsPolicy
	userAgent string
	fetcher   *Fetcher
	cache     map[string]robotsEntry
	cacheMu   sync.Mutex
	log       *logrus.Entry

	now func() time.Time // injectable clock for TTL tests
}

// NewRobotsCache creates a RobotsCache owned by a single crawl session.
func NewRobotsCache(policy config.RobotsPolicy, userAgent string, fetcher *Fetcher, log *logrus.Entry) *RobotsCache {
	return &RobotsCache{
		policy:    policy,
		userAgent: userAgent,
		fetcher:   fetcher,
		cache:     make(map[string]robotsEntry),
		log:       log,
		now:       time.Now,
	}
}

// IsAllowed reports whether the URL may be fetched for the configured user
// agent. Any failure to obtain robots data defaults to allow.
func (rc *RobotsCache) IsAllowed(ctx context.Context, rawURL string) bool {
	if !rc.policy.IsEnabled() {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		rc.log.WithFields(logrus.Fields{"url": rawURL, "error": err}).Warn("robots_check_error")
		return true
	}

	data := rc.dataFor(ctx, parsed)
	if data == nil {
		return true
	}

	allowed := data.TestAgent(parsed.RequestURI(), rc.userAgent)
	if !allowed {
		rc.log.WithFields(logrus.Fields{
			"url":        rawURL,
			"user_agent": rc.userAgent,
		}).Info("url_disallowed_by_robots")
	}
	return allowed
}

// CrawlDelay returns the robots crawl-delay directive for the URL's domain
// and the configured user agent. The second return is false when robots
// checks are disabled, crawl-delay is not respected, or no directive exists.
func (rc *RobotsCache) CrawlDelay(ctx context.Context, rawURL string) (time.Duration, bool) {
	if !rc.policy.IsEnabled() || !rc.policy.ShouldRespectCrawlDelay() {
		return 0, false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}

	data := rc.dataFor(ctx, parsed)
	if data == nil {
		return 0, false
	}

	group := data.FindGroup(rc.userAgent)
	if group == nil || group.CrawlDelay <= 0 {
		return 0, false
	}

	rc.log.WithFields(logrus.Fields{
		"url":   rawURL,
		"delay": group.CrawlDelay,
	}).Debug("robots_crawl_delay")
	return group.CrawlDelay, true
}

// dataFor returns the cached rule set for the URL's scheme://host, fetching
// robots.txt on a cache miss or TTL expiry. Returns nil when robots data is
// unavailable; fetch failures are not cached, so the next check retries.
func (rc *RobotsCache) dataFor(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	domain := target.Scheme + "://" + target.Host

	rc.cacheMu.Lock()
	entry, found := rc.cache[domain]
	rc.cacheMu.Unlock()
	if found && rc.now().Sub(entry.fetchedAt) < rc.policy.CacheDuration.Duration {
		return entry.data
	}
	if found {
		rc.log.WithField("domain", domain).Debug("robots_cache_expired")
	}

	robotsURL := domain + "/robots.txt"
	rc.log.WithField("url", robotsURL).Debug("fetching_robots_txt")

	resp, err := rc.fetcher.Do(ctx, robotsURL)
	if err != nil {
		rc.log.WithFields(logrus.Fields{"domain": domain, "error": err}).Warn("robots_txt_fetch_failed")
		return nil
	}

	var data *robotstxt.RobotsData
	switch {
	case resp.StatusCode == http.StatusNotFound:
		// No robots.txt means no restrictions
		rc.log.WithField("domain", domain).Debug("robots_txt_not_found")
		data = allowAllRobots()
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		parsedData, parseErr := robotstxt.FromBytes(resp.Body)
		if parseErr != nil {
			rc.log.WithFields(logrus.Fields{"domain": domain, "error": parseErr}).Error("robots_txt_parse_error")
			return nil
		}
		rc.log.WithFields(logrus.Fields{
			"domain":     domain,
			"size_bytes": len(resp.Body),
		}).Info("robots_txt_fetched")
		data = parsedData
	default:
		rc.log.WithFields(logrus.Fields{
			"domain":      domain,
			"status_code": resp.StatusCode,
		}).Warn("robots_txt_fetch_failed")
		return nil
	}

	rc.cacheMu.Lock()
	rc.cache[domain] = robotsEntry{data: data, fetchedAt: rc.now()}
	rc.cacheMu.Unlock()
	return data
}

// ClearCache drops all cached robots entries.
func (rc *RobotsCache) ClearCache() {
	rc.cacheMu.Lock()
	rc.cache = make(map[string]robotsEntry)
	rc.cacheMu.Unlock()
	rc.log.Debug("robots_cache_cleared")
}

func allowAllRobots() *robotstxt.RobotsData {
	data, _ := robotstxt.FromStatusAndBytes(404, nil)
	return data
}
