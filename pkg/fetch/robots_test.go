package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sitemap-crawler/pkg/config"
)

func testRobotsPolicy() config.RobotsPolicy {
	return config.RobotsPolicy{
		Enabled:       boolPtr(true),
		CacheDuration: config.Duration{Duration: time.Hour},
	}
}

// robotsServer serves the given robots.txt body (or status when body is
// empty) and counts robots.txt fetches.
func robotsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	fetchCount := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fetchCount.Add(1)
			w.WriteHeader(status)
			w.Write([]byte(body))
			return
		}
		w.WriteHeader(200)
	}))
	t.Cleanup(server.Close)
	return server, fetchCount
}

func newTestRobotsCache(policy config.RobotsPolicy) *RobotsCache {
	log := testLogger()
	fetcher := NewFetcher(&http.Client{Timeout: 10 * time.Second}, testHTTPConfig(), testRetryPolicy(0), log)
	return NewRobotsCache(policy, "test-crawler/1.0", fetcher, log.WithField("test", true))
}

func TestIsAllowed_DisallowRule(t *testing.T) {
	server, _ := robotsServer(t, 200, "User-agent: *\nDisallow: /private/\n")
	rc := newTestRobotsCache(testRobotsPolicy())

	if !rc.IsAllowed(context.Background(), server.URL+"/public/page") {
		t.Error("expected /public/page to be allowed")
	}
	if rc.IsAllowed(context.Background(), server.URL+"/private/page") {
		t.Error("expected /private/page to be disallowed")
	}
}

func TestIsAllowed_CachesPerDomain(t *testing.T) {
	server, fetches := robotsServer(t, 200, "User-agent: *\nDisallow:\n")
	rc := newTestRobotsCache(testRobotsPolicy())

	rc.IsAllowed(context.Background(), server.URL+"/a")
	rc.IsAllowed(context.Background(), server.URL+"/b")

	if fetches.Load() != 1 {
		t.Errorf("expected exactly 1 robots.txt fetch across two checks, got %d", fetches.Load())
	}
}

func TestIsAllowed_CacheExpiry(t *testing.T) {
	server, fetches := robotsServer(t, 200, "User-agent: *\nDisallow:\n")
	rc := newTestRobotsCache(config.RobotsPolicy{
		Enabled:       boolPtr(true),
		CacheDuration: config.Duration{Duration: time.Minute},
	})

	current := time.Now()
	rc.now = func() time.Time { return current }

	rc.IsAllowed(context.Background(), server.URL+"/a")
	current = current.Add(2 * time.Minute)
	rc.IsAllowed(context.Background(), server.URL+"/a")

	if fetches.Load() != 2 {
		t.Errorf("expected re-fetch after TTL expiry, got %d fetches", fetches.Load())
	}
}

func TestIsAllowed_404MeansNoRestrictions(t *testing.T) {
	server, _ := robotsServer(t, 404, "")
	rc := newTestRobotsCache(testRobotsPolicy())

	if !rc.IsAllowed(context.Background(), server.URL+"/anything") {
		t.Error("expected allow when robots.txt is 404")
	}
}

func TestIsAllowed_FetchErrorFailsOpen(t *testing.T) {
	server, _ := robotsServer(t, 503, "")
	rc := newTestRobotsCache(testRobotsPolicy())

	if !rc.IsAllowed(context.Background(), server.URL+"/page") {
		t.Error("expected allow when robots.txt fetch fails")
	}
}

func TestIsAllowed_DisabledPolicy(t *testing.T) {
	server, fetches := robotsServer(t, 200, "User-agent: *\nDisallow: /\n")
	rc := newTestRobotsCache(config.RobotsPolicy{Enabled: boolPtr(false)})

	if !rc.IsAllowed(context.Background(), server.URL+"/page") {
		t.Error("expected allow when robots checks are disabled")
	}
	if fetches.Load() != 0 {
		t.Errorf("expected no robots.txt fetch when disabled, got %d", fetches.Load())
	}
}

func TestCrawlDelay(t *testing.T) {
	server, _ := robotsServer(t, 200, "User-agent: *\nCrawl-delay: 2\n")
	rc := newTestRobotsCache(testRobotsPolicy())

	delay, ok := rc.CrawlDelay(context.Background(), server.URL+"/page")
	if !ok {
		t.Fatal("expected a crawl-delay directive")
	}
	if delay != 2*time.Second {
		t.Errorf("expected 2s crawl delay, got %v", delay)
	}
}

func TestCrawlDelay_AbsentDirective(t *testing.T) {
	server, _ := robotsServer(t, 200, "User-agent: *\nDisallow:\n")
	rc := newTestRobotsCache(testRobotsPolicy())

	if _, ok := rc.CrawlDelay(context.Background(), server.URL+"/page"); ok {
		t.Error("expected no crawl delay when directive absent")
	}
}

func TestCrawlDelay_NotRespected(t *testing.T) {
	server, _ := robotsServer(t, 200, "User-agent: *\nCrawl-delay: 2\n")
	rc := newTestRobotsCache(config.RobotsPolicy{
		Enabled:           boolPtr(true),
		RespectCrawlDelay: boolPtr(false),
		CacheDuration:     config.Duration{Duration: time.Hour},
	})

	if _, ok := rc.CrawlDelay(context.Background(), server.URL+"/page"); ok {
		t.Error("expected no crawl delay when respect_crawl_delay is off")
	}
}

func TestClearCache(t *testing.T) {
	server, fetches := robotsServer(t, 200, "User-agent: *\nDisallow:\n")
	rc := newTestRobotsCache(testRobotsPolicy())

	rc.IsAllowed(context.Background(), server.URL+"/a")
	rc.ClearCache()
	rc.IsAllowed(context.Background(), server.URL+"/a")

	if fetches.Load() != 2 {
		t.Errorf("expected re-fetch after cache clear, got %d fetches", fetches.Load())
	}
}
