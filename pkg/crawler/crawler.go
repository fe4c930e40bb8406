package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/config"
	"sitemap-crawler/pkg/fetch"
	"sitemap-crawler/pkg/parse"
	"sitemap-crawler/pkg/render"
	"sitemap-crawler/pkg/storage"
	"sitemap-crawler/pkg/utils"
)

// maxSitemapDepth bounds sitemap-index recursion so a circular or
// self-referential index cannot loop forever.
const maxSitemapDepth = 5

// Crawler runs one crawl session for one site: resolve the source into page
// URLs, fetch each page through the renderer, and persist the results.
// A Crawler is single-session state and must not be reused or shared.
type Crawler struct {
	appCfg  *config.AppConfig
	siteCfg config.SiteConfig

	fetcher   *fetch.Fetcher
	limiter   *fetch.RateLimiter
	robots    *fetch.RobotsCache
	renderer  render.PageFetcher
	store     storage.Storage
	metrics   *CrawlMetrics
	filenames *FilenameRegistry
	output    *OutputManager

	sessionID string
	log       *logrus.Entry
}

// NewCrawler wires a crawl session for siteCfg. The fetcher and limiter are
// shared with the renderer so all outbound traffic observes one rate-limit
// state; the robots cache is session-owned.
func NewCrawler(appCfg *config.AppConfig, siteCfg config.SiteConfig, fetcher *fetch.Fetcher, limiter *fetch.RateLimiter, renderer render.PageFetcher, store storage.Storage, log *logrus.Logger) *Crawler {
	sessionID := uuid.NewString()
	entry := log.WithFields(logrus.Fields{
		"site":       siteCfg.Name,
		"session_id": sessionID,
	})

	robots := fetch.NewRobotsCache(appCfg.Settings.Robots, appCfg.Settings.HTTP.UserAgent, fetcher, entry)

	return &Crawler{
		appCfg:    appCfg,
		siteCfg:   siteCfg,
		fetcher:   fetcher,
		limiter:   limiter,
		robots:    robots,
		renderer:  renderer,
		store:     store,
		metrics:   NewCrawlMetrics(),
		filenames: NewFilenameRegistry(),
		output:    NewOutputManager(store, entry, siteCfg.Name, siteCfg.Source, sessionID),
		sessionID: sessionID,
		log:       entry,
	}
}

// SessionID returns the correlation ID attached to every log line of this run.
func (c *Crawler) SessionID() string {
	return c.sessionID
}

// Run executes the full session: resolve URLs, iterate them, and return the
// metrics summary. Only source resolution failures are fatal; every per-URL
// failure is absorbed into the metrics.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	c.log.WithFields(logrus.Fields{
		"source":      c.siteCfg.Source,
		"source_type": c.siteCfg.Type,
	}).Info("crawl_started")

	urls, err := c.ResolveURLs(ctx)
	if err != nil {
		return c.metrics.Summarize(), err
	}

	urls = c.applyURLLimit(urls)
	c.metrics.URLsTotal = len(urls)

	c.iterateURLs(ctx, urls)

	summary := c.metrics.Summarize()
	c.log.WithFields(summary.LogFields()).Info("crawl_metrics_summary")

	if err := c.output.Finalize(summary); err != nil {
		c.log.Warnf("Finalizing output artifacts failed: %v", err)
	}
	return summary, nil
}

// DryRun resolves and reports the URL set without fetching any page or
// writing anything.
func (c *Crawler) DryRun(ctx context.Context) ([]string, error) {
	urls, err := c.resolveURLs(ctx, false)
	if err != nil {
		return nil, err
	}
	urls = c.applyURLLimit(urls)
	c.log.WithField("url_count", len(urls)).Info("dry_run_resolved")
	return urls, nil
}

// ResolveURLs fetches the configured source and parses it into page URLs,
// persisting the raw manifest/sitemap artifact alongside the output.
func (c *Crawler) ResolveURLs(ctx context.Context) ([]string, error) {
	return c.resolveURLs(ctx, true)
}

func (c *Crawler) resolveURLs(ctx context.Context, saveArtifact bool) ([]string, error) {
	// A direct_url source is itself the URL list; there is nothing to
	// fetch and no source artifact to persist.
	if c.siteCfg.Type == config.SourceTypeDirectURL {
		return parse.NewDirectListParser(c.siteCfg.Filters, c.log).Parse(c.siteCfg.Source), nil
	}

	c.limiter.WaitIfNeeded()
	resp, err := c.fetcher.DoWithRetry(ctx, c.siteCfg.Source)
	if err != nil {
		return nil, fmt.Errorf("fetching source '%s': %w", c.siteCfg.Source, err)
	}
	content := string(resp.Body)

	if saveArtifact {
		c.saveSourceArtifact(content)
	}

	switch c.siteCfg.Type {
	case config.SourceTypeLlmsTxt:
		return parse.NewManifestParser(c.siteCfg.Filters, c.log).Parse(content), nil
	case config.SourceTypeXMLSitemap:
		return c.resolveSitemap(ctx, content), nil
	default:
		return nil, fmt.Errorf("%w: %q", utils.ErrUnknownSourceType, c.siteCfg.Type)
	}
}

// resolveSitemap walks a sitemap document, recursing through index entries.
// Filters apply only to the top-level parse; sub-sitemap fetch failures drop
// that branch without failing the session.
func (c *Crawler) resolveSitemap(ctx context.Context, content string) []string {
	topParser := parse.NewSitemapParser(c.siteCfg.Filters, c.log)
	subParser := parse.NewSitemapParser(nil, c.log)
	seen := make(map[string]struct{})

	var walk func(result parse.SitemapResult, depth int) []string
	walk = func(result parse.SitemapResult, depth int) []string {
		if result.Kind == parse.RegularSitemap {
			return result.URLs
		}
		if depth >= maxSitemapDepth {
			c.log.WithField("depth", depth).Warn("sitemap_index_depth_limit_reached")
			return nil
		}

		var urls []string
		for _, subURL := range result.URLs {
			if _, ok := seen[subURL]; ok {
				c.log.WithField("sitemap_url", subURL).Warn("sitemap_index_cycle_skipped")
				continue
			}
			seen[subURL] = struct{}{}

			c.limiter.WaitIfNeeded()
			resp, err := c.fetcher.DoWithRetry(ctx, subURL)
			if err != nil {
				c.log.WithField("sitemap_url", subURL).Warnf("Sub-sitemap fetch failed, branch skipped: %v", err)
				continue
			}
			subResult := subParser.ParseDocument(string(resp.Body))
			urls = append(urls, walk(subResult, depth+1)...)
		}
		return urls
	}

	return walk(topParser.ParseDocument(content), 0)
}

// saveSourceArtifact writes the raw fetched source document verbatim next to
// the page output, named by source type.
func (c *Crawler) saveSourceArtifact(content string) {
	name := "llms.txt"
	if c.siteCfg.Type == config.SourceTypeXMLSitemap {
		name = "sitemap.xml"
	}
	if err := c.store.Write(name, []byte(content)); err != nil {
		c.log.WithField("file", name).Warnf("Failed to save source artifact: %v", err)
	}
}

// applyURLLimit truncates the resolved list to max_urls_per_site.
func (c *Crawler) applyURLLimit(urls []string) []string {
	limit := c.appCfg.Settings.Limits.MaxURLsPerSite
	if limit <= 0 || len(urls) <= limit {
		return urls
	}
	c.log.WithFields(logrus.Fields{
		"resolved": len(urls),
		"limit":    limit,
	}).Info("url_limit_applied")
	return urls[:limit]
}

// iterateURLs processes each URL in resolution order. Resource limit
// breaches stop the loop early; everything else counts and continues.
func (c *Crawler) iterateURLs(ctx context.Context, urls []string) {
	for _, pageURL := range urls {
		if c.resourceLimitReached() {
			return
		}

		urlLog := c.log.WithField("url", pageURL)

		if !c.robots.IsAllowed(ctx, pageURL) {
			c.metrics.RecordSkip()
			urlLog.Info("url_skipped_robots_disallow")
			continue
		}

		c.waitBeforeFetch(ctx, pageURL)

		result, err := c.renderer.Fetch(ctx, pageURL, c.siteCfg.Extract)
		if err != nil {
			c.metrics.RecordFailure(err)
			urlLog.Warnf("Page fetch failed: %v", err)
			continue
		}

		if err := validateContent(result.Markdown, c.appCfg.Settings.Limits.MinContentChars); err != nil {
			c.metrics.RecordFailure(err)
			urlLog.WithField("content_chars", len(result.Markdown)).Warnf("Content rejected: %v", err)
			continue
		}

		filename := c.filenames.FilenameFor(pageURL)
		if err := c.store.Write(filename, []byte(result.Markdown)); err != nil {
			c.metrics.RecordFailure(err)
			urlLog.WithField("file", filename).Errorf("Storage write failed: %v", err)
			continue
		}

		c.metrics.RecordSuccess(int64(len(result.Markdown)))
		c.output.RecordPage(pageURL, filename, result.Title, []byte(result.Markdown))
		urlLog.WithField("file", filename).Debug("page_stored")
	}
}

// resourceLimitReached checks the crawl duration and total size caps.
// A breach ends the loop as a partial success, never a failure.
func (c *Crawler) resourceLimitReached() bool {
	limits := c.appCfg.Settings.Limits

	if maxDur := limits.MaxCrawlDuration.Duration; maxDur > 0 && c.metrics.Elapsed() >= maxDur {
		c.log.WithField("elapsed_seconds", round2(c.metrics.Elapsed().Seconds())).Warn("crawl_duration_limit_reached")
		return true
	}
	if limits.MaxTotalSizeMB > 0 {
		maxBytes := int64(limits.MaxTotalSizeMB * 1048576)
		if c.metrics.BytesDownloaded >= maxBytes {
			c.log.WithField("bytes_downloaded", c.metrics.BytesDownloaded).Warn("crawl_size_limit_reached")
			return true
		}
	}
	return false
}

// waitBeforeFetch applies the politeness delay for one fetch: the robots
// crawl-delay for this URL's host when present, otherwise the rate limiter.
func (c *Crawler) waitBeforeFetch(ctx context.Context, pageURL string) {
	if delay, ok := c.robots.CrawlDelay(ctx, pageURL); ok && delay > 0 {
		c.log.WithFields(logrus.Fields{
			"url":           pageURL,
			"delay_seconds": delay.Seconds(),
		}).Debug("robots_crawl_delay_applied")
		time.Sleep(delay)
		return
	}
	c.limiter.WaitIfNeeded()
}

// validateContent rejects pages whose stripped content is empty or whose raw
// length falls below the configured minimum.
func validateContent(markdown string, minChars int) error {
	if len(strings.TrimSpace(markdown)) == 0 {
		return fmt.Errorf("%w: content empty after stripping", utils.ErrContentEmpty)
	}
	if minChars > 0 && len(markdown) < minChars {
		return fmt.Errorf("%w: %d chars below minimum %d", utils.ErrContentTooShort, len(markdown), minChars)
	}
	return nil
}
