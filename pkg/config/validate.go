package config

import (
	"fmt"
	"time"

	"sitemap-crawler/pkg/utils"
)

// Validate checks the global settings and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	s := &c.Settings

	// Retry policy. An unset max_retries defaults through RetryCount; an
	// explicit zero stands.
	if s.Retry.MaxRetries != nil && *s.Retry.MaxRetries < 0 {
		warnings = append(warnings, "retry.max_retries cannot be negative, setting to 0")
		*s.Retry.MaxRetries = 0
	}
	if s.Retry.InitialBackoff.Duration <= 0 {
		s.Retry.InitialBackoff.Duration = 1 * time.Second
	}
	if s.Retry.BackoffMultiplier < 1 {
		if s.Retry.BackoffMultiplier != 0 {
			warnings = append(warnings, fmt.Sprintf(
				"retry.backoff_multiplier must be >= 1, got %.2f; defaulting to 2.0", s.Retry.BackoffMultiplier))
		}
		s.Retry.BackoffMultiplier = 2.0
	}
	if s.Retry.MaxBackoff.Duration <= 0 {
		s.Retry.MaxBackoff.Duration = 60 * time.Second
	}
	if s.Retry.InitialBackoff.Duration > s.Retry.MaxBackoff.Duration {
		warnings = append(warnings, fmt.Sprintf(
			"retry.initial_backoff (%v) > retry.max_backoff (%v), using max_backoff for initial",
			s.Retry.InitialBackoff.Duration, s.Retry.MaxBackoff.Duration))
		s.Retry.InitialBackoff = s.Retry.MaxBackoff
	}
	if len(s.Retry.RetryOnStatus) == 0 {
		s.Retry.RetryOnStatus = []int{500, 502, 503, 504, 429}
	}

	// Rate limiting
	if s.RateLimit.DelayBetweenRequests.Duration < 0 {
		warnings = append(warnings, "rate_limit.delay_between_requests cannot be negative, disabling delay")
		s.RateLimit.DelayBetweenRequests.Duration = 0
	}

	// HTTP defaults
	if s.HTTP.UserAgent == "" {
		s.HTTP.UserAgent = "sitemap-crawler/0.2.0"
	}
	if s.HTTP.Accept == "" {
		s.HTTP.Accept = "*/*"
	}
	if s.HTTP.AcceptEncoding == "" {
		s.HTTP.AcceptEncoding = "gzip, deflate"
	}
	if s.HTTP.Timeout.Duration <= 0 {
		s.HTTP.Timeout.Duration = 60 * time.Second
	}

	// Resource limits
	if s.Limits.MaxURLsPerSite < 0 {
		warnings = append(warnings, "limits.max_urls_per_site cannot be negative, setting to 0 (unlimited)")
		s.Limits.MaxURLsPerSite = 0
	}
	if s.Limits.MaxCrawlDuration.Duration < 0 {
		warnings = append(warnings, "limits.max_crawl_duration cannot be negative, setting to 0 (unlimited)")
		s.Limits.MaxCrawlDuration.Duration = 0
	}
	if s.Limits.MaxTotalSizeMB < 0 {
		warnings = append(warnings, "limits.max_total_size_mb cannot be negative, setting to 0 (unlimited)")
		s.Limits.MaxTotalSizeMB = 0
	}
	if s.Limits.MinContentChars <= 0 {
		s.Limits.MinContentChars = 100
	}

	// Robots policy
	if s.Robots.CacheDuration.Duration <= 0 {
		s.Robots.CacheDuration.Duration = 1 * time.Hour
	}

	return warnings, nil // global settings validation never fails fatally
}

// Validate checks SiteConfig fields. Returns collected warnings and any
// fatal error. Must run after Load so auto-detected fields are present.
func (s *SiteConfig) Validate() (warnings []string, err error) {
	if s.Name == "" {
		return nil, fmt.Errorf("%w: site has no name", utils.ErrConfigValidation)
	}
	if s.Source == "" {
		return nil, fmt.Errorf("%w: site '%s' has no source", utils.ErrConfigValidation, s.Name)
	}

	switch s.Type {
	case SourceTypeLlmsTxt, SourceTypeXMLSitemap, SourceTypeDirectURL:
	default:
		return nil, fmt.Errorf("%w: site '%s' has unknown type '%s'", utils.ErrConfigValidation, s.Name, s.Type)
	}

	if s.Domain == "" || s.Domain == "unknown" {
		warnings = append(warnings, fmt.Sprintf(
			"site '%s' has no resolvable domain; output paths will use '%s'", s.Name, s.Domain))
	}

	if s.OutputPattern == "" {
		s.OutputPattern = "{domain}"
	}

	for i, f := range s.Filters {
		switch f.Type {
		case FilterURLPattern, FilterURLContains:
			if f.Substring() == "" {
				warnings = append(warnings, fmt.Sprintf(
					"site '%s' filter %d has an empty match value and keeps everything", s.Name, i+1))
			}
		default:
			warnings = append(warnings, fmt.Sprintf(
				"site '%s' filter %d has unknown type '%s' and will be ignored", s.Name, i+1, f.Type))
		}
	}

	return warnings, nil
}
