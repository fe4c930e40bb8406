// Package parse turns raw URL-source documents (direct URL lists, llms.txt
// manifests, XML sitemaps) into flat URL lists.
package parse

import (
	"strings"

	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/config"
)

// Parser extracts an ordered list of URLs from raw source content.
type Parser interface {
	Parse(content string) []string
}

// applyFilters narrows a URL list by applying each configured filter in
// sequence. Every filter keeps only URLs containing its substring. Filter
// steps are logged with before/after counts.
func applyFilters(filters []config.FilterConfig, urls []string, log *logrus.Entry) []string {
	if len(filters) == 0 {
		log.WithField("url_count", len(urls)).Debug("no_filters_configured")
		return urls
	}

	log.WithFields(logrus.Fields{
		"filter_count": len(filters),
		"url_count":    len(urls),
	}).Info("applying_filters")

	filtered := urls
	for i, filter := range filters {
		switch filter.Type {
		case config.FilterURLPattern, config.FilterURLContains:
		default:
			continue // unknown filter types are ignored (warned at config validation)
		}

		substr := filter.Substring()
		before := len(filtered)

		var kept []string
		for _, u := range filtered {
			if strings.Contains(u, substr) {
				kept = append(kept, u)
			}
		}
		filtered = kept

		log.WithFields(logrus.Fields{
			"filter_index": i + 1,
			"filter_total": len(filters),
			"filter_type":  filter.Type,
			"value":        substr,
			"before":       before,
			"after":        len(filtered),
			"removed":      before - len(filtered),
		}).Info("filter_applied")
	}

	log.WithFields(logrus.Fields{
		"original_count": len(urls),
		"kept_count":     len(filtered),
		"removed_total":  len(urls) - len(filtered),
	}).Info("filtering_complete")

	return filtered
}
