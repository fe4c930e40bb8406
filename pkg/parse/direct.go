package parse

import (
	"strings"

	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/config"
)

// DirectListParser handles direct URL input: a single URL or a
// newline-separated list. Blank lines and # comments are skipped; lines that
// do not start with http:// or https:// are dropped with a warning.
type DirectListParser struct {
	filters []config.FilterConfig
	log     *logrus.Entry
}

// NewDirectListParser creates a DirectListParser.
func NewDirectListParser(filters []config.FilterConfig, log *logrus.Entry) *DirectListParser {
	return &DirectListParser{filters: filters, log: log}
}

// Parse extracts URLs from a newline-separated list.
func (p *DirectListParser) Parse(content string) []string {
	var urls []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		} else {
			p.log.WithFields(logrus.Fields{
				"url":    line,
				"reason": "does not start with http:// or https://",
			}).Warn("invalid_url_skipped")
		}
	}

	p.log.WithField("url_count", len(urls)).Info("direct_urls_parsed")

	return applyFilters(p.filters, urls, p.log)
}
