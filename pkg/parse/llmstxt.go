package parse

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/config"
)

// markdownLinkPattern matches inline Markdown links: [text](url)
var markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// ManifestParser handles llms.txt-style manifests: one URL per line or
// Markdown links. Lines starting with a single # are comments; lines
// starting with ## are Markdown headers and survive.
type ManifestParser struct {
	filters []config.FilterConfig
	log     *logrus.Entry
}

// NewManifestParser creates a ManifestParser.
func NewManifestParser(filters []config.FilterConfig, log *logrus.Entry) *ManifestParser {
	return &ManifestParser{filters: filters, log: log}
}

// Parse extracts URLs from llms.txt content, both from Markdown links and
// from bare http(s) lines.
func (p *ManifestParser) Parse(content string) []string {
	var urls []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "##") {
			continue
		}

		for _, match := range markdownLinkPattern.FindAllStringSubmatch(line, -1) {
			linkURL := match[2]
			if strings.HasPrefix(linkURL, "http://") || strings.HasPrefix(linkURL, "https://") {
				urls = append(urls, linkURL)
			}
		}

		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		}
	}

	return applyFilters(p.filters, urls, p.log)
}
