package parse

import (
	"encoding/xml"
	"strings"

	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/config"
)

// --- XML Structs for Sitemap Parsing ---
// Unqualified element names match any namespace, so these handle both
// namespaced and bare sitemap documents.

// XMLURL represents a <url> element in a sitemap.
type XMLURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLURLSet represents a <urlset> element in a sitemap.
type XMLURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []XMLURL `xml:"url"`
}

// XMLSitemap represents a <sitemap> element in a sitemap index file.
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemapIndex represents a <sitemapindex> element.
type XMLSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []XMLSitemap `xml:"sitemap"`
}

// SitemapKind classifies a parsed sitemap document.
type SitemapKind int

const (
	// RegularSitemap means the document listed page URLs directly.
	RegularSitemap SitemapKind = iota
	// SitemapIndex means the document listed other sitemaps; the caller is
	// responsible for fetching and recursing into them.
	SitemapIndex
)

// SitemapResult is the tagged outcome of parsing one sitemap document.
// For a RegularSitemap the URLs are page URLs; for a SitemapIndex they are
// sub-sitemap URLs. Filters have already been applied in both cases.
type SitemapResult struct {
	Kind SitemapKind
	URLs []string
}

// SitemapParser handles XML sitemap documents, including sitemap indexes.
// It classifies the document but does not recurse into sub-sitemaps.
type SitemapParser struct {
	filters []config.FilterConfig
	log     *logrus.Entry
}

// NewSitemapParser creates a SitemapParser.
func NewSitemapParser(filters []config.FilterConfig, log *logrus.Entry) *SitemapParser {
	return &SitemapParser{filters: filters, log: log}
}

// Parse extracts whichever URL set applies and satisfies the Parser
// interface. Callers that need the index/regular distinction use
// ParseDocument instead.
func (p *SitemapParser) Parse(content string) []string {
	return p.ParseDocument(content).URLs
}

// ParseDocument parses XML sitemap content and returns the tagged result.
// Malformed XML yields an empty RegularSitemap result with a logged parse
// failure; that is non-fatal to the session.
func (p *SitemapParser) ParseDocument(content string) SitemapResult {
	data := []byte(content)

	// Try parsing as a sitemap index first
	var index XMLSitemapIndex
	errIndex := xml.Unmarshal(data, &index)
	if errIndex == nil && len(index.Sitemaps) > 0 {
		p.log.WithField("has_filters", len(p.filters) > 0).Info("parsing_sitemap_index")
		urls := make([]string, 0, len(index.Sitemaps))
		for _, entry := range index.Sitemaps {
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				urls = append(urls, loc)
			}
		}
		return SitemapResult{
			Kind: SitemapIndex,
			URLs: applyFilters(p.filters, urls, p.log),
		}
	}

	// Fall back to a regular URL set
	var urlSet XMLURLSet
	errURLSet := xml.Unmarshal(data, &urlSet)
	if errURLSet != nil {
		p.log.WithFields(logrus.Fields{
			"index_error":  errIndex,
			"urlset_error": errURLSet,
		}).Error("xml_parse_failed")
		return SitemapResult{Kind: RegularSitemap}
	}

	p.log.WithField("has_filters", len(p.filters) > 0).Info("parsing_regular_sitemap")
	urls := make([]string, 0, len(urlSet.URLs))
	for _, entry := range urlSet.URLs {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return SitemapResult{
		Kind: RegularSitemap,
		URLs: applyFilters(p.filters, urls, p.log),
	}
}
