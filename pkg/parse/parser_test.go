package parse

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"sitemap-crawler/pkg/config"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestDirectListParser(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "mixed valid invalid and comments",
			content:  "https://a.com/x\n#comment\nhttps://a.com/y\nftp://bad\n",
			expected: []string{"https://a.com/x", "https://a.com/y"},
		},
		{
			name:     "single url",
			content:  "https://example.com/page",
			expected: []string{"https://example.com/page"},
		},
		{
			name:     "whitespace trimmed",
			content:  "  https://a.com/x  \n\n",
			expected: []string{"https://a.com/x"},
		},
		{
			name:     "empty input",
			content:  "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewDirectListParser(nil, testLogger())
			assert.Equal(t, tt.expected, p.Parse(tt.content))
		})
	}
}

func TestManifestParser(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "markdown links",
			content:  "- [Getting Started](https://docs.example.com/start)\n- [API](https://docs.example.com/api)\n",
			expected: []string{"https://docs.example.com/start", "https://docs.example.com/api"},
		},
		{
			name:     "bare urls",
			content:  "https://docs.example.com/a\nhttps://docs.example.com/b\n",
			expected: []string{"https://docs.example.com/a", "https://docs.example.com/b"},
		},
		{
			name:     "single hash comment skipped, double hash header survives",
			content:  "# comment with https://skip.me/url\n## Section [link](https://keep.me/url)\n",
			expected: []string{"https://keep.me/url"},
		},
		{
			name:     "relative markdown links dropped",
			content:  "[local](/relative/path)\n[remote](https://a.com/x)\n",
			expected: []string{"https://a.com/x"},
		},
		{
			name:     "multiple links on one line",
			content:  "[a](https://a.com/1) and [b](https://a.com/2)",
			expected: []string{"https://a.com/1", "https://a.com/2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewManifestParser(nil, testLogger())
			assert.Equal(t, tt.expected, p.Parse(tt.content))
		})
	}
}

const regularSitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc>https://example.com/about</loc><lastmod>2025-01-01</lastmod></url>
  <url><loc>https://example.com/docs/intro</loc></url>
</urlset>`

const sitemapIndexXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-index-1.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
</sitemapindex>`

func TestSitemapParser_RegularSitemap(t *testing.T) {
	p := NewSitemapParser(nil, testLogger())
	result := p.ParseDocument(regularSitemapXML)

	assert.Equal(t, RegularSitemap, result.Kind)
	assert.Equal(t, []string{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/docs/intro",
	}, result.URLs)
}

func TestSitemapParser_SitemapIndex(t *testing.T) {
	p := NewSitemapParser(nil, testLogger())
	result := p.ParseDocument(sitemapIndexXML)

	assert.Equal(t, SitemapIndex, result.Kind)
	assert.Equal(t, []string{
		"https://example.com/sitemap-index-1.xml",
		"https://example.com/sitemap-posts.xml",
	}, result.URLs)
}

func TestSitemapParser_MalformedXML(t *testing.T) {
	p := NewSitemapParser(nil, testLogger())
	result := p.ParseDocument("<urlset><url><loc>broken")

	assert.Equal(t, RegularSitemap, result.Kind)
	assert.Empty(t, result.URLs)
}

func TestSitemapParser_IndexFilters(t *testing.T) {
	filters := []config.FilterConfig{
		{Type: config.FilterURLContains, Value: "index"},
	}
	p := NewSitemapParser(filters, testLogger())
	result := p.ParseDocument(sitemapIndexXML)

	assert.Equal(t, SitemapIndex, result.Kind)
	assert.Equal(t, []string{"https://example.com/sitemap-index-1.xml"}, result.URLs)
}

func TestApplyFilters(t *testing.T) {
	urls := []string{
		"https://example.com/docs/a",
		"https://example.com/blog/b",
		"https://example.com/docs/c",
	}

	tests := []struct {
		name     string
		filters  []config.FilterConfig
		expected []string
	}{
		{
			name:     "no filters returns input",
			filters:  nil,
			expected: urls,
		},
		{
			name:     "url_contains keeps matches",
			filters:  []config.FilterConfig{{Type: config.FilterURLContains, Value: "/docs/"}},
			expected: []string{"https://example.com/docs/a", "https://example.com/docs/c"},
		},
		{
			name:     "url_pattern uses pattern field",
			filters:  []config.FilterConfig{{Type: config.FilterURLPattern, Pattern: "/blog/"}},
			expected: []string{"https://example.com/blog/b"},
		},
		{
			name: "filters apply in sequence",
			filters: []config.FilterConfig{
				{Type: config.FilterURLContains, Value: "example.com"},
				{Type: config.FilterURLContains, Value: "/docs/"},
				{Type: config.FilterURLContains, Value: "a"},
			},
			expected: []string{"https://example.com/docs/a"},
		},
		{
			name: "unknown filter type ignored",
			filters: []config.FilterConfig{
				{Type: "regex_match", Value: "whatever"},
			},
			expected: urls,
		},
		{
			name:     "no matches yields empty",
			filters:  []config.FilterConfig{{Type: config.FilterURLContains, Value: "/missing/"}},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, applyFilters(tt.filters, urls, testLogger()))
		})
	}
}
