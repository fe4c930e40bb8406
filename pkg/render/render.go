package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/config"
	"sitemap-crawler/pkg/fetch"
	"sitemap-crawler/pkg/process"
	"sitemap-crawler/pkg/utils"
)

// PageResult holds the rendered outcome for a single page.
type PageResult struct {
	Markdown   string
	Title      string
	StatusCode int
	FinalURL   string
}

// PageFetcher fetches a page and returns its content rendered as Markdown.
// Implementations report per-page failures as errors; callers decide whether
// a failed page aborts the run.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, opts config.ExtractOptions) (*PageResult, error)
}

// defaultExcludedTags are stripped from the selected content before
// conversion when the site config does not specify its own list.
var defaultExcludedTags = []string{"script", "style", "nav", "header", "footer", "aside"}

// HTTPRenderer implements PageFetcher over a plain HTTP GET followed by
// goquery content extraction and Markdown conversion.
type HTTPRenderer struct {
	fetcher *fetch.Fetcher
	limiter *fetch.RateLimiter
	log     *logrus.Logger
}

// NewHTTPRenderer creates an HTTPRenderer backed by the given fetcher. The
// limiter, when non-nil, absorbs 429 responses with a Retry-After sleep.
func NewHTTPRenderer(fetcher *fetch.Fetcher, limiter *fetch.RateLimiter, log *logrus.Logger) *HTTPRenderer {
	return &HTTPRenderer{
		fetcher: fetcher,
		limiter: limiter,
		log:     log,
	}
}

// Fetch performs a single GET (no retry loop) and converts the selected
// content region to Markdown.
func (r *HTTPRenderer) Fetch(ctx context.Context, rawURL string, opts config.ExtractOptions) (*PageResult, error) {
	resp, err := r.fetcher.Do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == 429 && r.limiter != nil {
			r.limiter.Handle429(resp)
		}
		return &PageResult{StatusCode: resp.StatusCode, FinalURL: rawURL},
			wrapPageStatusError(resp.StatusCode, rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML for '%s': %v", utils.ErrParsing, rawURL, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	selector := opts.ContentSelector
	if selector == "" {
		selector = "body"
	}
	selection := doc.Find(selector)
	if selection.Length() == 0 {
		r.log.WithFields(logrus.Fields{
			"url":      rawURL,
			"selector": selector,
		}).Debug("content_selector_not_found")
		selection = doc.Find("body")
		if selection.Length() == 0 {
			selection = doc.Selection
		}
	}
	// Clone so tag removal does not disturb the parsed document.
	content := selection.First().Clone()

	excluded := opts.ExcludedTags
	if len(excluded) == 0 {
		excluded = defaultExcludedTags
	}
	for _, tag := range excluded {
		content.Find(tag).Remove()
	}

	html, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, fmt.Errorf("%w: serializing content for '%s': %v", utils.ErrParsing, rawURL, err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return nil, fmt.Errorf("%w: markdown conversion for '%s': %v", utils.ErrParsing, rawURL, err)
	}

	// Pages without a <title> fall back to their first markdown heading.
	if title == "" {
		title = process.FirstHeading([]byte(markdown))
	}
	if title == "" {
		title = "Untitled Page"
	}

	return &PageResult{
		Markdown:   markdown,
		Title:      title,
		StatusCode: resp.StatusCode,
		FinalURL:   rawURL,
	}, nil
}

func wrapPageStatusError(code int, rawURL string) error {
	switch {
	case code >= 500:
		return fmt.Errorf("%w: status %d for '%s'", utils.ErrServerHTTPError, code, rawURL)
	case code >= 400:
		return fmt.Errorf("%w: status %d for '%s'", utils.ErrClientHTTPError, code, rawURL)
	default:
		return fmt.Errorf("%w: status %d for '%s'", utils.ErrOtherHTTPError, code, rawURL)
	}
}
