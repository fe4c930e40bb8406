package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"sitemap-crawler/pkg/utils"
)

const (
	maxFilenameStem  = 60
	truncatedStemLen = 40
)

// invalidFilenameChars are replaced with underscores in derived filenames.
const invalidFilenameChars = `<>:"/\|?*`

// FilenameRegistry derives output filenames from URLs and guarantees
// uniqueness within a single crawl run by suffixing collisions.
type FilenameRegistry struct {
	used map[string]int
}

// NewFilenameRegistry creates an empty registry.
func NewFilenameRegistry() *FilenameRegistry {
	return &FilenameRegistry{used: make(map[string]int)}
}

// FilenameFor derives the output filename for rawURL and reserves it.
// The first URL mapping to a given stem gets "<stem>.md"; later
// collisions get "<stem>-1.md", "<stem>-2.md" and so on.
func (fr *FilenameRegistry) FilenameFor(rawURL string) string {
	stem := deriveStem(rawURL)

	count := fr.used[stem]
	fr.used[stem] = count + 1
	if count == 0 {
		return stem + ".md"
	}
	return fmt.Sprintf("%s-%d.md", stem, count)
}

// deriveStem maps a URL to a filesystem-safe filename stem.
func deriveStem(rawURL string) string {
	urlPath := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		urlPath = parsed.Path
	}

	stem := strings.Trim(urlPath, "/")
	if stem == "" {
		stem = "index"
	}
	stem = strings.ReplaceAll(stem, "/", "_")
	stem = strings.TrimSuffix(stem, ".md")

	stem = sanitizeFilename(stem)
	if stem == "" {
		stem = "unnamed"
	}

	if len(stem) > maxFilenameStem {
		// Back off to a rune boundary so the cut never splits a
		// multibyte character.
		cut := truncatedStemLen
		for cut > 0 && !utf8.RuneStart(stem[cut]) {
			cut--
		}
		stem = stem[:cut] + "_" + utils.ShortURLHash(rawURL)
	}
	return stem
}

// sanitizeFilename replaces characters unsafe across filesystems and trims
// leading/trailing dots and spaces.
func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(invalidFilenameChars, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), ". ")
}
