package crawler

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"sitemap-crawler/pkg/process"
	"sitemap-crawler/pkg/storage"
	"sitemap-crawler/pkg/utils"
)

const (
	mappingFilename  = "url_to_file_map.tsv"
	metadataFilename = "metadata.yaml"
)

// PageMetadata holds metadata for a single stored page.
type PageMetadata struct {
	URL         string    `yaml:"url"`
	File        string    `yaml:"file"`
	Title       string    `yaml:"title,omitempty"`
	ContentHash string    `yaml:"content_hash,omitempty"`
	Headings    []string  `yaml:"headings,omitempty"`
	TokenCount  int       `yaml:"token_count,omitempty"`
	ProcessedAt time.Time `yaml:"processed_at"`
}

// RunMetadata is the document written to metadata.yaml at the end of a run.
type RunMetadata struct {
	Site           string         `yaml:"site"`
	Source         string         `yaml:"source"`
	SessionID      string         `yaml:"session_id"`
	CrawlStartTime time.Time      `yaml:"crawl_start_time"`
	CrawlEndTime   time.Time      `yaml:"crawl_end_time"`
	Summary        Summary        `yaml:"summary"`
	Pages          []PageMetadata `yaml:"pages"`
}

// OutputManager collects per-page records during a crawl and writes the
// URL-to-file mapping and YAML metadata artifacts when the run finishes.
type OutputManager struct {
	store     storage.Storage
	log       *logrus.Entry
	site      string
	source    string
	sessionID string
	startTime time.Time

	mappingLines []string
	pages        []PageMetadata
}

// NewOutputManager creates an OutputManager writing through the given storage.
func NewOutputManager(store storage.Storage, log *logrus.Entry, site, source, sessionID string) *OutputManager {
	return &OutputManager{
		store:     store,
		log:       log,
		site:      site,
		source:    source,
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordPage registers a successfully stored page. markdown is the content
// already written to filename; it is reused here for hashing, heading
// extraction and token counting instead of re-reading the file.
func (om *OutputManager) RecordPage(pageURL, filename, title string, markdown []byte) {
	om.mappingLines = append(om.mappingLines, fmt.Sprintf("%s\t%s", pageURL, filename))

	meta := PageMetadata{
		URL:         pageURL,
		File:        filepath.ToSlash(filename),
		Title:       title,
		ProcessedAt: time.Now(),
	}
	if len(markdown) > 0 {
		meta.ContentHash = utils.CalculateStringSHA256(string(markdown))
		meta.Headings = process.ExtractHeadings(markdown)
		if process.IsInitialized() {
			meta.TokenCount = process.CountTokens(string(markdown))
		}
	}
	om.pages = append(om.pages, meta)
}

// PagesSaved returns the number of pages recorded so far.
func (om *OutputManager) PagesSaved() int {
	return len(om.pages)
}

// Finalize writes the TSV mapping and metadata.yaml artifacts.
// Failures are logged and returned but do not undo stored pages.
func (om *OutputManager) Finalize(summary Summary) error {
	var firstErr error

	if len(om.mappingLines) > 0 {
		content := strings.Join(om.mappingLines, "\n") + "\n"
		if err := om.store.Write(mappingFilename, []byte(content)); err != nil {
			om.log.WithField("file", mappingFilename).Errorf("Failed to write URL mapping: %v", err)
			firstErr = err
		}
	}

	doc := RunMetadata{
		Site:           om.site,
		Source:         om.source,
		SessionID:      om.sessionID,
		CrawlStartTime: om.startTime,
		CrawlEndTime:   time.Now(),
		Summary:        summary,
		Pages:          om.pages,
	}
	encoded, err := yaml.Marshal(&doc)
	if err != nil {
		om.log.Errorf("Failed to marshal run metadata: %v", err)
		if firstErr == nil {
			firstErr = err
		}
		return firstErr
	}
	if err := om.store.Write(metadataFilename, encoded); err != nil {
		om.log.WithField("file", metadataFilename).Errorf("Failed to write run metadata: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
