package crawler

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/utils"
)

// CrawlMetrics accumulates counters over a single crawl run. Instances are
// per-run; a new crawl starts from zero.
type CrawlMetrics struct {
	URLsTotal       int
	URLsSuccess     int
	URLsFailed      int
	URLsSkipped     int
	BytesDownloaded int64
	ErrorCounts     map[string]int

	startTime time.Time
	now       func() time.Time
}

// NewCrawlMetrics creates a metrics collector with the clock started.
func NewCrawlMetrics() *CrawlMetrics {
	m := &CrawlMetrics{
		ErrorCounts: make(map[string]int),
		now:         time.Now,
	}
	m.startTime = m.now()
	return m
}

// RecordSuccess counts a successfully stored page and its payload size.
func (m *CrawlMetrics) RecordSuccess(bytes int64) {
	m.URLsSuccess++
	m.BytesDownloaded += bytes
}

// RecordFailure counts a failed URL under its error category.
func (m *CrawlMetrics) RecordFailure(err error) {
	m.URLsFailed++
	m.ErrorCounts[utils.CategorizeError(err)]++
}

// RecordSkip counts a URL that was neither attempted nor failed
// (robots disallow, resource limit, duplicate).
func (m *CrawlMetrics) RecordSkip() {
	m.URLsSkipped++
}

// Elapsed returns the time since the collector was created.
func (m *CrawlMetrics) Elapsed() time.Duration {
	return m.now().Sub(m.startTime)
}

// Summary is the derived, human-facing projection of the raw counters.
type Summary struct {
	URLsTotal       int            `yaml:"urls_total"`
	URLsSuccess     int            `yaml:"urls_success"`
	URLsFailed      int            `yaml:"urls_failed"`
	URLsSkipped     int            `yaml:"urls_skipped"`
	BytesDownloaded int64          `yaml:"bytes_downloaded"`
	MBDownloaded    float64        `yaml:"mb_downloaded"`
	DurationSeconds float64        `yaml:"duration_seconds"`
	URLsPerSecond   float64        `yaml:"urls_per_second"`
	MBPerSecond     float64        `yaml:"mb_per_second"`
	ErrorCounts     map[string]int `yaml:"error_counts,omitempty"`
}

// Summarize freezes the counters into a Summary with derived rates.
// Rates divide by elapsed time and report 0 when the duration is zero.
func (m *CrawlMetrics) Summarize() Summary {
	duration := m.Elapsed().Seconds()
	mb := float64(m.BytesDownloaded) / 1048576.0

	s := Summary{
		URLsTotal:       m.URLsTotal,
		URLsSuccess:     m.URLsSuccess,
		URLsFailed:      m.URLsFailed,
		URLsSkipped:     m.URLsSkipped,
		BytesDownloaded: m.BytesDownloaded,
		MBDownloaded:    round2(mb),
		DurationSeconds: round2(duration),
	}
	if duration > 0 {
		s.URLsPerSecond = round2(float64(m.URLsSuccess) / duration)
		s.MBPerSecond = round2(mb / duration)
	}
	if len(m.ErrorCounts) > 0 {
		s.ErrorCounts = m.ErrorCounts
	}
	return s
}

// LogFields renders the summary as structured log fields.
func (s Summary) LogFields() logrus.Fields {
	fields := logrus.Fields{
		"urls_total":       s.URLsTotal,
		"urls_success":     s.URLsSuccess,
		"urls_failed":      s.URLsFailed,
		"urls_skipped":     s.URLsSkipped,
		"bytes_downloaded": s.BytesDownloaded,
		"mb_downloaded":    s.MBDownloaded,
		"duration_seconds": s.DurationSeconds,
		"urls_per_second":  s.URLsPerSecond,
		"mb_per_second":    s.MBPerSecond,
	}
	for category, count := range s.ErrorCounts {
		fields["error_"+category] = count
	}
	return fields
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
