package crawler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sitemap-crawler/pkg/utils"
)

func frozenMetrics(elapsed time.Duration) *CrawlMetrics {
	m := NewCrawlMetrics()
	start := m.startTime
	m.now = func() time.Time { return start.Add(elapsed) }
	return m
}

func TestSummarize_DerivedRates(t *testing.T) {
	m := frozenMetrics(10 * time.Second)
	m.URLsTotal = 6
	for i := 0; i < 5; i++ {
		m.RecordSuccess(1048576) // 1 MB each
	}
	m.RecordSkip()

	s := m.Summarize()

	assert.Equal(t, 6, s.URLsTotal)
	assert.Equal(t, 5, s.URLsSuccess)
	assert.Equal(t, 1, s.URLsSkipped)
	assert.Equal(t, int64(5*1048576), s.BytesDownloaded)
	assert.Equal(t, 5.0, s.MBDownloaded)
	assert.Equal(t, 10.0, s.DurationSeconds)
	assert.Equal(t, 0.5, s.URLsPerSecond)
	assert.Equal(t, 0.5, s.MBPerSecond)
}

func TestSummarize_ZeroDuration(t *testing.T) {
	m := frozenMetrics(0)
	m.RecordSuccess(100)

	s := m.Summarize()

	assert.Equal(t, 0.0, s.DurationSeconds)
	assert.Equal(t, 0.0, s.URLsPerSecond)
	assert.Equal(t, 0.0, s.MBPerSecond)
}

func TestSummarize_Rounding(t *testing.T) {
	m := frozenMetrics(3 * time.Second)
	m.RecordSuccess(1000000) // 0.95367... MB

	s := m.Summarize()

	assert.Equal(t, 0.95, s.MBDownloaded)
	assert.Equal(t, 0.33, s.URLsPerSecond)
	assert.Equal(t, 0.32, s.MBPerSecond)
}

func TestRecordFailure_Categorizes(t *testing.T) {
	m := NewCrawlMetrics()
	m.RecordFailure(utils.ErrContentTooShort)
	m.RecordFailure(utils.ErrContentTooShort)
	m.RecordFailure(errors.New("mystery"))

	assert.Equal(t, 3, m.URLsFailed)
	assert.Equal(t, 2, m.ErrorCounts[utils.CategorizeError(utils.ErrContentTooShort)])

	s := m.Summarize()
	assert.Len(t, s.ErrorCounts, 2)
}
