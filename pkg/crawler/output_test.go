package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOutputManager_Finalize(t *testing.T) {
	store := newMemStore()
	om := NewOutputManager(store, testLogger().WithField("test", true), "docs", "https://docs.test/llms.txt", "session-1")

	markdown := []byte("# Intro\n\nSome body text.\n\n## Details\n")
	om.RecordPage("https://docs.test/intro", "intro.md", "Intro Page", markdown)
	om.RecordPage("https://docs.test/details", "details.md", "Details Page", []byte("# Details\n"))

	require.NoError(t, om.Finalize(Summary{URLsTotal: 2, URLsSuccess: 2}))
	assert.Equal(t, 2, om.PagesSaved())

	mapping, err := store.Read("url_to_file_map.tsv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(mapping)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "https://docs.test/intro\tintro.md", lines[0])

	metaRaw, err := store.Read("metadata.yaml")
	require.NoError(t, err)

	var meta RunMetadata
	require.NoError(t, yaml.Unmarshal(metaRaw, &meta))
	assert.Equal(t, "docs", meta.Site)
	assert.Equal(t, "session-1", meta.SessionID)
	assert.Equal(t, 2, meta.Summary.URLsTotal)
	require.Len(t, meta.Pages, 2)
	assert.Equal(t, "intro.md", meta.Pages[0].File)
	assert.Equal(t, []string{"Intro", "Details"}, meta.Pages[0].Headings)
	assert.Len(t, meta.Pages[0].ContentHash, 64)
}

func TestOutputManager_FinalizeWithNoPages(t *testing.T) {
	store := newMemStore()
	om := NewOutputManager(store, testLogger().WithField("test", true), "docs", "src", "session-2")

	require.NoError(t, om.Finalize(Summary{}))

	assert.False(t, store.Exists("url_to_file_map.tsv"), "no mapping file without pages")
	assert.True(t, store.Exists("metadata.yaml"))
}
