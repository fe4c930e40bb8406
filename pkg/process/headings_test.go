package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHeadings_BasicMarkdown(t *testing.T) {
	markdown := []byte(`# Main Title

Some intro text.

## Section One

Content here.

### Subsection A

More content.

## Section Two

Final content.
`)

	headings := ExtractHeadings(markdown)

	assert.Equal(t, []string{
		"Main Title",
		"Section One",
		"Subsection A",
		"Section Two",
	}, headings)
}

func TestExtractHeadings_Empty(t *testing.T) {
	markdown := []byte(`Just plain text without any headings.`)

	assert.Empty(t, ExtractHeadings(markdown))
}

func TestExtractHeadings_AllLevels(t *testing.T) {
	markdown := []byte(`# H1
## H2
### H3
#### H4
##### H5
###### H6
`)

	assert.Equal(t, []string{"H1", "H2", "H3", "H4", "H5", "H6"}, ExtractHeadings(markdown))
}

func TestFirstHeading(t *testing.T) {
	assert.Equal(t, "Main Title", FirstHeading([]byte("# Main Title\n\ntext\n\n## Later")))
	assert.Equal(t, "", FirstHeading([]byte("no headings here")))
}
