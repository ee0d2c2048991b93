package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	m := New("guide")
	require.NotEmpty(t, m.ID)
	require.Equal(t, "guide", m.Project)

	m.Fragments = append(m.Fragments, FragmentRecord{Path: "src/01-a.md", Fingerprint: "fp", IsSetup: false})
	m.Formats = append(m.Formats, FormatResult{Format: "pdf", Artifact: "output/guide.pdf"})
	m.Finish()

	data, err := m.ToJSON()
	require.NoError(t, err)

	parsed, err := FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, m.ID, parsed.ID)
	require.Equal(t, m.Fragments, parsed.Fragments)
	require.Equal(t, m.Formats, parsed.Formats)
}

func TestManifestIDsAreUnique(t *testing.T) {
	require.NotEqual(t, New("p").ID, New("p").ID)
}

func TestSucceeded(t *testing.T) {
	m := New("p")
	m.Formats = []FormatResult{{Format: "pdf", Artifact: "a.pdf"}, {Format: "html", Skipped: true}}
	require.True(t, m.Succeeded())

	m.Formats = append(m.Formats, FormatResult{Format: "docx", Error: "boom"})
	require.False(t, m.Succeeded())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	m := New("guide")
	m.Finish()
	require.NoError(t, m.WriteFile(dir))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	parsed, err := FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, m.ID, parsed.ID)

	// No temp file left behind.
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte("not json"))
	require.Error(t, err)
}
