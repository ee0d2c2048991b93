package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractResolvesLocalAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte("png"), 0o644))
	fragment := filepath.Join(dir, "01-a.md")

	body := []byte(`
![Logo](logo.png)
![Missing](images/gone.png)
[Site](https://example.com/page)
[Anchor](#section)
[Other](02-b.md#setup)
`)

	edges, err := Extract(fragment, body, dir)
	require.NoError(t, err)

	byAsset := make(map[string]Edge, len(edges))
	for _, e := range edges {
		byAsset[e.Asset] = e
	}

	logo := byAsset[filepath.Join(dir, "logo.png")]
	require.True(t, logo.Exists)

	missing := byAsset[filepath.Join(dir, "images", "gone.png")]
	require.False(t, missing.Exists)

	other := byAsset[filepath.Join(dir, "02-b.md")]
	require.Equal(t, fragment, other.Fragment)

	// URLs and pure anchors never become edges.
	require.Len(t, edges, 3)
}

func TestGraphMissingWarnings(t *testing.T) {
	g := NewGraph()
	g.Add("b.md", []Edge{{Fragment: "b.md", Asset: "/x/two.png", Exists: false}})
	g.Add("a.md", []Edge{
		{Fragment: "a.md", Asset: "/x/one.png", Exists: false},
		{Fragment: "a.md", Asset: "/x/ok.png", Exists: true},
	})

	warnings := g.Missing()
	require.Len(t, warnings, 2)
	// Deterministic order: fragments sorted, then assets sorted.
	require.Equal(t, "a.md", warnings[0].Context["owner"])
	require.Equal(t, "/x/one.png", warnings[0].Context["asset"])
	require.Equal(t, "b.md", warnings[1].Context["owner"])
}

func TestGraphDeduplicatesEdges(t *testing.T) {
	g := NewGraph()
	g.Add("a.md", []Edge{
		{Fragment: "a.md", Asset: "/x/img.png", Exists: true},
		{Fragment: "a.md", Asset: "/x/img.png", Exists: true},
	})
	require.Equal(t, []string{"/x/img.png"}, g.Assets("a.md"))
}
