// Package deps resolves the local assets a fragment references (images,
// included files) so the cache can track them and missing ones can be
// reported before conversion starts.
package deps

import (
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	aderrors "git.home.luguber.info/inful/autodoc/internal/errors"
	"git.home.luguber.info/inful/autodoc/internal/markdown"
)

// Edge records that a fragment depends on a local asset.
type Edge struct {
	// Fragment is the absolute path of the referencing fragment.
	Fragment string
	// Asset is the absolute path the reference resolves to.
	Asset string
	// Exists reports whether the asset was present at extraction time.
	Exists bool
}

// Graph is the dependency view of one discovery pass.
type Graph struct {
	edges map[string][]Edge
}

// NewGraph returns an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{edges: make(map[string][]Edge)}
}

// Add records the asset edges extracted from one fragment body. Edges are
// deduplicated and kept sorted so downstream fingerprinting is stable.
func (g *Graph) Add(fragment string, edges []Edge) {
	seen := make(map[string]struct{}, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if _, dup := seen[e.Asset]; dup {
			continue
		}
		seen[e.Asset] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	g.edges[fragment] = out
}

// Assets returns the sorted asset paths a fragment depends on.
func (g *Graph) Assets(fragment string) []string {
	edges := g.edges[fragment]
	assets := make([]string, len(edges))
	for i, e := range edges {
		assets[i] = e.Asset
	}
	return assets
}

// Missing returns a warning per referenced asset that does not exist, across
// all fragments, in deterministic order.
func (g *Graph) Missing() []*aderrors.AutoDocError {
	fragments := make([]string, 0, len(g.edges))
	for f := range g.edges {
		fragments = append(fragments, f)
	}
	sort.Strings(fragments)

	var warnings []*aderrors.AutoDocError
	for _, f := range fragments {
		for _, e := range g.edges[f] {
			if !e.Exists {
				warnings = append(warnings, aderrors.DependencyWarning(f, e.Asset))
			}
		}
	}
	return warnings
}

// Extract parses a fragment body and resolves its link destinations to local
// asset paths. Destinations with a URL scheme, absolute paths outside the
// project, and pure anchors are skipped.
func Extract(fragment string, body []byte, sourceDir string) ([]Edge, error) {
	links, err := markdown.ExtractLinks(body)
	if err != nil {
		return nil, err
	}

	var edges []Edge
	for _, link := range links {
		asset, ok := resolve(link.Destination, fragment, sourceDir)
		if !ok {
			continue
		}
		_, statErr := os.Stat(asset)
		edges = append(edges, Edge{
			Fragment: fragment,
			Asset:    asset,
			Exists:   statErr == nil,
		})
	}
	return edges, nil
}

// resolve maps a link destination to an absolute local path, or reports that
// the destination is not a local asset.
func resolve(dest, fragment, sourceDir string) (string, bool) {
	if dest == "" || strings.HasPrefix(dest, "#") {
		return "", false
	}
	if u, err := url.Parse(dest); err == nil && u.Scheme != "" {
		return "", false
	}
	// Strip a trailing anchor from local references like guide.md#setup.
	if idx := strings.IndexByte(dest, '#'); idx >= 0 {
		dest = dest[:idx]
		if dest == "" {
			return "", false
		}
	}
	if filepath.IsAbs(dest) {
		return filepath.Clean(dest), true
	}
	base := filepath.Dir(fragment)
	if base == "" {
		base = sourceDir
	}
	return filepath.Clean(filepath.Join(base, dest)), true
}
