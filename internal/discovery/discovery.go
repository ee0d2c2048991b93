// Package discovery enumerates the Markdown fragments that make up a
// document, in the deterministic order they are concatenated for conversion.
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/autodoc/internal/config"
	aderrors "git.home.luguber.info/inful/autodoc/internal/errors"
)

// File is one discovered Markdown fragment.
type File struct {
	// Path is the absolute path to the fragment.
	Path string
	// Name is the base file name, the sort key.
	Name string
	// IsSetup marks the metadata setup fragment (00-setup.md).
	IsSetup bool
}

// Result is the ordered fragment list for one source directory.
type Result struct {
	Root  string
	Files []File
}

// Setup returns the setup fragment if present.
func (r Result) Setup() (File, bool) {
	for _, f := range r.Files {
		if f.IsSetup {
			return f, true
		}
	}
	return File{}, false
}

// Paths returns the ordered fragment paths.
func (r Result) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

// ignoredNames are conventional repository files that are never document
// fragments.
var ignoredNames = map[string]struct{}{
	"README.md":       {},
	"CONTRIBUTING.md": {},
	"CHANGELOG.md":    {},
	"LICENSE.md":      {},
}

// Discover lists the .md files directly inside root, excluding hidden files,
// conventional repository files, and names matched by the exclude globs,
// ordered by natural sort of the file name so numeric prefixes order as
// humans expect (2-intro before 10-details). A missing or unreadable root is
// fatal: there is nothing to build without it.
func Discover(root string, exclude []string) (Result, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Result{}, aderrors.DiscoveryError("cannot read source directory", err).WithContext("path", root)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".md") {
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, ignored := ignoredNames[name]; ignored {
			continue
		}
		if excluded(name, exclude) {
			continue
		}
		files = append(files, File{
			Path:    filepath.Join(root, name),
			Name:    name,
			IsSetup: name == config.SetupFileName,
		})
	}

	sortNatural(files)
	return Result{Root: root, Files: files}, nil
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// sortNatural orders files so that embedded digit runs compare numerically.
// Names the collator considers equal ("02-a.md" vs "2-a.md") fall back to
// plain string order so the result is a total order.
func sortNatural(files []File) {
	coll := collate.New(language.Und, collate.Numeric)
	sort.Slice(files, func(i, j int) bool {
		if c := coll.CompareString(files[i].Name, files[j].Name); c != 0 {
			return c < 0
		}
		return files[i].Name < files[j].Name
	})
}
