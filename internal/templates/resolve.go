// Package templates locates converter templates for each output format and
// can install new ones, locally or from a remote catalog.
package templates

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/autodoc/internal/cache"
)

// Preferred file names per format, checked in order inside the templates
// directory. The eisvogel LaTeX template is the conventional choice for pdf.
var preferredNames = map[string][]string{
	"pdf":  {"eisvogel.latex", "template.latex", "template.tex"},
	"docx": {"reference.docx", "template.docx"},
	"html": {"template.html", "template.html5"},
}

// Resolved is a located template.
type Resolved struct {
	Path string
	// Fingerprint is the content hash, used for cache invalidation.
	Fingerprint string
}

// Resolve finds the template for a format inside dir. A missing template is
// not an error: the converter falls back to its built-in defaults and the
// returned Resolved is zero.
func Resolve(dir, format string) (Resolved, error) {
	if dir == "" {
		return Resolved{}, nil
	}
	for _, name := range preferredNames[format] {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fp, err := cache.FileFingerprint(path)
		if err != nil {
			return Resolved{}, fmt.Errorf("fingerprint template: %w", err)
		}
		return Resolved{Path: path, Fingerprint: fp}, nil
	}
	return Resolved{}, nil
}

// Entry is one installed template file.
type Entry struct {
	Name string
	Path string
	Size int64
}

// List enumerates the files in the templates directory, sorted by name. A
// missing directory lists as empty.
func List(dir string) ([]Entry, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read templates directory: %w", err)
	}

	var out []Entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Install copies a template file into the templates directory under its base
// name, creating the directory if needed.
func Install(dir, src string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("no templates directory configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create templates directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open template source: %w", err)
	}
	defer func() { _ = in.Close() }()

	dst := filepath.Join(dir, filepath.Base(src))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create template: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("copy template: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close template: %w", err)
	}
	return dst, nil
}
