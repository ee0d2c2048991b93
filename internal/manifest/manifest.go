// Package manifest records what one build run did: which fragments went in,
// which artifacts came out, and what was skipped or failed along the way.
// The manifest is written next to the artifacts and published on the build
// event stream.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/autodoc/internal/version"
)

// FileName is the manifest file written into the output directory.
const FileName = "autodoc-manifest.json"

// FragmentRecord is one discovered fragment and its content fingerprint.
type FragmentRecord struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	IsSetup     bool   `json:"is_setup,omitempty"`
}

// FormatResult is the outcome of one format build.
type FormatResult struct {
	Format   string        `json:"format"`
	Artifact string        `json:"artifact,omitempty"`
	Skipped  bool          `json:"skipped,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// BuildManifest describes one full build run.
type BuildManifest struct {
	ID           string           `json:"id"`
	Project      string           `json:"project"`
	ToolVersion  string           `json:"tool_version"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	MetadataHash string           `json:"metadata_hash"`
	Fragments    []FragmentRecord `json:"fragments"`
	Formats      []FormatResult   `json:"formats"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// New starts a manifest for a build run.
func New(project string) *BuildManifest {
	return &BuildManifest{
		ID:          uuid.NewString(),
		Project:     project,
		ToolVersion: version.Version,
		StartedAt:   time.Now().UTC(),
	}
}

// Finish stamps the end time.
func (m *BuildManifest) Finish() {
	m.FinishedAt = time.Now().UTC()
}

// Succeeded reports whether every non-skipped format produced an artifact.
func (m *BuildManifest) Succeeded() bool {
	for _, f := range m.Formats {
		if f.Error != "" {
			return false
		}
	}
	return true
}

// ToJSON serializes the manifest.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// FromJSON deserializes a manifest.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Hash returns a digest of the serialized manifest.
func (m *BuildManifest) Hash() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("hash manifest: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WriteFile writes the manifest atomically into dir.
func (m *BuildManifest) WriteFile(dir string) error {
	data, err := m.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}

	path := filepath.Join(dir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}
