// Package config loads and validates the project configuration (autodoc.yaml).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	aderrors "git.home.luguber.info/inful/autodoc/internal/errors"
)

// SetupFileName is the conventional name of the designated setup file whose
// frontmatter takes top merge priority.
const SetupFileName = "00-setup.md"

// Config represents the application configuration
type Config struct {
	Project  ProjectConfig  `yaml:"project"`
	Build    BuildConfig    `yaml:"build"`
	Cache    CacheConfig    `yaml:"cache"`
	Diagrams DiagramConfig  `yaml:"diagrams"`
	Watch    WatchConfig    `yaml:"watch"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metadata map[string]any `yaml:"metadata,omitempty"` // per-run metadata overrides, highest merge priority
}

// ProjectConfig describes the project layout on disk
type ProjectConfig struct {
	Name         string   `yaml:"name"`
	SourceDir    string   `yaml:"source_dir,omitempty"`
	OutputDir    string   `yaml:"output_dir,omitempty"`
	TemplatesDir string   `yaml:"templates_dir,omitempty"`
	ImagesDir    string   `yaml:"images_dir,omitempty"`
	Exclude      []string `yaml:"exclude,omitempty"` // file name patterns excluded from discovery
}

// BuildConfig holds build tuning knobs. Zero values trigger defaults.
type BuildConfig struct {
	// Formats lists the output formats built by default (pdf, docx, html).
	Formats []string `yaml:"formats,omitempty"`
	// Jobs caps the number of formats built in parallel. Defaults to the
	// number of available processing units.
	Jobs int `yaml:"jobs,omitempty"`
	// ConverterTimeout bounds a single external converter invocation.
	ConverterTimeout time.Duration `yaml:"converter_timeout,omitempty"`
	// Converter is the external converter binary. Defaults to pandoc.
	Converter string `yaml:"converter,omitempty"`
	// PDFEngine selects the pandoc PDF engine. Defaults to xelatex.
	PDFEngine string `yaml:"pdf_engine,omitempty"`
}

// CacheConfig controls the persisted build cache
type CacheConfig struct {
	// Dir is the directory holding the persisted cache store, relative to the
	// project root unless absolute.
	Dir string `yaml:"dir,omitempty"`
	// Disabled turns the cache off entirely (every input treated as changed).
	Disabled bool `yaml:"disabled,omitempty"`
	// InvalidateOnTemplateChange makes a changed template invalidate every
	// format that used it. The upstream behavior is ambiguous, so this is an
	// explicit switch. Defaults to true.
	InvalidateOnTemplateChange *bool `yaml:"invalidate_on_template_change,omitempty"`
}

// DiagramConfig controls diagram rendering
type DiagramConfig struct {
	// Renderer is the external diagram renderer binary. Defaults to mmdc.
	Renderer string `yaml:"renderer,omitempty"`
	// RenderTimeout bounds a single diagram render.
	RenderTimeout time.Duration `yaml:"render_timeout,omitempty"`
}

// WatchConfig controls watch mode
type WatchConfig struct {
	// Debounce coalesces rapid file events before triggering a rebuild.
	Debounce time.Duration `yaml:"debounce,omitempty"`
	// RebuildInterval, when set, schedules periodic forced full rebuilds.
	RebuildInterval time.Duration `yaml:"rebuild_interval,omitempty"`
}

// NotifyConfig controls optional build-event publishing
type NotifyConfig struct {
	// URL is the NATS server URL. Empty disables publishing.
	URL string `yaml:"url,omitempty"`
	// Subject is the subject build events are published on.
	Subject string `yaml:"subject,omitempty"`
}

// DefaultFileNames lists the config file names probed by FindConfigFile, in order.
var DefaultFileNames = []string{"autodoc.yaml", "autodoc.yml", ".autodoc.yaml", ".autodoc.yml"}

// FindConfigFile returns the first existing conventional config file in dir,
// or empty string when none exists.
func FindConfigFile(dir string) string {
	for _, name := range DefaultFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load loads configuration from the specified file. An empty path probes the
// conventional file names in the current directory and falls back to defaults
// when none exists.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	loadEnvFiles()

	if configPath == "" {
		configPath = FindConfigFile(".")
	}

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, aderrors.ConfigError(fmt.Sprintf("failed to read config file %s", configPath), err)
		}

		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, aderrors.ConfigError("failed to unmarshal config", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, aderrors.ConfigError("invalid configuration", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project.Name == "" {
		c.Project.Name = "document"
	}
	if c.Project.SourceDir == "" {
		c.Project.SourceDir = "."
	}
	if c.Project.OutputDir == "" {
		c.Project.OutputDir = "output"
	}
	if c.Project.TemplatesDir == "" {
		c.Project.TemplatesDir = "templates"
	}
	if c.Project.ImagesDir == "" {
		c.Project.ImagesDir = "images"
	}
	if len(c.Build.Formats) == 0 {
		c.Build.Formats = []string{"pdf"}
	}
	if c.Build.Jobs <= 0 {
		c.Build.Jobs = runtime.NumCPU()
	}
	if c.Build.ConverterTimeout <= 0 {
		c.Build.ConverterTimeout = 2 * time.Minute
	}
	if c.Build.Converter == "" {
		c.Build.Converter = "pandoc"
	}
	if c.Build.PDFEngine == "" {
		c.Build.PDFEngine = "xelatex"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = ".autodoc"
	}
	if c.Cache.InvalidateOnTemplateChange == nil {
		v := true
		c.Cache.InvalidateOnTemplateChange = &v
	}
	if c.Diagrams.Renderer == "" {
		c.Diagrams.Renderer = "mmdc"
	}
	if c.Diagrams.RenderTimeout <= 0 {
		c.Diagrams.RenderTimeout = 30 * time.Second
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "autodoc.builds"
	}
}

// TemplateInvalidation reports whether a changed template invalidates the
// formats that used it.
func (c *Config) TemplateInvalidation() bool {
	return c.Cache.InvalidateOnTemplateChange == nil || *c.Cache.InvalidateOnTemplateChange
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if configPath == "" {
		configPath = DefaultFileNames[0]
	}
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := &Config{
		Project: ProjectConfig{
			Name:    "document",
			Exclude: []string{"README.md"},
		},
		Build: BuildConfig{
			Formats: []string{"pdf"},
		},
	}
	example.applyDefaults()

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	return os.WriteFile(configPath, data, 0o644)
}
