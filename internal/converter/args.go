package converter

import (
	"strings"

	"git.home.luguber.info/inful/autodoc/internal/metadata"
)

// Job describes one format conversion: the ordered staged inputs, the
// artifact to produce, and everything that shapes the converter invocation.
type Job struct {
	Format string
	// Inputs are the staged fragment paths, already in document order.
	Inputs []string
	// Output is the artifact path, extension matching the format.
	Output string
	Meta   metadata.DocumentMetadata
	// Template is the resolved template path; empty means converter default.
	// For pdf this is a LaTeX template, for docx a reference document.
	Template string
	// ResourcePaths are searched for images and includes.
	ResourcePaths []string
	PDFEngine     string
}

// babelLanguages maps BCP 47 primary language tags to babel language names.
// Used for pdf output when the frontmatter sets lang but not babel_lang.
var babelLanguages = map[string]string{
	"cs": "czech",
	"da": "danish",
	"de": "ngerman",
	"en": "english",
	"es": "spanish",
	"fi": "finnish",
	"fr": "french",
	"it": "italian",
	"nl": "dutch",
	"no": "norsk",
	"pl": "polish",
	"pt": "portuguese",
	"ru": "russian",
	"sv": "swedish",
}

// BabelLangFor derives the babel language for a document language tag, or ""
// when no mapping is known.
func BabelLangFor(lang string) string {
	if lang == "" {
		return ""
	}
	primary := lang
	if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
		primary = lang[:idx]
	}
	return babelLanguages[strings.ToLower(primary)]
}

// BuildArgs assembles the pandoc argument list for a job. The mapping is
// deterministic: same job, same arguments, which keeps converter invocations
// reproducible and testable.
func BuildArgs(job Job) []string {
	args := []string{"--standalone", "--citeproc"}

	meta := job.Meta
	if meta.BabelLang == "" && job.Format == "pdf" {
		meta.BabelLang = BabelLangFor(meta.Lang)
	}

	if meta.NumberSections != nil && *meta.NumberSections {
		args = append(args, "--number-sections")
	}
	if meta.TopLevelDivision != "" {
		args = append(args, "--top-level-division", meta.TopLevelDivision)
	}
	if meta.TOC != nil && *meta.TOC {
		args = append(args, "--toc")
	}

	switch job.Format {
	case "pdf":
		engine := job.PDFEngine
		if engine == "" {
			engine = "xelatex"
		}
		args = append(args, "--pdf-engine", engine, "--listings")
		if job.Template != "" {
			args = append(args, "--template", job.Template)
		}
	case "docx":
		args = append(args, "--to", "docx")
		if job.Template != "" {
			args = append(args, "--reference-doc", job.Template)
		}
	case "html":
		args = append(args, "--to", "html5", "--embed-resources")
		if job.Template != "" {
			args = append(args, "--template", job.Template)
		}
	}

	for _, rp := range job.ResourcePaths {
		args = append(args, "--resource-path", rp)
	}

	for _, bib := range meta.Bibliography {
		args = append(args, "--bibliography", bib)
	}

	for _, pair := range meta.Pairs() {
		args = append(args, "--metadata", pair.Key+"="+pair.Value)
	}

	args = append(args, "-o", job.Output)
	args = append(args, job.Inputs...)
	return args
}
