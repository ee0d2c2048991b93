// Package metadata extracts per-fragment frontmatter and merges it into the
// single metadata snapshot a build passes to the converter.
package metadata

import (
	"bytes"
	"fmt"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	aderrors "git.home.luguber.info/inful/autodoc/internal/errors"
)

// StringList accepts either a YAML scalar or a sequence, so authors can write
// `author: Jane` as well as `author: [Jane, Joe]`.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*s = StringList(many)
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence, got yaml kind %d", value.Kind)
	}
}

// DocumentMetadata is the fixed set of known semantic fields recognized in
// fragment frontmatter, plus an open map of everything else. Unknown keys are
// preserved verbatim and passed through to the converter.
type DocumentMetadata struct {
	// Standard document metadata
	Title    string     `yaml:"title,omitempty" json:"title,omitempty"`
	Subtitle string     `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Author   StringList `yaml:"author,omitempty" json:"author,omitempty"`
	Date     string     `yaml:"date,omitempty" json:"date,omitempty"`

	// Language and localization
	Lang      string `yaml:"lang,omitempty" json:"lang,omitempty"`
	BabelLang string `yaml:"babel_lang,omitempty" json:"babel_lang,omitempty"`

	// Document structure
	TopLevelDivision string `yaml:"top_level_division,omitempty" json:"top_level_division,omitempty"`
	NumberSections   *bool  `yaml:"numbersections,omitempty" json:"numbersections,omitempty"`
	SecNumDepth      int    `yaml:"secnumdepth,omitempty" json:"secnumdepth,omitempty"`
	TOC              *bool  `yaml:"toc,omitempty" json:"toc,omitempty"`
	TOCDepth         int    `yaml:"toc_depth,omitempty" json:"toc_depth,omitempty"`

	// Document class and layout
	DocumentClass string     `yaml:"documentclass,omitempty" json:"documentclass,omitempty"`
	ClassOption   StringList `yaml:"classoption,omitempty" json:"classoption,omitempty"`
	Geometry      StringList `yaml:"geometry,omitempty" json:"geometry,omitempty"`
	FontSize      string     `yaml:"fontsize,omitempty" json:"fontsize,omitempty"`
	MainFont      string     `yaml:"mainfont,omitempty" json:"mainfont,omitempty"`
	SansFont      string     `yaml:"sansfont,omitempty" json:"sansfont,omitempty"`
	MonoFont      string     `yaml:"monofont,omitempty" json:"monofont,omitempty"`

	// Bibliography
	Bibliography  StringList `yaml:"bibliography,omitempty" json:"bibliography,omitempty"`
	CSL           string     `yaml:"csl,omitempty" json:"csl,omitempty"`
	LinkCitations *bool      `yaml:"link_citations,omitempty" json:"link_citations,omitempty"`

	// PDF-specific
	ColorLinks *bool  `yaml:"colorlinks,omitempty" json:"colorlinks,omitempty"`
	LinkColor  string `yaml:"linkcolor,omitempty" json:"linkcolor,omitempty"`
	URLColor   string `yaml:"urlcolor,omitempty" json:"urlcolor,omitempty"`
	CiteColor  string `yaml:"citecolor,omitempty" json:"citecolor,omitempty"`
	Book       *bool  `yaml:"book,omitempty" json:"book,omitempty"`

	// Extra holds unrecognized keys, preserved verbatim.
	Extra map[string]any `yaml:"-" json:"extra,omitempty"`
}

// knownKeys is the set of frontmatter keys decoded into typed fields. Anything
// else lands in Extra.
var knownKeys = map[string]struct{}{
	"title": {}, "subtitle": {}, "author": {}, "date": {},
	"lang": {}, "babel_lang": {},
	"top_level_division": {}, "numbersections": {}, "secnumdepth": {},
	"toc": {}, "toc_depth": {},
	"documentclass": {}, "classoption": {}, "geometry": {}, "fontsize": {},
	"mainfont": {}, "sansfont": {}, "monofont": {},
	"bibliography": {}, "csl": {}, "link_citations": {},
	"colorlinks": {}, "linkcolor": {}, "urlcolor": {}, "citecolor": {}, "book": {},
}

// FromMap decodes a raw key/value map into DocumentMetadata, routing
// unrecognized keys into Extra.
func FromMap(raw map[string]any) (DocumentMetadata, error) {
	var meta DocumentMetadata
	if len(raw) == 0 {
		return meta, nil
	}

	known := make(map[string]any, len(raw))
	for k, v := range raw {
		if _, ok := knownKeys[k]; ok {
			known[k] = v
			continue
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string]any)
		}
		meta.Extra[k] = v
	}

	if len(known) > 0 {
		// Round-trip through YAML so StringList and pointer fields decode
		// the same way they would from a file.
		data, err := yaml.Marshal(known)
		if err != nil {
			return DocumentMetadata{}, err
		}
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return DocumentMetadata{}, err
		}
	}
	return meta, nil
}

// ParseResult is the outcome of parsing one fragment file.
type ParseResult struct {
	Meta DocumentMetadata
	// Body is the content with the frontmatter block stripped.
	Body []byte
	// HadFrontmatter reports whether a frontmatter block was present.
	HadFrontmatter bool
}

// Parse splits a leading `---` delimited frontmatter block from content and
// decodes it. A malformed block yields a file-scoped parse error together
// with a usable result: empty metadata and the full content as body, so the
// file still participates in the build.
func Parse(path string, content []byte) (ParseResult, error) {
	raw := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(content), &raw)
	if err != nil {
		return ParseResult{Body: content}, aderrors.ParseError(path, err)
	}

	meta, err := FromMap(raw)
	if err != nil {
		return ParseResult{Body: body, HadFrontmatter: len(raw) > 0}, aderrors.ParseError(path, err)
	}

	return ParseResult{
		Meta:           meta,
		Body:           body,
		HadFrontmatter: len(content) != len(body),
	}, nil
}
