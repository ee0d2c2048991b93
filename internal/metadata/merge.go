package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Merge folds metadata sources into one snapshot, first writer wins per
// field. Callers pass sources in priority order: config overrides first, then
// the setup file, then remaining fragments in discovery order, then defaults.
// List fields are taken whole from the first source that sets them; they are
// never concatenated across sources.
func Merge(sources ...DocumentMetadata) DocumentMetadata {
	var out DocumentMetadata
	for _, src := range sources {
		fill(&out, src)
	}
	return out
}

func fill(dst *DocumentMetadata, src DocumentMetadata) {
	fillString(&dst.Title, src.Title)
	fillString(&dst.Subtitle, src.Subtitle)
	fillList(&dst.Author, src.Author)
	fillString(&dst.Date, src.Date)

	fillString(&dst.Lang, src.Lang)
	fillString(&dst.BabelLang, src.BabelLang)

	fillString(&dst.TopLevelDivision, src.TopLevelDivision)
	fillBool(&dst.NumberSections, src.NumberSections)
	fillInt(&dst.SecNumDepth, src.SecNumDepth)
	fillBool(&dst.TOC, src.TOC)
	fillInt(&dst.TOCDepth, src.TOCDepth)

	fillString(&dst.DocumentClass, src.DocumentClass)
	fillList(&dst.ClassOption, src.ClassOption)
	fillList(&dst.Geometry, src.Geometry)
	fillString(&dst.FontSize, src.FontSize)
	fillString(&dst.MainFont, src.MainFont)
	fillString(&dst.SansFont, src.SansFont)
	fillString(&dst.MonoFont, src.MonoFont)

	fillList(&dst.Bibliography, src.Bibliography)
	fillString(&dst.CSL, src.CSL)
	fillBool(&dst.LinkCitations, src.LinkCitations)

	fillBool(&dst.ColorLinks, src.ColorLinks)
	fillString(&dst.LinkColor, src.LinkColor)
	fillString(&dst.URLColor, src.URLColor)
	fillString(&dst.CiteColor, src.CiteColor)
	fillBool(&dst.Book, src.Book)

	for k, v := range src.Extra {
		if dst.Extra == nil {
			dst.Extra = make(map[string]any)
		}
		if _, ok := dst.Extra[k]; !ok {
			dst.Extra[k] = v
		}
	}
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

func fillInt(dst *int, src int) {
	if *dst == 0 && src != 0 {
		*dst = src
	}
}

func fillBool(dst **bool, src *bool) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

func fillList(dst *StringList, src StringList) {
	if len(*dst) == 0 && len(src) > 0 {
		*dst = append(StringList(nil), src...)
	}
}

// Defaults returns the lowest-priority metadata source: values every build
// gets when neither configuration nor any fragment provides them.
func Defaults(projectName string, now time.Time) DocumentMetadata {
	numberSections := true
	return DocumentMetadata{
		Title:            projectName,
		Date:             now.Format("2006-01-02"),
		Lang:             "en",
		TopLevelDivision: "section",
		NumberSections:   &numberSections,
	}
}

// Hash returns a stable digest of the merged snapshot, used by the cache to
// detect metadata changes between builds. The encoding is canonical: struct
// fields in declaration order, Extra keys sorted.
func (m DocumentMetadata) Hash() string {
	// encoding/json sorts map keys, so Extra serializes deterministically.
	data, err := json.Marshal(m)
	if err != nil {
		// Marshal of this struct cannot fail for YAML-decoded values.
		data = []byte(fmt.Sprintf("%+v", m))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Pair is one metadata key/value destined for the converter command line.
type Pair struct {
	Key   string
	Value string
}

// Pairs flattens the snapshot into converter metadata arguments in a
// deterministic order: typed fields first, then Extra keys sorted. List
// values expand to one pair per element, except authors which join into a
// single comma-separated value, and bibliography which the converter passes
// as --bibliography flags instead.
func (m DocumentMetadata) Pairs() []Pair {
	var pairs []Pair
	add := func(key, value string) {
		if value != "" {
			pairs = append(pairs, Pair{Key: key, Value: value})
		}
	}
	addList := func(key string, values StringList) {
		for _, v := range values {
			add(key, v)
		}
	}
	addBool := func(key string, v *bool) {
		if v != nil {
			add(key, fmt.Sprintf("%t", *v))
		}
	}
	addInt := func(key string, v int) {
		if v != 0 {
			add(key, fmt.Sprintf("%d", v))
		}
	}

	add("title", m.Title)
	add("subtitle", m.Subtitle)
	add("author", strings.Join(m.Author, ", "))
	add("date", m.Date)
	add("lang", m.Lang)
	add("babel-lang", m.BabelLang)
	addBool("numbersections", m.NumberSections)
	addInt("secnumdepth", m.SecNumDepth)
	addBool("toc", m.TOC)
	addInt("toc-depth", m.TOCDepth)
	add("documentclass", m.DocumentClass)
	addList("classoption", m.ClassOption)
	addList("geometry", m.Geometry)
	add("fontsize", m.FontSize)
	add("mainfont", m.MainFont)
	add("sansfont", m.SansFont)
	add("monofont", m.MonoFont)
	add("csl", m.CSL)
	addBool("link-citations", m.LinkCitations)
	addBool("colorlinks", m.ColorLinks)
	add("linkcolor", m.LinkColor)
	add("urlcolor", m.URLColor)
	add("citecolor", m.CiteColor)
	addBool("book", m.Book)

	extraKeys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		switch v := m.Extra[k].(type) {
		case []any:
			for _, item := range v {
				add(k, fmt.Sprintf("%v", item))
			}
		default:
			add(k, fmt.Sprintf("%v", v))
		}
	}

	return pairs
}
