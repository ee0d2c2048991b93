package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter(t *testing.T) {
	content := []byte(`---
title: User Guide
author: Jane Doe
lang: de
numbersections: false
custom_field: custom value
---

# Introduction
`)

	result, err := Parse("01-intro.md", content)
	require.NoError(t, err)
	require.True(t, result.HadFrontmatter)
	require.Equal(t, "User Guide", result.Meta.Title)
	require.Equal(t, StringList{"Jane Doe"}, result.Meta.Author)
	require.Equal(t, "de", result.Meta.Lang)
	require.NotNil(t, result.Meta.NumberSections)
	require.False(t, *result.Meta.NumberSections)
	require.Equal(t, "custom value", result.Meta.Extra["custom_field"])
	require.Contains(t, string(result.Body), "# Introduction")
	require.NotContains(t, string(result.Body), "title:")
}

func TestParseNoFrontmatter(t *testing.T) {
	content := []byte("# Just content\n\nNo frontmatter here.\n")

	result, err := Parse("02-body.md", content)
	require.NoError(t, err)
	require.False(t, result.HadFrontmatter)
	require.Equal(t, DocumentMetadata{}, result.Meta)
	require.Equal(t, content, result.Body)
}

func TestParseMalformedFrontmatter(t *testing.T) {
	content := []byte("---\ntitle: [unclosed\n  bad: yaml: here\n---\n\nbody\n")

	result, err := Parse("03-bad.md", content)
	require.Error(t, err)
	// The file still participates in the build with its full content.
	require.Equal(t, content, result.Body)
	require.Equal(t, DocumentMetadata{}, result.Meta)
}

func TestAuthorAcceptsScalarAndList(t *testing.T) {
	scalar, err := Parse("a.md", []byte("---\nauthor: Solo\n---\nbody"))
	require.NoError(t, err)
	require.Equal(t, StringList{"Solo"}, scalar.Meta.Author)

	list, err := Parse("b.md", []byte("---\nauthor:\n  - One\n  - Two\n---\nbody"))
	require.NoError(t, err)
	require.Equal(t, StringList{"One", "Two"}, list.Meta.Author)
}

func TestFromMapRoutesUnknownKeys(t *testing.T) {
	meta, err := FromMap(map[string]any{
		"title":        "Handbook",
		"toc":          true,
		"header-right": "Confidential",
		"keywords":     []any{"a", "b"},
	})
	require.NoError(t, err)
	require.Equal(t, "Handbook", meta.Title)
	require.NotNil(t, meta.TOC)
	require.True(t, *meta.TOC)
	require.Equal(t, "Confidential", meta.Extra["header-right"])
	require.Equal(t, []any{"a", "b"}, meta.Extra["keywords"])
}
