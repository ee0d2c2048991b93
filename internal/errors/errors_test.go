package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CategoryConfig, SeverityFatal, "bad config")
	require.Equal(t, "config (fatal): bad config", err.Error())

	cause := stderrors.New("yaml: line 3")
	wrapped := Wrap(cause, CategoryParse, SeverityWarning, "invalid frontmatter")
	require.Contains(t, wrapped.Error(), "yaml: line 3")
	require.ErrorIs(t, wrapped, cause)
}

func TestCategoryAndSeverityHelpers(t *testing.T) {
	err := DiscoveryError("cannot read source directory", nil)
	require.True(t, IsCategory(err, CategoryDiscovery))
	require.False(t, IsCategory(err, CategoryConfig))
	require.True(t, IsFatal(err))
	require.Equal(t, CategoryDiscovery, GetCategory(err))

	plain := stderrors.New("plain")
	require.False(t, IsFatal(plain))
	require.Equal(t, CategoryInternal, GetCategory(plain))
}

func TestContextAccumulates(t *testing.T) {
	err := ParseError("src/01-a.md", nil).WithContext("line", 3)
	require.Equal(t, "src/01-a.md", err.Context["path"])
	require.Equal(t, 3, err.Context["line"])
	require.Equal(t, SeverityWarning, err.Severity)
}

func TestConverterErrorCarriesFormat(t *testing.T) {
	err := ConverterError("pdf", "pandoc failed", stderrors.New("exit 1"))
	require.Equal(t, "pdf", err.Context["format"])
	require.Equal(t, SeverityError, err.Severity)
}
