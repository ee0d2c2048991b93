package converter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	aderrors "git.home.luguber.info/inful/autodoc/internal/errors"
	"git.home.luguber.info/inful/autodoc/internal/metadata"
)

// fakeRunner records the invocation instead of executing anything.
type fakeRunner struct {
	name   string
	args   []string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string) (string, error) {
	f.name = name
	f.args = args
	return f.stderr, f.err
}

func TestConvertInvokesConfiguredBinary(t *testing.T) {
	runner := &fakeRunner{}
	c := New("pandoc-custom", 0, runner, nil)

	job := Job{
		Format: "html",
		Inputs: []string{"a.md"},
		Output: "out.html",
		Meta:   metadata.DocumentMetadata{Title: "T"},
	}
	require.NoError(t, c.Convert(context.Background(), job))
	require.Equal(t, "pandoc-custom", runner.name)
	require.Equal(t, BuildArgs(job), runner.args)
}

func TestConvertFailureIsFormatScoped(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1"), stderr: "! LaTeX Error"}
	c := New("", 0, runner, nil)

	err := c.Convert(context.Background(), Job{Format: "pdf", Inputs: []string{"a.md"}, Output: "out.pdf"})
	require.Error(t, err)
	require.True(t, aderrors.IsCategory(err, aderrors.CategoryConverter))
	require.False(t, aderrors.IsFatal(err))
	require.Contains(t, err.Error(), "LaTeX Error")

	var ade *aderrors.AutoDocError
	require.ErrorAs(t, err, &ade)
	require.Equal(t, "pdf", ade.Context["format"])
}

func TestConvertRejectsEmptyInputs(t *testing.T) {
	c := New("", 0, &fakeRunner{}, nil)
	err := c.Convert(context.Background(), Job{Format: "pdf", Output: "out.pdf"})
	require.Error(t, err)
	require.True(t, aderrors.IsCategory(err, aderrors.CategoryConverter))
}

func TestCheckAndMissingRequired(t *testing.T) {
	deps := []Dependency{
		{Name: "converter", Binary: "definitely-not-on-path-xyz", Required: true},
		{Name: "pdf engine", Binary: "also-not-on-path-xyz", Required: true, Formats: []string{"pdf"}},
		{Name: "optional", Binary: "missing-optional-xyz", Required: false},
	}

	statuses := Check(deps)
	require.Len(t, statuses, 3)
	for _, st := range statuses {
		require.False(t, st.Found)
	}

	missing := MissingRequired(statuses, []string{"html"})
	require.Len(t, missing, 1)
	require.Equal(t, "converter", missing[0].Name)

	missing = MissingRequired(statuses, []string{"pdf", "html"})
	require.Len(t, missing, 2)
}
