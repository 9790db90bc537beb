package cindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cindex/internal/engine"
)

func TestDiagnostics_Warning(t *testing.T) {
	tu := parseSource(t, "t.c", "static void f(void) {}\n")

	diags := tu.Diagnostics()
	require.Equal(t, 1, diags.Len())
	d, err := diags.At(0)
	require.NoError(t, err)

	assert.Equal(t, engine.SeverityWarning, d.Severity())
	assert.Equal(t, "unused function 'f'", d.Spelling())
	loc, err := d.Location()
	require.NoError(t, err)
	assertLocation(t, loc, 1, 13, 12)
	assert.Equal(t, "-Wunused-function", d.EnablingOption())
	assert.Equal(t, "-Wno-unused-function", d.DisablingOption())
	assert.Equal(t, "Unused Entity Issue", d.CategoryName())
	assert.Equal(t, "t.c:1:13: warning: unused function 'f' [-Wunused-function]", d.String())

	ranges, err := d.Ranges()
	require.NoError(t, err)
	require.Equal(t, 1, ranges.Len())
	r, err := ranges.At(0)
	require.NoError(t, err)
	assert.Equal(t, 12, r.Start().Offset())
	assert.Equal(t, 13, r.End().Offset())
	_, err = ranges.At(1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	fixes, err := d.FixIts()
	require.NoError(t, err)
	assert.Zero(t, fixes.Len())
	_, err = diags.At(1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDiagnostics_FormatOptions(t *testing.T) {
	tu := parseSource(t, "t.c", "static void f(void) {}\n")
	d, err := tu.Diagnostics().At(0)
	require.NoError(t, err)

	tests := []struct {
		name string
		opts DiagnosticDisplayOptions
		want string
	}{
		{"bare", 0, "warning: unused function 'f'"},
		{"no column", DisplaySourceLocation, "t.c:1: warning: unused function 'f'"},
		{"ranges", DisplaySourceLocation | DisplayColumn | DisplaySourceRanges, "t.c:1:13{1:13-1:14}: warning: unused function 'f'"},
		{"category", DisplayOption | DisplayCategoryName, "warning: unused function 'f' [-Wunused-function,Unused Entity Issue]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Format(tt.opts))
		})
	}
}

func TestDiagnostics_WarningFlags(t *testing.T) {
	const src = "static void f(void) {}\n"

	tests := []struct {
		name     string
		args     []string
		count    int
		severity engine.Severity
	}{
		{"default", nil, 1, engine.SeverityWarning},
		{"disabled", []string{"-Wno-unused-function"}, 1, engine.SeverityIgnored},
		{"werror", []string{"-Werror"}, 1, engine.SeverityError},
		{"promoted", []string{"-Werror=unused-function"}, 1, engine.SeverityError},
		{"silenced", []string{"-w"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := parseSource(t, "t.c", src, tt.args...)
			diags := tu.Diagnostics()
			require.Equal(t, tt.count, diags.Len())
			if tt.count > 0 {
				d, err := diags.At(0)
				require.NoError(t, err)
				assert.Equal(t, tt.severity, d.Severity())
			}
		})
	}
}

func TestDiagnostics_FixIt(t *testing.T) {
	tu := parseSource(t, "t.c", "int i")

	diags := tu.Diagnostics()
	require.Equal(t, 1, diags.Len())
	d, err := diags.At(0)
	require.NoError(t, err)
	assert.Equal(t, engine.SeverityError, d.Severity())
	assert.Equal(t, "expected ';'", d.Spelling())
	assert.Empty(t, d.EnablingOption())

	fixes, err := d.FixIts()
	require.NoError(t, err)
	require.Equal(t, 1, fixes.Len())
	fix, err := fixes.At(0)
	require.NoError(t, err)
	assert.Equal(t, ";", fix.Value)
	assert.Equal(t, 5, fix.Range.Start().Offset())
	assert.Equal(t, 5, fix.Range.End().Offset())
}

func TestDiagnostics_Children(t *testing.T) {
	tu := parseSource(t, "t.c", "#define A 1\n#define A 2\n")

	diags := tu.Diagnostics().All()
	require.Len(t, diags, 1)
	assert.Equal(t, "-Wmacro-redefined", diags[0].EnablingOption())

	notes := diags[0].Children()
	require.Len(t, notes, 1)
	assert.Equal(t, engine.SeverityNote, notes[0].Severity())
	assert.Equal(t, "previous definition is here", notes[0].Spelling())
	loc, err := notes[0].Location()
	require.NoError(t, err)
	assert.Equal(t, 1, loc.Line())
}

func TestDiagnostics_UserWarning(t *testing.T) {
	tu := parseSource(t, "t.c", "#warning check this\n")

	d, err := tu.Diagnostics().At(0)
	require.NoError(t, err)
	assert.Equal(t, engine.SeverityWarning, d.Severity())
	assert.Equal(t, "check this", d.Spelling())
	assert.Equal(t, "User-Defined Issue", d.CategoryName())
}

func TestDiagnostics_LiveAcrossReparse(t *testing.T) {
	tu := parseSource(t, "t.c", "int i")
	diags := tu.Diagnostics()
	require.Equal(t, 1, diags.Len())
	before, err := diags.At(0)
	require.NoError(t, err)

	require.NoError(t, tu.Reparse(context.Background(), []UnsavedFile{{Name: "t.c", Contents: []byte("int i;")}}))

	assert.Zero(t, diags.Len())
	assert.Empty(t, diags.All())
	assert.Equal(t, "expected ';'", before.Spelling())

	tu.Dispose()
	assert.Zero(t, diags.Len())
	_, err = diags.At(0)
	assert.ErrorIs(t, err, ErrDisposed)
}
