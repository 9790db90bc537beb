package cindex

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cindex/kinds"
)

const saveSource = "struct P { int x; };\nstatic void helper(void) {}\nint global = 3;\n"

func savedPath(t *testing.T, src string) string {
	t.Helper()
	tu := parseSource(t, "t.c", src)
	path := filepath.Join(t.TempDir(), "t.ast")
	require.NoError(t, tu.Save(path))
	return path
}

func TestSave_ReadRoundTrip(t *testing.T) {
	tu := parseSource(t, "t.c", saveSource)
	path := filepath.Join(t.TempDir(), "t.ast")
	require.NoError(t, tu.Save(path))

	ix := Create()
	defer ix.Dispose()
	loaded, err := ix.Read(context.Background(), path)
	require.NoError(t, err)
	defer loaded.Dispose()

	want, err := tu.TopLevelKinds()
	require.NoError(t, err)
	got, err := loaded.TopLevelKinds()
	require.NoError(t, err)
	assert.Equal(t, []kinds.CursorKind{kinds.StructDecl, kinds.FunctionDecl, kinds.VarDecl}, want)
	assert.Equal(t, want, got)

	assert.Equal(t, "t.c", loaded.Spelling())
	assert.Equal(t, "global", spelling(t, findCursor(t, loaded, "global")))

	diags := loaded.Diagnostics()
	require.Equal(t, 1, diags.Len())
	d, err := diags.At(0)
	require.NoError(t, err)
	assert.Equal(t, "unused function 'helper'", d.Spelling())

	f, err := loaded.File("t.c")
	require.NoError(t, err)
	contents, err := f.Contents()
	require.NoError(t, err)
	assert.Equal(t, saveSource, string(contents))
}

func TestSave_Overwrites(t *testing.T) {
	tu := parseSource(t, "t.c", saveSource)
	path := filepath.Join(t.TempDir(), "t.ast")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, tu.Save(path))
	require.NoError(t, tu.Save(path))

	ds, err := LoadDiagnostics(path)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestSave_FailureKeepsEarlierFile(t *testing.T) {
	tu := parseSource(t, "t.c", saveSource)
	path := filepath.Join(t.TempDir(), "t.ast")
	require.NoError(t, tu.Save(path))

	// A non-empty directory where the temporary file goes makes the
	// next save fail before anything is renamed.
	require.NoError(t, os.MkdirAll(filepath.Join(path+".tmp", "busy"), 0o755))
	err := tu.Save(path)
	var se *SaveError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SaveErrorUnknown, se.Kind)

	ds, err := LoadDiagnostics(path)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())

	require.NoError(t, os.RemoveAll(path+".tmp"))
	require.NoError(t, tu.Save(path))
	assert.NoFileExists(t, path+".tmp")
}

func TestSave_RefusesErrors(t *testing.T) {
	tu := parseSource(t, "t.c", "int i")
	path := filepath.Join(t.TempDir(), "t.ast")

	err := tu.Save(path)
	var se *SaveError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SaveErrorTranslationErrors, se.Kind)
	assert.NoFileExists(t, path)
}

func TestSave_DisposedUnit(t *testing.T) {
	tu := parseSource(t, "t.c", saveSource)
	tu.Dispose()

	err := tu.Save(filepath.Join(t.TempDir(), "t.ast"))
	var se *SaveError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SaveErrorInvalidTU, se.Kind)
}

func TestRead_Failures(t *testing.T) {
	ix := Create()
	defer ix.Dispose()
	dir := t.TempDir()

	_, err := ix.Read(context.Background(), filepath.Join(dir, "missing.ast"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	garbage := filepath.Join(dir, "garbage.ast")
	require.NoError(t, os.WriteFile(garbage, []byte("not a saved unit"), 0o644))
	_, err = ix.Read(context.Background(), garbage)
	assert.ErrorIs(t, err, ErrLoadFailed)

	ix.Dispose()
	_, err = ix.Read(context.Background(), savedPath(t, saveSource))
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestLoadDiagnostics(t *testing.T) {
	path := savedPath(t, "#define A 1\n#define A 2\nstatic void helper(void) {}\n")

	ds, err := LoadDiagnostics(path)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	first, err := ds.At(0)
	require.NoError(t, err)
	assert.Equal(t, "'A' macro redefined", first.Spelling())
	assert.Equal(t, "-Wmacro-redefined", first.EnablingOption())
	loc, err := first.Location()
	require.NoError(t, err)
	assertLocation(t, loc, 2, 9, 20)
	require.Len(t, first.Children(), 1)
	assert.Equal(t, "previous definition is here", first.Children()[0].Spelling())

	second, err := ds.At(1)
	require.NoError(t, err)
	assert.Equal(t, "unused function 'helper'", second.Spelling())
	ranges, err := second.Ranges()
	require.NoError(t, err)
	require.Equal(t, 1, ranges.Len())
	r, err := ranges.At(0)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Start().Line())
}

func TestLoadDiagnostics_Failures(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDiagnostics(filepath.Join(dir, "missing.ast"))
	var le *LoadDiagnosticsError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, LoadDiagCannotLoad, le.Kind)

	garbage := filepath.Join(dir, "garbage.ast")
	require.NoError(t, os.WriteFile(garbage, []byte("not a saved unit"), 0o644))
	_, err = LoadDiagnostics(garbage)
	require.True(t, errors.As(err, &le))
	assert.Contains(t, []LoadDiagnosticsErrorKind{LoadDiagCannotLoad, LoadDiagInvalidFile}, le.Kind)
}
