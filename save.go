package cindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/internal/store"
	"github.com/jward/cindex/kinds"
)

// Save writes the unit to path. The saved file holds the sources the
// unit was parsed from, its arguments and diagnostics, and a
// fingerprint of its top-level structure; Index.Read re-analyzes it.
// A unit with Error or Fatal diagnostics cannot be saved.
func (tu *TranslationUnit) Save(path string) error {
	tu.mu.Lock()
	defer tu.mu.Unlock()
	if tu.disposed || tu.unit == nil {
		return &SaveError{Kind: SaveErrorInvalidTU, Path: path}
	}
	u := tu.unit
	if u.HasErrors() {
		return &SaveError{Kind: SaveErrorTranslationErrors, Path: path}
	}

	start := time.Now()
	batch := store.NewBatchedStore()
	decls, err := writeUnit(batch, u)
	if err != nil {
		return &SaveError{Kind: SaveErrorUnknown, Path: path, Err: err}
	}
	// The unit is written beside path and renamed over it, so a failed
	// save leaves any earlier file in place.
	tmp := path + ".tmp"
	if err := writeStore(tmp, batch, u, decls); err != nil {
		removeStore(tmp)
		return &SaveError{Kind: SaveErrorUnknown, Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		removeStore(tmp)
		return &SaveError{Kind: SaveErrorUnknown, Path: path, Err: err}
	}
	tu.index.logger.Debug("saved translation unit",
		"file", tu.filename,
		"path", path,
		"rows", batch.Len(),
		"elapsed", time.Since(start),
	)
	return nil
}

// writeStore creates a fresh database at path holding the unit.
func writeStore(path string, batch *store.BatchedStore, u *engine.Unit, decls []store.TopLevelDecl) error {
	if err := removeStore(path); err != nil {
		return err
	}
	s, err := store.NewStore(path)
	if err != nil {
		return err
	}
	if err := commitUnit(s, batch, u, decls); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

// removeStore deletes a database and its WAL side files.
func removeStore(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func commitUnit(s *store.Store, batch *store.BatchedStore, u *engine.Unit, decls []store.TopLevelDecl) error {
	if err := s.Migrate(); err != nil {
		return err
	}
	if err := s.CommitBatch(batch); err != nil {
		return err
	}
	main := u.Main()
	if main == nil {
		return errors.New("unit has no main file")
	}
	meta := []struct{ key, value string }{
		{store.KeyFormat, store.FormatVersion},
		{store.KeyMainFile, main.Name},
		{store.KeyLanguage, u.Lang.String()},
		{store.KeyArgs, store.MarshalStrings(u.Args)},
		{store.KeyOptions, strconv.FormatUint(uint64(u.Options), 10)},
		{store.KeyFingerprint, store.ComputeFingerprint(decls, len(u.Diags))},
		{store.KeySavedAt, time.Now().UTC().Format(time.RFC3339)},
	}
	for _, m := range meta {
		if err := s.SetMetadata(m.key, m.value); err != nil {
			return err
		}
	}
	return s.Seal()
}

// writeUnit emits the rows describing u and returns its top-level
// declarations.
func writeUnit(ds store.DataStore, u *engine.Unit) ([]store.TopLevelDecl, error) {
	for i, f := range u.Files {
		if _, err := ds.InsertFile(&store.File{
			Ordinal:        i,
			Path:           f.Name,
			Content:        f.Content,
			ModTime:        f.ModTime,
			Overlay:        f.Overlay,
			IncludeGuarded: f.IncludeGuarded,
		}); err != nil {
			return nil, err
		}
	}
	for i := range u.Diags {
		if err := writeDiagnostic(ds, u, &u.Diags[i], nil, i); err != nil {
			return nil, err
		}
	}
	decls := topLevelDecls(u)
	for i := range decls {
		if _, err := ds.InsertTopLevelDecl(&decls[i]); err != nil {
			return nil, err
		}
	}
	return decls, nil
}

func writeDiagnostic(ds store.DataStore, u *engine.Unit, d *engine.Diagnostic, parent *int64, ordinal int) error {
	row := &store.Diagnostic{
		ParentID: parent,
		Ordinal:  ordinal,
		Severity: int(d.Severity),
		Offset:   int(d.Loc.Offset),
		Message:  d.Message,
		Option:   d.Option,
		Category: d.Category,
	}
	if f := u.File(d.Loc.File); f != nil {
		row.Path = f.Name
	}
	id, err := ds.InsertDiagnostic(row)
	if err != nil {
		return err
	}
	span := func(kind string, r engine.Range, text string, ordinal int) error {
		sp := &store.DiagnosticSpan{
			DiagnosticID: id,
			Ordinal:      ordinal,
			Kind:         kind,
			Start:        int(r.Start),
			End:          int(r.End),
			Replacement:  text,
		}
		if f := u.File(r.File); f != nil {
			sp.Path = f.Name
		}
		_, err := ds.InsertDiagnosticSpan(sp)
		return err
	}
	for i, r := range d.Ranges {
		if err := span(store.SpanRange, r, "", i); err != nil {
			return err
		}
	}
	for i, fx := range d.FixIts {
		if err := span(store.SpanFixIt, fx.Range, fx.Text, i); err != nil {
			return err
		}
	}
	for i := range d.Children {
		if err := writeDiagnostic(ds, u, &d.Children[i], &id, i); err != nil {
			return err
		}
	}
	return nil
}

// topLevelDecls lists the root cursor's children.
func topLevelDecls(u *engine.Unit) []store.TopLevelDecl {
	kids := u.Nodes[u.Root()].Children
	out := make([]store.TopLevelDecl, len(kids))
	for i, k := range kids {
		n := &u.Nodes[k]
		out[i] = store.TopLevelDecl{Ordinal: i, Kind: int(n.Kind), Name: n.Name}
	}
	return out
}

// savedUnit is what Read and LoadDiagnostics need from a saved file.
type savedUnit struct {
	main        string
	lang        engine.Lang
	args        []string
	options     ParseOptions
	fingerprint string
	files       []*store.File
}

func readSaved(s *store.Store) (*savedUnit, error) {
	format, err := s.GetMetadata(store.KeyFormat)
	if err != nil {
		return nil, err
	}
	if format != store.FormatVersion {
		return nil, fmt.Errorf("unsupported format version %q", format)
	}
	su := &savedUnit{}
	if su.main, err = s.GetMetadata(store.KeyMainFile); err != nil {
		return nil, err
	}
	lang, err := s.GetMetadata(store.KeyLanguage)
	if err != nil {
		return nil, err
	}
	if lang == engine.LangCPP.String() {
		su.lang = engine.LangCPP
	}
	rawArgs, err := s.GetMetadata(store.KeyArgs)
	if err != nil {
		return nil, err
	}
	if su.args, err = store.UnmarshalStrings(rawArgs); err != nil {
		return nil, fmt.Errorf("decoding args: %w", err)
	}
	rawOpts, err := s.GetMetadata(store.KeyOptions)
	if err != nil {
		return nil, err
	}
	opts, err := strconv.ParseUint(rawOpts, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("decoding options: %w", err)
	}
	su.options = ParseOptions(opts)
	if su.fingerprint, err = s.GetMetadata(store.KeyFingerprint); err != nil {
		return nil, err
	}
	if su.files, err = s.Files(); err != nil {
		return nil, err
	}
	return su, nil
}

// Read loads a unit saved with TranslationUnit.Save. The stored sources
// are re-analyzed and the result must match the saved fingerprint; a
// missing, corrupt or mismatched file fails with a *LoadError.
func (ix *Index) Read(ctx context.Context, path string) (*TranslationUnit, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	s, err := store.OpenReadOnly(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	su, err := readSaved(s)
	s.Close()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	overlays := make([]UnsavedFile, len(su.files))
	for i, f := range su.files {
		overlays[i] = UnsavedFile{Name: f.Path, Contents: f.Content}
	}
	if err := ix.acquire(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	tu := newTranslationUnit(ix, su.main, su.args, overlays, su.options)

	start := time.Now()
	u, err := ix.build(ctx, su.main, su.args, overlays, su.options)
	if err != nil {
		ix.release()
		return nil, &LoadError{Path: path, Err: err}
	}
	if got := store.ComputeFingerprint(topLevelDecls(u), len(u.Diags)); got != su.fingerprint {
		ix.release()
		return nil, &LoadError{Path: path, Err: fmt.Errorf("fingerprint mismatch: saved %s, reloaded %s", su.fingerprint, got)}
	}
	restoreFileInfo(u, su.files)
	tu.install(u)
	ix.logger.Debug("read translation unit",
		"path", path,
		"file", su.main,
		"elapsed", time.Since(start),
	)
	return tu, nil
}

// restoreFileInfo puts back the modification times and overlay flags
// the sources had when the unit was saved.
func restoreFileInfo(u *engine.Unit, files []*store.File) {
	for _, sf := range files {
		if f := u.FileByName(sf.Path); f != nil {
			f.ModTime = sf.ModTime
			f.Overlay = sf.Overlay
		}
	}
}

// LoadDiagnostics reads the diagnostics stored in a saved unit without
// re-analyzing it. The returned set is fixed.
func LoadDiagnostics(path string) (DiagnosticSet, error) {
	if _, err := os.Stat(path); err != nil {
		return DiagnosticSet{}, &LoadDiagnosticsError{Kind: LoadDiagCannotLoad, Path: path, Err: err}
	}
	s, err := store.OpenReadOnly(path)
	if err != nil {
		return DiagnosticSet{}, &LoadDiagnosticsError{Kind: LoadDiagCannotLoad, Path: path, Err: err}
	}
	defer s.Close()
	su, err := readSaved(s)
	if err != nil {
		return DiagnosticSet{}, &LoadDiagnosticsError{Kind: LoadDiagInvalidFile, Path: path, Err: err}
	}
	rows, err := s.Diagnostics()
	if err != nil {
		return DiagnosticSet{}, &LoadDiagnosticsError{Kind: LoadDiagUnknown, Path: path, Err: err}
	}

	u := engine.NewDetached(su.lang)
	for _, f := range su.files {
		id := u.AddFile(f.Path, f.Content, f.ModTime, f.Overlay)
		u.File(id).IncludeGuarded = f.IncludeGuarded
	}
	for _, r := range rows {
		u.Diags = append(u.Diags, restoreDiagnostic(u, r))
	}
	return DiagnosticSet{fixed: u}, nil
}

func restoreDiagnostic(u *engine.Unit, r *store.Diagnostic) engine.Diagnostic {
	d := engine.Diagnostic{
		Severity: engine.Severity(r.Severity),
		Loc:      restoreLoc(u, r.Path, r.Offset),
		Message:  r.Message,
		Option:   r.Option,
		Category: r.Category,
	}
	for _, sp := range r.Spans {
		l := restoreLoc(u, sp.Path, sp.Start)
		rng := engine.Range{File: l.File, Start: uint32(sp.Start), End: uint32(sp.End)}
		if l.IsNull() {
			rng = engine.Range{}
		}
		switch sp.Kind {
		case store.SpanRange:
			d.Ranges = append(d.Ranges, rng)
		case store.SpanFixIt:
			d.FixIts = append(d.FixIts, engine.FixIt{Range: rng, Text: sp.Replacement})
		}
	}
	for _, c := range r.Children {
		d.Children = append(d.Children, restoreDiagnostic(u, c))
	}
	return d
}

func restoreLoc(u *engine.Unit, path string, off int) engine.Loc {
	f := u.FileByName(path)
	if f == nil || path == "" {
		return engine.Loc{}
	}
	return engine.Loc{File: f.ID, Offset: uint32(off)}
}

// TopLevelKinds returns the kinds of the root cursor's children, the
// structure Save and Read keep stable.
func (tu *TranslationUnit) TopLevelKinds() ([]kinds.CursorKind, error) {
	u, _, _, err := tu.snapshot()
	if err != nil {
		return nil, fmt.Errorf("cindex: top-level kinds: %w", err)
	}
	decls := topLevelDecls(u)
	out := make([]kinds.CursorKind, len(decls))
	for i, d := range decls {
		out[i] = kinds.CursorKind(d.Kind)
	}
	return out, nil
}
