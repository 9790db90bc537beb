package store

import (
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	id, err := insertFile(s.db, f)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	f.ID = id
	return id, nil
}

// Files returns every stored file in insertion order.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query(
		"SELECT id, ordinal, path, content, mod_time, overlay, include_guarded FROM files ORDER BY ordinal, id",
	)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.Ordinal, &f.Path, &f.Content, &f.ModTime, &f.Overlay, &f.IncludeGuarded); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Diagnostic operations ---

func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	id, err := insertDiagnostic(s.db, d)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	d.ID = id
	return id, nil
}

func (s *Store) InsertDiagnosticSpan(sp *DiagnosticSpan) (int64, error) {
	id, err := insertDiagnosticSpan(s.db, sp)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic span: %w", err)
	}
	sp.ID = id
	return id, nil
}

// Diagnostics returns the top-level diagnostics in order, each with its
// spans and child notes attached.
func (s *Store) Diagnostics() ([]*Diagnostic, error) {
	rows, err := s.db.Query(
		`SELECT id, parent_id, ordinal, severity, COALESCE(path, ''), COALESCE(byte_offset, 0),
			message, COALESCE(option_name, ''), category
		 FROM diagnostics ORDER BY ordinal, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*Diagnostic)
	var all []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.ID, &d.ParentID, &d.Ordinal, &d.Severity, &d.Path, &d.Offset,
			&d.Message, &d.Option, &d.Category); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		byID[d.ID] = d
		all = append(all, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(all))
	for _, d := range all {
		ids = append(ids, d.ID)
	}
	spans, err := s.spansFor(ids)
	if err != nil {
		return nil, err
	}
	for _, sp := range spans {
		if d := byID[sp.DiagnosticID]; d != nil {
			d.Spans = append(d.Spans, *sp)
		}
	}

	var top []*Diagnostic
	for _, d := range all {
		if d.ParentID == nil {
			top = append(top, d)
			continue
		}
		parent := byID[*d.ParentID]
		if parent == nil {
			return nil, fmt.Errorf("diagnostic %d: dangling parent %d", d.ID, *d.ParentID)
		}
		parent.Children = append(parent.Children, d)
	}
	return top, nil
}

func (s *Store) spansFor(ids []int64) ([]*DiagnosticSpan, error) {
	rows, err := s.db.Query(
		`SELECT id, diagnostic_id, ordinal, kind, COALESCE(path, ''), COALESCE(start_offset, 0),
			COALESCE(end_offset, 0), COALESCE(replacement, '')
		 FROM diagnostic_spans WHERE diagnostic_id IN (`+placeholderList(len(ids))+`)
		 ORDER BY diagnostic_id, ordinal`,
		int64sToArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostic spans: %w", err)
	}
	defer rows.Close()
	var spans []*DiagnosticSpan
	for rows.Next() {
		sp := &DiagnosticSpan{}
		if err := rows.Scan(&sp.ID, &sp.DiagnosticID, &sp.Ordinal, &sp.Kind, &sp.Path,
			&sp.Start, &sp.End, &sp.Replacement); err != nil {
			return nil, fmt.Errorf("scan diagnostic span: %w", err)
		}
		spans = append(spans, sp)
	}
	return spans, rows.Err()
}

// --- Top-level declaration operations ---

func (s *Store) InsertTopLevelDecl(d *TopLevelDecl) (int64, error) {
	id, err := insertTopLevelDecl(s.db, d)
	if err != nil {
		return 0, fmt.Errorf("insert top-level decl: %w", err)
	}
	d.ID = id
	return id, nil
}

func (s *Store) TopLevelDecls() ([]*TopLevelDecl, error) {
	rows, err := s.db.Query("SELECT id, ordinal, kind, COALESCE(name, '') FROM top_level_decls ORDER BY ordinal, id")
	if err != nil {
		return nil, fmt.Errorf("top-level decls: %w", err)
	}
	defer rows.Close()
	var decls []*TopLevelDecl
	for rows.Next() {
		d := &TopLevelDecl{}
		if err := rows.Scan(&d.ID, &d.Ordinal, &d.Kind, &d.Name); err != nil {
			return nil, fmt.Errorf("scan top-level decl: %w", err)
		}
		decls = append(decls, d)
	}
	return decls, rows.Err()
}
