package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered rows from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// IDs and references within the batch are rewritten through the
// fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Files
//  2. Diagnostics (parents precede their notes)
//  3. DiagnosticSpans (depend on diagnostic_id)
//  4. TopLevelDecls
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)

	// 1. Files
	for _, f := range batch.Files {
		realID, err := insertFile(tx, &f)
		if err != nil {
			return fmt.Errorf("commit batch: file %q: %w", f.Path, err)
		}
		fakeToReal[f.ID] = realID
	}

	// 2. Diagnostics
	for _, d := range batch.Diagnostics {
		if d.ParentID != nil && *d.ParentID < 0 {
			realID, ok := fakeToReal[*d.ParentID]
			if !ok {
				return fmt.Errorf("commit batch: diagnostic %q has parent_id=%d not in fakeToReal map", d.Message, *d.ParentID)
			}
			d.ParentID = &realID
		}
		realID, err := insertDiagnostic(tx, &d)
		if err != nil {
			return fmt.Errorf("commit batch: diagnostic %q: %w", d.Message, err)
		}
		fakeToReal[d.ID] = realID
	}

	// 3. DiagnosticSpans
	for _, sp := range batch.Spans {
		if sp.DiagnosticID < 0 {
			realID, ok := fakeToReal[sp.DiagnosticID]
			if !ok {
				return fmt.Errorf("commit batch: span has diagnostic_id=%d not in fakeToReal map (have %d diagnostics)", sp.DiagnosticID, len(batch.Diagnostics))
			}
			sp.DiagnosticID = realID
		}
		realID, err := insertDiagnosticSpan(tx, &sp)
		if err != nil {
			return fmt.Errorf("commit batch: span: %w", err)
		}
		fakeToReal[sp.ID] = realID
	}

	// 4. TopLevelDecls
	for _, d := range batch.Decls {
		realID, err := insertTopLevelDecl(tx, &d)
		if err != nil {
			return fmt.Errorf("commit batch: decl %q: %w", d.Name, err)
		}
		fakeToReal[d.ID] = realID
	}

	return tx.Commit()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertFile(x execer, f *File) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO files (ordinal, path, content, mod_time, overlay, include_guarded)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.Ordinal, f.Path, f.Content, f.ModTime, f.Overlay, f.IncludeGuarded,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertDiagnostic(x execer, d *Diagnostic) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO diagnostics (parent_id, ordinal, severity, path, byte_offset, message, option_name, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ParentID, d.Ordinal, d.Severity, d.Path, d.Offset, d.Message, d.Option, d.Category,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertDiagnosticSpan(x execer, sp *DiagnosticSpan) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO diagnostic_spans (diagnostic_id, ordinal, kind, path, start_offset, end_offset, replacement)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sp.DiagnosticID, sp.Ordinal, sp.Kind, sp.Path, sp.Start, sp.End, sp.Replacement,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertTopLevelDecl(x execer, d *TopLevelDecl) (int64, error) {
	res, err := x.Exec(
		"INSERT INTO top_level_decls (ordinal, kind, name) VALUES (?, ?, ?)",
		d.Ordinal, d.Kind, d.Name,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
