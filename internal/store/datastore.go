package store

// DataStore is the write interface used while saving a unit. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering) implement it.
type DataStore interface {
	InsertFile(f *File) (int64, error)
	InsertDiagnostic(d *Diagnostic) (int64, error)
	InsertDiagnosticSpan(sp *DiagnosticSpan) (int64, error)
	InsertTopLevelDecl(d *TopLevelDecl) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
