// Package cindex provides handle-based access to the abstract syntax tree
// of C and C++ translation units, modeled on libclang. Parsing is done
// with tree-sitter; a semantic layer on top resolves references, types,
// linkage, macros and diagnostics.
//
// # Object model
//
// An [Index] owns shared parse state. A [TranslationUnit] is one parsed
// file with its includes. Everything read out of a unit is a small value
// handle: [Cursor], [Type], [Token], [SourceLocation], [SourceRange],
// [File] and [Diagnostic]. Handles carry the generation of the unit they
// came from; after [TranslationUnit.Reparse] old handles report
// [ErrStale] and after [TranslationUnit.Dispose] they report
// [ErrDisposed]. Nothing panics on a stale handle.
//
// # Usage
//
//	ix := cindex.Create()
//	defer ix.Dispose()
//
//	tu, err := ix.Parse(ctx, "main.c", []string{"-DDEBUG"}, nil, 0)
//	if err != nil { ... }
//	defer tu.Dispose()
//
//	root, _ := tu.Cursor()
//	root.Visit(func(c, parent cindex.Cursor) cindex.VisitResult {
//		...
//		return cindex.VisitRecurse
//	})
//
// # Beyond the AST
//
//   - [TranslationUnit.CodeComplete] lists completion candidates at a
//     position, optionally over edited file contents.
//   - [TranslationUnit.Save], [Index.Read] and [LoadDiagnostics] persist
//     a unit to a SQLite file and read it back.
//   - [TranslationUnit.Query] answers cross-reference questions: callers,
//     callees, references, class hierarchy and symbol search.
//   - [Index.ParseAll] parses many files concurrently under one index.
//
// Kind enumerations and their spellings live in package kinds.
package cindex
