package cindex

import (
	"fmt"
	"time"

	"github.com/jward/cindex/internal/engine"
)

// File is one source file visible to a translation unit. Two File
// values are equal when they name the same engine file of the same
// unit, regardless of how the path was spelled. Once the unit is
// disposed a File reads as null and Err reports ErrDisposed.
type File struct {
	tu   *TranslationUnit
	unit *engine.Unit
	gen  uint64
	id   engine.FileID
}

func (f File) src() *engine.SourceFile {
	if f.unit == nil || f.tu.alive() != nil {
		return nil
	}
	return f.unit.File(f.id)
}

// Err is ErrDisposed once the owning unit has been disposed.
func (f File) Err() error { return f.tu.alive() }

// IsNull reports the zero File.
func (f File) IsNull() bool { return f.src() == nil }

// Name is the path the file was opened under.
func (f File) Name() string {
	if s := f.src(); s != nil {
		return s.Name
	}
	return ""
}

// Time is the file's modification time; zero for overlays.
func (f File) Time() time.Time {
	if s := f.src(); s != nil {
		return s.ModTime
	}
	return time.Time{}
}

// IsMultipleIncludeGuarded reports a #pragma once or #ifndef guard.
func (f File) IsMultipleIncludeGuarded() bool {
	if s := f.src(); s != nil {
		return s.IncludeGuarded
	}
	return false
}

// Contents returns the text the unit was parsed from.
func (f File) Contents() ([]byte, error) {
	if err := f.Err(); err != nil {
		return nil, fmt.Errorf("cindex: file contents: %w", err)
	}
	s := f.src()
	if s == nil {
		return nil, fmt.Errorf("cindex: file contents: %w: null file", ErrInvalidArgument)
	}
	return append([]byte(nil), s.Content...), nil
}

func (f File) TranslationUnit() *TranslationUnit { return f.tu }

func (f File) Equal(o File) bool {
	return f.tu == o.tu && f.unit == o.unit && f.id == o.id
}

func (f File) String() string { return f.Name() }
