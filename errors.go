package cindex

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument reports a malformed combination of constructor
	// arguments.
	ErrInvalidArgument = errors.New("cindex: invalid argument")
	// ErrWrongKind is wrapped by every kind-gated accessor failure.
	ErrWrongKind = errors.New("cindex: operation not valid for this kind")
	// ErrOutOfRange reports an index past the end of a view.
	ErrOutOfRange = errors.New("cindex: index out of range")
	// ErrNotFound ends reference-name-extent probing.
	ErrNotFound = errors.New("cindex: not found")
	// ErrDisposed is returned by any use of a disposed unit or index.
	ErrDisposed = errors.New("cindex: use after dispose")
	// ErrStale is returned by handles created before the last reparse.
	ErrStale = errors.New("cindex: handle predates reparse")
	// ErrTUMismatch reports locations from different translation units.
	ErrTUMismatch = errors.New("cindex: locations belong to different translation units")
	// ErrFileNotFound reports a file name unknown to a translation unit.
	ErrFileNotFound = errors.New("cindex: file not found in translation unit")
	// ErrLoadFailed is wrapped by every LoadError.
	ErrLoadFailed = errors.New("cindex: load failed")
)

// KindError is returned when a kind-gated operation is called on a
// handle of another kind.
type KindError struct {
	Op   string
	Kind string
	Want []string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("cindex: %s: kind %s is not one of %s", e.Op, e.Kind, strings.Join(e.Want, ", "))
}

func (e *KindError) Unwrap() error { return ErrWrongKind }

func kindError[K fmt.Stringer](op string, got K, want ...K) error {
	names := make([]string, len(want))
	for i, w := range want {
		names[i] = w.String()
	}
	return &KindError{Op: op, Kind: got.String(), Want: names}
}

// LoadError is returned when parsing or reading produces no unit. The
// engine gives no finer detail than the underlying cause.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cindex: loading %q failed", e.Path)
	}
	return fmt.Sprintf("cindex: loading %q failed: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLoadFailed}
	}
	return []error{ErrLoadFailed, e.Err}
}

// SaveErrorKind says why Save failed.
type SaveErrorKind int

const (
	SaveErrorUnknown           SaveErrorKind = 1
	SaveErrorTranslationErrors SaveErrorKind = 2
	SaveErrorInvalidTU         SaveErrorKind = 3
)

func (k SaveErrorKind) String() string {
	switch k {
	case SaveErrorUnknown:
		return "unknown"
	case SaveErrorTranslationErrors:
		return "translation errors"
	case SaveErrorInvalidTU:
		return "invalid translation unit"
	}
	return fmt.Sprintf("SaveErrorKind(%d)", int(k))
}

// SaveError carries one of the three save failure kinds.
type SaveError struct {
	Kind SaveErrorKind
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cindex: saving %q: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("cindex: saving %q: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// ReparseError is returned when a reparse produces no unit. The
// translation unit is left in StateLoadFailed.
type ReparseError struct {
	Path string
	Err  error
}

func (e *ReparseError) Error() string {
	return fmt.Sprintf("cindex: reparsing %q: %v", e.Path, e.Err)
}

func (e *ReparseError) Unwrap() error { return e.Err }

// LoadDiagnosticsErrorKind says why LoadDiagnostics failed.
type LoadDiagnosticsErrorKind int

const (
	LoadDiagUnknown     LoadDiagnosticsErrorKind = 1
	LoadDiagCannotLoad  LoadDiagnosticsErrorKind = 2
	LoadDiagInvalidFile LoadDiagnosticsErrorKind = 3
)

func (k LoadDiagnosticsErrorKind) String() string {
	switch k {
	case LoadDiagUnknown:
		return "unknown"
	case LoadDiagCannotLoad:
		return "cannot load"
	case LoadDiagInvalidFile:
		return "invalid file"
	}
	return fmt.Sprintf("LoadDiagnosticsErrorKind(%d)", int(k))
}

type LoadDiagnosticsError struct {
	Kind LoadDiagnosticsErrorKind
	Path string
	Err  error
}

func (e *LoadDiagnosticsError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cindex: loading diagnostics from %q: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("cindex: loading diagnostics from %q: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *LoadDiagnosticsError) Unwrap() error { return e.Err }
