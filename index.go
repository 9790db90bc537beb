package cindex

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jward/cindex/internal/engine"
)

// Index is the umbrella context translation units are created under.
// It is shared by its units: the caller holds one reference and every
// live unit holds another, so its resources outlive whichever holder
// releases last.
type Index struct {
	mu             sync.Mutex
	refs           int
	callerReleased bool

	excludePCH  bool
	usePreamble bool
	logger      *slog.Logger

	// cache holds preamble parse trees shared by this index's units.
	cache *engine.Cache
}

// Option configures an Index.
type Option func(*Index)

// WithExcludeDeclarationsFromPCH hides top-level declarations that come
// from the precompiled preamble when ParsePrecompiledPreamble is used.
func WithExcludeDeclarationsFromPCH(exclude bool) Option {
	return func(ix *Index) {
		ix.excludePCH = exclude
	}
}

// WithLogger sets the logger used for Debug timings. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// WithPreambleCache controls the shared preamble cache. Enabled by
// default.
func WithPreambleCache(enabled bool) Option {
	return func(ix *Index) {
		ix.usePreamble = enabled
	}
}

// unitSeq numbers translation units process-wide for cursor hashing.
var unitSeq atomic.Uint64

// Create returns a new Index holding the caller's reference.
func Create(opts ...Option) *Index {
	ix := &Index{
		refs:        1,
		usePreamble: true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.usePreamble {
		ix.cache = engine.NewCache(0)
	}
	return ix
}

// ExcludeDeclarationsFromPCH reports the option the index was created with.
func (ix *Index) ExcludeDeclarationsFromPCH() bool { return ix.excludePCH }

// Dispose drops the caller's reference. Units already created keep the
// index alive until they are disposed too. Calling it twice is a no-op.
func (ix *Index) Dispose() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.callerReleased {
		return
	}
	ix.callerReleased = true
	ix.releaseLocked()
}

// Disposed reports whether the caller has disposed the index.
func (ix *Index) Disposed() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.callerReleased
}

// acquire takes a reference for a new unit. It fails once the caller
// has disposed the index.
func (ix *Index) acquire() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.callerReleased || ix.refs == 0 {
		return ErrDisposed
	}
	ix.refs++
	return nil
}

func (ix *Index) release() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.releaseLocked()
}

func (ix *Index) releaseLocked() {
	if ix.refs == 0 {
		return
	}
	ix.refs--
	if ix.refs == 0 {
		if ix.cache != nil {
			ix.cache.Purge()
			ix.cache = nil
		}
		ix.logger.Debug("index released")
	}
}

// preambleCache returns the shared cache, or nil when disabled or released.
func (ix *Index) preambleCache() *engine.Cache {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.cache
}

// Parse builds a translation unit from filename (or, when empty, the
// first positional argument), compiler-style args and in-memory
// overlays. A unit with error diagnostics is still a success; only a
// parse that produces no unit fails, with a *LoadError.
func (ix *Index) Parse(ctx context.Context, filename string, args []string, overlays []UnsavedFile, options ParseOptions) (*TranslationUnit, error) {
	if err := ix.acquire(); err != nil {
		return nil, &LoadError{Path: filename, Err: err}
	}
	tu := newTranslationUnit(ix, filename, args, overlays, options)

	start := time.Now()
	u, err := ix.build(ctx, tu.filename, tu.args, tu.overlays, tu.options)
	if err != nil {
		tu.state.Store(int32(StateLoadFailed))
		ix.release()
		return nil, &LoadError{Path: filename, Err: err}
	}
	tu.install(u)
	ix.logger.Debug("parsed translation unit",
		"file", tu.filename,
		"nodes", len(u.Nodes),
		"diagnostics", len(u.Diags),
		"elapsed", time.Since(start),
	)
	return tu, nil
}

func (ix *Index) build(ctx context.Context, filename string, args []string, overlays []UnsavedFile, options ParseOptions) (*engine.Unit, error) {
	u, err := engine.Parse(ctx, engine.Request{
		Filename:   filename,
		Args:       args,
		Overlays:   overlays,
		Options:    options,
		ExcludePCH: ix.excludePCH,
		Cache:      ix.preambleCache(),
	})
	if err != nil {
		return nil, fmt.Errorf("cindex: parse: %w", err)
	}
	return u, nil
}
