package cindex

import "github.com/jward/cindex/internal/engine"

// Public aliases for engine types that appear in the API. Aliases keep
// the values identical at compile time; no conversion is needed.

type UnsavedFile = engine.UnsavedFile
type ParseOptions = engine.ParseOptions

const (
	ParseNone                        = engine.ParseNone
	ParseDetailedPreprocessingRecord = engine.ParseDetailedPreprocessingRecord
	ParseIncomplete                  = engine.ParseIncomplete
	ParsePrecompiledPreamble         = engine.ParsePrecompiledPreamble
	ParseCacheCompletionResults      = engine.ParseCacheCompletionResults
	ParseSkipFunctionBodies          = engine.ParseSkipFunctionBodies
)
