package cindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cindex/kinds"
)

// --- Test helpers ---

const discoveryHeader = `#pragma once
int shared_count(void);
static inline int twice(int x) { return x * 2; }
`

const discoverySource = `#include "lib/util.h"

struct item { int weight; };

static int unused_helper(void) { return 0; }

int total(struct item *it) { return twice(it->weight) + shared_count(); }

int main(void) {
  struct item a = { 3 };
  return total(&a) + total(&a);
}
`

func newDiscoveryQuery(t *testing.T) (*TranslationUnit, *QueryBuilder) {
	t.Helper()
	ix := Create()
	t.Cleanup(ix.Dispose)
	overlays := []UnsavedFile{
		{Name: "main.c", Contents: []byte(discoverySource)},
		{Name: "lib/util.h", Contents: []byte(discoveryHeader)},
	}
	tu, err := ix.Parse(context.Background(), "main.c", nil, overlays, 0)
	require.NoError(t, err)
	t.Cleanup(tu.Dispose)
	q, err := tu.Query()
	require.NoError(t, err)
	return tu, q
}

func qualifiedNames(rs []SymbolResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.QualifiedName
	}
	return out
}

// --- Pagination ---

func TestPagination_Normalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   Pagination
		want Pagination
	}{
		{"defaults", Pagination{}, Pagination{Offset: 0, Limit: 50}},
		{"negative offset", Pagination{Offset: -3, Limit: 10}, Pagination{Offset: 0, Limit: 10}},
		{"limit capped", Pagination{Limit: 9000}, Pagination{Limit: 500}},
		{"kept", Pagination{Offset: 4, Limit: 7}, Pagination{Offset: 4, Limit: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.normalize())
		})
	}
}

func TestNormalizePathPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", normalizePathPrefix(""))
	assert.Equal(t, "src/net/", normalizePathPrefix("src/net"))
	assert.Equal(t, "src/net/", normalizePathPrefix("src/net/"))
}

// --- SearchSymbols ---

func TestSearchSymbols_All(t *testing.T) {
	t.Parallel()
	_, q := newDiscoveryQuery(t)

	res, err := q.SearchSymbols("", SymbolFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"shared_count", "twice", "item", "item::weight", "unused_helper", "total", "main",
	}, qualifiedNames(res.Items))
	assert.Equal(t, 7, res.TotalCount)
}

func TestSearchSymbols_Filters(t *testing.T) {
	t.Parallel()
	_, q := newDiscoveryQuery(t)

	fns, err := q.SearchSymbols("*", SymbolFilter{Kinds: []kinds.CursorKind{kinds.FunctionDecl}, File: "main.c"}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"unused_helper", "total", "main"}, qualifiedNames(fns.Items))

	header, err := q.SearchSymbols("", SymbolFilter{PathPrefix: "lib"}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"shared_count", "twice"}, qualifiedNames(header.Items))

	defs, err := q.SearchSymbols("", SymbolFilter{DefinitionsOnly: true, PathPrefix: "lib"}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"twice"}, qualifiedNames(defs.Items))

	members, err := q.SearchSymbols("item::*", SymbolFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"item::weight"}, qualifiedNames(members.Items))
}

func TestSearchSymbols_SortAndPage(t *testing.T) {
	t.Parallel()
	_, q := newDiscoveryQuery(t)

	byName, err := q.SearchSymbols("", SymbolFilter{Kinds: []kinds.CursorKind{kinds.FunctionDecl}}, Sort{Field: SortByName, Order: Desc}, Pagination{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, byName.TotalCount)
	assert.Equal(t, []string{"unused_helper", "twice"}, qualifiedNames(byName.Items))

	next, err := q.SearchSymbols("", SymbolFilter{Kinds: []kinds.CursorKind{kinds.FunctionDecl}}, Sort{Field: SortByName, Order: Desc}, Pagination{Offset: 4, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, qualifiedNames(next.Items))

	past, err := q.SearchSymbols("", SymbolFilter{}, Sort{}, Pagination{Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.Equal(t, 7, past.TotalCount)

	byRefs, err := q.SearchSymbols("total", SymbolFilter{}, Sort{Field: SortByRefCount, Order: Desc}, Pagination{})
	require.NoError(t, err)
	require.Len(t, byRefs.Items, 1)
	assert.Equal(t, 2, byRefs.Items[0].RefCount)
	assert.Zero(t, byRefs.Items[0].ExternalRefCount)

	twice, err := q.SearchSymbols("twice", SymbolFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)
	require.Len(t, twice.Items, 1)
	assert.Equal(t, 1, twice.Items[0].ExternalRefCount, "called from main.c, declared in lib/util.h")
}

func TestSearchSymbols_BadPattern(t *testing.T) {
	t.Parallel()
	_, q := newDiscoveryQuery(t)

	_, err := q.SearchSymbols("item::[", SymbolFilter{}, Sort{}, Pagination{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// --- UnusedSymbols ---

func TestUnusedSymbols(t *testing.T) {
	t.Parallel()
	_, q := newDiscoveryQuery(t)

	res, err := q.UnusedSymbols(SymbolFilter{Kinds: []kinds.CursorKind{kinds.FunctionDecl}}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"unused_helper"}, qualifiedNames(res.Items), "main is never reported")
}

// --- Files ---

func TestFiles(t *testing.T) {
	t.Parallel()
	_, q := newDiscoveryQuery(t)

	all, err := q.Files("", Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.c", "lib/util.h"}, all.Items)

	lib, err := q.Files("lib", Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/util.h"}, lib.Items)
	assert.Equal(t, 1, lib.TotalCount)
}

func TestDiscovery_Stale(t *testing.T) {
	t.Parallel()
	tu, q := newDiscoveryQuery(t)
	require.NoError(t, tu.Reparse(context.Background(), []UnsavedFile{
		{Name: "main.c", Contents: []byte(discoverySource)},
		{Name: "lib/util.h", Contents: []byte(discoveryHeader)},
	}))

	_, err := q.SearchSymbols("", SymbolFilter{}, Sort{}, Pagination{})
	assert.ErrorIs(t, err, ErrStale)
	_, err = q.UnusedSymbols(SymbolFilter{}, Sort{}, Pagination{})
	assert.ErrorIs(t, err, ErrStale)
	_, err = q.Files("", Pagination{})
	assert.ErrorIs(t, err, ErrStale)
}
