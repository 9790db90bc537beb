package cindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hierarchySource = `struct Engine { int hp; };
struct Wheel { int size; };
struct Vehicle { Engine engine; Wheel *spare; };
struct Car : Vehicle { };
struct Truck : virtual Vehicle { Engine second; };
`

func relations(t *testing.T, rels []*TypeRelation) []string {
	t.Helper()
	var out []string
	for _, r := range rels {
		out = append(out, spelling(t, r.Record)+":"+r.Kind)
	}
	return out
}

func TestTypeHierarchy_Inheritance(t *testing.T) {
	tu := parseSource(t, "h.cpp", hierarchySource)
	q, err := tu.Query()
	require.NoError(t, err)

	h, err := q.TypeHierarchy(findCursor(t, tu, "Vehicle"))
	require.NoError(t, err)
	assert.Equal(t, "Vehicle", spelling(t, h.Record))
	assert.Empty(t, h.Bases)
	assert.Equal(t, []string{"Car:inheritance", "Truck:virtual_inheritance"}, relations(t, h.Subclasses))
	assert.Equal(t, []string{"Engine:composition"}, relations(t, h.Composes), "pointer fields do not compose")
	assert.Empty(t, h.ComposedBy)

	h, err = q.TypeHierarchy(findCursor(t, tu, "Truck"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Vehicle:virtual_inheritance"}, relations(t, h.Bases))
	assert.Equal(t, []string{"Engine:composition"}, relations(t, h.Composes))
}

func TestTypeHierarchy_ComposedBy(t *testing.T) {
	tu := parseSource(t, "h.cpp", hierarchySource)
	q, err := tu.Query()
	require.NoError(t, err)

	h, err := q.TypeHierarchy(findCursor(t, tu, "Engine"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Vehicle:composition", "Truck:composition"}, relations(t, h.ComposedBy))
	assert.Empty(t, h.Subclasses)

	_, err = q.TypeHierarchy(findCursor(t, tu, "hp"))
	assert.ErrorIs(t, err, ErrWrongKind)
}
