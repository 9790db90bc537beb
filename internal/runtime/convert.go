package runtime

import (
	"fmt"

	"github.com/risor-io/risor/object"
)

// --- Argument helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getInt64(m map[string]object.Object, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return i.Value()
	}
	if f, ok := v.(*object.Float); ok {
		return int64(f.Value())
	}
	return 0
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// toGo converts a script value to plain Go values: maps, slices,
// strings, int64, float64, bool and nil.
func toGo(obj object.Object) any {
	switch v := obj.(type) {
	case nil, *object.NilType:
		return nil
	case *object.Map:
		out := make(map[string]any, len(v.Value()))
		for k, e := range v.Value() {
			out[k] = toGo(e)
		}
		return out
	case *object.List:
		out := make([]any, 0, len(v.Value()))
		for _, e := range v.Value() {
			out = append(out, toGo(e))
		}
		return out
	case *object.String:
		return v.Value()
	case *object.Int:
		return v.Value()
	case *object.Float:
		return v.Value()
	case *object.Bool:
		return v.Value()
	default:
		return obj.Interface()
	}
}

func listOf(items []object.Object) object.Object {
	if items == nil {
		items = []object.Object{}
	}
	return object.NewList(items)
}
