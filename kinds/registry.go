// Package kinds holds the closed-world enumeration tables shared by every
// cindex handle: cursor, type, token and resource-usage kinds, C++ access
// specifiers, and the code-completion chunk and availability kinds.
//
// The tables are loaded once from the embedded kinds.yaml on first use and
// sealed; nothing registers values after that. Each registered value maps to
// exactly one *Descriptor, so descriptors can be compared by pointer.
package kinds

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateValue is returned when a value is registered twice.
	ErrDuplicateValue = errors.New("kinds: value already registered")
	// ErrUnknownValue is returned by FromValue for unregistered values.
	ErrUnknownValue = errors.New("kinds: unknown value")
	// ErrSealed is returned when registering into a sealed registry.
	ErrSealed = errors.New("kinds: registry is sealed")
)

// Class partitions cursor kinds into the families reported by the
// Is* predicates. Non-cursor registries leave it as ClassNone.
type Class int

const (
	ClassNone Class = iota
	ClassDeclaration
	ClassReference
	ClassInvalid
	ClassExpression
	ClassStatement
	ClassTranslationUnit
	ClassAttribute
	ClassPreprocessing
)

var classNames = map[string]Class{
	"declaration":      ClassDeclaration,
	"reference":        ClassReference,
	"invalid":          ClassInvalid,
	"expression":       ClassExpression,
	"statement":        ClassStatement,
	"translation_unit": ClassTranslationUnit,
	"attribute":        ClassAttribute,
	"preprocessing":    ClassPreprocessing,
}

// Descriptor is the canonical record for one registered value.
type Descriptor struct {
	Value     int
	Name      string
	Spelling  string
	Class     Class
	Unexposed bool
}

func (d *Descriptor) String() string { return d.Name }

// Registry maps integer codes to descriptors for one enumeration.
type Registry struct {
	name string

	mu      sync.RWMutex
	byValue map[int]*Descriptor
	byName  map[string]*Descriptor
	sealed  bool
}

// NewRegistry returns an empty, unsealed registry labelled name.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:    name,
		byValue: make(map[int]*Descriptor),
		byName:  make(map[string]*Descriptor),
	}
}

// Name returns the enumeration label, e.g. "CursorKind".
func (r *Registry) Name() string { return r.name }

// Register binds value to a new descriptor named name.
func (r *Registry) Register(value int, name string) (*Descriptor, error) {
	return r.register(&Descriptor{Value: value, Name: name})
}

func (r *Registry) register(d *Descriptor) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return nil, fmt.Errorf("%s %d: %w", r.name, d.Value, ErrSealed)
	}
	if prev, ok := r.byValue[d.Value]; ok {
		return nil, fmt.Errorf("%s %d (%s, already %s): %w", r.name, d.Value, d.Name, prev.Name, ErrDuplicateValue)
	}
	if prev, ok := r.byName[d.Name]; ok {
		return nil, fmt.Errorf("%s name %s (already %d): %w", r.name, d.Name, prev.Value, ErrDuplicateValue)
	}
	r.byValue[d.Value] = d
	r.byName[d.Name] = d
	return d, nil
}

// Seal freezes the registry. Further Register calls fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// FromValue returns the descriptor registered for value.
func (r *Registry) FromValue(value int) (*Descriptor, error) {
	r.mu.RLock()
	d, ok := r.byValue[value]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", r.name, value, ErrUnknownValue)
	}
	return d, nil
}

// FromName returns the descriptor registered under name.
func (r *Registry) FromName(name string) (*Descriptor, error) {
	r.mu.RLock()
	d, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", r.name, name, ErrUnknownValue)
	}
	return d, nil
}

// All returns every descriptor ordered by value.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	out := make([]*Descriptor, 0, len(r.byValue))
	for _, d := range r.byValue {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// Len reports how many values are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byValue)
}
