package cindex

import (
	"fmt"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// Type is a value handle on one interned type. Structurally equal types
// of the same unit share an id, so equal handles compare Equal.
type Type struct {
	tu   *TranslationUnit
	gen  uint64
	id   engine.TypeID
	kind kinds.TypeKind
}

// Kind is the type's discriminator.
func (t Type) Kind() kinds.TypeKind { return t.kind }

func (t Type) Equal(o Type) bool {
	return t.tu == o.tu && t.gen == o.gen && t.id == o.id
}

func (t Type) TranslationUnit() *TranslationUnit { return t.tu }

func (t Type) view(op string) (*engine.Unit, *engine.Type, error) {
	u, _, err := t.tu.view(t.gen)
	if err != nil {
		return nil, nil, fmt.Errorf("cindex: %s: %w", op, err)
	}
	return u, u.TypeOf(t.id), nil
}

func (t Type) gate(op string, allowed ...kinds.TypeKind) (*engine.Unit, *engine.Type, error) {
	u, et, err := t.view(op)
	if err != nil {
		return nil, nil, err
	}
	for _, k := range allowed {
		if t.kind == k {
			return u, et, nil
		}
	}
	return nil, nil, kindError(op, t.kind, allowed...)
}

func (t Type) at(u *engine.Unit, id engine.TypeID) Type {
	return Type{tu: t.tu, gen: t.gen, id: id, kind: u.TypeOf(id).Kind}
}

// Spelling renders the type the way a compiler prints it.
func (t Type) Spelling() (string, error) {
	u, _, err := t.view("type spelling")
	if err != nil {
		return "", err
	}
	return u.Spelling(t.id), nil
}

// Canonical strips typedefs, keeping qualifiers.
func (t Type) Canonical() (Type, error) {
	u, _, err := t.view("canonical type")
	if err != nil {
		return Type{}, err
	}
	return t.at(u, u.Canonical(t.id)), nil
}

func (t Type) quals(op string, q engine.Qual) (bool, error) {
	_, et, err := t.view(op)
	if err != nil {
		return false, err
	}
	return et.Quals&q != 0, nil
}

func (t Type) IsConstQualified() (bool, error) {
	return t.quals("is const qualified", engine.QualConst)
}

func (t Type) IsVolatileQualified() (bool, error) {
	return t.quals("is volatile qualified", engine.QualVolatile)
}

func (t Type) IsRestrictQualified() (bool, error) {
	return t.quals("is restrict qualified", engine.QualRestrict)
}

// IsPOD reports plain-old-data types.
func (t Type) IsPOD() (bool, error) {
	u, _, err := t.view("is pod")
	if err != nil {
		return false, err
	}
	return u.IsPOD(t.id), nil
}

// SizeOf is the size in bytes on an LP64 target, or -1 when unknown.
func (t Type) SizeOf() (int64, error) {
	u, _, err := t.view("size of")
	if err != nil {
		return 0, err
	}
	return u.SizeOf(t.id), nil
}

// Declaration is the record, enum or typedef that declares the type; a
// null cursor for other types.
func (t Type) Declaration() (Cursor, error) {
	u, et, err := t.view("type declaration")
	if err != nil {
		return Cursor{}, err
	}
	return t.tu.cursorFor(u, t.gen, et.Decl), nil
}

// Pointee is what a pointer or reference refers to.
func (t Type) Pointee() (Type, error) {
	u, et, err := t.gate("pointee", kinds.TypePointer, kinds.TypeLValueReference,
		kinds.TypeRValueReference, kinds.TypeBlockPointer, kinds.TypeMemberPointer)
	if err != nil {
		return Type{}, err
	}
	return t.at(u, et.Elem), nil
}

var elementKinds = []kinds.TypeKind{
	kinds.TypeConstantArray, kinds.TypeIncompleteArray, kinds.TypeVariableArray,
	kinds.TypeDependentSizedArray, kinds.TypeVector, kinds.TypeComplex,
}

var arrayKinds = []kinds.TypeKind{
	kinds.TypeConstantArray, kinds.TypeIncompleteArray, kinds.TypeVariableArray,
	kinds.TypeDependentSizedArray,
}

// ElementType is the element of an array, vector or complex type.
func (t Type) ElementType() (Type, error) {
	u, et, err := t.gate("element type", elementKinds...)
	if err != nil {
		return Type{}, err
	}
	return t.at(u, et.Elem), nil
}

// ElementCount is the element count, or -1 when not a constant.
func (t Type) ElementCount() (int64, error) {
	_, et, err := t.gate("element count", elementKinds...)
	if err != nil {
		return 0, err
	}
	return et.Size, nil
}

// ArrayElementType is the element of an array type.
func (t Type) ArrayElementType() (Type, error) {
	u, et, err := t.gate("array element type", arrayKinds...)
	if err != nil {
		return Type{}, err
	}
	return t.at(u, et.Elem), nil
}

// ArraySize is the length of a constant array, or -1.
func (t Type) ArraySize() (int64, error) {
	_, et, err := t.gate("array size", arrayKinds...)
	if err != nil {
		return 0, err
	}
	return et.Size, nil
}

// ResultType is a function type's return type.
func (t Type) ResultType() (Type, error) {
	u, et, err := t.gate("result type", kinds.TypeFunctionProto, kinds.TypeFunctionNoProto)
	if err != nil {
		return Type{}, err
	}
	return t.at(u, et.Elem), nil
}

// IsFunctionVariadic reports a trailing "..." in a prototype.
func (t Type) IsFunctionVariadic() (bool, error) {
	_, et, err := t.gate("is function variadic", kinds.TypeFunctionProto)
	if err != nil {
		return false, err
	}
	return et.Variadic, nil
}

// ArgumentTypes returns a read-only view over a prototype's parameter
// types.
func (t Type) ArgumentTypes() (ArgumentTypes, error) {
	u, et, err := t.gate("argument types", kinds.TypeFunctionProto)
	if err != nil {
		return ArgumentTypes{}, err
	}
	return ArgumentTypes{owner: t, unit: u, params: et.Params}, nil
}

func (t Type) String() string {
	s, err := t.Spelling()
	if err != nil {
		return fmt.Sprintf("<Type %s>", t.kind)
	}
	return s
}

// ArgumentTypes is an indexable view over a function prototype's
// parameter types. It reads the unit the type came from and fails with
// ErrStale once that unit has been reparsed.
type ArgumentTypes struct {
	owner  Type
	unit   *engine.Unit
	params []engine.TypeID
}

func (a ArgumentTypes) Len() int { return len(a.params) }

// At returns parameter type i.
func (a ArgumentTypes) At(i int) (Type, error) {
	if _, _, err := a.owner.view("argument type"); err != nil {
		return Type{}, err
	}
	if i < 0 || i >= len(a.params) {
		return Type{}, fmt.Errorf("cindex: argument type %d of %d: %w", i, len(a.params), ErrOutOfRange)
	}
	return a.owner.at(a.unit, a.params[i]), nil
}

// All returns every parameter type in order.
func (a ArgumentTypes) All() ([]Type, error) {
	out := make([]Type, 0, len(a.params))
	for i := range a.params {
		t, err := a.At(i)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
