package kinds

import "fmt"

// TypeKind discriminates Type handles.
type TypeKind int

const (
	TypeInvalid    TypeKind = 0
	TypeUnexposed  TypeKind = 1
	TypeVoid       TypeKind = 2
	TypeBool       TypeKind = 3
	TypeCharU      TypeKind = 4
	TypeUChar      TypeKind = 5
	TypeChar16     TypeKind = 6
	TypeChar32     TypeKind = 7
	TypeUShort     TypeKind = 8
	TypeUInt       TypeKind = 9
	TypeULong      TypeKind = 10
	TypeULongLong  TypeKind = 11
	TypeUInt128    TypeKind = 12
	TypeCharS      TypeKind = 13
	TypeSChar      TypeKind = 14
	TypeWChar      TypeKind = 15
	TypeShort      TypeKind = 16
	TypeInt        TypeKind = 17
	TypeLong       TypeKind = 18
	TypeLongLong   TypeKind = 19
	TypeInt128     TypeKind = 20
	TypeFloat      TypeKind = 21
	TypeDouble     TypeKind = 22
	TypeLongDouble TypeKind = 23
	TypeNullPtr    TypeKind = 24
	TypeOverload   TypeKind = 25
	TypeDependent  TypeKind = 26
	TypeObjCID     TypeKind = 27
	TypeObjCClass  TypeKind = 28
	TypeObjCSel    TypeKind = 29

	TypeComplex             TypeKind = 100
	TypePointer             TypeKind = 101
	TypeBlockPointer        TypeKind = 102
	TypeLValueReference     TypeKind = 103
	TypeRValueReference     TypeKind = 104
	TypeRecord              TypeKind = 105
	TypeEnum                TypeKind = 106
	TypeTypedef             TypeKind = 107
	TypeObjCInterface       TypeKind = 108
	TypeObjCObjectPointer   TypeKind = 109
	TypeFunctionNoProto     TypeKind = 110
	TypeFunctionProto       TypeKind = 111
	TypeConstantArray       TypeKind = 112
	TypeVector              TypeKind = 113
	TypeIncompleteArray     TypeKind = 114
	TypeVariableArray       TypeKind = 115
	TypeDependentSizedArray TypeKind = 116
	TypeMemberPointer       TypeKind = 117
)

// TypeKindFromValue returns the registered kind for v.
func TypeKindFromValue(v int) (TypeKind, error) {
	if _, err := Load().TypeKinds.FromValue(v); err != nil {
		return 0, err
	}
	return TypeKind(v), nil
}

func (k TypeKind) Descriptor() *Descriptor {
	d, err := Load().TypeKinds.FromValue(int(k))
	if err != nil {
		return nil
	}
	return d
}

func (k TypeKind) String() string {
	if d := k.Descriptor(); d != nil {
		return d.Name
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// Spelling is the engine's display name for the kind, e.g. "Void".
func (k TypeKind) Spelling() string {
	if d := k.Descriptor(); d != nil {
		return d.Spelling
	}
	return ""
}

// IsBuiltin reports the scalar kinds with no declaration behind them.
func (k TypeKind) IsBuiltin() bool {
	return k >= TypeVoid && k <= TypeObjCSel
}

// IsInteger reports the builtin integer kinds, bool and chars included.
func (k TypeKind) IsInteger() bool {
	return k >= TypeBool && k <= TypeInt128
}

// IsUnsigned reports integer kinds read with unsigned extraction.
func (k TypeKind) IsUnsigned() bool {
	switch k {
	case TypeBool, TypeCharU, TypeUChar, TypeChar16, TypeChar32, TypeUShort,
		TypeUInt, TypeULong, TypeULongLong, TypeUInt128:
		return true
	}
	return false
}

// IsArray reports the array kinds.
func (k TypeKind) IsArray() bool {
	switch k {
	case TypeConstantArray, TypeIncompleteArray, TypeVariableArray, TypeDependentSizedArray:
		return true
	}
	return false
}
