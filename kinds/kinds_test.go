package kinds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Registry
// =============================================================================

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()
	r := NewRegistry("TypeKind")

	d, err := r.Register(5, "foo")
	require.NoError(t, err)
	assert.Equal(t, 5, d.Value)
	assert.Equal(t, "foo", d.Name)

	got, err := r.FromValue(5)
	require.NoError(t, err)
	assert.Same(t, d, got)

	byName, err := r.FromName("foo")
	require.NoError(t, err)
	assert.Same(t, d, byName)
}

func TestRegistry_DuplicateValueRejected(t *testing.T) {
	t.Parallel()
	r := NewRegistry("TypeKind")
	_, err := r.Register(2, "VOID")
	require.NoError(t, err)

	_, err = r.Register(2, "foo")
	require.ErrorIs(t, err, ErrDuplicateValue)
}

func TestRegistry_UnknownValue(t *testing.T) {
	t.Parallel()
	r := NewRegistry("TypeKind")
	_, err := r.FromValue(-1)
	require.ErrorIs(t, err, ErrUnknownValue)
}

func TestRegistry_SealedRejectsRegistration(t *testing.T) {
	t.Parallel()
	r := NewRegistry("TokenKind")
	r.Seal()
	_, err := r.Register(9, "NEW")
	require.ErrorIs(t, err, ErrSealed)
}

func TestLoad_TablesAreSealed(t *testing.T) {
	t.Parallel()
	_, err := Load().TypeKinds.Register(2, "foo")
	require.ErrorIs(t, err, ErrSealed)
}

func TestParse_DuplicateEntryFails(t *testing.T) {
	t.Parallel()
	data := []byte(`
cursor_kinds: {values: [{value: 1, name: A}, {value: 1, name: B}]}
type_kinds: {values: [{value: 0, name: INVALID}]}
token_kinds: {values: [{value: 0, name: PUNCTUATION}]}
resource_usage_kinds: {values: [{value: 1, name: AST}]}
access_specifiers: {values: [{value: 0, name: INVALID}]}
completion_chunk_kinds: {values: [{value: 0, name: Optional}]}
availability_kinds: {values: [{value: 0, name: Available}]}
`)
	_, err := Parse(data)
	require.ErrorIs(t, err, ErrDuplicateValue)
}

func TestParse_EmptyTableFails(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte("cursor_kinds: {values: []}\n"))
	require.Error(t, err)
}

// =============================================================================
// Typed enumerations
// =============================================================================

func TestTypeKind_Void(t *testing.T) {
	t.Parallel()
	k, err := TypeKindFromValue(2)
	require.NoError(t, err)
	assert.Equal(t, TypeVoid, k)
	assert.Equal(t, "VOID", k.String())
	assert.Equal(t, "Void", k.Spelling())

	_, err = TypeKindFromValue(-1)
	require.ErrorIs(t, err, ErrUnknownValue)
}

func TestTypeKind_DescriptorIdentity(t *testing.T) {
	t.Parallel()
	assert.Same(t, TypeInt.Descriptor(), TypeInt.Descriptor())
	assert.Nil(t, TypeKind(99).Descriptor())
	assert.Equal(t, "TypeKind(99)", TypeKind(99).String())
}

func TestTypeKind_Signedness(t *testing.T) {
	t.Parallel()
	assert.True(t, TypeULongLong.IsUnsigned())
	assert.True(t, TypeUInt.IsUnsigned())
	assert.False(t, TypeInt.IsUnsigned())
	assert.False(t, TypeCharS.IsUnsigned())
	assert.True(t, TypeConstantArray.IsArray())
	assert.False(t, TypeVector.IsArray())
}

func TestResourceUsageKind_AST(t *testing.T) {
	t.Parallel()
	k, err := ResourceUsageKindFromValue(1)
	require.NoError(t, err)
	assert.Equal(t, ResourceAST, k)
	assert.Equal(t, "AST", k.String())
	assert.NotEmpty(t, k.Spelling())

	_, err = ResourceUsageKindFromValue(-1)
	require.Error(t, err)
}

func TestAccessSpecifier_Labels(t *testing.T) {
	t.Parallel()
	a, err := AccessSpecifierFromValue(0)
	require.NoError(t, err)
	assert.Equal(t, AccessInvalid, a)

	pub, err := AccessSpecifierFromValue(1)
	require.NoError(t, err)
	assert.Equal(t, "public", pub.String())
	assert.Equal(t, "PUBLIC", pub.Name())

	_, err = AccessSpecifierFromValue(8)
	require.ErrorIs(t, err, ErrUnknownValue)
}

func TestTokenKind_Names(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "PUNCTUATION", Punctuation.String())
	assert.Equal(t, "COMMENT", Comment.String())
	_, err := TokenKindFromValue(5)
	require.Error(t, err)
}

func TestCompletionKinds(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "TypedText", ChunkTypedText.String())
	assert.Equal(t, "VerticalSpace", ChunkVerticalSpace.String())
	assert.Equal(t, "NotAvailable", NotAvailable.String())
	_, err := AvailabilityFromValue(3)
	require.Error(t, err)
}

// =============================================================================
// Cursor kind predicates
// =============================================================================

func TestCursorKind_Predicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind  CursorKind
		check func(CursorKind) bool
	}{
		{StructDecl, CursorKind.IsDeclaration},
		{CXXAccessSpecDecl, CursorKind.IsDeclaration},
		{ModuleImportDecl, CursorKind.IsDeclaration},
		{TypeRef, CursorKind.IsReference},
		{VariableRef, CursorKind.IsReference},
		{NoDeclFound, CursorKind.IsInvalid},
		{CallExpr, CursorKind.IsExpression},
		{ObjCBoolLiteralExpr, CursorKind.IsExpression},
		{DeclStmt, CursorKind.IsStatement},
		{TranslationUnit, CursorKind.IsTranslationUnit},
		{AsmLabelAttr, CursorKind.IsAttribute},
		{InclusionDirective, CursorKind.IsPreprocessing},
		{UnexposedExpr, CursorKind.IsUnexposed},
	}
	for _, tt := range tests {
		assert.True(t, tt.check(tt.kind), tt.kind.String())
	}

	assert.False(t, VarDecl.IsExpression())
	assert.False(t, VarDecl.IsUnexposed())
	assert.True(t, UnexposedDecl.IsDeclaration())
}

func TestCursorKind_AtMostOneClass(t *testing.T) {
	t.Parallel()
	preds := []func(CursorKind) bool{
		CursorKind.IsDeclaration, CursorKind.IsReference, CursorKind.IsExpression,
		CursorKind.IsStatement, CursorKind.IsAttribute, CursorKind.IsInvalid,
		CursorKind.IsTranslationUnit, CursorKind.IsPreprocessing,
	}
	for _, k := range AllCursorKinds() {
		n := 0
		for _, p := range preds {
			if p(k) {
				n++
			}
		}
		assert.Equal(t, 1, n, "kind %s", k)
	}
}

// Every Go constant must be backed by a registered descriptor of the
// matching name; a table edit that drops or renames a kind fails here.
func TestCursorKind_Completeness(t *testing.T) {
	t.Parallel()
	consts := map[CursorKind]string{
		UnexposedDecl: "UNEXPOSED_DECL", StructDecl: "STRUCT_DECL", UnionDecl: "UNION_DECL",
		ClassDecl: "CLASS_DECL", EnumDecl: "ENUM_DECL", FieldDecl: "FIELD_DECL",
		EnumConstantDecl: "ENUM_CONSTANT_DECL", FunctionDecl: "FUNCTION_DECL", VarDecl: "VAR_DECL",
		ParmDecl: "PARM_DECL", TypedefDecl: "TYPEDEF_DECL", CXXMethod: "CXX_METHOD",
		Namespace: "NAMESPACE", Constructor: "CONSTRUCTOR", Destructor: "DESTRUCTOR",
		FunctionTemplate: "FUNCTION_TEMPLATE", ClassTemplate: "CLASS_TEMPLATE",
		UsingDirective: "USING_DIRECTIVE", TypeAliasDecl: "TYPE_ALIAS_DECL",
		CXXAccessSpecDecl: "CXX_ACCESS_SPEC_DECL", TypeRef: "TYPE_REF",
		CXXBaseSpecifier: "CXX_BASE_SPECIFIER", MemberRef: "MEMBER_REF",
		OverloadedDeclRef: "OVERLOADED_DECL_REF", InvalidFile: "INVALID_FILE",
		NoDeclFound: "NO_DECL_FOUND", DeclRefExpr: "DECL_REF_EXPR", MemberRefExpr: "MEMBER_REF_EXPR",
		CallExpr: "CALL_EXPR", IntegerLiteral: "INTEGER_LITERAL", ArraySubscriptExpr: "ARRAY_SUBSCRIPT_EXPR",
		BinaryOperator: "BINARY_OPERATOR", CompoundStmt: "COMPOUND_STMT", ReturnStmt: "RETURN_STMT",
		DeclStmt: "DECL_STMT", TranslationUnit: "TRANSLATION_UNIT", MacroDefinition: "MACRO_DEFINITION",
		MacroInstantiation: "MACRO_INSTANTIATION", InclusionDirective: "INCLUSION_DIRECTIVE",
	}
	for k, name := range consts {
		d := k.Descriptor()
		require.NotNil(t, d, name)
		assert.Equal(t, name, d.Name)
		assert.Equal(t, int(k), d.Value)
	}
	assert.Equal(t, 146, Load().CursorKinds.Len())
	assert.Equal(t, 48, Load().TypeKinds.Len())
	assert.Equal(t, 14, Load().ResourceUsageKinds.Len())
	assert.Equal(t, 21, Load().CompletionChunkKinds.Len())
}
