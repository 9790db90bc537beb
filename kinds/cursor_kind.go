package kinds

import "fmt"

// CursorKind identifies the flavor of AST node a cursor refers to.
type CursorKind int

const (
	UnexposedDecl                      CursorKind = 1
	StructDecl                         CursorKind = 2
	UnionDecl                          CursorKind = 3
	ClassDecl                          CursorKind = 4
	EnumDecl                           CursorKind = 5
	FieldDecl                          CursorKind = 6
	EnumConstantDecl                   CursorKind = 7
	FunctionDecl                       CursorKind = 8
	VarDecl                            CursorKind = 9
	ParmDecl                           CursorKind = 10
	ObjCInterfaceDecl                  CursorKind = 11
	ObjCCategoryDecl                   CursorKind = 12
	ObjCProtocolDecl                   CursorKind = 13
	ObjCPropertyDecl                   CursorKind = 14
	ObjCIvarDecl                       CursorKind = 15
	ObjCInstanceMethodDecl             CursorKind = 16
	ObjCClassMethodDecl                CursorKind = 17
	ObjCImplementationDecl             CursorKind = 18
	ObjCCategoryImplDecl               CursorKind = 19
	TypedefDecl                        CursorKind = 20
	CXXMethod                          CursorKind = 21
	Namespace                          CursorKind = 22
	LinkageSpec                        CursorKind = 23
	Constructor                        CursorKind = 24
	Destructor                         CursorKind = 25
	ConversionFunction                 CursorKind = 26
	TemplateTypeParameter              CursorKind = 27
	TemplateNonTypeParameter           CursorKind = 28
	TemplateTemplateParameter          CursorKind = 29
	FunctionTemplate                   CursorKind = 30
	ClassTemplate                      CursorKind = 31
	ClassTemplatePartialSpecialization CursorKind = 32
	NamespaceAlias                     CursorKind = 33
	UsingDirective                     CursorKind = 34
	UsingDeclaration                   CursorKind = 35
	TypeAliasDecl                      CursorKind = 36
	ObjCSynthesizeDecl                 CursorKind = 37
	ObjCDynamicDecl                    CursorKind = 38
	CXXAccessSpecDecl                  CursorKind = 39

	ObjCSuperClassRef CursorKind = 40
	ObjCProtocolRef   CursorKind = 41
	ObjCClassRef      CursorKind = 42
	TypeRef           CursorKind = 43
	CXXBaseSpecifier  CursorKind = 44
	TemplateRef       CursorKind = 45
	NamespaceRef      CursorKind = 46
	MemberRef         CursorKind = 47
	LabelRef          CursorKind = 48
	OverloadedDeclRef CursorKind = 49
	VariableRef       CursorKind = 50

	InvalidFile    CursorKind = 70
	NoDeclFound    CursorKind = 71
	NotImplemented CursorKind = 72
	InvalidCode    CursorKind = 73

	UnexposedExpr              CursorKind = 100
	DeclRefExpr                CursorKind = 101
	MemberRefExpr              CursorKind = 102
	CallExpr                   CursorKind = 103
	ObjCMessageExpr            CursorKind = 104
	BlockExpr                  CursorKind = 105
	IntegerLiteral             CursorKind = 106
	FloatingLiteral            CursorKind = 107
	ImaginaryLiteral           CursorKind = 108
	StringLiteral              CursorKind = 109
	CharacterLiteral           CursorKind = 110
	ParenExpr                  CursorKind = 111
	UnaryOperator              CursorKind = 112
	ArraySubscriptExpr         CursorKind = 113
	BinaryOperator             CursorKind = 114
	CompoundAssignmentOperator CursorKind = 115
	ConditionalOperator        CursorKind = 116
	CStyleCastExpr             CursorKind = 117
	CompoundLiteralExpr        CursorKind = 118
	InitListExpr               CursorKind = 119
	AddrLabelExpr              CursorKind = 120
	StmtExpr                   CursorKind = 121
	GenericSelectionExpr       CursorKind = 122
	GNUNullExpr                CursorKind = 123
	CXXStaticCastExpr          CursorKind = 124
	CXXDynamicCastExpr         CursorKind = 125
	CXXReinterpretCastExpr     CursorKind = 126
	CXXConstCastExpr           CursorKind = 127
	CXXFunctionalCastExpr      CursorKind = 128
	CXXTypeidExpr              CursorKind = 129
	CXXBoolLiteralExpr         CursorKind = 130
	CXXNullPtrLiteralExpr      CursorKind = 131
	CXXThisExpr                CursorKind = 132
	CXXThrowExpr               CursorKind = 133
	CXXNewExpr                 CursorKind = 134
	CXXDeleteExpr              CursorKind = 135
	CXXUnaryExpr               CursorKind = 136
	ObjCStringLiteral          CursorKind = 137
	ObjCEncodeExpr             CursorKind = 138
	ObjCSelectorExpr           CursorKind = 139
	ObjCProtocolExpr           CursorKind = 140
	ObjCBridgeCastExpr         CursorKind = 141
	PackExpansionExpr          CursorKind = 142
	SizeOfPackExpr             CursorKind = 143
	LambdaExpr                 CursorKind = 144
	ObjCBoolLiteralExpr        CursorKind = 145

	UnexposedStmt           CursorKind = 200
	LabelStmt               CursorKind = 201
	CompoundStmt            CursorKind = 202
	CaseStmt                CursorKind = 203
	DefaultStmt             CursorKind = 204
	IfStmt                  CursorKind = 205
	SwitchStmt              CursorKind = 206
	WhileStmt               CursorKind = 207
	DoStmt                  CursorKind = 208
	ForStmt                 CursorKind = 209
	GotoStmt                CursorKind = 210
	IndirectGotoStmt        CursorKind = 211
	ContinueStmt            CursorKind = 212
	BreakStmt               CursorKind = 213
	ReturnStmt              CursorKind = 214
	AsmStmt                 CursorKind = 215
	ObjCAtTryStmt           CursorKind = 216
	ObjCAtCatchStmt         CursorKind = 217
	ObjCAtFinallyStmt       CursorKind = 218
	ObjCAtThrowStmt         CursorKind = 219
	ObjCAtSynchronizedStmt  CursorKind = 220
	ObjCAutoreleasePoolStmt CursorKind = 221
	ObjCForCollectionStmt   CursorKind = 222
	CXXCatchStmt            CursorKind = 223
	CXXTryStmt              CursorKind = 224
	CXXForRangeStmt         CursorKind = 225
	SEHTryStmt              CursorKind = 226
	SEHExceptStmt           CursorKind = 227
	SEHFinallyStmt          CursorKind = 228
	MSAsmStmt               CursorKind = 229
	NullStmt                CursorKind = 230
	DeclStmt                CursorKind = 231

	TranslationUnit CursorKind = 300

	UnexposedAttr          CursorKind = 400
	IBActionAttr           CursorKind = 401
	IBOutletAttr           CursorKind = 402
	IBOutletCollectionAttr CursorKind = 403
	CXXFinalAttr           CursorKind = 404
	CXXOverrideAttr        CursorKind = 405
	AnnotateAttr           CursorKind = 406
	AsmLabelAttr           CursorKind = 407

	PreprocessingDirective CursorKind = 500
	MacroDefinition        CursorKind = 501
	MacroInstantiation     CursorKind = 502
	InclusionDirective     CursorKind = 503

	ModuleImportDecl CursorKind = 600
)

// CursorKindFromValue returns the registered kind for v.
func CursorKindFromValue(v int) (CursorKind, error) {
	if _, err := Load().CursorKinds.FromValue(v); err != nil {
		return 0, err
	}
	return CursorKind(v), nil
}

// Descriptor returns the canonical descriptor, or nil for an
// unregistered value.
func (k CursorKind) Descriptor() *Descriptor {
	d, err := Load().CursorKinds.FromValue(int(k))
	if err != nil {
		return nil
	}
	return d
}

func (k CursorKind) String() string {
	if d := k.Descriptor(); d != nil {
		return d.Name
	}
	return fmt.Sprintf("CursorKind(%d)", int(k))
}

func (k CursorKind) class() Class {
	if d := k.Descriptor(); d != nil {
		return d.Class
	}
	return ClassNone
}

func (k CursorKind) IsDeclaration() bool     { return k.class() == ClassDeclaration }
func (k CursorKind) IsReference() bool       { return k.class() == ClassReference }
func (k CursorKind) IsExpression() bool      { return k.class() == ClassExpression }
func (k CursorKind) IsStatement() bool       { return k.class() == ClassStatement }
func (k CursorKind) IsAttribute() bool       { return k.class() == ClassAttribute }
func (k CursorKind) IsInvalid() bool         { return k.class() == ClassInvalid }
func (k CursorKind) IsTranslationUnit() bool { return k.class() == ClassTranslationUnit }
func (k CursorKind) IsPreprocessing() bool   { return k.class() == ClassPreprocessing }

// IsUnexposed reports the catch-all kinds the engine uses for nodes it
// does not model.
func (k CursorKind) IsUnexposed() bool {
	d := k.Descriptor()
	return d != nil && d.Unexposed
}

// AllCursorKinds returns every registered cursor kind in value order.
func AllCursorKinds() []CursorKind {
	all := Load().CursorKinds.All()
	out := make([]CursorKind, len(all))
	for i, d := range all {
		out[i] = CursorKind(d.Value)
	}
	return out
}
