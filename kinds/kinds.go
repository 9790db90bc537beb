package kinds

import "fmt"

// TokenKind classifies lexical tokens.
type TokenKind int

const (
	Punctuation TokenKind = 0
	Keyword     TokenKind = 1
	Identifier  TokenKind = 2
	Literal     TokenKind = 3
	Comment     TokenKind = 4
)

func TokenKindFromValue(v int) (TokenKind, error) {
	if _, err := Load().TokenKinds.FromValue(v); err != nil {
		return 0, err
	}
	return TokenKind(v), nil
}

func (k TokenKind) String() string {
	return nameOf(Load().TokenKinds, int(k), "TokenKind")
}

// ResourceUsageKind names one line of a TU resource-usage report.
type ResourceUsageKind int

const (
	ResourceAST                              ResourceUsageKind = 1
	ResourceIdentifiers                      ResourceUsageKind = 2
	ResourceSelectors                        ResourceUsageKind = 3
	ResourceGlobalCompletionResults          ResourceUsageKind = 4
	ResourceSourceManagerContentCache        ResourceUsageKind = 5
	ResourceASTSideTables                    ResourceUsageKind = 6
	ResourceSourceManagerMembufferMalloc     ResourceUsageKind = 7
	ResourceSourceManagerMembufferMMap       ResourceUsageKind = 8
	ResourceExternalASTSourceMembufferMalloc ResourceUsageKind = 9
	ResourceExternalASTSourceMembufferMMap   ResourceUsageKind = 10
	ResourcePreprocessor                     ResourceUsageKind = 11
	ResourcePreprocessingRecord              ResourceUsageKind = 12
	ResourceSourceManagerDataStructures      ResourceUsageKind = 13
	ResourcePreprocessorHeaderSearch         ResourceUsageKind = 14
)

func ResourceUsageKindFromValue(v int) (ResourceUsageKind, error) {
	if _, err := Load().ResourceUsageKinds.FromValue(v); err != nil {
		return 0, err
	}
	return ResourceUsageKind(v), nil
}

func (k ResourceUsageKind) String() string {
	return nameOf(Load().ResourceUsageKinds, int(k), "ResourceUsageKind")
}

// Spelling is the human-readable description of the resource.
func (k ResourceUsageKind) Spelling() string {
	d, err := Load().ResourceUsageKinds.FromValue(int(k))
	if err != nil {
		return ""
	}
	return d.Spelling
}

// AccessSpecifier is the C++ access level of a member or base.
type AccessSpecifier int

const (
	AccessInvalid   AccessSpecifier = 0
	AccessPublic    AccessSpecifier = 1
	AccessProtected AccessSpecifier = 2
	AccessPrivate   AccessSpecifier = 3
)

func AccessSpecifierFromValue(v int) (AccessSpecifier, error) {
	if _, err := Load().AccessSpecifiers.FromValue(v); err != nil {
		return 0, err
	}
	return AccessSpecifier(v), nil
}

// Name returns the registered enumerator name, e.g. "PUBLIC".
func (a AccessSpecifier) Name() string {
	return nameOf(Load().AccessSpecifiers, int(a), "CXXAccessSpecifier")
}

// String returns the source label, e.g. "public".
func (a AccessSpecifier) String() string {
	d, err := Load().AccessSpecifiers.FromValue(int(a))
	if err != nil {
		return fmt.Sprintf("CXXAccessSpecifier(%d)", int(a))
	}
	return d.Spelling
}

// CompletionChunkKind labels one fragment of a completion string.
type CompletionChunkKind int

const (
	ChunkOptional         CompletionChunkKind = 0
	ChunkTypedText        CompletionChunkKind = 1
	ChunkText             CompletionChunkKind = 2
	ChunkPlaceholder      CompletionChunkKind = 3
	ChunkInformative      CompletionChunkKind = 4
	ChunkCurrentParameter CompletionChunkKind = 5
	ChunkLeftParen        CompletionChunkKind = 6
	ChunkRightParen       CompletionChunkKind = 7
	ChunkLeftBracket      CompletionChunkKind = 8
	ChunkRightBracket     CompletionChunkKind = 9
	ChunkLeftBrace        CompletionChunkKind = 10
	ChunkRightBrace       CompletionChunkKind = 11
	ChunkLeftAngle        CompletionChunkKind = 12
	ChunkRightAngle       CompletionChunkKind = 13
	ChunkComma            CompletionChunkKind = 14
	ChunkResultType       CompletionChunkKind = 15
	ChunkColon            CompletionChunkKind = 16
	ChunkSemiColon        CompletionChunkKind = 17
	ChunkEqual            CompletionChunkKind = 18
	ChunkHorizontalSpace  CompletionChunkKind = 19
	ChunkVerticalSpace    CompletionChunkKind = 20
)

func CompletionChunkKindFromValue(v int) (CompletionChunkKind, error) {
	if _, err := Load().CompletionChunkKinds.FromValue(v); err != nil {
		return 0, err
	}
	return CompletionChunkKind(v), nil
}

func (k CompletionChunkKind) String() string {
	return nameOf(Load().CompletionChunkKinds, int(k), "CompletionChunkKind")
}

// Availability of a completion candidate.
type Availability int

const (
	Available    Availability = 0
	Deprecated   Availability = 1
	NotAvailable Availability = 2
)

func AvailabilityFromValue(v int) (Availability, error) {
	if _, err := Load().AvailabilityKinds.FromValue(v); err != nil {
		return 0, err
	}
	return Availability(v), nil
}

func (a Availability) String() string {
	return nameOf(Load().AvailabilityKinds, int(a), "AvailabilityKind")
}

func nameOf(r *Registry, v int, label string) string {
	d, err := r.FromValue(v)
	if err != nil {
		return fmt.Sprintf("%s(%d)", label, v)
	}
	return d.Name
}
