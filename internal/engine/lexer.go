package engine

import "github.com/jward/cindex/kinds"

// TokKind mirrors kinds.TokenKind numerically.
type TokKind uint8

const (
	TokPunct   = TokKind(kinds.Punctuation)
	TokKeyword = TokKind(kinds.Keyword)
	TokIdent   = TokKind(kinds.Identifier)
	TokLiteral = TokKind(kinds.Literal)
	TokComment = TokKind(kinds.Comment)
)

// Token is one raw preprocessing token. Offsets are half-open.
type Token struct {
	Kind        TokKind
	Start, End  uint32
	AtLineStart bool
}

var cKeywords = wordSet(
	"auto", "break", "case", "char", "const", "continue", "default", "do", "double",
	"else", "enum", "extern", "float", "for", "goto", "if", "inline", "int", "long",
	"register", "restrict", "return", "short", "signed", "sizeof", "static", "struct",
	"switch", "typedef", "union", "unsigned", "void", "volatile", "while", "_Bool",
	"_Complex", "_Alignas", "_Alignof", "_Atomic", "_Generic", "_Noreturn",
	"_Static_assert", "_Thread_local",
)

var cppKeywords = wordSet(
	"alignas", "alignof", "and", "and_eq", "asm", "bitand", "bitor", "bool", "catch",
	"char16_t", "char32_t", "class", "compl", "concept", "const_cast", "constexpr",
	"consteval", "constinit", "decltype", "delete", "dynamic_cast", "explicit",
	"export", "false", "final", "friend", "mutable", "namespace", "new", "noexcept",
	"not", "not_eq", "nullptr", "operator", "or", "or_eq", "override", "private",
	"protected", "public", "reinterpret_cast", "requires", "static_assert",
	"static_cast", "template", "this", "thread_local", "throw", "true", "try",
	"typeid", "typename", "using", "virtual", "wchar_t", "xor", "xor_eq",
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsKeyword reports whether word is reserved in the given dialect.
func IsKeyword(word string, cpp bool) bool {
	if cKeywords[word] {
		return !cpp || word != "restrict"
	}
	return cpp && cppKeywords[word]
}

// Keywords lists the reserved words of a dialect.
func Keywords(cpp bool) []string {
	var out []string
	for w := range cKeywords {
		if IsKeyword(w, cpp) {
			out = append(out, w)
		}
	}
	if cpp {
		for w := range cppKeywords {
			out = append(out, w)
		}
	}
	return out
}

// punctuators longest first within each leading byte.
var punctuators = []string{
	"%:%:", "...", "<<=", ">>=", "->*", "<=>",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "*=", "/=",
	"%=", "+=", "-=", "&=", "^=", "|=", "##", "::", ".*", "<:", ":>", "<%", "%>", "%:",
}

// Lex splits content into raw tokens, comments included.
func Lex(content []byte, cpp bool) []Token {
	var out []Token
	n := uint32(len(content))
	i := uint32(0)
	lineStart := true
	for i < n {
		c := content[i]
		switch {
		case c == '\n':
			lineStart = true
			i++
			continue
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			i++
			continue
		case c == '\\' && i+1 < n && (content[i+1] == '\n' || content[i+1] == '\r'):
			i += 2
			continue
		}

		start := i
		kind := TokPunct
		switch {
		case c == '/' && i+1 < n && content[i+1] == '/':
			for i < n && content[i] != '\n' {
				i++
			}
			kind = TokComment
		case c == '/' && i+1 < n && content[i+1] == '*':
			i += 2
			for i+1 < n && !(content[i] == '*' && content[i+1] == '/') {
				i++
			}
			i += 2
			if i > n {
				i = n
			}
			kind = TokComment
		case isIdentStart(c):
			for i < n && isIdentChar(content[i]) {
				i++
			}
			// String and char prefixes: L"", u8"", R"(...)".
			if i < n && (content[i] == '"' || content[i] == '\'') && isLiteralPrefix(string(content[start:i])) {
				i = lexQuoted(content, i)
				kind = TokLiteral
				break
			}
			kind = TokIdent
			if IsKeyword(string(content[start:i]), cpp) {
				kind = TokKeyword
			}
		case isDigit(c) || (c == '.' && i+1 < n && isDigit(content[i+1])):
			i = lexNumber(content, i)
			kind = TokLiteral
		case c == '"' || c == '\'':
			i = lexQuoted(content, i)
			kind = TokLiteral
		default:
			i = lexPunct(content, i)
		}
		out = append(out, Token{Kind: kind, Start: start, End: i, AtLineStart: lineStart})
		if kind != TokComment {
			lineStart = false
		} else if i > start && content[i-1] == '\n' {
			lineStart = true
		}
	}
	return out
}

func lexNumber(content []byte, i uint32) uint32 {
	n := uint32(len(content))
	for i < n {
		c := content[i]
		switch {
		case isIdentChar(c) || c == '.':
			i++
		case (c == '+' || c == '-') && i > 0 && (content[i-1]|0x20 == 'e' || content[i-1]|0x20 == 'p'):
			i++
		case c == '\'' && i+1 < n && isIdentChar(content[i+1]):
			i++
		default:
			return i
		}
	}
	return i
}

func lexQuoted(content []byte, i uint32) uint32 {
	n := uint32(len(content))
	q := content[i]
	i++
	for i < n && content[i] != q && content[i] != '\n' {
		if content[i] == '\\' {
			i++
		}
		i++
	}
	if i < n && content[i] == q {
		i++
	}
	if i > n {
		i = n
	}
	return i
}

func lexPunct(content []byte, i uint32) uint32 {
	rest := content[i:]
	for _, p := range punctuators {
		if len(rest) >= len(p) && string(rest[:len(p)]) == p {
			return i + uint32(len(p))
		}
	}
	return i + 1
}

func isLiteralPrefix(s string) bool {
	switch s {
	case "L", "u", "U", "u8", "R", "LR", "uR", "UR", "u8R":
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c|0x20 >= 'a' && c|0x20 <= 'z') || c >= 0x80
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
