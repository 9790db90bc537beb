package cindex

import (
	"fmt"
	"sync"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// Token is one lexical token copied out of the lexer. It stays valid
// after the unit is reparsed; only Cursor needs the unit it came from.
// Disposing the unit invalidates it.
type Token struct {
	tu       *TranslationUnit
	gen      uint64
	kind     kinds.TokenKind
	spelling string
	extent   SourceRange
	file     engine.FileID
	start    uint32
	cursor   *tokenCursor
}

type tokenCursor struct {
	once sync.Once
	c    Cursor
	err  error
}

func (t Token) Kind() kinds.TokenKind    { return t.kind }
func (t Token) Location() SourceLocation { return t.extent.Start() }
func (t Token) Extent() SourceRange      { return t.extent }
func (t Token) String() string           { return t.Spelling() }

// Err is ErrDisposed once the owning unit has been disposed.
func (t Token) Err() error { return t.tu.alive() }

// Spelling is the token text; empty once the unit is disposed.
func (t Token) Spelling() string {
	if t.Err() != nil {
		return ""
	}
	return t.spelling
}

// Cursor is the innermost cursor covering the token's start. It is
// computed once per token.
func (t Token) Cursor() (Cursor, error) {
	if t.cursor == nil {
		return Cursor{}, fmt.Errorf("cindex: token cursor: %w: zero token", ErrInvalidArgument)
	}
	t.cursor.once.Do(func() {
		u, _, err := t.tu.view(t.gen)
		if err != nil {
			t.cursor.err = fmt.Errorf("cindex: token cursor: %w", err)
			return
		}
		t.cursor.c = t.tu.cursorFor(u, t.gen, u.NodeAt(t.file, t.start))
	})
	return t.cursor.c, t.cursor.err
}

// tokenize lexes file and keeps the tokens whose start lies in
// [start, end].
func tokenize(tu *TranslationUnit, u *engine.Unit, gen uint64, file engine.FileID, start, end uint32) []Token {
	f := u.File(file)
	if f == nil {
		return nil
	}
	var out []Token
	for _, lt := range engine.Lex(f.Content, u.Lang == engine.LangCPP) {
		if lt.Start < start {
			continue
		}
		if lt.Start > end {
			break
		}
		out = append(out, Token{
			tu:       tu,
			gen:      gen,
			kind:     kinds.TokenKind(lt.Kind),
			spelling: string(f.Content[lt.Start:lt.End]),
			extent:   newRange(tu, u, gen, engine.Range{File: file, Start: lt.Start, End: lt.End}),
			file:     file,
			start:    lt.Start,
			cursor:   &tokenCursor{},
		})
	}
	return out
}

// Tokens returns the tokens whose start lies within rng, in source order.
func (tu *TranslationUnit) Tokens(rng SourceRange) ([]Token, error) {
	return tu.TokensBetween(rng.Start(), rng.End())
}

// TokensBetween returns the tokens whose start lies in [start, end].
func (tu *TranslationUnit) TokensBetween(start, end SourceLocation) ([]Token, error) {
	if _, _, _, err := tu.snapshot(); err != nil {
		return nil, fmt.Errorf("cindex: tokens: %w", err)
	}
	if start.IsNull() || end.IsNull() {
		return nil, fmt.Errorf("cindex: tokens: %w: null location", ErrInvalidArgument)
	}
	if start.tu != tu || end.tu != tu {
		return nil, fmt.Errorf("cindex: tokens: %w", ErrTUMismatch)
	}
	// Locations take the read lock themselves, so resolve them first.
	sf, _, _, so := start.ExpansionLocation()
	ef, _, _, eo := end.ExpansionLocation()
	name, endName := sf.Name(), ef.Name()
	if name != endName {
		return nil, fmt.Errorf("cindex: tokens: %w: range spans %s and %s", ErrInvalidArgument, name, endName)
	}

	tu.mu.Lock()
	defer tu.mu.Unlock()
	if err := tu.usableLocked(); err != nil {
		return nil, fmt.Errorf("cindex: tokens: %w", err)
	}
	cur := tu.unit.FileByName(name)
	if cur == nil {
		return nil, fmt.Errorf("cindex: tokens %s: %w", name, ErrFileNotFound)
	}
	return tokenize(tu, tu.unit, tu.gen, cur.ID, uint32(so), uint32(eo)), nil
}
