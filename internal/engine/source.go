package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// FileID indexes Unit.Files; 0 is the invalid file.
type FileID uint32

// SourceFile is one file visible to a unit.
type SourceFile struct {
	ID      FileID
	Name    string
	Content []byte
	ModTime time.Time
	Overlay bool

	// IncludeGuarded is set for #pragma once headers and classic
	// #ifndef/#define/#endif guards.
	IncludeGuarded bool

	lineStarts []uint32
	markers    []lineMarker
}

// lineMarker remaps presumed lines from the line after Line onward.
type lineMarker struct {
	Line     int
	NewLine  int
	Filename string
}

func newSourceFile(id FileID, name string, content []byte, mod time.Time, overlay bool) *SourceFile {
	f := &SourceFile{ID: id, Name: name, Content: content, ModTime: mod, Overlay: overlay}
	f.lineStarts = append(f.lineStarts, 0)
	for i, b := range content {
		if b == '\n' {
			f.lineStarts = append(f.lineStarts, uint32(i+1))
		}
	}
	f.markers = scanLineMarkers(content)
	f.IncludeGuarded = detectIncludeGuard(content)
	return f
}

// Size is the content length in bytes.
func (f *SourceFile) Size() uint32 { return uint32(len(f.Content)) }

// LineCount is the number of lines, counting a final unterminated line.
func (f *SourceFile) LineCount() int {
	n := len(f.lineStarts)
	if n > 1 && f.lineStarts[n-1] == f.Size() {
		n--
	}
	return n
}

// Offset resolves a 1-based (line, col) to a byte offset, clamping:
// a line past the end lands on the last character of the file, a column
// past a line's end lands on that line's newline.
func (f *SourceFile) Offset(line, col int) uint32 {
	size := f.Size()
	if size == 0 {
		return 0
	}
	if line > f.LineCount() {
		return size - 1
	}
	start := f.lineStarts[line-1]
	end := size
	if line < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	}
	off := uint64(start) + uint64(col-1)
	if off > uint64(end) {
		off = uint64(end)
	}
	if off >= uint64(size) {
		off = uint64(size - 1)
	}
	return uint32(off)
}

// ClampOffset limits an offset to the last character of the file.
func (f *SourceFile) ClampOffset(off uint32) uint32 {
	if size := f.Size(); off >= size {
		if size == 0 {
			return 0
		}
		return size - 1
	}
	return off
}

// LineCol converts a byte offset to 1-based line and column.
func (f *SourceFile) LineCol(off uint32) (int, int) {
	i := sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > off })
	line := i
	if line < 1 {
		line = 1
	}
	return line, int(off-f.lineStarts[line-1]) + 1
}

// Presumed applies #line markers to a physical line.
func (f *SourceFile) Presumed(line int) (string, int) {
	name, pl := f.Name, line
	for _, m := range f.markers {
		if m.Line >= line {
			break
		}
		pl = m.NewLine + (line - m.Line - 1)
		if m.Filename != "" {
			name = m.Filename
		}
	}
	return name, pl
}

// LineText returns the text of a 1-based line without its newline.
func (f *SourceFile) LineText(line int) string {
	if line < 1 || line > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[line-1]
	end := f.Size()
	if line < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	}
	return string(f.Content[start:end])
}

var lineMarkerRE = regexp.MustCompile(`^[ \t]*#[ \t]*(?:line[ \t]+)?([0-9]+)(?:[ \t]+"([^"]*)")?`)

func scanLineMarkers(content []byte) []lineMarker {
	if !bytes.Contains(content, []byte("#")) {
		return nil
	}
	var out []lineMarker
	for i, l := range bytes.Split(content, []byte("\n")) {
		m := lineMarkerRE.FindSubmatch(l)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(string(m[1]))
		if err != nil {
			continue
		}
		out = append(out, lineMarker{Line: i + 1, NewLine: n, Filename: string(m[2])})
	}
	return out
}

func detectIncludeGuard(content []byte) bool {
	toks := Lex(content, false)
	text := func(t Token) string { return string(content[t.Start:t.End]) }

	type directive struct {
		hash  Token
		words []Token
	}
	var dirs []directive
	var code []Token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == TokComment {
			continue
		}
		if !t.AtLineStart || text(t) != "#" {
			code = append(code, t)
			continue
		}
		d := directive{hash: t}
		for i+1 < len(toks) && !toks[i+1].AtLineStart {
			i++
			if toks[i].Kind != TokComment {
				d.words = append(d.words, toks[i])
			}
		}
		dirs = append(dirs, d)
	}

	for _, d := range dirs {
		if len(d.words) >= 2 && text(d.words[0]) == "pragma" && text(d.words[1]) == "once" {
			return true
		}
	}
	if len(dirs) < 3 {
		return false
	}
	first, second, last := dirs[0], dirs[1], dirs[len(dirs)-1]
	if len(first.words) < 2 || text(first.words[0]) != "ifndef" {
		return false
	}
	if len(second.words) < 2 || text(second.words[0]) != "define" || text(second.words[1]) != text(first.words[1]) {
		return false
	}
	if len(last.words) < 1 || text(last.words[0]) != "endif" {
		return false
	}
	for _, t := range code {
		if t.Start < first.hash.Start || t.Start > last.hash.Start {
			return false
		}
	}
	return true
}

// UnsavedFile substitutes Contents for Name during parsing.
type UnsavedFile struct {
	Name     string
	Contents []byte
}

// vfs resolves file names against overlays, include paths and disk.
type vfs struct {
	overlays map[string][]byte
	quote    []string
	angled   []string
}

func newVFS(overlays []UnsavedFile, quote, angled []string) *vfs {
	v := &vfs{overlays: make(map[string][]byte, len(overlays)), quote: quote, angled: angled}
	for _, o := range overlays {
		v.overlays[filepath.Clean(o.Name)] = o.Contents
	}
	return v
}

// read returns the content for name, preferring overlays.
func (v *vfs) read(name string) ([]byte, time.Time, bool, error) {
	if data, ok := v.overlays[filepath.Clean(name)]; ok {
		return data, time.Time{}, true, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	var mod time.Time
	if info, err := os.Stat(name); err == nil {
		mod = info.ModTime()
	}
	return data, mod, false, nil
}

func (v *vfs) exists(name string) bool {
	if _, ok := v.overlays[filepath.Clean(name)]; ok {
		return true
	}
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}

// resolveInclude finds the file for an #include spelled as target.
func (v *vfs) resolveInclude(target string, angled bool, includer string) (string, error) {
	if filepath.IsAbs(target) {
		if v.exists(target) {
			return target, nil
		}
		return "", fmt.Errorf("'%s' file not found", target)
	}
	var dirs []string
	if !angled {
		dirs = append(dirs, filepath.Dir(includer))
		dirs = append(dirs, v.quote...)
	}
	dirs = append(dirs, v.angled...)
	for _, d := range dirs {
		cand := filepath.Join(d, target)
		if d == "." {
			cand = target
		}
		if v.exists(cand) {
			return cand, nil
		}
	}
	return "", fmt.Errorf("'%s' file not found", target)
}
