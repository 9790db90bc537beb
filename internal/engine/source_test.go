package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceFile_Offset(t *testing.T) {
	t.Parallel()
	f := newSourceFile(1, "t.c", []byte("ab\ncd\n"), time.Time{}, true)

	assert.Equal(t, 2, f.LineCount())
	tests := []struct {
		name      string
		line, col int
		want      uint32
	}{
		{"start", 1, 1, 0},
		{"second line", 2, 2, 4},
		{"column past end of line", 1, 10, 2},
		{"line past end of file", 9, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Offset(tt.line, tt.col))
		})
	}

	assert.Equal(t, uint32(5), f.ClampOffset(40))
	assert.Equal(t, uint32(0), newSourceFile(1, "e.c", nil, time.Time{}, true).Offset(3, 3))
}

func TestSourceFile_LineCol(t *testing.T) {
	t.Parallel()
	f := newSourceFile(1, "t.c", []byte("ab\ncd\n"), time.Time{}, true)

	line, col := f.LineCol(0)
	assert.Equal(t, [2]int{1, 1}, [2]int{line, col})
	line, col = f.LineCol(4)
	assert.Equal(t, [2]int{2, 2}, [2]int{line, col})

	assert.Equal(t, "ab", f.LineText(1))
	assert.Equal(t, "cd", f.LineText(2))
	assert.Empty(t, f.LineText(0))
	assert.Empty(t, f.LineText(4))
}

func TestSourceFile_Presumed(t *testing.T) {
	t.Parallel()
	f := newSourceFile(1, "t.c", []byte("int a;\n#line 100 \"x.c\"\nint b;\n# 7\nint c;\n"), time.Time{}, true)

	name, line := f.Presumed(1)
	assert.Equal(t, "t.c", name)
	assert.Equal(t, 1, line)

	name, line = f.Presumed(3)
	assert.Equal(t, "x.c", name)
	assert.Equal(t, 100, line)

	// A marker without a file name keeps the previous one.
	name, line = f.Presumed(5)
	assert.Equal(t, "x.c", name)
	assert.Equal(t, 7, line)
}

func TestDetectIncludeGuard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"pragma once", "#pragma once\nint a;\n", true},
		{"classic guard", "#ifndef A_H\n#define A_H\nint a;\n#endif\n", true},
		{"guard with comments", "// header\n#ifndef A_H\n#define A_H\nint a;\n#endif /* A_H */\n", true},
		{"mismatched define", "#ifndef A_H\n#define B_H\nint a;\n#endif\n", false},
		{"code after endif", "#ifndef A_H\n#define A_H\n#endif\nint a;\n", false},
		{"no guard", "int a;\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectIncludeGuard([]byte(tt.src)))
		})
	}
}
