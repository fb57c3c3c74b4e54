package frontend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"reel/compiler"
	"reel/token"
	"reel/vm"
)

func TestFormatCompileErrorAddsPrefixAndPointer(t *testing.T) {
	source := "1 +"
	_, err := compiler.Compile(source)
	if err == nil {
		t.Fatal("expected a compile error")
	}

	msg := FormatCompileError(err, source)
	assert.True(t, strings.HasPrefix(msg, "Compilation error: "))
	assert.Contains(t, msg, "\n   1 | 1 +\n     |    ^")
}

func TestFormatRuntimeErrorAddsPrefix(t *testing.T) {
	bc, err := compiler.Compile("missing")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	_, runErr := vm.New().Run(bc)
	if runErr == nil {
		t.Fatal("expected a runtime error")
	}

	msg := FormatRuntimeError(runErr)
	assert.Equal(t, "Runtime error: undeclared global \"missing\"", msg)
}

func TestRenderLocationPointsAtColumn(t *testing.T) {
	source := "let x = \n"
	line, pointer := renderLocation(source, locAt(source, 8))
	assert.Equal(t, "let x = ", line)
	assert.Equal(t, strings.Repeat(" ", 8)+"^", pointer)
}

func locAt(source string, offset int) token.Location {
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return token.Location{Offset: offset, Line: line, Column: col}
}
