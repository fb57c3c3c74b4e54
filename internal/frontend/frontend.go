// Package frontend renders compiler and VM errors the way spec §6 and §7
// require: a "Compilation error: " / "Runtime error: " prefix, plus the
// offending source line and a column pointer whenever the error carries a
// token.Location.
package frontend

import (
	"fmt"
	"strings"

	"reel/token"
)

// Located is satisfied by any error that can point back at the source text
// it failed on. lexer.Error and compiler.Error both implement it; vm
// failures do not, since bytecode carries no per-instruction source offset.
type Located interface {
	error
	Location() (token.Location, bool)
}

// FormatCompileError renders a lexical or compile-time failure.
func FormatCompileError(err error, source string) string {
	return "Compilation error: " + err.Error() + pointerSuffix(err, source)
}

// FormatRuntimeError renders a VM failure.
func FormatRuntimeError(err error) string {
	return "Runtime error: " + err.Error()
}

func pointerSuffix(err error, source string) string {
	located, ok := err.(Located)
	if !ok {
		return ""
	}
	loc, ok := located.Location()
	if !ok {
		return ""
	}
	line, pointer := renderLocation(source, loc)
	if line == "" {
		return ""
	}
	return fmt.Sprintf("\n%4d | %s\n     | %s", loc.Line, line, pointer)
}

// renderLocation extracts the full source line containing loc and a
// caret line pointing at loc's column.
func renderLocation(source string, loc token.Location) (line, pointer string) {
	if loc.Offset < 0 || loc.Offset > len(source) {
		return "", ""
	}
	start := loc.Offset
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	end := loc.Offset
	for end < len(source) && source[end] != '\n' {
		end++
	}
	line = source[start:end]

	col := loc.Column - 1
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}
	pointer = strings.Repeat(" ", col) + "^"
	return line, pointer
}
