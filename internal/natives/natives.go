// Package natives implements the small set of host-provided functions every
// reel program starts with: print, println, read_line, num, and len.
package natives

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"reel/value"
)

// Register installs every native into globals, the same map-insertion the
// VM reads from on OpGetGlobal. Call it once, before the first Run.
func Register(globals map[string]value.Value, out io.Writer, in io.Reader) {
	globals["print"] = value.NativeFn(print_(out), 1)
	globals["println"] = value.NativeFn(println_(out), 1)
	globals["read_line"] = value.NativeFn(readLine(in), 0)
	globals["num"] = value.NativeFn(num, 1)
	globals["len"] = value.NativeFn(length, 1)
}

func print_(out io.Writer) value.Native {
	return func(args []value.Value) (value.Value, error) {
		fmt.Fprint(out, args[0].Display())
		return value.Null, nil
	}
}

func println_(out io.Writer) value.Native {
	return func(args []value.Value) (value.Value, error) {
		fmt.Fprintln(out, args[0].Display())
		return value.Null, nil
	}
}

func readLine(in io.Reader) value.Native {
	reader := bufio.NewReader(in)
	return func(args []value.Value) (value.Value, error) {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && line != "" {
				return value.Str(line), nil
			}
			return value.Null, nil
		}
		return value.Str(strings.TrimSuffix(line, "\n")), nil
	}
}

func num(args []value.Value) (value.Value, error) {
	v := args[0]
	switch v.Kind() {
	case value.NumKind:
		return v, nil
	case value.BoolKind:
		if v.AsBool() {
			return value.Num(1), nil
		}
		return value.Num(0), nil
	case value.StrKind:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.AsStr()), 64)
		if err != nil {
			return value.Value{}, &value.Error{Op: "num"}
		}
		return value.Num(n), nil
	default:
		return value.Value{}, &value.Error{Op: "num"}
	}
}

func length(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.Kind() != value.StrKind {
		return value.Value{}, &value.Error{Op: "len"}
	}
	return value.Num(float64(len([]rune(v.AsStr())))), nil
}
