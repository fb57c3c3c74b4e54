// Package value defines reel's runtime tagged-variant datum and the
// arithmetic, comparison, truthiness, and formatting contracts every
// variant obeys.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind tags a Value's variant.
type Kind int

const (
	NullKind Kind = iota
	NumKind
	StrKind
	BoolKind
	FunctionKind
	NativeFnKind
)

// Chunk is the minimal view of a compiled instruction sequence a Value
// needs to carry. The compiler package defines the concrete type satisfying
// this; value stays independent of compiler to avoid an import cycle.
type Chunk interface {
	// Disassemble renders the chunk for debugging/dump output.
	Disassemble() string
}

// Native is a host-supplied callable. It receives exactly Arity values and
// returns a Value or a domain error.
type Native func(args []Value) (Value, error)

// Value is the single tagged-variant type flowing through the compiler's
// constants pool and the VM's evaluation stack.
type Value struct {
	kind Kind

	num  float64
	str  string
	b    bool

	chunk    Chunk
	arity    int
	funcName string

	native Native
}

// Null is the singleton falsy value; it compares only to itself.
var Null = Value{kind: NullKind}

// Num constructs a numeric value.
func Num(n float64) Value { return Value{kind: NumKind, num: n} }

// Str constructs a string value.
func Str(s string) Value { return Value{kind: StrKind, str: s} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

// Function constructs an interpreted callable. name is empty for anonymous
// functions.
func Function(chunk Chunk, arity int, name string) Value {
	return Value{kind: FunctionKind, chunk: chunk, arity: arity, funcName: name}
}

// NativeFn constructs a host callable.
func NativeFn(fn Native, arity int) Value {
	return Value{kind: NativeFnKind, native: fn, arity: arity}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == NullKind }

// AsNum returns the underlying float64; valid only when Kind() == NumKind.
func (v Value) AsNum() float64 { return v.num }

// AsStr returns the underlying string; valid only when Kind() == StrKind.
func (v Value) AsStr() string { return v.str }

// AsBool returns the underlying bool; valid only when Kind() == BoolKind.
func (v Value) AsBool() bool { return v.b }

// Chunk returns the callable's chunk; valid only when Kind() == FunctionKind.
func (v Value) Chunk() Chunk { return v.chunk }

// Arity returns the callable's declared arity; valid for FunctionKind and
// NativeFnKind.
func (v Value) Arity() int { return v.arity }

// Name returns a Function's declared name, or "" if anonymous.
func (v Value) Name() string { return v.funcName }

// Native returns the underlying host callable; valid only when Kind() ==
// NativeFnKind.
func (v Value) Native() Native { return v.native }

// Error is a value-domain failure: an operator applied outside its domain.
type Error struct {
	Op string
}

func (e *Error) Error() string {
	return fmt.Sprintf("value error: %s", e.Op)
}

func unaryErr(op string) error  { return &Error{Op: fmt.Sprintf("Unary(%q)", op)} }
func binaryErr(op string) error { return &Error{Op: fmt.Sprintf("Binary(%q)", op)} }
func comparisonErr() error      { return &Error{Op: "Comparison"} }

// IsTruthy implements §4.2's total truthiness contract.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case NullKind:
		return false
	case NumKind:
		return v.num != 0
	case StrKind:
		return v.str != ""
	case BoolKind:
		return v.b
	default:
		return true
	}
}

// Neg implements unary `-x`. Only Num is in its domain.
func Neg(v Value) (Value, error) {
	if v.kind != NumKind {
		return Value{}, unaryErr("-")
	}
	return Num(-v.num), nil
}

// Not implements unary `!x`. Total over every variant.
func Not(v Value) Value {
	return Bool(!v.IsTruthy())
}

// Add implements `a+b`: Num+Num->Num, Str+Str->Str. No Str+Num coercion —
// reel took the strict reading of the scenario in the testable-properties
// table (see DESIGN.md).
func Add(a, b Value) (Value, error) {
	if a.kind == NumKind && b.kind == NumKind {
		return Num(a.num + b.num), nil
	}
	if a.kind == StrKind && b.kind == StrKind {
		return Str(a.str + b.str), nil
	}
	return Value{}, binaryErr("+")
}

// Sub implements `a-b`.
func Sub(a, b Value) (Value, error) {
	if a.kind != NumKind || b.kind != NumKind {
		return Value{}, binaryErr("-")
	}
	return Num(a.num - b.num), nil
}

// Mul implements `a*b`.
func Mul(a, b Value) (Value, error) {
	if a.kind != NumKind || b.kind != NumKind {
		return Value{}, binaryErr("*")
	}
	return Num(a.num * b.num), nil
}

// Div implements `a/b`. Division by zero yields the IEEE-754 result
// (±Inf or NaN) rather than an error.
func Div(a, b Value) (Value, error) {
	if a.kind != NumKind || b.kind != NumKind {
		return Value{}, binaryErr("/")
	}
	return Num(a.num / b.num), nil
}

// Equal implements `a==b`: total, cross-variant comparisons yield false.
func Equal(a, b Value) Value {
	if a.kind != b.kind {
		return Bool(false)
	}
	switch a.kind {
	case NullKind:
		return Bool(true)
	case NumKind:
		return Bool(a.num == b.num)
	case StrKind:
		return Bool(a.str == b.str)
	case BoolKind:
		return Bool(a.b == b.b)
	case FunctionKind:
		return Bool(a.chunk == b.chunk && a.arity == b.arity)
	default:
		return Bool(false)
	}
}

// NotEqual implements `a!=b`.
func NotEqual(a, b Value) Value {
	return Bool(!Equal(a, b).b)
}

// Less implements `a<b`. NaN involvement is treated as Less, a documented
// quirk (spec §9) preserved rather than fixed.
func Less(a, b Value) (Value, error) {
	switch {
	case a.kind == NumKind && b.kind == NumKind:
		if math.IsNaN(a.num) || math.IsNaN(b.num) {
			return Bool(true), nil
		}
		return Bool(a.num < b.num), nil
	case a.kind == StrKind && b.kind == StrKind:
		return Bool(a.str < b.str), nil
	default:
		return Value{}, comparisonErr()
	}
}

// Greater implements `a>b` in terms of Less and Equal: a>b iff !(a<b) && a!=b.
func Greater(a, b Value) (Value, error) {
	lt, err := Less(a, b)
	if err != nil {
		return Value{}, err
	}
	if lt.b {
		return Bool(false), nil
	}
	return Bool(!Equal(a, b).b), nil
}

// LessEqual implements `a<=b`.
func LessEqual(a, b Value) (Value, error) {
	gt, err := Greater(a, b)
	if err != nil {
		return Value{}, err
	}
	return Bool(!gt.b), nil
}

// GreaterEqual implements `a>=b`.
func GreaterEqual(a, b Value) (Value, error) {
	lt, err := Less(a, b)
	if err != nil {
		return Value{}, err
	}
	return Bool(!lt.b), nil
}

// Display renders a Value the way `print`/`println` and the REPL show it.
func (v Value) Display() string {
	switch v.kind {
	case NullKind:
		return "null"
	case NumKind:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case StrKind:
		return v.str
	case BoolKind:
		if v.b {
			return "true"
		}
		return "false"
	case FunctionKind:
		if v.funcName != "" {
			return fmt.Sprintf("<fn %s/%d>", v.funcName, v.arity)
		}
		return fmt.Sprintf("<fn anonymous/%d>", v.arity)
	case NativeFnKind:
		return fmt.Sprintf("<native/%d>", v.arity)
	default:
		return "<?>"
	}
}
