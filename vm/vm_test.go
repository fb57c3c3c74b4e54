package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reel/compiler"
	"reel/value"
)

func run(t *testing.T, source string) (value.Value, error) {
	t.Helper()
	bc, err := compiler.Compile(source)
	require.NoError(t, err, "compile %q", source)
	return New().Run(bc)
}

func TestArithmeticPrecedence(t *testing.T) {
	result, err := run(t, "1 + 2 * 3")
	require.NoError(t, err)
	assert.Equal(t, value.Num(7), result)
}

func TestLetSequencing(t *testing.T) {
	result, err := run(t, "let x = 10 let y = x + 5 y")
	require.NoError(t, err)
	assert.Equal(t, value.Num(15), result)
}

func TestIfThenElse(t *testing.T) {
	result, err := run(t, `if 0 then "a" else "b"`)
	require.NoError(t, err)
	assert.Equal(t, value.Str("b"), result)
}

func TestIfWithoutElseIsNull(t *testing.T) {
	result, err := run(t, "if false then 1")
	require.NoError(t, err)
	assert.True(t, result.IsNull())
}

func TestWhileLoopSum(t *testing.T) {
	result, err := run(t, `
		let i = 0
		let total = 0
		while i < 5 {
			total = total + i
			i = i + 1
		}
		total
	`)
	require.NoError(t, err)
	assert.Equal(t, value.Num(10), result)
}

func TestGlobalFunctionCall(t *testing.T) {
	result, err := run(t, "global inc = fn(n) -> n + 1 inc(41)")
	require.NoError(t, err)
	assert.Equal(t, value.Num(42), result)
}

func TestFunctionWrongArgCount(t *testing.T) {
	_, err := run(t, "global inc = fn(n) -> n + 1 inc(1, 2)")
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, WrongArgCount, rerr.Kind)
}

func TestCallingNonFunctionIsWrongCall(t *testing.T) {
	_, err := run(t, "let x = 5 x(1)")
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, WrongCall, rerr.Kind)
}

func TestUndeclaredGlobal(t *testing.T) {
	_, err := run(t, "missing")
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, UndeclaredGlobal, rerr.Kind)
	assert.Equal(t, "missing", rerr.Name)
}

func TestStrPlusNumIsValueError(t *testing.T) {
	_, err := run(t, `"foo" + 3`)
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, Value, rerr.Kind)
}

func TestRecursiveFunction(t *testing.T) {
	result, err := run(t, `
		global fact = fn(n) -> if n <= 1 then 1 else n * fact(n - 1)
		fact(5)
	`)
	require.NoError(t, err)
	assert.Equal(t, value.Num(120), result)
}

func TestShortCircuitOr(t *testing.T) {
	// missing is an undeclared global; if the right side were evaluated
	// this would fail with UndeclaredGlobal.
	result, err := run(t, "true or missing")
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), result)
}

func TestShortCircuitAnd(t *testing.T) {
	result, err := run(t, "false and missing")
	require.NoError(t, err)
	assert.Equal(t, value.Bool(false), result)
}

func TestNestedScopesShadow(t *testing.T) {
	result, err := run(t, `
		let x = 1
		let y = {
			let x = 2
			x
		}
		x + y
	`)
	require.NoError(t, err)
	assert.Equal(t, value.Num(3), result)
}

func TestREPLStylePersistence(t *testing.T) {
	vm := New()

	bc, err := compiler.Compile("global counter = 0")
	require.NoError(t, err)
	_, err = vm.Run(bc)
	require.NoError(t, err)
	vm.ResetToTopLevel()

	bc, err = compiler.Compile("counter = counter + 1")
	require.NoError(t, err)
	_, err = vm.Run(bc)
	require.NoError(t, err)
	vm.ResetToTopLevel()

	bc, err = compiler.Compile("counter")
	require.NoError(t, err)
	result, err := vm.Run(bc)
	require.NoError(t, err)
	assert.Equal(t, value.Num(1), result)
}

func TestNativeFunctionDispatch(t *testing.T) {
	vm := New()
	vm.Globals()["double"] = value.NativeFn(func(args []value.Value) (value.Value, error) {
		return value.Num(args[0].AsNum() * 2), nil
	}, 1)

	bc, err := compiler.Compile("double(21)")
	require.NoError(t, err)
	result, err := vm.Run(bc)
	require.NoError(t, err)
	assert.Equal(t, value.Num(42), result)
}
