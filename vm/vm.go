// Package vm implements reel's stack-based bytecode virtual machine: a
// fetch-decode-execute loop over an evaluation stack and a call-frame
// stack, with a process-wide mapping of global names to values.
package vm

import (
	"encoding/binary"

	"reel/compiler"
	"reel/value"
)

// Frame is the bookkeeping pushed for one interpreted call: where to
// resume the caller, and the stack depth its locals are addressed from.
type Frame struct {
	returnChunk     *compiler.Bytecode
	returnIP        int
	savedStackDepth int
}

// VM is the runtime that executes compiled chunks. A VM is long-lived: the
// REPL hands it a fresh chunk per input line while globals persist across
// every Run call.
type VM struct {
	stack   Stack
	frames  []Frame
	globals map[string]value.Value

	returnReg    value.Value
	hasReturnReg bool

	chunk *compiler.Bytecode
	ip    int
}

// New creates a VM with its sentinel Null occupying slot 0, the reserved
// slot the compiler never references by name. This gives GetLocal/SetLocal
// a valid base even at the top level and gives the REPL a stable result to
// inspect between evaluations.
func New() *VM {
	vm := &VM{globals: make(map[string]value.Value)}
	vm.stack.Push(value.Null)
	return vm
}

// Globals exposes the VM's global bindings so natives can be registered
// before the first Run.
func (vm *VM) Globals() map[string]value.Value {
	return vm.globals
}

// Top returns the value currently on top of the evaluation stack, the
// REPL's "result" of the last evaluation.
func (vm *VM) Top() (value.Value, bool) {
	return vm.stack.Peek()
}

// ResetToTopLevel truncates the stack back to just the sentinel, discarding
// whatever a REPL line's locals left behind. Globals are untouched.
func (vm *VM) ResetToTopLevel() {
	vm.stack.Truncate(1)
	vm.frames = nil
	vm.hasReturnReg = false
}

func (vm *VM) frameBase() int {
	if len(vm.frames) == 0 {
		return 0
	}
	return vm.frames[len(vm.frames)-1].savedStackDepth
}

// Run executes bc starting at instruction 0 and returns the value left on
// top of the evaluation stack. Execution ends when the instruction pointer
// runs off the end of the outermost chunk; a Ret inside a called function
// instead resumes the caller's chunk at its saved ip.
func (vm *VM) Run(bc *compiler.Bytecode) (value.Value, error) {
	vm.chunk = bc
	vm.ip = 0

	for vm.ip < len(vm.chunk.Instructions) {
		op := compiler.Opcode(vm.chunk.Instructions[vm.ip])
		def, err := compiler.Get(op)
		if err != nil {
			return value.Value{}, &RuntimeError{Kind: Conversion, Message: err.Error()}
		}

		width := 1
		var raw uint16
		if len(def.OperandWidths) > 0 {
			opWidth := def.OperandWidths[0]
			raw = binary.BigEndian.Uint16(vm.chunk.Instructions[vm.ip+1 : vm.ip+1+opWidth])
			width += opWidth
		}
		vm.ip += width

		if err := vm.execute(op, raw); err != nil {
			return value.Value{}, err
		}
	}

	top, _ := vm.stack.Peek()
	return top, nil
}

func (vm *VM) execute(op compiler.Opcode, raw uint16) error {
	unsigned := int(raw)
	signed := int(int16(raw))

	switch op {
	case compiler.OpPush:
		vm.stack.Push(vm.chunk.ConstantsPool[unsigned])

	case compiler.OpPop:
		if _, ok := vm.stack.Pop(); !ok {
			return &RuntimeError{Kind: EmptyStack}
		}

	case compiler.OpGetLocal:
		vm.stack.Push(vm.stack.At(vm.frameBase() + unsigned))

	case compiler.OpSetLocal:
		top, ok := vm.stack.Peek()
		if !ok {
			return &RuntimeError{Kind: EmptyStack}
		}
		vm.stack.Set(vm.frameBase()+unsigned, top)

	case compiler.OpGetGlobal:
		name := vm.chunk.NameConstants[unsigned]
		v, ok := vm.globals[name]
		if !ok {
			return &RuntimeError{Kind: UndeclaredGlobal, Name: name}
		}
		vm.stack.Push(v)

	case compiler.OpSetGlobal:
		top, ok := vm.stack.Peek()
		if !ok {
			return &RuntimeError{Kind: EmptyStack}
		}
		name := vm.chunk.NameConstants[unsigned]
		vm.globals[name] = top

	case compiler.OpJump:
		vm.ip += signed

	case compiler.OpJumpIfFalse:
		top, ok := vm.stack.Peek()
		if !ok {
			return &RuntimeError{Kind: EmptyStack}
		}
		if !top.IsTruthy() {
			vm.ip += signed
		}

	case compiler.OpJumpIfTrue:
		top, ok := vm.stack.Peek()
		if !ok {
			return &RuntimeError{Kind: EmptyStack}
		}
		if top.IsTruthy() {
			vm.ip += signed
		}

	case compiler.OpSaveReturn:
		top, ok := vm.stack.Pop()
		if !ok {
			return &RuntimeError{Kind: EmptyStack}
		}
		vm.returnReg = top
		vm.hasReturnReg = true

	case compiler.OpRestoreReturn:
		if !vm.hasReturnReg {
			return &RuntimeError{Kind: NoReturnValue}
		}
		vm.stack.Push(vm.returnReg)

	case compiler.OpCall:
		return vm.call(unsigned)

	case compiler.OpRet:
		return vm.ret()

	case compiler.OpAdd:
		return vm.binaryOp(value.Add)
	case compiler.OpSub:
		return vm.binaryOp(value.Sub)
	case compiler.OpMul:
		return vm.binaryOp(value.Mul)
	case compiler.OpDiv:
		return vm.binaryOp(value.Div)
	case compiler.OpLess:
		return vm.binaryOp(value.Less)
	case compiler.OpLessEqual:
		return vm.binaryOp(value.LessEqual)
	case compiler.OpGreater:
		return vm.binaryOp(value.Greater)
	case compiler.OpGreaterEqual:
		return vm.binaryOp(value.GreaterEqual)

	case compiler.OpEqual:
		b, ok1 := vm.stack.Pop()
		a, ok2 := vm.stack.Pop()
		if !ok1 || !ok2 {
			return &RuntimeError{Kind: EmptyStack}
		}
		vm.stack.Push(value.Equal(a, b))

	case compiler.OpNotEqual:
		b, ok1 := vm.stack.Pop()
		a, ok2 := vm.stack.Pop()
		if !ok1 || !ok2 {
			return &RuntimeError{Kind: EmptyStack}
		}
		vm.stack.Push(value.NotEqual(a, b))

	case compiler.OpNeg:
		top, ok := vm.stack.Pop()
		if !ok {
			return &RuntimeError{Kind: EmptyStack}
		}
		result, err := value.Neg(top)
		if err != nil {
			return &RuntimeError{Kind: Value, Wrapped: err}
		}
		vm.stack.Push(result)

	case compiler.OpNot:
		top, ok := vm.stack.Pop()
		if !ok {
			return &RuntimeError{Kind: EmptyStack}
		}
		vm.stack.Push(value.Not(top))

	default:
		return &RuntimeError{Kind: Conversion, Message: "unimplemented opcode"}
	}
	return nil
}

func (vm *VM) binaryOp(op func(a, b value.Value) (value.Value, error)) error {
	b, ok1 := vm.stack.Pop()
	a, ok2 := vm.stack.Pop()
	if !ok1 || !ok2 {
		return &RuntimeError{Kind: EmptyStack}
	}
	result, err := op(a, b)
	if err != nil {
		return &RuntimeError{Kind: Value, Wrapped: err}
	}
	vm.stack.Push(result)
	return nil
}

// call implements §4.4's call protocol: inspect the callee beneath the n
// arguments, then either invoke a native directly or push a frame and
// transfer control into an interpreted function's chunk.
func (vm *VM) call(argc int) error {
	depth := vm.stack.Depth()
	calleeIndex := depth - argc - 1
	if calleeIndex < 0 {
		return &RuntimeError{Kind: EmptyStack}
	}
	callee := vm.stack.At(calleeIndex)

	switch callee.Kind() {
	case value.NativeFnKind:
		if callee.Arity() != argc {
			return &RuntimeError{Kind: WrongArgCount, ExpectedArgs: callee.Arity(), FoundArgs: argc}
		}
		args := make([]value.Value, argc)
		for i := 0; i < argc; i++ {
			args[i] = vm.stack.At(calleeIndex + 1 + i)
		}
		result, err := callee.Native()(args)
		if err != nil {
			return &RuntimeError{Kind: Value, Wrapped: err}
		}
		vm.stack.Truncate(calleeIndex)
		vm.stack.Push(result)
		return nil

	case value.FunctionKind:
		if callee.Arity() != argc {
			return &RuntimeError{Kind: WrongArgCount, ExpectedArgs: callee.Arity(), FoundArgs: argc}
		}
		chunk, ok := callee.Chunk().(*compiler.Bytecode)
		if !ok {
			return &RuntimeError{Kind: Conversion, Message: "function value holds a foreign chunk type"}
		}
		vm.frames = append(vm.frames, Frame{
			returnChunk:     vm.chunk,
			returnIP:        vm.ip,
			savedStackDepth: calleeIndex,
		})
		vm.chunk = chunk
		vm.ip = 0
		return nil

	default:
		return &RuntimeError{Kind: WrongCall}
	}
}

// ret implements the caller-visible half of the call protocol. The
// function body's own close-scope only ever reclaims locals declared
// *inside* the body — it never touches the parameter slots, since those
// were declared before the body's scope began. So the stack at Ret still
// holds the callee value and every argument beneath the result; ret
// truncates all the way back to the frame's base and leaves just the
// result there, exactly where the callee used to sit.
func (vm *VM) ret() error {
	result, ok := vm.stack.Pop()
	if !ok {
		return &RuntimeError{Kind: EmptyStack}
	}
	if len(vm.frames) == 0 {
		return &RuntimeError{Kind: Conversion, Message: "Ret with no active call frame"}
	}
	frame := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]

	vm.stack.Truncate(frame.savedStackDepth)
	vm.stack.Push(result)

	vm.chunk = frame.returnChunk
	vm.ip = frame.returnIP
	return nil
}
