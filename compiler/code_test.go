package compiler

import "testing"

func TestAssembleInstruction(t *testing.T) {
	operand := 65000
	tests := []struct {
		op       Opcode
		operands []int
		expected []byte
	}{
		{OpPush, []int{operand}, []byte{byte(OpPush), 253, 232}},
		{OpPop, []int{}, []byte{byte(OpPop)}},
		{OpGetLocal, []int{operand}, []byte{byte(OpGetLocal), 253, 232}},
		{OpSetLocal, []int{operand}, []byte{byte(OpSetLocal), 253, 232}},
		{OpGetGlobal, []int{operand}, []byte{byte(OpGetGlobal), 253, 232}},
		{OpSetGlobal, []int{operand}, []byte{byte(OpSetGlobal), 253, 232}},
		{OpJump, []int{operand}, []byte{byte(OpJump), 253, 232}},
		{OpJumpIfFalse, []int{operand}, []byte{byte(OpJumpIfFalse), 253, 232}},
		{OpJumpIfTrue, []int{operand}, []byte{byte(OpJumpIfTrue), 253, 232}},
		{OpSaveReturn, []int{}, []byte{byte(OpSaveReturn)}},
		{OpRestoreReturn, []int{}, []byte{byte(OpRestoreReturn)}},
		{OpCall, []int{operand}, []byte{byte(OpCall), 253, 232}},
		{OpRet, []int{}, []byte{byte(OpRet)}},
		{OpAdd, []int{}, []byte{byte(OpAdd)}},
		{OpSub, []int{}, []byte{byte(OpSub)}},
		{OpMul, []int{}, []byte{byte(OpMul)}},
		{OpDiv, []int{}, []byte{byte(OpDiv)}},
		{OpNeg, []int{}, []byte{byte(OpNeg)}},
		{OpNot, []int{}, []byte{byte(OpNot)}},
		{OpEqual, []int{}, []byte{byte(OpEqual)}},
		{OpNotEqual, []int{}, []byte{byte(OpNotEqual)}},
		{OpLess, []int{}, []byte{byte(OpLess)}},
		{OpLessEqual, []int{}, []byte{byte(OpLessEqual)}},
		{OpGreater, []int{}, []byte{byte(OpGreater)}},
		{OpGreaterEqual, []int{}, []byte{byte(OpGreaterEqual)}},
	}

	for _, tt := range tests {
		instruction, err := AssembleInstruction(tt.op, tt.operands...)
		if err != nil {
			t.Errorf("error assembling instruction: %v", err)
		}
		if len(instruction) != len(tt.expected) {
			t.Errorf("instruction has wrong length - got: %d, want: %d", len(instruction), len(tt.expected))
		}
		for i, b := range tt.expected {
			if instruction[i] != b {
				t.Errorf("instruction has wrong byte - got: %v, want: %v", instruction[i], b)
			}
		}
	}
}

func TestDiassembleInstruction(t *testing.T) {
	tests := []struct {
		instruction []byte
		expected    string
	}{
		{[]byte{byte(OpPush), 253, 232}, "opcode: OpPush, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OpPop)}, "opcode: OpPop, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpGetLocal), 253, 232}, "opcode: OpGetLocal, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OpSetLocal), 253, 232}, "opcode: OpSetLocal, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OpGetGlobal), 253, 232}, "opcode: OpGetGlobal, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OpSetGlobal), 253, 232}, "opcode: OpSetGlobal, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OpJump), 253, 232}, "opcode: OpJump, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OpJumpIfFalse), 253, 232}, "opcode: OpJumpIfFalse, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OpJumpIfTrue), 253, 232}, "opcode: OpJumpIfTrue, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OpSaveReturn)}, "opcode: OpSaveReturn, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpRestoreReturn)}, "opcode: OpRestoreReturn, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpCall), 253, 232}, "opcode: OpCall, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OpRet)}, "opcode: OpRet, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpAdd)}, "opcode: OpAdd, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpSub)}, "opcode: OpSub, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpMul)}, "opcode: OpMul, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpDiv)}, "opcode: OpDiv, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpNeg)}, "opcode: OpNeg, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpNot)}, "opcode: OpNot, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpEqual)}, "opcode: OpEqual, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpNotEqual)}, "opcode: OpNotEqual, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpLess)}, "opcode: OpLess, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpLessEqual)}, "opcode: OpLessEqual, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpGreater)}, "opcode: OpGreater, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OpGreaterEqual)}, "opcode: OpGreaterEqual, operand: None, operand widths: 0 bytes"},
	}

	for _, tt := range tests {
		result, err := DiassembleInstruction(tt.instruction)
		if err != nil {
			t.Errorf("%v", err)
		}
		if tt.expected != result {
			t.Errorf("wrong diassembled instruction - got: %s, want: %s", result, tt.expected)
		}
	}
}

func TestDisassembleChunk(t *testing.T) {
	push, _ := AssembleInstruction(OpPush, 0)
	pop, _ := AssembleInstruction(OpPop)
	ret, _ := AssembleInstruction(OpRet)

	b := &Bytecode{Instructions: append(append(push, pop...), ret...)}
	out := b.Disassemble()
	want := "0000 opcode: OpPush, operand: 0, operand widths: 2 bytes\n" +
		"0003 opcode: OpPop, operand: None, operand widths: 0 bytes\n" +
		"0004 opcode: OpRet, operand: None, operand widths: 0 bytes\n"
	if out != want {
		t.Errorf("Disassemble() = %q, want %q", out, want)
	}
}
