package compiler

import (
	"encoding/binary"
	"fmt"

	"reel/value"
)

// Bytecode is the compiled form of a program or function body: a flat
// instruction stream plus the constants and names it references. A
// *Bytecode value satisfies value.Chunk, so Function values can hold one
// directly without an import cycle between compiler and value.
type Bytecode struct {
	Instructions  Instructions
	ConstantsPool []value.Value
	NameConstants []string
}

// Disassemble implements value.Chunk.
func (b *Bytecode) Disassemble() string {
	out := ""
	offset := 0
	for offset < len(b.Instructions) {
		line, width, err := diassembleAt(b, offset)
		if err != nil {
			out += fmt.Sprintf("%04d ERROR: %v\n", offset, err)
			break
		}
		out += fmt.Sprintf("%04d %s\n", offset, line)
		offset += width
	}
	return out
}

type Opcode byte

type Instructions []byte

// Opcodes. Each constant with a nonzero OperandWidths entry below addresses
// either a position in ConstantsPool, NameConstants, a local slot, a jump
// delta, or an argument count — always a single operand of the listed
// width, big-endian.
const (
	OpPush Opcode = iota
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpSetGlobal
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpSaveReturn
	OpRestoreReturn
	OpCall
	OpRet
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpNot
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

// OpCodeDefinition names an opcode and the byte width of each of its
// operands, in order.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*OpCodeDefinition{
	OpPush:          {Name: "OpPush", OperandWidths: []int{2}},
	OpPop:           {Name: "OpPop", OperandWidths: []int{}},
	OpGetLocal:      {Name: "OpGetLocal", OperandWidths: []int{2}},
	OpSetLocal:      {Name: "OpSetLocal", OperandWidths: []int{2}},
	OpGetGlobal:     {Name: "OpGetGlobal", OperandWidths: []int{2}},
	OpSetGlobal:     {Name: "OpSetGlobal", OperandWidths: []int{2}},
	OpJump:          {Name: "OpJump", OperandWidths: []int{2}},
	OpJumpIfFalse:   {Name: "OpJumpIfFalse", OperandWidths: []int{2}},
	OpJumpIfTrue:    {Name: "OpJumpIfTrue", OperandWidths: []int{2}},
	OpSaveReturn:    {Name: "OpSaveReturn", OperandWidths: []int{}},
	OpRestoreReturn: {Name: "OpRestoreReturn", OperandWidths: []int{}},
	OpCall:          {Name: "OpCall", OperandWidths: []int{2}},
	OpRet:           {Name: "OpRet", OperandWidths: []int{}},
	OpAdd:           {Name: "OpAdd", OperandWidths: []int{}},
	OpSub:           {Name: "OpSub", OperandWidths: []int{}},
	OpMul:           {Name: "OpMul", OperandWidths: []int{}},
	OpDiv:           {Name: "OpDiv", OperandWidths: []int{}},
	OpNeg:           {Name: "OpNeg", OperandWidths: []int{}},
	OpNot:           {Name: "OpNot", OperandWidths: []int{}},
	OpEqual:         {Name: "OpEqual", OperandWidths: []int{}},
	OpNotEqual:      {Name: "OpNotEqual", OperandWidths: []int{}},
	OpLess:          {Name: "OpLess", OperandWidths: []int{}},
	OpLessEqual:     {Name: "OpLessEqual", OperandWidths: []int{}},
	OpGreater:       {Name: "OpGreater", OperandWidths: []int{}},
	OpGreaterEqual:  {Name: "OpGreaterEqual", OperandWidths: []int{}},
}

func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// AssembleInstruction encodes an opcode and its operands into bytes. Operand
// widths come from the opcode's definition; each operand is encoded
// big-endian. A 2-byte operand is reinterpreted as uint16, so callers
// encoding a signed 16-bit jump delta should pass int(int16Value) — the bit
// pattern round-trips through DiassembleInstruction's uint16 decode.
func AssembleInstruction(op Opcode, operands ...int) ([]byte, error) {
	def, err := Get(op)
	if err != nil {
		return nil, err
	}

	length := 1
	for _, w := range def.OperandWidths {
		length += w
	}

	instruction := make([]byte, length)
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		}
		offset += width
	}
	return instruction, nil
}

// DiassembleInstruction renders a single instruction (opcode byte plus its
// operand, if any) as a human-readable line, matching the format
// "opcode: <name>, operand: <value|None>, operand widths: <n> bytes".
func DiassembleInstruction(instruction []byte) (string, error) {
	op := Opcode(instruction[0])
	def, err := Get(op)
	if err != nil {
		return "", err
	}

	if len(def.OperandWidths) == 0 {
		return fmt.Sprintf("opcode: %s, operand: None, operand widths: 0 bytes", def.Name), nil
	}

	width := def.OperandWidths[0]
	operand := binary.BigEndian.Uint16(instruction[1 : 1+width])
	return fmt.Sprintf("opcode: %s, operand: %d, operand widths: %d bytes", def.Name, operand, width), nil
}

// diassembleAt reads one instruction out of a Bytecode's instruction stream
// starting at offset, returning its rendered line and its total width.
func diassembleAt(b *Bytecode, offset int) (string, int, error) {
	op := Opcode(b.Instructions[offset])
	def, err := Get(op)
	if err != nil {
		return "", 0, err
	}
	width := 1
	for _, w := range def.OperandWidths {
		width += w
	}
	line, err := DiassembleInstruction(b.Instructions[offset : offset+width])
	if err != nil {
		return "", 0, err
	}
	return line, width, nil
}
