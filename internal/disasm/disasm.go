// Package disasm renders a value.Chunk's bytecode as human-readable text:
// used for --trace-exec tracing and for internal/debugserve's live
// instruction stream. Grounded on clox's debug.c column layout (offset,
// line, name, operand, resolved constant).
package disasm

import (
	"fmt"
	"io"

	"sentra/internal/value"
)

var opNames = map[value.OpCode]string{
	value.OpConstant:      "OP_CONSTANT",
	value.OpNil:           "OP_NIL",
	value.OpTrue:          "OP_TRUE",
	value.OpFalse:         "OP_FALSE",
	value.OpPop:           "OP_POP",
	value.OpGetLocal:      "OP_GET_LOCAL",
	value.OpSetLocal:      "OP_SET_LOCAL",
	value.OpGetGlobal:     "OP_GET_GLOBAL",
	value.OpDefineGlobal:  "OP_DEFINE_GLOBAL",
	value.OpSetGlobal:     "OP_SET_GLOBAL",
	value.OpGetUpvalue:    "OP_GET_UPVALUE",
	value.OpSetUpvalue:    "OP_SET_UPVALUE",
	value.OpGetProperty:   "OP_GET_PROPERTY",
	value.OpSetProperty:   "OP_SET_PROPERTY",
	value.OpGetSuper:      "OP_GET_SUPER",
	value.OpEqual:         "OP_EQUAL",
	value.OpGreater:       "OP_GREATER",
	value.OpLess:          "OP_LESS",
	value.OpAdd:           "OP_ADD",
	value.OpSubtract:      "OP_SUBTRACT",
	value.OpMultiply:      "OP_MULTIPLY",
	value.OpDivide:        "OP_DIVIDE",
	value.OpNot:           "OP_NOT",
	value.OpNegate:        "OP_NEGATE",
	value.OpPrint:         "OP_PRINT",
	value.OpJump:          "OP_JUMP",
	value.OpJumpIfFalse:   "OP_JUMP_IF_FALSE",
	value.OpLoop:          "OP_LOOP",
	value.OpCall:          "OP_CALL",
	value.OpInvoke:        "OP_INVOKE",
	value.OpSuperInvoke:   "OP_SUPER_INVOKE",
	value.OpClosure:       "OP_CLOSURE",
	value.OpCloseUpvalue:  "OP_CLOSE_UPVALUE",
	value.OpReturn:        "OP_RETURN",
	value.OpClass:         "OP_CLASS",
	value.OpInherit:       "OP_INHERIT",
	value.OpMethod:        "OP_METHOD",
}

// Instruction is one decoded opcode, structured for internal/debugserve's
// websocket stream as well as plain-text rendering.
type Instruction struct {
	Offset   int
	Line     int
	SameLine bool // true when this shares its source line with the prior instruction
	Name     string
	Operand  string
	Next     int // offset of the following instruction
}

// Chunk writes every instruction in chunk to w, spec-named "name" heading
// first (e.g. the function's name, or "script").
func Chunk(w io.Writer, chunk *value.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		ins := Decode(chunk, offset)
		fmt.Fprintln(w, Format(ins))
		offset = ins.Next
	}
}

// Format renders one decoded instruction in Debug.cpp's column layout:
// offset, line (or "|" when unchanged from the previous instruction),
// name, operand.
func Format(ins Instruction) string {
	line := fmt.Sprintf("%4d", ins.Line)
	if ins.SameLine {
		line = "   |"
	}
	if ins.Operand == "" {
		return fmt.Sprintf("%04d %s %s", ins.Offset, line, ins.Name)
	}
	return fmt.Sprintf("%04d %s %-16s %s", ins.Offset, line, ins.Name, ins.Operand)
}

// Decode reads one instruction at offset without advancing any shared
// cursor, so it can serve both batch disassembly and single-step tracing.
func Decode(chunk *value.Chunk, offset int) Instruction {
	ins := Instruction{Offset: offset, Line: chunk.Lines[offset]}
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		ins.SameLine = true
	}

	op := value.OpCode(chunk.Code[offset])
	name, known := opNames[op]
	if !known {
		ins.Name = fmt.Sprintf("UNKNOWN(%d)", op)
		ins.Next = offset + 1
		return ins
	}
	ins.Name = name

	switch op {
	case value.OpConstant, value.OpGetGlobal, value.OpDefineGlobal, value.OpSetGlobal,
		value.OpGetProperty, value.OpSetProperty, value.OpGetSuper, value.OpClass, value.OpMethod:
		constant := chunk.Code[offset+1]
		ins.Operand = fmt.Sprintf("%4d '%s'", constant, chunk.Constants[constant].String())
		ins.Next = offset + 2

	case value.OpGetLocal, value.OpSetLocal, value.OpGetUpvalue, value.OpSetUpvalue, value.OpCall:
		slot := chunk.Code[offset+1]
		ins.Operand = fmt.Sprintf("%4d", slot)
		ins.Next = offset + 2

	case value.OpInvoke, value.OpSuperInvoke:
		constant := chunk.Code[offset+1]
		argCount := chunk.Code[offset+2]
		ins.Operand = fmt.Sprintf("(%d args) %4d '%s'", argCount, constant, chunk.Constants[constant].String())
		ins.Next = offset + 3

	case value.OpJump, value.OpJumpIfFalse:
		jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
		ins.Operand = fmt.Sprintf("%4d -> %d", offset, offset+3+jump)
		ins.Next = offset + 3

	case value.OpLoop:
		jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
		ins.Operand = fmt.Sprintf("%4d -> %d", offset, offset+3-jump)
		ins.Next = offset + 3

	case value.OpClosure:
		constant := chunk.Code[offset+1]
		fn := chunk.Constants[constant].AsObj().(*value.ObjFunction)
		ins.Operand = fmt.Sprintf("%4d %s", constant, chunk.Constants[constant].String())
		next := offset + 2
		for i := 0; i < fn.UpvalueCount; i++ {
			next += 2
		}
		ins.Next = next

	default:
		ins.Next = offset + 1
	}

	return ins
}
