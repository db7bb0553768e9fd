package vm

import (
	"fmt"
	"strings"
)

// Disassemble renders chunk as a human-readable bytecode listing
// against this package's opcode set and two-pool (Constants/Names)
// layout. Used by tests and by a future `novac -S` flag to inspect
// compiled output.
func Disassemble(chunk *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&b, chunk, offset)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, chunk *Chunk, offset int) int {
	op := Opcode(chunk.Code[offset])
	fmt.Fprintf(b, "%04d %s", offset, op)

	width := operandWidth(op)
	switch {
	case op == OpCallIntrinsic:
		nameIdx := chunk.ReadUint16(offset + 1)
		argc := chunk.ReadUint16(offset + 3)
		if int(nameIdx) < len(chunk.Names) {
			fmt.Fprintf(b, " %d (%s) argc=%d", nameIdx, chunk.Names[nameIdx], argc)
		} else {
			fmt.Fprintf(b, " %d argc=%d", nameIdx, argc)
		}
	case width == 2:
		operand := chunk.ReadUint16(offset + 1)
		switch op {
		case OpConstant:
			if int(operand) < len(chunk.Constants) {
				fmt.Fprintf(b, " %d (%s)", operand, chunk.Constants[operand].Inspect())
			} else {
				fmt.Fprintf(b, " %d", operand)
			}
		case OpGetGlobal, OpSetGlobal, OpCall, OpCast:
			if int(operand) < len(chunk.Names) {
				fmt.Fprintf(b, " %d (%s)", operand, chunk.Names[operand])
			} else {
				fmt.Fprintf(b, " %d", operand)
			}
		default:
			fmt.Fprintf(b, " %d", operand)
		}
	}
	b.WriteByte('\n')
	return offset + 1 + width
}
