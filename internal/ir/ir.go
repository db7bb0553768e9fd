// Package ir implements the SSA intermediate representation: modules,
// functions, basic blocks, instructions and values, plus a builder
// that appends instructions to the current block. The node/opcode
// shapes here are fresh constructions of the SSA form this compiler
// lowers typed AST into, styled after internal/vm's grouped iota
// opcode enum (internal/vm/opcodes.go) and its ID-indexed struct
// conventions (internal/vm/chunk.go).
package ir

import (
	"fmt"

	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/types"
)

// ValueID identifies one SSA value. Every value is defined exactly
// once, at its origin site.
type ValueID uint64

// BlockID identifies one basic block within a function.
type BlockID uint64

// Origin records where a Value was introduced.
type Origin int

const (
	OriginParam Origin = iota
	OriginInstruction
	OriginConstant
)

// Value is one SSA value: its type and where it came from. A Value
// itself carries no mutable state once created — the defining
// instruction or block parameter list is the single source of truth
// for its definition site.
type Value struct {
	ID     ValueID
	Type   types.Type
	Origin Origin
}

// Opcode enumerates every instruction the IR can express. Block
// parameters subsume phi nodes: there is deliberately no Phi
// opcode in this set.
type Opcode int

const (
	// Constants and memory
	OpConst Opcode = iota
	OpAlloc
	OpLoad
	OpStore
	OpGep // field/element addressing

	// Arithmetic / comparison / logic
	OpBinary
	OpUnary
	OpCast

	// Calls
	OpCall          // direct or indirect function call
	OpCallIntrinsic // fixed, type-checked runtime routine

	// Async
	OpSuspend // explicit await boundary

	// Terminators
	OpBr        // unconditional branch
	OpCondBr    // conditional branch
	OpRet       // return
	OpUnreachable
)

func (op Opcode) IsTerminator() bool {
	switch op {
	case OpBr, OpCondBr, OpRet, OpUnreachable:
		return true
	default:
		return false
	}
}

func (op Opcode) String() string {
	switch op {
	case OpConst:
		return "const"
	case OpAlloc:
		return "alloc"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpGep:
		return "gep"
	case OpBinary:
		return "binary"
	case OpUnary:
		return "unary"
	case OpCast:
		return "cast"
	case OpCall:
		return "call"
	case OpCallIntrinsic:
		return "call_intrinsic"
	case OpSuspend:
		return "suspend"
	case OpBr:
		return "br"
	case OpCondBr:
		return "cond_br"
	case OpRet:
		return "ret"
	case OpUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("opcode(%d)", int(op))
	}
}

// Instruction is one IR instruction: an opcode, its operand value ids,
// an optional result value, a type, and the source span it lowers
// from (carried through for diagnostics in later phases, e.g. codegen
// back-end-limit errors).
type Instruction struct {
	Opcode   Opcode
	Operands []ValueID
	Result   ValueID // zero when the instruction has no result (e.g. Store)
	HasResult bool
	Type     types.Type
	Span     source.Span

	// Extra fields used only by specific opcodes.
	ConstValue any         // OpConst: the literal Go value (int64, float64, bool, string, nil for unit)
	BinOp      string      // OpBinary: "+", "-", "==", ...
	UnOp       string      // OpUnary: "-", "!"
	FieldIndex int         // OpGep: constant field index (negative means dynamic, use Operands[1])
	Callee     ValueID     // OpCall: indirect target, or zero if CalleeFunc is set
	CalleeFunc string      // OpCall: direct target function name, or "" for indirect
	Intrinsic  string      // OpCallIntrinsic: intrinsic name
	TargetType types.Type  // OpCast: destination type

	// Terminator operands.
	TrueDest  BlockID
	TrueArgs  []ValueID
	FalseDest BlockID
	FalseArgs []ValueID
}

// BasicBlock is an ordered instruction list ending in exactly one
// terminator, plus a parameter list (block parameters, which subsume
// phi instructions).
type BasicBlock struct {
	ID           BlockID
	Params       []Value
	Instructions []*Instruction
}

func (b *BasicBlock) Terminator() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if last.Opcode.IsTerminator() {
		return last
	}
	return nil
}

// Function is one SSA function: id, signature, basic blocks in
// declaration order, and the entry block id.
type Function struct {
	Name     string
	Sig      types.Func
	Blocks   []*BasicBlock
	Entry    BlockID
	IsAsync  bool
}

func (f *Function) Block(id BlockID) *BasicBlock {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Module is the top-level IR unit produced by lowering one compiled
// package: every function lowered from it, including extracted
// closures and monomorphized instances.
type Module struct {
	Name      string
	Functions []*Function
}

func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
