// Package codegen lowers internal/ir's SSA form to the flat
// instruction stream internal/vm executes: one compiler instance per
// function, a currentChunk it appends to, and byte-patched forward
// jumps, linearizing already-built ir.Function blocks rather than
// walking an AST directly.
//
// Since the IR uses block parameters instead of phi nodes, every
// Br/CondBr compiles to: copy each branch argument's slot into the
// destination block's corresponding parameter slot, then jump. A
// stack machine has no native phi mechanism, so this copy sequence is
// the bridge between SSA form and flat bytecode.
package codegen

import (
	"fmt"

	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/rtvalue"
	"github.com/nova-lang/nova/internal/vm"
)

// Compile lowers every function in mod to a vm.CompiledFunction, and
// returns them indexed by name ready for vm.VM.Define.
func Compile(mod *ir.Module) (map[string]*vm.CompiledFunction, error) {
	out := make(map[string]*vm.CompiledFunction, len(mod.Functions))
	for _, fn := range mod.Functions {
		compiled, err := compileFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("codegen: function %s: %w", fn.Name, err)
		}
		out[fn.Name] = compiled
	}
	return out, nil
}

// fnCodegen holds the mutable state for compiling one ir.Function:
// slot assignment, the chunk under construction, and the pending
// forward-jump patch list.
type fnCodegen struct {
	fn     *ir.Function
	chunk  *vm.Chunk
	slots  map[ir.ValueID]int
	nextSl int
	line   int

	patches []jumpPatch
}

type jumpPatch struct {
	operandOffset int
	target        ir.BlockID
}

func compileFunction(fn *ir.Function) (*vm.CompiledFunction, error) {
	g := &fnCodegen{
		fn:    fn,
		chunk: vm.NewChunk(fn.Name),
		slots: map[ir.ValueID]int{},
	}

	hasEnv := false
	if entry := fn.Block(fn.Entry); entry != nil && len(entry.Params) > 0 && len(entry.Params) > len(fn.Sig.Params) {
		hasEnv = true
	}

	blockOffsets := map[ir.BlockID]int{}
	for _, blk := range fn.Blocks {
		for _, p := range blk.Params {
			g.slot(p.ID)
		}
	}
	for _, blk := range fn.Blocks {
		blockOffsets[blk.ID] = g.chunk.Len()
		for _, inst := range blk.Instructions {
			if err := g.emitInstruction(inst); err != nil {
				return nil, err
			}
		}
	}

	for _, p := range g.patches {
		target, ok := blockOffsets[p.target]
		if !ok {
			return nil, fmt.Errorf("codegen: jump to unknown block %d", p.target)
		}
		g.chunk.PatchUint16(p.operandOffset, uint16(target))
	}

	return &vm.CompiledFunction{
		Name:      fn.Name,
		Arity:     len(fn.Sig.Params),
		NumLocals: g.nextSl,
		HasEnv:    hasEnv,
		Chunk:     g.chunk,
		IsAsync:   fn.IsAsync,
	}, nil
}

// slot returns the local slot assigned to id, minting a new one on
// first reference. Every SSA value — a block parameter, an
// instruction's result, or an alloca — gets exactly one slot, alive
// for the whole function's activation (no register allocation or
// liveness-based reuse yet; correctness first, per this pass's scope).
func (g *fnCodegen) slot(id ir.ValueID) int {
	if s, ok := g.slots[id]; ok {
		return s
	}
	s := g.nextSl
	g.slots[id] = s
	g.nextSl++
	return s
}

func (g *fnCodegen) getLocal(id ir.ValueID) {
	g.chunk.WriteOp(vm.OpGetLocal, g.line)
	g.chunk.WriteUint16(uint16(g.slot(id)), g.line)
}

func (g *fnCodegen) setLocal(id ir.ValueID) {
	g.chunk.WriteOp(vm.OpSetLocal, g.line)
	g.chunk.WriteUint16(uint16(g.slot(id)), g.line)
}

// jump emits a JUMP/JUMP_IF_FALSE with a placeholder target, recording
// a patch resolved once every block's offset is known (two-pass
// backpatching).
func (g *fnCodegen) jump(op vm.Opcode, target ir.BlockID) {
	g.chunk.WriteOp(op, g.line)
	operandOffset := g.chunk.Len()
	g.chunk.WriteUint16(0, g.line)
	g.patches = append(g.patches, jumpPatch{operandOffset: operandOffset, target: target})
}

func (g *fnCodegen) copyBranchArgs(args []ir.ValueID, dest ir.BlockID) {
	destBlk := g.fn.Block(dest)
	if destBlk == nil {
		return
	}
	for i, arg := range args {
		if i >= len(destBlk.Params) {
			break
		}
		g.getLocal(arg)
		g.setLocal(destBlk.Params[i].ID)
	}
}

func (g *fnCodegen) emitInstruction(inst *ir.Instruction) error {
	// The IR's source.Span is a byte-offset range rather than a
	// resolved line number, so this pass just tracks emitted-
	// instruction order for Chunk.Lines — good enough to correlate a
	// disassembly listing back to its IR, short of a real line table.
	g.line++
	switch inst.Opcode {
	case ir.OpConst:
		v, err := constToValue(inst.ConstValue)
		if err != nil {
			return err
		}
		idx := g.chunk.AddConstant(v)
		g.chunk.WriteOp(vm.OpConstant, g.line)
		g.chunk.WriteUint16(uint16(idx), g.line)
		g.setLocal(inst.Result)

	case ir.OpAlloc:
		g.slot(inst.Result) // reserved; zero-valued Unit until first Store

	case ir.OpLoad:
		g.getLocal(inst.Operands[0])
		g.setLocal(inst.Result)

	case ir.OpStore:
		g.getLocal(inst.Operands[1])
		g.setLocal(inst.Operands[0])

	case ir.OpGep:
		g.getLocal(inst.Operands[0])
		if inst.FieldIndex >= 0 {
			g.chunk.WriteOp(vm.OpGepField, g.line)
			g.chunk.WriteUint16(uint16(inst.FieldIndex), g.line)
		} else {
			g.getLocal(inst.Operands[1])
			g.chunk.WriteOp(vm.OpGepDynamic, g.line)
		}
		g.setLocal(inst.Result)

	case ir.OpBinary:
		op, err := binOpcode(inst.BinOp)
		if err != nil {
			return err
		}
		g.getLocal(inst.Operands[0])
		g.getLocal(inst.Operands[1])
		g.chunk.WriteOp(op, g.line)
		g.setLocal(inst.Result)

	case ir.OpUnary:
		op, err := unOpcode(inst.UnOp)
		if err != nil {
			return err
		}
		g.getLocal(inst.Operands[0])
		g.chunk.WriteOp(op, g.line)
		g.setLocal(inst.Result)

	case ir.OpCast:
		g.getLocal(inst.Operands[0])
		nameIdx := g.chunk.AddName(inst.TargetType.String())
		g.chunk.WriteOp(vm.OpCast, g.line)
		g.chunk.WriteUint16(uint16(nameIdx), g.line)
		g.setLocal(inst.Result)

	case ir.OpCall:
		if inst.CalleeFunc != "" {
			for _, a := range inst.Operands {
				g.getLocal(a)
			}
			nameIdx := g.chunk.AddName(inst.CalleeFunc)
			g.chunk.WriteOp(vm.OpCall, g.line)
			g.chunk.WriteUint16(uint16(nameIdx), g.line)
		} else {
			// OpCallValue pops its args before the callee, so the
			// callee must be pushed first (see internal/vm/step.go's
			// OpCallValue case).
			g.getLocal(inst.Callee)
			for _, a := range inst.Operands {
				g.getLocal(a)
			}
			g.chunk.WriteOp(vm.OpCallValue, g.line)
			g.chunk.WriteUint16(uint16(len(inst.Operands)), g.line)
		}
		g.setLocal(inst.Result)

	case ir.OpCallIntrinsic:
		for _, a := range inst.Operands {
			g.getLocal(a)
		}
		nameIdx := g.chunk.AddName(inst.Intrinsic)
		g.chunk.WriteOp(vm.OpCallIntrinsic, g.line)
		g.chunk.WriteUint16(uint16(nameIdx), g.line)
		g.chunk.WriteUint16(uint16(len(inst.Operands)), g.line)
		g.setLocal(inst.Result)

	case ir.OpSuspend:
		g.getLocal(inst.Operands[0])
		g.chunk.WriteOp(vm.OpSuspend, g.line)
		g.setLocal(inst.Result)

	case ir.OpBr:
		g.copyBranchArgs(inst.TrueArgs, inst.TrueDest)
		g.jump(vm.OpJump, inst.TrueDest)

	case ir.OpCondBr:
		g.getLocal(inst.Operands[0])
		g.chunk.WriteOp(vm.OpJumpIfFalse, g.line)
		falseJumpOperand := g.chunk.Len()
		g.chunk.WriteUint16(0, g.line)

		g.copyBranchArgs(inst.TrueArgs, inst.TrueDest)
		g.jump(vm.OpJump, inst.TrueDest)

		g.chunk.PatchUint16(falseJumpOperand, uint16(g.chunk.Len()))
		g.copyBranchArgs(inst.FalseArgs, inst.FalseDest)
		g.jump(vm.OpJump, inst.FalseDest)

	case ir.OpRet:
		if len(inst.Operands) == 1 {
			g.getLocal(inst.Operands[0])
		}
		g.chunk.WriteOp(vm.OpReturn, g.line)

	case ir.OpUnreachable:
		g.chunk.WriteOp(vm.OpHalt, g.line)

	default:
		return fmt.Errorf("codegen: unhandled opcode %s", inst.Opcode)
	}
	return nil
}

func constToValue(v any) (rtvalue.Value, error) {
	switch x := v.(type) {
	case int64:
		return rtvalue.Int(x), nil
	case int:
		return rtvalue.Int(int64(x)), nil
	case float64:
		return rtvalue.Float(x), nil
	case bool:
		return rtvalue.Bool(x), nil
	case string:
		return rtvalue.Obj(vm.NewObjString(x)), nil
	case nil:
		return rtvalue.Unit(), nil
	default:
		return rtvalue.Unit(), fmt.Errorf("codegen: unsupported constant literal %T", v)
	}
}

func binOpcode(op string) (vm.Opcode, error) {
	switch op {
	case "+":
		return vm.OpAdd, nil
	case "-":
		return vm.OpSub, nil
	case "*":
		return vm.OpMul, nil
	case "/":
		return vm.OpDiv, nil
	case "%":
		return vm.OpMod, nil
	case "**":
		return vm.OpPow, nil
	case "==":
		return vm.OpEq, nil
	case "!=":
		return vm.OpNeq, nil
	case "<":
		return vm.OpLt, nil
	case "<=":
		return vm.OpLe, nil
	case ">":
		return vm.OpGt, nil
	case ">=":
		return vm.OpGe, nil
	case "&&":
		return vm.OpAnd, nil
	case "||":
		return vm.OpOr, nil
	case "&":
		return vm.OpBAnd, nil
	case "|":
		return vm.OpBOr, nil
	case "^":
		return vm.OpBXor, nil
	case "<<":
		return vm.OpShl, nil
	case ">>":
		return vm.OpShr, nil
	default:
		return 0, fmt.Errorf("codegen: unknown binary operator %q", op)
	}
}

func unOpcode(op string) (vm.Opcode, error) {
	switch op {
	case "-":
		return vm.OpNeg, nil
	case "!":
		return vm.OpNot, nil
	case "~":
		return vm.OpBNot, nil
	default:
		return 0, fmt.Errorf("codegen: unknown unary operator %q", op)
	}
}
