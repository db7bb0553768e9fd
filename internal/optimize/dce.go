package optimize

import (
	"github.com/nova-lang/nova/internal/analysis"
	"github.com/nova-lang/nova/internal/ir"
)

// DeadCodeElimination removes basic blocks unreachable from entry and
// instructions whose result has no live use and whose opcode has no
// observable side effect.
type DeadCodeElimination struct{}

func (dce *DeadCodeElimination) Name() string { return "dead-code-elimination" }
func (dce *DeadCodeElimination) Description() string {
	return "removes unreachable blocks and unused pure instructions"
}

// hasSideEffect reports whether an instruction must be kept even if
// its result (if any) is unused.
func hasSideEffect(op ir.Opcode) bool {
	switch op {
	case ir.OpStore, ir.OpCall, ir.OpCallIntrinsic, ir.OpSuspend:
		return true
	default:
		return op.IsTerminator()
	}
}

func (dce *DeadCodeElimination) Apply(fn *ir.Function, am *analysis.Manager) bool {
	changed := dce.pruneUnreachableBlocks(fn, am)
	if dce.pruneDeadInstructions(fn) {
		changed = true
	}
	return changed
}

func (dce *DeadCodeElimination) pruneUnreachableBlocks(fn *ir.Function, am *analysis.Manager) bool {
	cfg := am.CFG(fn)
	kept := make([]*ir.BasicBlock, 0, len(fn.Blocks))
	changed := false
	for _, blk := range fn.Blocks {
		if cfg.Reachable(blk.ID) {
			kept = append(kept, blk)
		} else {
			changed = true
		}
	}
	if changed {
		fn.Blocks = kept
	}
	return changed
}

func (dce *DeadCodeElimination) pruneDeadInstructions(fn *ir.Function) bool {
	used := make(map[ir.ValueID]bool)
	mark := func(v ir.ValueID) { used[v] = true }

	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			for _, op := range inst.Operands {
				mark(op)
			}
			if inst.Opcode == ir.OpCall && inst.CalleeFunc == "" {
				mark(inst.Callee)
			}
			for _, a := range inst.TrueArgs {
				mark(a)
			}
			for _, a := range inst.FalseArgs {
				mark(a)
			}
		}
	}

	changed := false
	for _, blk := range fn.Blocks {
		kept := make([]*ir.Instruction, 0, len(blk.Instructions))
		for _, inst := range blk.Instructions {
			if inst.HasResult && !used[inst.Result] && !hasSideEffect(inst.Opcode) {
				changed = true
				continue
			}
			kept = append(kept, inst)
		}
		if changed {
			blk.Instructions = kept
		}
	}
	return changed
}
