package optimize

import (
	"fmt"

	"github.com/nova-lang/nova/internal/analysis"
	"github.com/nova-lang/nova/internal/ir"
)

var commutativeOps = map[string]bool{
	"+": true, "*": true, "==": true, "!=": true, "&&": true, "||": true,
}

// CommonSubexpressionElimination hashes pure instructions by
// (opcode, operand ids, type) within each dominator-tree region and
// replaces equivalent recomputations with the first computed value
//. Commutative binary ops hash after canonically sorting their
// two operands so `a+b` and `b+a` collide. Side-effecting instructions
// never participate.
type CommonSubexpressionElimination struct{}

func (cse *CommonSubexpressionElimination) Name() string { return "common-subexpression-elimination" }
func (cse *CommonSubexpressionElimination) Description() string {
	return "replaces recomputations of an already-computed pure expression within a dominator-tree region"
}

func (cse *CommonSubexpressionElimination) Apply(fn *ir.Function, am *analysis.Manager) bool {
	dom := am.Dominance(fn)
	blocks := make(map[ir.BlockID]*ir.BasicBlock, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blocks[b.ID] = b
	}

	replacement := make(map[ir.ValueID]ir.ValueID)
	available := make(map[string]ir.ValueID)
	defBlock := make(map[ir.ValueID]ir.BlockID)
	changed := false

	// Visit blocks in RPO, so a block's own dominators are visited
	// before it. An available expression is reused only when its
	// defining block dominates the current block; otherwise the
	// current instruction becomes the available value for its key.
	for _, id := range dom.RPO {
		blk := blocks[id]
		if blk == nil {
			continue
		}
		kept := make([]*ir.Instruction, 0, len(blk.Instructions))
		for _, inst := range blk.Instructions {
			resolveOperands(inst, replacement)

			if inst.HasResult && !hasSideEffect(inst.Opcode) {
				key, ok := cse.keyOf(inst)
				if ok {
					if prior, seen := available[key]; seen && dom.Dominates(defBlock[prior], id) {
						replacement[inst.Result] = prior
						changed = true
						continue
					}
					available[key] = inst.Result
					defBlock[inst.Result] = id
				}
			}
			kept = append(kept, inst)
		}
		blk.Instructions = kept
		resolveTerminatorArgs(blk.Terminator(), replacement)
	}

	return changed
}

func (cse *CommonSubexpressionElimination) keyOf(inst *ir.Instruction) (string, bool) {
	switch inst.Opcode {
	case ir.OpBinary:
		a, b := inst.Operands[0], inst.Operands[1]
		if commutativeOps[inst.BinOp] && a > b {
			a, b = b, a
		}
		return fmt.Sprintf("bin:%s:%d:%d:%s", inst.BinOp, a, b, inst.Type.String()), true
	case ir.OpUnary:
		return fmt.Sprintf("un:%s:%d:%s", inst.UnOp, inst.Operands[0], inst.Type.String()), true
	case ir.OpCast:
		return fmt.Sprintf("cast:%d:%s", inst.Operands[0], inst.Type.String()), true
	case ir.OpGep:
		return fmt.Sprintf("gep:%d:%d:%s", inst.Operands[0], inst.FieldIndex, inst.Type.String()), true
	default:
		return "", false
	}
}

func resolveOperands(inst *ir.Instruction, replacement map[ir.ValueID]ir.ValueID) {
	for i, op := range inst.Operands {
		if r, ok := replacement[op]; ok {
			inst.Operands[i] = r
		}
	}
	if r, ok := replacement[inst.Callee]; ok {
		inst.Callee = r
	}
}

func resolveTerminatorArgs(term *ir.Instruction, replacement map[ir.ValueID]ir.ValueID) {
	if term == nil {
		return
	}
	for i, a := range term.TrueArgs {
		if r, ok := replacement[a]; ok {
			term.TrueArgs[i] = r
		}
	}
	for i, a := range term.FalseArgs {
		if r, ok := replacement[a]; ok {
			term.FalseArgs[i] = r
		}
	}
	if len(term.Operands) > 0 {
		if r, ok := replacement[term.Operands[0]]; ok {
			term.Operands[0] = r
		}
	}
}
