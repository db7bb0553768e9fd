package analysis

import "github.com/nova-lang/nova/internal/ir"

// Use identifies one operand position: the instruction (or
// terminator) that reads a value, and the block it lives in.
type Use struct {
	Block ir.BlockID
	Inst  *ir.Instruction
}

// UseDef is the use-def chain for one function: per value, every use
// site (SSA guarantees exactly one def site, which is either the
// instruction whose Result equals the value, or a block parameter).
type UseDef struct {
	Uses map[ir.ValueID][]Use
}

// BuildUseDef scans every instruction's operands (including
// terminator branch arguments) and records them against the value ids
// they read.
func BuildUseDef(fn *ir.Function) *UseDef {
	ud := &UseDef{Uses: make(map[ir.ValueID][]Use)}
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			record := func(v ir.ValueID) {
				ud.Uses[v] = append(ud.Uses[v], Use{Block: blk.ID, Inst: inst})
			}
			for _, op := range inst.Operands {
				record(op)
			}
			if inst.Opcode == ir.OpCall && inst.CalleeFunc == "" {
				record(inst.Callee)
			}
			for _, a := range inst.TrueArgs {
				record(a)
			}
			for _, a := range inst.FalseArgs {
				record(a)
			}
		}
	}
	return ud
}

// IsLive reports whether v has any recorded use.
func (ud *UseDef) IsLive(v ir.ValueID) bool { return len(ud.Uses[v]) > 0 }
