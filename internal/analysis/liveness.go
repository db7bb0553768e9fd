package analysis

import "github.com/nova-lang/nova/internal/ir"

// Liveness is the classical backward dataflow result over
// block-parameter SSA: for every block, the set of values live
// on entry and on exit.
type Liveness struct {
	LiveIn  map[ir.BlockID]map[ir.ValueID]bool
	LiveOut map[ir.BlockID]map[ir.ValueID]bool
}

// BuildLiveness runs backward fixpoint iteration over fn's blocks
// until no LiveIn set changes. Since block parameters replace phis,
// a block's uses include its terminator's branch arguments, and a
// block's defs include its own parameters (defined on entry, not by
// an instruction).
func BuildLiveness(fn *ir.Function, cfg *CFG) *Liveness {
	l := &Liveness{LiveIn: make(map[ir.BlockID]map[ir.ValueID]bool), LiveOut: make(map[ir.BlockID]map[ir.ValueID]bool)}

	blocks := make(map[ir.BlockID]*ir.BasicBlock, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blocks[b.ID] = b
		l.LiveIn[b.ID] = make(map[ir.ValueID]bool)
		l.LiveOut[b.ID] = make(map[ir.ValueID]bool)
	}

	changed := true
	for changed {
		changed = false
		for i := len(cfg.Order) - 1; i >= 0; i-- {
			id := cfg.Order[i]
			blk := blocks[id]
			if blk == nil {
				continue
			}

			out := make(map[ir.ValueID]bool)
			for _, succ := range cfg.Succ[id] {
				for v := range l.LiveIn[succ] {
					out[v] = true
				}
			}

			in := cloneSet(out)
			// Walk instructions backward: a definition kills liveness,
			// a use (including branch arguments in the terminator)
			// adds it.
			for i := len(blk.Instructions) - 1; i >= 0; i-- {
				inst := blk.Instructions[i]
				if inst.HasResult {
					delete(in, inst.Result)
				}
				for _, op := range inst.Operands {
					in[op] = true
				}
				if inst.Opcode == ir.OpCall && inst.CalleeFunc == "" {
					in[inst.Callee] = true
				}
				for _, a := range inst.TrueArgs {
					in[a] = true
				}
				for _, a := range inst.FalseArgs {
					in[a] = true
				}
			}
			for _, p := range blk.Params {
				delete(in, p.ID)
			}

			if !setsEqual(in, l.LiveIn[id]) {
				l.LiveIn[id] = in
				changed = true
			}
			l.LiveOut[id] = out
		}
	}
	return l
}

func cloneSet(s map[ir.ValueID]bool) map[ir.ValueID]bool {
	out := make(map[ir.ValueID]bool, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func setsEqual(a, b map[ir.ValueID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
