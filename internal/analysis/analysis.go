// Package analysis computes CFG, dominance, use-def, and liveness
// information over IR functions, cached behind
// a Manager keyed by function so a transform that reports no mutation
// never pays for recomputation.
package analysis

import (
	"github.com/nova-lang/nova/internal/ir"
)

// CFG is the control-flow graph of one function: nodes are basic
// blocks, edges are the successor relation read off each block's
// terminator.
type CFG struct {
	Succ map[ir.BlockID][]ir.BlockID
	Pred map[ir.BlockID][]ir.BlockID
	// Order lists every block id reachable from the entry, in the
	// order BuildCFG's depth-first walk first visited them (a reverse post-order
	// would additionally require a second pass; callers that need RPO
	// use Dominance.RPO instead).
	Order []ir.BlockID
}

// BuildCFG walks fn's terminators to derive the successor/predecessor
// relation, following only blocks reachable from the entry block —
// the same reachability walk a dead-block-elimination pass needs.
func BuildCFG(fn *ir.Function) *CFG {
	cfg := &CFG{Succ: make(map[ir.BlockID][]ir.BlockID), Pred: make(map[ir.BlockID][]ir.BlockID)}
	visited := make(map[ir.BlockID]bool)
	var walk func(id ir.BlockID)
	walk = func(id ir.BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		cfg.Order = append(cfg.Order, id)

		blk := fn.Block(id)
		if blk == nil {
			return
		}
		for _, succ := range successorsOf(blk.Terminator()) {
			cfg.Succ[id] = append(cfg.Succ[id], succ)
			cfg.Pred[succ] = append(cfg.Pred[succ], id)
			walk(succ)
		}
	}
	walk(fn.Entry)
	return cfg
}

func successorsOf(term *ir.Instruction) []ir.BlockID {
	if term == nil {
		return nil
	}
	switch term.Opcode {
	case ir.OpBr:
		return []ir.BlockID{term.TrueDest}
	case ir.OpCondBr:
		return []ir.BlockID{term.TrueDest, term.FalseDest}
	default: // ret, unreachable: no successors
		return nil
	}
}

// Reachable reports whether id was reached from the entry block.
func (c *CFG) Reachable(id ir.BlockID) bool {
	for _, o := range c.Order {
		if o == id {
			return true
		}
	}
	return false
}
