package analysis

import "github.com/nova-lang/nova/internal/ir"

// Dominance holds the immediate-dominator array and dominance frontier
// for one function, computed by the iterative Cooper–Harvey–Kennedy
// algorithm rather than the classical Lengauer–Tarjan one: it
// converges in a handful of passes on the shallow, mostly-structured
// CFGs lowering produces (if/while/for/match), and is far simpler to
// keep correct than Lengauer–Tarjan's forest-of-spanning-trees
// bookkeeping.
type Dominance struct {
	// RPO is the reverse post-order block sequence the algorithm
	// iterates in; RPO[0] is always the entry block.
	RPO []ir.BlockID
	// IDom maps a block to its immediate dominator. The entry block
	// dominates itself (IDom[entry] == entry).
	IDom map[ir.BlockID]ir.BlockID
	// Frontier maps a block to its dominance frontier: every block
	// this one does not strictly dominate, but whose predecessor it
	// does dominate — where a phi (here, a block parameter) for a
	// value defined in this block would be needed.
	Frontier map[ir.BlockID][]ir.BlockID

	rpoIndex map[ir.BlockID]int
}

// BuildDominance computes dominance over cfg using the blocks
// reachable from fn.Entry.
func BuildDominance(fn *ir.Function, cfg *CFG) *Dominance {
	rpo := reversePostOrder(fn.Entry, cfg)
	rpoIndex := make(map[ir.BlockID]int, len(rpo))
	for i, b := range rpo {
		rpoIndex[b] = i
	}

	idom := make(map[ir.BlockID]ir.BlockID)
	idom[fn.Entry] = fn.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			preds := cfg.Pred[b]
			var newIdom ir.BlockID
			found := false
			for _, p := range preds {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !found {
					newIdom = p
					found = true
					continue
				}
				newIdom = intersect(newIdom, p, idom, rpoIndex)
			}
			if !found {
				continue // unreachable predecessor set so far; later iteration may fill it in
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	d := &Dominance{RPO: rpo, IDom: idom, Frontier: make(map[ir.BlockID][]ir.BlockID), rpoIndex: rpoIndex}
	d.computeFrontiers(cfg)
	return d
}

func intersect(a, b ir.BlockID, idom map[ir.BlockID]ir.BlockID, rpoIndex map[ir.BlockID]int) ir.BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostOrder(entry ir.BlockID, cfg *CFG) []ir.BlockID {
	visited := make(map[ir.BlockID]bool)
	var post []ir.BlockID
	var walk func(id ir.BlockID)
	walk = func(id ir.BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, s := range cfg.Succ[id] {
			walk(s)
		}
		post = append(post, id)
	}
	walk(entry)

	rpo := make([]ir.BlockID, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

func (d *Dominance) computeFrontiers(cfg *CFG) {
	for _, b := range d.RPO {
		preds := cfg.Pred[b]
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			runner := p
			for runner != d.IDom[b] {
				d.Frontier[runner] = appendUnique(d.Frontier[runner], b)
				runner = d.IDom[runner]
			}
		}
	}
}

func appendUnique(s []ir.BlockID, v ir.BlockID) []ir.BlockID {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// Dominates reports whether a strictly or non-strictly dominates b.
func (d *Dominance) Dominates(a, b ir.BlockID) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		next := d.IDom[cur]
		if next == cur {
			return cur == a
		}
		cur = next
	}
}
