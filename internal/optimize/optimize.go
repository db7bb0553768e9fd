// Package optimize implements the pass manager and optimization
// passes: constant folding, dead code elimination, and common
// subexpression elimination, each reporting changed/unchanged to
// drive analysis invalidation.
package optimize

import (
	"github.com/nova-lang/nova/internal/analysis"
	"github.com/nova-lang/nova/internal/ir"
)

// Pass is one optimization transformation over a single function.
type Pass interface {
	Name() string
	Description() string
	// Apply mutates fn in place and reports whether it changed
	// anything (per-instruction or per-block), driving the analysis
	// manager's invalidation.
	Apply(fn *ir.Function, am *analysis.Manager) bool
}

// Manager runs a configurable sequence of passes over every function
// in a module, recomputing analyses on demand via the shared
// analysis.Manager.
type Manager struct {
	passes []Pass
}

// NewManager builds the default v1 pipeline: constant folding must run
// before dead-code elimination so a `cond_br` on a folded boolean
// constant becomes a `br` before DCE simplifies the now-trivial
// branch and prunes the dead arm.
func NewManager() *Manager {
	m := &Manager{}
	m.AddPass(&ConstantFolding{})
	m.AddPass(&DeadCodeElimination{})
	m.AddPass(&CommonSubexpressionElimination{})
	return m
}

func (m *Manager) AddPass(p Pass) { m.passes = append(m.passes, p) }

// Run applies every pass to every function in mod, repeating the
// whole pipeline until a full pass over all passes makes no further
// change (a fixpoint), invalidating a function's cached analyses
// whenever a pass reports it changed that function.
func (m *Manager) Run(mod *ir.Module, am *analysis.Manager) {
	for {
		anyChanged := false
		for _, fn := range mod.Functions {
			for _, p := range m.passes {
				if p.Apply(fn, am) {
					anyChanged = true
					am.Invalidate(fn)
				}
			}
		}
		if !anyChanged {
			return
		}
	}
}
