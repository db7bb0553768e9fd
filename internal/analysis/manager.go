package analysis

import "github.com/nova-lang/nova/internal/ir"

type entry struct {
	cfg      *CFG
	dom      *Dominance
	useDef   *UseDef
	liveness *Liveness
}

// Manager caches analysis results keyed by function so a pass that
// reports "unchanged" never pays to recompute them, and a pass that
// reports a mutation invalidates exactly the functions it touched
//.
type Manager struct {
	cache map[*ir.Function]*entry
}

func NewManager() *Manager {
	return &Manager{cache: make(map[*ir.Function]*entry)}
}

// Invalidate drops every cached result for fn. Call this after a
// transform reports it mutated fn.
func (m *Manager) Invalidate(fn *ir.Function) {
	delete(m.cache, fn)
}

func (m *Manager) get(fn *ir.Function) *entry {
	e, ok := m.cache[fn]
	if !ok {
		e = &entry{}
		m.cache[fn] = e
	}
	return e
}

func (m *Manager) CFG(fn *ir.Function) *CFG {
	e := m.get(fn)
	if e.cfg == nil {
		e.cfg = BuildCFG(fn)
	}
	return e.cfg
}

func (m *Manager) Dominance(fn *ir.Function) *Dominance {
	e := m.get(fn)
	if e.dom == nil {
		e.dom = BuildDominance(fn, m.CFG(fn))
	}
	return e.dom
}

func (m *Manager) UseDef(fn *ir.Function) *UseDef {
	e := m.get(fn)
	if e.useDef == nil {
		e.useDef = BuildUseDef(fn)
	}
	return e.useDef
}

func (m *Manager) Liveness(fn *ir.Function) *Liveness {
	e := m.get(fn)
	if e.liveness == nil {
		e.liveness = BuildLiveness(fn, m.CFG(fn))
	}
	return e.liveness
}
