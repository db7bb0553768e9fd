package vm

import (
	"sync"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// Globals is the module-level variable table OpGetGlobal/OpSetGlobal
// address, and the destination the load_global intrinsic's name
// argument resolves through: a single flat, mutex-guarded map. There is
// only ever one Globals table per running program, and concurrent
// access only ever comes from spawned async tasks reading/writing the
// same top-level bindings.
type Globals struct {
	mu     sync.RWMutex
	values map[string]rtvalue.Value
}

func NewGlobals() *Globals {
	return &Globals{values: map[string]rtvalue.Value{}}
}

func (g *Globals) Get(name string) (rtvalue.Value, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[name]
	return v, ok
}

func (g *Globals) Set(name string, v rtvalue.Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[name] = v
}
