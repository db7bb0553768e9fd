package lower

import (
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/types"
)

// coerce bridges a value from its static type to the type its
// destination expects. Nova's gradual typing only ever needs
// a runtime check at the boundary where an Unknown-typed value flows
// into, or out of, a concretely-typed position; a concrete-to-concrete
// mismatch is already rejected by the checker before lowering runs, so
// this never has to reconcile two different concrete types.
func (c *Context) coerce(from, to types.Type, v ir.ValueID) ir.ValueID {
	if typesEqual(from, to) {
		return v
	}
	_, fromUnknown := from.(types.Unknown)
	_, toUnknown := to.(types.Unknown)
	if fromUnknown == toUnknown {
		return v
	}
	target := to
	if fromUnknown {
		// Unknown flowing into a concrete slot: insert the runtime tag
		// check, trapping on mismatch.
	} else {
		// Concrete flowing into an Unknown slot: just box it, no check
		// needed since every concrete value is already well-typed.
		target = types.Unknown{}
	}
	return c.b.CallIntrinsic("type_check", []ir.ValueID{v, c.b.Const(target.String(), types.String)}, target)
}

func typesEqual(a, b types.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
