package lower

import (
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/types"
)

// emitRetain/emitRelease insert the rc_retain/rc_release intrinsics the
// runtime's refcounted box expects at every handle-typed value's use
// and end-of-scope boundary. Primitive
// (unboxed) types carry no handle and are left alone.
func (c *Context) emitRetain(v ir.ValueID, t types.Type) {
	if !isHandleType(t) {
		return
	}
	c.b.CallIntrinsic("rc_retain", []ir.ValueID{v}, types.Unit)
}

func (c *Context) emitRelease(v ir.ValueID, t types.Type) {
	if !isHandleType(t) {
		return
	}
	c.b.CallIntrinsic("rc_release", []ir.ValueID{v}, types.Unit)
}

// isHandleType reports whether a value of type t is a pointer to a
// refcounted heap box: strings, arrays, records/enums, and closures
// all are; scalars, Unit, and Never never are.
func isHandleType(t types.Type) bool {
	switch v := t.(type) {
	case types.TCon:
		return v.Name == "String"
	case types.Array, types.Record, types.Named, types.Func:
		return true
	case types.Unknown:
		// A not-yet-narrowed value might be boxed; retain/release on it
		// is itself an intrinsic call the runtime dispatches on the
		// value's tag, so it's always safe to emit.
		return true
	default:
		return false
	}
}
