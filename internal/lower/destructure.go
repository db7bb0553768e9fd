package lower

import (
	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/types"
)

// bindDestructure binds every name a (already-matched) pattern
// introduces, extracting each sub-value from val again the same way
// lowerPatternTest in match.go tests it rather than threading the
// tested sub-values back here. The common-subexpression pass merges
// repeated element geps; repeated variant_payload calls stay, since
// that pass never merges intrinsic calls.
func (c *Context) bindDestructure(pat ast.Pattern, val ir.ValueID, t types.Type) {
	switch p := pat.(type) {
	case *ast.IdentifierPattern:
		ptr := c.b.Alloc(t)
		c.b.Store(ptr, val)
		c.locals[p.Name] = ptr

	case *ast.WildcardPattern, *ast.LiteralPattern, *ast.RangePattern:
		// no bindings

	case *ast.ConstructorPattern:
		for i, sub := range p.Payload {
			idx := c.b.Const(int64(i), types.Int)
			elem := c.b.CallIntrinsic("variant_payload", []ir.ValueID{val, idx}, types.Unknown{})
			c.bindDestructure(sub, elem, types.Unknown{})
		}

	case *ast.ArrayPattern:
		for i, sub := range p.Elements {
			elem := c.b.Gep(val, i, 0, types.Unknown{})
			c.bindDestructure(sub, elem, types.Unknown{})
		}
		if p.HasRest && p.Rest != "" {
			countConst := c.b.Const(int64(len(p.Elements)), types.Int)
			rest := c.b.CallIntrinsic("array_rest", []ir.ValueID{val, countConst}, types.Unknown{})
			ptr := c.b.Alloc(types.Unknown{})
			c.b.Store(ptr, rest)
			c.locals[p.Rest] = ptr
		}

	case *ast.ObjectPattern:
		for _, f := range p.Fields {
			elem := c.gepField(val, t, f.Name, types.Unknown{})
			c.bindDestructure(f.Pattern, elem, types.Unknown{})
		}
		if p.HasRest && p.Rest != "" {
			restArgs := []ir.ValueID{val}
			for _, f := range p.Fields {
				restArgs = append(restArgs, c.b.Const(f.Name, types.String))
			}
			rest := c.b.CallIntrinsic("object_rest", restArgs, types.Unknown{})
			ptr := c.b.Alloc(types.Unknown{})
			c.b.Store(ptr, rest)
			c.locals[p.Rest] = ptr
		}

	case *ast.OrPattern:
		// Every alternative of an or-pattern binds the same names (the
		// checker enforces this), so any one alternative's shape suffices
		// to extract them.
		if len(p.Alternatives) > 0 {
			c.bindDestructure(p.Alternatives[0], val, t)
		}

	case *ast.GuardPattern:
		c.bindDestructure(p.Inner, val, t)
	}
}

// gepField emits a field access by static index when t's layout is
// known here, falling back to a by-name dynamic gep otherwise (same
// fallback fieldIndex/Gep pairing expr.go uses for MemberExpr).
func (c *Context) gepField(val ir.ValueID, t types.Type, name string, resultType types.Type) ir.ValueID {
	if idx := fieldIndex(t, name); idx >= 0 {
		return c.b.Gep(val, idx, 0, resultType)
	}
	nameConst := c.b.Const(name, types.String)
	return c.b.Gep(val, -1, nameConst, resultType)
}
