package lower

import (
	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/types"
)

func (c *Context) lowerExpr(e ast.Expr) ir.ValueID {
	t := e.InferredType()
	switch n := e.(type) {
	case *ast.IntLiteral:
		return c.b.Const(n.Value, t)
	case *ast.BigIntLiteral:
		return c.b.Const(n.Digits, t)
	case *ast.FloatLiteral:
		return c.b.Const(n.Value, t)
	case *ast.BoolLiteral:
		return c.b.Const(n.Value, t)
	case *ast.StringLiteral:
		return c.b.Const(n.Value, t)
	case *ast.CharLiteral:
		return c.b.Const(n.Value, t)
	case *ast.UnitLiteral:
		return c.b.Const(nil, types.Unit)
	case *ast.Identifier:
		return c.lowerIdentifier(n, t)
	case *ast.UnaryExpr:
		v := c.lowerExpr(n.Operand)
		return c.b.Unary(unaryOpString(n.Op), v, t)
	case *ast.BinaryExpr:
		return c.lowerBinary(n, t)
	case *ast.IndexExpr:
		target := c.lowerExpr(n.Target)
		idx := c.lowerExpr(n.Index)
		return c.b.Gep(target, -1, idx, t)
	case *ast.MemberExpr:
		target := c.lowerExpr(n.Target)
		return c.gepField(target, n.Target.InferredType(), n.Name, t)
	case *ast.CallExpr:
		return c.lowerCall(n, t)
	case *ast.ArrayExpr:
		return c.lowerArray(n, t)
	case *ast.BlockExpr:
		return c.lowerBlock(n)
	case *ast.IfExpr:
		return c.lowerIf(n)
	case *ast.MatchExpr:
		return c.lowerMatch(n)
	case *ast.AwaitExpr:
		inner := c.lowerExpr(n.Operand)
		return c.b.Suspend(inner, t)
	case *ast.ClosureExpr:
		return c.lowerClosure(n, t)
	case *ast.AssignExpr:
		return c.lowerAssign(n)
	}
	return c.unitValue()
}

func (c *Context) lowerIdentifier(n *ast.Identifier, t types.Type) ir.ValueID {
	if ptr, ok := c.locals[n.Name]; ok {
		return c.b.Load(ptr, t)
	}
	// Not a local: a top-level function or constant reference, resolved
	// by name at the call site (see lowerCall) or loaded as an
	// intrinsic global.
	return c.b.CallIntrinsic("load_global", []ir.ValueID{c.b.Const(n.Name, types.String)}, t)
}

func (c *Context) lowerBinary(n *ast.BinaryExpr, t types.Type) ir.ValueID {
	if n.Op == ast.BinPipe {
		// `a |> f` lowers as `f(a)`, the same desugaring
		// internal/infer's inferBinary applies for type purposes.
		arg := c.lowerExpr(n.Left)
		arg = c.coerce(n.Left.InferredType(), expectedParamType(n.Right, 0), arg)
		if ident, ok := n.Right.(*ast.Identifier); ok {
			if _, isLocal := c.locals[ident.Name]; !isLocal {
				return c.b.Call(ident.Name, 0, []ir.ValueID{arg}, t)
			}
		}
		callee := c.lowerExpr(n.Right)
		return c.b.Call("", callee, []ir.ValueID{arg}, t)
	}
	l := c.lowerExpr(n.Left)
	r := c.lowerExpr(n.Right)
	return c.b.Binary(binaryOpString(n.Op), l, r, t)
}

func unaryOpString(op ast.UnaryOp) string {
	switch op {
	case ast.UnaryNeg:
		return "-"
	case ast.UnaryNot:
		return "!"
	default:
		return "?"
	}
}

func binaryOpString(op ast.BinaryOp) string {
	switch op {
	case ast.BinAdd:
		return "+"
	case ast.BinSub:
		return "-"
	case ast.BinMul:
		return "*"
	case ast.BinDiv:
		return "/"
	case ast.BinMod:
		return "%"
	case ast.BinPow:
		return "**"
	case ast.BinEq:
		return "=="
	case ast.BinNotEq:
		return "!="
	case ast.BinLt:
		return "<"
	case ast.BinLte:
		return "<="
	case ast.BinGt:
		return ">"
	case ast.BinGte:
		return ">="
	case ast.BinAnd:
		return "&&"
	case ast.BinOr:
		return "||"
	default:
		return "?"
	}
}

func (c *Context) lowerCall(n *ast.CallExpr, t types.Type) ir.ValueID {
	args := make([]ir.ValueID, len(n.Args))
	for i, a := range n.Args {
		v := c.lowerExpr(a)
		args[i] = c.coerce(a.InferredType(), expectedParamType(n.Callee, i), v)
	}

	if ident, ok := n.Callee.(*ast.Identifier); ok {
		if _, isLocal := c.locals[ident.Name]; !isLocal {
			return c.b.Call(ident.Name, 0, args, t)
		}
	}
	callee := c.lowerExpr(n.Callee)
	return c.b.Call("", callee, args, t)
}

// expectedParamType best-effort recovers the i'th parameter type of
// callee's Func type, falling back to Unknown (which always coerces
// cleanly) when callee's type isn't a resolved Func — e.g. for an
// indirect call through a not-yet-narrowed value.
func expectedParamType(callee ast.Expr, i int) types.Type {
	if f, ok := callee.InferredType().(types.Func); ok && i < len(f.Params) {
		return f.Params[i]
	}
	return types.Unknown{}
}

func (c *Context) lowerArray(n *ast.ArrayExpr, t types.Type) ir.ValueID {
	var elemType types.Type = types.Unknown{}
	if arr, ok := t.(types.Array); ok {
		elemType = arr.Elem
	}
	elems := make([]ir.ValueID, len(n.Elements))
	for i, el := range n.Elements {
		elems[i] = c.lowerExpr(el)
	}
	args := append([]ir.ValueID{c.b.Const(int64(len(elems)), types.Int)}, elems...)
	return c.b.CallIntrinsic("array_new", args, types.Array{Elem: elemType})
}

func (c *Context) lowerAssign(n *ast.AssignExpr) ir.ValueID {
	v := c.lowerExpr(n.Value)
	switch target := n.Target.(type) {
	case *ast.Identifier:
		if ptr, ok := c.locals[target.Name]; ok {
			c.emitRelease(c.b.Load(ptr, target.InferredType()), target.InferredType())
			c.b.Store(ptr, v)
			c.emitRetain(v, n.Value.InferredType())
			return v
		}
	case *ast.MemberExpr:
		base := c.lowerExpr(target.Target)
		ptr := c.gepField(base, target.Target.InferredType(), target.Name, target.InferredType())
		c.b.Store(ptr, v)
		return v
	case *ast.IndexExpr:
		base := c.lowerExpr(target.Target)
		idx := c.lowerExpr(target.Index)
		ptr := c.b.Gep(base, -1, idx, target.InferredType())
		c.b.Store(ptr, v)
		return v
	}
	return v
}

// fieldIndex resolves a record/struct field name to its constant
// index, when the target's type is a Record with declared field
// names; falls back to -1 (dynamic access via a name intrinsic)
// otherwise, e.g. for a not-yet-narrowed Named struct type whose
// field layout the semantic analyzer tracks separately.
func fieldIndex(t types.Type, name string) int {
	if rec, ok := t.(types.Record); ok {
		i := 0
		for _, n := range sortedFieldNames(rec) {
			if n == name {
				return i
			}
			i++
		}
	}
	return -1
}

func sortedFieldNames(r types.Record) []string {
	names := make([]string, 0, len(r.Fields))
	for n := range r.Fields {
		names = append(names, n)
	}
	// Deterministic order matters since the index is baked into Gep;
	// the same lexical sort types.Record.String uses keeps the two in
	// sync.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}
