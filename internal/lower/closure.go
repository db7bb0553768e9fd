package lower

import (
	"fmt"

	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/types"
)

// lowerClosure extracts n's body into its own ir.Function appended to
// the enclosing module, and emits, at the closure-expression site, the
// construction of an environment handle holding every variable the
// body captures from the enclosing scope, paired with a pointer to
// the extracted function: a function pointer plus an environment
// handle.
//
// Every capture is taken by shared reference (retained into the
// environment and released when the environment itself is freed):
// proving a capture could never complete a reference cycle back
// through the closure's own handle is left to the concurrent cycle
// collector rather than attempted here.
func (c *Context) lowerClosure(n *ast.ClosureExpr, t types.Type) ir.ValueID {
	bound := map[string]bool{}
	for _, p := range n.Params {
		patternBound(p.Pattern, bound)
	}
	free := map[string]bool{}
	freeVarsExpr(n.Body, bound, free)

	var captures []string
	for name := range free {
		if _, ok := c.locals[name]; ok {
			captures = append(captures, name)
		}
	}
	insertionSortStrings(captures)

	sig := types.Func{}
	if ft, ok := t.(types.Func); ok {
		sig.Return = ft.Return
	}
	for _, p := range n.Params {
		sig.Params = append(sig.Params, p.Annotation)
	}

	name := fmt.Sprintf("%s$closure%d", c.fn.Name, c.closureSeq)
	c.closureSeq++

	closureFn := &ir.Function{Name: name, Sig: sig, IsAsync: n.IsAsync}
	c.mod.Functions = append(c.mod.Functions, closureFn)

	sub := NewContext(closureFn, c.oracle, c.mono)
	sub.mod = c.mod
	sub.asyncSt = n.IsAsync
	entry := sub.b.CreateBlock()
	closureFn.Entry = entry.ID

	envParam := sub.b.Param(types.Unknown{})
	entry.Params = append(entry.Params, envParam)
	for i, capName := range captures {
		idxConst := sub.b.Const(int64(i), types.Int)
		capVal := sub.b.CallIntrinsic("env_get", []ir.ValueID{envParam.ID, idxConst}, types.Unknown{})
		ptr := sub.b.Alloc(types.Unknown{})
		sub.b.Store(ptr, capVal)
		sub.locals[capName] = ptr
	}
	for i, p := range n.Params {
		paramVal := sub.b.Param(sig.Params[i])
		entry.Params = append(entry.Params, paramVal)
		sub.bindNewLocal(p.Pattern, paramVal.ID, sig.Params[i])
	}

	result := sub.lowerExpr(n.Body)
	if sub.b.Current().Terminator() == nil {
		sub.emitRetain(result, sig.Return)
		sub.b.Ret(result, !isUnit(sig.Return))
	}

	envArgs := make([]ir.ValueID, 0, len(captures)+1)
	envArgs = append(envArgs, c.b.Const(int64(len(captures)), types.Int))
	for _, capName := range captures {
		ptr := c.locals[capName]
		val := c.b.Load(ptr, types.Unknown{})
		c.emitRetain(val, types.Unknown{})
		envArgs = append(envArgs, val)
	}
	envHandle := c.b.CallIntrinsic("env_new", envArgs, types.Unknown{})
	fnNameConst := c.b.Const(name, types.String)
	return c.b.CallIntrinsic("closure_new", []ir.ValueID{fnNameConst, envHandle}, t)
}

func insertionSortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// patternBound adds every name pat binds into into.
func patternBound(pat ast.Pattern, into map[string]bool) {
	switch p := pat.(type) {
	case *ast.IdentifierPattern:
		into[p.Name] = true
	case *ast.ConstructorPattern:
		for _, sub := range p.Payload {
			patternBound(sub, into)
		}
	case *ast.ArrayPattern:
		for _, sub := range p.Elements {
			patternBound(sub, into)
		}
		if p.HasRest && p.Rest != "" {
			into[p.Rest] = true
		}
	case *ast.ObjectPattern:
		for _, f := range p.Fields {
			patternBound(f.Pattern, into)
		}
		if p.HasRest && p.Rest != "" {
			into[p.Rest] = true
		}
	case *ast.OrPattern:
		for _, alt := range p.Alternatives {
			patternBound(alt, into)
		}
	case *ast.GuardPattern:
		patternBound(p.Inner, into)
	}
}

// freeVarsExpr collects every identifier referenced in e that is not
// bound by an enclosing pattern (a closure param, a let, a match arm,
// or a nested closure's own params), approximating the capture set a
// real free-variable analysis would compute precisely.
func freeVarsExpr(e ast.Expr, bound map[string]bool, out map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Identifier:
		if !bound[n.Name] {
			out[n.Name] = true
		}
	case *ast.UnaryExpr:
		freeVarsExpr(n.Operand, bound, out)
	case *ast.BinaryExpr:
		freeVarsExpr(n.Left, bound, out)
		freeVarsExpr(n.Right, bound, out)
	case *ast.IndexExpr:
		freeVarsExpr(n.Target, bound, out)
		freeVarsExpr(n.Index, bound, out)
	case *ast.MemberExpr:
		freeVarsExpr(n.Target, bound, out)
	case *ast.CallExpr:
		freeVarsExpr(n.Callee, bound, out)
		for _, a := range n.Args {
			freeVarsExpr(a, bound, out)
		}
	case *ast.ArrayExpr:
		for _, el := range n.Elements {
			freeVarsExpr(el, bound, out)
		}
	case *ast.AssignExpr:
		freeVarsExpr(n.Target, bound, out)
		freeVarsExpr(n.Value, bound, out)
	case *ast.AwaitExpr:
		freeVarsExpr(n.Operand, bound, out)
	case *ast.IfExpr:
		freeVarsExpr(n.Cond, bound, out)
		freeVarsBlock(n.Then, bound, out)
		freeVarsExpr(n.Else, bound, out)
	case *ast.BlockExpr:
		freeVarsBlock(n, bound, out)
	case *ast.MatchExpr:
		freeVarsExpr(n.Scrutinee, bound, out)
		for _, arm := range n.Arms {
			armBound := cloneBoundSet(bound)
			patternBound(arm.Pattern, armBound)
			if arm.Guard != nil {
				freeVarsExpr(arm.Guard, armBound, out)
			}
			freeVarsExpr(arm.Body, armBound, out)
		}
	case *ast.ClosureExpr:
		innerBound := cloneBoundSet(bound)
		for _, p := range n.Params {
			patternBound(p.Pattern, innerBound)
		}
		freeVarsExpr(n.Body, innerBound, out)
	}
}

func freeVarsBlock(b *ast.BlockExpr, bound map[string]bool, out map[string]bool) {
	if b == nil {
		return
	}
	local := cloneBoundSet(bound)
	for _, s := range b.Stmts {
		switch st := s.(type) {
		case *ast.LetStmt:
			freeVarsExpr(st.Value, local, out)
			patternBound(st.Pattern, local)
		case *ast.ExprStmt:
			freeVarsExpr(st.Value, local, out)
		case *ast.ReturnStmt:
			freeVarsExpr(st.Value, local, out)
		case *ast.WhileStmt:
			freeVarsExpr(st.Cond, local, out)
			freeVarsBlock(st.Body, local, out)
		case *ast.ForStmt:
			freeVarsExpr(st.Iter, local, out)
			bodyBound := cloneBoundSet(local)
			patternBound(st.Pattern, bodyBound)
			freeVarsBlock(st.Body, bodyBound, out)
		}
	}
	if b.Tail != nil {
		freeVarsExpr(b.Tail, local, out)
	}
}

func cloneBoundSet(bound map[string]bool) map[string]bool {
	out := make(map[string]bool, len(bound))
	for k, v := range bound {
		out[k] = v
	}
	return out
}
