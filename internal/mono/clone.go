package mono

import (
	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/types"
)

// cloneFuncItem deep-clones a generic function's declaration, giving
// every node a fresh id (newly minted from the shared idgen)
// and substituting every TParam reachable from a type annotation or
// an already-inferred type slot with its concrete instantiation.
func cloneFuncItem(g *ast.IDGen, subst map[string]types.Type, fn *ast.FuncItem) *ast.FuncItem {
	out := ast.NewFuncItem(g, fn.Span(), fn.Name)
	out.IsAsync = fn.IsAsync
	out.Return = substType(fn.Return, subst)
	out.Params = make([]ast.Param, len(fn.Params))
	for i, p := range fn.Params {
		out.Params[i] = ast.Param{Pattern: clonePattern(g, subst, p.Pattern), Annotation: substType(p.Annotation, subst)}
	}
	out.Body = cloneBlock(g, subst, fn.Body)
	return out
}

func cloneBlock(g *ast.IDGen, subst map[string]types.Type, b *ast.BlockExpr) *ast.BlockExpr {
	if b == nil {
		return nil
	}
	stmts := make([]ast.Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		stmts[i] = cloneStmt(g, subst, s)
	}
	var tail ast.Expr
	if b.Tail != nil {
		tail = cloneExpr(g, subst, b.Tail)
	}
	out := ast.NewBlockExpr(g, b.Span(), stmts, tail)
	out.SetInferredType(substType(b.InferredType(), subst))
	return out
}

func cloneStmt(g *ast.IDGen, subst map[string]types.Type, s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.LetStmt:
		out := ast.NewLetStmt(g, n.Span(), clonePattern(g, subst, n.Pattern), cloneExpr(g, subst, n.Value), n.Mutable)
		out.Annotation = substType(n.Annotation, subst)
		return out
	case *ast.ExprStmt:
		return ast.NewExprStmt(g, n.Span(), cloneExpr(g, subst, n.Value))
	case *ast.ReturnStmt:
		var v ast.Expr
		if n.Value != nil {
			v = cloneExpr(g, subst, n.Value)
		}
		return ast.NewReturnStmt(g, n.Span(), v)
	case *ast.WhileStmt:
		return ast.NewWhileStmt(g, n.Span(), cloneExpr(g, subst, n.Cond), cloneBlock(g, subst, n.Body))
	case *ast.ForStmt:
		return ast.NewForStmt(g, n.Span(), clonePattern(g, subst, n.Pattern), cloneExpr(g, subst, n.Iter), cloneBlock(g, subst, n.Body))
	case *ast.BreakStmt:
		return ast.NewBreakStmt(g, n.Span())
	case *ast.ContinueStmt:
		return ast.NewContinueStmt(g, n.Span())
	}
	return s
}

func cloneExpr(g *ast.IDGen, subst map[string]types.Type, e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	withType := func(n ast.Typed) {
		n.SetInferredType(substType(e.InferredType(), subst))
	}

	switch n := e.(type) {
	case *ast.IntLiteral:
		out := ast.NewIntLiteral(g, n.Span(), n.Value)
		withType(out)
		return out
	case *ast.BigIntLiteral:
		out := ast.NewBigIntLiteral(g, n.Span(), n.Digits)
		withType(out)
		return out
	case *ast.FloatLiteral:
		out := ast.NewFloatLiteral(g, n.Span(), n.Value)
		withType(out)
		return out
	case *ast.BoolLiteral:
		out := ast.NewBoolLiteral(g, n.Span(), n.Value)
		withType(out)
		return out
	case *ast.StringLiteral:
		out := ast.NewStringLiteral(g, n.Span(), n.Value)
		withType(out)
		return out
	case *ast.CharLiteral:
		out := ast.NewCharLiteral(g, n.Span(), n.Value)
		withType(out)
		return out
	case *ast.UnitLiteral:
		out := ast.NewUnitLiteral(g, n.Span())
		withType(out)
		return out
	case *ast.Identifier:
		out := ast.NewIdentifier(g, n.Span(), n.Name)
		withType(out)
		return out
	case *ast.UnaryExpr:
		out := ast.NewUnaryExpr(g, n.Span(), n.Op, cloneExpr(g, subst, n.Operand))
		withType(out)
		return out
	case *ast.BinaryExpr:
		out := ast.NewBinaryExpr(g, n.Span(), n.Op, cloneExpr(g, subst, n.Left), cloneExpr(g, subst, n.Right))
		withType(out)
		return out
	case *ast.IndexExpr:
		out := ast.NewIndexExpr(g, n.Span(), cloneExpr(g, subst, n.Target), cloneExpr(g, subst, n.Index))
		withType(out)
		return out
	case *ast.MemberExpr:
		out := ast.NewMemberExpr(g, n.Span(), cloneExpr(g, subst, n.Target), n.Name)
		withType(out)
		return out
	case *ast.CallExpr:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = cloneExpr(g, subst, a)
		}
		out := ast.NewCallExpr(g, n.Span(), cloneExpr(g, subst, n.Callee), args)
		withType(out)
		return out
	case *ast.ArrayExpr:
		elems := make([]ast.Expr, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = cloneExpr(g, subst, el)
		}
		out := ast.NewArrayExpr(g, n.Span(), elems)
		withType(out)
		return out
	case *ast.BlockExpr:
		return cloneBlock(g, subst, n)
	case *ast.IfExpr:
		var els ast.Expr
		if n.Else != nil {
			els = cloneExpr(g, subst, n.Else)
		}
		out := ast.NewIfExpr(g, n.Span(), cloneExpr(g, subst, n.Cond), cloneBlock(g, subst, n.Then), els)
		withType(out)
		return out
	case *ast.MatchExpr:
		arms := make([]ast.MatchArm, len(n.Arms))
		for i, arm := range n.Arms {
			var guard ast.Expr
			if arm.Guard != nil {
				guard = cloneExpr(g, subst, arm.Guard)
			}
			arms[i] = ast.MatchArm{Pattern: clonePattern(g, subst, arm.Pattern), Guard: guard, Body: cloneExpr(g, subst, arm.Body)}
		}
		out := ast.NewMatchExpr(g, n.Span(), cloneExpr(g, subst, n.Scrutinee), arms)
		withType(out)
		return out
	case *ast.AwaitExpr:
		out := ast.NewAwaitExpr(g, n.Span(), cloneExpr(g, subst, n.Operand))
		withType(out)
		return out
	case *ast.ClosureExpr:
		params := make([]ast.Param, len(n.Params))
		for i, p := range n.Params {
			params[i] = ast.Param{Pattern: clonePattern(g, subst, p.Pattern), Annotation: substType(p.Annotation, subst)}
		}
		out := ast.NewClosureExpr(g, n.Span(), params, cloneExpr(g, subst, n.Body), n.IsAsync)
		withType(out)
		return out
	case *ast.AssignExpr:
		out := ast.NewAssignExpr(g, n.Span(), cloneExpr(g, subst, n.Target), cloneExpr(g, subst, n.Value))
		withType(out)
		return out
	}
	return e
}

func clonePattern(g *ast.IDGen, subst map[string]types.Type, p ast.Pattern) ast.Pattern {
	if p == nil {
		return nil
	}
	withType := func(n ast.Typed) {
		n.SetInferredType(substType(p.InferredType(), subst))
	}

	switch n := p.(type) {
	case *ast.WildcardPattern:
		out := ast.NewWildcardPattern(g, n.Span())
		withType(out)
		return out
	case *ast.LiteralPattern:
		out := ast.NewLiteralPattern(g, n.Span(), cloneExpr(g, subst, n.Value))
		withType(out)
		return out
	case *ast.IdentifierPattern:
		out := ast.NewIdentifierPattern(g, n.Span(), n.Name)
		withType(out)
		return out
	case *ast.ArrayPattern:
		elems := make([]ast.Pattern, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = clonePattern(g, subst, el)
		}
		out := ast.NewArrayPattern(g, n.Span(), elems, n.Rest, n.HasRest)
		withType(out)
		return out
	case *ast.ObjectPattern:
		fields := make([]ast.ObjectPatternField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = ast.ObjectPatternField{Name: f.Name, Pattern: clonePattern(g, subst, f.Pattern)}
		}
		out := ast.NewObjectPattern(g, n.Span(), fields, n.Rest, n.HasRest)
		withType(out)
		return out
	case *ast.OrPattern:
		alts := make([]ast.Pattern, len(n.Alternatives))
		for i, alt := range n.Alternatives {
			alts[i] = clonePattern(g, subst, alt)
		}
		out := ast.NewOrPattern(g, n.Span(), alts)
		withType(out)
		return out
	case *ast.ConstructorPattern:
		payload := make([]ast.Pattern, len(n.Payload))
		for i, pay := range n.Payload {
			payload[i] = clonePattern(g, subst, pay)
		}
		out := ast.NewConstructorPattern(g, n.Span(), n.Name, payload)
		withType(out)
		return out
	case *ast.RangePattern:
		var lo, hi ast.Expr
		if n.Low != nil {
			lo = cloneExpr(g, subst, n.Low)
		}
		if n.High != nil {
			hi = cloneExpr(g, subst, n.High)
		}
		out := ast.NewRangePattern(g, n.Span(), lo, hi, n.Inclusive)
		withType(out)
		return out
	case *ast.GuardPattern:
		out := ast.NewGuardPattern(g, n.Span(), clonePattern(g, subst, n.Inner), cloneExpr(g, subst, n.Condition))
		withType(out)
		return out
	}
	return p
}
