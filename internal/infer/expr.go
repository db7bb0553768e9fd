package infer

import (
	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/symbols"
	"github.com/nova-lang/nova/internal/types"
)

// setType resolves t through the union-find set and stores it on n,
// so every Typed node's slot holds a fully-dereferenced type rather
// than a transient unification variable.
func (c *Checker) setType(n ast.Typed, t types.Type) types.Type {
	r := c.uf.resolve(t)
	n.SetInferredType(r)
	return r
}

// inferExpr walks e, generating and solving unification constraints as
// it goes, and returns e's type (also stored on the node itself).
func (c *Checker) inferExpr(scope *symbols.Scope, e ast.Expr) types.Type {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return c.setType(n, types.Int)
	case *ast.BigIntLiteral:
		return c.setType(n, types.Named{Name: "BigInt"})
	case *ast.FloatLiteral:
		return c.setType(n, types.Float)
	case *ast.BoolLiteral:
		return c.setType(n, types.Bool)
	case *ast.StringLiteral:
		return c.setType(n, types.String)
	case *ast.CharLiteral:
		return c.setType(n, types.TCon{Name: "Char"})
	case *ast.UnitLiteral:
		return c.setType(n, types.Unit)

	case *ast.Identifier:
		sym, ok := scope.Lookup(n.Name)
		if !ok {
			c.errorf(n.Span(), "T010", "undefined name %q", n.Name)
			return c.setType(n, c.fresh())
		}
		return c.setType(n, c.instantiate(sym.Type))

	case *ast.UnaryExpr:
		operand := c.inferExpr(scope, n.Operand)
		switch n.Op {
		case ast.UnaryNeg:
			if err := c.Unify(n.Span(), operand, types.Int); err != nil {
				if err2 := c.Unify(n.Span(), operand, types.Float); err2 != nil {
					c.errorf(n.Span(), "T011", "unary - requires a numeric operand: %s", err)
				}
			}
			return c.setType(n, operand)
		default: // UnaryNot
			if err := c.Unify(n.Span(), operand, types.Bool); err != nil {
				c.errorf(n.Span(), "T012", "unary ! requires a Bool operand: %s", err)
			}
			return c.setType(n, types.Bool)
		}

	case *ast.BinaryExpr:
		return c.inferBinary(scope, n)

	case *ast.IndexExpr:
		targetType := c.inferExpr(scope, n.Target)
		idxType := c.inferExpr(scope, n.Index)
		if err := c.Unify(n.Index.Span(), idxType, types.Int); err != nil {
			c.errorf(n.Index.Span(), "T013", "index must be an Int: %s", err)
		}
		elem := c.fresh()
		if err := c.Unify(n.Span(), targetType, types.Array{Elem: elem}); err != nil {
			c.errorf(n.Span(), "T014", "cannot index non-array type: %s", err)
		}
		return c.setType(n, elem)

	case *ast.MemberExpr:
		targetType := c.uf.resolve(c.inferExpr(scope, n.Target))
		if rec, ok := targetType.(types.Record); ok {
			if ft, ok := rec.Fields[n.Name]; ok {
				return c.setType(n, ft)
			}
		}
		// Nominal struct field access is resolved against the struct's
		// declared shape by the semantic analyzer pass (which installs a
		// Record-shaped Scheme for each struct name); fall back to a
		// fresh variable here so inference can still proceed.
		return c.setType(n, c.fresh())

	case *ast.CallExpr:
		return c.inferCall(scope, n)

	case *ast.ArrayExpr:
		elem := c.fresh()
		var t types.Type = elem
		for _, el := range n.Elements {
			et := c.inferExpr(scope, el)
			if err := c.Unify(el.Span(), t, et); err != nil {
				c.errorf(el.Span(), "T015", "array elements must share one type: %s", err)
			}
		}
		return c.setType(n, types.Array{Elem: c.uf.resolve(t)})

	case *ast.BlockExpr:
		return c.inferBlockScoped(scope, n)

	case *ast.IfExpr:
		condType := c.inferExpr(scope, n.Cond)
		if err := c.Unify(n.Cond.Span(), condType, types.Bool); err != nil {
			c.errorf(n.Cond.Span(), "T016", "if condition must be Bool: %s", err)
		}
		thenType := c.inferBlockScoped(scope, n.Then)
		if n.Else == nil {
			return c.setType(n, types.Unit)
		}
		elseType := c.inferExpr(scope, n.Else)
		if err := c.Unify(n.Span(), thenType, elseType); err != nil {
			c.errorf(n.Span(), "T017", "if branches have different types: %s", err)
		}
		return c.setType(n, thenType)

	case *ast.MatchExpr:
		return c.inferMatch(scope, n)

	case *ast.AwaitExpr:
		operandType := c.uf.resolve(c.inferExpr(scope, n.Operand))
		inner := c.fresh()
		if err := c.Unify(n.Span(), operandType, types.Named{Name: "Future", Args: []types.Type{inner}}); err != nil {
			c.errorf(n.Span(), "T018", "await requires a Future: %s", err)
		}
		return c.setType(n, inner)

	case *ast.ClosureExpr:
		return c.inferClosure(scope, n)

	case *ast.AssignExpr:
		targetType := c.inferExpr(scope, n.Target)
		valueType := c.inferExpr(scope, n.Value)
		if err := c.Unify(n.Span(), targetType, valueType); err != nil {
			c.errorf(n.Span(), "T019", "assignment type mismatch: %s", err)
		}
		return c.setType(n, types.Unit)
	}

	return types.Unknown{}
}

func (c *Checker) inferBinary(scope *symbols.Scope, n *ast.BinaryExpr) types.Type {
	lt := c.inferExpr(scope, n.Left)
	rt := c.inferExpr(scope, n.Right)

	switch n.Op {
	case ast.BinAdd, ast.BinSub, ast.BinMul, ast.BinDiv, ast.BinMod, ast.BinPow:
		if err := c.Unify(n.Span(), lt, rt); err != nil {
			c.errorf(n.Span(), "T020", "arithmetic operands must share one type: %s", err)
		}
		return c.setType(n, lt)
	case ast.BinEq, ast.BinNotEq:
		if err := c.Unify(n.Span(), lt, rt); err != nil {
			c.errorf(n.Span(), "T021", "comparison operands must share one type: %s", err)
		}
		return c.setType(n, types.Bool)
	case ast.BinLt, ast.BinLte, ast.BinGt, ast.BinGte:
		if err := c.Unify(n.Span(), lt, rt); err != nil {
			c.errorf(n.Span(), "T022", "ordering operands must share one type: %s", err)
		}
		return c.setType(n, types.Bool)
	case ast.BinAnd, ast.BinOr:
		if err := c.Unify(n.Left.Span(), lt, types.Bool); err != nil {
			c.errorf(n.Left.Span(), "T023", "logical operand must be Bool: %s", err)
		}
		if err := c.Unify(n.Right.Span(), rt, types.Bool); err != nil {
			c.errorf(n.Right.Span(), "T023", "logical operand must be Bool: %s", err)
		}
		return c.setType(n, types.Bool)
	case ast.BinPipe: // `x |> f` desugars to a call of f(x)
		result := c.fresh()
		if err := c.Unify(n.Span(), rt, types.Func{Params: []types.Type{lt}, Return: result}); err != nil {
			c.errorf(n.Span(), "T024", "pipeline target is not callable with the piped value: %s", err)
		}
		return c.setType(n, result)
	}
	return c.setType(n, c.fresh())
}

func (c *Checker) inferCall(scope *symbols.Scope, n *ast.CallExpr) types.Type {
	calleeType := c.inferExpr(scope, n.Callee)
	argTypes := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = c.inferExpr(scope, a)
	}
	result := c.fresh()
	if err := c.Unify(n.Span(), calleeType, types.Func{Params: argTypes, Return: result}); err != nil {
		c.errorf(n.Span(), "T025", "call does not match function signature: %s", err)
	}
	return c.setType(n, result)
}

func (c *Checker) inferClosure(scope *symbols.Scope, n *ast.ClosureExpr) types.Type {
	kind := symbols.ScopeFunction
	if n.IsAsync {
		kind = symbols.ScopeAsyncFunction
	}
	inner := scope.NewChild(kind)

	params := make([]types.Type, len(n.Params))
	for i, p := range n.Params {
		pt := p.Annotation
		if pt == nil {
			pt = c.fresh()
		}
		params[i] = pt
		c.bindPattern(inner, p.Pattern, pt)
	}

	bodyType := c.inferExpr(inner, n.Body)
	if n.IsAsync {
		bodyType = types.Named{Name: "Future", Args: []types.Type{bodyType}}
	}
	return c.setType(n, types.Func{Params: params, Return: bodyType})
}

// inferBlockScoped infers a block in a fresh child scope, so let
// bindings introduced inside it do not leak to the caller.
func (c *Checker) inferBlockScoped(scope *symbols.Scope, b *ast.BlockExpr) types.Type {
	inner := scope.NewChild(symbols.ScopeBlock)
	return c.inferBlock(inner, b)
}

func (c *Checker) inferBlock(scope *symbols.Scope, b *ast.BlockExpr) types.Type {
	for _, s := range b.Stmts {
		c.inferStmt(scope, s)
	}
	if b.Tail == nil {
		return c.setType(b, types.Unit)
	}
	t := c.inferExpr(scope, b.Tail)
	return c.setType(b, t)
}

func (c *Checker) inferStmt(scope *symbols.Scope, s ast.Stmt) {
	switch st := s.(type) {
	case *ast.LetStmt:
		valueType := c.inferExpr(scope, st.Value)
		if st.Annotation != nil {
			if err := c.Unify(st.Span(), st.Annotation, valueType); err != nil {
				c.errorf(st.Span(), "T030", "let binding type mismatch: %s", err)
			}
		}
		scheme := c.generalize(scope, valueType)
		c.bindPatternScheme(scope, st.Pattern, scheme, st.Mutable)

	case *ast.ExprStmt:
		c.inferExpr(scope, st.Value)

	case *ast.ReturnStmt:
		if st.Value != nil {
			c.inferExpr(scope, st.Value)
		}

	case *ast.WhileStmt:
		condType := c.inferExpr(scope, st.Cond)
		if err := c.Unify(st.Cond.Span(), condType, types.Bool); err != nil {
			c.errorf(st.Cond.Span(), "T031", "while condition must be Bool: %s", err)
		}
		loopScope := scope.NewChild(symbols.ScopeLoop)
		c.inferBlock(loopScope, st.Body)

	case *ast.ForStmt:
		iterType := c.uf.resolve(c.inferExpr(scope, st.Iter))
		elem := c.fresh()
		if err := c.Unify(st.Iter.Span(), iterType, types.Array{Elem: elem}); err != nil {
			c.errorf(st.Iter.Span(), "T032", "for loop requires an iterable array: %s", err)
		}
		loopScope := scope.NewChild(symbols.ScopeLoop)
		c.bindPattern(loopScope, st.Pattern, elem)
		c.inferBlock(loopScope, st.Body)

	case *ast.BreakStmt, *ast.ContinueStmt:
		if !scope.AllowsBreak() {
			c.errorf(s.Span(), "T033", "break/continue outside a loop")
		}
	}
}

// bindPattern destructures t against pat, defining each bound name as
// a plain monomorphic (non-generalized) Symbol — used for function
// parameters, for-loop bindings, and closure parameters, none of which
// are let-polymorphic binding sites.
func (c *Checker) bindPattern(scope *symbols.Scope, pat ast.Pattern, t types.Type) {
	c.bindPatternScheme(scope, pat, types.Scheme{Type: t}, true)
}

// bindPatternScheme destructures t against pat, defining each bound
// name with the given scheme (generalized, for let-bindings; trivial
// monomorphic otherwise) and mutability flag.
func (c *Checker) bindPatternScheme(scope *symbols.Scope, pat ast.Pattern, scheme types.Scheme, mutable bool) {
	t := scheme.Type
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		c.setType(p, t)

	case *ast.IdentifierPattern:
		c.setType(p, t)
		scope.Define(&symbols.Symbol{Name: p.Name, Type: scheme, Kind: symbols.Variable, Mutable: mutable, Definition: p})

	case *ast.LiteralPattern:
		lt := c.inferExpr(scope, p.Value)
		if err := c.Unify(p.Span(), lt, t); err != nil {
			c.errorf(p.Span(), "T034", "literal pattern type mismatch: %s", err)
		}
		c.setType(p, t)

	case *ast.RangePattern:
		if p.Low != nil {
			c.inferExpr(scope, p.Low)
		}
		if p.High != nil {
			c.inferExpr(scope, p.High)
		}
		c.setType(p, t)

	case *ast.ArrayPattern:
		resolved := c.uf.resolve(t)
		elem := c.fresh()
		if err := c.Unify(p.Span(), resolved, types.Array{Elem: elem}); err != nil {
			c.errorf(p.Span(), "T035", "array pattern against non-array type: %s", err)
		}
		for _, el := range p.Elements {
			c.bindPatternScheme(scope, el, types.Scheme{Type: elem}, mutable)
		}
		if p.HasRest && p.Rest != "" {
			scope.Define(&symbols.Symbol{Name: p.Rest, Type: types.Scheme{Type: types.Array{Elem: elem}}, Kind: symbols.Variable, Mutable: mutable, Definition: p})
		}
		c.setType(p, types.Array{Elem: elem})

	case *ast.ObjectPattern:
		resolved := c.uf.resolve(t)
		rec, ok := resolved.(types.Record)
		if !ok {
			rec = types.Record{Fields: map[string]types.Type{}}
		}
		for _, f := range p.Fields {
			ft, ok := rec.Fields[f.Name]
			if !ok {
				ft = c.fresh()
			}
			c.bindPatternScheme(scope, f.Pattern, types.Scheme{Type: ft}, mutable)
		}
		c.setType(p, resolved)

	case *ast.OrPattern:
		for _, alt := range p.Alternatives {
			c.bindPatternScheme(scope, alt, scheme, mutable)
		}
		c.setType(p, t)

	case *ast.ConstructorPattern:
		// The payload element types for a constructor named p.Name are
		// installed into scope by the semantic analyzer as part of
		// registering the owning enum; absent that registration (e.g. a
		// built-in like Some/None/Ok/Err) each payload slot gets a fresh
		// variable so destructuring can still proceed.
		for _, pay := range p.Payload {
			c.bindPatternScheme(scope, pay, types.Scheme{Type: c.fresh()}, mutable)
		}
		c.setType(p, t)

	case *ast.GuardPattern:
		c.bindPatternScheme(scope, p.Inner, scheme, mutable)
		condType := c.inferExpr(scope, p.Condition)
		if err := c.Unify(p.Condition.Span(), condType, types.Bool); err != nil {
			c.errorf(p.Condition.Span(), "T036", "pattern guard must be Bool: %s", err)
		}
		c.setType(p, t)
	}
}

func (c *Checker) inferMatch(scope *symbols.Scope, n *ast.MatchExpr) types.Type {
	scrutType := c.inferExpr(scope, n.Scrutinee)
	result := c.fresh()
	for _, arm := range n.Arms {
		armScope := scope.NewChild(symbols.ScopeBlock)
		c.bindPatternScheme(armScope, arm.Pattern, types.Scheme{Type: scrutType}, false)
		if arm.Guard != nil {
			guardType := c.inferExpr(armScope, arm.Guard)
			if err := c.Unify(arm.Guard.Span(), guardType, types.Bool); err != nil {
				c.errorf(arm.Guard.Span(), "T037", "match guard must be Bool: %s", err)
			}
		}
		bodyType := c.inferExpr(armScope, arm.Body)
		if err := c.Unify(n.Span(), result, bodyType); err != nil {
			c.errorf(arm.Body.Span(), "T038", "match arms have different types: %s", err)
		}
	}
	return c.setType(n, result)
}
