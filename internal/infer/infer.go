// Package infer implements Hindley-Milner type inference with gradual
// typing: constraint generation by walking the
// AST, unification over a union-find disjoint set (path compression +
// union by rank, indexed by type-variable id) rather than a
// substitution map, and let-polymorphism via generalize/instantiate at
// let-binding sites only.
package infer

import (
	"fmt"

	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/symbols"
	"github.com/nova-lang/nova/internal/types"
)

// Checker holds the inference state for one compilation: the
// union-find set backing Unify, a fresh-variable counter, and the
// diagnostic bag errors are appended to (inference never panics on a
// type error).
type Checker struct {
	uf      *unionFind
	nextVar int
	diags   source.Bag
}

// NewChecker creates an empty inference context.
func NewChecker() *Checker {
	return &Checker{uf: newUnionFind()}
}

// Diagnostics returns every type error recorded during inference.
func (c *Checker) Diagnostics() *source.Bag { return &c.diags }

func (c *Checker) fresh() types.TVar {
	c.nextVar++
	return types.TVar{ID: c.nextVar}
}

func (c *Checker) errorf(sp source.Span, code, format string, args ...any) {
	c.diags.Add(source.Errorf(code, sp, format, args...))
}

// Unify is the entry point required by: it resolves a and b
// through the union-find set and either merges their representatives
// (when both are variables), binds a variable's representative to a
// concrete type (performing the occurs check first), or recurses
// structurally. *unknown* unifies with anything and produces no
// binding (the gradual-typing escape hatch); *never* likewise
// unifies with anything, standing for an unreachable value.
func (c *Checker) Unify(sp source.Span, a, b types.Type) error {
	a = c.uf.resolve(a)
	b = c.uf.resolve(b)

	if _, ok := a.(types.Unknown); ok {
		return nil
	}
	if _, ok := b.(types.Unknown); ok {
		return nil
	}
	if _, ok := a.(types.Never); ok {
		return nil
	}
	if _, ok := b.(types.Never); ok {
		return nil
	}

	av, aIsVar := a.(types.TVar)
	bv, bIsVar := b.(types.TVar)

	switch {
	case aIsVar && bIsVar:
		if av.ID == bv.ID {
			return nil
		}
		c.uf.union(av.ID, bv.ID)
		return nil
	case aIsVar:
		return c.bindVar(sp, av, b)
	case bIsVar:
		return c.bindVar(sp, bv, a)
	}

	switch av := a.(type) {
	case types.TCon:
		if bv, ok := b.(types.TCon); ok && av.Name == bv.Name {
			return nil
		}
	case types.Array:
		if bv, ok := b.(types.Array); ok {
			return c.Unify(sp, av.Elem, bv.Elem)
		}
	case types.Func:
		if bv, ok := b.(types.Func); ok && len(av.Params) == len(bv.Params) {
			for i := range av.Params {
				if err := c.Unify(sp, av.Params[i], bv.Params[i]); err != nil {
					return err
				}
			}
			return c.Unify(sp, av.Return, bv.Return)
		}
	case types.Record:
		if bv, ok := b.(types.Record); ok && len(av.Fields) == len(bv.Fields) {
			for name, ft := range av.Fields {
				bft, ok := bv.Fields[name]
				if !ok {
					break
				}
				if err := c.Unify(sp, ft, bft); err != nil {
					return err
				}
			}
			if len(av.Fields) == len(bv.Fields) {
				return nil
			}
		}
	case types.Named:
		if bv, ok := b.(types.Named); ok && av.Name == bv.Name && len(av.Args) == len(bv.Args) {
			for i := range av.Args {
				if err := c.Unify(sp, av.Args[i], bv.Args[i]); err != nil {
					return err
				}
			}
			return nil
		}
	}

	return fmt.Errorf("cannot unify %s with %s", a.String(), b.String())
}

func (c *Checker) bindVar(sp source.Span, v types.TVar, t types.Type) error {
	if occurs(v.ID, t) {
		return fmt.Errorf("occurs check failed: %s occurs in %s", v.String(), t.String())
	}
	c.uf.bind(v.ID, t)
	return nil
}

func occurs(id int, t types.Type) bool {
	for _, fv := range t.FreeVars() {
		if fv == id {
			return true
		}
	}
	return false
}

// Resolve fully dereferences t, the public form of unionFind.resolve
// used once inference has finished to read back a node's final type.
func (c *Checker) Resolve(t types.Type) types.Type { return c.uf.resolve(t) }

// instantiate replaces a scheme's bound parameters with fresh type
// variables, producing a monomorphic type for one use site.
func (c *Checker) instantiate(s types.Scheme) types.Type {
	if len(s.Params) == 0 {
		return s.Type
	}
	subst := make(types.Subst, len(s.Params))
	for _, p := range s.Params {
		subst[paramPlaceholderID(p)] = c.fresh()
	}
	return substituteParams(s.Type, subst, s.Params)
}

// paramPlaceholderID maps a scheme's named TParam to a synthetic
// negative id space so it can ride through the same Subst map type
// TVar substitution uses, without colliding with real fresh-variable
// ids (which are always positive).
var paramIDs = map[string]int{}
var nextParamID = -1

func paramPlaceholderID(name string) int {
	if id, ok := paramIDs[name]; ok {
		return id
	}
	id := nextParamID
	nextParamID--
	paramIDs[name] = id
	return id
}

func substituteParams(t types.Type, subst types.Subst, params []string) types.Type {
	switch v := t.(type) {
	case types.TParam:
		if repl, ok := subst[paramPlaceholderID(v.Name)]; ok {
			return repl
		}
		return v
	case types.Array:
		return types.Array{Elem: substituteParams(v.Elem, subst, params)}
	case types.Func:
		ps := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			ps[i] = substituteParams(p, subst, params)
		}
		return types.Func{Params: ps, Return: substituteParams(v.Return, subst, params)}
	case types.Record:
		fields := make(map[string]types.Type, len(v.Fields))
		for k, ft := range v.Fields {
			fields[k] = substituteParams(ft, subst, params)
		}
		return types.Record{Fields: fields}
	case types.Named:
		args := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = substituteParams(a, subst, params)
		}
		return types.Named{Name: v.Name, Args: args}
	default:
		return t
	}
}

// generalize closes over every type variable free in t but not free
// in the enclosing scope, producing a Scheme quantified over them;
// this is let-polymorphism and happens only at let/const binding sites
//, never for function parameters or intermediate expressions.
func (c *Checker) generalize(scope *symbols.Scope, t types.Type) types.Scheme {
	t = c.uf.resolve(t)
	free := freeInScope(scope)
	seen := make(map[int]bool)
	var params []string
	subst := make(types.Subst)
	for _, fv := range t.FreeVars() {
		if free[fv] || seen[fv] {
			continue
		}
		seen[fv] = true
		name := fmt.Sprintf("t%d", fv)
		params = append(params, name)
		subst[fv] = types.TParam{Name: name}
	}
	return types.Scheme{Params: params, Type: t.Apply(subst)}
}

func freeInScope(scope *symbols.Scope) map[int]bool {
	free := make(map[int]bool)
	for sc := scope; sc != nil; sc = sc.Parent() {
		for _, name := range sc.Names() {
			sym, _ := sc.LookupLocal(name)
			if sym == nil {
				continue
			}
			for _, fv := range sym.Type.Type.FreeVars() {
				free[fv] = true
			}
		}
	}
	return free
}

// InferProgram type-checks every item in prog against (and extending)
// scope, setting each expression and pattern's inferred-type slot.
// Diagnostics accumulate in the Checker; the caller decides whether to
// proceed to later phases based on Diagnostics().HasErrors().
func (c *Checker) InferProgram(scope *symbols.Scope, prog *ast.Program) {
	// Pass 1: install a monomorphic placeholder for every top-level
	// function so mutually recursive definitions resolve.
	for _, item := range prog.Items {
		if fn, ok := item.(*ast.FuncItem); ok {
			scope.Define(&symbols.Symbol{
				Name: fn.Name,
				Type: types.Scheme{Type: c.funcSkeleton(fn)},
				Kind: symbols.Function,
				Definition: fn,
			})
		}
	}
	for _, item := range prog.Items {
		c.inferItem(scope, item)
	}
}

func (c *Checker) funcSkeleton(fn *ast.FuncItem) types.Type {
	params := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		if p.Annotation != nil {
			params[i] = p.Annotation
		} else {
			params[i] = c.fresh()
		}
	}
	ret := fn.Return
	if ret == nil {
		ret = c.fresh()
	}
	return types.Func{Params: params, Return: ret}
}

func (c *Checker) inferItem(scope *symbols.Scope, item ast.Item) {
	switch it := item.(type) {
	case *ast.FuncItem:
		c.inferFunc(scope, it)
	case *ast.ConstItem:
		fnScope := scope.NewChild(symbols.ScopeModule)
		t := c.inferExpr(fnScope, it.Value)
		if it.Annotation != nil {
			if err := c.Unify(it.Span(), it.Annotation, t); err != nil {
				c.errorf(it.Span(), "T001", "%s", err)
			}
		}
		scope.Define(&symbols.Symbol{Name: it.Name, Type: c.generalize(scope, t), Kind: symbols.Variable, Definition: it})
	case *ast.TypeAliasItem, *ast.StructItem, *ast.EnumItem:
		// Nominal-type declarations contribute no expression to check;
		// their shapes are installed into scope by the semantic
		// analyzer pass that precedes inference.
	}
}

func (c *Checker) inferFunc(scope *symbols.Scope, fn *ast.FuncItem) {
	kind := symbols.ScopeFunction
	if fn.IsAsync {
		kind = symbols.ScopeAsyncFunction
	}
	fnScope := scope.NewChild(kind)

	existing, _ := scope.Lookup(fn.Name)
	sig, _ := existing.Type.Type.(types.Func)
	if len(sig.Params) != len(fn.Params) {
		sig = c.funcSkeleton(fn).(types.Func)
	}

	for i, p := range fn.Params {
		c.bindPattern(fnScope, p.Pattern, sig.Params[i])
	}

	bodyType := c.inferExpr(fnScope, fn.Body)
	if err := c.Unify(fn.Span(), sig.Return, bodyType); err != nil {
		c.errorf(fn.Span(), "T002", "function %q: return type mismatch: %s", fn.Name, err)
	}
}
