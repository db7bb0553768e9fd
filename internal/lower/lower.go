// Package lower translates typed AST into the SSA IR: each typed AST
// item becomes an ir.Function, maintaining a lowering context with the
// current function/block and a value-to-SSA map for local variables.
package lower

import (
	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/mono"
	"github.com/nova-lang/nova/internal/patterns"
	"github.com/nova-lang/nova/internal/types"
)

// EnumOracle supplies enum/struct constructor information to the
// pattern lowering, the same role internal/patterns.Oracle plays
// during exhaustiveness checking.
type EnumOracle = patterns.Oracle

// Context carries the state threaded through one function's lowering:
// the builder appending to its current block, the local-variable
// slot map (every local is alloca'd; loads/stores are emitted per
// use/assignment), and the enclosing loop stack for
// break/continue targets.
type Context struct {
	b       *ir.Builder
	fn      *ir.Function
	mod     *ir.Module // owning module; closures append their extracted function here
	locals  map[string]ir.ValueID // name -> alloca pointer value
	loops   []loopCtx
	oracle  EnumOracle
	mono    *mono.Monomorphizer
	asyncSt bool

	nextBlockID uint64
	nextValueID uint64
	closureSeq  int
}

type loopCtx struct {
	headerBlock ir.BlockID
	exitBlock   ir.BlockID
	// resultParam is not set by lowerWhile or lowerFor: loops produce
	// no value, and their exit blocks take no parameters.
	resultParam ir.ValueID
}

// NewContext starts lowering fn's body. fn's Sig/Name/IsAsync must
// already be set by the caller (LowerProgram).
func NewContext(fn *ir.Function, oracle EnumOracle, m *mono.Monomorphizer) *Context {
	return &Context{
		b:      ir.NewBuilder(fn),
		fn:     fn,
		locals: make(map[string]ir.ValueID),
		oracle: oracle,
		mono:   m,
	}
}

// LowerProgram lowers every function item in prog into one ir.Module.
// Non-function items (const/type/struct/enum) carry no runtime code
// of their own: consts are inlined at use sites by the inference
// engine's constant folding is not assumed here — a const's value is
// read directly from its ConstItem at the reference site by the
// semantic analyzer's binding (out of scope for this package; lower
// only ever sees FuncItem bodies).
func LowerProgram(prog *ast.Program, oracle EnumOracle, m *mono.Monomorphizer) *ir.Module {
	mod := &ir.Module{Name: prog.Package}
	for _, item := range prog.Items {
		fnItem, ok := item.(*ast.FuncItem)
		if !ok {
			continue
		}
		LowerFunction(mod, fnItem, oracle, m)
	}
	if m != nil {
		for _, inst := range m.Instances() {
			LowerFunction(mod, inst.Item, oracle, m)
		}
	}
	return mod
}

// LowerFunction lowers one function declaration to an ir.Function,
// appends it to mod, and returns it. A closure nested in item's body
// appends its own extracted function to the same mod (see lowerClosure
// in closure.go).
func LowerFunction(mod *ir.Module, item *ast.FuncItem, oracle EnumOracle, m *mono.Monomorphizer) *ir.Function {
	sig := types.Func{Return: item.Return}
	for _, p := range item.Params {
		sig.Params = append(sig.Params, p.Annotation)
	}
	fn := &ir.Function{Name: item.Name, Sig: sig, IsAsync: item.IsAsync}
	mod.Functions = append(mod.Functions, fn)

	ctx := NewContext(fn, oracle, m)
	ctx.mod = mod
	ctx.asyncSt = item.IsAsync
	entry := ctx.b.CreateBlock()
	fn.Entry = entry.ID

	for i, p := range item.Params {
		paramVal := ctx.b.Param(sig.Params[i])
		entry.Params = append(entry.Params, paramVal)
		ctx.bindNewLocal(p.Pattern, paramVal.ID, sig.Params[i])
	}

	result := ctx.lowerBlock(item.Body)
	if ctx.b.Current().Terminator() == nil {
		retType := item.Body.InferredType()
		ctx.emitRetain(result, retType)
		ctx.b.Ret(result, !isUnit(retType))
	}
	return fn
}

func isUnit(t types.Type) bool {
	c, ok := t.(types.TCon)
	return ok && c.Name == "Unit"
}

// bindNewLocal allocates a fresh stack slot for pat, storing val into
// it, for every identifier the pattern binds: local bindings are
// allocas, and rvalues are computed and stored into them.
func (c *Context) bindNewLocal(pat ast.Pattern, val ir.ValueID, t types.Type) {
	switch p := pat.(type) {
	case *ast.IdentifierPattern:
		ptr := c.b.Alloc(t)
		c.b.Store(ptr, val)
		c.locals[p.Name] = ptr
	case *ast.WildcardPattern:
		// nothing to bind
	default:
		// Compound patterns (array/object/or/constructor) in a let/param
		// position are destructured by the same machinery match arms
		// use; see bindDestructure in destructure.go.
		c.bindDestructure(pat, val, t)
	}
}

func (c *Context) lowerBlock(b *ast.BlockExpr) ir.ValueID {
	for _, s := range b.Stmts {
		c.lowerStmt(s)
		if c.b.Current().Terminator() != nil {
			return 0
		}
	}
	if b.Tail != nil {
		return c.lowerExpr(b.Tail)
	}
	return c.unitValue()
}

func (c *Context) unitValue() ir.ValueID {
	return c.b.Const(nil, types.Unit)
}

func (c *Context) lowerStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.LetStmt:
		v := c.lowerExpr(st.Value)
		v = c.coerce(st.Value.InferredType(), localPatternType(st), v)
		c.bindNewLocal(st.Pattern, v, localPatternType(st))
	case *ast.ExprStmt:
		c.lowerExpr(st.Value)
	case *ast.ReturnStmt:
		var v ir.ValueID
		has := st.Value != nil
		if has {
			v = c.lowerExpr(st.Value)
			c.emitRetain(v, st.Value.InferredType())
		}
		c.b.Ret(v, has)
	case *ast.WhileStmt:
		c.lowerWhile(st)
	case *ast.ForStmt:
		c.lowerFor(st)
	case *ast.BreakStmt:
		c.lowerBreak()
	case *ast.ContinueStmt:
		c.lowerContinue()
	}
}

func localPatternType(st *ast.LetStmt) types.Type {
	if st.Annotation != nil {
		return st.Annotation
	}
	return st.Value.InferredType()
}
