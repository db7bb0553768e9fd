package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/types"
)

// absItem builds `fn abs(x: Int) -> Int { if x < 0 { 0 - x } else { x } }`
// directly as an AST, bypassing the parser/checker.
func absItem(g *ast.IDGen) *ast.FuncItem {
	sp := source.Span{}
	fn := ast.NewFuncItem(g, sp, "abs")
	xPat := ast.NewIdentifierPattern(g, sp, "x")
	fn.Params = []ast.Param{{Pattern: xPat, Annotation: types.Int}}
	fn.Return = types.Int

	x := func() *ast.Identifier {
		id := ast.NewIdentifier(g, sp, "x")
		id.SetInferredType(types.Int)
		return id
	}
	zero := ast.NewIntLiteral(g, sp, 0)
	zero.SetInferredType(types.Int)

	cond := ast.NewBinaryExpr(g, sp, ast.BinLt, x(), func() ast.Expr {
		l := ast.NewIntLiteral(g, sp, 0)
		l.SetInferredType(types.Int)
		return l
	}())
	cond.SetInferredType(types.Bool)

	negated := ast.NewBinaryExpr(g, sp, ast.BinSub, zero, x())
	negated.SetInferredType(types.Int)
	thenBlk := ast.NewBlockExpr(g, sp, nil, negated)
	thenBlk.SetInferredType(types.Int)

	elseVal := x()
	ifExpr := ast.NewIfExpr(g, sp, cond, thenBlk, elseVal)
	ifExpr.SetInferredType(types.Int)

	body := ast.NewBlockExpr(g, sp, nil, ifExpr)
	body.SetInferredType(types.Int)
	fn.Body = body
	return fn
}

func TestLowerIfProducesCondBrAndJoinBlock(t *testing.T) {
	g := &ast.IDGen{}
	item := absItem(g)

	mod := &ir.Module{Name: "test"}
	fn := LowerFunction(mod, item, nil, nil)

	require.Same(t, fn, mod.Functions[0])
	require.NotNil(t, fn.Block(fn.Entry))
	entryTerm := fn.Block(fn.Entry).Terminator()
	require.NotNil(t, entryTerm)
	require.Equal(t, ir.OpCondBr, entryTerm.Opcode)

	var joinBlocksWithRet int
	for _, b := range fn.Blocks {
		if term := b.Terminator(); term != nil && term.Opcode == ir.OpRet {
			joinBlocksWithRet++
		}
	}
	require.Equal(t, 1, joinBlocksWithRet)
}

// whileSumItem builds `fn sumTo(n: Int) -> Int { let mut i = 0; while i < n { i = i + 1; } i }`.
func whileSumItem(g *ast.IDGen) *ast.FuncItem {
	sp := source.Span{}
	fn := ast.NewFuncItem(g, sp, "sumTo")
	nPat := ast.NewIdentifierPattern(g, sp, "n")
	fn.Params = []ast.Param{{Pattern: nPat, Annotation: types.Int}}
	fn.Return = types.Int

	zero := ast.NewIntLiteral(g, sp, 0)
	zero.SetInferredType(types.Int)
	iPat := ast.NewIdentifierPattern(g, sp, "i")
	letI := ast.NewLetStmt(g, sp, iPat, zero, true)

	iRef := func() *ast.Identifier {
		id := ast.NewIdentifier(g, sp, "i")
		id.SetInferredType(types.Int)
		return id
	}
	nRef := ast.NewIdentifier(g, sp, "n")
	nRef.SetInferredType(types.Int)

	cond := ast.NewBinaryExpr(g, sp, ast.BinLt, iRef(), nRef)
	cond.SetInferredType(types.Bool)

	one := ast.NewIntLiteral(g, sp, 1)
	one.SetInferredType(types.Int)
	incr := ast.NewBinaryExpr(g, sp, ast.BinAdd, iRef(), one)
	incr.SetInferredType(types.Int)
	assign := ast.NewAssignExpr(g, sp, iRef(), incr)
	assign.SetInferredType(types.Int)
	loopBody := ast.NewBlockExpr(g, sp, []ast.Stmt{ast.NewExprStmt(g, sp, assign)}, nil)
	loopBody.SetInferredType(types.Unit)

	whileStmt := ast.NewWhileStmt(g, sp, cond, loopBody)

	body := ast.NewBlockExpr(g, sp, []ast.Stmt{letI, whileStmt}, iRef())
	body.SetInferredType(types.Int)
	fn.Body = body
	return fn
}

func TestLowerWhileProducesHeaderBodyExitBlocks(t *testing.T) {
	g := &ast.IDGen{}
	item := whileSumItem(g)

	mod := &ir.Module{Name: "test"}
	fn := LowerFunction(mod, item, nil, nil)

	var condBrCount, brCount, retCount int
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		switch term.Opcode {
		case ir.OpCondBr:
			condBrCount++
		case ir.OpBr:
			brCount++
		case ir.OpRet:
			retCount++
		}
	}
	require.Equal(t, 1, condBrCount) // the loop header's test
	require.GreaterOrEqual(t, brCount, 2) // entry->header, body->header
	require.Equal(t, 1, retCount)
}

// boolMatchItem builds `fn pick(b: Bool) -> Int { match b { true -> 1, false -> 0 } }`.
func boolMatchItem(g *ast.IDGen) *ast.FuncItem {
	sp := source.Span{}
	fn := ast.NewFuncItem(g, sp, "pick")
	bPat := ast.NewIdentifierPattern(g, sp, "b")
	fn.Params = []ast.Param{{Pattern: bPat, Annotation: types.Bool}}
	fn.Return = types.Int

	scrut := ast.NewIdentifier(g, sp, "b")
	scrut.SetInferredType(types.Bool)

	trueLit := ast.NewBoolLiteral(g, sp, true)
	trueLit.SetInferredType(types.Bool)
	truePat := ast.NewLiteralPattern(g, sp, trueLit)

	falseLit := ast.NewBoolLiteral(g, sp, false)
	falseLit.SetInferredType(types.Bool)
	falsePat := ast.NewLiteralPattern(g, sp, falseLit)

	one := ast.NewIntLiteral(g, sp, 1)
	one.SetInferredType(types.Int)
	zero := ast.NewIntLiteral(g, sp, 0)
	zero.SetInferredType(types.Int)

	match := ast.NewMatchExpr(g, sp, scrut, []ast.MatchArm{
		{Pattern: truePat, Body: one},
		{Pattern: falsePat, Body: zero},
	})
	match.SetInferredType(types.Int)

	body := ast.NewBlockExpr(g, sp, nil, match)
	body.SetInferredType(types.Int)
	fn.Body = body
	return fn
}

func TestLowerMatchChainsArmTestsAndJoins(t *testing.T) {
	g := &ast.IDGen{}
	item := boolMatchItem(g)

	mod := &ir.Module{Name: "test"}
	fn := LowerFunction(mod, item, nil, nil)

	var condBrCount, unreachableCount, retCount int
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		switch term.Opcode {
		case ir.OpCondBr:
			condBrCount++
		case ir.OpUnreachable:
			unreachableCount++
		case ir.OpRet:
			retCount++
		}
	}
	require.Equal(t, 2, condBrCount) // one test per arm
	require.Equal(t, 1, unreachableCount) // fall-through after the last arm
	require.Equal(t, 1, retCount)
}

// closureItem builds `fn makeAdder(x: Int) -> (Int) -> Int { |y: Int| x + y }`.
func closureItem(g *ast.IDGen) *ast.FuncItem {
	sp := source.Span{}
	fn := ast.NewFuncItem(g, sp, "makeAdder")
	xPat := ast.NewIdentifierPattern(g, sp, "x")
	fn.Params = []ast.Param{{Pattern: xPat, Annotation: types.Int}}
	closureType := types.Func{Params: []types.Type{types.Int}, Return: types.Int}
	fn.Return = closureType

	x := ast.NewIdentifier(g, sp, "x")
	x.SetInferredType(types.Int)
	y := ast.NewIdentifier(g, sp, "y")
	y.SetInferredType(types.Int)
	sum := ast.NewBinaryExpr(g, sp, ast.BinAdd, x, y)
	sum.SetInferredType(types.Int)

	yPat := ast.NewIdentifierPattern(g, sp, "y")
	closure := ast.NewClosureExpr(g, sp, []ast.Param{{Pattern: yPat, Annotation: types.Int}}, sum, false)
	closure.SetInferredType(closureType)

	body := ast.NewBlockExpr(g, sp, nil, closure)
	body.SetInferredType(closureType)
	fn.Body = body
	return fn
}

func TestLowerClosureExtractsFunctionAndCapturesEnclosingLocal(t *testing.T) {
	g := &ast.IDGen{}
	prog := ast.NewProgram(g, source.Span{}, "test.nova", "test")
	prog.Items = []ast.Item{closureItem(g)}

	mod := LowerProgram(prog, nil, nil)

	require.Len(t, mod.Functions, 2)
	require.Equal(t, "makeAdder", mod.Functions[0].Name)
	closureFn := mod.Functions[1]
	require.Equal(t, "makeAdder$closure0", closureFn.Name)
	// env param plus the closure's own declared param.
	require.Len(t, closureFn.Block(closureFn.Entry).Params, 2)

	var sawEnvNew, sawClosureNew bool
	for _, inst := range mod.Functions[0].Block(mod.Functions[0].Entry).Instructions {
		if inst.Opcode == ir.OpCallIntrinsic && inst.Intrinsic == "env_new" {
			sawEnvNew = true
		}
		if inst.Opcode == ir.OpCallIntrinsic && inst.Intrinsic == "closure_new" {
			sawClosureNew = true
		}
	}
	require.True(t, sawEnvNew)
	require.True(t, sawClosureNew)
}
