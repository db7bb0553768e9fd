package optimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/analysis"
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/types"
)

func TestConstantFoldingFoldsBinaryAndCondBr(t *testing.T) {
	fn := &ir.Function{Name: "f", Sig: types.Func{Return: types.Int}}
	b := ir.NewBuilder(fn)

	entry := b.CreateBlock()
	fn.Entry = entry.ID
	thenBlk := &ir.BasicBlock{ID: 1}
	elseBlk := &ir.BasicBlock{ID: 2}
	joinBlk := &ir.BasicBlock{ID: 3, Params: []ir.Value{{ID: 100, Type: types.Int}}}
	fn.Blocks = append(fn.Blocks, thenBlk, elseBlk, joinBlk)

	lhs := b.Const(int64(1), types.Int)
	rhs := b.Const(int64(2), types.Int)
	sum := b.Binary("+", lhs, rhs, types.Int) // folds to const 3
	cond := b.Const(true, types.Bool)
	b.CondBr(cond, thenBlk.ID, nil, elseBlk.ID, nil)

	b.SetBlock(thenBlk)
	b.Br(joinBlk.ID, sum)
	b.SetBlock(elseBlk)
	zero := b.Const(int64(0), types.Int)
	b.Br(joinBlk.ID, zero)
	b.SetBlock(joinBlk)
	b.Ret(joinBlk.Params[0].ID, true)

	am := analysis.NewManager()
	cf := &ConstantFolding{}
	changed := cf.Apply(fn, am)
	require.True(t, changed)

	// sum's instruction should now be a const 3.
	var sumInst *ir.Instruction
	for _, inst := range entry.Instructions {
		if inst.HasResult && inst.Result == sum {
			sumInst = inst
		}
	}
	require.NotNil(t, sumInst)
	require.Equal(t, ir.OpConst, sumInst.Opcode)
	require.Equal(t, int64(3), sumInst.ConstValue)

	term := entry.Terminator()
	require.Equal(t, ir.OpBr, term.Opcode)
	require.Equal(t, thenBlk.ID, term.TrueDest)
}

func TestDeadCodeEliminationRemovesUnusedPureInstAndUnreachableBlock(t *testing.T) {
	fn := &ir.Function{Name: "f", Sig: types.Func{Return: types.Int}}
	b := ir.NewBuilder(fn)

	entry := b.CreateBlock()
	fn.Entry = entry.ID
	unreachable := &ir.BasicBlock{ID: 9}
	fn.Blocks = append(fn.Blocks, unreachable)

	dead := b.Const(int64(42), types.Int) // never used
	_ = dead
	live := b.Const(int64(7), types.Int)
	b.Ret(live, true)

	unreachable.Instructions = append(unreachable.Instructions, &ir.Instruction{Opcode: ir.OpUnreachable})

	am := analysis.NewManager()
	dce := &DeadCodeElimination{}
	changed := dce.Apply(fn, am)
	require.True(t, changed)

	require.Len(t, fn.Blocks, 1)
	require.Equal(t, entry.ID, fn.Blocks[0].ID)

	for _, inst := range entry.Instructions {
		require.NotEqual(t, dead, inst.Result)
	}
}

func TestDeadCodeEliminationKeepsSideEffectingInstructions(t *testing.T) {
	fn := &ir.Function{Name: "f", Sig: types.Func{Return: types.Unit}}
	b := ir.NewBuilder(fn)
	entry := b.CreateBlock()
	fn.Entry = entry.ID

	ptr := b.Alloc(types.Int)
	v := b.Const(int64(1), types.Int)
	b.Store(ptr, v) // unused result (none), but must survive: side effect
	b.Ret(0, false)

	am := analysis.NewManager()
	dce := &DeadCodeElimination{}
	dce.Apply(fn, am)

	found := false
	for _, inst := range entry.Instructions {
		if inst.Opcode == ir.OpStore {
			found = true
		}
	}
	require.True(t, found)
}

func TestCommonSubexpressionEliminationCollapsesDuplicateAndCommutative(t *testing.T) {
	fn := &ir.Function{Name: "f", Sig: types.Func{Return: types.Int}}
	b := ir.NewBuilder(fn)
	entry := b.CreateBlock()
	fn.Entry = entry.ID

	a := b.Const(int64(1), types.Int)
	c := b.Const(int64(2), types.Int)
	sum1 := b.Binary("+", a, c, types.Int)
	sum2 := b.Binary("+", c, a, types.Int) // same expression, commuted operands
	result := b.Binary("*", sum1, sum2, types.Int)
	b.Ret(result, true)

	am := analysis.NewManager()
	cse := &CommonSubexpressionElimination{}
	changed := cse.Apply(fn, am)
	require.True(t, changed)

	// Only one "+" instruction should remain; the final multiply's
	// operands should both reference it.
	var finalMul *ir.Instruction
	addCount := 0
	for _, inst := range entry.Instructions {
		if inst.Opcode == ir.OpBinary && inst.BinOp == "+" {
			addCount++
		}
		if inst.Opcode == ir.OpBinary && inst.BinOp == "*" {
			finalMul = inst
		}
	}
	require.Equal(t, 1, addCount)
	require.NotNil(t, finalMul)
	require.Equal(t, finalMul.Operands[0], finalMul.Operands[1])
}

func TestManagerRunConvergesToFixpoint(t *testing.T) {
	fn := &ir.Function{Name: "f", Sig: types.Func{Return: types.Int}}
	b := ir.NewBuilder(fn)
	entry := b.CreateBlock()
	fn.Entry = entry.ID

	one := b.Const(int64(1), types.Int)
	two := b.Const(int64(2), types.Int)
	unused := b.Binary("+", one, two, types.Int) // folds, then becomes dead
	_ = unused
	b.Ret(one, true)

	mod := &ir.Module{Name: "m", Functions: []*ir.Function{fn}}
	am := analysis.NewManager()
	NewManager().Run(mod, am)

	for _, inst := range entry.Instructions {
		require.NotEqual(t, unused, inst.Result)
	}
}
