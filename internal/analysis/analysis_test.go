package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/types"
)

// buildDiamond builds the classic if/else/join diamond:
//
//	entry --cond_br--> thenBlk --br--> joinBlk
//	             \--------------------> elseBlk --br--^
func buildDiamond() *ir.Function {
	fn := &ir.Function{Name: "abs", Sig: types.Func{Params: []types.Type{types.Int}, Return: types.Int}}
	b := ir.NewBuilder(fn)

	entry := b.CreateBlock()
	x := b.Param(types.Int)
	entry.Params = []ir.Value{x}
	fn.Entry = entry.ID

	thenBlk := &ir.BasicBlock{ID: 1}
	elseBlk := &ir.BasicBlock{ID: 2}
	joinBlk := &ir.BasicBlock{ID: 3, Params: []ir.Value{{ID: 100, Type: types.Int, Origin: ir.OriginParam}}}
	fn.Blocks = append(fn.Blocks, thenBlk, elseBlk, joinBlk)

	zero := b.Const(int64(0), types.Int)
	cond := b.Binary("<", x.ID, zero, types.Bool)
	b.CondBr(cond, thenBlk.ID, nil, elseBlk.ID, nil)

	b.SetBlock(thenBlk)
	neg := b.Unary("-", x.ID, types.Int)
	b.Br(joinBlk.ID, neg)

	b.SetBlock(elseBlk)
	b.Br(joinBlk.ID, x.ID)

	b.SetBlock(joinBlk)
	b.Ret(joinBlk.Params[0].ID, true)

	return fn
}

func TestBuildCFGSuccessorsAndPredecessors(t *testing.T) {
	fn := buildDiamond()
	cfg := BuildCFG(fn)

	require.ElementsMatch(t, []ir.BlockID{1, 2}, cfg.Succ[fn.Entry])
	require.ElementsMatch(t, []ir.BlockID{3}, cfg.Succ[1])
	require.ElementsMatch(t, []ir.BlockID{3}, cfg.Succ[2])
	require.Empty(t, cfg.Succ[3])

	require.ElementsMatch(t, []ir.BlockID{1, 2}, cfg.Pred[3])
	require.True(t, cfg.Reachable(3))
}

func TestDominanceImmediateDominators(t *testing.T) {
	fn := buildDiamond()
	cfg := BuildCFG(fn)
	dom := BuildDominance(fn, cfg)

	require.Equal(t, fn.Entry, dom.IDom[fn.Entry])
	require.Equal(t, fn.Entry, dom.IDom[ir.BlockID(1)])
	require.Equal(t, fn.Entry, dom.IDom[ir.BlockID(2)])
	require.Equal(t, fn.Entry, dom.IDom[ir.BlockID(3)]) // join is dominated by entry, not by then/else individually

	require.True(t, dom.Dominates(fn.Entry, ir.BlockID(3)))
	require.False(t, dom.Dominates(ir.BlockID(1), ir.BlockID(3)))
}

func TestDominanceFrontierOfDiamondArms(t *testing.T) {
	fn := buildDiamond()
	cfg := BuildCFG(fn)
	dom := BuildDominance(fn, cfg)

	require.ElementsMatch(t, []ir.BlockID{3}, dom.Frontier[ir.BlockID(1)])
	require.ElementsMatch(t, []ir.BlockID{3}, dom.Frontier[ir.BlockID(2)])
}

func TestUseDefTracksEveryOperandSite(t *testing.T) {
	fn := buildDiamond()
	ud := BuildUseDef(fn)

	entry := fn.Block(fn.Entry)
	xID := entry.Params[0].ID
	require.True(t, ud.IsLive(xID))
	require.GreaterOrEqual(t, len(ud.Uses[xID]), 2) // used in binary cmp and in unary neg
}

func TestLivenessXIsLiveAcrossTheDiamond(t *testing.T) {
	fn := buildDiamond()
	cfg := BuildCFG(fn)
	liveness := BuildLiveness(fn, cfg)

	entry := fn.Block(fn.Entry)
	xID := entry.Params[0].ID
	require.True(t, liveness.LiveOut[fn.Entry][xID]) // x must still be live after entry, for both arms to use it
}

func TestManagerCachesUntilInvalidated(t *testing.T) {
	fn := buildDiamond()
	m := NewManager()

	cfg1 := m.CFG(fn)
	cfg2 := m.CFG(fn)
	require.Same(t, cfg1, cfg2)

	m.Invalidate(fn)
	cfg3 := m.CFG(fn)
	require.NotSame(t, cfg1, cfg3)
}
