package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/types"
)

// buildAbs builds `fn abs(x: Int) -> Int { if x < 0 { -x } else { x } }`
// directly with the builder, the way lowering (C11) would.
func buildAbs() *Function {
	fn := &Function{Name: "abs", Sig: types.Func{Params: []types.Type{types.Int}, Return: types.Int}}
	b := NewBuilder(fn)

	entry := b.CreateBlock()
	x := b.Param(types.Int)
	entry.Params = []Value{x}
	fn.Entry = entry.ID

	thenBlk := &BasicBlock{ID: 1}
	elseBlk := &BasicBlock{ID: 2}
	joinBlk := &BasicBlock{ID: 3, Params: []Value{{ID: 100, Type: types.Int, Origin: OriginParam}}}
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

func TestBuilderProducesWellFormedBlocks(t *testing.T) {
	fn := buildAbs()
	require.Len(t, fn.Blocks, 4)

	for _, blk := range fn.Blocks {
		term := blk.Terminator()
		require.NotNilf(t, term, "block %d has no terminator", blk.ID)
		require.Truef(t, term.Opcode.IsTerminator(), "block %d's last instruction %s is not a terminator", blk.ID, term.Opcode)
		for i, inst := range blk.Instructions[:len(blk.Instructions)-1] {
			require.Falsef(t, inst.Opcode.IsTerminator(), "block %d has a mid-block terminator at index %d", blk.ID, i)
		}
	}
}

func TestCondBrCarriesBothDestinations(t *testing.T) {
	fn := buildAbs()
	entry := fn.Block(fn.Entry)
	term := entry.Terminator()
	require.Equal(t, OpCondBr, term.Opcode)
	require.EqualValues(t, 1, term.TrueDest)
	require.EqualValues(t, 2, term.FalseDest)
}

func TestJoinBlockReceivesArgsFromBothPredecessors(t *testing.T) {
	fn := buildAbs()
	thenBlk := fn.Block(1)
	elseBlk := fn.Block(2)
	require.Len(t, thenBlk.Terminator().TrueArgs, 1)
	require.Len(t, elseBlk.Terminator().TrueArgs, 1)
}

func TestOpcodeStringRoundTrip(t *testing.T) {
	for _, op := range []Opcode{OpConst, OpAlloc, OpLoad, OpStore, OpGep, OpBinary, OpUnary, OpCast, OpCall, OpCallIntrinsic, OpSuspend, OpBr, OpCondBr, OpRet, OpUnreachable} {
		require.NotContains(t, op.String(), "opcode(")
	}
}

func TestModuleFunctionLookup(t *testing.T) {
	mod := &Module{Name: "main", Functions: []*Function{buildAbs()}}
	require.NotNil(t, mod.Function("abs"))
	require.Nil(t, mod.Function("missing"))
}
