package codegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/rtvalue"
	"github.com/nova-lang/nova/internal/types"
	"github.com/nova-lang/nova/internal/vm"
)

// buildAbsFunction builds, directly against the ir.Builder, the same
// `fn abs(x: Int) -> Int { if x < 0 { 0 - x } else { x } }` shape
// internal/lower would produce, to test codegen in isolation from the
// lowering pass.
func buildAbsFunction() *ir.Function {
	fn := &ir.Function{Name: "abs", Sig: types.Func{Params: []types.Type{types.Int}, Return: types.Int}}
	b := ir.NewBuilder(fn)
	entry := b.CreateBlock()
	fn.Entry = entry.ID
	x := b.Param(types.Int)
	entry.Params = append(entry.Params, x)

	thenBlk := b.CreateBlock()
	elseBlk := b.CreateBlock()
	joinBlk := &ir.BasicBlock{ID: 99, Params: []ir.Value{{ID: 900, Type: types.Int}}}
	fn.Blocks = append(fn.Blocks, joinBlk)

	b.SetBlock(entry)
	zero := b.Const(int64(0), types.Int)
	cond := b.Binary("<", x.ID, zero, types.Bool)
	b.CondBr(cond, thenBlk.ID, nil, elseBlk.ID, nil)

	b.SetBlock(thenBlk)
	zero2 := b.Const(int64(0), types.Int)
	neg := b.Binary("-", zero2, x.ID, types.Int)
	b.Br(joinBlk.ID, neg)

	b.SetBlock(elseBlk)
	b.Br(joinBlk.ID, x.ID)

	b.SetBlock(joinBlk)
	b.Ret(joinBlk.Params[0].ID, true)

	return fn
}

func TestCodegenCompilesAbsAndVMRunsIt(t *testing.T) {
	fn := buildAbsFunction()
	mod := &ir.Module{Name: "test", Functions: []*ir.Function{fn}}

	compiled, err := Compile(mod)
	require.NoError(t, err)
	require.Contains(t, compiled, "abs")

	m := vm.New(context.Background())
	defer m.Close()
	for _, cf := range compiled {
		m.Define(cf)
	}

	abs := compiled["abs"]
	result, err := m.Call(abs, rtvalue.Unit(), []rtvalue.Value{rtvalue.Int(-7)})
	require.NoError(t, err)
	require.Equal(t, int64(7), result.AsInt())

	result2, err := m.Call(abs, rtvalue.Unit(), []rtvalue.Value{rtvalue.Int(4)})
	require.NoError(t, err)
	require.Equal(t, int64(4), result2.AsInt())
}
