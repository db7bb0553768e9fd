package mono

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/types"
)

// identityItem builds `fn identity<T>(x: T) -> T { x }` directly as an
// AST, bypassing the parser since the monomorphizer only ever consumes
// already-parsed-and-checked FuncItems.
func identityItem(g *ast.IDGen) (*ast.FuncItem, types.Scheme) {
	sp := source.Span{}
	fn := ast.NewFuncItem(g, sp, "identity")
	fn.TypeParams = []ast.TypeParam{{Name: "T"}}
	xPat := ast.NewIdentifierPattern(g, sp, "x")
	fn.Params = []ast.Param{{Pattern: xPat, Annotation: types.TParam{Name: "T"}}}
	fn.Return = types.TParam{Name: "T"}

	ident := ast.NewIdentifier(g, sp, "x")
	ident.SetInferredType(types.TParam{Name: "T"})
	body := ast.NewBlockExpr(g, sp, nil, ident)
	body.SetInferredType(types.TParam{Name: "T"})
	fn.Body = body

	scheme := types.Scheme{Params: []string{"T"}, Type: types.Func{Params: []types.Type{types.TParam{Name: "T"}}, Return: types.TParam{Name: "T"}}}
	return fn, scheme
}

func TestSpecializeSubstitutesTypeParam(t *testing.T) {
	g := &ast.IDGen{}
	fn, scheme := identityItem(g)

	m := New(g, nil)
	m.Register("identity", fn, scheme)

	inst, err := m.Specialize(source.Span{}, "identity", map[string]types.Type{"T": types.Int})
	require.NoError(t, err)
	require.NotNil(t, inst)
	require.Equal(t, "identity$Int", inst.MangledName)
	require.Equal(t, types.Int, inst.Item.Return)
	require.Equal(t, types.Int, inst.Item.Params[0].Annotation)

	ret, ok := inst.Item.Body.Tail.InferredType().(types.TCon)
	require.True(t, ok)
	require.Equal(t, types.Int, ret)
}

func TestSpecializeCachesByMangledName(t *testing.T) {
	g := &ast.IDGen{}
	fn, scheme := identityItem(g)

	m := New(g, nil)
	m.Register("identity", fn, scheme)

	a, err := m.Specialize(source.Span{}, "identity", map[string]types.Type{"T": types.Bool})
	require.NoError(t, err)
	b, err := m.Specialize(source.Span{}, "identity", map[string]types.Type{"T": types.Bool})
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Len(t, m.Instances(), 1)
}

func TestSpecializeClonesAreIndependentlyIdentified(t *testing.T) {
	g := &ast.IDGen{}
	fn, scheme := identityItem(g)

	m := New(g, nil)
	m.Register("identity", fn, scheme)

	intInst, err := m.Specialize(source.Span{}, "identity", map[string]types.Type{"T": types.Int})
	require.NoError(t, err)
	boolInst, err := m.Specialize(source.Span{}, "identity", map[string]types.Type{"T": types.Bool})
	require.NoError(t, err)

	require.NotEqual(t, intInst.MangledName, boolInst.MangledName)
	require.NotEqual(t, intInst.Item.ID(), boolInst.Item.ID())
	require.NotEqual(t, intInst.Item.Body.ID(), boolInst.Item.Body.ID())
}

func TestSpecializeUnregisteredNameIsNoop(t *testing.T) {
	g := &ast.IDGen{}
	m := New(g, nil)
	inst, err := m.Specialize(source.Span{}, "nope", map[string]types.Type{"T": types.Int})
	require.NoError(t, err)
	require.Nil(t, inst)
}

type refuseAll struct{}

func (refuseAll) Implements(trait string, t types.Type) bool { return false }

func TestSpecializeRejectsUnsatisfiedTraitBound(t *testing.T) {
	g := &ast.IDGen{}
	fn, scheme := identityItem(g)
	scheme.Bounds = []types.Bound{{Param: "T", Trait: "Ord"}}

	m := New(g, refuseAll{})
	m.Register("identity", fn, scheme)

	inst, err := m.Specialize(source.Span{}, "identity", map[string]types.Type{"T": types.Int})
	require.Error(t, err)
	require.Nil(t, inst)
	require.NotEmpty(t, m.Diagnostics().Diagnostics())
}

func TestMangleNameSortsByParamName(t *testing.T) {
	args := map[string]types.Type{"B": types.Bool, "A": types.Int}
	require.Equal(t, "pair$Int$Bool", MangleName("pair", args))
}
