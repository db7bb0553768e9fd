package infer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/lexer"
	"github.com/nova-lang/nova/internal/parser"
	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/symbols"
	"github.com/nova-lang/nova/internal/types"
)

func checkProgram(t *testing.T, src string) (*Checker, *symbols.Scope) {
	t.Helper()
	unit := source.NewUnit(1, "<test>", src)
	lx := lexer.New(unit)
	toks := lx.Tokenize()
	require.Empty(t, lx.Diagnostics.Diagnostics())
	p := parser.New(unit, toks)
	prog := p.ParseProgram()
	require.Empty(t, p.Diagnostics().Diagnostics())

	scope := symbols.NewGlobalScope()
	c := NewChecker()
	c.InferProgram(scope, prog)
	return c, scope
}

func TestInferIdentityFunctionKeepsAnnotatedReturnType(t *testing.T) {
	c, scope := checkProgram(t, "fn identity(x) -> Int {\n  x\n}\n")
	require.Empty(t, c.Diagnostics().Diagnostics())

	sym, ok := scope.Lookup("identity")
	require.True(t, ok)
	fn, ok := sym.Type.Type.(types.Func)
	require.True(t, ok)
	require.Len(t, fn.Params, 1)
	require.Equal(t, types.Int, c.Resolve(fn.Return))
}

func TestInferArithmeticMismatchIsDiagnosed(t *testing.T) {
	c, _ := checkProgram(t, "const X = 1 + true\n")
	require.NotEmpty(t, c.Diagnostics().Diagnostics())
}

func TestInferLetGeneralizesOverClosure(t *testing.T) {
	c, scope := checkProgram(t, "const DOUBLE = |x| x * 2\n")
	require.Empty(t, c.Diagnostics().Diagnostics())

	sym, ok := scope.Lookup("DOUBLE")
	require.True(t, ok)
	fn, ok := sym.Type.Type.(types.Func)
	require.True(t, ok)
	require.Len(t, fn.Params, 1)
}

func TestInferMatchArmsMustAgree(t *testing.T) {
	c, _ := checkProgram(t, `
fn classify(x) -> Int {
  match x {
    0 -> 1,
    n if n > 0 -> 2,
    _ -> 3,
  }
}
`)
	require.Empty(t, c.Diagnostics().Diagnostics())
}

func TestInferArrayPatternBindsElementType(t *testing.T) {
	c, _ := checkProgram(t, `
fn head(xs) -> Int {
  match xs {
    [first, ...rest] -> first,
    [] -> 0,
  }
}
`)
	require.Empty(t, c.Diagnostics().Diagnostics())
}

func TestUnifyOccursCheck(t *testing.T) {
	c := NewChecker()
	v := c.fresh()
	err := c.Unify(source.Span{}, v, types.Array{Elem: v})
	require.Error(t, err)
}

func TestUnifyUnknownAcceptsAnything(t *testing.T) {
	c := NewChecker()
	require.NoError(t, c.Unify(source.Span{}, types.Unknown{}, types.Int))
	require.NoError(t, c.Unify(source.Span{}, types.Bool, types.Unknown{}))
}
