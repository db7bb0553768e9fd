package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/lexer"
	"github.com/nova-lang/nova/internal/source"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	unit := source.NewUnit(1, "<test>", src)
	lx := lexer.New(unit)
	toks := lx.Tokenize()
	require.Empty(t, lx.Diagnostics.Diagnostics())
	p := New(unit, toks)
	prog := p.ParseProgram()
	require.Empty(t, p.Diagnostics().Diagnostics())
	return prog
}

func TestParseFuncItem(t *testing.T) {
	prog := parse(t, "fn add(a, b) -> Int {\n  a + b\n}\n")
	require.Len(t, prog.Items, 1)
	fn, ok := prog.Items[0].(*ast.FuncItem)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	require.NotNil(t, fn.Body.Tail)
}

func TestParseLetAndMatch(t *testing.T) {
	src := `
fn classify(x) -> Int {
  let result = match x {
    0 -> 1,
    n if n > 0 -> 2,
    _ -> 3,
  }
  result
}
`
	prog := parse(t, src)
	fn := prog.Items[0].(*ast.FuncItem)
	letStmt, ok := fn.Body.Stmts[0].(*ast.LetStmt)
	require.True(t, ok)
	match, ok := letStmt.Value.(*ast.MatchExpr)
	require.True(t, ok)
	require.Len(t, match.Arms, 3)
	require.NotNil(t, match.Arms[1].Guard)
}

func TestParseStructAndEnum(t *testing.T) {
	src := `
struct Point { x: Int, y: Int }
enum Option<T> { Some(T), None }
`
	prog := parse(t, src)
	require.Len(t, prog.Items, 2)
	st := prog.Items[0].(*ast.StructItem)
	require.Equal(t, "Point", st.Name)
	require.Len(t, st.Fields, 2)
	en := prog.Items[1].(*ast.EnumItem)
	require.Equal(t, "Option", en.Name)
	require.Len(t, en.Variants, 2)
	require.Len(t, en.Variants[0].Payload, 1)
}

func TestParseConstClosure(t *testing.T) {
	prog := parse(t, "const DOUBLE = |x| x * 2\n")
	c := prog.Items[0].(*ast.ConstItem)
	closure, ok := c.Value.(*ast.ClosureExpr)
	require.True(t, ok)
	require.Len(t, closure.Params, 1)
	require.False(t, closure.IsAsync)
}

func TestParseArrayPatternWithRest(t *testing.T) {
	src := `
fn head(xs) -> Int {
  match xs {
    [first, ...rest] -> first,
    [] -> 0,
  }
}
`
	prog := parse(t, src)
	fn := prog.Items[0].(*ast.FuncItem)
	match := fn.Body.Tail.(*ast.MatchExpr)
	arr, ok := match.Arms[0].Pattern.(*ast.ArrayPattern)
	require.True(t, ok)
	require.True(t, arr.HasRest)
	require.Equal(t, "rest", arr.Rest)
}

func TestImportExport(t *testing.T) {
	src := "import \"math\" as m\nexport add\n" + "fn add(a, b) -> Int { a + b }\n"
	prog := parse(t, src)
	require.Len(t, prog.Imports, 1)
	require.Equal(t, "math", prog.Imports[0].Path)
	require.Equal(t, "m", prog.Imports[0].Alias)
	require.Len(t, prog.Exports, 1)
	require.Equal(t, "add", prog.Exports[0].Name)
}
