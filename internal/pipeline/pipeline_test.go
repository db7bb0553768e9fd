package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineCompilesAndRunsAnAddFunction(t *testing.T) {
	src := `
fn main() -> Int {
  add(2, 3)
}

fn add(a, b) -> Int {
  a + b
}
`
	ctx := NewPipelineContext("<test>", src)
	out := Default().Run(ctx)

	require.Empty(t, out.Errors)
	require.NotNil(t, out.AstRoot)
	require.NotNil(t, out.IRModule)
	require.Contains(t, out.Compiled, "main")
	require.Contains(t, out.Compiled, "add")

	require.Equal(t, int64(5), out.Result.AsInt())
}

func TestLexProcessorPopulatesTheTokenStream(t *testing.T) {
	ctx := NewPipelineContext("<test>", "fn main() -> Int {\n  1\n}\n")
	out := New(&LexProcessor{}).Run(ctx)
	require.NotEmpty(t, out.TokenStream)
}

func TestParseProcessorFailsClosedWithoutALexStage(t *testing.T) {
	ctx := NewPipelineContext("<test>", "fn main() -> Int {\n  1\n}\n")
	out := New(&ParseProcessor{}).Run(ctx)
	require.NotEmpty(t, out.Errors)
	require.Nil(t, out.AstRoot)
}

func TestExecuteProcessorReportsAMissingEntryPoint(t *testing.T) {
	ctx := NewPipelineContext("<test>", "fn notmain() -> Int {\n  1\n}\n")
	out := Default().Run(ctx)
	require.NotEmpty(t, out.Errors)
}
