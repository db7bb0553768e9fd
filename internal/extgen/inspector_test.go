package extgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspectResolvesAWhitelistedStdlibFunction(t *testing.T) {
	cfg := &Config{
		Deps: []Dep{
			{
				Pkg: "strings",
				Funcs: []FuncSpec{
					{Func: "ToUpper"},
					{Func: "Contains", As: "strings.Contains"},
				},
			},
		},
	}

	result, err := Inspect(cfg)
	require.NoError(t, err)
	require.Len(t, result.Funcs, 2)

	byName := make(map[string]ResolvedFunc, len(result.Funcs))
	for _, fn := range result.Funcs {
		byName[fn.DispatchName] = fn
	}

	upper, ok := byName["strings.ToUpper"]
	require.True(t, ok)
	require.Equal(t, []Kind{KindString}, upper.Params)
	require.True(t, upper.HasResult)
	require.Equal(t, KindString, upper.ResultKind)
	require.False(t, upper.HasErrorReturn)

	contains, ok := byName["strings.Contains"]
	require.True(t, ok)
	require.Equal(t, []Kind{KindString, KindString}, contains.Params)
	require.True(t, contains.HasResult)
	require.Equal(t, KindBool, contains.ResultKind)

	require.True(t, strings.Contains("sanity", "sanity"))
}

func TestInspectRejectsAFunctionNotFoundInThePackage(t *testing.T) {
	cfg := &Config{
		Deps: []Dep{
			{Pkg: "strings", Funcs: []FuncSpec{{Func: "NoSuchFunction"}}},
		},
	}
	_, err := Inspect(cfg)
	require.Error(t, err)
}
