package extgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfigDecodesAMinimalWhitelist(t *testing.T) {
	yaml := `
deps:
  - pkg: strings
    funcs:
      - func: ToUpper
      - func: ToLower
        as: strings.Lower
`
	cfg, err := ParseConfig([]byte(yaml), "nova.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Deps, 1)

	dep := cfg.Deps[0]
	require.Equal(t, "strings", dep.Pkg)
	require.Len(t, dep.Funcs, 2)
	require.Equal(t, "strings.ToUpper", dep.ResolvedName(dep.Funcs[0]))
	require.Equal(t, "strings.Lower", dep.ResolvedName(dep.Funcs[1]))
}

func TestParseConfigRejectsADepWithoutAPackage(t *testing.T) {
	_, err := ParseConfig([]byte("deps:\n  - funcs:\n      - func: ToUpper\n"), "nova.yaml")
	require.Error(t, err)
}

func TestParseConfigRejectsAFuncSpecWithoutAName(t *testing.T) {
	_, err := ParseConfig([]byte("deps:\n  - pkg: strings\n    funcs:\n      - as: upper\n"), "nova.yaml")
	require.Error(t, err)
}
