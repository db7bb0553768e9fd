package patterns

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/types"
)

func ctorPat(name string, args ...*Pat) *Pat {
	return &Pat{Kind: Ctor, CtorName: name, Args: args}
}

func litPat(v any) *Pat { return &Pat{Kind: Literal, Literal: v} }

func TestNonExhaustiveBool(t *testing.T) {
	oracle := NewEnumRegistry()
	arms := []Arm{
		{Alts: []*Pat{litPat(true)}},
	}
	res := CheckMatch(types.Bool, arms, oracle)
	require.NotNil(t, res.Missing)
	require.Empty(t, res.UnreachableArms)
}

func TestExhaustiveBool(t *testing.T) {
	oracle := NewEnumRegistry()
	arms := []Arm{
		{Alts: []*Pat{litPat(true)}},
		{Alts: []*Pat{litPat(false)}},
	}
	res := CheckMatch(types.Bool, arms, oracle)
	require.Nil(t, res.Missing)
	require.Empty(t, res.UnreachableArms)
}

func TestExhaustiveBoolViaWildcard(t *testing.T) {
	oracle := NewEnumRegistry()
	arms := []Arm{
		{Alts: []*Pat{litPat(true)}},
		{Alts: []*Pat{wildcard()}},
	}
	res := CheckMatch(types.Bool, arms, oracle)
	require.Nil(t, res.Missing)
}

func TestUnreachableArmAfterWildcard(t *testing.T) {
	oracle := NewEnumRegistry()
	arms := []Arm{
		{Alts: []*Pat{wildcard()}},
		{Alts: []*Pat{litPat(true)}},
	}
	res := CheckMatch(types.Bool, arms, oracle)
	require.Equal(t, []int{1}, res.UnreachableArms)
	require.Nil(t, res.Missing)
}

func TestNonExhaustiveEnum(t *testing.T) {
	oracle := NewEnumRegistry()
	oracle.Register("Option", []Ctor{{Name: "Some", Arity: 1}, {Name: "None", Arity: 0}})
	optT := types.Named{Name: "Option", Args: []types.Type{types.Int}}

	arms := []Arm{
		{Alts: []*Pat{ctorPat("Some", wildcard())}},
	}
	res := CheckMatch(optT, arms, oracle)
	require.NotNil(t, res.Missing)
	require.Equal(t, "None", res.Missing.String())
}

func TestExhaustiveEnum(t *testing.T) {
	oracle := NewEnumRegistry()
	oracle.Register("Option", []Ctor{{Name: "Some", Arity: 1}, {Name: "None", Arity: 0}})
	optT := types.Named{Name: "Option", Args: []types.Type{types.Int}}

	arms := []Arm{
		{Alts: []*Pat{ctorPat("Some", wildcard())}},
		{Alts: []*Pat{ctorPat("None")}},
	}
	res := CheckMatch(optT, arms, oracle)
	require.Nil(t, res.Missing)
	require.Empty(t, res.UnreachableArms)
}

func TestGuardedArmNeverDischargesExhaustiveness(t *testing.T) {
	oracle := NewEnumRegistry()
	arms := []Arm{
		{Alts: []*Pat{wildcard()}, Guarded: true},
	}
	res := CheckMatch(types.Bool, arms, oracle)
	require.NotNil(t, res.Missing)
}

func TestArrayExhaustiveWithBareRest(t *testing.T) {
	oracle := NewEnumRegistry()
	arms := []Arm{
		{Alts: []*Pat{{Kind: Array, HasRest: true}}},
	}
	res := CheckMatch(types.Array{Elem: types.Int}, arms, oracle)
	require.Nil(t, res.Missing)
}

func TestArrayNonExhaustiveWithoutRest(t *testing.T) {
	oracle := NewEnumRegistry()
	arms := []Arm{
		{Alts: []*Pat{{Kind: Array}}},
	}
	res := CheckMatch(types.Array{Elem: types.Int}, arms, oracle)
	require.NotNil(t, res.Missing)
}
