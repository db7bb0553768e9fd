package ffi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/config"
)

func TestValidatorAllowsAWhitelistedCallWithMatchingArity(t *testing.T) {
	v := NewValidator(config.DefaultLimits(), map[string]int{"strings.ToUpper": 1})
	require.NoError(t, v.Check("strings.ToUpper", 1))
}

func TestValidatorDeniesAnUnlistedFunction(t *testing.T) {
	v := NewValidator(config.DefaultLimits(), map[string]int{"strings.ToUpper": 1})
	err := v.Check("os.RemoveAll", 1)
	require.ErrorIs(t, err, ErrDenied)
}

func TestValidatorDeniesAWrongArgumentCount(t *testing.T) {
	v := NewValidator(config.DefaultLimits(), map[string]int{"strings.ToUpper": 1})
	err := v.Check("strings.ToUpper", 2)
	require.ErrorIs(t, err, ErrDenied)
}

func TestValidatorDeniesABlacklistedNamePatternEvenIfWhitelisted(t *testing.T) {
	whitelist := map[string]int{"os.Exec": 1}
	v := NewValidator(config.DefaultLimits(), whitelist)
	err := v.Check("os.Exec", 1)
	require.ErrorIs(t, err, ErrDenied)
}

func TestValidatorEnforcesThePerSecondRateLimit(t *testing.T) {
	limits := config.DefaultLimits()
	limits.FFICallsPerSecond = 2
	v := NewValidator(limits, map[string]int{"strings.ToUpper": 1})

	require.NoError(t, v.Check("strings.ToUpper", 1))
	require.NoError(t, v.Check("strings.ToUpper", 1))
	err := v.Check("strings.ToUpper", 1)
	require.ErrorIs(t, err, ErrDenied)
}
