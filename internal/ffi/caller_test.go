package ffi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/config"
	"github.com/nova-lang/nova/internal/ffiaudit"
	"github.com/nova-lang/nova/internal/rtvalue"
)

type recordingAudit struct {
	allowed []string
	denied  []string
}

func (a *recordingAudit) Record(fnName string, argc int, allowed bool, reason string) {
	if allowed {
		a.allowed = append(a.allowed, fnName)
	} else {
		a.denied = append(a.denied, fnName)
	}
}

func TestCallerRoutesAnAllowedCallThroughTheBridgeAndAuditsIt(t *testing.T) {
	client, cleanup := startTestBridge(t)
	defer cleanup()

	validator := NewValidator(config.DefaultLimits(), Whitelist)
	audit := &recordingAudit{}
	caller := NewCaller(validator, client, audit, newTestString)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := caller.Call(ctx, "strings.ToUpper", []rtvalue.Value{newTestString(" physics")})
	require.NoError(t, err)

	s, ok := result.Obj.(ffiString)
	require.True(t, ok)
	require.Equal(t, " PHYSICS", s.StringValue())

	require.Equal(t, []string{"strings.ToUpper"}, audit.allowed)
	require.Empty(t, audit.denied)
}

func TestCallerDeniesAndAuditsAnUnwhitelistedCallWithoutTouchingTheBridge(t *testing.T) {
	validator := NewValidator(config.DefaultLimits(), Whitelist)
	audit := &recordingAudit{}
	// No bridge is needed: a denial must never reach HostBridge.Call.
	caller := NewCaller(validator, nil, audit, newTestString)

	_, err := caller.Call(context.Background(), "os.RemoveAll", []rtvalue.Value{newTestString("/")})
	require.ErrorIs(t, err, ErrDenied)

	require.Equal(t, []string{"os.RemoveAll"}, audit.denied)
	require.Empty(t, audit.allowed)
}

func TestCallerAuditsThroughARealFFIAuditLog(t *testing.T) {
	client, cleanup := startTestBridge(t)
	defer cleanup()

	log, err := ffiaudit.Open(":memory:")
	require.NoError(t, err)
	defer log.Close()

	validator := NewValidator(config.DefaultLimits(), Whitelist)
	caller := NewCaller(validator, client, log, newTestString)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = caller.Call(ctx, "strings.ToUpper", []rtvalue.Value{newTestString("physics")})
	require.NoError(t, err)

	_, err = caller.Call(ctx, "os.RemoveAll", []rtvalue.Value{newTestString("/")})
	require.ErrorIs(t, err, ErrDenied)

	entries, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "os.RemoveAll", entries[0].FnName)
	require.False(t, entries[0].Allowed)
	require.Equal(t, "strings.ToUpper", entries[1].FnName)
	require.True(t, entries[1].Allowed)

	count, err := log.DeniedSince(ctx, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
