package ffi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/rtvalue"
)

type testStringObj struct{ val string }

func (o testStringObj) StringValue() string { return o.val }
func (o testStringObj) TypeTag() string     { return "String" }
func (o testStringObj) Inspect() string     { return o.val }
func (o testStringObj) Hash() uint32        { return 0 }

func newTestString(s string) rtvalue.Value {
	return rtvalue.Obj(testStringObj{val: s})
}

func startTestBridge(t *testing.T) (*HostBridge, func()) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	funcs := HostFuncs(newTestString)
	srv, err := NewServer(funcs, newTestString)
	require.NoError(t, err)

	go func() { _ = srv.ServeListener(lis) }()

	client, err := DialHostBridge(lis.Addr().String())
	require.NoError(t, err)

	return client, func() {
		client.Close()
		srv.Stop()
	}
}

func TestHostBridgeRoundTripsAWhitelistedCall(t *testing.T) {
	client, cleanup := startTestBridge(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.Call(ctx, "strings.ToUpper", []rtvalue.Value{newTestString("hola")}, newTestString)
	require.NoError(t, err)

	s, ok := result.Obj.(ffiString)
	require.True(t, ok)
	require.Equal(t, "HOLA", s.StringValue())
}

func TestHostBridgeReturnsAnErrorForAnUnknownFunction(t *testing.T) {
	client, cleanup := startTestBridge(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Call(ctx, "no.such.fn", nil, newTestString)
	require.Error(t, err)
}
