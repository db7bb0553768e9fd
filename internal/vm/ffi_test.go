package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/config"
	"github.com/nova-lang/nova/internal/ffi"
	"github.com/nova-lang/nova/internal/rtvalue"
)

func TestFFICallIntrinsicRejectsAnUnwhitelistedNameWithoutAttachingABridge(t *testing.T) {
	m := New(context.Background())
	defer m.Close()

	validator := ffi.NewValidator(config.DefaultLimits(), map[string]int{"strings.ToUpper": 1})
	caller := ffi.NewCaller(validator, nil, nil, func(s string) rtvalue.Value {
		return rtvalue.Obj(NewObjString(s))
	})
	m.AttachFFI(caller)

	ffiCall := m.intrinsics["ffi_call"]
	_, err := ffiCall(m, []rtvalue.Value{
		rtvalue.Obj(NewObjString("os.RemoveAll")),
		rtvalue.Int(1),
		rtvalue.Obj(NewObjString("/")),
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ffi.ErrDenied)
}

func TestFFICallIntrinsicErrorsWhenNoCallerIsAttached(t *testing.T) {
	m := New(context.Background())
	defer m.Close()

	ffiCall := m.intrinsics["ffi_call"]
	_, err := ffiCall(m, []rtvalue.Value{
		rtvalue.Obj(NewObjString("strings.ToUpper")),
		rtvalue.Int(0),
	})
	require.Error(t, err)
}
