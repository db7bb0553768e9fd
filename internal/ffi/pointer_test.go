package ffi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPointerRegistryResolveSucceedsForALiveHandle(t *testing.T) {
	r := NewPointerRegistry()
	h := r.Register("Buffer", 0)

	tag, err := r.Resolve(h)
	require.NoError(t, err)
	require.Equal(t, "Buffer", tag)
}

func TestPointerRegistryRejectsTheNullHandle(t *testing.T) {
	r := NewPointerRegistry()
	_, err := r.Resolve(0)
	require.ErrorIs(t, err, ErrDenied)
}

func TestPointerRegistryRejectsAnUnregisteredHandle(t *testing.T) {
	r := NewPointerRegistry()
	_, err := r.Resolve(Handle(9999))
	require.ErrorIs(t, err, ErrDenied)
}

func TestPointerRegistryRejectsADoubleFree(t *testing.T) {
	r := NewPointerRegistry()
	h := r.Register("Buffer", 0)
	require.NoError(t, r.Free(h))

	err := r.Free(h)
	require.ErrorIs(t, err, ErrDenied)

	_, err = r.Resolve(h)
	require.ErrorIs(t, err, ErrDenied)
}

func TestPointerRegistryRejectsAnExpiredHandle(t *testing.T) {
	r := NewPointerRegistry()
	h := r.Register("Buffer", time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := r.Resolve(h)
		return err != nil
	}, time.Second, time.Millisecond)
}
