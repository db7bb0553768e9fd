package ffiaudit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordAndRecentRoundTripAnAllowedAndADeniedEntry(t *testing.T) {
	log, err := Open(":memory:")
	require.NoError(t, err)
	defer log.Close()

	log.Record("strings.ToUpper", 1, true, "")
	log.Record("os.RemoveAll", 1, false, "ffi: call denied: \"os.RemoveAll\" is not in the FFI whitelist")

	entries, err := log.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "os.RemoveAll", entries[0].FnName)
	require.False(t, entries[0].Allowed)
	require.Equal(t, "strings.ToUpper", entries[1].FnName)
	require.True(t, entries[1].Allowed)
}

func TestDeniedSinceCountsOnlyDenialsAtOrAfterTheGivenTime(t *testing.T) {
	log, err := Open(":memory:")
	require.NoError(t, err)
	defer log.Close()

	before := time.Now().UTC()
	log.Record("os.RemoveAll", 1, false, "denied")
	log.Record("strings.ToUpper", 1, true, "")

	count, err := log.DeniedSince(context.Background(), before)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
