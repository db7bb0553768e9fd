package vm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// buildConstChunk assembles `fn() { <n> }`: push one constant, return it.
func buildConstChunk(n int64) *Chunk {
	c := NewChunk("test")
	k := c.AddConstant(rtvalue.Int(n))
	c.WriteOp(OpConstant, 1)
	c.WriteUint16(uint16(k), 1)
	c.WriteOp(OpReturn, 1)
	return c
}

// TestCallingAsyncFunctionReturnsFutureInsteadOfRunningInline exercises
// the async-call contract from OpCall's perspective: an IsAsync
// function, called directly, yields a Future value rather than its
// result, matching's "async functions... yield control to the
// executor" rather than completing synchronously.
func TestCallingAsyncFunctionReturnsFutureInsteadOfRunningInline(t *testing.T) {
	m := New(context.Background())
	defer m.Close()

	fn := &CompiledFunction{Name: "asyncSeven", Arity: 0, NumLocals: 0, Chunk: buildConstChunk(7), IsAsync: true}
	m.Define(fn)

	result, err := m.callOrSpawn(fn, rtvalue.Unit(), nil)
	require.NoError(t, err)

	fut, ok := result.Obj.(*ObjFuture)
	require.True(t, ok, "expected an ObjFuture, got %T", result.Obj)

	v, err := m.await(rtvalue.Obj(fut))
	require.NoError(t, err)
	require.Equal(t, int64(7), v.AsInt())
}

// TestTaskSpawnAndAwaitIntrinsicsRoundTrip exercises the task_spawn/
// task_await ABI pair end to end through the VM's intrinsic
// table rather than calling internal/async directly.
func TestTaskSpawnAndAwaitIntrinsicsRoundTrip(t *testing.T) {
	m := New(context.Background())
	defer m.Close()

	fn := &CompiledFunction{Name: "asyncNine", Arity: 0, NumLocals: 0, Chunk: buildConstChunk(9), IsAsync: true}
	m.Define(fn)

	futureVal, err := m.callOrSpawn(fn, rtvalue.Unit(), nil)
	require.NoError(t, err)

	taskSpawn := m.intrinsics["task_spawn"]
	taskVal, err := taskSpawn(m, []rtvalue.Value{futureVal})
	require.NoError(t, err)
	_, ok := taskVal.Obj.(*ObjTask)
	require.True(t, ok)

	taskAwait := m.intrinsics["task_await"]
	result, err := taskAwait(m, []rtvalue.Value{taskVal})
	require.NoError(t, err)
	require.Equal(t, int64(9), result.AsInt())
}

// TestFuturePollReportsPendingThenReady exercises future_poll's
// synchronous, non-suspending poll-result contract directly.
func TestFuturePollReportsPendingThenReady(t *testing.T) {
	m := New(context.Background())
	defer m.Close()

	fn := &CompiledFunction{Name: "asyncFive", Arity: 0, NumLocals: 0, Chunk: buildConstChunk(5), IsAsync: true}
	m.Define(fn)

	futureVal, err := m.callOrSpawn(fn, rtvalue.Unit(), nil)
	require.NoError(t, err)

	futurePoll := m.intrinsics["future_poll"]

	require.Eventually(t, func() bool {
		v, err := futurePoll(m, []rtvalue.Value{futureVal, rtvalue.Unit()})
		require.NoError(t, err)
		rec, ok := v.Obj.(*ObjRecord)
		require.True(t, ok)
		if rec.Tag == "Pending" {
			return false
		}
		require.Equal(t, "Ready", rec.Tag)
		require.Equal(t, int64(5), rec.Payload[0].AsInt())
		return true
	}, 2*time.Second, time.Millisecond)
}
