package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// buildAddChunk assembles, by hand, the bytecode for `fn() { 2 + 3 }`:
// CONSTANT 0 (2); CONSTANT 1 (3); ADD; RETURN.
func buildAddChunk() *Chunk {
	c := NewChunk("test")
	two := c.AddConstant(rtvalue.Int(2))
	three := c.AddConstant(rtvalue.Int(3))
	c.WriteOp(OpConstant, 1)
	c.WriteUint16(uint16(two), 1)
	c.WriteOp(OpConstant, 1)
	c.WriteUint16(uint16(three), 1)
	c.WriteOp(OpAdd, 1)
	c.WriteOp(OpReturn, 1)
	return c
}

func TestVMAddsTwoConstants(t *testing.T) {
	fn := &CompiledFunction{Name: "main", Arity: 0, NumLocals: 0, Chunk: buildAddChunk()}
	m := New(context.Background())
	defer m.Close()
	m.Define(fn)

	result, err := m.Call(fn, rtvalue.Unit(), nil)
	require.NoError(t, err)
	require.Equal(t, int64(5), result.AsInt())
}

// buildLocalsChunk assembles `fn(x) { let y = x * 2; y }`: one param in
// slot 0, one local in slot 1.
func buildLocalsChunk() *Chunk {
	c := NewChunk("test")
	two := c.AddConstant(rtvalue.Int(2))
	c.WriteOp(OpGetLocal, 1)
	c.WriteUint16(0, 1)
	c.WriteOp(OpConstant, 1)
	c.WriteUint16(uint16(two), 1)
	c.WriteOp(OpMul, 1)
	c.WriteOp(OpSetLocal, 1)
	c.WriteUint16(1, 1)
	c.WriteOp(OpGetLocal, 1)
	c.WriteUint16(1, 1)
	c.WriteOp(OpReturn, 1)
	return c
}

func TestVMLocalSlotsRoundTrip(t *testing.T) {
	fn := &CompiledFunction{Name: "double", Arity: 1, NumLocals: 2, Chunk: buildLocalsChunk()}
	m := New(context.Background())
	defer m.Close()
	m.Define(fn)

	result, err := m.Call(fn, rtvalue.Unit(), []rtvalue.Value{rtvalue.Int(21)})
	require.NoError(t, err)
	require.Equal(t, int64(42), result.AsInt())
}

// buildCallChunk assembles a caller invoking a direct callee by name.
func buildCallChunk(calleeIdx int) *Chunk {
	c := NewChunk("test")
	one := c.AddConstant(rtvalue.Int(1))
	name := c.AddName("callee")
	c.WriteOp(OpConstant, 1)
	c.WriteUint16(uint16(one), 1)
	c.WriteOp(OpCall, 1)
	c.WriteUint16(uint16(name), 1)
	c.WriteOp(OpReturn, 1)
	return c
}

func buildIncChunk() *Chunk {
	c := NewChunk("test")
	one := c.AddConstant(rtvalue.Int(1))
	c.WriteOp(OpGetLocal, 1)
	c.WriteUint16(0, 1)
	c.WriteOp(OpConstant, 1)
	c.WriteUint16(uint16(one), 1)
	c.WriteOp(OpAdd, 1)
	c.WriteOp(OpReturn, 1)
	return c
}

func TestVMDirectCallDispatchesByName(t *testing.T) {
	m := New(context.Background())
	defer m.Close()
	callee := &CompiledFunction{Name: "callee", Arity: 1, NumLocals: 1, Chunk: buildIncChunk()}
	caller := &CompiledFunction{Name: "main", Arity: 0, NumLocals: 0, Chunk: buildCallChunk(0)}
	m.Define(callee)
	m.Define(caller)

	result, err := m.Call(caller, rtvalue.Unit(), nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), result.AsInt())
}

func TestVMDivisionByZeroTraps(t *testing.T) {
	c := NewChunk("test")
	zero := c.AddConstant(rtvalue.Int(0))
	ten := c.AddConstant(rtvalue.Int(10))
	c.WriteOp(OpConstant, 1)
	c.WriteUint16(uint16(ten), 1)
	c.WriteOp(OpConstant, 1)
	c.WriteUint16(uint16(zero), 1)
	c.WriteOp(OpDiv, 1)
	c.WriteOp(OpReturn, 1)

	fn := &CompiledFunction{Name: "divZero", Chunk: c}
	m := New(context.Background())
	defer m.Close()
	_, err := m.Call(fn, rtvalue.Unit(), nil)
	require.ErrorIs(t, err, rtvalue.ErrDivisionByZero)
}

func TestIntrinsicArrayLenAndIndex(t *testing.T) {
	m := New(context.Background())
	defer m.Close()
	arr := rtvalue.Obj(NewObjArray([]rtvalue.Value{rtvalue.Int(10), rtvalue.Int(20), rtvalue.Int(30)}))

	lenFn := m.intrinsics["array_len"]
	n, err := lenFn(m, []rtvalue.Value{arr})
	require.NoError(t, err)
	require.Equal(t, int64(3), n.AsInt())

	v, err := gepDynamic(arr, rtvalue.Int(1))
	require.NoError(t, err)
	require.Equal(t, int64(20), v.AsInt())

	_, err = gepDynamic(arr, rtvalue.Int(5))
	require.ErrorIs(t, err, rtvalue.ErrIndexOutOfBounds)
}

func TestClosureIntrinsicsRoundTrip(t *testing.T) {
	m := New(context.Background())
	defer m.Close()
	adder := &CompiledFunction{Name: "adder$closure0", Arity: 1, NumLocals: 2, HasEnv: true, Chunk: buildEnvAddChunk()}
	m.Define(adder)

	envNew := m.intrinsics["env_new"]
	env, err := envNew(m, []rtvalue.Value{rtvalue.Int(1), rtvalue.Int(100)})
	require.NoError(t, err)

	closureNew := m.intrinsics["closure_new"]
	closureVal, err := closureNew(m, []rtvalue.Value{rtvalue.Obj(NewObjString("adder$closure0")), env})
	require.NoError(t, err)

	closure := closureVal.Obj.(*ObjClosure)
	result, err := m.Call(closure.Fn, closure.Env, []rtvalue.Value{rtvalue.Int(5)})
	require.NoError(t, err)
	require.Equal(t, int64(105), result.AsInt())
}

// buildEnvAddChunk assembles `|y| env[0] + y`: slot 0 is the env
// handle, slot 1 the declared param y.
func buildEnvAddChunk() *Chunk {
	c := NewChunk("test")
	idx0 := c.AddConstant(rtvalue.Int(0))
	envGet := c.AddName("env_get")
	c.WriteOp(OpGetLocal, 1)
	c.WriteUint16(0, 1)
	c.WriteOp(OpConstant, 1)
	c.WriteUint16(uint16(idx0), 1)
	c.WriteOp(OpCallIntrinsic, 1)
	c.WriteUint16(uint16(envGet), 1)
	c.WriteUint16(2, 1)
	c.WriteOp(OpGetLocal, 1)
	c.WriteUint16(1, 1)
	c.WriteOp(OpAdd, 1)
	c.WriteOp(OpReturn, 1)
	return c
}

// TestReferenceCycleIsCollected is the runtime half of spec scenario
// 4: two records pointing at each other (`a.next = b`, `b.next = a`)
// whose only remaining owner drops both, by routing through the same
// rc_retain/rc_release intrinsics generated code uses, then expects
// the cycle collector to reclaim them (not the Go garbage collector
// doing it incidentally — StrongCount reaching zero is itself the
// observable proof).
func TestReferenceCycleIsCollected(t *testing.T) {
	m := New(context.Background())
	defer m.Close()

	a := NewObjRecord("", map[string]rtvalue.Value{}, nil)
	b := NewObjRecord("", map[string]rtvalue.Value{}, nil)
	aVal := rtvalue.Obj(a)
	bVal := rtvalue.Obj(b)
	a.Fields["next"] = bVal
	b.Fields["next"] = aVal

	retain := m.intrinsics["rc_retain"]
	release := m.intrinsics["rc_release"]

	// a's field retains b, b's field retains a (mirrors what
	// internal/lower emits around every store into a handle-typed
	// field), then the owning scope releases its own two handles.
	_, err := retain(m, []rtvalue.Value{bVal})
	require.NoError(t, err)
	_, err = retain(m, []rtvalue.Value{aVal})
	require.NoError(t, err)
	_, err = release(m, []rtvalue.Value{aVal})
	require.NoError(t, err)
	_, err = release(m, []rtvalue.Value{bVal})
	require.NoError(t, err)

	require.EqualValues(t, 1, a.Box.StrongCount())
	require.EqualValues(t, 1, b.Box.StrongCount())

	collected := m.Collector().Collect()
	require.Equal(t, 2, collected)
	require.EqualValues(t, 0, a.Box.StrongCount())
	require.EqualValues(t, 0, b.Box.StrongCount())
}
