package vm

import (
	"fmt"

	"github.com/nova-lang/nova/internal/async"
	"github.com/nova-lang/nova/internal/rtvalue"
)

// IntrinsicFunc is the shape every OpCallIntrinsic routine has: the VM
// (for recursive calls, e.g. future_poll invoking its waker closure) plus
// its already-popped argument list.
type IntrinsicFunc func(vm *VM, args []rtvalue.Value) (rtvalue.Value, error)

// registerBuiltinIntrinsics wires up every intrinsic name
// internal/lower emits: closures, pattern matching, and refcounting
// each get a named routine here rather than a dedicated opcode.
func registerBuiltinIntrinsics(vm *VM) {
	vm.DefineIntrinsic("rc_retain", intrinsicRetain)
	vm.DefineIntrinsic("rc_release", intrinsicRelease)
	vm.DefineIntrinsic("env_new", intrinsicEnvNew)
	vm.DefineIntrinsic("env_get", intrinsicEnvGet)
	vm.DefineIntrinsic("closure_new", intrinsicClosureNew)
	vm.DefineIntrinsic("variant_tag", intrinsicVariantTag)
	vm.DefineIntrinsic("variant_payload", intrinsicVariantPayload)
	vm.DefineIntrinsic("array_new", intrinsicArrayNew)
	vm.DefineIntrinsic("array_len", intrinsicArrayLen)
	vm.DefineIntrinsic("array_rest", intrinsicArrayRest)
	vm.DefineIntrinsic("object_rest", intrinsicObjectRest)
	vm.DefineIntrinsic("load_global", intrinsicLoadGlobal)
	vm.DefineIntrinsic("type_check", intrinsicTypeCheck)
	vm.DefineIntrinsic("iter_new", intrinsicIterNew)
	vm.DefineIntrinsic("iter_next", intrinsicIterNext)
	vm.DefineIntrinsic("option_is_some", intrinsicOptionIsSome)
	vm.DefineIntrinsic("option_unwrap", intrinsicOptionUnwrap)
	vm.DefineIntrinsic("future_poll", intrinsicFuturePoll)
	vm.DefineIntrinsic("task_spawn", intrinsicTaskSpawn)
	vm.DefineIntrinsic("task_await", intrinsicTaskAwait)
	vm.DefineIntrinsic("ffi_call", intrinsicFFICall)
}

// retainable is satisfied by a leaf heap object with a manual refcount
// and no outgoing references of its own (today, only ObjString): it
// can never be part of a cycle, so a plain atomic counter is enough
// and it never needs to be reported to the cycle collector. Anything
// that can hold outgoing references instead implements rcBoxed
// (objects.go) and goes through internal/rc's Box. rc_retain/rc_release
// are no-ops for anything satisfying neither (scalars, Unit), matching
// internal/lower/rc.go's own "no-op for non-handle types" contract on
// the producing side.
type retainable interface {
	Retain()
	Release() int32
}

func intrinsicRetain(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("rc_retain: expected 1 arg, got %d", len(args))
	}
	switch r := args[0].Obj.(type) {
	case rcBoxed:
		r.RCBox().Retain()
	case retainable:
		r.Retain()
	}
	return args[0], nil
}

func intrinsicRelease(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("rc_release: expected 1 arg, got %d", len(args))
	}
	switch r := args[0].Obj.(type) {
	case rcBoxed:
		r.RCBox().Release(vm.collector)
	case retainable:
		r.Release()
	}
	return rtvalue.Unit(), nil
}

// intrinsicEnvNew backs internal/lower/closure.go's env_new call:
// args[0] is the capture count, args[1:] the retained capture values
// in declaration order.
func intrinsicEnvNew(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) == 0 {
		return rtvalue.Obj(NewObjEnv(nil)), nil
	}
	slots := append([]rtvalue.Value(nil), args[1:]...)
	return rtvalue.Obj(NewObjEnv(slots)), nil
}

func intrinsicEnvGet(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 2 {
		return rtvalue.Unit(), fmt.Errorf("env_get: expected 2 args, got %d", len(args))
	}
	env, ok := args[0].Obj.(*ObjEnv)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("env_get: first argument is not an environment")
	}
	idx := int(args[1].AsInt())
	if err := rtvalue.BoundsCheck(idx, len(env.Slots)); err != nil {
		return rtvalue.Unit(), err
	}
	return env.Slots[idx], nil
}

func intrinsicClosureNew(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 2 {
		return rtvalue.Unit(), fmt.Errorf("closure_new: expected 2 args, got %d", len(args))
	}
	name, ok := args[0].Obj.(*ObjString)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("closure_new: first argument is not a function name")
	}
	fn, ok := vm.functions[name.Value]
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("closure_new: unknown function %q", name.Value)
	}
	return rtvalue.Obj(&ObjClosure{Fn: fn, Env: args[1]}), nil
}

func intrinsicVariantTag(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("variant_tag: expected 1 arg, got %d", len(args))
	}
	rec, ok := args[0].Obj.(*ObjRecord)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("variant_tag: not a variant value")
	}
	return rtvalue.Obj(NewObjString(rec.Tag)), nil
}

func intrinsicVariantPayload(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 2 {
		return rtvalue.Unit(), fmt.Errorf("variant_payload: expected 2 args, got %d", len(args))
	}
	rec, ok := args[0].Obj.(*ObjRecord)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("variant_payload: not a variant value")
	}
	idx := int(args[1].AsInt())
	if err := rtvalue.BoundsCheck(idx, len(rec.Payload)); err != nil {
		return rtvalue.Unit(), err
	}
	return rec.Payload[idx], nil
}

func intrinsicArrayNew(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	return rtvalue.Obj(NewObjArray(append([]rtvalue.Value(nil), args...))), nil
}

func intrinsicArrayLen(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("array_len: expected 1 arg, got %d", len(args))
	}
	arr, ok := args[0].Obj.(*ObjArray)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("array_len: not an array value")
	}
	return rtvalue.Int(int64(len(arr.Elements))), nil
}

// intrinsicArrayRest backs an array pattern's `...rest` binding
// (internal/lower/destructure.go): args[0] is the scrutinee, args[1]
// the number of leading elements already bound positionally.
func intrinsicArrayRest(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 2 {
		return rtvalue.Unit(), fmt.Errorf("array_rest: expected 2 args, got %d", len(args))
	}
	arr, ok := args[0].Obj.(*ObjArray)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("array_rest: not an array value")
	}
	skip := int(args[1].AsInt())
	if skip > len(arr.Elements) {
		skip = len(arr.Elements)
	}
	return rtvalue.Obj(NewObjArray(append([]rtvalue.Value(nil), arr.Elements[skip:]...))), nil
}

// intrinsicObjectRest backs an object pattern's `...rest` binding:
// args[0] is the scrutinee record, the remaining args the field names
// already bound positionally, to be excluded from the rest record.
func intrinsicObjectRest(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) < 1 {
		return rtvalue.Unit(), fmt.Errorf("object_rest: expected at least 1 arg")
	}
	rec, ok := args[0].Obj.(*ObjRecord)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("object_rest: not a record value")
	}
	taken := map[string]bool{}
	for _, a := range args[1:] {
		if s, ok := a.Obj.(*ObjString); ok {
			taken[s.Value] = true
		}
	}
	rest := map[string]rtvalue.Value{}
	for k, v := range rec.Fields {
		if !taken[k] {
			rest[k] = v
		}
	}
	return rtvalue.Obj(NewObjRecord("", rest, nil)), nil
}

func intrinsicLoadGlobal(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("load_global: expected 1 arg, got %d", len(args))
	}
	name, ok := args[0].Obj.(*ObjString)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("load_global: argument is not a name")
	}
	v, ok := vm.globals.Get(name.Value)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("load_global: undefined global %q", name.Value)
	}
	return v, nil
}

// scalarTypeNames are the types.Type.String() spellings this runtime
// tag check can actually validate against rtvalue.Value.TypeTag():
// anything structural (an Array's "[Int]", a Func signature, a Record
// literal's brace form) is accepted without a runtime check — a
// narrower soundness guarantee than a full structural runtime check
// would give, left for the gradual-typing boundary to tighten later,
// since internal/lower only ever needs the scalar case to catch a
// genuinely wrong Unknown value reaching a concrete Int/Bool/String
// parameter.
var scalarTypeNames = map[string]bool{"Int": true, "Bool": true, "String": true, "Unit": true}

// intrinsicTypeCheck backs internal/lower/coerce.go's Unknown/concrete
// type-boundary insertion: args[0] the value, args[1] the
// expected type's name (types.Type.String(), or "?" for Unknown). A
// mismatch traps rather than silently coercing, since gradual typing's
// soundness boundary is exactly this runtime tag check.
func intrinsicTypeCheck(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 2 {
		return rtvalue.Unit(), fmt.Errorf("type_check: expected 2 args, got %d", len(args))
	}
	want, ok := args[1].Obj.(*ObjString)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("type_check: second argument is not a type name")
	}
	if !scalarTypeNames[want.Value] {
		return args[0], nil
	}
	got := args[0].TypeTag()
	if got != want.Value {
		return rtvalue.Unit(), fmt.Errorf("type_check: expected %s, got %s", want.Value, got)
	}
	return args[0], nil
}

// iterator is the runtime shape every `for` loop's iter_new/iter_next
// pair operates on; an ObjArray backs it today, with a richer
// user-defined-Iterator protocol left for a future pass once
// internal/infer's trait-dispatch story for this is settled.
type iterator struct {
	elems []rtvalue.Value
	pos   int
}

func (it *iterator) TypeTag() string { return "Iterator" }
func (it *iterator) Inspect() string { return "<iterator>" }
func (it *iterator) Hash() uint32    { return uint32(it.pos) }

func intrinsicIterNew(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("iter_new: expected 1 arg, got %d", len(args))
	}
	arr, ok := args[0].Obj.(*ObjArray)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("iter_new: not an iterable value")
	}
	return rtvalue.Obj(&iterator{elems: arr.Elements}), nil
}

// intrinsicIterNext returns an Option-shaped ObjRecord ("Some"/"None")
// rather than a (value, bool) pair, so its result composes directly
// with option_is_some/option_unwrap.
func intrinsicIterNext(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("iter_next: expected 1 arg, got %d", len(args))
	}
	it, ok := args[0].Obj.(*iterator)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("iter_next: not an iterator value")
	}
	if it.pos >= len(it.elems) {
		return rtvalue.Obj(NewObjRecord("None", nil, nil)), nil
	}
	v := it.elems[it.pos]
	it.pos++
	return rtvalue.Obj(NewObjRecord("Some", nil, []rtvalue.Value{v})), nil
}

func intrinsicOptionIsSome(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("option_is_some: expected 1 arg, got %d", len(args))
	}
	rec, ok := args[0].Obj.(*ObjRecord)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("option_is_some: not an Option value")
	}
	return rtvalue.Bool(rec.Tag == "Some"), nil
}

func intrinsicOptionUnwrap(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("option_unwrap: expected 1 arg, got %d", len(args))
	}
	rec, ok := args[0].Obj.(*ObjRecord)
	if !ok || rec.Tag != "Some" || len(rec.Payload) != 1 {
		return rtvalue.Unit(), fmt.Errorf("option_unwrap: called on None")
	}
	return rec.Payload[0], nil
}

// intrinsicFuturePoll backs `future_poll(future, waker) → poll_result`.
// waker is a zero-arity closure invoked when the future becomes ready
// to be re-polled; poll itself is synchronous, returning a
// "Ready"/"Pending" variant rather than suspending the caller — actual
// suspension only happens at a user `await` expression (OpSuspend),
// which goes through vm.await/async.Block instead of this intrinsic.
func intrinsicFuturePoll(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 2 {
		return rtvalue.Unit(), fmt.Errorf("future_poll: expected 2 args, got %d", len(args))
	}
	fut, ok := args[0].Obj.(*ObjFuture)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("future_poll: first argument is not a future")
	}
	wakerFn, hasWaker := args[1].Obj.(*ObjClosure)
	waker := async.NewWaker(func() {
		if !hasWaker {
			return
		}
		_, _ = vm.Call(wakerFn.Fn, wakerFn.Env, nil)
	})
	result := fut.Future.Poll(waker)
	if result.Err != nil {
		return rtvalue.Unit(), result.Err
	}
	if !result.IsReady() {
		return rtvalue.Obj(NewObjRecord("Pending", nil, nil)), nil
	}
	return rtvalue.Obj(NewObjRecord("Ready", nil, []rtvalue.Value{result.Value})), nil
}

// intrinsicTaskSpawn backs `task_spawn(future) → task_id`:
// validates the task budget and registers the future with the
// executor's worker pool, returning an opaque task handle.
func intrinsicTaskSpawn(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("task_spawn: expected 1 arg, got %d", len(args))
	}
	fut, ok := args[0].Obj.(*ObjFuture)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("task_spawn: argument is not a future")
	}
	if vm.executor == nil {
		return rtvalue.Unit(), fmt.Errorf("task_spawn: no async executor attached")
	}
	task, err := vm.executor.Spawn(vm.ctx, fut.Future, 0)
	if err != nil {
		return rtvalue.Unit(), err
	}
	return rtvalue.Obj(NewObjTask(task)), nil
}

// intrinsicTaskAwait backs `task_await(task_id) → value`. The
// ABI returns the task's value directly rather than a future to poll
// again, so this blocks the calling goroutine on the join via
// async.Block — safe by the same argument as vm.await: it only ever
// parks a goroutine already private to one async body or one worker.
func intrinsicTaskAwait(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) != 1 {
		return rtvalue.Unit(), fmt.Errorf("task_await: expected 1 arg, got %d", len(args))
	}
	task, ok := args[0].Obj.(*ObjTask)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("task_await: argument is not a task")
	}
	return async.Block(async.Join(task.Task))
}

// intrinsicFFICall backs `ffi_call(fn_name, arg_count, args*)`:
// args[0] is the foreign function name, args[1] the arg_count, and
// the remainder the positional arguments already evaluated. arg_count
// must equal the number of those arguments; a mismatch is an error.
func intrinsicFFICall(vm *VM, args []rtvalue.Value) (rtvalue.Value, error) {
	if len(args) < 2 {
		return rtvalue.Unit(), fmt.Errorf("ffi_call: expected at least (fn_name, arg_count)")
	}
	name, ok := args[0].Obj.(*ObjString)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("ffi_call: first argument is not a function name")
	}
	wantArgc := int(args[1].AsInt())
	callArgs := args[2:]
	if wantArgc != len(callArgs) {
		return rtvalue.Unit(), fmt.Errorf("ffi_call: arg_count %d does not match %d supplied arguments", wantArgc, len(callArgs))
	}
	if vm.ffiCaller == nil {
		return rtvalue.Unit(), fmt.Errorf("ffi_call: no FFI caller attached to this VM")
	}
	return vm.ffiCaller.Call(vm.ctx, name.Value, callArgs)
}
