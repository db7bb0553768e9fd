package vm

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync/atomic"

	"github.com/nova-lang/nova/internal/async"
	"github.com/nova-lang/nova/internal/rc"
	"github.com/nova-lang/nova/internal/rtvalue"
)

// CompiledFunction is the static, immutable half of a compiled
// function: its chunk plus the slot bookkeeping internal/codegen
// computed. Default arguments and upvalue capture are resolved earlier
// in this module's pipeline (internal/infer and internal/lower,
// respectively), so there is no separate upvalue-count or
// default-chunk bookkeeping here.
type CompiledFunction struct {
	Name      string
	Arity     int
	NumLocals int
	HasEnv    bool // slot 0 is a closure environment handle, not a declared param
	Chunk     *Chunk
	IsAsync   bool
}

func (f *CompiledFunction) TypeTag() string { return "Function" }
func (f *CompiledFunction) Inspect() string { return fmt.Sprintf("<fn %s/%d>", f.Name, f.Arity) }
func (f *CompiledFunction) Hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte(f.Name))
	return h.Sum32()
}

// ObjClosure pairs a compiled function with the environment handle
// internal/lower's closure_new intrinsic built for it. There is no
// upvalue slice to resolve here: every capture was already
// materialized into Env by the env_new intrinsic at the
// closure-expression site, so calling a closure is just "push Env as
// the implicit first argument".
type ObjClosure struct {
	Fn  *CompiledFunction
	Env rtvalue.Value
}

func (c *ObjClosure) TypeTag() string { return "Function" }
func (c *ObjClosure) Inspect() string { return fmt.Sprintf("<closure %s>", c.Fn.Name) }
func (c *ObjClosure) Hash() uint32    { return c.Fn.Hash() }

// ObjString is the heap representation of a String value. RefCount
// backs the rc_retain/rc_release intrinsics; it is advisory only
// until the cycle collector takes ownership of freeing objects whose
// count reaches zero — today the Go garbage collector is still the
// actual backstop, so a refcount bug can leak but cannot dangle.
type ObjString struct {
	Value    string
	RefCount int32
}

func NewObjString(s string) *ObjString { return &ObjString{Value: s} }

func (s *ObjString) TypeTag() string { return "String" }
func (s *ObjString) Inspect() string { return s.Value }
func (s *ObjString) Hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte(s.Value))
	return h.Sum32()
}
func (s *ObjString) Retain() { atomic.AddInt32(&s.RefCount, 1) }
func (s *ObjString) Release() int32 { return atomic.AddInt32(&s.RefCount, -1) }

// StringValue satisfies internal/ffi's marshaling interface, letting a
// string value cross the FFI boundary without internal/ffi importing
// this package's concrete heap object types.
func (s *ObjString) StringValue() string { return s.Value }

// rcBoxed is implemented by every heap object substantial enough to
// participate in cycle collection: anything that can hold an outgoing
// handle reference to another heap object (arrays, records, closure
// environments), and so needs real Bacon-Rajan tracing (internal/rc)
// rather than a leaf's plain atomic counter (ObjString has no outgoing
// references, so it stays on the simpler `retainable` path declared in
// intrinsics.go).
type rcBoxed interface {
	RCBox() *rc.Box
}

// boxOf extracts the rc.Box backing v's heap object, or nil if v isn't
// a boxed (cycle-collectible) heap object — used by every Trace
// implementation below to turn an rtvalue.Value field into the *rc.Box
// the collector actually walks.
func boxOf(v rtvalue.Value) *rc.Box {
	if v.Kind != rtvalue.KindObj {
		return nil
	}
	if b, ok := v.Obj.(rcBoxed); ok {
		return b.RCBox()
	}
	return nil
}

// ObjArray is the heap representation of an Array value. Box backs the
// rc_retain/rc_release intrinsics: unlike a plain atomic
// counter, it is also a cycle-collector suspect whenever a release
// doesn't reach zero, so an array holding a reference cycle through
// its own elements is still reclaimed.
type ObjArray struct {
	Elements []rtvalue.Value
	Box      *rc.Box
}

func NewObjArray(elems []rtvalue.Value) *ObjArray {
	a := &ObjArray{Elements: elems}
	a.Box = rc.NewBox("Array", a)
	return a
}

func (a *ObjArray) TypeTag() string { return "Array" }
func (a *ObjArray) Inspect() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (a *ObjArray) Hash() uint32 {
	h := fnv.New32a()
	for _, e := range a.Elements {
		fmt.Fprintf(h, "%d:", e.Hash())
	}
	return h.Sum32()
}
func (a *ObjArray) RCBox() *rc.Box { return a.Box }

// Trace enumerates every element that is itself a cycle-collectible
// heap object, implementing rc.Tracer by exposing its outgoing handle
// references.
func (a *ObjArray) Trace(visit func(*rc.Box)) {
	for _, e := range a.Elements {
		if b := boxOf(e); b != nil {
			visit(b)
		}
	}
}

// ObjRecord is the heap representation of both plain records and enum
// (variant) instances: Tag is empty for a plain record literal and the
// constructor name for a variant, so variant_tag/variant_payload and
// the struct-field GEP opcodes share one representation.
type ObjRecord struct {
	Tag     string
	Fields  map[string]rtvalue.Value
	Payload []rtvalue.Value // positional payload for a tuple-like variant
	Box     *rc.Box
}

func NewObjRecord(tag string, fields map[string]rtvalue.Value, payload []rtvalue.Value) *ObjRecord {
	r := &ObjRecord{Tag: tag, Fields: fields, Payload: payload}
	r.Box = rc.NewBox(r.TypeTag(), r)
	return r
}

func (r *ObjRecord) TypeTag() string {
	if r.Tag != "" {
		return r.Tag
	}
	return "Record"
}
func (r *ObjRecord) Inspect() string {
	if r.Tag != "" && len(r.Fields) == 0 {
		parts := make([]string, len(r.Payload))
		for i, p := range r.Payload {
			parts[i] = p.Inspect()
		}
		if len(parts) == 0 {
			return r.Tag
		}
		return r.Tag + "(" + strings.Join(parts, ", ") + ")"
	}
	var b strings.Builder
	b.WriteString("{")
	first := true
	for k, v := range r.Fields {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s: %s", k, v.Inspect())
	}
	b.WriteString("}")
	return b.String()
}
func (r *ObjRecord) Hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte(r.Tag))
	for _, p := range r.Payload {
		fmt.Fprintf(h, "%d:", p.Hash())
	}
	return h.Sum32()
}
func (r *ObjRecord) RCBox() *rc.Box { return r.Box }

// Trace enumerates every field/payload slot that is itself a
// cycle-collectible heap object — this is what lets a self-referential
// record (`a.next = b; b.next = a`) be reclaimed: the collector can
// walk straight through Fields/Payload to discover the cycle instead
// of needing a record-shaped special case.
func (r *ObjRecord) Trace(visit func(*rc.Box)) {
	for _, v := range r.Fields {
		if b := boxOf(v); b != nil {
			visit(b)
		}
	}
	for _, v := range r.Payload {
		if b := boxOf(v); b != nil {
			visit(b)
		}
	}
}

// ObjEnv is the heap representation of a closure's captured
// environment, built by the env_new intrinsic and read by env_get
// (internal/lower/closure.go). Captures are retained into Slots by
// lowering's emitRetain before env_new is called.
type ObjEnv struct {
	Slots []rtvalue.Value
	Box   *rc.Box
}

func NewObjEnv(slots []rtvalue.Value) *ObjEnv {
	e := &ObjEnv{Slots: slots}
	e.Box = rc.NewBox("Env", e)
	return e
}

func (e *ObjEnv) TypeTag() string { return "Env" }
func (e *ObjEnv) Inspect() string { return fmt.Sprintf("<env %d>", len(e.Slots)) }
func (e *ObjEnv) Hash() uint32    { return uint32(len(e.Slots)) }
func (e *ObjEnv) RCBox() *rc.Box  { return e.Box }

// Trace enumerates an environment's captured slots: a closure whose
// environment captures another closure that (transitively) captures
// the first is exactly the self-referential-closure cycle's
// weak-capture analysis exists to avoid, but any the checker misses
// (or a program builds indirectly through a record) still gets
// collected here.
func (e *ObjEnv) Trace(visit func(*rc.Box)) {
	for _, v := range e.Slots {
		if b := boxOf(v); b != nil {
			visit(b)
		}
	}
}

// ObjFuture is the heap representation of any value whose runtime
// shape is "something awaitable": the direct result of an async
// function call (a *async.VMBodyFuture), a timer, a timeout race, or a
// join on another task. future_poll and OpSuspend (await) both
// operate on this wrapper rather than on async.Future directly, so an
// ordinary rtvalue.Value can carry one through generated code the same
// way it carries any other heap object.
type ObjFuture struct {
	Future async.Future
}

func NewObjFuture(f async.Future) *ObjFuture { return &ObjFuture{Future: f} }

func (f *ObjFuture) TypeTag() string { return "Future" }
func (f *ObjFuture) Inspect() string { return "<future>" }
func (f *ObjFuture) Hash() uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%p", f.Future)
	return h.Sum32()
}

// ObjTask is the heap representation of a spawned task handle, the
// result of `task_spawn(future) → task_id`: task_await joins on it by
// wrapping it in an async.Join future, and its uuid is exposed to
// generated code only via Inspect/diagnostics, never as a bare
// integer, since the ABI's task_id is opaque to user code.
type ObjTask struct {
	Task *async.Task
}

func NewObjTask(t *async.Task) *ObjTask { return &ObjTask{Task: t} }

func (t *ObjTask) TypeTag() string { return "Task" }
func (t *ObjTask) Inspect() string { return fmt.Sprintf("<task %s>", t.Task.ID) }
func (t *ObjTask) Hash() uint32 {
	h := fnv.New32a()
	h.Write(t.Task.ID[:])
	return h.Sum32()
}
