// Package vm implements the stack bytecode virtual machine that
// executes the chunks internal/codegen compiles from internal/ir: a
// CallFrame/VM shape with a step()-per-instruction dispatch loop and a
// recover-and-convert-panics idiom, built around rtvalue.Value since
// this module compiles SSA IR to bytecode rather than interpreting an
// AST through a hybrid bytecode-over-tree-walker design.
package vm

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/nova-lang/nova/internal/async"
	"github.com/nova-lang/nova/internal/config"
	"github.com/nova-lang/nova/internal/ffi"
	"github.com/nova-lang/nova/internal/rc"
	"github.com/nova-lang/nova/internal/rtvalue"
)

const stackMax = 4096
const framesMax = 256

// CallFrame is one activation record: the closure being executed, its
// chunk, its instruction pointer, and its own locals slice.
// There is no type-context field here, since trait resolution is fully
// static and resolved by internal/infer before lowering ever runs.
type CallFrame struct {
	closure *ObjClosure
	chunk   *Chunk
	ip      int
	locals  []rtvalue.Value
}

// VM executes compiled chunks: the operand stack, the call-frame
// stack, the global table, and the intrinsic dispatch table that backs
// every OpCallIntrinsic the lowering pipeline emits.
type VM struct {
	stack []rtvalue.Value
	sp    int

	frames     []*CallFrame
	frameCount int

	globals   *Globals
	functions map[string]*CompiledFunction
	intrinsics map[string]IntrinsicFunc

	collector *rc.Collector
	executor  *async.Executor
	ffiCaller *ffi.Caller
	panics    *rtvalue.PanicHandler
	ctx       context.Context
}

// New builds a VM with default resource limits and starts its cycle
// collector's background goroutine, which never blocks retain/release.
// Call Close when the VM is no longer needed so that goroutine (and
// the async executor's worker pool and timer thread) exit — required
// by tests using goleak to assert a clean shutdown.
func New(ctx context.Context) *VM {
	return NewWithLogger(ctx, zap.NewNop())
}

// NewWithLogger is New, but with an explicit logger for the cycle
// collector's sweep summaries and the async executor's task-lifecycle
// debug logs — cmd/novac wires its internal/obs logger through here.
func NewWithLogger(ctx context.Context, log *zap.Logger) *VM {
	return NewWithLimits(ctx, log, config.DefaultLimits())
}

// NewWithLimits is NewWithLogger, but with explicit resource limits:
// runtime limits live in internal/config.Limits and are threaded into
// internal/async.Executor at construction, never hard-coded into
// generated code. The executor's worker count defaults to
// runtime.NumCPU.
func NewWithLimits(ctx context.Context, log *zap.Logger, limits config.Limits) *VM {
	vm := &VM{
		stack:      make([]rtvalue.Value, stackMax),
		frames:     make([]*CallFrame, framesMax),
		globals:    NewGlobals(),
		functions:  map[string]*CompiledFunction{},
		intrinsics: map[string]IntrinsicFunc{},
		collector:  rc.NewCollector(log, rc.DefaultConfig()),
		executor:   async.NewExecutor(log, limits, runtime.NumCPU()),
		panics:     rtvalue.NewPanicHandler(),
		ctx:        ctx,
	}
	vm.collector.Start()
	registerBuiltinIntrinsics(vm)
	return vm
}

// fork builds a fresh VM sharing this VM's heap-level state (globals,
// function table, intrinsics, collector, executor, context) but with
// its own operand/call-frame stacks, so an async function body can run
// concurrently with its caller without racing on shared stack slots.
// A fresh VM is constructed per async invocation and run to completion
// on a dedicated goroutine.
func (vm *VM) fork() *VM {
	return &VM{
		stack:      make([]rtvalue.Value, stackMax),
		frames:     make([]*CallFrame, framesMax),
		globals:    vm.globals,
		functions:  vm.functions,
		intrinsics: vm.intrinsics,
		collector:  vm.collector,
		executor:   vm.executor,
		ffiCaller:  vm.ffiCaller,
		panics:     rtvalue.NewPanicHandler(),
		ctx:        vm.ctx,
	}
}

// callOrSpawn implements a plain function call for a synchronous
// function, and an async function call's actual contract: calling an
// async fn does not run its body inline, it returns a Future value
// immediately. Since this runtime's async bodies run to completion on
// their own goroutine rather than through a literal generated state
// machine (see DESIGN.md), the future returned here is a VMBodyFuture
// wrapping a forked VM's run of fn, wrapped as an rtvalue.Value the
// same way any other heap object
// is.
func (vm *VM) callOrSpawn(fn *CompiledFunction, env rtvalue.Value, args []rtvalue.Value) (rtvalue.Value, error) {
	if !fn.IsAsync {
		return vm.Call(fn, env, args)
	}
	child := vm.fork()
	future := async.NewVMBodyFuture(func() (rtvalue.Value, error) {
		return child.Call(fn, env, args)
	})
	return rtvalue.Obj(NewObjFuture(future)), nil
}

// Close stops the cycle collector's background goroutine and the async
// executor's worker pool and timer thread.
func (vm *VM) Close() {
	vm.collector.Stop()
	if vm.executor != nil {
		vm.executor.Stop()
	}
}

// Collector exposes the VM's cycle collector, chiefly so tests and
// cmd/novac's diagnostics path can call Collect explicitly or read
// Stats rather than only waiting on its timer.
func (vm *VM) Collector() *rc.Collector { return vm.collector }

// Executor exposes the VM's async executor for the task_spawn/
// task_await/future_poll intrinsics.
func (vm *VM) Executor() *async.Executor { return vm.executor }

// AttachFFI wires a foreign-function Caller into the VM, enabling the
// ffi_call intrinsic. A VM built without calling this rejects
// every ffi_call with a clear error rather than a nil-pointer panic,
// matching cmd/novac's own "FFI is opt-in per program" wiring (a
// program with no nova.yaml ffi: whitelist never attaches one).
func (vm *VM) AttachFFI(caller *ffi.Caller) { vm.ffiCaller = caller }

// Define registers a compiled function so OpCall can resolve it by
// name; internal/codegen compiles one CompiledFunction per ir.Function
// and internal/pipeline's ExecuteProcessor defines them all before
// calling Call on the entry point.
func (vm *VM) Define(fn *CompiledFunction) { vm.functions[fn.Name] = fn }

// DefineIntrinsic registers (or overrides, for tests) a host routine
// reachable through OpCallIntrinsic.
func (vm *VM) DefineIntrinsic(name string, fn IntrinsicFunc) { vm.intrinsics[name] = fn }

func (vm *VM) push(v rtvalue.Value) {
	if vm.sp >= len(vm.stack) {
		panic(rtvalue.ErrStackOverflow)
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() rtvalue.Value {
	if vm.sp == 0 {
		panic(rtvalue.ErrStackUnderflow)
	}
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(dist int) rtvalue.Value {
	idx := vm.sp - 1 - dist
	if idx < 0 {
		panic(rtvalue.ErrStackUnderflow)
	}
	return vm.stack[idx]
}

// Call invokes fn with args, running it to completion and returning
// its result. Used both for the program's entry point and for every
// nested call an OpCall/OpCallValue instruction makes.
func (vm *VM) Call(fn *CompiledFunction, env rtvalue.Value, args []rtvalue.Value) (rtvalue.Value, error) {
	if vm.frameCount >= framesMax {
		return rtvalue.Unit(), rtvalue.ErrStackOverflow
	}
	locals := make([]rtvalue.Value, fn.NumLocals)
	slot := 0
	if fn.HasEnv {
		locals[0] = env
		slot = 1
	}
	for _, a := range args {
		locals[slot] = a
		slot++
	}
	frame := &CallFrame{closure: &ObjClosure{Fn: fn, Env: env}, chunk: fn.Chunk, locals: locals}
	vm.frames[vm.frameCount] = frame
	vm.frameCount++
	defer func() { vm.frameCount-- }()

	var result rtvalue.Value
	err := vm.panics.Guard(func() error {
		r, runErr := vm.run(frame)
		result = r
		return runErr
	})
	return result, err
}

func (vm *VM) run(frame *CallFrame) (rtvalue.Value, error) {
	for {
		op := Opcode(frame.chunk.Code[frame.ip])
		frame.ip++
		switch op {
		case OpHalt:
			return rtvalue.Unit(), nil
		case OpReturn:
			if vm.sp == 0 {
				return rtvalue.Unit(), nil
			}
			return vm.pop(), nil
		default:
			if err := vm.step(frame, op); err != nil {
				return rtvalue.Unit(), err
			}
		}
	}
}

func (vm *VM) readUint16(frame *CallFrame) uint16 {
	v := frame.chunk.ReadUint16(frame.ip)
	frame.ip += 2
	return v
}

func binaryTypeError(op string, a, b rtvalue.Value) error {
	return fmt.Errorf("vm: cannot apply %s to %s and %s", op, a.TypeTag(), b.TypeTag())
}
