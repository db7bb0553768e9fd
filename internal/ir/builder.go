package ir

import "github.com/nova-lang/nova/internal/types"

// Builder appends instructions to the current block of the function
// under construction, minting a fresh SSA value for every instruction
// that produces one: every appended instruction is typed, and its
// result is a fresh SSA value.
type Builder struct {
	fn        *Function
	nextValue ValueID
	nextBlock BlockID
	cur       *BasicBlock
}

// NewBuilder starts building fn, which must already have its Sig and
// Name set. The caller must call CreateBlock at least once before
// emitting instructions.
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

// CreateBlock appends a new, empty basic block to the function and
// makes it the current insertion point.
func (b *Builder) CreateBlock(params ...Value) *BasicBlock {
	id := b.nextBlock
	b.nextBlock++
	blk := &BasicBlock{ID: id, Params: params}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	b.cur = blk
	return blk
}

// SetBlock redirects subsequent emission to blk.
func (b *Builder) SetBlock(blk *BasicBlock) { b.cur = blk }

// Current returns the block instructions are currently appended to.
func (b *Builder) Current() *BasicBlock { return b.cur }

func (b *Builder) freshValue() ValueID {
	id := b.nextValue
	b.nextValue++
	return id
}

func (b *Builder) emit(inst *Instruction) ValueID {
	b.cur.Instructions = append(b.cur.Instructions, inst)
	if inst.HasResult {
		return inst.Result
	}
	return 0
}

// Const emits a constant-load instruction and returns its value.
func (b *Builder) Const(v any, t types.Type) ValueID {
	res := b.freshValue()
	b.emit(&Instruction{Opcode: OpConst, Result: res, HasResult: true, Type: t, ConstValue: v})
	return res
}

// Alloc emits a stack-slot allocation for a local variable of type t,
// returning a pointer-typed value (lowering emits Load/Store around
// every use/assignment of the slot; a later mem2reg-style pass or the
// code generator may promote it).
func (b *Builder) Alloc(t types.Type) ValueID {
	res := b.freshValue()
	b.emit(&Instruction{Opcode: OpAlloc, Result: res, HasResult: true, Type: t})
	return res
}

func (b *Builder) Load(ptr ValueID, t types.Type) ValueID {
	res := b.freshValue()
	b.emit(&Instruction{Opcode: OpLoad, Operands: []ValueID{ptr}, Result: res, HasResult: true, Type: t})
	return res
}

func (b *Builder) Store(ptr, val ValueID) {
	b.emit(&Instruction{Opcode: OpStore, Operands: []ValueID{ptr, val}})
}

// Gep computes the address of a field (struct) or element (array) of
// base. A negative index means the index is carried dynamically in
// Operands[1] instead (array indexing by a runtime value).
func (b *Builder) Gep(base ValueID, index int, dynamicIndex ValueID, t types.Type) ValueID {
	res := b.freshValue()
	operands := []ValueID{base}
	if index < 0 {
		operands = append(operands, dynamicIndex)
	}
	b.emit(&Instruction{Opcode: OpGep, Operands: operands, Result: res, HasResult: true, Type: t, FieldIndex: index})
	return res
}

func (b *Builder) Binary(op string, l, r ValueID, t types.Type) ValueID {
	res := b.freshValue()
	b.emit(&Instruction{Opcode: OpBinary, Operands: []ValueID{l, r}, Result: res, HasResult: true, Type: t, BinOp: op})
	return res
}

func (b *Builder) Unary(op string, v ValueID, t types.Type) ValueID {
	res := b.freshValue()
	b.emit(&Instruction{Opcode: OpUnary, Operands: []ValueID{v}, Result: res, HasResult: true, Type: t, UnOp: op})
	return res
}

func (b *Builder) Cast(v ValueID, target types.Type) ValueID {
	res := b.freshValue()
	b.emit(&Instruction{Opcode: OpCast, Operands: []ValueID{v}, Result: res, HasResult: true, Type: target, TargetType: target})
	return res
}

// Call emits a direct call (calleeFunc non-empty) or an indirect call
// through a function-typed value (calleeFunc == "", callee the
// function-handle operand).
func (b *Builder) Call(calleeFunc string, callee ValueID, args []ValueID, resultType types.Type) ValueID {
	res := b.freshValue()
	inst := &Instruction{Opcode: OpCall, Operands: args, Result: res, HasResult: true, Type: resultType, CalleeFunc: calleeFunc}
	if calleeFunc == "" {
		inst.Callee = callee
	}
	b.emit(inst)
	return res
}

func (b *Builder) CallIntrinsic(name string, args []ValueID, resultType types.Type) ValueID {
	res := b.freshValue()
	b.emit(&Instruction{Opcode: OpCallIntrinsic, Operands: args, Result: res, HasResult: true, Type: resultType, Intrinsic: name})
	return res
}

// Suspend emits an await boundary: v is the future being awaited, and
// the instruction's result is the resumed value once the executor
// polls it ready, as part of the async state-machine transform.
func (b *Builder) Suspend(v ValueID, resultType types.Type) ValueID {
	res := b.freshValue()
	b.emit(&Instruction{Opcode: OpSuspend, Operands: []ValueID{v}, Result: res, HasResult: true, Type: resultType})
	return res
}

// Br terminates the current block with an unconditional branch,
// passing args to dest's block parameters.
func (b *Builder) Br(dest BlockID, args ...ValueID) {
	b.emit(&Instruction{Opcode: OpBr, TrueDest: dest, TrueArgs: args})
}

// CondBr terminates the current block branching to trueDest if cond
// is true, falseDest otherwise.
func (b *Builder) CondBr(cond ValueID, trueDest BlockID, trueArgs []ValueID, falseDest BlockID, falseArgs []ValueID) {
	b.emit(&Instruction{
		Opcode: OpCondBr, Operands: []ValueID{cond},
		TrueDest: trueDest, TrueArgs: trueArgs,
		FalseDest: falseDest, FalseArgs: falseArgs,
	})
}

func (b *Builder) Ret(v ValueID, has bool) {
	inst := &Instruction{Opcode: OpRet}
	if has {
		inst.Operands = []ValueID{v}
	}
	b.emit(inst)
}

func (b *Builder) Unreachable() {
	b.emit(&Instruction{Opcode: OpUnreachable})
}

// Param allocates a fresh SSA value representing one of the current
// block's parameters; the caller appends it to the block's Params.
func (b *Builder) Param(t types.Type) Value {
	id := b.freshValue()
	return Value{ID: id, Type: t, Origin: OriginParam}
}

// Finish returns the function under construction.
func (b *Builder) Finish() *Function { return b.fn }
