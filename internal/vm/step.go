package vm

import (
	"github.com/nova-lang/nova/internal/rtvalue"
)

// step executes exactly one instruction, advancing frame.ip past its
// operand bytes. Split out of run's switch in vm.go purely so the
// by-far-largest case analysis (every non-terminator opcode) doesn't
// crowd the small, hot dispatch loop.
func (vm *VM) step(frame *CallFrame, op Opcode) error {
	switch op {
	case OpConstant:
		idx := vm.readUint16(frame)
		vm.push(frame.chunk.Constants[idx])

	case OpPop:
		vm.pop()
	case OpDup:
		vm.push(vm.peek(0))

	case OpGetLocal:
		idx := vm.readUint16(frame)
		vm.push(frame.locals[idx])
	case OpSetLocal:
		idx := vm.readUint16(frame)
		frame.locals[idx] = vm.pop()

	case OpGetGlobal:
		idx := vm.readUint16(frame)
		name := frame.chunk.Names[idx]
		v, ok := vm.globals.Get(name)
		if !ok {
			return rtvalue.ErrInvalidConstantIndex
		}
		vm.push(v)
	case OpSetGlobal:
		idx := vm.readUint16(frame)
		name := frame.chunk.Names[idx]
		vm.globals.Set(name, vm.pop())

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
		b := vm.pop()
		a := vm.pop()
		v, err := arith(op, a, b)
		if err != nil {
			return err
		}
		vm.push(v)
	case OpNeg:
		a := vm.pop()
		switch a.Kind {
		case rtvalue.KindInt:
			vm.push(rtvalue.Int(-a.AsInt()))
		case rtvalue.KindFloat:
			vm.push(rtvalue.Float(-a.AsFloat()))
		default:
			return binaryTypeError("-", a, a)
		}

	case OpBAnd, OpBOr, OpBXor, OpShl, OpShr:
		b := vm.pop()
		a := vm.pop()
		if a.Kind != rtvalue.KindInt || b.Kind != rtvalue.KindInt {
			return binaryTypeError(op.String(), a, b)
		}
		vm.push(rtvalue.Int(bitwise(op, a.AsInt(), b.AsInt())))
	case OpBNot:
		a := vm.pop()
		if a.Kind != rtvalue.KindInt {
			return binaryTypeError("~", a, a)
		}
		vm.push(rtvalue.Int(^a.AsInt()))

	case OpEq:
		b := vm.pop()
		a := vm.pop()
		vm.push(rtvalue.Bool(a.Equals(b)))
	case OpNeq:
		b := vm.pop()
		a := vm.pop()
		vm.push(rtvalue.Bool(!a.Equals(b)))
	case OpLt, OpLe, OpGt, OpGe:
		b := vm.pop()
		a := vm.pop()
		v, err := compare(op, a, b)
		if err != nil {
			return err
		}
		vm.push(v)

	case OpAnd:
		b := vm.pop()
		a := vm.pop()
		vm.push(rtvalue.Bool(a.IsTruthy() && b.IsTruthy()))
	case OpOr:
		b := vm.pop()
		a := vm.pop()
		vm.push(rtvalue.Bool(a.IsTruthy() || b.IsTruthy()))
	case OpNot:
		a := vm.pop()
		vm.push(rtvalue.Bool(!a.IsTruthy()))

	case OpGepField:
		idx := vm.readUint16(frame)
		base := vm.pop()
		v, err := gepField(base, int(idx))
		if err != nil {
			return err
		}
		vm.push(v)
	case OpGepDynamic:
		index := vm.pop()
		base := vm.pop()
		v, err := gepDynamic(base, index)
		if err != nil {
			return err
		}
		vm.push(v)

	case OpCast:
		idx := vm.readUint16(frame)
		target := frame.chunk.Names[idx]
		v := vm.pop()
		casted, err := cast(v, target)
		if err != nil {
			return err
		}
		vm.push(casted)

	case OpCall:
		idx := vm.readUint16(frame)
		name := frame.chunk.Names[idx]
		fn, ok := vm.functions[name]
		if !ok {
			return rtvalue.ErrInvalidConstantIndex
		}
		args := make([]rtvalue.Value, fn.Arity)
		for i := fn.Arity - 1; i >= 0; i-- {
			args[i] = vm.pop()
		}
		result, err := vm.callOrSpawn(fn, rtvalue.Unit(), args)
		if err != nil {
			return err
		}
		vm.push(result)

	case OpCallValue:
		argc := vm.readUint16(frame)
		args := make([]rtvalue.Value, argc)
		for i := int(argc) - 1; i >= 0; i-- {
			args[i] = vm.pop()
		}
		callee := vm.pop()
		closure, ok := callee.Obj.(*ObjClosure)
		if !ok || !callee.IsObj() {
			return binaryTypeError("call", callee, callee)
		}
		result, err := vm.callOrSpawn(closure.Fn, closure.Env, args)
		if err != nil {
			return err
		}
		vm.push(result)

	case OpCallIntrinsic:
		idx := vm.readUint16(frame)
		name := frame.chunk.Names[idx]
		fn, ok := vm.intrinsics[name]
		if !ok {
			return rtvalue.ErrInvalidConstantIndex
		}
		argc := vm.readUint16(frame)
		args := make([]rtvalue.Value, argc)
		for i := int(argc) - 1; i >= 0; i-- {
			args[i] = vm.pop()
		}
		result, err := fn(vm, args)
		if err != nil {
			return err
		}
		vm.push(result)

	case OpSuspend:
		future := vm.pop()
		resumed, err := vm.await(future)
		if err != nil {
			return err
		}
		vm.push(resumed)

	case OpJump:
		target := vm.readUint16(frame)
		frame.ip = int(target)
	case OpJumpIfFalse:
		target := vm.readUint16(frame)
		cond := vm.pop()
		if !cond.IsTruthy() {
			frame.ip = int(target)
		}

	default:
		return rtvalue.ErrTruncatedBytecode
	}
	return nil
}
