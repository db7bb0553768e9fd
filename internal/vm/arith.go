package vm

import (
	"math"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// arith implements the six numeric binary opcodes (add, sub, mul, div,
// mod, pow), promoting an Int/Float mix to Float the same way
// rtvalue.Value.Equals already does for comparisons — the type checker
// (internal/infer) never lets
// two genuinely incompatible types reach a binary op, so the only
// mixed case ever seen at runtime is Int paired with Float, and only
// then due to this module's gradual-typing Unknown values.
func arith(op Opcode, a, b rtvalue.Value) (rtvalue.Value, error) {
	if a.Kind == rtvalue.KindInt && b.Kind == rtvalue.KindInt {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case OpAdd:
			return rtvalue.Int(x + y), nil
		case OpSub:
			return rtvalue.Int(x - y), nil
		case OpMul:
			return rtvalue.Int(x * y), nil
		case OpDiv:
			if y == 0 {
				return rtvalue.Unit(), rtvalue.ErrDivisionByZero
			}
			return rtvalue.Int(x / y), nil
		case OpMod:
			if y == 0 {
				return rtvalue.Unit(), rtvalue.ErrDivisionByZero
			}
			return rtvalue.Int(x % y), nil
		case OpPow:
			return rtvalue.Int(int64(math.Pow(float64(x), float64(y)))), nil
		}
	}
	if (a.Kind == rtvalue.KindInt || a.Kind == rtvalue.KindFloat) &&
		(b.Kind == rtvalue.KindInt || b.Kind == rtvalue.KindFloat) {
		x, y := numAsFloat(a), numAsFloat(b)
		switch op {
		case OpAdd:
			return rtvalue.Float(x + y), nil
		case OpSub:
			return rtvalue.Float(x - y), nil
		case OpMul:
			return rtvalue.Float(x * y), nil
		case OpDiv:
			if y == 0 {
				return rtvalue.Unit(), rtvalue.ErrDivisionByZero
			}
			return rtvalue.Float(x / y), nil
		case OpMod:
			return rtvalue.Unit(), binaryTypeError("%", a, b)
		case OpPow:
			return rtvalue.Float(math.Pow(x, y)), nil
		}
	}
	if a.Kind == rtvalue.KindObj && b.Kind == rtvalue.KindObj && op == OpAdd {
		if as, ok := a.Obj.(*ObjString); ok {
			if bs, ok := b.Obj.(*ObjString); ok {
				return rtvalue.Obj(NewObjString(as.Value + bs.Value)), nil
			}
		}
	}
	return rtvalue.Unit(), binaryTypeError(op.String(), a, b)
}

func numAsFloat(v rtvalue.Value) float64 {
	if v.Kind == rtvalue.KindInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

func bitwise(op Opcode, x, y int64) int64 {
	switch op {
	case OpBAnd:
		return x & y
	case OpBOr:
		return x | y
	case OpBXor:
		return x ^ y
	case OpShl:
		return x << uint(y)
	case OpShr:
		return x >> uint(y)
	default:
		return 0
	}
}

func compare(op Opcode, a, b rtvalue.Value) (rtvalue.Value, error) {
	if (a.Kind != rtvalue.KindInt && a.Kind != rtvalue.KindFloat) ||
		(b.Kind != rtvalue.KindInt && b.Kind != rtvalue.KindFloat) {
		return rtvalue.Unit(), binaryTypeError(op.String(), a, b)
	}
	x, y := numAsFloat(a), numAsFloat(b)
	switch op {
	case OpLt:
		return rtvalue.Bool(x < y), nil
	case OpLe:
		return rtvalue.Bool(x <= y), nil
	case OpGt:
		return rtvalue.Bool(x > y), nil
	case OpGe:
		return rtvalue.Bool(x >= y), nil
	default:
		return rtvalue.Unit(), binaryTypeError(op.String(), a, b)
	}
}
