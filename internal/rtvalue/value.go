// Package rtvalue implements the runtime value representation shared
// by the bytecode VM and the FFI bridge: a stack-allocated tagged
// union for the four unboxed kinds (Unit, Int, Float, Bool) plus a
// pointer to a refcounted heap object for everything else (strings,
// arrays, records/enum instances, closures, futures). Reference counts
// live on internal/vm's object types, not in this package: a plain
// atomic counter for strings, an internal/rc Box for arrays, records
// and closure environments.
package rtvalue

import (
	"fmt"
	"math"
)

// Kind discriminates which arm of Value is populated.
type Kind uint8

const (
	KindUnit Kind = iota
	KindInt
	KindFloat
	KindBool
	KindObj
)

// HeapObject is satisfied by every refcounted runtime object a Value
// can point to: strings, arrays, records, enum instances, closures,
// and futures. TypeTag names the object's runtime type for the
// variant_tag/type_check intrinsics; Inspect/Hash back Value's own
// Inspect/Hash when the value is boxed.
type HeapObject interface {
	TypeTag() string
	Inspect() string
	Hash() uint32
}

// Value is a stack-allocated tagged union: Data holds the bit pattern
// of an Int/Float/Bool, Obj holds the pointer for KindObj. Keeping
// primitives unboxed avoids a heap allocation (and an rc_retain/
// rc_release pair) for every arithmetic intermediate.
type Value struct {
	Kind Kind
	Data uint64
	Obj  HeapObject
}

func Unit() Value                 { return Value{Kind: KindUnit} }
func Int(v int64) Value           { return Value{Kind: KindInt, Data: uint64(v)} }
func Float(v float64) Value       { return Value{Kind: KindFloat, Data: math.Float64bits(v)} }
func Bool(v bool) Value {
	var d uint64
	if v {
		d = 1
	}
	return Value{Kind: KindBool, Data: d}
}
func Obj(o HeapObject) Value { return Value{Kind: KindObj, Obj: o} }

func (v Value) AsInt() int64     { return int64(v.Data) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.Data) }
func (v Value) AsBool() bool     { return v.Data == 1 }
func (v Value) AsObj() HeapObject { return v.Obj }

func (v Value) IsUnit() bool { return v.Kind == KindUnit }
func (v Value) IsObj() bool  { return v.Kind == KindObj }

// IsTruthy is what OpJumpIfFalse and the `!`/`&&`/`||` operators
// consult; only Bool values are ever condition operands (the checker
// rejects anything else), but a defensive default of false keeps a
// malformed bytecode stream from looping forever on a truthy garbage
// value.
func (v Value) IsTruthy() bool {
	switch v.Kind {
	case KindBool:
		return v.AsBool()
	default:
		return false
	}
}

func (v Value) Equals(other Value) bool {
	if v.Kind != other.Kind {
		if v.Kind == KindInt && other.Kind == KindFloat {
			return float64(v.AsInt()) == other.AsFloat()
		}
		if v.Kind == KindFloat && other.Kind == KindInt {
			return v.AsFloat() == float64(other.AsInt())
		}
		return false
	}
	switch v.Kind {
	case KindUnit:
		return true
	case KindInt, KindBool, KindFloat:
		return v.Data == other.Data
	case KindObj:
		if v.Obj == nil || other.Obj == nil {
			return v.Obj == other.Obj
		}
		return v.Obj.Inspect() == other.Obj.Inspect()
	default:
		return false
	}
}

func (v Value) Inspect() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.AsInt())
	case KindFloat:
		return fmt.Sprintf("%g", v.AsFloat())
	case KindBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KindUnit:
		return "()"
	case KindObj:
		if v.Obj != nil {
			return v.Obj.Inspect()
		}
		return "<nil>"
	default:
		return "<?>"
	}
}

func (v Value) Hash() uint32 {
	switch v.Kind {
	case KindInt, KindFloat, KindBool:
		return uint32(v.Data ^ (v.Data >> 32))
	case KindUnit:
		return 0
	case KindObj:
		if v.Obj != nil {
			return v.Obj.Hash()
		}
		return 0
	default:
		return 0
	}
}

// TypeTag names v's runtime type for the variant_tag/type_check
// intrinsics internal/lower emits.
func (v Value) TypeTag() string {
	switch v.Kind {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindUnit:
		return "Unit"
	case KindObj:
		if v.Obj != nil {
			return v.Obj.TypeTag()
		}
		return "Unit"
	default:
		return "?"
	}
}
