package vm

import (
	"fmt"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// gepField and gepDynamic implement OpGep's two forms: a
// constant field index addresses an array element or a record's
// positional payload slot; a dynamic index (carried on the stack
// instead of in the instruction) addresses an array element computed
// at runtime, or — when base is a record — is itself an ObjString
// naming a field, matching internal/lower's gepField helper which
// emits a dynamic Gep keyed by a name constant for by-name field
// access.
func gepField(base rtvalue.Value, idx int) (rtvalue.Value, error) {
	switch obj := base.Obj.(type) {
	case *ObjArray:
		if err := rtvalue.BoundsCheck(idx, len(obj.Elements)); err != nil {
			return rtvalue.Unit(), err
		}
		return obj.Elements[idx], nil
	case *ObjRecord:
		if idx >= 0 && idx < len(obj.Payload) {
			return obj.Payload[idx], nil
		}
		return rtvalue.Unit(), fmt.Errorf("vm: field index %d out of range for %s", idx, obj.TypeTag())
	default:
		return rtvalue.Unit(), fmt.Errorf("vm: cannot index into %s", base.TypeTag())
	}
}

func gepDynamic(base, index rtvalue.Value) (rtvalue.Value, error) {
	switch obj := base.Obj.(type) {
	case *ObjArray:
		if index.Kind != rtvalue.KindInt {
			return rtvalue.Unit(), fmt.Errorf("vm: array index must be Int, got %s", index.TypeTag())
		}
		i := int(index.AsInt())
		if err := rtvalue.BoundsCheck(i, len(obj.Elements)); err != nil {
			return rtvalue.Unit(), err
		}
		return obj.Elements[i], nil
	case *ObjRecord:
		name, ok := index.Obj.(*ObjString)
		if !ok {
			return rtvalue.Unit(), fmt.Errorf("vm: record field name must be String")
		}
		v, ok := obj.Fields[name.Value]
		if !ok {
			return rtvalue.Unit(), fmt.Errorf("vm: no such field %q on %s", name.Value, obj.TypeTag())
		}
		return v, nil
	default:
		return rtvalue.Unit(), fmt.Errorf("vm: cannot index into %s", base.TypeTag())
	}
}

// cast implements OpCast: a narrow set of runtime conversions between
// Int/Float/String, the only casts internal/lower's ast.CastExpr
// lowering ever needs; coercion rules for every other type pair are
// resolved earlier, during type inference.
func cast(v rtvalue.Value, target string) (rtvalue.Value, error) {
	switch target {
	case "Int":
		switch v.Kind {
		case rtvalue.KindInt:
			return v, nil
		case rtvalue.KindFloat:
			return rtvalue.Int(int64(v.AsFloat())), nil
		}
	case "Float":
		switch v.Kind {
		case rtvalue.KindFloat:
			return v, nil
		case rtvalue.KindInt:
			return rtvalue.Float(float64(v.AsInt())), nil
		}
	case "String":
		return rtvalue.Obj(NewObjString(v.Inspect())), nil
	}
	return rtvalue.Unit(), fmt.Errorf("vm: cannot cast %s to %s", v.TypeTag(), target)
}
