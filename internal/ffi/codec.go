package ffi

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// valueKind numbers mirror rtvalue.Kind but are pinned here explicitly
// (rather than cast directly) since they cross the wire in the
// nova.ffi.Value.kind field and must never silently shift if rtvalue's
// own Kind iota order changes.
const (
	wireKindUnit int32 = iota
	wireKindInt
	wireKindFloat
	wireKindBool
	wireKindString
)

// ffiString is satisfied by the one heap object type the FFI boundary
// can marshal today: a plain string (e.g. internal/vm's ObjString).
// Anything else (arrays, records, futures, tasks) is out of scope for
// a foreign call's argument/return shape, matching's "string/
// array primitives" note that FFI marshaling is a boundary operation,
// not a general object graph transfer.
type ffiString interface {
	StringValue() string
}

// encodeValue converts an rtvalue.Value into the wire Value message a
// host bridge call carries, narrowed to the small closed set of
// wire-representable kinds above.
func encodeValue(valueDesc *desc.MessageDescriptor, v rtvalue.Value) (*dynamic.Message, error) {
	msg := dynamic.NewMessage(valueDesc)
	switch v.Kind {
	case rtvalue.KindUnit:
		msg.SetFieldByName("kind", wireKindUnit)
	case rtvalue.KindInt:
		msg.SetFieldByName("kind", wireKindInt)
		msg.SetFieldByName("int_val", v.AsInt())
	case rtvalue.KindFloat:
		msg.SetFieldByName("kind", wireKindFloat)
		msg.SetFieldByName("float_val", v.AsFloat())
	case rtvalue.KindBool:
		msg.SetFieldByName("kind", wireKindBool)
		msg.SetFieldByName("bool_val", v.AsBool())
	case rtvalue.KindObj:
		s, ok := v.Obj.(ffiString)
		if !ok {
			return nil, fmt.Errorf("ffi: cannot marshal a %s value across the bridge", v.TypeTag())
		}
		msg.SetFieldByName("kind", wireKindString)
		msg.SetFieldByName("string_val", s.StringValue())
	default:
		return nil, fmt.Errorf("ffi: unknown value kind %d", v.Kind)
	}
	return msg, nil
}

// decodeValue is encodeValue's inverse, used on the host-bridge-call
// response and (by a bridge server, bridge.go) on an incoming request's
// arguments. newString builds the language's own string heap object
// from the wire string, so the decoded value is usable directly by the
// VM without a second conversion step.
func decodeValue(msg *dynamic.Message, newString func(string) rtvalue.Value) (rtvalue.Value, error) {
	kind, err := msg.TryGetFieldByName("kind")
	if err != nil {
		return rtvalue.Unit(), fmt.Errorf("ffi: decoding value kind: %w", err)
	}
	switch kind.(int32) {
	case wireKindUnit:
		return rtvalue.Unit(), nil
	case wireKindInt:
		iv, _ := msg.TryGetFieldByName("int_val")
		return rtvalue.Int(iv.(int64)), nil
	case wireKindFloat:
		fv, _ := msg.TryGetFieldByName("float_val")
		return rtvalue.Float(fv.(float64)), nil
	case wireKindBool:
		bv, _ := msg.TryGetFieldByName("bool_val")
		return rtvalue.Bool(bv.(bool)), nil
	case wireKindString:
		sv, _ := msg.TryGetFieldByName("string_val")
		return newString(sv.(string)), nil
	default:
		return rtvalue.Unit(), fmt.Errorf("ffi: unknown wire value kind %v", kind)
	}
}
