package ffi

import (
	"context"
	"time"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// AuditSink records every FFI attempt and denial (internal/ffiaudit's
// sqlite-backed log), kept as a narrow interface here so this package
// never imports a database driver directly.
type AuditSink interface {
	Record(fnName string, argc int, allowed bool, reason string)
}

type noopAudit struct{}

func (noopAudit) Record(string, int, bool, string) {}

// Caller ties the validator, audit sink, and host bridge together
// into the single operation generated code actually calls:
// `ffi_call(fn_name, arg_count, args*)`.
type Caller struct {
	validator *Validator
	bridge    *HostBridge
	audit     AuditSink
	newString func(string) rtvalue.Value
}

// NewCaller builds a Caller. newString constructs the embedding VM's
// own string heap object from a decoded wire string (internal/vm
// supplies NewObjString wrapped in rtvalue.Obj).
func NewCaller(validator *Validator, bridge *HostBridge, audit AuditSink, newString func(string) rtvalue.Value) *Caller {
	if audit == nil {
		audit = noopAudit{}
	}
	return &Caller{validator: validator, bridge: bridge, audit: audit, newString: newString}
}

// Call validates fnName/args against the whitelist/blacklist/rate
// limit, then carries the call across the host bridge. Every outcome
// (allowed or denied) is recorded to the audit sink.
func (c *Caller) Call(ctx context.Context, fnName string, args []rtvalue.Value) (rtvalue.Value, error) {
	if err := c.validator.Check(fnName, len(args)); err != nil {
		c.audit.Record(fnName, len(args), false, err.Error())
		return rtvalue.Unit(), err
	}
	c.audit.Record(fnName, len(args), true, "")

	callCtx := ctx
	if callCtx == nil {
		callCtx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(callCtx, 10*time.Second)
	defer cancel()

	return c.bridge.Call(callCtx, fnName, args, c.newString)
}
