// Package ffi implements the bounded foreign-function surface: a call
// validator, a pointer registry, and the gRPC/protoreflect host bridge
// that actually carries an `ffi_call` across the process boundary —
// a validated, rate-limited, audited boundary through which every
// foreign call must route.
package ffi

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/nova-lang/nova/internal/config"
)

// ErrDenied is wrapped by every validator rejection, so callers (and
// internal/ffiaudit) can distinguish "denied" from a transport error.
var ErrDenied = fmt.Errorf("ffi: call denied")

// dangerousNamePatterns blocks foreign function names that look like
// process/filesystem escape hatches by default, regardless of what a
// whitelist manifest names —: "blocks patterns like process/
// filesystem-dangerous names". A manifest entry can still be denied by
// this even if whitelisted, since Check runs the blacklist before the
// whitelist lookup.
var dangerousNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)exec`),
	regexp.MustCompile(`(?i)syscall`),
	regexp.MustCompile(`(?i)remove`),
	regexp.MustCompile(`(?i)\bos\.(Open|Create|Chmod|Chown)`),
}

// limiter is a simple fixed-window rate limiter: no pack example wires
// a rate-limiting library (golang.org/x/time/rate is not among the
// retrieved dependencies), so this is plain standard-library
// bookkeeping — see DESIGN.md.
type limiter struct {
	mu          sync.Mutex
	perSecond   int
	windowStart time.Time
	count       int
}

func newLimiter(perSecond int) *limiter {
	return &limiter{perSecond: perSecond, windowStart: time.Now()}
}

func (l *limiter) Allow(now time.Time) bool {
	if l.perSecond <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.windowStart) >= time.Second {
		l.windowStart = now
		l.count = 0
	}
	if l.count >= l.perSecond {
		return false
	}
	l.count++
	return true
}

// Validator enforces's FFI contract: function whitelist/
// blacklist, argument-count bounds, and a per-second rate limit. A
// pointer registry is consulted separately (pointer.go) since pointer
// validity is argument-shaped, not call-shaped.
type Validator struct {
	mu        sync.RWMutex
	allow     map[string]int // fn name -> required arg count (exact match)
	blocklist []*regexp.Regexp
	limiter   *limiter
}

// NewValidator builds a validator from a whitelist of (name, arity)
// pairs — ordinarily the bindings generated by cmd/novaffigen
// (generated_bindings.go) — and resource limits threaded in from
// internal/config.Limits.
func NewValidator(limits config.Limits, whitelist map[string]int) *Validator {
	allow := make(map[string]int, len(whitelist))
	for name, arity := range whitelist {
		allow[name] = arity
	}
	return &Validator{
		allow:     allow,
		blocklist: dangerousNamePatterns,
		limiter:   newLimiter(limits.FFICallsPerSecond),
	}
}

// Check validates a single call request before anything crosses the
// process boundary. It never mutates pointer state; pointer checks
// belong to PointerRegistry.Resolve, called separately by the caller
// for each pointer-typed argument.
func (v *Validator) Check(fnName string, argc int) error {
	for _, pat := range v.blocklist {
		if pat.MatchString(fnName) {
			return fmt.Errorf("%w: %q matches a blocked name pattern", ErrDenied, fnName)
		}
	}
	v.mu.RLock()
	wantArgc, ok := v.allow[fnName]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q is not in the FFI whitelist", ErrDenied, fnName)
	}
	if argc != wantArgc {
		return fmt.Errorf("%w: %q expects %d args, got %d", ErrDenied, fnName, wantArgc, argc)
	}
	if !v.limiter.Allow(time.Now()) {
		return fmt.Errorf("%w: %q exceeded the FFI call rate limit", ErrDenied, fnName)
	}
	return nil
}
