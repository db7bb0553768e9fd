// Package async implements the runtime's cooperative task scheduler: a
// Future/poll contract, a fixed-size worker pool with per-worker ready
// queues and work stealing, and a single global timer thread. Every
// async function invocation spawns a dedicated goroutine and signals
// completion through a task handle, generalized into a reusable
// Future/Waker contract so primitives that don't need a whole
// goroutine (timers, joining another task) can participate in the
// same scheduler instead of every await blocking an OS thread.
package async

import "github.com/nova-lang/nova/internal/rtvalue"

// PollState is the two-way outcome of polling a Future once (:
// "poll(waker) → ready(value) | pending").
type PollState int

const (
	StatePending PollState = iota
	StateReady
)

// PollResult is what Future.Poll returns: either a value (Err set only
// when the future itself fails, e.g. a cancelled or timed-out task) or
// a request to be woken later.
type PollResult struct {
	State PollState
	Value rtvalue.Value
	Err   error
}

// IsReady reports whether this result carries a value (or error) rather
// than asking for another poll later.
func (r PollResult) IsReady() bool { return r.State == StateReady }

// Ready builds a successful, completed poll result.
func Ready(v rtvalue.Value) PollResult { return PollResult{State: StateReady, Value: v} }

// ReadyErr builds a completed-with-error poll result.
func ReadyErr(err error) PollResult { return PollResult{State: StateReady, Err: err} }

// Pending builds the "not yet" result: the caller must have already
// arranged for the supplied Waker to be called once progress is
// possible.
func Pending() PollResult { return PollResult{State: StatePending} }

// Future is the single contract every suspendable computation in the
// runtime implements: a VM-driven async function body, a timer, a race
// between the two, or a join on another task's completion.
type Future interface {
	Poll(w *Waker) PollResult
}

// FutureFunc adapts a plain function to the Future interface, for the
// rare future that needs no state of its own between polls.
type FutureFunc func(w *Waker) PollResult

func (f FutureFunc) Poll(w *Waker) PollResult { return f(w) }
