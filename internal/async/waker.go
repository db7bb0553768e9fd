package async

// Waker lets a pending Future tell the scheduler "I might be ready now,
// re-poll me" without the scheduler busy-polling — a timer firing,
// another task completing, an FFI callback returning all hold onto one
// of these and call Wake from whatever goroutine actually observes
// readiness.
type Waker struct {
	wake func()
}

// NewWaker wraps an arbitrary reschedule callback as a Waker.
func NewWaker(wake func()) *Waker { return &Waker{wake: wake} }

// Wake invokes the reschedule callback. Safe to call from any
// goroutine, any number of times, including after the owning future
// has already completed — every Wake implementation in this package
// checks completion state first and silently drops redundant wakes.
func (w *Waker) Wake() {
	if w == nil || w.wake == nil {
		return
	}
	w.wake()
}
