package async

import (
	"sync"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// VMBodyFuture adapts a synchronous call — running a compiled async
// function's bytecode to completion — into the Future contract. A
// fresh goroutine runs a new VM to completion and reports the outcome
// through a task handle: run is executed on its own goroutine exactly
// once (the first poll), and every subsequent Poll is a non-blocking
// check of whether that goroutine has finished yet. Any `await` the
// function body performs internally blocks that one dedicated
// goroutine, never a shared executor worker, which is safe precisely
// because run never shares its goroutine with anything else.
type VMBodyFuture struct {
	once sync.Once
	done chan struct{}
	run  func() (rtvalue.Value, error)

	value rtvalue.Value
	err   error
}

// NewVMBodyFuture wraps run as a Future.
func NewVMBodyFuture(run func() (rtvalue.Value, error)) *VMBodyFuture {
	return &VMBodyFuture{done: make(chan struct{}), run: run}
}

func (f *VMBodyFuture) Poll(waker *Waker) PollResult {
	f.once.Do(func() {
		go func() {
			f.value, f.err = f.run()
			close(f.done)
			waker.Wake()
		}()
	})
	select {
	case <-f.done:
		return PollResult{State: StateReady, Value: f.value, Err: f.err}
	default:
		return Pending()
	}
}

// Block drives f to completion on the calling goroutine, parking
// (not busy-spinning) between polls using a private wake channel. Used
// by generated code's `await` expression (OpSuspend): since every
// async Nova function body already runs on its own dedicated goroutine
// (VMBodyFuture above), blocking here costs nothing but that one
// goroutine, never a shared worker.
func Block(f Future) (rtvalue.Value, error) {
	ch := make(chan struct{}, 1)
	w := NewWaker(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	for {
		r := f.Poll(w)
		if r.IsReady() {
			return r.Value, r.Err
		}
		<-ch
	}
}
