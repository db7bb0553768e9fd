package async

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// ErrTimedOut is returned by a TimeoutFuture when its inner future
// loses the race against the deadline.
var ErrTimedOut = errors.New("async: operation timed out")

type timerEntry struct {
	at    time.Time
	waker *Waker
	index int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) { e := x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// timerWheel is the runtime's single global timer thread: a min-heap
// of pending wakeups drained by one goroutine that sleeps until the
// next deadline and wakes early whenever a sooner entry is scheduled.
type timerWheel struct {
	mu      sync.Mutex
	entries timerHeap
	nudge   chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func newTimerWheel() *timerWheel {
	return &timerWheel{nudge: make(chan struct{}, 1), stop: make(chan struct{}), done: make(chan struct{})}
}

func (w *timerWheel) start() { go w.run() }

func (w *timerWheel) run() {
	defer close(w.done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		w.mu.Lock()
		wait := time.Hour
		if len(w.entries) > 0 {
			wait = time.Until(w.entries[0].at)
			if wait < 0 {
				wait = 0
			}
		}
		w.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-w.stop:
			return
		case <-w.nudge:
			continue
		case <-timer.C:
			w.fireDue()
		}
	}
}

func (w *timerWheel) fireDue() {
	now := time.Now()
	var fired []*Waker
	w.mu.Lock()
	for len(w.entries) > 0 && !w.entries[0].at.After(now) {
		e := heap.Pop(&w.entries).(*timerEntry)
		fired = append(fired, e.waker)
	}
	w.mu.Unlock()
	for _, wk := range fired {
		wk.Wake()
	}
}

func (w *timerWheel) schedule(at time.Time, waker *Waker) {
	w.mu.Lock()
	heap.Push(&w.entries, &timerEntry{at: at, waker: waker})
	soonest := w.entries[0].waker == waker
	w.mu.Unlock()
	if soonest {
		select {
		case w.nudge <- struct{}{}:
		default:
		}
	}
}

func (w *timerWheel) Stop() {
	close(w.stop)
	<-w.done
}

// TimerFuture resolves to Unit once its deadline has elapsed; backs
// sleep/delay primitives and the timer half of a timeout race.
type TimerFuture struct {
	wheel    *timerWheel
	deadline time.Time
	started  bool
}

// NewFuture builds a future that becomes ready after d has elapsed.
func (w *timerWheel) NewFuture(d time.Duration) *TimerFuture {
	return &TimerFuture{wheel: w, deadline: time.Now().Add(d)}
}

func (f *TimerFuture) Poll(waker *Waker) PollResult {
	if !time.Now().Before(f.deadline) {
		return Ready(rtvalue.Unit())
	}
	if !f.started {
		f.started = true
		f.wheel.schedule(f.deadline, waker)
	}
	return Pending()
}

// timeoutFuture races inner against a deadline, resolving with
// ErrTimedOut if the deadline wins.
type timeoutFuture struct {
	inner Future
	timer *TimerFuture
}

// Timeout wraps inner so that it resolves with ErrTimedOut if it has
// not completed within d.
func Timeout(inner Future, wheel *timerWheel, d time.Duration) Future {
	return &timeoutFuture{inner: inner, timer: wheel.NewFuture(d)}
}

func (f *timeoutFuture) Poll(waker *Waker) PollResult {
	if r := f.inner.Poll(waker); r.IsReady() {
		return r
	}
	if r := f.timer.Poll(waker); r.IsReady() {
		return ReadyErr(ErrTimedOut)
	}
	return Pending()
}

// Join backs `task_await(task_id) → value`: it resolves once target
// completes (successfully, with an error, or via cancellation),
// forwarding target's own outcome. The first pending poll installs a
// single watcher goroutine that blocks on target's completion channel
// and wakes this future's caller — cheap, since target.Done() is a
// closed-channel receive, not a busy loop.
func Join(target *Task) Future { return &joinFuture{target: target} }

type joinFuture struct {
	target    *Task
	installed bool
}

func (f *joinFuture) Poll(waker *Waker) PollResult {
	select {
	case <-f.target.Done():
		v, err := f.target.Result()
		return PollResult{State: StateReady, Value: v, Err: err}
	default:
	}
	if !f.installed {
		f.installed = true
		go func() {
			<-f.target.Done()
			waker.Wake()
		}()
	}
	return Pending()
}
