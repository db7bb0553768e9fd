package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nova-lang/nova/internal/rtvalue"
)

type taskState int32

const (
	taskPending taskState = iota
	taskRunning
	taskCompleted
	taskCancelled
)

// Task is one scheduled unit of work: a Future plus the bookkeeping the
// executor needs to drive it to completion exactly once per ready-queue
// visit; resuming it a second time concurrently is a fatal diagnostic,
// not a recoverable error. Task ids never repeat for the lifetime of
// the runtime (backed by github.com/google/uuid), matching the ABI's
// `task_spawn(future) → task_id` contract.
type Task struct {
	ID     uuid.UUID
	future Future
	home   chan *Task

	state       atomic.Int32
	inPoll      atomic.Bool
	pendingWake atomic.Bool

	mu     sync.Mutex
	result rtvalue.Value
	err    error
	done   chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	deadline time.Time

	// onCancel is set by Executor.Spawn to reschedule the task the
	// moment Cancel is called, so the "next poll observes cancellation"
	// guarantee is honored promptly instead of waiting for some
	// unrelated wake to arrive.
	onCancel func()
}

func newTask(ctx context.Context, future Future, maxWallTime time.Duration) *Task {
	cctx, cancel := context.WithCancel(ctx)
	t := &Task{
		ID:     uuid.New(),
		future: future,
		done:   make(chan struct{}),
		ctx:    cctx,
		cancel: cancel,
	}
	if maxWallTime > 0 {
		t.deadline = time.Now().Add(maxWallTime)
	}
	t.state.Store(int32(taskPending))
	return t
}

// Context is cancelled the moment the task is cancelled, so any
// blocking operation the task's own future performs (an FFI call, a
// nested task join) can observe cancellation promptly.
func (t *Task) Context() context.Context { return t.ctx }

// Cancel transitions the task to cancelled state; the next poll
// observes cancellation and returns a cancelled error. Cancellation is
// cooperative. Safe to call more than once or after the task has
// already completed.
func (t *Task) Cancel() {
	for {
		s := taskState(t.state.Load())
		if s == taskCompleted || s == taskCancelled {
			return
		}
		if t.state.CompareAndSwap(int32(s), int32(taskCancelled)) {
			t.cancel()
			if t.onCancel != nil {
				t.onCancel()
			}
			return
		}
	}
}

// Done reports task completion (successful, errored, or cancelled) to
// anyone blocking on it — task_await's implementation.
func (t *Task) Done() <-chan struct{} { return t.done }

// Result blocks until the task finishes and returns its outcome; backs
// the `task_await(task_id) → value` ABI entry via this package's Join
// future (timer.go).
func (t *Task) Result() (rtvalue.Value, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

func (t *Task) complete(v rtvalue.Value, err error) {
	t.mu.Lock()
	alreadyDone := t.state.Load() == int32(taskCompleted)
	if !alreadyDone {
		t.result, t.err = v, err
	}
	t.mu.Unlock()
	if alreadyDone {
		return
	}
	t.state.Store(int32(taskCompleted))
	close(t.done)
}
