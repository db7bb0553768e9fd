package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/nova-lang/nova/internal/config"
	"github.com/nova-lang/nova/internal/rtvalue"
)

var (
	// ErrTaskBudgetExceeded is returned by Spawn when ctx is done before
	// a concurrent-task slot frees up.
	ErrTaskBudgetExceeded = errors.New("async: max concurrent task budget exceeded")
	// ErrTaskCancelled is the value a cancelled task's Result/Poll
	// resolves with once cancellation is observed.
	ErrTaskCancelled = errors.New("async: task cancelled")
	// ErrReentrantPoll is raised as a Go panic if a future is somehow
	// polled again before its prior poll returned: re-entry is a fatal
	// diagnostic, not a recoverable error.
	ErrReentrantPoll = errors.New("async: future polled while already being polled")
)

// worker owns one ready queue; workerLoop drains it, falling back to
// stealing from sibling workers before parking.
type worker struct {
	id    int
	queue chan *Task
}

// Executor drives tasks to completion on a fixed-size worker pool with
// per-worker ready queues and work stealing, signaling completion
// through a task handle, with an explicit Future/Waker contract plus
// golang.org/x/sync's Weighted semaphore enforcing a mandatory
// max-concurrent-task budget. The executor itself starts no goroutine
// per task; a future that needs one (VMBodyFuture) starts its own.
type Executor struct {
	log    *zap.Logger
	limits config.Limits
	budget *semaphore.Weighted
	timer  *timerWheel

	workers []*worker
	roundRobin atomic.Uint64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	tasksMu sync.Mutex
	tasks   map[uuid.UUID]*Task

	statsMu sync.Mutex
	stats   Stats
}

// Stats tracks lifetime executor counters, surfaced for diagnostics and
// tests via a plain snapshot (see internal/rc.Collector.StatsSnapshot
// for the same pattern applied to the cycle collector).
type Stats struct {
	Spawned   int64
	Completed int64
	Cancelled int64
	TimedOut  int64
}

// NewExecutor builds an executor with numWorkers ready-queue workers
// (a sensible default is runtime.NumCPU, chosen by the caller) and
// starts its worker pool and timer thread.
func NewExecutor(log *zap.Logger, limits config.Limits, numWorkers int) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	e := &Executor{
		log:    log,
		limits: limits,
		budget: semaphore.NewWeighted(limits.MaxConcurrentTasks),
		timer:  newTimerWheel(),
		stopCh: make(chan struct{}),
		tasks:  make(map[uuid.UUID]*Task),
	}
	for i := 0; i < numWorkers; i++ {
		e.workers = append(e.workers, &worker{id: i, queue: make(chan *Task, 256)})
	}
	e.timer.start()
	for _, w := range e.workers {
		e.wg.Add(1)
		go e.workerLoop(w)
	}
	return e
}

// Stop halts every worker and the timer thread, blocking until all have
// exited; spawned-but-unfinished tasks are left exactly as they were
// (neither cancelled nor completed) — the process simply stops
// scheduling them rather than force-killing.
func (e *Executor) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	e.wg.Wait()
	e.timer.Stop()
}

// StatsSnapshot returns a copy of the executor's lifetime counters.
func (e *Executor) StatsSnapshot() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// Spawn validates the task budget, registers a new task id, and pushes
// future onto a worker's ready queue. maxWallTime of 0 uses the
// executor's configured default.
func (e *Executor) Spawn(ctx context.Context, future Future, maxWallTime time.Duration) (*Task, error) {
	if err := e.budget.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTaskBudgetExceeded, err)
	}
	if maxWallTime <= 0 {
		maxWallTime = e.limits.MaxTaskWallTime
	}
	t := newTask(ctx, future, maxWallTime)
	t.onCancel = func() { e.enqueue(t) }

	e.tasksMu.Lock()
	e.tasks[t.ID] = t
	e.tasksMu.Unlock()

	e.statsMu.Lock()
	e.stats.Spawned++
	e.statsMu.Unlock()

	idx := int(e.roundRobin.Add(1)) % len(e.workers)
	t.home = e.workers[idx].queue
	e.enqueue(t)

	if !t.deadline.IsZero() {
		// A task that never wakes itself still must be re-driven once
		// its wall-time budget expires, so the deadline check in drive
		// actually gets a chance to run — schedule a timer wake for
		// exactly that moment rather than relying on the task's own
		// future to ever poll again.
		e.timer.schedule(t.deadline, NewWaker(func() { e.wake(t) }))
	}

	e.log.Debug("task spawned", zap.String("task_id", t.ID.String()))
	return t, nil
}

// Lookup finds a still-tracked task by id, for task_await.
func (e *Executor) Lookup(id uuid.UUID) (*Task, bool) {
	e.tasksMu.Lock()
	defer e.tasksMu.Unlock()
	t, ok := e.tasks[id]
	return t, ok
}

func (e *Executor) enqueue(t *Task) {
	select {
	case t.home <- t:
	default:
		// Home queue momentarily full: hand off without blocking the
		// caller of Spawn/Wake; another worker's steal scan will pick
		// it up, or the send below completes once room frees up.
		go func() { t.home <- t }()
	}
}

func (e *Executor) workerLoop(w *worker) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case t := <-w.queue:
			e.drive(t)
		default:
			if t := e.steal(w); t != nil {
				e.drive(t)
				continue
			}
			select {
			case <-e.stopCh:
				return
			case t := <-w.queue:
				e.drive(t)
			}
		}
	}
}

// steal scans sibling workers' queues for ready work without blocking,
// the pool's work-stealing half.
func (e *Executor) steal(self *worker) *Task {
	for _, w := range e.workers {
		if w.id == self.id {
			continue
		}
		select {
		case t := <-w.queue:
			return t
		default:
		}
	}
	return nil
}

// drive polls t exactly once, enforcing the reentrancy and wall-time
// invariants, then either completes it or (on Pending, with a wake
// already observed during the poll) immediately reschedules it: a wake
// observed before a poll returns is guaranteed to trigger a re-poll.
func (e *Executor) drive(t *Task) {
	switch taskState(t.state.Load()) {
	case taskCompleted:
		return
	case taskCancelled:
		t.complete(rtvalue.Unit(), ErrTaskCancelled)
		e.finish(t, finishOutcome{cancelled: true})
		return
	}

	if !t.deadline.IsZero() && !time.Now().Before(t.deadline) {
		t.Cancel()
		t.complete(rtvalue.Unit(), context.DeadlineExceeded)
		e.finish(t, finishOutcome{cancelled: true, timedOut: true})
		return
	}

	t.state.CompareAndSwap(int32(taskPending), int32(taskRunning))

	if !t.inPoll.CompareAndSwap(false, true) {
		panic(ErrReentrantPoll)
	}
	t.pendingWake.Store(false)
	waker := NewWaker(func() { e.wake(t) })
	result := t.future.Poll(waker)
	t.inPoll.Store(false)

	if result.IsReady() {
		t.complete(result.Value, result.Err)
		e.finish(t, finishOutcome{})
		return
	}
	if t.pendingWake.Load() {
		e.enqueue(t)
	}
}

// wake is the callback every Waker handed to a task's future ultimately
// calls; it drops wakes for tasks that have already finished and,
// for a wake arriving mid-poll, records it so drive's caller re-enqueues
// immediately instead of relying on a second external Wake that may
// never come.
func (e *Executor) wake(t *Task) {
	if taskState(t.state.Load()) == taskCompleted {
		return
	}
	if t.inPoll.Load() {
		t.pendingWake.Store(true)
		return
	}
	e.enqueue(t)
}

// finishOutcome records why a task finished, since by the time finish
// runs t.complete has already overwritten its state to taskCompleted —
// reading t.state back here would lose the cancelled/timed-out
// distinction the caller already knows.
type finishOutcome struct {
	cancelled bool
	timedOut  bool
}

func (e *Executor) finish(t *Task, outcome finishOutcome) {
	e.budget.Release(1)
	e.tasksMu.Lock()
	delete(e.tasks, t.ID)
	e.tasksMu.Unlock()

	e.statsMu.Lock()
	e.stats.Completed++
	if outcome.timedOut {
		e.stats.TimedOut++
	}
	if outcome.cancelled {
		e.stats.Cancelled++
	}
	e.statsMu.Unlock()

	e.log.Debug("task finished", zap.String("task_id", t.ID.String()))
}

// NewTimer exposes the executor's single timer thread for library code
// (internal/vm's sleep/timeout intrinsics) that needs a TimerFuture
// without constructing its own wheel.
func (e *Executor) NewTimer(d time.Duration) *TimerFuture { return e.timer.NewFuture(d) }

// Timeout races future against d on the executor's timer thread.
func (e *Executor) Timeout(future Future, d time.Duration) Future {
	return Timeout(future, e.timer, d)
}
