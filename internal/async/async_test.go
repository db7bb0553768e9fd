package async

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nova-lang/nova/internal/config"
	"github.com/nova-lang/nova/internal/rtvalue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLimits() config.Limits {
	lim := config.DefaultLimits()
	lim.MaxConcurrentTasks = 8
	lim.MaxTaskWallTime = time.Second
	return lim
}

// countingFuture becomes ready after N polls, to exercise the
// pending-then-ready path (and the waker each pending poll installs)
// without depending on a real timer or goroutine.
type countingFuture struct {
	remaining int
}

func (f *countingFuture) Poll(w *Waker) PollResult {
	if f.remaining <= 0 {
		return Ready(rtvalue.Int(42))
	}
	f.remaining--
	w.Wake() // immediately ready to be re-polled; exercises the ordering guarantee
	return Pending()
}

func TestSpawnAndResultAfterMultiplePolls(t *testing.T) {
	e := NewExecutor(nil, testLimits(), 2)
	defer e.Stop()

	task, err := e.Spawn(context.Background(), &countingFuture{remaining: 3}, 0)
	require.NoError(t, err)

	v, err := task.Result()
	require.NoError(t, err)
	require.Equal(t, int64(42), v.AsInt())
}

func TestCancelBeforeCompletionReturnsCancelledError(t *testing.T) {
	e := NewExecutor(nil, testLimits(), 1)
	defer e.Stop()

	polled := make(chan struct{}, 1)
	f := FutureFunc(func(w *Waker) PollResult {
		select {
		case polled <- struct{}{}:
		default:
		}
		return Pending() // never completes on its own
	})
	task, err := e.Spawn(context.Background(), f, 0)
	require.NoError(t, err)

	<-polled // wait until the task has actually been parked pending
	task.Cancel()

	_, err = task.Result()
	require.ErrorIs(t, err, ErrTaskCancelled)
}

func TestTimerFutureResolvesAfterDeadline(t *testing.T) {
	e := NewExecutor(nil, testLimits(), 1)
	defer e.Stop()

	task, err := e.Spawn(context.Background(), e.NewTimer(20*time.Millisecond), 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case <-task.Done():
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	v, err := task.Result()
	require.NoError(t, err)
	require.Equal(t, rtvalue.Unit(), v)
}

func TestTimeoutRacesInnerFutureAndWins(t *testing.T) {
	e := NewExecutor(nil, testLimits(), 1)
	defer e.Stop()

	neverReady := FutureFunc(func(w *Waker) PollResult { return Pending() })
	task, err := e.Spawn(context.Background(), e.Timeout(neverReady, 15*time.Millisecond), 0)
	require.NoError(t, err)

	_, err = task.Result()
	require.ErrorIs(t, err, ErrTimedOut)
}

func TestJoinObservesAnotherTasksCompletion(t *testing.T) {
	e := NewExecutor(nil, testLimits(), 2)
	defer e.Stop()

	inner, err := e.Spawn(context.Background(), FutureFunc(func(w *Waker) PollResult {
		return Ready(rtvalue.Int(7))
	}), 0)
	require.NoError(t, err)

	outer, err := e.Spawn(context.Background(), Join(inner), 0)
	require.NoError(t, err)

	v, err := outer.Result()
	require.NoError(t, err)
	require.Equal(t, int64(7), v.AsInt())
}

func TestMaxTaskWallTimeCancelsLongRunningTask(t *testing.T) {
	lim := testLimits()
	lim.MaxTaskWallTime = 10 * time.Millisecond
	e := NewExecutor(nil, lim, 1)
	defer e.Stop()

	task, err := e.Spawn(context.Background(), FutureFunc(func(w *Waker) PollResult {
		return Pending() // never completes on its own
	}), 0)
	require.NoError(t, err)

	_, err = task.Result()
	require.Error(t, err)
	require.Equal(t, int64(1), e.StatsSnapshot().TimedOut)
}

func TestVMBodyFutureRunsOnceAndBlockWaitsForIt(t *testing.T) {
	calls := 0
	f := NewVMBodyFuture(func() (rtvalue.Value, error) {
		calls++
		return rtvalue.Int(99), nil
	})
	v, err := Block(f)
	require.NoError(t, err)
	require.Equal(t, int64(99), v.AsInt())
	require.Equal(t, 1, calls)
}
