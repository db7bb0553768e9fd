package rc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain asserts the collector's background goroutine never outlives
// a test that started it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// node is a minimal Tracer used only by these tests: a box that may
// point at up to one other box, standing in for the `a.next = b`
// cyclic-record scenario (spec scenario 4: "A program allocates two
// records a and b, sets a.next = b and b.next = a, then drops its own
// references").
type node struct {
	next *Box
}

func (n *node) Trace(visit func(*Box)) {
	if n.next != nil {
		visit(n.next)
	}
}

func TestRetainReleaseWithoutCycleFreesAtZero(t *testing.T) {
	b := NewBox("String", nil)
	require.EqualValues(t, 1, b.StrongCount())
	b.Retain()
	require.EqualValues(t, 2, b.StrongCount())
	require.EqualValues(t, 1, b.Release(nil))
	require.EqualValues(t, 0, b.Release(nil))
	require.Nil(t, b.Value())
}

func TestWeakUpgradeFailsAfterStrongReachesZero(t *testing.T) {
	b := NewBox("String", nil)
	w := b.Downgrade()
	require.EqualValues(t, 0, b.Release(nil))
	_, ok := w.Upgrade()
	require.False(t, ok)
}

func TestWeakUpgradeSucceedsWhileStrongAlive(t *testing.T) {
	b := NewBox("String", nil)
	w := b.Downgrade()
	upgraded, ok := w.Upgrade()
	require.True(t, ok)
	require.Same(t, b, upgraded)
	require.EqualValues(t, 2, b.StrongCount())
}

func TestCollectorReclaimsSimpleCycle(t *testing.T) {
	c := NewCollector(nil, DefaultConfig())

	a := NewBox("Record", nil)
	bx := NewBox("Record", nil)
	a.value = &node{next: bx}
	bx.value = &node{next: a}
	bx.Retain() // a's edge to b
	a.Retain()  // b's edge to a

	// The owning scope's own handles are dropped; each box's strong
	// count (1, from the other box's edge) does not reach zero, so
	// both are reported as suspects instead of freed outright.
	a.Release(c)
	bx.Release(c)

	require.Equal(t, 2, c.Snapshot())
	collected := c.Collect()
	require.Equal(t, 2, collected)
	require.EqualValues(t, 0, a.StrongCount())
	require.EqualValues(t, 0, bx.StrongCount())
}

func TestCollectorLeavesExternallyRootedSubgraphAlone(t *testing.T) {
	c := NewCollector(nil, DefaultConfig())

	a := NewBox("Record", nil)
	bx := NewBox("Record", nil)
	a.value = &node{next: bx}
	bx.value = &node{next: a}
	bx.Retain()
	a.Retain()

	root := bx.Retain() // external strong reference survives
	_ = root

	a.Release(c)
	bx.Release(c)

	collected := c.Collect()
	require.Equal(t, 0, collected)
	require.EqualValues(t, 2, bx.StrongCount())
}

func TestCollectorBackgroundLoopSweepsOnTriggerAndStops(t *testing.T) {
	c := NewCollector(nil, Config{SuspectThreshold: 1, AllocThreshold: 1 << 30, SweepInterval: time.Hour})
	c.Start()
	defer c.Stop()

	a := NewBox("Record", nil)
	bx := NewBox("Record", nil)
	a.value = &node{next: bx}
	bx.value = &node{next: a}
	bx.Retain()
	a.Retain()
	a.Release(c) // crosses SuspectThreshold=1, fires the trigger channel
	bx.Release(c)

	require.Eventually(t, func() bool {
		return c.StatsSnapshot().Collected == 2
	}, time.Second, 5*time.Millisecond)
}
