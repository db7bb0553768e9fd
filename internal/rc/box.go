// Package rc implements the reference-counted heap: atomic strong/weak
// counted boxes, weak references, and a concurrent cycle collector
// specialized for RC (Bacon-Rajan style).
//
// The concurrency idioms here — atomic counters, a mutex-guarded
// suspect set, a background goroutine driven by a ticker plus an
// explicit trigger channel — mirror the shape of an event-loop
// background flusher: atomic fields for hot-path state, a small
// mutex-protected collection for bookkeeping, and a background flush
// goroutine triggered by either a threshold or a timer.
package rc

import "sync/atomic"

// Tracer is implemented by any value a Box holds that can itself carry
// outgoing handle references to other boxes. The cycle collector calls
// Trace to enumerate a box's children without needing to know their
// concrete type.
type Tracer interface {
	Trace(visit func(*Box))
}

type color int32

const (
	colorBlack color = iota // in use, or not yet considered
	colorGray               // candidate, refcounts being decremented
	colorWhite              // candidate garbage
)

// Box is one reference-counted allocation. Strong and weak counts are
// atomic per; the color/crc/buffered fields are scratch state
// touched only by the collector, and only while a box is registered in
// exactly one suspect-set snapshot at a time, so they need no locking
// of their own.
type Box struct {
	strong atomic.Int64
	weak   atomic.Int64

	typeTag string
	value   Tracer

	color    color
	crc      int64
	buffered bool
}

// NewBox allocates a box with one strong reference. The weak count
// starts at 1 too: that extra weak reference represents strong
// ownership itself, released only once the strong count reaches zero.
func NewBox(typeTag string, value Tracer) *Box {
	b := &Box{typeTag: typeTag, value: value}
	b.strong.Store(1)
	b.weak.Store(1)
	return b
}

func (b *Box) TypeTag() string { return b.typeTag }

// Value returns the payload, or nil if the box has already been
// dropped (by an ordinary release-to-zero or by the cycle collector).
func (b *Box) Value() Tracer { return b.value }

// StrongCount and WeakCount expose the live counts, chiefly for tests
// and memory-profile reporting.
func (b *Box) StrongCount() int64 { return b.strong.Load() }
func (b *Box) WeakCount() int64   { return b.weak.Load() }

// Retain increments the strong count: `fetch_add(1, Relaxed)`.
func (b *Box) Retain() int64 { return b.strong.Add(1) }

// Release decrements the strong count: `fetch_sub(1, Release)`. When
// it transitions 1->0, the box's value is dropped and the implicit
// weak is released; otherwise the box is reported to c as a
// cycle-collector suspect, since a decrement that does not reach zero
// may be part of a reference cycle. c may be nil in contexts with no
// collector (e.g. unit tests exercising Box in isolation), in which
// case the box is simply never swept for cycles.
func (b *Box) Release(c *Collector) int64 {
	n := b.strong.Add(-1)
	if n < 0 {
		panic("rc: release of box with non-positive strong count")
	}
	if n == 0 {
		// The Add above already establishes a release edge; because
		// this goroutine is the one that observed the 1->0
		// transition, it has a happens-before relationship with every
		// prior Retain/Release on this box, which stands in for the
		// acquire fence a C destructor would need explicitly.
		b.value = nil
		b.releaseWeak()
		return n
	}
	if c != nil {
		c.suspect(b)
	}
	return n
}

// Downgrade creates a new weak reference, incrementing the weak count.
func (b *Box) Downgrade() *WeakRef {
	b.weak.Add(1)
	return &WeakRef{box: b}
}

func (b *Box) releaseWeak() int64 {
	return b.weak.Add(-1)
}

// WeakRef is a non-owning handle into a Box: upgrading it only
// succeeds while the box's strong count is still nonzero.
type WeakRef struct {
	box *Box
}

// Upgrade attempts to promote the weak reference back to a strong one,
// returning the box and true iff its strong count was nonzero. This is
// a CAS loop that increments the strong count only if it is nonzero,
// which is what makes upgrade use-after-free-proof: a box whose strong
// count already reached zero can never have it bumped back up.
func (w *WeakRef) Upgrade() (*Box, bool) {
	for {
		strong := w.box.strong.Load()
		if strong == 0 {
			return nil, false
		}
		if w.box.strong.CompareAndSwap(strong, strong+1) {
			return w.box, true
		}
	}
}

// Drop releases the weak reference itself.
func (w *WeakRef) Drop() {
	w.box.releaseWeak()
}
