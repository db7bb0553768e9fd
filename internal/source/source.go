// Package source tracks source units and byte spans.
package source

import "strings"

// Unit is a single compiled source file (or REPL chunk).
type Unit struct {
	ID       int
	Name     string // file name, or "<repl>" for interactive input
	Contents string

	lineStarts []int // byte offset of the start of each line, computed lazily
}

// NewUnit wraps source text under the given display name.
func NewUnit(id int, name, contents string) *Unit {
	return &Unit{ID: id, Name: name, Contents: contents}
}

func (u *Unit) ensureLineStarts() {
	if u.lineStarts != nil {
		return
	}
	starts := []int{0}
	for i, b := range []byte(u.Contents) {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	u.lineStarts = starts
}

// LineCol converts a byte offset into a 1-based line and column.
func (u *Unit) LineCol(offset int) (line, col int) {
	u.ensureLineStarts()
	// binary search for the last line start <= offset
	lo, hi := 0, len(u.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if u.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - u.lineStarts[lo] + 1
}

// Span is a half-open byte range [Start, End) within Unit.
type Span struct {
	Unit  *Unit
	Start int
	End   int
}

// Empty reports whether the span contains no bytes.
func (s Span) Empty() bool { return s.End <= s.Start }

// Text returns the source bytes the span covers.
func (s Span) Text() string {
	if s.Unit == nil || s.Empty() {
		return ""
	}
	return s.Unit.Contents[s.Start:s.End]
}

// Join returns the smallest span covering both s and other. Both must
// belong to the same unit; Join panics otherwise since that indicates a
// compiler bug, not a user-facing condition.
func (s Span) Join(other Span) Span {
	if s.Unit != other.Unit {
		panic("source: Join across different units")
	}
	start, end := s.Start, s.End
	if other.Start < start {
		start = other.Start
	}
	if other.End > end {
		end = other.End
	}
	return Span{Unit: s.Unit, Start: start, End: end}
}

// Join is the package-level form of Span.Join, convenient at call
// sites that join two freshly captured spans rather than chaining off
// an existing value.
func Join(a, b Span) Span { return a.Join(b) }

// String renders "name:line:col" for diagnostics and debug dumps.
func (s Span) String() string {
	if s.Unit == nil {
		return "<unknown>"
	}
	line, col := s.Unit.LineCol(s.Start)
	return s.Unit.Name + ":" + itoa(line) + ":" + itoa(col)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b strings.Builder
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		b.WriteByte('-')
	}
	b.Write(digits[i:])
	return b.String()
}
