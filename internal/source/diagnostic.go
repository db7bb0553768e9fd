package source

import "fmt"

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Label attaches a short message to a secondary span, e.g. "expected here".
type Label struct {
	Span    Span
	Message string
}

// Suggestion is a machine-applicable fix: replace Span with Replacement.
type Suggestion struct {
	Span        Span
	Replacement string
}

// Diagnostic is the sole vehicle for user-visible compiler/runtime
// messages. Every Diagnostic carries a primary Span (invariant).
type Diagnostic struct {
	Severity   Severity
	Code       string // closed per-phase code, e.g. "L001", "P014", "T003"
	Primary    Span
	Secondary  []Label
	Message    string
	Suggestion *Suggestion
}

func New(sev Severity, code string, primary Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  fmt.Sprintf(format, args...),
	}
}

func Errorf(code string, primary Span, format string, args ...any) *Diagnostic {
	return New(SeverityError, code, primary, format, args...)
}

func Warnf(code string, primary Span, format string, args ...any) *Diagnostic {
	return New(SeverityWarning, code, primary, format, args...)
}

func (d *Diagnostic) WithLabel(span Span, format string, args ...any) *Diagnostic {
	d.Secondary = append(d.Secondary, Label{Span: span, Message: fmt.Sprintf(format, args...)})
	return d
}

func (d *Diagnostic) WithSuggestion(span Span, replacement string) *Diagnostic {
	d.Suggestion = &Suggestion{Span: span, Replacement: replacement}
	return d
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: [%s] %s", d.Primary.String(), d.Severity, d.Code, d.Message)
}

// Bag accumulates diagnostics across a compilation phase so that
// sibling declarations can keep going after one fails.
type Bag struct {
	diags []*Diagnostic
}

func (b *Bag) Add(d *Diagnostic) { b.diags = append(b.diags, d) }

func (b *Bag) Diagnostics() []*Diagnostic { return b.diags }

// HasErrors reports whether any error-severity diagnostic was recorded;
// the compiler exits nonzero iff this is true.
func (b *Bag) HasErrors() bool {
	for _, d := range b.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (b *Bag) Extend(other *Bag) {
	if other == nil {
		return
	}
	b.diags = append(b.diags, other.diags...)
}
