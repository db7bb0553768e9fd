package source

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Renderer prints diagnostics in a stable, language-server-parseable
// format, adding ANSI color only when the destination is a real
// terminal.
type Renderer struct {
	w      io.Writer
	color  bool
	noopCk bool // tests can force color off/on regardless of the fd
}

func NewRenderer(w io.Writer) *Renderer {
	r := &Renderer{w: w}
	if f, ok := w.(*os.File); ok {
		r.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return r
}

// ForceColor overrides terminal detection; used by tests.
func (r *Renderer) ForceColor(on bool) { r.color = on; r.noopCk = true }

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func (r *Renderer) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + ansiReset
}

// Render writes one diagnostic in the stable wire format:
//
//	<file>:<line>:<col>: <severity>[<code>]: <message>
//	  = note: <secondary message> (<file>:<line>:<col>)
//	  suggestion: replace <file>:<line>:<col> with "<replacement>"
func (r *Renderer) Render(d *Diagnostic) {
	sevColor := ansiRed
	switch d.Severity {
	case SeverityWarning:
		sevColor = ansiYellow
	case SeverityNote:
		sevColor = ansiBlue
	}
	fmt.Fprintf(r.w, "%s: %s[%s]: %s\n",
		r.paint(ansiBold, d.Primary.String()),
		r.paint(sevColor, d.Severity.String()),
		d.Code, d.Message)

	for _, lbl := range d.Secondary {
		fmt.Fprintf(r.w, "  = note: %s (%s)\n", lbl.Message, lbl.Span.String())
	}
	if d.Suggestion != nil {
		fmt.Fprintf(r.w, "  suggestion: replace %s with %q\n", d.Suggestion.Span.String(), d.Suggestion.Replacement)
	}
}

// RenderAll renders every diagnostic in a bag in order.
func (r *Renderer) RenderAll(bag *Bag) {
	for _, d := range bag.Diagnostics() {
		r.Render(d)
	}
}
