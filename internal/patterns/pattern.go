// Package patterns implements the pattern-matching compiler (component
// C7): a Maranget-style usefulness/exhaustiveness check over
// match arms, unreachable-arm detection, and a decision tree used by
// the lowering phase (C11) to compile a match into branches instead of
// a linear chain of tests.
package patterns

import "github.com/nova-lang/nova/internal/ast"

// Kind distinguishes the shape of a simplified pattern, after
// bindings, guards, and or-alternation have been stripped out (
// reduces pattern matching to these four shapes; everything else is
// sugar over them).
type Kind int

const (
	Wildcard Kind = iota
	Literal
	Ctor
	Array
)

// Pat is a simplified pattern used by the usefulness algorithm. It
// deliberately drops variable names (binding doesn't affect coverage)
// and guard conditions (a guard never lets a pattern discharge
// exhaustiveness), keeping only what matters for "does this
// cover that value".
type Pat struct {
	Kind     Kind
	CtorName string // Ctor: enum variant name, or "{}" for a record pattern
	Args     []*Pat // Ctor: payload sub-patterns; Array: fixed-prefix elements
	Literal  any    // Literal: a comparable Go value (int64, float64, bool, string, rune) or rangeLit
	HasRest  bool   // Array only: whether a `...rest` tail is present
}

type rangeLit struct {
	Low, High int64
	Inclusive bool
}

func wildcard() *Pat { return &Pat{Kind: Wildcard} }

// FromAST lowers one AST pattern into its simplified alternatives: a
// plain pattern yields exactly one alternative, but an OrPattern
// yields one alternative per branch (each checked for coverage
// independently), and a compound pattern whose children contain
// or-alternatives yields the cartesian product of them.
func FromAST(p ast.Pattern) []*Pat {
	switch n := p.(type) {
	case *ast.WildcardPattern, *ast.IdentifierPattern:
		return []*Pat{wildcard()}

	case *ast.LiteralPattern:
		return []*Pat{{Kind: Literal, Literal: literalValue(n.Value)}}

	case *ast.RangePattern:
		lo, hi := intBound(n.Low), intBound(n.High)
		return []*Pat{{Kind: Literal, Literal: rangeLit{Low: lo, High: hi, Inclusive: n.Inclusive}}}

	case *ast.ConstructorPattern:
		argAlts := fromASTAll(n.Payload)
		var out []*Pat
		for _, args := range cartesian(argAlts) {
			out = append(out, &Pat{Kind: Ctor, CtorName: n.Name, Args: args})
		}
		if len(out) == 0 {
			out = append(out, &Pat{Kind: Ctor, CtorName: n.Name})
		}
		return out

	case *ast.ArrayPattern:
		argAlts := fromASTAll(n.Elements)
		var out []*Pat
		for _, args := range cartesian(argAlts) {
			out = append(out, &Pat{Kind: Array, Args: args, HasRest: n.HasRest})
		}
		if len(out) == 0 {
			out = append(out, &Pat{Kind: Array, HasRest: n.HasRest})
		}
		return out

	case *ast.ObjectPattern:
		fieldPats := make([]ast.Pattern, len(n.Fields))
		for i, f := range n.Fields {
			fieldPats[i] = f.Pattern
		}
		argAlts := fromASTAll(fieldPats)
		var out []*Pat
		for _, args := range cartesian(argAlts) {
			out = append(out, &Pat{Kind: Ctor, CtorName: "{}", Args: args})
		}
		if len(out) == 0 {
			out = append(out, &Pat{Kind: Ctor, CtorName: "{}"})
		}
		return out

	case *ast.OrPattern:
		var out []*Pat
		for _, alt := range n.Alternatives {
			out = append(out, FromAST(alt)...)
		}
		return out

	case *ast.GuardPattern:
		// The guard condition is tracked separately by the caller
		// (MatchArm.Guard); for coverage purposes a guarded pattern's
		// shape is its inner pattern, but the caller must still exclude
		// guarded arms from the exhaustiveness matrix.
		return FromAST(n.Inner)

	default:
		return []*Pat{wildcard()}
	}
}

func fromASTAll(ps []ast.Pattern) [][]*Pat {
	out := make([][]*Pat, len(ps))
	for i, p := range ps {
		out[i] = FromAST(p)
	}
	return out
}

// cartesian expands a list of alternative-sets into every combination,
// one element chosen from each set.
func cartesian(sets [][]*Pat) [][]*Pat {
	if len(sets) == 0 {
		return [][]*Pat{{}}
	}
	rest := cartesian(sets[1:])
	var out [][]*Pat
	for _, head := range sets[0] {
		for _, tail := range rest {
			combo := make([]*Pat, 0, len(tail)+1)
			combo = append(combo, head)
			combo = append(combo, tail...)
			out = append(out, combo)
		}
	}
	return out
}

func literalValue(e ast.Expr) any {
	switch v := e.(type) {
	case *ast.IntLiteral:
		return v.Value
	case *ast.FloatLiteral:
		return v.Value
	case *ast.BoolLiteral:
		return v.Value
	case *ast.StringLiteral:
		return v.Value
	case *ast.CharLiteral:
		return v.Value
	case *ast.UnaryExpr:
		if v.Op == ast.UnaryNeg {
			switch inner := literalValue(v.Operand).(type) {
			case int64:
				return -inner
			case float64:
				return -inner
			}
		}
	}
	return nil
}

func intBound(e ast.Expr) int64 {
	if e == nil {
		return 0
	}
	if n, ok := literalValue(e).(int64); ok {
		return n
	}
	return 0
}

// String renders p for diagnostics (witness reporting).
func (p *Pat) String() string {
	switch p.Kind {
	case Wildcard:
		return "_"
	case Literal:
		switch v := p.Literal.(type) {
		case string:
			return "\"" + v + "\""
		case rangeLit:
			op := ".."
			if v.Inclusive {
				op = "..="
			}
			return itoa(v.Low) + op + itoa(v.High)
		default:
			return goString(v)
		}
	case Ctor:
		if p.CtorName == "{}" {
			return "{..}"
		}
		if len(p.Args) == 0 {
			return p.CtorName
		}
		s := p.CtorName + "("
		for i, a := range p.Args {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		return s + ")"
	case Array:
		s := "["
		for i, a := range p.Args {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		if p.HasRest {
			if len(p.Args) > 0 {
				s += ", "
			}
			s += "...rest"
		}
		return s + "]"
	}
	return "?"
}

func goString(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return itoa(x)
	case float64:
		return ftoa(x)
	case rune:
		return "'" + string(x) + "'"
	default:
		return "_"
	}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [24]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func ftoa(f float64) string {
	// Diagnostics-only rendering; full precision isn't needed for a
	// witness counter-example.
	whole := int64(f)
	frac := f - float64(whole)
	if frac < 0 {
		frac = -frac
	}
	out := itoa(whole)
	if frac != 0 {
		out += "." + itoa(int64(frac*1000))
	}
	return out
}
