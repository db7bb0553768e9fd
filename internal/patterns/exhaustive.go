package patterns

import "github.com/nova-lang/nova/internal/types"

// isWildcardLike reports whether p covers every value of its column
// without needing to inspect a constructor: a bare `_`/binding, or a
// bare `...rest` array pattern with no fixed prefix (which matches an
// array of any length, the array analogue of a wildcard).
func isWildcardLike(p *Pat) bool {
	if p.Kind == Wildcard {
		return true
	}
	return p.Kind == Array && p.HasRest && len(p.Args) == 0
}

// headKeyArity identifies the constructor a concrete (non-wildcard)
// pattern matches, for specialization purposes.
func headKeyArity(p *Pat) (key string, arity int) {
	switch p.Kind {
	case Ctor:
		return "c:" + p.CtorName, len(p.Args)
	case Literal:
		return "l", 0 // literal equality is checked separately, not by key
	}
	return "", 0
}

// literalKey renders a literal value as the constructor name an
// Oracle would use for it, so that e.g. a `true`/`false` Literal
// pattern is recognized as covering the Bool signature's "true"/
// "false" entries (the same plumbing enum variants use via Ctor).
func literalKey(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return itoa(x)
	case string:
		return x
	case rune:
		return string(x)
	case float64:
		return ftoa(x)
	default:
		return ""
	}
}

// keyOf returns the constructor-signature key a concrete (non
// wildcard-like) pattern head covers, for both enum/record
// constructors and finite-domain literals (Bool's true/false).
func keyOf(p *Pat) (string, bool) {
	switch p.Kind {
	case Ctor:
		return p.CtorName, true
	case Literal:
		return literalKey(p.Literal), true
	}
	return "", false
}

// specialize builds S(ctorName, matrix): rows whose head matches the
// given constructor (by name, for a Ctor pattern, or by rendered
// value, for a finite-domain Literal pattern like a Bool literal)
// expand to their sub-patterns; wildcard-like rows expand to `arity`
// fresh wildcards; everything else is dropped (the usefulness
// algorithm's specialization operation).
func specialize(matrix [][]*Pat, ctorName string, arity int) [][]*Pat {
	var out [][]*Pat
	for _, row := range matrix {
		head := row[0]
		key, concrete := keyOf(head)
		switch {
		case isWildcardLike(head):
			newRow := make([]*Pat, 0, arity+len(row)-1)
			for i := 0; i < arity; i++ {
				newRow = append(newRow, wildcard())
			}
			newRow = append(newRow, row[1:]...)
			out = append(out, newRow)
		case head.Kind == Ctor && concrete && key == ctorName:
			newRow := make([]*Pat, 0, arity+len(row)-1)
			newRow = append(newRow, padArgs(head.Args, arity)...)
			newRow = append(newRow, row[1:]...)
			out = append(out, newRow)
		case head.Kind == Literal && concrete && key == ctorName:
			newRow := make([]*Pat, 0, arity+len(row)-1)
			for i := 0; i < arity; i++ {
				newRow = append(newRow, wildcard())
			}
			newRow = append(newRow, row[1:]...)
			out = append(out, newRow)
		}
	}
	return out
}

// specializeLiteral keeps only rows whose head is the same literal
// value (or wildcard-like), dropping the head column entirely since a
// literal pattern carries no payload.
func specializeLiteral(matrix [][]*Pat, value any) [][]*Pat {
	var out [][]*Pat
	for _, row := range matrix {
		head := row[0]
		if isWildcardLike(head) || (head.Kind == Literal && head.Literal == value) {
			out = append(out, row[1:])
		}
	}
	return out
}

// defaultMatrix builds D(matrix): the rows that contribute to
// completeness when the head column's constructor set is *not* fully
// enumerable (infinite scalar domains, and arrays per the
// isWildcardLike simplification above) — only a genuinely
// wildcard-like row can close out such a column.
func defaultMatrix(matrix [][]*Pat) [][]*Pat {
	var out [][]*Pat
	for _, row := range matrix {
		if isWildcardLike(row[0]) {
			out = append(out, row[1:])
		}
	}
	return out
}

func padArgs(args []*Pat, arity int) []*Pat {
	if len(args) >= arity {
		return args[:arity]
	}
	out := make([]*Pat, arity)
	copy(out, args)
	for i := len(args); i < arity; i++ {
		out[i] = wildcard()
	}
	return out
}

func columnHasArray(matrix [][]*Pat) bool {
	for _, row := range matrix {
		if row[0].Kind == Array && !isWildcardLike(row[0]) {
			return true
		}
	}
	return false
}

func ctorsPresent(matrix [][]*Pat) map[string]bool {
	seen := make(map[string]bool)
	for _, row := range matrix {
		if key, ok := keyOf(row[0]); ok {
			seen[key] = true
		}
	}
	return seen
}

// usefulness reports whether q is useful with respect to matrix: does
// q match some value that no row of matrix already matches. A match's
// final `_` arm is useful iff the match is non-exhaustive; an arm's
// own pattern is useful relative to every earlier arm iff that arm is
// reachable.
func usefulness(matrix [][]*Pat, q []*Pat, tys []types.Type, oracle Oracle) bool {
	if len(q) == 0 {
		return len(matrix) == 0
	}
	head := q[0]
	var t types.Type
	if len(tys) > 0 {
		t = tys[0]
	}
	restTys := restOf(tys)

	if head.Kind == Literal {
		return usefulness(specializeLiteral(matrix, head.Literal), q[1:], restTys, oracle)
	}

	if isWildcardLike(head) {
		if columnHasArray(matrix) {
			return usefulness(defaultMatrix(matrix), q[1:], restTys, oracle)
		}
		present := ctorsPresent(matrix)
		ctors, enumerable := signatureOf(t, oracle)
		if enumerable && coversAll(ctors, present) {
			for _, c := range ctors {
				sub := specialize(matrix, c.Name, c.Arity)
				subQ := make([]*Pat, c.Arity)
				for i := range subQ {
					subQ[i] = wildcard()
				}
				subQ = append(subQ, q[1:]...)
				subTys := withFreshArity(c.Arity, restTys)
				if usefulness(sub, subQ, subTys, oracle) {
					return true
				}
			}
			return false
		}
		return usefulness(defaultMatrix(matrix), q[1:], restTys, oracle)
	}

	// head is a concrete Ctor or Array pattern.
	_, arity := headKeyArity(head)
	if head.Kind == Array {
		// Arrays are handled like an infinite family (no enumerable
		// signature): a concrete shape is useful unless an identical or
		// more general row already appears, approximated here by
		// falling back to the default-matrix rule used for Wildcard
		// once we've confirmed no row exactly subsumes this shape.
		return usefulness(defaultMatrix(matrix), q[1:], restTys, oracle) || !arrayShapeCovered(matrix, head)
	}
	sub := specialize(matrix, head.CtorName, len(head.Args))
	subQ := append(append([]*Pat{}, head.Args...), q[1:]...)
	subTys := withFreshArity(arity, restTys)
	return usefulness(sub, subQ, subTys, oracle)
}

func arrayShapeCovered(matrix [][]*Pat, shape *Pat) bool {
	for _, row := range matrix {
		h := row[0]
		if h.Kind != Array {
			continue
		}
		if h.HasRest && len(h.Args) <= len(shape.Args) {
			return true
		}
		if !h.HasRest && len(h.Args) == len(shape.Args) && !shape.HasRest {
			return true
		}
	}
	return false
}

func restOf(tys []types.Type) []types.Type {
	if len(tys) == 0 {
		return nil
	}
	return tys[1:]
}

func withFreshArity(arity int, rest []types.Type) []types.Type {
	out := make([]types.Type, 0, arity+len(rest))
	for i := 0; i < arity; i++ {
		out = append(out, types.Unknown{})
	}
	return append(out, rest...)
}

func signatureOf(t types.Type, oracle Oracle) ([]Ctor, bool) {
	if t == nil || oracle == nil {
		return nil, false
	}
	return oracle.Signature(t)
}

func coversAll(ctors []Ctor, present map[string]bool) bool {
	if len(ctors) == 0 {
		return false
	}
	for _, c := range ctors {
		if !present[c.Name] {
			return false
		}
	}
	return true
}

// findWitness is usefulness's constructive counterpart: ok reports
// whether the given column space is fully covered by matrix; when it
// is not, witness holds one uncovered pattern vector, usable directly
// in a "non-exhaustive match, missing: <witness>" diagnostic.
func findWitness(matrix [][]*Pat, tys []types.Type, oracle Oracle) (ok bool, witness []*Pat) {
	if len(tys) == 0 {
		if len(matrix) == 0 {
			return false, []*Pat{}
		}
		return true, nil
	}
	t := tys[0]
	restTys := tys[1:]

	if columnHasArray(matrix) {
		ok, w := findWitness(defaultMatrix(matrix), restTys, oracle)
		if ok {
			return true, nil
		}
		return false, append([]*Pat{wildcard()}, w...)
	}

	present := ctorsPresent(matrix)
	ctors, enumerable := signatureOf(t, oracle)
	if !enumerable {
		ok, w := findWitness(defaultMatrix(matrix), restTys, oracle)
		if ok {
			return true, nil
		}
		return false, append([]*Pat{wildcard()}, w...)
	}
	if !coversAll(ctors, present) {
		// Wildcard-headed rows cover every absent constructor at once.
		if ok, _ := findWitness(defaultMatrix(matrix), restTys, oracle); ok {
			return true, nil
		}
		// A whole constructor is missing outright — report it by name
		// rather than falling through to a generic wildcard witness
		// (e.g. report "None" or "false", not "_").
		for _, c := range ctors {
			if present[c.Name] {
				continue
			}
			args := make([]*Pat, c.Arity)
			for i := range args {
				args[i] = wildcard()
			}
			var head *Pat
			if c.Arity == 0 {
				head = &Pat{Kind: Ctor, CtorName: c.Name}
			} else {
				head = &Pat{Kind: Ctor, CtorName: c.Name, Args: args}
			}
			rest := make([]*Pat, len(restTys))
			for i := range rest {
				rest[i] = wildcard()
			}
			return false, append([]*Pat{head}, rest...)
		}
	}

	for _, c := range ctors {
		sub := specialize(matrix, c.Name, c.Arity)
		subTys := withFreshArity(c.Arity, restTys)
		ok, w := findWitness(sub, subTys, oracle)
		if !ok {
			args := append([]*Pat{}, w[:c.Arity]...)
			var head *Pat
			if len(args) == 0 {
				head = &Pat{Kind: Ctor, CtorName: c.Name}
			} else {
				head = &Pat{Kind: Ctor, CtorName: c.Name, Args: args}
			}
			return false, append([]*Pat{head}, w[c.Arity:]...)
		}
	}
	return true, nil
}

// Arm is one match arm reduced to its pattern alternatives (already
// expanded through FromAST) plus whether it carries a guard.
type Arm struct {
	Alts    []*Pat
	Guarded bool
}

// Result is the outcome of checking one match expression.
type Result struct {
	// UnreachableArms holds the 0-based index of every arm whose
	// pattern cannot match anything not already matched by an earlier
	// (unconditionally matching) arm.
	UnreachableArms []int
	// Missing is a witness value not covered by any arm, or nil if the
	// match is exhaustive. Guarded arms never count towards coverage
	//: a guard can fail at runtime, so it can never discharge
	// the exhaustiveness obligation on its own pattern.
	Missing *Pat
}

// CheckMatch runs the usefulness algorithm over every arm of a match
// on a value of type t, in source order, reporting both unreachable
// arms and (if the match is non-exhaustive) a counter-example.
func CheckMatch(t types.Type, arms []Arm, oracle Oracle) Result {
	var full [][]*Pat
	var exhaustRows [][]*Pat
	var unreachable []int

	for i, arm := range arms {
		reachable := len(arm.Alts) == 0
		for _, p := range arm.Alts {
			if usefulness(full, []*Pat{p}, []types.Type{t}, oracle) {
				reachable = true
			}
		}
		if !reachable {
			unreachable = append(unreachable, i)
		}
		for _, p := range arm.Alts {
			if !arm.Guarded {
				full = append(full, []*Pat{p})
				exhaustRows = append(exhaustRows, []*Pat{p})
			}
		}
	}

	ok, w := findWitness(exhaustRows, []types.Type{t}, oracle)
	var missing *Pat
	if !ok && len(w) > 0 {
		missing = w[0]
	}
	return Result{UnreachableArms: unreachable, Missing: missing}
}
