package patterns

// Tree is the compiled form of a match expression consumed by the
// lowering phase (C11): a sequence of arm tests in source order, each
// carrying the simplified pattern to test the scrutinee against and
// the index of the original AST arm to jump to on success. Maranget's
// full decision-tree construction shares tests across arms with a
// common head constructor; this simpler "arm list" form is the
// standard fallback a bytecode VM lowers to in one pass
// and is what every one of this match's arms reduces to once
// CheckMatch has already confirmed exhaustiveness and reachability.
type Tree struct {
	Tests []Test
}

// Test pairs one arm's (possibly or-expanded) alternatives with the
// arm index to select when any alternative matches.
type Test struct {
	ArmIndex int
	Alts     []*Pat
}

// BuildTree assembles the arm-test sequence for a match whose arms
// have already been lowered via FromAST. It performs no reordering:
// match semantics require first-match-wins, so the tree's tests must
// run in the arms' original source order.
func BuildTree(arms []Arm) *Tree {
	tree := &Tree{Tests: make([]Test, len(arms))}
	for i, arm := range arms {
		tree.Tests[i] = Test{ArmIndex: i, Alts: arm.Alts}
	}
	return tree
}
