// Package symbols holds the scope chain and symbol table built by the
// semantic analyzer and consulted by every later
// phase (inference, pattern compiler, lowering).
package symbols

import (
	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/types"
)

// Kind distinguishes what a Symbol names.
type Kind int

const (
	Variable Kind = iota
	Function
	TypeName
	Constructor
	Module
	Trait
)

// Symbol is one binding in a Scope: a name, its (possibly generalized)
// type, and the AST node that introduced it.
type Symbol struct {
	Name       string
	Type       types.Scheme
	Kind       Kind
	Mutable    bool
	Definition ast.Node
	Module     string // module path the symbol originates from, for re-export tracking
}

// ScopeKind distinguishes the lexical contexts requires tracking,
// since `break`/`continue`/`return`/`await` legality depends on which
// kind of scope encloses a construct.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeModule
	ScopeFunction
	ScopeAsyncFunction
	ScopeBlock
	ScopeLoop
)

// Scope is one arena-allocated link in the lexical scope chain
//. Scopes are never mutated after the pass that built them
// finishes, so later phases can share them freely without copying.
type Scope struct {
	parent  *Scope
	kind    ScopeKind
	entries map[string]*Symbol
}

// NewGlobalScope creates the root scope of a compilation (the prelude
// and module-level bindings are defined directly into it).
func NewGlobalScope() *Scope {
	return &Scope{kind: ScopeGlobal, entries: make(map[string]*Symbol)}
}

// NewChild opens a nested scope of the given kind.
func (s *Scope) NewChild(kind ScopeKind) *Scope {
	return &Scope{parent: s, kind: kind, entries: make(map[string]*Symbol)}
}

// Parent returns the enclosing scope, or nil at the global scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Kind reports this scope's own kind (not an ancestor's).
func (s *Scope) Kind() ScopeKind { return s.kind }

// Define installs sym in s, shadowing any binding of the same name in
// an outer scope. Redefinition within the same scope is the analyzer's
// responsibility to reject; Define itself always overwrites.
func (s *Scope) Define(sym *Symbol) {
	s.entries[sym.Name] = sym
}

// Lookup searches s and its ancestors for name, innermost first.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.entries[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal searches only s itself, not its ancestors; used to
// detect duplicate definitions within one scope.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.entries[name]
	return sym, ok
}

// AllowsBreak reports whether a `break`/`continue` in this scope is
// legal: true once a ScopeLoop is found before any function boundary
// is crossed (a loop inside an outer function does not let an inner
// closure's `break` escape to it).
func (s *Scope) AllowsBreak() bool {
	for sc := s; sc != nil; sc = sc.parent {
		switch sc.kind {
		case ScopeLoop:
			return true
		case ScopeFunction, ScopeAsyncFunction:
			return false
		}
	}
	return false
}

// AllowsAwait reports whether `await` is legal in this scope: true
// only inside an async function, and only up to the nearest enclosing
// (possibly non-async) function boundary.
func (s *Scope) AllowsAwait() bool {
	for sc := s; sc != nil; sc = sc.parent {
		switch sc.kind {
		case ScopeAsyncFunction:
			return true
		case ScopeFunction:
			return false
		}
	}
	return false
}

// EnclosingFunction returns the nearest function-like scope (sync or
// async), used to attribute a `return` to the function it exits.
func (s *Scope) EnclosingFunction() *Scope {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.kind == ScopeFunction || sc.kind == ScopeAsyncFunction {
			return sc
		}
	}
	return nil
}

// Names returns every name bound directly in s, for diagnostics that
// suggest a near-miss identifier.
func (s *Scope) Names() []string {
	out := make([]string, 0, len(s.entries))
	for n := range s.entries {
		out = append(out, n)
	}
	return out
}
