// Package types is the type representation shared by the semantic
// analyzer, inference engine, pattern compiler and monomorphizer.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is implemented by every member of the type sum in.
type Type interface {
	String() string
	// Apply substitutes type variables per s, returning a new Type.
	// A fully-substituted program never observes a TVar again.
	Apply(s Subst) Type
	// FreeVars returns the free type-variable ids occurring in the type,
	// used by let-generalization.
	FreeVars() []int
}

// Subst maps type-variable ids to their bound type. Built by Unify's
// union-find and flattened for application.
type Subst map[int]Type

// TVar is a fresh, unobservable-after-inference type variable.
type TVar struct{ ID int }

func (t TVar) String() string { return fmt.Sprintf("t%d", t.ID) }
func (t TVar) Apply(s Subst) Type {
	if repl, ok := s[t.ID]; ok {
		if rv, ok := repl.(TVar); ok && rv.ID == t.ID {
			return t
		}
		return repl.Apply(s)
	}
	return t
}
func (t TVar) FreeVars() []int { return []int{t.ID} }

// TParam is a scoped, named type parameter inside a generic schema,
// distinct from a TVar: it is never unified directly, only instantiated
// to a fresh TVar at use sites.
type TParam struct{ Name string }

func (t TParam) String() string      { return t.Name }
func (t TParam) Apply(Subst) Type    { return t }
func (t TParam) FreeVars() []int     { return nil }

// TCon is a primitive concrete type: Int, Float, Bool, String, Unit.
type TCon struct{ Name string }

func (t TCon) String() string      { return t.Name }
func (t TCon) Apply(Subst) Type    { return t }
func (t TCon) FreeVars() []int     { return nil }

var (
	Int    = TCon{Name: "Int"}
	Float  = TCon{Name: "Float"}
	Bool   = TCon{Name: "Bool"}
	String = TCon{Name: "String"}
	Unit   = TCon{Name: "Unit"}
)

// Unknown is the gradual-typing escape hatch: it unifies with
// any type producing no constraint, and values of this type implicitly
// coerce to any concrete type via a runtime type_check intrinsic.
type Unknown struct{}

func (Unknown) String() string   { return "?" }
func (u Unknown) Apply(Subst) Type { return u }
func (Unknown) FreeVars() []int  { return nil }

// Never has no values and is a subtype of every type.
type Never struct{}

func (Never) String() string    { return "!" }
func (n Never) Apply(Subst) Type { return n }
func (Never) FreeVars() []int   { return nil }

// Array is Array<Elem>.
type Array struct{ Elem Type }

func (a Array) String() string { return "[" + a.Elem.String() + "]" }
func (a Array) Apply(s Subst) Type { return Array{Elem: a.Elem.Apply(s)} }
func (a Array) FreeVars() []int { return a.Elem.FreeVars() }

// Func is Params... -> Return.
type Func struct {
	Params []Type
	Return Type
}

func (f Func) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + f.Return.String()
}

func (f Func) Apply(s Subst) Type {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Apply(s)
	}
	return Func{Params: params, Return: f.Return.Apply(s)}
}

func (f Func) FreeVars() []int {
	var out []int
	for _, p := range f.Params {
		out = append(out, p.FreeVars()...)
	}
	return append(out, f.Return.FreeVars()...)
}

// Record is a structural record type: { field: Type, ... }.
type Record struct {
	Fields map[string]Type
}

func (r Record) String() string {
	names := make([]string, 0, len(r.Fields))
	for n := range r.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + r.Fields[n].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (r Record) Apply(s Subst) Type {
	out := make(map[string]Type, len(r.Fields))
	for n, t := range r.Fields {
		out[n] = t.Apply(s)
	}
	return Record{Fields: out}
}

func (r Record) FreeVars() []int {
	var out []int
	for _, t := range r.Fields {
		out = append(out, t.FreeVars()...)
	}
	return out
}

// Named is a nominal type with type arguments: struct/enum names,
// possibly generic (e.g. Option<T>, Result<T, E>).
type Named struct {
	Name string
	Args []Type
}

func (n Named) String() string {
	if len(n.Args) == 0 {
		return n.Name
	}
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return n.Name + "<" + strings.Join(parts, ", ") + ">"
}

func (n Named) Apply(s Subst) Type {
	args := make([]Type, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.Apply(s)
	}
	return Named{Name: n.Name, Args: args}
}

func (n Named) FreeVars() []int {
	var out []int
	for _, a := range n.Args {
		out = append(out, a.FreeVars()...)
	}
	return out
}

// Bound is a trait bound attached to a type parameter in a Scheme,
// e.g. T: Ord.
type Bound struct {
	Param string
	Trait string
}

// Scheme is a generalized type: ∀ Params. Type, with bounds discharged
// at monomorphization time. Generalization happens only at
// let-binding sites (let-polymorphism), never at inner expressions.
type Scheme struct {
	Params []string
	Bounds []Bound
	Type   Type
}

func (s Scheme) String() string {
	if len(s.Params) == 0 {
		return s.Type.String()
	}
	return "forall " + strings.Join(s.Params, " ") + ". " + s.Type.String()
}
