// Package mono implements monomorphization: each
// call site of a generic function is resolved to a concrete
// specialized copy of that function's body, keyed by a deterministic
// fingerprint of its type arguments, cached so two call sites with the
// same instantiation share one specialization, and bounded in
// recursion depth so a pathological generic (f<T> calling
// f<Wrapper<T>>) cannot expand forever.
package mono

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/types"
)

// MaxSpecializeDepth bounds monomorphization recursion. Kept low
// because a mangled type name can grow exponentially with depth.
const MaxSpecializeDepth = 8

// TraitRegistry answers whether a concrete type satisfies a trait
// bound, so a specialization request against an unsatisfied bound can
// be rejected with a diagnostic instead of silently producing a
// miscompiled specialization; trait bounds are discharged here, at
// monomorphization time, rather than during inference.
type TraitRegistry interface {
	Implements(trait string, t types.Type) bool
}

// Generic is one registered generic function: its declaration (used
// as the template every specialization clones and substitutes) and
// the Scheme inference assigned it (used to validate instantiation
// arity and discharge its Bounds).
type Generic struct {
	Item   *ast.FuncItem
	Scheme types.Scheme
}

// Instance is one concrete specialization of a Generic.
type Instance struct {
	MangledName string
	TypeArgs    map[string]types.Type
	Item        *ast.FuncItem // a deep clone of the template with TParams substituted
}

// Monomorphizer holds the generic registry, the specialization cache,
// and per-root recursion-depth tracking.
type Monomorphizer struct {
	generics  map[string]*Generic
	instances map[string]*Instance
	traits    TraitRegistry
	idgen     *ast.IDGen
	depth     int
	diags     source.Bag
}

// New creates an empty monomorphizer. idgen is shared with the rest of
// the compilation so cloned nodes get ids that never collide with the
// originals: node ids are never reused.
func New(idgen *ast.IDGen, traits TraitRegistry) *Monomorphizer {
	return &Monomorphizer{
		generics:  make(map[string]*Generic),
		instances: make(map[string]*Instance),
		traits:    traits,
		idgen:     idgen,
	}
}

// Diagnostics returns every specialization error recorded so far.
func (m *Monomorphizer) Diagnostics() *source.Bag { return &m.diags }

// Register records name as a specializable generic function template.
func (m *Monomorphizer) Register(name string, item *ast.FuncItem, scheme types.Scheme) {
	m.generics[name] = &Generic{Item: item, Scheme: scheme}
}

// Specialize produces (or returns the cached) concrete instance of the
// generic function name under the given type-argument assignment
// (one entry per the scheme's Params, keyed by parameter name).
func (m *Monomorphizer) Specialize(sp source.Span, name string, args map[string]types.Type) (*Instance, error) {
	g, ok := m.generics[name]
	if !ok {
		return nil, nil // not a registered generic: imported or built-in, nothing to specialize
	}

	m.depth++
	defer func() { m.depth-- }()
	if m.depth > MaxSpecializeDepth {
		return nil, fmt.Errorf("specialization depth exceeded for %q (possible infinite monomorphization)", name)
	}

	mangled := MangleName(name, args)
	if inst, ok := m.instances[mangled]; ok {
		return inst, nil
	}

	if err := m.dischargeBounds(sp, g.Scheme, args); err != nil {
		return nil, err
	}

	// Mark as in-progress (with a placeholder) before cloning the body,
	// so a recursive call within the body specializing the same
	// instantiation finds the cache entry instead of looping forever.
	inst := &Instance{MangledName: mangled, TypeArgs: args}
	m.instances[mangled] = inst

	cloned := cloneFuncItem(m.idgen, args, g.Item)
	cloned.Name = mangled
	inst.Item = cloned
	return inst, nil
}

func (m *Monomorphizer) dischargeBounds(sp source.Span, scheme types.Scheme, args map[string]types.Type) error {
	if m.traits == nil {
		return nil
	}
	for _, b := range scheme.Bounds {
		t, ok := args[b.Param]
		if !ok {
			continue
		}
		if !m.traits.Implements(b.Trait, t) {
			err := fmt.Errorf("type %s does not implement trait %s required by parameter %s", t.String(), b.Trait, b.Param)
			m.diags.Add(source.Errorf("M001", sp, "%s", err))
			return err
		}
	}
	return nil
}

// MangleName renders a deterministic specialized name, e.g.
// "map$Int$String" — sorted by parameter name so the same
// instantiation always produces the same key regardless of map
// iteration order.
func MangleName(name string, args map[string]types.Type) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('$')
		b.WriteString(mangleTypeName(args[k]))
	}
	return b.String()
}

func mangleTypeName(t types.Type) string {
	s := t.String()
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "<", "$")
	s = strings.ReplaceAll(s, ">", "$")
	s = strings.ReplaceAll(s, ",", "_")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}

// Instances returns every specialization produced so far, for the
// lowering phase to emit alongside the rest of the program.
func (m *Monomorphizer) Instances() []*Instance {
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		if inst.Item != nil {
			out = append(out, inst)
		}
	}
	return out
}

func substType(t types.Type, subst map[string]types.Type) types.Type {
	switch v := t.(type) {
	case nil:
		return nil
	case types.TParam:
		if repl, ok := subst[v.Name]; ok {
			return repl
		}
		return v
	case types.Array:
		return types.Array{Elem: substType(v.Elem, subst)}
	case types.Func:
		params := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = substType(p, subst)
		}
		return types.Func{Params: params, Return: substType(v.Return, subst)}
	case types.Record:
		fields := make(map[string]types.Type, len(v.Fields))
		for name, ft := range v.Fields {
			fields[name] = substType(ft, subst)
		}
		return types.Record{Fields: fields}
	case types.Named:
		argsOut := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			argsOut[i] = substType(a, subst)
		}
		return types.Named{Name: v.Name, Args: argsOut}
	default:
		return t
	}
}
