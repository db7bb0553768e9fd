package patterns

import "github.com/nova-lang/nova/internal/types"

// Ctor names one constructor of an enumerable type and its arity
// (number of payload sub-patterns it carries).
type Ctor struct {
	Name  string
	Arity int
}

// Oracle answers, for a scrutinee type, which constructors exist and
// whether that list is the *complete* set (so that covering every
// entry proves exhaustiveness) or merely a sample of an infinite
// domain (Int/Float/String/Char: no finite enumeration can ever be
// exhaustive without a trailing wildcard).
type Oracle interface {
	Signature(t types.Type) (ctors []Ctor, enumerable bool)
}

// EnumRegistry is an Oracle over the enum and struct constructor
// lists installed with Register; Signature answers Bool and Unit
// itself, without a registration.
type EnumRegistry struct {
	byName map[string][]Ctor
}

func NewEnumRegistry() *EnumRegistry {
	return &EnumRegistry{byName: make(map[string][]Ctor)}
}

// Register installs the variant signature for a declared enum or
// struct type named name.
func (r *EnumRegistry) Register(name string, ctors []Ctor) {
	r.byName[name] = ctors
}

func (r *EnumRegistry) Signature(t types.Type) ([]Ctor, bool) {
	switch v := t.(type) {
	case types.TCon:
		switch v.Name {
		case "Bool":
			return []Ctor{{Name: "true"}, {Name: "false"}}, true
		case "Unit":
			return []Ctor{{Name: "()"}}, true
		}
		return nil, false
	case types.Named:
		if ctors, ok := r.byName[v.Name]; ok {
			return ctors, true
		}
		return nil, false
	default:
		return nil, false
	}
}
