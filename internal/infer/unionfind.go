package infer

import "github.com/nova-lang/nova/internal/types"

// unionFind is the disjoint-set structure backing Unify: each
// type variable id is a set element, path compression keeps find
// near-constant after the set stabilizes, and union-by-rank keeps the
// tree shallow while merging. A representative that has been bound to
// a concrete (non-variable) type carries it in bound, keyed by the
// representative's id.
type unionFind struct {
	parent map[int]int
	rank   map[int]int
	bound  map[int]types.Type
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[int]int), rank: make(map[int]int), bound: make(map[int]types.Type)}
}

func (u *unionFind) find(id int) int {
	p, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}
	if p == id {
		return id
	}
	root := u.find(p)
	u.parent[id] = root // path compression
	return root
}

// union merges the sets containing a and b, preferring the
// higher-rank root as the new representative (union by rank). If
// either set already carries a bound concrete type, the merged set
// keeps it (the caller is responsible for unifying the two bound
// types before calling union, if both were bound).
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	rankA, rankB := u.rank[ra], u.rank[rb]
	var winner, loser int
	switch {
	case rankA < rankB:
		winner, loser = rb, ra
	case rankA > rankB:
		winner, loser = ra, rb
	default:
		winner, loser = ra, rb
		u.rank[winner]++
	}
	u.parent[loser] = winner
	if bt, ok := u.bound[loser]; ok {
		if _, already := u.bound[winner]; !already {
			u.bound[winner] = bt
		}
		delete(u.bound, loser)
	}
}

func (u *unionFind) bind(id int, t types.Type) {
	u.bound[u.find(id)] = t
}

func (u *unionFind) boundAt(id int) (types.Type, bool) {
	t, ok := u.bound[u.find(id)]
	return t, ok
}

// resolve fully dereferences t through the union-find structure,
// walking into compound types so the result never contains a TVar
// whose representative has a binding: no TVar survives into a
// fully-inferred program.
func (u *unionFind) resolve(t types.Type) types.Type {
	switch v := t.(type) {
	case types.TVar:
		root := u.find(v.ID)
		if bt, ok := u.bound[root]; ok {
			return u.resolve(bt)
		}
		return types.TVar{ID: root}
	case types.Array:
		return types.Array{Elem: u.resolve(v.Elem)}
	case types.Func:
		params := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = u.resolve(p)
		}
		return types.Func{Params: params, Return: u.resolve(v.Return)}
	case types.Record:
		fields := make(map[string]types.Type, len(v.Fields))
		for k, ft := range v.Fields {
			fields[k] = u.resolve(ft)
		}
		return types.Record{Fields: fields}
	case types.Named:
		args := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = u.resolve(a)
		}
		return types.Named{Name: v.Name, Args: args}
	default:
		return t
	}
}
