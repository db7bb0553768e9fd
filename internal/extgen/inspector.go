package extgen

import (
	"fmt"
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"
)

// Kind is a whitelisted function's wire-representable parameter or
// result shape, mirroring internal/ffi/codec.go's closed wireKind set.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) GoString() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	default:
		return "any"
	}
}

// ResolvedFunc is a fully type-checked whitelisted function, ready for
// template-driven code generation.
type ResolvedFunc struct {
	// DispatchName is what ffi_call's fn_name argument must equal.
	DispatchName string

	// PkgPath is the Go import path the function lives in.
	PkgPath string

	// GoName is the unqualified Go function name.
	GoName string

	// Params is the ordered list of parameter kinds.
	Params []Kind

	// HasErrorReturn is true when the function's last result is error.
	HasErrorReturn bool

	// ResultKind is the kind of the (non-error) return value. Ignored
	// if the function returns nothing but an error.
	ResultKind Kind
	HasResult  bool
}

// InspectResult holds every resolved whitelisted function, grouped by
// source package for import generation.
type InspectResult struct {
	Funcs []ResolvedFunc
}

// Inspect loads every package named in cfg and resolves each
// whitelisted function's signature.
func Inspect(cfg *Config) (*InspectResult, error) {
	pkgPaths := make([]string, 0, len(cfg.Deps))
	for _, dep := range cfg.Deps {
		pkgPaths = append(pkgPaths, dep.Pkg)
	}

	loadCfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(loadCfg, pkgPaths...)
	if err != nil {
		return nil, fmt.Errorf("extgen: loading packages: %w", err)
	}

	byPath := make(map[string]*packages.Package, len(pkgs))
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			return nil, fmt.Errorf("extgen: %s: %s", pkg.PkgPath, e.Msg)
		}
		byPath[pkg.PkgPath] = pkg
	}

	var result InspectResult
	for _, dep := range cfg.Deps {
		pkg, ok := byPath[dep.Pkg]
		if !ok {
			return nil, fmt.Errorf("extgen: package %s not loaded", dep.Pkg)
		}
		for _, fn := range dep.Funcs {
			resolved, err := resolveFunc(pkg, dep, fn)
			if err != nil {
				return nil, fmt.Errorf("extgen: resolving %s.%s: %w", dep.Pkg, fn.Func, err)
			}
			result.Funcs = append(result.Funcs, resolved)
		}
	}

	sort.Slice(result.Funcs, func(i, j int) bool {
		return result.Funcs[i].DispatchName < result.Funcs[j].DispatchName
	})

	return &result, nil
}

func resolveFunc(pkg *packages.Package, dep Dep, fn FuncSpec) (ResolvedFunc, error) {
	obj := pkg.Types.Scope().Lookup(fn.Func)
	if obj == nil {
		return ResolvedFunc{}, fmt.Errorf("function %q not found in package %s", fn.Func, pkg.PkgPath)
	}
	goFn, ok := obj.(*types.Func)
	if !ok {
		return ResolvedFunc{}, fmt.Errorf("%q is not a function", fn.Func)
	}
	sig, ok := goFn.Type().(*types.Signature)
	if !ok || sig.Recv() != nil {
		return ResolvedFunc{}, fmt.Errorf("%q is not a standalone function", fn.Func)
	}

	resolved := ResolvedFunc{
		DispatchName: dep.ResolvedName(fn),
		PkgPath:      pkg.PkgPath,
		GoName:       fn.Func,
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		kind, err := basicKind(params.At(i).Type())
		if err != nil {
			return ResolvedFunc{}, fmt.Errorf("parameter %d of %s: %w", i, fn.Func, err)
		}
		resolved.Params = append(resolved.Params, kind)
	}

	results := sig.Results()
	switch results.Len() {
	case 0:
		// no return value
	case 1:
		if isErrorType(results.At(0).Type()) {
			resolved.HasErrorReturn = true
		} else {
			kind, err := basicKind(results.At(0).Type())
			if err != nil {
				return ResolvedFunc{}, fmt.Errorf("result of %s: %w", fn.Func, err)
			}
			resolved.ResultKind = kind
			resolved.HasResult = true
		}
	case 2:
		if !isErrorType(results.At(1).Type()) {
			return ResolvedFunc{}, fmt.Errorf("%s: a two-result function's last result must be error", fn.Func)
		}
		resolved.HasErrorReturn = true
		kind, err := basicKind(results.At(0).Type())
		if err != nil {
			return ResolvedFunc{}, fmt.Errorf("result of %s: %w", fn.Func, err)
		}
		resolved.ResultKind = kind
		resolved.HasResult = true
	default:
		return ResolvedFunc{}, fmt.Errorf("%s: at most (value, error) results are supported", fn.Func)
	}

	return resolved, nil
}

// basicKind maps a Go type to the closed wire-representable Kind set,
// rejecting anything internal/ffi/codec.go cannot marshal.
func basicKind(t types.Type) (Kind, error) {
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return 0, fmt.Errorf("type %s is not string/int/float/bool", t)
	}
	switch basic.Kind() {
	case types.String, types.UntypedString:
		return KindString, nil
	case types.Int, types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64, types.UntypedInt:
		return KindInt, nil
	case types.Float32, types.Float64, types.UntypedFloat:
		return KindFloat, nil
	case types.Bool, types.UntypedBool:
		return KindBool, nil
	default:
		return 0, fmt.Errorf("type %s is not string/int/float/bool", t)
	}
}

func isErrorType(t types.Type) bool {
	named, ok := t.(*types.Named)
	if ok {
		t = named.Underlying()
	}
	iface, ok := t.(*types.Interface)
	if !ok {
		return false
	}
	return iface.NumMethods() == 1 && iface.Method(0).Name() == "Error"
}
