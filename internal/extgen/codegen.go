package extgen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"text/template"
)

// Generate renders internal/ffi/generated_bindings.go's contents from
// a resolved whitelist, narrowed to a single output file: every
// whitelisted function becomes one map entry keyed by its dispatch
// name, matching the hand-authored shape HostFuncs already has.
func Generate(result *InspectResult) ([]byte, error) {
	imports := importSet(result.Funcs)

	tmpl := template.Must(template.New("bindings").Funcs(template.FuncMap{
		"argName":    argName,
		"capitalize": capitalize,
		"wrapResult": wrapResult,
	}).Parse(bindingsTemplate))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		Imports []string
		Funcs   []ResolvedFunc
	}{
		Imports: imports,
		Funcs:   result.Funcs,
	}); err != nil {
		return nil, fmt.Errorf("extgen: rendering template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("extgen: formatting generated source: %w", err)
	}
	return formatted, nil
}

func importSet(funcs []ResolvedFunc) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, fn := range funcs {
		if !seen[fn.PkgPath] {
			seen[fn.PkgPath] = true
			paths = append(paths, fn.PkgPath)
		}
	}
	sort.Strings(paths)
	return paths
}

func argName(i int) string {
	return fmt.Sprintf("arg%d", i)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-32) + s[1:]
}

func wrapResult(k Kind) string {
	switch k {
	case KindString:
		return "newString(result)"
	case KindInt:
		return "rtvalue.Int(result)"
	case KindFloat:
		return "rtvalue.Float(result)"
	case KindBool:
		return "rtvalue.Bool(result)"
	default:
		return "rtvalue.Unit()"
	}
}

const bindingsTemplate = `// Code generated by novaffigen from nova.yaml. DO NOT EDIT.
package ffi

import (
	"context"
	"fmt"

	"github.com/nova-lang/nova/internal/rtvalue"
{{range .Imports}}	{{printf "%q" .}}
{{end}})

// Whitelist pins the argument count every dispatch name accepts;
// internal/ffi.Validator consults it before HostFuncs's closures ever
// run, so an arity mismatch is rejected before a single argument is
// decoded.
var Whitelist = map[string]int{
{{range .Funcs}}	{{printf "%q" .DispatchName}}: {{len .Params}},
{{end}}}

// HostFuncs builds the dispatch table a Server (bridge.go) serves.
// newString mints the caller's own string heap object for every
// string result, so a decoded value is directly usable by the VM
// without a second conversion step.
func HostFuncs(newString func(string) rtvalue.Value) map[string]HostFunc {
	return map[string]HostFunc{
{{range .Funcs}}		{{printf "%q" .DispatchName}}: func(_ context.Context, args []rtvalue.Value) (rtvalue.Value, error) {
{{range $i, $p := .Params}}			{{argName $i}}, err := arg{{$p.GoString | capitalize}}(args, {{$i}})
			if err != nil {
				return rtvalue.Unit(), err
			}
{{end}}{{if .HasErrorReturn}}{{if .HasResult}}			result, callErr := {{.PkgPath}}.{{.GoName}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{argName $i}}{{end}})
			if callErr != nil {
				return rtvalue.Unit(), fmt.Errorf("ffi: %s: %w", {{printf "%q" .DispatchName}}, callErr)
			}
			return {{wrapResult .ResultKind}}, nil
{{else}}			callErr := {{.PkgPath}}.{{.GoName}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{argName $i}}{{end}})
			if callErr != nil {
				return rtvalue.Unit(), fmt.Errorf("ffi: %s: %w", {{printf "%q" .DispatchName}}, callErr)
			}
			return rtvalue.Unit(), nil
{{end}}{{else}}{{if .HasResult}}			result := {{.PkgPath}}.{{.GoName}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{argName $i}}{{end}})
			return {{wrapResult .ResultKind}}, nil
{{else}}			{{.PkgPath}}.{{.GoName}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{argName $i}}{{end}})
			return rtvalue.Unit(), nil
{{end}}{{end}}		},
{{end}}	}
}

func argString(args []rtvalue.Value, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("ffi: missing argument %d", i)
	}
	s, ok := args[i].Obj.(ffiString)
	if !ok {
		return "", fmt.Errorf("ffi: argument %d is not a string", i)
	}
	return s.StringValue(), nil
}

func argInt64(args []rtvalue.Value, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("ffi: missing argument %d", i)
	}
	return args[i].AsInt(), nil
}

func argFloat64(args []rtvalue.Value, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("ffi: missing argument %d", i)
	}
	return args[i].AsFloat(), nil
}

func argBool(args []rtvalue.Value, i int) (bool, error) {
	if i >= len(args) {
		return false, fmt.Errorf("ffi: missing argument %d", i)
	}
	return args[i].AsBool(), nil
}
`
