// Package modgraph resolves import paths to parsed modules and builds
// the inter-module dependency graph consulted by the semantic
// analyzer. One Graph is built per compilation.
package modgraph

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/config"
	"github.com/nova-lang/nova/internal/lexer"
	"github.com/nova-lang/nova/internal/parser"
	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/symbols"
	"github.com/nova-lang/nova/internal/utils"
)

// SourceExtension is the file suffix recognized as nova source.
const SourceExtension = config.SourceFileExt

// Module is one loaded package: every source file in its directory,
// parsed, plus the scope and export set the analyzer fills in.
type Module struct {
	Name    string
	Dir     string
	Files   []*ast.Program
	Scope   *symbols.Scope
	Exports map[string]bool
	Imports map[string]*Module // alias/name -> dependency

	HeadersAnalyzed bool
	BodiesAnalyzed  bool
}

// Graph owns every module loaded for one compilation and the file id
// counter shared across all of their source.Unit's.
type Graph struct {
	byDir      map[string]*Module // absolute dir -> module
	byName     map[string]*Module
	loading    map[string]bool // cycle detection, keyed by absolute dir
	nextFileID int
	Diagnostics source.Bag
}

// NewGraph creates an empty module graph.
func NewGraph() *Graph {
	return &Graph{
		byDir:   make(map[string]*Module),
		byName:  make(map[string]*Module),
		loading: make(map[string]bool),
	}
}

// CycleError reports an import cycle discovered while loading path.
type CycleError struct {
	Path  string
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle loading %q: %s -> %s", e.Path, strings.Join(e.Chain, " -> "), e.Path)
}

// Load resolves path (a directory containing one or more .nova files)
// into a Module, recursively loading anything it imports. Results are
// cached by absolute directory, so importing the same module twice is
// free and returns the identical *Module, so callers may always compare
// loaded modules by pointer.
func (g *Graph) Load(path string) (*Module, error) {
	return g.load(path, nil)
}

func (g *Graph) load(path string, chain []string) (*Module, error) {
	absDir, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if mod, ok := g.byDir[absDir]; ok {
		return mod, nil
	}
	if g.loading[absDir] {
		return nil, &CycleError{Path: absDir, Chain: chain}
	}
	g.loading[absDir] = true
	defer delete(g.loading, absDir)

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("modgraph: reading %s: %w", absDir, err)
	}

	var sourceFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), SourceExtension) {
			sourceFiles = append(sourceFiles, filepath.Join(absDir, e.Name()))
		}
	}
	sort.Strings(sourceFiles)
	if len(sourceFiles) == 0 {
		return nil, fmt.Errorf("modgraph: no %s files in %s", SourceExtension, absDir)
	}

	mod := &Module{
		Name:    filepath.Base(absDir),
		Dir:     absDir,
		Exports: make(map[string]bool),
		Imports: make(map[string]*Module),
	}

	var imports []*ast.ImportItem
	for _, file := range sourceFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		g.nextFileID++
		unit := source.NewUnit(g.nextFileID, file, string(content))

		lx := lexer.New(unit)
		toks := lx.Tokenize()
		g.Diagnostics.Extend(&lx.Diagnostics)

		p := parser.New(unit, toks)
		prog := p.ParseProgram()
		g.Diagnostics.Extend(p.Diagnostics())
		prog.File = file

		mod.Files = append(mod.Files, prog)
		for _, exp := range prog.Exports {
			mod.Exports[exp.Name] = true
		}
		imports = append(imports, prog.Imports...)
	}

	g.byDir[absDir] = mod
	g.byName[mod.Name] = mod

	nextChain := append(append([]string{}, chain...), absDir)
	for _, imp := range imports {
		dep, err := g.load(resolveImportPath(absDir, imp.Path), nextChain)
		if err != nil {
			return nil, err
		}
		alias := imp.Alias
		if alias == "" {
			alias = dep.Name
		}
		mod.Imports[alias] = dep
	}

	return mod, nil
}

// ByName looks up an already-loaded module by its package name (used
// when resolving symbols re-exported through a package group).
func (g *Graph) ByName(name string) (*Module, bool) {
	m, ok := g.byName[name]
	return m, ok
}

// resolveImportPath turns an import path written in source into a
// filesystem path: absolute paths are used as written, paths starting
// with "." are joined to the importing module's own directory, and
// anything else is left as written, so it resolves against the
// process's working directory (a package-root search is a
// manifest/resolver concern, not modgraph's).
func resolveImportPath(fromDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return utils.ResolveImportPath(fromDir, path)
}

// OrderedFiles returns a module's files in a dependency-aware order so
// that a top-level constant referencing another top-level constant
// always follows it; this avoids initialization-order surprises for
// cross-file constants. Falls back to source order on a cycle.
func OrderedFiles(files []*ast.Program) []*ast.Program {
	if len(files) <= 1 {
		return files
	}

	type info struct {
		file     *ast.Program
		provides map[string]bool
		deps     map[string]bool
	}

	infos := make([]*info, len(files))
	providers := make(map[string]int)
	for i, f := range files {
		infos[i] = &info{file: f, provides: provides(f), deps: deps(f)}
		for name := range infos[i].provides {
			if _, ok := providers[name]; !ok {
				providers[name] = i
			}
		}
	}

	edges := make([][]int, len(infos))
	indeg := make([]int, len(infos))
	for i, in := range infos {
		for dep := range in.deps {
			if j, ok := providers[dep]; ok && j != i {
				edges[j] = append(edges[j], i)
				indeg[i]++
			}
		}
	}

	queue := make([]int, 0, len(infos))
	for i := range infos {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)

	ordered := make([]*ast.Program, 0, len(infos))
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		ordered = append(ordered, infos[idx].file)
		for _, next := range edges[idx] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
				sort.Ints(queue)
			}
		}
	}

	if len(ordered) != len(infos) {
		out := make([]*ast.Program, len(files))
		copy(out, files)
		return out
	}
	return ordered
}

func provides(f *ast.Program) map[string]bool {
	out := make(map[string]bool)
	for _, item := range f.Items {
		switch it := item.(type) {
		case *ast.ConstItem:
			out[it.Name] = true
		case *ast.FuncItem:
			out[it.Name] = true
		case *ast.TypeAliasItem:
			out[it.Name] = true
		case *ast.StructItem:
			out[it.Name] = true
		case *ast.EnumItem:
			out[it.Name] = true
		}
	}
	return out
}

func deps(f *ast.Program) map[string]bool {
	out := make(map[string]bool)
	for _, item := range f.Items {
		if c, ok := item.(*ast.ConstItem); ok {
			exprDeps(c.Value, out)
		}
	}
	return out
}

func exprDeps(e ast.Expr, out map[string]bool) {
	switch v := e.(type) {
	case nil:
	case *ast.Identifier:
		out[v.Name] = true
	case *ast.UnaryExpr:
		exprDeps(v.Operand, out)
	case *ast.BinaryExpr:
		exprDeps(v.Left, out)
		exprDeps(v.Right, out)
	case *ast.CallExpr:
		exprDeps(v.Callee, out)
		for _, a := range v.Args {
			exprDeps(a, out)
		}
	case *ast.IndexExpr:
		exprDeps(v.Target, out)
		exprDeps(v.Index, out)
	case *ast.MemberExpr:
		exprDeps(v.Target, out)
	case *ast.ArrayExpr:
		for _, el := range v.Elements {
			exprDeps(el, out)
		}
	}
}
