// Package resolve turns a set of virtual source files into one flattened,
// linked module.
//
// Starting at the root file it parses each reachable file, applies
// conditional compilation, binds import statements to module files,
// rejects import cycles and links every identifier to the declaration it
// names. The result is an ir.Module whose declarations carry their
// originating file, module path and resolved references.
//
// A module path maps to a file relative to the directory of the root file:
// package::lib::util is lib/util.wesl or lib/util.wgsl. Paths starting with
// super are relative to the importing module; any other first segment is
// package-relative.
package resolve

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/wesl/condcomp"
	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// ParseFunc parses one file. Results may be shared between calls; the
// resolver never modifies them.
type ParseFunc func(file, source string) (*wgsl.Module, error)

// Options control resolution.
type Options struct {
	// Imports enables import statements and qualified references. When
	// false only the root file is read and every import is an error.
	Imports bool
	// Lazy loads an imported module only when one of its declarations is
	// referenced.
	Lazy bool
	// Condcomp applies @if/@elif/@else filtering with Features.
	Condcomp bool
	Features condcomp.Features
	// Parse overrides the parser, e.g. with a memoising cache.
	Parse ParseFunc
}

// unit is one loaded source file.
type unit struct {
	file     string
	module   string
	segments []string
	ast      *wgsl.Module
	decls    map[string]*ir.Decl
	imports  map[string]*binding
	bindings []*binding
}

// binding is a name made visible by an import item.
type binding struct {
	item    *wgsl.ImportItem
	from    string // importing file
	file    string // target module file; empty when the module is missing
	name    string // declaration in the target module; empty for a module import
	missing string // qualified path of a missing module

	resolved bool
	decl     *ir.Decl
}

type edge struct {
	to   string
	span wgsl.Span
}

type resolver struct {
	src   *SourceSet
	opts  Options
	mod   *ir.Module
	units map[string]*unit
	order []string
	queue []*unit
	edges map[string][]edge

	directives map[string]bool
	condDiags  diag.List
	diags      diag.List
	cycle      bool
	fatal      *diag.Error
}

// Resolve builds the linked module rooted at root. A non-nil error is a
// *diag.Error whose Source is "parse", "condcomp" or "resolve".
func Resolve(files map[string]string, root string, opts Options) (*ir.Module, error) {
	src := NewSourceSet(files, root)
	if _, ok := src.Source(src.Root()); !ok {
		return nil, diag.ErrorNoPos("resolve", "root file %q not found", root)
	}
	return ResolveSources(src, opts)
}

// ResolveSources is Resolve over an already normalised source set.
func ResolveSources(src *SourceSet, opts Options) (*ir.Module, error) {
	m, _, err := resolveSources(src, opts, nil)
	return m, err
}

// ExpressionName is the name of the synthetic declaration created by
// ResolveExpression. Names starting with "__" are reserved in WGSL, so it
// never collides with a user declaration.
const ExpressionName = "__wesl_expression"

// ResolveExpression resolves src and links expr as if it were written in
// the root file, so it sees the root's declarations and imports. The
// expression is added to the module as a synthetic const declaration,
// which is returned. Unresolved names in expr fail with source "eval".
func ResolveExpression(src *SourceSet, opts Options, expr wgsl.Expr) (*ir.Module, *ir.Decl, error) {
	return resolveSources(src, opts, expr)
}

func resolveSources(src *SourceSet, opts Options, expr wgsl.Expr) (*ir.Module, *ir.Decl, error) {
	r := &resolver{
		src:        src,
		opts:       opts,
		mod:        ir.NewModule(src.Root()),
		units:      make(map[string]*unit),
		edges:      make(map[string][]edge),
		directives: make(map[string]bool),
	}
	if opts.Parse == nil {
		r.opts.Parse = wgsl.ParseFile
	}

	root := r.load(src.Root())
	var exprDecl *ir.Decl
	if expr != nil && root != nil {
		span := expr.Pos()
		exprDecl = r.mod.Add(&ir.Decl{
			Kind:      ir.KindConst,
			ShortName: ExpressionName,
			Module:    root.module,
			File:      span.Source,
			Node:      &wgsl.ConstDecl{Name: ExpressionName, Init: expr, Span: span},
			Root:      true,
			Synthetic: true,
		})
	}
	r.drain()

	var exprDiags diag.List
	if exprDecl != nil && r.fatal == nil {
		saved := r.diags
		r.diags = nil
		(&linker{r: r, u: root}).expr(expr)
		exprDiags, r.diags = r.diags, saved
		r.drain()
	}

	if r.fatal != nil {
		return nil, nil, r.fatal
	}
	r.checkCycles()

	if r.condDiags.HasErrors() {
		return nil, nil, diag.NewError("condcomp", "invalid conditional attributes", r.condDiags)
	}
	if r.diags.HasErrors() {
		msg := "unresolved names"
		if r.cycle {
			msg = "import cycle"
		}
		return nil, nil, diag.NewError("resolve", msg, r.diags)
	}
	if exprDiags.HasErrors() {
		return nil, nil, diag.NewError("eval", "invalid expression", exprDiags)
	}
	return r.mod, exprDecl, nil
}

// drain links queued files, loading their imports first unless lazy.
func (r *resolver) drain() {
	for len(r.queue) > 0 && r.fatal == nil {
		u := r.queue[0]
		r.queue = r.queue[1:]
		if !r.opts.Lazy {
			for _, b := range u.bindings {
				if b.file != "" {
					r.load(b.file)
				}
			}
		}
		r.link(u)
	}
}

func (r *resolver) fail(err *diag.Error) {
	if r.fatal == nil {
		r.fatal = err
	}
}

// load parses, filters and registers a file once. It returns nil when the
// file cannot be read or parsed.
func (r *resolver) load(file string) *unit {
	if u, ok := r.units[file]; ok {
		return u
	}
	r.units[file] = nil

	source, ok := r.src.Source(file)
	if !ok {
		r.fail(diag.ErrorNoPos("resolve", "file %q not found", file))
		return nil
	}
	ast, err := r.parse(file, source)
	if err != nil {
		r.fail(err)
		return nil
	}
	if r.opts.Condcomp {
		var cd diag.List
		ast, cd = condcomp.Filter(ast, r.opts.Features)
		r.condDiags.Append(cd)
	}

	u := &unit{
		file:     file,
		module:   r.src.ModulePath(file),
		segments: r.src.ModuleSegments(file),
		ast:      ast,
		decls:    make(map[string]*ir.Decl),
		imports:  make(map[string]*binding),
	}
	r.units[file] = u
	r.order = append(r.order, file)

	for _, d := range ast.Decls {
		name := wgsl.DeclName(d)
		decl := r.mod.Add(&ir.Decl{
			Kind:      ir.KindOf(d),
			ShortName: name,
			Module:    u.module,
			File:      file,
			Node:      d,
			Root:      file == r.src.Root(),
			Generic:   len(wgsl.TemplateParams(d)) > 0,
		})
		if name == "" {
			continue
		}
		if _, dup := u.decls[name]; dup {
			r.diags.Errorf(d.Pos(), "%s is declared more than once", name)
			continue
		}
		u.decls[name] = decl
	}

	for _, dir := range ast.Directives {
		key := fmt.Sprintf("%d %v", dir.Kind, dir.Args)
		if !r.directives[key] {
			r.directives[key] = true
			r.mod.Directives = append(r.mod.Directives, dir)
		}
	}

	for _, imp := range ast.Imports {
		if !r.opts.Imports {
			r.diags.Errorf(imp.Span, "imports are disabled")
			continue
		}
		for _, item := range imp.Items {
			r.bindImport(u, item)
		}
	}

	r.queue = append(r.queue, u)
	return u
}

func (r *resolver) parse(file, source string) (*wgsl.Module, *diag.Error) {
	ast, err := r.opts.Parse(file, source)
	if err != nil {
		var se wgsl.SourceErrors
		if errors.As(err, &se) {
			return nil, diag.NewError("parse", fmt.Sprintf("failed to parse %s", file), diag.FromSourceErrors(se))
		}
		return nil, diag.ErrorNoPos("parse", "%s: %v", file, err)
	}
	return wgsl.CloneModule(ast), nil
}

// absolute converts an import or reference path of u into package-relative
// segments.
func (r *resolver) absolute(u *unit, p []string) ([]string, bool) {
	switch p[0] {
	case "package":
		return slices.Clone(p[1:]), true
	case "super":
		base := u.segments
		i := 0
		for ; i < len(p) && p[i] == "super"; i++ {
			if len(base) == 0 {
				return nil, false
			}
			base = base[:len(base)-1]
		}
		return append(slices.Clone(base), p[i:]...), true
	}
	return slices.Clone(p), true
}

func (r *resolver) bindImport(u *unit, item *wgsl.ImportItem) {
	segs, ok := r.absolute(u, item.Path)
	if !ok {
		r.diags.Errorf(item.Span, "import %s goes beyond the package root", joinPath(item.Path))
		return
	}

	b := &binding{item: item, from: u.file}
	file, rest, found := r.src.FindModule(segs)
	switch {
	case !found:
		if !r.opts.Lazy {
			r.fail(errMissing(u.file, QualifiedName(segs)))
			return
		}
		b.missing = QualifiedName(segs)
	case len(rest) > 1:
		r.diags.Errorf(item.Span, "%s does not name a declaration of %s", joinPath(item.Path), r.src.ModulePath(file))
		return
	default:
		b.file = file
		if len(rest) == 1 {
			b.name = rest[0]
		}
		r.edges[u.file] = append(r.edges[u.file], edge{to: file, span: item.Span})
	}

	name := item.Name()
	if _, dup := u.decls[name]; dup {
		r.diags.Errorf(item.Span, "import %s conflicts with a declaration of the same name", name)
		return
	}
	if _, dup := u.imports[name]; dup {
		r.diags.Errorf(item.Span, "%s is imported more than once", name)
		return
	}
	u.imports[name] = b
	u.bindings = append(u.bindings, b)
}

// resolveBinding returns the declaration a declaration import names,
// reporting a missing target once at the import.
func (r *resolver) resolveBinding(b *binding) *ir.Decl {
	if b.resolved {
		return b.decl
	}
	b.resolved = true
	if b.file == "" {
		r.fail(errMissing(b.from, b.missing))
		return nil
	}
	target := r.load(b.file)
	if target == nil {
		return nil
	}
	b.decl = target.decls[b.name]
	if b.decl == nil {
		r.diags.Errorf(b.item.Span, "module %s has no declaration %s", target.module, b.name)
	}
	return b.decl
}

// errMissing is the non-positional error for a module path with no file.
func errMissing(from, module string) *diag.Error {
	return diag.ErrorNoPos("resolve", "%s imports %s, which does not exist", from, module)
}

func joinPath(p []string) string {
	return strings.Join(p, "::")
}
