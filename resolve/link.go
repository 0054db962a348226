package resolve

import (
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// linker binds the identifiers of one file. Lookup order is: locals,
// template parameters, declarations of the file, imports, predeclared
// names.
type linker struct {
	r       *resolver
	u       *unit
	scopes  []map[string]bool
	tparams map[string]bool
}

func (r *resolver) link(u *unit) {
	if !r.opts.Lazy {
		for _, b := range u.bindings {
			if b.name != "" {
				r.resolveBinding(b)
			}
		}
	}
	l := &linker{r: r, u: u}
	for _, d := range u.ast.Decls {
		l.decl(d)
	}
}

func (l *linker) push() { l.scopes = append(l.scopes, map[string]bool{}) }
func (l *linker) pop()  { l.scopes = l.scopes[:len(l.scopes)-1] }

func (l *linker) declare(name string) {
	if len(l.scopes) > 0 && name != "" && name != "_" {
		l.scopes[len(l.scopes)-1][name] = true
	}
}

func (l *linker) local(name string) bool {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if l.scopes[i][name] {
			return true
		}
	}
	return false
}

// visible looks a plain name up among the file's declarations and imports.
// found is true when the name is bound even if its target is broken, so
// that only one diagnostic is reported.
func (l *linker) visible(name string, span wgsl.Span) (d *ir.Decl, found bool) {
	if d, ok := l.u.decls[name]; ok {
		return d, true
	}
	b, ok := l.u.imports[name]
	if !ok {
		return nil, false
	}
	if b.name == "" && b.file != "" {
		return l.moduleItem(b, name, span), true
	}
	return l.r.resolveBinding(b), true
}

// moduleItem resolves a module import used as a plain name to the
// declaration of the module that shares its name, as in
// `import package::util::helper;` where util/helper.wesl declares helper.
func (l *linker) moduleItem(b *binding, name string, span wgsl.Span) *ir.Decl {
	if b.resolved {
		return b.decl
	}
	b.resolved = true
	target := l.r.load(b.file)
	if target == nil {
		return nil
	}
	last := b.item.Path[len(b.item.Path)-1]
	b.decl = target.decls[last]
	if b.decl == nil {
		l.r.diags.Errorf(span, "%s names module %s, which has no declaration %s", name, target.module, last)
	}
	return b.decl
}

// qualified resolves a module-qualified name such as lib::f or
// package::lib::f.
func (l *linker) qualified(path []string, name string, span wgsl.Span) wgsl.DeclID {
	r := l.r
	if !r.opts.Imports {
		r.diags.Errorf(span, "qualified name %s::%s requires imports", joinPath(path), name)
		return wgsl.NoDecl
	}

	var segs []string
	if b, ok := l.u.imports[path[0]]; ok && (b.name == "" || b.file == "") {
		if b.file == "" {
			b.resolved = true
			r.fail(errMissing(b.from, b.missing))
			return wgsl.NoDecl
		}
		segs = append(segs, r.src.ModuleSegments(b.file)...)
		segs = append(segs, path[1:]...)
	} else {
		abs, ok := r.absolute(l.u, path)
		if !ok {
			r.diags.Errorf(span, "%s goes beyond the package root", joinPath(path))
			return wgsl.NoDecl
		}
		segs = abs
	}
	segs = append(segs, name)

	file, rest, ok := r.src.FindModule(segs)
	if !ok {
		r.fail(errMissing(l.u.file, QualifiedName(segs[:len(segs)-1])))
		return wgsl.NoDecl
	}
	if len(rest) != 1 {
		r.diags.Errorf(span, "%s::%s does not name a declaration", joinPath(path), name)
		return wgsl.NoDecl
	}
	target := r.load(file)
	if target == nil {
		return wgsl.NoDecl
	}
	d, ok := target.decls[rest[0]]
	if !ok {
		r.diags.Errorf(span, "module %s has no declaration %s", target.module, rest[0])
		return wgsl.NoDecl
	}
	return d.ID
}

func (l *linker) ident(e *wgsl.Ident, what string) {
	if e.Qualified() {
		e.Ref = l.qualified(e.Path, e.Name, e.Span)
		return
	}
	if l.local(e.Name) {
		return
	}
	if l.tparams[e.Name] {
		e.TemplateParam = true
		return
	}
	if d, found := l.visible(e.Name, e.Span); found {
		if d != nil {
			e.Ref = d.ID
		}
		return
	}
	if ir.IsPredeclaredName(e.Name) {
		return
	}
	l.r.diags.Errorf(e.Span, "unresolved %s %s", what, e.Name)
}

func (l *linker) namedType(t *wgsl.NamedType) {
	for _, p := range t.TypeParams {
		l.typ(p)
	}
	if len(t.Path) > 0 {
		t.Ref = l.qualified(t.Path, t.Name, t.Span)
		return
	}
	if l.local(t.Name) {
		return
	}
	if l.tparams[t.Name] {
		t.TemplateParam = true
		return
	}
	if d, found := l.visible(t.Name, t.Span); found {
		if d != nil {
			t.Ref = d.ID
		}
		return
	}
	if ir.IsPredeclaredName(t.Name) {
		return
	}
	l.r.diags.Errorf(t.Span, "unknown type %s", t.Name)
}

func (l *linker) decl(d wgsl.Decl) {
	l.tparams = nil
	for _, tp := range wgsl.TemplateParams(d) {
		if l.tparams == nil {
			l.tparams = map[string]bool{}
		}
		l.tparams[tp.Name] = true
		l.typ(tp.Type)
	}

	switch d := d.(type) {
	case *wgsl.FunctionDecl:
		l.attrs(d.Attributes)
		l.push()
		for _, p := range d.Params {
			l.attrs(p.Attributes)
			l.typ(p.Type)
			l.declare(p.Name)
		}
		l.attrs(d.ReturnAttrs)
		l.typ(d.ReturnType)
		l.block(d.Body)
		l.pop()
	case *wgsl.StructDecl:
		l.attrs(d.Attributes)
		for _, m := range d.Members {
			l.attrs(m.Attributes)
			l.typ(m.Type)
		}
	case *wgsl.VarDecl:
		l.attrs(d.Attributes)
		l.typ(d.Type)
		l.expr(d.Init)
	case *wgsl.ConstDecl:
		l.attrs(d.Attributes)
		l.typ(d.Type)
		l.expr(d.Init)
	case *wgsl.OverrideDecl:
		l.attrs(d.Attributes)
		l.typ(d.Type)
		l.expr(d.Init)
	case *wgsl.AliasDecl:
		l.attrs(d.Attributes)
		l.typ(d.Type)
	case *wgsl.ConstAssertDecl:
		l.expr(d.Expr)
	}
}

// attrs links attribute arguments that are expressions. Enumerant
// arguments such as builtin names are left alone.
func (l *linker) attrs(attrs []wgsl.Attribute) {
	for _, a := range attrs {
		switch a.Name {
		case "builtin", "interpolate", "diagnostic", "if", "elif", "else":
			continue
		}
		for _, arg := range a.Args {
			l.expr(arg)
		}
	}
}

func (l *linker) typ(t wgsl.Type) {
	switch t := t.(type) {
	case *wgsl.NamedType:
		l.namedType(t)
	case *wgsl.ArrayType:
		l.typ(t.Element)
		l.expr(t.Size)
	case *wgsl.BindingArrayType:
		l.typ(t.Element)
		l.expr(t.Size)
	case *wgsl.PtrType:
		l.typ(t.PointeeType)
	case *wgsl.ConstArg:
		l.expr(t.Value)
	}
}

func (l *linker) block(b *wgsl.BlockStmt) {
	if b == nil {
		return
	}
	l.push()
	l.stmts(b.Statements)
	l.pop()
}

func (l *linker) stmts(list []wgsl.Stmt) {
	for _, s := range list {
		l.stmt(s)
	}
}

func (l *linker) stmt(s wgsl.Stmt) {
	switch s := s.(type) {
	case *wgsl.BlockStmt:
		l.block(s)
	case *wgsl.AttrStmt:
		l.attrs(s.Attributes)
		l.stmt(s.Stmt)
	case *wgsl.VarDecl:
		l.typ(s.Type)
		l.expr(s.Init)
		l.declare(s.Name)
	case *wgsl.LetDecl:
		l.typ(s.Type)
		l.expr(s.Init)
		l.declare(s.Name)
	case *wgsl.ConstDecl:
		l.typ(s.Type)
		l.expr(s.Init)
		l.declare(s.Name)
	case *wgsl.ConstAssertDecl:
		l.expr(s.Expr)
	case *wgsl.ReturnStmt:
		l.expr(s.Value)
	case *wgsl.IfStmt:
		l.expr(s.Condition)
		l.block(s.Body)
		if s.Else != nil {
			l.stmt(s.Else)
		}
	case *wgsl.ForStmt:
		l.push()
		if s.Init != nil {
			l.stmt(s.Init)
		}
		l.expr(s.Condition)
		if s.Update != nil {
			l.stmt(s.Update)
		}
		l.block(s.Body)
		l.pop()
	case *wgsl.WhileStmt:
		l.expr(s.Condition)
		l.block(s.Body)
	case *wgsl.LoopStmt:
		// The continuing block sees the declarations of the loop body.
		l.push()
		if s.Body != nil {
			l.stmts(s.Body.Statements)
		}
		l.push()
		if s.Continuing != nil {
			l.stmts(s.Continuing.Statements)
		}
		l.expr(s.BreakIf)
		l.pop()
		l.pop()
	case *wgsl.AssignStmt:
		l.expr(s.Left)
		l.expr(s.Right)
	case *wgsl.IncDecStmt:
		l.expr(s.Target)
	case *wgsl.ExprStmt:
		l.expr(s.Expr)
	case *wgsl.SwitchStmt:
		l.expr(s.Selector)
		for _, c := range s.Cases {
			for _, sel := range c.Selectors {
				l.expr(sel)
			}
			l.block(c.Body)
		}
	}
}

func (l *linker) expr(e wgsl.Expr) {
	switch e := e.(type) {
	case *wgsl.Ident:
		if e != nil {
			l.ident(e, "identifier")
		}
	case *wgsl.BinaryExpr:
		l.expr(e.Left)
		l.expr(e.Right)
	case *wgsl.UnaryExpr:
		l.expr(e.Operand)
	case *wgsl.ParenExpr:
		l.expr(e.Expr)
	case *wgsl.CallExpr:
		l.ident(e.Func, "function")
		for _, t := range e.TemplateArgs {
			l.typ(t)
		}
		for _, a := range e.Args {
			l.expr(a)
		}
	case *wgsl.IndexExpr:
		l.expr(e.Expr)
		l.expr(e.Index)
	case *wgsl.MemberExpr:
		l.expr(e.Expr)
	case *wgsl.ConstructExpr:
		l.typ(e.Type)
		for _, a := range e.Args {
			l.expr(a)
		}
	case *wgsl.BitcastExpr:
		l.typ(e.Type)
		l.expr(e.Expr)
	}
}
