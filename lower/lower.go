// Package lower rewrites a linked module into plain WGSL and prints it.
//
// By the time a module reaches this package imports are resolved and
// generics are instantiated, so what remains of the extended dialect is
// attribute syntax: @if/@elif/@else left behind when conditional
// compilation is disabled. Naga mode additionally removes constructs that
// naga does not accept. Neither rewrite changes what retained code computes.
package lower

import (
	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// Options configures Lower.
type Options struct {
	// Naga removes const_assert, diagnostic directives and attributes, and
	// requires directives.
	Naga bool
}

// Lower returns a lowered copy of m and any warnings. m is not modified.
func Lower(m *ir.Module, opts Options) (*ir.Module, diag.List) {
	out := m.Clone()
	l := &lowerer{opts: opts}

	var dirs []*wgsl.Directive
	for _, d := range out.Directives {
		if opts.Naga && (d.Kind == wgsl.TokenDiagnostic || d.Kind == wgsl.TokenRequires) {
			continue
		}
		dc := *d
		dc.Attributes = l.attrs(d.Attributes)
		dirs = append(dirs, &dc)
	}

	var decls []*ir.Decl
	for _, d := range out.Decls {
		if _, ok := d.Node.(*wgsl.ConstAssertDecl); ok && opts.Naga {
			continue
		}
		l.decl(d)
		decls = append(decls, d)
	}
	res := out.Replace(decls)
	res.Directives = dirs
	return res, l.warnings
}

type lowerer struct {
	opts     Options
	warnings diag.List
}

// drops reports whether an attribute is removed from the output.
func (l *lowerer) drops(a wgsl.Attribute) bool {
	switch a.Name {
	case "if", "elif", "else":
		return true
	case "diagnostic":
		return l.opts.Naga
	}
	return false
}

func (l *lowerer) attrs(attrs []wgsl.Attribute) []wgsl.Attribute {
	var out []wgsl.Attribute
	for _, a := range attrs {
		if !l.drops(a) {
			out = append(out, a)
		}
	}
	return out
}

func (l *lowerer) decl(d *ir.Decl) {
	switch n := d.Node.(type) {
	case *wgsl.FunctionDecl:
		n.Attributes = l.attrs(n.Attributes)
		n.ReturnAttrs = l.attrs(n.ReturnAttrs)
		for _, p := range n.Params {
			p.Attributes = l.attrs(p.Attributes)
		}
		l.block(n.Body)
		l.checkUnused(d.ShortName, n)
	case *wgsl.StructDecl:
		n.Attributes = l.attrs(n.Attributes)
		for _, mem := range n.Members {
			mem.Attributes = l.attrs(mem.Attributes)
		}
	case *wgsl.VarDecl:
		n.Attributes = l.attrs(n.Attributes)
	case *wgsl.ConstDecl:
		n.Attributes = l.attrs(n.Attributes)
	case *wgsl.OverrideDecl:
		n.Attributes = l.attrs(n.Attributes)
	case *wgsl.AliasDecl:
		n.Attributes = l.attrs(n.Attributes)
	case *wgsl.ConstAssertDecl:
		n.Attributes = l.attrs(n.Attributes)
	}
}

func (l *lowerer) block(b *wgsl.BlockStmt) {
	if b == nil {
		return
	}
	out := b.Statements[:0]
	for _, s := range b.Statements {
		if s = l.stmt(s); s != nil {
			out = append(out, s)
		}
	}
	b.Statements = out
}

// stmt lowers one statement; nil removes it.
func (l *lowerer) stmt(s wgsl.Stmt) wgsl.Stmt {
	switch s := s.(type) {
	case *wgsl.AttrStmt:
		s.Attributes = l.attrs(s.Attributes)
		inner := l.stmt(s.Stmt)
		if inner == nil {
			return nil
		}
		if len(s.Attributes) == 0 {
			return inner
		}
		s.Stmt = inner
	case *wgsl.ConstAssertDecl:
		if l.opts.Naga {
			return nil
		}
	case *wgsl.VarDecl:
		s.Attributes = l.attrs(s.Attributes)
	case *wgsl.LetDecl:
		s.Attributes = l.attrs(s.Attributes)
	case *wgsl.ConstDecl:
		s.Attributes = l.attrs(s.Attributes)
	case *wgsl.BlockStmt:
		l.block(s)
	case *wgsl.IfStmt:
		l.block(s.Body)
		if s.Else != nil {
			s.Else = l.stmt(s.Else)
		}
	case *wgsl.ForStmt:
		l.block(s.Body)
	case *wgsl.WhileStmt:
		l.block(s.Body)
	case *wgsl.LoopStmt:
		l.block(s.Body)
		l.block(s.Continuing)
	case *wgsl.SwitchStmt:
		for _, c := range s.Cases {
			l.block(c.Body)
		}
	}
	return s
}
