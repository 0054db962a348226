// Package condcomp implements conditional compilation: it removes the
// parts of a source file whose @if, @elif or @else attributes are not
// satisfied by a set of feature flags.
//
// Conditions attach to module declarations, imports, directives, struct
// members, function parameters and statements. @elif and @else continue
// the chain started by the closest preceding sibling with @if.
package condcomp

import (
	"fmt"

	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/wgsl"
)

// Features maps feature names to their values. Absent features are false.
type Features map[string]bool

// Eval evaluates a feature predicate.
func Eval(e wgsl.Expr, features Features) (bool, error) {
	switch e := e.(type) {
	case *wgsl.Ident:
		if e.Qualified() {
			return false, fmt.Errorf("qualified name %s in feature predicate", wgsl.FormatExpr(e))
		}
		return features[e.Name], nil
	case *wgsl.Literal:
		switch e.Kind {
		case wgsl.TokenTrue:
			return true, nil
		case wgsl.TokenFalse:
			return false, nil
		}
	case *wgsl.ParenExpr:
		return Eval(e.Expr, features)
	case *wgsl.UnaryExpr:
		if e.Op == wgsl.TokenBang {
			v, err := Eval(e.Operand, features)
			return !v, err
		}
	case *wgsl.BinaryExpr:
		l, err := Eval(e.Left, features)
		if err != nil {
			return false, err
		}
		switch e.Op {
		case wgsl.TokenAmpAmp:
			if !l {
				return false, nil
			}
			return Eval(e.Right, features)
		case wgsl.TokenPipePipe:
			if l {
				return true, nil
			}
			return Eval(e.Right, features)
		}
	}
	return false, fmt.Errorf("invalid feature predicate %s", wgsl.FormatExpr(e))
}

// chain tracks an @if/@elif/@else sequence among siblings.
type chain struct {
	features Features
	diags    *diag.List
	open     bool // the previous sibling carried @if or @elif
	taken    bool // some branch of the open chain was kept
}

// keep decides whether a sibling with the given attributes survives and
// returns its attributes without the conditional ones.
func (c *chain) keep(attrs []wgsl.Attribute) (bool, []wgsl.Attribute) {
	cond, idx := conditional(attrs)
	if idx < 0 {
		c.open = false
		return true, attrs
	}
	rest := append(append([]wgsl.Attribute{}, attrs[:idx]...), attrs[idx+1:]...)
	if len(rest) == 0 {
		rest = nil
	}

	switch cond.Name {
	case "if":
		ok := c.eval(cond)
		c.open, c.taken = true, ok
		return ok, rest

	case "elif":
		if !c.open {
			c.diags.Errorf(cond.Span, "@elif without a preceding @if")
			return false, rest
		}
		ok := !c.taken && c.eval(cond)
		c.taken = c.taken || ok
		return ok, rest
	}

	// @else
	if !c.open {
		c.diags.Errorf(cond.Span, "@else without a preceding @if")
		return false, rest
	}
	ok := !c.taken
	c.open, c.taken = false, false
	return ok, rest
}

func (c *chain) eval(a *wgsl.Attribute) bool {
	if len(a.Args) != 1 {
		c.diags.Errorf(a.Span, "@%s expects one predicate", a.Name)
		return false
	}
	ok, err := Eval(a.Args[0], c.features)
	if err != nil {
		c.diags.Errorf(a.Args[0].Pos(), "%s", err)
		return false
	}
	return ok
}

// conditional returns the first conditional attribute of a list and its
// index, or -1.
func conditional(attrs []wgsl.Attribute) (*wgsl.Attribute, int) {
	for i := range attrs {
		switch attrs[i].Name {
		case "if", "elif", "else":
			return &attrs[i], i
		}
	}
	return nil, -1
}

// HasConditions reports whether any conditional attribute appears in m.
func HasConditions(m *wgsl.Module) bool {
	found := false
	check := func(attrs []wgsl.Attribute) {
		if _, i := conditional(attrs); i >= 0 {
			found = true
		}
	}
	for _, d := range m.Directives {
		check(d.Attributes)
	}
	for _, imp := range m.Imports {
		check(imp.Attributes)
	}
	for _, d := range m.Decls {
		wgsl.Inspect(d, func(n wgsl.Node) bool {
			switch n := n.(type) {
			case *wgsl.AttrStmt:
				check(n.Attributes)
			case *wgsl.FunctionDecl:
				check(n.Attributes)
				for _, p := range n.Params {
					check(p.Attributes)
				}
			case *wgsl.StructDecl:
				check(n.Attributes)
				for _, mem := range n.Members {
					check(mem.Attributes)
				}
			case wgsl.Decl:
				check(wgsl.DeclAttributes(n))
			}
			return !found
		})
	}
	return found
}

// Filter removes the parts of m whose conditions are not satisfied and
// strips the conditional attributes from what remains. It rewrites m in
// place and returns it.
func Filter(m *wgsl.Module, features Features) (*wgsl.Module, diag.List) {
	var diags diag.List
	f := &filter{features: features, diags: &diags}

	c := f.chain()
	var directives []*wgsl.Directive
	for _, d := range m.Directives {
		if ok, attrs := c.keep(d.Attributes); ok {
			d.Attributes = attrs
			directives = append(directives, d)
		}
	}
	m.Directives = directives

	c = f.chain()
	var imports []*wgsl.ImportDecl
	for _, imp := range m.Imports {
		if ok, attrs := c.keep(imp.Attributes); ok {
			imp.Attributes = attrs
			imports = append(imports, imp)
		}
	}
	m.Imports = imports

	c = f.chain()
	var decls []wgsl.Decl
	for _, d := range m.Decls {
		ok, attrs := c.keep(wgsl.DeclAttributes(d))
		if !ok {
			continue
		}
		setDeclAttributes(d, attrs)
		f.decl(d)
		decls = append(decls, d)
	}
	m.Decls = decls

	return m, diags
}

type filter struct {
	features Features
	diags    *diag.List
}

func (f *filter) chain() *chain {
	return &chain{features: f.features, diags: f.diags}
}

func setDeclAttributes(d wgsl.Decl, attrs []wgsl.Attribute) {
	switch d := d.(type) {
	case *wgsl.FunctionDecl:
		d.Attributes = attrs
	case *wgsl.StructDecl:
		d.Attributes = attrs
	case *wgsl.VarDecl:
		d.Attributes = attrs
	case *wgsl.ConstDecl:
		d.Attributes = attrs
	case *wgsl.OverrideDecl:
		d.Attributes = attrs
	case *wgsl.AliasDecl:
		d.Attributes = attrs
	case *wgsl.ConstAssertDecl:
		d.Attributes = attrs
	}
}

func (f *filter) decl(d wgsl.Decl) {
	switch d := d.(type) {
	case *wgsl.StructDecl:
		c := f.chain()
		var members []*wgsl.StructMember
		for _, m := range d.Members {
			if ok, attrs := c.keep(m.Attributes); ok {
				m.Attributes = attrs
				members = append(members, m)
			}
		}
		d.Members = members

	case *wgsl.FunctionDecl:
		c := f.chain()
		var params []*wgsl.Parameter
		for _, p := range d.Params {
			if ok, attrs := c.keep(p.Attributes); ok {
				p.Attributes = attrs
				params = append(params, p)
			}
		}
		d.Params = params
		f.block(d.Body)
	}
}

func (f *filter) block(b *wgsl.BlockStmt) {
	if b == nil {
		return
	}
	c := f.chain()
	var out []wgsl.Stmt
	for _, s := range b.Statements {
		attrs := stmtAttributes(s)
		ok, rest := c.keep(attrs)
		if !ok {
			continue
		}
		if as, wrapped := s.(*wgsl.AttrStmt); wrapped {
			if len(rest) == 0 {
				s = as.Stmt
			} else {
				as.Attributes = rest
			}
		}
		f.stmt(s)
		out = append(out, s)
	}
	b.Statements = out
}

func stmtAttributes(s wgsl.Stmt) []wgsl.Attribute {
	if as, ok := s.(*wgsl.AttrStmt); ok {
		return as.Attributes
	}
	return nil
}

func (f *filter) stmt(s wgsl.Stmt) {
	switch s := s.(type) {
	case *wgsl.AttrStmt:
		f.stmt(s.Stmt)
	case *wgsl.BlockStmt:
		f.block(s)
	case *wgsl.IfStmt:
		f.block(s.Body)
		if s.Else != nil {
			f.stmt(s.Else)
		}
	case *wgsl.ForStmt:
		f.block(s.Body)
	case *wgsl.WhileStmt:
		f.block(s.Body)
	case *wgsl.LoopStmt:
		f.block(s.Body)
		f.block(s.Continuing)
	case *wgsl.SwitchStmt:
		for _, c := range s.Cases {
			f.block(c.Body)
		}
	}
}
