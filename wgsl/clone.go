package wgsl

// Rewriter customizes CloneWith. When a hook returns a non-nil node it
// replaces the node being cloned and its children are not visited.
type Rewriter struct {
	Type func(Type) Type
	Expr func(Expr) Expr
}

// CloneDecl returns a deep copy of a declaration.
func CloneDecl(d Decl) Decl {
	return CloneWith(d, Rewriter{})
}

// CloneExpr returns a deep copy of an expression.
func CloneExpr(e Expr) Expr {
	c := cloner{}
	return c.expr(e)
}

// CloneType returns a deep copy of a type.
func CloneType(t Type) Type {
	c := cloner{}
	return c.typ(t)
}

// CloneModule returns a deep copy of a parsed module.
func CloneModule(m *Module) *Module {
	if m == nil {
		return nil
	}
	c := cloner{}
	out := &Module{Source: m.Source}
	for _, d := range m.Directives {
		dc := *d
		dc.Args = append([]string(nil), d.Args...)
		dc.Attributes = c.attrs(d.Attributes)
		out.Directives = append(out.Directives, &dc)
	}
	for _, imp := range m.Imports {
		ic := &ImportDecl{Attributes: c.attrs(imp.Attributes), Span: imp.Span}
		for _, it := range imp.Items {
			itc := *it
			itc.Path = append([]string(nil), it.Path...)
			ic.Items = append(ic.Items, &itc)
		}
		out.Imports = append(out.Imports, ic)
	}
	for _, d := range m.Decls {
		out.Decls = append(out.Decls, c.decl(d))
	}
	return out
}

// CloneWith deep-copies a declaration, letting rw substitute types and
// expressions on the way.
func CloneWith(d Decl, rw Rewriter) Decl {
	c := cloner{rw: rw}
	return c.decl(d)
}

// CloneExprWith deep-copies an expression with substitutions.
func CloneExprWith(e Expr, rw Rewriter) Expr {
	c := cloner{rw: rw}
	return c.expr(e)
}

// CloneTypeWith deep-copies a type with substitutions.
func CloneTypeWith(t Type, rw Rewriter) Type {
	c := cloner{rw: rw}
	return c.typ(t)
}

type cloner struct {
	rw Rewriter
}

func (c *cloner) decl(d Decl) Decl {
	switch d := d.(type) {
	case *FunctionDecl:
		out := &FunctionDecl{
			Name:        d.Name,
			Attributes:  c.attrs(d.Attributes),
			ReturnType:  c.typ(d.ReturnType),
			ReturnAttrs: c.attrs(d.ReturnAttrs),
			Body:        c.block(d.Body),
			Span:        d.Span,
		}
		out.TemplateParams = c.templateParams(d.TemplateParams)
		for _, p := range d.Params {
			out.Params = append(out.Params, &Parameter{
				Name:       p.Name,
				Type:       c.typ(p.Type),
				Attributes: c.attrs(p.Attributes),
				Span:       p.Span,
			})
		}
		return out
	case *StructDecl:
		out := &StructDecl{
			Name:           d.Name,
			TemplateParams: c.templateParams(d.TemplateParams),
			Attributes:     c.attrs(d.Attributes),
			Span:           d.Span,
		}
		for _, m := range d.Members {
			out.Members = append(out.Members, &StructMember{
				Name:       m.Name,
				Type:       c.typ(m.Type),
				Attributes: c.attrs(m.Attributes),
				Span:       m.Span,
			})
		}
		return out
	case *VarDecl:
		return c.varDecl(d)
	case *ConstDecl:
		return c.constDecl(d)
	case *OverrideDecl:
		return &OverrideDecl{Name: d.Name, Type: c.typ(d.Type), Init: c.expr(d.Init), Attributes: c.attrs(d.Attributes), Span: d.Span}
	case *AliasDecl:
		return &AliasDecl{Name: d.Name, Type: c.typ(d.Type), Attributes: c.attrs(d.Attributes), Span: d.Span}
	case *ConstAssertDecl:
		return &ConstAssertDecl{Expr: c.expr(d.Expr), Attributes: c.attrs(d.Attributes), Span: d.Span}
	}
	return d
}

func (c *cloner) varDecl(d *VarDecl) *VarDecl {
	return &VarDecl{
		Name:         d.Name,
		Type:         c.typ(d.Type),
		Init:         c.expr(d.Init),
		AddressSpace: d.AddressSpace,
		AccessMode:   d.AccessMode,
		Attributes:   c.attrs(d.Attributes),
		Span:         d.Span,
	}
}

func (c *cloner) constDecl(d *ConstDecl) *ConstDecl {
	return &ConstDecl{Name: d.Name, Type: c.typ(d.Type), Init: c.expr(d.Init), Attributes: c.attrs(d.Attributes), Span: d.Span}
}

func (c *cloner) templateParams(tps []*TemplateParam) []*TemplateParam {
	if tps == nil {
		return nil
	}
	out := make([]*TemplateParam, len(tps))
	for i, tp := range tps {
		out[i] = &TemplateParam{Name: tp.Name, Type: c.typ(tp.Type), Span: tp.Span}
	}
	return out
}

func (c *cloner) attrs(attrs []Attribute) []Attribute {
	if attrs == nil {
		return nil
	}
	out := make([]Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = Attribute{Name: a.Name, Span: a.Span, Args: c.exprs(a.Args)}
	}
	return out
}

func (c *cloner) exprs(es []Expr) []Expr {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = c.expr(e)
	}
	return out
}

func (c *cloner) typ(t Type) Type {
	if t == nil {
		return nil
	}
	if c.rw.Type != nil {
		if r := c.rw.Type(t); r != nil {
			return r
		}
	}
	switch t := t.(type) {
	case *NamedType:
		out := &NamedType{
			Name:          t.Name,
			Path:          append([]string(nil), t.Path...),
			Ref:           t.Ref,
			TemplateParam: t.TemplateParam,
			Span:          t.Span,
		}
		if t.TypeParams != nil {
			out.TypeParams = make([]Type, len(t.TypeParams))
			for i, tp := range t.TypeParams {
				out.TypeParams[i] = c.typ(tp)
			}
		}
		return out
	case *ArrayType:
		return &ArrayType{Element: c.typ(t.Element), Size: c.expr(t.Size), Span: t.Span}
	case *BindingArrayType:
		return &BindingArrayType{Element: c.typ(t.Element), Size: c.expr(t.Size), Span: t.Span}
	case *PtrType:
		return &PtrType{AddressSpace: t.AddressSpace, PointeeType: c.typ(t.PointeeType), AccessMode: t.AccessMode, Span: t.Span}
	case *ConstArg:
		return &ConstArg{Value: c.expr(t.Value), Span: t.Span}
	}
	return t
}

func (c *cloner) block(b *BlockStmt) *BlockStmt {
	if b == nil {
		return nil
	}
	out := &BlockStmt{Span: b.Span, Statements: make([]Stmt, 0, len(b.Statements))}
	for _, s := range b.Statements {
		out.Statements = append(out.Statements, c.stmt(s))
	}
	return out
}

func (c *cloner) stmt(s Stmt) Stmt {
	switch s := s.(type) {
	case nil:
		return nil
	case *BlockStmt:
		return c.block(s)
	case *AttrStmt:
		return &AttrStmt{Attributes: c.attrs(s.Attributes), Stmt: c.stmt(s.Stmt), Span: s.Span}
	case *VarDecl:
		return c.varDecl(s)
	case *ConstDecl:
		return c.constDecl(s)
	case *LetDecl:
		return &LetDecl{Name: s.Name, Type: c.typ(s.Type), Init: c.expr(s.Init), Attributes: c.attrs(s.Attributes), Span: s.Span}
	case *ConstAssertDecl:
		return &ConstAssertDecl{Expr: c.expr(s.Expr), Attributes: c.attrs(s.Attributes), Span: s.Span}
	case *ReturnStmt:
		return &ReturnStmt{Value: c.expr(s.Value), Span: s.Span}
	case *IfStmt:
		return &IfStmt{Condition: c.expr(s.Condition), Body: c.block(s.Body), Else: c.stmt(s.Else), Span: s.Span}
	case *ForStmt:
		return &ForStmt{Init: c.stmt(s.Init), Condition: c.expr(s.Condition), Update: c.stmt(s.Update), Body: c.block(s.Body), Span: s.Span}
	case *WhileStmt:
		return &WhileStmt{Condition: c.expr(s.Condition), Body: c.block(s.Body), Span: s.Span}
	case *LoopStmt:
		return &LoopStmt{Body: c.block(s.Body), Continuing: c.block(s.Continuing), BreakIf: c.expr(s.BreakIf), Span: s.Span}
	case *BreakStmt:
		return &BreakStmt{Span: s.Span}
	case *ContinueStmt:
		return &ContinueStmt{Span: s.Span}
	case *DiscardStmt:
		return &DiscardStmt{Span: s.Span}
	case *AssignStmt:
		return &AssignStmt{Left: c.expr(s.Left), Op: s.Op, Right: c.expr(s.Right), Span: s.Span}
	case *IncDecStmt:
		return &IncDecStmt{Target: c.expr(s.Target), Op: s.Op, Span: s.Span}
	case *ExprStmt:
		return &ExprStmt{Expr: c.expr(s.Expr), Span: s.Span}
	case *SwitchStmt:
		out := &SwitchStmt{Selector: c.expr(s.Selector), Span: s.Span}
		for _, cl := range s.Cases {
			out.Cases = append(out.Cases, &SwitchCaseClause{
				Selectors: c.exprs(cl.Selectors),
				IsDefault: cl.IsDefault,
				Body:      c.block(cl.Body),
				Span:      cl.Span,
			})
		}
		return out
	}
	return s
}

func (c *cloner) ident(id *Ident) *Ident {
	return &Ident{
		Name:          id.Name,
		Path:          append([]string(nil), id.Path...),
		Ref:           id.Ref,
		TemplateParam: id.TemplateParam,
		Span:          id.Span,
	}
}

func (c *cloner) expr(e Expr) Expr {
	if e == nil {
		return nil
	}
	if c.rw.Expr != nil {
		if r := c.rw.Expr(e); r != nil {
			return r
		}
	}
	switch e := e.(type) {
	case *Ident:
		return c.ident(e)
	case *Literal:
		return &Literal{Kind: e.Kind, Value: e.Value, Span: e.Span}
	case *BinaryExpr:
		return &BinaryExpr{Left: c.expr(e.Left), Op: e.Op, Right: c.expr(e.Right), Span: e.Span}
	case *UnaryExpr:
		return &UnaryExpr{Op: e.Op, Operand: c.expr(e.Operand), Span: e.Span}
	case *ParenExpr:
		return &ParenExpr{Expr: c.expr(e.Expr), Span: e.Span}
	case *CallExpr:
		out := &CallExpr{Func: c.ident(e.Func), Args: c.exprs(e.Args), Span: e.Span}
		if fn, ok := c.expr(e.Func).(*Ident); ok {
			out.Func = fn
		}
		if e.TemplateArgs != nil {
			out.TemplateArgs = make([]Type, len(e.TemplateArgs))
			for i, t := range e.TemplateArgs {
				out.TemplateArgs[i] = c.typ(t)
			}
		}
		return out
	case *IndexExpr:
		return &IndexExpr{Expr: c.expr(e.Expr), Index: c.expr(e.Index), Span: e.Span}
	case *MemberExpr:
		return &MemberExpr{Expr: c.expr(e.Expr), Member: e.Member, Span: e.Span}
	case *ConstructExpr:
		return &ConstructExpr{Type: c.typ(e.Type), Args: c.exprs(e.Args), Span: e.Span}
	case *BitcastExpr:
		return &BitcastExpr{Type: c.typ(e.Type), Expr: c.expr(e.Expr), Span: e.Span}
	}
	return e
}
