package wgsl

import (
	"strings"
)

// Mark records the output byte range produced for one module declaration.
type Mark struct {
	Decl  int // index into Module.Decls
	Start int
	End   int
}

// Printer renders an AST back to WGSL text.
type Printer struct {
	sb     strings.Builder
	indent int
	marks  []Mark
}

// Print renders a module to WGSL.
func Print(m *Module) string {
	text, _ := PrintModule(m)
	return text
}

// PrintModule renders a module and returns the output range of every
// declaration, in declaration order.
func PrintModule(m *Module) (string, []Mark) {
	p := &Printer{}
	p.module(m)
	return p.sb.String(), p.marks
}

// FormatType renders a type expression.
func FormatType(t Type) string {
	p := &Printer{}
	p.typ(t)
	return p.sb.String()
}

// FormatExpr renders an expression.
func FormatExpr(e Expr) string {
	p := &Printer{}
	p.expr(e)
	return p.sb.String()
}

func (p *Printer) module(m *Module) {
	for _, d := range m.Directives {
		p.attrsInline(d.Attributes)
		switch d.Kind {
		case TokenDiagnostic:
			p.write("diagnostic(")
			p.write(strings.Join(d.Args, ", "))
			p.write(");\n")
		default:
			p.write(d.Kind.String())
			p.write(" ")
			p.write(strings.Join(d.Args, ", "))
			p.write(";\n")
		}
	}
	for i, d := range m.Decls {
		if i > 0 || len(m.Directives) > 0 {
			p.write("\n")
		}
		start := p.sb.Len()
		p.decl(d)
		p.marks = append(p.marks, Mark{Decl: i, Start: start, End: p.sb.Len()})
		p.write("\n")
	}
}

func (p *Printer) write(s string) {
	p.sb.WriteString(s)
}

func (p *Printer) newline() {
	p.sb.WriteByte('\n')
	for i := 0; i < p.indent; i++ {
		p.sb.WriteString("    ")
	}
}

func (p *Printer) attrsInline(attrs []Attribute) {
	for _, a := range attrs {
		p.attr(a)
		p.write(" ")
	}
}

func (p *Printer) attr(a Attribute) {
	p.write("@")
	p.write(a.Name)
	if len(a.Args) > 0 || a.Name == "workgroup_size" {
		p.write("(")
		p.exprList(a.Args)
		p.write(")")
	}
}

func (p *Printer) decl(d Decl) {
	switch d := d.(type) {
	case *FunctionDecl:
		if len(d.Attributes) > 0 {
			for i, a := range d.Attributes {
				if i > 0 {
					p.write(" ")
				}
				p.attr(a)
			}
			p.newline()
		}
		p.write("fn ")
		p.write(d.Name)
		p.templateParams(d.TemplateParams)
		p.write("(")
		for i, param := range d.Params {
			if i > 0 {
				p.write(", ")
			}
			p.attrsInline(param.Attributes)
			p.write(param.Name)
			p.write(": ")
			p.typ(param.Type)
		}
		p.write(")")
		if d.ReturnType != nil {
			p.write(" -> ")
			p.attrsInline(d.ReturnAttrs)
			p.typ(d.ReturnType)
		}
		p.write(" ")
		p.block(d.Body)
	case *StructDecl:
		p.attrsInline(d.Attributes)
		p.write("struct ")
		p.write(d.Name)
		p.templateParams(d.TemplateParams)
		p.write(" {")
		p.indent++
		for _, m := range d.Members {
			p.newline()
			p.attrsInline(m.Attributes)
			p.write(m.Name)
			p.write(": ")
			p.typ(m.Type)
			p.write(",")
		}
		p.indent--
		p.newline()
		p.write("}")
	case *VarDecl:
		p.varDecl(d)
		p.write(";")
	case *ConstDecl:
		p.attrsInline(d.Attributes)
		p.binding("const", d.Name, d.Type, d.Init)
		p.write(";")
	case *OverrideDecl:
		p.attrsInline(d.Attributes)
		p.binding("override", d.Name, d.Type, d.Init)
		p.write(";")
	case *AliasDecl:
		p.attrsInline(d.Attributes)
		p.write("alias ")
		p.write(d.Name)
		p.write(" = ")
		p.typ(d.Type)
		p.write(";")
	case *ConstAssertDecl:
		p.attrsInline(d.Attributes)
		p.write("const_assert ")
		p.expr(d.Expr)
		p.write(";")
	}
}

func (p *Printer) templateParams(tps []*TemplateParam) {
	if len(tps) == 0 {
		return
	}
	p.write("<")
	for i, tp := range tps {
		if i > 0 {
			p.write(", ")
		}
		p.write(tp.Name)
		if tp.Type != nil {
			p.write(": ")
			p.typ(tp.Type)
		}
	}
	p.write(">")
}

func (p *Printer) varDecl(d *VarDecl) {
	p.attrsInline(d.Attributes)
	p.write("var")
	if d.AddressSpace != "" {
		p.write("<")
		p.write(d.AddressSpace)
		if d.AccessMode != "" {
			p.write(", ")
			p.write(d.AccessMode)
		}
		p.write(">")
	}
	p.write(" ")
	p.write(d.Name)
	if d.Type != nil {
		p.write(": ")
		p.typ(d.Type)
	}
	if d.Init != nil {
		p.write(" = ")
		p.expr(d.Init)
	}
}

func (p *Printer) binding(keyword, name string, t Type, init Expr) {
	p.write(keyword)
	p.write(" ")
	p.write(name)
	if t != nil {
		p.write(": ")
		p.typ(t)
	}
	if init != nil {
		p.write(" = ")
		p.expr(init)
	}
}

func (p *Printer) typ(t Type) {
	switch t := t.(type) {
	case nil:
	case *NamedType:
		for _, seg := range t.Path {
			p.write(seg)
			p.write("::")
		}
		p.write(t.Name)
		if len(t.TypeParams) > 0 {
			p.write("<")
			for i, tp := range t.TypeParams {
				if i > 0 {
					p.write(", ")
				}
				p.typ(tp)
			}
			p.write(">")
		}
	case *ArrayType:
		p.write("array<")
		p.typ(t.Element)
		if t.Size != nil {
			p.write(", ")
			p.expr(t.Size)
		}
		p.write(">")
	case *BindingArrayType:
		p.write("binding_array<")
		p.typ(t.Element)
		if t.Size != nil {
			p.write(", ")
			p.expr(t.Size)
		}
		p.write(">")
	case *PtrType:
		p.write("ptr<")
		p.write(t.AddressSpace)
		p.write(", ")
		p.typ(t.PointeeType)
		if t.AccessMode != "" {
			p.write(", ")
			p.write(t.AccessMode)
		}
		p.write(">")
	case *ConstArg:
		p.expr(t.Value)
	}
}

func (p *Printer) block(b *BlockStmt) {
	p.write("{")
	p.indent++
	if b != nil {
		for _, s := range b.Statements {
			p.newline()
			p.stmt(s)
		}
	}
	p.indent--
	p.newline()
	p.write("}")
}

func (p *Printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *BlockStmt:
		p.block(s)
	case *AttrStmt:
		p.attrsInline(s.Attributes)
		p.stmt(s.Stmt)
	case *ReturnStmt:
		p.write("return")
		if s.Value != nil {
			p.write(" ")
			p.expr(s.Value)
		}
		p.write(";")
	case *IfStmt:
		p.ifStmt(s)
	case *ForStmt:
		p.write("for (")
		if s.Init != nil {
			p.simple(s.Init)
		}
		p.write("; ")
		if s.Condition != nil {
			p.expr(s.Condition)
		}
		p.write("; ")
		if s.Update != nil {
			p.simple(s.Update)
		}
		p.write(") ")
		p.block(s.Body)
	case *WhileStmt:
		p.write("while ")
		p.expr(s.Condition)
		p.write(" ")
		p.block(s.Body)
	case *LoopStmt:
		p.write("loop {")
		p.indent++
		for _, st := range s.Body.Statements {
			p.newline()
			p.stmt(st)
		}
		if s.Continuing != nil || s.BreakIf != nil {
			p.newline()
			p.write("continuing {")
			p.indent++
			if s.Continuing != nil {
				for _, st := range s.Continuing.Statements {
					p.newline()
					p.stmt(st)
				}
			}
			if s.BreakIf != nil {
				p.newline()
				p.write("break if ")
				p.expr(s.BreakIf)
				p.write(";")
			}
			p.indent--
			p.newline()
			p.write("}")
		}
		p.indent--
		p.newline()
		p.write("}")
	case *BreakStmt:
		p.write("break;")
	case *ContinueStmt:
		p.write("continue;")
	case *DiscardStmt:
		p.write("discard;")
	case *SwitchStmt:
		p.write("switch ")
		p.expr(s.Selector)
		p.write(" {")
		p.indent++
		for _, c := range s.Cases {
			p.newline()
			switch {
			case len(c.Selectors) == 0:
				p.write("default: ")
			default:
				p.write("case ")
				p.exprList(c.Selectors)
				if c.IsDefault {
					p.write(", default")
				}
				p.write(": ")
			}
			p.block(c.Body)
		}
		p.indent--
		p.newline()
		p.write("}")
	case *ConstAssertDecl:
		p.write("const_assert ")
		p.expr(s.Expr)
		p.write(";")
	default:
		p.simple(s)
		p.write(";")
	}
}

// simple renders statements allowed in for-loop headers, without the
// trailing semicolon.
func (p *Printer) simple(s Stmt) {
	switch s := s.(type) {
	case *VarDecl:
		p.varDecl(s)
	case *LetDecl:
		p.binding("let", s.Name, s.Type, s.Init)
	case *ConstDecl:
		p.binding("const", s.Name, s.Type, s.Init)
	case *AssignStmt:
		if s.Left == nil {
			p.write("_")
		} else {
			p.expr(s.Left)
		}
		p.write(" ")
		p.write(s.Op.String())
		p.write(" ")
		p.expr(s.Right)
	case *IncDecStmt:
		p.expr(s.Target)
		p.write(s.Op.String())
	case *ExprStmt:
		p.expr(s.Expr)
	}
}

func (p *Printer) ifStmt(s *IfStmt) {
	p.write("if ")
	p.expr(s.Condition)
	p.write(" ")
	p.block(s.Body)
	switch e := s.Else.(type) {
	case *IfStmt:
		p.write(" else ")
		p.ifStmt(e)
	case *BlockStmt:
		p.write(" else ")
		p.block(e)
	}
}

func (p *Printer) exprList(es []Expr) {
	for i, e := range es {
		if i > 0 {
			p.write(", ")
		}
		p.expr(e)
	}
}

func (p *Printer) ident(id *Ident) {
	for _, seg := range id.Path {
		p.write(seg)
		p.write("::")
	}
	p.write(id.Name)
}

func (p *Printer) expr(e Expr) {
	switch e := e.(type) {
	case nil:
	case *Ident:
		p.ident(e)
	case *Literal:
		p.write(e.Value)
	case *BinaryExpr:
		p.expr(e.Left)
		p.write(" ")
		p.write(e.Op.String())
		p.write(" ")
		p.expr(e.Right)
	case *UnaryExpr:
		p.write(e.Op.String())
		if needsParens(e.Op, e.Operand) {
			p.write("(")
			p.expr(e.Operand)
			p.write(")")
			return
		}
		p.expr(e.Operand)
	case *ParenExpr:
		p.write("(")
		p.expr(e.Expr)
		p.write(")")
	case *CallExpr:
		p.ident(e.Func)
		if len(e.TemplateArgs) > 0 {
			p.write("<")
			for i, t := range e.TemplateArgs {
				if i > 0 {
					p.write(", ")
				}
				p.typ(t)
			}
			p.write(">")
		}
		p.write("(")
		p.exprList(e.Args)
		p.write(")")
	case *IndexExpr:
		p.expr(e.Expr)
		p.write("[")
		p.expr(e.Index)
		p.write("]")
	case *MemberExpr:
		p.expr(e.Expr)
		p.write(".")
		p.write(e.Member)
	case *ConstructExpr:
		p.typ(e.Type)
		p.write("(")
		p.exprList(e.Args)
		p.write(")")
	case *BitcastExpr:
		p.write("bitcast<")
		p.typ(e.Type)
		p.write(">(")
		p.expr(e.Expr)
		p.write(")")
	}
}

// needsParens reports whether a unary operand would fuse with its operator
// into a different token, as in "- -x" or "- -1".
func needsParens(op TokenKind, operand Expr) bool {
	if op != TokenMinus {
		return false
	}
	switch o := operand.(type) {
	case *UnaryExpr:
		return o.Op == TokenMinus
	case *Literal:
		return strings.HasPrefix(o.Value, "-")
	}
	return false
}
