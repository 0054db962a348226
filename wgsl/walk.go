package wgsl

// Inspect traverses the AST rooted at node in depth-first order. It calls
// f(node) for every node; when f returns false the children of that node
// are skipped. Attribute arguments, template arguments and types are
// visited as well.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || isNilNode(node) || !f(node) {
		return
	}

	switch n := node.(type) {
	case *FunctionDecl:
		inspectAttrs(n.Attributes, f)
		for _, tp := range n.TemplateParams {
			inspectType(tp.Type, f)
		}
		for _, param := range n.Params {
			inspectAttrs(param.Attributes, f)
			inspectType(param.Type, f)
		}
		inspectAttrs(n.ReturnAttrs, f)
		inspectType(n.ReturnType, f)
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	case *StructDecl:
		inspectAttrs(n.Attributes, f)
		for _, tp := range n.TemplateParams {
			inspectType(tp.Type, f)
		}
		for _, m := range n.Members {
			inspectAttrs(m.Attributes, f)
			inspectType(m.Type, f)
		}
	case *VarDecl:
		inspectAttrs(n.Attributes, f)
		inspectType(n.Type, f)
		inspectExpr(n.Init, f)
	case *ConstDecl:
		inspectAttrs(n.Attributes, f)
		inspectType(n.Type, f)
		inspectExpr(n.Init, f)
	case *OverrideDecl:
		inspectAttrs(n.Attributes, f)
		inspectType(n.Type, f)
		inspectExpr(n.Init, f)
	case *LetDecl:
		inspectAttrs(n.Attributes, f)
		inspectType(n.Type, f)
		inspectExpr(n.Init, f)
	case *AliasDecl:
		inspectAttrs(n.Attributes, f)
		inspectType(n.Type, f)
	case *ConstAssertDecl:
		inspectAttrs(n.Attributes, f)
		inspectExpr(n.Expr, f)

	// Types
	case *NamedType:
		for _, tp := range n.TypeParams {
			inspectType(tp, f)
		}
	case *ArrayType:
		inspectType(n.Element, f)
		inspectExpr(n.Size, f)
	case *BindingArrayType:
		inspectType(n.Element, f)
		inspectExpr(n.Size, f)
	case *PtrType:
		inspectType(n.PointeeType, f)
	case *ConstArg:
		inspectExpr(n.Value, f)

	// Statements
	case *BlockStmt:
		for _, s := range n.Statements {
			Inspect(s, f)
		}
	case *AttrStmt:
		inspectAttrs(n.Attributes, f)
		Inspect(n.Stmt, f)
	case *ReturnStmt:
		inspectExpr(n.Value, f)
	case *IfStmt:
		inspectExpr(n.Condition, f)
		Inspect(n.Body, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *ForStmt:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
		inspectExpr(n.Condition, f)
		if n.Update != nil {
			Inspect(n.Update, f)
		}
		Inspect(n.Body, f)
	case *WhileStmt:
		inspectExpr(n.Condition, f)
		Inspect(n.Body, f)
	case *LoopStmt:
		Inspect(n.Body, f)
		if n.Continuing != nil {
			Inspect(n.Continuing, f)
		}
		inspectExpr(n.BreakIf, f)
	case *AssignStmt:
		inspectExpr(n.Left, f)
		inspectExpr(n.Right, f)
	case *IncDecStmt:
		inspectExpr(n.Target, f)
	case *ExprStmt:
		inspectExpr(n.Expr, f)
	case *SwitchStmt:
		inspectExpr(n.Selector, f)
		for _, c := range n.Cases {
			for _, sel := range c.Selectors {
				inspectExpr(sel, f)
			}
			Inspect(c.Body, f)
		}

	// Expressions
	case *BinaryExpr:
		inspectExpr(n.Left, f)
		inspectExpr(n.Right, f)
	case *UnaryExpr:
		inspectExpr(n.Operand, f)
	case *ParenExpr:
		inspectExpr(n.Expr, f)
	case *CallExpr:
		Inspect(n.Func, f)
		for _, t := range n.TemplateArgs {
			inspectType(t, f)
		}
		for _, a := range n.Args {
			inspectExpr(a, f)
		}
	case *IndexExpr:
		inspectExpr(n.Expr, f)
		inspectExpr(n.Index, f)
	case *MemberExpr:
		inspectExpr(n.Expr, f)
	case *ConstructExpr:
		inspectType(n.Type, f)
		for _, a := range n.Args {
			inspectExpr(a, f)
		}
	case *BitcastExpr:
		inspectType(n.Type, f)
		inspectExpr(n.Expr, f)
	}
}

func inspectAttrs(attrs []Attribute, f func(Node) bool) {
	for _, a := range attrs {
		for _, arg := range a.Args {
			inspectExpr(arg, f)
		}
	}
}

func inspectType(t Type, f func(Node) bool) {
	if t != nil {
		Inspect(t, f)
	}
}

func inspectExpr(e Expr, f func(Node) bool) {
	if e != nil {
		Inspect(e, f)
	}
}

// isNilNode catches typed nil pointers stored in an interface.
func isNilNode(n Node) bool {
	switch n := n.(type) {
	case *BlockStmt:
		return n == nil
	case *Ident:
		return n == nil
	case *IfStmt:
		return n == nil
	}
	return false
}
