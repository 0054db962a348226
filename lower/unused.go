package lower

import (
	"strings"

	"github.com/gogpu/wesl/wgsl"
)

// local is a function-scope declaration tracked for use.
type local struct {
	name string
	span wgsl.Span
	used bool
}

// usage tracks locals through nested scopes. Identifiers that link to a
// module declaration never count as uses of a local.
type usage struct {
	scopes [][]*local
	all    []*local
}

func (u *usage) push() { u.scopes = append(u.scopes, nil) }
func (u *usage) pop()  { u.scopes = u.scopes[:len(u.scopes)-1] }

func (u *usage) declare(name string, span wgsl.Span) {
	l := &local{name: name, span: span}
	top := len(u.scopes) - 1
	u.scopes[top] = append(u.scopes[top], l)
	u.all = append(u.all, l)
}

func (u *usage) use(name string) {
	for i := len(u.scopes) - 1; i >= 0; i-- {
		s := u.scopes[i]
		for j := len(s) - 1; j >= 0; j-- {
			if s[j].name == name {
				s[j].used = true
				return
			}
		}
	}
}

// checkUnused warns about function-scope let, var and const declarations
// that are never read. Names starting with "_" are exempt.
func (l *lowerer) checkUnused(fnName string, fn *wgsl.FunctionDecl) {
	if fn.Body == nil {
		return
	}
	u := &usage{}
	u.push()
	u.block(fn.Body)
	u.pop()
	for _, loc := range u.all {
		if !loc.used && !strings.HasPrefix(loc.name, "_") {
			l.warnings.Warningf(loc.span, "unused variable %s in function %s", loc.name, fnName)
		}
	}
}

func (u *usage) block(b *wgsl.BlockStmt) {
	if b == nil {
		return
	}
	u.push()
	u.stmts(b.Statements)
	u.pop()
}

func (u *usage) stmts(list []wgsl.Stmt) {
	for _, s := range list {
		u.stmt(s)
	}
}

func (u *usage) stmt(s wgsl.Stmt) {
	switch s := s.(type) {
	case *wgsl.VarDecl:
		u.expr(s.Init)
		u.declare(s.Name, s.Span)
	case *wgsl.LetDecl:
		u.expr(s.Init)
		u.declare(s.Name, s.Span)
	case *wgsl.ConstDecl:
		u.expr(s.Init)
		u.declare(s.Name, s.Span)
	case *wgsl.AttrStmt:
		u.stmt(s.Stmt)
	case *wgsl.BlockStmt:
		u.block(s)
	case *wgsl.IfStmt:
		u.expr(s.Condition)
		u.block(s.Body)
		if s.Else != nil {
			u.stmt(s.Else)
		}
	case *wgsl.ForStmt:
		u.push()
		if s.Init != nil {
			u.stmt(s.Init)
		}
		u.expr(s.Condition)
		if s.Update != nil {
			u.stmt(s.Update)
		}
		u.block(s.Body)
		u.pop()
	case *wgsl.WhileStmt:
		u.expr(s.Condition)
		u.block(s.Body)
	case *wgsl.LoopStmt:
		// The continuing block sees the body's locals.
		u.push()
		if s.Body != nil {
			u.stmts(s.Body.Statements)
		}
		u.block(s.Continuing)
		u.expr(s.BreakIf)
		u.pop()
	case *wgsl.SwitchStmt:
		u.expr(s.Selector)
		for _, c := range s.Cases {
			for _, sel := range c.Selectors {
				u.expr(sel)
			}
			u.block(c.Body)
		}
	case *wgsl.ReturnStmt:
		u.expr(s.Value)
	case *wgsl.AssignStmt:
		// Plain assignment writes its target; the target's base is still
		// a use when it is indexed or a compound operator reads it.
		if id, ok := s.Left.(*wgsl.Ident); !ok || id.Ref != wgsl.NoDecl || s.Op != wgsl.TokenEqual {
			u.expr(s.Left)
		}
		u.expr(s.Right)
	case *wgsl.IncDecStmt:
		u.expr(s.Target)
	case *wgsl.ExprStmt:
		u.expr(s.Expr)
	case *wgsl.ConstAssertDecl:
		u.expr(s.Expr)
	}
}

func (u *usage) expr(e wgsl.Expr) {
	if e == nil {
		return
	}
	wgsl.Inspect(e, func(n wgsl.Node) bool {
		if id, ok := n.(*wgsl.Ident); ok && id.Ref == wgsl.NoDecl && !id.TemplateParam && len(id.Path) == 0 {
			u.use(id.Name)
		}
		return true
	})
}
