package interp

import (
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// flow is how control leaves a statement.
type flow uint8

const (
	flowNext flow = iota
	flowBreak
	flowContinue
	flowReturn
)

// discarded ends a fragment invocation from any call depth.
type discarded struct{}

func (t *thread) block(b *wgsl.BlockStmt) flow {
	if b == nil {
		return flowNext
	}
	t.push()
	defer t.pop()
	return t.stmts(b.Statements)
}

func (t *thread) stmts(list []wgsl.Stmt) flow {
	for _, s := range list {
		if f := t.exec(s); f != flowNext {
			return f
		}
	}
	return flowNext
}

func (t *thread) exec(s wgsl.Stmt) flow {
	t.step(s.Pos())
	switch s := s.(type) {
	case *wgsl.BlockStmt:
		return t.block(s)

	case *wgsl.AttrStmt:
		return t.exec(s.Stmt)

	case *wgsl.VarDecl:
		var typ ir.Type
		if s.Type != nil {
			typ = t.resolveType(s.Type)
		}
		var v Value
		switch {
		case s.Init == nil:
			v = Zero(typ)
		case typ == nil:
			v = concretize(t.eval(s.Init))
			typ = v.Type
		default:
			v = t.convertTo(s.Init.Pos(), t.eval(s.Init), typ)
		}
		t.declare(s.Name, &local{cell: &v, typ: typ, mutable: true})

	case *wgsl.LetDecl:
		v := t.eval(s.Init)
		if s.Type != nil {
			v = t.convertTo(s.Init.Pos(), v, t.resolveType(s.Type))
		} else {
			v = concretize(v)
		}
		t.declare(s.Name, &local{cell: &v, typ: v.Type})

	case *wgsl.ConstDecl:
		v := t.eval(s.Init)
		if s.Type != nil {
			v = t.convertTo(s.Init.Pos(), v, t.resolveType(s.Type))
		}
		t.declare(s.Name, &local{cell: &v, typ: v.Type})

	case *wgsl.ConstAssertDecl:
		if !t.eval(s.Expr).Bool {
			faultf(s.Span, FaultAssertion, "const assertion failed: %s", wgsl.FormatExpr(s.Expr))
		}

	case *wgsl.ReturnStmt:
		t.ret = Value{}
		if s.Value != nil {
			t.ret = t.eval(s.Value)
		}
		return flowReturn

	case *wgsl.IfStmt:
		if t.eval(s.Condition).Bool {
			return t.block(s.Body)
		}
		if s.Else != nil {
			return t.exec(s.Else)
		}

	case *wgsl.SwitchStmt:
		return t.switchStmt(s)

	case *wgsl.LoopStmt:
		return t.loop(s)

	case *wgsl.ForStmt:
		return t.forStmt(s)

	case *wgsl.WhileStmt:
		for {
			t.step(s.Span)
			if !t.eval(s.Condition).Bool {
				return flowNext
			}
			switch t.block(s.Body) {
			case flowReturn:
				return flowReturn
			case flowBreak:
				return flowNext
			}
		}

	case *wgsl.BreakStmt:
		return flowBreak

	case *wgsl.ContinueStmt:
		return flowContinue

	case *wgsl.DiscardStmt:
		panic(discarded{})

	case *wgsl.AssignStmt:
		t.assign(s)

	case *wgsl.IncDecStmt:
		r, ok := t.refOf(s.Target)
		if !ok {
			faultf(s.Span, FaultInvalidOperation, "cannot modify %s", wgsl.FormatExpr(s.Target))
		}
		op := wgsl.TokenPlus
		if s.Op == wgsl.TokenMinusMinus {
			op = wgsl.TokenMinus
		}
		t.store(s.Span, r, t.binary(s.Span, op, t.load(s.Span, r), AbstractInt(1)))

	case *wgsl.ExprStmt:
		t.eval(s.Expr)

	default:
		faultf(s.Pos(), FaultUnsupported, "unsupported statement %T", s)
	}
	return flowNext
}

var compoundOps = map[wgsl.TokenKind]wgsl.TokenKind{
	wgsl.TokenPlusEqual:           wgsl.TokenPlus,
	wgsl.TokenMinusEqual:          wgsl.TokenMinus,
	wgsl.TokenStarEqual:           wgsl.TokenStar,
	wgsl.TokenSlashEqual:          wgsl.TokenSlash,
	wgsl.TokenPercentEqual:        wgsl.TokenPercent,
	wgsl.TokenAmpEqual:            wgsl.TokenAmpersand,
	wgsl.TokenPipeEqual:           wgsl.TokenPipe,
	wgsl.TokenCaretEqual:          wgsl.TokenCaret,
	wgsl.TokenLessLessEqual:       wgsl.TokenLessLess,
	wgsl.TokenGreaterGreaterEqual: wgsl.TokenGreaterGreater,
}

func (t *thread) assign(s *wgsl.AssignStmt) {
	if s.Left == nil {
		t.eval(s.Right)
		return
	}
	r, ok := t.refOf(s.Left)
	if !ok {
		faultf(s.Span, FaultInvalidOperation, "cannot assign to %s", wgsl.FormatExpr(s.Left))
	}
	v := t.eval(s.Right)
	if s.Op != wgsl.TokenEqual {
		op, ok := compoundOps[s.Op]
		if !ok {
			faultf(s.Span, FaultUnsupported, "unknown assignment operator %s", s.Op)
		}
		v = t.binary(s.Span, op, t.load(s.Span, r), v)
	}
	t.store(s.Span, r, v)
}

func (t *thread) loop(s *wgsl.LoopStmt) flow {
	for {
		t.step(s.Span)
		t.push()
		f := flowNext
		if s.Body != nil {
			f = t.stmts(s.Body.Statements)
		}
		switch f {
		case flowReturn:
			t.pop()
			return flowReturn
		case flowBreak:
			t.pop()
			return flowNext
		}
		// continuing and break-if see the body's declarations.
		stop := false
		if s.Continuing != nil {
			t.push()
			if t.stmts(s.Continuing.Statements) == flowReturn {
				t.pop()
				t.pop()
				return flowReturn
			}
			stop = s.BreakIf != nil && t.eval(s.BreakIf).Bool
			t.pop()
		} else if s.BreakIf != nil {
			stop = t.eval(s.BreakIf).Bool
		}
		t.pop()
		if stop {
			return flowNext
		}
	}
}

func (t *thread) forStmt(s *wgsl.ForStmt) flow {
	t.push()
	defer t.pop()
	if s.Init != nil {
		t.exec(s.Init)
	}
	for {
		t.step(s.Span)
		if s.Condition != nil && !t.eval(s.Condition).Bool {
			return flowNext
		}
		switch t.block(s.Body) {
		case flowReturn:
			return flowReturn
		case flowBreak:
			return flowNext
		}
		if s.Update != nil {
			t.exec(s.Update)
		}
	}
}

func (t *thread) switchStmt(s *wgsl.SwitchStmt) flow {
	sel := t.eval(s.Selector)
	var fallback *wgsl.SwitchCaseClause
	for _, c := range s.Cases {
		if c.IsDefault {
			fallback = c
		}
		for _, e := range c.Selectors {
			a, b := unifyValues(sel, t.eval(e))
			if a.Int == b.Int {
				return t.caseBody(c)
			}
		}
	}
	if fallback != nil {
		return t.caseBody(fallback)
	}
	return flowNext
}

func (t *thread) caseBody(c *wgsl.SwitchCaseClause) flow {
	f := t.block(c.Body)
	if f == flowBreak {
		return flowNext
	}
	return f
}
