package interp

import (
	"strings"

	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// eval evaluates an expression, applying the load rule to references.
func (t *thread) eval(e wgsl.Expr) Value {
	switch e := e.(type) {
	case *wgsl.Literal:
		return literal(e)

	case *wgsl.ParenExpr:
		return t.eval(e.Expr)

	case *wgsl.Ident:
		return t.ident(e)

	case *wgsl.UnaryExpr:
		switch e.Op {
		case wgsl.TokenAmpersand:
			r, ok := t.refOf(e.Operand)
			if !ok {
				faultf(e.Span, FaultInvalidOperation, "cannot take the address of %s", wgsl.FormatExpr(e.Operand))
			}
			return pointerTo(r)
		case wgsl.TokenStar:
			return t.load(e.Span, t.deref(e.Span, t.eval(e.Operand)))
		}
		return t.unary(e.Span, e.Op, t.eval(e.Operand))

	case *wgsl.BinaryExpr:
		switch e.Op {
		case wgsl.TokenAmpAmp:
			if !t.eval(e.Left).Bool {
				return Bool(false)
			}
			return Bool(t.eval(e.Right).Bool)
		case wgsl.TokenPipePipe:
			if t.eval(e.Left).Bool {
				return Bool(true)
			}
			return Bool(t.eval(e.Right).Bool)
		}
		l := t.eval(e.Left)
		return t.binary(e.Span, e.Op, l, t.eval(e.Right))

	case *wgsl.CallExpr:
		return t.callExpr(e)

	case *wgsl.ConstructExpr:
		args := t.args(e.Args)
		return t.construct(e.Span, t.constructType(e, args), args)

	case *wgsl.BitcastExpr:
		return bitcast(e.Span, t.eval(e.Expr), t.resolveType(e.Type))

	case *wgsl.IndexExpr:
		if base, ok := t.compositeRef(e.Expr); ok {
			return t.load(e.Span, t.indexRef(e.Span, base, t.eval(e.Index)))
		}
		base := t.eval(e.Expr)
		i := t.index(e.Span, t.eval(e.Index), len(base.Elems), base.Type)
		return base.Elems[i]

	case *wgsl.MemberExpr:
		if base, ok := t.compositeRef(e.Expr); ok {
			if r, ok := t.memberRef(e, base); ok {
				return t.load(e.Span, r)
			}
			return t.member(e, t.load(e.Span, base))
		}
		return t.member(e, t.eval(e.Expr))
	}
	faultf(e.Pos(), FaultUnsupported, "cannot evaluate %s", wgsl.FormatExpr(e))
	return Value{}
}

func (t *thread) args(es []wgsl.Expr) []Value {
	out := make([]Value, len(es))
	for i, a := range es {
		out[i] = t.eval(a)
	}
	return out
}

func literal(e *wgsl.Literal) Value {
	switch e.Kind {
	case wgsl.TokenTrue:
		return Bool(true)
	case wgsl.TokenFalse:
		return Bool(false)
	case wgsl.TokenIntLiteral:
		v, typ, err := ir.ParseIntLiteral(e.Value)
		if err != nil {
			faultf(e.Span, FaultInvalidArgument, "%s", err)
		}
		return Value{Type: typ, Int: v}
	}
	v, typ, err := ir.ParseFloatLiteral(e.Value)
	if err != nil {
		faultf(e.Span, FaultInvalidArgument, "%s", err)
	}
	return floatValue(typ, v)
}

func (t *thread) ident(e *wgsl.Ident) Value {
	if e.Ref == wgsl.NoDecl {
		l, ok := t.lookup(e.Name)
		if !ok {
			if t.constant() {
				faultf(e.Span, FaultNotConstant, "%s is not a constant", e.Name)
			}
			faultf(e.Span, FaultUnresolved, "unknown identifier %s", e.Name)
		}
		if l.mutable {
			return l.cell.Clone()
		}
		return *l.cell
	}
	d := t.m.module.Decl(e.Ref)
	if d == nil {
		faultf(e.Span, FaultUnresolved, "unknown declaration %s", e.Name)
	}
	switch d.Kind {
	case ir.KindConst:
		return t.m.declValue(d, e.Span)
	case ir.KindOverride:
		if t.mode == modeConst {
			faultf(e.Span, FaultNotConstant, "override %s is not a constant", d.ShortName)
		}
		return t.m.declValue(d, e.Span)
	case ir.KindVar:
		return t.load(e.Span, t.globalRef(d, e.Span))
	}
	faultf(e.Span, FaultTypeMismatch, "%s %s is not a value", d.Kind, d.ShortName)
	return Value{}
}

// refOf returns the memory location e designates. It reports false,
// without evaluating anything, when e is not a reference.
func (t *thread) refOf(e wgsl.Expr) (*Ref, bool) {
	switch e := e.(type) {
	case *wgsl.ParenExpr:
		return t.refOf(e.Expr)
	case *wgsl.Ident:
		if e.Ref != wgsl.NoDecl {
			d := t.m.module.Decl(e.Ref)
			if d == nil || d.Kind != ir.KindVar {
				return nil, false
			}
			return t.globalRef(d, e.Span), true
		}
		l, ok := t.lookup(e.Name)
		if !ok || !l.mutable {
			return nil, false
		}
		return &Ref{root: l.cell, Type: l.typ, Space: ir.SpaceFunction, Access: ir.AccessReadWrite}, true
	case *wgsl.UnaryExpr:
		if e.Op == wgsl.TokenStar {
			return t.deref(e.Span, t.eval(e.Operand)), true
		}
	case *wgsl.IndexExpr:
		base, ok := t.compositeRef(e.Expr)
		if !ok {
			return nil, false
		}
		return t.indexRef(e.Span, base, t.eval(e.Index)), true
	case *wgsl.MemberExpr:
		if !t.isReference(e.Expr) {
			return nil, false
		}
		base, _ := t.compositeRef(e.Expr)
		r, ok := t.memberRef(e, base)
		if !ok {
			faultf(e.Span, FaultInvalidOperation, "%s is not a reference", wgsl.FormatExpr(e))
		}
		return r, true
	}
	return nil, false
}

// isReference reports, without evaluating, whether e designates memory or
// is a pointer that composite access may go through.
func (t *thread) isReference(e wgsl.Expr) bool {
	switch e := e.(type) {
	case *wgsl.ParenExpr:
		return t.isReference(e.Expr)
	case *wgsl.Ident:
		if e.Ref != wgsl.NoDecl {
			d := t.m.module.Decl(e.Ref)
			return d != nil && d.Kind == ir.KindVar
		}
		l, ok := t.lookup(e.Name)
		if !ok {
			return false
		}
		_, isPtr := l.cell.Type.(ir.PointerType)
		return l.mutable || isPtr
	case *wgsl.UnaryExpr:
		return e.Op == wgsl.TokenStar
	case *wgsl.IndexExpr:
		return t.isReference(e.Expr)
	case *wgsl.MemberExpr:
		if !t.isReference(e.Expr) {
			return false
		}
		// Multi-component swizzles produce values.
		return len(e.Member) == 1 || !isSwizzle(e.Member)
	}
	return false
}

func isSwizzle(s string) bool {
	_, xyzw := ir.SwizzleIndices(s, 4)
	return xyzw
}

// compositeRef returns the memory a composite access goes through: the
// reference e designates, or the target of pointer e.
func (t *thread) compositeRef(e wgsl.Expr) (*Ref, bool) {
	if !t.isReference(e) {
		return nil, false
	}
	if r, ok := t.refOf(e); ok {
		return r, true
	}
	return t.deref(e.Pos(), t.eval(e)), true
}

func (t *thread) deref(span wgsl.Span, p Value) *Ref {
	if p.Ref == nil {
		faultf(span, FaultTypeMismatch, "cannot dereference a value of type %s", ir.TypeName(p.Type))
	}
	return p.Ref
}

// index checks an index value against a length.
func (t *thread) index(span wgsl.Span, idx Value, n int, of ir.Type) int {
	s, ok := idx.Scalar()
	if !ok || !s.IsInteger() {
		faultf(span, FaultTypeMismatch, "index must be an integer, found %s", ir.TypeName(idx.Type))
	}
	if idx.Int < 0 || idx.Int >= int64(n) {
		faultf(span, FaultOutOfBounds, "index %d is out of bounds for %s of length %d", idx.Int, ir.TypeName(of), n)
	}
	return int(idx.Int)
}

func (t *thread) indexRef(span wgsl.Span, base *Ref, idx Value) *Ref {
	target := base.target()
	if target.Elems == nil {
		faultf(span, FaultTypeMismatch, "cannot index a value of type %s", ir.TypeName(base.Type))
	}
	i := t.index(span, idx, len(target.Elems), base.Type)
	return base.at(i, target.Elems[i].Type)
}

// memberRef designates a struct member or a single vector component. It
// reports false for multi-component swizzles.
func (t *thread) memberRef(e *wgsl.MemberExpr, base *Ref) (*Ref, bool) {
	target := base.target()
	switch bt := target.Type.(type) {
	case *ir.StructType:
		i := bt.Member(e.Member)
		if i < 0 {
			faultf(e.Span, FaultUnresolved, "%s has no member %s", bt.Name, e.Member)
		}
		return base.at(i, bt.Members[i].Type), true
	case ir.VectorType:
		idx, ok := ir.SwizzleIndices(e.Member, int(bt.Size))
		if !ok {
			faultf(e.Span, FaultUnresolved, "invalid swizzle %s on %s", e.Member, bt)
		}
		if len(idx) == 1 {
			return base.at(idx[0], bt.Scalar), true
		}
		return nil, false
	}
	faultf(e.Span, FaultTypeMismatch, "%s has no members", ir.TypeName(target.Type))
	return nil, false
}

// member extracts a struct member or swizzle from a value.
func (t *thread) member(e *wgsl.MemberExpr, v Value) Value {
	switch vt := v.Type.(type) {
	case *ir.StructType:
		i := vt.Member(e.Member)
		if i < 0 {
			faultf(e.Span, FaultUnresolved, "%s has no member %s", vt.Name, e.Member)
		}
		return v.Elems[i]
	case ir.VectorType:
		idx, ok := ir.SwizzleIndices(e.Member, int(vt.Size))
		if !ok {
			faultf(e.Span, FaultUnresolved, "invalid swizzle %s on %s", e.Member, vt)
		}
		if len(idx) == 1 {
			return v.Elems[idx[0]]
		}
		out := Value{Type: ir.VectorType{Size: ir.VectorSize(len(idx)), Scalar: vt.Scalar}, Elems: make([]Value, len(idx))} //nolint:gosec // at most 4
		for i, j := range idx {
			out.Elems[i] = v.Elems[j]
		}
		return out
	case ir.PointerType:
		return t.member(e, t.load(e.Span, v.Ref))
	}
	faultf(e.Span, FaultTypeMismatch, "%s has no members", ir.TypeName(v.Type))
	return Value{}
}

func (t *thread) callExpr(e *wgsl.CallExpr) Value {
	if e.Func.Ref != wgsl.NoDecl {
		d := t.m.module.Decl(e.Func.Ref)
		if d == nil {
			faultf(e.Span, FaultUnresolved, "unknown declaration %s", e.Func.Name)
		}
		switch n := d.Node.(type) {
		case *wgsl.FunctionDecl:
			return t.call(e.Span, d, n, t.args(e.Args))
		case *wgsl.StructDecl:
			st, err := t.m.types.Struct(d.ID)
			if err != nil {
				faultf(e.Span, FaultUnresolved, "%s", err)
			}
			return t.construct(e.Span, st, t.args(e.Args))
		case *wgsl.AliasDecl:
			return t.construct(e.Span, t.resolveType(n.Type), t.args(e.Args))
		}
		faultf(e.Span, FaultTypeMismatch, "%s is not callable", d.ShortName)
	}
	if b, ok := ir.LookupBuiltin(e.Func.Name); ok && !e.Func.Qualified() {
		return t.builtin(e, b)
	}
	if typ, ok := ir.Predeclared(e.Func.Name, nil, nil); ok && !e.Func.Qualified() {
		return t.construct(e.Span, typ, t.args(e.Args))
	}
	faultf(e.Span, FaultUnresolved, "unknown function %s", e.Func.Name)
	return Value{}
}

// call runs a user function with already evaluated arguments.
func (t *thread) call(span wgsl.Span, d *ir.Decl, fn *wgsl.FunctionDecl, args []Value) Value {
	if t.constant() {
		faultf(span, FaultNotConstant, "call of %s is not a constant expression", d.ShortName)
	}
	if t.depth >= maxCallDepth {
		faultf(span, FaultStackOverflow, "call depth exceeds %d in %s", maxCallDepth, d.ShortName)
	}
	if len(args) != len(fn.Params) {
		faultf(span, FaultTypeMismatch, "%s expects %d arguments, got %d", d.ShortName, len(fn.Params), len(args))
	}
	saved := t.scopes
	t.scopes = nil
	t.depth++
	defer func() {
		t.scopes = saved
		t.depth--
	}()

	t.push()
	for i, p := range fn.Params {
		v := t.convertTo(span, args[i], t.resolveType(p.Type))
		t.declare(p.Name, &local{cell: &v, typ: v.Type})
	}
	t.ret = Value{}
	if t.block(fn.Body) == flowReturn && fn.ReturnType != nil {
		return t.convertTo(span, t.ret, t.resolveType(fn.ReturnType))
	}
	return t.ret
}

// constructType returns the type a constructor builds, inferring the
// component type of vec3(...), mat2x2(...) and array(...) from the
// arguments.
func (t *thread) constructType(e *wgsl.ConstructExpr, args []Value) ir.Type {
	nt, ok := e.Type.(*wgsl.NamedType)
	if !ok || len(nt.TypeParams) > 0 || nt.Ref != wgsl.NoDecl {
		return t.resolveType(e.Type)
	}
	if typ, ok := ir.Predeclared(nt.Name, nil, nil); ok {
		return typ
	}
	if len(args) == 0 {
		faultf(e.Span, FaultTypeMismatch, "cannot infer the type of %s() without arguments", nt.Name)
	}
	if nt.Name == "array" {
		base := unifyAll(args)[0].Type
		return ir.ArrayType{Base: base, Count: uint32(len(args)), Stride: ir.ArrayStride(base)} //nolint:gosec // argument count
	}
	var comps []Value
	for _, a := range args {
		switch {
		case a.Elems == nil:
			comps = append(comps, a)
		case a.Elems[0].Elems == nil:
			comps = append(comps, a.Elems...)
		default:
			for _, col := range a.Elems {
				comps = append(comps, col.Elems...)
			}
		}
	}
	s, _ := unifyAll(comps)[0].Scalar()
	if s.Kind == ir.ScalarAbstractInt && strings.HasPrefix(nt.Name, "mat") {
		s = ir.AbstractFloat
	}
	typ, ok := ir.Predeclared(nt.Name, []ir.Type{s}, nil)
	if !ok {
		faultf(e.Span, FaultTypeMismatch, "cannot construct %s from %s", nt.Name, s)
	}
	return typ
}

// construct builds a value of type typ from constructor arguments.
func (t *thread) construct(span wgsl.Span, typ ir.Type, args []Value) Value {
	if len(args) == 0 {
		return Zero(typ)
	}
	switch tt := typ.(type) {
	case ir.ScalarType:
		return castScalar(span, args[0], tt)

	case ir.VectorType:
		if len(args) == 1 {
			if args[0].Elems == nil {
				return splat(castScalar(span, args[0], tt.Scalar), tt)
			}
			if v, ok := args[0].Type.(ir.VectorType); ok && v.Size == tt.Size {
				return castValue(span, args[0], tt)
			}
		}
		var comps []Value
		for _, a := range args {
			if a.Elems != nil {
				comps = append(comps, a.Elems...)
			} else {
				comps = append(comps, a)
			}
		}
		if len(comps) != int(tt.Size) {
			faultf(span, FaultTypeMismatch, "%s needs %d components, got %d", tt, tt.Size, len(comps))
		}
		out := Value{Type: tt, Elems: make([]Value, len(comps))}
		for i, c := range comps {
			out.Elems[i] = castScalar(span, c, tt.Scalar)
		}
		return out

	case ir.MatrixType:
		if len(args) == 1 {
			if _, ok := args[0].Type.(ir.MatrixType); ok {
				return castValue(span, args[0], tt)
			}
		}
		col := tt.Column()
		out := Value{Type: tt, Elems: make([]Value, tt.Columns)}
		switch {
		case len(args) == int(tt.Columns) && args[0].Elems != nil:
			for i, a := range args {
				out.Elems[i] = castValue(span, a, col)
			}
		case len(args) == int(tt.Columns)*int(tt.Rows):
			for i := range out.Elems {
				out.Elems[i] = t.construct(span, col, args[i*int(tt.Rows):(i+1)*int(tt.Rows)])
			}
		default:
			faultf(span, FaultTypeMismatch, "%s cannot be built from %d arguments", tt, len(args))
		}
		return out

	case ir.ArrayType:
		if tt.RuntimeSized() || len(args) != int(tt.Count) {
			faultf(span, FaultTypeMismatch, "%s needs %d elements, got %d", tt, tt.Count, len(args))
		}
		out := Value{Type: tt, Elems: make([]Value, len(args))}
		for i, a := range args {
			out.Elems[i] = t.convertTo(span, a, tt.Base)
		}
		return out

	case *ir.StructType:
		if len(args) != len(tt.Members) {
			faultf(span, FaultTypeMismatch, "%s needs %d members, got %d", tt.Name, len(tt.Members), len(args))
		}
		out := Value{Type: tt, Elems: make([]Value, len(args))}
		for i, a := range args {
			out.Elems[i] = t.convertTo(span, a, tt.Members[i].Type)
		}
		return out
	}
	faultf(span, FaultTypeMismatch, "values of type %s cannot be constructed", ir.TypeName(typ))
	return Value{}
}
