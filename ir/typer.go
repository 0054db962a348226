package ir

import (
	"fmt"
	"strings"

	"github.com/gogpu/wesl/wgsl"
)

// LocalKind classifies function-scope names.
type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
	LocalParam
)

// Local is a function-scope name.
type Local struct {
	Name string
	Kind LocalKind
	Type Type
	Span wgsl.Span
}

// Scope is a lexical scope of function-local names.
type Scope struct {
	parent *Scope
	names  map[string]*Local
}

// NewScope opens a scope nested in parent, which may be nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: make(map[string]*Local)}
}

// Declare adds a name to the scope, returning the previous declaration in
// the same scope if there was one.
func (s *Scope) Declare(l *Local) *Local {
	prev := s.names[l.Name]
	s.names[l.Name] = l
	return prev
}

// Lookup finds a name in the scope chain.
func (s *Scope) Lookup(name string) (*Local, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if l, ok := sc.names[name]; ok {
			return l, true
		}
	}
	return nil, false
}

// Reference describes a memory location an expression designates.
type Reference struct {
	Type   Type
	Space  AddressSpace
	Access AccessMode
}

// Typer computes expression types over a linked module. It is deliberately
// partial: whenever an operand type cannot be determined it yields nil and
// reports nothing, so only definite mismatches become diagnostics.
type Typer struct {
	module    *Module
	types     *TypeResolver
	declTypes map[wgsl.DeclID]Type
	report    func(span wgsl.Span, format string, args ...any)
}

// NewTyper creates a typer; report receives type errors and may be nil.
func NewTyper(m *Module, types *TypeResolver, report func(span wgsl.Span, format string, args ...any)) *Typer {
	if report == nil {
		report = func(wgsl.Span, string, ...any) {}
	}
	return &Typer{
		module:    m,
		types:     types,
		declTypes: make(map[wgsl.DeclID]Type),
		report:    report,
	}
}

// resolveType resolves an AST type, reporting failures.
func (t *Typer) resolveType(at wgsl.Type) Type {
	typ, err := t.types.Resolve(at)
	if err != nil {
		t.reportTypeError(at, err)
		return nil
	}
	return typ
}

func (t *Typer) reportTypeError(at wgsl.Type, err error) {
	if te, ok := err.(*TypeError); ok && te.Span.End.Offset > 0 {
		t.report(te.Span, "%s", te.Message)
		return
	}
	var span wgsl.Span
	if at != nil {
		span = at.Pos()
	}
	t.report(span, "%s", err)
}

// DeclType returns the type of a module-scope value declaration, or nil.
func (t *Typer) DeclType(d *Decl) Type {
	if typ, ok := t.declTypes[d.ID]; ok {
		return typ
	}
	t.declTypes[d.ID] = nil // guards against self-referential initializers

	var typ Type
	var declared wgsl.Type
	var init wgsl.Expr
	switch n := d.Node.(type) {
	case *wgsl.VarDecl:
		declared, init = n.Type, n.Init
	case *wgsl.ConstDecl:
		declared, init = n.Type, n.Init
	case *wgsl.OverrideDecl:
		declared, init = n.Type, n.Init
	default:
		return nil
	}
	if declared != nil {
		if r, err := t.types.Resolve(declared); err == nil {
			typ = r
		}
	} else if init != nil {
		typ = t.ExprType(init, nil)
		if d.Kind != KindConst {
			typ = Concretize(typ)
		}
	}
	t.declTypes[d.ID] = typ
	return typ
}

// ExprType returns the type an expression evaluates to after the load
// rule is applied, or nil when it cannot be determined.
func (t *Typer) ExprType(e wgsl.Expr, s *Scope) Type {
	switch e := e.(type) {
	case *wgsl.Literal:
		return literalType(e)

	case *wgsl.Ident:
		return t.identType(e, s)

	case *wgsl.ParenExpr:
		return t.ExprType(e.Expr, s)

	case *wgsl.UnaryExpr:
		return t.unaryType(e, s)

	case *wgsl.BinaryExpr:
		return t.binaryType(e, s)

	case *wgsl.CallExpr:
		return t.callType(e, s)

	case *wgsl.ConstructExpr:
		return t.constructType(e, s)

	case *wgsl.BitcastExpr:
		t.ExprType(e.Expr, s)
		return t.resolveType(e.Type)

	case *wgsl.IndexExpr:
		base := t.ExprType(e.Expr, s)
		idx := t.ExprType(e.Index, s)
		if sc, ok := idx.(ScalarType); ok && !sc.IsInteger() {
			t.report(e.Index.Pos(), "index must be an integer, found %s", sc)
		}
		return indexType(base)

	case *wgsl.MemberExpr:
		return t.memberType(e, t.ExprType(e.Expr, s))
	}
	return nil
}

func literalType(e *wgsl.Literal) Type {
	switch e.Kind {
	case wgsl.TokenTrue, wgsl.TokenFalse:
		return Bool
	case wgsl.TokenIntLiteral:
		_, typ, err := ParseIntLiteral(e.Value)
		if err != nil {
			return nil
		}
		return typ
	case wgsl.TokenFloatLiteral:
		_, typ, err := ParseFloatLiteral(e.Value)
		if err != nil {
			return nil
		}
		return typ
	}
	return nil
}

func (t *Typer) identType(e *wgsl.Ident, s *Scope) Type {
	if e.Ref == wgsl.NoDecl {
		if l, ok := s.Lookup(e.Name); ok {
			return l.Type
		}
		return nil
	}
	d := t.module.Decl(e.Ref)
	if d == nil {
		return nil
	}
	return t.DeclType(d)
}

func indexType(base Type) Type {
	switch b := base.(type) {
	case ArrayType:
		return b.Base
	case VectorType:
		return b.Scalar
	case MatrixType:
		return b.Column()
	case PointerType:
		return indexType(b.Base)
	}
	return nil
}

// Ref returns the memory location designated by e, if e is a reference.
func (t *Typer) Ref(e wgsl.Expr, s *Scope) (Reference, bool) {
	switch e := e.(type) {
	case *wgsl.ParenExpr:
		return t.Ref(e.Expr, s)

	case *wgsl.Ident:
		if e.Ref == wgsl.NoDecl {
			l, ok := s.Lookup(e.Name)
			if !ok || l.Kind != LocalVar {
				return Reference{}, false
			}
			return Reference{Type: l.Type, Space: SpaceFunction, Access: AccessReadWrite}, true
		}
		d := t.module.Decl(e.Ref)
		if d == nil {
			return Reference{}, false
		}
		v, ok := d.Node.(*wgsl.VarDecl)
		if !ok {
			return Reference{}, false
		}
		space, access := VarSpace(v)
		return Reference{Type: t.DeclType(d), Space: space, Access: access}, true

	case *wgsl.UnaryExpr:
		if e.Op != wgsl.TokenStar {
			return Reference{}, false
		}
		p, ok := t.ExprType(e.Operand, s).(PointerType)
		if !ok {
			return Reference{}, false
		}
		return Reference{Type: p.Base, Space: p.Space, Access: p.Access}, true

	case *wgsl.IndexExpr:
		ref, ok := t.Ref(e.Expr, s)
		if !ok {
			return Reference{}, false
		}
		ref.Type = indexType(ref.Type)
		return ref, true

	case *wgsl.MemberExpr:
		ref, ok := t.Ref(e.Expr, s)
		if !ok {
			return Reference{}, false
		}
		if _, isVec := ref.Type.(VectorType); isVec && len(e.Member) > 1 {
			// multi-component swizzles are not references
			return Reference{}, false
		}
		ref.Type = t.memberType(e, ref.Type)
		return ref, true
	}
	return Reference{}, false
}

// VarSpace returns the effective address space and access mode of a var.
func VarSpace(v *wgsl.VarDecl) (AddressSpace, AccessMode) {
	space := SpaceFunction
	if v.AddressSpace != "" {
		if sp, ok := ParseAddressSpace(v.AddressSpace); ok {
			space = sp
		}
	}
	access := AccessReadWrite
	if space == SpaceUniform || space == SpaceStorage {
		access = AccessRead
	}
	if v.AccessMode != "" {
		if a, ok := ParseAccessMode(v.AccessMode); ok {
			access = a
		}
	}
	return space, access
}

func (t *Typer) unaryType(e *wgsl.UnaryExpr, s *Scope) Type {
	switch e.Op {
	case wgsl.TokenAmpersand:
		ref, ok := t.Ref(e.Operand, s)
		if !ok {
			t.report(e.Span, "cannot take the address of %s", wgsl.FormatExpr(e.Operand))
			return nil
		}
		if ref.Type == nil {
			return nil
		}
		return PointerType{Base: ref.Type, Space: ref.Space, Access: ref.Access}
	case wgsl.TokenStar:
		operand := t.ExprType(e.Operand, s)
		if operand == nil {
			return nil
		}
		p, ok := operand.(PointerType)
		if !ok {
			t.report(e.Span, "cannot dereference a value of type %s", operand)
			return nil
		}
		return p.Base
	}

	operand := t.ExprType(e.Operand, s)
	if operand == nil {
		return nil
	}
	sc, ok := Scalar(operand)
	if !ok {
		t.report(e.Span, "invalid operand to unary %s: %s", e.Op, operand)
		return nil
	}
	switch e.Op {
	case wgsl.TokenBang:
		if sc.Kind != ScalarBool {
			t.report(e.Span, "operator ! expects bool, found %s", operand)
			return nil
		}
	case wgsl.TokenMinus:
		if sc.Kind == ScalarBool || sc.Kind == ScalarUint {
			t.report(e.Span, "cannot negate a value of type %s", operand)
			return nil
		}
	case wgsl.TokenTilde:
		if !sc.IsInteger() {
			t.report(e.Span, "operator ~ expects an integer, found %s", operand)
			return nil
		}
	}
	return operand
}

func (t *Typer) binaryType(e *wgsl.BinaryExpr, s *Scope) Type {
	l := t.ExprType(e.Left, s)
	r := t.ExprType(e.Right, s)
	if l == nil || r == nil {
		return nil
	}
	res, ok := BinaryResult(e.Op, l, r)
	if !ok {
		t.report(e.Span, "invalid operands to binary %s: %s and %s", e.Op, l, r)
		return nil
	}
	return res
}

// BinaryResult computes the result type of a binary operator.
func BinaryResult(op wgsl.TokenKind, l, r Type) (Type, bool) {
	switch op {
	case wgsl.TokenAmpAmp, wgsl.TokenPipePipe:
		if l == Bool && r == Bool {
			return Bool, true
		}
		return nil, false

	case wgsl.TokenLessLess, wgsl.TokenGreaterGreater:
		ls, okL := Scalar(l)
		rs, okR := Scalar(r)
		if !okL || !okR || !ls.IsInteger() || !rs.IsInteger() {
			return nil, false
		}
		return l, true

	case wgsl.TokenEqualEqual, wgsl.TokenBangEqual, wgsl.TokenLess,
		wgsl.TokenLessEqual, wgsl.TokenGreater, wgsl.TokenGreaterEqual:
		u, ok := Unify(l, r)
		if !ok {
			return nil, false
		}
		switch u := u.(type) {
		case ScalarType:
			return Bool, true
		case VectorType:
			return VectorType{Size: u.Size, Scalar: Bool}, true
		}
		return nil, false

	case wgsl.TokenStar:
		if res, ok := matrixProduct(l, r); ok {
			return res, true
		}
	}

	// Arithmetic and bitwise operators, with scalar-vector splatting.
	if u, ok := Unify(l, r); ok {
		if _, isStruct := u.(*StructType); isStruct {
			return nil, false
		}
		if _, isArr := u.(ArrayType); isArr {
			return nil, false
		}
		sc, _ := Scalar(u)
		if sc.Kind == ScalarBool && op != wgsl.TokenAmpersand && op != wgsl.TokenPipe && op != wgsl.TokenCaret {
			return nil, false
		}
		if _, isMat := u.(MatrixType); isMat && op != wgsl.TokenPlus && op != wgsl.TokenMinus {
			return nil, false
		}
		return u, true
	}
	if v, ok := l.(VectorType); ok {
		if s, ok := r.(ScalarType); ok && ConvertibleScalar(s, v.Scalar) {
			return v, true
		}
	}
	if v, ok := r.(VectorType); ok {
		if s, ok := l.(ScalarType); ok && ConvertibleScalar(s, v.Scalar) {
			return v, true
		}
	}
	return nil, false
}

func matrixProduct(l, r Type) (Type, bool) {
	lm, lok := l.(MatrixType)
	rm, rok := r.(MatrixType)
	switch {
	case lok && rok:
		if lm.Columns != rm.Rows {
			return nil, false
		}
		return MatrixType{Columns: rm.Columns, Rows: lm.Rows, Scalar: lm.Scalar}, true
	case lok:
		if v, ok := r.(VectorType); ok && v.Size == lm.Columns {
			return VectorType{Size: lm.Rows, Scalar: lm.Scalar}, true
		}
		if _, ok := r.(ScalarType); ok {
			return lm, true
		}
	case rok:
		if v, ok := l.(VectorType); ok && v.Size == rm.Rows {
			return VectorType{Size: rm.Columns, Scalar: rm.Scalar}, true
		}
		if _, ok := l.(ScalarType); ok {
			return rm, true
		}
	}
	return nil, false
}

func (t *Typer) argTypes(args []wgsl.Expr, s *Scope) []Type {
	out := make([]Type, len(args))
	for i, a := range args {
		out[i] = t.ExprType(a, s)
	}
	return out
}

// Void marks calls of functions without a return value.
type Void struct{}

func (Void) typeInner()     {}
func (Void) String() string { return "void" }

func (t *Typer) callType(e *wgsl.CallExpr, s *Scope) Type {
	args := t.argTypes(e.Args, s)

	if e.Func.Ref != wgsl.NoDecl {
		d := t.module.Decl(e.Func.Ref)
		if d == nil {
			return nil
		}
		switch n := d.Node.(type) {
		case *wgsl.FunctionDecl:
			t.checkCallArgs(e, d, n, args)
			if n.ReturnType == nil {
				return Void{}
			}
			typ, err := t.types.Resolve(n.ReturnType)
			if err != nil {
				return nil
			}
			return typ
		case *wgsl.StructDecl:
			st, err := t.types.Struct(d.ID)
			if err != nil {
				return nil
			}
			t.checkStructConstructor(e, st, args)
			return st
		case *wgsl.AliasDecl:
			typ, err := t.types.Resolve(n.Type)
			if err != nil {
				return nil
			}
			return typ
		}
		t.report(e.Func.Span, "%s is not callable", t.displayName(e.Func))
		return nil
	}

	if b, ok := LookupBuiltin(e.Func.Name); ok && len(e.Func.Path) == 0 {
		if len(args) < b.MinArgs || len(args) > b.MaxArgs {
			t.report(e.Span, "%s expects %s, got %d", b.Name, arity(b.MinArgs, b.MaxArgs), len(args))
			return nil
		}
		if b.Void {
			return Void{}
		}
		for _, a := range args {
			if a == nil {
				return nil
			}
		}
		return b.Result(args)
	}

	if typ, ok := Predeclared(e.Func.Name, nil, nil); ok && len(e.TemplateArgs) == 0 {
		return typ
	}
	return nil
}

func arity(lo, hi int) string {
	switch {
	case lo == hi && lo == 1:
		return "1 argument"
	case lo == hi:
		return fmt.Sprintf("%d arguments", lo)
	}
	return fmt.Sprintf("%d to %d arguments", lo, hi)
}

func (t *Typer) checkCallArgs(e *wgsl.CallExpr, d *Decl, fn *wgsl.FunctionDecl, args []Type) {
	if len(args) != len(fn.Params) {
		t.report(e.Span, "%s expects %s, got %d", d.ShortName, arity(len(fn.Params), len(fn.Params)), len(args))
		return
	}
	for i, p := range fn.Params {
		pt, err := t.types.Resolve(p.Type)
		if err != nil || args[i] == nil {
			continue
		}
		if !Assignable(pt, args[i]) {
			t.report(e.Args[i].Pos(), "argument %d of %s: expected %s, found %s", i+1, d.ShortName, pt, args[i])
		}
	}
}

func (t *Typer) checkStructConstructor(e *wgsl.CallExpr, st *StructType, args []Type) {
	if len(args) == 0 {
		return
	}
	if len(args) != len(st.Members) {
		t.report(e.Span, "%s constructor expects %d arguments, got %d", st.Name, len(st.Members), len(args))
		return
	}
	for i, m := range st.Members {
		if args[i] != nil && !Assignable(m.Type, args[i]) {
			t.report(e.Args[i].Pos(), "member %s of %s: expected %s, found %s", m.Name, st.Name, m.Type, args[i])
		}
	}
}

func (t *Typer) displayName(id *wgsl.Ident) string {
	if d := t.module.Decl(id.Ref); d != nil && d.ShortName != "" {
		return d.ShortName
	}
	return id.Name
}

func (t *Typer) constructType(e *wgsl.ConstructExpr, s *Scope) Type {
	args := t.argTypes(e.Args, s)
	nt, ok := e.Type.(*wgsl.NamedType)
	if ok && len(nt.TypeParams) == 0 && nt.Ref == wgsl.NoDecl {
		// Inferred forms: vec3(...), mat2x2(...), array(...).
		if _, err := t.types.Resolve(nt); err != nil {
			return inferConstructed(nt.Name, args)
		}
	}
	return t.resolveType(e.Type)
}

func inferConstructed(name string, args []Type) Type {
	if len(args) == 0 {
		return nil
	}
	var elems []Type
	for _, a := range args {
		if a == nil {
			return nil
		}
		elems = append(elems, a)
	}
	if name == "array" {
		base := unified(elems)
		if base == nil {
			return nil
		}
		return ArrayType{Base: base, Count: uint32(len(elems)), Stride: ArrayStride(base)} //nolint:gosec // argument count
	}

	var sc Type
	for _, a := range elems {
		s, ok := Scalar(a)
		if !ok {
			return nil
		}
		if sc == nil {
			sc = s
			continue
		}
		u, ok := Unify(sc, s)
		if !ok {
			return nil
		}
		sc = u
	}
	typ, ok := Predeclared(name, []Type{sc}, nil)
	if !ok {
		return nil
	}
	return typ
}

func (t *Typer) memberType(e *wgsl.MemberExpr, base Type) Type {
	if p, ok := base.(PointerType); ok {
		base = p.Base
	}
	switch b := base.(type) {
	case *StructType:
		i := b.Member(e.Member)
		if i < 0 {
			t.report(e.Span, "%s has no member %s", b.Name, e.Member)
			return nil
		}
		return b.Members[i].Type
	case VectorType:
		n, ok := SwizzleIndices(e.Member, int(b.Size))
		if !ok {
			t.report(e.Span, "invalid swizzle %s on %s", e.Member, b)
			return nil
		}
		if len(n) == 1 {
			return b.Scalar
		}
		return VectorType{Size: VectorSize(len(n)), Scalar: b.Scalar} //nolint:gosec // at most 4
	}
	return nil
}

// SwizzleIndices decodes a swizzle like "xy" or "rgba" into component
// indices. Letters may not mix the xyzw and rgba sets.
func SwizzleIndices(sw string, size int) ([]int, bool) {
	if len(sw) == 0 || len(sw) > 4 {
		return nil, false
	}
	set := "xyzw"
	if strings.ContainsAny(sw[:1], "rgba") {
		set = "rgba"
	}
	out := make([]int, len(sw))
	for i := 0; i < len(sw); i++ {
		idx := strings.IndexByte(set, sw[i])
		if idx < 0 || idx >= size {
			return nil, false
		}
		out[i] = idx
	}
	return out, true
}
