package ir

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"github.com/gogpu/wesl/wgsl"
)

// TypeError is a type resolution failure at a source position.
type TypeError struct {
	Message string
	Span    wgsl.Span
}

func (e *TypeError) Error() string {
	return e.Message
}

func typeErrorf(span wgsl.Span, format string, args ...any) *TypeError {
	return &TypeError{Message: fmt.Sprintf(format, args...), Span: span}
}

// TypeResolver converts AST types into resolved types and computes struct
// layouts. Struct types are created once per declaration, so resolved types
// of the same struct compare equal.
type TypeResolver struct {
	module    *Module
	structs   map[wgsl.DeclID]*StructType
	resolving map[wgsl.DeclID]bool
	registry  *TypeRegistry
}

// NewTypeResolver creates a resolver over the declarations of m.
func NewTypeResolver(m *Module) *TypeResolver {
	return &TypeResolver{
		module:    m,
		structs:   make(map[wgsl.DeclID]*StructType),
		resolving: make(map[wgsl.DeclID]bool),
		registry:  NewTypeRegistry(),
	}
}

// Registry returns the registry of every type resolved so far.
func (r *TypeResolver) Registry() *TypeRegistry {
	return r.registry
}

// Resolve converts an AST type.
func (r *TypeResolver) Resolve(t wgsl.Type) (Type, error) {
	typ, err := r.resolve(t)
	if err != nil {
		return nil, err
	}
	r.registry.GetOrCreate(typ)
	return typ, nil
}

func (r *TypeResolver) resolve(t wgsl.Type) (Type, error) {
	switch t := t.(type) {
	case nil:
		return nil, &TypeError{Message: "missing type"}

	case *wgsl.NamedType:
		return r.resolveNamed(t)

	case *wgsl.ArrayType:
		return r.resolveArray(t.Element, t.Size, t.Span)

	case *wgsl.BindingArrayType:
		return r.resolveArray(t.Element, t.Size, t.Span)

	case *wgsl.PtrType:
		base, err := r.resolve(t.PointeeType)
		if err != nil {
			return nil, err
		}
		space, ok := ParseAddressSpace(t.AddressSpace)
		if !ok {
			return nil, typeErrorf(t.Span, "unknown address space %q", t.AddressSpace)
		}
		access := AccessReadWrite
		if space == SpaceStorage || space == SpaceUniform {
			access = AccessRead
		}
		if t.AccessMode != "" {
			if access, ok = ParseAccessMode(t.AccessMode); !ok {
				return nil, typeErrorf(t.Span, "unknown access mode %q", t.AccessMode)
			}
		}
		return PointerType{Base: base, Space: space, Access: access}, nil

	case *wgsl.ConstArg:
		return nil, typeErrorf(t.Span, "expected a type, found value %s", wgsl.FormatExpr(t.Value))
	}
	return nil, typeErrorf(t.Pos(), "unsupported type %T", t)
}

func (r *TypeResolver) resolveArray(elem wgsl.Type, size wgsl.Expr, span wgsl.Span) (Type, error) {
	base, err := r.resolve(elem)
	if err != nil {
		return nil, err
	}
	arr := ArrayType{Base: base, Stride: ArrayStride(base)}
	if size != nil {
		n, err := EvalConstInt(r.module, size)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, typeErrorf(size.Pos(), "array size must be positive, got %d", n)
		}
		count, err := safecast.Conv[uint32](n)
		if err != nil {
			return nil, typeErrorf(size.Pos(), "array size %d is too large", n)
		}
		arr.Count = count
	}
	return arr, nil
}

func (r *TypeResolver) resolveNamed(t *wgsl.NamedType) (Type, error) {
	if t.TemplateParam {
		return nil, typeErrorf(t.Span, "template parameter %s was not instantiated", t.Name)
	}
	if t.Ref != wgsl.NoDecl {
		d := r.module.Decl(t.Ref)
		if d == nil {
			return nil, typeErrorf(t.Span, "unknown type %s", t.Name)
		}
		switch n := d.Node.(type) {
		case *wgsl.StructDecl:
			return r.Struct(d.ID)
		case *wgsl.AliasDecl:
			if r.resolving[d.ID] {
				return nil, typeErrorf(t.Span, "alias %s refers to itself", d.Name)
			}
			r.resolving[d.ID] = true
			defer delete(r.resolving, d.ID)
			return r.resolve(n.Type)
		}
		return nil, typeErrorf(t.Span, "%s is a %s, not a type", t.Name, d.Kind)
	}
	if len(t.Path) > 0 {
		return nil, typeErrorf(t.Span, "unresolved type %s::%s", strings.Join(t.Path, "::"), t.Name)
	}

	params := make([]Type, 0, len(t.TypeParams))
	var words []string
	for _, p := range t.TypeParams {
		if nt, ok := p.(*wgsl.NamedType); ok && nt.Ref == wgsl.NoDecl && len(nt.TypeParams) == 0 && isTemplateWord(nt.Name) {
			words = append(words, nt.Name)
			continue
		}
		pt, err := r.resolve(p)
		if err != nil {
			return nil, err
		}
		params = append(params, pt)
	}
	typ, ok := Predeclared(t.Name, params, words)
	if !ok {
		return nil, typeErrorf(t.Span, "unknown type %s", FormatTypeName(t))
	}
	return typ, nil
}

// isTemplateWord reports enumerants that appear as template arguments of
// predeclared types: texel formats and access modes.
func isTemplateWord(name string) bool {
	if _, ok := ParseAccessMode(name); ok {
		return true
	}
	_, ok := texelFormats[name]
	return ok
}

// FormatTypeName renders an AST type for diagnostics.
func FormatTypeName(t wgsl.Type) string {
	return wgsl.FormatType(t)
}

// Struct resolves a struct declaration and computes its layout.
func (r *TypeResolver) Struct(id wgsl.DeclID) (*StructType, error) {
	if st, ok := r.structs[id]; ok {
		return st, nil
	}
	d := r.module.Decl(id)
	if d == nil {
		return nil, &TypeError{Message: fmt.Sprintf("unknown struct declaration %d", id)}
	}
	node, ok := d.Node.(*wgsl.StructDecl)
	if !ok {
		return nil, typeErrorf(d.Span(), "%s is not a struct", d.Name)
	}
	if r.resolving[id] {
		return nil, typeErrorf(node.Span, "struct %s contains itself", d.Name)
	}
	r.resolving[id] = true
	defer delete(r.resolving, id)

	st := &StructType{Name: d.Name, Decl: id, Align: 1}
	var offset uint32
	for i, m := range node.Members {
		mt, err := r.resolve(m.Type)
		if err != nil {
			return nil, err
		}
		if arr, ok := mt.(ArrayType); ok && arr.RuntimeSized() && i != len(node.Members)-1 {
			return nil, typeErrorf(m.Span, "runtime-sized array member %s must be last", m.Name)
		}
		align, size := Align(mt), Size(mt)
		if a, ok := wgsl.AttributeNamed(m.Attributes, "align"); ok && len(a.Args) == 1 {
			v, err := EvalConstInt(r.module, a.Args[0])
			if err != nil {
				return nil, err
			}
			if v <= 0 || v&(v-1) != 0 {
				return nil, typeErrorf(a.Span, "@align must be a positive power of two, got %d", v)
			}
			align = uint32(v) //nolint:gosec // checked positive power of two above
		}
		if a, ok := wgsl.AttributeNamed(m.Attributes, "size"); ok && len(a.Args) == 1 {
			v, err := EvalConstInt(r.module, a.Args[0])
			if err != nil {
				return nil, err
			}
			if v < int64(size) {
				return nil, typeErrorf(a.Span, "@size(%d) is smaller than the member size %d", v, size)
			}
			size, err = safecast.Conv[uint32](v)
			if err != nil {
				return nil, typeErrorf(a.Span, "@size(%d) is too large", v)
			}
		}
		offset = roundUp(align, offset)
		st.Members = append(st.Members, StructMember{
			Name:       m.Name,
			Type:       mt,
			Offset:     offset,
			Size:       size,
			Align:      align,
			Attributes: m.Attributes,
		})
		offset += size
		st.Align = max(st.Align, align)
	}
	st.Size = roundUp(st.Align, offset)
	r.structs[id] = st
	return st, nil
}

// Predeclared returns the predeclared type with the given name and
// template arguments. words holds enumerant arguments such as texel
// formats and access modes.
func Predeclared(name string, params []Type, words []string) (Type, bool) {
	switch name {
	case "bool":
		return Bool, len(params) == 0
	case "i32":
		return I32, len(params) == 0
	case "u32":
		return U32, len(params) == 0
	case "f32":
		return F32, len(params) == 0
	case "f16":
		return F16, len(params) == 0
	case "sampler":
		return SamplerType{}, true
	case "sampler_comparison":
		return SamplerType{Comparison: true}, true
	case "atomic":
		if len(params) != 1 {
			return nil, false
		}
		s, ok := params[0].(ScalarType)
		if !ok || (s != I32 && s != U32) {
			return nil, false
		}
		return AtomicType{Scalar: s}, true
	}

	if t, ok := shorthandTypes[name]; ok {
		return t, len(params) == 0
	}

	if len(name) == 4 && strings.HasPrefix(name, "vec") {
		n := VectorSize(name[3] - '0')
		if n < Vec2 || n > Vec4 || len(params) != 1 {
			return nil, false
		}
		s, ok := params[0].(ScalarType)
		if !ok {
			return nil, false
		}
		return VectorType{Size: n, Scalar: s}, true
	}
	if len(name) == 6 && strings.HasPrefix(name, "mat") && name[4] == 'x' {
		c, rows := VectorSize(name[3]-'0'), VectorSize(name[5]-'0')
		if c < Vec2 || c > Vec4 || rows < Vec2 || rows > Vec4 || len(params) != 1 {
			return nil, false
		}
		s, ok := params[0].(ScalarType)
		if !ok || !s.IsFloat() {
			return nil, false
		}
		return MatrixType{Columns: c, Rows: rows, Scalar: s}, true
	}
	if strings.HasPrefix(name, "texture_") {
		return textureType(name, params, words)
	}
	return nil, false
}

var shorthandTypes = func() map[string]Type {
	m := map[string]Type{}
	suffixes := map[string]ScalarType{"f": F32, "h": F16, "i": I32, "u": U32}
	for n := Vec2; n <= Vec4; n++ {
		for suf, s := range suffixes {
			m[fmt.Sprintf("vec%d%s", n, suf)] = VectorType{Size: n, Scalar: s}
		}
	}
	for c := Vec2; c <= Vec4; c++ {
		for rows := Vec2; rows <= Vec4; rows++ {
			m[fmt.Sprintf("mat%dx%df", c, rows)] = MatrixType{Columns: c, Rows: rows, Scalar: F32}
			m[fmt.Sprintf("mat%dx%dh", c, rows)] = MatrixType{Columns: c, Rows: rows, Scalar: F16}
		}
	}
	return m
}()

var texelFormats = map[string]ScalarKind{
	"rgba8unorm": ScalarFloat, "rgba8snorm": ScalarFloat, "rgba8uint": ScalarUint, "rgba8sint": ScalarSint,
	"rgba16uint": ScalarUint, "rgba16sint": ScalarSint, "rgba16float": ScalarFloat,
	"r32uint": ScalarUint, "r32sint": ScalarSint, "r32float": ScalarFloat,
	"rg32uint": ScalarUint, "rg32sint": ScalarSint, "rg32float": ScalarFloat,
	"rgba32uint": ScalarUint, "rgba32sint": ScalarSint, "rgba32float": ScalarFloat,
	"bgra8unorm": ScalarFloat,
}

var textureDims = map[string]struct {
	dim     ImageDimension
	arrayed bool
}{
	"1d": {Dim1D, false}, "2d": {Dim2D, false}, "2d_array": {Dim2D, true},
	"3d": {Dim3D, false}, "cube": {DimCube, false}, "cube_array": {DimCube, true},
}

func textureType(name string, params []Type, words []string) (Type, bool) {
	rest := strings.TrimPrefix(name, "texture_")
	img := ImageType{Name: name}
	switch {
	case strings.HasPrefix(rest, "storage_"):
		d, ok := textureDims[strings.TrimPrefix(rest, "storage_")]
		if !ok || len(words) != 2 {
			return nil, false
		}
		kind, ok := texelFormats[words[0]]
		if !ok {
			return nil, false
		}
		access, ok := ParseAccessMode(words[1])
		if !ok {
			return nil, false
		}
		img.Dim, img.Arrayed, img.Class = d.dim, d.arrayed, ImageClassStorage
		img.Format, img.Access, img.Sample = words[0], access, ScalarType{Kind: kind, Width: 4}
		return img, true

	case strings.HasPrefix(rest, "depth_"):
		rest = strings.TrimPrefix(rest, "depth_")
		if rest == "multisampled_2d" {
			rest, img.Multisampled = "2d", true
		}
		d, ok := textureDims[rest]
		if !ok || len(params) != 0 {
			return nil, false
		}
		img.Dim, img.Arrayed, img.Class, img.Sample = d.dim, d.arrayed, ImageClassDepth, F32
		return img, true

	case rest == "external":
		img.Dim, img.Class, img.Sample = Dim2D, ImageClassSampled, F32
		return img, len(params) == 0
	}

	if rest == "multisampled_2d" {
		rest, img.Multisampled = "2d", true
	}
	d, ok := textureDims[rest]
	if !ok || len(params) != 1 {
		return nil, false
	}
	s, ok := params[0].(ScalarType)
	if !ok || s.Kind == ScalarBool || s.IsAbstract() {
		return nil, false
	}
	img.Dim, img.Arrayed, img.Class, img.Sample = d.dim, d.arrayed, ImageClassSampled, s
	return img, true
}

// EvalConstInt folds an integer expression built from literals, const and
// override declarations with initializers, parentheses, unary minus,
// arithmetic and i32/u32 conversions. It is used for array sizes and
// layout attributes, which must be known before full evaluation runs.
func EvalConstInt(m *Module, e wgsl.Expr) (int64, error) {
	return evalConstInt(m, e, map[wgsl.DeclID]bool{})
}

func evalConstInt(m *Module, e wgsl.Expr, visiting map[wgsl.DeclID]bool) (int64, error) {
	switch e := e.(type) {
	case *wgsl.Literal:
		if e.Kind != wgsl.TokenIntLiteral {
			return 0, typeErrorf(e.Span, "expected an integer, found %s", e.Value)
		}
		v, _, err := ParseIntLiteral(e.Value)
		if err != nil {
			return 0, typeErrorf(e.Span, "%s", err)
		}
		return v, nil

	case *wgsl.ParenExpr:
		return evalConstInt(m, e.Expr, visiting)

	case *wgsl.UnaryExpr:
		if e.Op != wgsl.TokenMinus {
			break
		}
		v, err := evalConstInt(m, e.Operand, visiting)
		return -v, err

	case *wgsl.Ident:
		d := m.Decl(e.Ref)
		if d == nil {
			return 0, typeErrorf(e.Span, "%s is not a constant", e.Name)
		}
		var init wgsl.Expr
		switch n := d.Node.(type) {
		case *wgsl.ConstDecl:
			init = n.Init
		case *wgsl.OverrideDecl:
			init = n.Init
		}
		if init == nil {
			return 0, typeErrorf(e.Span, "%s is not a constant", e.Name)
		}
		if visiting[d.ID] {
			return 0, typeErrorf(e.Span, "%s is defined in terms of itself", e.Name)
		}
		visiting[d.ID] = true
		defer delete(visiting, d.ID)
		return evalConstInt(m, init, visiting)

	case *wgsl.ConstructExpr:
		if nt, ok := e.Type.(*wgsl.NamedType); ok && (nt.Name == "i32" || nt.Name == "u32") && len(e.Args) == 1 {
			return evalConstInt(m, e.Args[0], visiting)
		}

	case *wgsl.BinaryExpr:
		l, err := evalConstInt(m, e.Left, visiting)
		if err != nil {
			return 0, err
		}
		r, err := evalConstInt(m, e.Right, visiting)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case wgsl.TokenPlus:
			return l + r, nil
		case wgsl.TokenMinus:
			return l - r, nil
		case wgsl.TokenStar:
			return l * r, nil
		case wgsl.TokenSlash, wgsl.TokenPercent:
			if r == 0 {
				return 0, typeErrorf(e.Span, "division by zero in constant expression")
			}
			if e.Op == wgsl.TokenSlash {
				return l / r, nil
			}
			return l % r, nil
		case wgsl.TokenLessLess:
			return l << uint64(r&63), nil //nolint:gosec // masked
		case wgsl.TokenGreaterGreater:
			return l >> uint64(r&63), nil //nolint:gosec // masked
		}
	}
	return 0, typeErrorf(e.Pos(), "expected a constant integer expression, found %s", wgsl.FormatExpr(e))
}
