package ir

// Builtin describes a predeclared function.
type Builtin struct {
	Name    string
	MinArgs int
	MaxArgs int
	// Result computes the result type from argument types. Unknown argument
	// types arrive as nil; a nil result means "unknown".
	Result func(args []Type) Type
	Void   bool // returns no value
	Const  bool // usable in constant expressions
}

// LookupBuiltin returns the builtin function with the given name.
func LookupBuiltin(name string) (*Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}

// IsBuiltinFunction reports whether name is a predeclared function.
func IsBuiltinFunction(name string) bool {
	_, ok := builtins[name]
	return ok
}

var builtins = map[string]*Builtin{}

func register(b *Builtin) {
	builtins[b.Name] = b
}

func sameAsFirst(args []Type) Type {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func scalarOfFirst(args []Type) Type {
	if len(args) == 0 || args[0] == nil {
		return nil
	}
	s, ok := Scalar(args[0])
	if !ok {
		return nil
	}
	return s
}

func boolResult([]Type) Type { return Bool }
func u32Result([]Type) Type  { return U32 }
func i32Result([]Type) Type  { return I32 }

func fixed(t Type) func([]Type) Type {
	return func([]Type) Type { return t }
}

// unified returns the common type of all arguments.
func unified(args []Type) Type {
	var out Type
	for _, a := range args {
		if a == nil {
			return nil
		}
		if out == nil {
			out = a
			continue
		}
		u, ok := Unify(out, a)
		if !ok {
			return nil
		}
		out = u
	}
	return out
}

func pointee(args []Type) Type {
	if len(args) == 0 {
		return nil
	}
	p, ok := args[0].(PointerType)
	if !ok {
		return nil
	}
	if a, ok := p.Base.(AtomicType); ok {
		return a.Scalar
	}
	return p.Base
}

func init() {
	for _, name := range []string{
		"abs", "acos", "acosh", "asin", "asinh", "atan", "atanh", "ceil", "cos", "cosh",
		"degrees", "exp", "exp2", "floor", "fract", "inverseSqrt", "log", "log2",
		"radians", "round", "saturate", "sign", "sin", "sinh", "sqrt", "tan", "tanh",
		"trunc", "countOneBits", "countLeadingZeros", "countTrailingZeros",
		"reverseBits", "firstLeadingBit", "firstTrailingBit", "normalize", "quantizeToF16",
	} {
		register(&Builtin{Name: name, MinArgs: 1, MaxArgs: 1, Result: sameAsFirst, Const: true})
	}
	for _, name := range []string{"atan2", "max", "min", "pow", "step", "reflect", "ldexp"} {
		register(&Builtin{Name: name, MinArgs: 2, MaxArgs: 2, Result: unified, Const: true})
	}
	for _, name := range []string{"clamp", "smoothstep", "fma", "faceForward"} {
		register(&Builtin{Name: name, MinArgs: 3, MaxArgs: 3, Result: unified, Const: true})
	}
	register(&Builtin{Name: "mix", MinArgs: 3, MaxArgs: 3, Const: true, Result: func(args []Type) Type {
		return unified(args[:2])
	}})
	register(&Builtin{Name: "refract", MinArgs: 3, MaxArgs: 3, Result: sameAsFirst, Const: true})
	register(&Builtin{Name: "select", MinArgs: 3, MaxArgs: 3, Const: true, Result: func(args []Type) Type {
		return unified(args[:2])
	}})
	register(&Builtin{Name: "all", MinArgs: 1, MaxArgs: 1, Result: boolResult, Const: true})
	register(&Builtin{Name: "any", MinArgs: 1, MaxArgs: 1, Result: boolResult, Const: true})
	for _, name := range []string{"dot", "distance"} {
		register(&Builtin{Name: name, MinArgs: 2, MaxArgs: 2, Const: true, Result: func(args []Type) Type {
			return scalarOfFirst([]Type{unified(args)})
		}})
	}
	register(&Builtin{Name: "length", MinArgs: 1, MaxArgs: 1, Result: scalarOfFirst, Const: true})
	register(&Builtin{Name: "cross", MinArgs: 2, MaxArgs: 2, Result: unified, Const: true})
	register(&Builtin{Name: "determinant", MinArgs: 1, MaxArgs: 1, Result: scalarOfFirst, Const: true})
	register(&Builtin{Name: "transpose", MinArgs: 1, MaxArgs: 1, Const: true, Result: func(args []Type) Type {
		m, ok := args[0].(MatrixType)
		if !ok {
			return nil
		}
		return MatrixType{Columns: m.Rows, Rows: m.Columns, Scalar: m.Scalar}
	}})
	register(&Builtin{Name: "extractBits", MinArgs: 3, MaxArgs: 3, Result: sameAsFirst, Const: true})
	register(&Builtin{Name: "insertBits", MinArgs: 4, MaxArgs: 4, Result: unified2, Const: true})
	register(&Builtin{Name: "dot4U8Packed", MinArgs: 2, MaxArgs: 2, Result: u32Result, Const: true})
	register(&Builtin{Name: "dot4I8Packed", MinArgs: 2, MaxArgs: 2, Result: i32Result, Const: true})

	for _, name := range []string{"pack4x8snorm", "pack4x8unorm", "pack2x16snorm", "pack2x16unorm", "pack2x16float"} {
		register(&Builtin{Name: name, MinArgs: 1, MaxArgs: 1, Result: u32Result, Const: true})
	}
	vec4f := VectorType{Size: Vec4, Scalar: F32}
	vec2f := VectorType{Size: Vec2, Scalar: F32}
	register(&Builtin{Name: "unpack4x8snorm", MinArgs: 1, MaxArgs: 1, Result: fixed(vec4f), Const: true})
	register(&Builtin{Name: "unpack4x8unorm", MinArgs: 1, MaxArgs: 1, Result: fixed(vec4f), Const: true})
	register(&Builtin{Name: "unpack2x16snorm", MinArgs: 1, MaxArgs: 1, Result: fixed(vec2f), Const: true})
	register(&Builtin{Name: "unpack2x16unorm", MinArgs: 1, MaxArgs: 1, Result: fixed(vec2f), Const: true})
	register(&Builtin{Name: "unpack2x16float", MinArgs: 1, MaxArgs: 1, Result: fixed(vec2f), Const: true})

	register(&Builtin{Name: "arrayLength", MinArgs: 1, MaxArgs: 1, Result: u32Result})
	for _, name := range []string{"workgroupBarrier", "storageBarrier", "textureBarrier"} {
		register(&Builtin{Name: name, Void: true})
	}
	register(&Builtin{Name: "workgroupUniformLoad", MinArgs: 1, MaxArgs: 1, Result: pointee})

	register(&Builtin{Name: "atomicLoad", MinArgs: 1, MaxArgs: 1, Result: pointee})
	register(&Builtin{Name: "atomicStore", MinArgs: 2, MaxArgs: 2, Void: true})
	for _, name := range []string{
		"atomicAdd", "atomicSub", "atomicMax", "atomicMin",
		"atomicAnd", "atomicOr", "atomicXor", "atomicExchange",
	} {
		register(&Builtin{Name: name, MinArgs: 2, MaxArgs: 2, Result: pointee})
	}
	register(&Builtin{Name: "atomicCompareExchangeWeak", MinArgs: 3, MaxArgs: 3, Result: func(args []Type) Type {
		s, ok := pointee(args).(ScalarType)
		if !ok || AtomicCompareExchangeResult(s) == nil {
			return nil
		}
		return AtomicCompareExchangeResult(s)
	}})

	register(&Builtin{Name: "textureDimensions", MinArgs: 1, MaxArgs: 2, Result: textureDimensionsResult})
	for _, name := range []string{"textureNumLayers", "textureNumLevels", "textureNumSamples"} {
		register(&Builtin{Name: name, MinArgs: 1, MaxArgs: 1, Result: u32Result})
	}
	register(&Builtin{Name: "textureLoad", MinArgs: 2, MaxArgs: 4, Result: texel})
	register(&Builtin{Name: "textureStore", MinArgs: 3, MaxArgs: 4, Void: true})
	for _, name := range []string{"textureSample", "textureSampleLevel", "textureSampleBias", "textureSampleGrad", "textureGather"} {
		register(&Builtin{Name: name, MinArgs: 3, MaxArgs: 6, Result: texel})
	}
	for _, name := range []string{"textureSampleCompare", "textureSampleCompareLevel"} {
		register(&Builtin{Name: name, MinArgs: 4, MaxArgs: 6, Result: fixed(F32)})
	}
}

func unified2(args []Type) Type {
	return unified(args[:2])
}

func textureDimensionsResult(args []Type) Type {
	img, ok := args[0].(ImageType)
	if !ok {
		return nil
	}
	switch img.Dim {
	case Dim1D:
		return U32
	case Dim3D:
		return VectorType{Size: Vec3, Scalar: U32}
	}
	return VectorType{Size: Vec2, Scalar: U32}
}

func texel(args []Type) Type {
	img, ok := args[0].(ImageType)
	if !ok {
		return nil
	}
	if img.Class == ImageClassDepth {
		return F32
	}
	return VectorType{Size: Vec4, Scalar: img.Sample}
}

var atomicResults = map[ScalarType]*StructType{
	I32: newAtomicResult(I32),
	U32: newAtomicResult(U32),
}

// AtomicCompareExchangeResult returns the result struct of
// atomicCompareExchangeWeak for i32 or u32, and nil otherwise.
func AtomicCompareExchangeResult(s ScalarType) *StructType {
	return atomicResults[s]
}

func newAtomicResult(s ScalarType) *StructType {
	return &StructType{
		Name: "__atomic_compare_exchange_result_" + s.String(),
		Members: []StructMember{
			{Name: "old_value", Type: s, Offset: 0, Size: 4, Align: 4},
			{Name: "exchanged", Type: Bool, Offset: 4, Size: 4, Align: 4},
		},
		Size:  8,
		Align: 4,
	}
}
