package ir

import (
	"fmt"
	"strings"

	"github.com/gogpu/wesl/wgsl"
)

// Type represents a resolved WGSL type.
// All implementations are comparable, so two types are equal when == holds.
type Type interface {
	String() string
	typeInner()
}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint          ScalarKind = iota // Signed integer
	ScalarUint                            // Unsigned integer
	ScalarFloat                           // Floating point
	ScalarBool                            // Boolean
	ScalarAbstractInt                     // Type of unsuffixed integer literals
	ScalarAbstractFloat                   // Type of unsuffixed float literals
)

// ScalarType represents scalar types.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bytes
}

func (ScalarType) typeInner() {}

// Predeclared scalar types.
var (
	Bool          = ScalarType{Kind: ScalarBool, Width: 4}
	I32           = ScalarType{Kind: ScalarSint, Width: 4}
	U32           = ScalarType{Kind: ScalarUint, Width: 4}
	F32           = ScalarType{Kind: ScalarFloat, Width: 4}
	F16           = ScalarType{Kind: ScalarFloat, Width: 2}
	AbstractInt   = ScalarType{Kind: ScalarAbstractInt, Width: 8}
	AbstractFloat = ScalarType{Kind: ScalarAbstractFloat, Width: 8}
)

func (s ScalarType) String() string {
	switch s.Kind {
	case ScalarSint:
		return "i32"
	case ScalarUint:
		return "u32"
	case ScalarFloat:
		if s.Width == 2 {
			return "f16"
		}
		return "f32"
	case ScalarBool:
		return "bool"
	case ScalarAbstractInt:
		return "AbstractInt"
	case ScalarAbstractFloat:
		return "AbstractFloat"
	}
	return "unknown"
}

// IsAbstract reports whether s is AbstractInt or AbstractFloat.
func (s ScalarType) IsAbstract() bool {
	return s.Kind == ScalarAbstractInt || s.Kind == ScalarAbstractFloat
}

// IsInteger reports whether s is an integer kind, abstract or concrete.
func (s ScalarType) IsInteger() bool {
	return s.Kind == ScalarSint || s.Kind == ScalarUint || s.Kind == ScalarAbstractInt
}

// IsFloat reports whether s is a floating point kind, abstract or concrete.
func (s ScalarType) IsFloat() bool {
	return s.Kind == ScalarFloat || s.Kind == ScalarAbstractFloat
}

// IsNumeric reports whether s is any non-bool scalar.
func (s ScalarType) IsNumeric() bool {
	return s.Kind != ScalarBool
}

// VectorSize represents vector sizes.
type VectorSize uint8

const (
	Vec2 VectorSize = 2
	Vec3 VectorSize = 3
	Vec4 VectorSize = 4
)

// VectorType represents vector types.
type VectorType struct {
	Size   VectorSize
	Scalar ScalarType
}

func (VectorType) typeInner() {}

func (v VectorType) String() string {
	return fmt.Sprintf("vec%d<%s>", v.Size, v.Scalar)
}

// MatrixType represents matrix types.
type MatrixType struct {
	Columns VectorSize
	Rows    VectorSize
	Scalar  ScalarType
}

func (MatrixType) typeInner() {}

func (m MatrixType) String() string {
	return fmt.Sprintf("mat%dx%d<%s>", m.Columns, m.Rows, m.Scalar)
}

// Column returns the column vector type of the matrix.
func (m MatrixType) Column() VectorType {
	return VectorType{Size: m.Rows, Scalar: m.Scalar}
}

// ArrayType represents array types. Count is zero for runtime-sized arrays.
type ArrayType struct {
	Base   Type
	Count  uint32
	Stride uint32
}

func (ArrayType) typeInner() {}

func (a ArrayType) String() string {
	if a.Count == 0 {
		return fmt.Sprintf("array<%s>", a.Base)
	}
	return fmt.Sprintf("array<%s, %d>", a.Base, a.Count)
}

// RuntimeSized reports whether the array length comes from its buffer.
func (a ArrayType) RuntimeSized() bool {
	return a.Count == 0
}

// StructType represents struct types with host-shareable layout.
type StructType struct {
	Name    string
	Decl    wgsl.DeclID
	Members []StructMember
	Size    uint32
	Align   uint32
}

func (*StructType) typeInner() {}

func (s *StructType) String() string {
	return s.Name
}

// Member returns the index of the named member, or -1.
func (s *StructType) Member(name string) int {
	for i := range s.Members {
		if s.Members[i].Name == name {
			return i
		}
	}
	return -1
}

// StructMember represents a struct member.
type StructMember struct {
	Name       string
	Type       Type
	Offset     uint32
	Size       uint32
	Align      uint32
	Attributes []wgsl.Attribute
}

// AtomicType represents atomic types for thread-safe operations.
type AtomicType struct {
	Scalar ScalarType
}

func (AtomicType) typeInner() {}

func (a AtomicType) String() string {
	return fmt.Sprintf("atomic<%s>", a.Scalar)
}

// AddressSpace represents memory address spaces.
type AddressSpace uint8

const (
	SpaceFunction AddressSpace = iota
	SpacePrivate
	SpaceWorkGroup
	SpaceUniform
	SpaceStorage
	SpaceHandle
)

var spaceNames = [...]string{"function", "private", "workgroup", "uniform", "storage", "handle"}

func (s AddressSpace) String() string {
	if int(s) < len(spaceNames) {
		return spaceNames[s]
	}
	return "unknown"
}

// ParseAddressSpace parses an address space keyword.
func ParseAddressSpace(s string) (AddressSpace, bool) {
	for i, n := range spaceNames {
		if n == s && AddressSpace(i) != SpaceHandle {
			return AddressSpace(i), true
		}
	}
	return 0, false
}

// AccessMode represents memory access modes.
type AccessMode uint8

const (
	AccessRead AccessMode = iota
	AccessWrite
	AccessReadWrite
)

func (a AccessMode) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	}
	return "read_write"
}

// ParseAccessMode parses an access mode keyword.
func ParseAccessMode(s string) (AccessMode, bool) {
	switch s {
	case "read":
		return AccessRead, true
	case "write":
		return AccessWrite, true
	case "read_write":
		return AccessReadWrite, true
	}
	return 0, false
}

// PointerType represents pointer types.
type PointerType struct {
	Base   Type
	Space  AddressSpace
	Access AccessMode
}

func (PointerType) typeInner() {}

func (p PointerType) String() string {
	if p.Space == SpaceStorage {
		return fmt.Sprintf("ptr<%s, %s, %s>", p.Space, p.Base, p.Access)
	}
	return fmt.Sprintf("ptr<%s, %s>", p.Space, p.Base)
}

// SamplerType represents sampler types.
type SamplerType struct {
	Comparison bool
}

func (SamplerType) typeInner() {}

func (s SamplerType) String() string {
	if s.Comparison {
		return "sampler_comparison"
	}
	return "sampler"
}

// ImageDimension represents image dimensions.
type ImageDimension uint8

const (
	Dim1D ImageDimension = iota
	Dim2D
	Dim3D
	DimCube
)

// ImageClass represents image classification.
type ImageClass uint8

const (
	ImageClassSampled ImageClass = iota
	ImageClassDepth
	ImageClassStorage
)

// ImageType represents texture types.
type ImageType struct {
	Name         string // e.g. texture_2d
	Dim          ImageDimension
	Arrayed      bool
	Class        ImageClass
	Multisampled bool
	Sample       ScalarType // sampled type for sampled textures
	Format       string     // texel format for storage textures
	Access       AccessMode
}

func (ImageType) typeInner() {}

func (t ImageType) String() string {
	switch t.Class {
	case ImageClassSampled:
		return fmt.Sprintf("%s<%s>", t.Name, t.Sample)
	case ImageClassStorage:
		return fmt.Sprintf("%s<%s, %s>", t.Name, t.Format, t.Access)
	}
	return t.Name
}

func roundUp(k, n uint32) uint32 {
	if k == 0 {
		return n
	}
	return (n + k - 1) / k * k
}

// Size returns the host-shareable size of t in bytes. Runtime-sized arrays
// report the size of zero elements.
func Size(t Type) uint32 {
	switch t := t.(type) {
	case ScalarType:
		if t.IsAbstract() {
			return 8
		}
		return uint32(t.Width)
	case VectorType:
		return uint32(t.Size) * uint32(t.Scalar.Width)
	case MatrixType:
		col := t.Column()
		return uint32(t.Columns) * roundUp(Align(col), Size(col))
	case ArrayType:
		return t.Count * t.Stride
	case *StructType:
		return t.Size
	case AtomicType:
		return 4
	}
	return 0
}

// Align returns the host-shareable alignment of t in bytes.
func Align(t Type) uint32 {
	switch t := t.(type) {
	case ScalarType:
		if t.IsAbstract() {
			return 8
		}
		return uint32(t.Width)
	case VectorType:
		n := uint32(t.Size)
		if n == 3 {
			n = 4
		}
		return n * uint32(t.Scalar.Width)
	case MatrixType:
		return Align(t.Column())
	case ArrayType:
		return Align(t.Base)
	case *StructType:
		return t.Align
	case AtomicType:
		return 4
	}
	return 1
}

// ArrayStride returns the element stride of an array of elem.
func ArrayStride(elem Type) uint32 {
	return roundUp(Align(elem), Size(elem))
}

// Scalar returns the scalar component type of a scalar, vector, matrix or
// atomic type.
func Scalar(t Type) (ScalarType, bool) {
	switch t := t.(type) {
	case ScalarType:
		return t, true
	case VectorType:
		return t.Scalar, true
	case MatrixType:
		return t.Scalar, true
	case AtomicType:
		return t.Scalar, true
	}
	return ScalarType{}, false
}

// WithScalar replaces the scalar component of a scalar, vector or matrix type.
func WithScalar(t Type, s ScalarType) Type {
	switch t := t.(type) {
	case ScalarType:
		return s
	case VectorType:
		return VectorType{Size: t.Size, Scalar: s}
	case MatrixType:
		return MatrixType{Columns: t.Columns, Rows: t.Rows, Scalar: s}
	case ArrayType:
		base := WithScalar(t.Base, s)
		return ArrayType{Base: base, Count: t.Count, Stride: ArrayStride(base)}
	}
	return t
}

// IsAbstract reports whether t contains an abstract scalar.
func IsAbstract(t Type) bool {
	switch t := t.(type) {
	case ArrayType:
		return IsAbstract(t.Base)
	}
	s, ok := Scalar(t)
	return ok && s.IsAbstract()
}

// Concretize converts abstract types to their default concrete type:
// AbstractInt becomes i32 and AbstractFloat becomes f32.
func Concretize(t Type) Type {
	if t == nil {
		return nil
	}
	if arr, ok := t.(ArrayType); ok {
		return WithScalar(arr, concreteScalar(scalarOf(arr)))
	}
	s, ok := Scalar(t)
	if !ok || !s.IsAbstract() {
		return t
	}
	return WithScalar(t, concreteScalar(s))
}

func scalarOf(t Type) ScalarType {
	if arr, ok := t.(ArrayType); ok {
		return scalarOf(arr.Base)
	}
	s, _ := Scalar(t)
	return s
}

func concreteScalar(s ScalarType) ScalarType {
	switch s.Kind {
	case ScalarAbstractInt:
		return I32
	case ScalarAbstractFloat:
		return F32
	}
	return s
}

// ConvertibleScalar reports whether a value of scalar src converts
// automatically to dst.
func ConvertibleScalar(src, dst ScalarType) bool {
	if src == dst {
		return true
	}
	switch src.Kind {
	case ScalarAbstractInt:
		return dst.Kind != ScalarBool
	case ScalarAbstractFloat:
		return dst.Kind == ScalarFloat
	}
	return false
}

// Assignable reports whether a value of type src may initialize or be
// stored into a location of type dst.
func Assignable(dst, src Type) bool {
	if dst == nil || src == nil || dst == src {
		return true
	}
	switch d := dst.(type) {
	case ScalarType:
		s, ok := src.(ScalarType)
		return ok && ConvertibleScalar(s, d)
	case VectorType:
		s, ok := src.(VectorType)
		return ok && s.Size == d.Size && ConvertibleScalar(s.Scalar, d.Scalar)
	case MatrixType:
		s, ok := src.(MatrixType)
		return ok && s.Columns == d.Columns && s.Rows == d.Rows && ConvertibleScalar(s.Scalar, d.Scalar)
	case ArrayType:
		s, ok := src.(ArrayType)
		return ok && s.Count == d.Count && Assignable(d.Base, s.Base)
	}
	return false
}

// Unify returns the common type two operands convert to, applying abstract
// conversions to the more concrete side.
func Unify(a, b Type) (Type, bool) {
	if a == b {
		return a, true
	}
	if Assignable(a, b) {
		return a, true
	}
	if Assignable(b, a) {
		return b, true
	}
	sa, okA := a.(ScalarType)
	sb, okB := b.(ScalarType)
	if okA && okB && sa.IsAbstract() && sb.IsAbstract() {
		return AbstractFloat, true
	}
	va, okA := a.(VectorType)
	vb, okB := b.(VectorType)
	if okA && okB && va.Size == vb.Size {
		if s, ok := Unify(va.Scalar, vb.Scalar); ok {
			return VectorType{Size: va.Size, Scalar: s.(ScalarType)}, true
		}
	}
	return nil, false
}

// IsConstructible reports whether values of t can be created and copied:
// everything except runtime-sized arrays, atomics, pointers and handles.
func IsConstructible(t Type) bool {
	switch t := t.(type) {
	case ScalarType, VectorType, MatrixType:
		return true
	case ArrayType:
		return !t.RuntimeSized() && IsConstructible(t.Base)
	case *StructType:
		for _, m := range t.Members {
			if !IsConstructible(m.Type) {
				return false
			}
		}
		return true
	}
	return false
}

// IsHostShareable reports whether t may live in uniform or storage memory.
func IsHostShareable(t Type) bool {
	switch t := t.(type) {
	case ScalarType:
		return t.Kind != ScalarBool && !t.IsAbstract()
	case VectorType:
		return IsHostShareable(t.Scalar)
	case MatrixType:
		return IsHostShareable(t.Scalar)
	case AtomicType:
		return true
	case ArrayType:
		return IsHostShareable(t.Base)
	case *StructType:
		for _, m := range t.Members {
			if !IsHostShareable(m.Type) {
				return false
			}
		}
		return true
	}
	return false
}

// TypeName renders a type for diagnostics; nil renders as "<unknown>".
func TypeName(t Type) string {
	if t == nil {
		return "<unknown>"
	}
	return strings.TrimSpace(t.String())
}
