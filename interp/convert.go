package interp

import (
	"math"

	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// convert applies the automatic conversion of v to type t: abstract
// scalars become the concrete scalar of t, componentwise. Values that
// already have type t, and types that do not convert, are returned as is.
func convert(v Value, t ir.Type) Value {
	if t == nil || v.Type == t {
		return v
	}
	switch dst := t.(type) {
	case ir.ScalarType:
		src, ok := v.Scalar()
		if !ok || !src.IsAbstract() {
			return v
		}
		if src.Kind == ir.ScalarAbstractInt && dst.IsFloat() {
			return floatValue(dst, float64(v.Int))
		}
		if src.Kind == ir.ScalarAbstractFloat && dst.IsInteger() {
			return v
		}
		if dst.IsFloat() {
			return floatValue(dst, v.Float)
		}
		return intValue(dst, v.Int)
	case ir.VectorType, ir.MatrixType, ir.ArrayType:
		if v.Elems == nil {
			return v
		}
		elem := elemType(t)
		out := Value{Type: t, Elems: make([]Value, len(v.Elems))}
		for i, e := range v.Elems {
			out.Elems[i] = convert(e, elem)
		}
		return out
	}
	return v
}

// concretize converts abstract values to their default concrete type.
func concretize(v Value) Value {
	return convert(v, ir.Concretize(v.Type))
}

// elemType returns the component type of a composite.
func elemType(t ir.Type) ir.Type {
	switch t := t.(type) {
	case ir.VectorType:
		return t.Scalar
	case ir.MatrixType:
		return t.Column()
	case ir.ArrayType:
		return t.Base
	}
	return nil
}

// unifyValues converts both operands to their common type.
func unifyValues(a, b Value) (Value, Value) {
	if a.Type == b.Type {
		return a, b
	}
	u, ok := ir.Unify(a.Type, b.Type)
	if !ok {
		// Scalar against vector: convert the scalar to the vector's scalar.
		if s, ok := ir.Scalar(b.Type); ok {
			if _, isScalar := a.Type.(ir.ScalarType); isScalar {
				return convert(a, s), b
			}
		}
		if s, ok := ir.Scalar(a.Type); ok {
			if _, isScalar := b.Type.(ir.ScalarType); isScalar {
				return a, convert(b, s)
			}
		}
		return a, b
	}
	return convert(a, u), convert(b, u)
}

// unifyAll converts a list of values to their common type.
func unifyAll(vals []Value) []Value {
	if len(vals) == 0 {
		return vals
	}
	t := vals[0].Type
	for _, v := range vals[1:] {
		if u, ok := ir.Unify(t, v.Type); ok {
			t = u
		}
	}
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = convert(v, t)
	}
	return out
}

// splat widens a scalar to a vector of the given type.
func splat(s Value, t ir.VectorType) Value {
	s = convert(s, t.Scalar)
	v := Value{Type: t, Elems: make([]Value, t.Size)}
	for i := range v.Elems {
		v.Elems[i] = s
	}
	return v
}

// castScalar is the value conversion performed by scalar constructors
// such as i32(x) and f32(x).
func castScalar(span wgsl.Span, v Value, dst ir.ScalarType) Value {
	src, ok := v.Scalar()
	if !ok {
		faultf(span, FaultTypeMismatch, "cannot convert %s to %s", ir.TypeName(v.Type), dst)
	}
	switch dst.Kind {
	case ir.ScalarBool:
		switch {
		case src.Kind == ir.ScalarBool:
			return v
		case src.IsFloat():
			return Bool(v.Float != 0)
		}
		return Bool(v.Int != 0)
	case ir.ScalarFloat, ir.ScalarAbstractFloat:
		return floatValue(dst, v.AsFloat())
	}
	switch {
	case src.Kind == ir.ScalarBool:
		if v.Bool {
			return intValue(dst, 1)
		}
		return intValue(dst, 0)
	case src.IsFloat():
		return intValue(dst, saturate(v.Float, dst))
	}
	return intValue(dst, v.Int)
}

// saturate converts a float to an integer of type t, truncating toward
// zero and clamping to the representable range.
func saturate(f float64, t ir.ScalarType) int64 {
	lo, hi := float64(math.MinInt32), float64(math.MaxInt32)
	switch t.Kind {
	case ir.ScalarUint:
		lo, hi = 0, math.MaxUint32
	case ir.ScalarAbstractInt:
		lo, hi = math.MinInt64, math.MaxInt64
	}
	switch {
	case math.IsNaN(f):
		return 0
	case f <= lo:
		return int64(lo)
	case f >= hi:
		if t.Kind == ir.ScalarAbstractInt {
			return math.MaxInt64
		}
		return int64(hi)
	}
	return int64(math.Trunc(f))
}

// castValue applies castScalar componentwise for vector and matrix
// conversions such as vec3<f32>(vec3<i32>(...)).
func castValue(span wgsl.Span, v Value, dst ir.Type) Value {
	switch t := dst.(type) {
	case ir.ScalarType:
		return castScalar(span, v, t)
	case ir.VectorType, ir.MatrixType:
		if len(v.Elems) == 0 {
			faultf(span, FaultTypeMismatch, "cannot convert %s to %s", ir.TypeName(v.Type), ir.TypeName(dst))
		}
		elem := elemType(t)
		out := Value{Type: t, Elems: make([]Value, len(v.Elems))}
		for i, e := range v.Elems {
			out.Elems[i] = castValue(span, e, elem)
		}
		return out
	}
	return convert(v, dst)
}

// bitcast reinterprets the bits of a 32-bit scalar or vector.
func bitcast(span wgsl.Span, v Value, dst ir.Type) Value {
	if vt, ok := dst.(ir.VectorType); ok {
		src, isVec := v.Type.(ir.VectorType)
		if !isVec || src.Size != vt.Size {
			if ds, ok := ir.Scalar(v.Type); ok && ds.Width == 4 && vt.Scalar.Width == 2 {
				return unpackHalves(v, vt)
			}
			faultf(span, FaultTypeMismatch, "cannot bitcast %s to %s", ir.TypeName(v.Type), ir.TypeName(dst))
		}
		out := Value{Type: vt, Elems: make([]Value, vt.Size)}
		for i, e := range v.Elems {
			out.Elems[i] = bitcast(span, e, vt.Scalar)
		}
		return out
	}
	dstScalar, ok := dst.(ir.ScalarType)
	if !ok {
		faultf(span, FaultTypeMismatch, "cannot bitcast to %s", ir.TypeName(dst))
	}
	v = concretize(v)
	bits := scalarBits(v)
	switch dstScalar.Kind {
	case ir.ScalarFloat:
		return Value{Type: dstScalar, Float: float64(math.Float32frombits(bits))}
	case ir.ScalarSint:
		return Value{Type: dstScalar, Int: int64(int32(bits))} //nolint:gosec // reinterpretation
	}
	return Value{Type: dstScalar, Int: int64(bits)}
}

func scalarBits(v Value) uint32 {
	s, _ := v.Scalar()
	if s.Kind == ir.ScalarFloat {
		return math.Float32bits(float32(v.Float))
	}
	return uint32(v.Int) //nolint:gosec // two's complement
}

// unpackHalves handles bitcast<vec2<f16>>(u32).
func unpackHalves(v Value, t ir.VectorType) Value {
	bits := scalarBits(concretize(v))
	return Value{Type: t, Elems: []Value{
		{Type: t.Scalar, Float: halfToFloat(uint16(bits))},      //nolint:gosec // low half
		{Type: t.Scalar, Float: halfToFloat(uint16(bits >> 16))}, //nolint:gosec // high half
	}}
}
