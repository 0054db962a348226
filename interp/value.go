package interp

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/wesl/ir"
)

// Value is a runtime value. Scalars use Int (integers, atomics), Float
// (floating point) or Bool; vectors, matrices (as columns), arrays and
// structs hold their components in Elems; pointers hold Ref. Texture and
// sampler handles carry only their type.
type Value struct {
	Type  ir.Type
	Int   int64
	Float float64
	Bool  bool
	Elems []Value
	Ref   *Ref
}

// Bool returns a bool value.
func Bool(b bool) Value { return Value{Type: ir.Bool, Bool: b} }

// I32 returns an i32 value.
func I32(v int32) Value { return Value{Type: ir.I32, Int: int64(v)} }

// U32 returns a u32 value.
func U32(v uint32) Value { return Value{Type: ir.U32, Int: int64(v)} }

// F32 returns an f32 value.
func F32(v float32) Value { return Value{Type: ir.F32, Float: float64(v)} }

// AbstractInt returns an abstract integer value.
func AbstractInt(v int64) Value { return Value{Type: ir.AbstractInt, Int: v} }

// AbstractFloat returns an abstract float value.
func AbstractFloat(v float64) Value { return Value{Type: ir.AbstractFloat, Float: v} }

// intValue wraps x into the range of integer type t.
func intValue(t ir.ScalarType, x int64) Value {
	switch t.Kind {
	case ir.ScalarSint:
		x = int64(int32(x)) //nolint:gosec // wrapping is the i32 semantics
	case ir.ScalarUint:
		x = int64(uint32(x)) //nolint:gosec // wrapping is the u32 semantics
	}
	return Value{Type: t, Int: x}
}

// floatValue rounds x to the precision of float type t.
func floatValue(t ir.ScalarType, x float64) Value {
	switch {
	case t.Kind == ir.ScalarAbstractFloat:
	case t.Width == 2:
		x = halfToFloat(floatToHalf(x))
	default:
		x = float64(float32(x))
	}
	return Value{Type: t, Float: x}
}

// scalarFrom builds a scalar of type t from a float64, used by builtins
// that compute in float64.
func scalarFrom(t ir.ScalarType, x float64) Value {
	switch {
	case t.IsFloat():
		return floatValue(t, x)
	case t.Kind == ir.ScalarBool:
		return Bool(x != 0)
	}
	return intValue(t, int64(x))
}

// Zero returns the zero value of t.
func Zero(t ir.Type) Value {
	switch t := t.(type) {
	case ir.VectorType:
		v := Value{Type: t, Elems: make([]Value, t.Size)}
		for i := range v.Elems {
			v.Elems[i] = Zero(t.Scalar)
		}
		return v
	case ir.MatrixType:
		v := Value{Type: t, Elems: make([]Value, t.Columns)}
		for i := range v.Elems {
			v.Elems[i] = Zero(t.Column())
		}
		return v
	case ir.ArrayType:
		v := Value{Type: t, Elems: make([]Value, t.Count)}
		for i := range v.Elems {
			v.Elems[i] = Zero(t.Base)
		}
		return v
	case *ir.StructType:
		v := Value{Type: t, Elems: make([]Value, len(t.Members))}
		for i, m := range t.Members {
			v.Elems[i] = Zero(m.Type)
		}
		return v
	}
	return Value{Type: t}
}

// Clone returns a deep copy of v. Pointers keep referring to the same
// memory.
func (v Value) Clone() Value {
	if v.Elems == nil {
		return v
	}
	out := v
	out.Elems = make([]Value, len(v.Elems))
	for i, e := range v.Elems {
		out.Elems[i] = e.Clone()
	}
	return out
}

// Scalar returns the scalar type of a scalar value.
func (v Value) Scalar() (ir.ScalarType, bool) {
	s, ok := v.Type.(ir.ScalarType)
	return s, ok
}

// AsFloat returns a numeric scalar as float64.
func (v Value) AsFloat() float64 {
	if s, ok := v.Scalar(); ok {
		switch {
		case s.IsFloat():
			return v.Float
		case s.Kind == ir.ScalarBool:
			if v.Bool {
				return 1
			}
			return 0
		}
	}
	return float64(v.Int)
}

// Equal reports whether two values have the same type and contents.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || len(v.Elems) != len(o.Elems) {
		return false
	}
	if v.Elems != nil {
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	}
	return v.Int == o.Int && v.Bool == o.Bool && v.Ref == o.Ref &&
		(v.Float == o.Float || math.IsNaN(v.Float) && math.IsNaN(o.Float))
}

// String renders v as a WGSL expression that evaluates to v.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch t := v.Type.(type) {
	case ir.ScalarType:
		sb.WriteString(scalarText(t, v))
	case ir.AtomicType:
		sb.WriteString(scalarText(t.Scalar, v))
	case ir.VectorType:
		if t.Scalar.IsAbstract() {
			sb.WriteString("vec" + strconv.Itoa(int(t.Size)))
		} else {
			sb.WriteString(ir.TypeName(t))
		}
		v.writeElems(sb)
	case ir.MatrixType:
		if t.Scalar.IsAbstract() {
			sb.WriteString("mat" + strconv.Itoa(int(t.Columns)) + "x" + strconv.Itoa(int(t.Rows)))
		} else {
			sb.WriteString(ir.TypeName(t))
		}
		v.writeElems(sb)
	case ir.ArrayType:
		if ir.IsAbstract(t) || t.RuntimeSized() {
			sb.WriteString("array")
		} else {
			sb.WriteString(ir.TypeName(t))
		}
		v.writeElems(sb)
	case *ir.StructType:
		sb.WriteString(t.Name)
		v.writeElems(sb)
	case ir.PointerType:
		sb.WriteString("&<")
		sb.WriteString(ir.TypeName(t.Base))
		sb.WriteString(">")
	default:
		sb.WriteString(ir.TypeName(v.Type))
	}
}

func (v Value) writeElems(sb *strings.Builder) {
	sb.WriteByte('(')
	for i, e := range v.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		e.write(sb)
	}
	sb.WriteByte(')')
}

func scalarText(t ir.ScalarType, v Value) string {
	switch t.Kind {
	case ir.ScalarBool:
		return strconv.FormatBool(v.Bool)
	case ir.ScalarSint:
		return strconv.FormatInt(v.Int, 10) + "i"
	case ir.ScalarUint:
		return strconv.FormatInt(v.Int, 10) + "u"
	case ir.ScalarAbstractInt:
		return strconv.FormatInt(v.Int, 10)
	case ir.ScalarFloat:
		if t.Width == 2 {
			return strconv.FormatFloat(v.Float, 'g', -1, 32) + "h"
		}
		return strconv.FormatFloat(v.Float, 'g', -1, 32) + "f"
	}
	s := strconv.FormatFloat(v.Float, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
