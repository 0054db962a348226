package interp

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"

	"github.com/gogpu/wesl/ir"
)

// Decode reads a value of host-shareable type t from data using the
// uniform/storage memory layout. A runtime-sized array takes as many
// elements as fit in the remaining bytes.
func Decode(t ir.Type, data []byte) (Value, error) {
	n, err := safecast.Conv[uint32](len(data))
	if err != nil {
		return Value{}, fmt.Errorf("payload of %d bytes is too large", len(data))
	}
	if need := ir.Size(t); n < need {
		return Value{}, fmt.Errorf("payload of %d bytes is smaller than %s (%d bytes)", n, ir.TypeName(t), need)
	}
	return decode(t, data, 0), nil
}

func decode(t ir.Type, data []byte, off uint32) Value {
	le := binary.LittleEndian
	switch t := t.(type) {
	case ir.ScalarType:
		switch {
		case t.Width == 2:
			return Value{Type: t, Float: halfToFloat(le.Uint16(data[off:]))}
		case t.Kind == ir.ScalarSint:
			return Value{Type: t, Int: int64(int32(le.Uint32(data[off:])))} //nolint:gosec // two's complement
		case t.Kind == ir.ScalarUint:
			return Value{Type: t, Int: int64(le.Uint32(data[off:]))}
		case t.Kind == ir.ScalarFloat:
			return Value{Type: t, Float: float64(math.Float32frombits(le.Uint32(data[off:])))}
		}
		return Value{Type: t, Bool: le.Uint32(data[off:]) != 0}
	case ir.AtomicType:
		v := decode(t.Scalar, data, off)
		v.Type = t
		return v
	case ir.VectorType:
		v := Value{Type: t, Elems: make([]Value, t.Size)}
		for i := range v.Elems {
			v.Elems[i] = decode(t.Scalar, data, off+uint32(i)*uint32(t.Scalar.Width)) //nolint:gosec // at most 4
		}
		return v
	case ir.MatrixType:
		col := t.Column()
		stride := ir.ArrayStride(col)
		v := Value{Type: t, Elems: make([]Value, t.Columns)}
		for i := range v.Elems {
			v.Elems[i] = decode(col, data, off+uint32(i)*stride) //nolint:gosec // at most 4
		}
		return v
	case ir.ArrayType:
		count := t.Count
		if t.RuntimeSized() && t.Stride > 0 {
			count = (uint32(len(data)) - off) / t.Stride //nolint:gosec // checked by Decode
		}
		v := Value{Type: t, Elems: make([]Value, count)}
		for i := range v.Elems {
			v.Elems[i] = decode(t.Base, data, off+uint32(i)*t.Stride) //nolint:gosec // bounded by count
		}
		return v
	case *ir.StructType:
		v := Value{Type: t, Elems: make([]Value, len(t.Members))}
		for i, m := range t.Members {
			v.Elems[i] = decode(m.Type, data, off+m.Offset)
		}
		return v
	}
	return Value{Type: t}
}

// Encode writes v over buf using the host-shareable layout of its type.
// Padding bytes keep their previous contents. buf must be large enough.
func Encode(v Value, buf []byte) {
	encode(v, buf, 0)
}

func encode(v Value, buf []byte, off uint32) {
	le := binary.LittleEndian
	switch t := v.Type.(type) {
	case ir.ScalarType:
		switch {
		case t.Width == 2:
			le.PutUint16(buf[off:], floatToHalf(v.Float))
		case t.Kind == ir.ScalarSint, t.Kind == ir.ScalarUint:
			le.PutUint32(buf[off:], uint32(v.Int)) //nolint:gosec // two's complement
		case t.Kind == ir.ScalarFloat:
			le.PutUint32(buf[off:], math.Float32bits(float32(v.Float)))
		case t.Kind == ir.ScalarBool:
			var b uint32
			if v.Bool {
				b = 1
			}
			le.PutUint32(buf[off:], b)
		}
	case ir.AtomicType:
		le.PutUint32(buf[off:], uint32(v.Int)) //nolint:gosec // two's complement
	case ir.VectorType:
		for i, e := range v.Elems {
			encode(e, buf, off+uint32(i)*uint32(t.Scalar.Width)) //nolint:gosec // at most 4
		}
	case ir.MatrixType:
		stride := ir.ArrayStride(t.Column())
		for i, e := range v.Elems {
			encode(e, buf, off+uint32(i)*stride) //nolint:gosec // at most 4
		}
	case ir.ArrayType:
		for i, e := range v.Elems {
			encode(e, buf, off+uint32(i)*t.Stride) //nolint:gosec // bounded by the decoded count
		}
	case *ir.StructType:
		for i, e := range v.Elems {
			encode(e, buf, off+t.Members[i].Offset)
		}
	}
}

// floatToHalf converts to IEEE 754 binary16, rounding to nearest even.
func floatToHalf(x float64) uint16 {
	f := math.Float32bits(float32(x))
	sign := uint16(f>>16) & 0x8000
	biased := f >> 23 & 0xff
	mant := f & 0x7fffff
	exp := int32(biased) - 127 + 15 //nolint:gosec // 8-bit exponent
	switch {
	case f&0x7fffffff == 0:
		return sign
	case biased == 0xff:
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp) //nolint:gosec // 14..24
		h := uint16(mant >> shift) //nolint:gosec // fits in 11 bits
		rem := mant & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || rem == mid && h&1 == 1 {
			h++
		}
		return sign | h
	}
	h := sign | uint16(exp)<<10 | uint16(mant>>13) //nolint:gosec // 5-bit exponent, 10-bit mantissa
	rem := mant & 0x1fff
	if rem > 0x1000 || rem == 0x1000 && h&1 == 1 {
		h++ // a carry into the exponent rounds up to the next binade or infinity
	}
	return h
}

func halfToFloat(h uint16) float64 {
	sign := 1.0
	if h&0x8000 != 0 {
		sign = -1
	}
	exp := int(h >> 10 & 0x1f)
	mant := float64(h & 0x3ff)
	switch exp {
	case 0:
		return sign * math.Ldexp(mant, -24)
	case 0x1f:
		if mant == 0 {
			return math.Inf(int(sign))
		}
		return math.NaN()
	}
	return sign * math.Ldexp(1+mant/1024, exp-15)
}
