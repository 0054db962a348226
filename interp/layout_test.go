package interp

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wesl/ir"
)

func TestLayoutKeepsPadding(t *testing.T) {
	m := link(t, `
struct P {
    a: u32,
    b: vec4<f32>,
    c: vec3<f32>,
    d: f32,
}
`)
	d, ok := m.Lookup("P")
	require.True(t, ok)
	st, err := ir.NewTypeResolver(m).Struct(d.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(48), ir.Size(st))

	data := bytes.Repeat([]byte{0xAA}, 48)
	le := binary.LittleEndian
	le.PutUint32(data[0:], 9)
	for i, f := range []float32{1, 2, 3, 4} {
		le.PutUint32(data[16+4*i:], math.Float32bits(f))
	}
	le.PutUint32(data[44:], math.Float32bits(0.5))

	v, err := Decode(st, data)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.Elems[0].Int)
	assert.Equal(t, 3.0, v.Elems[1].Elems[2].Float)
	assert.Equal(t, 0.5, v.Elems[3].Float)

	v.Elems[0] = U32(10)
	v.Elems[3] = F32(-2)
	out := append([]byte(nil), data...)
	Encode(v, out)
	assert.Equal(t, uint32(10), le.Uint32(out[0:]))
	assert.Equal(t, math.Float32bits(-2), le.Uint32(out[44:]))
	assert.Equal(t, data[4:16], out[4:16], "padding is preserved")
	assert.Equal(t, data[16:44], out[16:44])
}

func TestDecodeRuntimeArray(t *testing.T) {
	arr := ir.ArrayType{Base: ir.U32, Stride: 4}
	v, err := Decode(arr, words(1, 2, 3))
	require.NoError(t, err)
	require.Len(t, v.Elems, 3)
	assert.Equal(t, int64(3), v.Elems[2].Int)

	_, err = Decode(ir.VectorType{Size: ir.Vec4, Scalar: ir.F32}, make([]byte, 12))
	require.Error(t, err)
}

func TestHalfConversion(t *testing.T) {
	tests := []struct {
		f    float64
		bits uint16
	}{
		{0, 0x0000},
		{1, 0x3C00},
		{-2, 0xC000},
		{65504, 0x7BFF},
		{math.Inf(1), 0x7C00},
		{math.Ldexp(1, -24), 0x0001},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.bits, floatToHalf(tt.f), "floatToHalf(%v)", tt.f)
		assert.Equal(t, tt.f, halfToFloat(tt.bits), "halfToFloat(%#04x)", tt.bits)
	}
	// Ties round to even.
	assert.Equal(t, uint16(0x3C00), floatToHalf(1+math.Ldexp(1, -11)))
}
