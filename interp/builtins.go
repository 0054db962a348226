package interp

import (
	"math"
	"math/bits"
	"strings"

	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

func (t *thread) builtin(e *wgsl.CallExpr, b *ir.Builtin) Value {
	span := e.Span
	if t.constant() && !b.Const {
		faultf(span, FaultNotConstant, "%s is not usable in a constant expression", b.Name)
	}
	if len(e.Args) < b.MinArgs || len(e.Args) > b.MaxArgs {
		faultf(span, FaultTypeMismatch, "%s expects %d to %d arguments, got %d", b.Name, b.MinArgs, b.MaxArgs, len(e.Args))
	}
	args := t.args(e.Args)
	name := b.Name

	switch {
	case strings.HasPrefix(name, "atomic"):
		return t.atomic(span, name, args)
	case strings.HasPrefix(name, "texture") && name != "textureBarrier":
		faultf(span, FaultUnsupported, "%s: texel access is not modelled by the interpreter", name)
	}

	switch name {
	case "workgroupBarrier", "storageBarrier", "textureBarrier":
		t.barrier(span)
		return Value{}
	case "workgroupUniformLoad":
		t.barrier(span)
		v := t.load(span, t.deref(span, args[0]))
		t.barrier(span)
		return v
	case "arrayLength":
		target := t.deref(span, args[0]).target()
		return U32(uint32(len(target.Elems))) //nolint:gosec // decoded from a bounded payload
	}

	v := t.math(span, name, args)
	if t.constant() {
		t.checkFinite(span, v)
	}
	return v
}

func (t *thread) checkFinite(span wgsl.Span, v Value) {
	if v.Elems != nil {
		for _, e := range v.Elems {
			t.checkFinite(span, e)
		}
		return
	}
	if s, ok := v.Scalar(); ok && s.IsFloat() {
		t.finite(span, v)
	}
}

func (t *thread) barrier(span wgsl.Span) {
	if t.inv != nil {
		t.inv.barrier(span)
	}
}

func (t *thread) atomic(span wgsl.Span, name string, args []Value) Value {
	r := t.deref(span, args[0])
	cell := r.target()
	at, ok := cell.Type.(ir.AtomicType)
	if !ok {
		faultf(span, FaultTypeMismatch, "%s needs a pointer to an atomic, found %s", name, ir.TypeName(cell.Type))
	}
	s := at.Scalar
	old := Value{Type: s, Int: cell.Int}
	if name == "atomicLoad" {
		return old
	}
	if r.Access == ir.AccessRead {
		faultf(span, FaultInvalidOperation, "%s on read-only %s memory", name, r.Space)
	}
	operand := convert(args[1], s).Int
	switch name {
	case "atomicStore":
		cell.Int = operand
		return Value{}
	case "atomicAdd":
		cell.Int = intValue(s, old.Int+operand).Int
	case "atomicSub":
		cell.Int = intValue(s, old.Int-operand).Int
	case "atomicMax":
		cell.Int = max(old.Int, operand)
	case "atomicMin":
		cell.Int = min(old.Int, operand)
	case "atomicAnd":
		cell.Int = old.Int & operand
	case "atomicOr":
		cell.Int = old.Int | operand
	case "atomicXor":
		cell.Int = intValue(s, old.Int^operand).Int
	case "atomicExchange":
		cell.Int = operand
	case "atomicCompareExchangeWeak":
		exchanged := old.Int == operand
		if exchanged {
			cell.Int = convert(args[2], s).Int
		}
		return Value{Type: ir.AtomicCompareExchangeResult(s), Elems: []Value{old, Bool(exchanged)}}
	default:
		faultf(span, FaultUnsupported, "unknown atomic builtin %s", name)
	}
	return old
}

var floatFuncs = map[string]func(float64) float64{
	"acos":        math.Acos,
	"acosh":       math.Acosh,
	"asin":        math.Asin,
	"asinh":       math.Asinh,
	"atan":        math.Atan,
	"atanh":       math.Atanh,
	"ceil":        math.Ceil,
	"cos":         math.Cos,
	"cosh":        math.Cosh,
	"degrees":     func(x float64) float64 { return x * 180 / math.Pi },
	"exp":         math.Exp,
	"exp2":        math.Exp2,
	"floor":       math.Floor,
	"fract":       func(x float64) float64 { return x - math.Floor(x) },
	"inverseSqrt": func(x float64) float64 { return 1 / math.Sqrt(x) },
	"log":         math.Log,
	"log2":        math.Log2,
	"radians":     func(x float64) float64 { return x * math.Pi / 180 },
	"round":       math.RoundToEven,
	"saturate":    func(x float64) float64 { return math.Min(math.Max(x, 0), 1) },
	"sin":         math.Sin,
	"sinh":        math.Sinh,
	"sqrt":        math.Sqrt,
	"tan":         math.Tan,
	"tanh":        math.Tanh,
	"trunc":       math.Trunc,
}

var float2Funcs = map[string]func(a, b float64) float64{
	"atan2": math.Atan2,
	"pow":   math.Pow,
	"step": func(edge, x float64) float64 {
		if edge <= x {
			return 1
		}
		return 0
	},
}

var intFuncs = map[string]func(s ir.ScalarType, x uint32) int64{
	"countOneBits":       func(_ ir.ScalarType, x uint32) int64 { return int64(bits.OnesCount32(x)) },
	"countLeadingZeros":  func(_ ir.ScalarType, x uint32) int64 { return int64(bits.LeadingZeros32(x)) },
	"countTrailingZeros": func(_ ir.ScalarType, x uint32) int64 { return int64(bits.TrailingZeros32(x)) },
	"reverseBits":        func(_ ir.ScalarType, x uint32) int64 { return int64(bits.Reverse32(x)) },
	"firstTrailingBit": func(_ ir.ScalarType, x uint32) int64 {
		if x == 0 {
			return -1
		}
		return int64(bits.TrailingZeros32(x))
	},
	"firstLeadingBit": func(s ir.ScalarType, x uint32) int64 {
		if s.Kind == ir.ScalarSint && x&0x80000000 != 0 {
			x = ^x
		}
		if x == 0 {
			return -1
		}
		return int64(31 - bits.LeadingZeros32(x))
	},
}

// math evaluates the numeric builtins.
func (t *thread) math(span wgsl.Span, name string, args []Value) Value {
	if f, ok := floatFuncs[name]; ok {
		return mapFloat(floatArg(args[0]), f)
	}
	if f, ok := float2Funcs[name]; ok {
		return componentwise(floatArgs(args), func(s ir.ScalarType, xs []Value) Value {
			return floatValue(s, f(xs[0].AsFloat(), xs[1].AsFloat()))
		})
	}
	if f, ok := intFuncs[name]; ok {
		return componentwise([]Value{concretize(args[0])}, func(s ir.ScalarType, xs []Value) Value {
			return intValue(s, f(s, uint32(xs[0].Int))) //nolint:gosec // two's complement
		})
	}

	switch name {
	case "abs":
		return componentwise(args, func(s ir.ScalarType, xs []Value) Value {
			x := xs[0]
			switch {
			case s.IsFloat():
				return floatValue(s, math.Abs(x.Float))
			case x.Int < 0:
				return intValue(s, -x.Int)
			}
			return x
		})
	case "sign":
		return componentwise(args, func(s ir.ScalarType, xs []Value) Value {
			x := xs[0].AsFloat()
			switch {
			case x > 0:
				return scalarFrom(s, 1)
			case x < 0:
				return scalarFrom(s, -1)
			}
			return scalarFrom(s, 0)
		})
	case "quantizeToF16":
		return mapFloat(args[0], func(x float64) float64 { return halfToFloat(floatToHalf(x)) })
	case "max", "min":
		return componentwise(args, func(s ir.ScalarType, xs []Value) Value {
			less := compare(wgsl.TokenLess, s, xs[0], xs[1])
			if less == (name == "min") {
				return xs[0]
			}
			return xs[1]
		})
	case "clamp":
		return componentwise(args, func(s ir.ScalarType, xs []Value) Value {
			x, lo, hi := xs[0], xs[1], xs[2]
			if compare(wgsl.TokenLess, s, x, lo) {
				x = lo
			}
			if compare(wgsl.TokenGreater, s, x, hi) {
				x = hi
			}
			return x
		})
	case "smoothstep":
		return componentwise(floatArgs(args), func(s ir.ScalarType, xs []Value) Value {
			lo, hi, x := xs[0].Float, xs[1].Float, xs[2].Float
			k := math.Min(math.Max((x-lo)/(hi-lo), 0), 1)
			return floatValue(s, k*k*(3-2*k))
		})
	case "fma":
		return componentwise(floatArgs(args), func(s ir.ScalarType, xs []Value) Value {
			return floatValue(s, math.FMA(xs[0].Float, xs[1].Float, xs[2].Float))
		})
	case "mix":
		return componentwise(floatArgs(args), func(s ir.ScalarType, xs []Value) Value {
			a, b, k := xs[0].Float, xs[1].Float, xs[2].Float
			return floatValue(s, a*(1-k)+b*k)
		})
	case "ldexp":
		x, e := floatArg(args[0]), concretize(args[1])
		if e.Elems == nil {
			return mapFloat(x, func(f float64) float64 { return math.Ldexp(f, int(e.Int)) })
		}
		s, _ := ir.Scalar(x.Type)
		out := Value{Type: x.Type, Elems: make([]Value, len(x.Elems))}
		for i := range out.Elems {
			out.Elems[i] = floatValue(s, math.Ldexp(x.Elems[i].Float, int(e.Elems[i].Int)))
		}
		return out
	case "select":
		return t.selectValue(span, args)
	case "all", "any":
		v := args[0]
		if v.Elems == nil {
			return v
		}
		want := name == "any"
		for _, e := range v.Elems {
			if e.Bool == want {
				return Bool(want)
			}
		}
		return Bool(!want)
	case "dot":
		a, b := unifyValues(args[0], args[1])
		s, _ := ir.Scalar(a.Type)
		if s.IsInteger() {
			var sum int64
			for i := range a.Elems {
				sum += a.Elems[i].Int * b.Elems[i].Int
			}
			return intValue(s, sum)
		}
		return floatValue(s, dot(a, b))
	case "length":
		v := floatArg(args[0])
		s, _ := ir.Scalar(v.Type)
		if v.Elems == nil {
			return floatValue(s, math.Abs(v.Float))
		}
		return floatValue(s, math.Sqrt(dot(v, v)))
	case "distance":
		d := t.binary(span, wgsl.TokenMinus, floatArg(args[0]), floatArg(args[1]))
		return t.math(span, "length", []Value{d})
	case "normalize":
		v := floatArg(args[0])
		n := math.Sqrt(dot(v, v))
		return mapFloat(v, func(x float64) float64 { return x / n })
	case "cross":
		a, b := unifyValues(floatArg(args[0]), floatArg(args[1]))
		s, _ := ir.Scalar(a.Type)
		x, y := a.Elems, b.Elems
		return Value{Type: a.Type, Elems: []Value{
			floatValue(s, x[1].Float*y[2].Float-x[2].Float*y[1].Float),
			floatValue(s, x[2].Float*y[0].Float-x[0].Float*y[2].Float),
			floatValue(s, x[0].Float*y[1].Float-x[1].Float*y[0].Float),
		}}
	case "reflect":
		e1, e2 := unifyValues(floatArg(args[0]), floatArg(args[1]))
		k := 2 * dot(e2, e1)
		return zipFloat(e1, e2, func(a, b float64) float64 { return a - k*b })
	case "refract":
		e1, e2 := unifyValues(floatArg(args[0]), floatArg(args[1]))
		eta := floatArg(args[2]).AsFloat()
		d := dot(e2, e1)
		k := 1 - eta*eta*(1-d*d)
		if k < 0 {
			return mapFloat(e1, func(float64) float64 { return 0 })
		}
		return zipFloat(e1, e2, func(a, b float64) float64 { return eta*a - (eta*d+math.Sqrt(k))*b })
	case "faceForward":
		vals := unifyAll(floatArgs(args))
		if dot(vals[1], vals[2]) < 0 {
			return vals[0]
		}
		return t.unary(span, wgsl.TokenMinus, vals[0])
	case "determinant":
		m := floatArg(args[0])
		s, _ := ir.Scalar(m.Type)
		return floatValue(s, determinant(matrixRows(m)))
	case "transpose":
		return transpose(args[0])
	case "extractBits":
		return t.extractBits(concretize(args[0]), uint32(args[1].Int), uint32(args[2].Int)) //nolint:gosec // u32 operands
	case "insertBits":
		return t.insertBits(unifyAll(args[:2]), uint32(args[2].Int), uint32(args[3].Int)) //nolint:gosec // u32 operands
	case "dot4U8Packed", "dot4I8Packed":
		a, b := uint32(args[0].Int), uint32(args[1].Int) //nolint:gosec // u32 operands
		var sum int64
		for i := 0; i < 32; i += 8 {
			x, y := int64(a>>i&0xff), int64(b>>i&0xff)
			if name == "dot4I8Packed" {
				x, y = int64(int8(x)), int64(int8(y)) //nolint:gosec // sign extension
			}
			sum += x * y
		}
		if name == "dot4I8Packed" {
			return intValue(ir.I32, sum)
		}
		return intValue(ir.U32, sum)
	}
	if v, ok := pack(name, args[0]); ok {
		return v
	}
	faultf(span, FaultUnsupported, "builtin %s is not supported", name)
	return Value{}
}

func (t *thread) selectValue(span wgsl.Span, args []Value) Value {
	f, tr := unifyValues(args[0], args[1])
	cond := args[2]
	if cond.Elems == nil {
		if cond.Bool {
			return tr
		}
		return f
	}
	if len(f.Elems) != len(cond.Elems) {
		faultf(span, FaultTypeMismatch, "select: condition has %d components, operands have %d", len(cond.Elems), len(f.Elems))
	}
	out := Value{Type: f.Type, Elems: make([]Value, len(f.Elems))}
	for i, c := range cond.Elems {
		if c.Bool {
			out.Elems[i] = tr.Elems[i]
		} else {
			out.Elems[i] = f.Elems[i]
		}
	}
	return out
}

func (t *thread) extractBits(e Value, offset, count uint32) Value {
	o := min(offset, 32)
	c := min(count, 32-o)
	return componentwise([]Value{e}, func(s ir.ScalarType, xs []Value) Value {
		if c == 0 {
			return intValue(s, 0)
		}
		x := uint32(xs[0].Int) >> o //nolint:gosec // two's complement
		x &= uint32(uint64(1)<<c - 1)
		if s.Kind == ir.ScalarSint && x>>(c-1)&1 == 1 {
			x |= ^uint32(uint64(1)<<c - 1)
		}
		return intValue(s, int64(x))
	})
}

func (t *thread) insertBits(vals []Value, offset, count uint32) Value {
	o := min(offset, 32)
	c := min(count, 32-o)
	mask := uint32((uint64(1)<<c - 1) << o)
	return componentwise(vals, func(s ir.ScalarType, xs []Value) Value {
		e, nb := uint32(xs[0].Int), uint32(xs[1].Int) //nolint:gosec // two's complement
		return intValue(s, int64(e&^mask|nb<<o&mask))
	})
}

// componentwise applies f to matching scalar components of args after
// converting them to a common type. Scalar arguments are splatted against
// vector ones.
func componentwise(args []Value, f func(s ir.ScalarType, xs []Value) Value) Value {
	args = unifyAll(args)
	var vec ir.VectorType
	isVec := false
	for _, a := range args {
		if vt, ok := a.Type.(ir.VectorType); ok {
			vec, isVec = vt, true
			break
		}
	}
	if !isVec {
		s, _ := args[0].Scalar()
		return f(s, args)
	}
	out := Value{Elems: make([]Value, vec.Size)}
	xs := make([]Value, len(args))
	for i := range out.Elems {
		for j, a := range args {
			if a.Elems != nil {
				xs[j] = a.Elems[i]
			} else {
				xs[j] = convert(a, vec.Scalar)
			}
		}
		s, _ := xs[0].Scalar()
		out.Elems[i] = f(s, xs)
	}
	rs, _ := out.Elems[0].Scalar()
	out.Type = ir.VectorType{Size: vec.Size, Scalar: rs}
	return out
}

// floatArg converts abstract integers to abstract floats for builtins
// defined only on floating point.
func floatArg(v Value) Value {
	if s, ok := ir.Scalar(v.Type); ok && s.Kind == ir.ScalarAbstractInt {
		return convert(v, ir.WithScalar(v.Type, ir.AbstractFloat))
	}
	return v
}

func floatArgs(args []Value) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = floatArg(a)
	}
	return out
}

func mapFloat(v Value, f func(float64) float64) Value {
	if v.Elems != nil {
		out := Value{Type: v.Type, Elems: make([]Value, len(v.Elems))}
		for i, e := range v.Elems {
			out.Elems[i] = mapFloat(e, f)
		}
		return out
	}
	s, _ := v.Scalar()
	return floatValue(s, f(v.Float))
}

func zipFloat(a, b Value, f func(x, y float64) float64) Value {
	s, _ := ir.Scalar(a.Type)
	out := Value{Type: a.Type, Elems: make([]Value, len(a.Elems))}
	for i := range a.Elems {
		out.Elems[i] = floatValue(s, f(a.Elems[i].Float, b.Elems[i].Float))
	}
	return out
}

// matrixRows returns a square matrix as row-major float64s.
func matrixRows(m Value) [][]float64 {
	n := len(m.Elems)
	rows := make([][]float64, n)
	for r := range rows {
		rows[r] = make([]float64, n)
		for c := range rows[r] {
			rows[r][c] = m.Elems[c].Elems[r].Float
		}
	}
	return rows
}

func determinant(a [][]float64) float64 {
	switch len(a) {
	case 1:
		return a[0][0]
	case 2:
		return a[0][0]*a[1][1] - a[0][1]*a[1][0]
	}
	var det float64
	sign := 1.0
	for c := range a[0] {
		minor := make([][]float64, 0, len(a)-1)
		for _, row := range a[1:] {
			m := make([]float64, 0, len(row)-1)
			m = append(m, row[:c]...)
			m = append(m, row[c+1:]...)
			minor = append(minor, m)
		}
		det += sign * a[0][c] * determinant(minor)
		sign = -sign
	}
	return det
}

func transpose(m Value) Value {
	mt := m.Type.(ir.MatrixType)
	out := Value{
		Type:  ir.MatrixType{Columns: mt.Rows, Rows: mt.Columns, Scalar: mt.Scalar},
		Elems: make([]Value, mt.Rows),
	}
	col := ir.VectorType{Size: mt.Columns, Scalar: mt.Scalar}
	for r := range out.Elems {
		v := Value{Type: col, Elems: make([]Value, mt.Columns)}
		for c := range v.Elems {
			v.Elems[c] = m.Elems[c].Elems[r]
		}
		out.Elems[r] = v
	}
	return out
}

var packScales = map[string]struct {
	lanes    int
	width    uint
	lo, hi   float64
	scale    float64
	unpacked bool
}{
	"pack4x8snorm":    {4, 8, -1, 1, 127, false},
	"pack4x8unorm":    {4, 8, 0, 1, 255, false},
	"pack2x16snorm":   {2, 16, -1, 1, 32767, false},
	"pack2x16unorm":   {2, 16, 0, 1, 65535, false},
	"unpack4x8snorm":  {4, 8, -1, 1, 127, true},
	"unpack4x8unorm":  {4, 8, 0, 1, 255, true},
	"unpack2x16snorm": {2, 16, -1, 1, 32767, true},
	"unpack2x16unorm": {2, 16, 0, 1, 65535, true},
}

// pack implements the pack and unpack builtins.
func pack(name string, v Value) (Value, bool) {
	switch name {
	case "pack2x16float":
		lo := uint32(floatToHalf(v.Elems[0].AsFloat()))
		hi := uint32(floatToHalf(v.Elems[1].AsFloat()))
		return U32(lo | hi<<16), true
	case "unpack2x16float":
		x := uint32(v.Int) //nolint:gosec // u32 operand
		vec2 := ir.VectorType{Size: ir.Vec2, Scalar: ir.F32}
		return Value{Type: vec2, Elems: []Value{
			floatValue(ir.F32, halfToFloat(uint16(x))),     //nolint:gosec // low half
			floatValue(ir.F32, halfToFloat(uint16(x>>16))), //nolint:gosec // high half
		}}, true
	}
	p, ok := packScales[name]
	if !ok {
		return Value{}, false
	}
	mask := uint32(1)<<p.width - 1
	if p.unpacked {
		x := uint32(v.Int) //nolint:gosec // u32 operand
		vt := ir.VectorType{Size: ir.VectorSize(p.lanes), Scalar: ir.F32} //nolint:gosec // 2 or 4
		out := Value{Type: vt, Elems: make([]Value, p.lanes)}
		for i := range out.Elems {
			lane := x >> (uint(i) * p.width) & mask
			f := float64(lane)
			if p.lo < 0 {
				// sign-extend the lane
				f = float64(int32(lane<<(32-p.width)) >> (32 - p.width)) //nolint:gosec // sign extension
			}
			out.Elems[i] = floatValue(ir.F32, math.Max(f/p.scale, p.lo))
		}
		return out, true
	}
	var packed uint32
	for i, e := range v.Elems {
		f := math.RoundToEven(math.Min(math.Max(e.AsFloat(), p.lo), p.hi) * p.scale)
		lane := uint32(int32(f)) & mask //nolint:gosec // lane-sized value
		packed |= lane << (uint(i) * p.width)
	}
	return U32(packed), true
}
