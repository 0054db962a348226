package interp

import (
	"math"

	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// binary evaluates every binary operator except && and ||, which
// short-circuit and are handled by the expression evaluator.
func (t *thread) binary(span wgsl.Span, op wgsl.TokenKind, l, r Value) Value {
	switch op {
	case wgsl.TokenStar:
		if v, ok := t.matrixProduct(span, l, r); ok {
			return v
		}
	case wgsl.TokenLessLess, wgsl.TokenGreaterGreater:
		return t.shift(span, op, l, r)
	}

	l, r = unifyValues(l, r)
	lv, lVec := l.Type.(ir.VectorType)
	rv, rVec := r.Type.(ir.VectorType)
	switch {
	case lVec && !rVec && r.Elems == nil:
		r = splat(r, lv)
	case rVec && !lVec && l.Elems == nil:
		l = splat(l, rv)
	}

	if l.Elems != nil || r.Elems != nil {
		if len(l.Elems) != len(r.Elems) {
			faultf(span, FaultTypeMismatch, "invalid operands to binary %s: %s and %s", op, ir.TypeName(l.Type), ir.TypeName(r.Type))
		}
		out := Value{Type: l.Type, Elems: make([]Value, len(l.Elems))}
		for i := range l.Elems {
			out.Elems[i] = t.binary(span, op, l.Elems[i], r.Elems[i])
		}
		if vt, ok := l.Type.(ir.VectorType); ok && isComparison(op) {
			out.Type = ir.VectorType{Size: vt.Size, Scalar: ir.Bool}
		}
		return out
	}
	return t.scalarBinary(span, op, l, r)
}

func isComparison(op wgsl.TokenKind) bool {
	switch op {
	case wgsl.TokenEqualEqual, wgsl.TokenBangEqual, wgsl.TokenLess,
		wgsl.TokenLessEqual, wgsl.TokenGreater, wgsl.TokenGreaterEqual:
		return true
	}
	return false
}

func (t *thread) scalarBinary(span wgsl.Span, op wgsl.TokenKind, a, b Value) Value {
	s, ok := a.Scalar()
	if !ok || a.Type != b.Type {
		faultf(span, FaultTypeMismatch, "invalid operands to binary %s: %s and %s", op, ir.TypeName(a.Type), ir.TypeName(b.Type))
	}
	if isComparison(op) {
		return Bool(compare(op, s, a, b))
	}
	switch {
	case s.Kind == ir.ScalarBool:
		switch op {
		case wgsl.TokenAmpersand:
			return Bool(a.Bool && b.Bool)
		case wgsl.TokenPipe:
			return Bool(a.Bool || b.Bool)
		case wgsl.TokenCaret:
			return Bool(a.Bool != b.Bool)
		}
	case s.IsFloat():
		return t.floatBinary(span, op, s, a.Float, b.Float)
	default:
		return t.intBinary(span, op, s, a.Int, b.Int)
	}
	faultf(span, FaultTypeMismatch, "invalid operands to binary %s: %s and %s", op, s, s)
	return Value{}
}

func compare(op wgsl.TokenKind, s ir.ScalarType, a, b Value) bool {
	var c int
	switch {
	case s.Kind == ir.ScalarBool:
		eq := a.Bool == b.Bool
		if op == wgsl.TokenBangEqual {
			return !eq
		}
		return eq
	case s.IsFloat():
		if math.IsNaN(a.Float) || math.IsNaN(b.Float) {
			return op == wgsl.TokenBangEqual
		}
		c = cmpOrdered(a.Float, b.Float)
	default:
		c = cmpOrdered(a.Int, b.Int)
	}
	switch op {
	case wgsl.TokenEqualEqual:
		return c == 0
	case wgsl.TokenBangEqual:
		return c != 0
	case wgsl.TokenLess:
		return c < 0
	case wgsl.TokenLessEqual:
		return c <= 0
	case wgsl.TokenGreater:
		return c > 0
	}
	return c >= 0
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (t *thread) floatBinary(span wgsl.Span, op wgsl.TokenKind, s ir.ScalarType, x, y float64) Value {
	var r float64
	switch op {
	case wgsl.TokenPlus:
		r = x + y
	case wgsl.TokenMinus:
		r = x - y
	case wgsl.TokenStar:
		r = x * y
	case wgsl.TokenSlash:
		r = x / y
	case wgsl.TokenPercent:
		r = math.Mod(x, y)
	default:
		faultf(span, FaultTypeMismatch, "operator %s does not apply to %s", op, s)
	}
	return t.finite(span, floatValue(s, r))
}

// finite rejects infinities and NaNs produced while evaluating a constant.
func (t *thread) finite(span wgsl.Span, v Value) Value {
	if t.constant() && (math.IsInf(v.Float, 0) || math.IsNaN(v.Float)) {
		faultf(span, FaultOverflow, "constant expression is not finite in %s", ir.TypeName(v.Type))
	}
	return v
}

func (t *thread) intBinary(span wgsl.Span, op wgsl.TokenKind, s ir.ScalarType, x, y int64) Value {
	var r int64
	switch op {
	case wgsl.TokenPlus:
		r = x + y
	case wgsl.TokenMinus:
		r = x - y
	case wgsl.TokenStar:
		r = x * y
	case wgsl.TokenSlash, wgsl.TokenPercent:
		if y == 0 {
			if t.constant() {
				faultf(span, FaultDivisionByZero, "integer division by zero")
			}
			if op == wgsl.TokenSlash {
				return intValue(s, x)
			}
			return intValue(s, 0)
		}
		if y == -1 && (s.Kind == ir.ScalarSint && x == math.MinInt32 || x == math.MinInt64) {
			if t.constant() {
				faultf(span, FaultOverflow, "%d %s -1 overflows %s", x, op, s)
			}
			if op == wgsl.TokenSlash {
				return intValue(s, x)
			}
			return intValue(s, 0)
		}
		if op == wgsl.TokenSlash {
			r = x / y
		} else {
			r = x % y
		}
	case wgsl.TokenAmpersand:
		r = x & y
	case wgsl.TokenPipe:
		r = x | y
	case wgsl.TokenCaret:
		r = x ^ y
	default:
		faultf(span, FaultTypeMismatch, "operator %s does not apply to %s", op, s)
	}
	if t.constant() && overflows(op, s, x, y, r) {
		faultf(span, FaultOverflow, "%d %s %d overflows %s", x, op, y, s)
	}
	return intValue(s, r)
}

// overflows reports whether the exact result of x op y does not fit s.
func overflows(op wgsl.TokenKind, s ir.ScalarType, x, y, r int64) bool {
	switch s.Kind {
	case ir.ScalarSint:
		return r != int64(int32(r)) //nolint:gosec // range check
	case ir.ScalarUint:
		return r < 0 || r > math.MaxUint32
	case ir.ScalarAbstractInt:
		switch op {
		case wgsl.TokenPlus:
			return (y > 0 && x > math.MaxInt64-y) || (y < 0 && x < math.MinInt64-y)
		case wgsl.TokenMinus:
			return (y < 0 && x > math.MaxInt64+y) || (y > 0 && x < math.MinInt64+y)
		case wgsl.TokenStar:
			return x != 0 && (r/x != y || (x == -1 && y == math.MinInt64))
		}
	}
	return false
}

func (t *thread) shift(span wgsl.Span, op wgsl.TokenKind, l, r Value) Value {
	if lv, ok := l.Type.(ir.VectorType); ok {
		if r.Elems == nil {
			r = splat(r, ir.VectorType{Size: lv.Size, Scalar: ir.U32})
		}
		out := Value{Type: l.Type, Elems: make([]Value, len(l.Elems))}
		for i := range l.Elems {
			out.Elems[i] = t.shift(span, op, l.Elems[i], r.Elems[i])
		}
		return out
	}
	s, ok := l.Scalar()
	if !ok || !s.IsInteger() {
		faultf(span, FaultTypeMismatch, "invalid operands to %s: %s and %s", op, ir.TypeName(l.Type), ir.TypeName(r.Type))
	}
	n := r.Int
	width := int64(32)
	if s.Kind == ir.ScalarAbstractInt {
		width = 64
	}
	if n < 0 || n >= width {
		if t.constant() || s.Kind == ir.ScalarAbstractInt {
			faultf(span, FaultInvalidArgument, "shift amount %d is not less than %d", n, width)
		}
		n &= width - 1
	}
	x := l.Int
	if op == wgsl.TokenGreaterGreater {
		return intValue(s, x>>uint64(n)) //nolint:gosec // n in [0, width)
	}
	res := x << uint64(n) //nolint:gosec // n in [0, width)
	if t.constant() {
		switch s.Kind {
		case ir.ScalarAbstractInt:
			if res>>uint64(n) != x { //nolint:gosec // n in [0, width)
				faultf(span, FaultOverflow, "%d << %d overflows %s", x, n, s)
			}
		case ir.ScalarUint:
			if res > math.MaxUint32 {
				faultf(span, FaultOverflow, "%d << %d overflows %s", x, n, s)
			}
		}
	}
	return intValue(s, res)
}

// matrixProduct handles the products involving a matrix operand.
func (t *thread) matrixProduct(span wgsl.Span, l, r Value) (Value, bool) {
	lm, lok := l.Type.(ir.MatrixType)
	rm, rok := r.Type.(ir.MatrixType)
	switch {
	case lok && rok:
		if lm.Columns != rm.Rows {
			faultf(span, FaultTypeMismatch, "cannot multiply %s by %s", lm, rm)
		}
		s := productScalar(lm.Scalar, rm.Scalar)
		out := Value{Type: ir.MatrixType{Columns: rm.Columns, Rows: lm.Rows, Scalar: s}, Elems: make([]Value, rm.Columns)}
		for j, col := range r.Elems {
			out.Elems[j] = matVec(l, col, s)
		}
		return out, true
	case lok:
		if v, ok := r.Type.(ir.VectorType); ok {
			if v.Size != lm.Columns {
				faultf(span, FaultTypeMismatch, "cannot multiply %s by %s", lm, v)
			}
			return matVec(l, r, productScalar(lm.Scalar, v.Scalar)), true
		}
		if r.Elems == nil {
			return t.scaleMatrix(span, l, r), true
		}
	case rok:
		if v, ok := l.Type.(ir.VectorType); ok {
			if v.Size != rm.Rows {
				faultf(span, FaultTypeMismatch, "cannot multiply %s by %s", v, rm)
			}
			s := productScalar(rm.Scalar, v.Scalar)
			out := Value{Type: ir.VectorType{Size: rm.Columns, Scalar: s}, Elems: make([]Value, rm.Columns)}
			for j, col := range r.Elems {
				out.Elems[j] = floatValue(s, dot(l, col))
			}
			return out, true
		}
		if l.Elems == nil {
			return t.scaleMatrix(span, r, l), true
		}
	}
	return Value{}, false
}

func (t *thread) scaleMatrix(span wgsl.Span, m, s Value) Value {
	out := Value{Type: m.Type, Elems: make([]Value, len(m.Elems))}
	for i, col := range m.Elems {
		out.Elems[i] = t.binary(span, wgsl.TokenStar, col, s)
	}
	if mt := m.Type.(ir.MatrixType); mt.Scalar.IsAbstract() {
		if sc, ok := s.Scalar(); ok && !sc.IsAbstract() {
			mt.Scalar = sc
			out.Type = mt
		}
	}
	return out
}

// productScalar picks the concrete scalar of a mixed abstract product.
func productScalar(a, b ir.ScalarType) ir.ScalarType {
	if a.IsAbstract() {
		return b
	}
	return a
}

// matVec multiplies matrix m by column vector v.
func matVec(m, v Value, s ir.ScalarType) Value {
	mt := m.Type.(ir.MatrixType)
	out := Value{Type: ir.VectorType{Size: mt.Rows, Scalar: s}, Elems: make([]Value, mt.Rows)}
	for row := range out.Elems {
		var sum float64
		for k, col := range m.Elems {
			sum += col.Elems[row].AsFloat() * v.Elems[k].AsFloat()
		}
		out.Elems[row] = floatValue(s, sum)
	}
	return out
}

func dot(a, b Value) float64 {
	var sum float64
	for i := range a.Elems {
		sum += a.Elems[i].AsFloat() * b.Elems[i].AsFloat()
	}
	return sum
}

func (t *thread) unary(span wgsl.Span, op wgsl.TokenKind, v Value) Value {
	if v.Elems != nil {
		out := Value{Type: v.Type, Elems: make([]Value, len(v.Elems))}
		for i, e := range v.Elems {
			out.Elems[i] = t.unary(span, op, e)
		}
		return out
	}
	s, ok := v.Scalar()
	if !ok {
		faultf(span, FaultTypeMismatch, "invalid operand to unary %s: %s", op, ir.TypeName(v.Type))
	}
	switch op {
	case wgsl.TokenMinus:
		if s.IsFloat() {
			return floatValue(s, -v.Float)
		}
		if t.constant() && (s.Kind == ir.ScalarSint && v.Int == math.MinInt32 || v.Int == math.MinInt64) {
			faultf(span, FaultOverflow, "-(%d) overflows %s", v.Int, s)
		}
		return intValue(s, -v.Int)
	case wgsl.TokenBang:
		return Bool(!v.Bool)
	case wgsl.TokenTilde:
		return intValue(s, ^v.Int)
	}
	faultf(span, FaultTypeMismatch, "invalid unary operator %s", op)
	return Value{}
}
