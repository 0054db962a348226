package interp

import (
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// Unwrap lets callers test for ir.ErrNotConstant with errors.Is.
func (f *Fault) Unwrap() error {
	if f.Code == FaultNotConstant {
		return ir.ErrNotConstant
	}
	return nil
}

// Evaluator evaluates constant expressions of a linked module. Values of
// const declarations are cached across calls.
type Evaluator struct {
	m *Machine
}

var _ ir.ConstEvaluator = (*Evaluator)(nil)

// NewEvaluator returns an evaluator for m.
func NewEvaluator(m *ir.Module) *Evaluator {
	return &Evaluator{m: newMachine(m)}
}

// EvalConst evaluates e as a constant expression. Abstract results stay
// abstract.
func (ev *Evaluator) EvalConst(e wgsl.Expr) (v Value, err error) {
	defer catch(&err)
	return ev.m.newThread(modeConst).eval(e), nil
}

// EvalConstBool evaluates a boolean constant expression.
func (ev *Evaluator) EvalConstBool(e wgsl.Expr) (bool, error) {
	v, err := ev.EvalConst(e)
	if err != nil {
		return false, err
	}
	if v.Type != ir.Bool {
		return false, &Fault{
			Code:       FaultTypeMismatch,
			Message:    "expected bool, found " + ir.TypeName(v.Type),
			Span:       e.Pos(),
			Invocation: -1,
		}
	}
	return v.Bool, nil
}

// Decl returns the value of a const declaration.
func (ev *Evaluator) Decl(d *ir.Decl) (v Value, err error) {
	defer catch(&err)
	if _, ok := d.Node.(*wgsl.ConstDecl); !ok {
		faultf(d.Span(), FaultNotConstant, "%s is not a const declaration", d.ShortName)
	}
	return ev.m.declValue(d, d.Span()), nil
}
