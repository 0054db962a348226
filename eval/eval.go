// Package eval evaluates a single constant expression in the context of a
// linked module and renders the value as WGSL text.
//
// The expression is parsed in the pseudo-file File, linked as a synthetic
// const declaration of the root module (see resolve.ResolveExpression) and
// carried through the rest of the pipeline like any other declaration.
package eval

import (
	"errors"

	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/interp"
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// File is the name diagnostics use for the expression text.
const File = "<expression>"

// Parse parses expression text.
func Parse(text string) (wgsl.Expr, *diag.Error) {
	e, err := wgsl.ParseExpression(File, text)
	if err == nil {
		return e, nil
	}
	var se wgsl.SourceErrors
	if errors.As(err, &se) {
		return nil, diag.NewError("eval", "invalid expression", diag.FromSourceErrors(se))
	}
	return nil, diag.ErrorNoPos("eval", "invalid expression: %v", err)
}

// Value evaluates the declaration id of m, which must be a const.
func Value(m *ir.Module, id wgsl.DeclID) (interp.Value, *diag.Error) {
	d := m.Decl(id)
	if d == nil {
		return interp.Value{}, diag.ErrorNoPos("eval", "expression was removed from the module")
	}
	v, err := interp.NewEvaluator(m).Decl(d)
	if err == nil {
		return v, nil
	}
	var f *interp.Fault
	if !errors.As(err, &f) {
		return interp.Value{}, diag.ErrorNoPos("eval", "%v", err)
	}
	if f.Span.Source == "" {
		f.Span = d.Span()
	}
	msg := "evaluation failed"
	if errors.Is(err, ir.ErrNotConstant) {
		msg = "not a constant expression"
	}
	return interp.Value{}, diag.NewError("eval", msg, diag.List{f.Diagnostic()})
}

// Render evaluates the declaration id of m and formats the result.
func Render(m *ir.Module, id wgsl.DeclID) (string, *diag.Error) {
	v, err := Value(m, id)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}
