package wesl

import (
	"github.com/gogpu/wesl/condcomp"
	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/interp"
	"github.com/gogpu/wesl/ir"
)

// Error is the failure type of every operation in this package. Source
// names the stage that failed.
type Error = diag.Error

// Diagnostic is one positioned message inside an Error.
type Diagnostic = diag.Diagnostic

// SourceMap maps ranges of compiled text back to the original sources.
type SourceMap = diag.SourceMap

// Features maps feature names to their value for @if predicates. Absent
// names are false.
type Features = condcomp.Features

// BindingKind describes how a resource is bound.
type BindingKind = ir.BindingKind

// Binding kinds. The numbering is stable.
const (
	BindingUniform           = ir.BindingUniform
	BindingStorage           = ir.BindingStorage
	BindingReadOnlyStorage   = ir.BindingReadOnlyStorage
	BindingFiltering         = ir.BindingFiltering
	BindingNonFiltering      = ir.BindingNonFiltering
	BindingComparison        = ir.BindingComparison
	BindingFloat             = ir.BindingFloat
	BindingUnfilterableFloat = ir.BindingUnfilterableFloat
	BindingSint              = ir.BindingSint
	BindingUint              = ir.BindingUint
	BindingDepth             = ir.BindingDepth
	BindingWriteOnly         = ir.BindingWriteOnly
	BindingReadWrite         = ir.BindingReadWrite
	BindingReadOnly          = ir.BindingReadOnly
)

// Binding is one resource slot supplied to Exec. Data holds the
// host-shareable bytes of a buffer and is ignored for samplers and
// textures.
type Binding struct {
	Group   uint32      `json:"group" msgpack:"group"`
	Binding uint32      `json:"binding" msgpack:"binding"`
	Kind    BindingKind `json:"kind" msgpack:"kind"`
	Data    []byte      `json:"data" msgpack:"data"`
}

// Output is a successful compilation.
type Output struct {
	Text string
	// SourceMap is set when CompileOptions.SourceMap is.
	SourceMap *SourceMap
	// Warnings are the non-fatal diagnostics of every stage.
	Warnings []Diagnostic
}

// Result is the serialisable outcome of Compile or Eval. Exactly one of
// Data and Error is meaningful, as told by Success.
type Result struct {
	Success   bool       `json:"success" msgpack:"success"`
	Data      string     `json:"data,omitempty" msgpack:"data,omitempty"`
	SourceMap *SourceMap `json:"sourcemap,omitempty" msgpack:"sourcemap,omitempty"`
	Error     *Error     `json:"error,omitempty" msgpack:"error,omitempty"`
}

// ExecResult is the serialisable outcome of Exec.
type ExecResult struct {
	Success   bool      `json:"success" msgpack:"success"`
	Resources []Binding `json:"resources,omitempty" msgpack:"resources,omitempty"`
	Error     *Error    `json:"error,omitempty" msgpack:"error,omitempty"`
}

// NewResult packs the return values of Compile into a Result.
func NewResult(out *Output, err error) Result {
	if err != nil {
		return Result{Error: asError("compile", err)}
	}
	return Result{Success: true, Data: out.Text, SourceMap: out.SourceMap}
}

// NewEvalResult packs the return values of Eval into a Result.
func NewEvalResult(value string, err error) Result {
	if err != nil {
		return Result{Error: asError("eval", err)}
	}
	return Result{Success: true, Data: value}
}

// NewExecResult packs the return values of Exec into an ExecResult. A
// failed execution carries no resources.
func NewExecResult(resources []Binding, err error) ExecResult {
	if err != nil {
		return ExecResult{Error: asError("exec", err)}
	}
	return ExecResult{Success: true, Resources: resources}
}

func toResources(bs []Binding) []interp.Resource {
	out := make([]interp.Resource, len(bs))
	for i, b := range bs {
		out[i] = interp.Resource{Group: b.Group, Binding: b.Binding, Kind: b.Kind, Data: b.Data}
	}
	return out
}

func fromResources(rs []interp.Resource) []Binding {
	out := make([]Binding, len(rs))
	for i, r := range rs {
		out[i] = Binding{Group: r.Group, Binding: r.Binding, Kind: r.Kind, Data: r.Data}
	}
	return out
}

func resourceBindings(bs []Binding) []ir.ResourceBinding {
	out := make([]ir.ResourceBinding, len(bs))
	for i, b := range bs {
		out[i] = ir.ResourceBinding{Group: b.Group, Binding: b.Binding, Kind: b.Kind}
	}
	return out
}
