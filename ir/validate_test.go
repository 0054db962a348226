package ir_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/resolve"
	"github.com/gogpu/wesl/wgsl"
)

func linked(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, err := resolve.Resolve(map[string]string{"main.wgsl": src}, "main.wgsl", resolve.Options{Imports: true})
	require.NoError(t, err)
	return m
}

func titles(l diag.List) []string {
	out := make([]string, len(l))
	for i, d := range l {
		out[i] = d.Title
	}
	return out
}

func requireDiag(t *testing.T, l diag.List, substr string) {
	t.Helper()
	for _, d := range l {
		if strings.Contains(d.Title, substr) {
			return
		}
	}
	t.Fatalf("no diagnostic contains %q; got %q", substr, titles(l))
}

func TestValidateCleanModule(t *testing.T) {
	m := linked(t, `
struct Params { scale: f32, count: u32 }
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read_write> data: array<f32>;

fn scaled(v: f32) -> f32 { return v * params.scale; }

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= params.count) {
        return;
    }
    data[id.x] = scaled(data[id.x]);
}`)
	diags := ir.Validate(m, ir.ValidateOptions{})
	assert.False(t, diags.HasErrors(), "%q", titles(diags))
}

func TestValidateAggregates(t *testing.T) {
	m := linked(t, `
@group(0) @binding(0) var<storage, read_write> a: array<u32>;
var<storage> b: array<u32>;

fn f() {
    break;
}

@compute
fn main() {}
`)
	diags := ir.Validate(m, ir.ValidateOptions{})
	require.True(t, diags.HasErrors())
	requireDiag(t, diags, "requires @group and @binding")
	requireDiag(t, diags, "break outside of loop or switch")
	requireDiag(t, diags, "requires @workgroup_size")
	assert.GreaterOrEqual(t, len(diags), 3)
}

func TestValidateRecursion(t *testing.T) {
	m := linked(t, `
fn a(n: i32) -> i32 { return b(n); }
fn b(n: i32) -> i32 { return a(n); }
`)
	requireDiag(t, ir.Validate(m, ir.ValidateOptions{}), "is recursive")
}

func TestValidateInitializerType(t *testing.T) {
	m := linked(t, `fn f() { let x: i32 = 1.5; }`)
	requireDiag(t, ir.Validate(m, ir.ValidateOptions{}), "cannot initialize x of type i32")
}

func TestValidateDuplicateEmittedNames(t *testing.T) {
	m := linked(t, `
fn first() {}
fn second() {}
`)
	for _, d := range m.Decls {
		d.Name = "same"
	}
	requireDiag(t, ir.Validate(m, ir.ValidateOptions{}), `duplicate declaration name "same"`)
}

func TestValidateEntryPoints(t *testing.T) {
	m := linked(t, `
@vertex fn vs() -> vec4f { return vec4f(0.0); }
@fragment fn fs() -> vec4f { return vec4f(1.0); }
@compute @workgroup_size(0) fn cs() {}
`)
	diags := ir.Validate(m, ir.ValidateOptions{})
	requireDiag(t, diags, "must return @builtin(position)")
	requireDiag(t, diags, "return value needs @location or @builtin")
	requireDiag(t, diags, "workgroup size must be positive")
}

func TestValidateSwitch(t *testing.T) {
	m := linked(t, `
fn f(x: i32) -> i32 {
    switch x {
        case 1, 2: { return 1; }
        case 2: { return 2; }
    }
    return 0;
}`)
	diags := ir.Validate(m, ir.ValidateOptions{})
	requireDiag(t, diags, "duplicate case selector 2")
	requireDiag(t, diags, "switch missing default case")
}

func TestValidateResourceKinds(t *testing.T) {
	m := linked(t, `
@group(0) @binding(0) var<uniform> u: vec4f;
@group(0) @binding(1) var<storage, read_write> s: array<u32>;
@group(0) @binding(2) var<storage, read> r: array<u32>;
@group(1) @binding(0) var tex: texture_2d<f32>;
`)
	ok := []ir.ResourceBinding{
		{Group: 0, Binding: 0, Kind: ir.BindingUniform},
		{Group: 0, Binding: 1, Kind: ir.BindingStorage},
		{Group: 0, Binding: 2, Kind: ir.BindingReadOnlyStorage},
		{Group: 1, Binding: 0, Kind: ir.BindingUnfilterableFloat},
	}
	diags := ir.Validate(m, ir.ValidateOptions{Resources: ok})
	assert.False(t, diags.HasErrors(), "%q", titles(diags))

	bad := []ir.ResourceBinding{
		{Group: 0, Binding: 0, Kind: ir.BindingStorage},
		{Group: 0, Binding: 1, Kind: ir.BindingReadOnlyStorage},
		{Group: 1, Binding: 0, Kind: ir.BindingSint},
	}
	diags = ir.Validate(m, ir.ValidateOptions{Resources: bad})
	assert.Len(t, diags.Errors(), 3, "%q", titles(diags))
	requireDiag(t, diags, "binding @group(0) @binding(0) is declared as storage")
}

type fixedConsts bool

func (c fixedConsts) EvalConstBool(wgsl.Expr) (bool, error) { return bool(c), nil }

func TestValidateConstAssert(t *testing.T) {
	m := linked(t, `
const n = 3;
const_assert n > 2;
`)
	assert.False(t, ir.Validate(m, ir.ValidateOptions{Consts: fixedConsts(true)}).HasErrors())
	requireDiag(t, ir.Validate(m, ir.ValidateOptions{Consts: fixedConsts(false)}), "const assertion failed")
}

func TestValidateReadOnlyAssignment(t *testing.T) {
	m := linked(t, `
@group(0) @binding(0) var<storage, read> r: array<u32>;
fn f() {
    let a = 1;
    r[0] = 2u;
}`)
	requireDiag(t, ir.Validate(m, ir.ValidateOptions{}), "cannot assign to read-only r[0]")
}
