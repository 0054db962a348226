package condcomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wesl/wgsl"
)

func parse(t *testing.T, src string) *wgsl.Module {
	t.Helper()
	m, err := wgsl.ParseFile("main.wesl", src)
	require.NoError(t, err)
	return m
}

func declNames(m *wgsl.Module) []string {
	var names []string
	for _, d := range m.Decls {
		names = append(names, wgsl.DeclName(d))
	}
	return names
}

func predicate(t *testing.T, src string) wgsl.Expr {
	t.Helper()
	e, err := wgsl.ParseExpression("pred", src)
	require.NoError(t, err)
	return e
}

func TestEval(t *testing.T) {
	features := Features{"flagA": true, "flagB": false}
	tests := []struct {
		pred string
		want bool
	}{
		{"flagA", true},
		{"flagB", false},
		{"missing", false},
		{"true", true},
		{"!flagB", true},
		{"flagA && !flagB", true},
		{"flagA && flagB", false},
		{"flagB || (flagA && true)", true},
		{"!(flagA || flagB)", false},
	}
	for _, tt := range tests {
		t.Run(tt.pred, func(t *testing.T) {
			got, err := Eval(predicate(t, tt.pred), features)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalRejectsArithmetic(t *testing.T) {
	_, err := Eval(predicate(t, "a + b"), Features{})
	assert.Error(t, err)
}

func TestFilterDecls(t *testing.T) {
	src := `
@if(flagA && !flagB) const x = 1;
@elif(flagB) const x = 2;
@else const x = 3;
@if(flagB) fn onlyB() {}
fn always() {}
`
	tests := []struct {
		features Features
		want     []string
		value    string
	}{
		{Features{"flagA": true}, []string{"x", "always"}, "1"},
		{Features{"flagA": true, "flagB": true}, []string{"x", "onlyB", "always"}, "2"},
		{Features{}, []string{"x", "always"}, "3"},
	}
	for _, tt := range tests {
		m, diags := Filter(parse(t, src), tt.features)
		require.False(t, diags.HasErrors(), "%v", diags)
		assert.Equal(t, tt.want, declNames(m))

		c := m.Decls[0].(*wgsl.ConstDecl)
		assert.Equal(t, tt.value, c.Init.(*wgsl.Literal).Value)
		assert.Empty(t, c.Attributes, "conditional attributes must be stripped")
	}
}

func TestFilterMembersAndParams(t *testing.T) {
	m, diags := Filter(parse(t, `
struct S {
    a: f32,
    @if(wide) b: vec4f,
    @else b: f32,
}
fn f(@if(extra) e: u32, x: i32) -> i32 { return x; }
`), Features{"wide": true})
	require.False(t, diags.HasErrors())

	s := m.Decls[0].(*wgsl.StructDecl)
	require.Len(t, s.Members, 2)
	assert.Equal(t, "vec4f", wgsl.FormatType(s.Members[1].Type))

	fn := m.Decls[1].(*wgsl.FunctionDecl)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "x", fn.Params[0].Name)
}

func TestFilterStatements(t *testing.T) {
	m, diags := Filter(parse(t, `
fn f() -> i32 {
    var r = 0;
    @if(debug) {
        r = 1;
    }
    @else {
        r = 2;
    }
    loop {
        @if(debug) r += 10;
        break;
    }
    return r;
}`), Features{"debug": false})
	require.False(t, diags.HasErrors())

	body := m.Decls[0].(*wgsl.FunctionDecl).Body.Statements
	require.Len(t, body, 4)
	block, ok := body[1].(*wgsl.BlockStmt)
	require.True(t, ok, "attribute-free statements are unwrapped, got %T", body[1])
	assign := block.Statements[0].(*wgsl.AssignStmt)
	assert.Equal(t, "2", assign.Right.(*wgsl.Literal).Value)

	loop := body[2].(*wgsl.LoopStmt)
	require.Len(t, loop.Body.Statements, 1)
	_, isBreak := loop.Body.Statements[0].(*wgsl.BreakStmt)
	assert.True(t, isBreak)
}

func TestFilterImports(t *testing.T) {
	m, diags := Filter(parse(t, `
@if(useLib) import package::lib::helper;
@else import package::fallback::helper;
fn main() {}
`), Features{"useLib": true})
	require.False(t, diags.HasErrors())
	require.Len(t, m.Imports, 1)
	assert.Equal(t, []string{"package", "lib", "helper"}, m.Imports[0].Items[0].Path)
}

func TestElseWithoutIf(t *testing.T) {
	_, diags := Filter(parse(t, `
fn a() {}
@else fn b() {}
`), Features{})
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags[0].Title, "@else")
}

func TestElifAfterUnconditional(t *testing.T) {
	_, diags := Filter(parse(t, `
@if(x) fn a() {}
fn b() {}
@elif(y) fn c() {}
`), Features{"y": true})
	assert.True(t, diags.HasErrors(), "an unconditional sibling ends the chain")
}

func TestHasConditions(t *testing.T) {
	assert.False(t, HasConditions(parse(t, `fn f() { let a = 1; }`)))
	assert.True(t, HasConditions(parse(t, `fn f() { @if(x) let a = 1; }`)))
	assert.True(t, HasConditions(parse(t, `struct S { @if(x) a: f32, b: f32 }`)))
}
