package generics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/resolve"
	"github.com/gogpu/wesl/wgsl"
)

func resolved(t *testing.T, files map[string]string) *ir.Module {
	t.Helper()
	m, err := resolve.Resolve(files, "main.wesl", resolve.Options{Imports: true})
	require.NoError(t, err)
	return m
}

func shortNames(m *ir.Module) []string {
	var out []string
	for _, d := range m.Decls {
		out = append(out, d.ShortName)
	}
	return out
}

func TestInstancesAreShared(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
fn twice<T>(x: T) -> T { return x + x; }
fn a() -> f32 { return twice<f32>(1.0); }
fn b() -> f32 { return twice<f32>(2.0); }
fn c() -> i32 { return twice<i32>(3); }
`})
	out, diags := Instantiate(m, true)
	require.False(t, diags.HasErrors(), "%v", diags)
	assert.Equal(t, []string{"twice<f32>", "twice<i32>", "a", "b", "c"}, shortNames(out))

	f32Inst, _ := out.Lookup("twice<f32>")
	a, _ := out.Lookup("a")
	b, _ := out.Lookup("b")
	assert.Equal(t, []wgsl.DeclID{f32Inst.ID}, ir.References(a.Node))
	assert.Equal(t, []wgsl.DeclID{f32Inst.ID}, ir.References(b.Node))

	fn := f32Inst.Node.(*wgsl.FunctionDecl)
	assert.Empty(t, fn.TemplateParams)
	assert.Equal(t, "f32", wgsl.FormatType(fn.ReturnType))
	assert.True(t, f32Inst.Instance)
}

func TestEquivalentSpellingsDeduplicate(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
fn id<T>(x: T) -> T { return x; }
fn a() -> vec3f { return id<vec3f>(vec3f(1.0)); }
fn b() -> vec3<f32> { return id<vec3<f32>>(vec3<f32>(2.0)); }
`})
	out, diags := Instantiate(m, true)
	require.False(t, diags.HasErrors(), "%v", diags)
	assert.Equal(t, []string{"id<vec3<f32>>", "a", "b"}, shortNames(out))
}

func TestGenericStruct(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
struct Pair<T> { a: T, b: T }
var<private> p: Pair<f32>;
fn make() -> Pair<f32> { return Pair<f32>(1.0, 2.0); }
`})
	out, diags := Instantiate(m, true)
	require.False(t, diags.HasErrors(), "%v", diags)
	assert.Equal(t, []string{"Pair<f32>", "p", "make"}, shortNames(out))

	inst, _ := out.Lookup("Pair<f32>")
	st := inst.Node.(*wgsl.StructDecl)
	assert.Equal(t, "f32", wgsl.FormatType(st.Members[0].Type))

	typ, err := ir.NewTypeResolver(out).Struct(inst.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), typ.Size)
}

func TestNestedInstances(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
struct Box<T> { v: T }
fn unbox<T>(b: Box<T>) -> T { return b.v; }
fn f(b: Box<Box<u32>>) -> Box<u32> { return unbox<Box<u32>>(b); }
`})
	out, diags := Instantiate(m, true)
	require.False(t, diags.HasErrors(), "%v", diags)
	assert.ElementsMatch(t,
		[]string{"Box<u32>", "Box<Box<u32>>", "unbox<Box<u32>>", "f"},
		shortNames(out))
}

func TestConstParameters(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
const four = 4;
fn first<N: u32>(a: array<f32, N>) -> f32 { return a[N - 1u]; }
fn x(a: array<f32, 4>) -> f32 { return first<4>(a); }
fn y(a: array<f32, 4>) -> f32 { return first<four>(a); }
`})
	out, diags := Instantiate(m, true)
	require.False(t, diags.HasErrors(), "%v", diags)

	inst, ok := out.Lookup("first<4>")
	require.True(t, ok)
	fn := inst.Node.(*wgsl.FunctionDecl)
	assert.Equal(t, "array<f32, 4u>", wgsl.FormatType(fn.Params[0].Type))
	assert.Len(t, out.Decls, 4)
}

func TestConversionThroughTypeParameter(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
fn conv<T>(x: i32) -> T { return T(x); }
fn f() -> f32 { return conv<f32>(3); }
`})
	out, diags := Instantiate(m, true)
	require.False(t, diags.HasErrors(), "%v", diags)
	inst, _ := out.Lookup("conv<f32>")
	ret := inst.Node.(*wgsl.FunctionDecl).Body.Statements[0].(*wgsl.ReturnStmt)
	ctor, ok := ret.Value.(*wgsl.ConstructExpr)
	require.True(t, ok, "got %T", ret.Value)
	assert.Equal(t, "f32", wgsl.FormatType(ctor.Type))
}

func TestArityMismatch(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
fn id<T>(x: T) -> T { return x; }
fn f() -> f32 { return id<f32, i32>(1.0); }
`})
	_, diags := Instantiate(m, true)
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags[0].Title, "expects 1 template arguments, got 2")
}

func TestUnresolvableArgument(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
fn first<N: u32>(a: array<f32, N>) -> f32 { return a[0]; }
fn f(a: array<f32, 4>) -> f32 { return first<f32>(a); }
`})
	_, diags := Instantiate(m, true)
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags[0].Title, "cannot instantiate first")
}

func TestGenericsDisabled(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
fn id<T>(x: T) -> T { return x; }
fn f() -> f32 { return id<f32>(1.0); }
`})
	_, diags := Instantiate(m, false)
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags[0].Title, "generics are disabled")
}

func TestUnusedTemplatesAreDropped(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
fn id<T>(x: T) -> T { return x; }
fn f() {}
`})
	out, diags := Instantiate(m, false)
	require.False(t, diags.HasErrors())
	assert.Equal(t, []string{"f"}, shortNames(out))
}

func TestInputIsNotModified(t *testing.T) {
	m := resolved(t, map[string]string{"main.wesl": `
fn id<T>(x: T) -> T { return x; }
fn f() -> f32 { return id<f32>(1.0); }
`})
	before := len(m.Decls)
	_, _ = Instantiate(m, true)
	assert.Len(t, m.Decls, before)
	f, _ := m.Lookup("f")
	call := f.Node.(*wgsl.FunctionDecl).Body.Statements[0].(*wgsl.ReturnStmt).Value.(*wgsl.CallExpr)
	assert.Len(t, call.TemplateArgs, 1)
}

func TestImportedGeneric(t *testing.T) {
	m := resolved(t, map[string]string{
		"main.wesl": `
import package::lib::S;
import package::util::wrap;
fn f(s: S) -> S { return wrap<S>(s); }
struct Local { x: f32 }
fn g(s: Local) -> Local { return wrap<Local>(s); }
`,
		"lib.wesl":  `struct S { x: f32 }`,
		"util.wesl": `fn wrap<T>(x: T) -> T { return x; }`,
	})
	out, diags := Instantiate(m, true)
	require.False(t, diags.HasErrors(), "%v", diags)
	_, ok := out.Lookup("package::util::wrap<lib::S>")
	assert.True(t, ok, "%v", shortNames(out))
	_, ok = out.Lookup("package::util::wrap<Local>")
	assert.True(t, ok, "%v", shortNames(out))
}
