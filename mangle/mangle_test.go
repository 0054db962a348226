package mangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/resolve"
)

func TestEscapeRoundTrip(t *testing.T) {
	names := []string{
		"package::lib::helper",
		"package::my_lib::do_it",
		"package::util::wrap<lib::S>",
		"package::f<f32,4>",
		"package::a::_private",
		"package::a::0weird",
		"package::café::x",
	}
	for _, n := range names {
		mangled := Escape(n)
		assert.Regexp(t, `^[A-Za-z0-9_]+$`, mangled)
		back, err := Demangle(mangled)
		require.NoError(t, err, n)
		assert.Equal(t, n, back)
	}
}

func TestEscapeIsInjective(t *testing.T) {
	pairs := [][2]string{
		{"package::a_b::c", "package::a::b_c"},
		{"package::a::b", "package::a_b"},
		{"package::f<i32>", "package::f_1i32_2"},
	}
	for _, p := range pairs {
		assert.NotEqual(t, Escape(p[0]), Escape(p[1]), "%s vs %s", p[0], p[1])
	}
}

func TestEscapeExamples(t *testing.T) {
	assert.Equal(t, "package_lib_helper", Escape("package::lib::helper"))
	assert.Equal(t, "package_my_0lib_f", Escape("package::my_lib::f"))
	assert.Equal(t, "f_1f32_34_2", EscapeComponent("f<f32,4>"))
}

func TestDemangleRejectsTruncatedEscapes(t *testing.T) {
	_, err := Demangle("abc_")
	assert.Error(t, err)
	_, err = Demangle("abc_4z")
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	h := Hash("package::lib::helper")
	assert.Len(t, h, 17)
	assert.Equal(t, h, Hash("package::lib::helper"))
	assert.NotEqual(t, h, Hash("package::lib::helpers"))
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{StrategyEscape, StrategyHash, StrategyNone} {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("rot13")
	assert.Error(t, err)
	assert.Equal(t, Strategy(2), StrategyNone)
}

func twoModules(t *testing.T) *ir.Module {
	t.Helper()
	m, err := resolve.Resolve(map[string]string{
		"main.wesl": `
import package::lib::helper;
fn helper_main() -> f32 { return helper(); }
`,
		"lib.wesl": `fn helper() -> f32 { return 1.0; }`,
	}, "main.wesl", resolve.Options{Imports: true})
	require.NoError(t, err)
	return m
}

func names(m *ir.Module) map[string]string {
	out := map[string]string{}
	for _, d := range m.Decls {
		out[d.QualifiedName()] = d.Name
	}
	return out
}

func TestMangleStrategies(t *testing.T) {
	m := twoModules(t)

	out, diags := Mangle(m, Options{Strategy: StrategyEscape})
	require.Empty(t, diags)
	assert.Equal(t, map[string]string{
		"package::helper_main": "helper_main",
		"package::lib::helper": "package_lib_helper",
	}, names(out))

	out, diags = Mangle(m, Options{Strategy: StrategyEscape, MangleRoot: true})
	require.Empty(t, diags)
	assert.Equal(t, "package_helper_0main", names(out)["package::helper_main"])

	out, diags = Mangle(m, Options{Strategy: StrategyHash})
	require.Empty(t, diags)
	assert.Equal(t, Hash("package::lib::helper"), names(out)["package::lib::helper"])
	assert.Equal(t, "helper_main", names(out)["package::helper_main"])

	out, diags = Mangle(m, Options{Strategy: StrategyNone, MangleRoot: true})
	require.Empty(t, diags)
	assert.Equal(t, "helper", names(out)["package::lib::helper"])

	// The input keeps its names.
	assert.Equal(t, "helper", names(m)["package::lib::helper"])
}

func TestMangleDetectsCollisionWithRootName(t *testing.T) {
	m, err := resolve.Resolve(map[string]string{
		"main.wesl": `
import package::lib::f;
fn package_lib_f() {}
fn g() { f(); }
`,
		"lib.wesl": `fn f() {}`,
	}, "main.wesl", resolve.Options{Imports: true})
	require.NoError(t, err)

	_, diags := Mangle(m, Options{Strategy: StrategyEscape})
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags[0].Title, "both mangle to package_lib_f")

	_, diags = Mangle(m, Options{Strategy: StrategyEscape, MangleRoot: true})
	assert.Empty(t, diags)
}

func TestMangleNoneLeavesCollisionsToValidator(t *testing.T) {
	m, err := resolve.Resolve(map[string]string{
		"main.wesl": `
import package::lib::f as libf;
fn f() { libf(); }
`,
		"lib.wesl": `fn f() {}`,
	}, "main.wesl", resolve.Options{Imports: true})
	require.NoError(t, err)

	out, diags := Mangle(m, Options{Strategy: StrategyNone})
	assert.Empty(t, diags)
	vd := ir.Validate(out, ir.ValidateOptions{})
	require.True(t, vd.HasErrors())
	assert.Contains(t, vd[0].Title, `duplicate declaration name "f"`)
}

func TestNames(t *testing.T) {
	out, _ := Mangle(twoModules(t), Options{Strategy: StrategyEscape})
	assert.Equal(t, "package::lib::helper", Names(out)["package_lib_helper"])
}
