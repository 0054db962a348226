package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wesl/condcomp"
	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

func allOn() Options {
	return Options{Imports: true, Condcomp: true}
}

func resolveError(t *testing.T, err error) *diag.Error {
	t.Helper()
	require.Error(t, err)
	var de *diag.Error
	require.True(t, errors.As(err, &de), "want *diag.Error, got %T", err)
	return de
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "a/b.wesl", NormalizePath("./a/b.wesl"))
	assert.Equal(t, "a/b.wesl", NormalizePath(`a\b.wesl`))
	assert.Equal(t, "b.wesl", NormalizePath("a/../b.wesl"))
	// "e" + combining acute accent composes to U+00E9.
	assert.Equal(t, "caf\u00e9.wesl", NormalizePath("cafe\u0301.wesl"))
}

func TestFindModule(t *testing.T) {
	src := NewSourceSet(map[string]string{
		"shaders/main.wesl":     "",
		"shaders/lib/util.wgsl": "",
		"shaders/lib.wesl":      "",
	}, "shaders/main.wesl")

	file, rest, ok := src.FindModule([]string{"lib", "util", "helper"})
	require.True(t, ok)
	assert.Equal(t, "shaders/lib/util.wgsl", file)
	assert.Equal(t, []string{"helper"}, rest)

	file, rest, ok = src.FindModule([]string{"lib", "other"})
	require.True(t, ok)
	assert.Equal(t, "shaders/lib.wesl", file)
	assert.Equal(t, []string{"other"}, rest)

	_, _, ok = src.FindModule([]string{"nope", "x"})
	assert.False(t, ok)

	assert.Equal(t, "package", src.ModulePath("shaders/main.wesl"))
	assert.Equal(t, "package::lib::util", src.ModulePath("shaders/lib/util.wgsl"))
}

func TestTwoFileImport(t *testing.T) {
	files := map[string]string{
		"root.wgsl": `
import package::lib::helper;
@compute @workgroup_size(1) fn main() { let x = helper(2.0); }
`,
		"lib.wgsl": `fn helper(v: f32) -> f32 { return v * 2.0; }`,
	}
	m, err := Resolve(files, "root.wgsl", allOn())
	require.NoError(t, err)
	require.Len(t, m.Decls, 2)

	main, helper := m.Decls[0], m.Decls[1]
	assert.True(t, main.Root)
	assert.Equal(t, "package", main.Module)
	assert.Equal(t, "package::lib::helper", helper.QualifiedName())
	assert.Equal(t, "lib.wgsl", helper.File)
	assert.Equal(t, []wgsl.DeclID{helper.ID}, ir.References(main.Node))
}

func TestModuleImportAndInlineReference(t *testing.T) {
	files := map[string]string{
		"main.wesl": `
import package::math;
const a = math::PI;
const b = package::util::scale(a);
`,
		"math.wesl": `const PI = 3.14159;`,
		"util.wesl": `fn scale(x: f32) -> f32 { return x * 2.0; }`,
	}
	m, err := Resolve(files, "main.wesl", allOn())
	require.NoError(t, err)

	pi, ok := m.Lookup("package::math::PI")
	require.True(t, ok)
	scale, ok := m.Lookup("package::util::scale")
	require.True(t, ok)

	a, _ := m.Lookup("a")
	b, _ := m.Lookup("b")
	assert.Equal(t, []wgsl.DeclID{pi.ID}, ir.References(a.Node))
	assert.Contains(t, ir.References(b.Node), scale.ID)
}

func TestModuleImportUsedAsDeclaration(t *testing.T) {
	files := map[string]string{
		"main.wesl": `
import package::util::helper;
fn g() -> f32 { return helper() + helper::scale; }
`,
		"util/helper.wesl": `
const scale = 2.0;
fn helper() -> f32 { return 1.0; }
`,
	}
	m, err := Resolve(files, "main.wesl", allOn())
	require.NoError(t, err)

	helper, ok := m.Lookup("package::util::helper::helper")
	require.True(t, ok)
	scale, ok := m.Lookup("package::util::helper::scale")
	require.True(t, ok)
	g, _ := m.Lookup("g")
	refs := ir.References(g.Node)
	assert.Contains(t, refs, helper.ID)
	assert.Contains(t, refs, scale.ID)

	files["main.wesl"] = `import package::util::helper; fn g() -> f32 { return helper(); }`
	files["util/helper.wesl"] = `fn other() {}`
	_, err = Resolve(files, "main.wesl", allOn())
	de := resolveError(t, err)
	require.Len(t, de.Diagnostics, 1)
	assert.Contains(t, de.Diagnostics[0].Title, "has no declaration helper")
}

func TestSuperImport(t *testing.T) {
	files := map[string]string{
		"main.wesl":       `import package::a::b::f; fn g() -> i32 { return f(); }`,
		"a/b.wesl":        `import super::c::K; fn f() -> i32 { return K; }`,
		"a/c.wesl":        `const K = 7;`,
		"a/unrelated.txt": ``,
	}
	m, err := Resolve(files, "main.wesl", allOn())
	require.NoError(t, err)
	_, ok := m.Lookup("package::a::c::K")
	assert.True(t, ok)
}

func TestImportCycle(t *testing.T) {
	files := map[string]string{
		"a.wgsl": `import package::b::fb; fn fa() {}`,
		"b.wgsl": `import package::a::fa; fn fb() {}`,
	}
	_, err := Resolve(files, "a.wgsl", allOn())
	de := resolveError(t, err)
	assert.Equal(t, "resolve", de.Source)
	require.NotEmpty(t, de.Diagnostics)
	assert.ElementsMatch(t, []string{"a.wgsl", "b.wgsl"}, de.Files())
	assert.Contains(t, de.Diagnostics[0].Title, "a.wgsl")
	assert.Contains(t, de.Diagnostics[0].Title, "b.wgsl")
}

func TestCycleExcludesDependents(t *testing.T) {
	files := map[string]string{
		"main.wesl": `import package::a::fa; fn m() { fa(); }`,
		"a.wesl":    `import package::b::fb; fn fa() {}`,
		"b.wesl":    `import package::a::fa; fn fb() {}`,
	}
	_, err := Resolve(files, "main.wesl", allOn())
	de := resolveError(t, err)
	assert.ElementsMatch(t, []string{"a.wesl", "b.wesl"}, de.Files())
}

func TestSelfImport(t *testing.T) {
	files := map[string]string{
		"main.wesl": `import package::main::f; fn f() {}`,
	}
	_, err := Resolve(files, "main.wesl", allOn())
	de := resolveError(t, err)
	assert.Equal(t, "resolve", de.Source)
}

func TestMissingModuleIsNonPositional(t *testing.T) {
	files := map[string]string{
		"main.wesl": `import package::nowhere::f; fn g() {}`,
	}
	_, err := Resolve(files, "main.wesl", allOn())
	de := resolveError(t, err)
	assert.Equal(t, "resolve", de.Source)
	assert.Empty(t, de.Diagnostics)
	assert.Contains(t, de.Message, "main.wesl")
	assert.Contains(t, de.Message, "package::nowhere")
}

func TestMissingDeclarationIsPositional(t *testing.T) {
	files := map[string]string{
		"main.wesl": `import package::lib::nope; fn g() {}`,
		"lib.wesl":  `fn f() {}`,
	}
	_, err := Resolve(files, "main.wesl", allOn())
	de := resolveError(t, err)
	require.Len(t, de.Diagnostics, 1)
	assert.Equal(t, "main.wesl", de.Diagnostics[0].File)
}

func TestMissingRoot(t *testing.T) {
	_, err := Resolve(map[string]string{"a.wesl": ""}, "b.wesl", allOn())
	de := resolveError(t, err)
	assert.Empty(t, de.Diagnostics)
}

func TestLazySkipsUnusedImports(t *testing.T) {
	files := map[string]string{
		"main.wesl": `
import package::absent::thing;
import package::lib::{used, unused};
fn main() -> f32 { return used(); }
`,
		"lib.wesl": `fn used() -> f32 { return 1.0; } fn unused() {}`,
	}

	opts := allOn()
	opts.Lazy = true
	m, err := Resolve(files, "main.wesl", opts)
	require.NoError(t, err)
	_, ok := m.Lookup("package::lib::used")
	assert.True(t, ok)

	_, err = Resolve(files, "main.wesl", allOn())
	de := resolveError(t, err)
	assert.Empty(t, de.Diagnostics, "eager resolution reports the absent module")
}

func TestLazyFailsOnUsedMissingModule(t *testing.T) {
	files := map[string]string{
		"main.wesl": `import package::absent::thing; fn main() { thing(); }`,
	}
	opts := allOn()
	opts.Lazy = true
	_, err := Resolve(files, "main.wesl", opts)
	de := resolveError(t, err)
	assert.Empty(t, de.Diagnostics)
}

func TestImportsDisabled(t *testing.T) {
	files := map[string]string{
		"main.wesl": `import package::lib::f; fn g() {}`,
		"lib.wesl":  `fn f() {}`,
	}
	_, err := Resolve(files, "main.wesl", Options{})
	de := resolveError(t, err)
	require.Len(t, de.Diagnostics, 1)
	assert.Contains(t, de.Diagnostics[0].Title, "imports are disabled")
}

func TestUnresolvedIdentifier(t *testing.T) {
	files := map[string]string{
		"main.wesl": `fn f() -> f32 { let a = 1.0; return a + b + sqrt(a); }`,
	}
	_, err := Resolve(files, "main.wesl", allOn())
	de := resolveError(t, err)
	require.Len(t, de.Diagnostics, 1)
	assert.Equal(t, "unresolved identifier b", de.Diagnostics[0].Title)
}

func TestScopes(t *testing.T) {
	files := map[string]string{
		"main.wesl": `
const n = 4;
fn f(p: i32) -> i32 {
    var total = p;
    for (var i = 0; i < n; i++) { total += i; }
    loop {
        let step = 1;
        continuing {
            total -= step;
            break if total < 0;
        }
    }
    return total;
}`,
	}
	m, err := Resolve(files, "main.wesl", allOn())
	require.NoError(t, err)
	n, _ := m.Lookup("n")
	f, _ := m.Lookup("f")
	assert.Equal(t, []wgsl.DeclID{n.ID}, ir.References(f.Node))
}

func TestTemplateParameters(t *testing.T) {
	files := map[string]string{
		"main.wesl": `
struct Pair<T> { a: T, b: T }
fn first<T, N: u32>(p: Pair<T>) -> T { let k = N; return p.a; }
`,
	}
	m, err := Resolve(files, "main.wesl", allOn())
	require.NoError(t, err)
	first, _ := m.Lookup("first")
	assert.True(t, first.Generic)

	var tparams int
	wgsl.Inspect(first.Node, func(n wgsl.Node) bool {
		switch n := n.(type) {
		case *wgsl.NamedType:
			if n.TemplateParam {
				tparams++
			}
		case *wgsl.Ident:
			if n.TemplateParam {
				tparams++
			}
		}
		return true
	})
	// T in Pair<T>, the return type T, and N.
	assert.Equal(t, 3, tparams)
}

func TestConditionalImport(t *testing.T) {
	files := map[string]string{
		"main.wesl": `
@if(fast) import package::fast::impl;
@else import package::slow::impl;
fn run() -> i32 { return impl(); }
`,
		"fast.wesl": `fn impl() -> i32 { return 1; }`,
		"slow.wesl": `fn impl() -> i32 { return 2; }`,
	}
	opts := allOn()
	opts.Features = condcomp.Features{"fast": true}
	m, err := Resolve(files, "main.wesl", opts)
	require.NoError(t, err)
	_, ok := m.Lookup("package::fast::impl")
	assert.True(t, ok)
	_, ok = m.Lookup("package::slow::impl")
	assert.False(t, ok)
}

func TestParseErrorSource(t *testing.T) {
	files := map[string]string{"main.wesl": `fn f( {`}
	_, err := Resolve(files, "main.wesl", allOn())
	de := resolveError(t, err)
	assert.Equal(t, "parse", de.Source)
	require.NotEmpty(t, de.Diagnostics)
	assert.Equal(t, "main.wesl", de.Diagnostics[0].File)
}

func TestParseHookResultIsNotModified(t *testing.T) {
	shared, err := wgsl.ParseFile("main.wesl", `const a = 1; const b = a;`)
	require.NoError(t, err)
	hook := func(string, string) (*wgsl.Module, error) { return shared, nil }

	opts := allOn()
	opts.Parse = hook
	_, err = Resolve(map[string]string{"main.wesl": "ignored"}, "main.wesl", opts)
	require.NoError(t, err)

	init := shared.Decls[1].(*wgsl.ConstDecl).Init.(*wgsl.Ident)
	assert.Equal(t, wgsl.NoDecl, init.Ref)
}
