package wesl

import (
	"encoding/binary"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gogpu/wesl/wgsl"
)

var helperFiles = map[string]string{
	"main.wesl": `import package::lib::helper;

@compute @workgroup_size(1)
fn main() {
    let v = helper();
    _ = v;
}
`,
	"lib.wesl": `fn helper() -> f32 { return 1.0; }
fn unused() -> f32 { return 2.0; }
`,
}

func weslError(t *testing.T, err error) *Error {
	t.Helper()
	require.Error(t, err)
	var de *Error
	require.ErrorAs(t, err, &de)
	return de
}

func u32s(vs ...uint32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func TestCompileRoundTrip(t *testing.T) {
	src := `struct Light {
    color: vec3<f32>,
    power: f32,
}

@group(0) @binding(0) var<uniform> light: Light;

fn brightness() -> f32 {
    return light.power * 2.0;
}

@fragment
fn main() -> @location(0) vec4<f32> {
    return vec4<f32>(light.color * brightness(), 1.0);
}
`
	opts := DefaultOptions()
	opts.Mangler = MangleNone
	opts.Strip = false
	out, err := Compile(map[string]string{"main.wgsl": src}, "main.wgsl", opts, nil, nil)
	require.NoError(t, err)

	want, err := wgsl.ParseFile("want.wgsl", src)
	require.NoError(t, err)
	got, err := wgsl.ParseFile("got.wgsl", out.Text)
	require.NoError(t, err)
	assert.Equal(t, wgsl.Print(want), wgsl.Print(got))
}

func TestCompileEnableF16(t *testing.T) {
	src := "enable f16;\nconst x: f16 = 1.0h;\n"
	opts := DefaultOptions()
	opts.Mangler = MangleNone
	opts.Strip = false
	out, err := Compile(map[string]string{"main.wgsl": src}, "main.wgsl", opts, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Text, "enable f16;")

	got, err := wgsl.ParseFile("got.wgsl", out.Text)
	require.NoError(t, err)
	require.Len(t, got.Directives, 1)
	assert.Equal(t, []string{"f16"}, got.Directives[0].Args)
}

func TestCompileIsDeterministic(t *testing.T) {
	first, err := Compile(helperFiles, "main.wesl", DefaultOptions(), nil, nil)
	require.NoError(t, err)
	for range 5 {
		again, err := Compile(helperFiles, "main.wesl", DefaultOptions(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Text, again.Text)
	}
}

func TestCompileKeepsReachableImports(t *testing.T) {
	out, err := Compile(helperFiles, "main.wesl", DefaultOptions(), nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Text, "fn package_lib_helper() -> f32")
	assert.Contains(t, out.Text, "let v = package_lib_helper();")
	assert.NotContains(t, out.Text, "unused")
	assert.Empty(t, out.Warnings)
}

func TestCompileOmitsUnreachableImports(t *testing.T) {
	files := map[string]string{
		"root.wgsl": `import package::lib::helper;
@compute @workgroup_size(1)
fn main() {}
`,
		"lib.wgsl": `fn helper() -> f32 { return 1.0; }`,
	}
	out, err := Compile(files, "root.wgsl", DefaultOptions(), nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, out.Text, "helper")
	assert.Contains(t, out.Text, "fn main()")
	assert.Empty(t, out.Warnings)
}

func TestCompileWithoutStripKeepsEverything(t *testing.T) {
	opts := DefaultOptions()
	opts.Strip = false
	out, err := Compile(helperFiles, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Text, "fn package_lib_unused()")
}

func TestCompileKeepSet(t *testing.T) {
	out, err := Compile(helperFiles, "main.wesl", DefaultOptions(), []string{"package::lib::unused", "nope"}, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Text, "fn package_lib_unused()")
	assert.NotContains(t, out.Text, "fn main()")
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0].Title, "nope")
}

func TestCompileCyclicImport(t *testing.T) {
	files := map[string]string{
		"a.wgsl": `import package::b::fb; fn fa() {}`,
		"b.wgsl": `import package::a::fa; fn fb() {}`,
	}
	_, err := Compile(files, "a.wgsl", DefaultOptions(), nil, nil)
	de := weslError(t, err)
	assert.Equal(t, "resolve", de.Source)
	require.NotEmpty(t, de.Diagnostics)
	assert.ElementsMatch(t, []string{"a.wgsl", "b.wgsl"}, de.Files())

	res := NewResult(nil, err)
	assert.False(t, res.Success)
	assert.Same(t, de, res.Error)
}

func TestCompileMissingRoot(t *testing.T) {
	_, err := Compile(helperFiles, "nope.wesl", DefaultOptions(), nil, nil)
	de := weslError(t, err)
	assert.Equal(t, "resolve", de.Source)
	assert.Empty(t, de.Diagnostics)
}

func TestFeatureFiltering(t *testing.T) {
	files := map[string]string{
		"main.wesl": `@if(a && !b) fn guarded() -> i32 { return 1; }
@compute @workgroup_size(1)
fn main() {}
`,
	}
	opts := DefaultOptions()
	opts.KeepRoot = true
	tests := []struct {
		features Features
		present  bool
	}{
		{Features{"a": true}, true},
		{Features{"a": true, "b": false}, true},
		{Features{"a": true, "b": true}, false},
		{Features{"b": false}, false},
		{nil, false},
	}
	for _, tt := range tests {
		out, err := Compile(files, "main.wesl", opts, nil, tt.features)
		require.NoError(t, err)
		assert.Equal(t, tt.present, regexp.MustCompile(`fn guarded\(`).MatchString(out.Text), "features %v", tt.features)
		assert.NotContains(t, out.Text, "@if")
	}
}

func TestHashManglingIsInjective(t *testing.T) {
	files := map[string]string{
		"main.wesl": `@compute @workgroup_size(1)
fn main() {
    let x = package::a::f() + package::b::f();
    _ = x;
}
`,
		"a.wesl": `fn f() -> i32 { return 1; }`,
		"b.wesl": `fn f() -> i32 { return 2; }`,
	}
	opts := DefaultOptions()
	opts.Mangler = MangleHash
	out, err := Compile(files, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	names := regexp.MustCompile(`fn (_[0-9a-f]{16})\(`).FindAllStringSubmatch(out.Text, -1)
	require.Len(t, names, 2)
	assert.NotEqual(t, names[0][1], names[1][1])
}

func TestCompileSourceMap(t *testing.T) {
	opts := DefaultOptions()
	opts.SourceMap = true
	out, err := Compile(helperFiles, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out.SourceMap)
	assert.Equal(t, "package::lib::helper", out.SourceMap.Original("package_lib_helper"))

	opts.SourceMap = false
	out, err = Compile(helperFiles, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out.SourceMap)
}

func TestCompileValidationAggregates(t *testing.T) {
	files := map[string]string{
		"main.wesl": `fn f() -> i32 { return 1.5; }
fn g() -> u32 { return true; }
`,
	}
	opts := DefaultOptions()
	opts.Strip = false
	_, err := Compile(files, "main.wesl", opts, nil, nil)
	de := weslError(t, err)
	assert.Equal(t, "validate", de.Source)
	assert.GreaterOrEqual(t, len(de.Diagnostics), 2)

	opts.Validate = false
	_, err = Compile(files, "main.wesl", opts, nil, nil)
	assert.NoError(t, err)
}

var evalFiles = map[string]string{
	"main.wesl": `const n = 4;
var<private> counter: i32;
`,
	"lib.wesl": `const scale = 1.5;`,
}

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"n * 2", "8"},
		{"package::lib::scale * 2", "3.0"},
		{"vec2(n, 1u)", "vec2<u32>(4u, 1u)"},
	}
	for _, tt := range tests {
		got, err := Eval(evalFiles, "main.wesl", tt.expr, DefaultOptions(), nil)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, got, tt.expr)
	}
}

func TestEvalErrors(t *testing.T) {
	for _, expr := range []string{"missing + 1", "counter + 1", "1 +"} {
		_, err := Eval(evalFiles, "main.wesl", expr, DefaultOptions(), nil)
		de := weslError(t, err)
		assert.Equal(t, "eval", de.Source, expr)
		require.NotEmpty(t, de.Diagnostics, expr)
		assert.Equal(t, "<expression>", de.Diagnostics[0].File, expr)

		res := NewEvalResult("", err)
		assert.False(t, res.Success)
		assert.Empty(t, res.Data)
	}
}

const copyShader = `@group(0) @binding(0) var<uniform> src: vec4<u32>;
@group(0) @binding(1) var<storage, read_write> dst: vec4<u32>;

@compute @workgroup_size(1)
fn main() {
    dst = src;
}
`

func TestExecCopiesUniformToStorage(t *testing.T) {
	files := map[string]string{"main.wgsl": copyShader}
	in := []Binding{
		{Group: 0, Binding: 0, Kind: BindingUniform, Data: u32s(1, 2, 3, 4)},
		{Group: 0, Binding: 1, Kind: BindingStorage, Data: u32s(0, 0, 0, 0)},
	}
	out, err := Exec(files, "main.wgsl", "main", DefaultOptions(), in, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].Group, out[i].Group)
		assert.Equal(t, in[i].Binding, out[i].Binding)
		assert.Equal(t, in[i].Kind, out[i].Kind)
	}
	assert.Equal(t, in[0].Data, out[1].Data)
	assert.Equal(t, u32s(0, 0, 0, 0), in[1].Data, "input payloads are not modified")

	res := NewExecResult(out, nil)
	assert.True(t, res.Success)
	assert.Nil(t, res.Error)
}

func TestExecOverrides(t *testing.T) {
	files := map[string]string{"main.wesl": `override scale: u32 = 2u;
@group(0) @binding(0) var<storage, read_write> total: u32;

@compute @workgroup_size(1)
fn main() {
    total = scale * 10u;
}
`}
	res := []Binding{{Kind: BindingStorage, Data: u32s(0)}}
	out, err := Exec(files, "main.wesl", "main", DefaultOptions(), res, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, u32s(20), out[0].Data)

	out, err = Exec(files, "main.wesl", "main", DefaultOptions(), res, map[string]string{"scale": "5u"}, nil)
	require.NoError(t, err)
	assert.Equal(t, u32s(50), out[0].Data)
}

func TestExecFaultFailsWithoutResources(t *testing.T) {
	files := map[string]string{"main.wesl": `@group(0) @binding(0) var<storage, read_write> total: array<u32, 4>;

@compute @workgroup_size(1)
fn main() {
    var i = 4u;
    total[i] = 1u;
}
`}
	res := []Binding{{Kind: BindingStorage, Data: u32s(0, 0, 0, 0)}}
	out, err := Exec(files, "main.wesl", "main", DefaultOptions(), res, nil, nil)
	assert.Nil(t, out)
	de := weslError(t, err)
	assert.Equal(t, "exec", de.Source)
	require.Len(t, de.Diagnostics, 1)
	assert.Equal(t, "main.wesl", de.Diagnostics[0].File)

	er := NewExecResult(out, err)
	assert.False(t, er.Success)
	assert.Nil(t, er.Resources)
}

func TestExecWorkgroupFaultIsAnError(t *testing.T) {
	files := map[string]string{"main.wesl": `@group(0) @binding(0) var<storage, read_write> buf: array<u32>;

@compute @workgroup_size(4)
fn main(@builtin(local_invocation_index) i: u32) {
    buf[i + 8u] = 1u;
}
`}
	res := []Binding{{Kind: BindingStorage, Data: u32s(0, 0)}}
	out, err := Exec(files, "main.wesl", "main", DefaultOptions(), res, nil, nil)
	assert.Nil(t, out)
	de := weslError(t, err)
	assert.Equal(t, "exec", de.Source)
	require.Len(t, de.Diagnostics, 1)
	assert.Equal(t, "main.wesl", de.Diagnostics[0].File)
}

func TestExecKindMismatchIsAValidationError(t *testing.T) {
	files := map[string]string{"main.wgsl": copyShader}
	in := []Binding{
		{Group: 0, Binding: 0, Kind: BindingUniform, Data: u32s(1, 2, 3, 4)},
		{Group: 0, Binding: 1, Kind: BindingUniform, Data: u32s(0, 0, 0, 0)},
	}
	_, err := Exec(files, "main.wgsl", "main", DefaultOptions(), in, nil, nil)
	de := weslError(t, err)
	assert.Equal(t, "validate", de.Source)
}

func TestExecUnknownEntrypoint(t *testing.T) {
	files := map[string]string{"main.wgsl": copyShader}
	_, err := Exec(files, "main.wgsl", "nope", DefaultOptions(), nil, nil, nil)
	de := weslError(t, err)
	assert.Equal(t, "strip", de.Source)

	opts := DefaultOptions()
	opts.Strip = false
	opts.Validate = false
	_, err = Exec(files, "main.wgsl", "nope", opts, nil, nil, nil)
	de = weslError(t, err)
	assert.Equal(t, "exec", de.Source)
}

func TestResultEncoding(t *testing.T) {
	_, err := Eval(evalFiles, "main.wesl", "missing", DefaultOptions(), nil)
	res := NewEvalResult("", err)

	data, jerr := json.Marshal(res)
	require.NoError(t, jerr)
	assert.Contains(t, string(data), `"success":false`)
	assert.Contains(t, string(data), `"source":"eval"`)

	packed, merr := msgpack.Marshal(res)
	require.NoError(t, merr)
	var back Result
	require.NoError(t, msgpack.Unmarshal(packed, &back))
	assert.False(t, back.Success)
	require.NotNil(t, back.Error)
	assert.Equal(t, res.Error.Message, back.Error.Message)
}

func TestStageLogsAndMetrics(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	registry := prometheus.NewRegistry()
	RegisterMetrics(registry)

	_, err := Compile(helperFiles, "main.wesl", DefaultOptions(), nil, nil)
	require.NoError(t, err)

	stages := map[string]bool{}
	for _, e := range logs.FilterMessage("stage").All() {
		stages[e.ContextMap()["stage"].(string)] = true
	}
	for _, s := range []string{"resolve", "generics", "mangle", "strip", "validate", "lower"} {
		assert.True(t, stages[s], "stage %s not logged", s)
	}

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "wesl_pipeline_stage_duration_seconds", families[0].GetName())
}

func TestVersion(t *testing.T) {
	assert.Regexp(t, `^\d+\.\d+\.\d+$`, Version())
}
