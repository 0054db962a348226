package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/wesl"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--color", "off"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

var shaderTree = map[string]string{
	"main.wesl": `import package::util::helper;

@if(debug) const level = 2;
@else const level = 1;

@compute @workgroup_size(1)
fn main() {
    let v = helper() + f32(level);
    _ = v;
}
`,
	"util/helper.wesl": `fn helper() -> f32 { return 1.0; }`,
	"notes.txt":        `ignored`,
}

func TestLoadSources(t *testing.T) {
	dir := writeTree(t, shaderTree)
	files, err := loadSources(t.Context(), dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, "main.wesl")
	assert.Contains(t, files, "util/helper.wesl")
}

func TestCompileCommand(t *testing.T) {
	dir := writeTree(t, shaderTree)
	out, _, err := run(t, "-C", dir, "compile")
	require.NoError(t, err)
	assert.Contains(t, out, "fn package_util_helper_helper() -> f32")
	assert.Contains(t, out, "const level = 1;")
}

func TestCompileFeaturesAndMap(t *testing.T) {
	dir := writeTree(t, shaderTree)
	mapPath := filepath.Join(dir, "out.map")
	outPath := filepath.Join(dir, "out.wgsl")
	_, _, err := run(t, "-C", dir, "-f", "debug", "compile", "-o", outPath, "--sourcemap", mapPath)
	require.NoError(t, err)

	text, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(text), "const level = 2;")

	data, err := os.ReadFile(mapPath)
	require.NoError(t, err)
	var sm wesl.SourceMap
	require.NoError(t, json.Unmarshal(data, &sm))
	assert.Equal(t, "package::util::helper::helper", sm.Original("package_util_helper_helper"))
}

func TestManifest(t *testing.T) {
	tree := map[string]string{
		"wesl.toml": `
[package]
root = "entry.wesl"

[options]
mangler = "none"
strip = false

[features]
debug = true
`,
		"entry.wesl": `@if(debug) fn dbg() {}
fn unused() {}
`,
	}
	dir := writeTree(t, tree)
	out, _, err := run(t, "-C", dir, "compile")
	require.NoError(t, err)
	assert.Contains(t, out, "fn dbg()")
	assert.Contains(t, out, "fn unused()")

	// Flags win over the manifest.
	out, _, err = run(t, "-C", dir, "--strip", "--keep-root=false", "-f", "debug=false", "compile", "-k", "unused")
	require.NoError(t, err)
	assert.NotContains(t, out, "dbg")
	assert.Contains(t, out, "fn unused()")
}

func TestManifestUnknownKey(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"wesl.toml": "[options]\nstripp = true\n",
		"main.wesl": "fn f() {}",
	})
	_, _, err := run(t, "-C", dir, "compile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key options.stripp")
}

func TestCompileErrorIsReported(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.wesl": "fn f() -> i32 { return missing; }\n",
	})
	_, stderr, err := run(t, "-C", dir, "--strip=false", "compile")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "resolve:")
	assert.Contains(t, stderr, "main.wesl:1:")
	assert.Contains(t, stderr, "missing")
}

func TestEvalCommand(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.wesl": "const n = 3;\n"})
	out, _, err := run(t, "-C", dir, "eval", "n * 2")
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)

	_, stderr, err := run(t, "-C", dir, "eval", "n +")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "eval: invalid expression")
	assert.Contains(t, stderr, "<expression>")
}

func TestExecCommand(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.wesl": `override k: u32 = 1u;
@group(0) @binding(0) var<storage, read_write> data: array<u32, 2>;

@compute @workgroup_size(2)
fn main(@builtin(local_invocation_index) i: u32) {
    data[i] = (i + 1u) * k;
}
`,
	})
	in := []wesl.Binding{{Kind: wesl.BindingStorage, Data: make([]byte, 8)}}
	packed, err := msgpack.Marshal(in)
	require.NoError(t, err)
	resPath := filepath.Join(dir, "in.msgpack")
	require.NoError(t, os.WriteFile(resPath, packed, 0o644))

	out, _, err := run(t, "-C", dir, "exec", "main", "-r", resPath)
	require.NoError(t, err)
	assert.Equal(t, "@group(0) @binding(0) storage: 0100000002000000\n", out)

	resultPath := filepath.Join(dir, "out.msgpack")
	_, _, err = run(t, "-C", dir, "exec", "main", "-r", resPath, "--override", "k=3u", "-o", resultPath)
	require.NoError(t, err)
	data, err := os.ReadFile(resultPath)
	require.NoError(t, err)
	var res wesl.ExecResult
	require.NoError(t, msgpack.Unmarshal(data, &res))
	require.True(t, res.Success)
	require.Len(t, res.Resources, 1)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(res.Resources[0].Data))
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(res.Resources[0].Data[4:]))
}

func TestExecFailureWritesResult(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.wesl": `@compute @workgroup_size(1) fn main() {}`,
	})
	resultPath := filepath.Join(dir, "out.msgpack")
	_, _, err := run(t, "-C", dir, "exec", "nope", "-o", resultPath)
	require.ErrorIs(t, err, errReported)

	data, err := os.ReadFile(resultPath)
	require.NoError(t, err)
	var res wesl.ExecResult
	require.NoError(t, msgpack.Unmarshal(data, &res))
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Nil(t, res.Resources)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "weslc version "+wesl.Version()+"\n", out)
}

func TestBadFlags(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.wesl": "fn f() {}"})
	_, _, err := run(t, "-C", dir, "--mangler", "rot13", "compile")
	require.Error(t, err)
	_, _, err = run(t, "-C", dir, "-f", "x=maybe", "compile")
	require.Error(t, err)
	_, _, err = run(t, "-C", dir, "exec", "main", "--override", "novalue")
	require.Error(t, err)
}
