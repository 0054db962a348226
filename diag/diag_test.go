package diag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wesl/wgsl"
)

func span(file string, start, end int) wgsl.Span {
	return wgsl.Span{
		Start:  wgsl.Position{Offset: start},
		End:    wgsl.Position{Offset: end},
		Source: file,
	}
}

func TestListAggregates(t *testing.T) {
	var l List
	l.Warningf(span("b.wesl", 4, 6), "unused keep name %q", "x")
	assert.False(t, l.HasErrors())

	l.Errorf(span("b.wesl", 1, 2), "second")
	l.Errorf(span("a.wesl", 9, 10), "first")
	l.Errorf(span("a.wesl", 9, 10), "first")
	require.True(t, l.HasErrors())
	assert.Len(t, l.Warnings(), 1)

	err := NewError("validate", "validation failed", l)
	require.Len(t, err.Diagnostics, 2, "warnings dropped and duplicates merged")
	assert.Equal(t, "a.wesl", err.Diagnostics[0].File)
	assert.Equal(t, "b.wesl", err.Diagnostics[1].File)
	assert.Equal(t, []string{"a.wesl", "b.wesl"}, err.Files())
	assert.Equal(t, "validate: validation failed: a.wesl:9: first (and 1 more)", err.Error())
}

func TestErrorNoPos(t *testing.T) {
	err := ErrorNoPos("resolve", "file %q not found", "lib.wesl")
	assert.Empty(t, err.Diagnostics)
	assert.Equal(t, `resolve: file "lib.wesl" not found`, err.Error())
}

func TestClamp(t *testing.T) {
	l := List{
		{File: "a.wesl", Start: 3, End: 99},
		{File: "missing.wesl", Start: 5, End: 7},
		{File: "a.wesl", Start: -1, End: 2},
	}
	l.Clamp(map[string]string{"a.wesl": "hello"})
	assert.Equal(t, [2]int{3, 5}, [2]int{l[0].Start, l[0].End})
	assert.Equal(t, [2]int{0, 0}, [2]int{l[1].Start, l[1].End})
	assert.Equal(t, [2]int{0, 2}, [2]int{l[2].Start, l[2].End})
}

func TestLineIndex(t *testing.T) {
	li := NewLineIndex("ab\ncd\n\nef")
	tests := []struct {
		offset    int
		line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{6, 3, 1},
		{8, 4, 2},
		{100, 4, 3},
	}
	for _, tt := range tests {
		line, col := li.Position(tt.offset)
		assert.Equal(t, tt.line, line, "line of %d", tt.offset)
		assert.Equal(t, tt.col, col, "col of %d", tt.offset)
	}
	assert.Equal(t, "cd", li.Line(2))
	assert.Equal(t, "", li.Line(3))
	assert.Equal(t, "ef", li.Line(4))
	assert.Equal(t, "", li.Line(5))
}

func TestPretty(t *testing.T) {
	files := map[string]string{"main.wesl": "fn main() {\n    let x = foo;\n}\n"}
	start := strings.Index(files["main.wesl"], "foo")
	diags := []Diagnostic{
		{File: "main.wesl", Start: start, End: start + 3, Title: "unresolved name 'foo'", Severity: SevError},
		{File: "gone.wesl", Title: "no such file", Severity: SevError},
	}

	var sb strings.Builder
	Pretty(&sb, diags, files, PrettyOpts{})
	want := "main.wesl:2:13: error: unresolved name 'foo'\n" +
		"   2 |     let x = foo;\n" +
		"     |             ^~~\n" +
		"gone.wesl: error: no such file\n"
	assert.Equal(t, want, sb.String())
}

func TestPrettyWideCharacters(t *testing.T) {
	text := "// 日本\nx"
	files := map[string]string{"w.wesl": text}
	start := strings.Index(text, "本")
	var sb strings.Builder
	Pretty(&sb, []Diagnostic{{File: "w.wesl", Start: start, End: start + len("本"), Title: "t", Severity: SevWarning}}, files, PrettyOpts{})
	lines := strings.Split(sb.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	// "// 日" is 5 columns wide, the caret covers one wide character.
	assert.Equal(t, "     |      ^~", lines[2])
}

func TestSourceMapLookup(t *testing.T) {
	m := NewSourceMap()
	m.Add(Mapping{GenStart: 0, GenEnd: 10, File: "a.wesl", Start: 5, End: 15, Name: "f"})
	m.Add(Mapping{GenStart: 12, GenEnd: 20, File: "b.wesl", Start: 0, End: 8, Name: "g"})
	m.Names["lib_g"] = "package::lib::g"

	mp, ok := m.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "f", mp.Name)

	_, ok = m.Lookup(11)
	assert.False(t, ok)

	mp, ok = m.Lookup(19)
	require.True(t, ok)
	assert.Equal(t, "b.wesl", mp.File)

	assert.Equal(t, "package::lib::g", m.Original("lib_g"))
	assert.Equal(t, "main", m.Original("main"))
}

func TestFromSourceErrors(t *testing.T) {
	_, err := wgsl.ParseFile("p.wesl", "fn (")
	require.Error(t, err)
	errs, ok := err.(wgsl.SourceErrors)
	require.True(t, ok)
	l := FromSourceErrors(errs)
	require.NotEmpty(t, l)
	assert.Equal(t, "p.wesl", l[0].File)
	assert.Equal(t, 3, l[0].Start)
	assert.True(t, l.HasErrors())
}
