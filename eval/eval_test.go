package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/resolve"
)

var files = map[string]string{
	"main.wesl": `
import package::lib::scale;

const n = 4;
struct S { a: f32, b: vec2<i32> }
var<private> counter: i32;
const big = 2147483647i;
`,
	"lib.wesl": `
const scale = 1.5;
const hidden = 7u;
`,
}

func render(t *testing.T, text string) (string, error) {
	t.Helper()
	e, perr := Parse(text)
	if perr != nil {
		return "", perr
	}
	src := resolve.NewSourceSet(files, "main.wesl")
	m, d, err := resolve.ResolveExpression(src, resolve.Options{Imports: true}, e)
	if err != nil {
		return "", err
	}
	out, derr := Render(m, d.ID)
	if derr != nil {
		return "", derr
	}
	return out, nil
}

func TestRender(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"n * 2", "8"},
		{"n * scale", "6.0"},
		{"package::lib::hidden + 1", "8u"},
		{"S(1.5, vec2(1, 2))", "S(1.5f, vec2<i32>(1i, 2i))"},
		{"vec3(1, 2, 3) * 2", "vec3(2, 4, 6)"},
		{"array(1u, 2u)", "array<u32, 2>(1u, 2u)"},
		{"clamp(n, 0, 3) == 3", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := render(t, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		expr    string
		message string
	}{
		{"1 +", "invalid expression"},
		{"missing + 1", "invalid expression"},
		{"counter + 1", "not a constant expression"},
		{"big + 1i", "evaluation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := render(t, tt.expr)
			var de *diag.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "eval", de.Source)
			assert.Equal(t, tt.message, de.Message)
			require.NotEmpty(t, de.Diagnostics)
			assert.Equal(t, File, de.Diagnostics[0].File)
		})
	}
}
