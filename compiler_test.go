package wesl

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wesl/cache"
)

func TestCompilerCachesOnlyLazyCompilations(t *testing.T) {
	c := NewCompiler(CompilerOptions{})
	defer c.Close()

	opts := DefaultOptions()
	_, err := c.Compile(helperFiles, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Cached())

	opts.Lazy = true
	first, err := c.Compile(helperFiles, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Cached())

	second, err := c.Compile(helperFiles, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 2, c.Cached())

	plain, err := Compile(helperFiles, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, plain.Text, first.Text)
}

func TestCompilerSharesCacheAcrossOperations(t *testing.T) {
	metrics := cache.NewMetrics()
	c := NewCompiler(CompilerOptions{Metrics: metrics})
	defer c.Close()

	opts := DefaultOptions()
	opts.Lazy = true
	files := map[string]string{"main.wgsl": copyShader}

	_, err := c.Compile(files, "main.wgsl", opts, nil, nil)
	require.NoError(t, err)
	in := []Binding{
		{Group: 0, Binding: 0, Kind: BindingUniform, Data: u32s(9, 8, 7, 6)},
		{Group: 0, Binding: 1, Kind: BindingStorage, Data: u32s(0, 0, 0, 0)},
	}
	out, err := c.Exec(files, "main.wgsl", "main", opts, in, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, in[0].Data, out[1].Data)

	_, err = c.Eval(files, "main.wgsl", "1 + 1", opts, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Cached())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Lookups().WithLabelValues("miss")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Lookups().WithLabelValues("hit")), 0)
}

func TestCompilerAfterClose(t *testing.T) {
	c := NewCompiler(CompilerOptions{MaxEntries: 4})
	opts := DefaultOptions()
	opts.Lazy = true
	_, err := c.Compile(helperFiles, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	c.Close()
	assert.Equal(t, 0, c.Cached())

	_, err = c.Compile(helperFiles, "main.wesl", opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Cached())
}
