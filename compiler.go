package wesl

import (
	"github.com/gogpu/wesl/cache"
	"github.com/gogpu/wesl/resolve"
)

// Compiler is a long-lived handle that memoises parsed files across
// calls. The cache is consulted only when CompileOptions.Lazy is set;
// otherwise a Compiler behaves like the package-level functions.
//
// A Compiler is safe for concurrent use.
type Compiler struct {
	cache *cache.Cache
}

// CompilerOptions configures NewCompiler.
type CompilerOptions struct {
	// MaxEntries bounds the number of cached files. Zero means
	// cache.DefaultMaxEntries.
	MaxEntries int
	// Metrics, when set, records cache lookups.
	Metrics *cache.Metrics
}

// NewCompiler creates a Compiler.
func NewCompiler(opts CompilerOptions) *Compiler {
	return &Compiler{cache: cache.New(cache.Options{
		MaxEntries: opts.MaxEntries,
		Metrics:    opts.Metrics,
	})}
}

// Close releases the cache. The Compiler remains usable without caching.
func (c *Compiler) Close() {
	c.cache.Close()
}

// Cached returns the number of cached files.
func (c *Compiler) Cached() int {
	return c.cache.Len()
}

func (c *Compiler) parser(opts CompileOptions) resolve.ParseFunc {
	if !opts.Lazy {
		return nil
	}
	return c.cache.Parse
}

// Compile is Compile with the handle's cache.
func (c *Compiler) Compile(files map[string]string, root string, opts CompileOptions, keep []string, features Features) (*Output, error) {
	return newPipeline(files, root, opts, features, c.parser(opts)).compile(keep)
}

// Eval is Eval with the handle's cache.
func (c *Compiler) Eval(files map[string]string, root, expr string, opts CompileOptions, features Features) (string, error) {
	return newPipeline(files, root, opts, features, c.parser(opts)).eval(expr)
}

// Exec is Exec with the handle's cache.
func (c *Compiler) Exec(files map[string]string, root, entrypoint string, opts CompileOptions, resources []Binding, overrides map[string]string, features Features) ([]Binding, error) {
	return newPipeline(files, root, opts, features, c.parser(opts)).exec(entrypoint, resources, overrides)
}
