package wesl

import "github.com/gogpu/wesl/mangle"

// Mangler selects how module-qualified names are flattened.
type Mangler = mangle.Strategy

// Mangler strategies. The numbering is stable.
const (
	MangleEscape = mangle.StrategyEscape
	MangleHash   = mangle.StrategyHash
	MangleNone   = mangle.StrategyNone
)

// CompileOptions selects the pipeline stages. Every combination is
// accepted; some are no-ops, e.g. KeepRoot without Strip.
type CompileOptions struct {
	// Mangler is the naming strategy for non-root declarations.
	Mangler Mangler `json:"mangler" msgpack:"mangler" toml:"mangler"`

	// SourceMap returns a mapping from the output back to the sources.
	SourceMap bool `json:"sourcemap" msgpack:"sourcemap" toml:"sourcemap"`

	// Imports enables import statements and qualified references.
	Imports bool `json:"imports" msgpack:"imports" toml:"imports"`

	// Condcomp applies @if/@elif/@else with the caller's features.
	Condcomp bool `json:"condcomp" msgpack:"condcomp" toml:"condcomp"`

	// Generics instantiates templated functions and structs.
	Generics bool `json:"generics" msgpack:"generics" toml:"generics"`

	// Strip removes declarations unreachable from the keep set, or from
	// the entrypoint when executing.
	Strip bool `json:"strip" msgpack:"strip" toml:"strip"`

	// Lower rewrites what is left of the extended dialect.
	Lower bool `json:"lower" msgpack:"lower" toml:"lower"`

	// Validate runs semantic checks before lowering.
	Validate bool `json:"validate" msgpack:"validate" toml:"validate"`

	// Naga also removes constructs naga does not accept while lowering.
	Naga bool `json:"naga" msgpack:"naga" toml:"naga"`

	// Lazy loads imported modules only when one of their declarations is
	// used. A Compiler caches parsed files in this mode.
	Lazy bool `json:"lazy" msgpack:"lazy" toml:"lazy"`

	// KeepRoot retains every root declaration when stripping.
	KeepRoot bool `json:"keep_root" msgpack:"keep_root" toml:"keep_root"`

	// MangleRoot mangles root declarations too.
	MangleRoot bool `json:"mangle_root" msgpack:"mangle_root" toml:"mangle_root"`
}

// DefaultOptions returns options with every stage enabled and the escape
// mangler.
func DefaultOptions() CompileOptions {
	return CompileOptions{
		Mangler:  MangleEscape,
		Imports:  true,
		Condcomp: true,
		Generics: true,
		Strip:    true,
		Lower:    true,
		Validate: true,
	}
}
