// Package wesl provides a Pure Go compiler and interpreter for WESL, the
// extended WebGPU Shading Language.
//
// WESL adds to WGSL:
//   - Multi-file modules with import statements and qualified references
//   - Conditional compilation with @if, @elif and @else
//   - Generic functions and structs instantiated per argument set
//
// Compile links a set of virtual files into one plain WGSL module. Eval
// evaluates a constant expression in the context of the root file. Exec
// runs an entrypoint in software against caller-supplied resources,
// without a graphics device.
//
// Example usage:
//
//	files := map[string]string{
//	    "main.wesl": `
//	import package::lib::double;
//	@compute @workgroup_size(1)
//	fn main() { _ = double(2); }`,
//	    "lib.wesl": `fn double(x: i32) -> i32 { return x * 2; }`,
//	}
//	out, err := wesl.Compile(files, "main.wesl", wesl.DefaultOptions(), nil, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Text)
//
// The compilation pipeline is:
//  1. Resolve imports and link every name, applying @if filtering
//  2. Instantiate generics
//  3. Mangle module-qualified names into flat identifiers
//  4. Strip declarations unreachable from the keep set
//  5. Validate
//  6. Lower to plain WGSL and print
//
// Each stage can be switched off through CompileOptions. Every error
// returned by this package is an *Error naming the failing stage.
package wesl

// version is the module version reported by Version.
const version = "0.4.0"

// Version returns the version of the compiler.
func Version() string {
	return version
}

// Compile links files starting at root and returns the generated WGSL.
//
// keep names the declarations stripping retains, by qualified name or by
// short name for root declarations. When keep is empty the root file's
// entrypoints are kept. Features drives @if predicates.
func Compile(files map[string]string, root string, opts CompileOptions, keep []string, features Features) (*Output, error) {
	return newPipeline(files, root, opts, features, nil).compile(keep)
}

// Eval evaluates expr as a constant expression written in the root file
// and returns the value as WGSL text. Errors inside the expression are
// positioned in the pseudo-file "<expression>".
func Eval(files map[string]string, root, expr string, opts CompileOptions, features Features) (string, error) {
	return newPipeline(files, root, opts, features, nil).eval(expr)
}

// Exec runs entrypoint with the given resources and override values and
// returns the resources after execution. The result has the same
// bindings as resources, in the same order; only writable buffers
// change. A failed execution returns no resources.
//
// Compute entrypoints run one workgroup. Vertex and fragment entrypoints
// run one invocation with zeroed inputs.
func Exec(files map[string]string, root, entrypoint string, opts CompileOptions, resources []Binding, overrides map[string]string, features Features) ([]Binding, error) {
	return newPipeline(files, root, opts, features, nil).exec(entrypoint, resources, overrides)
}
