// Package wgsl provides WESL and WGSL parsing and printing.
//
// WESL extends WGSL with imports between modules, conditional compilation
// through @if/@elif/@else attributes, and generic functions and structs.
// This package only handles syntax: name resolution, conditional
// filtering and instantiation happen in later passes.
//
// # Components
//
// The wgsl package consists of several components:
//
//   - Lexer: Tokenizes source code into tokens
//   - Parser: Parses tokens into an AST (Abstract Syntax Tree)
//   - AST: Type definitions for the abstract syntax tree
//   - Inspect and Clone: traversal and deep copies for rewriting passes
//   - Printer: Renders an AST back to WGSL text
//
// # Usage
//
// To parse a source file:
//
//	source := `
//	import package::util::helper;
//
//	@vertex
//	fn main() -> @builtin(position) vec4<f32> {
//	    return helper();
//	}
//	`
//
//	module, err := wgsl.ParseFile("main.wesl", source)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(wgsl.Print(module))
//
// Parse errors are returned as SourceErrors; every entry carries the file
// name and the byte span of the offending token.
//
// # WGSL Specification
//
// This implementation follows the WGSL specification:
// https://www.w3.org/TR/WGSL/
package wgsl
