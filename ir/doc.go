// Package ir defines the flattened module the WESL pipeline operates on.
//
// A Module is an arena of module-scope declarations gathered from every
// resolved source file. Each declaration keeps its parsed AST, the file it
// came from and its module-qualified name; identifiers inside declarations
// refer to other declarations by DeclID once the module has been linked.
//
// # Structure
//
// Besides the arena, the package provides:
//   - Graph: the reference graph between declarations, with adjacency
//     lists and breadth-first closure
//   - Types: resolved WGSL types with host-shareable size and alignment
//   - TypeResolver and Typer: AST types and expressions to resolved types
//   - BindingKind: the kinds a caller may declare for resource bindings
//   - Validator: semantic checks that collect every problem before failing
//
// # Pipeline
//
// Passes consume and produce Modules:
//
//	resolve → condcomp → generics → mangle → strip → validate → lower
//
// Each pass returns a new Module together with its diagnostics, so a
// failing stage never leaves a half-rewritten module behind.
package ir
