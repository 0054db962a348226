package wgsl

import (
	"fmt"
	"runtime"
	"strings"
	"testing"
)

// Inputs exercise the WESL extensions: imports, conditional attributes,
// qualified paths and template parameters.

const benchModuleImports = `
import package::util::{helper, math::{clamp01 as clamp, PI}};
import super::shared;
@if(debug) import package::trace::log;

fn main() -> f32 {
    return helper() + clamp(PI) + shared::scale + package::lib::bias;
}
`

const benchModuleConditional = `
enable f16;
@if(mobile && !desktop) const scale = 0.5;
@elif(desktop) const scale = 1.0;
@else const scale = 2.0;

struct Params {
    gain: f32,
    @if(hdr) exposure: f32,
}

override passes: u32 = 2u;
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read_write> samples: array<f32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>, @if(indexed) @builtin(local_invocation_index) li: u32) {
    var acc = samples[id.x] * params.gain * scale;
    @if(hdr) {
        acc *= params.exposure;
    }
    @else acc = clamp(acc, 0.0, 1.0);
    var i = 0u;
    loop {
        acc = acc * 0.5 + 0.25;
        i++;
        continuing {
            break if i >= passes;
        }
    }
    samples[id.x] = acc;
}
`

const benchModuleGenerics = `
import package::lib::{Pair, sum};

struct Pair<T> { a: T, b: T }

fn sum<T, N: u32>(v: array<T, N>) -> T {
    var total = v[0];
    for (var i = 1u; i < N; i++) {
        total += v[i];
    }
    return total;
}

fn swap<T>(p: Pair<T>) -> Pair<T> {
    return Pair<T>(p.b, p.a);
}

@fragment
fn main() -> @location(0) vec4<f32> {
    let s = sum<f32, 4>(array<f32, 4>(1.0, 2.0, 3.0, 4.0));
    let p = swap<vec2<u32>>(Pair<vec2<u32>>(vec2u(1u, 2u), vec2u(3u, 4u)));
    let q = lib::sum<i32, 2>(array<i32, 2>(p.a.x, p.b.y));
    const_assert 1 < 2;
    return vec4<f32>(s, f32(q), 0.0, 1.0);
}
`

type benchCase struct {
	name   string
	source string
}

var benchModules = []benchCase{
	{"imports", benchModuleImports},
	{"conditional", benchModuleConditional},
	{"generics", benchModuleGenerics},
	{"linked", benchLinkedModule(32)},
}

// benchLinkedModule builds a module that references n sibling modules by
// qualified path, as a linker sees a large package.
func benchLinkedModule(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "import package::mods::m%d::{f%d, K%d as k%d};\n", i, i, i, i)
	}
	sb.WriteString("\nfn main() -> f32 {\n    var acc = 0.0;\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "    @if(feature_%d) acc += f%d(k%d) * package::mods::m%d::scale;\n", i%4, i, i, i)
	}
	sb.WriteString("    return acc;\n}\n")
	return sb.String()
}

func BenchmarkLex(b *testing.B) {
	for _, bc := range benchModules {
		b.Run(bc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				tokens, err := NewLexer(bc.source).Tokenize()
				if err != nil {
					b.Fatalf("tokenize failed: %v", err)
				}
				runtime.KeepAlive(tokens)
			}
		})
	}
}

// BenchmarkLexPaths stresses '::' and keyword lookup on import-heavy input.
func BenchmarkLexPaths(b *testing.B) {
	var sb strings.Builder
	for j := 0; j < 200; j++ {
		fmt.Fprintf(&sb, "import super::super::pkg%d::{a::b, c as d};\n", j)
	}
	source := sb.String()

	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		tokens, err := NewLexer(source).Tokenize()
		if err != nil {
			b.Fatalf("tokenize failed: %v", err)
		}
		runtime.KeepAlive(tokens)
	}
}

// BenchmarkParse measures parsing alone; tokens are produced once.
func BenchmarkParse(b *testing.B) {
	for _, bc := range benchModules {
		b.Run(bc.name, func(b *testing.B) {
			tokens, err := NewLexer(bc.source).Tokenize()
			if err != nil {
				b.Fatalf("tokenize failed: %v", err)
			}

			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				module, err := NewParser(tokens).Parse()
				if err != nil {
					b.Fatalf("parse failed: %v", err)
				}
				runtime.KeepAlive(module)
			}
		})
	}
}

// BenchmarkParsePredicates parses many @if/@elif/@else chains.
func BenchmarkParsePredicates(b *testing.B) {
	var sb strings.Builder
	for j := 0; j < 100; j++ {
		fmt.Fprintf(&sb, "@if(a%d && !(b || c)) const v%d = %d;\n", j, j, j)
		fmt.Fprintf(&sb, "@elif(b) const v%d = 0;\n", j)
		fmt.Fprintf(&sb, "@else const v%d = 1;\n", j)
	}
	source := sb.String()

	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		module, err := ParseFile("predicates.wesl", source)
		if err != nil {
			b.Fatalf("parse failed: %v", err)
		}
		runtime.KeepAlive(module)
	}
}

func BenchmarkLexAndParse(b *testing.B) {
	for _, bc := range benchModules {
		b.Run(bc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				module, err := ParseFile(bc.name+".wesl", bc.source)
				if err != nil {
					b.Fatalf("parse failed: %v", err)
				}
				runtime.KeepAlive(module)
			}
		})
	}
}

// BenchmarkPrintClone covers the per-instantiation copy and re-emit work
// the linker does for every module.
func BenchmarkPrintClone(b *testing.B) {
	for _, bc := range benchModules {
		b.Run(bc.name, func(b *testing.B) {
			ast, err := ParseFile(bc.name+".wesl", bc.source)
			if err != nil {
				b.Fatalf("parse failed: %v", err)
			}

			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				text := Print(CloneModule(ast))
				runtime.KeepAlive(text)
			}
		})
	}
}
