package lower

import (
	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/mangle"
	"github.com/gogpu/wesl/wgsl"
)

// Emit writes the emitted names of m into a copy of its AST and prints it.
// With sourcemap set it also returns the range of every declaration in the
// generated text and the table of renamed identifiers.
func Emit(m *ir.Module, sourcemap bool) (string, *diag.SourceMap) {
	named := m.Clone()
	ir.ApplyNames(named)
	text, marks := wgsl.PrintModule(named.AST())
	if !sourcemap {
		return text, nil
	}

	sm := diag.NewSourceMap()
	for _, mk := range marks {
		d := m.Decls[mk.Decl]
		span := d.Span()
		sm.Add(diag.Mapping{
			GenStart: mk.Start,
			GenEnd:   mk.End,
			File:     d.File,
			Start:    span.Start.Offset,
			End:      span.End.Offset,
			Name:     d.QualifiedName(),
		})
	}
	for gen, orig := range mangle.Names(m) {
		sm.Names[gen] = orig
	}
	return text, sm
}
