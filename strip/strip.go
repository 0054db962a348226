// Package strip removes declarations that cannot be reached from a set of
// roots over the module's reference graph.
package strip

import (
	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// Options selects the roots of the reachability walk.
type Options struct {
	// Keep names declarations that are always retained. Names are looked
	// up with ir.Module.Lookup, so root declarations may be given by short
	// name and others by qualified name.
	Keep []string
	// KeepRoot retains every declaration of the root file.
	KeepRoot bool
}

// Strip returns the declarations of m reachable from the roots given by
// opts, in their original order. When opts names no roots at all the root
// file's entrypoints are used. Keep names that match no declaration are
// reported as warnings.
//
// KeepRoot also retains the root file's const_assert declarations. No
// other const_assert survives, since nothing references one.
func Strip(m *ir.Module, opts Options) (*ir.Module, diag.List) {
	var diags diag.List
	var roots []wgsl.DeclID
	for _, name := range opts.Keep {
		d, ok := m.Lookup(name)
		if !ok {
			diags.Warningf(wgsl.Span{Source: m.RootFile}, "keep: no declaration named %s", name)
			continue
		}
		roots = append(roots, d.ID)
	}
	if opts.KeepRoot {
		for _, d := range m.Decls {
			if d.Root {
				roots = append(roots, d.ID)
			}
		}
	}
	if len(opts.Keep) == 0 && !opts.KeepRoot {
		for _, d := range m.EntryPoints() {
			if d.Root {
				roots = append(roots, d.ID)
			}
		}
	}
	return Reachable(m, roots), diags
}

// Entrypoint strips m down to what the named entrypoint uses. It fails when
// name does not denote an entrypoint function.
func Entrypoint(m *ir.Module, name string) (*ir.Module, *diag.Error) {
	d, ok := m.Lookup(name)
	if !ok {
		return nil, diag.ErrorNoPos("strip", "entrypoint %s not found", name)
	}
	if d.Stage() == ir.StageNone {
		return nil, diag.ErrorNoPos("strip", "%s is not an entrypoint", name)
	}
	return Reachable(m, []wgsl.DeclID{d.ID}), nil
}

// Reachable keeps exactly the transitive closure of roots.
func Reachable(m *ir.Module, roots []wgsl.DeclID) *ir.Module {
	live := ir.BuildGraph(m).Reachable(roots)
	return m.Filter(func(d *ir.Decl) bool { return live[d.ID] })
}
