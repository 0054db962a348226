// Package generics instantiates generic functions and structs.
//
// Every reference to a generic declaration with explicit template
// arguments, f<f32, 4>(x) or Pair<i32>, is bound to a specialised copy of
// the declaration in which the template parameters are replaced by the
// arguments. References with equal argument tuples share one instance.
// Generic templates themselves are dropped from the result.
package generics

import (
	"fmt"
	"strings"

	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// MaxInstances bounds the number of instances per module, which stops
// templates that instantiate themselves with ever larger arguments.
const MaxInstances = 4096

// Instantiate returns a copy of m in which every generic reference is bound
// to an instance. When enabled is false any reference to a generic
// declaration is an error.
func Instantiate(m *ir.Module, enabled bool) (*ir.Module, diag.List) {
	out := m.Clone()
	in := &instantiator{
		module:    out,
		enabled:   enabled,
		types:     ir.NewTypeResolver(out),
		instances: make(map[string]*ir.Decl),
		byGeneric: make(map[wgsl.DeclID][]*ir.Decl),
	}

	var work []*ir.Decl
	for _, d := range out.Decls {
		if !d.Generic {
			work = append(work, d)
		}
	}
	for len(work) > 0 {
		d := work[0]
		work = work[1:]
		in.pending = nil
		in.rewrite(d.Node)
		work = append(work, in.pending...)
	}

	// Instances take the place of their template.
	var decls []*ir.Decl
	for _, d := range out.Decls {
		if d.Instance {
			continue
		}
		if d.Generic {
			decls = append(decls, in.byGeneric[d.ID]...)
			continue
		}
		decls = append(decls, d)
	}
	return out.Replace(decls), in.diags
}

type instantiator struct {
	module    *ir.Module
	enabled   bool
	types     *ir.TypeResolver
	instances map[string]*ir.Decl
	byGeneric map[wgsl.DeclID][]*ir.Decl
	pending   []*ir.Decl
	diags     diag.List
}

// rewrite binds the generic references inside n, innermost first.
func (in *instantiator) rewrite(n wgsl.Node) {
	var post []wgsl.Node
	wgsl.Inspect(n, func(n wgsl.Node) bool {
		switch n.(type) {
		case *wgsl.CallExpr, *wgsl.NamedType:
			post = append(post, n)
		}
		return true
	})
	// Inspect is pre-order; walking backwards visits template arguments
	// before the reference that carries them.
	for i := len(post) - 1; i >= 0; i-- {
		switch n := post[i].(type) {
		case *wgsl.CallExpr:
			if id := in.bind(n.Func.Ref, n.Func.Name, n.TemplateArgs, n.Span); id != wgsl.NoDecl {
				n.Func.Ref = id
				n.TemplateArgs = nil
			}
		case *wgsl.NamedType:
			if id := in.bind(n.Ref, n.Name, n.TypeParams, n.Span); id != wgsl.NoDecl {
				n.Ref = id
				n.TypeParams = nil
			}
		}
	}
}

// bind returns the instance for a reference to ref with args, or NoDecl
// when ref is not generic or the reference is invalid.
func (in *instantiator) bind(ref wgsl.DeclID, name string, args []wgsl.Type, span wgsl.Span) wgsl.DeclID {
	g := in.module.Decl(ref)
	if g == nil || !g.Generic {
		return wgsl.NoDecl
	}
	if !in.enabled {
		in.diags.Errorf(span, "%s is generic, but generics are disabled", name)
		return wgsl.NoDecl
	}
	params := wgsl.TemplateParams(g.Node)
	if len(args) != len(params) {
		in.diags.Errorf(span, "%s expects %d template arguments, got %d", name, len(params), len(args))
		return wgsl.NoDecl
	}

	subst := make(map[string]argument, len(params))
	keys := make([]string, len(params))
	for i, p := range params {
		a, err := in.argument(p, args[i])
		if err != nil {
			in.diags.Errorf(args[i].Pos(), "cannot instantiate %s: %s", name, err)
			return wgsl.NoDecl
		}
		subst[p.Name] = a
		keys[i] = a.key
	}

	short := fmt.Sprintf("%s<%s>", g.ShortName, strings.Join(keys, ","))
	key := fmt.Sprintf("%d|%s", g.ID, short)
	if inst, ok := in.instances[key]; ok {
		return inst.ID
	}
	if len(in.instances) >= MaxInstances {
		in.diags.Errorf(span, "instantiating %s exceeds the limit of %d instances", short, MaxInstances)
		return wgsl.NoDecl
	}

	node := wgsl.CloneWith(g.Node, substitution(subst))
	clearTemplateParams(node)
	inst := in.module.Add(&ir.Decl{
		Kind:      g.Kind,
		ShortName: short,
		Module:    g.Module,
		File:      g.File,
		Node:      node,
		Root:      g.Root,
		Instance:  true,
	})
	in.instances[key] = inst
	in.byGeneric[g.ID] = append(in.byGeneric[g.ID], inst)
	in.pending = append(in.pending, inst)
	return inst.ID
}

func clearTemplateParams(d wgsl.Decl) {
	switch d := d.(type) {
	case *wgsl.FunctionDecl:
		d.TemplateParams = nil
	case *wgsl.StructDecl:
		d.TemplateParams = nil
	}
}
