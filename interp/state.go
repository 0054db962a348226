package interp

import (
	"slices"

	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// mode selects which declarations an expression may read.
type mode uint8

const (
	modeRuntime  mode = iota
	modeOverride      // const and override declarations
	modeConst         // const declarations only
)

const maxCallDepth = 256

// Machine holds what every invocation of one execution shares: resolved
// types, constant and override values, and module-scope memory outside the
// private address space.
type Machine struct {
	module    *ir.Module
	types     *ir.TypeResolver
	typeCache map[wgsl.Type]ir.Type

	values    map[wgsl.DeclID]Value
	active    map[wgsl.DeclID]bool
	overrides map[wgsl.DeclID]Value
	globals   map[wgsl.DeclID]*Value
	private   map[wgsl.DeclID]Value

	steps     int64
	stepLimit int64
}

func newMachine(m *ir.Module) *Machine {
	return &Machine{
		module:    m,
		types:     ir.NewTypeResolver(m),
		typeCache: make(map[wgsl.Type]ir.Type),
		values:    make(map[wgsl.DeclID]Value),
		active:    make(map[wgsl.DeclID]bool),
		overrides: make(map[wgsl.DeclID]Value),
		globals:   make(map[wgsl.DeclID]*Value),
		private:   make(map[wgsl.DeclID]Value),
		stepLimit: DefaultStepLimit,
	}
}

func (m *Machine) newThread(md mode) *thread {
	return &thread{m: m, mode: md, private: make(map[wgsl.DeclID]*Value)}
}

// resolveType resolves an AST type, faulting when it cannot.
func (m *Machine) resolveType(at wgsl.Type) ir.Type {
	if typ, ok := m.typeCache[at]; ok {
		return typ
	}
	typ, err := m.types.Resolve(at)
	if err != nil {
		span := at.Pos()
		if te, ok := err.(*ir.TypeError); ok && te.Span.End.Offset > 0 {
			span = te.Span
		}
		faultf(span, FaultUnresolved, "%s", err)
	}
	m.typeCache[at] = typ
	return typ
}

// declValue returns the value of a const or override declaration,
// evaluating and caching it on first use.
func (m *Machine) declValue(d *ir.Decl, span wgsl.Span) Value {
	if v, ok := m.values[d.ID]; ok {
		return v
	}
	if m.active[d.ID] {
		faultf(span, FaultUnresolved, "%s is defined in terms of itself", d.ShortName)
	}
	m.active[d.ID] = true
	defer delete(m.active, d.ID)

	var v Value
	switch n := d.Node.(type) {
	case *wgsl.ConstDecl:
		t := m.newThread(modeConst)
		v = t.eval(n.Init)
		if n.Type != nil {
			v = t.convertTo(n.Init.Pos(), v, m.resolveType(n.Type))
		}
	case *wgsl.OverrideDecl:
		if o, ok := m.overrides[d.ID]; ok {
			v = o
			break
		}
		if n.Init == nil {
			faultf(n.Span, FaultMissingOverride, "override %s has no initializer and no value was supplied", d.ShortName)
		}
		t := m.newThread(modeOverride)
		v = t.eval(n.Init)
		if n.Type != nil {
			v = t.convertTo(n.Init.Pos(), v, m.resolveType(n.Type))
		} else {
			v = concretize(v)
		}
	default:
		faultf(span, FaultUnresolved, "%s is not a value", d.ShortName)
	}
	m.values[d.ID] = v
	return v
}

// privateInit returns the initial value of a private variable.
func (m *Machine) privateInit(d *ir.Decl, v *wgsl.VarDecl) Value {
	if init, ok := m.private[d.ID]; ok {
		return init
	}
	var typ ir.Type
	if v.Type != nil {
		typ = m.resolveType(v.Type)
	}
	var init Value
	if v.Init != nil {
		t := m.newThread(modeOverride)
		init = t.eval(v.Init)
		if typ != nil {
			init = t.convertTo(v.Init.Pos(), init, typ)
		} else {
			init = concretize(init)
		}
	} else {
		init = Zero(typ)
	}
	m.private[d.ID] = init
	return init
}

// Ref designates a memory location: a root cell and the component
// indices leading from it to the referenced value.
type Ref struct {
	root   *Value
	path   []int
	Type   ir.Type
	Space  ir.AddressSpace
	Access ir.AccessMode
}

func (r *Ref) target() *Value {
	v := r.root
	for _, i := range r.path {
		v = &v.Elems[i]
	}
	return v
}

func (r *Ref) load() Value {
	return r.target().Clone()
}

func (r *Ref) at(i int, t ir.Type) *Ref {
	return &Ref{
		root:   r.root,
		path:   append(slices.Clip(r.path), i),
		Type:   t,
		Space:  r.Space,
		Access: r.Access,
	}
}

func pointerTo(r *Ref) Value {
	return Value{Type: ir.PointerType{Base: r.Type, Space: r.Space, Access: r.Access}, Ref: r}
}

// local is a function-scope name: a var, let, const or parameter.
type local struct {
	cell    *Value
	typ     ir.Type
	mutable bool
}

// thread is the evaluation state of one invocation, or of one constant
// evaluation.
type thread struct {
	m       *Machine
	mode    mode
	scopes  []map[string]*local
	private map[wgsl.DeclID]*Value
	depth   int
	ret     Value
	inv     *invocation
}

func (t *thread) constant() bool { return t.mode != modeRuntime }

func (t *thread) push() { t.scopes = append(t.scopes, map[string]*local{}) }
func (t *thread) pop()  { t.scopes = t.scopes[:len(t.scopes)-1] }

func (t *thread) declare(name string, l *local) {
	t.scopes[len(t.scopes)-1][name] = l
}

func (t *thread) lookup(name string) (*local, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if l, ok := t.scopes[i][name]; ok {
			return l, true
		}
	}
	return nil, false
}

func (t *thread) step(span wgsl.Span) {
	t.m.steps++
	if t.m.steps > t.m.stepLimit {
		faultf(span, FaultStepLimit, "execution exceeded %d steps", t.m.stepLimit)
	}
}

func (t *thread) resolveType(at wgsl.Type) ir.Type {
	return t.m.resolveType(at)
}

// convertTo converts v for storage in a location of type typ.
func (t *thread) convertTo(span wgsl.Span, v Value, typ ir.Type) Value {
	if typ == nil || v.Type == typ {
		return v
	}
	if !ir.Assignable(typ, v.Type) {
		faultf(span, FaultTypeMismatch, "cannot use a value of type %s as %s", ir.TypeName(v.Type), ir.TypeName(typ))
	}
	return convert(v, typ)
}

// globalRef returns the memory of a module-scope variable.
func (t *thread) globalRef(d *ir.Decl, span wgsl.Span) *Ref {
	v := d.Node.(*wgsl.VarDecl)
	if t.constant() {
		faultf(span, FaultNotConstant, "%s is a variable, not a constant", d.ShortName)
	}
	space, access := ir.VarSpace(v)
	if space == ir.SpaceFunction && !isResource(v) {
		space = ir.SpacePrivate
	}
	if cell, ok := t.m.globals[d.ID]; ok {
		switch cell.Type.(type) {
		case ir.ImageType, ir.SamplerType:
			space, access = ir.SpaceHandle, ir.AccessRead
		}
		return &Ref{root: cell, Type: cell.Type, Space: space, Access: access}
	}
	var cell *Value
	switch space {
	case ir.SpacePrivate:
		cell = t.private[d.ID]
		if cell == nil {
			init := t.m.privateInit(d, v).Clone()
			cell = &init
			t.private[d.ID] = cell
		}
	case ir.SpaceWorkGroup:
		zero := Zero(t.resolveType(v.Type))
		cell = &zero
		t.m.globals[d.ID] = cell
	default:
		faultf(span, FaultUnresolved, "no resource is bound for %s", d.ShortName)
	}
	return &Ref{root: cell, Type: cell.Type, Space: space, Access: access}
}

func (t *thread) load(span wgsl.Span, r *Ref) Value {
	if r.Access == ir.AccessWrite {
		faultf(span, FaultInvalidOperation, "cannot read from write-only memory")
	}
	return r.load()
}

func (t *thread) store(span wgsl.Span, r *Ref, v Value) {
	if r.Access == ir.AccessRead {
		faultf(span, FaultInvalidOperation, "cannot write to read-only %s memory", r.Space)
	}
	v = t.convertTo(span, v, r.Type)
	*r.target() = v.Clone()
}

// isResource reports whether a module-scope variable is bound by the caller.
func isResource(v *wgsl.VarDecl) bool {
	_, ok := wgsl.AttributeNamed(v.Attributes, "binding")
	return ok
}
