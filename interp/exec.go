package interp

import (
	"errors"
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// DefaultStepLimit bounds the number of statements and loop iterations a
// single execution may perform.
const DefaultStepLimit = 50_000_000

// MaxWorkgroupSize is the largest number of invocations in one workgroup.
const MaxWorkgroupSize = 1024

// Resource is one caller-supplied binding.
type Resource struct {
	Group   uint32
	Binding uint32
	Kind    ir.BindingKind
	Data    []byte
}

// Options configures Run.
type Options struct {
	// Overrides maps override names (declared, qualified or emitted) or
	// numeric @id values to WGSL literal text.
	Overrides map[string]string
	// StepLimit replaces DefaultStepLimit when positive.
	StepLimit int64
}

// ErrNoEntryPoint is returned when the requested entrypoint does not exist.
var ErrNoEntryPoint = errors.New("entrypoint not found")

// Run executes entrypoint of m against resources. Compute entrypoints run
// one workgroup of @workgroup_size invocations; vertex and fragment
// entrypoints run a single invocation with zeroed inputs.
//
// On success Run returns the resources in input order. Payloads of
// writable buffer bindings reflect the final memory state; all other
// payloads are copies of the input. On failure no resources are returned
// and the error is a *Fault when execution itself failed.
func Run(m *ir.Module, entrypoint string, resources []Resource, opts Options) (out []Resource, err error) {
	defer catch(&err)

	d, ok := m.Lookup(entrypoint)
	if !ok {
		d, ok = m.ByName(entrypoint)
	}
	if !ok || d.Stage() == ir.StageNone {
		return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, entrypoint)
	}
	fn := d.Function()

	mc := newMachine(m)
	if opts.StepLimit > 0 {
		mc.stepLimit = opts.StepLimit
	}
	if err := mc.setOverrides(opts.Overrides); err != nil {
		return nil, err
	}
	bound, err := mc.bind(d, resources)
	if err != nil {
		return nil, err
	}

	size := [3]uint32{1, 1, 1}
	if d.Stage() == ir.StageCompute {
		size = mc.workgroupSize(fn)
	}
	n := int(size[0] * size[1] * size[2])

	err = runWorkgroup(n, func(inv *invocation) {
		t := mc.newThread(modeRuntime)
		t.inv = inv
		args := make([]Value, len(fn.Params))
		for i, p := range fn.Params {
			args[i] = mc.input(p.Attributes, mc.resolveType(p.Type), inv.index, size)
		}
		t.call(fn.Span, d, fn, args)
	})
	if err != nil {
		return nil, err
	}

	out = make([]Resource, len(resources))
	for i, r := range resources {
		out[i] = r
		out[i].Data = append([]byte(nil), r.Data...)
		if id, ok := bound[i]; ok && r.Kind.Writable() && r.Kind.IsBuffer() {
			Encode(*mc.globals[id], out[i].Data)
		}
	}
	return out, nil
}

// setOverrides parses and installs caller-supplied override values.
func (m *Machine) setOverrides(values map[string]string) error {
	for name, text := range values {
		d := m.findOverride(name)
		if d == nil {
			return fmt.Errorf("unknown override %q", name)
		}
		e, err := wgsl.ParseExpression("<override "+name+">", text)
		if err != nil {
			return fmt.Errorf("override %s: %w", name, err)
		}
		t := m.newThread(modeConst)
		v := t.eval(e)
		if n := d.Node.(*wgsl.OverrideDecl); n.Type != nil {
			v = t.convertTo(e.Pos(), v, m.resolveType(n.Type))
		} else {
			v = concretize(v)
		}
		m.overrides[d.ID] = v
	}
	return nil
}

func (m *Machine) findOverride(name string) *ir.Decl {
	for _, d := range m.module.Decls {
		if d.Kind != ir.KindOverride {
			continue
		}
		if d.ShortName == name || d.Name == name || d.QualifiedName() == name || "package::"+name == d.QualifiedName() {
			return d
		}
		if a, ok := wgsl.AttributeNamed(d.Attributes(), "id"); ok && len(a.Args) == 1 {
			id, err := ir.EvalConstInt(m.module, a.Args[0])
			if err == nil && strconv.FormatInt(id, 10) == name {
				return d
			}
		}
	}
	return nil
}

// bind decodes the resources used by the entrypoint into module memory and
// returns, per resource index, the declaration it was bound to.
func (m *Machine) bind(entry *ir.Decl, resources []Resource) (map[int]wgsl.DeclID, error) {
	bound := make(map[int]wgsl.DeclID)
	live := ir.BuildGraph(m.module).Reachable([]wgsl.DeclID{entry.ID})
	for _, d := range m.module.Decls {
		v, ok := d.Node.(*wgsl.VarDecl)
		if !ok || !live[d.ID] || !isResource(v) {
			continue
		}
		group, binding, err := m.slot(v)
		if err != nil {
			return nil, err
		}
		idx := -1
		for i, r := range resources {
			if r.Group == group && r.Binding == binding {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("no resource supplied for %s at @group(%d) @binding(%d)", d.ShortName, group, binding)
		}
		r := resources[idx]
		typ := m.resolveType(v.Type)
		space, access := ir.VarSpace(v)
		if !ir.KindCompatible(r.Kind, typ, space, access) {
			return nil, fmt.Errorf("resource at @group(%d) @binding(%d) has kind %s, which cannot bind %s",
				group, binding, r.Kind, d.ShortName)
		}
		val := Value{Type: typ}
		if r.Kind.IsBuffer() {
			val, err = Decode(typ, r.Data)
			if err != nil {
				return nil, fmt.Errorf("resource at @group(%d) @binding(%d): %w", group, binding, err)
			}
		}
		m.globals[d.ID] = &val
		bound[idx] = d.ID
	}
	return bound, nil
}

func (m *Machine) slot(v *wgsl.VarDecl) (group, binding uint32, err error) {
	read := func(name string) (uint32, error) {
		a, ok := wgsl.AttributeNamed(v.Attributes, name)
		if !ok || len(a.Args) != 1 {
			return 0, fmt.Errorf("%s has no @%s", v.Name, name)
		}
		n, err := ir.EvalConstInt(m.module, a.Args[0])
		if err != nil {
			return 0, err
		}
		return safecast.Conv[uint32](n)
	}
	if group, err = read("group"); err != nil {
		return 0, 0, err
	}
	binding, err = read("binding")
	return group, binding, err
}

// workgroupSize evaluates @workgroup_size, which may refer to overrides.
func (m *Machine) workgroupSize(fn *wgsl.FunctionDecl) [3]uint32 {
	size := [3]uint32{1, 1, 1}
	a, ok := wgsl.AttributeNamed(fn.Attributes, "workgroup_size")
	if !ok {
		return size
	}
	t := m.newThread(modeOverride)
	total := 1
	for i, e := range a.Args {
		if i >= 3 {
			break
		}
		v := concretize(t.eval(e))
		if v.Int < 1 || v.Int > MaxWorkgroupSize {
			faultf(e.Pos(), FaultInvalidArgument, "workgroup size %d is out of range", v.Int)
		}
		size[i] = uint32(v.Int) //nolint:gosec // range checked above
		total *= int(v.Int)
	}
	if total > MaxWorkgroupSize {
		faultf(a.Span, FaultInvalidArgument, "workgroup of %d invocations exceeds %d", total, MaxWorkgroupSize)
	}
	return size
}

// input builds the value of an entrypoint parameter or struct member for
// the invocation with the given local index.
func (m *Machine) input(attrs []wgsl.Attribute, typ ir.Type, index int, size [3]uint32) Value {
	if st, ok := typ.(*ir.StructType); ok {
		v := Value{Type: st, Elems: make([]Value, len(st.Members))}
		for i, mem := range st.Members {
			v.Elems[i] = m.input(mem.Attributes, mem.Type, index, size)
		}
		return v
	}
	a, ok := wgsl.AttributeNamed(attrs, "builtin")
	if !ok || len(a.Args) != 1 {
		return Zero(typ)
	}
	idx := uint32(index) //nolint:gosec // below MaxWorkgroupSize
	local := [3]uint32{idx % size[0], idx / size[0] % size[1], idx / (size[0] * size[1])}
	vec := func(x [3]uint32) Value {
		return Value{Type: typ, Elems: []Value{U32(x[0]), U32(x[1]), U32(x[2])}}
	}
	switch builtinName(a.Args[0]) {
	case "local_invocation_id", "global_invocation_id":
		return vec(local)
	case "local_invocation_index":
		return U32(idx)
	case "num_workgroups":
		return vec([3]uint32{1, 1, 1})
	}
	return Zero(typ)
}

func builtinName(e wgsl.Expr) string {
	if id, ok := e.(*wgsl.Ident); ok {
		return id.Name
	}
	return wgsl.FormatExpr(e)
}
