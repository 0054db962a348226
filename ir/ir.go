package ir

import (
	"sort"
	"strings"

	"github.com/gogpu/wesl/wgsl"
)

// DeclKind classifies a module-scope declaration.
type DeclKind uint8

const (
	KindFunction DeclKind = iota
	KindStruct
	KindVar
	KindConst
	KindOverride
	KindAlias
	KindConstAssert
)

func (k DeclKind) String() string {
	switch k {
	case KindFunction:
		return "fn"
	case KindStruct:
		return "struct"
	case KindVar:
		return "var"
	case KindConst:
		return "const"
	case KindOverride:
		return "override"
	case KindAlias:
		return "alias"
	case KindConstAssert:
		return "const_assert"
	}
	return "unknown"
}

// KindOf returns the DeclKind of an AST declaration.
func KindOf(d wgsl.Decl) DeclKind {
	switch d.(type) {
	case *wgsl.FunctionDecl:
		return KindFunction
	case *wgsl.StructDecl:
		return KindStruct
	case *wgsl.VarDecl:
		return KindVar
	case *wgsl.ConstDecl:
		return KindConst
	case *wgsl.OverrideDecl:
		return KindOverride
	case *wgsl.AliasDecl:
		return KindAlias
	}
	return KindConstAssert
}

// Decl is one module-scope declaration of the flattened module.
type Decl struct {
	ID        wgsl.DeclID
	Kind      DeclKind
	Name      string // emitted identifier; equals ShortName until mangling
	ShortName string // name as written in its source file
	Module    string // module path, e.g. "package::lib"; "package" for the root
	File      string
	Node      wgsl.Decl

	Root      bool // declared in the root file
	Generic   bool // has template parameters
	Instance  bool // produced by instantiating a generic template
	Synthetic bool // compiler-generated, never renamed
}

// QualifiedName returns the module-qualified name, e.g. "package::lib::helper".
// const_assert declarations have no name and return "".
func (d *Decl) QualifiedName() string {
	if d.ShortName == "" {
		return ""
	}
	if d.Module == "" {
		return d.ShortName
	}
	return d.Module + "::" + d.ShortName
}

// Span returns the source span of the declaration.
func (d *Decl) Span() wgsl.Span {
	return d.Node.Pos()
}

// Function returns the function node, or nil.
func (d *Decl) Function() *wgsl.FunctionDecl {
	fn, _ := d.Node.(*wgsl.FunctionDecl)
	return fn
}

// Attributes returns the declaration's attributes.
func (d *Decl) Attributes() []wgsl.Attribute {
	return wgsl.DeclAttributes(d.Node)
}

// Stage returns the shader stage of an entrypoint function, or StageNone.
func (d *Decl) Stage() ShaderStage {
	fn := d.Function()
	if fn == nil {
		return StageNone
	}
	return StageOf(fn.Attributes)
}

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageNone ShaderStage = iota
	StageVertex
	StageFragment
	StageCompute
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return "none"
}

// StageOf returns the stage named by entrypoint attributes.
func StageOf(attrs []wgsl.Attribute) ShaderStage {
	for _, a := range attrs {
		switch a.Name {
		case "vertex":
			return StageVertex
		case "fragment":
			return StageFragment
		case "compute":
			return StageCompute
		}
	}
	return StageNone
}

// Module is the flattened, linked module: every declaration from every
// resolved file in one ordered sequence, root declarations first.
type Module struct {
	RootFile   string
	Directives []*wgsl.Directive
	Decls      []*Decl

	byID   map[wgsl.DeclID]*Decl
	nextID wgsl.DeclID
}

// NewModule creates an empty module for the given root file.
func NewModule(rootFile string) *Module {
	return &Module{
		RootFile: rootFile,
		byID:     make(map[wgsl.DeclID]*Decl),
		nextID:   1,
	}
}

// Add appends a declaration, assigning it a fresh ID when it has none.
func (m *Module) Add(d *Decl) *Decl {
	if d.ID == wgsl.NoDecl {
		d.ID = m.nextID
	}
	if d.ID >= m.nextID {
		m.nextID = d.ID + 1
	}
	if d.Name == "" {
		d.Name = d.ShortName
	}
	m.Decls = append(m.Decls, d)
	m.byID[d.ID] = d
	return d
}

// Decl returns the declaration with the given ID, or nil.
func (m *Module) Decl(id wgsl.DeclID) *Decl {
	return m.byID[id]
}

// Lookup finds a declaration by qualified name ("package::lib::f"), by
// a root-relative qualified name ("lib::f"), or by the short name of a
// root declaration.
func (m *Module) Lookup(name string) (*Decl, bool) {
	name = strings.TrimSpace(name)
	for _, d := range m.Decls {
		if d.ShortName == "" {
			continue
		}
		q := d.QualifiedName()
		if q == name || q == "package::"+name || (d.Root && d.ShortName == name) {
			return d, true
		}
	}
	return nil, false
}

// ByName finds a declaration by its emitted name.
func (m *Module) ByName(name string) (*Decl, bool) {
	for _, d := range m.Decls {
		if d.Name == name && d.ShortName != "" {
			return d, true
		}
	}
	return nil, false
}

// EntryPoints returns the entrypoint functions in declaration order.
func (m *Module) EntryPoints() []*Decl {
	var out []*Decl
	for _, d := range m.Decls {
		if d.Stage() != StageNone {
			out = append(out, d)
		}
	}
	return out
}

// Clone returns a deep copy: declarations and their ASTs are copied so the
// result can be rewritten without affecting m.
func (m *Module) Clone() *Module {
	out := NewModule(m.RootFile)
	out.nextID = m.nextID
	out.Directives = m.Directives
	for _, d := range m.Decls {
		dc := *d
		dc.Node = wgsl.CloneDecl(d.Node)
		out.Add(&dc)
	}
	return out
}

// Filter returns a module holding only the declarations keep accepts.
// Declaration nodes are shared with m.
func (m *Module) Filter(keep func(*Decl) bool) *Module {
	out := NewModule(m.RootFile)
	out.nextID = m.nextID
	out.Directives = m.Directives
	for _, d := range m.Decls {
		if keep(d) {
			out.Add(d)
		}
	}
	return out
}

// Replace swaps the declaration list, keeping the ID counter.
func (m *Module) Replace(decls []*Decl) *Module {
	out := NewModule(m.RootFile)
	out.nextID = m.nextID
	out.Directives = m.Directives
	for _, d := range decls {
		out.Add(d)
	}
	return out
}

// AST assembles a printable module from the declarations in order.
func (m *Module) AST() *wgsl.Module {
	out := &wgsl.Module{Source: m.RootFile, Directives: m.Directives}
	for _, d := range m.Decls {
		out.Decls = append(out.Decls, d.Node)
	}
	return out
}

// Names returns the emitted names of all named declarations, sorted.
func (m *Module) Names() []string {
	var out []string
	for _, d := range m.Decls {
		if d.ShortName != "" {
			out = append(out, d.Name)
		}
	}
	sort.Strings(out)
	return out
}

// ApplyNames writes every declaration's emitted Name into its AST and into
// every linked reference, dropping module qualifiers from references.
func ApplyNames(m *Module) {
	for _, d := range m.Decls {
		setDeclName(d.Node, d.Name)
		wgsl.Inspect(d.Node, func(n wgsl.Node) bool {
			switch n := n.(type) {
			case *wgsl.Ident:
				if target := m.Decl(n.Ref); target != nil {
					n.Name = target.Name
					n.Path = nil
				}
			case *wgsl.NamedType:
				if target := m.Decl(n.Ref); target != nil {
					n.Name = target.Name
					n.Path = nil
				}
			}
			return true
		})
	}
}

func setDeclName(n wgsl.Decl, name string) {
	switch n := n.(type) {
	case *wgsl.FunctionDecl:
		n.Name = name
	case *wgsl.StructDecl:
		n.Name = name
	case *wgsl.VarDecl:
		n.Name = name
	case *wgsl.ConstDecl:
		n.Name = name
	case *wgsl.OverrideDecl:
		n.Name = name
	case *wgsl.AliasDecl:
		n.Name = name
	}
}
