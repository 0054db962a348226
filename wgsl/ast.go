package wgsl

// DeclID identifies a module-scope declaration once a module has been linked.
// NoDecl marks identifiers that name locals, builtins or template parameters.
type DeclID uint32

// NoDecl is the zero DeclID.
const NoDecl DeclID = 0

// Module represents a parsed WESL/WGSL source file.
// Decls keeps source order; Imports and Directives are held apart because
// they never survive into a linked module.
type Module struct {
	Source     string // virtual path of the file
	Directives []*Directive
	Imports    []*ImportDecl
	Decls      []Decl
}

// Functions returns the function declarations in source order.
func (m *Module) Functions() []*FunctionDecl {
	var out []*FunctionDecl
	for _, d := range m.Decls {
		if fn, ok := d.(*FunctionDecl); ok {
			out = append(out, fn)
		}
	}
	return out
}

// Structs returns the struct declarations in source order.
func (m *Module) Structs() []*StructDecl {
	var out []*StructDecl
	for _, d := range m.Decls {
		if s, ok := d.(*StructDecl); ok {
			out = append(out, s)
		}
	}
	return out
}

// GlobalVars returns the module-scope var declarations in source order.
func (m *Module) GlobalVars() []*VarDecl {
	var out []*VarDecl
	for _, d := range m.Decls {
		if v, ok := d.(*VarDecl); ok {
			out = append(out, v)
		}
	}
	return out
}

// Constants returns the module-scope const declarations in source order.
func (m *Module) Constants() []*ConstDecl {
	var out []*ConstDecl
	for _, d := range m.Decls {
		if c, ok := d.(*ConstDecl); ok {
			out = append(out, c)
		}
	}
	return out
}

// Directive is an enable, requires or diagnostic directive.
type Directive struct {
	Kind       TokenKind // TokenEnable, TokenRequires or TokenDiagnostic
	Args       []string
	Attributes []Attribute
	Span       Span
}

func (d *Directive) Pos() Span { return d.Span }

// ImportDecl is a WESL import statement, flattened into one item per
// imported name: `import a::{b, c::d as e};` yields items a::b and a::c::d.
type ImportDecl struct {
	Attributes []Attribute
	Items      []*ImportItem
	Span       Span
}

func (d *ImportDecl) Pos() Span { return d.Span }

// ImportItem is a single imported path, including any leading
// `package` or `super` segments.
type ImportItem struct {
	Path  []string
	Alias string // empty when the last path segment is the visible name
	Span  Span
}

// Name returns the name the import makes visible in the importing module.
func (i *ImportItem) Name() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Path[len(i.Path)-1]
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Span
}

// Decl represents a declaration.
type Decl interface {
	Node
	declNode()
}

// Stmt represents a statement.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression.
type Expr interface {
	Node
	exprNode()
}

// TemplateParam is a generic parameter of a function or struct.
// A nil Type makes it a type parameter; otherwise it is a const parameter.
type TemplateParam struct {
	Name string
	Type Type
	Span Span
}

// StructDecl represents a struct declaration.
type StructDecl struct {
	Name           string
	TemplateParams []*TemplateParam
	Members        []*StructMember
	Attributes     []Attribute
	Span           Span
}

func (d *StructDecl) Pos() Span { return d.Span }
func (d *StructDecl) declNode() {}

// StructMember represents a struct member.
type StructMember struct {
	Name       string
	Type       Type
	Attributes []Attribute
	Span       Span
}

// FunctionDecl represents a function declaration.
type FunctionDecl struct {
	Name           string
	TemplateParams []*TemplateParam
	Params         []*Parameter
	ReturnType     Type
	ReturnAttrs    []Attribute // Attributes on return type (e.g., @builtin(position), @location(0))
	Attributes     []Attribute
	Body           *BlockStmt
	Span           Span
}

func (d *FunctionDecl) Pos() Span { return d.Span }
func (d *FunctionDecl) declNode() {}

// Parameter represents a function parameter.
type Parameter struct {
	Name       string
	Type       Type
	Attributes []Attribute
	Span       Span
}

// VarDecl represents a variable declaration at module or function scope.
type VarDecl struct {
	Name         string
	Type         Type
	Init         Expr
	AddressSpace string // function, private, workgroup, uniform, storage
	AccessMode   string // read, write, read_write
	Attributes   []Attribute
	Span         Span
}

func (d *VarDecl) Pos() Span { return d.Span }
func (d *VarDecl) declNode() {}
func (d *VarDecl) stmtNode() {}

// ConstDecl represents a const declaration.
type ConstDecl struct {
	Name       string
	Type       Type
	Init       Expr
	Attributes []Attribute
	Span       Span
}

func (d *ConstDecl) Pos() Span { return d.Span }
func (d *ConstDecl) declNode() {}
func (d *ConstDecl) stmtNode() {}

// OverrideDecl represents a pipeline-overridable constant.
type OverrideDecl struct {
	Name       string
	Type       Type
	Init       Expr
	Attributes []Attribute
	Span       Span
}

func (d *OverrideDecl) Pos() Span { return d.Span }
func (d *OverrideDecl) declNode() {}

// LetDecl represents a function-scope let binding.
type LetDecl struct {
	Name       string
	Type       Type
	Init       Expr
	Attributes []Attribute
	Span       Span
}

func (d *LetDecl) Pos() Span { return d.Span }
func (d *LetDecl) stmtNode() {}

// AliasDecl represents a type alias.
type AliasDecl struct {
	Name       string
	Type       Type
	Attributes []Attribute
	Span       Span
}

func (d *AliasDecl) Pos() Span { return d.Span }
func (d *AliasDecl) declNode() {}

// ConstAssertDecl represents const_assert at module or function scope.
type ConstAssertDecl struct {
	Expr       Expr
	Attributes []Attribute
	Span       Span
}

func (d *ConstAssertDecl) Pos() Span { return d.Span }
func (d *ConstAssertDecl) declNode() {}
func (d *ConstAssertDecl) stmtNode() {}

// Attribute represents an attribute like @vertex, @location(0) or @if(feature).
type Attribute struct {
	Name string
	Args []Expr
	Span Span
}

// Type represents a type expression.
type Type interface {
	Node
	typeNode()
}

// NamedType represents a named type (predeclared, struct, alias, or a
// template parameter), optionally module-qualified and templated.
type NamedType struct {
	Name          string
	Path          []string // qualifier segments, e.g. [package lib] in package::lib::Light
	TypeParams    []Type
	Ref           DeclID
	TemplateParam bool // resolved to an enclosing template parameter
	Span          Span
}

func (t *NamedType) Pos() Span { return t.Span }
func (t *NamedType) typeNode() {}

// ArrayType represents an array type.
type ArrayType struct {
	Element Type
	Size    Expr // nil for runtime-sized arrays
	Span    Span
}

func (t *ArrayType) Pos() Span { return t.Span }
func (t *ArrayType) typeNode() {}

// BindingArrayType represents a binding_array type.
type BindingArrayType struct {
	Element Type
	Size    Expr // nil for unbounded
	Span    Span
}

func (t *BindingArrayType) Pos() Span { return t.Span }
func (t *BindingArrayType) typeNode() {}

// PtrType represents a pointer type.
type PtrType struct {
	AddressSpace string
	PointeeType  Type
	AccessMode   string
	Span         Span
}

func (t *PtrType) Pos() Span { return t.Span }
func (t *PtrType) typeNode() {}

// ConstArg is a value appearing in a template argument list,
// such as the 4 in Buffer<f32, 4>.
type ConstArg struct {
	Value Expr
	Span  Span
}

func (t *ConstArg) Pos() Span { return t.Span }
func (t *ConstArg) typeNode() {}

// Statements

// BlockStmt represents a block of statements.
type BlockStmt struct {
	Statements []Stmt
	Span       Span
}

func (s *BlockStmt) Pos() Span { return s.Span }
func (s *BlockStmt) stmtNode() {}

// AttrStmt is a statement carrying attributes such as @if.
type AttrStmt struct {
	Attributes []Attribute
	Stmt       Stmt
	Span       Span
}

func (s *AttrStmt) Pos() Span { return s.Span }
func (s *AttrStmt) stmtNode() {}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	Value Expr
	Span  Span
}

func (s *ReturnStmt) Pos() Span { return s.Span }
func (s *ReturnStmt) stmtNode() {}

// IfStmt represents an if statement.
type IfStmt struct {
	Condition Expr
	Body      *BlockStmt
	Else      Stmt // *BlockStmt or *IfStmt
	Span      Span
}

func (s *IfStmt) Pos() Span { return s.Span }
func (s *IfStmt) stmtNode() {}

// ForStmt represents a for loop.
type ForStmt struct {
	Init      Stmt
	Condition Expr
	Update    Stmt
	Body      *BlockStmt
	Span      Span
}

func (s *ForStmt) Pos() Span { return s.Span }
func (s *ForStmt) stmtNode() {}

// WhileStmt represents a while loop.
type WhileStmt struct {
	Condition Expr
	Body      *BlockStmt
	Span      Span
}

func (s *WhileStmt) Pos() Span { return s.Span }
func (s *WhileStmt) stmtNode() {}

// LoopStmt represents a loop statement with an optional continuing block.
type LoopStmt struct {
	Body       *BlockStmt
	Continuing *BlockStmt
	BreakIf    Expr // `break if` at the end of the continuing block
	Span       Span
}

func (s *LoopStmt) Pos() Span { return s.Span }
func (s *LoopStmt) stmtNode() {}

// BreakStmt represents a break statement.
type BreakStmt struct {
	Span Span
}

func (s *BreakStmt) Pos() Span { return s.Span }
func (s *BreakStmt) stmtNode() {}

// ContinueStmt represents a continue statement.
type ContinueStmt struct {
	Span Span
}

func (s *ContinueStmt) Pos() Span { return s.Span }
func (s *ContinueStmt) stmtNode() {}

// DiscardStmt represents a discard statement.
type DiscardStmt struct {
	Span Span
}

func (s *DiscardStmt) Pos() Span { return s.Span }
func (s *DiscardStmt) stmtNode() {}

// AssignStmt represents an assignment. A phony assignment `_ = e` has a
// nil Left.
type AssignStmt struct {
	Left  Expr
	Op    TokenKind // =, +=, -=, etc.
	Right Expr
	Span  Span
}

func (s *AssignStmt) Pos() Span { return s.Span }
func (s *AssignStmt) stmtNode() {}

// IncDecStmt represents x++ or x--.
type IncDecStmt struct {
	Target Expr
	Op     TokenKind // TokenPlusPlus or TokenMinusMinus
	Span   Span
}

func (s *IncDecStmt) Pos() Span { return s.Span }
func (s *IncDecStmt) stmtNode() {}

// ExprStmt represents an expression statement.
type ExprStmt struct {
	Expr Expr
	Span Span
}

func (s *ExprStmt) Pos() Span { return s.Span }
func (s *ExprStmt) stmtNode() {}

// SwitchStmt represents a switch statement.
type SwitchStmt struct {
	Selector Expr
	Cases    []*SwitchCaseClause
	Span     Span
}

func (s *SwitchStmt) Pos() Span { return s.Span }
func (s *SwitchStmt) stmtNode() {}

// SwitchCaseClause represents a case or default clause in a switch statement.
type SwitchCaseClause struct {
	Selectors []Expr     // Case selectors (nil or empty for default)
	IsDefault bool       // True for default case
	Body      *BlockStmt // Case body
	Span      Span
}

// Expressions

// Ident represents an identifier, optionally module-qualified.
type Ident struct {
	Name          string
	Path          []string // qualifier segments before Name
	Ref           DeclID
	TemplateParam bool
	Span          Span
}

func (e *Ident) Pos() Span { return e.Span }
func (e *Ident) exprNode() {}

// Qualified reports whether the identifier carries a module path.
func (e *Ident) Qualified() bool { return len(e.Path) > 0 }

// Literal represents a literal value.
type Literal struct {
	Kind  TokenKind // TokenIntLiteral, TokenFloatLiteral, TokenTrue, TokenFalse
	Value string
	Span  Span
}

func (e *Literal) Pos() Span { return e.Span }
func (e *Literal) exprNode() {}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Left  Expr
	Op    TokenKind
	Right Expr
	Span  Span
}

func (e *BinaryExpr) Pos() Span { return e.Span }
func (e *BinaryExpr) exprNode() {}

// UnaryExpr represents a unary expression: -, !, ~, & (address-of), * (deref).
type UnaryExpr struct {
	Op      TokenKind
	Operand Expr
	Span    Span
}

func (e *UnaryExpr) Pos() Span { return e.Span }
func (e *UnaryExpr) exprNode() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	Expr Expr
	Span Span
}

func (e *ParenExpr) Pos() Span { return e.Span }
func (e *ParenExpr) exprNode() {}

// CallExpr represents a call of a function, struct constructor or alias,
// optionally with explicit template arguments.
type CallExpr struct {
	Func         *Ident
	TemplateArgs []Type
	Args         []Expr
	Span         Span
}

func (e *CallExpr) Pos() Span { return e.Span }
func (e *CallExpr) exprNode() {}

// IndexExpr represents an index expression.
type IndexExpr struct {
	Expr  Expr
	Index Expr
	Span  Span
}

func (e *IndexExpr) Pos() Span { return e.Span }
func (e *IndexExpr) exprNode() {}

// MemberExpr represents a member access or swizzle.
type MemberExpr struct {
	Expr   Expr
	Member string
	Span   Span
}

func (e *MemberExpr) Pos() Span { return e.Span }
func (e *MemberExpr) exprNode() {}

// ConstructExpr represents a constructor of a predeclared type,
// e.g. vec3<f32>(...) or array<i32, 2>(...).
type ConstructExpr struct {
	Type Type
	Args []Expr
	Span Span
}

func (e *ConstructExpr) Pos() Span { return e.Span }
func (e *ConstructExpr) exprNode() {}

// BitcastExpr represents a bitcast expression.
type BitcastExpr struct {
	Type Type // Target type
	Expr Expr // Source expression
	Span Span
}

func (e *BitcastExpr) Pos() Span { return e.Span }
func (e *BitcastExpr) exprNode() {}

// AttributeNamed returns the first attribute with the given name.
func AttributeNamed(attrs []Attribute, name string) (*Attribute, bool) {
	for i := range attrs {
		if attrs[i].Name == name {
			return &attrs[i], true
		}
	}
	return nil, false
}

// DeclName returns the declared name of a module-scope declaration,
// or "" for const_assert.
func DeclName(d Decl) string {
	switch d := d.(type) {
	case *FunctionDecl:
		return d.Name
	case *StructDecl:
		return d.Name
	case *VarDecl:
		return d.Name
	case *ConstDecl:
		return d.Name
	case *OverrideDecl:
		return d.Name
	case *AliasDecl:
		return d.Name
	}
	return ""
}

// DeclAttributes returns the attribute list of a module-scope declaration.
func DeclAttributes(d Decl) []Attribute {
	switch d := d.(type) {
	case *FunctionDecl:
		return d.Attributes
	case *StructDecl:
		return d.Attributes
	case *VarDecl:
		return d.Attributes
	case *ConstDecl:
		return d.Attributes
	case *OverrideDecl:
		return d.Attributes
	case *AliasDecl:
		return d.Attributes
	case *ConstAssertDecl:
		return d.Attributes
	}
	return nil
}

// TemplateParams returns the template parameters of a generic declaration.
func TemplateParams(d Decl) []*TemplateParam {
	switch d := d.(type) {
	case *FunctionDecl:
		return d.TemplateParams
	case *StructDecl:
		return d.TemplateParams
	}
	return nil
}
