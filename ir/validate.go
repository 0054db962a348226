package ir

import (
	"errors"
	"fmt"

	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/wgsl"
)

// ErrNotConstant is wrapped by ConstEvaluator errors for expressions that
// depend on values only known at run time.
var ErrNotConstant = errors.New("not a constant expression")

// ConstEvaluator folds constant expressions for const_assert checks.
type ConstEvaluator interface {
	EvalConstBool(e wgsl.Expr) (bool, error)
}

// ResourceBinding is a caller-declared resource slot checked against the
// module's resource variables.
type ResourceBinding struct {
	Group   uint32
	Binding uint32
	Kind    BindingKind
}

// ValidateOptions configures Validate.
type ValidateOptions struct {
	// Consts evaluates const_assert conditions. When nil they are only
	// type-checked.
	Consts ConstEvaluator
	// Resources are checked for kind agreement with resource variables.
	Resources []ResourceBinding
}

// Validator validates linked modules. Checks never stop at the first
// problem: every diagnostic is collected and returned together.
type Validator struct {
	module  *Module
	opts    ValidateOptions
	types   *TypeResolver
	typer   *Typer
	errors  diag.List
	context validationContext
}

// validationContext holds current validation context.
type validationContext struct {
	decl         *Decl
	returnType   Type
	hasReturn    bool
	scope        *Scope
	loopDepth    int
	switchDepth  int
	inContinuing bool
}

// Validate checks the module for correctness and returns every problem
// found. The module is valid when the result has no errors.
func Validate(m *Module, opts ValidateOptions) diag.List {
	v := &Validator{
		module: m,
		opts:   opts,
		types:  NewTypeResolver(m),
	}
	v.typer = NewTyper(m, v.types, v.addError)
	v.ValidateModule()
	v.errors.Sort()
	return v.errors.Dedup()
}

// ValidateModule validates the complete module.
func (v *Validator) ValidateModule() {
	v.validateNames()
	v.validateStructs()
	v.validateAliases()
	v.validateConstants()
	v.validateGlobalVariables()
	v.validateFunctions()
	v.validateRecursion()
	v.validateEntryPoints()
	v.validateConstAsserts()
	v.validateResources()
}

// validateNames reports declarations whose emitted names collide.
func (v *Validator) validateNames() {
	seen := make(map[string]*Decl)
	for _, d := range v.module.Decls {
		if d.ShortName == "" {
			continue
		}
		if prev, ok := seen[d.Name]; ok {
			v.addError(d.Span(), "duplicate declaration name %q: %s conflicts with %s",
				d.Name, d.QualifiedName(), prev.QualifiedName())
			continue
		}
		seen[d.Name] = d
	}
}

// validateStructs resolves every struct and checks member names.
func (v *Validator) validateStructs() {
	for _, d := range v.module.Decls {
		s, ok := d.Node.(*wgsl.StructDecl)
		if !ok {
			continue
		}
		if len(s.Members) == 0 {
			v.addError(s.Span, "struct %s has no members", d.ShortName)
		}
		names := make(map[string]bool)
		for _, m := range s.Members {
			if names[m.Name] {
				v.addError(m.Span, "duplicate struct member name %q in %s", m.Name, d.ShortName)
			}
			names[m.Name] = true
		}
		if _, err := v.types.Struct(d.ID); err != nil {
			v.addTypeError(s.Span, err)
		}
	}
}

func (v *Validator) validateAliases() {
	for _, d := range v.module.Decls {
		if a, ok := d.Node.(*wgsl.AliasDecl); ok {
			v.resolve(a.Type)
		}
	}
}

// validateConstants checks const and override declarations.
func (v *Validator) validateConstants() {
	ids := make(map[int64]*Decl)
	for _, d := range v.module.Decls {
		v.context = validationContext{decl: d}
		switch n := d.Node.(type) {
		case *wgsl.ConstDecl:
			if n.Init == nil {
				v.addError(n.Span, "const %s requires an initializer", d.ShortName)
				continue
			}
			v.checkInit(n.Span, d.ShortName, n.Type, n.Init)

		case *wgsl.OverrideDecl:
			typ := v.typer.DeclType(d)
			if n.Type == nil && n.Init == nil {
				v.addError(n.Span, "override %s requires a type or an initializer", d.ShortName)
			}
			if n.Init != nil {
				v.checkInit(n.Span, d.ShortName, n.Type, n.Init)
			}
			if typ != nil {
				if s, ok := typ.(ScalarType); !ok || s.IsAbstract() {
					v.addError(n.Span, "override %s must have a concrete scalar type, found %s", d.ShortName, typ)
				}
			}
			if a, ok := wgsl.AttributeNamed(n.Attributes, "id"); ok && len(a.Args) == 1 {
				id, err := EvalConstInt(v.module, a.Args[0])
				if err != nil {
					v.addTypeError(a.Span, err)
					continue
				}
				if prev, dup := ids[id]; dup {
					v.addError(a.Span, "override %s reuses @id(%d) of %s", d.ShortName, id, prev.ShortName)
				}
				ids[id] = d
			}
		}
	}
}

func (v *Validator) checkInit(span wgsl.Span, name string, declared wgsl.Type, init wgsl.Expr) Type {
	initType := v.typer.ExprType(init, v.context.scope)
	if _, void := initType.(Void); void {
		v.addError(init.Pos(), "%s is initialized with a call that returns no value", name)
		return nil
	}
	if declared == nil {
		return initType
	}
	typ := v.resolve(declared)
	if typ != nil && initType != nil && !Assignable(typ, initType) {
		v.addError(span, "cannot initialize %s of type %s with a value of type %s", name, typ, initType)
	}
	return typ
}

// validateGlobalVariables checks module-scope vars and resource bindings.
func (v *Validator) validateGlobalVariables() {
	bindings := make(map[[2]int64]*Decl)

	for _, d := range v.module.Decls {
		gv, ok := d.Node.(*wgsl.VarDecl)
		if !ok {
			continue
		}
		v.context = validationContext{decl: d}

		var typ Type
		if gv.Type != nil {
			typ = v.resolve(gv.Type)
		}
		if gv.Init != nil {
			initType := v.checkInit(gv.Span, d.ShortName, gv.Type, gv.Init)
			if typ == nil {
				typ = Concretize(initType)
			}
		}

		space, _ := VarSpace(gv)
		isHandle := isHandleType(typ)
		switch {
		case gv.AddressSpace == "" && !isHandle && typ != nil:
			v.addError(gv.Span, "module-scope var %s requires an address space", d.ShortName)
		case gv.AddressSpace != "":
			if _, known := ParseAddressSpace(gv.AddressSpace); !known {
				v.addError(gv.Span, "unknown address space %q", gv.AddressSpace)
			} else if space == SpaceFunction {
				v.addError(gv.Span, "module-scope var %s cannot be in the function address space", d.ShortName)
			}
		}
		if gv.AccessMode != "" && space != SpaceStorage {
			v.addError(gv.Span, "access mode is only allowed for storage variables")
		}
		if gv.Init != nil && space != SpacePrivate {
			v.addError(gv.Span, "var<%s> %s cannot have an initializer", space, d.ShortName)
		}

		group, hasGroup := v.intAttr(gv.Attributes, "group")
		binding, hasBinding := v.intAttr(gv.Attributes, "binding")
		resource := isHandle || space == SpaceUniform || space == SpaceStorage
		switch {
		case resource && (!hasGroup || !hasBinding):
			v.addError(gv.Span, "resource variable %s requires @group and @binding", d.ShortName)
		case !resource && (hasGroup || hasBinding):
			v.addError(gv.Span, "var<%s> %s cannot have @group or @binding", space, d.ShortName)
		case resource:
			key := [2]int64{group, binding}
			if prev, dup := bindings[key]; dup {
				v.addError(gv.Span, "global variable %s: duplicate binding @group(%d) @binding(%d), also used by %s",
					d.ShortName, group, binding, prev.ShortName)
			}
			bindings[key] = d
		}

		if typ == nil {
			continue
		}
		switch space {
		case SpaceUniform, SpaceStorage:
			if !IsHostShareable(typ) {
				v.addError(gv.Span, "type %s of %s is not host-shareable", typ, d.ShortName)
			}
			if space == SpaceUniform && containsRuntimeArray(typ) {
				v.addError(gv.Span, "uniform buffer %s cannot contain a runtime-sized array", d.ShortName)
			}
		case SpacePrivate, SpaceWorkGroup:
			if containsRuntimeArray(typ) {
				v.addError(gv.Span, "var<%s> %s cannot contain a runtime-sized array", space, d.ShortName)
			}
			if space == SpacePrivate && containsAtomic(typ) {
				v.addError(gv.Span, "var<private> %s cannot contain atomics", d.ShortName)
			}
		}
	}
}

func isHandleType(t Type) bool {
	switch t := t.(type) {
	case SamplerType, ImageType:
		return true
	case ArrayType:
		return isHandleType(t.Base)
	}
	return false
}

func containsRuntimeArray(t Type) bool {
	switch t := t.(type) {
	case ArrayType:
		return t.RuntimeSized()
	case *StructType:
		for _, m := range t.Members {
			if containsRuntimeArray(m.Type) {
				return true
			}
		}
	}
	return false
}

func containsAtomic(t Type) bool {
	switch t := t.(type) {
	case AtomicType:
		return true
	case ArrayType:
		return containsAtomic(t.Base)
	case *StructType:
		for _, m := range t.Members {
			if containsAtomic(m.Type) {
				return true
			}
		}
	}
	return false
}

// intAttr evaluates the single integer argument of a named attribute.
func (v *Validator) intAttr(attrs []wgsl.Attribute, name string) (int64, bool) {
	a, ok := wgsl.AttributeNamed(attrs, name)
	if !ok {
		return 0, false
	}
	if len(a.Args) != 1 {
		v.addError(a.Span, "@%s expects 1 argument", name)
		return 0, false
	}
	n, err := EvalConstInt(v.module, a.Args[0])
	if err != nil {
		v.addTypeError(a.Span, err)
		return 0, false
	}
	if n < 0 {
		v.addError(a.Span, "@%s must not be negative", name)
		return 0, false
	}
	return n, true
}

// validateFunctions checks all function bodies.
func (v *Validator) validateFunctions() {
	for _, d := range v.module.Decls {
		fn := d.Function()
		if fn == nil {
			continue
		}
		v.context = validationContext{decl: d, scope: NewScope(nil)}
		v.validateFunction(d, fn)
	}
}

// validateFunction validates a single function.
func (v *Validator) validateFunction(d *Decl, fn *wgsl.FunctionDecl) {
	for _, p := range fn.Params {
		typ := v.resolve(p.Type)
		if prev := v.context.scope.Declare(&Local{Name: p.Name, Kind: LocalParam, Type: typ, Span: p.Span}); prev != nil {
			v.addError(p.Span, "duplicate parameter %s in %s", p.Name, d.ShortName)
		}
	}
	if fn.ReturnType != nil {
		v.context.returnType = v.resolve(fn.ReturnType)
		v.context.hasReturn = true
	}
	if fn.Body != nil {
		v.validateBlock(fn.Body, NewScope(v.context.scope))
	}
}

// validateBlock validates a block of statements in a new scope.
func (v *Validator) validateBlock(block *wgsl.BlockStmt, scope *Scope) {
	if block == nil {
		return
	}
	saved := v.context.scope
	v.context.scope = scope
	for _, stmt := range block.Statements {
		v.validateStatement(stmt)
	}
	v.context.scope = saved
}

func (v *Validator) subScope() *Scope {
	return NewScope(v.context.scope)
}

// validateStatement validates a single statement.
//
//nolint:gocognit,gocyclo,cyclop,funlen // Statement validation requires checking many statement variants
func (v *Validator) validateStatement(stmt wgsl.Stmt) {
	switch s := stmt.(type) {
	case *wgsl.BlockStmt:
		v.validateBlock(s, v.subScope())

	case *wgsl.AttrStmt:
		v.validateStatement(s.Stmt)

	case *wgsl.VarDecl:
		if s.AddressSpace != "" && s.AddressSpace != "function" {
			v.addError(s.Span, "function-scope var %s must be in the function address space", s.Name)
		}
		if s.Type == nil && s.Init == nil {
			v.addError(s.Span, "var %s requires a type or an initializer", s.Name)
		}
		typ := v.checkInit(s.Span, s.Name, s.Type, s.Init)
		if s.Type == nil {
			typ = Concretize(typ)
		}
		if typ != nil && !IsConstructible(typ) {
			v.addError(s.Span, "var %s has non-constructible type %s", s.Name, typ)
		}
		v.declareLocal(&Local{Name: s.Name, Kind: LocalVar, Type: typ, Span: s.Span})

	case *wgsl.LetDecl:
		typ := v.checkInit(s.Span, s.Name, s.Type, s.Init)
		if s.Type == nil {
			typ = Concretize(typ)
		}
		v.declareLocal(&Local{Name: s.Name, Kind: LocalLet, Type: typ, Span: s.Span})

	case *wgsl.ConstDecl:
		if s.Init == nil {
			v.addError(s.Span, "const %s requires an initializer", s.Name)
		}
		typ := v.checkInit(s.Span, s.Name, s.Type, s.Init)
		v.declareLocal(&Local{Name: s.Name, Kind: LocalConst, Type: typ, Span: s.Span})

	case *wgsl.ConstAssertDecl:
		v.checkCondition(s.Expr, "const_assert")
		v.evalConstAssert(s, true)

	case *wgsl.ReturnStmt:
		if v.context.inContinuing {
			v.addError(s.Span, "return in continuing block")
		}
		switch {
		case s.Value == nil && v.context.hasReturn:
			v.addError(s.Span, "%s must return a value of type %s", v.context.decl.ShortName, TypeName(v.context.returnType))
		case s.Value != nil && !v.context.hasReturn:
			v.addError(s.Span, "%s does not return a value", v.context.decl.ShortName)
			v.typer.ExprType(s.Value, v.context.scope)
		case s.Value != nil:
			typ := v.typer.ExprType(s.Value, v.context.scope)
			if typ != nil && v.context.returnType != nil && !Assignable(v.context.returnType, typ) {
				v.addError(s.Value.Pos(), "cannot return %s from %s, which returns %s", typ, v.context.decl.ShortName, v.context.returnType)
			}
		}

	case *wgsl.IfStmt:
		v.checkCondition(s.Condition, "if")
		v.validateBlock(s.Body, v.subScope())
		if s.Else != nil {
			v.validateStatement(s.Else)
		}

	case *wgsl.WhileStmt:
		v.checkCondition(s.Condition, "while")
		v.context.loopDepth++
		v.validateBlock(s.Body, v.subScope())
		v.context.loopDepth--

	case *wgsl.ForStmt:
		saved := v.context.scope
		v.context.scope = v.subScope()
		if s.Init != nil {
			v.validateStatement(s.Init)
		}
		if s.Condition != nil {
			v.checkCondition(s.Condition, "for")
		}
		if s.Update != nil {
			v.validateStatement(s.Update)
		}
		v.context.loopDepth++
		v.validateBlock(s.Body, v.subScope())
		v.context.loopDepth--
		v.context.scope = saved

	case *wgsl.LoopStmt:
		v.context.loopDepth++
		body := v.subScope()
		v.validateBlock(s.Body, body)
		if s.Continuing != nil {
			// the continuing block sees the loop body's declarations
			saved := v.context.scope
			v.context.scope = body
			oldContinuing := v.context.inContinuing
			v.context.inContinuing = true
			v.validateBlock(s.Continuing, NewScope(body))
			if s.BreakIf != nil {
				v.checkCondition(s.BreakIf, "break if")
			}
			v.context.inContinuing = oldContinuing
			v.context.scope = saved
		}
		v.context.loopDepth--

	case *wgsl.SwitchStmt:
		v.validateSwitch(s)

	case *wgsl.BreakStmt:
		if v.context.loopDepth == 0 && v.context.switchDepth == 0 {
			v.addError(s.Span, "break outside of loop or switch")
		}
		if v.context.inContinuing {
			v.addError(s.Span, "break in continuing block")
		}

	case *wgsl.ContinueStmt:
		if v.context.loopDepth == 0 {
			v.addError(s.Span, "continue outside of loop")
		}
		if v.context.inContinuing {
			v.addError(s.Span, "continue in continuing block")
		}

	case *wgsl.DiscardStmt:
		if v.context.inContinuing {
			v.addError(s.Span, "discard in continuing block")
		}

	case *wgsl.AssignStmt:
		v.validateAssign(s)

	case *wgsl.IncDecStmt:
		ref, ok := v.typer.Ref(s.Target, v.context.scope)
		if !ok {
			v.addError(s.Span, "cannot apply %s to %s", s.Op, wgsl.FormatExpr(s.Target))
			return
		}
		if ref.Access == AccessRead {
			v.addError(s.Span, "cannot modify read-only %s", wgsl.FormatExpr(s.Target))
		}
		if sc, ok := ref.Type.(ScalarType); ref.Type != nil && (!ok || !sc.IsInteger()) {
			v.addError(s.Span, "%s requires an integer, found %s", s.Op, ref.Type)
		}

	case *wgsl.ExprStmt:
		if _, ok := s.Expr.(*wgsl.CallExpr); !ok {
			v.addError(s.Span, "expression statement must be a function call")
		}
		v.typer.ExprType(s.Expr, v.context.scope)
	}
}

func (v *Validator) declareLocal(l *Local) {
	if prev := v.context.scope.Declare(l); prev != nil {
		v.addError(l.Span, "redeclaration of %s", l.Name)
	}
}

func (v *Validator) checkCondition(e wgsl.Expr, what string) {
	typ := v.typer.ExprType(e, v.context.scope)
	if typ != nil && typ != Bool {
		v.addError(e.Pos(), "%s condition must be bool, found %s", what, typ)
	}
}

func (v *Validator) validateSwitch(s *wgsl.SwitchStmt) {
	sel := v.typer.ExprType(s.Selector, v.context.scope)
	if sc, ok := sel.(ScalarType); sel != nil && (!ok || !sc.IsInteger()) {
		v.addError(s.Selector.Pos(), "switch selector must be an integer, found %s", sel)
	}
	hasDefault := false
	seen := make(map[int64]bool)
	for _, c := range s.Cases {
		if c.IsDefault {
			if hasDefault {
				v.addError(c.Span, "switch has multiple default cases")
			}
			hasDefault = true
		}
		for _, e := range c.Selectors {
			typ := v.typer.ExprType(e, v.context.scope)
			if sel != nil && typ != nil {
				if _, ok := Unify(sel, typ); !ok {
					v.addError(e.Pos(), "case selector of type %s does not match switch selector %s", typ, sel)
				}
			}
			if n, err := EvalConstInt(v.module, e); err == nil {
				if seen[n] {
					v.addError(e.Pos(), "duplicate case selector %d", n)
				}
				seen[n] = true
			} else {
				v.addError(e.Pos(), "case selector must be a constant integer expression")
			}
		}
		v.context.switchDepth++
		v.validateBlock(c.Body, v.subScope())
		v.context.switchDepth--
	}
	if !hasDefault {
		v.addError(s.Span, "switch missing default case")
	}
}

func (v *Validator) validateAssign(s *wgsl.AssignStmt) {
	rhs := v.typer.ExprType(s.Right, v.context.scope)
	if s.Left == nil {
		return
	}
	ref, ok := v.typer.Ref(s.Left, v.context.scope)
	if !ok {
		v.addError(s.Left.Pos(), "cannot assign to %s", wgsl.FormatExpr(s.Left))
		return
	}
	if ref.Access == AccessRead {
		v.addError(s.Left.Pos(), "cannot assign to read-only %s", wgsl.FormatExpr(s.Left))
	}
	if ref.Type == nil || rhs == nil {
		return
	}
	if _, atomic := ref.Type.(AtomicType); atomic {
		v.addError(s.Span, "atomics must be written with atomicStore")
		return
	}
	if op, compound := compoundOps[s.Op]; compound {
		res, ok := BinaryResult(op, ref.Type, rhs)
		if !ok || !Assignable(ref.Type, res) {
			v.addError(s.Span, "invalid operands to %s: %s and %s", s.Op, ref.Type, rhs)
		}
		return
	}
	if !Assignable(ref.Type, rhs) {
		v.addError(s.Span, "cannot assign a value of type %s to %s of type %s", rhs, wgsl.FormatExpr(s.Left), ref.Type)
	}
}

var compoundOps = map[wgsl.TokenKind]wgsl.TokenKind{
	wgsl.TokenPlusEqual:           wgsl.TokenPlus,
	wgsl.TokenMinusEqual:          wgsl.TokenMinus,
	wgsl.TokenStarEqual:           wgsl.TokenStar,
	wgsl.TokenSlashEqual:          wgsl.TokenSlash,
	wgsl.TokenPercentEqual:        wgsl.TokenPercent,
	wgsl.TokenAmpEqual:            wgsl.TokenAmpersand,
	wgsl.TokenPipeEqual:           wgsl.TokenPipe,
	wgsl.TokenCaretEqual:          wgsl.TokenCaret,
	wgsl.TokenLessLessEqual:       wgsl.TokenLessLess,
	wgsl.TokenGreaterGreaterEqual: wgsl.TokenGreaterGreater,
}

// validateRecursion reports cycles in the function call graph.
func (v *Validator) validateRecursion() {
	g := BuildGraph(v.module)
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[wgsl.DeclID]int)
	var visit func(d *Decl)
	visit = func(d *Decl) {
		state[d.ID] = active
		for _, id := range g.Edges(d.ID) {
			callee := v.module.Decl(id)
			if callee == nil || callee.Kind != KindFunction {
				continue
			}
			switch state[callee.ID] {
			case active:
				v.addError(callee.Span(), "function %s is recursive", callee.ShortName)
			case unvisited:
				visit(callee)
			}
		}
		state[d.ID] = done
	}
	for _, d := range v.module.Decls {
		if d.Kind == KindFunction && state[d.ID] == unvisited {
			visit(d)
		}
	}
}

// validateEntryPoints checks stage-specific signatures.
func (v *Validator) validateEntryPoints() {
	g := BuildGraph(v.module)
	for _, d := range v.module.Decls {
		fn := d.Function()
		if fn == nil {
			continue
		}
		stage := d.Stage()
		if stage == StageNone {
			continue
		}
		if len(fn.TemplateParams) > 0 {
			v.addError(fn.Span, "entry point %s cannot be generic", d.ShortName)
		}
		for _, user := range g.Users(d.ID) {
			if u := v.module.Decl(user); u != nil && u.Kind == KindFunction {
				v.addError(u.Span(), "%s calls entry point %s", u.ShortName, d.ShortName)
			}
		}
		for _, p := range fn.Params {
			if !v.hasIOAttr(p.Attributes, p.Type) {
				v.addError(p.Span, "entry point parameter %s needs @builtin or @location", p.Name)
			}
		}

		switch stage {
		case StageVertex:
			// Position can be returned directly or as a struct member.
			if fn.ReturnType == nil {
				v.addError(fn.Span, "entry point %s (@vertex): must have a return value", d.ShortName)
			} else if !v.hasPositionBuiltin(fn) {
				v.addError(fn.Span, "entry point %s (@vertex): must return @builtin(position)", d.ShortName)
			}

		case StageFragment:
			if fn.ReturnType != nil && !v.hasIOAttr(fn.ReturnAttrs, fn.ReturnType) {
				v.addError(fn.Span, "entry point %s (@fragment): return value needs @location or @builtin", d.ShortName)
			}

		case StageCompute:
			if fn.ReturnType != nil {
				v.addError(fn.Span, "entry point %s (@compute): must not return a value", d.ShortName)
			}
			a, ok := wgsl.AttributeNamed(fn.Attributes, "workgroup_size")
			if !ok {
				v.addError(fn.Span, "entry point %s (@compute): requires @workgroup_size", d.ShortName)
				break
			}
			if len(a.Args) == 0 || len(a.Args) > 3 {
				v.addError(a.Span, "@workgroup_size expects 1 to 3 arguments")
				break
			}
			for _, arg := range a.Args {
				n, err := EvalConstInt(v.module, arg)
				if err != nil {
					v.addTypeError(arg.Pos(), err)
					continue
				}
				if n <= 0 {
					v.addError(arg.Pos(), "entry point %s (@compute): workgroup size must be positive, got %d", d.ShortName, n)
				}
			}
		}
	}
}

// hasIOAttr reports whether an entry point input or output is bound,
// either directly or through every member of its struct type.
func (v *Validator) hasIOAttr(attrs []wgsl.Attribute, t wgsl.Type) bool {
	if hasAttr(attrs, "builtin") || hasAttr(attrs, "location") {
		return true
	}
	st, ok := v.resolveQuiet(t).(*StructType)
	if !ok {
		return false
	}
	for _, m := range st.Members {
		if !hasAttr(m.Attributes, "builtin") && !hasAttr(m.Attributes, "location") {
			return false
		}
	}
	return true
}

func hasAttr(attrs []wgsl.Attribute, name string) bool {
	_, ok := wgsl.AttributeNamed(attrs, name)
	return ok
}

// hasPositionBuiltin checks if the function result contains @builtin(position).
func (v *Validator) hasPositionBuiltin(fn *wgsl.FunctionDecl) bool {
	if isPositionBuiltin(fn.ReturnAttrs) {
		return true
	}
	st, ok := v.resolveQuiet(fn.ReturnType).(*StructType)
	if !ok {
		return false
	}
	for _, m := range st.Members {
		if isPositionBuiltin(m.Attributes) {
			return true
		}
	}
	return false
}

func isPositionBuiltin(attrs []wgsl.Attribute) bool {
	a, ok := wgsl.AttributeNamed(attrs, "builtin")
	if !ok || len(a.Args) != 1 {
		return false
	}
	id, ok := a.Args[0].(*wgsl.Ident)
	return ok && id.Name == "position"
}

// validateConstAsserts evaluates module-scope assertions.
func (v *Validator) validateConstAsserts() {
	for _, d := range v.module.Decls {
		ca, ok := d.Node.(*wgsl.ConstAssertDecl)
		if !ok {
			continue
		}
		v.context = validationContext{decl: d}
		v.checkCondition(ca.Expr, "const_assert")
		v.evalConstAssert(ca, false)
	}
}

func (v *Validator) evalConstAssert(ca *wgsl.ConstAssertDecl, local bool) {
	if v.opts.Consts == nil {
		return
	}
	ok, err := v.opts.Consts.EvalConstBool(ca.Expr)
	switch {
	case err != nil && local && errors.Is(err, ErrNotConstant):
		// refers to function-scope constants the module evaluator cannot see
	case err != nil:
		v.addError(ca.Expr.Pos(), "const_assert: %s", err)
	case !ok:
		v.addError(ca.Span, "const assertion failed: %s", wgsl.FormatExpr(ca.Expr))
	}
}

// validateResources checks caller-declared binding kinds against the
// resource variables that occupy the same slots.
func (v *Validator) validateResources() {
	if len(v.opts.Resources) == 0 {
		return
	}
	declared := make(map[[2]int64]BindingKind, len(v.opts.Resources))
	for _, r := range v.opts.Resources {
		declared[[2]int64{int64(r.Group), int64(r.Binding)}] = r.Kind
	}
	for _, d := range v.module.Decls {
		gv, ok := d.Node.(*wgsl.VarDecl)
		if !ok {
			continue
		}
		group, hasGroup := wgsl.AttributeNamed(gv.Attributes, "group")
		binding, hasBinding := wgsl.AttributeNamed(gv.Attributes, "binding")
		if !hasGroup || !hasBinding || len(group.Args) != 1 || len(binding.Args) != 1 {
			continue
		}
		g, err1 := EvalConstInt(v.module, group.Args[0])
		b, err2 := EvalConstInt(v.module, binding.Args[0])
		if err1 != nil || err2 != nil {
			continue
		}
		kind, ok := declared[[2]int64{g, b}]
		if !ok {
			continue
		}
		typ := v.typer.DeclType(d)
		if typ == nil {
			continue
		}
		space, access := VarSpace(gv)
		if !KindCompatible(kind, typ, space, access) {
			v.addError(gv.Span, "binding @group(%d) @binding(%d) is declared as %s, but %s is %s",
				g, b, kind, d.ShortName, describeResource(typ, space, access))
		}
	}
}

func describeResource(t Type, space AddressSpace, access AccessMode) string {
	switch t.(type) {
	case SamplerType, ImageType:
		return t.String()
	}
	if space == SpaceStorage {
		return fmt.Sprintf("var<storage, %s>", access)
	}
	return fmt.Sprintf("var<%s>", space)
}

// Helper methods for validation

func (v *Validator) resolve(t wgsl.Type) Type {
	return v.typer.resolveType(t)
}

func (v *Validator) resolveQuiet(t wgsl.Type) Type {
	if t == nil {
		return nil
	}
	typ, err := v.types.Resolve(t)
	if err != nil {
		return nil
	}
	return typ
}

func (v *Validator) addTypeError(span wgsl.Span, err error) {
	var te *TypeError
	if errors.As(err, &te) && te.Span.End.Offset > 0 {
		span = te.Span
	}
	v.addError(span, "%s", err)
}

func (v *Validator) addError(span wgsl.Span, format string, args ...any) {
	v.errors.Errorf(span, format, args...)
}
