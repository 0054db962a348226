package wgsl

import (
	"fmt"
)

// Parser parses WESL/WGSL tokens into an AST.
type Parser struct {
	tokens  []Token
	current int
	errors  []ParseError
	file    string
	source  string
	prevEnd Position
}

// ParseError represents a parsing error.
type ParseError struct {
	Message string
	Token   Token
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Token.Line, e.Token.Column, e.Message)
}

// NewParser creates a new parser for the given tokens.
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:  tokens,
		current: 0,
	}
}

// NewFileParser creates a parser whose spans and errors name the given file.
func NewFileParser(tokens []Token, file, source string) *Parser {
	p := NewParser(tokens)
	p.file = file
	p.source = source
	return p
}

// ParseFile tokenizes and parses one source file.
// On failure the error is a SourceErrors listing every problem found.
func ParseFile(file, source string) (*Module, error) {
	tokens, err := NewFileLexer(file, source).Tokenize()
	if err != nil {
		if se, ok := err.(*SourceError); ok {
			return nil, SourceErrors{se}
		}
		return nil, err
	}
	return NewFileParser(tokens, file, source).Parse()
}

// Parse parses the tokens and returns a Module AST.
func (p *Parser) Parse() (*Module, error) {
	module := &Module{Source: p.file}

	for !p.isAtEnd() {
		if err := p.topLevel(module); err != nil {
			p.errors = append(p.errors, *err)
			p.synchronize()
		}
	}

	if len(p.errors) > 0 {
		return module, p.sourceErrors()
	}
	return module, nil
}

// ParseExpression parses a standalone expression, as used by the evaluator.
// The whole input must be consumed.
func ParseExpression(file, source string) (Expr, error) {
	tokens, err := NewFileLexer(file, source).Tokenize()
	if err != nil {
		if se, ok := err.(*SourceError); ok {
			return nil, SourceErrors{se}
		}
		return nil, err
	}
	p := NewFileParser(tokens, file, source)
	expr, perr := p.expression()
	if perr == nil && !p.isAtEnd() {
		perr = &ParseError{
			Message: fmt.Sprintf("unexpected %s after expression", p.peek().Kind),
			Token:   p.peek(),
		}
	}
	if perr != nil {
		p.errors = append(p.errors, *perr)
		return nil, p.sourceErrors()
	}
	return expr, nil
}

func (p *Parser) sourceErrors() SourceErrors {
	errs := make(SourceErrors, 0, len(p.errors))
	for _, e := range p.errors {
		span := p.tokenSpan(e.Token)
		errs.Add(NewSourceError(e.Message, span, p.source))
	}
	return errs
}

// topLevel parses one module-scope item into the module.
func (p *Parser) topLevel(module *Module) *ParseError {
	if p.match(TokenSemicolon) {
		return nil
	}

	attrs, err := p.attributes()
	if err != nil {
		return err
	}

	switch {
	case p.check(TokenImport):
		imp, err := p.importDecl(attrs)
		if err != nil {
			return err
		}
		module.Imports = append(module.Imports, imp)
		return nil
	case p.check(TokenEnable), p.check(TokenRequires), p.check(TokenDiagnostic):
		dir, err := p.directive(attrs)
		if err != nil {
			return err
		}
		module.Directives = append(module.Directives, dir)
		return nil
	}

	decl, err := p.declaration(attrs)
	if err != nil {
		return err
	}
	if decl != nil {
		module.Decls = append(module.Decls, decl)
	}
	return nil
}

// declaration parses a module-scope declaration after its attributes.
func (p *Parser) declaration(attrs []Attribute) (Decl, *ParseError) {
	switch {
	case p.check(TokenFn):
		return p.functionDecl(attrs)
	case p.check(TokenStruct):
		return p.structDecl(attrs)
	case p.check(TokenVar):
		return p.varDecl(attrs)
	case p.check(TokenConst):
		return p.constDecl(attrs)
	case p.check(TokenOverride):
		return p.overrideDecl(attrs)
	case p.check(TokenAlias):
		return p.aliasDecl(attrs)
	case p.check(TokenConstAssert):
		return p.constAssert(attrs)
	case p.check(TokenLet):
		return nil, &ParseError{Message: "let declarations are only allowed in function bodies", Token: p.peek()}
	case p.check(TokenEOF):
		return nil, nil
	default:
		tok := p.peek()
		return nil, &ParseError{
			Message: fmt.Sprintf("unexpected token %s, expected declaration", tok.Kind),
			Token:   tok,
		}
	}
}

// directive parses enable, requires and diagnostic directives.
func (p *Parser) directive(attrs []Attribute) (*Directive, *ParseError) {
	start := p.advance()
	dir := &Directive{Kind: start.Kind, Attributes: attrs}

	if start.Kind == TokenDiagnostic {
		if err := p.expectErr(TokenLeftParen); err != nil {
			return nil, err
		}
		for !p.check(TokenRightParen) && !p.isAtEnd() {
			word, err := p.dottedName()
			if err != nil {
				return nil, err
			}
			dir.Args = append(dir.Args, word)
			if !p.match(TokenComma) {
				break
			}
		}
		if err := p.expectErr(TokenRightParen); err != nil {
			return nil, err
		}
	} else {
		for !p.check(TokenSemicolon) && !p.isAtEnd() {
			// Extension names such as f16 lex as type keywords.
			if !p.check(TokenIdent) && !p.isTypeKeyword(p.peek().Kind) {
				return nil, &ParseError{Message: "expected extension name", Token: p.peek()}
			}
			dir.Args = append(dir.Args, p.advance().Lexeme)
			if !p.match(TokenComma) {
				break
			}
		}
	}

	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}
	dir.Span = p.spanFrom(start)
	return dir, nil
}

// dottedName parses name or name.name as used by diagnostic rules.
func (p *Parser) dottedName() (string, *ParseError) {
	if !p.check(TokenIdent) {
		return "", &ParseError{Message: "expected identifier", Token: p.peek()}
	}
	name := p.advance().Lexeme
	for p.match(TokenDot) {
		if !p.check(TokenIdent) {
			return "", &ParseError{Message: "expected identifier after '.'", Token: p.peek()}
		}
		name += "." + p.advance().Lexeme
	}
	return name, nil
}

// importDecl parses `import path;` including nested `{...}` collections.
func (p *Parser) importDecl(attrs []Attribute) (*ImportDecl, *ParseError) {
	start := p.advance() // consume 'import'

	items, err := p.importTree(nil)
	if err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}

	return &ImportDecl{
		Attributes: attrs,
		Items:      items,
		Span:       p.spanFrom(start),
	}, nil
}

func (p *Parser) importTree(prefix []string) ([]*ImportItem, *ParseError) {
	start := p.peek()
	path := append([]string(nil), prefix...)

	for {
		if p.check(TokenLeftBrace) {
			if len(path) == len(prefix) {
				return nil, &ParseError{Message: "expected import path before '{'", Token: p.peek()}
			}
			p.advance()
			var items []*ImportItem
			for !p.check(TokenRightBrace) && !p.isAtEnd() {
				sub, err := p.importTree(path)
				if err != nil {
					return nil, err
				}
				items = append(items, sub...)
				if !p.match(TokenComma) {
					break
				}
			}
			if err := p.expectErr(TokenRightBrace); err != nil {
				return nil, err
			}
			return items, nil
		}

		seg, ok := p.pathSegment()
		if !ok {
			return nil, &ParseError{Message: "expected import path segment", Token: p.peek()}
		}
		path = append(path, seg)

		if !p.match(TokenColonColon) {
			break
		}
	}

	item := &ImportItem{Path: path}
	if p.check(TokenIdent) && p.peek().Lexeme == "as" {
		p.advance()
		if !p.check(TokenIdent) {
			return nil, &ParseError{Message: "expected alias name after 'as'", Token: p.peek()}
		}
		item.Alias = p.advance().Lexeme
	}
	item.Span = p.spanFrom(start)
	return []*ImportItem{item}, nil
}

// pathSegment consumes an identifier or the `super` keyword.
func (p *Parser) pathSegment() (string, bool) {
	if p.check(TokenIdent) || p.check(TokenSuper) {
		return p.advance().Lexeme, true
	}
	return "", false
}

// attributes parses a list of attributes (@location(0), @vertex, @if(x), etc.)
func (p *Parser) attributes() ([]Attribute, *ParseError) {
	var attrs []Attribute

	for p.check(TokenAt) {
		start := p.advance() // consume @

		tok := p.peek()
		if tok.Kind != TokenIdent && !isKeywordToken(tok.Kind) {
			return nil, &ParseError{Message: "expected attribute name", Token: tok}
		}
		p.advance()

		attr := Attribute{Name: tok.Lexeme}

		if p.match(TokenLeftParen) {
			for !p.check(TokenRightParen) && !p.isAtEnd() {
				arg, err := p.expression()
				if err != nil {
					return nil, err
				}
				attr.Args = append(attr.Args, arg)

				if !p.match(TokenComma) {
					break
				}
			}
			if err := p.expectErr(TokenRightParen); err != nil {
				return nil, err
			}
		}
		attr.Span = p.spanFrom(start)

		if err := p.checkPredicateAttr(&attr, tok); err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}

	return attrs, nil
}

// checkPredicateAttr rejects malformed feature predicates on @if, @elif and @else.
func (p *Parser) checkPredicateAttr(attr *Attribute, name Token) *ParseError {
	switch attr.Name {
	case "if", "elif":
		if len(attr.Args) != 1 {
			return &ParseError{Message: fmt.Sprintf("@%s takes exactly one predicate", attr.Name), Token: name}
		}
		if bad := InvalidPredicate(attr.Args[0]); bad != nil {
			return &ParseError{
				Message: fmt.Sprintf("malformed feature predicate in @%s", attr.Name),
				Token:   Token{Kind: TokenError, Line: bad.Pos().Start.Line, Column: bad.Pos().Start.Column, Offset: bad.Pos().Start.Offset},
			}
		}
	case "else":
		if len(attr.Args) != 0 {
			return &ParseError{Message: "@else takes no arguments", Token: name}
		}
	}
	return nil
}

// InvalidPredicate returns the first sub-expression that is not allowed in a
// feature predicate, or nil when the predicate is well formed.
func InvalidPredicate(e Expr) Expr {
	switch e := e.(type) {
	case *Ident:
		if e.Qualified() {
			return e
		}
		return nil
	case *Literal:
		if e.Kind == TokenTrue || e.Kind == TokenFalse {
			return nil
		}
		return e
	case *ParenExpr:
		return InvalidPredicate(e.Expr)
	case *UnaryExpr:
		if e.Op != TokenBang {
			return e
		}
		return InvalidPredicate(e.Operand)
	case *BinaryExpr:
		if e.Op != TokenAmpAmp && e.Op != TokenPipePipe {
			return e
		}
		if bad := InvalidPredicate(e.Left); bad != nil {
			return bad
		}
		return InvalidPredicate(e.Right)
	}
	return e
}

// templateParams parses `<T, N: u32>` after a function or struct name.
func (p *Parser) templateParams() ([]*TemplateParam, *ParseError) {
	if !p.match(TokenLess) {
		return nil, nil
	}

	var params []*TemplateParam
	for !p.check(TokenGreater) && !p.isAtEnd() {
		if !p.check(TokenIdent) {
			return nil, &ParseError{Message: "expected template parameter name", Token: p.peek()}
		}
		name := p.advance()
		param := &TemplateParam{Name: name.Lexeme}
		if p.match(TokenColon) {
			t, err := p.typeSpec()
			if err != nil {
				return nil, err
			}
			param.Type = t
		}
		param.Span = p.spanFrom(name)
		params = append(params, param)

		if !p.match(TokenComma) {
			break
		}
	}
	if err := p.closeTemplate(); err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, &ParseError{Message: "empty template parameter list", Token: p.previous()}
	}
	return params, nil
}

// functionDecl parses a function declaration.
func (p *Parser) functionDecl(attrs []Attribute) (*FunctionDecl, *ParseError) {
	start := p.peek()
	if !p.match(TokenFn) {
		return nil, &ParseError{Message: "expected 'fn'", Token: p.peek()}
	}

	if !p.check(TokenIdent) {
		return nil, &ParseError{Message: "expected function name", Token: p.peek()}
	}
	name := p.advance()

	tparams, err := p.templateParams()
	if err != nil {
		return nil, err
	}

	if err := p.expectErr(TokenLeftParen); err != nil {
		return nil, err
	}

	params := make([]*Parameter, 0, 4) // most functions have few params
	for !p.check(TokenRightParen) && !p.isAtEnd() {
		param, err := p.parameter()
		if err != nil {
			return nil, err
		}
		params = append(params, param)

		if !p.match(TokenComma) {
			break
		}
	}

	if err := p.expectErr(TokenRightParen); err != nil {
		return nil, err
	}

	// Return type (optional)
	var returnType Type
	var returnAttrs []Attribute
	if p.match(TokenArrow) {
		returnAttrs, err = p.attributes()
		if err != nil {
			return nil, err
		}
		rt, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		returnType = rt
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &FunctionDecl{
		Name:           name.Lexeme,
		TemplateParams: tparams,
		Params:         params,
		ReturnType:     returnType,
		ReturnAttrs:    returnAttrs,
		Attributes:     attrs,
		Body:           body,
		Span:           p.spanFrom(start),
	}, nil
}

// parameter parses a function parameter.
func (p *Parser) parameter() (*Parameter, *ParseError) {
	start := p.peek()
	attrs, err := p.attributes()
	if err != nil {
		return nil, err
	}

	if !p.check(TokenIdent) {
		return nil, &ParseError{Message: "expected parameter name", Token: p.peek()}
	}
	name := p.advance()

	if err := p.expectErr(TokenColon); err != nil {
		return nil, err
	}

	paramType, err := p.typeSpec()
	if err != nil {
		return nil, err
	}

	return &Parameter{
		Name:       name.Lexeme,
		Type:       paramType,
		Attributes: attrs,
		Span:       p.spanFrom(start),
	}, nil
}

// structDecl parses a struct declaration.
func (p *Parser) structDecl(attrs []Attribute) (*StructDecl, *ParseError) {
	start := p.peek()
	if !p.match(TokenStruct) {
		return nil, &ParseError{Message: "expected 'struct'", Token: p.peek()}
	}

	if !p.check(TokenIdent) {
		return nil, &ParseError{Message: "expected struct name", Token: p.peek()}
	}
	name := p.advance()

	tparams, err := p.templateParams()
	if err != nil {
		return nil, err
	}

	if err := p.expectErr(TokenLeftBrace); err != nil {
		return nil, err
	}

	members := make([]*StructMember, 0, 4) // most structs have a few members
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		member, err := p.structMember()
		if err != nil {
			return nil, err
		}
		members = append(members, member)

		// Optional comma between members
		p.match(TokenComma)
	}

	if err := p.expectErr(TokenRightBrace); err != nil {
		return nil, err
	}
	p.match(TokenSemicolon)

	return &StructDecl{
		Name:           name.Lexeme,
		TemplateParams: tparams,
		Members:        members,
		Attributes:     attrs,
		Span:           p.spanFrom(start),
	}, nil
}

// structMember parses a struct member.
func (p *Parser) structMember() (*StructMember, *ParseError) {
	start := p.peek()
	attrs, err := p.attributes()
	if err != nil {
		return nil, err
	}

	if !p.check(TokenIdent) {
		return nil, &ParseError{Message: "expected member name", Token: p.peek()}
	}
	name := p.advance()

	if err := p.expectErr(TokenColon); err != nil {
		return nil, err
	}

	memberType, err := p.typeSpec()
	if err != nil {
		return nil, err
	}

	return &StructMember{
		Name:       name.Lexeme,
		Type:       memberType,
		Attributes: attrs,
		Span:       p.spanFrom(start),
	}, nil
}

// varDecl parses a variable declaration.
func (p *Parser) varDecl(attrs []Attribute) (*VarDecl, *ParseError) {
	start := p.peek()
	if !p.match(TokenVar) {
		return nil, &ParseError{Message: "expected 'var'", Token: p.peek()}
	}

	// Optional address space and access mode: var<storage, read_write>
	var addressSpace string
	var accessMode string
	if p.match(TokenLess) {
		if !p.check(TokenIdent) {
			return nil, &ParseError{Message: "expected address space", Token: p.peek()}
		}
		addressSpace = p.advance().Lexeme
		if p.match(TokenComma) {
			if !p.check(TokenIdent) {
				return nil, &ParseError{Message: "expected access mode", Token: p.peek()}
			}
			accessMode = p.advance().Lexeme
		}
		if err := p.closeTemplate(); err != nil {
			return nil, err
		}
	}

	if !p.check(TokenIdent) {
		return nil, &ParseError{Message: "expected variable name", Token: p.peek()}
	}
	name := p.advance()

	var varType Type
	if p.match(TokenColon) {
		t, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		varType = t
	}

	var init Expr
	if p.match(TokenEqual) {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		init = e
	}

	if varType == nil && init == nil {
		return nil, &ParseError{Message: "variable declaration needs a type or an initializer", Token: name}
	}

	p.match(TokenSemicolon)

	return &VarDecl{
		Name:         name.Lexeme,
		Type:         varType,
		Init:         init,
		AddressSpace: addressSpace,
		AccessMode:   accessMode,
		Attributes:   attrs,
		Span:         p.spanFrom(start),
	}, nil
}

// typedBinding parses `name (: type)? = init` shared by const, override and let.
func (p *Parser) typedBinding(what string, initRequired bool) (Token, Type, Expr, *ParseError) {
	if !p.check(TokenIdent) {
		return Token{}, nil, nil, &ParseError{Message: fmt.Sprintf("expected %s name", what), Token: p.peek()}
	}
	name := p.advance()

	var typ Type
	if p.match(TokenColon) {
		t, err := p.typeSpec()
		if err != nil {
			return name, nil, nil, err
		}
		typ = t
	}

	var init Expr
	if initRequired || p.check(TokenEqual) {
		if err := p.expectErr(TokenEqual); err != nil {
			return name, nil, nil, err
		}
		e, err := p.expression()
		if err != nil {
			return name, nil, nil, err
		}
		init = e
	}

	p.match(TokenSemicolon)
	return name, typ, init, nil
}

// constDecl parses a const declaration.
func (p *Parser) constDecl(attrs []Attribute) (*ConstDecl, *ParseError) {
	start := p.advance() // consume 'const'
	name, typ, init, err := p.typedBinding("constant", true)
	if err != nil {
		return nil, err
	}
	return &ConstDecl{
		Name:       name.Lexeme,
		Type:       typ,
		Init:       init,
		Attributes: attrs,
		Span:       p.spanFrom(start),
	}, nil
}

// overrideDecl parses an override declaration.
func (p *Parser) overrideDecl(attrs []Attribute) (*OverrideDecl, *ParseError) {
	start := p.advance() // consume 'override'
	name, typ, init, err := p.typedBinding("override", false)
	if err != nil {
		return nil, err
	}
	if typ == nil && init == nil {
		return nil, &ParseError{Message: "override declaration needs a type or an initializer", Token: name}
	}
	return &OverrideDecl{
		Name:       name.Lexeme,
		Type:       typ,
		Init:       init,
		Attributes: attrs,
		Span:       p.spanFrom(start),
	}, nil
}

// letDecl parses a function-scope let declaration.
func (p *Parser) letDecl(attrs []Attribute) (*LetDecl, *ParseError) {
	start := p.advance() // consume 'let'
	name, typ, init, err := p.typedBinding("variable", true)
	if err != nil {
		return nil, err
	}
	return &LetDecl{
		Name:       name.Lexeme,
		Type:       typ,
		Init:       init,
		Attributes: attrs,
		Span:       p.spanFrom(start),
	}, nil
}

// aliasDecl parses a type alias declaration.
func (p *Parser) aliasDecl(attrs []Attribute) (*AliasDecl, *ParseError) {
	start := p.advance() // consume 'alias'

	if !p.check(TokenIdent) {
		return nil, &ParseError{Message: "expected alias name", Token: p.peek()}
	}
	name := p.advance()

	if err := p.expectErr(TokenEqual); err != nil {
		return nil, err
	}

	aliasType, err := p.typeSpec()
	if err != nil {
		return nil, err
	}

	p.match(TokenSemicolon)

	return &AliasDecl{
		Name:       name.Lexeme,
		Type:       aliasType,
		Attributes: attrs,
		Span:       p.spanFrom(start),
	}, nil
}

// constAssert parses a const_assert at module or function scope.
func (p *Parser) constAssert(attrs []Attribute) (*ConstAssertDecl, *ParseError) {
	start := p.advance() // consume 'const_assert'
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.match(TokenSemicolon)
	return &ConstAssertDecl{Expr: e, Attributes: attrs, Span: p.spanFrom(start)}, nil
}

// typeSpec parses a type specification.
func (p *Parser) typeSpec() (Type, *ParseError) {
	tok := p.peek()

	if p.match(TokenArray) {
		if err := p.expectErr(TokenLess); err != nil {
			return nil, err
		}

		elemType, err := p.typeSpec()
		if err != nil {
			return nil, err
		}

		var size Expr
		if p.match(TokenComma) {
			// additive keeps '>' and '>>' out of the size expression
			size, err = p.additive()
			if err != nil {
				return nil, err
			}
		}

		if err := p.closeTemplate(); err != nil {
			return nil, err
		}

		return &ArrayType{
			Element: elemType,
			Size:    size,
			Span:    p.spanFrom(tok),
		}, nil
	}

	if p.check(TokenIdent) && p.peek().Lexeme == "binding_array" {
		p.advance()
		if err := p.expectErr(TokenLess); err != nil {
			return nil, err
		}
		elemType, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		var size Expr
		if p.match(TokenComma) {
			size, err = p.additive()
			if err != nil {
				return nil, err
			}
		}
		if err := p.closeTemplate(); err != nil {
			return nil, err
		}
		return &BindingArrayType{Element: elemType, Size: size, Span: p.spanFrom(tok)}, nil
	}

	// Pointer type: ptr<function, f32>
	if p.match(TokenPtr) {
		if err := p.expectErr(TokenLess); err != nil {
			return nil, err
		}

		if !p.check(TokenIdent) {
			return nil, &ParseError{Message: "expected address space", Token: p.peek()}
		}
		addressSpace := p.advance().Lexeme

		if err := p.expectErr(TokenComma); err != nil {
			return nil, err
		}

		pointeeType, err := p.typeSpec()
		if err != nil {
			return nil, err
		}

		var accessMode string
		if p.match(TokenComma) {
			if !p.check(TokenIdent) {
				return nil, &ParseError{Message: "expected access mode", Token: p.peek()}
			}
			accessMode = p.advance().Lexeme
		}

		if err := p.closeTemplate(); err != nil {
			return nil, err
		}

		return &PtrType{
			AddressSpace: addressSpace,
			PointeeType:  pointeeType,
			AccessMode:   accessMode,
			Span:         p.spanFrom(tok),
		}, nil
	}

	if p.isTypeKeyword(tok.Kind) || p.check(TokenIdent) || p.check(TokenSuper) {
		path, name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		namedType := &NamedType{Name: name, Path: path}

		if p.match(TokenLess) {
			args, err := p.templateArgs()
			if err != nil {
				return nil, err
			}
			namedType.TypeParams = args
		}
		namedType.Span = p.spanFrom(tok)
		return namedType, nil
	}

	return nil, &ParseError{Message: "expected type", Token: tok}
}

// qualifiedName parses `a::b::c`, returning the qualifier path and final name.
func (p *Parser) qualifiedName() ([]string, string, *ParseError) {
	var segs []string
	for {
		tok := p.peek()
		if tok.Kind != TokenIdent && tok.Kind != TokenSuper && !p.isTypeKeyword(tok.Kind) {
			return nil, "", &ParseError{Message: "expected identifier", Token: tok}
		}
		p.advance()
		segs = append(segs, tok.Lexeme)
		if !p.check(TokenColonColon) {
			break
		}
		p.advance()
	}
	return segs[:len(segs)-1], segs[len(segs)-1], nil
}

// templateArgs parses a template argument list after its opening '<'.
func (p *Parser) templateArgs() ([]Type, *ParseError) {
	var args []Type
	for !p.check(TokenGreater) && !p.isAtEnd() {
		arg, err := p.templateArg()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.match(TokenComma) {
			break
		}
	}
	if err := p.closeTemplate(); err != nil {
		return nil, err
	}
	return args, nil
}

// templateArg parses a type or a value in a template argument list.
func (p *Parser) templateArg() (Type, *ParseError) {
	tok := p.peek()
	switch tok.Kind {
	case TokenIntLiteral, TokenFloatLiteral, TokenTrue, TokenFalse, TokenMinus, TokenLeftParen:
		e, err := p.additive()
		if err != nil {
			return nil, err
		}
		return &ConstArg{Value: e, Span: p.spanFrom(tok)}, nil
	}
	return p.typeSpec()
}

// closeTemplate consumes the '>' ending a template list, splitting '>>',
// '>=' and '>>=' tokens when a template list closes inside them.
func (p *Parser) closeTemplate() *ParseError {
	tok := p.peek()
	switch tok.Kind {
	case TokenGreater:
		p.advance()
	case TokenGreaterGreater:
		p.splitGreater(TokenGreater, ">")
	case TokenGreaterEqual:
		p.splitGreater(TokenEqual, "=")
	case TokenGreaterGreaterEqual:
		p.splitGreater(TokenGreaterEqual, ">=")
	default:
		return &ParseError{Message: fmt.Sprintf("expected %s to close template list, got %s", TokenGreater, tok.Kind), Token: tok}
	}
	return nil
}

func (p *Parser) splitGreater(rest TokenKind, lexeme string) {
	tok := &p.tokens[p.current]
	p.prevEnd = Position{Line: tok.Line, Column: tok.Column + 1, Offset: tok.Offset + 1}
	tok.Kind = rest
	tok.Lexeme = lexeme
	tok.Offset++
	tok.Column++
}

// block parses a block statement.
func (p *Parser) block() (*BlockStmt, *ParseError) {
	start := p.peek()
	if err := p.expectErr(TokenLeftBrace); err != nil {
		return nil, err
	}

	stmts := make([]Stmt, 0, 4) // most blocks have a few statements
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	if err := p.expectErr(TokenRightBrace); err != nil {
		return nil, err
	}

	return &BlockStmt{
		Statements: stmts,
		Span:       p.spanFrom(start),
	}, nil
}

// statement parses a statement.
func (p *Parser) statement() (Stmt, *ParseError) {
	if p.check(TokenAt) {
		start := p.peek()
		attrs, err := p.attributes()
		if err != nil {
			return nil, err
		}
		inner, err := p.statement()
		if err != nil {
			return nil, err
		}
		if inner == nil {
			return nil, &ParseError{Message: "expected statement after attributes", Token: p.peek()}
		}
		return &AttrStmt{Attributes: attrs, Stmt: inner, Span: p.spanFrom(start)}, nil
	}

	switch {
	case p.match(TokenSemicolon):
		return nil, nil
	case p.check(TokenReturn):
		return p.returnStmt()
	case p.check(TokenIf):
		return p.ifStmt()
	case p.check(TokenFor):
		return p.forStmt()
	case p.check(TokenWhile):
		return p.whileStmt()
	case p.check(TokenLoop):
		return p.loopStmt()
	case p.check(TokenBreak):
		return p.breakStmt()
	case p.check(TokenContinue):
		return p.continueStmt()
	case p.check(TokenDiscard):
		return p.discardStmt()
	case p.check(TokenSwitch):
		return p.switchStmt()
	case p.check(TokenVar):
		return p.varDecl(nil)
	case p.check(TokenLet):
		return p.letDecl(nil)
	case p.check(TokenConst):
		return p.constDecl(nil)
	case p.check(TokenConstAssert):
		return p.constAssert(nil)
	case p.check(TokenLeftBrace):
		return p.block()
	case p.check(TokenContinuing):
		return nil, &ParseError{Message: "'continuing' is only allowed at the end of a loop body", Token: p.peek()}
	default:
		return p.simpleStmt(true)
	}
}

// returnStmt parses a return statement.
func (p *Parser) returnStmt() (*ReturnStmt, *ParseError) {
	start := p.advance() // consume 'return'

	var value Expr
	if !p.check(TokenSemicolon) && !p.check(TokenRightBrace) {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		value = e
	}

	p.match(TokenSemicolon)

	return &ReturnStmt{
		Value: value,
		Span:  p.spanFrom(start),
	}, nil
}

// ifStmt parses an if statement.
func (p *Parser) ifStmt() (*IfStmt, *ParseError) {
	start := p.advance() // consume 'if'

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	var elseStmt Stmt
	if p.match(TokenElse) {
		if p.check(TokenIf) {
			elseStmt, err = p.ifStmt()
		} else {
			elseStmt, err = p.block()
		}
		if err != nil {
			return nil, err
		}
	}

	return &IfStmt{
		Condition: cond,
		Body:      body,
		Else:      elseStmt,
		Span:      p.spanFrom(start),
	}, nil
}

// forStmt parses a for statement.
func (p *Parser) forStmt() (*ForStmt, *ParseError) {
	start := p.advance() // consume 'for'

	if err := p.expectErr(TokenLeftParen); err != nil {
		return nil, err
	}

	var init Stmt
	if !p.check(TokenSemicolon) {
		var err *ParseError
		switch {
		case p.check(TokenVar):
			init, err = p.varDecl(nil)
		case p.check(TokenLet):
			init, err = p.letDecl(nil)
		case p.check(TokenConst):
			init, err = p.constDecl(nil)
		default:
			init, err = p.simpleStmt(true)
		}
		if err != nil {
			return nil, err
		}
	} else {
		p.advance()
	}

	var cond Expr
	if !p.check(TokenSemicolon) {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		cond = e
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}

	var update Stmt
	if !p.check(TokenRightParen) {
		s, err := p.simpleStmt(false)
		if err != nil {
			return nil, err
		}
		update = s
	}

	if err := p.expectErr(TokenRightParen); err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ForStmt{
		Init:      init,
		Condition: cond,
		Update:    update,
		Body:      body,
		Span:      p.spanFrom(start),
	}, nil
}

// whileStmt parses a while statement.
func (p *Parser) whileStmt() (*WhileStmt, *ParseError) {
	start := p.advance() // consume 'while'

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &WhileStmt{
		Condition: cond,
		Body:      body,
		Span:      p.spanFrom(start),
	}, nil
}

// loopStmt parses `loop { ... continuing { ... break if cond; } }`.
func (p *Parser) loopStmt() (*LoopStmt, *ParseError) {
	start := p.advance() // consume 'loop'

	bodyStart := p.peek()
	if err := p.expectErr(TokenLeftBrace); err != nil {
		return nil, err
	}

	loop := &LoopStmt{}
	var stmts []Stmt
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		if p.check(TokenContinuing) {
			cont, breakIf, err := p.continuingBlock()
			if err != nil {
				return nil, err
			}
			loop.Continuing = cont
			loop.BreakIf = breakIf
			break
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if err := p.expectErr(TokenRightBrace); err != nil {
		return nil, err
	}

	loop.Body = &BlockStmt{Statements: stmts, Span: p.spanFrom(bodyStart)}
	loop.Span = p.spanFrom(start)
	return loop, nil
}

func (p *Parser) continuingBlock() (*BlockStmt, Expr, *ParseError) {
	start := p.advance() // consume 'continuing'
	if err := p.expectErr(TokenLeftBrace); err != nil {
		return nil, nil, err
	}

	var stmts []Stmt
	var breakIf Expr
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		if p.check(TokenBreak) && p.peekAt(1).Kind == TokenIf {
			p.advance()
			p.advance()
			cond, err := p.expression()
			if err != nil {
				return nil, nil, err
			}
			p.match(TokenSemicolon)
			breakIf = cond
			if !p.check(TokenRightBrace) {
				return nil, nil, &ParseError{Message: "'break if' must be the last statement of a continuing block", Token: p.peek()}
			}
			break
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if err := p.expectErr(TokenRightBrace); err != nil {
		return nil, nil, err
	}
	return &BlockStmt{Statements: stmts, Span: p.spanFrom(start)}, breakIf, nil
}

// switchStmt parses a switch statement.
func (p *Parser) switchStmt() (*SwitchStmt, *ParseError) {
	start := p.advance() // consume 'switch'

	selector, err := p.expression()
	if err != nil {
		return nil, err
	}

	if err := p.expectErr(TokenLeftBrace); err != nil {
		return nil, err
	}

	var cases []*SwitchCaseClause
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		caseClause, err := p.switchCaseClause()
		if err != nil {
			return nil, err
		}
		cases = append(cases, caseClause)
	}

	if err := p.expectErr(TokenRightBrace); err != nil {
		return nil, err
	}

	return &SwitchStmt{
		Selector: selector,
		Cases:    cases,
		Span:     p.spanFrom(start),
	}, nil
}

// switchCaseClause parses a case or default clause in a switch statement.
// `case 1, default:` is accepted and marks the clause as default.
func (p *Parser) switchCaseClause() (*SwitchCaseClause, *ParseError) {
	start := p.peek()
	var selectors []Expr
	isDefault := false

	if p.match(TokenDefault) {
		isDefault = true
	} else if p.match(TokenCase) {
		for !p.check(TokenColon) && !p.check(TokenLeftBrace) && !p.isAtEnd() {
			if p.match(TokenDefault) {
				isDefault = true
			} else {
				expr, err := p.expression()
				if err != nil {
					return nil, err
				}
				selectors = append(selectors, expr)
			}
			if !p.match(TokenComma) {
				break
			}
		}
	} else {
		return nil, &ParseError{Message: "expected 'case' or 'default'", Token: start}
	}

	p.match(TokenColon)

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &SwitchCaseClause{
		Selectors: selectors,
		IsDefault: isDefault,
		Body:      body,
		Span:      p.spanFrom(start),
	}, nil
}

// breakStmt parses a break statement.
func (p *Parser) breakStmt() (*BreakStmt, *ParseError) {
	start := p.advance() // consume 'break'
	if p.check(TokenIf) {
		return nil, &ParseError{Message: "'break if' is only allowed at the end of a continuing block", Token: p.peek()}
	}
	p.match(TokenSemicolon)
	return &BreakStmt{Span: p.spanFrom(start)}, nil
}

// continueStmt parses a continue statement.
func (p *Parser) continueStmt() (*ContinueStmt, *ParseError) {
	start := p.advance() // consume 'continue'
	p.match(TokenSemicolon)
	return &ContinueStmt{Span: p.spanFrom(start)}, nil
}

// discardStmt parses a discard statement.
func (p *Parser) discardStmt() (*DiscardStmt, *ParseError) {
	start := p.advance() // consume 'discard'
	p.match(TokenSemicolon)
	return &DiscardStmt{Span: p.spanFrom(start)}, nil
}

// simpleStmt parses an assignment, increment, phony assignment or call.
// The trailing semicolon is consumed only when semi is true.
func (p *Parser) simpleStmt(semi bool) (Stmt, *ParseError) {
	start := p.peek()

	// Phony assignment: _ = expr
	if start.Kind == TokenIdent && start.Lexeme == "_" && p.peekAt(1).Kind == TokenEqual {
		p.advance()
		p.advance()
		right, err := p.expression()
		if err != nil {
			return nil, err
		}
		if semi {
			p.match(TokenSemicolon)
		}
		return &AssignStmt{Op: TokenEqual, Right: right, Span: p.spanFrom(start)}, nil
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}

	var stmt Stmt
	switch {
	case p.isAssignOp(p.peek().Kind):
		op := p.advance()
		right, err := p.expression()
		if err != nil {
			return nil, err
		}
		stmt = &AssignStmt{Left: expr, Op: op.Kind, Right: right}
	case p.check(TokenPlusPlus), p.check(TokenMinusMinus):
		op := p.advance()
		stmt = &IncDecStmt{Target: expr, Op: op.Kind}
	default:
		stmt = &ExprStmt{Expr: expr}
	}

	if semi {
		p.match(TokenSemicolon)
	}
	span := p.spanFrom(start)
	switch s := stmt.(type) {
	case *AssignStmt:
		s.Span = span
	case *IncDecStmt:
		s.Span = span
	case *ExprStmt:
		s.Span = span
	}
	return stmt, nil
}

// expression parses an expression.
func (p *Parser) expression() (Expr, *ParseError) {
	return p.logicalOr()
}

// binaryLevel parses a left-associative chain of the given operators.
func (p *Parser) binaryLevel(next func() (Expr, *ParseError), ops ...TokenKind) (Expr, *ParseError) {
	start := p.peek()
	left, err := next()
	if err != nil {
		return nil, err
	}

	for p.checkAny(ops...) {
		op := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{
			Left:  left,
			Op:    op.Kind,
			Right: right,
			Span:  p.spanFrom(start),
		}
	}

	return left, nil
}

// logicalOr parses || expressions.
func (p *Parser) logicalOr() (Expr, *ParseError) {
	return p.binaryLevel(p.logicalAnd, TokenPipePipe)
}

// logicalAnd parses && expressions.
func (p *Parser) logicalAnd() (Expr, *ParseError) {
	return p.binaryLevel(p.bitwiseOr, TokenAmpAmp)
}

// bitwiseOr parses | expressions.
func (p *Parser) bitwiseOr() (Expr, *ParseError) {
	return p.binaryLevel(p.bitwiseXor, TokenPipe)
}

// bitwiseXor parses ^ expressions.
func (p *Parser) bitwiseXor() (Expr, *ParseError) {
	return p.binaryLevel(p.bitwiseAnd, TokenCaret)
}

// bitwiseAnd parses & expressions.
func (p *Parser) bitwiseAnd() (Expr, *ParseError) {
	return p.binaryLevel(p.equality, TokenAmpersand)
}

// equality parses == and != expressions.
func (p *Parser) equality() (Expr, *ParseError) {
	return p.binaryLevel(p.comparison, TokenEqualEqual, TokenBangEqual)
}

// comparison parses <, >, <=, >= expressions.
func (p *Parser) comparison() (Expr, *ParseError) {
	return p.binaryLevel(p.shift, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual)
}

// shift parses << and >> expressions.
func (p *Parser) shift() (Expr, *ParseError) {
	return p.binaryLevel(p.additive, TokenLessLess, TokenGreaterGreater)
}

// additive parses + and - expressions.
func (p *Parser) additive() (Expr, *ParseError) {
	return p.binaryLevel(p.multiplicative, TokenPlus, TokenMinus)
}

// multiplicative parses *, /, % expressions.
func (p *Parser) multiplicative() (Expr, *ParseError) {
	return p.binaryLevel(p.unary, TokenStar, TokenSlash, TokenPercent)
}

// unary parses unary expressions.
func (p *Parser) unary() (Expr, *ParseError) {
	if p.check(TokenMinus) || p.check(TokenBang) || p.check(TokenTilde) ||
		p.check(TokenAmpersand) || p.check(TokenStar) {
		op := p.advance()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{
			Op:      op.Kind,
			Operand: operand,
			Span:    p.spanFrom(op),
		}, nil
	}

	return p.postfix()
}

// postfix parses postfix expressions (calls, indexing, member access).
func (p *Parser) postfix() (Expr, *ParseError) {
	start := p.peek()
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		if p.check(TokenLeftParen) {
			var callee *Ident
			var targs []Type
			switch e := expr.(type) {
			case *Ident:
				callee = e
			case *CallExpr:
				// template call parsed by primary without its argument list
				if e.Args == nil && e.TemplateArgs != nil {
					callee, targs = e.Func, e.TemplateArgs
				}
			case *ConstructExpr:
				if e.Args == nil {
					args, err := p.callArgs()
					if err != nil {
						return nil, err
					}
					e.Args = args
					e.Span = p.spanFrom(start)
					continue
				}
			}
			if callee == nil {
				return nil, &ParseError{Message: "expression is not callable", Token: p.peek()}
			}
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			expr = &CallExpr{
				Func:         callee,
				TemplateArgs: targs,
				Args:         args,
				Span:         p.spanFrom(start),
			}
		} else if p.match(TokenLeftBracket) {
			index, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.expectErr(TokenRightBracket); err != nil {
				return nil, err
			}
			expr = &IndexExpr{
				Expr:  expr,
				Index: index,
				Span:  p.spanFrom(start),
			}
		} else if p.match(TokenDot) {
			if !p.check(TokenIdent) {
				return nil, &ParseError{Message: "expected member name", Token: p.peek()}
			}
			member := p.advance()
			expr = &MemberExpr{
				Expr:   expr,
				Member: member.Lexeme,
				Span:   p.spanFrom(start),
			}
		} else {
			break
		}
	}

	if c, ok := expr.(*ConstructExpr); ok && c.Args == nil {
		return nil, &ParseError{Message: "expected '(' after type in constructor", Token: p.peek()}
	}
	if c, ok := expr.(*CallExpr); ok && c.Args == nil {
		return nil, &ParseError{Message: "expected '(' after template arguments", Token: p.peek()}
	}
	return expr, nil
}

// callArgs parses a parenthesized, comma-separated argument list.
// A call without arguments yields an empty, non-nil slice.
func (p *Parser) callArgs() ([]Expr, *ParseError) {
	if err := p.expectErr(TokenLeftParen); err != nil {
		return nil, err
	}
	args := make([]Expr, 0, 4)
	for !p.check(TokenRightParen) && !p.isAtEnd() {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.match(TokenComma) {
			break
		}
	}
	if err := p.expectErr(TokenRightParen); err != nil {
		return nil, err
	}
	return args, nil
}

// primary parses primary expressions.
func (p *Parser) primary() (Expr, *ParseError) {
	tok := p.peek()

	switch tok.Kind {
	case TokenIntLiteral, TokenFloatLiteral:
		p.advance()
		return &Literal{
			Kind:  tok.Kind,
			Value: tok.Lexeme,
			Span:  p.spanFrom(tok),
		}, nil

	case TokenTrue, TokenFalse:
		p.advance()
		return &Literal{
			Kind:  tok.Kind,
			Value: tok.Lexeme,
			Span:  p.spanFrom(tok),
		}, nil

	case TokenIdent, TokenSuper:
		if next := p.peekAt(1).Kind; tok.Lexeme == "bitcast" && (next == TokenLess || next == TokenLeftParen) {
			return p.bitcast()
		}
		path, name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		ident := &Ident{Name: name, Path: path, Span: p.spanFrom(tok)}
		if p.check(TokenLess) && p.looksLikeTemplate() {
			p.advance()
			targs, err := p.templateArgs()
			if err != nil {
				return nil, err
			}
			return &CallExpr{Func: ident, TemplateArgs: targs, Span: p.spanFrom(tok)}, nil
		}
		return ident, nil

	case TokenLeftParen:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expectErr(TokenRightParen); err != nil {
			return nil, err
		}
		return &ParenExpr{Expr: expr, Span: p.spanFrom(tok)}, nil

	default:
		// Inferred array constructor: array(1, 2, 3)
		if tok.Kind == TokenArray && p.peekAt(1).Kind == TokenLeftParen {
			p.advance()
			return &ConstructExpr{
				Type: &NamedType{Name: tok.Lexeme, Span: p.spanFrom(tok)},
				Span: p.spanFrom(tok),
			}, nil
		}

		// Type constructors: vec3<f32>(1.0, 2.0, 3.0)
		if p.isTypeKeyword(tok.Kind) {
			typeExpr, err := p.typeSpec()
			if err != nil {
				return nil, err
			}
			return &ConstructExpr{
				Type: typeExpr,
				Span: p.spanFrom(tok),
			}, nil
		}

		return nil, &ParseError{
			Message: fmt.Sprintf("unexpected token %s in expression", tok.Kind),
			Token:   tok,
		}
	}
}

// bitcast parses bitcast<T>(e).
func (p *Parser) bitcast() (Expr, *ParseError) {
	start := p.advance() // consume 'bitcast'
	if err := p.expectErr(TokenLess); err != nil {
		return nil, err
	}
	target, err := p.typeSpec()
	if err != nil {
		return nil, err
	}
	if err := p.closeTemplate(); err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenLeftParen); err != nil {
		return nil, err
	}
	operand, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenRightParen); err != nil {
		return nil, err
	}
	return &BitcastExpr{Type: target, Expr: operand, Span: p.spanFrom(start)}, nil
}

// looksLikeTemplate decides whether the '<' at the current position opens a
// template argument list: it must close before any token that cannot appear
// inside one, and the closing '>' must be followed by '('.
func (p *Parser) looksLikeTemplate() bool {
	depth, nest := 0, 0
	for i := p.current; i < len(p.tokens); i++ {
		switch p.tokens[i].Kind {
		case TokenLess:
			if nest == 0 {
				depth++
			}
		case TokenGreater:
			if nest == 0 {
				depth--
			}
		case TokenGreaterGreater:
			if nest == 0 {
				depth -= 2
			}
		case TokenLeftParen, TokenLeftBracket:
			nest++
		case TokenRightParen, TokenRightBracket:
			nest--
			if nest < 0 {
				return false
			}
		case TokenSemicolon, TokenLeftBrace, TokenRightBrace, TokenAmpAmp,
			TokenPipePipe, TokenEqual, TokenColon, TokenEOF:
			return false
		}
		if depth < 0 {
			return false
		}
		if depth == 0 {
			return i+1 < len(p.tokens) && p.tokens[i+1].Kind == TokenLeftParen
		}
	}
	return false
}

// Helper methods

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
		tok := p.previous()
		p.prevEnd = Position{Line: tok.Line, Column: tok.Column + len(tok.Lexeme), Offset: tok.End()}
	}
	return p.previous()
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) peekAt(n int) Token {
	if p.current+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+n]
}

func (p *Parser) previous() Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEOF
}

func (p *Parser) check(kind TokenKind) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Kind == kind
}

func (p *Parser) checkAny(kinds ...TokenKind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

func (p *Parser) match(kind TokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectErr(kind TokenKind) *ParseError {
	if p.check(kind) {
		p.advance()
		return nil
	}
	return &ParseError{
		Message: fmt.Sprintf("expected %s, got %s", kind, p.peek().Kind),
		Token:   p.peek(),
	}
}

// spanFrom covers everything from start up to the last consumed token.
func (p *Parser) spanFrom(start Token) Span {
	end := p.prevEnd
	if end.Offset < start.Offset {
		end = Position{Line: start.Line, Column: start.Column, Offset: start.Offset}
	}
	return Span{
		Start:  Position{Line: start.Line, Column: start.Column, Offset: start.Offset},
		End:    end,
		Source: p.file,
	}
}

func (p *Parser) tokenSpan(tok Token) Span {
	end := tok.End()
	if end == tok.Offset && tok.Offset < len(p.source) {
		end++
	}
	return Span{
		Start:  Position{Line: tok.Line, Column: tok.Column, Offset: tok.Offset},
		End:    Position{Line: tok.Line, Column: tok.Column + (end - tok.Offset), Offset: end},
		Source: p.file,
	}
}

func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Kind == TokenSemicolon || p.previous().Kind == TokenRightBrace {
			return
		}
		switch p.peek().Kind {
		case TokenFn, TokenStruct, TokenVar, TokenConst, TokenOverride, TokenAlias,
			TokenImport, TokenEnable, TokenRequires, TokenConstAssert, TokenAt:
			return
		}
		p.advance()
	}
}

func (p *Parser) isTypeKeyword(kind TokenKind) bool {
	return kind >= TokenBool && kind <= TokenTextureDepthMultisampled2d
}

func isKeywordToken(kind TokenKind) bool {
	return kind >= TokenAlias && kind <= TokenTextureDepthMultisampled2d
}

func (p *Parser) isAssignOp(kind TokenKind) bool {
	switch kind {
	case TokenEqual, TokenPlusEqual, TokenMinusEqual, TokenStarEqual,
		TokenSlashEqual, TokenPercentEqual, TokenAmpEqual, TokenPipeEqual,
		TokenCaretEqual, TokenLessLessEqual, TokenGreaterGreaterEqual:
		return true
	}
	return false
}
