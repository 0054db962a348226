package wgsl

import (
	"errors"
	"strings"
	"testing"
)

func lex(t *testing.T, input string) []Token {
	t.Helper()
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", input, err)
	}
	return tokens
}

func kindsOf(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func sameKinds(a, b []TokenKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLexerTokenKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenKind
	}{
		{"arithmetic", "+ - * / %", []TokenKind{TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent}},
		{"brackets", "( ) { } [ ]", []TokenKind{TokenLeftParen, TokenRightParen, TokenLeftBrace, TokenRightBrace, TokenLeftBracket, TokenRightBracket}},
		{"punctuation", ", . : ; @", []TokenKind{TokenComma, TokenDot, TokenColon, TokenSemicolon, TokenAt}},
		{"comparison", "== != <= >= < >", []TokenKind{TokenEqualEqual, TokenBangEqual, TokenLessEqual, TokenGreaterEqual, TokenLess, TokenGreater}},
		{"logic and shifts", "&& || << >> -> ++ --", []TokenKind{TokenAmpAmp, TokenPipePipe, TokenLessLess, TokenGreaterGreater, TokenArrow, TokenPlusPlus, TokenMinusMinus}},
		{"compound assignment", "+= -= *= /= %= &= |= ^= <<= >>=", []TokenKind{
			TokenPlusEqual, TokenMinusEqual, TokenStarEqual, TokenSlashEqual, TokenPercentEqual,
			TokenAmpEqual, TokenPipeEqual, TokenCaretEqual, TokenLessLessEqual, TokenGreaterGreaterEqual,
		}},
		{"path separator", "a::b", []TokenKind{TokenIdent, TokenColonColon, TokenIdent}},
		{"colon then path", "x: lib::T", []TokenKind{TokenIdent, TokenColon, TokenIdent, TokenColonColon, TokenIdent}},
		{"three colons", ":::", []TokenKind{TokenColonColon, TokenColon}},
		{"nested template close", "array<vec2<f32>>", []TokenKind{TokenArray, TokenLess, TokenVec2, TokenLess, TokenF32, TokenGreaterGreater}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kindsOf(lex(t, tt.input))
			want := append(tt.want, TokenEOF)
			if !sameKinds(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestLexerKeywords(t *testing.T) {
	tests := map[string]TokenKind{
		"fn":           TokenFn,
		"struct":       TokenStruct,
		"var":          TokenVar,
		"let":          TokenLet,
		"const":        TokenConst,
		"override":     TokenOverride,
		"alias":        TokenAlias,
		"const_assert": TokenConstAssert,
		"continuing":   TokenContinuing,
		"enable":       TokenEnable,
		"requires":     TokenRequires,
		"diagnostic":   TokenDiagnostic,
		"import":       TokenImport,
		"super":        TokenSuper,
		"f16":          TokenF16,
		"f32":          TokenF32,
		"mat4x4":       TokenMat4x4,
		"texture_2d":   TokenTexture2d,
		// Contextual names stay identifiers.
		"package":       TokenIdent,
		"binding_array": TokenIdent,
		"bitcast":       TokenIdent,
		"importer":      TokenIdent,
	}

	for word, kind := range tests {
		tokens := lex(t, word)
		if len(tokens) != 2 {
			t.Errorf("%q: expected 2 tokens, got %d", word, len(tokens))
			continue
		}
		if tokens[0].Kind != kind {
			t.Errorf("%q: expected %v, got %v", word, kind, tokens[0].Kind)
		}
		if tokens[0].Lexeme != word {
			t.Errorf("%q: lexeme %q", word, tokens[0].Lexeme)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
	}{
		{"123", TokenIntLiteral},
		{"0x1F", TokenIntLiteral},
		{"42u", TokenIntLiteral},
		{"-7i", TokenIntLiteral},
		{"1.5", TokenFloatLiteral},
		{"1.", TokenFloatLiteral},
		{"1e10", TokenFloatLiteral},
		{"1.5e-3", TokenFloatLiteral},
		{"3.14f", TokenFloatLiteral},
		{"1.0h", TokenFloatLiteral},
		{"2h", TokenFloatLiteral},
	}

	for _, tt := range tests {
		tokens := lex(t, tt.input)
		num := tokens[0]
		if num.Kind == TokenMinus {
			num = tokens[1]
		}
		if num.Kind != tt.kind {
			t.Errorf("%q: expected %v, got %v", tt.input, tt.kind, num.Kind)
		}
		if !strings.HasSuffix(tt.input, num.Lexeme) {
			t.Errorf("%q: lexeme %q does not end the input", tt.input, num.Lexeme)
		}
	}
}

func TestLexerImportStatement(t *testing.T) {
	tokens := lex(t, "import super::lib::{a, b as c};")
	want := []TokenKind{
		TokenImport, TokenSuper, TokenColonColon, TokenIdent, TokenColonColon,
		TokenLeftBrace, TokenIdent, TokenComma, TokenIdent, TokenIdent, TokenIdent,
		TokenRightBrace, TokenSemicolon, TokenEOF,
	}
	if got := kindsOf(tokens); !sameKinds(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if tokens[9].Lexeme != "as" {
		t.Errorf("expected 'as' to lex as an identifier, got %q", tokens[9].Lexeme)
	}
}

func TestLexerPositions(t *testing.T) {
	input := "const a = 1;\n  @if(x) fn f() {}\n/* two\nlines */ b::c"
	tokens := lex(t, input)

	tests := []struct {
		lexeme       string
		line, column int
	}{
		{"const", 1, 1},
		{"a", 1, 7},
		{"@", 2, 3},
		{"if", 2, 4},
		{"fn", 2, 10},
		{"b", 4, 10},
		{"::", 4, 11},
		{"c", 4, 13},
	}
	byLexeme := map[string]Token{}
	for _, tok := range tokens {
		if _, seen := byLexeme[tok.Lexeme]; !seen {
			byLexeme[tok.Lexeme] = tok
		}
	}
	for _, tt := range tests {
		tok, ok := byLexeme[tt.lexeme]
		if !ok {
			t.Errorf("no token %q", tt.lexeme)
			continue
		}
		if tok.Line != tt.line || tok.Column != tt.column {
			t.Errorf("%q at %d:%d, want %d:%d", tt.lexeme, tok.Line, tok.Column, tt.line, tt.column)
		}
		if input[tok.Offset:tok.End()] != tt.lexeme {
			t.Errorf("%q: offset %d points at %q", tt.lexeme, tok.Offset, input[tok.Offset:tok.End()])
		}
	}

	eof := tokens[len(tokens)-1]
	if eof.Kind != TokenEOF || eof.Offset != len(input) {
		t.Errorf("EOF at offset %d, want %d", eof.Offset, len(input))
	}
}

func TestLexerComments(t *testing.T) {
	input := `foo // this is a comment
bar /* block comment */ baz
/* nested /* comments */ work */
qux`

	var names []string
	for _, tok := range lex(t, input) {
		if tok.Kind == TokenIdent {
			names = append(names, tok.Lexeme)
		}
	}
	if strings.Join(names, " ") != "foo bar baz qux" {
		t.Errorf("identifiers: %v", names)
	}
}

func TestLexerUnterminatedBlockComment(t *testing.T) {
	tests := []string{
		"fn f() {}\n  /* never closed",
		"/* outer /* inner */ still open",
	}
	for _, input := range tests {
		_, err := NewFileLexer("shader.wesl", input).Tokenize()
		if err == nil {
			t.Errorf("%q: expected an error", input)
			continue
		}
		var se *SourceError
		if !errors.As(err, &se) {
			t.Errorf("%q: expected *SourceError, got %T", input, err)
			continue
		}
		if se.Message != "unterminated block comment" {
			t.Errorf("%q: message %q", input, se.Message)
		}
		if se.Span.Source != "shader.wesl" {
			t.Errorf("%q: source %q", input, se.Span.Source)
		}
		if got := input[se.Span.Start.Offset:]; !strings.HasPrefix(got, "/*") {
			t.Errorf("%q: span starts at %q", input, got)
		}
	}

	if _, err := NewLexer("a /* b */").Tokenize(); err != nil {
		t.Errorf("closed comment: %v", err)
	}
}

func TestLexerUnknownCharacter(t *testing.T) {
	tokens := lex(t, "a $ b")
	want := []TokenKind{TokenIdent, TokenError, TokenIdent, TokenEOF}
	if got := kindsOf(tokens); !sameKinds(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
