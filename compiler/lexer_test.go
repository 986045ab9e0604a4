package compiler

import (
	"testing"
)

func TestLexerOperators(t *testing.T) {
	input := `( ) [ ] { } ; , . : :: ? @ = == != $= !$= <= >= << >> <<= >>= += -= ++ -- && || ~ !`
	expected := []TokenType{
		TokenLParen, TokenRParen, TokenLBracket, TokenRBracket, TokenLBrace, TokenRBrace,
		TokenSemicolon, TokenComma, TokenDot, TokenColon, TokenColonColon, TokenQuestion,
		TokenAt, TokenAssign, TokenEQ, TokenNE, TokenStrEQ, TokenStrNE, TokenLE, TokenGE,
		TokenShl, TokenShr, TokenShlEq, TokenShrEq, TokenPlusEq, TokenMinusEq,
		TokenPlusPlus, TokenMinusMinus, TokenAndAnd, TokenOrOr, TokenTilde, TokenBang,
		TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerVariables(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		lit   string
	}{
		{"%x", TokenLocalVar, "%x"},
		{"$pref::Count", TokenGlobalVar, "$pref::Count"},
		{"$a::b::c_1", TokenGlobalVar, "$a::b::c_1"},
		{"%obj", TokenLocalVar, "%obj"},
	}

	for _, tt := range tests {
		l := NewLexer(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.lit {
			t.Errorf("Lex(%q) = %v, want %v(%q)", tt.input, tok, tt.typ, tt.lit)
		}
		if next := l.NextToken(); next.Type != TokenEOF {
			t.Errorf("Lex(%q) left trailing token %v", tt.input, next)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"42", TokenInteger},
		{"0x2A", TokenInteger},
		{"3.14", TokenFloat},
		{".5", TokenFloat},
		{"1e3", TokenFloat},
		{"2.5e-2", TokenFloat},
	}

	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.input {
			t.Errorf("Lex(%q) = %v, want %v", tt.input, tok, tt.typ)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{`"hello"`, TokenString, "hello"},
		{`"a\tb\nc"`, TokenString, "a\tb\nc"},
		{`"quote \" inside"`, TokenString, `quote " inside`},
		{`"\x41"`, TokenString, "A"},
		{`'tagged'`, TokenTagString, "tagged"},
	}

	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.want {
			t.Errorf("Lex(%s) = %v, want %v(%q)", tt.input, tok, tt.typ, tt.want)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	tok := NewLexer(`"oops`).NextToken()
	if tok.Type != TokenError {
		t.Errorf("got %v, want error", tok)
	}
}

func TestLexerKeywords(t *testing.T) {
	toks := Tokenize("If ELSE function package new datablock switch$ switch case or default SPC TAB NL spc")
	want := []TokenType{
		TokenIf, TokenElse, TokenFunction, TokenPackage, TokenNew, TokenDatablock,
		TokenSwitchStr, TokenSwitch, TokenCase, TokenOr, TokenDefault,
		TokenSPC, TokenTAB, TokenNL, TokenIdent, TokenEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i := range want {
		if toks[i].Type != want[i] {
			t.Errorf("token[%d] = %v, want %v", i, toks[i], want[i])
		}
	}
}

func TestLexerComments(t *testing.T) {
	toks := Tokenize("a // line comment\n/* block\ncomment */ b")
	if len(toks) != 3 || toks[0].Literal != "a" || toks[1].Literal != "b" {
		t.Fatalf("got %v", toks)
	}
	if toks[1].Pos.Line != 3 {
		t.Errorf("b on line %d, want 3", toks[1].Pos.Line)
	}
}

func TestLexerPositions(t *testing.T) {
	toks := Tokenize("x\n  y")
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("x at %+v", toks[0].Pos)
	}
	if toks[1].Pos.Line != 2 || toks[1].Pos.Column != 3 {
		t.Errorf("y at %+v", toks[1].Pos)
	}
}

func TestStringToNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"42", 42},
		{"  -3.5", -3.5},
		{"12abc", 12},
		{"abc", 0},
		{"", 0},
		{"true", 1},
		{"FALSE", 0},
		{"1e2", 100},
		{"1e", 1},
		{".", 0},
	}
	for _, tt := range tests {
		if got := StringToNumber(tt.in); got != tt.want {
			t.Errorf("StringToNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
