package compiler

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for console script source
// ---------------------------------------------------------------------------

// Lexer tokenizes console script source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()
	tok := func(t TokenType, lit string, n int) Token {
		for i := 0; i < n; i++ {
			l.readChar()
		}
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch ch := l.ch; {
	case ch == 0:
		return Token{Type: TokenEOF, Pos: pos}
	case ch == '"':
		return l.readString(pos, '"', TokenString)
	case ch == '\'':
		return l.readString(pos, '\'', TokenTagString)
	case isDigit(ch) || (ch == '.' && isDigit(l.peekChar())):
		return l.readNumber(pos)
	case ch == '%' && isIdentStart(l.peekChar()):
		return l.readVariable(pos, TokenLocalVar)
	case ch == '$' && isIdentStart(l.peekChar()):
		return l.readVariable(pos, TokenGlobalVar)
	case isIdentStart(ch):
		return l.readIdent(pos)
	}

	two := l.lookahead(2)
	three := l.lookahead(3)
	switch three {
	case "!$=":
		return tok(TokenStrNE, three, 3)
	case "<<=":
		return tok(TokenShlEq, three, 3)
	case ">>=":
		return tok(TokenShrEq, three, 3)
	}
	if t, ok := twoCharOps[two]; ok {
		return tok(t, two, 2)
	}
	if t, ok := oneCharOps[l.ch]; ok {
		return tok(t, string(l.ch), 1)
	}

	bad := string(l.ch)
	l.readChar()
	return Token{Type: TokenError, Literal: "unexpected character " + strconv.Quote(bad), Pos: pos}
}

var twoCharOps = map[string]TokenType{
	"<=": TokenLE,
	">=": TokenGE,
	"==": TokenEQ,
	"!=": TokenNE,
	"$=": TokenStrEQ,
	"&&": TokenAndAnd,
	"||": TokenOrOr,
	"<<": TokenShl,
	">>": TokenShr,
	"+=": TokenPlusEq,
	"-=": TokenMinusEq,
	"*=": TokenStarEq,
	"/=": TokenSlashEq,
	"%=": TokenPercentEq,
	"&=": TokenAmpEq,
	"|=": TokenBarEq,
	"^=": TokenCaretEq,
	"++": TokenPlusPlus,
	"--": TokenMinusMinus,
	"::": TokenColonColon,
}

var oneCharOps = map[rune]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
	'^': TokenCaret,
	'&': TokenAmp,
	'|': TokenBar,
	'~': TokenTilde,
	'!': TokenBang,
	'<': TokenLT,
	'>': TokenGT,
	'=': TokenAssign,
	'@': TokenAt,
	'?': TokenQuestion,
	':': TokenColon,
	',': TokenComma,
	';': TokenSemicolon,
	'.': TokenDot,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'{': TokenLBrace,
	'}': TokenRBrace,
}

func (l *Lexer) lookahead(n int) string {
	end := l.pos + n
	if end > len(l.input) {
		return ""
	}
	return l.input[l.pos:end]
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdent(pos Position) Token {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.pos]

	if word == "switch" && l.ch == '$' {
		l.readChar()
		return Token{Type: TokenSwitchStr, Literal: "switch$", Pos: pos}
	}
	if t, ok := concatWords[word]; ok {
		return Token{Type: t, Literal: word, Pos: pos}
	}
	if t, ok := keywords[strings.ToLower(word)]; ok {
		return Token{Type: t, Literal: word, Pos: pos}
	}
	return Token{Type: TokenIdent, Literal: word, Pos: pos}
}

// readVariable reads %name or $name including any ::-separated segments.
func (l *Lexer) readVariable(pos Position, t TokenType) Token {
	start := l.pos
	l.readChar() // sigil
	for {
		for isIdentChar(l.ch) {
			l.readChar()
		}
		if l.ch == ':' && l.peekChar() == ':' && l.readPos+1 < len(l.input) && isIdentChar(rune(l.input[l.readPos+1])) {
			l.readChar()
			l.readChar()
			continue
		}
		break
	}
	return Token{Type: t, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
	}

	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	if isFloat {
		return Token{Type: TokenFloat, Literal: l.input[start:l.pos], Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// readString reads a quoted string and decodes its escapes.
func (l *Lexer) readString(pos Position, quote rune, t TokenType) Token {
	l.readChar() // opening quote
	var b strings.Builder
	for {
		switch l.ch {
		case 0, '\n':
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		case quote:
			l.readChar()
			return Token{Type: t, Literal: b.String(), Pos: pos}
		case '\\':
			l.readChar()
			l.readEscape(&b)
		default:
			b.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readEscape(b *strings.Builder) {
	switch l.ch {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'x':
		if l.readPos+2 <= len(l.input) {
			if v, err := strconv.ParseUint(l.input[l.readPos:l.readPos+2], 16, 8); err == nil {
				l.readChar()
				l.readChar()
				b.WriteByte(byte(v))
				break
			}
		}
		b.WriteByte('x')
	case 0:
		return
	default:
		b.WriteRune(l.ch)
	}
	l.readChar()
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentChar(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}

// Tokenize returns every token in input, ending with EOF or the first error.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}
