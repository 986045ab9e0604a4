package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the script lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger   // 42, 0x2A
	TokenFloat     // 3.14, .5, 1e3
	TokenString    // "hello"
	TokenTagString // 'hello'
	TokenIdent     // foo, Parent
	TokenLocalVar  // %foo, %a::b
	TokenGlobalVar // $foo, $pref::Audio::volume

	// Keywords
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenDo
	TokenBreak
	TokenContinue
	TokenReturn
	TokenFunction
	TokenPackage
	TokenNew
	TokenDatablock
	TokenSwitch
	TokenSwitchStr // switch$
	TokenCase
	TokenOr
	TokenDefault
	TokenTrue
	TokenFalse
	TokenSPC
	TokenTAB
	TokenNL

	// Operators
	TokenPlus       // +
	TokenMinus      // -
	TokenStar       // *
	TokenSlash      // /
	TokenPercent    // %
	TokenCaret      // ^
	TokenAmp        // &
	TokenBar        // |
	TokenTilde      // ~
	TokenBang       // !
	TokenLT         // <
	TokenGT         // >
	TokenLE         // <=
	TokenGE         // >=
	TokenEQ         // ==
	TokenNE         // !=
	TokenStrEQ      // $=
	TokenStrNE      // !$=
	TokenAndAnd     // &&
	TokenOrOr       // ||
	TokenShl        // <<
	TokenShr        // >>
	TokenAssign     // =
	TokenPlusEq     // +=
	TokenMinusEq    // -=
	TokenStarEq     // *=
	TokenSlashEq    // /=
	TokenPercentEq  // %=
	TokenAmpEq      // &=
	TokenBarEq      // |=
	TokenCaretEq    // ^=
	TokenShlEq      // <<=
	TokenShrEq      // >>=
	TokenPlusPlus   // ++
	TokenMinusMinus // --
	TokenAt         // @
	TokenQuestion   // ?
	TokenColon      // :
	TokenColonColon // ::

	// Delimiters
	TokenComma     // ,
	TokenSemicolon // ;
	TokenDot       // .
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenTagString:  "TAGSTRING",
	TokenIdent:      "IDENT",
	TokenLocalVar:   "LOCALVAR",
	TokenGlobalVar:  "GLOBALVAR",
	TokenIf:         "if",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenFor:        "for",
	TokenDo:         "do",
	TokenBreak:      "break",
	TokenContinue:   "continue",
	TokenReturn:     "return",
	TokenFunction:   "function",
	TokenPackage:    "package",
	TokenNew:        "new",
	TokenDatablock:  "datablock",
	TokenSwitch:     "switch",
	TokenSwitchStr:  "switch$",
	TokenCase:       "case",
	TokenOr:         "or",
	TokenDefault:    "default",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenSPC:        "SPC",
	TokenTAB:        "TAB",
	TokenNL:         "NL",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenCaret:      "^",
	TokenAmp:        "&",
	TokenBar:        "|",
	TokenTilde:      "~",
	TokenBang:       "!",
	TokenLT:         "<",
	TokenGT:         ">",
	TokenLE:         "<=",
	TokenGE:         ">=",
	TokenEQ:         "==",
	TokenNE:         "!=",
	TokenStrEQ:      "$=",
	TokenStrNE:      "!$=",
	TokenAndAnd:     "&&",
	TokenOrOr:       "||",
	TokenShl:        "<<",
	TokenShr:        ">>",
	TokenAssign:     "=",
	TokenPlusEq:     "+=",
	TokenMinusEq:    "-=",
	TokenStarEq:     "*=",
	TokenSlashEq:    "/=",
	TokenPercentEq:  "%=",
	TokenAmpEq:      "&=",
	TokenBarEq:      "|=",
	TokenCaretEq:    "^=",
	TokenShlEq:      "<<=",
	TokenShrEq:      ">>=",
	TokenPlusPlus:   "++",
	TokenMinusMinus: "--",
	TokenAt:         "@",
	TokenQuestion:   "?",
	TokenColon:      ":",
	TokenColonColon: "::",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenDot:        ".",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string // raw text, or the decoded value for strings
	Pos     Position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Keywords are case-insensitive in the console language, except the
// concatenation words which must be spelled in capitals.
var keywords = map[string]TokenType{
	"if":        TokenIf,
	"else":      TokenElse,
	"while":     TokenWhile,
	"for":       TokenFor,
	"do":        TokenDo,
	"break":     TokenBreak,
	"continue":  TokenContinue,
	"return":    TokenReturn,
	"function":  TokenFunction,
	"package":   TokenPackage,
	"new":       TokenNew,
	"datablock": TokenDatablock,
	"switch":    TokenSwitch,
	"case":      TokenCase,
	"or":        TokenOr,
	"default":   TokenDefault,
	"true":      TokenTrue,
	"false":     TokenFalse,
}

var concatWords = map[string]TokenType{
	"SPC": TokenSPC,
	"TAB": TokenTAB,
	"NL":  TokenNL,
}
