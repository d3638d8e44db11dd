package expression

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"
)

type TokenKind int

const (
	EOF TokenKind = iota

	// single-character tokens
	LeftParen
	RightParen
	LeftBrace
	RightBrace
	Comma
	Dot
	Minus
	Plus
	Semicolon
	Slash
	Star

	// one or two character tokens
	Bang
	BangEqual
	Equal
	EqualEqual
	Greater
	GreaterEqual
	Less
	LessEqual

	// literals
	Identifier
	String
	Number

	// keywords
	And
	Class
	Else
	False
	Fun
	For
	If
	Nil
	Or
	Print
	Return
	Super
	This
	True
	Var
	While
)

var keywords = map[string]TokenKind{
	"and":    And,
	"class":  Class,
	"else":   Else,
	"false":  False,
	"fun":    Fun,
	"for":    For,
	"if":     If,
	"nil":    Nil,
	"or":     Or,
	"print":  Print,
	"return": Return,
	"super":  Super,
	"this":   This,
	"true":   True,
	"var":    Var,
	"while":  While,
}

var keywordSpellings = lo.Invert(keywords)

var punctuationSpellings = map[TokenKind]string{
	LeftParen:    "(",
	RightParen:   ")",
	LeftBrace:    "{",
	RightBrace:   "}",
	Comma:        ",",
	Dot:          ".",
	Minus:        "-",
	Plus:         "+",
	Semicolon:    ";",
	Slash:        "/",
	Star:         "*",
	Bang:         "!",
	BangEqual:    "!=",
	Equal:        "=",
	EqualEqual:   "==",
	Greater:      ">",
	GreaterEqual: ">=",
	Less:         "<",
	LessEqual:    "<=",
}

func (k TokenKind) String() string {
	if s, ok := punctuationSpellings[k]; ok {
		return s
	}
	if s, ok := keywordSpellings[k]; ok {
		return s
	}

	switch k {
	case EOF:
		return "EOF"
	case Identifier:
		return "Identifier"
	case String:
		return "String"
	case Number:
		return "Number"
	default:
		return "TokenKind(" + strconv.Itoa(int(k)) + ")"
	}
}

func (k TokenKind) IsKeyword() bool {
	_, ok := keywordSpellings[k]
	return ok
}

// Token is a lexical unit. Number holds the decoded value of a Number token and
// Text the contents of a String or the name of an Identifier.
type Token struct {
	Kind   TokenKind
	Line   int
	Number float64
	Text   string
}

func (t Token) String() string {
	switch t.Kind {
	case Number:
		return fmt.Sprintf("Number(%s)", strconv.FormatFloat(t.Number, 'f', -1, 64))
	case String:
		return fmt.Sprintf("String(%q)", t.Text)
	case Identifier:
		return fmt.Sprintf("Identifier(%s)", t.Text)
	default:
		return t.Kind.String()
	}
}

// Lexeme returns the token as it would be spelled in source.
func (t Token) Lexeme() string {
	switch t.Kind {
	case Number:
		return strconv.FormatFloat(t.Number, 'f', -1, 64)
	case String:
		return strconv.Quote(t.Text)
	case Identifier:
		return t.Text
	case EOF:
		return "end of input"
	default:
		return t.Kind.String()
	}
}
