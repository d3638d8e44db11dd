package expression

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/multierr"
)

// ScanError describes a span of source the lexer rejected and skipped.
type ScanError struct {
	Line    int
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Message)
}

// ScanResult is the outcome of scanning a whole source. Tokens always ends
// with exactly one EOF token, even when Errors is not empty.
type ScanResult struct {
	Tokens []Token
	Errors []*ScanError
}

// Err combines every scan diagnostic into one error, or returns nil.
func (r *ScanResult) Err() error {
	return multierr.Combine(lo.Map(r.Errors, func(e *ScanError, _ int) error {
		return e
	})...)
}

// Scan tokenizes source. Invalid characters and unterminated strings are
// recorded and skipped; scanning always continues to the end of the input.
func Scan(source string) *ScanResult {
	lex := newLexer(source)
	result := &ScanResult{}
	for {
		tok, err := lex.consume()
		if errors.Is(err, io.EOF) {
			break
		}

		var scanErr *ScanError
		if errors.As(err, &scanErr) {
			result.Errors = append(result.Errors, scanErr)
			continue
		} else if err != nil {
			panic(fmt.Sprintf("should not reach here: %v", err))
		}

		result.Tokens = append(result.Tokens, tok)
	}

	result.Tokens = append(result.Tokens, Token{Kind: EOF, Line: lex.line})
	return result
}

type lexer struct {
	source string
	index  int
	line   int
}

func newLexer(source string) *lexer {
	return &lexer{
		source: source,
		index:  0,
		line:   1,
	}
}

func (l *lexer) peekByte(offset int) (byte, bool) {
	if i := l.index + offset; i < len(l.source) {
		return l.source[i], true
	}
	return 0, false
}

// consume returns the next token, a *ScanError for a rejected span, or io.EOF.
func (l *lexer) consume() (Token, error) {
	for l.index != len(l.source) {
		line := l.line
		switch c := l.source[l.index]; c {
		case '\n':
			l.line++
			l.index++
		case ' ', '\t', '\r':
			l.index++ // just skip white spaces

		case '(', ')', '{', '}', ',', '.', '-', '+', ';', '*':
			l.index++
			return Token{Kind: singleCharKinds[c], Line: line}, nil

		case '/':
			if next, ok := l.peekByte(1); ok && next == '/' {
				// comment runs up to the newline, which the main loop counts
				for l.index != len(l.source) && l.source[l.index] != '\n' {
					l.index++
				}
				continue
			}
			l.index++
			return Token{Kind: Slash, Line: line}, nil

		case '!', '=', '<', '>':
			kinds := twoCharKinds[c]
			if next, ok := l.peekByte(1); ok && next == '=' {
				l.index += 2
				return Token{Kind: kinds[1], Line: line}, nil
			}
			l.index++
			return Token{Kind: kinds[0], Line: line}, nil

		case '"':
			return l.consumeString()

		default:
			if isDigit(c) {
				return l.consumeNumber()
			}

			r, size := utf8.DecodeRuneInString(l.source[l.index:])
			switch {
			case unicode.IsSpace(r):
				l.index += size
			case isWordRune(r):
				return l.consumeWord(), nil
			default:
				l.index += size
				return Token{}, &ScanError{
					Line:    line,
					Message: fmt.Sprintf("invalid character: %q", r),
				}
			}
		}
	}

	return Token{}, io.EOF
}

var singleCharKinds = map[byte]TokenKind{
	'(': LeftParen,
	')': RightParen,
	'{': LeftBrace,
	'}': RightBrace,
	',': Comma,
	'.': Dot,
	'-': Minus,
	'+': Plus,
	';': Semicolon,
	'*': Star,
}

// one-character form first, "=" suffixed form second
var twoCharKinds = map[byte][2]TokenKind{
	'!': {Bang, BangEqual},
	'=': {Equal, EqualEqual},
	'<': {Less, LessEqual},
	'>': {Greater, GreaterEqual},
}

func (l *lexer) consumeString() (Token, error) {
	line := l.line
	l.index++ // opening quote

	begin := l.index
	for l.index != len(l.source) {
		switch l.source[l.index] {
		case '"':
			text := l.source[begin:l.index]
			l.index++
			return Token{Kind: String, Line: line, Text: text}, nil
		case '\n':
			l.line++
		}
		l.index++
	}

	return Token{}, &ScanError{Line: line, Message: "unterminated string"}
}

func (l *lexer) consumeNumber() (Token, error) {
	line := l.line
	begin := l.index
	for l.index != len(l.source) && isDigit(l.source[l.index]) {
		l.index++
	}

	// the fraction needs at least one digit right after the dot
	if dot, ok := l.peekByte(0); ok && dot == '.' {
		if next, ok := l.peekByte(1); ok && isDigit(next) {
			l.index++
			for l.index != len(l.source) && isDigit(l.source[l.index]) {
				l.index++
			}
		}
	}

	literal := l.source[begin:l.index]
	v, err := strconv.ParseFloat(literal, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Token{}, &ScanError{
			Line:    line,
			Message: fmt.Sprintf("failed to parse number from %q: %v", literal, err),
		}
	}
	return Token{Kind: Number, Line: line, Number: v}, nil
}

func (l *lexer) consumeWord() Token {
	begin := l.index
	for l.index != len(l.source) {
		r, size := utf8.DecodeRuneInString(l.source[l.index:])
		if !isWordRune(r) {
			break
		}
		l.index += size
	}

	word := l.source[begin:l.index]
	if kind, ok := keywords[word]; ok {
		return Token{Kind: kind, Line: l.line}
	}
	return Token{Kind: Identifier, Line: l.line, Text: word}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
