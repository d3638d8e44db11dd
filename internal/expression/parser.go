package expression

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/k0kubun/pp"
	"github.com/karupanerura/golox/internal/types"
	"go.uber.org/zap"
)

// DefaultMaxDepth bounds the nesting of groupings and prefix operators while
// parsing.
const DefaultMaxDepth = 512

var ErrTooDeeplyNested = errors.New("expression too deeply nested")

var parserDebugLog = false

func init() {
	if v, err := strconv.ParseBool(os.Getenv("GOLOX_EXPRESSION_DEBUG")); v && err == nil {
		parserDebugLog = true
	}
}

type ParseError struct {
	Token   Token
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("[line %d] at %s: %s", e.Token.Line, e.Token.Lexeme(), msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type ParseOption func(*parser)

func WithMaxDepth(depth int) ParseOption {
	return func(p *parser) {
		p.maxDepth = depth
	}
}

// WithStrict makes the parser reject any token left over after the expression.
func WithStrict(strict bool) ParseOption {
	return func(p *parser) {
		p.strict = strict
	}
}

func WithDebug() ParseOption {
	return func(p *parser) {
		p.debug = true
	}
}

func WithLogger(logger *zap.Logger) ParseOption {
	return func(p *parser) {
		p.logger = logger
	}
}

type parser struct {
	tokens   []Token
	pos      int
	depth    int
	maxDepth int
	strict   bool
	debug    bool
	logger   *zap.Logger
}

// ParseExpr scans and parses source. Scan diagnostics abort the parse and are
// returned as the combined error of the scan.
func ParseExpr(source string, opts ...ParseOption) (Expr, error) {
	result := Scan(source)
	if err := result.Err(); err != nil {
		return nil, err
	}
	return Parse(result.Tokens, opts...)
}

// Parse builds one expression tree from tokens. By default tokens after the
// expression are ignored; see WithStrict.
func Parse(tokens []Token, opts ...ParseOption) (Expr, error) {
	p := &parser{
		tokens:   tokens,
		maxDepth: DefaultMaxDepth,
		debug:    parserDebugLog,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
		if p.debug {
			if l, err := zap.NewDevelopment(); err == nil {
				p.logger = l
			}
		}
	}

	return p.parse()
}

func (p *parser) parse() (Expr, error) {
	if p.debug {
		p.logger.Debug("parse tokens", zap.String("tokens", pp.Sprint(p.tokens)))
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Kind != EOF {
		if p.strict {
			return nil, &ParseError{Token: tok, Message: "expected end of input"}
		}
		if p.debug {
			p.logger.Debug("not consumed token", zap.Stringer("token", tok))
		}
	}

	if p.debug {
		p.logger.Debug("parsed expression",
			zap.String("ast", PrintAST(expr)),
			zap.String("tree", pp.Sprint(expr)),
		)
	}
	return expr, nil
}

func (p *parser) peek() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}

	// tolerate token slices built without the trailing EOF
	line := 1
	if len(p.tokens) != 0 {
		line = p.tokens[len(p.tokens)-1].Line
	}
	return Token{Kind: EOF, Line: line}
}

func (p *parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) enter(tok Token) error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return &ParseError{Token: tok, Err: ErrTooDeeplyNested}
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

var (
	equalityOperators = map[TokenKind]BinaryOperator{
		BangEqual:  OpNotEqual,
		EqualEqual: OpEqual,
	}
	comparisonOperators = map[TokenKind]BinaryOperator{
		Greater:      OpGreater,
		GreaterEqual: OpGreaterEqual,
		Less:         OpLess,
		LessEqual:    OpLessEqual,
	}
	termOperators = map[TokenKind]BinaryOperator{
		Minus: OpSubtract,
		Plus:  OpAdd,
	}
	factorOperators = map[TokenKind]BinaryOperator{
		Slash: OpDivide,
		Star:  OpMultiply,
	}
	unaryOperators = map[TokenKind]UnaryOperator{
		Bang:  UnaryNot,
		Minus: UnaryNegate,
	}
)

func (p *parser) expression() (Expr, error) {
	return p.equality()
}

func (p *parser) equality() (Expr, error) {
	return p.binary(equalityOperators, p.comparison)
}

func (p *parser) comparison() (Expr, error) {
	return p.binary(comparisonOperators, p.term)
}

func (p *parser) term() (Expr, error) {
	return p.binary(termOperators, p.factor)
}

func (p *parser) factor() (Expr, error) {
	return p.binary(factorOperators, p.unary)
}

// binary parses one left-associative precedence level.
func (p *parser) binary(operators map[TokenKind]BinaryOperator, operand func() (Expr, error)) (Expr, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := operators[p.peek().Kind]
		if !ok {
			return left, nil
		}
		tok := p.advance()

		right, err := operand()
		if err != nil {
			return nil, err
		}
		if p.debug {
			p.logger.Debug("fold binary", zap.Stringer("operator", tok), zap.Int("line", tok.Line))
		}
		left = NewBinary(left, op, right)
	}
}

func (p *parser) unary() (Expr, error) {
	op, ok := unaryOperators[p.peek().Kind]
	if !ok {
		return p.primary()
	}

	tok := p.advance()
	if err := p.enter(tok); err != nil {
		return nil, err
	}
	defer p.leave()

	right, err := p.unary()
	if err != nil {
		return nil, err
	}
	return NewUnary(op, right), nil
}

func (p *parser) primary() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case False:
		p.advance()
		return NewLiteral(types.Bool(false)), nil
	case True:
		p.advance()
		return NewLiteral(types.Bool(true)), nil
	case Nil:
		p.advance()
		return NewLiteral(types.Nil), nil
	case Number:
		p.advance()
		return NewLiteral(types.Number(tok.Number)), nil
	case String:
		p.advance()
		return NewLiteral(types.String(tok.Text)), nil

	case LeftParen:
		p.advance()
		if err := p.enter(tok); err != nil {
			return nil, err
		}
		defer p.leave()

		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); closing.Kind != RightParen {
			return nil, &ParseError{Token: closing, Message: "expected ')' after expression"}
		}
		p.advance()
		return NewGrouping(expr), nil

	default:
		if tok.Kind.IsKeyword() {
			return nil, &ParseError{Token: tok, Message: "expected expression, got reserved word"}
		}
		return nil, &ParseError{Token: tok, Message: "expected expression"}
	}
}
