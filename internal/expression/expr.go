package expression

import (
	"strconv"

	"github.com/karupanerura/golox/internal/types"
)

// Expr is a node of an expression tree. The set of implementations is closed:
// *LiteralExpr, *GroupingExpr, *UnaryExpr and *BinaryExpr.
type Expr interface {
	exprNode()
}

type LiteralExpr struct {
	Value types.Value
}

type GroupingExpr struct {
	Expr Expr
}

type UnaryExpr struct {
	Operator UnaryOperator
	Right    Expr
}

type BinaryExpr struct {
	Left     Expr
	Operator BinaryOperator
	Right    Expr
}

func (*LiteralExpr) exprNode()  {}
func (*GroupingExpr) exprNode() {}
func (*UnaryExpr) exprNode()    {}
func (*BinaryExpr) exprNode()   {}

type UnaryOperator int

const (
	UnaryNot UnaryOperator = iota
	UnaryNegate
)

func (op UnaryOperator) String() string {
	switch op {
	case UnaryNot:
		return "!"
	case UnaryNegate:
		return "-"
	default:
		return "UnaryOperator(" + strconv.Itoa(int(op)) + ")"
	}
}

type BinaryOperator int

const (
	OpGreater BinaryOperator = iota
	OpGreaterEqual
	OpLess
	OpLessEqual
	OpEqual
	OpNotEqual
	OpSubtract
	OpAdd
	OpDivide
	OpMultiply
)

var binaryOperatorSpellings = [...]string{
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpSubtract:     "-",
	OpAdd:          "+",
	OpDivide:       "/",
	OpMultiply:     "*",
}

func (op BinaryOperator) String() string {
	if 0 <= op && int(op) < len(binaryOperatorSpellings) {
		return binaryOperatorSpellings[op]
	}
	return "BinaryOperator(" + strconv.Itoa(int(op)) + ")"
}

func NewLiteral(v types.Value) *LiteralExpr {
	return &LiteralExpr{Value: v}
}

func NewGrouping(expr Expr) *GroupingExpr {
	return &GroupingExpr{Expr: expr}
}

func NewUnary(op UnaryOperator, right Expr) *UnaryExpr {
	return &UnaryExpr{Operator: op, Right: right}
}

func NewBinary(left Expr, op BinaryOperator, right Expr) *BinaryExpr {
	return &BinaryExpr{Left: left, Operator: op, Right: right}
}
