package expression

import (
	"errors"
	"fmt"

	"github.com/karupanerura/golox/internal/types"
)

// DefaultMaxEvaluationDepth bounds how deeply groupings and unary operators
// may nest in an evaluated tree. Binary operators do not count, so a flat
// chain like 1+1+...+1 is limited only by its length, the same way the
// parser measures nesting.
const DefaultMaxEvaluationDepth = DefaultMaxDepth

// Evaluator walks expression trees. It holds no state between calls, so one
// Evaluator may be shared by concurrent evaluations.
type Evaluator struct {
	// MaxDepth overrides DefaultMaxEvaluationDepth when positive; a negative
	// value disables the limit.
	MaxDepth int
}

// OperandError locates a failure at the nearest operator above it. Operators
// further up pass it through unchanged, so the message does not grow with the
// depth of the failing node.
type OperandError struct {
	Operator string
	// Side is "left" or "right" for binary operators and empty for unary ones.
	Side string
	Err  error
}

func (e *OperandError) Error() string {
	if e.Side == "" {
		return fmt.Sprintf("value of unary operator %q: %v", e.Operator, e.Err)
	}
	return fmt.Sprintf("%s of operator %q: %v", e.Side, e.Operator, e.Err)
}

func (e *OperandError) Unwrap() error {
	return e.Err
}

func operandError(err error, operator fmt.Stringer, side string) error {
	var located *OperandError
	if errors.As(err, &located) {
		return err
	}
	return &OperandError{Operator: operator.String(), Side: side, Err: err}
}

// Evaluate evaluates expr with a default Evaluator.
func Evaluate(expr Expr) (types.Value, error) {
	var e Evaluator
	return e.EvaluateValue(expr)
}

func (e *Evaluator) EvaluateValue(expr Expr) (types.Value, error) {
	return e.evaluate(expr, 0)
}

func (e *Evaluator) maxDepth() int {
	if e.MaxDepth == 0 {
		return DefaultMaxEvaluationDepth
	}
	return e.MaxDepth
}

func (e *Evaluator) evaluate(expr Expr, depth int) (types.Value, error) {
	if max := e.maxDepth(); max > 0 && depth > max {
		return types.Nil, &types.Error{
			Tag: types.RecursionErrorTag,
			Err: fmt.Errorf("%w: depth exceeds %d", ErrTooDeeplyNested, max),
		}
	}

	switch ex := expr.(type) {
	case *LiteralExpr:
		return ex.Value, nil

	case *GroupingExpr:
		return e.evaluate(ex.Expr, depth+1)

	case *UnaryExpr:
		right, err := e.evaluate(ex.Right, depth+1)
		if err != nil {
			return types.Nil, operandError(err, ex.Operator, "")
		}
		return calculateUnary(ex.Operator, right)

	case *BinaryExpr:
		left, err := e.evaluate(ex.Left, depth)
		if err != nil {
			return types.Nil, operandError(err, ex.Operator, "left")
		}
		right, err := e.evaluate(ex.Right, depth)
		if err != nil {
			return types.Nil, operandError(err, ex.Operator, "right")
		}
		return calculateBinary(ex.Operator, left, right)

	default:
		return types.Nil, &types.Error{
			Tag: types.TypeErrorTag,
			Err: fmt.Errorf("unknown expression node: %T", expr),
		}
	}
}
