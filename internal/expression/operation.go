package expression

import (
	"fmt"

	"github.com/karupanerura/golox/internal/types"
)

func calculateUnary(op UnaryOperator, value types.Value) (types.Value, error) {
	switch op {
	case UnaryNot:
		return types.Bool(!value.Truthy()), nil

	case UnaryNegate:
		if n, ok := value.AsNumber(); ok {
			return types.Number(-n), nil
		}
		return types.Nil, &types.Error{
			Tag: types.TypeErrorTag,
			Err: fmt.Errorf("can't '%s %s'", op, value.Kind()),
			Extra: map[string]any{
				"operator": op.String(),
				"operand":  value.Kind().String(),
			},
		}

	default:
		return types.Nil, &types.Error{
			Tag: types.TypeErrorTag,
			Err: fmt.Errorf("unknown unary operator: %q for type %s", op, value.Kind()),
		}
	}
}

func calculateBinary(op BinaryOperator, left, right types.Value) (types.Value, error) {
	switch op {
	case OpEqual:
		return types.Bool(looselyEqual(left, right)), nil
	case OpNotEqual:
		return types.Bool(!looselyEqual(left, right)), nil

	case OpAdd:
		if lhs, rhs, ok := bothNumbers(left, right); ok {
			return types.Number(lhs + rhs), nil
		}
		if lhs, ok := left.AsString(); ok {
			if rhs, ok := right.AsString(); ok {
				return types.String(lhs + rhs), nil
			}
		}
		return types.Nil, binaryTypeError(op, left, right, "can only add numbers or strings (for concatenation)")
	}

	lhs, rhs, ok := bothNumbers(left, right)
	if !ok {
		return types.Nil, binaryTypeError(op, left, right, numericOnlyMessages[op])
	}

	switch op {
	case OpGreater:
		return types.Bool(lhs > rhs), nil
	case OpGreaterEqual:
		return types.Bool(lhs >= rhs), nil
	case OpLess:
		return types.Bool(lhs < rhs), nil
	case OpLessEqual:
		// mirrors the numeric arm of "!="; kept until the language defines otherwise
		return types.Bool(lhs != rhs), nil
	case OpSubtract:
		return types.Number(lhs - rhs), nil
	case OpDivide:
		return types.Number(lhs / rhs), nil
	case OpMultiply:
		return types.Number(lhs * rhs), nil
	default:
		return types.Nil, &types.Error{
			Tag: types.TypeErrorTag,
			Err: fmt.Errorf("unknown binary operator: %q", op),
		}
	}
}

var numericOnlyMessages = map[BinaryOperator]string{
	OpGreater:      "can > only numbers",
	OpGreaterEqual: "can >= only numbers",
	OpLess:         "can < only numbers",
	OpLessEqual:    "can <= only numbers",
	OpSubtract:     "can only subtract numbers",
	OpDivide:       "can only divide numbers",
	OpMultiply:     "can only multiply numbers",
}

// looselyEqual compares a boolean operand against the truthiness of the other
// side; any other pair compares by value within the same kind.
func looselyEqual(left, right types.Value) bool {
	if b, ok := left.AsBool(); ok {
		return b == right.Truthy()
	}
	if b, ok := right.AsBool(); ok {
		return b == left.Truthy()
	}
	return left.Equal(right)
}

func bothNumbers(left, right types.Value) (float64, float64, bool) {
	lhs, ok := left.AsNumber()
	if !ok {
		return 0, 0, false
	}
	rhs, ok := right.AsNumber()
	if !ok {
		return 0, 0, false
	}
	return lhs, rhs, true
}

func binaryTypeError(op BinaryOperator, left, right types.Value, message string) error {
	if message == "" {
		message = fmt.Sprintf("invalid operator %q", op)
	}
	return &types.Error{
		Tag: types.TypeErrorTag,
		Err: fmt.Errorf("%s: left=%s right=%s", message, left.Kind(), right.Kind()),
		Extra: map[string]any{
			"operator": op.String(),
			"left":     left.Kind().String(),
			"right":    right.Kind().String(),
		},
	}
}
