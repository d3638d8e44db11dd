package types

import (
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

type ValueKind int

const (
	NilKind ValueKind = iota
	BoolKind
	NumberKind
	StringKind
)

func (k ValueKind) String() string {
	switch k {
	case NilKind:
		return "nil"
	case BoolKind:
		return "bool"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	default:
		return "ValueKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable runtime value. The zero Value is nil.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
}

var Nil = Value{}

func Bool(v bool) Value {
	return Value{kind: BoolKind, b: v}
}

func Number(v float64) Value {
	return Value{kind: NumberKind, n: v}
}

func String(v string) Value {
	return Value{kind: StringKind, s: v}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == BoolKind
}

func (v Value) AsNumber() (float64, bool) {
	return v.n, v.kind == NumberKind
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == StringKind
}

// Truthy reports the truthiness of v: nil is false, booleans are themselves,
// and every number and string is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case NilKind:
		return false
	case BoolKind:
		return v.b
	default:
		return true
	}
}

// Equal compares two values of the same kind. Numbers follow IEEE-754, so NaN
// is never equal to anything. Values of different kinds are never equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case NilKind:
		return true
	case BoolKind:
		return v.b == other.b
	case NumberKind:
		return v.n == other.n
	case StringKind:
		return v.s == other.s
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case NilKind:
		return "nil"
	case BoolKind:
		return strconv.FormatBool(v.b)
	case NumberKind:
		return FormatNumber(v.n)
	case StringKind:
		return v.s
	default:
		return v.kind.String()
	}
}

// GoValue converts v into nil, bool, float64 or string.
func (v Value) GoValue() any {
	switch v.kind {
	case BoolKind:
		return v.b
	case NumberKind:
		return v.n
	case StringKind:
		return v.s
	default:
		return nil
	}
}

// MarshalJSON encodes non-finite numbers as their display strings since JSON
// has no representation for them.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == NumberKind && (math.IsNaN(v.n) || math.IsInf(v.n, 0)) {
		return json.Marshal(FormatNumber(v.n))
	}
	return json.Marshal(v.GoValue())
}

// FormatNumber renders the shortest decimal form of f without exponent: 3 for
// 3.0, 45.67 for 45.67, and NaN / inf / -inf for the non-finite values.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
