// Package params stores the phone's tunable parameters (volumes, ring
// timing) in SQLite so they survive restarts.
package params

import (
	"math"
	"strconv"
)

// Kind is the declared type of a parameter.
type Kind string

const (
	KindString Kind = "string"
	KindFloat  Kind = "float"
)

// Value is a tagged parameter value: either a string or a float.
type Value struct {
	kind Kind
	str  string
	num  float64
}

// StringValue wraps s.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// FloatValue wraps f.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, num: f}
}

// Kind returns the value's tag.
func (v Value) Kind() Kind {
	return v.kind
}

// Float returns the float payload. ok is false for string values.
func (v Value) Float() (f float64, ok bool) {
	return v.num, v.kind == KindFloat
}

// Str returns the string payload. ok is false for float values.
func (v Value) Str() (s string, ok bool) {
	return v.str, v.kind == KindString
}

// String formats the value for display and storage.
func (v Value) String() string {
	if v.kind == KindFloat {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

func parseValue(kind Kind, raw string) (Value, error) {
	switch kind {
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, err
		}
		if !finite(f) {
			return Value{}, ErrNotFinite
		}
		return FloatValue(f), nil
	default:
		return StringValue(raw), nil
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
