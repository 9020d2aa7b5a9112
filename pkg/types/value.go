// Package types defines the runtime values produced by expression evaluation.
// The language has exactly two value variants: numbers (float64) and booleans.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueType represents the variant of a Value.
type ValueType int

const (
	TypeNumber ValueType = iota // float64
	TypeBool                    // bool
)

// String returns the variant name used in type mismatch messages.
func (t ValueType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a tagged union over {Number, Boolean}. The zero Value is the
// number 0.
type Value struct {
	typ     ValueType
	boolVal bool
	numVal  float64
}

// NewNumber creates a number value.
func NewNumber(v float64) Value {
	return Value{typ: TypeNumber, numVal: v}
}

// NewBool creates a boolean value.
func NewBool(v bool) Value {
	return Value{typ: TypeBool, boolVal: v}
}

// Type returns the value's variant.
func (v Value) Type() ValueType {
	return v.typ
}

// IsNumber reports whether the value is a number.
func (v Value) IsNumber() bool {
	return v.typ == TypeNumber
}

// IsBool reports whether the value is a boolean.
func (v Value) IsBool() bool {
	return v.typ == TypeBool
}

// AsNumber returns the number value. Panics if not a number.
func (v Value) AsNumber() float64 {
	if v.typ != TypeNumber {
		panic(fmt.Sprintf("AsNumber called on %s value", v.typ))
	}
	return v.numVal
}

// AsBool returns the boolean value. Panics if not a boolean.
func (v Value) AsBool() bool {
	if v.typ != TypeBool {
		panic(fmt.Sprintf("AsBool called on %s value", v.typ))
	}
	return v.boolVal
}

// Equal compares by variant and by value. A number never equals a boolean,
// and NaN is not equal to itself.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeNumber:
		return v.numVal == other.numVal
	case TypeBool:
		return v.boolVal == other.boolVal
	}
	return false
}

// String returns the canonical textual form used for program output.
func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case TypeNumber:
		return FormatNumber(v.numVal)
	}
	return "<unknown>"
}

// FormatNumber renders a float64 in canonical form: integral values without
// a fractional part, everything else in shortest round-trip notation.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == 0 {
		// -0 prints as 0
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON encodes numbers as JSON numbers and booleans as JSON booleans.
// Non-finite numbers have no JSON form and are encoded as their canonical
// string ("inf", "-inf", "nan").
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case TypeBool:
		return json.Marshal(v.boolVal)
	case TypeNumber:
		if math.IsNaN(v.numVal) || math.IsInf(v.numVal, 0) {
			return json.Marshal(FormatNumber(v.numVal))
		}
		return json.Marshal(v.numVal)
	}
	return nil, fmt.Errorf("cannot marshal unknown type %d", v.typ)
}

// UnmarshalJSON accepts a JSON number, a JSON boolean, or one of the
// non-finite number strings produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := ValueFromJSON(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// ValueFromJSON converts a Go value decoded from JSON (or YAML) into a Value.
func ValueFromJSON(v interface{}) (Value, error) {
	switch val := v.(type) {
	case bool:
		return NewBool(val), nil
	case float64:
		return NewNumber(val), nil
	case float32:
		return NewNumber(float64(val)), nil
	case int:
		return NewNumber(float64(val)), nil
	case int64:
		return NewNumber(float64(val)), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return NewNumber(f), nil
	case string:
		switch val {
		case "inf", "+inf":
			return NewNumber(math.Inf(1)), nil
		case "-inf":
			return NewNumber(math.Inf(-1)), nil
		case "nan":
			return NewNumber(math.NaN()), nil
		}
		return Value{}, fmt.Errorf("unsupported value %q: expected a number or a boolean", val)
	case nil:
		return Value{}, fmt.Errorf("unsupported value null: expected a number or a boolean")
	default:
		return Value{}, fmt.Errorf("unsupported value of type %T: expected a number or a boolean", v)
	}
}

// SortedNames returns the names bound in vars in sorted order.
func SortedNames(vars map[string]Value) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatBindings renders name/value pairs sorted by name as "{a: 1, b: true}".
func FormatBindings(vars map[string]Value) string {
	names := SortedNames(vars)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, vars[name].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
