package console

import (
	"strconv"

	"github.com/GarageGames/Torque3D-sub044/compiler"
)

// ---------------------------------------------------------------------------
// Value: tagged console value with on-demand coercion
// ---------------------------------------------------------------------------

// Kind tags which representation of a Value is authoritative.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
)

// maxNumericString is the length at and beyond which strings are not
// parsed as numbers and read as zero.
const maxNumericString = 256

// Value holds exactly one of a string, an integer or a float. The other
// forms are derived from it when read.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps f.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// Kind reports the authoritative representation.
func (v Value) Kind() Kind { return v.kind }

// String renders the value as console text.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return compiler.FormatFloat(v.f)
	}
	return v.s
}

// Float coerces the value to a float.
func (v Value) Float() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	}
	return stringToFloat(v.s)
}

// Int coerces the value to an integer, truncating floats toward zero.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	}
	return int64(stringToFloat(v.s))
}

// Bool reports whether the value is numerically non-zero.
func (v Value) Bool() bool {
	return v.Float() != 0
}

func stringToFloat(s string) float64 {
	if len(s) >= maxNumericString {
		return 0
	}
	return compiler.StringToNumber(s)
}

// boolString renders a bool the way console callbacks return it.
func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
