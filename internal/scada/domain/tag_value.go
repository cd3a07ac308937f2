package scada

import "strconv"

// TagValueKind discriminates the runtime type of a tag reading.
type TagValueKind int

const (
	TagValueNone TagValueKind = iota
	TagValueNumeric
	TagValueString
	TagValueBool
)

// TagValue is a reading reported for a tag: numeric, string or boolean.
// The zero value means "no reading yet".
type TagValue struct {
	kind TagValueKind
	num  float64
	str  string
	b    bool
}

// NumericValue builds a numeric reading.
func NumericValue(v float64) TagValue {
	return TagValue{kind: TagValueNumeric, num: v}
}

// StringValue builds a string reading.
func StringValue(v string) TagValue {
	return TagValue{kind: TagValueString, str: v}
}

// BoolValue builds a boolean reading.
func BoolValue(v bool) TagValue {
	return TagValue{kind: TagValueBool, b: v}
}

// Kind returns the value discriminator.
func (v TagValue) Kind() TagValueKind { return v.kind }

// IsZero returns true for the "no reading" zero value.
func (v TagValue) IsZero() bool { return v.kind == TagValueNone }

// Numeric returns the numeric payload and true when the value is numeric.
func (v TagValue) Numeric() (float64, bool) {
	return v.num, v.kind == TagValueNumeric
}

// Text returns the string payload and true when the value is a string.
func (v TagValue) Text() (string, bool) {
	return v.str, v.kind == TagValueString
}

// Bool returns the boolean payload and true when the value is boolean.
func (v TagValue) Bool() (bool, bool) {
	return v.b, v.kind == TagValueBool
}

// Raw returns the untyped payload for serialization, or nil for the zero
// value.
func (v TagValue) Raw() any {
	switch v.kind {
	case TagValueNumeric:
		return v.num
	case TagValueString:
		return v.str
	case TagValueBool:
		return v.b
	default:
		return nil
	}
}

// String renders the value for projections and exports.
func (v TagValue) String() string {
	switch v.kind {
	case TagValueNumeric:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case TagValueString:
		return v.str
	case TagValueBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}
