package table

import (
	"math"
	"strconv"

	"cloud.google.com/go/civil"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindFloat
	KindInt
	KindBool
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	}
	return "unknown"
}

// Value is a single cell. The zero Value is Missing, which is distinct from
// both 0 and "".
type Value struct {
	kind Kind
	s    string
	f    float64
	i    int64
	b    bool
	d    civil.Date
}

func Missing() Value {
	return Value{}
}

func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Float returns a float Value, NaN is folded into Missing.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{kind: KindFloat, f: f}
}

func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func Date(d civil.Date) Value {
	return Value{kind: KindDate, d: d}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// Str returns the underlying string of a String value.
func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Number returns the numeric value of an Int or Float value.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// Integer returns the underlying integer of an Int value.
func (v Value) Integer() (int64, bool) {
	return v.i, v.kind == KindInt
}

func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) CivilDate() (civil.Date, bool) {
	return v.d, v.kind == KindDate
}

// Text renders the value the way it is written into text columns, Missing
// renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.d.String()
	}
	return ""
}

func (v Value) String() string {
	if v.kind == KindMissing {
		return "<missing>"
	}
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return v.Text()
}

// Equal reports whether two values have the same kind and content.
// Two Missing values are Equal here, joins use their own key rules.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindFloat:
		return v.f == o.f
	case KindInt:
		return v.i == o.i
	case KindBool:
		return v.b == o.b
	case KindDate:
		return v.d == o.d
	}
	return true
}
