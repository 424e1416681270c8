package store

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jacentio/tessera/schema"
)

// Kind is the physical kind of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindText
	KindFloat
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "bigint"
	case KindText:
		return "text"
	case KindFloat:
		return "double"
	case KindTime:
		return "timestamp"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// KindOf returns the value kind a field of type t is bound as.
func KindOf(t schema.FieldType) Kind {
	switch t {
	case schema.Bigint:
		return KindInt
	case schema.Timestamp:
		return KindTime
	case schema.Double:
		return KindFloat
	case schema.Text, schema.Datetime:
		return KindText
	}
	return KindNull
}

// Value is a typed statement parameter or column value. The zero Value is
// null. Timestamps are kept with millisecond precision.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Int returns a bigint value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Float returns a double value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Time returns a timestamp value truncated to milliseconds.
func Time(t time.Time) Value { return Value{kind: KindTime, i: t.UnixMilli()} }

// Millis returns a timestamp value from milliseconds since the Unix epoch.
func Millis(ms int64) Value { return Value{kind: KindTime, i: ms} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the bigint payload, or the milliseconds of a timestamp.
func (v Value) AsInt() int64 { return v.i }

// AsText returns the text payload.
func (v Value) AsText() string { return v.s }

// AsFloat returns the double payload.
func (v Value) AsFloat() float64 { return v.f }

// AsTime returns the timestamp payload in UTC.
func (v Value) AsTime() time.Time {
	if v.kind != KindTime {
		return time.Time{}
	}
	return time.UnixMilli(v.i).UTC()
}

// Equal reports whether v and o have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt, KindTime:
		return v.i == o.i
	case KindText:
		return v.s == o.s
	case KindFloat:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	}
	return true
}

// Compare orders values of the same kind by payload. Values of different
// kinds order by kind, with null first. Doubles use the total order of
// their bit patterns, as Cassandra clustering does: -0 sorts before +0 and
// NaN after +Inf.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		return cmp.Compare(v.kind, o.kind)
	}
	switch v.kind {
	case KindInt, KindTime:
		return cmp.Compare(v.i, o.i)
	case KindText:
		return cmp.Compare(v.s, o.s)
	case KindFloat:
		return cmp.Compare(floatKey(v.f), floatKey(o.f))
	}
	return 0
}

// floatKey maps f to an unsigned integer with the same order.
func floatKey(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | 1<<63
}

// Native returns the Go value a driver binds: int64, string, float64,
// time.Time or nil.
func (v Value) Native() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindText:
		return v.s
	case KindFloat:
		return v.f
	case KindTime:
		return v.AsTime()
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindText:
		return strconv.Quote(v.s)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindTime:
		return v.AsTime().Format(time.RFC3339Nano)
	}
	return "null"
}

// FromNative converts a driver value into a Value.
func FromNative(x any) (Value, error) {
	switch n := x.(type) {
	case nil:
		return Value{}, nil
	case int64:
		return Int(n), nil
	case int:
		return Int(int64(n)), nil
	case int32:
		return Int(int64(n)), nil
	case string:
		return Text(n), nil
	case float64:
		return Float(n), nil
	case float32:
		return Float(float64(n)), nil
	case time.Time:
		if n.IsZero() {
			return Value{}, nil
		}
		return Time(n), nil
	case Value:
		return n, nil
	}
	return Value{}, fmt.Errorf("%w: unsupported driver value %T", ErrTypeMismatch, x)
}

// FieldValue pairs a field name with the value to write.
type FieldValue struct {
	Field string
	Value Value
}

// Set is shorthand for a FieldValue.
func Set(field string, v Value) FieldValue {
	return FieldValue{Field: field, Value: v}
}

// Record is a raw row as returned by a Session, keyed by column name.
type Record map[string]Value
