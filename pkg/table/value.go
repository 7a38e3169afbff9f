package table

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind discriminates the scalar types a cell can hold.
type Kind int

const (
	KindNaN Kind = iota
	KindFloat
	KindInt
	KindString
	KindTime
)

// Value is a single cell. Missing data is an explicit NaN sentinel, never an
// absent key. The zero Value is the NaN sentinel.
type Value struct {
	kind Kind
	f    float64
	i    int64
	s    string
	t    time.Time
}

func NaN() Value {
	return Value{kind: KindNaN}
}

func Float(f float64) Value {
	if math.IsNaN(f) {
		return NaN()
	}
	return Value{kind: KindFloat, f: f}
}

func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

func String(s string) Value {
	return Value{kind: KindString, s: s}
}

func Time(t time.Time) Value {
	if t.IsZero() {
		return NaN()
	}
	return Value{kind: KindTime, t: t}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNaN() bool {
	return v.kind == KindNaN
}

// Float reports the cell as a float64. Int cells convert; everything else
// reports false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) Time() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// Equal compares two cells. NaN equals NaN, unlike float NaN semantics, so
// tables containing missing cells can be compared in tests.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNaN:
		return true
	case KindFloat:
		return v.f == other.f
	case KindInt:
		return v.i == other.i
	case KindString:
		return v.s == other.s
	case KindTime:
		return v.t.Equal(other.t)
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNaN:
		return "NaN"
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	case KindTime:
		return v.t.Format(time.RFC3339)
	}
	return fmt.Sprintf("unknown(%d)", int(v.kind))
}
