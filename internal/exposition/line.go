package exposition

import (
	"io"
	"math"
	"strconv"
	"strings"
)

// Value is a sample value that remembers whether it is an integer count or a
// float measurement, so integers render without a fraction.
type Value struct {
	f       float64
	i       int64
	integer bool
}

func Float(f float64) Value { return Value{f: f} }

func Int(i int64) Value { return Value{i: i, integer: true} }

// Float64 returns the value as a float regardless of kind.
func (v Value) Float64() float64 {
	if v.integer {
		return float64(v.i)
	}
	return v.f
}

func (v Value) IsInteger() bool { return v.integer }

// String renders integers as is and floats in their shortest round-trip
// form, always with a fractional part or exponent (50.0, 0.25, 1e+16).
func (v Value) String() string {
	if v.integer {
		return strconv.FormatInt(v.i, 10)
	}
	f := v.f
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	if abs := math.Abs(f); abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// Line is one sample: name{labels} value.
type Line struct {
	Name   string
	Labels LabelSet
	Value  Value
}

func (l Line) String() string {
	var b strings.Builder
	l.writeTo(&b)
	return b.String()
}

func (l Line) writeTo(b *strings.Builder) {
	b.WriteString(l.Name)
	b.WriteByte('{')
	l.Labels.writeTo(b)
	b.WriteString("} ")
	b.WriteString(l.Value.String())
}

// Render joins lines with newlines, terminating the last one as well.
func Render(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		l.writeTo(&b)
		b.WriteByte('\n')
	}
	return b.String()
}

// Encode writes Render(lines) to w.
func Encode(w io.Writer, lines []Line) error {
	_, err := io.WriteString(w, Render(lines))
	return err
}
