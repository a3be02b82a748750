// Package exposition renders metric lines in the Prometheus text format.
package exposition

import "strings"

// Label is a single name/value pair.
type Label struct {
	Name  string
	Value string
}

// LabelSet is an ordered list of labels with unique names. It is a value
// type: every modifying method returns a new set and leaves the receiver as is.
type LabelSet struct {
	labels []Label
}

// NewLabelSet builds a set from pairs, later duplicates replacing earlier ones.
func NewLabelSet(labels ...Label) LabelSet {
	var set LabelSet
	for _, l := range labels {
		set = set.Set(l.Name, l.Value)
	}
	return set
}

// Set returns a copy with name set to value. An existing label keeps its
// position; a new one is appended.
func (s LabelSet) Set(name, value string) LabelSet {
	out := make([]Label, len(s.labels), len(s.labels)+1)
	copy(out, s.labels)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return LabelSet{labels: out}
		}
	}
	return LabelSet{labels: append(out, Label{Name: name, Value: value})}
}

// With returns a copy with name=value placed first, dropping any existing
// label of the same name.
func (s LabelSet) With(name, value string) LabelSet {
	out := make([]Label, 0, len(s.labels)+1)
	out = append(out, Label{Name: name, Value: value})
	for _, l := range s.labels {
		if l.Name != name {
			out = append(out, l)
		}
	}
	return LabelSet{labels: out}
}

func (s LabelSet) Get(name string) (string, bool) {
	for _, l := range s.labels {
		if l.Name == name {
			return l.Value, true
		}
	}
	return "", false
}

func (s LabelSet) Len() int { return len(s.labels) }

// Labels returns a copy of the labels in order.
func (s LabelSet) Labels() []Label {
	return append([]Label(nil), s.labels...)
}

// String renders the set as name="value" pairs joined by commas, without braces.
func (s LabelSet) String() string {
	var b strings.Builder
	s.writeTo(&b)
	return b.String()
}

func (s LabelSet) writeTo(b *strings.Builder) {
	for i, l := range s.labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Name)
		b.WriteString(`="`)
		b.WriteString(labelValueEscaper.Replace(l.Value))
		b.WriteByte('"')
	}
}

var labelValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
