package metric

import (
	"strconv"
	"strings"

	"github.com/yndnr/guildsync/internal/core/domain"
)

// Label is one name/value pair of a label tuple.
type Label struct {
	Name  string
	Value string
}

// Tuple is an ordered assignment of values to a metric's label names.
type Tuple []Label

// L builds a tuple from alternating name, value arguments.
// A trailing name without a value is dropped.
func L(pairs ...string) Tuple {
	t := make(Tuple, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		t = append(t, Label{Name: pairs[i], Value: pairs[i+1]})
	}
	return t
}

// Values returns the label values in tuple order.
func (t Tuple) Values() []string {
	vals := make([]string, len(t))
	for i, l := range t {
		vals[i] = l.Value
	}
	return vals
}

// String renders the tuple as {a="x",b="y"}.
func (t Tuple) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Name)
		b.WriteString(`="`)
		b.WriteString(l.Value)
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// matches reports whether the tuple names exactly the declared labels, in order.
func (t Tuple) matches(names []string) bool {
	if len(t) != len(names) {
		return false
	}
	for i, l := range t {
		if l.Name != names[i] {
			return false
		}
	}
	return true
}

// key identifies the tuple's values within one metric.
func (t Tuple) key() string {
	var b strings.Builder
	for i, l := range t {
		if i > 0 {
			b.WriteByte(0xff)
		}
		b.WriteString(l.Value)
	}
	return b.String()
}

// ShardValue formats a shard id as a label value.
func ShardValue(id domain.ShardID) string {
	return strconv.Itoa(int(id))
}
