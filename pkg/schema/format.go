package schema

import (
	"fmt"
	"strings"
)

// Format renders t in the BARE schema language, e.g.
// "struct { a: u32, b: optional<list<str>> }". ParseType accepts the output.
func Format(t Type) string {
	b := &strings.Builder{}
	format(b, t)
	return b.String()
}

func format(b *strings.Builder, t Type) {
	switch t := t.(type) {
	case Primitive:
		b.WriteString(t.Kind.String())
	case FixedData:
		fmt.Fprintf(b, "data[%d]", t.Len)
	case Enum:
		b.WriteString("enum { ")
		for i, m := range t.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s = %d", m.Name, m.Value)
		}
		b.WriteString(" }")
	case Optional:
		b.WriteString("optional<")
		format(b, t.Elem)
		b.WriteString(">")
	case List:
		b.WriteString("list<")
		format(b, t.Elem)
		b.WriteString(">")
	case FixedList:
		b.WriteString("list<")
		format(b, t.Elem)
		fmt.Fprintf(b, ">[%d]", t.Len)
	case Map:
		b.WriteString("map<")
		format(b, t.Key)
		b.WriteString("><")
		format(b, t.Value)
		b.WriteString(">")
	case Union:
		b.WriteString("union { ")
		for i, c := range t.Cases {
			if i > 0 {
				b.WriteString(" | ")
			}
			format(b, c.Type)
			fmt.Fprintf(b, " = %d", c.Tag)
		}
		b.WriteString(" }")
	case Struct:
		b.WriteString("struct { ")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			format(b, f.Type)
		}
		b.WriteString(" }")
	case Ref:
		b.WriteString(t.Name)
	case nil:
		b.WriteString("<nil>")
	}
}
