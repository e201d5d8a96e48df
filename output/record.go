package output

import (
	"slices"
	"strings"

	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
)

// Segment is a run of text. Raw segments are written without escaping.
type Segment struct {
	Text string
	Raw  bool
}

type Attr struct {
	Name  xml.QName
	Value string
}

// Record is one finished output node as seen by a sink. A sink must not keep
// the pointer it receives: the pipeline resets the record once the sink
// returns.
type Record struct {
	Kind       Kind
	Name       xml.QName
	Value      []Segment
	Attrs      []Attr
	Namespaces []scope.Binding
	Depth      int
	// Empty is set on element records closed before any content.
	Empty bool
	// Preserve is set on text records under xml:space="preserve".
	Preserve bool
}

func (r *Record) String() string {
	if len(r.Value) == 1 {
		return r.Value[0].Text
	}
	var str strings.Builder
	for _, s := range r.Value {
		str.WriteString(s.Text)
	}
	return str.String()
}

func (r *Record) Whitespace() bool {
	for _, s := range r.Value {
		if strings.TrimSpace(s.Text) != "" {
			return false
		}
	}
	return true
}

func (r *Record) append(str string, raw bool) {
	if str == "" {
		return
	}
	if n := len(r.Value); n > 0 && r.Value[n-1].Raw == raw {
		r.Value[n-1].Text += str
		return
	}
	r.Value = append(r.Value, Segment{Text: str, Raw: raw})
}

func (r *Record) setAttr(a Attr) {
	ix := slices.IndexFunc(r.Attrs, func(other Attr) bool {
		if a.Name.Uri != "" || other.Name.Uri != "" {
			return a.Name.Equal(other.Name)
		}
		return a.Name.Name == other.Name.Name
	})
	if ix < 0 {
		r.Attrs = append(r.Attrs, a)
		return
	}
	r.Attrs[ix] = a
}

func (r *Record) Clone() Record {
	c := *r
	c.Value = slices.Clone(r.Value)
	c.Attrs = slices.Clone(r.Attrs)
	c.Namespaces = slices.Clone(r.Namespaces)
	return c
}

func (r *Record) reset() {
	r.Kind = KindNone
	r.Name = xml.QName{}
	r.Value = r.Value[:0]
	r.Attrs = r.Attrs[:0]
	r.Namespaces = r.Namespaces[:0]
	r.Depth = 0
	r.Empty = false
	r.Preserve = false
}
