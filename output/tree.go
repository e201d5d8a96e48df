package output

import (
	"github.com/midbel/xform/xml"
)

// TreeSink builds an in-memory document from the records it receives.
// Output escaping is lost: raw text becomes ordinary text.
type TreeSink struct {
	doc   *xml.Document
	stack []*xml.Element
}

func NewTreeSink() *TreeSink {
	return &TreeSink{
		doc: xml.EmptyDocument(),
	}
}

func (t *TreeSink) Document() *xml.Document {
	return t.doc
}

func (t *TreeSink) Write(r *Record) error {
	switch r.Kind {
	case KindElement:
		el := xml.NewElement(r.Name)
		for _, b := range r.Namespaces {
			name := xml.ExpandedName(b.Prefix, "xmlns", xml.NamespaceXMLNS)
			if b.Prefix == "" {
				name = xml.ExpandedName("xmlns", "", xml.NamespaceXMLNS)
			}
			el.SetAttribute(xml.NewAttribute(name, b.Uri))
		}
		for _, a := range r.Attrs {
			el.SetAttribute(xml.NewAttribute(a.Name, a.Value))
		}
		t.append(el)
		if !r.Empty {
			t.stack = append(t.stack, el)
		}
	case KindEndElement:
		if n := len(t.stack); n > 0 {
			t.stack = t.stack[:n-1]
		}
	case KindText:
		t.text(r.String())
	case KindComment:
		t.append(xml.NewComment(r.String()))
	case KindInstruction:
		t.append(xml.NewInstruction(r.Name, r.String()))
	}
	return nil
}

func (t *TreeSink) Close() error {
	return nil
}

func (t *TreeSink) text(str string) {
	nodes := t.doc.Nodes
	if n := len(t.stack); n > 0 {
		nodes = t.stack[n-1].Nodes
	}
	if n := len(nodes); n > 0 {
		if txt, ok := nodes[n-1].(*xml.Text); ok {
			txt.Content += str
			return
		}
	}
	t.append(xml.NewText(str))
}

func (t *TreeSink) append(node xml.Node) {
	if n := len(t.stack); n > 0 {
		t.stack[n-1].Append(node)
		return
	}
	t.doc.Append(node)
}
