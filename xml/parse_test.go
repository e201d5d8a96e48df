package xml_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/midbel/xform/xml"
)

func TestParseValidDocument(t *testing.T) {
	r, err := os.Open(filepath.Join("testdata", "sample.xml"))
	if err != nil {
		t.Errorf("fail to open sample file: %s", err)
		return
	}
	defer r.Close()

	doc, err := xml.NewParser(r).Parse()
	if err != nil {
		t.Errorf("fail to parse sample file: %s", err)
		return
	}
	root, ok := doc.Root().(*xml.Element)
	if !ok {
		t.Errorf("root element expected")
		return
	}
	if root.Uri != "urn:catalog" {
		t.Errorf("root namespace mismatched: want %s, got %s", "urn:catalog", root.Uri)
	}
	books := root.FindAll("book")
	if len(books) != 2 {
		t.Errorf("number of books mismatched: want 2, got %d", len(books))
		return
	}
	first := books[0].(*xml.Element)
	attr := first.GetAttribute("x:lang")
	if attr.Uri != "urn:extra" || attr.Value() != "en" {
		t.Errorf("namespaced attribute not resolved: %+v", attr)
	}
	if got := first.Find("title").Value(); got != "Go & XML" {
		t.Errorf("entity not decoded: got %q", got)
	}
}

const prolog = `<?xml version="1.0" encoding="UTF-8"?>`

func TestParseInvalidDocument(t *testing.T) {
	data := []struct {
		Xml           string
		Cause         string
		RequireProlog bool
	}{
		{
			Xml:   ``,
			Cause: "document without root element",
		},
		{
			Xml:           `<root></root>`,
			Cause:         "document without prolog",
			RequireProlog: true,
		},
		{
			Xml:   `<root empty-attr></root>`,
			Cause: "attribute without value",
		},
		{
			Xml:   `<root id="id-1" id="id-2"></root>`,
			Cause: "duplicate attribute",
		},
		{
			Xml:   `<root><a></b></root>`,
			Cause: "mismatched closing element",
		},
		{
			Xml:   `<root/><other/>`,
			Cause: "two root elements",
		},
		{
			Xml:   `<root xmlns:xml="urn:other"/>`,
			Cause: "xml prefix bound to another namespace",
		},
	}
	for _, d := range data {
		if !d.RequireProlog {
			d.Xml = prolog + d.Xml
		}
		p := xml.NewParser(strings.NewReader(d.Xml))
		p.OmitProlog = !d.RequireProlog
		if _, err := p.Parse(); err == nil {
			t.Errorf("%s: invalid document parsed properly!", d.Cause)
		}
	}
}

func TestParseWhitespace(t *testing.T) {
	const str = "<root>\n  <a> x </a>\n</root>"
	tests := []struct {
		Name      string
		KeepEmpty bool
		TrimSpace bool
		Nodes     int
		Value     string
	}{
		{
			Name:      "keep",
			KeepEmpty: true,
			Nodes:     3,
			Value:     " x ",
		},
		{
			Name:  "strip",
			Nodes: 1,
			Value: " x ",
		},
		{
			Name:      "trim",
			TrimSpace: true,
			Nodes:     1,
			Value:     "x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			p := xml.NewParser(strings.NewReader(str))
			p.KeepEmpty = tt.KeepEmpty
			p.TrimSpace = tt.TrimSpace
			doc, err := p.Parse()
			if err != nil {
				t.Errorf("fail to parse document: %s", err)
				return
			}
			root := doc.Root().(*xml.Element)
			if root.Len() != tt.Nodes {
				t.Errorf("nodes count mismatched: want %d, got %d", tt.Nodes, root.Len())
			}
			if got := root.Find("a").Value(); got != tt.Value {
				t.Errorf("value mismatched: want %q, got %q", tt.Value, got)
			}
		})
	}
}

func TestDocumentOrder(t *testing.T) {
	doc, err := xml.ParseString(`<root id="1"><a/><b><c/></b></root>`)
	if err != nil {
		t.Errorf("fail to parse document: %s", err)
		return
	}
	var (
		root = doc.Root().(*xml.Element)
		a    = root.Find("a")
		b    = root.Find("b").(*xml.Element)
		c    = b.Find("c")
		id   = root.Attributes()[0]
	)
	tests := []struct {
		Left  xml.Node
		Right xml.Node
		Want  bool
	}{
		{Left: doc, Right: root, Want: true},
		{Left: root, Right: a, Want: true},
		{Left: a, Right: b, Want: true},
		{Left: c, Right: a, Want: false},
		{Left: id, Right: a, Want: true},
		{Left: root, Right: id, Want: true},
		{Left: b, Right: c, Want: true},
	}
	for _, tt := range tests {
		if got := xml.Before(tt.Left, tt.Right); got != tt.Want {
			t.Errorf("%s before %s: want %t, got %t", tt.Left.Identity(), tt.Right.Identity(), tt.Want, got)
		}
	}

	nodes := []xml.Node{c, a, id, b, root}
	slices.SortFunc(nodes, xml.DocumentOrder)
	want := []xml.Node{root, id, a, b, c}
	for i := range want {
		if nodes[i] != want[i] {
			t.Errorf("%d: node mismatched! want %s, got %s", i, want[i].Identity(), nodes[i].Identity())
		}
	}
	if xml.DocumentOrder(a, a) != 0 {
		t.Errorf("node should be equal to itself")
	}
}
