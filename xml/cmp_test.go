package xml_test

import (
	"testing"

	"github.com/midbel/xform/xml"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		Name   string
		Source string
		Target string
		Mode   xml.CmpMode
		Match  bool
		Diff   string
	}{
		{
			Name:   "same",
			Source: `<root><a id="1">x</a><b/></root>`,
			Target: `<root><a id="1">x</a><b/></root>`,
			Match:  true,
		},
		{
			Name:   "whitespace-and-attribute-order",
			Source: `<root><a id="1" x="2"> x </a></root>`,
			Target: "<root>\n  <a x=\"2\" id=\"1\">x</a>\n</root>",
			Match:  true,
		},
		{
			Name:   "prefix-does-not-matter",
			Source: `<p:root xmlns:p="urn:p"><p:a/></p:root>`,
			Target: `<root xmlns="urn:p"><a/></root>`,
			Match:  true,
		},
		{
			Name:   "namespace-matters",
			Source: `<root xmlns="urn:a"/>`,
			Target: `<root xmlns="urn:b"/>`,
			Diff:   "root",
		},
		{
			Name:   "ordered",
			Source: `<root><a/><b/></root>`,
			Target: `<root><b/><a/></root>`,
			Diff:   "a",
		},
		{
			Name:   "unordered",
			Source: `<root><a/><b/></root>`,
			Target: `<root><b/><a/></root>`,
			Mode:   xml.CmpUnordered,
			Match:  true,
		},
		{
			Name:   "nested-difference",
			Source: `<root><a><c id="1"/></a><b/></root>`,
			Target: `<root><a><c id="2"/></a><b/></root>`,
			Diff:   "c",
		},
		{
			Name:   "unordered-nested-difference",
			Source: `<root><b/><a><c id="1"/></a></root>`,
			Target: `<root><a><c id="2"/></a><b/></root>`,
			Mode:   xml.CmpUnordered,
			Diff:   "c",
		},
		{
			Name:   "text",
			Source: `<root>one</root>`,
			Target: `<root>two</root>`,
			Diff:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			source, err := xml.ParseString(tt.Source)
			if err != nil {
				t.Fatalf("fail to parse source: %s", err)
			}
			target, err := xml.ParseString(tt.Target)
			if err != nil {
				t.Fatalf("fail to parse target: %s", err)
			}
			res := xml.Compare(source, target, tt.Mode)
			if res.Match != tt.Match {
				t.Fatalf("comparison mismatched! want %t, got %t", tt.Match, res.Match)
			}
			if tt.Match {
				return
			}
			if got := res.Source.LocalName(); got != tt.Diff {
				t.Errorf("different node mismatched! want %q, got %q", tt.Diff, got)
			}
		})
	}
}
