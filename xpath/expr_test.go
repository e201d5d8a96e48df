package xpath

import (
	"strings"
	"testing"

	"github.com/midbel/xform/xml"
	"github.com/midbel/xform/xslt"
)

const document = `<?xml version="1.0" encoding="UTF-8"?>

<root>
	<item id="first">element-1</item>
	<item id="second">element-2</item>
	<group>
		<item lang="en">sub-element-1</item>
		<item lang="en">sub-element-2</item>
		<test ignore="true"/>
	</group>
</root>
`

func TestEval(t *testing.T) {
	tests := []struct {
		Expr     string
		Expected []string
	}{
		{
			Expr:     "/root/item",
			Expected: []string{"element-1", "element-2"},
		},
		{
			Expr:     "/root/item[1]",
			Expected: []string{"element-1"},
		},
		{
			Expr:     "/root/item[last()]",
			Expected: []string{"element-2"},
		},
		{
			Expr:     "/root/item[position()>1]",
			Expected: []string{"element-2"},
		},
		{
			Expr:     "count(//item)",
			Expected: []string{"4"},
		},
		{
			Expr:     "//item",
			Expected: []string{"element-1", "element-2", "sub-element-1", "sub-element-2"},
		},
		{
			Expr:     "//group/item[1]",
			Expected: []string{"sub-element-1"},
		},
		{
			Expr:     "/root/item[2] | /root/item[1]",
			Expected: []string{"element-1", "element-2"},
		},
		{
			Expr:     "//item[text()=\"element-1\"]",
			Expected: []string{"element-1"},
		},
		{
			Expr:     "//@ignore",
			Expected: []string{"true"},
		},
		{
			Expr:     "string(/root/item[2]/@id)",
			Expected: []string{"second"},
		},
		{
			Expr:     "system-property('xsl:version')",
			Expected: []string{"1.0"},
		},
		{
			Expr:     "function-available('concat')",
			Expected: []string{"true"},
		},
		{
			Expr:     "function-available('unknown')",
			Expected: []string{"false"},
		},
	}

	doc, err := parseDocument()
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	eng := New()
	for _, tt := range tests {
		expr, err := eng.Compile(tt.Expr, nil)
		if err != nil {
			t.Errorf("%s: fail to compile expression: %s", tt.Expr, err)
			continue
		}
		focus := xslt.Focus{
			Node:     doc,
			Position: 1,
			Size:     1,
		}
		v, err := eng.Evaluate(expr, &focus)
		if err != nil {
			t.Errorf("%s: fail to evaluate expression: %s", tt.Expr, err)
			continue
		}
		got := values(v)
		if strings.Join(got, "|") != strings.Join(tt.Expected, "|") {
			t.Errorf("%s: result mismatched! want %q, got %q", tt.Expr, tt.Expected, got)
		}
	}
}

func TestEvalFocus(t *testing.T) {
	doc, err := parseDocument()
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	first := doc.Root().(*xml.Element).Nodes[0]

	tests := []struct {
		Expr string
		Want string
	}{
		{Expr: "position()", Want: "2"},
		{Expr: "last()", Want: "5"},
		{Expr: "position() = last()", Want: "false"},
		{Expr: "concat(position(), '/', last())", Want: "2/5"},
		{Expr: "concat(1.5, '-', true(), '-', count(../item))", Want: "1.5-true-2"},
		{Expr: "concat(@id, concat(':', position()))", Want: "first:2"},
		{Expr: "../item[last()]", Want: "element-2"},
		{Expr: "string(current())", Want: "element-1"},
		{Expr: "count(current())", Want: "1"},
		{Expr: "@id", Want: "first"},
		{Expr: "generate-id() = generate-id(.)", Want: "true"},
		{Expr: "generate-id() = generate-id(../item[2])", Want: "false"},
	}
	eng := New()
	for _, tt := range tests {
		expr, err := eng.Compile(tt.Expr, nil)
		if err != nil {
			t.Errorf("%s: fail to compile expression: %s", tt.Expr, err)
			continue
		}
		focus := xslt.Focus{
			Node:     first,
			Position: 2,
			Size:     5,
		}
		v, err := eng.Evaluate(expr, &focus)
		if err != nil {
			t.Errorf("%s: fail to evaluate expression: %s", tt.Expr, err)
			continue
		}
		if got := v.String(); got != tt.Want {
			t.Errorf("%s: result mismatched! want %q, got %q", tt.Expr, tt.Want, got)
		}
	}
}

func TestMatches(t *testing.T) {
	doc, err := parseDocument()
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	var (
		root  = doc.Root().(*xml.Element)
		first = root.Nodes[0].(*xml.Element)
		group = root.Nodes[2].(*xml.Element)
		sub   = group.Nodes[1].(*xml.Element)
		test  = group.Nodes[2].(*xml.Element)
	)
	tests := []struct {
		Pattern string
		Node    xml.Node
		Want    bool
	}{
		{Pattern: "item", Node: first, Want: true},
		{Pattern: "item", Node: group, Want: false},
		{Pattern: "group/item", Node: sub, Want: true},
		{Pattern: "group/item", Node: first, Want: false},
		{Pattern: "root//item", Node: sub, Want: true},
		{Pattern: "/", Node: doc, Want: true},
		{Pattern: "/", Node: root, Want: false},
		{Pattern: "/root", Node: root, Want: true},
		{Pattern: "@id", Node: first.Attributes()[0], Want: true},
		{Pattern: "@id", Node: first, Want: false},
		{Pattern: "item[2]", Node: sub, Want: true},
		{Pattern: "item[2]", Node: first, Want: false},
		{Pattern: "text()", Node: first.Nodes[0], Want: true},
		{Pattern: "test[@ignore = 'true']", Node: test, Want: true},
		{Pattern: "group | test", Node: test, Want: true},
		{Pattern: "*", Node: doc, Want: false},
	}
	eng := New()
	for _, tt := range tests {
		list, err := eng.CompilePattern(tt.Pattern, nil)
		if err != nil {
			t.Errorf("%s: fail to compile pattern: %s", tt.Pattern, err)
			continue
		}
		var got bool
		for _, p := range list {
			ok, err := eng.Matches(p, tt.Node, &xslt.Focus{Node: tt.Node})
			if err != nil {
				t.Errorf("%s: fail to match pattern: %s", tt.Pattern, err)
				break
			}
			got = got || ok
		}
		if got != tt.Want {
			t.Errorf("%s: match mismatched for %s! want %t, got %t", tt.Pattern, tt.Node.Identity(), tt.Want, got)
		}
	}
}

func values(v xslt.Value) []string {
	nodes, ok := v.Nodes()
	if !ok {
		return []string{v.String()}
	}
	var list []string
	for _, n := range nodes {
		list = append(list, n.Value())
	}
	return list
}

func parseDocument() (*xml.Document, error) {
	p := xml.NewParser(strings.NewReader(document))
	p.KeepEmpty = false
	return p.Parse()
}
