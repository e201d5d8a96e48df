package output_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/xml"
)

func attribute(name xml.QName, value string) []step {
	return []step{
		begin(output.KindAttribute, name),
		text(value),
		end(output.KindAttribute),
	}
}

func element(name string, inner ...[]step) []step {
	list := []step{begin(output.KindElement, xml.LocalName(name))}
	for _, i := range inner {
		list = append(list, i...)
	}
	return append(list, end(output.KindElement))
}

func texts(str ...string) []step {
	var list []step
	for _, s := range str {
		list = append(list, text(s))
	}
	return list
}

func flatten(parts ...[]step) []step {
	var list []step
	for _, p := range parts {
		list = append(list, p...)
	}
	return list
}

func TestStreamGolden(t *testing.T) {
	tests := []struct {
		Name   string
		Output output.Output
		Steps  []step
	}{
		{
			Name: "html-auto",
			Steps: flatten(
				[]step{
					begin(output.KindComment, xml.QName{}),
					text(" generated "),
					end(output.KindComment),
				},
				element("html",
					element("head", element("title", texts("T"))),
					element("body",
						element("p",
							texts("a & b"),
							element("br"),
							element("input", attribute(xml.LocalName("checked"), "checked")),
							element("a", attribute(xml.LocalName("href"), "/é"), texts("x")),
						),
					),
				),
			),
		},
		{
			Name: "xml-indent",
			Output: output.Output{
				Method:        output.MethodXML,
				Indent:        true,
				DoctypeSystem: "book.dtd",
			},
			Steps: element("root",
				element("item", texts("one")),
				element("item"),
				element("group", element("item", texts("two"))),
			),
		},
		{
			Name: "text-method",
			Output: output.Output{
				Method: output.MethodText,
			},
			Steps: element("root", texts("a", "<b>"), element("skip"), texts("c")),
		},
		{
			Name: "cdata",
			Output: output.Output{
				Method:        output.MethodXML,
				OmitProlog:    true,
				CDataElements: []xml.QName{xml.LocalName("script")},
			},
			Steps: element("doc", element("script", texts("if a]]>b"))),
		},
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
		goldie.WithEqualFn(func(actual, expected []byte) bool {
			return bytes.Equal(bytes.TrimSpace(actual), bytes.TrimSpace(expected))
		}),
	)
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got := serialize(t, tt.Output, tt.Steps...)
			g.Assert(t, tt.Name, []byte(got))
		})
	}
}

func TestStreamDetect(t *testing.T) {
	auto := output.Output{OmitProlog: true}
	tests := []struct {
		Name  string
		Steps []step
		Want  string
	}{
		{
			Name:  "whitespace-then-element",
			Steps: flatten(texts(" "), element("root")),
			Want:  ` <root/>`,
		},
		{
			Name:  "html-uppercase",
			Steps: element("HTML", element("br")),
			Want:  `<HTML><br></HTML>`,
		},
		{
			Name: "namespaced-html",
			Steps: []step{
				begin(output.KindElement, xml.ExpandedName("html", "", "urn:html")),
				end(output.KindElement),
			},
			Want: `<html xmlns="urn:html"/>`,
		},
		{
			Name: "nothing-decisive",
			Steps: []step{
				begin(output.KindComment, xml.QName{}),
				text("c"),
				end(output.KindComment),
			},
			Want: `<!--c-->`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got := serialize(t, auto, tt.Steps...)
			assert.Equal(t, tt.Want, got)
		})
	}
}

func TestStreamEncoding(t *testing.T) {
	var (
		buf bytes.Buffer
		out = output.Output{Method: output.MethodXML, Encoding: "ISO-8859-1"}
	)
	sink, err := output.NewStreamSink(&buf, out)
	require.NoError(t, err)

	pipe := output.NewPipeline(sink, out)
	for _, s := range element("p", texts("é ā")) {
		s.apply(pipe)
	}
	require.NoError(t, pipe.Close())

	want := []byte(`<?xml version="1.0" encoding="ISO-8859-1"?><p>`)
	want = append(want, 0xE9)
	want = append(want, []byte(` &#257;</p>`)...)
	assert.Equal(t, want, buf.Bytes())
}

func TestStreamUnknownEncoding(t *testing.T) {
	_, err := output.NewStreamSink(new(strings.Builder), output.Output{Encoding: "no-such-charset"})
	assert.Error(t, err)
}
