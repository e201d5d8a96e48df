package output_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/xml"
)

type step struct {
	Begin output.Kind
	End   output.Kind
	Name  xml.QName
	Text  string
	Raw   bool
}

func begin(kind output.Kind, name xml.QName) step {
	return step{Begin: kind, Name: name}
}

func end(kind output.Kind) step {
	return step{End: kind}
}

func text(str string) step {
	return step{Text: str}
}

func raw(str string) step {
	return step{Text: str, Raw: true}
}

func (s step) apply(p *output.Pipeline) output.Outcome {
	switch {
	case s.Begin != output.KindNone:
		return p.Begin(s.Begin, s.Name)
	case s.End != output.KindNone:
		return p.End(s.End)
	default:
		return p.Text(s.Text, s.Raw)
	}
}

func serialize(t *testing.T, out output.Output, steps ...step) string {
	t.Helper()
	var (
		str  strings.Builder
		sink = output.NewStringSink(&str, out)
		pipe = output.NewPipeline(sink, out)
	)
	for _, s := range steps {
		res := s.apply(pipe)
		require.True(t, res.Accepted())
	}
	require.NoError(t, pipe.Close())
	return str.String()
}

var compact = output.Output{
	Method:     output.MethodXML,
	OmitProlog: true,
}

func TestPipelineElements(t *testing.T) {
	tests := []struct {
		Name  string
		Steps []step
		Want  string
	}{
		{
			Name: "empty",
			Steps: []step{
				begin(output.KindElement, xml.LocalName("root")),
				end(output.KindElement),
			},
			Want: `<root/>`,
		},
		{
			Name: "text",
			Steps: []step{
				begin(output.KindElement, xml.LocalName("root")),
				text("a < b"),
				text(" & c"),
				end(output.KindElement),
			},
			Want: `<root>a &lt; b &amp; c</root>`,
		},
		{
			Name: "raw",
			Steps: []step{
				begin(output.KindElement, xml.LocalName("root")),
				text("<"),
				raw("<br/>"),
				end(output.KindElement),
			},
			Want: `<root>&lt;<br/></root>`,
		},
		{
			Name: "attributes",
			Steps: []step{
				begin(output.KindElement, xml.LocalName("root")),
				begin(output.KindAttribute, xml.LocalName("id")),
				text("1"),
				end(output.KindAttribute),
				begin(output.KindAttribute, xml.LocalName("lang")),
				text(`"en"`),
				end(output.KindAttribute),
				begin(output.KindAttribute, xml.LocalName("id")),
				text("2"),
				end(output.KindAttribute),
				begin(output.KindElement, xml.LocalName("child")),
				end(output.KindElement),
				end(output.KindElement),
			},
			Want: `<root id="2" lang="&quot;en&quot;"><child/></root>`,
		},
		{
			Name: "comment",
			Steps: []step{
				begin(output.KindElement, xml.LocalName("root")),
				begin(output.KindComment, xml.QName{}),
				text("a--b-"),
				end(output.KindComment),
				end(output.KindElement),
			},
			Want: `<root><!--a- -b- --></root>`,
		},
		{
			Name: "instruction",
			Steps: []step{
				begin(output.KindInstruction, xml.LocalName("target")),
				text("data ?> more"),
				end(output.KindInstruction),
				begin(output.KindElement, xml.LocalName("root")),
				end(output.KindElement),
			},
			Want: `<?target data ? > more?><root/>`,
		},
		{
			Name: "top-level-text",
			Steps: []step{
				text("hello"),
				begin(output.KindElement, xml.LocalName("root")),
				end(output.KindElement),
			},
			Want: `hello<root/>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got := serialize(t, compact, tt.Steps...)
			assert.Equal(t, tt.Want, got)
		})
	}
}

func TestPipelineNamespaces(t *testing.T) {
	tests := []struct {
		Name  string
		Steps []step
		Want  string
	}{
		{
			Name: "prefixed",
			Steps: []step{
				begin(output.KindElement, xml.ExpandedName("root", "x", "urn:a")),
				begin(output.KindAttribute, xml.ExpandedName("attr", "y", "urn:b")),
				text("1"),
				end(output.KindAttribute),
				end(output.KindElement),
			},
			Want: `<x:root xmlns:x="urn:a" xmlns:y="urn:b" y:attr="1"/>`,
		},
		{
			Name: "minted",
			Steps: []step{
				begin(output.KindElement, xml.ExpandedName("root", "", "urn:a")),
				begin(output.KindAttribute, xml.ExpandedName("id", "", "urn:b")),
				text("1"),
				end(output.KindAttribute),
				end(output.KindElement),
			},
			Want: `<root xmlns="urn:a" xmlns:xp_1="urn:b" xp_1:id="1"/>`,
		},
		{
			Name: "collision",
			Steps: []step{
				begin(output.KindElement, xml.ExpandedName("root", "x", "urn:a")),
				begin(output.KindAttribute, xml.ExpandedName("attr", "x", "urn:b")),
				text("v"),
				end(output.KindAttribute),
				end(output.KindElement),
			},
			Want: `<x:root xmlns:x="urn:a" xmlns:xp_1="urn:b" xp_1:attr="v"/>`,
		},
		{
			Name: "undeclare-default",
			Steps: []step{
				begin(output.KindElement, xml.ExpandedName("root", "", "urn:a")),
				begin(output.KindElement, xml.LocalName("inner")),
				end(output.KindElement),
				end(output.KindElement),
			},
			Want: `<root xmlns="urn:a"><inner xmlns=""/></root>`,
		},
		{
			Name: "inherited",
			Steps: []step{
				begin(output.KindElement, xml.ExpandedName("root", "x", "urn:a")),
				begin(output.KindElement, xml.ExpandedName("inner", "x", "urn:a")),
				end(output.KindElement),
				end(output.KindElement),
			},
			Want: `<x:root xmlns:x="urn:a"><x:inner/></x:root>`,
		},
		{
			Name: "explicit",
			Steps: []step{
				begin(output.KindElement, xml.LocalName("root")),
				begin(output.KindNamespace, xml.LocalName("z")),
				text("urn:z"),
				end(output.KindNamespace),
				begin(output.KindAttribute, xml.ExpandedName("attr", "", "urn:z")),
				text("v"),
				end(output.KindAttribute),
				end(output.KindElement),
			},
			Want: `<root xmlns:z="urn:z" z:attr="v"/>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got := serialize(t, compact, tt.Steps...)
			assert.Equal(t, tt.Want, got)
		})
	}
}

func TestPipelineIgnoreRegion(t *testing.T) {
	var (
		str  strings.Builder
		pipe = output.NewPipeline(output.NewStringSink(&str, compact), compact)
	)
	assert.Equal(t, output.Continue, pipe.Begin(output.KindElement, xml.LocalName("root")))
	assert.Equal(t, output.Continue, pipe.Text("text", false))
	assert.Equal(t, output.Error, pipe.Begin(output.KindAttribute, xml.LocalName("late")))
	assert.Equal(t, output.Ignore, pipe.Text("value", false))
	assert.Equal(t, output.Ignore, pipe.Begin(output.KindElement, xml.LocalName("inner")))
	assert.Equal(t, output.Ignore, pipe.End(output.KindElement))
	assert.Equal(t, output.Ignore, pipe.End(output.KindAttribute))
	assert.Equal(t, output.Continue, pipe.End(output.KindElement))
	require.NoError(t, pipe.Close())
	assert.Equal(t, `<root>text</root>`, str.String())
}

func TestPipelineStrict(t *testing.T) {
	var (
		str  strings.Builder
		pipe = output.NewPipeline(output.NewStringSink(&str, compact), compact)
	)
	pipe.Strict = true
	pipe.Begin(output.KindElement, xml.LocalName("root"))
	pipe.Text("text", false)
	assert.Equal(t, output.Error, pipe.Begin(output.KindAttribute, xml.LocalName("late")))

	var serr *output.StructuralError
	require.True(t, errors.As(pipe.Err(), &serr))
	assert.Equal(t, output.KindAttribute, serr.Kind)
	assert.ErrorIs(t, pipe.Err(), output.ErrStructure)
}

func TestPipelineUnclosed(t *testing.T) {
	var (
		str  strings.Builder
		pipe = output.NewPipeline(output.NewStringSink(&str, compact), compact)
	)
	pipe.Begin(output.KindElement, xml.LocalName("root"))
	assert.ErrorIs(t, pipe.Close(), output.ErrUnclosed)
}

func TestPipelineOverflow(t *testing.T) {
	var (
		str  strings.Builder
		sink = output.NewStringSink(&str, compact)
		pipe = output.NewPipeline(sink, compact)
	)
	sink.Limit = 1

	assert.Equal(t, output.Continue, pipe.Begin(output.KindElement, xml.LocalName("root")))
	assert.Equal(t, output.Interrupt, pipe.Text("a", false))
	assert.Equal(t, output.Overflow, pipe.Text("b", false))
	assert.Equal(t, output.Overflow, pipe.End(output.KindElement))
	assert.Equal(t, "", str.String())

	require.NoError(t, sink.Drain())
	assert.Equal(t, "<root>", str.String())
	assert.Equal(t, output.Continue, pipe.Text("b", false))
	assert.Equal(t, output.Interrupt, pipe.End(output.KindElement))
	require.NoError(t, pipe.Close())
	assert.Equal(t, "<root>ab</root>", str.String())
}
