package output_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
)

func TestTreeSink(t *testing.T) {
	var (
		sink = output.NewTreeSink()
		pipe = output.NewPipeline(sink, output.Output{})
	)
	steps := flatten(
		[]step{begin(output.KindElement, xml.ExpandedName("root", "", "urn:a"))},
		attribute(xml.LocalName("id"), "1"),
		texts("a", "b"),
		[]step{
			begin(output.KindComment, xml.QName{}),
			text("note"),
			end(output.KindComment),
		},
		element("child"),
		[]step{end(output.KindElement)},
	)
	for _, s := range steps {
		s.apply(pipe)
	}
	require.NoError(t, pipe.Close())

	root, ok := sink.Document().Root().(*xml.Element)
	require.True(t, ok)
	assert.Equal(t, "root", root.LocalName())
	assert.Equal(t, "urn:a", root.Uri)
	assert.Equal(t, "1", root.GetAttribute("id").Datum)
	assert.Equal(t, []xml.NS{{Uri: "urn:a"}}, root.Namespaces())

	require.Len(t, root.Nodes, 3)
	assert.Equal(t, "ab", root.Nodes[0].Value())
	assert.Equal(t, xml.TypeComment, root.Nodes[1].Type())
	child, ok := root.Nodes[2].(*xml.Element)
	require.True(t, ok)
	assert.Equal(t, "child", child.LocalName())
	assert.Equal(t, []xml.NS{{Uri: ""}}, child.Namespaces())
}

func TestTextSink(t *testing.T) {
	var (
		sink = output.NewTextSink()
		pipe = output.NewPipeline(sink, output.Output{})
	)
	for _, s := range element("root", texts("a"), element("b", texts("c"))) {
		s.apply(pipe)
	}
	require.NoError(t, pipe.Close())
	assert.Equal(t, "ac", sink.String())
}

func TestReader(t *testing.T) {
	steps := flatten(
		[]step{begin(output.KindElement, xml.LocalName("root"))},
		attribute(xml.ExpandedName("space", scope.PrefixXML, scope.NamespaceXML), "preserve"),
		texts("  "),
		element("child", texts("a", "b")),
		texts("\n"),
		[]step{end(output.KindElement)},
		element("other", texts("  ")),
	)
	var (
		reader = output.NewReader()
		pipe   = output.NewPipeline(reader, output.Output{})
		pumped int
	)
	reader.Attach(func() (bool, error) {
		for len(steps) > 0 {
			res := steps[0].apply(pipe)
			if res == output.Overflow {
				return false, nil
			}
			steps = steps[1:]
			pumped++
			if res == output.Interrupt {
				return false, nil
			}
		}
		return true, pipe.Close()
	})

	want := []struct {
		Kind  output.ItemKind
		Name  string
		Value string
	}{
		{Kind: output.ItemElement, Name: "root"},
		{Kind: output.ItemSignificantWhitespace, Value: "  "},
		{Kind: output.ItemElement, Name: "child"},
		{Kind: output.ItemText, Value: "ab"},
		{Kind: output.ItemEndElement, Name: "child"},
		{Kind: output.ItemSignificantWhitespace, Value: "\n"},
		{Kind: output.ItemEndElement, Name: "root"},
		{Kind: output.ItemElement, Name: "other"},
		{Kind: output.ItemWhitespace, Value: "  "},
		{Kind: output.ItemEndElement, Name: "other"},
	}
	first, err := reader.Peek()
	require.NoError(t, err)
	assert.Equal(t, output.ItemElement, first.Kind)
	assert.Less(t, pumped, 8)

	for _, w := range want {
		it, err := reader.Read()
		require.NoError(t, err)
		assert.Equal(t, w.Kind, it.Kind)
		assert.Equal(t, w.Name, it.Name.Name)
		assert.Equal(t, w.Value, it.Value)
	}
	_, err = reader.Read()
	assert.ErrorIs(t, err, io.EOF)
}
