package xml_test

import (
	"strings"
	"testing"

	"github.com/midbel/xform/xml"
)

func TestWriterWrite(t *testing.T) {
	const str = `<?xml version="1.0" encoding="UTF-8"?><test:root id="1"><test:a attr="text">text</test:a><test:a attr="self"/></test:root>`

	doc, err := parseDocument(str)
	if err != nil {
		t.Errorf("fail to parse input document: %s", err)
		return
	}

	data := []struct {
		Want    string
		Options xml.WriterOptions
	}{
		{
			Want:    `<test:root id="1"><test:a attr="text">text</test:a><test:a attr="self"/></test:root>`,
			Options: xml.OptionCompact | xml.OptionNoProlog,
		},
		{
			Want:    `<?xml version="1.0" encoding="UTF-8"?><test:root id="1"><test:a attr="text">text</test:a><test:a attr="self"/></test:root>`,
			Options: xml.OptionCompact,
		},
		{
			Want: strings.Join([]string{
				`<?xml version="1.0" encoding="UTF-8"?>`,
				`<test:root id="1">`,
				`  <test:a attr="text">text</test:a>`,
				`  <test:a attr="self"/>`,
				`</test:root>`,
			}, "\n"),
		},
		{
			Want: strings.Join([]string{
				`<?xml version="1.0" encoding="UTF-8"?>`,
				`<root id="1">`,
				`  <a attr="text">text</a>`,
				`  <a attr="self"/>`,
				`</root>`,
			}, "\n"),
			Options: xml.OptionNoNamespace,
		},
	}

	for _, d := range data {
		var (
			buf strings.Builder
			ws  = xml.NewWriter(&buf)
		)
		ws.WriterOptions = d.Options
		if err := ws.Write(doc); err != nil {
			t.Errorf("error writing document: %s", err)
			return
		}
		got := buf.String()
		if got != d.Want {
			t.Errorf("result mismatched")
			t.Logf("want: %s", d.Want)
			t.Logf("got : %s", got)
		}
	}
}

func TestWriteNodeEscaping(t *testing.T) {
	root := xml.NewElement(xml.LocalName("p"))
	root.SetAttribute(xml.NewAttribute(xml.LocalName("title"), `a "b" <c>`))
	root.Append(xml.NewText("1 < 2 & 3"))

	want := `<p title="a &quot;b&quot; &lt;c&gt;">1 &lt; 2 &amp; 3</p>`
	if got := xml.WriteNode(root); got != want {
		t.Errorf("escaping mismatched")
		t.Logf("want: %s", want)
		t.Logf("got : %s", got)
	}
}

func parseDocument(doc string) (*xml.Document, error) {
	return xml.NewParser(strings.NewReader(doc)).Parse()
}
