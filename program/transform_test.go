package program_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/midbel/xform/program"
	"github.com/midbel/xform/xml"
	"github.com/midbel/xform/xpath"
	"github.com/midbel/xform/xslt"
)

type TestCase struct {
	Name   string
	Dir    string
	Params map[string]any
	Failed error
}

func TestTemplates(t *testing.T) {
	tests := []TestCase{
		{
			Name: "apply-templates/basic",
			Dir:  "testdata/apply-basic",
		},
		{
			Name: "apply-templates/priority",
			Dir:  "testdata/priority",
		},
		{
			Name: "apply-templates/modes",
			Dir:  "testdata/modes",
		},
		{
			Name: "apply-imports",
			Dir:  "testdata/imports",
		},
	}
	runTest(t, tests)
}

func TestControl(t *testing.T) {
	tests := []TestCase{
		{
			Name: "choose/for-each",
			Dir:  "testdata/choose",
		},
		{
			Name: "sort",
			Dir:  "testdata/sort",
		},
		{
			Name: "keys",
			Dir:  "testdata/keys",
		},
	}
	runTest(t, tests)
}

func TestVariables(t *testing.T) {
	tests := []TestCase{
		{
			Name: "params/default",
			Dir:  "testdata/params",
		},
		{
			Name: "params/override",
			Dir:  "testdata/params-override",
			Params: map[string]any{
				"greeting": "bonjour",
			},
		},
		{
			Name:   "variables/circular",
			Dir:    "testdata/circular",
			Failed: xslt.ErrCircular,
		},
	}
	runTest(t, tests)
}

func TestConstructors(t *testing.T) {
	tests := []TestCase{
		{
			Name: "element/computed",
			Dir:  "testdata/computed",
		},
		{
			Name: "copy-of",
			Dir:  "testdata/copy-of",
		},
		{
			Name: "number",
			Dir:  "testdata/number",
		},
		{
			Name: "number/any",
			Dir:  "testdata/number-any",
		},
		{
			Name: "literal/namespaces",
			Dir:  "testdata/namespaces",
		},
		{
			Name:   "message/terminate",
			Dir:    "testdata/terminate",
			Failed: xslt.ErrTerminate,
		},
	}
	runTest(t, tests)
}

func runTest(t *testing.T, tests []TestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.Name, executeTest(tt))
	}
}

func executeTest(tt TestCase) func(*testing.T) {
	return func(t *testing.T) {
		doc, err := xml.ParseFile(filepath.Join(tt.Dir, "doc.xml"))
		if err != nil {
			t.Fatalf("error loading document: %s", err)
		}
		eval := xpath.New()
		sheet, err := program.DecodeFile(filepath.Join(tt.Dir, "program.yaml"), eval)
		if err != nil {
			t.Fatalf("error loading program: %s", err)
		}
		proc := xslt.NewProcessor(sheet, eval, xslt.WithParams(tt.Params))

		var str bytes.Buffer
		err = proc.Transform(&str, doc)
		if tt.Failed != nil {
			if err == nil {
				t.Fatalf("expected error but transformation pass!")
			}
			if !errors.Is(err, tt.Failed) {
				t.Fatalf("error mismatched! want %s, got %s", tt.Failed, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("error executing transform: %s", err)
		}
		compareBytes(t, filepath.Join(tt.Dir, "result.xml"), str.Bytes())
	}
}

func compareBytes(t *testing.T, file string, got []byte) {
	t.Helper()
	want, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("error loading result: %s", err)
	}
	want = normalizeDoc(want)
	got = normalizeDoc(got)
	if !bytes.Equal(want, got) {
		t.Errorf("results mismatched")
		t.Logf("want: %s", want)
		t.Logf("got : %s", got)
	}
}

func normalizeDoc(doc []byte) []byte {
	p := xml.NewParser(bytes.NewReader(doc))
	p.KeepEmpty = false
	x, err := p.Parse()
	if err != nil {
		return bytes.TrimSpace(doc)
	}
	var buf bytes.Buffer
	w := xml.NewWriter(&buf)
	w.WriterOptions = xml.OptionCompact | xml.OptionNoProlog
	if err := w.Write(x); err != nil {
		return bytes.TrimSpace(doc)
	}
	return buf.Bytes()
}
