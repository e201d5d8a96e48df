package program_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/program"
	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xpath"
	"github.com/midbel/xform/xslt"
)

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		Name    string
		Program string
		Code    program.Code
	}{
		{
			Name:    "syntax",
			Program: "templates: [",
			Code:    program.CodeSyntax,
		},
		{
			Name:    "unknown-section",
			Program: "rules: []",
			Code:    program.CodeUnknownField,
		},
		{
			Name: "unknown-instruction",
			Program: `
templates:
  - match: /
    body:
      - loop: item
`,
			Code: program.CodeUnknownInstruction,
		},
		{
			Name: "unknown-field",
			Program: `
templates:
  - match: /
    body:
      - value-of:
          select: .
          separator: ","
`,
			Code: program.CodeUnknownField,
		},
		{
			Name: "missing-test",
			Program: `
templates:
  - match: /
    body:
      - if:
          body: [hello]
`,
			Code: program.CodeMissingField,
		},
		{
			Name: "template-without-name-and-match",
			Program: `
templates:
  - body: [hello]
`,
			Code: program.CodeMissingField,
		},
		{
			Name: "invalid-expression",
			Program: `
templates:
  - match: /
    body:
      - value-of: concat('a', 'b'
`,
			Code: program.CodeInvalidExpression,
		},
		{
			Name: "invalid-pattern",
			Program: `
templates:
  - match: $var
`,
			Code: program.CodeInvalidPattern,
		},
		{
			Name: "invalid-attribute-template",
			Program: `
templates:
  - match: /
    body:
      - literal:
          name: root
          attributes:
            id: "{@id"
`,
			Code: program.CodeInvalidTemplate,
		},
		{
			Name: "unbound-prefix",
			Program: `
templates:
  - match: /
    body:
      - literal: x:root
`,
			Code: program.CodeUnboundPrefix,
		},
		{
			Name: "misplaced-param",
			Program: `
templates:
  - name: main
    body:
      - text: hello
      - param: value
`,
			Code: program.CodeMisplacedInstruction,
		},
		{
			Name: "param-in-block",
			Program: `
templates:
  - name: main
    body:
      - sequence:
          - param: value
`,
			Code: program.CodeMisplacedInstruction,
		},
		{
			Name: "duplicate-template",
			Program: `
templates:
  - name: main
  - name: main
`,
			Code: program.CodeDuplicate,
		},
		{
			Name: "duplicate-global",
			Program: `
globals:
  - variable: {name: a, select: "1"}
  - param: {name: a}
`,
			Code: program.CodeDuplicate,
		},
		{
			Name: "select-and-body",
			Program: `
globals:
  - variable:
      name: a
      select: "1"
      body: [one]
`,
			Code: program.CodeInvalidValue,
		},
		{
			Name: "on-no-match",
			Program: `
modes:
  - name: copy
    on-no-match: copy-everything
`,
			Code: program.CodeInvalidValue,
		},
		{
			Name: "number-level",
			Program: `
templates:
  - match: /
    body:
      - number:
          level: all
`,
			Code: program.CodeInvalidValue,
		},
		{
			Name: "attribute-set-content",
			Program: `
attribute-sets:
  - name: common
    attributes:
      - text: hello
`,
			Code: program.CodeMisplacedInstruction,
		},
		{
			Name: "import-from-reader",
			Program: `
imports: [base.yaml]
`,
			Code: program.CodeImport,
		},
		{
			Name: "output-method",
			Program: `
output:
  method: json
`,
			Code: program.CodeInvalidValue,
		},
	}
	eval := xpath.New()
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := program.DecodeString(tt.Program, eval)
			require.Error(t, err)

			var de *program.DecodeError
			require.True(t, errors.As(err, &de), "DecodeError expected, got %T", err)
			assert.Equal(t, tt.Code, de.Code, "unexpected error: %s", err)
			assert.True(t, program.IsCode(err, tt.Code))
		})
	}
}

func TestDecodeErrorPosition(t *testing.T) {
	const prog = `
templates:
  - match: /
    body:
      - text: hello
      - value-of:
          select: .
          unknown: true
`
	_, err := program.DecodeString(prog, xpath.New())
	require.Error(t, err)

	var de *program.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, program.CodeUnknownField, de.Code)
	assert.Equal(t, "templates[0].body[1].value-of", de.Path)
	assert.Equal(t, 8, de.Line)
	assert.Equal(t, 11, de.Column)
	assert.Contains(t, err.Error(), "Xform_UnknownField")
}

func TestDecodeProgram(t *testing.T) {
	const prog = `
namespaces:
  h: urn:h
output:
  method: html
  indent: yes
  encoding: ISO-8859-1
  include-content-type: false
  cdata-section-elements: h:script code
modes:
  - name: copy
    on-no-match: deep-copy
keys:
  - name: ids
    match: item | entry
    use: "@id"
attribute-sets:
  - name: common
    use-attribute-sets: [base]
    attributes:
      - attribute:
          name: class
          value: x
globals:
  - param:
      name: title
      required: true
templates:
  - name: main
    match: h:item
    priority: 2
    mode: copy
    body:
      - param: first
      - param:
          name: second
          select: "1"
      - variable:
          name: local
          body:
            - hello
      - literal:
          name: h:div
          namespaces:
            x: urn:x
          attributes:
            id: "{$first}"
            x:flag: "yes"
          body:
            - literal: x:span
            - element:
                name: "{$second}"
`
	sheet, err := program.DecodeString(prog, xpath.New())
	require.NoError(t, err)

	assert.Equal(t, output.MethodHTML, sheet.Output.Method)
	assert.True(t, sheet.Output.Indent)
	assert.True(t, sheet.Output.OmitContentType)
	assert.Equal(t, "ISO-8859-1", sheet.Output.Encoding)
	require.Len(t, sheet.Output.CDataElements, 2)
	assert.Equal(t, "urn:h", sheet.Output.CDataElements[0].Uri)
	assert.Equal(t, "", sheet.Output.CDataElements[1].Uri)

	assert.Equal(t, xslt.NoMatchDeepCopy, sheet.NoMatch("copy"))
	assert.Equal(t, xslt.NoMatchTextOnlyCopy, sheet.NoMatch(""))
	assert.Len(t, sheet.Keys("ids"), 1)
	assert.Len(t, sheet.Keys("ids")[0].Match, 2)

	sets := sheet.AttributeSets("common")
	require.Len(t, sets, 1)
	assert.Equal(t, []string{"base"}, sets[0].Sets)
	assert.Len(t, sets[0].Attrs, 1)

	g, ok := sheet.Global("title")
	require.True(t, ok)
	require.IsType(t, &xslt.Param{}, g)
	assert.True(t, g.(*xslt.Param).Required)

	tpl, err := sheet.CallTemplate("main")
	require.NoError(t, err)
	assert.Equal(t, "copy", tpl.Mode)
	assert.True(t, tpl.Explicit)
	assert.Equal(t, 2.0, tpl.Priority)
	assert.Equal(t, 3, tpl.Slots)
	require.Len(t, tpl.Children, 4)

	first, ok := tpl.Children[0].(*xslt.Param)
	require.True(t, ok)
	assert.Equal(t, "first", first.Name)

	local, ok := tpl.Children[2].(*xslt.Variable)
	require.True(t, ok)
	require.Len(t, local.Children, 1)
	assert.Equal(t, &xslt.Text{Value: "hello"}, local.Children[0])

	div, ok := tpl.Children[3].(*xslt.LiteralElement)
	require.True(t, ok)
	assert.Equal(t, "urn:h", div.Name.Uri)
	assert.Equal(t, []scope.Binding{{Prefix: "h", Uri: "urn:h"}, {Prefix: "x", Uri: "urn:x"}}, div.Namespaces)
	require.Len(t, div.Attrs, 2)
	assert.Equal(t, "", div.Attrs[0].Name.Uri)
	assert.Equal(t, "urn:x", div.Attrs[1].Name.Uri)

	span, ok := div.Children[0].(*xslt.LiteralElement)
	require.True(t, ok)
	assert.Equal(t, "urn:x", span.Name.Uri)
	assert.Empty(t, span.Namespaces)

	el, ok := div.Children[1].(*xslt.Element)
	require.True(t, ok)
	assert.Contains(t, el.Namespaces, scope.Binding{Prefix: "x", Uri: "urn:x"})
}

func TestDecodeShorthands(t *testing.T) {
	const prog = `
templates:
  - match: /
    body:
      - plain text
      - apply-templates: item
      - apply-templates:
      - call-template: main
      - copy-of: .
      - comment: generated
      - for-each:
          select: item
          sort: "@name"
      - use-attribute-sets: a b
      - future-instruction:
          option: 1
          fallback:
            - text: unsupported
`
	sheet, err := program.DecodeString(prog, xpath.New())
	require.NoError(t, err)

	rules := modeRules(t, sheet, "")
	require.Len(t, rules, 1)
	body := rules[0].Children
	require.Len(t, body, 9)

	assert.Equal(t, &xslt.Text{Value: "plain text"}, body[0])

	apply, ok := body[1].(*xslt.ApplyTemplates)
	require.True(t, ok)
	assert.NotNil(t, apply.Select)

	apply, ok = body[2].(*xslt.ApplyTemplates)
	require.True(t, ok)
	assert.Nil(t, apply.Select)

	call, ok := body[3].(*xslt.CallTemplate)
	require.True(t, ok)
	assert.Equal(t, "main", call.Name)

	copyOf, ok := body[4].(*xslt.CopyOf)
	require.True(t, ok)
	assert.NotNil(t, copyOf.Select)

	comment, ok := body[5].(*xslt.Comment)
	require.True(t, ok)
	assert.Equal(t, []xslt.Action{&xslt.Text{Value: "generated"}}, comment.Children)

	each, ok := body[6].(*xslt.ForEach)
	require.True(t, ok)
	require.Len(t, each.Sort, 1)
	assert.NotNil(t, each.Sort[0].Select)

	sets, ok := body[7].(*xslt.UseAttributeSets)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, sets.Names)

	fallback, ok := body[8].(*xslt.Fallback)
	require.True(t, ok)
	assert.Equal(t, []xslt.Action{&xslt.Text{Value: "unsupported"}}, fallback.Children)
}

func TestDecodeEmptyBody(t *testing.T) {
	const prog = `
templates:
  - match: item
  - name: empty
    body:
`
	sheet, err := program.DecodeString(prog, xpath.New())
	require.NoError(t, err)

	rules := modeRules(t, sheet, "")
	require.Len(t, rules, 1)
	assert.Empty(t, rules[0].Children)

	tpl, err := sheet.CallTemplate("empty")
	require.NoError(t, err)
	assert.Empty(t, tpl.Children)
}

func TestDecodeImports(t *testing.T) {
	fsys := fstest.MapFS{
		"main.yaml": {Data: []byte(`
imports: [lib/base.yaml]
output:
  indent: true
templates:
  - match: item
    body: [main]
`)},
		"lib/base.yaml": {Data: []byte(`
includes: [extra.yaml]
output:
  method: text
  encoding: ascii
templates:
  - match: item
    body: [base]
`)},
		"lib/extra.yaml": {Data: []byte(`
templates:
  - name: extra
`)},
		"loop.yaml": {Data: []byte(`
imports: [loop.yaml]
`)},
	}
	dec := program.NewDecoder(xpath.New(), fsys)
	sheet, err := dec.Decode("main.yaml")
	require.NoError(t, err)

	require.Len(t, sheet.Imports, 1)
	assert.Equal(t, output.MethodText, sheet.Output.Method)
	assert.Equal(t, "ascii", sheet.Output.Encoding)
	assert.True(t, sheet.Output.Indent)

	_, err = sheet.CallTemplate("extra")
	assert.NoError(t, err)

	_, err = dec.Decode("loop.yaml")
	assert.True(t, program.IsCode(err, program.CodeImport))

	_, err = dec.Decode("missing.yaml")
	assert.True(t, program.IsCode(err, program.CodeImport))
}

func modeRules(t *testing.T, sheet *xslt.Stylesheet, name string) []*xslt.Rule {
	t.Helper()
	m, ok := sheet.Mode(name)
	require.True(t, ok)
	return m.Rules()
}
