// Package program decodes compiled transformation programs written in yaml
// into stylesheets ready to be run by a xslt.Processor.
//
// A program is a mapping with the sections namespaces, exclude-result-prefixes,
// output, imports, includes, modes, keys, attribute-sets, globals and
// templates. Bodies are lists of instructions, each one a mapping with a
// single key naming the instruction:
//
//	templates:
//	  - match: /
//	    body:
//	      - literal:
//	          name: list
//	          body:
//	            - apply-templates: item
//
// A plain string in a body is literal text. Scalar values stand for the main
// field of an instruction and lists for its body.
package program

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
	"github.com/midbel/xform/xslt"
)

const keyNamespaces = "namespaces"

// Decoder reads programs from a file system. Imported and included programs
// are resolved relative to the program that names them.
type Decoder struct {
	eval xslt.Evaluator
	fsys fs.FS

	loading []string
}

func NewDecoder(eval xslt.Evaluator, fsys fs.FS) *Decoder {
	return &Decoder{
		eval: eval,
		fsys: fsys,
	}
}

// Decode reads the program stored under name in the file system of d.
func (d *Decoder) Decode(name string) (*xslt.Stylesheet, error) {
	sheet := xslt.NewStylesheet()
	if err := d.load(sheet, path.Clean(name)); err != nil {
		return nil, err
	}
	return sheet, nil
}

// Decode reads a program from r. Imports and includes can not be resolved
// and are rejected.
func Decode(r io.Reader, eval xslt.Evaluator) (*xslt.Stylesheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var (
		d     = NewDecoder(eval, nil)
		sheet = xslt.NewStylesheet()
	)
	if err := d.decode(sheet, "", data); err != nil {
		return nil, err
	}
	return sheet, nil
}

func DecodeString(str string, eval xslt.Evaluator) (*xslt.Stylesheet, error) {
	return Decode(strings.NewReader(str), eval)
}

// DecodeFile reads the program in file. Imports are resolved from the
// directory of file.
func DecodeFile(file string, eval xslt.Evaluator) (*xslt.Stylesheet, error) {
	dir, name := filepath.Split(file)
	if dir == "" {
		dir = "."
	}
	return NewDecoder(eval, os.DirFS(dir)).Decode(name)
}

func (d *Decoder) load(sheet *xslt.Stylesheet, name string) error {
	if d.fsys == nil {
		return &DecodeError{
			Code:    CodeImport,
			File:    name,
			Message: "programs can only be loaded from a file system",
		}
	}
	if slices.Contains(d.loading, name) {
		return &DecodeError{
			Code:    CodeImport,
			File:    name,
			Message: "circular import",
		}
	}
	d.loading = append(d.loading, name)
	defer func() {
		d.loading = d.loading[:len(d.loading)-1]
	}()

	data, err := fs.ReadFile(d.fsys, name)
	if err != nil {
		return &DecodeError{
			Code: CodeImport,
			File: name,
			Err:  err,
		}
	}
	return d.decode(sheet, name, data)
}

func (d *Decoder) decode(sheet *xslt.Stylesheet, file string, data []byte) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return &DecodeError{
			Code: CodeSyntax,
			File: file,
			Err:  err,
		}
	}
	r := reader{
		Decoder: d,
		file:    file,
		ns:      scope.New(),
		exclude: make(map[string]struct{}),
	}
	return r.program(sheet, &doc)
}

// reader holds the state of the decoding of one program file.
type reader struct {
	*Decoder

	file    string
	ns      *scope.Manager
	exclude map[string]struct{}

	literal int
	slots   int
}

func (r *reader) program(sheet *xslt.Stylesheet, doc *yaml.Node) error {
	node := doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	f, err := r.fields(node, "", "exclude-result-prefixes", "output", "imports", "includes", "modes", "keys", "attribute-sets", "globals", "templates")
	if err != nil {
		return err
	}
	if err := r.declare(node, ""); err != nil {
		return err
	}
	if err := r.excludes(f); err != nil {
		return err
	}
	if err := r.imports(sheet, f); err != nil {
		return err
	}
	out, err := r.output(f)
	if err != nil {
		return err
	}
	sheet.Output = sheet.Output.Merge(out)

	if err := r.modes(sheet, f); err != nil {
		return err
	}
	if err := r.keys(sheet, f); err != nil {
		return err
	}
	if err := r.attributeSets(sheet, f); err != nil {
		return err
	}
	if err := r.globals(sheet, f); err != nil {
		return err
	}
	return r.templates(sheet, f)
}

func (r *reader) resolve(name string) string {
	if path.IsAbs(name) {
		return path.Clean(strings.TrimPrefix(name, "/"))
	}
	return path.Join(path.Dir(r.file), name)
}

// imports loads the imported programs first then the included ones into
// sheet. The output declarations of imports have a lower precedence than the
// one of the importing program.
func (r *reader) imports(sheet *xslt.Stylesheet, f *fields) error {
	list, err := f.names("imports")
	if err != nil {
		return err
	}
	for _, name := range list {
		other := xslt.NewStylesheet()
		if err := r.load(other, r.resolve(name)); err != nil {
			return err
		}
		sheet.Import(other)
		sheet.Output = sheet.Output.Merge(other.Output)
	}
	list, err = f.names("includes")
	if err != nil {
		return err
	}
	for _, name := range list {
		if err := r.load(sheet, r.resolve(name)); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) excludes(f *fields) error {
	list, err := f.names("exclude-result-prefixes")
	if err != nil {
		return err
	}
	for _, prefix := range list {
		if prefix == "#default" {
			prefix = ""
		}
		uri, ok := r.ns.Resolve(prefix)
		if !ok {
			return r.fail(CodeUnboundPrefix, f.node("exclude-result-prefixes"), f.path("exclude-result-prefixes"), prefix, nil)
		}
		r.exclude[uri] = struct{}{}
	}
	return nil
}

func (r *reader) output(f *fields) (output.Output, error) {
	var out output.Output
	if !f.has("output") {
		return out, nil
	}
	at := f.path("output")
	o, err := r.fields(f.node("output"), at, "method", "version", "encoding", "media-type", "indent", "omit-xml-declaration", "standalone", "doctype-public", "doctype-system", "cdata-section-elements", "include-content-type")
	if err != nil {
		return out, err
	}
	method, _, err := o.string("method")
	if err != nil {
		return out, err
	}
	if out.Method, err = output.ParseMethod(method); err != nil {
		return out, r.fail(CodeInvalidValue, o.node("method"), o.path("method"), "", err)
	}
	if out.Version, _, err = o.string("version"); err != nil {
		return out, err
	}
	if out.Encoding, _, err = o.string("encoding"); err != nil {
		return out, err
	}
	if out.MediaType, _, err = o.string("media-type"); err != nil {
		return out, err
	}
	if out.DoctypePublic, _, err = o.string("doctype-public"); err != nil {
		return out, err
	}
	if out.DoctypeSystem, _, err = o.string("doctype-system"); err != nil {
		return out, err
	}
	if out.Indent, _, err = o.bool("indent"); err != nil {
		return out, err
	}
	if out.OmitProlog, _, err = o.bool("omit-xml-declaration"); err != nil {
		return out, err
	}
	if out.Standalone, _, err = o.string("standalone"); err != nil {
		return out, err
	}
	switch out.Standalone {
	case "", "yes", "no":
	default:
		return out, r.fail(CodeInvalidValue, o.node("standalone"), o.path("standalone"), out.Standalone, nil)
	}
	include, set, err := o.bool("include-content-type")
	if err != nil {
		return out, err
	}
	out.OmitContentType = set && !include

	names, err := o.names("cdata-section-elements")
	if err != nil {
		return out, err
	}
	for _, n := range names {
		qn, err := r.qname(n, o.node("cdata-section-elements"), o.path("cdata-section-elements"), false)
		if err != nil {
			return out, err
		}
		out.CDataElements = append(out.CDataElements, qn)
	}
	return out, nil
}

func (r *reader) modes(sheet *xslt.Stylesheet, f *fields) error {
	list, err := f.list("modes")
	if err != nil {
		return err
	}
	for i, n := range list {
		at := index(f.path("modes"), i)
		m, err := r.fields(n, at, "name", "on-no-match")
		if err != nil {
			return err
		}
		name, _, err := m.string("name")
		if err != nil {
			return err
		}
		str, _, err := m.string("on-no-match")
		if err != nil {
			return err
		}
		policy, err := xslt.ParseNoMatch(str)
		if err != nil {
			return r.fail(CodeInvalidValue, m.node("on-no-match"), m.path("on-no-match"), "", err)
		}
		sheet.DefineMode(name, policy)
	}
	return nil
}

func (r *reader) keys(sheet *xslt.Stylesheet, f *fields) error {
	list, err := f.list("keys")
	if err != nil {
		return err
	}
	for i, n := range list {
		at := index(f.path("keys"), i)
		k, err := r.fields(n, at, "name", "match", "use")
		if err != nil {
			return err
		}
		var key xslt.Key
		if key.Name, err = k.require("name"); err != nil {
			return err
		}
		if key.Match, err = k.pattern("match", true); err != nil {
			return err
		}
		if key.Use, err = k.expr("use", true); err != nil {
			return err
		}
		sheet.AddKey(&key)
	}
	return nil
}

func (r *reader) attributeSets(sheet *xslt.Stylesheet, f *fields) error {
	list, err := f.list("attribute-sets")
	if err != nil {
		return err
	}
	for i, n := range list {
		at := index(f.path("attribute-sets"), i)
		s, err := r.fields(n, at, "name", "use-attribute-sets", "attributes")
		if err != nil {
			return err
		}
		var set xslt.AttributeSet
		if set.Name, err = s.require("name"); err != nil {
			return err
		}
		if set.Sets, err = s.names("use-attribute-sets"); err != nil {
			return err
		}
		if set.Attrs, err = s.body("attributes"); err != nil {
			return err
		}
		for j, a := range set.Attrs {
			if _, ok := a.(*xslt.Attribute); !ok {
				return r.fail(CodeMisplacedInstruction, s.node("attributes"), index(s.path("attributes"), j), xslt.Instruction(a)+" in attribute set", nil)
			}
		}
		sheet.AddAttributeSet(&set)
	}
	return nil
}

func (r *reader) globals(sheet *xslt.Stylesheet, f *fields) error {
	list, err := f.list("globals")
	if err != nil {
		return err
	}
	for i, n := range list {
		at := index(f.path("globals"), i)
		a, err := r.instruction(n, at)
		if err != nil {
			return err
		}
		err = sheet.AddGlobal(a)
		switch {
		case err == nil:
		case errors.Is(err, xslt.ErrDuplicate):
			return r.fail(CodeDuplicate, n, at, "", err)
		default:
			return r.fail(CodeMisplacedInstruction, n, at, "", err)
		}
	}
	return nil
}

func (r *reader) templates(sheet *xslt.Stylesheet, f *fields) error {
	list, err := f.list("templates")
	if err != nil {
		return err
	}
	for i, n := range list {
		at := index(f.path("templates"), i)
		t, err := r.template(n, at)
		if err != nil {
			return err
		}
		if err := sheet.AddTemplate(t); err != nil {
			return r.fail(CodeDuplicate, n, at, "", err)
		}
	}
	return nil
}

func (r *reader) template(node *yaml.Node, at string) (*xslt.Template, error) {
	r.ns.Push()
	defer r.ns.Pop()
	if err := r.declare(node, at); err != nil {
		return nil, err
	}
	f, err := r.fields(node, at, "name", "match", "mode", "priority", "body")
	if err != nil {
		return nil, err
	}
	var t xslt.Template
	if t.Name, _, err = f.string("name"); err != nil {
		return nil, err
	}
	if t.Match, err = f.pattern("match", false); err != nil {
		return nil, err
	}
	if t.Name == "" && len(t.Match) == 0 {
		return nil, r.fail(CodeMissingField, node, at, "template without name nor match", nil)
	}
	if t.Mode, _, err = f.string("mode"); err != nil {
		return nil, err
	}
	if t.Priority, t.Explicit, err = f.float("priority"); err != nil {
		return nil, err
	}
	r.slots = 0
	if t.Children, err = r.sequence(f.values["body"], f.path("body"), true); err != nil {
		return nil, err
	}
	t.Slots = r.slots
	return &t, nil
}

// declare binds the prefixes listed under the namespaces key of node in the
// current scope.
func (r *reader) declare(node *yaml.Node, at string) error {
	node = resolve(node)
	if node.Kind != yaml.MappingNode {
		return nil
	}
	var decls *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == keyNamespaces {
			decls = resolve(node.Content[i+1])
			break
		}
	}
	if decls == nil || isNull(decls) {
		return nil
	}
	at = join(at, keyNamespaces)
	if decls.Kind != yaml.MappingNode {
		return r.fail(CodeInvalidValue, decls, at, "mapping of prefixes expected", nil)
	}
	for i := 0; i+1 < len(decls.Content); i += 2 {
		prefix, uri := decls.Content[i], resolve(decls.Content[i+1])
		if uri.Kind != yaml.ScalarNode {
			return r.fail(CodeInvalidValue, uri, join(at, prefix.Value), "uri expected", nil)
		}
		p := prefix.Value
		if p == "#default" {
			p = ""
		}
		if err := r.ns.Declare(p, uri.Value); err != nil {
			return r.fail(CodeInvalidValue, prefix, join(at, prefix.Value), "", err)
		}
	}
	return nil
}

func (r *reader) qname(str string, node *yaml.Node, at string, attr bool) (xml.QName, error) {
	qn, err := xml.ParseName(strings.TrimSpace(str))
	if err != nil {
		return qn, r.fail(CodeInvalidValue, node, at, "", err)
	}
	if attr && qn.Space == "" {
		return qn, nil
	}
	uri, ok := r.ns.Resolve(qn.Space)
	if !ok {
		return qn, r.fail(CodeUnboundPrefix, node, at, qn.Space, nil)
	}
	qn.Uri = uri
	return qn, nil
}

func (r *reader) compile(src string, node *yaml.Node, at string) (xslt.Expr, error) {
	expr, err := r.eval.Compile(src, r.ns.InScope())
	if err != nil {
		return nil, r.fail(CodeInvalidExpression, node, at, "", err)
	}
	return expr, nil
}

func (r *reader) fail(code Code, node *yaml.Node, at, msg string, err error) error {
	e := DecodeError{
		Code:    code,
		File:    r.file,
		Path:    at,
		Message: msg,
		Err:     err,
	}
	if node != nil {
		e.Line = node.Line
		e.Column = node.Column
	}
	return &e
}

// fields gives access to the values of a mapping whose keys are checked
// against a list of known names.
type fields struct {
	r      *reader
	at     string
	self   *yaml.Node
	values map[string]*yaml.Node
}

func (r *reader) fields(node *yaml.Node, at string, known ...string) (*fields, error) {
	f := fields{
		r:      r,
		at:     at,
		self:   node,
		values: make(map[string]*yaml.Node),
	}
	node = resolve(node)
	if isNull(node) {
		return &f, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, r.fail(CodeInvalidValue, node, at, "mapping expected", nil)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if key.Value == keyNamespaces {
			continue
		}
		if !slices.Contains(known, key.Value) {
			return nil, r.fail(CodeUnknownField, key, at, key.Value, nil)
		}
		if _, ok := f.values[key.Value]; ok {
			return nil, r.fail(CodeDuplicate, key, at, key.Value, nil)
		}
		f.values[key.Value] = resolve(node.Content[i+1])
	}
	return &f, nil
}

func (f *fields) has(key string) bool {
	n, ok := f.values[key]
	return ok && !isNull(n)
}

// node gives the position of key for errors: its value or the mapping itself
// when key is not set.
func (f *fields) node(key string) *yaml.Node {
	if n, ok := f.values[key]; ok {
		return n
	}
	return f.self
}

func (f *fields) path(key string) string {
	return join(f.at, key)
}

func (f *fields) string(key string) (string, bool, error) {
	if !f.has(key) {
		return "", false, nil
	}
	n := f.values[key]
	if n.Kind != yaml.ScalarNode {
		return "", false, f.r.fail(CodeInvalidValue, n, f.path(key), "scalar expected", nil)
	}
	return n.Value, true, nil
}

func (f *fields) require(key string) (string, error) {
	str, ok, err := f.string(key)
	if err == nil && (!ok || str == "") {
		err = f.r.fail(CodeMissingField, f.self, f.at, key, nil)
	}
	return str, err
}

func (f *fields) bool(key string) (bool, bool, error) {
	str, ok, err := f.string(key)
	if err != nil || !ok {
		return false, ok, err
	}
	switch strings.ToLower(str) {
	case "true", "yes":
		return true, true, nil
	case "false", "no":
		return false, true, nil
	default:
		return false, true, f.r.fail(CodeInvalidValue, f.values[key], f.path(key), str+": boolean expected", nil)
	}
}

func (f *fields) float(key string) (float64, bool, error) {
	str, ok, err := f.string(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, true, f.r.fail(CodeInvalidValue, f.values[key], f.path(key), str+": number expected", nil)
	}
	return v, true, nil
}

func (f *fields) list(key string) ([]*yaml.Node, error) {
	if !f.has(key) {
		return nil, nil
	}
	n := f.values[key]
	if n.Kind != yaml.SequenceNode {
		return nil, f.r.fail(CodeInvalidValue, n, f.path(key), "list expected", nil)
	}
	return n.Content, nil
}

// names gives a list of strings given either as a yaml list or as a string
// of names separated by blanks.
func (f *fields) names(key string) ([]string, error) {
	if !f.has(key) {
		return nil, nil
	}
	n := f.values[key]
	switch n.Kind {
	case yaml.ScalarNode:
		return strings.Fields(n.Value), nil
	case yaml.SequenceNode:
		var list []string
		for i, c := range n.Content {
			c = resolve(c)
			if c.Kind != yaml.ScalarNode {
				return nil, f.r.fail(CodeInvalidValue, c, index(f.path(key), i), "name expected", nil)
			}
			list = append(list, c.Value)
		}
		return list, nil
	default:
		return nil, f.r.fail(CodeInvalidValue, n, f.path(key), "list of names expected", nil)
	}
}

func (f *fields) expr(key string, required bool) (xslt.Expr, error) {
	str, ok, err := f.string(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		if required {
			return nil, f.r.fail(CodeMissingField, f.self, f.at, key, nil)
		}
		return nil, nil
	}
	return f.r.compile(str, f.values[key], f.path(key))
}

func (f *fields) pattern(key string, required bool) ([]xslt.Pattern, error) {
	str, ok, err := f.string(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		if required {
			return nil, f.r.fail(CodeMissingField, f.self, f.at, key, nil)
		}
		return nil, nil
	}
	list, err := f.r.eval.CompilePattern(str, f.r.ns.InScope())
	if err != nil {
		return nil, f.r.fail(CodeInvalidPattern, f.values[key], f.path(key), "", err)
	}
	return list, nil
}

func (f *fields) avt(key string, required bool) (xslt.AVT, error) {
	str, ok, err := f.string(key)
	if err != nil {
		return xslt.AVT{}, err
	}
	if !ok {
		if required {
			return xslt.AVT{}, f.r.fail(CodeMissingField, f.self, f.at, key, nil)
		}
		return xslt.AVT{}, nil
	}
	return f.r.avt(str, f.values[key], f.path(key))
}

func (r *reader) avt(str string, node *yaml.Node, at string) (xslt.AVT, error) {
	ns := r.ns.InScope()
	avt, err := xslt.ParseAVT(str, func(src string) (xslt.Expr, error) {
		return r.eval.Compile(src, ns)
	})
	if err != nil {
		code := CodeInvalidExpression
		if errors.Is(err, xslt.ErrTemplate) {
			code = CodeInvalidTemplate
		}
		return avt, r.fail(code, node, at, "", err)
	}
	return avt, nil
}

func (f *fields) body(key string) ([]xslt.Action, error) {
	if !f.has(key) {
		return nil, nil
	}
	return f.r.sequence(f.values[key], f.path(key), false)
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

func join(at, key string) string {
	if at == "" {
		return key
	}
	return at + "." + key
}

func index(at string, ix int) string {
	return fmt.Sprintf("%s[%d]", at, ix)
}
