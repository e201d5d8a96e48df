package program

import (
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xslt"
)

// shape tells which field a scalar or a list given in place of the fields of
// an instruction stands for.
type shape struct {
	scalar string
	list   string
}

var instructions = map[string]shape{
	"sequence":               {list: "body"},
	"if":                     {list: "body"},
	"choose":                 {list: "when"},
	"for-each":               {scalar: "select", list: "body"},
	"apply-templates":        {scalar: "select", list: "with-param"},
	"apply-imports":          {list: "with-param"},
	"call-template":          {scalar: "name", list: "with-param"},
	"element":                {scalar: "name", list: "body"},
	"literal":                {scalar: "name", list: "body"},
	"attribute":              {scalar: "name", list: "body"},
	"use-attribute-sets":     {scalar: "names", list: "names"},
	"text":                   {scalar: "value"},
	"value-of":               {scalar: "select"},
	"copy":                   {list: "body"},
	"copy-of":                {scalar: "select"},
	"comment":                {scalar: "value", list: "body"},
	"processing-instruction": {scalar: "name", list: "body"},
	"namespace":              {scalar: "name", list: "body"},
	"variable":               {scalar: "name", list: "body"},
	"param":                  {scalar: "name", list: "body"},
	"number":                 {scalar: "value"},
	"message":                {scalar: "value", list: "body"},
	"fallback":               {list: "body"},
}

// sequence decodes a list of instructions. Params are accepted before any
// other instruction when params is set.
func (r *reader) sequence(node *yaml.Node, at string, params bool) ([]xslt.Action, error) {
	node = resolve(node)
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, r.fail(CodeInvalidValue, node, at, "list of instructions expected", nil)
	}
	var list []xslt.Action
	for i, n := range node.Content {
		a, err := r.instruction(n, index(at, i))
		if err != nil {
			return nil, err
		}
		if _, ok := a.(*xslt.Param); ok {
			if !params {
				return nil, r.fail(CodeMisplacedInstruction, n, index(at, i), "param after other instructions", nil)
			}
		} else {
			params = false
		}
		list = append(list, a)
	}
	return list, nil
}

func (r *reader) instruction(node *yaml.Node, at string) (xslt.Action, error) {
	node = resolve(node)
	switch {
	case isNull(node):
		return nil, r.fail(CodeInvalidValue, node, at, "empty instruction", nil)
	case node.Kind == yaml.ScalarNode:
		return &xslt.Text{Value: node.Value}, nil
	case node.Kind != yaml.MappingNode || len(node.Content) != 2:
		return nil, r.fail(CodeInvalidValue, node, at, "instruction expects a single key", nil)
	default:
	}
	var (
		key   = node.Content[0]
		value = resolve(node.Content[1])
		name  = key.Value
	)
	at = join(at, name)

	sh, ok := instructions[name]
	if !ok {
		return r.unknown(key, value, at)
	}
	switch value.Kind {
	case yaml.ScalarNode:
		if sh.scalar != "" && !isNull(value) {
			value = wrap(sh.scalar, value)
		}
	case yaml.SequenceNode:
		if sh.list != "" {
			value = wrap(sh.list, value)
		}
	default:
	}

	r.ns.Push()
	defer r.ns.Pop()
	if err := r.declare(value, at); err != nil {
		return nil, err
	}

	switch name {
	case "sequence":
		return r.decodeBlock(value, at)
	case "if":
		return r.decodeIf(value, at)
	case "choose":
		return r.decodeChoose(value, at)
	case "for-each":
		return r.decodeForEach(value, at)
	case "apply-templates":
		return r.decodeApply(value, at)
	case "apply-imports":
		return r.decodeImports(value, at)
	case "call-template":
		return r.decodeCall(value, at)
	case "element":
		return r.decodeElement(value, at)
	case "literal":
		return r.decodeLiteral(value, at)
	case "attribute":
		return r.decodeAttribute(value, at)
	case "use-attribute-sets":
		return r.decodeSets(value, at)
	case "text":
		return r.decodeText(value, at)
	case "value-of":
		return r.decodeValueOf(value, at)
	case "copy":
		return r.decodeCopy(value, at)
	case "copy-of":
		return r.decodeCopyOf(value, at)
	case "comment":
		return r.decodeComment(value, at)
	case "processing-instruction":
		return r.decodeInstruction(value, at)
	case "namespace":
		return r.decodeNamespace(value, at)
	case "variable":
		return r.decodeVariable(value, at)
	case "param":
		return r.decodeParam(value, at)
	case "number":
		return r.decodeNumber(value, at)
	case "message":
		return r.decodeMessage(value, at)
	case "fallback":
		return r.decodeFallback(value, at)
	default:
		return nil, r.fail(CodeUnknownInstruction, key, at, name, nil)
	}
}

// unknown replaces an instruction that is not supported by its fallback when
// it has one.
func (r *reader) unknown(key, value *yaml.Node, at string) (xslt.Action, error) {
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			if value.Content[i].Value != "fallback" {
				continue
			}
			children, err := r.sequence(value.Content[i+1], join(at, "fallback"), false)
			if err != nil {
				return nil, err
			}
			return &xslt.Fallback{Children: children}, nil
		}
	}
	return nil, r.fail(CodeUnknownInstruction, key, at, key.Value, nil)
}

func wrap(field string, value *yaml.Node) *yaml.Node {
	key := yaml.Node{
		Kind:   yaml.ScalarNode,
		Tag:    "!!str",
		Value:  field,
		Line:   value.Line,
		Column: value.Column,
	}
	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{&key, value},
		Line:    value.Line,
		Column:  value.Column,
	}
}

func (r *reader) decodeBlock(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "body")
	if err != nil {
		return nil, err
	}
	var a xslt.Block
	a.Children, err = f.body("body")
	return &a, err
}

func (r *reader) decodeIf(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "test", "body")
	if err != nil {
		return nil, err
	}
	var a xslt.If
	if a.Test, err = f.expr("test", true); err != nil {
		return nil, err
	}
	a.Children, err = f.body("body")
	return &a, err
}

func (r *reader) decodeChoose(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "when", "otherwise")
	if err != nil {
		return nil, err
	}
	list, err := f.list("when")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, r.fail(CodeMissingField, node, at, "when", nil)
	}
	var a xslt.Choose
	for i, n := range list {
		w, err := r.fields(n, index(f.path("when"), i), "test", "body")
		if err != nil {
			return nil, err
		}
		var when xslt.When
		if when.Test, err = w.expr("test", true); err != nil {
			return nil, err
		}
		if when.Children, err = w.body("body"); err != nil {
			return nil, err
		}
		a.When = append(a.When, when)
	}
	a.Otherwise, err = f.body("otherwise")
	return &a, err
}

func (r *reader) decodeForEach(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "select", "sort", "body")
	if err != nil {
		return nil, err
	}
	var a xslt.ForEach
	if a.Select, err = f.expr("select", true); err != nil {
		return nil, err
	}
	if a.Sort, err = r.decodeSort(f); err != nil {
		return nil, err
	}
	a.Children, err = f.body("body")
	return &a, err
}

func (r *reader) decodeSort(f *fields) ([]xslt.Sort, error) {
	if f.has("sort") && f.values["sort"].Kind == yaml.ScalarNode {
		f.values["sort"] = &yaml.Node{
			Kind:    yaml.SequenceNode,
			Content: []*yaml.Node{f.values["sort"]},
		}
	}
	list, err := f.list("sort")
	if err != nil {
		return nil, err
	}
	var keys []xslt.Sort
	for i, n := range list {
		n = resolve(n)
		if n.Kind == yaml.ScalarNode {
			n = wrap("select", n)
		}
		s, err := r.fields(n, index(f.path("sort"), i), "select", "lang", "data-type", "order", "case-order")
		if err != nil {
			return nil, err
		}
		var key xslt.Sort
		if key.Select, err = s.expr("select", false); err != nil {
			return nil, err
		}
		if key.Lang, err = s.avt("lang", false); err != nil {
			return nil, err
		}
		if key.DataType, err = s.avt("data-type", false); err != nil {
			return nil, err
		}
		if key.Order, err = s.avt("order", false); err != nil {
			return nil, err
		}
		if key.CaseOrder, err = s.avt("case-order", false); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (r *reader) decodeParams(f *fields) ([]*xslt.WithParam, error) {
	list, err := f.list("with-param")
	if err != nil {
		return nil, err
	}
	var params []*xslt.WithParam
	for i, n := range list {
		at := index(f.path("with-param"), i)
		w, err := r.fields(n, at, "name", "select", "body")
		if err != nil {
			return nil, err
		}
		var p xslt.WithParam
		if p.Name, err = w.require("name"); err != nil {
			return nil, err
		}
		if slices.ContainsFunc(params, func(other *xslt.WithParam) bool { return other.Name == p.Name }) {
			return nil, r.fail(CodeDuplicate, n, at, p.Name, nil)
		}
		if p.Select, p.Children, err = r.selectOrBody(w); err != nil {
			return nil, err
		}
		params = append(params, &p)
	}
	return params, nil
}

func (r *reader) decodeApply(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "select", "mode", "sort", "with-param")
	if err != nil {
		return nil, err
	}
	var a xslt.ApplyTemplates
	if a.Select, err = f.expr("select", false); err != nil {
		return nil, err
	}
	if a.Mode, _, err = f.string("mode"); err != nil {
		return nil, err
	}
	if a.Sort, err = r.decodeSort(f); err != nil {
		return nil, err
	}
	a.Params, err = r.decodeParams(f)
	return &a, err
}

func (r *reader) decodeImports(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "with-param")
	if err != nil {
		return nil, err
	}
	var a xslt.ApplyImports
	a.Params, err = r.decodeParams(f)
	return &a, err
}

func (r *reader) decodeCall(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "name", "with-param")
	if err != nil {
		return nil, err
	}
	var a xslt.CallTemplate
	if a.Name, err = f.require("name"); err != nil {
		return nil, err
	}
	a.Params, err = r.decodeParams(f)
	return &a, err
}

func (r *reader) decodeElement(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "name", "namespace", "use-attribute-sets", "body")
	if err != nil {
		return nil, err
	}
	a := xslt.Element{
		Namespaces: r.ns.InScope(),
	}
	if a.Name, err = f.avt("name", true); err != nil {
		return nil, err
	}
	if a.Namespace, err = f.avt("namespace", false); err != nil {
		return nil, err
	}
	if a.Sets, err = f.names("use-attribute-sets"); err != nil {
		return nil, err
	}
	a.Children, err = f.body("body")
	return &a, err
}

// decodeLiteral creates a literal result element. The outermost literal
// element of a body carries every namespace in scope, the ones nested in it
// only those they declare.
func (r *reader) decodeLiteral(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "name", "attributes", "use-attribute-sets", "body")
	if err != nil {
		return nil, err
	}
	name, err := f.require("name")
	if err != nil {
		return nil, err
	}
	var a xslt.LiteralElement
	if a.Name, err = r.qname(name, f.node("name"), f.path("name"), false); err != nil {
		return nil, err
	}
	if r.literal == 0 {
		a.Namespaces = r.results(r.ns.InScope(), true)
	} else {
		a.Namespaces = r.results(r.ns.Bindings(), false)
	}
	if f.has("attributes") {
		attrs := f.values["attributes"]
		if attrs.Kind != yaml.MappingNode {
			return nil, r.fail(CodeInvalidValue, attrs, f.path("attributes"), "mapping expected", nil)
		}
		for i := 0; i+1 < len(attrs.Content); i += 2 {
			var (
				key   = attrs.Content[i]
				value = resolve(attrs.Content[i+1])
				where = join(f.path("attributes"), key.Value)
			)
			if value.Kind != yaml.ScalarNode {
				return nil, r.fail(CodeInvalidValue, value, where, "scalar expected", nil)
			}
			var attr xslt.LiteralAttribute
			if attr.Name, err = r.qname(key.Value, key, where, true); err != nil {
				return nil, err
			}
			if attr.Value, err = r.avt(value.Value, value, where); err != nil {
				return nil, err
			}
			a.Attrs = append(a.Attrs, attr)
		}
	}
	if a.Sets, err = f.names("use-attribute-sets"); err != nil {
		return nil, err
	}
	r.literal++
	defer func() {
		r.literal--
	}()
	a.Children, err = f.body("body")
	return &a, err
}

// results filters the bindings copied to the result tree. InScope lists them
// nearest first and they are reversed to keep the order of declaration.
func (r *reader) results(list []scope.Binding, reverse bool) []scope.Binding {
	var res []scope.Binding
	for _, b := range list {
		if b.Prefix == scope.PrefixXML {
			continue
		}
		if _, ok := r.exclude[b.Uri]; ok {
			continue
		}
		res = append(res, b)
	}
	if reverse {
		slices.Reverse(res)
	}
	return res
}

func (r *reader) decodeAttribute(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "name", "namespace", "value", "select", "body")
	if err != nil {
		return nil, err
	}
	a := xslt.Attribute{
		Namespaces: r.ns.InScope(),
	}
	if a.Name, err = f.avt("name", true); err != nil {
		return nil, err
	}
	if a.Namespace, err = f.avt("namespace", false); err != nil {
		return nil, err
	}
	a.Children, err = r.content(f)
	return &a, err
}

func (r *reader) decodeSets(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "names")
	if err != nil {
		return nil, err
	}
	var a xslt.UseAttributeSets
	if a.Names, err = f.names("names"); err != nil {
		return nil, err
	}
	if len(a.Names) == 0 {
		return nil, r.fail(CodeMissingField, node, at, "names", nil)
	}
	return &a, nil
}

func (r *reader) decodeText(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "value", "disable-output-escaping")
	if err != nil {
		return nil, err
	}
	var a xslt.Text
	if a.Value, _, err = f.string("value"); err != nil {
		return nil, err
	}
	a.Raw, _, err = f.bool("disable-output-escaping")
	return &a, err
}

func (r *reader) decodeValueOf(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "select", "disable-output-escaping")
	if err != nil {
		return nil, err
	}
	var a xslt.ValueOf
	if a.Select, err = f.expr("select", false); err != nil {
		return nil, err
	}
	a.Raw, _, err = f.bool("disable-output-escaping")
	return &a, err
}

func (r *reader) decodeCopy(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "use-attribute-sets", "body")
	if err != nil {
		return nil, err
	}
	var a xslt.Copy
	if a.Sets, err = f.names("use-attribute-sets"); err != nil {
		return nil, err
	}
	a.Children, err = f.body("body")
	return &a, err
}

func (r *reader) decodeCopyOf(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "select")
	if err != nil {
		return nil, err
	}
	var a xslt.CopyOf
	a.Select, err = f.expr("select", false)
	return &a, err
}

func (r *reader) decodeComment(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "value", "select", "body")
	if err != nil {
		return nil, err
	}
	var a xslt.Comment
	a.Children, err = r.content(f)
	return &a, err
}

func (r *reader) decodeInstruction(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "name", "value", "select", "body")
	if err != nil {
		return nil, err
	}
	var a xslt.ProcessingInstruction
	if a.Name, err = f.avt("name", true); err != nil {
		return nil, err
	}
	a.Children, err = r.content(f)
	return &a, err
}

func (r *reader) decodeNamespace(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "name", "value", "select", "body")
	if err != nil {
		return nil, err
	}
	var a xslt.Namespace
	if a.Name, err = f.avt("name", false); err != nil {
		return nil, err
	}
	if !a.Name.Defined() {
		a.Name = xslt.Literal("")
	}
	a.Children, err = r.content(f)
	return &a, err
}

func (r *reader) decodeVariable(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "name", "select", "body")
	if err != nil {
		return nil, err
	}
	var a xslt.Variable
	if a.Name, err = f.require("name"); err != nil {
		return nil, err
	}
	if a.Select, a.Children, err = r.selectOrBody(f); err != nil {
		return nil, err
	}
	r.slots++
	return &a, nil
}

func (r *reader) decodeParam(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "name", "select", "body", "required")
	if err != nil {
		return nil, err
	}
	var a xslt.Param
	if a.Name, err = f.require("name"); err != nil {
		return nil, err
	}
	if a.Select, a.Children, err = r.selectOrBody(f); err != nil {
		return nil, err
	}
	if a.Required, _, err = f.bool("required"); err != nil {
		return nil, err
	}
	r.slots++
	return &a, nil
}

func (r *reader) decodeNumber(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "level", "count", "from", "value", "format", "lang", "letter-value", "grouping-separator", "grouping-size")
	if err != nil {
		return nil, err
	}
	var a xslt.Number
	if a.Level, _, err = f.string("level"); err != nil {
		return nil, err
	}
	switch a.Level {
	case "":
		a.Level = xslt.LevelSingle
	case xslt.LevelSingle, xslt.LevelMultiple, xslt.LevelAny:
	default:
		return nil, r.fail(CodeInvalidValue, f.node("level"), f.path("level"), a.Level, nil)
	}
	if a.Count, err = f.pattern("count", false); err != nil {
		return nil, err
	}
	if a.From, err = f.pattern("from", false); err != nil {
		return nil, err
	}
	if a.Value, err = f.expr("value", false); err != nil {
		return nil, err
	}
	if a.Format, err = f.avt("format", false); err != nil {
		return nil, err
	}
	if a.Lang, err = f.avt("lang", false); err != nil {
		return nil, err
	}
	if a.Letter, err = f.avt("letter-value", false); err != nil {
		return nil, err
	}
	if a.GroupSep, err = f.avt("grouping-separator", false); err != nil {
		return nil, err
	}
	a.GroupSize, err = f.avt("grouping-size", false)
	return &a, err
}

func (r *reader) decodeMessage(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "terminate", "value", "select", "body")
	if err != nil {
		return nil, err
	}
	var a xslt.Message
	if a.Terminate, err = f.avt("terminate", false); err != nil {
		return nil, err
	}
	a.Children, err = r.content(f)
	return &a, err
}

func (r *reader) decodeFallback(node *yaml.Node, at string) (xslt.Action, error) {
	f, err := r.fields(node, at, "body")
	if err != nil {
		return nil, err
	}
	var a xslt.Fallback
	a.Children, err = f.body("body")
	return &a, err
}

// content gives the actions producing the value of a node: a literal value,
// the string value of an expression or a body. They exclude each other.
func (r *reader) content(f *fields) ([]xslt.Action, error) {
	if err := exclusive(f, "value", "select", "body"); err != nil {
		return nil, err
	}
	switch {
	case f.has("value"):
		str, _, err := f.string("value")
		if err != nil {
			return nil, err
		}
		return []xslt.Action{&xslt.Text{Value: str}}, nil
	case f.has("select"):
		expr, err := f.expr("select", true)
		if err != nil {
			return nil, err
		}
		return []xslt.Action{&xslt.ValueOf{Select: expr}}, nil
	default:
		return f.body("body")
	}
}

func (r *reader) selectOrBody(f *fields) (xslt.Expr, []xslt.Action, error) {
	if err := exclusive(f, "select", "body"); err != nil {
		return nil, nil, err
	}
	expr, err := f.expr("select", false)
	if err != nil {
		return nil, nil, err
	}
	body, err := f.body("body")
	return expr, body, err
}

func exclusive(f *fields, keys ...string) error {
	var set []string
	for _, k := range keys {
		if f.has(k) {
			set = append(set, k)
		}
	}
	if len(set) > 1 {
		return f.r.fail(CodeInvalidValue, f.node(set[1]), f.path(set[1]), set[0]+" and "+set[1]+" can not be used together", nil)
	}
	return nil
}
