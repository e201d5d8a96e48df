package xpath

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/midbel/xform/xml"
	"github.com/midbel/xform/xslt"
)

const (
	fnConcat            = "concat"
	fnCurrent           = "current"
	fnKey               = "key"
	fnGenerateId        = "generate-id"
	fnSystemProperty    = "system-property"
	fnFunctionAvailable = "function-available"
)

const (
	Version   = "1.0"
	Vendor    = "xform"
	VendorURL = "https://github.com/midbel/xform"
)

// Function is a function called from expressions. It is registered with
// xslt.WithExtension as part of a Functions under a namespace uri and called
// with a name bound to that uri.
type Function func(args ...xslt.Value) (xslt.Value, error)

type Functions map[string]Function

var core = []string{
	"boolean", "ceiling", "concat", "contains", "count", "false", "floor",
	"lang", "last", "local-name", "name", "namespace-uri", "normalize-space",
	"not", "number", "position", "round", "starts-with", "string",
	"string-length", "substring", "substring-after", "substring-before",
	"sum", "translate", "true",
	fnCurrent, fnKey, fnGenerateId, fnSystemProperty, fnFunctionAvailable,
}

// runtime substitutes values taken from the focus of an evaluation.
type runtime struct {
	engine *Engine
	focus  *xslt.Focus
	ns     namespaces
}

func (r *runtime) variable(name string) (string, error) {
	v, err := r.focus.Variable(name)
	if err != nil {
		return "", err
	}
	return r.literal(v), nil
}

func (r *runtime) position() string {
	return strconv.Itoa(r.focus.Position)
}

func (r *runtime) last() string {
	return strconv.Itoa(r.focus.Size)
}

func (r *runtime) call(name string, args []string) (string, bool, error) {
	var (
		str string
		err error
	)
	switch name {
	case fnCurrent:
		if len(args) != 0 {
			return "", false, arity(name, 0, len(args))
		}
		str = r.nodes([]xml.Node{r.focus.Current()})
	case fnKey:
		str, err = r.key(args)
	case fnGenerateId:
		str, err = r.generateId(args)
	case fnSystemProperty:
		str, err = r.systemProperty(args)
	case fnFunctionAvailable:
		str, err = r.functionAvailable(args)
	default:
		prefix, local, ok := strings.Cut(name, ":")
		if !ok {
			return "", false, nil
		}
		return r.extension(prefix, local, args)
	}
	return str, err == nil, err
}

func (r *runtime) eval(arg string) (xslt.Value, error) {
	c, err := r.engine.prepare(arg, r.ns)
	if err != nil {
		return xslt.Value{}, err
	}
	return r.engine.evaluate(c, r.focus)
}

func (r *runtime) key(args []string) (string, error) {
	if len(args) != 2 {
		return "", arity(fnKey, 2, len(args))
	}
	name, err := r.eval(args[0])
	if err != nil {
		return "", err
	}
	value, err := r.eval(args[1])
	if err != nil {
		return "", err
	}
	values := []string{value.String()}
	if nodes, ok := value.Nodes(); ok {
		values = values[:0]
		for _, n := range nodes {
			values = append(values, n.Value())
		}
	}
	var list []xml.Node
	for _, v := range values {
		found, err := r.focus.Key(name.String(), v)
		if err != nil {
			return "", err
		}
		list = append(list, found...)
	}
	return r.nodes(documentOrder(list)), nil
}

func (r *runtime) generateId(args []string) (string, error) {
	node := r.focus.Node
	switch len(args) {
	case 0:
	case 1:
		v, err := r.eval(args[0])
		if err != nil {
			return "", err
		}
		nodes, ok := v.Nodes()
		if !ok {
			return "", fmt.Errorf("%s: %w: node set expected", fnGenerateId, xslt.ErrType)
		}
		if len(nodes) == 0 {
			return "''", nil
		}
		node = nodes[0]
	default:
		return "", arity(fnGenerateId, 1, len(args))
	}
	return quote(GenerateId(node)), nil
}

// GenerateId gives an identifier for node that is the same for each call
// and different for every other node of the tree.
func GenerateId(node xml.Node) string {
	root := fmt.Sprintf("%p", xml.Root(node))
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(root+node.Identity()))
	return "id" + strings.ReplaceAll(id.String(), "-", "")[:16]
}

func (r *runtime) systemProperty(args []string) (string, error) {
	if len(args) != 1 {
		return "", arity(fnSystemProperty, 1, len(args))
	}
	v, err := r.eval(args[0])
	if err != nil {
		return "", err
	}
	var str string
	switch v.String() {
	case "xsl:version":
		str = Version
	case "xsl:vendor":
		str = Vendor
	case "xsl:vendor-url":
		str = VendorURL
	default:
	}
	return quote(str), nil
}

func (r *runtime) functionAvailable(args []string) (string, error) {
	if len(args) != 1 {
		return "", arity(fnFunctionAvailable, 1, len(args))
	}
	v, err := r.eval(args[0])
	if err != nil {
		return "", err
	}
	name := v.String()
	ok := slices.Contains(core, name)
	if prefix, local, found := strings.Cut(name, ":"); found {
		_, ok = r.function(prefix, local)
	}
	return boolean(ok), nil
}

func (r *runtime) function(prefix, local string) (Function, bool) {
	uri, ok := r.ns.uris[prefix]
	if !ok {
		return nil, false
	}
	obj, ok := r.focus.Extension(uri)
	if !ok {
		return nil, false
	}
	switch fns := obj.(type) {
	case Functions:
		fn, ok := fns[local]
		return fn, ok
	case map[string]Function:
		fn, ok := fns[local]
		return fn, ok
	default:
		return nil, false
	}
}

func (r *runtime) extension(prefix, local string, args []string) (string, bool, error) {
	fn, ok := r.function(prefix, local)
	if !ok {
		return "", false, nil
	}
	values := make([]xslt.Value, 0, len(args))
	for _, a := range args {
		v, err := r.eval(a)
		if err != nil {
			return "", false, err
		}
		values = append(values, v)
	}
	res, err := fn(values...)
	if err != nil {
		return "", false, fmt.Errorf("%s:%s: %w", prefix, local, err)
	}
	return r.literal(res), true, nil
}

// literal gives an expression whose value is v.
func (r *runtime) literal(v xslt.Value) string {
	switch v.Kind() {
	case xslt.KindNumber:
		return number(v.Number())
	case xslt.KindBool:
		return boolean(v.Bool())
	case xslt.KindNodes:
		nodes, _ := v.Nodes()
		return r.nodes(nodes)
	default:
		return quote(v.String())
	}
}

// nodes gives an expression selecting nodes. Nodes of another tree than the
// one of the focus can not be reached by a path and give the string value
// of the first of them.
func (r *runtime) nodes(nodes []xml.Node) string {
	if len(nodes) == 0 {
		return emptySet
	}
	root := xml.Root(r.focus.Node)
	for _, n := range nodes {
		if xml.Root(n) != root {
			return quote(nodes[0].Value())
		}
	}
	paths := make([]string, 0, len(nodes))
	for _, n := range nodes {
		paths = append(paths, locate(n))
	}
	return "(" + strings.Join(paths, " | ") + ")"
}

// locate gives an absolute path selecting node only.
func locate(node xml.Node) string {
	var steps []string
	for n := node; n != nil; n = n.Parent() {
		p := n.Parent()
		if p == nil {
			break
		}
		switch n := n.(type) {
		case *xml.Attribute:
			var ix int
			if el, ok := p.(*xml.Element); ok {
				ix = indexAttr(el, n)
			}
			steps = append(steps, "@*["+strconv.Itoa(ix+1)+"]")
		default:
			var ix int
			for _, c := range xml.Children(p) {
				if visible(c) {
					ix++
				}
				if c == n {
					break
				}
			}
			steps = append(steps, "node()["+strconv.Itoa(ix)+"]")
		}
	}
	if len(steps) == 0 {
		return "/"
	}
	slices.Reverse(steps)
	return "/" + strings.Join(steps, "/")
}

func quote(str string) string {
	switch {
	case !strings.Contains(str, "'"):
		return "'" + str + "'"
	case !strings.Contains(str, `"`):
		return `"` + str + `"`
	default:
		parts := strings.Split(str, "'")
		for i := range parts {
			parts[i] = "'" + parts[i] + "'"
		}
		return "concat(" + strings.Join(parts, `, "'", `) + ")"
	}
}

func number(f float64) string {
	switch {
	case math.IsNaN(f):
		return "number('NaN')"
	case math.IsInf(f, 1):
		return "(1 div 0)"
	case math.IsInf(f, -1):
		return "(-1 div 0)"
	case f < 0:
		return "(" + xslt.FormatNumber(f) + ")"
	default:
		return xslt.FormatNumber(f)
	}
}

func boolean(b bool) string {
	if b {
		return "true()"
	}
	return "false()"
}

func arity(name string, want, got int) error {
	return fmt.Errorf("%s: %w: %d argument(s) expected, got %d", name, xslt.ErrType, want, got)
}
