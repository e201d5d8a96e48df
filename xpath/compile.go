// Package xpath evaluates the expressions and patterns of stylesheets with
// github.com/antchfx/xpath. Variables, the focus and the functions the query
// engine does not know are substituted in the source of an expression before
// it is compiled.
package xpath

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/antchfx/xpath"

	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
	"github.com/midbel/xform/xslt"
)

const (
	CodeGenericError = "XPST0003"
	CodeEvaluation   = "XPDY0050"
)

var ErrEvaluation = errors.New("evaluation error")

type SyntaxError struct {
	Code   string
	Expr   string
	Cause  string
	Offset int
}

func syntaxError(expr, cause string, offset int) error {
	return SyntaxError{
		Code:   CodeGenericError,
		Expr:   expr,
		Cause:  cause,
		Offset: offset,
	}
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Expr, e.Cause)
}

const cacheLimit = 4096

// Engine implements xslt.Evaluator. It keeps the queries it compiled and can
// be shared by concurrent executions.
type Engine struct {
	mu    sync.Mutex
	cache map[string]*xpath.Expr
}

var _ xslt.Evaluator = (*Engine)(nil)

func New() *Engine {
	return &Engine{
		cache: make(map[string]*xpath.Expr),
	}
}

type namespaces struct {
	uris map[string]string
	key  string
}

func bindNamespaces(list []scope.Binding) namespaces {
	uris := map[string]string{
		scope.PrefixXML: scope.NamespaceXML,
	}
	for _, b := range list {
		if b.Prefix == "" {
			continue
		}
		if _, ok := uris[b.Prefix]; !ok {
			uris[b.Prefix] = b.Uri
		}
	}
	var key strings.Builder
	for _, p := range slices.Sorted(maps.Keys(uris)) {
		key.WriteString(p)
		key.WriteByte('=')
		key.WriteString(uris[p])
		key.WriteByte(';')
	}
	return namespaces{
		uris: uris,
		key:  key.String(),
	}
}

// compiled is an expression ready to be evaluated. A static expression is
// compiled once; the others are rewritten for each focus.
type compiled struct {
	src    string
	tokens []Token
	ns     namespaces
	static *xpath.Expr

	// whole is set when the expression is a variable reference only.
	whole string
	// head is set when the expression is a path starting with a variable
	// and tail is the rest of the path.
	head string
	tail *compiled
}

func (c *compiled) String() string {
	return c.src
}

func (e *Engine) Compile(expr string, ns []scope.Binding) (xslt.Expr, error) {
	return e.prepare(expr, bindNamespaces(ns))
}

func (e *Engine) prepare(expr string, ns namespaces) (*compiled, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, syntaxError(expr, "empty expression", 0)
	}
	tokens, err := Tokenize(expr)
	if err != nil {
		return nil, err
	}
	c := compiled{
		src:    expr,
		tokens: tokens,
		ns:     ns,
	}
	solid := solidTokens(tokens)
	if len(solid) == 1 && solid[0].Type == Variable {
		c.whole = solid[0].Literal
		return &c, nil
	}
	if len(solid) > 2 && solid[0].Type == Variable && solid[1].Type == slash && isPath(solid[1:]) {
		c.head = solid[0].Literal
		c.tail, err = e.prepare("."+expr[solid[1].Offset:], ns)
		return &c, err
	}
	src, dynamic, err := rewrite(expr, tokens, placeholder{})
	if err != nil {
		return nil, err
	}
	q, err := e.query(src, ns)
	if err != nil {
		return nil, err
	}
	if !dynamic {
		c.static = q
	}
	return &c, nil
}

// query compiles src with the namespaces or gives it from the cache.
func (e *Engine) query(src string, ns namespaces) (*xpath.Expr, error) {
	key := ns.key + "\x00" + src

	e.mu.Lock()
	defer e.mu.Unlock()
	if q, ok := e.cache[key]; ok {
		return q, nil
	}
	q, err := xpath.CompileWithNS(src, ns.uris)
	if err != nil {
		return nil, syntaxError(src, err.Error(), 0)
	}
	if len(e.cache) >= cacheLimit {
		clear(e.cache)
	}
	e.cache[key] = q
	return q, nil
}

func (e *Engine) Evaluate(expr xslt.Expr, focus *xslt.Focus) (xslt.Value, error) {
	c, ok := expr.(*compiled)
	if !ok {
		return xslt.Value{}, fmt.Errorf("%s: %w: expression not compiled by this engine", expr, xslt.ErrType)
	}
	return e.evaluate(c, focus)
}

func (e *Engine) Select(expr xslt.Expr, focus *xslt.Focus) (iter.Seq[xml.Node], error) {
	v, err := e.Evaluate(expr, focus)
	if err != nil {
		return nil, err
	}
	nodes, ok := v.Nodes()
	if !ok {
		return nil, fmt.Errorf("%s: %w: node set expected, got %s", expr, xslt.ErrType, v.Kind())
	}
	return slices.Values(nodes), nil
}

func (e *Engine) evaluate(c *compiled, focus *xslt.Focus) (xslt.Value, error) {
	switch {
	case c.whole != "":
		return focus.Variable(c.whole)
	case c.head != "":
		return e.follow(c, focus)
	default:
	}
	q, err := e.bind(c, focus)
	if err != nil {
		return xslt.Value{}, err
	}
	return protect(c.src, func() xslt.Value {
		return convert(q.Evaluate(navigate(focus.Node)))
	})
}

// bind gives the query of c for the focus.
func (e *Engine) bind(c *compiled, focus *xslt.Focus) (*xpath.Expr, error) {
	if c.static != nil {
		return c.static, nil
	}
	rt := runtime{
		engine: e,
		focus:  focus,
		ns:     c.ns,
	}
	src, _, err := rewrite(c.src, c.tokens, &rt)
	if err != nil {
		return nil, err
	}
	return e.query(src, c.ns)
}

// follow evaluates the rest of a path from each node of the variable that
// starts it.
func (e *Engine) follow(c *compiled, focus *xslt.Focus) (xslt.Value, error) {
	v, err := focus.Variable(c.head)
	if err != nil {
		return v, err
	}
	nodes, ok := v.Nodes()
	if !ok {
		return v, fmt.Errorf("$%s: %w: node set expected, got %s", c.head, xslt.ErrType, v.Kind())
	}
	var list []xml.Node
	for i, n := range nodes {
		res, err := e.evaluate(c.tail, focus.At(n, i+1, len(nodes)))
		if err != nil {
			return res, err
		}
		others, ok := res.Nodes()
		if !ok {
			return res, fmt.Errorf("%s: %w: node set expected", c.src, xslt.ErrType)
		}
		list = append(list, others...)
	}
	return xslt.Nodes(documentOrder(list)), nil
}

func protect(expr string, fn func() xslt.Value) (v xslt.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrEvaluation, expr, r)
		}
	}()
	return fn(), nil
}

func convert(res any) xslt.Value {
	switch r := res.(type) {
	case float64:
		return xslt.Float(r)
	case string:
		return xslt.String(r)
	case bool:
		return xslt.Bool(r)
	case *xpath.NodeIterator:
		var list []xml.Node
		for r.MoveNext() {
			nav, ok := r.Current().(*navigator)
			if !ok {
				continue
			}
			list = append(list, nav.node())
		}
		return xslt.Nodes(documentOrder(list))
	default:
		return xslt.String(fmt.Sprint(res))
	}
}

func documentOrder(nodes []xml.Node) []xml.Node {
	if len(nodes) < 2 {
		return nodes
	}
	slices.SortStableFunc(nodes, xml.DocumentOrder)
	return slices.Compact(nodes)
}

func solidTokens(tokens []Token) []Token {
	return slices.DeleteFunc(slices.Clone(tokens), func(t Token) bool {
		return t.Type == Blank
	})
}

// isPath reports whether tokens form a location path only: no operator at
// the top level.
func isPath(tokens []Token) bool {
	var depth int
	for i, t := range tokens {
		switch t.Type {
		case lparen, lsquare:
			depth++
		case rparen, rsquare:
			depth--
		case '|', '=', '!', '<', '>', '+', comma, dash:
			if depth == 0 {
				return false
			}
		case star:
			if depth == 0 && i > 0 && !isStep(tokens[i-1]) {
				return false
			}
		case Name:
			if depth == 0 && i > 0 && !isStep(tokens[i-1]) {
				return false
			}
		default:
		}
	}
	return true
}

// isStep reports whether a name test can follow t.
func isStep(t Token) bool {
	return t.Type == slash || t.Type == arobase || t.Type == colon
}
