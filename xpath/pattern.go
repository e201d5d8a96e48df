package xpath

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"

	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
	"github.com/midbel/xform/xslt"
)

// pattern is one alternative of a match pattern. A node matches when it is
// selected by the pattern evaluated from one of its ancestors or from
// itself.
type pattern struct {
	src      string
	priority float64
	expr     *compiled
}

func (p *pattern) String() string {
	return p.src
}

func (p *pattern) Priority() float64 {
	return p.priority
}

func (e *Engine) CompilePattern(expr string, ns []scope.Binding) ([]xslt.Pattern, error) {
	tokens, err := Tokenize(expr)
	if err != nil {
		return nil, err
	}
	var (
		bindings = bindNamespaces(ns)
		list     []xslt.Pattern
	)
	for _, alt := range alternatives(expr, tokens) {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			return nil, syntaxError(expr, "empty alternative in pattern", 0)
		}
		toks, err := Tokenize(alt)
		if err != nil {
			return nil, err
		}
		solid := solidTokens(toks)
		if solid[0].Type == Variable {
			return nil, syntaxError(expr, "pattern can not start with a variable", 0)
		}
		c, err := e.prepare(matchSource(alt, solid), bindings)
		if err != nil {
			return nil, err
		}
		p := pattern{
			src:      alt,
			priority: defaultPriority(solid),
			expr:     c,
		}
		list = append(list, &p)
	}
	return list, nil
}

func (e *Engine) Matches(pat xslt.Pattern, node xml.Node, focus *xslt.Focus) (bool, error) {
	p, ok := pat.(*pattern)
	if !ok {
		return false, fmt.Errorf("%s: %w: pattern not compiled by this engine", pat, xslt.ErrType)
	}
	q, err := e.bind(p.expr, focus.At(node, 1, 1))
	if err != nil {
		return false, err
	}
	var found bool
	_, err = protect(p.src, func() xslt.Value {
		it, ok := q.Evaluate(navigate(node)).(*xpath.NodeIterator)
		if !ok {
			return xslt.Value{}
		}
		for it.MoveNext() {
			if nav, ok := it.Current().(*navigator); ok && nav.node() == node {
				found = true
				break
			}
		}
		return xslt.Value{}
	})
	return found, err
}

// alternatives splits a pattern on the unions of its top level.
func alternatives(src string, tokens []Token) []string {
	var (
		list  []string
		depth int
		start int
	)
	for _, t := range tokens {
		switch t.Type {
		case lparen, lsquare:
			depth++
		case rparen, rsquare:
			depth--
		case pipe:
			if depth == 0 {
				list = append(list, src[start:t.Offset])
				start = t.End
			}
		default:
		}
	}
	return append(list, src[start:])
}

// matchSource gives the expression selecting the candidates of a pattern from
// the node to test. Relative patterns are tried from every ancestor.
func matchSource(src string, solid []Token) string {
	switch first := solid[0]; {
	case first.Type == slash:
		return src
	case first.Type == Name && (first.Literal == fnKey || first.Literal == "id") && len(solid) > 1 && solid[1].Type == lparen:
		return src
	default:
		return "ancestor-or-self::node()/" + src
	}
}

// defaultPriority gives the priority of a pattern alternative: 0 for a name,
// -0.25 for a namespace wildcard, -0.5 for any other node test and 0.5 for
// everything else.
func defaultPriority(solid []Token) float64 {
	switch {
	case len(solid) > 3 && solid[0].Type == Name && solid[1].Type == colon && solid[2].Type == colon:
		switch solid[0].Literal {
		case "child", "attribute":
			solid = solid[3:]
		default:
			return 0.5
		}
	case len(solid) > 1 && solid[0].Type == arobase:
		solid = solid[1:]
	default:
	}
	switch {
	case len(solid) == 1 && solid[0].Type == star:
		return -0.5
	case len(solid) == 1 && solid[0].Type == Name:
		if strings.HasSuffix(solid[0].Literal, ":*") {
			return -0.25
		}
		return 0
	case len(solid) == 3 && isNodeTest(solid[0]) && solid[1].Type == lparen && solid[2].Type == rparen:
		return -0.5
	case len(solid) == 4 && solid[0].Type == Name && solid[0].Literal == "processing-instruction" && solid[2].Type == Literal:
		return 0
	default:
		return 0.5
	}
}

func isNodeTest(t Token) bool {
	if t.Type != Name {
		return false
	}
	switch t.Literal {
	case "node", "text", "comment", "processing-instruction":
		return true
	default:
		return false
	}
}
