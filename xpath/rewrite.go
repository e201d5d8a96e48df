package xpath

import (
	"strings"
)

// binder gives the source substituted for the parts of an expression the
// query engine can not evaluate by itself.
type binder interface {
	variable(name string) (string, error)
	position() string
	last() string
	// call reports false when the function is left to the query engine.
	call(name string, args []string) (string, bool, error)
}

// rewrite writes back the source of tokens with variables, the position and
// size of the focus outside predicates and the functions handled by b
// replaced. Arguments of concat are converted to strings. It reports whether
// a value given by b was substituted.
func rewrite(src string, tokens []Token, b binder) (string, bool, error) {
	return rewriteAt(src, tokens, 0, b)
}

func rewriteAt(src string, tokens []Token, depth int, b binder) (string, bool, error) {
	var (
		out     strings.Builder
		changed bool
	)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case lsquare:
			depth++
		case rsquare:
			depth--
		case Variable:
			str, err := b.variable(tok.Literal)
			if err != nil {
				return "", false, err
			}
			out.WriteString(str)
			changed = true
			continue
		case Name:
			if tok.Literal == fnConcat {
				str, end, dynamic, err := rewriteConcat(src, tokens, i, depth, b)
				if err != nil {
					return "", false, err
				}
				if end > 0 {
					out.WriteString(str)
					changed = changed || dynamic
					i = end
					continue
				}
				break
			}
			str, end, ok, err := rewriteCall(src, tokens, i, depth, b)
			if err != nil {
				return "", false, err
			}
			if ok {
				out.WriteString(str)
				changed = true
				i = end
				continue
			}
		default:
		}
		out.WriteString(src[tok.Offset:tok.End])
	}
	return out.String(), changed, nil
}

// isCall reports whether the name at ix is the name of a function call and
// gives the index of its opening parenthesis.
func isCall(tokens []Token, ix int) (int, bool) {
	open := nextSolid(tokens, ix+1)
	if open < 0 || tokens[open].Type != lparen {
		return 0, false
	}
	if prev := prevSolid(tokens, ix-1); prev >= 0 && (tokens[prev].Type == colon || tokens[prev].Type == arobase) {
		return 0, false
	}
	return open, true
}

// rewriteConcat rewrites the arguments of a call to concat and converts each
// of them with string: the query engine drops numbers and booleans given to
// concat. The index of the closing parenthesis is zero when the name at ix
// is not a call.
func rewriteConcat(src string, tokens []Token, ix, depth int, b binder) (string, int, bool, error) {
	open, ok := isCall(tokens, ix)
	if !ok {
		return "", 0, false, nil
	}
	end, args, err := arguments(src, tokens, open)
	if err != nil {
		return "", 0, false, err
	}
	var (
		parts   = make([]string, 0, len(args))
		dynamic bool
	)
	for _, a := range args {
		if a == "" {
			return "", 0, false, syntaxError(src, "empty argument", tokens[open].Offset)
		}
		list, err := Tokenize(a)
		if err != nil {
			return "", 0, false, err
		}
		str, changed, err := rewriteAt(a, list, depth, b)
		if err != nil {
			return "", 0, false, err
		}
		dynamic = dynamic || changed
		parts = append(parts, "string("+str+")")
	}
	return fnConcat + "(" + strings.Join(parts, ", ") + ")", end, dynamic, nil
}

func rewriteCall(src string, tokens []Token, ix, depth int, b binder) (string, int, bool, error) {
	open, ok := isCall(tokens, ix)
	if !ok {
		return "", 0, false, nil
	}
	end, args, err := arguments(src, tokens, open)
	if err != nil {
		return "", 0, false, err
	}
	switch name := tokens[ix].Literal; name {
	case "position", "last":
		if depth > 0 || len(args) > 0 {
			return "", 0, false, nil
		}
		if name == "position" {
			return b.position(), end, true, nil
		}
		return b.last(), end, true, nil
	default:
		str, ok, err := b.call(name, args)
		return str, end, ok, err
	}
}

// arguments splits the arguments of the call whose opening parenthesis is at
// open. It gives the index of the closing parenthesis.
func arguments(src string, tokens []Token, open int) (int, []string, error) {
	var (
		args  []string
		depth int
		start = tokens[open].End
	)
	for i := open + 1; i < len(tokens); i++ {
		switch tokens[i].Type {
		case lparen, lsquare:
			depth++
		case rsquare:
			depth--
		case comma:
			if depth == 0 {
				args = append(args, strings.TrimSpace(src[start:tokens[i].Offset]))
				start = tokens[i].End
			}
		case rparen:
			if depth > 0 {
				depth--
				break
			}
			last := strings.TrimSpace(src[start:tokens[i].Offset])
			if last != "" || len(args) > 0 {
				args = append(args, last)
			}
			return i, args, nil
		default:
		}
	}
	return 0, nil, syntaxError(src, "missing closing parenthesis", tokens[open].Offset)
}

func nextSolid(tokens []Token, from int) int {
	for i := from; i < len(tokens); i++ {
		if tokens[i].Type != Blank {
			return i
		}
	}
	return -1
}

func prevSolid(tokens []Token, from int) int {
	for i := from; i >= 0; i-- {
		if tokens[i].Type != Blank {
			return i
		}
	}
	return -1
}

// placeholder substitutes values of the right kind to check the syntax of
// an expression when it is compiled.
type placeholder struct{}

const emptySet = "(/..)"

func (placeholder) variable(_ string) (string, error) {
	return emptySet, nil
}

func (placeholder) position() string {
	return "1"
}

func (placeholder) last() string {
	return "1"
}

func (placeholder) call(name string, _ []string) (string, bool, error) {
	switch name {
	case fnCurrent, fnKey:
		return emptySet, true, nil
	case fnGenerateId, fnSystemProperty:
		return "''", true, nil
	case fnFunctionAvailable:
		return "true()", true, nil
	default:
		if strings.Contains(name, ":") {
			return "''", true, nil
		}
		return "", false, nil
	}
}
