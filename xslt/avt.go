package xslt

import (
	"errors"
	"fmt"
	"strings"
)

var ErrTemplate = errors.New("invalid attribute value template")

type avtPart struct {
	text string
	expr Expr
}

// AVT is an attribute value template: literal text mixed with expressions
// written between braces.
type AVT struct {
	parts   []avtPart
	defined bool
}

// Literal creates a template made of str only.
func Literal(str string) AVT {
	a := AVT{defined: true}
	if str != "" {
		a.parts = append(a.parts, avtPart{text: str})
	}
	return a
}

// ParseAVT splits str into literal parts and expressions compiled by compile.
// Doubled braces stand for themselves.
func ParseAVT(str string, compile func(string) (Expr, error)) (AVT, error) {
	var (
		avt = AVT{defined: true}
		buf strings.Builder
	)
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case c == '{' && i+1 < len(str) && str[i+1] == '{':
			buf.WriteByte('{')
			i++
		case c == '}' && i+1 < len(str) && str[i+1] == '}':
			buf.WriteByte('}')
			i++
		case c == '}':
			return avt, fmt.Errorf("%w: unexpected } at %d in %q", ErrTemplate, i, str)
		case c == '{':
			end, err := closingBrace(str, i+1)
			if err != nil {
				return avt, err
			}
			src := strings.TrimSpace(str[i+1 : end])
			if src == "" {
				return avt, fmt.Errorf("%w: empty expression at %d in %q", ErrTemplate, i, str)
			}
			expr, err := compile(src)
			if err != nil {
				return avt, err
			}
			if buf.Len() > 0 {
				avt.parts = append(avt.parts, avtPart{text: buf.String()})
				buf.Reset()
			}
			avt.parts = append(avt.parts, avtPart{expr: expr})
			i = end
		default:
			buf.WriteByte(c)
		}
	}
	if buf.Len() > 0 {
		avt.parts = append(avt.parts, avtPart{text: buf.String()})
	}
	return avt, nil
}

func closingBrace(str string, from int) (int, error) {
	var quote byte
	for i := from; i < len(str); i++ {
		c := str[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '}':
			return i, nil
		case c == '{':
			return 0, fmt.Errorf("%w: unexpected { at %d in %q", ErrTemplate, i, str)
		}
	}
	return 0, fmt.Errorf("%w: missing } in %q", ErrTemplate, str)
}

// Defined reports whether the template was given at all.
func (a AVT) Defined() bool {
	return a.defined
}

// Static gives the value of a template without expressions.
func (a AVT) Static() (string, bool) {
	var str strings.Builder
	for _, p := range a.parts {
		if p.expr != nil {
			return "", false
		}
		str.WriteString(p.text)
	}
	return str.String(), true
}

// Eval gives the value of the template, evaluating each expression as a
// string in the focus.
func (a AVT) Eval(eval Evaluator, focus *Focus) (string, error) {
	if str, ok := a.Static(); ok {
		return str, nil
	}
	var str strings.Builder
	for _, p := range a.parts {
		if p.expr == nil {
			str.WriteString(p.text)
			continue
		}
		v, err := eval.Evaluate(p.expr, focus)
		if err != nil {
			return "", err
		}
		str.WriteString(v.String())
	}
	return str.String(), nil
}

func (a AVT) String() string {
	var str strings.Builder
	for _, p := range a.parts {
		if p.expr == nil {
			str.WriteString(strings.NewReplacer("{", "{{", "}", "}}").Replace(p.text))
			continue
		}
		str.WriteByte('{')
		str.WriteString(p.expr.String())
		str.WriteByte('}')
	}
	return str.String()
}
