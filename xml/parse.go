package xml

import (
	stdxml "encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/midbel/xform/scope"
)

const MaxDepth = 512

const (
	SupportedVersion  = "1.0"
	SupportedEncoding = "UTF-8"
)

const AttrXmlNS = "xmlns"

type Position struct {
	Line   int
	Column int
}

type ParseError struct {
	Position
	Element string
	Message string
}

func createParseError(elem, msg string, pos Position) error {
	return ParseError{
		Position: pos,
		Element:  elem,
		Message:  msg,
	}
}

func (p ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", p.Line, p.Column, p.Element, p.Message)
}

type Parser struct {
	dec *stdxml.Decoder

	depth int

	TrimSpace  bool
	KeepEmpty  bool
	OmitProlog bool
	StrictNS   bool
	MaxDepth   int

	namespaces *scope.Manager
}

func NewParser(r io.Reader) *Parser {
	p := Parser{
		dec:        stdxml.NewDecoder(r),
		KeepEmpty:  true,
		OmitProlog: true,
		MaxDepth:   MaxDepth,
		namespaces: scope.New(),
	}
	p.dec.Strict = true
	p.dec.CharsetReader = charsetReader
	return &p
}

func ParseFile(file string) (*Document, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ParseReader(r)
}

func ParseString(xml string) (*Document, error) {
	return ParseReader(strings.NewReader(xml))
}

func ParseReader(r io.Reader) (*Document, error) {
	p := NewParser(r)
	return p.Parse()
}

func (p *Parser) Parse() (*Document, error) {
	var (
		doc    = EmptyDocument()
		stack  []*Element
		prolog bool
	)
	attach := func(node Node) {
		if n := len(stack); n > 0 {
			stack[n-1].Append(node)
			return
		}
		doc.Append(node)
	}
	for {
		tok, err := p.dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var syn *stdxml.SyntaxError
			if errors.As(err, &syn) {
				return nil, p.createError("document", syn.Msg)
			}
			return nil, p.createError("document", err.Error())
		}
		switch tok := tok.(type) {
		case stdxml.ProcInst:
			if tok.Target == "xml" {
				if prolog || len(doc.Nodes) > 0 || len(stack) > 0 {
					return nil, p.createError("document", "unexpected xml prolog")
				}
				prolog = true
				if err := p.parseProlog(doc, string(tok.Inst)); err != nil {
					return nil, err
				}
				continue
			}
			pi := NewInstruction(LocalName(tok.Target), strings.TrimSpace(string(tok.Inst)))
			attach(pi)
		case stdxml.StartElement:
			if len(stack) == 0 && doc.Root() != nil {
				return nil, p.createError(tok.Name.Local, "document has more than one root element")
			}
			if !prolog && !p.OmitProlog {
				return nil, p.createError("document", "xml prolog missing")
			}
			prolog = true
			if len(stack)+1 >= p.MaxDepth {
				return nil, p.createError(tok.Name.Local, "maximum depth reached")
			}
			elem, err := p.parseElement(tok)
			if err != nil {
				return nil, err
			}
			attach(elem)
			stack = append(stack, elem)
		case stdxml.EndElement:
			n := len(stack)
			if n == 0 {
				return nil, p.createError(tok.Name.Local, "closing element without opening element")
			}
			elem := stack[n-1]
			if elem.Space != tok.Name.Space {
				return nil, p.createError(elem.QualifiedName(), "namespace mismatched with opening element")
			}
			if elem.Name != tok.Name.Local {
				return nil, p.createError(elem.QualifiedName(), "name mismatched with opening element")
			}
			stack = stack[:n-1]
			p.leave()
		case stdxml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(tok)) != "" {
					return nil, p.createError("document", "text outside of root element")
				}
				continue
			}
			if node := p.parseText(string(tok)); node != nil {
				attach(node)
			}
		case stdxml.Comment:
			attach(NewComment(string(tok)))
		case stdxml.Directive:
		}
	}
	if len(stack) > 0 {
		return nil, p.createError(stack[len(stack)-1].QualifiedName(), "closing element is missing")
	}
	if doc.Root() == nil {
		return nil, p.createError("document", "missing root element")
	}
	return doc, nil
}

func (p *Parser) parseProlog(doc *Document, inst string) error {
	attrs := parsePseudoAttributes(inst)
	if v, ok := attrs["version"]; !ok || v != SupportedVersion {
		return p.createError("document", "xml version not supported")
	}
	doc.Version = attrs["version"]
	if e, ok := attrs["encoding"]; ok {
		doc.Encoding = e
	}
	if s, ok := attrs["standalone"]; ok {
		doc.Standalone = s
	}
	return nil
}

func (p *Parser) parseElement(tok stdxml.StartElement) (*Element, error) {
	p.enter()

	elem := NewElement(QualifiedName(tok.Name.Local, tok.Name.Space))
	for _, a := range tok.Attr {
		if a.Name.Space == "" && a.Name.Local == AttrXmlNS {
			if err := p.namespaces.Declare("", a.Value); err != nil {
				return nil, p.createError(elem.QualifiedName(), err.Error())
			}
		} else if a.Name.Space == AttrXmlNS {
			if a.Value == "" {
				return nil, p.createError(elem.QualifiedName(), "namespace prefix can not be undeclared")
			}
			if err := p.namespaces.Declare(a.Name.Local, a.Value); err != nil {
				return nil, p.createError(elem.QualifiedName(), err.Error())
			}
		}
	}
	for _, a := range tok.Attr {
		attr := NewAttribute(QualifiedName(a.Name.Local, a.Name.Space), a.Value)
		if !attr.IsNamespace() && attr.Space != "" {
			uri, err := p.isDefined(attr.Space)
			if err != nil {
				return nil, err
			}
			attr.Uri = uri
		} else if attr.IsNamespace() {
			attr.Uri = NamespaceXMLNS
		}
		for _, other := range elem.Attrs {
			if other.QualifiedName() == attr.QualifiedName() {
				return nil, p.createError(elem.QualifiedName(), "attribute is already defined")
			}
		}
		elem.SetAttribute(attr)
	}
	uri, err := p.isDefined(elem.Space)
	if err != nil {
		return nil, err
	}
	elem.Uri = uri
	return elem, nil
}

func (p *Parser) parseText(str string) Node {
	if !p.KeepEmpty && strings.TrimSpace(str) == "" {
		return nil
	}
	if p.TrimSpace {
		str = strings.TrimSpace(str)
		if str == "" {
			return nil
		}
	}
	return NewText(str)
}

func (p *Parser) isDefined(prefix string) (string, error) {
	uri, ok := p.namespaces.Resolve(prefix)
	if !ok {
		if p.StrictNS && prefix != "" {
			return "", p.createError(prefix, "namespace is not defined")
		}
		return "", nil
	}
	return uri, nil
}

func (p *Parser) createError(elem, msg string) error {
	line, col := p.dec.InputPos()
	pos := Position{
		Line:   line,
		Column: col,
	}
	return createParseError(elem, msg, pos)
}

func (p *Parser) enter() {
	p.depth++
	p.namespaces.Push()
}

func (p *Parser) leave() {
	p.depth--
	p.namespaces.Pop()
}

func parsePseudoAttributes(str string) map[string]string {
	attrs := make(map[string]string)
	for {
		str = strings.TrimSpace(str)
		name, rest, ok := strings.Cut(str, "=")
		if !ok {
			break
		}
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		quote := rest[0]
		if quote != '"' && quote != '\'' {
			break
		}
		end := strings.IndexByte(rest[1:], quote)
		if end < 0 {
			break
		}
		attrs[strings.TrimSpace(name)] = rest[1 : end+1]
		str = rest[end+2:]
	}
	return attrs
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%s: unsupported encoding", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
