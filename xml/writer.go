package xml

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type WriterOptions uint64

const (
	OptionCompact WriterOptions = 1 << iota
	OptionNoNamespace
	OptionNoComment
	OptionNoProlog
)

func (w WriterOptions) Compact() bool {
	return w&OptionCompact > 0
}

func (w WriterOptions) NoNamespace() bool {
	return w&OptionNoNamespace > 0
}

func (w WriterOptions) NoComment() bool {
	return w&OptionNoComment > 0
}

func (w WriterOptions) NoProlog() bool {
	return w&OptionNoProlog > 0
}

// Writer renders a tree as markup. It is used to dump documents built in
// memory; serialization of transformation results goes through the output
// package.
type Writer struct {
	writer *bufio.Writer

	Indent string
	WriterOptions
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		writer: bufio.NewWriter(w),
		Indent: "  ",
	}
}

// WriteNode renders node and its descendants compactly.
func WriteNode(node Node) string {
	var str strings.Builder
	ws := NewWriter(&str)
	ws.WriterOptions = OptionCompact | OptionNoProlog
	ws.writeNode(node, 0)
	ws.writer.Flush()
	return str.String()
}

func (w *Writer) Write(doc *Document) error {
	if !w.NoProlog() {
		w.writeProlog(doc)
	}
	for i, n := range doc.Nodes {
		if i > 0 || !w.NoProlog() {
			w.writeNL()
		}
		if err := w.writeNode(n, 0); err != nil {
			return err
		}
	}
	return w.writer.Flush()
}

func (w *Writer) WriteNode(node Node) error {
	if err := w.writeNode(node, 0); err != nil {
		return err
	}
	return w.writer.Flush()
}

func (w *Writer) writeNode(node Node, depth int) error {
	switch node := node.(type) {
	case *Document:
		for i, n := range node.Nodes {
			if i > 0 {
				w.writeNL()
			}
			if err := w.writeNode(n, depth); err != nil {
				return err
			}
		}
		return nil
	case *Element:
		return w.writeElement(node, depth)
	case *Text:
		w.writer.WriteString(escapeText(node.Content))
		return nil
	case *Instruction:
		return w.writeInstruction(node)
	case *Comment:
		return w.writeComment(node)
	case *Attribute:
		w.writer.WriteString(node.QualifiedName())
		w.writer.WriteString("=\"")
		w.writer.WriteString(escapeAttr(node.Value()))
		w.writer.WriteString("\"")
		return nil
	default:
		return fmt.Errorf("node: unknown type (%T)", node)
	}
}

func (w *Writer) writeElement(node *Element, depth int) error {
	w.writer.WriteRune(langle)
	w.writeName(node.QName)
	w.writeAttributes(node.Attrs)
	if len(node.Nodes) == 0 {
		w.writer.WriteRune(slash)
		w.writer.WriteRune(rangle)
		return nil
	}
	w.writer.WriteRune(rangle)

	inline := node.Leaf() || hasText(node)
	for _, n := range node.Nodes {
		if !inline {
			w.writeNL()
			w.writer.WriteString(w.getIndent(depth + 1))
		}
		if err := w.writeNode(n, depth+1); err != nil {
			return err
		}
	}
	if !inline {
		w.writeNL()
		w.writer.WriteString(w.getIndent(depth))
	}
	w.writer.WriteRune(langle)
	w.writer.WriteRune(slash)
	w.writeName(node.QName)
	w.writer.WriteRune(rangle)
	return nil
}

func (w *Writer) writeName(name QName) {
	if w.NoNamespace() {
		w.writer.WriteString(name.LocalName())
	} else {
		w.writer.WriteString(name.QualifiedName())
	}
}

func (w *Writer) writeComment(node *Comment) error {
	if w.NoComment() {
		return nil
	}
	w.writer.WriteString("<!--")
	w.writer.WriteString(node.Content)
	w.writer.WriteString("-->")
	return nil
}

func (w *Writer) writeInstruction(node *Instruction) error {
	w.writer.WriteRune(langle)
	w.writer.WriteRune(question)
	w.writer.WriteString(node.Name)
	if node.Content != "" {
		w.writer.WriteRune(' ')
		w.writer.WriteString(node.Content)
	}
	w.writer.WriteRune(question)
	w.writer.WriteRune(rangle)
	return nil
}

func (w *Writer) writeProlog(doc *Document) {
	version, encoding := SupportedVersion, SupportedEncoding
	if doc != nil && doc.Version != "" {
		version = doc.Version
	}
	if doc != nil && doc.Encoding != "" {
		encoding = doc.Encoding
	}
	fmt.Fprintf(w.writer, `<?xml version="%s" encoding="%s"?>`, version, encoding)
}

func (w *Writer) writeAttributes(attrs []Attribute) {
	for _, a := range attrs {
		if w.NoNamespace() && a.IsNamespace() {
			continue
		}
		w.writer.WriteRune(' ')
		w.writeName(a.QName)
		w.writer.WriteRune(equal)
		w.writer.WriteRune(quote)
		w.writer.WriteString(escapeAttr(a.Value()))
		w.writer.WriteRune(quote)
	}
}

func (w *Writer) writeNL() {
	if w.Compact() {
		return
	}
	w.writer.WriteRune('\n')
}

func (w *Writer) getIndent(depth int) string {
	if w.Compact() {
		return ""
	}
	return strings.Repeat(w.Indent, depth)
}

func hasText(node *Element) bool {
	for _, n := range node.Nodes {
		if n.Type() == TypeText {
			return true
		}
	}
	return false
}

const (
	langle   = '<'
	rangle   = '>'
	slash    = '/'
	question = '?'
	equal    = '='
	quote    = '"'
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\t", "&#9;", "\n", "&#10;", "\r", "&#13;")
)

func escapeText(str string) string {
	return textEscaper.Replace(str)
}

func escapeAttr(str string) string {
	return attrEscaper.Replace(str)
}
