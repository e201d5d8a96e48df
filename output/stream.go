package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/midbel/xform/xml"
)

const drainSize = 4096

var (
	escapeXMLText = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;")
	escapeXMLAttr = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\t", "&#x9;",
		"\n", "&#xA;",
		"\r", "&#xD;",
	)
	escapeHTMLText = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

type element struct {
	name   xml.QName
	flags  htmlFlags
	cdata  bool
	mixed  bool
	nested bool
}

// StreamSink serializes records as text with the XML, HTML or text rules.
//
// Serialized bytes are kept in a buffer. Without a Limit the buffer is written
// to the target whenever it grows large. With a Limit the sink reports itself
// pending once the buffer reaches it and the owner has to call Drain.
type StreamSink struct {
	Limit int

	opts   Output
	method Method

	target io.Writer
	closer io.Closer
	buf    bytes.Buffer

	stack    []element
	started  bool
	doctyped bool
	written  bool
}

// NewStreamSink creates a sink writing bytes in the encoding of the output
// declaration. Characters the encoding can not represent are written as
// character references.
func NewStreamSink(w io.Writer, opts Output) (*StreamSink, error) {
	s := createSink(w, opts)
	if enc := opts.encoding(); !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", enc, err)
		}
		tw := transform.NewWriter(w, encoding.HTMLEscapeUnsupported(e.NewEncoder()))
		s.target = tw
		s.closer = tw
	}
	return s, nil
}

// NewStringSink creates a sink writing characters into str. The encoding of
// the declaration only appears in the prolog.
func NewStringSink(str *strings.Builder, opts Output) *StreamSink {
	return createSink(str, opts)
}

func createSink(w io.Writer, opts Output) *StreamSink {
	return &StreamSink{
		opts:   opts,
		method: opts.Method,
		target: w,
	}
}

func isUTF8(enc string) bool {
	switch strings.ToLower(enc) {
	case "utf-8", "utf8":
		return true
	default:
		return false
	}
}

// SetMethod changes the serialization rules. It has to be called before the
// first record is written.
func (s *StreamSink) SetMethod(m Method) {
	s.method = m
	s.opts.Method = m
}

func (s *StreamSink) Method() Method {
	return s.method
}

func (s *StreamSink) Pending() bool {
	return s.Limit > 0 && s.buf.Len() >= s.Limit
}

// Drain writes the buffered bytes to the target.
func (s *StreamSink) Drain() error {
	if s.buf.Len() == 0 {
		return nil
	}
	_, err := s.target.Write(s.buf.Bytes())
	s.buf.Reset()
	return err
}

func (s *StreamSink) Close() error {
	if err := s.Drain(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *StreamSink) Write(r *Record) error {
	if s.method == MethodAuto {
		s.SetMethod(MethodXML)
	}
	switch s.method {
	case MethodText:
		if r.Kind == KindText {
			s.buf.WriteString(r.String())
		}
	case MethodHTML:
		s.writeHTML(r)
	default:
		s.writeXML(r)
	}
	s.written = true
	if s.Limit <= 0 && s.buf.Len() >= drainSize {
		return s.Drain()
	}
	return nil
}

func (s *StreamSink) writeXML(r *Record) {
	s.prolog()
	switch r.Kind {
	case KindElement:
		if r.Depth == 0 && !s.doctyped && s.opts.DoctypeSystem != "" {
			s.doctype(r.Name.QualifiedName())
		}
		s.child()
		s.indent(r.Depth)
		s.startTag(r, nil)
		if r.Empty {
			s.buf.WriteString("/>")
			return
		}
		s.buf.WriteByte('>')
		s.push(element{
			name:  r.Name,
			cdata: s.opts.cdata(r.Name),
		})
	case KindEndElement:
		el := s.pop()
		if el.nested && !el.mixed {
			s.indent(r.Depth)
		}
		s.endTag(r.Name)
	case KindText:
		s.text(r, escapeXMLText.Replace)
	case KindComment:
		s.child()
		s.indent(r.Depth)
		s.comment(r)
	case KindInstruction:
		s.child()
		s.indent(r.Depth)
		s.instruction(r, "?>")
	}
}

func (s *StreamSink) writeHTML(r *Record) {
	switch r.Kind {
	case KindElement:
		if r.Depth == 0 && !s.doctyped && (s.opts.DoctypePublic != "" || s.opts.DoctypeSystem != "") {
			s.doctype("html")
		}
		s.child()
		s.indent(r.Depth)
		if r.Name.Uri != "" {
			s.startTag(r, nil)
			if r.Empty {
				s.buf.WriteString("/>")
				return
			}
			s.buf.WriteByte('>')
			s.push(element{name: r.Name})
			return
		}
		flags := htmlElement(r.Name)
		s.startTag(r, writeHTMLAttr)
		s.buf.WriteByte('>')
		if flags&htmlHead != 0 && !s.opts.OmitContentType {
			s.indent(r.Depth + 1)
			fmt.Fprintf(&s.buf, `<meta http-equiv="Content-Type" content="%s; charset=%s">`, s.opts.mediaType(), s.opts.encoding())
		}
		switch {
		case flags&htmlVoid != 0:
			if !r.Empty {
				s.push(element{name: r.Name, flags: flags})
			}
		case r.Empty:
			if flags&htmlHead != 0 && !s.opts.OmitContentType {
				s.indent(r.Depth)
			}
			s.endTag(r.Name)
		default:
			s.push(element{
				name:   r.Name,
				flags:  flags,
				nested: flags&htmlHead != 0 && !s.opts.OmitContentType,
			})
		}
	case KindEndElement:
		el := s.pop()
		if el.flags&htmlVoid != 0 {
			return
		}
		if el.nested && !el.mixed {
			s.indent(r.Depth)
		}
		s.endTag(r.Name)
	case KindText:
		if n := len(s.stack); n > 0 && s.stack[n-1].flags&htmlRaw != 0 {
			s.stack[n-1].mixed = true
			s.buf.WriteString(r.String())
			return
		}
		s.text(r, escapeHTMLText.Replace)
	case KindComment:
		s.child()
		s.indent(r.Depth)
		s.comment(r)
	case KindInstruction:
		s.child()
		s.indent(r.Depth)
		s.instruction(r, ">")
	}
}

func (s *StreamSink) prolog() {
	if s.started {
		return
	}
	s.started = true
	if s.opts.OmitProlog {
		return
	}
	version := s.opts.Version
	if version == "" {
		version = xml.SupportedVersion
	}
	fmt.Fprintf(&s.buf, `<?xml version="%s" encoding="%s"`, version, s.opts.encoding())
	if s.opts.Standalone != "" {
		fmt.Fprintf(&s.buf, ` standalone="%s"`, s.opts.Standalone)
	}
	s.buf.WriteString("?>")
	s.written = true
}

func (s *StreamSink) doctype(root string) {
	s.doctyped = true
	if s.written {
		s.buf.WriteByte('\n')
	}
	s.buf.WriteString("<!DOCTYPE ")
	s.buf.WriteString(root)
	switch {
	case s.opts.DoctypePublic != "" && s.opts.DoctypeSystem != "":
		fmt.Fprintf(&s.buf, ` PUBLIC "%s" "%s"`, s.opts.DoctypePublic, s.opts.DoctypeSystem)
	case s.opts.DoctypePublic != "":
		fmt.Fprintf(&s.buf, ` PUBLIC "%s"`, s.opts.DoctypePublic)
	default:
		fmt.Fprintf(&s.buf, ` SYSTEM "%s"`, s.opts.DoctypeSystem)
	}
	s.buf.WriteByte('>')
	s.written = true
}

func (s *StreamSink) startTag(r *Record, attr func(*bytes.Buffer, Attr)) {
	s.buf.WriteByte('<')
	s.buf.WriteString(r.Name.QualifiedName())
	for _, b := range r.Namespaces {
		s.buf.WriteString(" xmlns")
		if b.Prefix != "" {
			s.buf.WriteByte(':')
			s.buf.WriteString(b.Prefix)
		}
		s.buf.WriteString(`="`)
		s.buf.WriteString(escapeXMLAttr.Replace(b.Uri))
		s.buf.WriteByte('"')
	}
	for _, a := range r.Attrs {
		if attr != nil {
			attr(&s.buf, a)
			continue
		}
		s.buf.WriteByte(' ')
		s.buf.WriteString(a.Name.QualifiedName())
		s.buf.WriteString(`="`)
		s.buf.WriteString(escapeXMLAttr.Replace(a.Value))
		s.buf.WriteByte('"')
	}
}

func writeHTMLAttr(buf *bytes.Buffer, a Attr) {
	buf.WriteByte(' ')
	buf.WriteString(a.Name.QualifiedName())
	if htmlBoolean(a) {
		return
	}
	value := a.Value
	if htmlURI(a) {
		value = escapeURI(value)
	}
	buf.WriteString(`="`)
	for i := 0; i < len(value); i++ {
		switch c := value[i]; {
		case c == '&' && (i+1 >= len(value) || value[i+1] != '{'):
			buf.WriteString("&amp;")
		case c == '"':
			buf.WriteString("&quot;")
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
}

func (s *StreamSink) endTag(name xml.QName) {
	s.buf.WriteString("</")
	s.buf.WriteString(name.QualifiedName())
	s.buf.WriteByte('>')
}

func (s *StreamSink) text(r *Record, escape func(string) string) {
	var cdata bool
	if n := len(s.stack); n > 0 {
		s.stack[n-1].mixed = true
		cdata = s.stack[n-1].cdata
	}
	if cdata {
		s.buf.WriteString("<![CDATA[")
		s.buf.WriteString(strings.ReplaceAll(r.String(), "]]>", "]]]]><![CDATA[>"))
		s.buf.WriteString("]]>")
		return
	}
	for _, seg := range r.Value {
		if seg.Raw {
			s.buf.WriteString(seg.Text)
		} else {
			s.buf.WriteString(escape(seg.Text))
		}
	}
}

func (s *StreamSink) comment(r *Record) {
	s.buf.WriteString("<!--")
	s.buf.WriteString(r.String())
	s.buf.WriteString("-->")
}

func (s *StreamSink) instruction(r *Record, end string) {
	s.buf.WriteString("<?")
	s.buf.WriteString(r.Name.Name)
	if str := r.String(); str != "" {
		s.buf.WriteByte(' ')
		s.buf.WriteString(str)
	}
	s.buf.WriteString(end)
}

func (s *StreamSink) indent(depth int) {
	if !s.opts.Indent || !s.written {
		return
	}
	if n := len(s.stack); n > 0 && s.stack[n-1].mixed {
		return
	}
	s.buf.WriteByte('\n')
	s.buf.WriteString(strings.Repeat("  ", depth))
}

func (s *StreamSink) child() {
	if n := len(s.stack); n > 0 {
		s.stack[n-1].nested = true
	}
}

func (s *StreamSink) push(el element) {
	s.stack = append(s.stack, el)
}

func (s *StreamSink) pop() element {
	n := len(s.stack)
	if n == 0 {
		return element{}
	}
	el := s.stack[n-1]
	s.stack = s.stack[:n-1]
	return el
}
