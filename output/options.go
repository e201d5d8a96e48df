package output

import (
	"fmt"
	"strings"

	"github.com/midbel/xform/xml"
)

type Method string

const (
	MethodAuto Method = ""
	MethodXML  Method = "xml"
	MethodHTML Method = "html"
	MethodText Method = "text"
)

func ParseMethod(str string) (Method, error) {
	switch m := Method(strings.ToLower(str)); m {
	case MethodAuto, MethodXML, MethodHTML, MethodText:
		return m, nil
	default:
		return MethodAuto, fmt.Errorf("%s: unsupported output method", str)
	}
}

// Output is the declaration of how the result of a transformation has to be
// serialized.
type Output struct {
	Method     Method
	Version    string
	Encoding   string
	MediaType  string
	Indent     bool
	OmitProlog bool
	Standalone string

	DoctypePublic string
	DoctypeSystem string

	// CDataElements lists the elements whose text children are written as
	// CDATA sections.
	CDataElements []xml.QName
	// OmitContentType disables the meta element added to the head of HTML
	// documents.
	OmitContentType bool
}

// Merge gives the declaration obtained by applying other over o: fields set
// in other win.
func (o Output) Merge(other Output) Output {
	if other.Method != MethodAuto {
		o.Method = other.Method
	}
	if other.Version != "" {
		o.Version = other.Version
	}
	if other.Encoding != "" {
		o.Encoding = other.Encoding
	}
	if other.MediaType != "" {
		o.MediaType = other.MediaType
	}
	if other.Standalone != "" {
		o.Standalone = other.Standalone
	}
	if other.DoctypePublic != "" {
		o.DoctypePublic = other.DoctypePublic
	}
	if other.DoctypeSystem != "" {
		o.DoctypeSystem = other.DoctypeSystem
	}
	o.Indent = o.Indent || other.Indent
	o.OmitProlog = o.OmitProlog || other.OmitProlog
	o.OmitContentType = o.OmitContentType || other.OmitContentType
	o.CDataElements = append(o.CDataElements, other.CDataElements...)
	return o
}

func (o Output) encoding() string {
	if o.Encoding == "" {
		return "UTF-8"
	}
	return o.Encoding
}

func (o Output) mediaType() string {
	if o.MediaType != "" {
		return o.MediaType
	}
	switch o.Method {
	case MethodHTML:
		return "text/html"
	case MethodText:
		return "text/plain"
	default:
		return "text/xml"
	}
}

func (o Output) cdata(name xml.QName) bool {
	for _, n := range o.CDataElements {
		if n.Equal(name) {
			return true
		}
	}
	return false
}
