package output

import (
	"strings"

	"github.com/midbel/xform/xml"
)

type htmlFlags uint8

const (
	htmlVoid htmlFlags = 1 << iota
	htmlRaw
	htmlHead
)

var htmlElements = map[string]htmlFlags{
	"area":     htmlVoid,
	"base":     htmlVoid,
	"basefont": htmlVoid,
	"br":       htmlVoid,
	"col":      htmlVoid,
	"embed":    htmlVoid,
	"frame":    htmlVoid,
	"hr":       htmlVoid,
	"img":      htmlVoid,
	"input":    htmlVoid,
	"isindex":  htmlVoid,
	"link":     htmlVoid,
	"meta":     htmlVoid,
	"param":    htmlVoid,
	"source":   htmlVoid,
	"track":    htmlVoid,
	"wbr":      htmlVoid,
	"script":   htmlRaw,
	"style":    htmlRaw,
	"head":     htmlHead,
}

var htmlBooleans = map[string]struct{}{
	"checked":  {},
	"compact":  {},
	"declare":  {},
	"defer":    {},
	"disabled": {},
	"ismap":    {},
	"multiple": {},
	"nohref":   {},
	"noresize": {},
	"noshade":  {},
	"nowrap":   {},
	"readonly": {},
	"selected": {},
}

var htmlURIs = map[string]struct{}{
	"action":     {},
	"archive":    {},
	"background": {},
	"cite":       {},
	"classid":    {},
	"codebase":   {},
	"data":       {},
	"formaction": {},
	"href":       {},
	"longdesc":   {},
	"profile":    {},
	"src":        {},
	"usemap":     {},
}

func htmlElement(name xml.QName) htmlFlags {
	if name.Uri != "" {
		return 0
	}
	return htmlElements[strings.ToLower(name.Name)]
}

// htmlBoolean reports whether the attribute can be written with its name
// only.
func htmlBoolean(a Attr) bool {
	if a.Name.Uri != "" {
		return false
	}
	name := strings.ToLower(a.Name.Name)
	if _, ok := htmlBooleans[name]; !ok {
		return false
	}
	return strings.EqualFold(a.Value, name)
}

func htmlURI(a Attr) bool {
	if a.Name.Uri != "" {
		return false
	}
	_, ok := htmlURIs[strings.ToLower(a.Name.Name)]
	return ok
}

const hexdigits = "0123456789ABCDEF"

// escapeURI percent-encodes the bytes of every character outside ASCII.
func escapeURI(str string) string {
	var buf strings.Builder
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c < 0x80 {
			buf.WriteByte(c)
			continue
		}
		buf.WriteByte('%')
		buf.WriteByte(hexdigits[c>>4])
		buf.WriteByte(hexdigits[c&0x0F])
	}
	return buf.String()
}
