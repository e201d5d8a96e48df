// Package numbering formats lists of numbers the way xsl:number does.
package numbering

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

type LetterValue int8

const (
	LetterDefault LetterValue = iota
	Alphabetic
	Traditional
)

func ParseLetterValue(str string) LetterValue {
	switch str {
	case "alphabetic":
		return Alphabetic
	case "traditional":
		return Traditional
	default:
		return LetterDefault
	}
}

type Options struct {
	Lang           string
	Letter         LetterValue
	GroupSeparator string
	GroupSize      int
}

const (
	defaultToken     = "1"
	defaultSeparator = "."
)

// Picture is a parsed format specification: alternating separators and
// format tokens.
type Picture struct {
	Prefix string
	Suffix string
	// Tokens holds the format tokens and Separators the separator found
	// before each token; Separators[0] is always empty.
	Tokens     []string
	Separators []string
}

func Parse(format string) Picture {
	var (
		pic  Picture
		sep  strings.Builder
		tok  strings.Builder
		seen bool
	)
	flushToken := func() {
		if tok.Len() == 0 {
			return
		}
		if !seen {
			pic.Prefix = sep.String()
			pic.Separators = append(pic.Separators, "")
		} else {
			pic.Separators = append(pic.Separators, sep.String())
		}
		pic.Tokens = append(pic.Tokens, tok.String())
		sep.Reset()
		tok.Reset()
		seen = true
	}
	for _, r := range format {
		if isAlphanumeric(r) {
			tok.WriteRune(r)
			continue
		}
		flushToken()
		sep.WriteRune(r)
	}
	flushToken()
	if !seen {
		pic.Prefix = sep.String()
		pic.Tokens = []string{defaultToken}
		pic.Separators = []string{""}
		return pic
	}
	pic.Suffix = sep.String()
	return pic
}

// Format renders values with the picture. Values are rounded to the nearest
// integer and values an alphabet can not represent use decimal digits.
func (p Picture) Format(values []float64, opts Options) string {
	var str strings.Builder
	str.WriteString(p.Prefix)
	for i, v := range values {
		if i > 0 {
			str.WriteString(p.separator(i))
		}
		str.WriteString(formatValue(v, p.token(i), opts))
	}
	str.WriteString(p.Suffix)
	return str.String()
}

func (p Picture) token(i int) string {
	if len(p.Tokens) == 0 {
		return defaultToken
	}
	if i >= len(p.Tokens) {
		i = len(p.Tokens) - 1
	}
	return p.Tokens[i]
}

func (p Picture) separator(i int) string {
	if i < len(p.Separators) {
		return p.Separators[i]
	}
	if n := len(p.Separators); n > 1 {
		return p.Separators[n-1]
	}
	return defaultSeparator
}

// Format parses format and renders values with it.
func Format(values []float64, format, lang string, letter LetterValue, groupSep string, groupSize int) string {
	opts := Options{
		Lang:           lang,
		Letter:         letter,
		GroupSeparator: groupSep,
		GroupSize:      groupSize,
	}
	return Parse(format).Format(values, opts)
}

func formatValue(value float64, token string, opts Options) string {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case math.IsInf(value, 1):
		return "Infinity"
	case math.IsInf(value, -1):
		return "-Infinity"
	default:
	}
	rounded := math.Floor(value + 0.5)
	alpha := alphabetFor(token, opts)
	if alpha == nil {
		alpha = alphabetFor(defaultToken, opts)
	}
	if math.Abs(rounded) >= 1<<63 {
		d, ok := alpha.(decimal)
		if !ok {
			d = arabic(opts)
		}
		return d.render(strconv.FormatFloat(math.Abs(rounded), 'f', 0, 64), rounded < 0)
	}
	n := int64(rounded)
	if str, ok := alpha.Format(n); ok {
		return str
	}
	str, _ := arabic(opts).Format(n)
	return str
}

func isAlphanumeric(r rune) bool {
	return unicode.In(r, unicode.Nd, unicode.Nl, unicode.No, unicode.Lu, unicode.Ll, unicode.Lt, unicode.Lm, unicode.Lo)
}
