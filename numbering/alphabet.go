package numbering

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Alphabet converts a positive integer to its representation. It reports
// false when the value can not be represented.
type Alphabet interface {
	Format(n int64) (string, bool)
}

var (
	latinLower    = letters("abcdefghijklmnopqrstuvwxyz")
	latinUpper    = letters("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	greekLower    = letters("αβγδεζηθικλμνξοπρστυφχψω")
	greekUpper    = letters("ΑΒΓΔΕΖΗΘΙΚΛΜΝΞΟΠΡΣΤΥΦΧΨΩ")
	cyrillicLower = letters("абвгдежзийклмнопрстуфхцчшщъыьэюя")
	cyrillicUpper = letters("АБВГДЕЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯ")
	hebrew        = letters("אבגדהוזחטיכלמנסעפצקרשת")
	hiragana      = letters("あいうえおかきくけこさしすせそたちつてとなにぬねのはひふへほまみむめもやゆよらりるれろわをん")
	katakana      = letters("アイウエオカキクケコサシスセソタチツテトナニヌネノハヒフヘホマミムメモヤユヨラリルレロワヲン")
)

// opaque maps the first letter of a sequence to the sequence itself.
var opaque = map[rune]Alphabet{
	'α': greekLower,
	'Α': greekUpper,
	'а': cyrillicLower,
	'А': cyrillicUpper,
	'א': hebrew,
	'あ': hiragana,
	'ア': katakana,
}

// digit zeros of the decimal families supported as format tokens.
var zeros = []rune{
	'0',
	0x0660, // arabic-indic
	0x06F0, // extended arabic-indic
	0x07C0, // nko
	0x0966, // devanagari
	0x09E6, // bengali
	0x0A66, // gurmukhi
	0x0AE6, // gujarati
	0x0B66, // oriya
	0x0BE6, // tamil
	0x0C66, // telugu
	0x0CE6, // kannada
	0x0D66, // malayalam
	0x0E50, // thai
	0x0ED0, // lao
	0x0F20, // tibetan
	0x1040, // myanmar
	0xFF10, // fullwidth
}

func zeroOf(r rune) (rune, bool) {
	for _, z := range zeros {
		if r >= z && r <= z+9 {
			return z, true
		}
	}
	return 0, false
}

type sequence struct {
	chars []rune
}

func letters(str string) sequence {
	return sequence{
		chars: []rune(str),
	}
}

// Format uses a bijective numeration: a, b, ..., z, aa, ab...
func (s sequence) Format(n int64) (string, bool) {
	if n <= 0 || len(s.chars) == 0 {
		return "", false
	}
	var (
		base = int64(len(s.chars))
		buf  []rune
	)
	for n > 0 {
		n--
		buf = append(buf, s.chars[n%base])
		n /= base
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), true
}

const maxRoman = 3999

type roman struct {
	upper bool
}

var romanTable = []struct {
	value  int64
	symbol string
}{
	{1000, "m"},
	{900, "cm"},
	{500, "d"},
	{400, "cd"},
	{100, "c"},
	{90, "xc"},
	{50, "l"},
	{40, "xl"},
	{10, "x"},
	{9, "ix"},
	{5, "v"},
	{4, "iv"},
	{1, "i"},
}

func (r roman) Format(n int64) (string, bool) {
	if n <= 0 || n > maxRoman {
		return "", false
	}
	var str strings.Builder
	for _, e := range romanTable {
		for n >= e.value {
			str.WriteString(e.symbol)
			n -= e.value
		}
	}
	if r.upper {
		return strings.ToUpper(str.String()), true
	}
	return str.String(), true
}

type decimal struct {
	zero  rune
	width int

	separator string
	size      int
}

func (d decimal) Format(n int64) (string, bool) {
	digits := strconv.FormatInt(n, 10)
	return d.render(strings.TrimPrefix(digits, "-"), n < 0), true
}

// render writes the decimal digits with the zero of d, padded and grouped.
func (d decimal) render(digits string, neg bool) string {
	if w := d.width - len(digits); w > 0 {
		digits = strings.Repeat("0", w) + digits
	}
	var str strings.Builder
	if neg {
		str.WriteByte('-')
	}
	for i, c := range digits {
		if i > 0 && d.size > 0 && d.separator != "" && (len(digits)-i)%d.size == 0 {
			str.WriteString(d.separator)
		}
		str.WriteRune(d.zero + (c - '0'))
	}
	return str.String()
}

// alphabetFor gives the alphabet selected by a format token. The Latin letter
// tokens follow the language when it has its own alphabet.
func alphabetFor(token string, opts Options) Alphabet {
	first, _ := utf8.DecodeRuneInString(token)
	if z, ok := zeroOf(first); ok {
		return decimalFor(token, z, opts)
	}
	if utf8.RuneCountInString(token) != 1 {
		return nil
	}
	switch first {
	case 'a', 'A':
		return latinFor(first == 'A', opts.Lang)
	case 'i', 'I':
		if opts.Letter == Alphabetic {
			return latinFor(first == 'I', opts.Lang)
		}
		return roman{upper: first == 'I'}
	default:
	}
	if a, ok := opaque[first]; ok {
		return a
	}
	return nil
}

func decimalFor(token string, zero rune, opts Options) Alphabet {
	var (
		chars = []rune(token)
		last  = len(chars) - 1
	)
	for i, c := range chars {
		if i == last && c != zero+1 {
			return nil
		}
		if i < last && c != zero {
			return nil
		}
	}
	return decimal{
		zero:      zero,
		width:     len(chars),
		separator: opts.GroupSeparator,
		size:      opts.GroupSize,
	}
}

func latinFor(upper bool, lang string) Alphabet {
	var base string
	if lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			b, _ := tag.Base()
			base = b.String()
		}
	}
	switch base {
	case "el":
		if upper {
			return greekUpper
		}
		return greekLower
	case "ru", "uk", "bg", "sr", "be", "mk":
		if upper {
			return cyrillicUpper
		}
		return cyrillicLower
	default:
		if upper {
			return latinUpper
		}
		return latinLower
	}
}

func arabic(opts Options) decimal {
	return decimal{
		zero:      '0',
		width:     1,
		separator: opts.GroupSeparator,
		size:      opts.GroupSize,
	}
}
