package xpath

import (
	"unicode"
	"unicode/utf8"
)

const (
	EOF rune = -(1 + iota)
	Name
	Literal
	Digit
	Variable
	Blank
	Invalid
)

// Token is a lexical unit of an expression. Punctuation and operators made of
// one character use the character as type.
type Token struct {
	Literal string
	Type    rune
	Offset  int
	End     int
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "<eof>"
	case Name:
		return "name(" + t.Literal + ")"
	case Literal:
		return "literal(" + t.Literal + ")"
	case Digit:
		return "number(" + t.Literal + ")"
	case Variable:
		return "variable(" + t.Literal + ")"
	case Blank:
		return "<blank>"
	case Invalid:
		return "<invalid>"
	default:
		return "<" + string(t.Type) + ">"
	}
}

// Scanner splits an expression in tokens, keeping blanks so that the source
// can be written back around rewritten parts.
type Scanner struct {
	input string
	pos   int
}

func Scan(str string) *Scanner {
	return &Scanner{
		input: str,
	}
}

func (s *Scanner) Scan() Token {
	tok := Token{
		Offset: s.pos,
	}
	if s.done() {
		tok.Type = EOF
		tok.End = s.pos
		return tok
	}
	c := s.char()
	switch {
	case unicode.IsSpace(c):
		s.skip(unicode.IsSpace)
		tok.Type = Blank
	case c == apos || c == dquote:
		s.scanLiteral(&tok, c)
	case c == dollar:
		s.read()
		tok.Type = Variable
		tok.Literal = s.scanQName(false)
		if tok.Literal == "" {
			tok.Type = Invalid
		}
	case isDigit(c) || (c == dot && isDigit(s.next())):
		s.scanNumber(&tok)
	case isNameStart(c):
		tok.Type = Name
		tok.Literal = s.scanQName(true)
	default:
		s.read()
		tok.Type = c
	}
	tok.End = s.pos
	return tok
}

func (s *Scanner) scanLiteral(tok *Token, quote rune) {
	s.read()
	start := s.pos
	for !s.done() && s.char() != quote {
		s.read()
	}
	if s.done() {
		tok.Type = Invalid
		return
	}
	tok.Type = Literal
	tok.Literal = s.input[start:s.pos]
	s.read()
}

func (s *Scanner) scanNumber(tok *Token) {
	start := s.pos
	s.skip(isDigit)
	if s.char() == dot {
		s.read()
		s.skip(isDigit)
	}
	tok.Type = Digit
	tok.Literal = s.input[start:s.pos]
}

// scanQName reads a name with an optional prefix. With wildcard, prefix:*
// is read as one name.
func (s *Scanner) scanQName(wildcard bool) string {
	start := s.pos
	s.skip(isNameChar)
	if s.char() == colon {
		switch n := s.next(); {
		case isNameStart(n):
			s.read()
			s.skip(isNameChar)
		case n == star && wildcard:
			s.read()
			s.read()
		}
	}
	return s.input[start:s.pos]
}

func (s *Scanner) skip(accept func(rune) bool) {
	for !s.done() && accept(s.char()) {
		s.read()
	}
}

func (s *Scanner) char() rune {
	if s.done() {
		return utf8.RuneError
	}
	c, _ := utf8.DecodeRuneInString(s.input[s.pos:])
	return c
}

func (s *Scanner) next() rune {
	if s.done() {
		return utf8.RuneError
	}
	_, z := utf8.DecodeRuneInString(s.input[s.pos:])
	if s.pos+z >= len(s.input) {
		return utf8.RuneError
	}
	c, _ := utf8.DecodeRuneInString(s.input[s.pos+z:])
	return c
}

func (s *Scanner) read() {
	if s.done() {
		return
	}
	_, z := utf8.DecodeRuneInString(s.input[s.pos:])
	s.pos += z
}

func (s *Scanner) done() bool {
	return s.pos >= len(s.input)
}

// Tokenize gives all the tokens of str, blanks included.
func Tokenize(str string) ([]Token, error) {
	var (
		scan = Scan(str)
		list []Token
	)
	for {
		tok := scan.Scan()
		if tok.Type == EOF {
			return list, nil
		}
		if tok.Type == Invalid {
			return nil, syntaxError(str, "invalid token", tok.Offset)
		}
		list = append(list, tok)
	}
}

const (
	lsquare = '['
	rsquare = ']'
	lparen  = '('
	rparen  = ')'
	colon   = ':'
	dquote  = '"'
	apos    = '\''
	slash   = '/'
	dash    = '-'
	dot     = '.'
	arobase = '@'
	comma   = ','
	star    = '*'
	pipe    = '|'
	dollar  = '$'
)

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isNameStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isNameChar(c rune) bool {
	return isNameStart(c) || unicode.IsDigit(c) || c == dash || c == dot
}
