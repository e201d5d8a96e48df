package numbering_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/midbel/xform/numbering"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		Name   string
		Values []float64
		Format string
		Lang   string
		Letter numbering.LetterValue
		Sep    string
		Size   int
		Want   string
	}{
		{Name: "lower-alpha", Values: []float64{1, 2, 3}, Format: "a", Want: "a.b.c"},
		{Name: "upper-roman", Values: []float64{4}, Format: "I", Want: "IV"},
		{Name: "padding", Values: []float64{1}, Format: "01", Want: "01"},
		{Name: "padding-wide", Values: []float64{7}, Format: "001", Want: "007"},
		{Name: "default", Values: []float64{12}, Format: "", Want: "12"},
		{Name: "prefix-suffix", Values: []float64{3}, Format: "(1)", Want: "(3)"},
		{Name: "multi-level", Values: []float64{1, 2, 3}, Format: "1.a", Want: "1.b.c"},
		{Name: "multi-level-separators", Values: []float64{2, 3, 4}, Format: "1-1/i", Want: "2-3/iv"},
		{Name: "alpha-wrap", Values: []float64{27, 52, 53}, Format: "A", Want: "AA.AZ.BA"},
		{Name: "lower-roman", Values: []float64{1994}, Format: "i", Want: "mcmxciv"},
		{Name: "roman-out-of-range", Values: []float64{4000}, Format: "I", Want: "4000"},
		{Name: "alpha-zero", Values: []float64{0}, Format: "a", Want: "0"},
		{Name: "round-half-up", Values: []float64{2.5}, Format: "1", Want: "3"},
		{Name: "round-down", Values: []float64{2.4}, Format: "1", Want: "2"},
		{Name: "grouping", Values: []float64{1234567}, Format: "1", Sep: ",", Size: 3, Want: "1,234,567"},
		{Name: "grouping-padding", Values: []float64{5}, Format: "0001", Sep: " ", Size: 2, Want: "00 05"},
		{Name: "unknown-token", Values: []float64{5}, Format: "b", Want: "5"},
		{Name: "arabic-indic", Values: []float64{12}, Format: "١", Want: "١٢"},
		{Name: "greek-token", Values: []float64{3}, Format: "α", Want: "γ"},
		{Name: "greek-lang", Values: []float64{2}, Format: "a", Lang: "el", Want: "β"},
		{Name: "cyrillic-lang", Values: []float64{1}, Format: "A", Lang: "ru-RU", Want: "А"},
		{Name: "alphabetic-i", Values: []float64{4}, Format: "i", Letter: numbering.Alphabetic, Want: "d"},
		{Name: "katakana", Values: []float64{2}, Format: "ア", Want: "イ"},
		{Name: "nan", Values: []float64{math.NaN()}, Format: "1", Want: "NaN"},
		{Name: "huge", Values: []float64{1e20}, Format: "1", Sep: ",", Size: 3, Want: "100,000,000,000,000,000,000"},
		{Name: "huge-negative", Values: []float64{-1e20}, Format: "1", Want: "-100000000000000000000"},
		{Name: "huge-roman", Values: []float64{1e19}, Format: "I", Want: "10000000000000000000"},
		{Name: "min-int", Values: []float64{math.MinInt64}, Format: "1", Want: "-9223372036854775808"},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got := numbering.Format(tt.Values, tt.Format, tt.Lang, tt.Letter, tt.Sep, tt.Size)
			assert.Equal(t, tt.Want, got)
		})
	}
}

func TestParse(t *testing.T) {
	pic := numbering.Parse("[1.a]")
	assert.Equal(t, "[", pic.Prefix)
	assert.Equal(t, "]", pic.Suffix)
	assert.Equal(t, []string{"1", "a"}, pic.Tokens)
	assert.Equal(t, []string{"", "."}, pic.Separators)
}
