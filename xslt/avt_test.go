package xslt

import (
	"errors"
	"math"
	"testing"

	"github.com/midbel/xform/xml"
)

type rawExpr string

func (e rawExpr) String() string {
	return string(e)
}

func compileRaw(str string) (Expr, error) {
	return rawExpr(str), nil
}

func TestParseAVT(t *testing.T) {
	tests := []struct {
		Input  string
		String string
		Static bool
	}{
		{Input: "", String: "", Static: true},
		{Input: "plain", String: "plain", Static: true},
		{Input: "{{escaped}}", String: "{{escaped}}", Static: true},
		{Input: "{@id}", String: "{@id}"},
		{Input: "a-{@id}-b", String: "a-{@id}-b"},
		{Input: "{ @id }{name()}", String: "{@id}{name()}"},
		{Input: "{'}'}", String: "{'}'}"},
		{Input: `{concat("{", 'x')}`, String: `{concat("{", 'x')}`},
	}
	for _, tt := range tests {
		avt, err := ParseAVT(tt.Input, compileRaw)
		if err != nil {
			t.Errorf("%s: unexpected error: %s", tt.Input, err)
			continue
		}
		if !avt.Defined() {
			t.Errorf("%s: template should be defined", tt.Input)
		}
		if got := avt.String(); got != tt.String {
			t.Errorf("%s: template mismatched! want %s, got %s", tt.Input, tt.String, got)
		}
		if _, ok := avt.Static(); ok != tt.Static {
			t.Errorf("%s: static mismatched! want %t, got %t", tt.Input, tt.Static, ok)
		}
	}
}

func TestParseAVTStatic(t *testing.T) {
	avt, err := ParseAVT("a{{b}}c", compileRaw)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	str, ok := avt.Static()
	if !ok || str != "a{b}c" {
		t.Errorf("static value mismatched! want a{b}c, got %s", str)
	}
	got, err := avt.Eval(nil, nil)
	if err != nil || got != "a{b}c" {
		t.Errorf("static template should be evaluated without evaluator")
	}
	if zero := (AVT{}); zero.Defined() {
		t.Errorf("zero template should not be defined")
	}
	if lit := Literal("x"); !lit.Defined() {
		t.Errorf("literal should be defined")
	}
}

func TestParseAVTError(t *testing.T) {
	tests := []string{
		"{",
		"}",
		"a}b",
		"{}",
		"{ }",
		"a{b{c}}",
		"{'unterminated}",
	}
	for _, str := range tests {
		_, err := ParseAVT(str, compileRaw)
		if !errors.Is(err, ErrTemplate) {
			t.Errorf("%q: expected template error, got %v", str, err)
		}
	}
	failure := errors.New("failure")
	_, err := ParseAVT("{x}", func(string) (Expr, error) {
		return nil, failure
	})
	if !errors.Is(err, failure) {
		t.Errorf("error of compiler should be returned, got %v", err)
	}
}

func TestCoerce(t *testing.T) {
	node := xml.NewText("text")
	tests := []struct {
		Input any
		Kind  ValueKind
		Want  string
	}{
		{Input: "str", Kind: KindString, Want: "str"},
		{Input: true, Kind: KindBool, Want: "true"},
		{Input: 42, Kind: KindNumber, Want: "42"},
		{Input: int8(-3), Kind: KindNumber, Want: "-3"},
		{Input: uint64(7), Kind: KindNumber, Want: "7"},
		{Input: float32(1.5), Kind: KindNumber, Want: "1.5"},
		{Input: 0.25, Kind: KindNumber, Want: "0.25"},
		{Input: node, Kind: KindNodes, Want: "text"},
		{Input: []xml.Node{node}, Kind: KindNodes, Want: "text"},
		{Input: Bool(false), Kind: KindBool, Want: "false"},
		{Input: []int{1, 2}, Kind: KindString, Want: "[1 2]"},
	}
	for _, tt := range tests {
		v := Coerce(tt.Input)
		if v.Kind() != tt.Kind {
			t.Errorf("%v: kind mismatched! want %s, got %s", tt.Input, tt.Kind, v.Kind())
		}
		if got := v.String(); got != tt.Want {
			t.Errorf("%v: value mismatched! want %s, got %s", tt.Input, tt.Want, got)
		}
	}
}

func TestValueConversion(t *testing.T) {
	if !math.IsNaN(String("abc").Number()) {
		t.Errorf("non numeric string should give NaN")
	}
	if String(" 12 ").Number() != 12 {
		t.Errorf("numeric string should be converted")
	}
	if Float(math.NaN()).Bool() {
		t.Errorf("NaN should be false")
	}
	if !String("x").Bool() || String("").Bool() {
		t.Errorf("string conversion to boolean mismatched")
	}
	if Nodes(nil).Bool() {
		t.Errorf("empty node set should be false")
	}
	if Bool(true).Number() != 1 {
		t.Errorf("true should be 1")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		Input float64
		Want  string
	}{
		{Input: 0, Want: "0"},
		{Input: math.Copysign(0, -1), Want: "0"},
		{Input: 3, Want: "3"},
		{Input: -3, Want: "-3"},
		{Input: 0.5, Want: "0.5"},
		{Input: math.NaN(), Want: "NaN"},
		{Input: math.Inf(1), Want: "Infinity"},
		{Input: math.Inf(-1), Want: "-Infinity"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.Input); got != tt.Want {
			t.Errorf("%f: number mismatched! want %s, got %s", tt.Input, tt.Want, got)
		}
	}
}
