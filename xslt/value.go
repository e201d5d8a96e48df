package xslt

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/midbel/xform/xml"
)

type ValueKind int8

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindNodes
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindNodes:
		return "node-set"
	default:
		return "<unknown>"
	}
}

// Value is the result of an expression: a string, a number, a boolean or a
// sequence of nodes in document order.
type Value struct {
	kind  ValueKind
	str   string
	num   float64
	bool  bool
	nodes []xml.Node
}

func String(str string) Value {
	return Value{kind: KindString, str: str}
}

func Float(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, bool: b}
}

func Nodes(nodes []xml.Node) Value {
	return Value{kind: KindNodes, nodes: nodes}
}

// Coerce converts a value given by the embedding application. Node sequences,
// nodes, values, booleans, float64 and strings are kept; other numbers are
// widened to float64 and everything else is formatted with fmt.
func Coerce(v any) Value {
	switch v := v.(type) {
	case Value:
		return v
	case []xml.Node:
		return Nodes(v)
	case xml.Node:
		return Nodes([]xml.Node{v})
	case bool:
		return Bool(v)
	case float64:
		return Float(v)
	case string:
		return String(v)
	case int:
		return Float(float64(v))
	case int8:
		return Float(float64(v))
	case int16:
		return Float(float64(v))
	case int32:
		return Float(float64(v))
	case int64:
		return Float(float64(v))
	case uint:
		return Float(float64(v))
	case uint8:
		return Float(float64(v))
	case uint16:
		return Float(float64(v))
	case uint32:
		return Float(float64(v))
	case uint64:
		return Float(float64(v))
	case float32:
		return Float(float64(v))
	default:
		return String(fmt.Sprint(v))
	}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

// Nodes gives the node sequence of the value. It reports false when the value
// is not a node sequence.
func (v Value) Nodes() ([]xml.Node, bool) {
	return v.nodes, v.kind == KindNodes
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.bool)
	case KindNodes:
		if len(v.nodes) == 0 {
			return ""
		}
		return v.nodes[0].Value()
	default:
		return v.str
	}
}

func (v Value) Number() float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		if v.bool {
			return 1
		}
		return 0
	default:
		return ParseNumber(v.String())
	}
}

func (v Value) Bool() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBool:
		return v.bool
	case KindNodes:
		return len(v.nodes) > 0
	default:
		return v.str != ""
	}
}

// FormatNumber gives the string value of a number: integers have no
// fractional part and special values are spelled out.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatInt(int64(f), 10)
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

func ParseNumber(str string) float64 {
	str = strings.TrimSpace(str)
	if str == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// inDocumentOrder sorts nodes and drops duplicates.
func inDocumentOrder(nodes []xml.Node) []xml.Node {
	slices.SortStableFunc(nodes, xml.DocumentOrder)
	return slices.CompactFunc(nodes, func(a, b xml.Node) bool {
		return a == b
	})
}
