package xslt

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/midbel/xform/xml"
)

type sortSpec struct {
	number     bool
	descending bool
	upperFirst bool
	collator   *collate.Collator
}

type sortItem struct {
	node xml.Node
	text []string
	nums []float64
}

// sort orders nodes by keys. Keys are evaluated once per node with the node
// as context and its position in the unsorted list. The sort is stable.
func (x *Execution) sort(ix int, nodes []xml.Node, keys []Sort) ([]xml.Node, error) {
	if len(keys) == 0 || len(nodes) < 2 {
		return nodes, nil
	}
	specs := make([]sortSpec, len(keys))
	for i, k := range keys {
		s, err := x.sortSpec(ix, k)
		if err != nil {
			return nil, err
		}
		specs[i] = s
	}
	items := make([]sortItem, len(nodes))
	for i, n := range nodes {
		item := sortItem{
			node: n,
			text: make([]string, len(keys)),
			nums: make([]float64, len(keys)),
		}
		focus := Focus{
			Node:     n,
			Position: i + 1,
			Size:     len(nodes),
			exec:     x,
			frame:    ix,
		}
		for j, k := range keys {
			str := n.Value()
			if k.Select != nil {
				v, err := x.eval.Evaluate(k.Select, &focus)
				if err != nil {
					return nil, err
				}
				str = v.String()
			}
			item.text[j] = str
			item.nums[j] = ParseNumber(str)
		}
		items[i] = item
	}
	slices.SortStableFunc(items, func(a, b sortItem) int {
		for i, s := range specs {
			var c int
			if s.number {
				c = compareNumbers(a.nums[i], b.nums[i])
			} else {
				c = s.compareText(a.text[i], b.text[i])
			}
			if s.descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	sorted := make([]xml.Node, len(items))
	for i := range items {
		sorted[i] = items[i].node
	}
	return sorted, nil
}

func (x *Execution) sortSpec(ix int, k Sort) (sortSpec, error) {
	var spec sortSpec
	eval := func(a AVT, def string) (string, error) {
		if !a.Defined() {
			return def, nil
		}
		str, err := a.Eval(x.eval, x.focus(ix))
		return strings.TrimSpace(str), err
	}
	dataType, err := eval(k.DataType, "text")
	if err != nil {
		return spec, err
	}
	order, err := eval(k.Order, "ascending")
	if err != nil {
		return spec, err
	}
	caseOrder, err := eval(k.CaseOrder, "upper-first")
	if err != nil {
		return spec, err
	}
	lang, err := eval(k.Lang, "")
	if err != nil {
		return spec, err
	}
	switch dataType {
	case "text":
	case "number":
		spec.number = true
	default:
		return spec, fmt.Errorf("%s: unsupported sort data type", dataType)
	}
	switch order {
	case "ascending":
	case "descending":
		spec.descending = true
	default:
		return spec, fmt.Errorf("%s: unsupported sort order", order)
	}
	switch caseOrder {
	case "upper-first":
		spec.upperFirst = true
	case "lower-first":
	default:
		return spec, fmt.Errorf("%s: unsupported case order", caseOrder)
	}
	tag := language.Und
	if lang != "" {
		if t, err := language.Parse(lang); err == nil {
			tag = t
		}
	}
	spec.collator = collate.New(tag, collate.IgnoreCase)
	return spec, nil
}

// compareText orders strings ignoring case first then puts the upper or the
// lower case variant first.
func (s sortSpec) compareText(a, b string) int {
	if c := s.collator.CompareString(a, b); c != 0 {
		return c
	}
	for ra, rb := []rune(a), []rune(b); len(ra) > 0 && len(rb) > 0; ra, rb = ra[1:], rb[1:] {
		if ra[0] == rb[0] {
			continue
		}
		ua, ub := unicode.IsUpper(ra[0]), unicode.IsUpper(rb[0])
		if ua == ub {
			return cmp.Compare(ra[0], rb[0])
		}
		if ua == s.upperFirst {
			return -1
		}
		return 1
	}
	return cmp.Compare(len(a), len(b))
}

// compareNumbers puts NaN before every number.
func compareNumbers(a, b float64) int {
	switch na, nb := math.IsNaN(a), math.IsNaN(b); {
	case na && nb:
		return 0
	case na:
		return -1
	case nb:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
