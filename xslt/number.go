package xslt

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/midbel/xform/numbering"
	"github.com/midbel/xform/xml"
)

func (x *Execution) number(ix int, a *Number) (string, error) {
	var (
		values []float64
		err    error
	)
	if a.Value != nil {
		v, err := x.eval.Evaluate(a.Value, x.focus(ix))
		if err != nil {
			return "", err
		}
		n := v.Number()
		if !math.IsNaN(n) && !math.IsInf(n, 0) {
			n = math.Round(n)
		}
		values = append(values, n)
	} else {
		values, err = x.count(ix, a)
		if err != nil {
			return "", err
		}
	}
	str := func(a AVT, def string) (string, error) {
		if !a.Defined() {
			return def, nil
		}
		return a.Eval(x.eval, x.focus(ix))
	}
	format, err := str(a.Format, "1")
	if err != nil {
		return "", err
	}
	lang, err := str(a.Lang, "")
	if err != nil {
		return "", err
	}
	letter, err := str(a.Letter, "")
	if err != nil {
		return "", err
	}
	sep, err := str(a.GroupSep, "")
	if err != nil {
		return "", err
	}
	size, err := str(a.GroupSize, "")
	if err != nil {
		return "", err
	}
	var group int
	if size = strings.TrimSpace(size); size != "" {
		if group, err = strconv.Atoi(size); err != nil {
			return "", fmt.Errorf("%s: invalid grouping size", size)
		}
	}
	if sep == "" || group <= 0 {
		sep, group = "", 0
	}
	return numbering.Format(values, format, lang, numbering.ParseLetterValue(strings.TrimSpace(letter)), sep, group), nil
}

// count numbers the context node according to the level of a. Without count
// patterns, nodes of the same type and name as the context node are counted.
func (x *Execution) count(ix int, a *Number) ([]float64, error) {
	var (
		focus   = x.focus(ix)
		current = focus.Node
	)
	counted := func(n xml.Node) (bool, error) {
		if len(a.Count) > 0 {
			return x.matchAny(a.Count, n, focus)
		}
		return sameKind(n, current), nil
	}
	stop := func(n xml.Node) (bool, error) {
		if len(a.From) == 0 {
			return false, nil
		}
		return x.matchAny(a.From, n, focus)
	}

	switch a.Level {
	case LevelAny:
		return countAny(current, counted, stop)
	case LevelMultiple:
		var list []float64
		for n := current; n != nil; n = n.Parent() {
			if ok, err := stop(n); err != nil || ok {
				if err != nil {
					return nil, err
				}
				break
			}
			ok, err := counted(n)
			if err != nil {
				return nil, err
			}
			if ok {
				pos, err := siblingNumber(n, counted)
				if err != nil {
					return nil, err
				}
				list = append(list, float64(pos))
			}
		}
		slices.Reverse(list)
		return list, nil
	default:
		for n := current; n != nil; n = n.Parent() {
			if ok, err := stop(n); err != nil || ok {
				return nil, err
			}
			ok, err := counted(n)
			if err != nil {
				return nil, err
			}
			if ok {
				pos, err := siblingNumber(n, counted)
				if err != nil {
					return nil, err
				}
				return []float64{float64(pos)}, nil
			}
		}
		return nil, nil
	}
}

func sameKind(n, other xml.Node) bool {
	if n.Type() != other.Type() {
		return false
	}
	return xml.NameOf(n).Equal(xml.NameOf(other))
}

// siblingNumber gives one plus the number of preceding siblings of n that
// are counted.
func siblingNumber(n xml.Node, counted func(xml.Node) (bool, error)) (int, error) {
	pos := 1
	if n.Type() == xml.TypeAttribute {
		return pos, nil
	}
	for _, s := range xml.Children(n.Parent()) {
		if s == n {
			break
		}
		ok, err := counted(s)
		if err != nil {
			return 0, err
		}
		if ok {
			pos++
		}
	}
	return pos, nil
}

// countAny counts the nodes matched by counted that come before current in
// document order, current included, starting again after each node matching
// stop. A node matching stop is not counted. Attributes are skipped except
// current.
func countAny(current xml.Node, counted, stop func(xml.Node) (bool, error)) ([]float64, error) {
	var (
		total int
		found bool
	)
	var visit func(xml.Node) error
	visit = func(n xml.Node) error {
		if found {
			return nil
		}
		ok, err := stop(n)
		if err != nil {
			return err
		}
		if ok {
			total = 0
		} else if ok, err = counted(n); err != nil {
			return err
		} else if ok {
			total++
		}
		if n == current {
			found = true
			return nil
		}
		if current.Type() == xml.TypeAttribute && n == current.Parent() {
			if err := visit(current); err != nil || found {
				return err
			}
		}
		for _, c := range xml.Children(n) {
			if err := visit(c); err != nil || found {
				return err
			}
		}
		return nil
	}
	if err := visit(xml.Root(current)); err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}
	return []float64{float64(total)}, nil
}
