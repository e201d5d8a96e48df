package xslt

import (
	"github.com/midbel/xform/xml"
)

// key gives the nodes under root indexed under value by the named key. The
// index of a document is built the first time one of its keys is used.
func (x *Execution) key(name string, root xml.Node, value string) ([]xml.Node, error) {
	ki := keyIndex{
		name: name,
		root: root,
	}
	index, ok := x.keys[ki]
	if !ok {
		decls := x.sheet.Keys(name)
		if len(decls) == 0 {
			return nil, undefinedKey(name)
		}
		var err error
		if index, err = x.buildIndex(decls, root); err != nil {
			return nil, err
		}
		x.keys[ki] = index
	}
	return index[value], nil
}

func (x *Execution) buildIndex(decls []*Key, root xml.Node) (map[string][]xml.Node, error) {
	index := make(map[string][]xml.Node)
	add := func(value string, node xml.Node) {
		list := index[value]
		if n := len(list); n > 0 && list[n-1] == node {
			return
		}
		index[value] = append(list, node)
	}
	focus := Focus{
		Position: 1,
		Size:     1,
		exec:     x,
		frame:    -1,
	}
	var visit func(xml.Node) error
	visit = func(node xml.Node) error {
		focus.Node = node
		for _, k := range decls {
			ok, err := x.matchAny(k.Match, node, &focus)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			v, err := x.eval.Evaluate(k.Use, &focus)
			if err != nil {
				return err
			}
			if nodes, ok := v.Nodes(); ok {
				for _, n := range nodes {
					add(n.Value(), node)
				}
			} else {
				add(v.String(), node)
			}
		}
		if el, ok := node.(*xml.Element); ok {
			for _, a := range el.Attributes() {
				if err := visit(a); err != nil {
					return err
				}
			}
		}
		for _, c := range xml.Children(node) {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	return index, visit(root)
}

func (x *Execution) matchAny(list []Pattern, node xml.Node, focus *Focus) (bool, error) {
	for _, p := range list {
		ok, err := x.eval.Matches(p, node, focus)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
