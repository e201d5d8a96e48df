package xml

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"slices"
	"strings"
)

type CmpMode int8

const (
	CmpOrdered CmpMode = iota
	CmpUnordered
)

// CmpResult gives the first pair of nodes found different by Compare. Both
// nodes are the roots when the documents match.
type CmpResult struct {
	Source Node
	Target Node
	Match  bool
}

var ErrCompare = errors.New("documents mismatched")

// CompareFiles parses both files and compares their trees.
func CompareFiles(source, target string, mode CmpMode) (CmpResult, error) {
	doc1, err := ParseFile(source)
	if err != nil {
		return CmpResult{}, err
	}
	doc2, err := ParseFile(target)
	if err != nil {
		return CmpResult{}, err
	}
	res := Compare(doc1, doc2, mode)
	if !res.Match {
		err = ErrCompare
	}
	return res, err
}

// Compare tells whether two trees hold the same nodes. Names are compared by
// their expanded form and namespace declarations are skipped. Attributes are
// unordered. Text is trimmed and text made of whitespace only is ignored.
// With CmpUnordered, the children of an element can appear in any order.
func Compare(source, target Node, mode CmpMode) CmpResult {
	var (
		h1 = buildHashTree(source, mode)
		h2 = buildHashTree(target, mode)
	)
	return h1.compare(h2, mode)
}

type hashNode struct {
	Node
	self     uint64
	hash     uint64
	children []*hashNode
}

func (n *hashNode) compare(other *hashNode, mode CmpMode) CmpResult {
	res := CmpResult{
		Source: n.Node,
		Target: other.Node,
		Match:  n.hash == other.hash,
	}
	if res.Match || n.self != other.self {
		return res
	}
	if mode == CmpOrdered {
		for i := range min(len(n.children), len(other.children)) {
			if r := n.children[i].compare(other.children[i], mode); !r.Match {
				return r
			}
		}
		return res
	}
	pool := make(map[uint64]int)
	for _, c := range other.children {
		pool[c.hash]++
	}
	var missing []*hashNode
	for _, c := range n.children {
		if pool[c.hash] > 0 {
			pool[c.hash]--
			continue
		}
		missing = append(missing, c)
	}
	var extra []*hashNode
	for _, c := range other.children {
		if pool[c.hash] > 0 {
			pool[c.hash]--
			extra = append(extra, c)
		}
	}
	switch {
	case len(missing) == 1 && len(extra) == 1:
		return missing[0].compare(extra[0], mode)
	case len(missing) > 0:
		res.Source = missing[0].Node
	case len(extra) > 0:
		res.Target = extra[0].Node
	}
	return res
}

func buildHashTree(root Node, mode CmpMode) *hashNode {
	node := hashNode{
		Node: root,
		self: computeHashForNode(root),
	}
	var nodes []Node
	switch n := root.(type) {
	case *Document:
		nodes = n.Nodes
	case *Element:
		nodes = n.Nodes
	}
	hashes := []uint64{node.self}
	for _, c := range nodes {
		if t, ok := c.(*Text); ok && strings.TrimSpace(t.Content) == "" {
			continue
		}
		h := buildHashTree(c, mode)
		node.children = append(node.children, h)
		hashes = append(hashes, h.hash)
	}
	if mode == CmpUnordered {
		slices.Sort(hashes[1:])
	}
	node.hash = computeHash(hashes)
	return &node
}

func computeHash(values []uint64) uint64 {
	var (
		sum = fnv.New64a()
		buf = make([]byte, 8)
	)
	for i := range values {
		binary.LittleEndian.PutUint64(buf, values[i])
		sum.Write(buf)
	}
	return sum.Sum64()
}

// computeHashForNode hashes the node without its children.
func computeHashForNode(root Node) uint64 {
	values := []uint64{uint64(root.Type())}
	switch n := root.(type) {
	case *Element:
		values = append(values, getHashForText(n.QName.ExpandedName()))
		attrs := make([]uint64, 0, len(n.Attrs))
		for i := range n.Attrs {
			if n.Attrs[i].IsNamespace() {
				continue
			}
			attrs = append(attrs, computeHashForNode(&n.Attrs[i]))
		}
		slices.Sort(attrs)
		values = append(values, attrs...)
	case *Instruction:
		values = append(values, getHashForText(n.QName.QualifiedName()), getHashForText(n.Content))
	case *Attribute:
		values = append(values, getHashForText(n.QName.ExpandedName()), getHashForText(n.Datum))
	case *Comment:
		values = append(values, getHashForText(n.Content))
	case *Text:
		values = append(values, getHashForText(n.Content))
	default:
	}
	return computeHash(values)
}

func getHashForText(str string) uint64 {
	str = strings.TrimSpace(str)
	s := fnv.New64a()
	s.Write([]byte(str))
	return s.Sum64()
}
