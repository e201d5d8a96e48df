package xpath

import (
	"github.com/antchfx/xpath"

	"github.com/midbel/xform/xml"
)

// navigator walks a tree of xml nodes for the query engine. Processing
// instructions are not visible to queries.
type navigator struct {
	root xml.Node
	curr xml.Node
	attr int
}

func navigate(node xml.Node) *navigator {
	nav := navigator{
		root: xml.Root(node),
		curr: node,
		attr: -1,
	}
	if a, ok := node.(*xml.Attribute); ok {
		if el, ok := a.Parent().(*xml.Element); ok {
			nav.curr = el
			nav.attr = indexAttr(el, a)
		}
	}
	return &nav
}

func indexAttr(el *xml.Element, a *xml.Attribute) int {
	for i, other := range el.Attributes() {
		if other == a {
			return i
		}
	}
	return -1
}

// node gives the node the navigator is on.
func (n *navigator) node() xml.Node {
	if n.attr >= 0 {
		if a := n.attribute(); a != nil {
			return a
		}
	}
	return n.curr
}

func (n *navigator) attribute() *xml.Attribute {
	el, ok := n.curr.(*xml.Element)
	if !ok {
		return nil
	}
	list := el.Attributes()
	if n.attr < 0 || n.attr >= len(list) {
		return nil
	}
	return list[n.attr]
}

func (n *navigator) NodeType() xpath.NodeType {
	if n.attr >= 0 {
		return xpath.AttributeNode
	}
	switch n.curr.Type() {
	case xml.TypeDocument:
		return xpath.RootNode
	case xml.TypeText:
		return xpath.TextNode
	case xml.TypeComment:
		return xpath.CommentNode
	default:
		return xpath.ElementNode
	}
}

func (n *navigator) LocalName() string {
	if a := n.attribute(); a != nil {
		return a.Name
	}
	if el, ok := n.curr.(*xml.Element); ok {
		return el.Name
	}
	return ""
}

func (n *navigator) Prefix() string {
	if a := n.attribute(); a != nil {
		return a.Space
	}
	if el, ok := n.curr.(*xml.Element); ok {
		return el.Space
	}
	return ""
}

func (n *navigator) NamespaceURL() string {
	if a := n.attribute(); a != nil {
		return a.Uri
	}
	if el, ok := n.curr.(*xml.Element); ok {
		return el.Uri
	}
	return ""
}

func (n *navigator) Value() string {
	return n.node().Value()
}

func (n *navigator) Copy() xpath.NodeNavigator {
	c := *n
	return &c
}

func (n *navigator) MoveToRoot() {
	n.curr = n.root
	n.attr = -1
}

func (n *navigator) MoveToParent() bool {
	if n.attr >= 0 {
		n.attr = -1
		return true
	}
	if n.curr == n.root {
		return false
	}
	p := n.curr.Parent()
	if p == nil {
		return false
	}
	n.curr = p
	return true
}

func (n *navigator) MoveToNextAttribute() bool {
	el, ok := n.curr.(*xml.Element)
	if !ok {
		return false
	}
	if n.attr >= len(el.Attributes())-1 {
		return false
	}
	n.attr++
	return true
}

func (n *navigator) MoveToChild() bool {
	if n.attr >= 0 {
		return false
	}
	for _, c := range xml.Children(n.curr) {
		if visible(c) {
			n.curr = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveToFirst() bool {
	if n.attr >= 0 || n.curr == n.root {
		return false
	}
	for _, c := range xml.Children(n.curr.Parent()) {
		if visible(c) {
			n.curr = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveToNext() bool {
	if n.attr >= 0 || n.curr == n.root {
		return false
	}
	list := xml.Children(n.curr.Parent())
	for i := n.curr.Position() + 1; i < len(list); i++ {
		if visible(list[i]) {
			n.curr = list[i]
			return true
		}
	}
	return false
}

func (n *navigator) MoveToPrevious() bool {
	if n.attr >= 0 || n.curr == n.root {
		return false
	}
	list := xml.Children(n.curr.Parent())
	for i := n.curr.Position() - 1; i >= 0 && i < len(list); i-- {
		if visible(list[i]) {
			n.curr = list[i]
			return true
		}
	}
	return false
}

func (n *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.root != n.root {
		return false
	}
	n.curr = o.curr
	n.attr = o.attr
	return true
}

func visible(node xml.Node) bool {
	return node.Type() != xml.TypeInstruction
}
