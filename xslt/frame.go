package xslt

import (
	"github.com/midbel/xform/output"
	"github.com/midbel/xform/xml"
)

// State is the progress of a frame through its action.
type State int8

const (
	Finished           State = -1
	Initialized        State = 0
	ProcessingChildren State = 1

	stateBegin State = 2
	stateHead  State = 3
	stateSets  State = 4
	stateEnd   State = 5
	stateLeaf  State = 6
)

type local struct {
	name  string
	value Value
}

// Frame records how far the execution of one action went. Parent and Owner
// are indexes in the stack of the execution: Owner is the template frame
// that holds the local variables visible to the action.
type Frame struct {
	Action Action
	State  State
	Iter   int
	Next   int
	Parent int
	Owner  int

	Node     xml.Node
	Position int
	Size     int

	Mode string
	Rule *Rule
	// Args holds the parameters passed to a template frame.
	Args   map[string]Value
	Locals []local

	mark   int
	nodes  []xml.Node
	params map[string]Value
	target string
	choice []Action
	events []event
	walker *walker
	name   xml.QName
	text   string
}

type op int8

const (
	opBegin op = iota
	opText
	opEnd
)

// event is one call to the output pipeline kept for later.
type event struct {
	op   op
	kind output.Kind
	name xml.QName
	text string
	raw  bool
}

func beginEvent(kind output.Kind, name xml.QName) event {
	return event{op: opBegin, kind: kind, name: name}
}

func textEvent(str string) event {
	return event{op: opText, text: str}
}

func endEvent(kind output.Kind) event {
	return event{op: opEnd, kind: kind}
}

// leafEvents gives the events of a node with a name and a string value.
func leafEvents(kind output.Kind, name xml.QName, value string) []event {
	list := []event{beginEvent(kind, name)}
	if value != "" {
		list = append(list, textEvent(value))
	}
	return append(list, endEvent(kind))
}

func (e event) String() string {
	switch e.op {
	case opBegin:
		return "begin " + e.kind.String() + " " + e.name.QualifiedName()
	case opText:
		return "text"
	default:
		return "end " + e.kind.String()
	}
}

type cursor struct {
	children []xml.Node
	next     int
	element  bool
}

// walker produces the events of a copy of a list of nodes one at a time. Only
// the head of the element being opened is kept in memory.
type walker struct {
	nodes []xml.Node
	stack []*cursor
	queue []event
}

func walk(nodes []xml.Node) *walker {
	return &walker{nodes: nodes}
}

// peek gives the next event without consuming it.
func (w *walker) peek() (event, bool) {
	for len(w.queue) == 0 {
		if !w.fill() {
			return event{}, false
		}
	}
	return w.queue[0], true
}

func (w *walker) advance() {
	if len(w.queue) > 0 {
		w.queue = w.queue[1:]
	}
}

func (w *walker) fill() bool {
	if n := len(w.stack); n > 0 {
		c := w.stack[n-1]
		if c.next < len(c.children) {
			child := c.children[c.next]
			c.next++
			w.visit(child, false)
			return true
		}
		w.stack = w.stack[:n-1]
		if c.element {
			w.queue = append(w.queue, endEvent(output.KindElement))
		}
		return true
	}
	if len(w.nodes) == 0 {
		return false
	}
	node := w.nodes[0]
	w.nodes = w.nodes[1:]
	w.visit(node, true)
	return true
}

func (w *walker) visit(node xml.Node, top bool) {
	switch n := node.(type) {
	case *xml.Document:
		w.stack = append(w.stack, &cursor{children: n.Nodes})
	case *xml.Element:
		w.queue = append(w.queue, beginEvent(output.KindElement, n.QName))
		w.queue = append(w.queue, namespaceEvents(n, top)...)
		for _, a := range n.Attributes() {
			w.queue = append(w.queue, leafEvents(output.KindAttribute, a.QName, a.Value())...)
		}
		w.stack = append(w.stack, &cursor{children: n.Nodes, element: true})
	default:
		w.queue = append(w.queue, nodeEvents(node)...)
	}
}

// namespaceEvents gives the declarations to copy with an element: all the
// bindings in scope for the element at the top of a copy, only its own
// otherwise.
func namespaceEvents(el *xml.Element, top bool) []event {
	list := el.Namespaces()
	if top {
		list = el.InScope()
	}
	var events []event
	for _, ns := range list {
		if ns.Uri == "" || ns.Uri == xml.NamespaceXML {
			continue
		}
		events = append(events, leafEvents(output.KindNamespace, xml.LocalName(ns.Prefix), ns.Uri)...)
	}
	return events
}

// nodeEvents gives the events copying a node without children.
func nodeEvents(node xml.Node) []event {
	switch n := node.(type) {
	case *xml.Attribute:
		return leafEvents(output.KindAttribute, n.QName, n.Value())
	case *xml.Text:
		if n.Content == "" {
			return nil
		}
		return []event{textEvent(n.Content)}
	case *xml.Comment:
		return leafEvents(output.KindComment, xml.QName{}, n.Content)
	case *xml.Instruction:
		return leafEvents(output.KindInstruction, n.QName, n.Value())
	default:
		return nil
	}
}
