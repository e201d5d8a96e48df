package xml

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type NodeType int8

const (
	TypeDocument NodeType = 1 << iota
	TypeElement
	TypeComment
	TypeAttribute
	TypeInstruction
	TypeText
)

const TypeNode = TypeDocument | TypeElement | TypeComment | TypeAttribute | TypeInstruction | TypeText

func (n NodeType) String() string {
	switch n {
	default:
		return "<>"
	case TypeDocument:
		return "document"
	case TypeElement:
		return "element"
	case TypeComment:
		return "comment"
	case TypeAttribute:
		return "attribute"
	case TypeInstruction:
		return "pi"
	case TypeText:
		return "text"
	case TypeNode:
		return "node"
	}
}

const (
	NamespaceXML   = "http://www.w3.org/XML/1998/namespace"
	NamespaceXMLNS = "http://www.w3.org/2000/xmlns/"
)

var ErrElement = errors.New("element expected")

type Node interface {
	Type() NodeType
	LocalName() string
	QualifiedName() string
	Leaf() bool
	Position() int
	Parent() Node
	Value() string
	Identity() string

	setParent(Node)
	setPosition(int)
	path() []int
}

// Before reports whether left comes before right in document order. Attributes
// of an element are ordered before its children.
func Before(left, right Node) bool {
	var (
		p1 = left.path()
		p2 = right.path()
	)
	for i := 0; i < len(p1) && i < len(p2); i++ {
		if p1[i] < p2[i] {
			return true
		} else if p1[i] > p2[i] {
			return false
		}
	}
	return len(p1) < len(p2)
}

// DocumentOrder compares two nodes by their position in the tree.
func DocumentOrder(left, right Node) int {
	if left == right {
		return 0
	}
	if Before(left, right) {
		return -1
	}
	return 1
}

// Children gives the child nodes of a document or an element.
func Children(node Node) []Node {
	switch n := node.(type) {
	case *Document:
		return n.Nodes
	case *Element:
		return n.Nodes
	default:
		return nil
	}
}

// Root gives the top most ancestor of node.
func Root(node Node) Node {
	for node != nil {
		p := node.Parent()
		if p == nil {
			break
		}
		node = p
	}
	return node
}

// NameOf gives the expanded name of element, attribute and processing
// instruction nodes.
func NameOf(node Node) QName {
	switch n := node.(type) {
	case *Element:
		return n.QName
	case *Attribute:
		return n.QName
	case *Instruction:
		return n.QName
	default:
		return QName{}
	}
}

type NS struct {
	Prefix string
	Uri    string
}

type Document struct {
	Version    string
	Encoding   string
	Standalone string

	Nodes []Node
}

func EmptyDocument() *Document {
	doc := Document{
		Version:  SupportedVersion,
		Encoding: SupportedEncoding,
	}
	return &doc
}

func (d *Document) Append(node Node) {
	if node == nil {
		return
	}
	node.setParent(d)
	node.setPosition(len(d.Nodes))
	d.Nodes = append(d.Nodes, node)
}

func (d *Document) Root() Node {
	for i := range d.Nodes {
		if d.Nodes[i].Type() == TypeElement {
			return d.Nodes[i]
		}
	}
	return nil
}

func (d *Document) Namespaces() []NS {
	el, ok := d.Root().(*Element)
	if !ok {
		return nil
	}
	return el.Namespaces()
}

func (d *Document) Type() NodeType {
	return TypeDocument
}

func (d *Document) LocalName() string {
	return ""
}

func (d *Document) QualifiedName() string {
	return ""
}

func (d *Document) Leaf() bool {
	return len(d.Nodes) == 0
}

func (d *Document) Position() int {
	return 0
}

func (d *Document) Parent() Node {
	return nil
}

func (d *Document) Value() string {
	var str strings.Builder
	for _, n := range d.Nodes {
		writeValue(&str, n)
	}
	return str.String()
}

func (_ *Document) Identity() string {
	return "document"
}

func (_ *Document) path() []int {
	return nil
}

func (d *Document) setParent(_ Node) {}

func (d *Document) setPosition(_ int) {}

type QName struct {
	Uri   string
	Space string
	Name  string
}

func ParseName(name string) (QName, error) {
	var (
		qn QName
		ok bool
	)
	qn.Space, qn.Name, ok = strings.Cut(name, ":")
	if !ok {
		qn.Name, qn.Space = qn.Space, ""
	}
	if ok && (qn.Space == "" || qn.Name == "") {
		return qn, fmt.Errorf("%s: invalid qualified name", name)
	}
	if qn.Name == "" {
		return qn, fmt.Errorf("empty name")
	}
	return qn, nil
}

func ExpandedName(name, space, uri string) QName {
	return QName{
		Name:  name,
		Space: space,
		Uri:   uri,
	}
}

func LocalName(name string) QName {
	return ExpandedName(name, "", "")
}

func QualifiedName(name, space string) QName {
	return ExpandedName(name, space, "")
}

func (q QName) Equal(other QName) bool {
	return q.Uri == other.Uri && q.Name == other.Name
}

func (q QName) LocalName() string {
	return q.Name
}

func (q QName) ExpandedName() string {
	if q.Uri == "" {
		return q.LocalName()
	}
	return fmt.Sprintf("{%s}%s", q.Uri, q.Name)
}

func (q QName) QualifiedName() string {
	if q.Space == "" {
		return q.LocalName()
	}
	return fmt.Sprintf("%s:%s", q.Space, q.Name)
}

func (q QName) String() string {
	return q.QualifiedName()
}

type Attribute struct {
	QName
	Datum string

	parent   Node
	position int
}

func NewAttribute(name QName, value string) Attribute {
	return Attribute{
		QName: name,
		Datum: value,
	}
}

// IsNamespace reports whether the attribute is a namespace declaration.
func (a *Attribute) IsNamespace() bool {
	return (a.Space == "" && a.Name == "xmlns") || a.Space == "xmlns"
}

func (_ *Attribute) Type() NodeType {
	return TypeAttribute
}

func (_ *Attribute) Leaf() bool {
	return true
}

func (a *Attribute) Position() int {
	return a.position
}

func (a *Attribute) Parent() Node {
	return a.parent
}

func (a *Attribute) Value() string {
	return a.Datum
}

func (a *Attribute) Identity() string {
	return fmt.Sprintf("attr(%s)[%s]", a.QualifiedName(), joinPath(a.path()))
}

func (a *Attribute) path() []int {
	if a.parent == nil {
		return []int{a.position}
	}
	var (
		steps = a.parent.path()
		count int
	)
	if el, ok := a.parent.(*Element); ok {
		count = len(el.Attrs)
	}
	return append(slices.Clone(steps), a.position-count)
}

func (a *Attribute) setParent(node Node) {
	a.parent = node
}

func (a *Attribute) setPosition(pos int) {
	a.position = pos
}

type Element struct {
	QName
	Attrs []Attribute
	Nodes []Node

	parent   Node
	position int
}

func NewElement(name QName) *Element {
	return &Element{
		QName: name,
	}
}

// Namespaces gives the namespaces declared on the element itself.
func (e *Element) Namespaces() []NS {
	var ns []NS
	for i := range e.Attrs {
		a := &e.Attrs[i]
		if !a.IsNamespace() {
			continue
		}
		n := NS{
			Uri: a.Value(),
		}
		if a.Space == "xmlns" {
			n.Prefix = a.Name
		}
		ns = append(ns, n)
	}
	return ns
}

// InScope gives every namespace binding visible from the element, nearest
// declaration first. Undeclarations of the default namespace are dropped.
func (e *Element) InScope() []NS {
	var (
		list []NS
		seen = make(map[string]struct{})
	)
	for n := Node(e); n != nil; n = n.Parent() {
		el, ok := n.(*Element)
		if !ok {
			break
		}
		for _, ns := range el.Namespaces() {
			if _, ok := seen[ns.Prefix]; ok {
				continue
			}
			seen[ns.Prefix] = struct{}{}
			if ns.Uri == "" {
				continue
			}
			list = append(list, ns)
		}
	}
	return list
}

// Attributes gives the attributes of the element without the namespace
// declarations.
func (e *Element) Attributes() []*Attribute {
	var as []*Attribute
	for i := range e.Attrs {
		if e.Attrs[i].IsNamespace() {
			continue
		}
		as = append(as, &e.Attrs[i])
	}
	return as
}

func (_ *Element) Type() NodeType {
	return TypeElement
}

func (e *Element) Leaf() bool {
	for _, n := range e.Nodes {
		if n.Type() != TypeText {
			return false
		}
	}
	return true
}

func (e *Element) Value() string {
	var str strings.Builder
	for _, n := range e.Nodes {
		writeValue(&str, n)
	}
	return str.String()
}

func (e *Element) Find(name string) Node {
	ix := slices.IndexFunc(e.Nodes, func(n Node) bool {
		return n.Type() == TypeElement && n.LocalName() == name
	})
	if ix < 0 {
		return nil
	}
	return e.Nodes[ix]
}

func (e *Element) FindAll(name string) []Node {
	var nodes []Node
	for i := range e.Nodes {
		if e.Nodes[i].Type() != TypeElement || e.Nodes[i].LocalName() != name {
			continue
		}
		nodes = append(nodes, e.Nodes[i])
	}
	return nodes
}

func (e *Element) Append(node Node) {
	if node == nil {
		return
	}
	if a, ok := node.(*Attribute); ok {
		e.SetAttribute(*a)
		return
	}
	node.setParent(e)
	node.setPosition(len(e.Nodes))
	e.Nodes = append(e.Nodes, node)
}

func (e *Element) Len() int {
	return len(e.Nodes)
}

func (e *Element) Position() int {
	return e.position
}

func (e *Element) Parent() Node {
	return e.parent
}

func (e *Element) Identity() string {
	return fmt.Sprintf("node(%s)[%s]", e.QualifiedName(), joinPath(e.path()))
}

func (e *Element) GetAttribute(name string) Attribute {
	ix := slices.IndexFunc(e.Attrs, func(a Attribute) bool {
		return !a.IsNamespace() && a.QualifiedName() == name
	})
	var attr Attribute
	if ix < 0 {
		return attr
	}
	return e.Attrs[ix]
}

// SetAttribute adds attr to the element or replaces the attribute with the
// same name.
func (e *Element) SetAttribute(attr Attribute) {
	ix := slices.IndexFunc(e.Attrs, func(a Attribute) bool {
		if attr.Uri != "" || a.Uri != "" {
			return a.QName.Equal(attr.QName) && a.IsNamespace() == attr.IsNamespace()
		}
		return a.QualifiedName() == attr.QualifiedName()
	})
	if ix < 0 {
		ix = len(e.Attrs)
		e.Attrs = append(e.Attrs, attr)
	} else {
		e.Attrs[ix] = attr
	}
	for i := range e.Attrs {
		e.Attrs[i].setParent(e)
		e.Attrs[i].setPosition(i)
	}
}

func (e *Element) path() []int {
	if e.parent == nil {
		return []int{e.position}
	}
	steps := e.parent.path()
	return append(slices.Clone(steps), e.position)
}

func (e *Element) setPosition(pos int) {
	e.position = pos
}

func (e *Element) setParent(parent Node) {
	e.parent = parent
}

type Instruction struct {
	QName
	Content string

	parent   Node
	position int
}

func NewInstruction(name QName, content string) *Instruction {
	return &Instruction{
		QName:   name,
		Content: content,
	}
}

func (_ *Instruction) Type() NodeType {
	return TypeInstruction
}

func (i *Instruction) Leaf() bool {
	return true
}

func (i *Instruction) Value() string {
	return i.Content
}

func (i *Instruction) Position() int {
	return i.position
}

func (i *Instruction) Parent() Node {
	return i.parent
}

func (i *Instruction) Identity() string {
	return fmt.Sprintf("instr(%s)[%s]", i.QualifiedName(), joinPath(i.path()))
}

func (i *Instruction) path() []int {
	if i.parent == nil {
		return []int{i.position}
	}
	steps := i.parent.path()
	return append(slices.Clone(steps), i.position)
}

func (i *Instruction) setPosition(pos int) {
	i.position = pos
}

func (i *Instruction) setParent(parent Node) {
	i.parent = parent
}

type Text struct {
	Content string

	parent   Node
	position int
}

func NewText(text string) *Text {
	return &Text{
		Content: text,
	}
}

func (_ *Text) Type() NodeType {
	return TypeText
}

func (t *Text) LocalName() string {
	return ""
}

func (t *Text) QualifiedName() string {
	return ""
}

func (t *Text) Leaf() bool {
	return true
}

func (t *Text) Value() string {
	return t.Content
}

func (t *Text) Position() int {
	return t.position
}

func (t *Text) Parent() Node {
	return t.parent
}

func (t *Text) Identity() string {
	return fmt.Sprintf("%s[%s]", "text", joinPath(t.path()))
}

func (t *Text) path() []int {
	if t.parent == nil {
		return []int{t.position}
	}
	steps := t.parent.path()
	return append(slices.Clone(steps), t.position)
}

func (t *Text) setPosition(pos int) {
	t.position = pos
}

func (t *Text) setParent(parent Node) {
	t.parent = parent
}

type Comment struct {
	Content string

	parent   Node
	position int
}

func NewComment(comment string) *Comment {
	return &Comment{
		Content: comment,
	}
}

func (_ *Comment) Type() NodeType {
	return TypeComment
}

func (c *Comment) LocalName() string {
	return ""
}

func (c *Comment) QualifiedName() string {
	return ""
}

func (c *Comment) Leaf() bool {
	return true
}

func (c *Comment) Value() string {
	return c.Content
}

func (c *Comment) Position() int {
	return c.position
}

func (c *Comment) Parent() Node {
	return c.parent
}

func (c *Comment) Identity() string {
	return fmt.Sprintf("%s[%s]", "comment", joinPath(c.path()))
}

func (c *Comment) path() []int {
	if c.parent == nil {
		return []int{c.position}
	}
	steps := c.parent.path()
	return append(slices.Clone(steps), c.position)
}

func (c *Comment) setPosition(pos int) {
	c.position = pos
}

func (c *Comment) setParent(parent Node) {
	c.parent = parent
}

func writeValue(str *strings.Builder, node Node) {
	switch n := node.(type) {
	case *Text:
		str.WriteString(n.Content)
	case *Element:
		for _, c := range n.Nodes {
			writeValue(str, c)
		}
	default:
	}
}

func joinPath(steps []int) string {
	list := make([]string, 0, len(steps))
	for _, p := range steps {
		list = append(list, strconv.Itoa(p))
	}
	return strings.Join(list, "/")
}
