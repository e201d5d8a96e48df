package xslt

import (
	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
)

// Action is a compiled instruction. Actions are never modified once built and
// can be shared by concurrent executions.
type Action interface {
	action()
}

// Block runs its children in order.
type Block struct {
	Children []Action
}

// Template is a template rule. Its params are the leading Param children.
type Template struct {
	Name     string
	Match    []Pattern
	Priority float64
	// Explicit is set when Priority was given instead of derived from the
	// pattern.
	Explicit bool
	Mode     string
	// Slots is the number of local variables the body declares.
	Slots    int
	Children []Action
}

type If struct {
	Test     Expr
	Children []Action
}

type When struct {
	Test     Expr
	Children []Action
}

type Choose struct {
	When      []When
	Otherwise []Action
}

type Sort struct {
	Select    Expr
	Lang      AVT
	DataType  AVT
	Order     AVT
	CaseOrder AVT
}

type ForEach struct {
	Select   Expr
	Sort     []Sort
	Children []Action
}

// ApplyTemplates without Select processes the children of the context node.
type ApplyTemplates struct {
	Select Expr
	Mode   string
	Sort   []Sort
	Params []*WithParam

	attributes bool
}

type ApplyImports struct {
	Params []*WithParam
}

type CallTemplate struct {
	Name   string
	Params []*WithParam
}

// Element creates an element whose name is computed. A name without
// Namespace is resolved with the bindings in scope where it was written.
type Element struct {
	Name       AVT
	Namespace  AVT
	Namespaces []scope.Binding
	Sets       []string
	Children   []Action
}

type LiteralAttribute struct {
	Name  xml.QName
	Value AVT
}

// LiteralElement creates an element with a fixed name. Namespaces holds the
// declarations copied to the result.
type LiteralElement struct {
	Name       xml.QName
	Namespaces []scope.Binding
	Attrs      []LiteralAttribute
	Sets       []string
	Children   []Action
}

type Attribute struct {
	Name       AVT
	Namespace  AVT
	Namespaces []scope.Binding
	Children   []Action
}

type UseAttributeSets struct {
	Names []string
}

// AttributeSet is a named list of Attribute actions.
type AttributeSet struct {
	Name  string
	Sets  []string
	Attrs []Action
}

type Text struct {
	Value string
	Raw   bool
}

// ValueOf without Select writes the string value of the context node.
type ValueOf struct {
	Select Expr
	Raw    bool
}

type Copy struct {
	Sets     []string
	Children []Action
}

// CopyOf without Select copies the context node.
type CopyOf struct {
	Select Expr
}

type Comment struct {
	Children []Action
}

type ProcessingInstruction struct {
	Name     AVT
	Children []Action
}

type Namespace struct {
	Name     AVT
	Children []Action
}

type Variable struct {
	Name     string
	Select   Expr
	Children []Action
}

type Param struct {
	Name     string
	Select   Expr
	Children []Action
	Required bool
}

type WithParam struct {
	Name     string
	Select   Expr
	Children []Action
}

const (
	LevelSingle   = "single"
	LevelMultiple = "multiple"
	LevelAny      = "any"
)

type Number struct {
	Level     string
	Count     []Pattern
	From      []Pattern
	Value     Expr
	Format    AVT
	Lang      AVT
	Letter    AVT
	GroupSep  AVT
	GroupSize AVT
}

type Message struct {
	Terminate AVT
	Children  []Action
}

// Fallback holds the actions run in place of an instruction that is not
// supported.
type Fallback struct {
	Children []Action
}

// Key indexes the nodes matching Match by the string values of Use.
type Key struct {
	Name  string
	Match []Pattern
	Use   Expr
}

func (*Block) action()                 {}
func (*Template) action()              {}
func (*If) action()                    {}
func (*Choose) action()                {}
func (*ForEach) action()               {}
func (*ApplyTemplates) action()        {}
func (*ApplyImports) action()          {}
func (*CallTemplate) action()          {}
func (*Element) action()               {}
func (*LiteralElement) action()        {}
func (*Attribute) action()             {}
func (*UseAttributeSets) action()      {}
func (*Text) action()                  {}
func (*ValueOf) action()               {}
func (*Copy) action()                  {}
func (*CopyOf) action()                {}
func (*Comment) action()               {}
func (*ProcessingInstruction) action() {}
func (*Namespace) action()             {}
func (*Variable) action()              {}
func (*Param) action()                 {}
func (*WithParam) action()             {}
func (*Number) action()                {}
func (*Message) action()               {}
func (*Fallback) action()              {}

// Instruction gives the name under which a is reported in traces.
func Instruction(a Action) string {
	switch a := a.(type) {
	case *Block:
		return "sequence"
	case *Template:
		if a.Name != "" {
			return "xsl:template[" + a.Name + "]"
		}
		return "xsl:template"
	case *If:
		return "xsl:if"
	case *Choose:
		return "xsl:choose"
	case *ForEach:
		return "xsl:for-each"
	case *ApplyTemplates:
		return "xsl:apply-templates"
	case *ApplyImports:
		return "xsl:apply-imports"
	case *CallTemplate:
		return "xsl:call-template"
	case *Element:
		return "xsl:element"
	case *LiteralElement:
		return a.Name.QualifiedName()
	case *Attribute:
		return "xsl:attribute"
	case *UseAttributeSets:
		return "use-attribute-sets"
	case *Text:
		return "xsl:text"
	case *ValueOf:
		return "xsl:value-of"
	case *Copy:
		return "xsl:copy"
	case *CopyOf:
		return "xsl:copy-of"
	case *Comment:
		return "xsl:comment"
	case *ProcessingInstruction:
		return "xsl:processing-instruction"
	case *Namespace:
		return "xsl:namespace"
	case *Variable:
		return "xsl:variable"
	case *Param:
		return "xsl:param"
	case *WithParam:
		return "xsl:with-param"
	case *Number:
		return "xsl:number"
	case *Message:
		return "xsl:message"
	case *Fallback:
		return "xsl:fallback"
	default:
		return "<unknown>"
	}
}
