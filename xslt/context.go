package xslt

import (
	"iter"

	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
)

// Expr is a compiled expression. Its meaning belongs to the Evaluator that
// produced it.
type Expr interface {
	String() string
}

// Pattern is a compiled match pattern without alternatives.
type Pattern interface {
	String() string
	// Priority gives the default priority of the pattern.
	Priority() float64
}

// Evaluator compiles and runs expressions and patterns.
type Evaluator interface {
	Compile(expr string, ns []scope.Binding) (Expr, error)
	// CompilePattern gives one pattern per alternative of a union pattern.
	CompilePattern(expr string, ns []scope.Binding) ([]Pattern, error)

	Evaluate(Expr, *Focus) (Value, error)
	// Select starts a query whose nodes are produced on demand.
	Select(Expr, *Focus) (iter.Seq[xml.Node], error)
	Matches(Pattern, xml.Node, *Focus) (bool, error)
}

// Focus is the dynamic context of an evaluation.
type Focus struct {
	Node     xml.Node
	Position int
	Size     int

	exec  *Execution
	frame int
}

func (f *Focus) Variable(name string) (Value, error) {
	if f.exec == nil {
		return Value{}, undefinedVariable(name)
	}
	return f.exec.lookup(f.frame, name)
}

// Key gives the nodes of the document of the focus indexed under value by
// the named key.
func (f *Focus) Key(name, value string) ([]xml.Node, error) {
	if f.exec == nil {
		return nil, undefinedKey(name)
	}
	return f.exec.key(name, xml.Root(f.Node), value)
}

// Extension gives the object registered for the namespace uri.
func (f *Focus) Extension(uri string) (any, bool) {
	if f.exec == nil {
		return nil, false
	}
	return f.exec.extension(uri)
}

// At gives a copy of the focus moved to node. Variables and the current node
// are still those of f.
func (f *Focus) At(node xml.Node, pos, size int) *Focus {
	g := *f
	g.Node = node
	g.Position = pos
	g.Size = size
	return &g
}

// Current gives the node that was the context node when the evaluation
// started.
func (f *Focus) Current() xml.Node {
	if f.exec == nil || f.frame < 0 || f.frame >= len(f.exec.stack) {
		return f.Node
	}
	return f.exec.stack[f.frame].Node
}

// Select runs expr and collects its nodes in document order.
func Select(eval Evaluator, expr Expr, focus *Focus) ([]xml.Node, error) {
	seq, err := eval.Select(expr, focus)
	if err != nil {
		return nil, err
	}
	var nodes []xml.Node
	for n := range seq {
		nodes = append(nodes, n)
	}
	return inDocumentOrder(nodes), nil
}
