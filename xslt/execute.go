package xslt

import (
	"fmt"
	"strings"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
)

// execute advances the frame at ix by at most one output event. It reports
// true when the action of the frame is complete. Evaluations can run nested
// captures that grow the stack so frames are always fetched again by index
// after them.
func (x *Execution) execute(ix int) (bool, error) {
	switch a := x.at(ix).Action.(type) {
	case *Block:
		return x.children(ix, a.Children), nil
	case *Template:
		return x.children(ix, a.Children), nil
	case *Fallback:
		return x.children(ix, a.Children), nil
	case *If:
		return x.executeIf(ix, a)
	case *Choose:
		return x.executeChoose(ix, a)
	case *ForEach:
		return x.executeForEach(ix, a)
	case *ApplyTemplates:
		return x.executeApply(ix, a)
	case *ApplyImports:
		return x.executeImports(ix, a)
	case *CallTemplate:
		return x.executeCall(ix, a)
	case *Variable:
		v, err := x.value(ix, a.Select, a.Children)
		if err != nil {
			return false, err
		}
		x.bind(ix, a.Name, v)
		return true, nil
	case *Param:
		return x.executeParam(ix, a)
	case *WithParam:
		return true, nil
	case *Text:
		if a.Value == "" {
			return true, nil
		}
		return x.send(event{op: opText, text: a.Value, raw: a.Raw})
	case *ValueOf:
		return x.executeValueOf(ix, a)
	case *Element:
		return x.executeElement(ix, a)
	case *LiteralElement:
		return x.executeLiteral(ix, a)
	case *Attribute:
		return x.executeAttribute(ix, a)
	case *UseAttributeSets:
		return x.executeSets(ix, a)
	case *Copy:
		return x.executeCopy(ix, a)
	case *CopyOf:
		return x.executeCopyOf(ix, a)
	case *Comment:
		return x.executeNode(ix, output.KindComment, a.Children, func() (xml.QName, error) {
			return xml.QName{}, nil
		})
	case *ProcessingInstruction:
		return x.executeNode(ix, output.KindInstruction, a.Children, func() (xml.QName, error) {
			name, err := a.Name.Eval(x.eval, x.focus(ix))
			return xml.LocalName(strings.TrimSpace(name)), err
		})
	case *Namespace:
		return x.executeNode(ix, output.KindNamespace, a.Children, func() (xml.QName, error) {
			name, err := a.Name.Eval(x.eval, x.focus(ix))
			return xml.LocalName(strings.TrimSpace(name)), err
		})
	case *Number:
		return x.executeNumber(ix, a)
	case *Message:
		return x.executeMessage(ix, a)
	default:
		return false, fmt.Errorf("%s: %w for execution", Instruction(a), ErrType)
	}
}

// children pushes the next action of list. It reports true once every action
// was pushed and completed.
func (x *Execution) children(ix int, list []Action) bool {
	f := x.at(ix)
	if f.Next >= len(list) {
		return true
	}
	a := list[f.Next]
	f.Next++
	x.push(ix, a)
	return false
}

// body runs list then moves the frame to the state next.
func (x *Execution) body(ix int, list []Action, next State) {
	if x.children(ix, list) {
		x.at(ix).State = next
	}
}

func (x *Execution) executeIf(ix int, a *If) (bool, error) {
	if x.at(ix).State == Initialized {
		v, err := x.eval.Evaluate(a.Test, x.focus(ix))
		if err != nil {
			return false, err
		}
		if !v.Bool() {
			return true, nil
		}
		x.at(ix).State = ProcessingChildren
	}
	return x.children(ix, a.Children), nil
}

func (x *Execution) executeChoose(ix int, a *Choose) (bool, error) {
	if x.at(ix).State == Initialized {
		choice := a.Otherwise
		for _, w := range a.When {
			v, err := x.eval.Evaluate(w.Test, x.focus(ix))
			if err != nil {
				return false, err
			}
			if v.Bool() {
				choice = w.Children
				break
			}
		}
		f := x.at(ix)
		f.choice = choice
		f.State = ProcessingChildren
	}
	return x.children(ix, x.at(ix).choice), nil
}

func (x *Execution) executeForEach(ix int, a *ForEach) (bool, error) {
	if x.at(ix).State == Initialized {
		nodes, err := x.selectSorted(ix, a.Select, a.Sort)
		if err != nil {
			return false, err
		}
		f := x.at(ix)
		f.nodes = nodes
		f.State = ProcessingChildren
	}
	f := x.at(ix)
	if f.Iter >= len(f.nodes) {
		return true, nil
	}
	node := f.nodes[f.Iter]
	f.Iter++
	x.pushFocus(ix, &Block{Children: a.Children}, node, f.Iter, len(f.nodes))
	return false, nil
}

func (x *Execution) selectSorted(ix int, expr Expr, keys []Sort) ([]xml.Node, error) {
	nodes, err := Select(x.eval, expr, x.focus(ix))
	if err != nil {
		return nil, err
	}
	return x.sort(ix, nodes, keys)
}

func (x *Execution) executeApply(ix int, a *ApplyTemplates) (bool, error) {
	if x.at(ix).State == Initialized {
		var (
			nodes []xml.Node
			err   error
		)
		if a.Select == nil {
			nodes, err = x.sort(ix, selectChildren(x.at(ix).Node, a.attributes), a.Sort)
		} else {
			nodes, err = x.selectSorted(ix, a.Select, a.Sort)
		}
		if err != nil {
			return false, err
		}
		args, err := x.withParams(ix, a.Params)
		if err != nil {
			return false, err
		}
		f := x.at(ix)
		f.nodes = nodes
		f.params = args
		f.target = a.Mode
		if a.Mode == CurrentMode {
			f.target = f.Mode
		}
		f.State = ProcessingChildren
	}
	f := x.at(ix)
	if f.Iter >= len(f.nodes) {
		return true, nil
	}
	var (
		node = f.nodes[f.Iter]
		pos  = f.Iter + 1
		size = len(f.nodes)
		mode = f.target
		args = f.params
	)
	rule, err := x.sheet.FindTemplate(node, mode, x.matcher(ix))
	if err != nil {
		return false, err
	}
	tpl, err := x.template(rule, mode, node)
	if err != nil {
		return false, err
	}
	x.at(ix).Iter++
	x.pushTemplate(ix, tpl, rule, node, pos, size, mode, args)
	return false, nil
}

// template gives the template of rule or the built-in template of the mode
// when rule is nil.
func (x *Execution) template(rule *Rule, mode string, node xml.Node) (*Template, error) {
	if rule != nil {
		return rule.Template, nil
	}
	return builtin(x.sheet.NoMatch(mode), node)
}

func selectChildren(node xml.Node, attributes bool) []xml.Node {
	var list []xml.Node
	if el, ok := node.(*xml.Element); ok && attributes {
		for _, a := range el.Attributes() {
			list = append(list, a)
		}
	}
	return append(list, xml.Children(node)...)
}

func (x *Execution) executeImports(ix int, a *ApplyImports) (bool, error) {
	f := x.at(ix)
	if f.State != Initialized {
		return true, nil
	}
	if f.Rule == nil {
		return false, fmt.Errorf("%s: no current template rule", Instruction(a))
	}
	var (
		owner = f.Rule.Owner()
		node  = f.Node
		pos   = f.Position
		size  = f.Size
		mode  = f.Mode
	)
	rule, err := owner.FindImport(node, mode, x.matcher(ix))
	if err != nil {
		return false, err
	}
	tpl, err := x.template(rule, mode, node)
	if err != nil {
		return false, err
	}
	args, err := x.withParams(ix, a.Params)
	if err != nil {
		return false, err
	}
	x.at(ix).State = ProcessingChildren
	x.pushTemplate(ix, tpl, rule, node, pos, size, mode, args)
	return false, nil
}

func (x *Execution) executeCall(ix int, a *CallTemplate) (bool, error) {
	if x.at(ix).State != Initialized {
		return true, nil
	}
	tpl, err := x.sheet.CallTemplate(a.Name)
	if err != nil {
		return false, err
	}
	args, err := x.withParams(ix, a.Params)
	if err != nil {
		return false, err
	}
	f := x.at(ix)
	f.State = ProcessingChildren
	x.pushTemplate(ix, tpl, f.Rule, f.Node, f.Position, f.Size, f.Mode, args)
	return false, nil
}

func (x *Execution) executeParam(ix int, a *Param) (bool, error) {
	owner := x.at(x.at(ix).Owner)
	if v, ok := owner.Args[a.Name]; ok {
		x.bind(ix, a.Name, v)
		return true, nil
	}
	if a.Required {
		return false, fmt.Errorf("param %s: %w", a.Name, ErrUndefined)
	}
	v, err := x.value(ix, a.Select, a.Children)
	if err != nil {
		return false, err
	}
	x.bind(ix, a.Name, v)
	return true, nil
}

func (x *Execution) executeValueOf(ix int, a *ValueOf) (bool, error) {
	if x.at(ix).State == Initialized {
		var str string
		if a.Select == nil {
			str = x.at(ix).Node.Value()
		} else {
			v, err := x.eval.Evaluate(a.Select, x.focus(ix))
			if err != nil {
				return false, err
			}
			str = v.String()
		}
		if str == "" {
			return true, nil
		}
		f := x.at(ix)
		f.text = str
		f.State = stateLeaf
	}
	return x.send(event{op: opText, text: x.at(ix).text, raw: a.Raw})
}

// open runs the states shared by the actions creating an element: the start
// event, the head events of the frame, the attribute sets, the content and
// the end event.
func (x *Execution) open(ix int, sets []string, body []Action) (bool, error) {
	f := x.at(ix)
	switch f.State {
	case stateBegin:
		ok, err := x.send(beginEvent(output.KindElement, f.name))
		if ok {
			x.at(ix).State = stateHead
		}
		return false, err
	case stateHead:
		if f.Iter < len(f.events) {
			ok, err := x.send(f.events[f.Iter])
			if ok {
				x.at(ix).Iter++
			}
			return false, err
		}
		f.State = stateSets
		return false, nil
	case stateSets:
		f.State = ProcessingChildren
		if len(sets) > 0 {
			x.push(ix, &UseAttributeSets{Names: sets})
		}
		return false, nil
	case ProcessingChildren:
		x.body(ix, body, stateEnd)
		return false, nil
	case stateEnd:
		ok, err := x.send(endEvent(output.KindElement))
		return ok, err
	default:
		return true, nil
	}
}

func (x *Execution) executeElement(ix int, a *Element) (bool, error) {
	if x.at(ix).State == Initialized {
		name, err := x.computeName(ix, a.Name, a.Namespace, a.Namespaces, false)
		if err != nil {
			return false, err
		}
		f := x.at(ix)
		f.name = name
		f.State = stateBegin
	}
	return x.open(ix, a.Sets, a.Children)
}

func (x *Execution) executeLiteral(ix int, a *LiteralElement) (bool, error) {
	if x.at(ix).State == Initialized {
		var events []event
		for _, ns := range a.Namespaces {
			if ns.Uri == "" {
				continue
			}
			events = append(events, leafEvents(output.KindNamespace, xml.LocalName(ns.Prefix), ns.Uri)...)
		}
		for _, attr := range a.Attrs {
			value, err := attr.Value.Eval(x.eval, x.focus(ix))
			if err != nil {
				return false, err
			}
			events = append(events, leafEvents(output.KindAttribute, attr.Name, value)...)
		}
		f := x.at(ix)
		f.name = a.Name
		f.events = events
		f.State = stateBegin
	}
	return x.open(ix, a.Sets, a.Children)
}

func (x *Execution) executeAttribute(ix int, a *Attribute) (bool, error) {
	return x.executeNode(ix, output.KindAttribute, a.Children, func() (xml.QName, error) {
		return x.computeName(ix, a.Name, a.Namespace, a.Namespaces, true)
	})
}

// executeNode creates a node whose value is given by the content of body.
func (x *Execution) executeNode(ix int, kind output.Kind, body []Action, name func() (xml.QName, error)) (bool, error) {
	f := x.at(ix)
	switch f.State {
	case Initialized:
		qn, err := name()
		if err != nil {
			return false, err
		}
		f = x.at(ix)
		f.name = qn
		f.State = stateBegin
		return false, nil
	case stateBegin:
		ok, err := x.send(beginEvent(kind, f.name))
		if ok {
			x.at(ix).State = ProcessingChildren
		}
		return false, err
	case ProcessingChildren:
		x.body(ix, body, stateEnd)
		return false, nil
	default:
		return x.send(endEvent(kind))
	}
}

// computeName gives the expanded name of a computed element or attribute.
// A prefix is resolved with bindings, nearest first, unless a namespace is
// given. Attributes without prefix stay out of the default namespace.
func (x *Execution) computeName(ix int, name, ns AVT, bindings []scope.Binding, attr bool) (xml.QName, error) {
	str, err := name.Eval(x.eval, x.focus(ix))
	if err != nil {
		return xml.QName{}, err
	}
	qn, err := xml.ParseName(strings.TrimSpace(str))
	if err != nil {
		return qn, err
	}
	if ns.Defined() {
		uri, err := ns.Eval(x.eval, x.focus(ix))
		if err != nil {
			return qn, err
		}
		qn.Uri = uri
		if uri == "" {
			qn.Space = ""
		}
		return qn, nil
	}
	if qn.Space == "" && attr {
		return qn, nil
	}
	if qn.Space == scope.PrefixXML {
		qn.Uri = scope.NamespaceXML
		return qn, nil
	}
	for _, b := range bindings {
		if b.Prefix == qn.Space {
			qn.Uri = b.Uri
			return qn, nil
		}
	}
	if qn.Space != "" {
		return qn, fmt.Errorf("%s: prefix %s: %w", str, qn.Space, ErrUndefined)
	}
	return qn, nil
}

func (x *Execution) executeSets(ix int, a *UseAttributeSets) (bool, error) {
	if x.at(ix).State == Initialized {
		list, err := x.attributeSets(a.Names, nil)
		if err != nil {
			return false, err
		}
		f := x.at(ix)
		f.choice = list
		f.State = ProcessingChildren
	}
	return x.children(ix, x.at(ix).choice), nil
}

// attributeSets gives the attribute actions of the named sets. The sets used
// by a set come before its own attributes.
func (x *Execution) attributeSets(names []string, seen []string) ([]Action, error) {
	var list []Action
	for _, name := range names {
		for _, s := range seen {
			if s == name {
				return nil, fmt.Errorf("attribute set %s: %w", name, ErrCircular)
			}
		}
		defs := x.sheet.AttributeSets(name)
		if len(defs) == 0 {
			return nil, fmt.Errorf("attribute set %s: %w", name, ErrUndefined)
		}
		for _, d := range defs {
			used, err := x.attributeSets(d.Sets, append(seen, name))
			if err != nil {
				return nil, err
			}
			list = append(list, used...)
			list = append(list, d.Attrs...)
		}
	}
	return list, nil
}

func (x *Execution) executeCopy(ix int, a *Copy) (bool, error) {
	f := x.at(ix)
	if f.State == Initialized {
		switch n := f.Node.(type) {
		case *xml.Element:
			f.name = n.QName
			f.events = namespaceEvents(n, true)
			f.State = stateBegin
		case *xml.Document:
			f.State = ProcessingChildren
		default:
			f.events = nodeEvents(n)
			f.State = stateLeaf
		}
	}
	switch f.Node.(type) {
	case *xml.Element:
		return x.open(ix, a.Sets, a.Children)
	case *xml.Document:
		if f.State == ProcessingChildren {
			x.body(ix, a.Children, stateEnd)
			return false, nil
		}
		return true, nil
	default:
		if f.Iter >= len(f.events) {
			return true, nil
		}
		ok, err := x.send(f.events[f.Iter])
		if ok {
			x.at(ix).Iter++
		}
		return false, err
	}
}

func (x *Execution) executeCopyOf(ix int, a *CopyOf) (bool, error) {
	if x.at(ix).State == Initialized {
		var w *walker
		if a.Select == nil {
			w = walk([]xml.Node{x.at(ix).Node})
		} else {
			v, err := x.eval.Evaluate(a.Select, x.focus(ix))
			if err != nil {
				return false, err
			}
			if nodes, ok := v.Nodes(); ok {
				w = walk(nodes)
			} else {
				w = walk([]xml.Node{xml.NewText(v.String())})
			}
		}
		f := x.at(ix)
		f.walker = w
		f.State = ProcessingChildren
	}
	w := x.at(ix).walker
	ev, ok := w.peek()
	if !ok {
		return true, nil
	}
	ok, err := x.send(ev)
	if ok {
		w.advance()
	}
	return false, err
}

func (x *Execution) executeNumber(ix int, a *Number) (bool, error) {
	if x.at(ix).State == Initialized {
		str, err := x.number(ix, a)
		if err != nil {
			return false, err
		}
		if str == "" {
			return true, nil
		}
		f := x.at(ix)
		f.text = str
		f.State = stateLeaf
	}
	return x.send(textEvent(x.at(ix).text))
}

func (x *Execution) executeMessage(ix int, a *Message) (bool, error) {
	sink := output.NewTextSink()
	if err := x.captureBody(ix, a.Children, sink); err != nil {
		return false, err
	}
	terminate, err := a.Terminate.Eval(x.eval, x.focus(ix))
	if err != nil {
		return false, err
	}
	msg := sink.String()
	if strings.TrimSpace(terminate) == "yes" {
		x.logger.Error("message", "text", msg, "terminate", true)
		return false, &TerminateError{Message: msg}
	}
	x.logger.Info("message", "text", msg)
	return true, nil
}
