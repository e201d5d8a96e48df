package xslt

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/xml"
)

// Status tells why Run returned.
type Status int8

const (
	// Done means the transformation ran to completion or failed.
	Done Status = iota
	// Interrupted means a sink asked the execution to give back control
	// after an event was accepted.
	Interrupted
	// Suspended means the output refused an event because its buffer is
	// full. The event is replayed by the next call to Run.
	Suspended
)

func (s Status) String() string {
	switch s {
	case Done:
		return "done"
	case Interrupted:
		return "interrupted"
	case Suspended:
		return "suspended"
	default:
		return "<unknown>"
	}
}

type signal int8

const (
	signalNone signal = iota
	signalInterrupt
	signalOverflow
)

var errCapture = errors.New("capture did not complete")

type global struct {
	busy  bool
	value Value
}

type keyIndex struct {
	name string
	root xml.Node
}

// Execution is one run of a stylesheet over a document. All its progress
// lives in the frame stack so that Run can return at any output event and be
// called again later to resume where it stopped.
type Execution struct {
	id     string
	sheet  *Stylesheet
	eval   Evaluator
	logger *slog.Logger
	tracer Tracer
	params map[string]Value
	ext    map[string]any
	strict bool
	mode   string

	root   xml.Node
	out    *output.Pipeline
	stack  []Frame
	signal signal

	globals map[string]*global
	keys    map[keyIndex]map[string][]xml.Node

	started  bool
	finished bool
	err      error
}

func (x *Execution) ID() string {
	return x.id
}

// Depth gives the number of frames on the stack.
func (x *Execution) Depth() int {
	return len(x.stack)
}

// Run executes the transformation until it ends or until the output asks to
// stop. An execution that failed keeps returning its error.
func (x *Execution) Run() (Status, error) {
	if x.err != nil {
		return Done, x.err
	}
	if x.finished {
		return Done, nil
	}
	if !x.started {
		x.started = true
		x.start()
	}
	st, err := x.loop(0)
	if err != nil {
		x.err = err
		x.logger.Error("transformation failed", "err", err)
		return Done, err
	}
	if st != Done {
		x.logger.Debug("transformation paused", "status", st.String(), "depth", len(x.stack))
		return st, nil
	}
	x.finished = true
	if err := x.out.Close(); err != nil {
		x.err = err
		return Done, err
	}
	x.logger.Debug("transformation done")
	return Done, nil
}

// start pushes the frame applying templates to the document node in the
// initial mode.
func (x *Execution) start() {
	x.stack = append(x.stack, Frame{
		Action:   &ApplyTemplates{},
		State:    ProcessingChildren,
		Parent:   -1,
		Node:     x.root,
		Position: 1,
		Size:     1,
		Mode:     x.mode,
		nodes:    []xml.Node{x.root},
		target:   x.mode,
	})
	x.tracer.Enter(x.trace(0))
}

func (x *Execution) loop(base int) (Status, error) {
	for len(x.stack) > base {
		ix := len(x.stack) - 1
		x.signal = signalNone
		done, err := x.execute(ix)
		if err != nil {
			if ix < len(x.stack) {
				x.tracer.Error(x.trace(ix), err)
			}
			return Done, err
		}
		if x.signal == signalOverflow {
			return Suspended, nil
		}
		if done {
			x.pop()
		}
		if x.signal == signalInterrupt {
			return Interrupted, nil
		}
	}
	return Done, nil
}

func (x *Execution) at(ix int) *Frame {
	return &x.stack[ix]
}

// push adds a frame for a running in the focus of the frame at parent.
func (x *Execution) push(parent int, a Action) {
	p := x.at(parent)
	x.pushFocus(parent, a, p.Node, p.Position, p.Size)
}

func (x *Execution) pushFocus(parent int, a Action, node xml.Node, pos, size int) {
	p := x.at(parent)
	f := Frame{
		Action:   a,
		Parent:   parent,
		Owner:    p.Owner,
		Node:     node,
		Position: pos,
		Size:     size,
		Mode:     p.Mode,
		Rule:     p.Rule,
	}
	f.mark = len(x.at(p.Owner).Locals)
	x.stack = append(x.stack, f)
	x.tracer.Enter(x.trace(len(x.stack) - 1))
}

// pushTemplate adds the frame of a template instantiated for node. The frame
// owns the variables declared in its body.
func (x *Execution) pushTemplate(parent int, t *Template, r *Rule, node xml.Node, pos, size int, mode string, args map[string]Value) {
	f := Frame{
		Action:   t,
		Parent:   parent,
		Owner:    len(x.stack),
		Node:     node,
		Position: pos,
		Size:     size,
		Mode:     mode,
		Rule:     r,
		Args:     args,
	}
	x.stack = append(x.stack, f)
	x.tracer.Enter(x.trace(len(x.stack) - 1))
}

// pushDetached adds a frame that sees no local variable, used for the
// evaluation of globals.
func (x *Execution) pushDetached(a Action) {
	ix := len(x.stack)
	x.stack = append(x.stack, Frame{
		Action:   a,
		Parent:   -1,
		Owner:    ix,
		Node:     x.root,
		Position: 1,
		Size:     1,
		Mode:     x.mode,
	})
	x.tracer.Enter(x.trace(ix))
}

func (x *Execution) pop() {
	ix := len(x.stack) - 1
	f := x.at(ix)
	x.tracer.Leave(x.trace(ix))
	switch f.Action.(type) {
	case *Variable, *Param:
	default:
		if f.Owner != ix {
			owner := x.at(f.Owner)
			owner.Locals = owner.Locals[:f.mark]
		}
	}
	x.stack[ix] = Frame{}
	x.stack = x.stack[:ix]
}

func (x *Execution) trace(ix int) Trace {
	f := x.at(ix)
	return Trace{
		Instruction: Instruction(f.Action),
		Node:        f.Node,
		Depth:       ix,
		Execution:   x.id,
	}
}

func (x *Execution) focus(ix int) *Focus {
	f := x.at(ix)
	return &Focus{
		Node:     f.Node,
		Position: f.Position,
		Size:     f.Size,
		exec:     x,
		frame:    ix,
	}
}

// send passes ev to the output. It reports false when the event was refused
// and has to be sent again.
func (x *Execution) send(ev event) (bool, error) {
	var res output.Outcome
	switch ev.op {
	case opBegin:
		res = x.out.Begin(ev.kind, ev.name)
	case opText:
		res = x.out.Text(ev.text, ev.raw)
	case opEnd:
		res = x.out.End(ev.kind)
	}
	switch res {
	case output.Overflow:
		x.signal = signalOverflow
		return false, nil
	case output.Interrupt:
		x.signal = signalInterrupt
	case output.Error:
		if err := x.out.Err(); err != nil {
			return false, err
		}
		x.logger.Debug("output event ignored", "event", ev.String(), "depth", x.out.Depth())
	default:
	}
	return true, nil
}

func (x *Execution) bind(ix int, name string, v Value) {
	owner := x.at(x.at(ix).Owner)
	owner.Locals = append(owner.Locals, local{name: name, value: v})
}

func (x *Execution) lookup(ix int, name string) (Value, error) {
	if ix >= 0 && ix < len(x.stack) {
		owner := x.at(x.at(ix).Owner)
		for i := len(owner.Locals) - 1; i >= 0; i-- {
			if owner.Locals[i].name == name {
				return owner.Locals[i].value, nil
			}
		}
	}
	return x.global(name)
}

// global computes a top level variable or param the first time it is used.
func (x *Execution) global(name string) (Value, error) {
	if g, ok := x.globals[name]; ok {
		if g.busy {
			return Value{}, circularVariable(name)
		}
		return g.value, nil
	}
	decl, ok := x.sheet.Global(name)
	if !ok {
		return Value{}, undefinedVariable(name)
	}
	g := &global{busy: true}
	x.globals[name] = g

	var (
		value Value
		err   error
	)
	switch d := decl.(type) {
	case *Param:
		if v, ok := x.params[name]; ok {
			value = v
			break
		}
		if d.Required {
			err = fmt.Errorf("param %s: %w", name, ErrUndefined)
			break
		}
		value, err = x.globalValue(d.Select, d.Children)
	case *Variable:
		value, err = x.globalValue(d.Select, d.Children)
	}
	if err != nil {
		delete(x.globals, name)
		return Value{}, err
	}
	g.value = value
	g.busy = false
	return value, nil
}

func (x *Execution) globalValue(expr Expr, body []Action) (Value, error) {
	if expr != nil {
		focus := Focus{
			Node:     x.root,
			Position: 1,
			Size:     1,
			exec:     x,
			frame:    -1,
		}
		return x.eval.Evaluate(expr, &focus)
	}
	if len(body) == 0 {
		return String(""), nil
	}
	sink := output.NewTreeSink()
	err := x.capture(sink, func() {
		x.pushDetached(&Block{Children: body})
	})
	if err != nil {
		return Value{}, err
	}
	return Nodes([]xml.Node{sink.Document()}), nil
}

// value gives the value of a variable, a param or a with-param: its select
// expression, the tree built by its content or an empty string.
func (x *Execution) value(ix int, expr Expr, body []Action) (Value, error) {
	if expr != nil {
		return x.eval.Evaluate(expr, x.focus(ix))
	}
	if len(body) == 0 {
		return String(""), nil
	}
	sink := output.NewTreeSink()
	if err := x.captureBody(ix, body, sink); err != nil {
		return Value{}, err
	}
	return Nodes([]xml.Node{sink.Document()}), nil
}

func (x *Execution) captureBody(ix int, body []Action, sink output.Sink) error {
	return x.capture(sink, func() {
		x.push(ix, &Block{Children: body})
	})
}

// capture runs the frames added by start to completion with sink in place of
// the output of the execution.
func (x *Execution) capture(sink output.Sink, start func()) error {
	var (
		saved = x.out
		base  = len(x.stack)
	)
	x.out = output.NewPipeline(sink, output.Output{})
	x.out.Strict = x.strict
	defer func() {
		x.out = saved
	}()

	start()
	// Nested run on the Go stack. Capture sinks never ask to pause, so the
	// loop returns only once the frames above base are done.
	st, err := x.loop(base)
	if err == nil && st != Done {
		err = errCapture
	}
	if err != nil {
		for len(x.stack) > base {
			x.pop()
		}
		return err
	}
	return x.out.Close()
}

func (x *Execution) withParams(ix int, list []*WithParam) (map[string]Value, error) {
	if len(list) == 0 {
		return nil, nil
	}
	args := make(map[string]Value, len(list))
	for _, p := range list {
		v, err := x.value(ix, p.Select, p.Children)
		if err != nil {
			return nil, err
		}
		args[p.Name] = v
	}
	return args, nil
}

func (x *Execution) matcher(ix int) MatchFunc {
	return func(p Pattern, node xml.Node) (bool, error) {
		return x.eval.Matches(p, node, x.focus(ix))
	}
}

func (x *Execution) extension(uri string) (any, bool) {
	obj, ok := x.ext[uri]
	return obj, ok
}
