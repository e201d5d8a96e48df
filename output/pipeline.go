package output

import (
	"fmt"

	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
)

// Sink receives the records finished by a pipeline.
type Sink interface {
	Write(*Record) error
	Close() error
}

// Throttler is implemented by sinks that can ask the producer to slow down.
// Pending reports whether the sink holds data that has to be consumed before
// more records are accepted.
type Throttler interface {
	Pending() bool
}

type opened struct {
	kind   Kind
	resume state
}

type outputScope struct {
	name     xml.QName
	preserve bool
}

// Pipeline turns a sequence of begin, text and end events into records. At
// most one record is under construction at any time.
type Pipeline struct {
	// Strict makes illegal events fatal instead of silently ignored.
	Strict bool

	sink Sink
	err  error

	state  state
	stack  []opened
	scopes []outputScope
	ns     *scope.Manager

	record Record
	live   bool

	attr    Attr
	pending []scope.Binding

	ignore int
	minted int
	depth  int
	closed bool
}

// NewPipeline creates a pipeline writing into sink. When out does not name
// an output method and sink is a stream sink, the method is chosen from the
// first decisive node.
func NewPipeline(sink Sink, out Output) *Pipeline {
	if s, ok := sink.(*StreamSink); ok && out.Method == MethodAuto {
		sink = detect(s)
	}
	return &Pipeline{
		sink: sink,
		ns:   scope.New(),
	}
}

// Err gives the error that stopped the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// Depth gives the number of elements currently open.
func (p *Pipeline) Depth() int {
	return p.depth
}

func (p *Pipeline) Begin(kind Kind, name xml.QName) Outcome {
	if p.throttled() {
		return Overflow
	}
	if p.err != nil {
		return Error
	}
	if p.ignore > 0 {
		p.ignore++
		return Ignore
	}
	next, fl := outlook(p.state, evBegin, kind)
	if fl.has(flagError) {
		p.ignore++
		return p.illegal(evBegin, kind)
	}
	resume := p.state
	if fl.has(flagEndRecord) {
		p.finalize()
	}
	if fl.has(flagLostEmpty) {
		resume = stContent
	}
	p.stack = append(p.stack, opened{kind: kind, resume: resume})
	switch kind {
	case KindElement:
		p.open(name)
	case KindAttribute:
		p.attr = Attr{Name: name}
	case KindNamespace:
		p.attr = Attr{Name: xml.LocalName(name.Name)}
	case KindComment, KindInstruction:
		p.start(kind, name)
	}
	p.state = next
	return p.result()
}

// Text adds text to the node under construction. Raw text is written without
// escaping by sinks that support it.
func (p *Pipeline) Text(str string, raw bool) Outcome {
	if p.throttled() {
		return Overflow
	}
	if p.err != nil {
		return Error
	}
	if p.ignore > 0 {
		return Ignore
	}
	if str == "" {
		return p.result()
	}
	next, fl := outlook(p.state, evText, KindText)
	if fl.has(flagEndRecord) {
		p.finalize()
	}
	p.state = next
	switch p.state {
	case stAttribute, stNamespace:
		p.attr.Value += str
	case stComment, stInstruction:
		p.record.append(str, false)
	default:
		if !p.live || p.record.Kind != KindText {
			p.finalize()
			p.start(KindText, xml.QName{})
			if n := len(p.scopes); n > 0 {
				p.record.Preserve = p.scopes[n-1].preserve
			}
		}
		p.record.append(str, raw)
	}
	return p.result()
}

func (p *Pipeline) End(kind Kind) Outcome {
	if p.throttled() {
		return Overflow
	}
	if p.err != nil {
		return Error
	}
	if p.ignore > 0 {
		p.ignore--
		return Ignore
	}
	n := len(p.stack)
	if n == 0 || p.stack[n-1].kind != kind {
		return p.illegal(evEnd, kind)
	}
	_, fl := outlook(p.state, evEnd, kind)
	if fl.has(flagError) {
		return p.illegal(evEnd, kind)
	}
	top := p.stack[n-1]
	p.stack = p.stack[:n-1]

	switch kind {
	case KindElement:
		p.close(fl.has(flagBeginRecord))
	case KindAttribute:
		p.addAttr(p.attr)
	case KindNamespace:
		p.pending = append(p.pending, scope.Binding{
			Prefix: p.attr.Name.Name,
			Uri:    p.attr.Value,
		})
	case KindComment, KindInstruction:
		p.finalize()
	}
	p.state = top.resume
	return p.result()
}

// Flush hands the text under construction to the sink.
func (p *Pipeline) Flush() error {
	if p.live && p.record.Kind == KindText {
		p.finalize()
	}
	return p.err
}

// Close finishes the pending record and closes the sink. It fails when nodes
// are still open.
func (p *Pipeline) Close() error {
	if p.closed {
		return p.err
	}
	p.closed = true
	if p.err != nil {
		return p.err
	}
	p.finalize()
	if len(p.stack) > 0 {
		p.err = fmt.Errorf("%w: %d open", ErrUnclosed, len(p.stack))
		return p.err
	}
	if err := p.sink.Close(); err != nil && p.err == nil {
		p.err = err
	}
	return p.err
}

func (p *Pipeline) open(name xml.QName) {
	var preserve bool
	if n := len(p.scopes); n > 0 {
		preserve = p.scopes[n-1].preserve
	}
	p.scopes = append(p.scopes, outputScope{
		name:     name,
		preserve: preserve,
	})
	p.ns.Push()
	p.start(KindElement, name)
	p.record.Depth = p.depth
	p.depth++
}

func (p *Pipeline) close(content bool) {
	if !content {
		p.record.Empty = true
		p.finalize()
	} else {
		p.finalize()
		p.start(KindEndElement, p.scopes[len(p.scopes)-1].name)
		p.record.Depth = p.depth - 1
		p.finalize()
	}
	p.depth--
	p.scopes = p.scopes[:len(p.scopes)-1]
	p.ns.Pop()
}

func (p *Pipeline) addAttr(a Attr) {
	if a.Name.Uri == scope.NamespaceXML && a.Name.Name == "space" {
		p.scopes[len(p.scopes)-1].preserve = a.Value == "preserve"
	}
	p.record.setAttr(a)
}

func (p *Pipeline) start(kind Kind, name xml.QName) {
	p.record.reset()
	p.record.Kind = kind
	p.record.Name = name
	p.record.Depth = p.depth
	p.live = true
}

// finalize hands the live record, if any, to the sink.
func (p *Pipeline) finalize() {
	if !p.live {
		return
	}
	switch p.record.Kind {
	case KindElement:
		p.fixup(&p.record)
		p.scopes[len(p.scopes)-1].name = p.record.Name
	case KindComment:
		sanitizeComment(&p.record)
	case KindInstruction:
		sanitizeInstruction(&p.record)
	}
	if p.err == nil {
		if err := p.sink.Write(&p.record); err != nil {
			p.err = err
		}
	}
	p.record.reset()
	p.live = false
}

func (p *Pipeline) illegal(ev event, kind Kind) Outcome {
	if p.Strict {
		p.err = &StructuralError{
			Event: ev.String(),
			Kind:  kind,
			State: p.state.String(),
		}
	}
	return Error
}

func (p *Pipeline) throttled() bool {
	t, ok := p.sink.(Throttler)
	return ok && t.Pending()
}

func (p *Pipeline) result() Outcome {
	if p.err != nil {
		return Error
	}
	if p.throttled() {
		return Interrupt
	}
	return Continue
}
