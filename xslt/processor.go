package xslt

import (
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/xml"
)

// Processor runs a stylesheet over documents. A processor only reads its
// stylesheet and can start executions from several goroutines.
type Processor struct {
	sheet  *Stylesheet
	eval   Evaluator
	logger *slog.Logger
	tracer Tracer
	params map[string]Value
	ext    map[string]any
	strict bool
	mode   string
	limit  int
}

type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

func WithTracer(tracer Tracer) Option {
	return func(p *Processor) {
		p.tracer = tracer
	}
}

// WithParamValue sets the value of a global param. The value is converted with
// Coerce.
func WithParamValue(name string, value any) Option {
	return func(p *Processor) {
		p.params[name] = Coerce(value)
	}
}

func WithParams(params map[string]any) Option {
	return func(p *Processor) {
		for k, v := range params {
			p.params[k] = Coerce(v)
		}
	}
}

// WithExtension registers obj under the namespace uri. Evaluators reach it
// through Focus.Extension.
func WithExtension(uri string, obj any) Option {
	return func(p *Processor) {
		p.ext[uri] = obj
	}
}

// WithStrict makes events the output can not accept fail the
// transformation.
func WithStrict(strict bool) Option {
	return func(p *Processor) {
		p.strict = strict
	}
}

// WithMode sets the mode used to process the document node.
func WithMode(mode string) Option {
	return func(p *Processor) {
		p.mode = mode
	}
}

// WithLimit sets the number of bytes the output buffers before Transform
// gives back control to write them.
func WithLimit(limit int) Option {
	return func(p *Processor) {
		p.limit = limit
	}
}

func NewProcessor(sheet *Stylesheet, eval Evaluator, options ...Option) *Processor {
	sheet.Finalize()
	p := Processor{
		sheet:  sheet,
		eval:   eval,
		logger: slog.New(slog.DiscardHandler),
		tracer: NoopTracer(),
		params: make(map[string]Value),
		ext:    make(map[string]any),
	}
	for _, o := range options {
		o(&p)
	}
	return &p
}

func (p *Processor) Stylesheet() *Stylesheet {
	return p.sheet
}

// Execute prepares an execution of the stylesheet over doc writing to sink.
// Nothing runs before the first call to Run.
func (p *Processor) Execute(doc xml.Node, sink output.Sink) *Execution {
	id := uuid.Must(uuid.NewV7()).String()
	out := output.NewPipeline(sink, p.sheet.Output)
	out.Strict = p.strict
	return &Execution{
		id:      id,
		sheet:   p.sheet,
		eval:    p.eval,
		logger:  p.logger.With("execution", id),
		tracer:  p.tracer,
		params:  maps.Clone(p.params),
		ext:     p.ext,
		strict:  p.strict,
		mode:    p.mode,
		root:    doc,
		out:     out,
		globals: make(map[string]*global),
		keys:    make(map[keyIndex]map[string][]xml.Node),
	}
}

// Transform serializes the result of the transformation of doc to w. With a
// limit, the output is written each time the buffer fills up.
func (p *Processor) Transform(w io.Writer, doc xml.Node) error {
	sink, err := output.NewStreamSink(w, p.sheet.Output)
	if err != nil {
		return err
	}
	sink.Limit = p.limit
	x := p.Execute(doc, sink)
	for {
		st, err := x.Run()
		if err != nil {
			return err
		}
		if st == Done {
			return nil
		}
		if err := sink.Drain(); err != nil {
			return err
		}
	}
}

func (p *Processor) TransformString(doc xml.Node) (string, error) {
	var str strings.Builder
	if err := p.Transform(&str, doc); err != nil {
		return "", err
	}
	return str.String(), nil
}

// TransformTree gives the result of the transformation as a new document.
func (p *Processor) TransformTree(doc xml.Node) (*xml.Document, error) {
	sink := output.NewTreeSink()
	x := p.Execute(doc, sink)
	for {
		st, err := x.Run()
		if err != nil {
			return nil, err
		}
		if st == Done {
			return sink.Document(), nil
		}
	}
}

// Reader gives the result of the transformation as a stream of items. The
// transformation advances only when the reader needs more items.
func (p *Processor) Reader(doc xml.Node) *output.Reader {
	r := output.NewReader()
	x := p.Execute(doc, r)
	r.Attach(func() (bool, error) {
		st, err := x.Run()
		return st == Done, err
	})
	return r
}
