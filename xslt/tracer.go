package xslt

import (
	"io"
	"log/slog"
	"os"

	"github.com/midbel/xform/xml"
)

// Trace describes the frame an event of a Tracer is about.
type Trace struct {
	Instruction string
	Node        xml.Node
	Depth       int
	Execution   string
}

func (t Trace) node() string {
	if t.Node == nil {
		return ""
	}
	if name := t.Node.QualifiedName(); name != "" {
		return name
	}
	return t.Node.Type().String()
}

type Tracer interface {
	Enter(Trace)
	Leave(Trace)
	Error(Trace, error)
}

func NoopTracer() Tracer {
	return discardTracer{}
}

type discardTracer struct{}

func (_ discardTracer) Enter(_ Trace) {}

func (_ discardTracer) Leave(_ Trace) {}

func (_ discardTracer) Error(_ Trace, _ error) {}

type logTracer struct {
	logger *slog.Logger
}

// LogTracer reports frames at the debug level of logger.
func LogTracer(logger *slog.Logger) Tracer {
	return logTracer{
		logger: logger,
	}
}

func Stdout() Tracer {
	return LogTracer(stdioLogger(os.Stdout))
}

func Stderr() Tracer {
	return LogTracer(stdioLogger(os.Stderr))
}

func stdioLogger(w io.Writer) *slog.Logger {
	opts := slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return slog.New(slog.NewTextHandler(w, &opts))
}

func (t logTracer) Enter(tr Trace) {
	t.logger.Debug("start instruction", t.args(tr)...)
}

func (t logTracer) Leave(tr Trace) {
	t.logger.Debug("done instruction", t.args(tr)...)
}

func (t logTracer) Error(tr Trace, err error) {
	args := append(t.args(tr), "err", err.Error())
	t.logger.Error("error while processing instruction", args...)
}

func (t logTracer) args(tr Trace) []any {
	return []any{
		"execution",
		tr.Execution,
		"instruction",
		tr.Instruction,
		"node",
		tr.node(),
		"depth",
		tr.Depth,
	}
}
