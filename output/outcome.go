// Package output assembles the events produced by a transformation into
// records and hands them to a sink.
package output

import (
	"errors"
	"fmt"
)

// Outcome is the answer of the pipeline to one event.
type Outcome int8

const (
	// Continue means the event was accepted.
	Continue Outcome = iota
	// Interrupt means the event was accepted and the producer should yield.
	Interrupt
	// Overflow means the event was refused because the sink is not ready. It
	// must be sent again later.
	Overflow
	// Error means the event is illegal at this point and was swallowed.
	Error
	// Ignore means the event was discarded inside an ignored region.
	Ignore
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Interrupt:
		return "interrupt"
	case Overflow:
		return "overflow"
	case Error:
		return "error"
	case Ignore:
		return "ignore"
	default:
		return "<unknown>"
	}
}

// Accepted reports whether the event took effect or was deliberately dropped,
// that is whether the producer can move on.
func (o Outcome) Accepted() bool {
	return o != Overflow
}

type Kind int8

const (
	KindNone Kind = iota
	KindElement
	KindEndElement
	KindAttribute
	KindNamespace
	KindText
	KindComment
	KindInstruction
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindEndElement:
		return "end-element"
	case KindAttribute:
		return "attribute"
	case KindNamespace:
		return "namespace"
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindInstruction:
		return "processing-instruction"
	default:
		return "none"
	}
}

var (
	ErrStructure = errors.New("illegal output structure")
	ErrUnclosed  = errors.New("unclosed output nodes")
)

// StructuralError describes an event that can not be written where it
// appears. It is only returned by strict pipelines.
type StructuralError struct {
	Event string
	Kind  Kind
	State string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s %s not allowed in %s", e.Event, e.Kind, e.State)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructure
}
