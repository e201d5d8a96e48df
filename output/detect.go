package output

import (
	"strings"
)

// detector holds the records of a document back until one of them decides
// the output method of the stream sink.
type detector struct {
	sink    *StreamSink
	held    []Record
	decided bool
}

func detect(sink *StreamSink) *detector {
	return &detector{
		sink: sink,
	}
}

func (d *detector) Pending() bool {
	return d.sink.Pending()
}

func (d *detector) Write(r *Record) error {
	if d.decided {
		return d.sink.Write(r)
	}
	switch {
	case r.Kind == KindElement && r.Name.Uri == "" && strings.EqualFold(r.Name.Name, "html"):
		return d.decide(MethodHTML, r)
	case r.Kind == KindElement:
		return d.decide(MethodXML, r)
	case r.Kind == KindText && !r.Whitespace():
		return d.decide(MethodXML, r)
	default:
		d.held = append(d.held, r.Clone())
		return nil
	}
}

func (d *detector) Close() error {
	if !d.decided {
		if err := d.decide(MethodXML, nil); err != nil {
			return err
		}
	}
	return d.sink.Close()
}

func (d *detector) decide(m Method, r *Record) error {
	d.decided = true
	d.sink.SetMethod(m)
	for i := range d.held {
		if err := d.sink.Write(&d.held[i]); err != nil {
			return err
		}
	}
	d.held = nil
	if r == nil {
		return nil
	}
	return d.sink.Write(r)
}
