package output

import (
	"strings"
)

// TextSink keeps the text written into it and drops every other node.
type TextSink struct {
	buf strings.Builder
}

func NewTextSink() *TextSink {
	return new(TextSink)
}

func (t *TextSink) Write(r *Record) error {
	if r.Kind == KindText {
		t.buf.WriteString(r.String())
	}
	return nil
}

func (t *TextSink) Close() error {
	return nil
}

func (t *TextSink) String() string {
	return t.buf.String()
}
