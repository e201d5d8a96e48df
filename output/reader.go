package output

import (
	"io"
	"slices"

	"github.com/midbel/xform/scope"
	"github.com/midbel/xform/xml"
)

type ItemKind int8

const (
	ItemNone ItemKind = iota
	ItemElement
	ItemEndElement
	ItemText
	ItemWhitespace
	ItemSignificantWhitespace
	ItemComment
	ItemInstruction
)

func (k ItemKind) String() string {
	switch k {
	case ItemElement:
		return "element"
	case ItemEndElement:
		return "end-element"
	case ItemText:
		return "text"
	case ItemWhitespace:
		return "whitespace"
	case ItemSignificantWhitespace:
		return "significant-whitespace"
	case ItemComment:
		return "comment"
	case ItemInstruction:
		return "processing-instruction"
	default:
		return "none"
	}
}

func (k ItemKind) text() bool {
	return k == ItemText || k == ItemWhitespace || k == ItemSignificantWhitespace
}

// Item is a node as returned by a Reader.
type Item struct {
	Kind       ItemKind
	Name       xml.QName
	Value      string
	Attrs      []Attr
	Namespaces []scope.Binding
	Depth      int
	Empty      bool

	preserve bool
}

// Pump runs the producer of a Reader until it yields. It reports true once
// the producer has nothing more to give.
type Pump func() (bool, error)

// Reader is a sink that gives the records of a transformation back one at a
// time, running the transformation only as far as needed.
//
// Adjacent text is merged and text made of whitespace only is reported as
// whitespace or significant whitespace, depending on xml:space. A text item
// is only released once the item following it is known.
type Reader struct {
	queue []Item
	pump  Pump
	done  bool
	err   error
}

func NewReader() *Reader {
	return &Reader{}
}

// Attach sets the function driving the producer.
func (r *Reader) Attach(pump Pump) {
	r.pump = pump
}

func (r *Reader) Read() (Item, error) {
	if err := r.fill(); err != nil {
		return Item{}, err
	}
	if len(r.queue) == 0 {
		return Item{}, io.EOF
	}
	it := r.queue[0]
	r.queue = slices.Delete(r.queue, 0, 1)
	return it, nil
}

// Peek gives the next item without consuming it.
func (r *Reader) Peek() (Item, error) {
	if err := r.fill(); err != nil {
		return Item{}, err
	}
	if len(r.queue) == 0 {
		return Item{}, io.EOF
	}
	return r.queue[0], nil
}

func (r *Reader) Pending() bool {
	return r.ready()
}

func (r *Reader) Write(rec *Record) error {
	it := Item{
		Name:     rec.Name,
		Depth:    rec.Depth,
		Empty:    rec.Empty,
		preserve: rec.Preserve,
	}
	switch rec.Kind {
	case KindElement:
		it.Kind = ItemElement
		it.Attrs = slices.Clone(rec.Attrs)
		it.Namespaces = slices.Clone(rec.Namespaces)
	case KindEndElement:
		it.Kind = ItemEndElement
	case KindComment:
		it.Kind = ItemComment
		it.Value = rec.String()
	case KindInstruction:
		it.Kind = ItemInstruction
		it.Value = rec.String()
	case KindText:
		it.Value = rec.String()
		if n := len(r.queue); n > 0 && r.queue[n-1].Kind.text() {
			last := &r.queue[n-1]
			last.Value += it.Value
			last.Kind = classify(last.Value, last.preserve)
			return nil
		}
		it.Kind = classify(it.Value, it.preserve)
	default:
		return nil
	}
	r.queue = append(r.queue, it)
	return nil
}

func (r *Reader) Close() error {
	return nil
}

func (r *Reader) ready() bool {
	switch n := len(r.queue); {
	case n == 0:
		return false
	case n > 1:
		return true
	default:
		return r.done || !r.queue[0].Kind.text()
	}
}

func (r *Reader) fill() error {
	for !r.ready() && !r.done {
		if r.err != nil {
			return r.err
		}
		if r.pump == nil {
			r.done = true
			break
		}
		done, err := r.pump()
		if err != nil {
			r.err = err
			return err
		}
		r.done = done
	}
	return r.err
}

func classify(str string, preserve bool) ItemKind {
	for _, c := range str {
		switch c {
		case ' ', '\t', '\n', '\r':
		default:
			return ItemText
		}
	}
	if preserve {
		return ItemSignificantWhitespace
	}
	return ItemWhitespace
}
