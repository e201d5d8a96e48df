// Package scope keeps track of namespace prefix bindings for a tree being read
// or produced.
//
// Bindings form a single stack. Each scope records where its own declarations
// start and the default namespace in effect when it was pushed, so Pop undoes
// exactly what was declared since the matching Push.
package scope

import (
	"errors"
	"fmt"
)

const (
	PrefixXML   = "xml"
	PrefixXMLNS = "xmlns"

	NamespaceXML   = "http://www.w3.org/XML/1998/namespace"
	NamespaceXMLNS = "http://www.w3.org/2000/xmlns/"
)

var (
	ErrReserved = errors.New("reserved prefix")
	ErrEmpty    = errors.New("no scope")
)

type Binding struct {
	Prefix string
	Uri    string
}

type frame struct {
	mark      int
	defaultNS string
}

type Manager struct {
	bindings  []Binding
	scopes    []frame
	defaultNS string
}

func New() *Manager {
	var m Manager
	m.Push()
	return &m
}

// Push opens a new scope.
func (m *Manager) Push() {
	f := frame{
		mark:      len(m.bindings),
		defaultNS: m.defaultNS,
	}
	m.scopes = append(m.scopes, f)
}

// Pop closes the current scope and drops every binding it declared.
func (m *Manager) Pop() error {
	n := len(m.scopes)
	if n == 0 {
		return ErrEmpty
	}
	f := m.scopes[n-1]
	m.scopes = m.scopes[:n-1]
	m.bindings = m.bindings[:f.mark]
	m.defaultNS = f.defaultNS
	return nil
}

// Declare binds prefix to uri in the current scope. An empty prefix changes
// the default namespace.
func (m *Manager) Declare(prefix, uri string) error {
	switch prefix {
	case PrefixXML:
		if uri != NamespaceXML {
			return fmt.Errorf("%s: %w", prefix, ErrReserved)
		}
		return nil
	case PrefixXMLNS:
		return fmt.Errorf("%s: %w", prefix, ErrReserved)
	default:
	}
	if len(m.scopes) == 0 {
		m.Push()
	}
	if prefix != "" && uri == "" {
		return fmt.Errorf("%s: prefix can not be undeclared", prefix)
	}
	b := Binding{
		Prefix: prefix,
		Uri:    uri,
	}
	mark := m.scopes[len(m.scopes)-1].mark
	for i := len(m.bindings) - 1; i >= mark; i-- {
		if m.bindings[i].Prefix == prefix {
			m.bindings[i] = b
			if prefix == "" {
				m.defaultNS = uri
			}
			return nil
		}
	}
	m.bindings = append(m.bindings, b)
	if prefix == "" {
		m.defaultNS = uri
	}
	return nil
}

// Resolve gives the namespace bound to prefix. The empty prefix resolves to
// the default namespace, which is reported as found even when it is empty.
func (m *Manager) Resolve(prefix string) (string, bool) {
	switch prefix {
	case "":
		return m.defaultNS, true
	case PrefixXML:
		return NamespaceXML, true
	case PrefixXMLNS:
		return NamespaceXMLNS, true
	default:
	}
	for i := len(m.bindings) - 1; i >= 0; i-- {
		if m.bindings[i].Prefix == prefix {
			return m.bindings[i].Uri, true
		}
	}
	return "", false
}

// FindPrefix gives a non empty prefix currently bound to uri and not
// shadowed by a nearer declaration.
func (m *Manager) FindPrefix(uri string) (string, bool) {
	if uri == NamespaceXML {
		return PrefixXML, true
	}
	for i := len(m.bindings) - 1; i >= 0; i-- {
		b := m.bindings[i]
		if b.Prefix == "" || b.Uri != uri {
			continue
		}
		if got, _ := m.Resolve(b.Prefix); got == uri {
			return b.Prefix, true
		}
	}
	return "", false
}

// Declared looks for prefix among the declarations of the current scope only.
func (m *Manager) Declared(prefix string) (string, bool) {
	if len(m.scopes) == 0 {
		return "", false
	}
	mark := m.scopes[len(m.scopes)-1].mark
	for i := len(m.bindings) - 1; i >= mark; i-- {
		if m.bindings[i].Prefix == prefix {
			return m.bindings[i].Uri, true
		}
	}
	return "", false
}

// Bindings gives the declarations of the current scope in declaration order.
func (m *Manager) Bindings() []Binding {
	if len(m.scopes) == 0 {
		return nil
	}
	mark := m.scopes[len(m.scopes)-1].mark
	list := make([]Binding, len(m.bindings)-mark)
	copy(list, m.bindings[mark:])
	return list
}

// InScope gives every visible binding, nearest first, without the default
// namespace when it is empty.
func (m *Manager) InScope() []Binding {
	var (
		list []Binding
		seen = make(map[string]struct{})
	)
	for i := len(m.bindings) - 1; i >= 0; i-- {
		b := m.bindings[i]
		if _, ok := seen[b.Prefix]; ok {
			continue
		}
		seen[b.Prefix] = struct{}{}
		if b.Uri == "" {
			continue
		}
		list = append(list, b)
	}
	return list
}

func (m *Manager) Depth() int {
	return len(m.scopes)
}

func (m *Manager) Reset() {
	m.bindings = m.bindings[:0]
	m.scopes = m.scopes[:0]
	m.defaultNS = ""
	m.Push()
}
