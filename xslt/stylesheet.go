package xslt

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/xml"
)

const (
	DefaultMode = ""
	CurrentMode = "#current"
)

// NoMatchMode tells what happens to a node no rule of a mode matches.
type NoMatchMode int8

const (
	// NoMatchTextOnlyCopy processes the children of elements and documents
	// and copies text and attribute values.
	NoMatchTextOnlyCopy NoMatchMode = iota
	NoMatchShallowCopy
	NoMatchDeepCopy
	NoMatchShallowSkip
	NoMatchDeepSkip
	NoMatchFail
)

func ParseNoMatch(str string) (NoMatchMode, error) {
	switch str {
	case "", "text-only-copy":
		return NoMatchTextOnlyCopy, nil
	case "shallow-copy":
		return NoMatchShallowCopy, nil
	case "deep-copy":
		return NoMatchDeepCopy, nil
	case "shallow-skip":
		return NoMatchShallowSkip, nil
	case "deep-skip":
		return NoMatchDeepSkip, nil
	case "fail":
		return NoMatchFail, nil
	default:
		return NoMatchTextOnlyCopy, fmt.Errorf("%s: unknown on-no-match value", str)
	}
}

// Rule is one entry of a rule table: a template with a single pattern.
type Rule struct {
	*Template
	Pattern  Pattern
	Priority float64
	Identity int

	owner *Stylesheet
}

// Owner gives the stylesheet that declared the rule.
func (r *Rule) Owner() *Stylesheet {
	return r.owner
}

type Mode struct {
	Name    string
	NoMatch NoMatchMode

	rules  []*Rule
	sorted bool
}

func (m *Mode) append(r *Rule) {
	m.rules = append(m.rules, r)
	m.sorted = false
}

func (m *Mode) sort() {
	if m.sorted {
		return
	}
	slices.SortFunc(m.rules, func(a, b *Rule) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Identity, b.Identity)
	})
	m.sorted = true
}

// Rules gives the rules of the mode from the lowest to the highest
// precedence.
func (m *Mode) Rules() []*Rule {
	m.sort()
	return m.rules
}

// MatchFunc tells whether a pattern matches a node.
type MatchFunc func(Pattern, xml.Node) (bool, error)

func (m *Mode) find(node xml.Node, match MatchFunc) (*Rule, error) {
	m.sort()
	for i := len(m.rules) - 1; i >= 0; i-- {
		ok, err := match(m.rules[i].Pattern, node)
		if err != nil {
			return nil, err
		}
		if ok {
			return m.rules[i], nil
		}
	}
	return nil, nil
}

// Stylesheet holds the compiled rules and declarations of a transformation
// together with the stylesheets it imports.
type Stylesheet struct {
	Output  output.Output
	Imports []*Stylesheet

	modes   map[string]*Mode
	named   map[string]*Template
	globals []Action
	sets    map[string][]*AttributeSet
	keys    map[string][]*Key

	identity int
}

func NewStylesheet() *Stylesheet {
	return &Stylesheet{
		modes: make(map[string]*Mode),
		named: make(map[string]*Template),
		sets:  make(map[string][]*AttributeSet),
		keys:  make(map[string][]*Key),
	}
}

// DefineMode sets the no match policy of a mode.
func (s *Stylesheet) DefineMode(name string, policy NoMatchMode) {
	m := s.mode(name)
	m.NoMatch = policy
}

func (s *Stylesheet) mode(name string) *Mode {
	m, ok := s.modes[name]
	if !ok {
		m = &Mode{Name: name}
		s.modes[name] = m
	}
	return m
}

// Mode gives the mode named name, looking through imports.
func (s *Stylesheet) Mode(name string) (*Mode, bool) {
	if m, ok := s.modes[name]; ok {
		return m, true
	}
	for i := len(s.Imports) - 1; i >= 0; i-- {
		if m, ok := s.Imports[i].Mode(name); ok {
			return m, true
		}
	}
	return nil, false
}

// AddTemplate registers t. A named template can be called; a template with a
// pattern gets one rule per alternative of the pattern, each with its own
// default priority and identity.
func (s *Stylesheet) AddTemplate(t *Template) error {
	if t.Name != "" {
		if _, ok := s.named[t.Name]; ok {
			return fmt.Errorf("template %s: %w", t.Name, ErrDuplicate)
		}
		s.named[t.Name] = t
	}
	m := s.mode(t.Mode)
	for _, p := range t.Match {
		s.identity++
		r := Rule{
			Template: t,
			Pattern:  p,
			Priority: p.Priority(),
			Identity: s.identity,
			owner:    s,
		}
		if t.Explicit {
			r.Priority = t.Priority
		}
		m.append(&r)
	}
	return nil
}

// AddGlobal declares a top level Variable or Param.
func (s *Stylesheet) AddGlobal(a Action) error {
	var name string
	switch a := a.(type) {
	case *Variable:
		name = a.Name
	case *Param:
		name = a.Name
	default:
		return fmt.Errorf("%s: %w for a global", Instruction(a), ErrType)
	}
	found := slices.ContainsFunc(s.globals, func(other Action) bool {
		return globalName(other) == name
	})
	if found {
		return fmt.Errorf("variable %s: %w", name, ErrDuplicate)
	}
	s.globals = append(s.globals, a)
	return nil
}

func (s *Stylesheet) AddAttributeSet(set *AttributeSet) {
	s.sets[set.Name] = append(s.sets[set.Name], set)
}

func (s *Stylesheet) AddKey(k *Key) {
	s.keys[k.Name] = append(s.keys[k.Name], k)
}

func (s *Stylesheet) Import(other *Stylesheet) {
	s.Imports = append(s.Imports, other)
}

// Finalize sorts the rule tables of s and its imports. A finalized
// stylesheet can be used by concurrent executions.
func (s *Stylesheet) Finalize() {
	for _, m := range s.modes {
		m.sort()
	}
	for _, i := range s.Imports {
		i.Finalize()
	}
}

// FindTemplate gives the rule of the mode with the highest precedence whose
// pattern matches node. Rules of the stylesheet come before those of its
// imports, the last import first. It gives nil when no rule matches.
func (s *Stylesheet) FindTemplate(node xml.Node, mode string, match MatchFunc) (*Rule, error) {
	if m, ok := s.modes[mode]; ok {
		r, err := m.find(node, match)
		if r != nil || err != nil {
			return r, err
		}
	}
	return s.FindImport(node, mode, match)
}

// FindImport searches the imports of s only.
func (s *Stylesheet) FindImport(node xml.Node, mode string, match MatchFunc) (*Rule, error) {
	for i := len(s.Imports) - 1; i >= 0; i-- {
		r, err := s.Imports[i].FindTemplate(node, mode, match)
		if r != nil || err != nil {
			return r, err
		}
	}
	return nil, nil
}

// CallTemplate gives the template named name.
func (s *Stylesheet) CallTemplate(name string) (*Template, error) {
	if t, ok := s.named[name]; ok {
		return t, nil
	}
	for i := len(s.Imports) - 1; i >= 0; i-- {
		if t, err := s.Imports[i].CallTemplate(name); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("template %s: %w", name, ErrNoTemplate)
}

// Global gives the declaration of a top level variable or param.
func (s *Stylesheet) Global(name string) (Action, bool) {
	ix := slices.IndexFunc(s.globals, func(a Action) bool {
		return globalName(a) == name
	})
	if ix >= 0 {
		return s.globals[ix], true
	}
	for i := len(s.Imports) - 1; i >= 0; i-- {
		if a, ok := s.Imports[i].Global(name); ok {
			return a, true
		}
	}
	return nil, false
}

// AttributeSets gives every definition of the named set, from the lowest to
// the highest precedence.
func (s *Stylesheet) AttributeSets(name string) []*AttributeSet {
	var list []*AttributeSet
	for _, i := range s.Imports {
		list = append(list, i.AttributeSets(name)...)
	}
	return append(list, s.sets[name]...)
}

func (s *Stylesheet) Keys(name string) []*Key {
	var list []*Key
	for _, i := range s.Imports {
		list = append(list, i.Keys(name)...)
	}
	return append(list, s.keys[name]...)
}

// NoMatch gives the policy of the mode. Modes never declared use the text
// only copy.
func (s *Stylesheet) NoMatch(mode string) NoMatchMode {
	if m, ok := s.Mode(mode); ok {
		return m.NoMatch
	}
	return NoMatchTextOnlyCopy
}

func globalName(a Action) string {
	switch a := a.(type) {
	case *Variable:
		return a.Name
	case *Param:
		return a.Name
	default:
		return ""
	}
}

var (
	applyChildren = &ApplyTemplates{Mode: CurrentMode}
	applyAll      = &ApplyTemplates{Mode: CurrentMode, attributes: true}

	builtinApply   = &Template{Name: "#builtin", Children: []Action{applyChildren}}
	builtinText    = &Template{Name: "#builtin", Children: []Action{&ValueOf{}}}
	builtinEmpty   = &Template{Name: "#builtin"}
	builtinShallow = &Template{Name: "#builtin", Children: []Action{&Copy{Children: []Action{applyAll}}}}
	builtinDeep    = &Template{Name: "#builtin", Children: []Action{&CopyOf{}}}
)

// builtin gives the template run for a node no rule matches.
func builtin(policy NoMatchMode, node xml.Node) (*Template, error) {
	var container bool
	switch node.Type() {
	case xml.TypeDocument, xml.TypeElement:
		container = true
	default:
	}
	switch policy {
	case NoMatchTextOnlyCopy:
		switch node.Type() {
		case xml.TypeText, xml.TypeAttribute:
			return builtinText, nil
		default:
			if container {
				return builtinApply, nil
			}
			return builtinEmpty, nil
		}
	case NoMatchShallowCopy:
		return builtinShallow, nil
	case NoMatchDeepCopy:
		return builtinDeep, nil
	case NoMatchShallowSkip:
		if container {
			return builtinApply, nil
		}
		return builtinEmpty, nil
	case NoMatchDeepSkip:
		return builtinEmpty, nil
	default:
		return nil, fmt.Errorf("%s: %w", node.QualifiedName(), ErrNoTemplate)
	}
}
