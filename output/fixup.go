package output

import (
	"strconv"
	"strings"

	"github.com/midbel/xform/scope"
)

const mintedPrefix = "xp_"

// fixup makes the element record well formed with respect to namespaces.
// Bindings it declares are attached to the record.
func (p *Pipeline) fixup(r *Record) {
	if r.Name.Uri == "" {
		r.Name.Space = ""
	}
	for _, b := range p.pending {
		if b.Prefix == r.Name.Space && b.Uri != r.Name.Uri {
			continue
		}
		if got, ok := p.ns.Resolve(b.Prefix); ok && got == b.Uri {
			continue
		}
		if b.Prefix != "" && b.Uri == "" {
			continue
		}
		p.ns.Declare(b.Prefix, b.Uri)
	}
	p.pending = p.pending[:0]

	if got, _ := p.ns.Resolve(r.Name.Space); got != r.Name.Uri {
		if err := p.ns.Declare(r.Name.Space, r.Name.Uri); err != nil {
			r.Name.Space = p.mint()
			p.ns.Declare(r.Name.Space, r.Name.Uri)
		}
	}
	used := map[string]struct{}{
		r.Name.Space: {},
	}
	for i := range r.Attrs {
		name := &r.Attrs[i].Name
		switch name.Uri {
		case "":
			name.Space = ""
			continue
		case scope.NamespaceXML:
			name.Space = scope.PrefixXML
			continue
		default:
		}
		if name.Space != "" {
			if got, ok := p.ns.Resolve(name.Space); ok && got == name.Uri {
				used[name.Space] = struct{}{}
				continue
			}
			_, declared := p.ns.Declared(name.Space)
			_, taken := used[name.Space]
			if !declared && !taken {
				if err := p.ns.Declare(name.Space, name.Uri); err == nil {
					used[name.Space] = struct{}{}
					continue
				}
			}
		}
		if prefix, ok := p.ns.FindPrefix(name.Uri); ok {
			name.Space = prefix
		} else {
			name.Space = p.mint()
			p.ns.Declare(name.Space, name.Uri)
		}
		used[name.Space] = struct{}{}
	}
	r.Namespaces = append(r.Namespaces[:0], p.ns.Bindings()...)
}

func (p *Pipeline) mint() string {
	for {
		p.minted++
		prefix := mintedPrefix + strconv.Itoa(p.minted)
		if _, ok := p.ns.Resolve(prefix); !ok {
			return prefix
		}
	}
}

// sanitizeComment keeps the comment from containing "--" or ending with "-".
func sanitizeComment(r *Record) {
	str := r.String()
	if !strings.Contains(str, "--") && !strings.HasSuffix(str, "-") {
		return
	}
	var (
		buf  strings.Builder
		prev rune
	)
	for _, c := range str {
		if c == '-' && prev == '-' {
			buf.WriteByte(' ')
		}
		buf.WriteRune(c)
		prev = c
	}
	if prev == '-' {
		buf.WriteByte(' ')
	}
	r.Value = append(r.Value[:0], Segment{Text: buf.String()})
}

func sanitizeInstruction(r *Record) {
	str := r.String()
	if !strings.Contains(str, "?>") {
		return
	}
	str = strings.ReplaceAll(str, "?>", "? >")
	r.Value = append(r.Value[:0], Segment{Text: str})
}
