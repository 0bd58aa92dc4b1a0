package less

import (
	"strings"
)

// printer renders flattened blocks. Compressed and pretty output differ only
// in whitespace.
type printer struct {
	b        strings.Builder
	compress bool
}

func render(raws []string, items []*item, compress bool) string {
	p := &printer{compress: compress}
	for _, r := range raws {
		p.b.WriteString(r)
		p.b.WriteString(";")
		p.newline()
	}

	// Consecutive blocks under the same conditional groups share one wrapper.
	for i := 0; i < len(items); {
		chain := mergeMedia(items[i].media)
		j := i + 1
		for j < len(items) && equalChains(mergeMedia(items[j].media), chain) {
			j++
		}
		if hasOutput(items[i:j]) {
			for depth, prelude := range chain {
				p.open(p.prelude(prelude), depth)
			}
			for _, it := range items[i:j] {
				p.item(it, len(chain))
			}
			for depth := len(chain) - 1; depth >= 0; depth-- {
				p.close(depth)
			}
		}
		i = j
	}

	out := p.b.String()
	if compress {
		return strings.TrimSpace(out)
	}
	return out
}

func (p *printer) item(it *item, depth int) {
	if !hasOutput([]*item{it}) {
		return
	}
	if it.at != "" {
		p.open(p.prelude(it.at), depth)
		p.decls(it.decls, depth+1)
		for _, child := range it.children {
			p.item(child, depth+1)
		}
		p.close(depth)
		return
	}
	sep := ",\n" + p.indent(depth)
	if p.compress {
		sep = ","
	}
	sels := make([]string, 0, len(it.selectors))
	for _, s := range it.selectors {
		sels = append(sels, p.selector(s))
	}
	p.open(strings.Join(sels, sep), depth)
	p.decls(it.decls, depth+1)
	p.close(depth)
}

func (p *printer) decls(decls []cssDecl, depth int) {
	for _, d := range decls {
		if p.compress {
			p.b.WriteString(d.prop + ":" + tighten(d.value, ",") + ";")
			continue
		}
		p.b.WriteString(p.indent(depth) + d.prop + ": " + d.value + ";\n")
	}
}

func (p *printer) open(head string, depth int) {
	if p.compress {
		p.b.WriteString(head + "{")
		return
	}
	p.b.WriteString(p.indent(depth) + head + " {\n")
}

func (p *printer) close(depth int) {
	if p.compress {
		p.b.WriteString("}")
		return
	}
	p.b.WriteString(p.indent(depth) + "}\n")
}

func (p *printer) newline() {
	if !p.compress {
		p.b.WriteString("\n")
	}
}

func (p *printer) indent(depth int) string {
	return strings.Repeat("  ", depth)
}

func (p *printer) selector(s string) string {
	if p.compress {
		return tighten(s, ">+~,")
	}
	return s
}

func (p *printer) prelude(s string) string {
	if p.compress {
		return tighten(s, ":,")
	}
	return s
}

// tighten drops spaces around the given punctuation outside strings,
// brackets and parentheses other than media feature lists.
func tighten(s, punct string) string {
	var b strings.Builder
	var quote byte
	brackets := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			brackets++
		case c == ']' && brackets > 0:
			brackets--
		case c == ' ' && brackets == 0:
			prev := byte(0)
			if b.Len() > 0 {
				prev = b.String()[b.Len()-1]
			}
			next := byte(0)
			if i+1 < len(s) {
				next = s[i+1]
			}
			if strings.IndexByte(punct, prev) >= 0 || strings.IndexByte(punct, next) >= 0 {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// mergeMedia joins directly nested @media queries with "and".
func mergeMedia(chain []string) []string {
	var out []string
	for _, c := range chain {
		if n := len(out); n > 0 && strings.HasPrefix(c, "@media ") && strings.HasPrefix(out[n-1], "@media ") {
			out[n-1] += " and " + strings.TrimPrefix(c, "@media ")
			continue
		}
		out = append(out, c)
	}
	return out
}

func equalChains(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// hasOutput reports whether any block would print something. Empty
// rulesets are dropped.
func hasOutput(items []*item) bool {
	for _, it := range items {
		if len(it.decls) > 0 {
			return true
		}
		if it.at != "" && hasOutput(it.children) {
			return true
		}
	}
	return false
}
