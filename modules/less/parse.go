package less

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/assetgrid/internal/task"
)

var (
	varDeclRe   = regexp.MustCompile(`^@([\w-]+)\s*:([\s\S]*)$`)
	mixinCallRe = regexp.MustCompile(`^([.#][\w-]+)\s*(\(\s*\))?\s*$`)
	mixinDefRe  = regexp.MustCompile(`^([.#][\w-]+)\s*\(\s*\)$`)
	atPrelude   = regexp.MustCompile(`^@([\w-]+)\s*([\s\S]*)$`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// parser is a recursive-descent parser for the supported LESS subset.
type parser struct {
	file string
	src  string
	off  int
	ln   int
}

// parse parses a complete stylesheet.
func parse(file, src string) ([]node, error) {
	clean, err := stripComments(file, src)
	if err != nil {
		return nil, err
	}
	p := &parser{file: file, src: clean, ln: 1}
	return p.block(true, 0)
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return &task.StyleSyntaxError{File: p.file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// block parses statements until the closing brace of the current block, or
// until the end of input at the top level.
func (p *parser) block(top bool, openLine int) ([]node, error) {
	var nodes []node
	for {
		text, term, line := p.chunk()
		switch term {
		case 0:
			if !top {
				return nil, p.errorf(openLine, "missing closing brace")
			}
			if strings.TrimSpace(text) != "" {
				n, err := p.statement(text, line)
				if err != nil {
					return nil, err
				}
				nodes = appendNode(nodes, n)
			}
			return nodes, nil
		case '}':
			if top {
				return nil, p.errorf(p.ln, "unexpected closing brace")
			}
			if strings.TrimSpace(text) != "" {
				n, err := p.statement(text, line)
				if err != nil {
					return nil, err
				}
				nodes = appendNode(nodes, n)
			}
			return nodes, nil
		case ';':
			n, err := p.statement(text, line)
			if err != nil {
				return nil, err
			}
			nodes = appendNode(nodes, n)
		case '{':
			n, err := p.openBlock(text, line)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
	}
}

func appendNode(nodes []node, n node) []node {
	if n == nil {
		return nodes
	}
	return append(nodes, n)
}

// chunk reads up to the next `{`, `;` or `}` outside strings, parentheses
// and `@{...}` interpolations. It returns the text before the terminator, the
// terminator (0 at end of input) and the line the text starts on.
func (p *parser) chunk() (string, byte, int) {
	for p.off < len(p.src) && isSpace(p.src[p.off]) {
		if p.src[p.off] == '\n' {
			p.ln++
		}
		p.off++
	}
	startLine := p.ln
	start := p.off
	depth := 0
	var quote byte
	for p.off < len(p.src) {
		c := p.src[p.off]
		switch {
		case quote != 0:
			if c == '\\' && p.off+1 < len(p.src) {
				p.off++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case (c == ')' || c == ']') && depth > 0:
			depth--
		case c == '@' && p.off+1 < len(p.src) && p.src[p.off+1] == '{':
			end := strings.IndexByte(p.src[p.off:], '}')
			if end > 0 {
				p.off += end
			}
		case depth == 0 && (c == '{' || c == ';' || c == '}'):
			text := p.src[start:p.off]
			p.off++
			return text, c, startLine
		}
		if p.src[p.off] == '\n' {
			p.ln++
		}
		p.off++
	}
	return p.src[start:], 0, startLine
}

// statement classifies a `;`-terminated statement.
func (p *parser) statement(text string, line int) (node, error) {
	text = strings.TrimSpace(text)
	at := pos{file: p.file, ln: line}
	switch {
	case text == "":
		return nil, nil
	case strings.HasPrefix(text, "@import"):
		return p.importStatement(text, at)
	case strings.HasPrefix(text, "@") && !strings.HasPrefix(text, "@{"):
		if m := varDeclRe.FindStringSubmatch(text); m != nil {
			value := strings.TrimSpace(m[2])
			if value == "" {
				return nil, p.errorf(line, "variable @%s has no value", m[1])
			}
			return &varDecl{pos: at, name: m[1], value: value}, nil
		}
		return &rawStmt{pos: at, text: collapse(text)}, nil
	case mixinCallRe.MatchString(text):
		m := mixinCallRe.FindStringSubmatch(text)
		return &mixinCall{pos: at, name: m[1]}, nil
	}

	prop, value, ok := strings.Cut(text, ":")
	prop, value = strings.TrimSpace(prop), strings.TrimSpace(value)
	if !ok || prop == "" || strings.ContainsAny(prop, " \t\n\"'()") {
		return nil, p.errorf(line, "unrecognised statement %q", firstLine(text))
	}
	if value == "" {
		return nil, p.errorf(line, "property %q has no value", prop)
	}
	return &decl{pos: at, prop: prop, value: value}, nil
}

func (p *parser) importStatement(text string, at pos) (node, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "@import"))
	// Import options such as (reference) or (css).
	css := false
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return nil, p.errorf(at.ln, "malformed @import options")
		}
		css = strings.Contains(rest[:end], "css")
		rest = strings.TrimSpace(rest[end+1:])
	}

	target := rest
	isURL := false
	if strings.HasPrefix(target, "url(") && strings.HasSuffix(target, ")") {
		target = strings.TrimSpace(target[4 : len(target)-1])
		isURL = true
	}
	unq, ok := unquote(target)
	if !ok && !isURL {
		// Media-qualified imports keep whatever follows the path.
		return nil, p.errorf(at.ln, "malformed @import %q", firstLine(text))
	}
	if !ok {
		unq = target
	}
	if isURL || css || strings.HasSuffix(unq, ".css") || strings.Contains(unq, "://") {
		return &importStmt{pos: at, path: unq, css: true, raw: collapse(text)}, nil
	}
	return &importStmt{pos: at, path: unq}, nil
}

// openBlock builds the node for a `prelude { ... }` block.
func (p *parser) openBlock(prelude string, line int) (node, error) {
	prelude = strings.TrimSpace(prelude)
	if prelude == "" {
		return nil, p.errorf(line, "block without a selector")
	}
	children, err := p.block(false, line)
	if err != nil {
		return nil, err
	}
	at := pos{file: p.file, ln: line}

	if strings.HasPrefix(prelude, "@") && !strings.HasPrefix(prelude, "@{") {
		m := atPrelude.FindStringSubmatch(prelude)
		if m == nil {
			return nil, p.errorf(line, "malformed at-rule %q", firstLine(prelude))
		}
		return &atBlock{pos: at, name: m[1], params: collapse(m[2]), children: children}, nil
	}

	if m := mixinDefRe.FindStringSubmatch(prelude); m != nil {
		return &ruleSet{pos: at, selectors: []string{m[1]}, mixinOnly: true, children: children}, nil
	}
	selectors := splitTopLevel(prelude, ',')
	for i, s := range selectors {
		s = collapse(s)
		if s == "" {
			return nil, p.errorf(line, "empty selector in %q", firstLine(prelude))
		}
		selectors[i] = s
	}
	return &ruleSet{pos: at, selectors: selectors, children: children}, nil
}

// stripComments blanks out `/* */` and `//` comments outside strings,
// keeping newlines so line numbers survive. `//` inside parentheses is
// left alone so url(http://...) keeps working.
func stripComments(file, src string) (string, error) {
	out := []byte(src)
	line := 1
	depth := 0
	var quote byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		if c == '\n' {
			line++
		}
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(out) {
				i++
			} else if c == quote || c == '\n' {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			startLine := line
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return "", &task.StyleSyntaxError{File: file, Line: startLine, Msg: "unterminated comment"}
			}
			stop := i + 2 + end + 2
			for j := i; j < stop; j++ {
				if out[j] == '\n' {
					if j > i {
						line++
					}
					continue
				}
				out[j] = ' '
			}
			i = stop - 1
		case c == '/' && depth == 0 && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
			if i < len(out) {
				line++
			}
		}
	}
	return string(out), nil
}

// splitTopLevel splits s on sep outside strings, parentheses and brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return s, false
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	return strings.TrimSpace(s)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
