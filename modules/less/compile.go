package less

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/assetgrid/internal/task"
)

// maxMixinDepth bounds mixin expansion so a mixin that calls itself fails
// instead of recursing forever.
const maxMixinDepth = 32

var escapeRe = regexp.MustCompile(`~"([^"]*)"|~'([^']*)'`)

// item is one output block: a ruleset, or a non-conditional at-rule such as
// @font-face or @keyframes holding its own declarations and rulesets.
type item struct {
	media     []string
	selectors []string
	at        string
	decls     []cssDecl
	children  []*item
}

type cssDecl struct {
	prop  string
	value string
}

// scope holds the variables and mixins visible inside one block. Variables
// are lazy: the last definition in a block wins wherever it appears.
type scope struct {
	parent    *scope
	vars      map[string]*varDecl
	mixins    map[string]*ruleSet
	resolving map[string]bool
}

func newScope(parent *scope, children []node) *scope {
	sc := &scope{
		parent:    parent,
		vars:      make(map[string]*varDecl),
		mixins:    make(map[string]*ruleSet),
		resolving: make(map[string]bool),
	}
	for _, n := range children {
		switch n := n.(type) {
		case *varDecl:
			sc.vars[n.name] = n
		case *ruleSet:
			for _, sel := range n.selectors {
				if mixinCallRe.MatchString(sel) {
					sc.mixins[sel] = n
				}
			}
		}
	}
	return sc
}

func (sc *scope) mixin(name string) *ruleSet {
	for s := sc; s != nil; s = s.parent {
		if m, ok := s.mixins[name]; ok {
			return m
		}
	}
	return nil
}

// variable resolves @name as seen from sc.
func (sc *scope) variable(name string, at pos) (string, error) {
	for s := sc; s != nil; s = s.parent {
		def, ok := s.vars[name]
		if !ok {
			continue
		}
		if s.resolving[name] {
			return "", &task.StyleSyntaxError{File: def.file, Line: def.ln, Msg: fmt.Sprintf("recursive variable definition for @%s", name)}
		}
		s.resolving[name] = true
		defer delete(s.resolving, name)
		return s.interpolate(def.value, true, def.pos)
	}
	return "", &task.StyleSyntaxError{File: at.file, Line: at.ln, Msg: fmt.Sprintf("undefined variable @%s", name)}
}

// interpolate replaces `@{name}` everywhere and, when bare is set, `@name`
// outside strings.
func (sc *scope) interpolate(s string, bare bool, at pos) (string, error) {
	if !strings.Contains(s, "@") {
		return s, nil
	}
	var b strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '@' && i+1 < len(s) && s[i+1] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return "", &task.StyleSyntaxError{File: at.file, Line: at.ln, Msg: "unterminated @{...} interpolation"}
			}
			v, err := sc.variable(s[i+2:i+end], at)
			if err != nil {
				return "", err
			}
			unq, _ := unquote(v)
			b.WriteString(unq)
			i += end
			continue
		case c == '@' && bare && quote == 0 && i+1 < len(s) && isNameStart(s[i+1]):
			j := i + 1
			for j < len(s) && isNameChar(s[j]) {
				j++
			}
			if j > i+1 {
				v, err := sc.variable(s[i+1:j], at)
				if err != nil {
					return "", err
				}
				b.WriteString(v)
				i = j - 1
				continue
			}
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

func isNameStart(c byte) bool {
	return c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// flattener turns the nested tree into flat output blocks.
type flattener struct {
	raws  []string
	items []*item
	depth int
}

// frame is where the statements of the block being flattened land.
type frame struct {
	scope     *scope
	selectors []string
	media     []string
	target    *item
	sink      *[]*item
}

func (f *flattener) block(children []node, fr frame) error {
	for _, n := range children {
		switch n := n.(type) {
		case *varDecl:
			// Collected by newScope.
		case *decl:
			if fr.target == nil {
				return &task.StyleSyntaxError{File: n.file, Line: n.ln, Msg: fmt.Sprintf("declaration %q outside of a ruleset", n.prop)}
			}
			prop, err := fr.scope.interpolate(n.prop, false, n.pos)
			if err != nil {
				return err
			}
			value, err := fr.scope.interpolate(n.value, true, n.pos)
			if err != nil {
				return err
			}
			value = escapeRe.ReplaceAllString(value, "$1$2")
			fr.target.decls = append(fr.target.decls, cssDecl{prop: prop, value: collapse(value)})
		case *rawStmt:
			f.raws = append(f.raws, n.text)
		case *importStmt:
			f.raws = append(f.raws, n.raw)
		case *mixinCall:
			if err := f.mixin(n, fr); err != nil {
				return err
			}
		case *ruleSet:
			if n.mixinOnly {
				continue
			}
			if err := f.ruleSet(n, fr); err != nil {
				return err
			}
		case *atBlock:
			if err := f.atBlock(n, fr); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *flattener) mixin(n *mixinCall, fr frame) error {
	m := fr.scope.mixin(n.name)
	if m == nil {
		return &task.StyleSyntaxError{File: n.file, Line: n.ln, Msg: fmt.Sprintf("undefined mixin %s", n.name)}
	}
	if f.depth >= maxMixinDepth {
		return &task.StyleSyntaxError{File: n.file, Line: n.ln, Msg: fmt.Sprintf("mixin %s nests too deeply", n.name)}
	}
	f.depth++
	defer func() { f.depth-- }()
	inner := fr
	inner.scope = newScope(fr.scope, m.children)
	return f.block(m.children, inner)
}

func (f *flattener) ruleSet(n *ruleSet, fr frame) error {
	selectors := make([]string, 0, len(n.selectors))
	for _, s := range n.selectors {
		sel, err := fr.scope.interpolate(s, false, n.pos)
		if err != nil {
			return err
		}
		selectors = append(selectors, sel)
	}
	it := &item{media: fr.media, selectors: combine(fr.selectors, selectors)}
	*fr.sink = append(*fr.sink, it)
	return f.block(n.children, frame{
		scope:     newScope(fr.scope, n.children),
		selectors: it.selectors,
		media:     fr.media,
		target:    it,
		sink:      fr.sink,
	})
}

func (f *flattener) atBlock(n *atBlock, fr frame) error {
	params, err := fr.scope.interpolate(n.params, true, n.pos)
	if err != nil {
		return err
	}
	prelude := "@" + n.name
	if params != "" {
		prelude += " " + params
	}
	inner := frame{scope: newScope(fr.scope, n.children), sink: fr.sink}

	if n.conditional() {
		inner.media = append(append([]string{}, fr.media...), prelude)
		inner.selectors = fr.selectors
		if len(fr.selectors) > 0 {
			// Declarations directly inside a bubbled block apply to the
			// enclosing selectors.
			it := &item{media: inner.media, selectors: fr.selectors}
			*fr.sink = append(*fr.sink, it)
			inner.target = it
		}
		return f.block(n.children, inner)
	}

	it := &item{media: fr.media, at: prelude}
	*fr.sink = append(*fr.sink, it)
	inner.target = it
	inner.sink = &it.children
	return f.block(n.children, inner)
}

// combine joins nested selectors. `&` stands for the parent selector;
// otherwise the child is a descendant of the parent.
func combine(parents, children []string) []string {
	if len(parents) == 0 {
		out := make([]string, 0, len(children))
		for _, c := range children {
			out = append(out, collapse(strings.ReplaceAll(c, "&", "")))
		}
		return out
	}
	out := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, c := range children {
			if strings.Contains(c, "&") {
				out = append(out, strings.ReplaceAll(c, "&", p))
			} else {
				out = append(out, p+" "+c)
			}
		}
	}
	return out
}
