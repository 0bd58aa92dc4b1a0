package htmlmin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/task"
	"golang.org/x/net/html"
)

const (
	jsMediaType  = "application/javascript"
	cssMediaType = "text/css"
)

// embedded minifies the bodies of script and style elements.
var embedded = newEmbeddedMinifier()

func newEmbeddedMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(jsMediaType, js.Minify)
	m.AddFunc(cssMediaType, css.Minify)
	return m
}

// blockElements are the tags around which inter-tag whitespace is dropped
// entirely instead of collapsed to one space.
var blockElements = map[string]bool{
	"html": true, "head": true, "body": true, "title": true, "meta": true, "link": true,
	"script": true, "style": true, "noscript": true, "base": true,
	"div": true, "p": true, "section": true, "article": true, "aside": true, "nav": true,
	"header": true, "footer": true, "main": true, "figure": true, "figcaption": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "td": true, "th": true,
	"caption": true, "colgroup": true, "col": true,
	"form": true, "fieldset": true, "legend": true, "select": true, "option": true, "optgroup": true,
	"br": true, "hr": true, "pre": true, "blockquote": true, "address": true, "template": true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// Minify minifies one HTML document according to the htmlmin options in
// opts. Unknown tags and malformed markup pass through unchanged; only an
// embedded script that cannot be parsed fails the document. name is used in
// error messages.
func Minify(ctx context.Context, name string, src []byte, opts task.Options) ([]byte, error) {
	m := &minifier{ctx: ctx, name: name, opts: opts, lastBlock: true}
	z := html.NewTokenizer(bytes.NewReader(src))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, &task.MarkupSyntaxError{File: name, Msg: "tokenizer failed", Err: err}
			}
			return m.out.Bytes(), nil
		}
		// Raw must be copied before TagName, which lower-cases the buffer in place.
		raw := string(z.Raw())

		var err error
		switch tt {
		case html.TextToken:
			err = m.text(raw)
		case html.StartTagToken, html.SelfClosingTagToken:
			m.startTag(z, tt, raw)
		case html.EndTagToken:
			m.endTag(z, raw)
		case html.CommentToken:
			m.comment(string(z.Text()), raw)
		default:
			m.flushSpace(true)
			m.out.WriteString(raw)
			m.lastBlock = true
		}
		if err != nil {
			return nil, err
		}
	}
}

type minifier struct {
	ctx  context.Context
	name string
	opts task.Options
	out  bytes.Buffer

	preDepth int
	// rawTag is the script, style or textarea element currently open.
	rawTag     string
	scriptType string

	pendingSpace bool
	lastBlock    bool
}

func (m *minifier) collapsing() bool {
	return m.opts.CollapseWhitespace && m.preDepth == 0
}

// flushSpace writes a pending collapsed space unless a block boundary sits
// on either side of it.
func (m *minifier) flushSpace(nextIsBlock bool) {
	if m.pendingSpace && !m.lastBlock && !nextIsBlock {
		m.out.WriteByte(' ')
	}
	m.pendingSpace = false
}

func (m *minifier) text(raw string) error {
	switch m.rawTag {
	case "script":
		return m.script(raw)
	case "style":
		m.style(raw)
		return nil
	case "textarea":
		m.out.WriteString(raw)
		return nil
	}

	if !m.collapsing() {
		m.flushSpace(false)
		m.out.WriteString(raw)
		m.lastBlock = false
		return nil
	}

	collapsed := collapseSpace(raw)
	trimmed := strings.Trim(collapsed, " ")
	if trimmed == "" {
		if collapsed != "" {
			m.pendingSpace = true
		}
		return nil
	}
	if strings.HasPrefix(collapsed, " ") {
		m.pendingSpace = true
	}
	m.flushSpace(false)
	m.out.WriteString(trimmed)
	m.lastBlock = false
	m.pendingSpace = strings.HasSuffix(collapsed, " ")
	return nil
}

func (m *minifier) script(raw string) error {
	if !m.opts.MinifyJS || !isJavaScript(m.scriptType) || strings.TrimSpace(raw) == "" {
		m.out.WriteString(raw)
		return nil
	}
	out, err := embedded.String(jsMediaType, raw)
	if err != nil {
		return &task.MarkupSyntaxError{File: m.name, Msg: "embedded script could not be parsed", Err: err}
	}
	m.out.WriteString(out)
	return nil
}

func (m *minifier) style(raw string) {
	if !m.opts.MinifyCSS || strings.TrimSpace(raw) == "" {
		m.out.WriteString(raw)
		return
	}
	out, err := embedded.String(cssMediaType, raw)
	if err != nil {
		ctxlog.FromContext(m.ctx).Debug("Inline style left as-is.", "file", m.name, "error", err)
		m.out.WriteString(raw)
		return
	}
	m.out.WriteString(out)
}

func (m *minifier) startTag(z *html.Tokenizer, tt html.TokenType, raw string) {
	nameBytes, hasAttr := z.TagName()
	name := string(nameBytes)

	if name == "script" {
		m.scriptType = ""
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			if string(key) == "type" {
				m.scriptType = strings.ToLower(strings.TrimSpace(string(val)))
			}
		}
	}

	m.flushSpace(blockElements[name])
	m.out.WriteString(m.tidyTag(raw, name, tt == html.SelfClosingTagToken))
	m.lastBlock = blockElements[name]

	if tt == html.SelfClosingTagToken {
		return
	}
	switch name {
	case "pre":
		m.preDepth++
	case "script", "style", "textarea":
		m.rawTag = name
	}
}

func (m *minifier) endTag(z *html.Tokenizer, raw string) {
	nameBytes, _ := z.TagName()
	name := string(nameBytes)

	if name == m.rawTag {
		m.rawTag = ""
	}
	if name == "pre" && m.preDepth > 0 {
		m.preDepth--
	}
	m.flushSpace(blockElements[name])
	m.out.WriteString(m.tidyTag(raw, name, false))
	m.lastBlock = blockElements[name]
}

func (m *minifier) comment(data, raw string) {
	if m.opts.RemoveComments && !isConditional(data) {
		return
	}
	m.flushSpace(true)
	m.out.WriteString(raw)
	m.lastBlock = true
}

// tidyTag collapses whitespace between attributes and drops the
// self-closing slash of void elements. Attribute values and the case of
// names are left untouched.
func (m *minifier) tidyTag(raw, name string, selfClosing bool) string {
	if m.opts.CollapseWhitespace {
		raw = collapseTag(raw)
	}
	if selfClosing && voidElements[name] && !m.opts.KeepClosingSlash {
		raw = strings.TrimRight(strings.TrimSuffix(raw, "/>"), " \t\r\n\f") + ">"
	}
	return raw
}

func collapseTag(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	var quote byte
	space := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case isSpace(c):
			space = true
		default:
			if space && c != '>' && !(c == '/' && i+1 < len(raw) && raw[i+1] == '>') && c != '=' && lastByte(&b) != '=' {
				b.WriteByte(' ')
			}
			space = false
			if c == '"' || c == '\'' {
				quote = c
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

func lastByte(b *strings.Builder) byte {
	s := b.String()
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for i := 0; i < len(s); i++ {
		if isSpace(s[i]) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteByte(s[i])
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// isConditional reports whether a comment body is an IE conditional comment.
func isConditional(data string) bool {
	data = strings.TrimSpace(data)
	return strings.HasPrefix(data, "[if") ||
		strings.HasPrefix(data, "[endif]") ||
		strings.HasPrefix(data, "<![endif]") ||
		strings.HasSuffix(data, "<![endif]")
}

func isJavaScript(typ string) bool {
	switch typ {
	case "", "text/javascript", "application/javascript", "module", "text/ecmascript", "application/ecmascript":
		return true
	}
	return false
}
