package richtext

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	spoilerPattern = regexp.MustCompile(`\|\|([\s\S]+?)\|\|`)
	// allowedInlineTag is the only raw HTML allowed through verbatim; anything
	// else the platform would reject, so it gets escaped instead.
	allowedInlineTag = regexp.MustCompile(`(?i)^</?(b|strong|i|em|u|ins|s|strike|del|code|tg-spoiler)>$`)
	excessNewlines   = regexp.MustCompile(`\n{3,}`)
)

var markupEngine = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
)

// MarkupToHTML converts neutral markup into platform HTML (the Telegram tag
// subset). Unknown node kinds render their children and nothing else.
func MarkupToHTML(markup string) string {
	src := []byte(markup)
	doc := markupEngine.Parser().Parse(text.NewReader(src))
	out := renderBlocks(doc, src)
	out = excessNewlines.ReplaceAllString(out, "\n\n")
	return strings.TrimRight(out, " \t\n")
}

func renderBlocks(parent ast.Node, src []byte) string {
	var parts []string
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		if s := renderBlock(c, src); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(n ast.Node, src []byte) string {
	switch b := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return renderInlineChildren(n, src)
	case *ast.Heading:
		// The platform has no heading tags.
		return "<b>" + renderInlineChildren(n, src) + "</b>"
	case *ast.Blockquote:
		var inner []string
		for c := b.FirstChild(); c != nil; c = c.NextSibling() {
			if s := renderBlock(c, src); s != "" {
				inner = append(inner, s)
			}
		}
		return "<blockquote>" + strings.Join(inner, "\n") + "</blockquote>"
	case *ast.FencedCodeBlock:
		lang := string(b.Language(src))
		code := html.EscapeString(blockLines(n, src))
		if lang != "" {
			return `<pre><code class="language-` + lang + `">` + code + "</code></pre>"
		}
		return "<pre><code>" + code + "</code></pre>"
	case *ast.CodeBlock:
		return "<pre><code>" + html.EscapeString(blockLines(n, src)) + "</code></pre>"
	case *ast.List:
		return renderList(b, src)
	case *ast.HTMLBlock:
		// Block-level raw HTML is never trusted.
		return html.EscapeString(blockLines(n, src))
	case *ast.ThematicBreak:
		return ""
	default:
		if n.HasChildren() {
			return renderBlocks(n, src)
		}
		return ""
	}
}

func renderList(list *ast.List, src []byte) string {
	var sb strings.Builder
	ordinal := list.Start
	if ordinal <= 0 {
		ordinal = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var inner []string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if s := renderBlock(c, src); s != "" {
				inner = append(inner, s)
			}
		}
		line := strings.Join(inner, " ")
		if list.IsOrdered() {
			sb.WriteString(fmt.Sprintf("%d. %s\n", ordinal, line))
			ordinal++
		} else {
			sb.WriteString("• " + line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderInlineChildren concatenates adjacent plain-text nodes into one run
// before escaping. The parser splits text at every inline boundary (a bare
// "<" starts a new node), so spoiler markers straddling such a split are only
// visible on the assembled run.
func renderInlineChildren(parent ast.Node, src []byte) string {
	var sb strings.Builder
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			sb.WriteString(escapeWithSpoilers(run.String()))
			run.Reset()
		}
	}
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			run.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				run.WriteString("\n")
			}
		case *ast.String:
			run.Write(t.Value)
		default:
			flush()
			sb.WriteString(renderInline(c, src))
		}
	}
	flush()
	return sb.String()
}

func renderInline(n ast.Node, src []byte) string {
	switch i := n.(type) {
	case *ast.CodeSpan:
		return "<code>" + html.EscapeString(literalText(n, src)) + "</code>"
	case *ast.Emphasis:
		inner := renderInlineChildren(n, src)
		if i.Level >= 2 {
			return "<b>" + inner + "</b>"
		}
		return "<i>" + inner + "</i>"
	case *east.Strikethrough:
		return "<s>" + renderInlineChildren(n, src) + "</s>"
	case *ast.Link:
		return `<a href="` + html.EscapeString(string(i.Destination)) + `">` +
			renderInlineChildren(n, src) + "</a>"
	case *ast.AutoLink:
		url := string(i.URL(src))
		if i.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(url, "mailto:") {
			url = "mailto:" + url
		}
		return `<a href="` + html.EscapeString(url) + `">` +
			html.EscapeString(string(i.Label(src))) + "</a>"
	case *ast.Image:
		// No image tag on the platform; keep the alt text.
		return renderInlineChildren(n, src)
	case *ast.RawHTML:
		var raw bytes.Buffer
		for s := 0; s < i.Segments.Len(); s++ {
			seg := i.Segments.At(s)
			raw.Write(seg.Value(src))
		}
		tag := raw.String()
		if allowedInlineTag.MatchString(strings.TrimSpace(tag)) {
			return tag
		}
		return html.EscapeString(tag)
	default:
		if n.HasChildren() {
			return renderInlineChildren(n, src)
		}
		return ""
	}
}

// escapeWithSpoilers escapes first and substitutes spoiler markers second, so
// the emitted tags are never escaped themselves.
func escapeWithSpoilers(s string) string {
	escaped := html.EscapeString(s)
	return spoilerPattern.ReplaceAllString(escaped, "<tg-spoiler>$1</tg-spoiler>")
}

func literalText(n ast.Node, src []byte) string {
	var b bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
		case *ast.String:
			b.Write(t.Value)
		}
	}
	return b.String()
}

func blockLines(n ast.Node, src []byte) string {
	var b bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}
