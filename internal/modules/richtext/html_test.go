package richtext

import (
	"strings"
	"testing"
)

func TestMarkupToHTML(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "bold and italic",
			markup: "**bold** and _italic_",
			want:   "<b>bold</b> and <i>italic</i>",
		},
		{
			name:   "nested emphasis",
			markup: "**_bold italic_**",
			want:   "<b><i>bold italic</i></b>",
		},
		{
			name:   "strikethrough",
			markup: "~~gone~~",
			want:   "<s>gone</s>",
		},
		{
			name:   "inline code escaped",
			markup: "`a < b`",
			want:   "<code>a &lt; b</code>",
		},
		{
			name:   "fenced code with language",
			markup: "```go\nfmt.Println(1 < 2)\n```",
			want:   `<pre><code class="language-go">fmt.Println(1 &lt; 2)</code></pre>`,
		},
		{
			name:   "link",
			markup: "[docs](https://example.com)",
			want:   `<a href="https://example.com">docs</a>`,
		},
		{
			name:   "blockquote",
			markup: "> quoted line",
			want:   "<blockquote>quoted line</blockquote>",
		},
		{
			name:   "unordered list bullets",
			markup: "- first\n- second",
			want:   "• first\n• second",
		},
		{
			name:   "ordered list numbering",
			markup: "1. one\n2. two",
			want:   "1. one\n2. two",
		},
		{
			name:   "paragraph separation",
			markup: "first\n\nsecond",
			want:   "first\n\nsecond",
		},
		{
			name:   "spoiler syntax",
			markup: "reveal ||secret|| now",
			want:   "reveal <tg-spoiler>secret</tg-spoiler> now",
		},
		{
			name:   "spoiler content still escaped",
			markup: "||a < b||",
			want:   "<tg-spoiler>a &lt; b</tg-spoiler>",
		},
		{
			name:   "spoiler around multiple angle brackets",
			markup: "spoil ||x < y > z|| end",
			want:   "spoil <tg-spoiler>x &lt; y &gt; z</tg-spoiler> end",
		},
		{
			name:   "code span keeps spoiler markers literal",
			markup: "`||x||`",
			want:   "<code>||x||</code>",
		},
		{
			name:   "allowed raw inline tags pass through",
			markup: "<u>under</u> and <s>strike</s>",
			want:   "<u>under</u> and <s>strike</s>",
		},
		{
			name:   "disallowed inline tag escaped",
			markup: "x <marquee>y</marquee> z",
			want:   "x &lt;marquee&gt;y&lt;/marquee&gt; z",
		},
		{
			name:   "result right trimmed",
			markup: "text\n\n\n",
			want:   "text",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MarkupToHTML(tt.markup)
			if got != tt.want {
				t.Fatalf("MarkupToHTML(%q) = %q, want %q", tt.markup, got, tt.want)
			}
		})
	}
}

func TestMarkupToHTMLScriptNeverPassesThrough(t *testing.T) {
	t.Parallel()
	got := MarkupToHTML("<script>alert('x')</script>")
	if strings.Contains(got, "<script>") {
		t.Fatalf("script tag passed through: %q", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Fatalf("script tag not escaped: %q", got)
	}
}

// Entities frozen into markup must survive conversion to platform HTML with
// the same emphasis structure.
func TestEntityMarkupHTMLRoundTrip(t *testing.T) {
	t.Parallel()
	markup := EntitiesToMarkup("bold italic ", []Entity{
		{Type: EntityBold, Offset: 0, Length: 12},
		{Type: EntityItalic, Offset: 0, Length: 12},
	})
	if markup != "**_bold italic_** " {
		t.Fatalf("markup = %q", markup)
	}
	html := MarkupToHTML(markup)
	if html != "<b><i>bold italic</i></b>" {
		t.Fatalf("html = %q", html)
	}
}
