package richtext

import "testing"

func TestEntitiesToMarkup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		text     string
		entities []Entity
		want     string
	}{
		{
			name: "no entities",
			text: "plain text",
			want: "plain text",
		},
		{
			name: "bold",
			text: "hello world",
			entities: []Entity{
				{Type: EntityBold, Offset: 0, Length: 5},
			},
			want: "**hello** world",
		},
		{
			name: "identical range nests by index with mirrored closes",
			text: "bold italic ",
			entities: []Entity{
				{Type: EntityBold, Offset: 0, Length: 12},
				{Type: EntityItalic, Offset: 0, Length: 12},
			},
			want: "**_bold italic_** ",
		},
		{
			name: "longer range wraps shorter at shared start",
			text: "abcdef",
			entities: []Entity{
				{Type: EntityItalic, Offset: 0, Length: 3},
				{Type: EntityBold, Offset: 0, Length: 6},
			},
			want: "**_abc_def**",
		},
		{
			name: "shared boundary closes before opening",
			text: "aaaabbbb",
			entities: []Entity{
				{Type: EntityBold, Offset: 0, Length: 4},
				{Type: EntityItalic, Offset: 4, Length: 4},
			},
			want: "**aaaa**_bbbb_",
		},
		{
			name: "whitespace trimmed off range",
			text: "say  hello  now",
			entities: []Entity{
				{Type: EntityBold, Offset: 3, Length: 9}, // "  hello  " before trimming
			},
			want: "say  **hello**  now",
		},
		{
			name: "entity collapsing to whitespace is dropped",
			text: "a   b",
			entities: []Entity{
				{Type: EntityBold, Offset: 1, Length: 3},
			},
			want: "a   b",
		},
		{
			name: "out of range dropped",
			text: "short",
			entities: []Entity{
				{Type: EntityBold, Offset: 3, Length: 10},
				{Type: EntityItalic, Offset: -1, Length: 2},
			},
			want: "short",
		},
		{
			name: "unknown type ignored",
			text: "hello",
			entities: []Entity{
				{Type: EntityType("cashtag"), Offset: 0, Length: 5},
			},
			want: "hello",
		},
		{
			name: "link carries url",
			text: "see docs here",
			entities: []Entity{
				{Type: EntityTextLink, Offset: 4, Length: 4, URL: "https://example.com"},
			},
			want: "see [docs](https://example.com) here",
		},
		{
			name: "mention carries user id",
			text: "ping admin",
			entities: []Entity{
				{Type: EntityTextMention, Offset: 5, Length: 5, UserID: 42},
			},
			want: "ping [admin](tg://user?id=42)",
		},
		{
			name: "pre with language",
			text: "x := 1",
			entities: []Entity{
				{Type: EntityPre, Offset: 0, Length: 6, Language: "go"},
			},
			want: "```go\nx := 1\n```",
		},
		{
			name: "underline and spoiler markers",
			text: "under secret",
			entities: []Entity{
				{Type: EntityUnderline, Offset: 0, Length: 5},
				{Type: EntitySpoiler, Offset: 6, Length: 6},
			},
			want: "<u>under</u> ||secret||",
		},
		{
			name: "unicode offsets are rune based",
			text: "йцук рест",
			entities: []Entity{
				{Type: EntityBold, Offset: 5, Length: 4},
			},
			want: "йцук **рест**",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := EntitiesToMarkup(tt.text, tt.entities)
			if got != tt.want {
				t.Fatalf("EntitiesToMarkup() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntitiesToMarkupDeterministic(t *testing.T) {
	t.Parallel()
	text := "overlap zone here"
	entities := []Entity{
		{Type: EntityBold, Offset: 0, Length: 12},
		{Type: EntityItalic, Offset: 0, Length: 12},
		{Type: EntityStrikethrough, Offset: 8, Length: 9},
	}
	first := EntitiesToMarkup(text, entities)
	for i := 0; i < 50; i++ {
		if got := EntitiesToMarkup(text, entities); got != first {
			t.Fatalf("run %d produced %q, first run produced %q", i, got, first)
		}
	}
}
