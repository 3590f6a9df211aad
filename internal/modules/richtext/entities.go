package richtext

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// EntityType classifies a formatting entity. The set mirrors the platform
// message-entity vocabulary; unknown types are ignored.
type EntityType string

const (
	EntityBold          EntityType = "bold"
	EntityItalic        EntityType = "italic"
	EntityUnderline     EntityType = "underline"
	EntityStrikethrough EntityType = "strikethrough"
	EntitySpoiler       EntityType = "spoiler"
	EntityCode          EntityType = "code"
	EntityPre           EntityType = "pre"
	EntityTextLink      EntityType = "text_link"
	EntityTextMention   EntityType = "text_mention"
)

// Entity is one formatting range over plain text. Offset and Length are rune
// counts into the message text.
type Entity struct {
	Type     EntityType `json:"type"`
	Offset   int        `json:"offset"`
	Length   int        `json:"length"`
	URL      string     `json:"url,omitempty"`
	Language string     `json:"language,omitempty"`
	UserID   int64      `json:"user_id,omitempty"`
}

func entityMarkers(e Entity) (open, close string, ok bool) {
	switch e.Type {
	case EntityBold:
		return "**", "**", true
	case EntityItalic:
		return "_", "_", true
	case EntityUnderline:
		return "<u>", "</u>", true
	case EntityStrikethrough:
		return "~~", "~~", true
	case EntitySpoiler:
		return "||", "||", true
	case EntityCode:
		return "`", "`", true
	case EntityPre:
		return "```" + e.Language + "\n", "\n```", true
	case EntityTextLink:
		return "[", "](" + e.URL + ")", true
	case EntityTextMention:
		return "[", fmt.Sprintf("](tg://user?id=%d)", e.UserID), true
	}
	return "", "", false
}

// tagEvent is a virtual open or close marker placed at a rune position. Length
// is the trimmed entity length and doubles as the nesting priority.
type tagEvent struct {
	pos    int
	open   bool
	length int
	index  int
	marker string
}

// eventLess is the total order that makes overlapping and boundary-sharing
// entities nest correctly:
//  1. ascending position;
//  2. at equal position, closes before opens;
//  3. among opens, longer entity first (outermost); among closes, shorter
//     entity first (innermost);
//  4. remaining ties by original index, with close order mirroring open order
//     so paired tags stay symmetric.
func eventLess(a, b tagEvent) bool {
	if a.pos != b.pos {
		return a.pos < b.pos
	}
	if a.open != b.open {
		return !a.open
	}
	if a.open {
		if a.length != b.length {
			return a.length > b.length
		}
		return a.index < b.index
	}
	if a.length != b.length {
		return a.length < b.length
	}
	return a.index > b.index
}

// EntitiesToMarkup converts plain text plus formatting entities into the
// neutral markup dialect. Malformed (out-of-range) entities and entities whose
// range is all whitespace are dropped silently.
func EntitiesToMarkup(text string, entities []Entity) string {
	if len(entities) == 0 {
		return text
	}

	runes := []rune(text)
	events := make([]tagEvent, 0, 2*len(entities))
	for i, e := range entities {
		if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(runes) {
			continue
		}

		// Formatting markers must not wrap whitespace.
		start, end := e.Offset, e.Offset+e.Length
		for start < end && unicode.IsSpace(runes[start]) {
			start++
		}
		for end > start && unicode.IsSpace(runes[end-1]) {
			end--
		}
		if start >= end {
			continue
		}

		open, close, ok := entityMarkers(e)
		if !ok {
			continue
		}
		length := end - start
		events = append(events,
			tagEvent{pos: start, open: true, length: length, index: i, marker: open},
			tagEvent{pos: end, open: false, length: length, index: i, marker: close},
		)
	}
	if len(events) == 0 {
		return text
	}

	// eventLess is a strict total order over the events ((index, open) is
	// unique), so the result does not depend on sort stability.
	sort.Slice(events, func(i, j int) bool { return eventLess(events[i], events[j]) })

	var sb strings.Builder
	sb.Grow(len(text) + 4*len(events))
	last := 0
	for _, ev := range events {
		if ev.pos > last {
			sb.WriteString(string(runes[last:ev.pos]))
			last = ev.pos
		}
		sb.WriteString(ev.marker)
	}
	if last < len(runes) {
		sb.WriteString(string(runes[last:]))
	}
	return sb.String()
}
