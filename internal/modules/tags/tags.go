package tags

import (
	"strings"
	"unicode"
)

// Case selects the tag case transform.
type Case string

const (
	CaseCamel          Case = "camelCase"
	CasePascal         Case = "pascalCase"
	CaseSnake          Case = "snake_case"
	CaseScreamingSnake Case = "SNAKE_CASE"
	CaseKebab          Case = "kebab-case"
	CaseScreamingKebab Case = "KEBAB-CASE"
	CaseLower          Case = "lower_case"
	CaseUpper          Case = "upper_case"
	CaseNone           Case = "none"
)

// ParseCase maps a stored string to a Case, defaulting to none.
func ParseCase(s string) Case {
	switch c := Case(strings.TrimSpace(s)); c {
	case CaseCamel, CasePascal, CaseSnake, CaseScreamingSnake,
		CaseKebab, CaseScreamingKebab, CaseLower, CaseUpper:
		return c
	default:
		return CaseNone
	}
}

// Format normalizes a free-form tag string into a deterministic, de-duplicated,
// hash-prefixed tag line. With a case transform requested the input splits on
// commas only, so internal whitespace survives as a word boundary; under none
// it splits on commas and whitespace.
func Format(raw string, tagCase Case) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if tagCase == "" {
		tagCase = CaseNone
	}

	var tokens []string
	if tagCase != CaseNone {
		tokens = strings.Split(raw, ",")
	} else {
		tokens = strings.FieldsFunc(raw, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
	}

	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		tok = strings.TrimPrefix(tok, "#")
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if tagCase != CaseNone {
			tok = convert(tok, tagCase)
		}
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, "#"+tok)
	}
	return strings.Join(out, " ")
}

// convert tokenizes at lower→upper transitions, dashes, underscores and
// whitespace, lowercases the words and reassembles per the target case.
func convert(token string, tagCase Case) string {
	words := splitWords(token)
	if len(words) == 0 {
		return ""
	}

	switch tagCase {
	case CaseCamel:
		parts := make([]string, len(words))
		parts[0] = words[0]
		for i := 1; i < len(words); i++ {
			parts[i] = capitalize(words[i])
		}
		return strings.Join(parts, "")
	case CasePascal:
		parts := make([]string, len(words))
		for i, w := range words {
			parts[i] = capitalize(w)
		}
		return strings.Join(parts, "")
	case CaseSnake:
		return strings.Join(words, "_")
	case CaseScreamingSnake:
		return strings.ToUpper(strings.Join(words, "_"))
	case CaseKebab:
		return strings.Join(words, "-")
	case CaseScreamingKebab:
		return strings.ToUpper(strings.Join(words, "-"))
	case CaseLower:
		return strings.Join(words, " ")
	case CaseUpper:
		return strings.ToUpper(strings.Join(words, " "))
	default:
		return token
	}
}

func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = nil
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			flush()
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	runes := []rune(w)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
