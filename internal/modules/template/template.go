package template

import (
	"regexp"
	"strings"

	"github.com/gran-publicador/core/internal/models"
	"github.com/gran-publicador/core/internal/modules/tags"
)

// RenderInput carries the field values a block list renders from. The caller
// applies post-over-publication precedence before building it.
type RenderInput struct {
	Title           string
	Content         string
	Tags            string
	AuthorComment   string
	AuthorSignature string
	// DefaultFooter is the channel's default footer text, used by footer
	// blocks that carry no literal content of their own.
	DefaultFooter string
}

// Resolution is the outcome of picking a block list for a (publication,
// channel) pair.
type Resolution struct {
	Blocks        []models.TemplateBlock
	TemplateID    string
	VariationID   string
	SystemDefault bool
}

// SystemDefaultBlocks is the hard-coded fallback block list used when no
// variation resolves or the linked project template no longer exists.
func SystemDefaultBlocks() []models.TemplateBlock {
	return []models.TemplateBlock{
		{Enabled: true, Insert: models.InsertAuthorComment},
		{Enabled: true, Insert: models.InsertContent},
		{Enabled: true, Insert: models.InsertAuthorSignature},
		{Enabled: true, Insert: models.InsertTags},
		{Enabled: true, Insert: models.InsertFooter},
	}
}

// Resolve picks the block list for a channel. Priority: explicit variation id,
// then the channel's default variation, then the system default list.
func Resolve(channel *models.ChannelModel, explicitVariationID string, templates map[string]*models.ProjectTemplateModel) Resolution {
	prefs := channel.Preferences

	var variation *models.ChannelTemplateVariation
	if explicitVariationID != "" {
		variation = prefs.VariationByID(explicitVariationID)
	}
	if variation == nil {
		variation = prefs.DefaultVariation()
	}
	if variation == nil {
		return Resolution{Blocks: SystemDefaultBlocks(), SystemDefault: true}
	}

	tpl := templates[variation.TemplateID]
	if tpl == nil {
		return Resolution{Blocks: SystemDefaultBlocks(), SystemDefault: true}
	}

	if variation.Excluded {
		// An excluded variation still renders the linked template's own
		// blocks; only its overrides are ignored.
		return Resolution{
			Blocks:      cloneBlocks(tpl.Blocks),
			TemplateID:  tpl.ID,
			VariationID: variation.ID,
		}
	}

	return Resolution{
		Blocks:      MergeOverrides(tpl.Blocks, variation.Overrides),
		TemplateID:  tpl.ID,
		VariationID: variation.ID,
	}
}

// MergeOverrides applies per-insert-kind deltas onto base blocks field by
// field. Only override fields that are set replace the base value.
func MergeOverrides(blocks []models.TemplateBlock, overrides map[string]models.BlockOverride) []models.TemplateBlock {
	merged := cloneBlocks(blocks)
	if len(overrides) == 0 {
		return merged
	}
	for i := range merged {
		ov, ok := overrides[string(merged[i].Insert)]
		if !ok {
			continue
		}
		if ov.Enabled != nil {
			merged[i].Enabled = *ov.Enabled
		}
		if ov.Before != nil {
			merged[i].Before = *ov.Before
		}
		if ov.After != nil {
			merged[i].After = *ov.After
		}
		if ov.Content != nil {
			merged[i].Content = *ov.Content
		}
		if ov.TagCase != nil {
			merged[i].TagCase = *ov.TagCase
		}
	}
	return merged
}

var newlineRuns = regexp.MustCompile(`\n{3,}`)

// Render turns an ordered block list into final text. Disabled blocks never
// render; unknown insert kinds are skipped; empty values drop the whole block
// including its before/after decoration. Placeholder-looking text inside
// custom content is opaque and never substituted.
func Render(blocks []models.TemplateBlock, input RenderInput) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if !b.Enabled {
			continue
		}

		var value string
		switch b.Insert {
		case models.InsertTitle:
			value = input.Title
		case models.InsertContent:
			value = input.Content
		case models.InsertTags:
			value = tags.Format(input.Tags, tags.ParseCase(b.TagCase))
		case models.InsertAuthorComment:
			value = input.AuthorComment
		case models.InsertAuthorSignature:
			value = input.AuthorSignature
		case models.InsertFooter:
			value = b.Content
			if strings.TrimSpace(value) == "" {
				value = input.DefaultFooter
			}
		case models.InsertCustom:
			value = b.Content
		default:
			continue
		}

		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		parts = append(parts, b.Before+value+b.After)
	}

	out := strings.Join(parts, "\n\n")
	out = newlineRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func cloneBlocks(blocks []models.TemplateBlock) []models.TemplateBlock {
	out := make([]models.TemplateBlock, len(blocks))
	copy(out, blocks)
	return out
}
