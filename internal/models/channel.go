package models

// Platform identifies a delivery destination kind. The set is small and explicit;
// the transport layer rejects anything it has no client for.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformVK       Platform = "vk"
)

// IsTelegramFamily reports whether the platform consumes Telegram-style HTML.
func (p Platform) IsTelegramFamily() bool { return p == PlatformTelegram }

// Footer is a reusable channel footer snippet.
type Footer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// BlockOverride is a per-variation delta applied onto a template block of the
// same insert kind. Only non-nil fields override the base block.
type BlockOverride struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Before  *string `json:"before,omitempty"`
	After   *string `json:"after,omitempty"`
	Content *string `json:"content,omitempty"`
	TagCase *string `json:"tagCase,omitempty"`
}

// ChannelTemplateVariation links a channel to one project template and carries
// per-insert-kind override deltas. At most one variation per channel may be
// flagged default.
type ChannelTemplateVariation struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name,omitempty"`
	TemplateID string                   `json:"templateId"`
	Overrides  map[string]BlockOverride `json:"overrides,omitempty"`
	Excluded   bool                     `json:"excluded,omitempty"`
	IsDefault  bool                     `json:"isDefault,omitempty"`
}

// ChannelPreferences is the JSON preferences bag stored on a channel.
type ChannelPreferences struct {
	TemplateVariations []ChannelTemplateVariation `json:"templateVariations,omitempty"`
	Footers            []Footer                   `json:"footers,omitempty"`
}

// DefaultVariation returns the variation flagged default, or nil.
func (p ChannelPreferences) DefaultVariation() *ChannelTemplateVariation {
	for i := range p.TemplateVariations {
		if p.TemplateVariations[i].IsDefault {
			return &p.TemplateVariations[i]
		}
	}
	return nil
}

// VariationByID returns the variation with the given id, or nil.
func (p ChannelPreferences) VariationByID(id string) *ChannelTemplateVariation {
	for i := range p.TemplateVariations {
		if p.TemplateVariations[i].ID == id {
			return &p.TemplateVariations[i]
		}
	}
	return nil
}

// DefaultFooter returns the footer flagged default, falling back to the first.
func (p ChannelPreferences) DefaultFooter() *Footer {
	for i := range p.Footers {
		if p.Footers[i].IsDefault {
			return &p.Footers[i]
		}
	}
	if len(p.Footers) > 0 {
		return &p.Footers[0]
	}
	return nil
}

// ChannelModel is a delivery destination.
type ChannelModel struct {
	Base
	ProjectID string   `json:"project_id" gorm:"index;not null"`
	Name      string   `json:"name"`
	Platform  Platform `json:"platform"   gorm:"index;not null"`
	// Credentials holds platform-specific secret fields, e.g. for Telegram
	// {"botToken": "...", "chatId": "@channel"}.
	Credentials JSONMap            `json:"-"           gorm:"type:longtext"`
	Language    string             `json:"language"`
	Preferences ChannelPreferences `json:"preferences" gorm:"type:longtext;serializer:json"`
}

func (ChannelModel) TableName() string { return "channels" }
