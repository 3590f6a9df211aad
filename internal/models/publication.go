package models

import "time"

// PublicationStatus is the delivery lifecycle state of a publication.
type PublicationStatus string

const (
	PublicationDraft      PublicationStatus = "draft"
	PublicationScheduled  PublicationStatus = "scheduled"
	PublicationPublishing PublicationStatus = "publishing"
	PublicationPartial    PublicationStatus = "partial"
	PublicationPublished  PublicationStatus = "published"
	PublicationFailed     PublicationStatus = "failed"
	PublicationExpired    PublicationStatus = "expired"
)

// PublicationModel is the editable source of truth for one cross-channel posting.
type PublicationModel struct {
	Base
	ProjectID       string            `json:"project_id"       gorm:"index;not null"`
	Title           string            `json:"title"`
	Content         string            `json:"content"          gorm:"type:longtext"`
	Tags            string            `json:"tags"`
	AuthorComment   string            `json:"author_comment"`
	AuthorSignature string            `json:"author_signature"`
	PostType        string            `json:"post_type"        gorm:"default:'post'"`
	Language        string            `json:"language"`
	Status          PublicationStatus `json:"status"           gorm:"index;default:'draft'"`
	ScheduledAt     *time.Time        `json:"scheduled_at"     gorm:"index"`
	// TemplateVariationID is an explicit per-publish override identifying a
	// channel template variation; empty means "use the channel default".
	TemplateVariationID *string `json:"template_variation_id"`
	Meta                JSONMap `json:"meta" gorm:"type:longtext"`

	Posts []PostModel  `json:"posts,omitempty" gorm:"foreignKey:PublicationID"`
	Media []MediaModel `json:"media,omitempty" gorm:"foreignKey:PublicationID"`
}

func (PublicationModel) TableName() string { return "publications" }
