package models

import "time"

// PostStatus is the per-channel delivery state.
type PostStatus string

const (
	PostPending   PostStatus = "pending"
	PostPublished PostStatus = "published"
	PostFailed    PostStatus = "failed"
)

// PostModel is the per-channel specialization of a publication. All override
// fields are nullable: nil means "inherit from the publication".
type PostModel struct {
	Base
	PublicationID string `json:"publication_id" gorm:"not null;uniqueIndex:uniq_posts_publication_channel"`
	ChannelID     string `json:"channel_id"     gorm:"index;not null;uniqueIndex:uniq_posts_publication_channel"`

	Content             *string `json:"content"          gorm:"type:longtext"`
	Tags                *string `json:"tags"`
	AuthorSignature     *string `json:"author_signature"`
	TemplateVariationID *string `json:"template_variation_id"`
	// Options carries platform-specific send options, keyed first by platform
	// name, e.g. {"telegram": {"silent": true}}.
	Options JSONMap `json:"options" gorm:"type:longtext"`

	// Snapshot is the frozen rendering this post will be delivered from. It is
	// written only by the snapshot builder and nulled by clear/unschedule;
	// downstream code treats it as read-only.
	Snapshot   *PostingSnapshot `json:"snapshot"    gorm:"type:longtext;serializer:json"`
	SnapshotAt *time.Time       `json:"snapshot_at"`

	Status         PostStatus `json:"status" gorm:"index;default:'pending'"`
	PlatformPostID string     `json:"platform_post_id"`
	LastError      string     `json:"last_error" gorm:"type:text"`
	PublishedAt    *time.Time `json:"published_at"`

	Channel *ChannelModel `json:"channel,omitempty" gorm:"foreignKey:ChannelID"`
}

func (PostModel) TableName() string { return "posts" }
