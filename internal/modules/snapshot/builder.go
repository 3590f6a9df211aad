package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/gran-publicador/core/internal/models"
	"github.com/gran-publicador/core/internal/modules/richtext"
	"github.com/gran-publicador/core/internal/modules/template"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service builds and clears posting snapshots. A snapshot is written exactly
// once per build; edits after that leave it untouched until the next Build or
// Clear.
type Service struct {
	db        *gorm.DB
	templates *template.Service
	logger    *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		db:        db,
		templates: template.NewService(db),
		logger:    logger.Named("SnapshotService"),
	}
}

// Build renders and freezes a snapshot for every post of a publication in one
// transaction, superseding whatever snapshot each post held before.
func (s *Service) Build(ctx context.Context, publicationID string) error {
	var pub models.PublicationModel
	err := s.db.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Posts").
		Preload("Posts.Channel").
		First(&pub, "id = ?", publicationID).Error
	if err != nil {
		return fmt.Errorf("load publication %s: %w", publicationID, err)
	}

	templates, err := s.templates.GetByProject(ctx, pub.ProjectID)
	if err != nil {
		return fmt.Errorf("load templates for project %s: %w", pub.ProjectID, err)
	}

	media := BuildMediaSnapshot(pub.Media)
	now := time.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range pub.Posts {
			post := &pub.Posts[i]
			if post.Channel == nil {
				s.logger.Warn("post has no channel, skipping snapshot",
					zap.String("post_id", post.ID),
					zap.String("channel_id", post.ChannelID))
				continue
			}

			snap := BuildPostSnapshot(&pub, post, post.Channel, templates, media)
			err := tx.Model(&models.PostModel{}).
				Where("id = ?", post.ID).
				Updates(map[string]interface{}{
					"snapshot":    snap,
					"snapshot_at": now,
				}).Error
			if err != nil {
				return fmt.Errorf("persist snapshot for post %s: %w", post.ID, err)
			}
		}
		return nil
	})
}

// Clear nulls every post's snapshot and timestamp for a publication. Used when
// the publication is unscheduled or substantively edited.
func (s *Service) Clear(ctx context.Context, publicationID string) error {
	err := s.db.WithContext(ctx).
		Model(&models.PostModel{}).
		Where("publication_id = ?", publicationID).
		Updates(map[string]interface{}{
			"snapshot":    nil,
			"snapshot_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("clear snapshots for publication %s: %w", publicationID, err)
	}
	return nil
}

// BuildMediaSnapshot freezes the ordered media list once per publication; the
// same array is shared by every post snapshot.
func BuildMediaSnapshot(media []models.MediaModel) []models.SnapshotMedia {
	if len(media) == 0 {
		return nil
	}
	out := make([]models.SnapshotMedia, 0, len(media))
	for _, m := range media {
		out = append(out, models.SnapshotMedia{
			ID:          m.ID,
			Type:        m.Type,
			StorageKind: m.StorageKind,
			Locator:     m.Locator,
			Order:       m.Order,
			Spoiler:     m.Spoiler,
		})
	}
	return out
}

// BuildPostSnapshot renders one post's body and captures the frozen record.
// Field precedence is post-level override, then publication field. Telegram
// family channels get the body mapped to platform HTML; everything else keeps
// the neutral markup.
func BuildPostSnapshot(
	pub *models.PublicationModel,
	post *models.PostModel,
	channel *models.ChannelModel,
	templates map[string]*models.ProjectTemplateModel,
	media []models.SnapshotMedia,
) *models.PostingSnapshot {
	explicitVariation := ""
	if post.TemplateVariationID != nil && *post.TemplateVariationID != "" {
		explicitVariation = *post.TemplateVariationID
	} else if pub.TemplateVariationID != nil {
		explicitVariation = *pub.TemplateVariationID
	}

	res := template.Resolve(channel, explicitVariation, templates)

	input := template.RenderInput{
		Title:           pub.Title,
		Content:         coalesce(post.Content, pub.Content),
		Tags:            coalesce(post.Tags, pub.Tags),
		AuthorComment:   pub.AuthorComment,
		AuthorSignature: coalesce(post.AuthorSignature, pub.AuthorSignature),
	}
	if f := channel.Preferences.DefaultFooter(); f != nil {
		input.DefaultFooter = f.Content
	}

	body := template.Render(res.Blocks, input)
	format := models.BodyFormatMarkdown
	if channel.Platform.IsTelegramFamily() {
		body = richtext.MarkupToHTML(body)
		format = models.BodyFormatHTML
	}

	return &models.PostingSnapshot{
		Version:    models.SnapshotVersion,
		Body:       body,
		BodyFormat: format,
		Media:      media,
		Meta: models.SnapshotMeta{
			TemplateID:  res.TemplateID,
			VariationID: res.VariationID,
			Source: models.SnapshotSource{
				Title:           input.Title,
				Content:         input.Content,
				Tags:            input.Tags,
				AuthorComment:   input.AuthorComment,
				AuthorSignature: input.AuthorSignature,
			},
		},
	}
}

func coalesce(override *string, base string) string {
	if override != nil && *override != "" {
		return *override
	}
	return base
}
