package template

import (
	"context"
	"errors"

	"github.com/gran-publicador/core/internal/models"
	"gorm.io/gorm"
)

var ErrVariationNotFound = errors.New("template variation not found")

// Service enforces the template invariants at the persistence boundary.
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Save creates or updates a project template. When the template is flagged
// default, competing defaults in the same (project, language, post type)
// group are unset in the same transaction so at most one survives.
func (s *Service) Save(ctx context.Context, tpl *models.ProjectTemplateModel) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tpl.IsDefault {
			err := tx.Model(&models.ProjectTemplateModel{}).
				Where("project_id = ? AND language = ? AND post_type = ? AND id <> ?",
					tpl.ProjectID, tpl.Language, tpl.PostType, tpl.ID).
				Update("is_default", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Save(tpl).Error
	})
}

// GetByProject loads all templates of a project keyed by id.
func (s *Service) GetByProject(ctx context.Context, projectID string) (map[string]*models.ProjectTemplateModel, error) {
	var rows []models.ProjectTemplateModel
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]*models.ProjectTemplateModel, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// SetDefaultVariation flags one variation default on a channel and unsets the
// rest, in a single read-modify-write transaction on the channel row.
func (s *Service) SetDefaultVariation(ctx context.Context, channelID, variationID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var channel models.ChannelModel
		if err := tx.First(&channel, "id = ?", channelID).Error; err != nil {
			return err
		}

		found := false
		for i := range channel.Preferences.TemplateVariations {
			v := &channel.Preferences.TemplateVariations[i]
			if v.ID == variationID {
				v.IsDefault = true
				found = true
			} else {
				v.IsDefault = false
			}
		}
		if !found {
			return ErrVariationNotFound
		}

		return tx.Model(&channel).Update("preferences", channel.Preferences).Error
	})
}
