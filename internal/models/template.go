package models

// InsertKind is the closed enum of template block content sources.
type InsertKind string

const (
	InsertTitle           InsertKind = "title"
	InsertContent         InsertKind = "content"
	InsertTags            InsertKind = "tags"
	InsertAuthorComment   InsertKind = "authorComment"
	InsertAuthorSignature InsertKind = "authorSignature"
	InsertFooter          InsertKind = "footer"
	InsertCustom          InsertKind = "custom"
)

// TemplateBlock is the smallest renderable unit of a template.
type TemplateBlock struct {
	Enabled bool       `json:"enabled"`
	Insert  InsertKind `json:"insert"`
	Before  string     `json:"before,omitempty"`
	After   string     `json:"after,omitempty"`
	// TagCase applies only to tags blocks; see the tags package for the enum.
	TagCase string `json:"tagCase,omitempty"`
	// Content is the literal text of custom and footer blocks.
	Content string `json:"content,omitempty"`
}

// ProjectTemplateModel is a named, ordered block list scoped to a project,
// optionally keyed by (language, post type). At most one template may be
// default within a (language, post type) group.
type ProjectTemplateModel struct {
	Base
	ProjectID string          `json:"project_id" gorm:"index;not null"`
	Name      string          `json:"name"       gorm:"not null"`
	Language  string          `json:"language"   gorm:"index"`
	PostType  string          `json:"post_type"  gorm:"index"`
	IsDefault bool            `json:"is_default" gorm:"index"`
	Blocks    []TemplateBlock `json:"blocks"     gorm:"type:longtext;serializer:json"`
}

func (ProjectTemplateModel) TableName() string { return "project_templates" }
