package models

// MediaType classifies an attachment.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaDocument MediaType = "document"
)

// MediaStorageKind tells how the locator must be interpreted.
type MediaStorageKind string

const (
	// StoragePlatform means the locator is an inline platform token
	// (e.g. a Telegram file_id) reusable only on that platform.
	StoragePlatform MediaStorageKind = "platform"
	// StorageExternal means the locator is an externally hosted URL or path.
	StorageExternal MediaStorageKind = "external"
)

// MediaModel is an ordered asset attached to a publication.
type MediaModel struct {
	Base
	PublicationID string           `json:"publication_id" gorm:"index;not null"`
	Type          MediaType        `json:"type"           gorm:"not null"`
	StorageKind   MediaStorageKind `json:"storage_kind"   gorm:"default:'external'"`
	Locator       string           `json:"locator"        gorm:"not null"`
	Order         int              `json:"order"          gorm:"column:sort_order;default:0"`
	Spoiler       bool             `json:"spoiler"        gorm:"default:false"`
}

func (MediaModel) TableName() string { return "media" }
