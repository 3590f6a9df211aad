package models

// SnapshotVersion tags the PostingSnapshot layout so old frozen rows stay readable.
const SnapshotVersion = "1"

// BodyFormat discriminates the markup dialect of a snapshot body.
type BodyFormat string

const (
	BodyFormatMarkdown BodyFormat = "markdown"
	BodyFormatHTML     BodyFormat = "html"
)

// SnapshotMedia is one resolved media descriptor frozen into a snapshot.
type SnapshotMedia struct {
	ID          string           `json:"id"`
	Type        MediaType        `json:"type"`
	StorageKind MediaStorageKind `json:"storageKind"`
	Locator     string           `json:"locator"`
	Order       int              `json:"order"`
	Spoiler     bool             `json:"spoiler,omitempty"`
}

// SnapshotSource records the raw field values the body was rendered from.
type SnapshotSource struct {
	Title           string `json:"title,omitempty"`
	Content         string `json:"content,omitempty"`
	Tags            string `json:"tags,omitempty"`
	AuthorComment   string `json:"authorComment,omitempty"`
	AuthorSignature string `json:"authorSignature,omitempty"`
}

// SnapshotMeta records which template path resolved and the inputs used.
type SnapshotMeta struct {
	TemplateID  string         `json:"templateId,omitempty"`
	VariationID string         `json:"variationId,omitempty"`
	Source      SnapshotSource `json:"source"`
}

// PostingSnapshot freezes rendered content at schedule time so later edits
// cannot corrupt an in-flight delivery. Once written it is never mutated, only
// superseded by a rebuild or nulled by a clear.
type PostingSnapshot struct {
	Version    string          `json:"version"`
	Body       string          `json:"body"`
	BodyFormat BodyFormat      `json:"bodyFormat"`
	Media      []SnapshotMedia `json:"media,omitempty"`
	Meta       SnapshotMeta    `json:"meta"`
}
