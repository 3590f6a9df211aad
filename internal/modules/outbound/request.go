package outbound

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gran-publicador/core/internal/models"
)

// ErrNoSnapshot means the post is not eligible for delivery yet.
var ErrNoSnapshot = errors.New("post has no posting snapshot")

// MediaItem is one attachment in the transport payload.
type MediaItem struct {
	Type    models.MediaType `json:"type"`
	Locator string           `json:"locator"`
	Spoiler bool             `json:"spoiler,omitempty"`
}

// Request is the shape handed to the transport client. The body is taken
// verbatim from the frozen snapshot; nothing here re-renders content.
type Request struct {
	Platform  models.Platform `json:"platform"`
	ChannelID string          `json:"channel_id"`
	Auth      string          `json:"-"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Tags        string `json:"tags,omitempty"`

	Body       string            `json:"body"`
	BodyFormat models.BodyFormat `json:"body_format"`

	IdempotencyKey string `json:"idempotency_key"`
	Silent         bool   `json:"silent,omitempty"`

	// Exactly one of the typed singles is set when the snapshot holds a single
	// media item; Media carries the ordered array otherwise.
	Cover    *MediaItem `json:"cover,omitempty"`
	Video    *MediaItem `json:"video,omitempty"`
	Audio    *MediaItem `json:"audio,omitempty"`
	Document *MediaItem `json:"document,omitempty"`
	Media    []MediaItem `json:"media,omitempty"`

	Options map[string]interface{} `json:"options,omitempty"`
}

// BuildRequest maps a frozen snapshot plus channel credentials into the
// transport payload, applying platform-specific field rules last.
func BuildRequest(pub *models.PublicationModel, post *models.PostModel, channel *models.ChannelModel) (*Request, error) {
	snap := post.Snapshot
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	r := &Request{
		Platform:       channel.Platform,
		Body:           snap.Body,
		BodyFormat:     snap.BodyFormat,
		IdempotencyKey: fmt.Sprintf("post:%s:%d", post.ID, post.UpdatedAt.Unix()),
		Title:          pub.Title,
		Description:    pub.AuthorComment,
		Tags:           snap.Meta.Source.Tags,
	}

	applyCredentials(r, channel)
	applyMedia(r, snap.Media)

	opts, silent := flattenOptions(post.Options, channel.Platform)
	r.Options = opts
	r.Silent = silent

	// Telegram bakes title/description/tags into the body via the template
	// engine; sending them again would duplicate content.
	if channel.Platform.IsTelegramFamily() {
		r.Title = ""
		r.Description = ""
		r.Tags = ""
	}

	return r, nil
}

func applyCredentials(r *Request, channel *models.ChannelModel) {
	creds := channel.Credentials
	switch channel.Platform {
	case models.PlatformTelegram:
		r.Auth = stringValue(creds["botToken"])
		r.ChannelID = stringValue(creds["chatId"])
	case models.PlatformVK:
		r.Auth = stringValue(creds["accessToken"])
		r.ChannelID = stringValue(creds["ownerId"])
	default:
		r.Auth = stringValue(creds["token"])
		r.ChannelID = stringValue(creds["channelId"])
	}
}

func applyMedia(r *Request, media []models.SnapshotMedia) {
	if len(media) == 0 {
		return
	}

	items := make([]MediaItem, 0, len(media))
	ordered := make([]models.SnapshotMedia, len(media))
	copy(ordered, media)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	for _, m := range ordered {
		items = append(items, MediaItem{Type: m.Type, Locator: m.Locator, Spoiler: m.Spoiler})
	}

	if len(items) == 1 {
		item := items[0]
		switch item.Type {
		case models.MediaImage:
			r.Cover = &item
		case models.MediaVideo:
			r.Video = &item
		case models.MediaAudio:
			r.Audio = &item
		case models.MediaDocument:
			r.Document = &item
		default:
			r.Media = items
		}
		return
	}
	r.Media = items
}

// flattenOptions shallow-merges the post's platform-keyed option bag into a
// generic one and promotes the silent flag. Both the historical flat key and
// the platform-namespaced key are recognized; promoted keys are removed so
// they are never sent twice.
func flattenOptions(raw models.JSONMap, platform models.Platform) (map[string]interface{}, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	opts := make(map[string]interface{})
	if sub, ok := raw[string(platform)].(map[string]interface{}); ok {
		for k, v := range sub {
			opts[k] = v
		}
	}
	for k, v := range raw {
		if k == string(platform) {
			continue
		}
		if _, isMap := v.(map[string]interface{}); isMap {
			// another platform's bag
			continue
		}
		if _, exists := opts[k]; !exists {
			opts[k] = v
		}
	}

	silent := false
	for _, key := range []string{"silent", "disableNotification"} {
		if v, ok := opts[key]; ok {
			silent = silent || truthy(v)
			delete(opts, key)
		}
	}

	if len(opts) == 0 {
		return nil, silent
	}
	return opts, silent
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}
