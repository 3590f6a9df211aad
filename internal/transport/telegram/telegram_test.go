package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/gran-publicador/core/internal/models"
	"github.com/gran-publicador/core/internal/modules/outbound"
)

func TestFileFromLocator(t *testing.T) {
	t.Parallel()

	if f := fileFromLocator("https://cdn.example.com/a.jpg"); f.FileURL != "https://cdn.example.com/a.jpg" {
		t.Errorf("url locator not mapped to FileURL: %+v", f)
	}
	if f := fileFromLocator("AgACAgIAAxkBAAIB"); f.FileID != "AgACAgIAAxkBAAIB" {
		t.Errorf("opaque locator not mapped to FileID: %+v", f)
	}
}

func TestSendOptions(t *testing.T) {
	t.Parallel()

	req := &outbound.Request{
		BodyFormat: models.BodyFormatHTML,
		Silent:     true,
		Options: map[string]interface{}{
			"disableWebPagePreview": true,
		},
	}
	opts := sendOptions(req)
	if opts.ParseMode != tele.ModeHTML {
		t.Errorf("parse mode = %q", opts.ParseMode)
	}
	if !opts.DisableNotification {
		t.Errorf("silent flag not applied")
	}
	if !opts.DisableWebPagePreview {
		t.Errorf("preview option not applied")
	}

	plain := sendOptions(&outbound.Request{BodyFormat: models.BodyFormatMarkdown})
	if plain.ParseMode != "" {
		t.Errorf("markdown body must not request html parse mode, got %q", plain.ParseMode)
	}
}

func TestBuildAlbumCaptionOnFirst(t *testing.T) {
	t.Parallel()

	req := &outbound.Request{
		Body: "caption",
		Media: []outbound.MediaItem{
			{Type: models.MediaImage, Locator: "https://cdn.example.com/1.jpg"},
			{Type: models.MediaVideo, Locator: "https://cdn.example.com/2.mp4"},
		},
	}
	album := buildAlbum(req)
	if len(album) != 2 {
		t.Fatalf("album size = %d", len(album))
	}
	photo, ok := album[0].(*tele.Photo)
	if !ok {
		t.Fatalf("first item = %T, want *tele.Photo", album[0])
	}
	if photo.Caption != "caption" {
		t.Errorf("caption on first item = %q", photo.Caption)
	}
	video, ok := album[1].(*tele.Video)
	if !ok {
		t.Fatalf("second item = %T, want *tele.Video", album[1])
	}
	if video.Caption != "" {
		t.Errorf("caption leaked onto later item: %q", video.Caption)
	}
}
