package snapshot

import (
	"strings"
	"testing"

	"github.com/gran-publicador/core/internal/models"
)

func strPtr(s string) *string { return &s }

func testPublication() *models.PublicationModel {
	return &models.PublicationModel{
		Base:    models.Base{ID: "pub-1"},
		Title:   "Never Shown",
		Content: "Test Content with **bold** and _italic_",
		Tags:    "alpha, beta",
	}
}

func telegramChannel() *models.ChannelModel {
	return &models.ChannelModel{
		Base:     models.Base{ID: "ch-tg"},
		Platform: models.PlatformTelegram,
	}
}

func vkChannel() *models.ChannelModel {
	return &models.ChannelModel{
		Base:     models.Base{ID: "ch-vk"},
		Platform: models.PlatformVK,
	}
}

func TestBuildPostSnapshotTelegramHTML(t *testing.T) {
	t.Parallel()

	pub := testPublication()
	post := &models.PostModel{Base: models.Base{ID: "post-1"}}
	snap := BuildPostSnapshot(pub, post, telegramChannel(), nil, nil)

	if snap.Version != models.SnapshotVersion {
		t.Fatalf("Version = %q", snap.Version)
	}
	if snap.BodyFormat != models.BodyFormatHTML {
		t.Fatalf("BodyFormat = %s, want html", snap.BodyFormat)
	}
	if !strings.Contains(snap.Body, "<b>bold</b>") || !strings.Contains(snap.Body, "<i>italic</i>") {
		t.Fatalf("body not converted to platform HTML: %q", snap.Body)
	}
	if strings.Contains(snap.Body, "Never Shown") {
		t.Fatalf("title leaked into body with no title block: %q", snap.Body)
	}
	if !strings.Contains(snap.Body, "#alpha #beta") {
		t.Fatalf("tag line missing: %q", snap.Body)
	}
	if !strings.Contains(snap.Body, "\n\n#alpha #beta") {
		t.Fatalf("tag line not blank-line separated: %q", snap.Body)
	}
}

func TestBuildPostSnapshotOtherPlatformKeepsMarkup(t *testing.T) {
	t.Parallel()

	snap := BuildPostSnapshot(testPublication(), &models.PostModel{}, vkChannel(), nil, nil)
	if snap.BodyFormat != models.BodyFormatMarkdown {
		t.Fatalf("BodyFormat = %s, want markdown", snap.BodyFormat)
	}
	if !strings.Contains(snap.Body, "**bold**") {
		t.Fatalf("neutral markup lost: %q", snap.Body)
	}
}

func TestBuildPostSnapshotPostOverridesWin(t *testing.T) {
	t.Parallel()

	post := &models.PostModel{
		Content: strPtr("channel specific"),
		Tags:    strPtr("gamma"),
	}
	snap := BuildPostSnapshot(testPublication(), post, vkChannel(), nil, nil)
	if !strings.Contains(snap.Body, "channel specific") {
		t.Fatalf("post content override ignored: %q", snap.Body)
	}
	if strings.Contains(snap.Body, "Test Content") {
		t.Fatalf("publication content rendered despite override: %q", snap.Body)
	}
	if !strings.Contains(snap.Body, "#gamma") || strings.Contains(snap.Body, "#alpha") {
		t.Fatalf("post tags override ignored: %q", snap.Body)
	}
	if snap.Meta.Source.Content != "channel specific" {
		t.Fatalf("meta records wrong source: %+v", snap.Meta.Source)
	}
}

func TestBuildMediaSnapshot(t *testing.T) {
	t.Parallel()

	media := []models.MediaModel{
		{Base: models.Base{ID: "m-1"}, Type: models.MediaImage, StorageKind: models.StorageExternal, Locator: "https://cdn/x.jpg", Order: 0, Spoiler: true},
		{Base: models.Base{ID: "m-2"}, Type: models.MediaVideo, StorageKind: models.StoragePlatform, Locator: "file-id", Order: 1},
	}
	out := BuildMediaSnapshot(media)
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].ID != "m-1" || !out[0].Spoiler || out[0].Type != models.MediaImage {
		t.Fatalf("first item wrong: %+v", out[0])
	}
	if out[1].StorageKind != models.StoragePlatform {
		t.Fatalf("second item wrong: %+v", out[1])
	}
	if BuildMediaSnapshot(nil) != nil {
		t.Fatal("empty media must produce nil")
	}
}
