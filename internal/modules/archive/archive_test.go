package archive

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/gran-publicador/core/internal/config"
)

func TestRenderObjectKey(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)

	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"default template", "", "archives/2026/08/archive-x.zip"},
		{"all placeholders", "{Y}/{m}/{d}/{H}-{M}-{s}/{filename}", "2026/08/30/14-05-09/archive-x.zip"},
		{"normalized slashes", "/a//b\\{filename}", "a/b/archive-x.zip"},
		{"empty result falls back", "/", "archive-x.zip"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := renderObjectKey(tc.template, "archive-x.zip", at); got != tc.want {
				t.Errorf("renderObjectKey(%q) = %q, want %q", tc.template, got, tc.want)
			}
		})
	}
}

func TestDecodeArchive(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	writeDump := func(name, table string, rows []map[string]interface{}) {
		doc, err := bson.Marshal(bson.M{"table": table, "rows": rows})
		if err != nil {
			t.Fatalf("bson.Marshal: %v", err)
		}
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := f.Write(doc); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	writeDump("channels.bson", "channels", []map[string]interface{}{
		{"id": "c1", "name": "main"},
	})
	writeDump("legacy.bson", "analyze_logs", []map[string]interface{}{
		{"id": "x"},
	})
	if _, err := w.Create("readme.txt"); err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	dumps, err := decodeArchive(zr)
	if err != nil {
		t.Fatalf("decodeArchive: %v", err)
	}
	rows, ok := dumps["channels"]
	if !ok || len(rows) != 1 {
		t.Fatalf("channels dump = %+v", dumps)
	}
	if rows[0]["name"] != "main" {
		t.Errorf("row = %+v", rows[0])
	}
	if _, ok := dumps["analyze_logs"]; ok {
		t.Errorf("unknown table should be ignored")
	}
}

func TestNewS3UploaderValidation(t *testing.T) {
	t.Parallel()

	if _, err := newS3Uploader(config.S3Options{Bucket: "b"}); err == nil {
		t.Fatalf("expected error for incomplete config")
	}

	u, err := newS3Uploader(config.S3Options{
		Bucket:          "archives",
		Region:          "us-east-1",
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
	})
	if err != nil {
		t.Fatalf("newS3Uploader: %v", err)
	}
	if u.endpoint.Host != "s3.us-east-1.amazonaws.com" {
		t.Errorf("default endpoint = %q", u.endpoint.Host)
	}
	if u.pathStyle {
		t.Errorf("aws endpoint should use virtual-hosted style")
	}
}

func TestNewS3UploaderCustomEndpointForcesPathStyle(t *testing.T) {
	t.Parallel()

	u, err := newS3Uploader(config.S3Options{
		Endpoint:        "minio.internal:9000",
		Bucket:          "archives",
		Region:          "us-east-1",
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
	})
	if err != nil {
		t.Fatalf("newS3Uploader: %v", err)
	}
	if !u.pathStyle {
		t.Errorf("custom endpoint should default to path-style access")
	}
	requestURL, canonicalURI, host := u.buildTarget("2026/08/archive.zip")
	if host != "minio.internal:9000" {
		t.Errorf("host = %q", host)
	}
	if canonicalURI != "/archives/2026/08/archive.zip" {
		t.Errorf("canonical uri = %q", canonicalURI)
	}
	if requestURL != "https://minio.internal:9000/archives/2026/08/archive.zip" {
		t.Errorf("request url = %q", requestURL)
	}
}

func TestBuildTargetVirtualHosted(t *testing.T) {
	t.Parallel()

	u, err := newS3Uploader(config.S3Options{
		Bucket:          "archives",
		Region:          "eu-west-1",
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
	})
	if err != nil {
		t.Fatalf("newS3Uploader: %v", err)
	}
	_, canonicalURI, host := u.buildTarget("a/b.zip")
	if host != "archives.s3.eu-west-1.amazonaws.com" {
		t.Errorf("host = %q", host)
	}
	if canonicalURI != "/a/b.zip" {
		t.Errorf("canonical uri = %q", canonicalURI)
	}
}
