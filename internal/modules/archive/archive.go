package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gran-publicador/core/internal/config"
	"github.com/gran-publicador/core/internal/database"
	"github.com/gran-publicador/core/internal/pkg/cron"
)

// JobDailyArchive is the cron job name for the periodic export.
const JobDailyArchive = "archive_export"

// tableNames lists the tables included in an archive, in dependency order.
var tableNames = []string{
	"channels", "project_templates", "publications", "posts", "media",
}

// Service exports the persistent state as BSON table dumps inside a zip
// archive, written locally and optionally mirrored to an S3-compatible bucket.
type Service struct {
	db     *gorm.DB
	cfg    config.ArchiveConfig
	logger *zap.Logger
}

func NewService(db *gorm.DB, cfg config.ArchiveConfig, logger *zap.Logger) *Service {
	return &Service{db: db, cfg: cfg, logger: logger.Named("ArchiveService")}
}

// Register hooks the daily export into the interval scheduler.
func (s *Service) Register(c *cron.Scheduler) {
	if !s.cfg.Enable {
		return
	}
	c.Register(cron.Job{
		Name:        JobDailyArchive,
		Description: "export all tables to a local zip archive, mirror to s3 when configured",
		Interval:    24 * time.Hour,
		Fn:          s.Run,
	})
}

// Run performs one full export.
func (s *Service) Run(ctx context.Context) error {
	now := time.Now()
	buf, err := s.createArchiveZip(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return err
	}
	filename := fmt.Sprintf("archive-%s.zip", now.Format("2006-01-02T15-04-05"))
	path := filepath.Join(s.cfg.Dir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	s.logger.Info("archive written", zap.String("path", path), zap.Int("bytes", buf.Len()))

	if !s.cfg.S3.Enable {
		return nil
	}
	uploader, err := newS3Uploader(s.cfg.S3)
	if err != nil {
		return err
	}
	key := renderObjectKey(s.cfg.S3.PathTemplate, filename, now)
	if err := uploader.Upload(ctx, key, buf.Bytes(), "application/zip"); err != nil {
		return fmt.Errorf("mirroring archive to s3: %w", err)
	}
	s.logger.Info("archive mirrored", zap.String("key", key))
	return nil
}

// List returns the archives currently on disk, newest name last.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Restore imports table dumps from an archive zip. Existing rows win: inserts
// that collide with a live primary key or unique index are skipped, so a
// restore over a non-empty database only fills the gaps.
func (s *Service) Restore(ctx context.Context, zr *zip.Reader) error {
	dumps, err := decodeArchive(zr)
	if err != nil {
		return err
	}

	restored, skipped := 0, 0
	for _, table := range tableNames {
		rows, ok := dumps[table]
		if !ok {
			continue
		}
		for _, row := range rows {
			err := s.db.WithContext(ctx).Table(table).Create(row).Error
			switch {
			case err == nil:
				restored++
			case database.IsDuplicateKeyError(err):
				skipped++
			default:
				return fmt.Errorf("restoring table %s: %w", table, err)
			}
		}
	}
	s.logger.Info("archive restored", zap.Int("rows", restored), zap.Int("skipped", skipped))
	return nil
}

// decodeArchive reads the per-table BSON dumps out of an archive zip. Files
// for unknown tables are ignored rather than rejected, so older archives with
// since-dropped tables still restore.
func decodeArchive(zr *zip.Reader) (map[string][]map[string]interface{}, error) {
	allowed := make(map[string]bool, len(tableNames))
	for _, t := range tableNames {
		allowed[t] = true
	}

	dumps := make(map[string][]map[string]interface{})
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".bson") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}

		var doc struct {
			Table string                   `bson:"table"`
			Rows  []map[string]interface{} `bson:"rows"`
		}
		if err := bson.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.Name, err)
		}
		if !allowed[doc.Table] || len(doc.Rows) == 0 {
			continue
		}
		dumps[doc.Table] = doc.Rows
	}
	return dumps, nil
}

// createArchiveZip dumps every table as one BSON document per file.
func (s *Service) createArchiveZip(ctx context.Context) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	for _, table := range tableNames {
		var rows []map[string]interface{}
		if err := s.db.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("dumping table %s: %w", table, err)
		}
		doc, err := bson.Marshal(bson.M{"table": table, "rows": rows})
		if err != nil {
			return nil, fmt.Errorf("encoding table %s: %w", table, err)
		}
		f, err := w.Create(table + ".bson")
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(doc); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

// renderObjectKey expands the {Y}/{m}/{d}/{H}/{M}/{s}/{filename} placeholders
// of the configured path template into a normalized object key.
func renderObjectKey(template, filename string, now time.Time) string {
	tpl := strings.TrimSpace(template)
	if tpl == "" {
		tpl = "archives/{Y}/{m}/{filename}"
	}

	replacer := strings.NewReplacer(
		"{Y}", now.Format("2006"),
		"{m}", now.Format("01"),
		"{d}", now.Format("02"),
		"{H}", now.Format("15"),
		"{M}", now.Format("04"),
		"{s}", now.Format("05"),
		"{filename}", filename,
	)

	key := replacer.Replace(tpl)
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	if key == "" {
		return filename
	}
	return key
}
