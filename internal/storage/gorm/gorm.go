// Package gormstorage implements storage.Backend on a GORM connection
// (SQLite or Postgres).
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phototrip/phototrip/internal/exif"
	"github.com/phototrip/phototrip/internal/model"
)

// Dependencies holds the collaborators of a Backend. The DB is owned by the
// caller and is not closed by the backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Backend caches tags and load runs in SQL tables.
type Backend struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New creates a GORM backend.
func New(deps Dependencies) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{db: deps.DB, logger: logger}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return errors.New("gorm backend has no database")
	}
	if err := b.db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.logger.Debug("Tag cache schema migrated", "dialect", b.db.Dialector.Name())
	return nil
}

func (b *Backend) Close() error {
	return nil
}

func (b *Backend) GetTags(fileRef string) (exif.Tags, bool, error) {
	var row model.PhotoTags
	err := b.db.Where("file_ref = ?", fileRef).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return exif.Tags{}, false, nil
	}
	if err != nil {
		return exif.Tags{}, false, fmt.Errorf("failed to read tags for %s: %w", fileRef, err)
	}
	tags, err := row.Tags()
	if err != nil {
		return exif.Tags{}, false, err
	}
	return tags, true, nil
}

// PutTags inserts or replaces the row for fileRef.
func (b *Backend) PutTags(fileRef string, tags exif.Tags) error {
	row, err := model.NewPhotoTags(fileRef, tags)
	if err != nil {
		return err
	}
	err = b.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "file_ref"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at",
			"latitude",
			"latitude_ref",
			"longitude",
			"longitude_ref",
			"date_time_original",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to store tags for %s: %w", fileRef, err)
	}
	return nil
}

func (b *Backend) RecordLoad(run *model.LoadRun) error {
	if err := b.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to record load %s: %w", run.ID, err)
	}
	return nil
}

// RecentLoads returns up to limit runs, newest first. limit <= 0 returns all.
func (b *Backend) RecentLoads(limit int) ([]model.LoadRun, error) {
	q := b.db.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []model.LoadRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}
	return runs, nil
}
