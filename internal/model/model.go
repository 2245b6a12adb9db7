package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/phototrip/phototrip/internal/exif"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists every table of the schema.
var DatabaseModels = []any{
	&PhotoTags{},
	&LoadRun{},
}

// PhotoTags caches the tags extracted from one image so reloads skip the
// image bytes. Degree triples are stored as JSON arrays.
type PhotoTags struct {
	ID               uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	FileRef          string         `json:"fileRef" gorm:"size:1024;uniqueIndex"`
	Latitude         datatypes.JSON `json:"latitude"`
	LatitudeRef      string         `json:"latitudeRef" gorm:"size:2"`
	Longitude        datatypes.JSON `json:"longitude"`
	LongitudeRef     string         `json:"longitudeRef" gorm:"size:2"`
	DateTimeOriginal string         `json:"dateTimeOriginal" gorm:"size:64"`
}

func (*PhotoTags) TableName() string {
	return "photo_tags"
}

// LoadRun records one manifest load. ID is a ULID so rows sort by start time.
type LoadRun struct {
	ID          string    `json:"id" gorm:"primarykey;size:26"`
	StartedAt   time.Time `json:"startedAt" gorm:"index"`
	Source      string    `json:"source" gorm:"size:1024"`
	Generation  uint64    `json:"generation"`
	Total       int       `json:"total"`
	Located     int       `json:"located"`
	Unknown     int       `json:"unknown"`
	Timestamped int       `json:"timestamped"`
	Failed      int       `json:"failed"`
	Steps       int       `json:"steps"`
	DurationMs  int64     `json:"durationMs"`
	Error       string    `json:"error,omitempty" gorm:"size:1024"`
}

func (*LoadRun) TableName() string {
	return "load_runs"
}

// NewPhotoTags converts extracted tags to a row.
func NewPhotoTags(fileRef string, tags exif.Tags) (PhotoTags, error) {
	lat, err := json.Marshal(nonNil(tags.Latitude))
	if err != nil {
		return PhotoTags{}, fmt.Errorf("marshal latitude: %w", err)
	}
	lon, err := json.Marshal(nonNil(tags.Longitude))
	if err != nil {
		return PhotoTags{}, fmt.Errorf("marshal longitude: %w", err)
	}
	return PhotoTags{
		FileRef:          fileRef,
		Latitude:         datatypes.JSON(lat),
		LatitudeRef:      tags.LatitudeRef,
		Longitude:        datatypes.JSON(lon),
		LongitudeRef:     tags.LongitudeRef,
		DateTimeOriginal: tags.DateTimeOriginal,
	}, nil
}

// Tags converts the row back to extracted tags.
func (p PhotoTags) Tags() (exif.Tags, error) {
	tags := exif.Tags{
		LatitudeRef:      p.LatitudeRef,
		LongitudeRef:     p.LongitudeRef,
		DateTimeOriginal: p.DateTimeOriginal,
	}
	if len(p.Latitude) > 0 {
		if err := json.Unmarshal(p.Latitude, &tags.Latitude); err != nil {
			return exif.Tags{}, fmt.Errorf("unmarshal latitude: %w", err)
		}
	}
	if len(p.Longitude) > 0 {
		if err := json.Unmarshal(p.Longitude, &tags.Longitude); err != nil {
			return exif.Tags{}, fmt.Errorf("unmarshal longitude: %w", err)
		}
	}
	if len(tags.Latitude) == 0 {
		tags.Latitude = nil
	}
	if len(tags.Longitude) == 0 {
		tags.Longitude = nil
	}
	return tags, nil
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
