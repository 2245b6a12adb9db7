// Package storage defines the extracted-tag cache backends.
package storage

import (
	"github.com/phototrip/phototrip/internal/exif"
	"github.com/phototrip/phototrip/internal/model"
)

// Backend is the interface all storage implementations must satisfy.
// It caches extracted tags per file reference and keeps a history of
// manifest loads. Nothing about playback is persisted.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Tag cache
	GetTags(fileRef string) (exif.Tags, bool, error)
	PutTags(fileRef string, tags exif.Tags) error

	// Load history
	RecordLoad(run *model.LoadRun) error
	RecentLoads(limit int) ([]model.LoadRun, error)
}
