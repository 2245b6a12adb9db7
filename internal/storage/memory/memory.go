// Package memory keeps the tag cache in process memory, optionally
// persisting it to a JSON snapshot between runs.
package memory

import (
	"sort"
	"sync"

	"github.com/phototrip/phototrip/internal/cache"
	"github.com/phototrip/phototrip/internal/exif"
	"github.com/phototrip/phototrip/internal/model"
)

// maxRuns bounds the in-memory load history.
const maxRuns = 100

// Config holds memory backend settings. An empty OutputDir disables the
// snapshot.
type Config struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// Backend stores tags and load runs in memory.
type Backend struct {
	cfg  Config
	tags *cache.TagCache

	mu   sync.RWMutex
	runs []model.LoadRun
}

// New creates a new memory backend.
func New(cfg Config) *Backend {
	return &Backend{
		cfg:  cfg,
		tags: cache.NewTagCache(),
	}
}

// Init restores the snapshot when one exists.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.importSnapshot()
}

// Close writes the snapshot when configured.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportSnapshot()
}

func (b *Backend) GetTags(fileRef string) (exif.Tags, bool, error) {
	tags, ok := b.tags.Get(fileRef)
	return tags, ok, nil
}

func (b *Backend) PutTags(fileRef string, tags exif.Tags) error {
	b.tags.Put(fileRef, tags)
	return nil
}

// RecordLoad appends a run, dropping the oldest beyond the history bound.
func (b *Backend) RecordLoad(run *model.LoadRun) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs = append(b.runs, *run)
	if len(b.runs) > maxRuns {
		b.runs = b.runs[len(b.runs)-maxRuns:]
	}
	return nil
}

// RecentLoads returns up to limit runs, newest first.
func (b *Backend) RecentLoads(limit int) ([]model.LoadRun, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.LoadRun, len(b.runs))
	copy(out, b.runs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TagCount returns the number of cached entries.
func (b *Backend) TagCount() int {
	return b.tags.Len()
}
