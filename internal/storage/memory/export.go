package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/phototrip/phototrip/internal/exif"
)

const snapshotName = "tag_cache"

// Snapshot is the persisted form of the tag cache.
type Snapshot struct {
	Version int                  `json:"version"`
	Tags    map[string]exif.Tags `json:"tags"`
}

// SnapshotPath returns the file the snapshot is written to.
func (b *Backend) SnapshotPath() string {
	name := snapshotName + ".json"
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return filepath.Join(b.cfg.OutputDir, name)
}

func (b *Backend) exportSnapshot() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(b.SnapshotPath())
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	snap := Snapshot{Version: 1, Tags: b.tags.Snapshot()}
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

func (b *Backend) importSnapshot() error {
	f, err := os.Open(b.SnapshotPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if b.cfg.CompressOutput {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open gzip snapshot: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	for ref, tags := range snap.Tags {
		b.tags.Put(ref, tags)
	}
	return nil
}
