package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/phototrip/phototrip/internal/exif"
	"github.com/phototrip/phototrip/internal/geo"
	"github.com/phototrip/phototrip/internal/normalize"
)

// SupportedExtensions lists the image extensions the generator picks up.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png"}

// Entry is one generated manifest item.
type Entry struct {
	Path     string   `json:"path"`
	Caption  string   `json:"caption"`
	DateTime string   `json:"datetime"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

// Trip groups the entries of one subdirectory. The root directory is "".
type Trip struct {
	Name    string
	Entries []Entry
}

// Document is a trip-grouped manifest; trips keep discovery order.
type Document struct {
	Trips []Trip
}

// Len returns the number of entries across all trips.
func (d Document) Len() int {
	n := 0
	for _, t := range d.Trips {
		n += len(t.Entries)
	}
	return n
}

// MarshalJSON writes the ordered trip mapping.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range d.Trips {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.Name)
		if err != nil {
			return nil, err
		}
		entries := t.Entries
		if entries == nil {
			entries = []Entry{}
		}
		val, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Generator walks a photo directory and builds a manifest from embedded tags.
type Generator struct {
	Root       string
	PathPrefix string
	Extractor  exif.Extractor
	Location   *time.Location
	Workers    int
	Logger     *slog.Logger
}

type candidate struct {
	trip string
	rel  string
}

// Generate scans Root. Files whose tags cannot be read are logged and left
// out; files without any EXIF block are kept with empty metadata.
func (g *Generator) Generate(ctx context.Context) (Document, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(g.Root)
	if err != nil {
		return Document{}, fmt.Errorf("photo directory %q not found: %w", g.Root, err)
	}
	if !info.IsDir() {
		return Document{}, fmt.Errorf("photo directory %q is not a directory", g.Root)
	}

	var files []candidate
	err = filepath.WalkDir(g.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supported(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(g.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		trip := path.Dir(rel)
		if trip == "." {
			trip = ""
		}
		files = append(files, candidate{trip: trip, rel: rel})
		return nil
	})
	if err != nil {
		return Document{}, fmt.Errorf("walk %s: %w", g.Root, err)
	}

	workers := g.Workers
	if workers <= 0 {
		workers = 8
	}
	type result struct {
		entry Entry
		ok    bool
	}
	mapper := iter.Mapper[candidate, result]{MaxGoroutines: workers}
	results := mapper.Map(files, func(c *candidate) result {
		e, err := g.entry(ctx, c.rel)
		if err != nil {
			logger.Warn("Error reading EXIF", "file", c.rel, "error", err)
			return result{}
		}
		return result{entry: e, ok: true}
	})

	var doc Document
	byName := make(map[string]int)
	for i, r := range results {
		if !r.ok {
			continue
		}
		name := files[i].trip
		idx, ok := byName[name]
		if !ok {
			idx = len(doc.Trips)
			byName[name] = idx
			doc.Trips = append(doc.Trips, Trip{Name: name})
		}
		doc.Trips[idx].Entries = append(doc.Trips[idx].Entries, r.entry)
	}
	return doc, ctx.Err()
}

func (g *Generator) entry(ctx context.Context, rel string) (Entry, error) {
	e := Entry{Path: rel}
	if g.PathPrefix != "" {
		e.Path = path.Join(g.PathPrefix, rel)
	}

	tags, err := g.Extractor.Extract(ctx, rel)
	if errors.Is(err, exif.ErrNoTags) {
		return e, nil
	}
	if err != nil {
		return Entry{}, err
	}

	if t, ok := normalize.ParseTimestamp(tags.DateTimeOriginal, g.Location); ok {
		e.DateTime = t.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	if lat, ok := geo.ConvertToDecimal(tags.Latitude, tags.LatitudeRef); ok && lat != 0 {
		e.Lat = &lat
	}
	if lon, ok := geo.ConvertToDecimal(tags.Longitude, tags.LongitudeRef); ok && lon != 0 {
		e.Lon = &lon
	}
	return e, nil
}

// WriteFile writes doc to path as indented JSON.
func WriteFile(filename string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
