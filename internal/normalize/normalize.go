// Package normalize turns manifest descriptors into canonical photo records.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/phototrip/phototrip/internal/exif"
	"github.com/phototrip/phototrip/internal/geo"
	"github.com/phototrip/phototrip/pkg/core"
)

// LocationPolicy decides what happens to photos without a usable coordinate.
type LocationPolicy string

const (
	// PolicyFallback places the marker at a fixed fallback position, flagged as unknown.
	PolicyFallback LocationPolicy = "fallback"
	// PolicySkip places no marker at all.
	PolicySkip LocationPolicy = "skip"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (LocationPolicy, error) {
	switch LocationPolicy(s) {
	case PolicyFallback, PolicySkip:
		return LocationPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown location policy: %q", s)
	}
}

// TagCache stores extracted tags so reloads skip re-reading image bytes.
type TagCache interface {
	GetTags(fileRef string) (exif.Tags, bool, error)
	PutTags(fileRef string, tags exif.Tags) error
}

// Options configures a Normalizer.
type Options struct {
	Policy   LocationPolicy
	Fallback core.Coordinate
	Location *time.Location
	Workers  int
}

// Normalizer maps descriptors to records. It is safe for concurrent use as
// long as its Extractor and TagCache are.
type Normalizer struct {
	extractor exif.Extractor
	cache     TagCache
	opts      Options
	logger    *slog.Logger
}

// Stats summarizes a batch.
type Stats struct {
	Total       int `json:"total"`
	Located     int `json:"located"`
	Unknown     int `json:"unknown"`
	Timestamped int `json:"timestamped"`
	Failed      int `json:"failed"`
}

// New creates a Normalizer. cache may be nil.
func New(extractor exif.Extractor, cache TagCache, opts Options, logger *slog.Logger) *Normalizer {
	if opts.Policy == "" {
		opts.Policy = PolicyFallback
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		extractor: extractor,
		cache:     cache,
		opts:      opts,
		logger:    logger,
	}
}

// Normalize produces a record for one descriptor. A non-nil error reports an
// extraction failure; the returned record is still valid and degraded to
// "no coordinate / no timestamp".
func (n *Normalizer) Normalize(ctx context.Context, d core.PhotoDescriptor) (core.PhotoRecord, error) {
	rec := core.PhotoRecord{
		FileRef: d.FileRef,
		Caption: d.Caption,
		Trip:    d.Trip,
	}

	var (
		lat, lon   float64
		haveCoords bool
		dateTime   string
		extractErr error
	)

	switch d.Kind {
	case core.KindPrecomputed:
		if d.Lat != nil && d.Lon != nil {
			lat, lon, haveCoords = *d.Lat, *d.Lon, true
		}
		dateTime = d.DateTime
	default:
		tags, err := n.tags(ctx, d.FileRef)
		if err != nil {
			extractErr = fmt.Errorf("extract %s: %w", d.FileRef, err)
			break
		}
		latDec, okLat := geo.ConvertToDecimal(tags.Latitude, tags.LatitudeRef)
		lonDec, okLon := geo.ConvertToDecimal(tags.Longitude, tags.LongitudeRef)
		if okLat && okLon {
			lat, lon, haveCoords = latDec, lonDec, true
		}
		dateTime = tags.DateTimeOriginal
	}

	if haveCoords {
		if c, err := geo.Resolve(lat, lon); err == nil {
			rec.Coordinate = &c
		}
	}
	if rec.Coordinate == nil && n.opts.Policy == PolicyFallback {
		fb := n.opts.Fallback
		rec.Fallback = &fb
	}

	if t, ok := ParseTimestamp(dateTime, n.opts.Location); ok {
		rec.SetTimestamp(t)
	}

	return rec, extractErr
}

// NormalizeAll normalizes every descriptor concurrently and returns once all
// of them have settled. Output order matches input order. A single photo's
// failure never aborts the batch.
func (n *Normalizer) NormalizeAll(ctx context.Context, descs []core.PhotoDescriptor) ([]core.PhotoRecord, Stats) {
	type result struct {
		rec core.PhotoRecord
		err error
	}

	mapper := iter.Mapper[core.PhotoDescriptor, result]{MaxGoroutines: n.opts.Workers}
	results := mapper.Map(descs, func(d *core.PhotoDescriptor) result {
		rec, err := n.Normalize(ctx, *d)
		return result{rec: rec, err: err}
	})

	stats := Stats{Total: len(descs)}
	records := make([]core.PhotoRecord, len(results))
	for i, r := range results {
		records[i] = r.rec
		if r.err != nil {
			stats.Failed++
			n.logger.Warn("Photo metadata extraction failed", "fileRef", r.rec.FileRef, "error", r.err)
		}
		if r.rec.LocationUnknown() {
			stats.Unknown++
		} else {
			stats.Located++
		}
		if r.rec.Timestamp != nil {
			stats.Timestamped++
		}
	}
	return records, stats
}

func (n *Normalizer) tags(ctx context.Context, fileRef string) (exif.Tags, error) {
	if n.cache != nil {
		tags, ok, err := n.cache.GetTags(fileRef)
		if err != nil {
			n.logger.Debug("Tag cache lookup failed", "fileRef", fileRef, "error", err)
		} else if ok {
			return tags, nil
		}
	}

	if n.extractor == nil {
		return exif.Tags{}, fmt.Errorf("no extractor configured")
	}
	tags, err := n.extractor.Extract(ctx, fileRef)
	if err != nil {
		return exif.Tags{}, err
	}

	if n.cache != nil {
		if err := n.cache.PutTags(fileRef, tags); err != nil {
			n.logger.Debug("Tag cache store failed", "fileRef", fileRef, "error", err)
		}
	}
	return tags, nil
}
