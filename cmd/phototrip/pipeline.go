package main

import (
	"fmt"
	"time"

	"github.com/phototrip/phototrip/internal/config"
	"github.com/phototrip/phototrip/internal/exif"
	"github.com/phototrip/phototrip/internal/manifest"
	"github.com/phototrip/phototrip/internal/normalize"
	"github.com/phototrip/phototrip/pkg/core"
)

func extractLocation() (*time.Location, error) {
	tz := config.GetExtractConfig().Timezone
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid extract.timezone %q: %w", tz, err)
	}
	return loc, nil
}

// newNormalizer builds the normalizer from config. cache may be nil.
func newNormalizer(cache normalize.TagCache) (*normalize.Normalizer, error) {
	loc, err := extractLocation()
	if err != nil {
		return nil, err
	}
	lc := config.GetLocationConfig()
	policy, err := normalize.ParsePolicy(lc.Policy)
	if err != nil {
		return nil, err
	}

	return normalize.New(
		exif.NewReader(config.GetServerConfig().PhotosRoot),
		cache,
		normalize.Options{
			Policy:   policy,
			Fallback: core.Coordinate{Lat: lc.FallbackLat, Lon: lc.FallbackLon},
			Location: loc,
			Workers:  config.GetExtractConfig().Workers,
		},
		Logger.With("component", "normalize"),
	), nil
}

func newLoader() *manifest.Loader {
	return manifest.NewLoader(config.GetManifestConfig().Timeout)
}
