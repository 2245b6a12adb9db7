// Package exif reads the GPS and capture-time tags embedded in image files.
package exif

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrNoTags is returned when an image carries no EXIF block.
var ErrNoTags = errors.New("no exif tags")

// Tags holds the raw tag values the normalizer needs.
// Latitude and Longitude are degrees/minutes/seconds triples.
type Tags struct {
	Latitude         []float64 `json:"latitude,omitempty"`
	LatitudeRef      string    `json:"latitudeRef,omitempty"`
	Longitude        []float64 `json:"longitude,omitempty"`
	LongitudeRef     string    `json:"longitudeRef,omitempty"`
	DateTimeOriginal string    `json:"dateTimeOriginal,omitempty"`
}

// Extractor reads tags for a file reference.
type Extractor interface {
	Extract(ctx context.Context, fileRef string) (Tags, error)
}

// Reader extracts tags from local files under Root or from http(s) URLs.
type Reader struct {
	Root       string
	HTTPClient *http.Client
}

// NewReader creates a Reader resolving relative references against root.
func NewReader(root string) *Reader {
	return &Reader{
		Root: root,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Extract opens the image behind fileRef and decodes its tags.
func (r *Reader) Extract(ctx context.Context, fileRef string) (Tags, error) {
	if err := ctx.Err(); err != nil {
		return Tags{}, err
	}

	rc, err := r.open(ctx, fileRef)
	if err != nil {
		return Tags{}, err
	}
	defer rc.Close()

	return Decode(rc)
}

func (r *Reader) open(ctx context.Context, fileRef string) (io.ReadCloser, error) {
	if strings.HasPrefix(fileRef, "http://") || strings.HasPrefix(fileRef, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileRef, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := r.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("image request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("image request returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	path := fileRef
	if !filepath.IsAbs(path) && r.Root != "" {
		path = filepath.Join(r.Root, filepath.FromSlash(fileRef))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return f, nil
}

// Decode reads tags from raw image bytes. Missing individual tags are left
// empty; only a missing or unreadable EXIF block is an error.
func Decode(r io.Reader) (Tags, error) {
	x, err := goexif.Decode(r)
	if err != nil {
		if goexif.IsCriticalError(err) {
			return Tags{}, fmt.Errorf("%w: %v", ErrNoTags, err)
		}
	}
	if x == nil {
		return Tags{}, ErrNoTags
	}

	var tags Tags
	tags.Latitude = rationals(x, goexif.GPSLatitude)
	tags.LatitudeRef = stringTag(x, goexif.GPSLatitudeRef)
	tags.Longitude = rationals(x, goexif.GPSLongitude)
	tags.LongitudeRef = stringTag(x, goexif.GPSLongitudeRef)
	tags.DateTimeOriginal = stringTag(x, goexif.DateTimeOriginal)
	return tags, nil
}

func rationals(x *goexif.Exif, name goexif.FieldName) []float64 {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.RatVal || int(tag.Count) != 3 {
		return nil
	}
	out := make([]float64, 0, 3)
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return nil
		}
		out = append(out, float64(num)/float64(den))
	}
	return out
}

func stringTag(x *goexif.Exif, name goexif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(s), "\x00")
}
