// pkg/core/photo.go
package core

import (
	"fmt"
	"time"
)

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DescriptorKind tells the normalizer where a photo's metadata comes from.
type DescriptorKind int

const (
	// KindExtract means only a file reference is known; tags must be read from the image.
	KindExtract DescriptorKind = iota
	// KindPrecomputed means lat/lon/datetime were extracted ahead of time into the manifest.
	KindPrecomputed
)

func (k DescriptorKind) String() string {
	switch k {
	case KindExtract:
		return "extract"
	case KindPrecomputed:
		return "precomputed"
	default:
		return fmt.Sprintf("DescriptorKind(%d)", int(k))
	}
}

// PhotoDescriptor is one manifest entry, resolved once at the manifest boundary.
type PhotoDescriptor struct {
	Kind     DescriptorKind
	FileRef  string
	Caption  string
	Trip     string
	Lat      *float64
	Lon      *float64
	DateTime string
}

// PhotoRecord is one photo's normalized metadata.
//
// Coordinate is only ever a valid, real location. When the location is
// unknown, Coordinate is nil and Fallback may hold the placeholder position
// used to still place a flagged marker.
type PhotoRecord struct {
	FileRef    string      `json:"fileRef"`
	Caption    string      `json:"caption"`
	Trip       string      `json:"trip,omitempty"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	Fallback   *Coordinate `json:"fallback,omitempty"`
	Timestamp  *time.Time  `json:"timestamp,omitempty"`
	YearKey    string      `json:"yearKey,omitempty"`
}

// SetTimestamp stores t and derives the year key from it.
func (r *PhotoRecord) SetTimestamp(t time.Time) {
	r.Timestamp = &t
	r.YearKey = YearKey(t)
}

// LocationUnknown reports whether the record has no real coordinate.
func (r PhotoRecord) LocationUnknown() bool {
	return r.Coordinate == nil
}

// MarkerPosition returns where a marker for this record is drawn: the real
// coordinate, or the fallback position when the location is unknown.
func (r PhotoRecord) MarkerPosition() (Coordinate, bool) {
	if r.Coordinate != nil {
		return *r.Coordinate, true
	}
	if r.Fallback != nil {
		return *r.Fallback, true
	}
	return Coordinate{}, false
}

// YearKey formats the grouping key for a timestamp as a zero-padded 4-digit year.
func YearKey(t time.Time) string {
	return fmt.Sprintf("%04d", t.Year())
}

// TripStep is one ordered entry of the trip timeline.
type TripStep struct {
	Coordinate Coordinate `json:"coordinate"`
	Timestamp  time.Time  `json:"timestamp"`
	FileRef    string     `json:"fileRef"`
	Caption    string     `json:"caption"`
	Trip       string     `json:"trip,omitempty"`
}
