package geo

import (
	"errors"
	"math"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/phototrip/phototrip/pkg/core"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ConvertToDecimal converts degrees/minutes/seconds plus a hemisphere reference
// into decimal degrees. South and West references negate the magnitude.
// It returns false when either the components or the reference are missing.
func ConvertToDecimal(dms []float64, ref string) (float64, bool) {
	ref = strings.ToUpper(strings.TrimSpace(strings.Trim(ref, "\x00")))
	if len(dms) != 3 || ref == "" {
		return 0, false
	}
	dec := dms[0] + dms[1]/60 + dms[2]/3600
	if ref == "S" || ref == "W" {
		dec = -dec
	}
	return dec, true
}

// IsValid reports whether lat/lon are finite and inside the WGS84 ranges.
func IsValid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// IsNullIsland reports the (0,0) pair cameras write when they have no GPS fix.
func IsNullIsland(lat, lon float64) bool {
	return lat == 0 && lon == 0
}

// Resolve validates a decimal pair and returns it as a coordinate.
// (0,0) is treated as missing GPS data, not a real location.
func Resolve(lat, lon float64) (core.Coordinate, error) {
	if !IsValid(lat, lon) || IsNullIsland(lat, lon) {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	return core.Coordinate{Lat: lat, Lon: lon}, nil
}

// Lerp interpolates linearly between two coordinates; t is clamped to [0,1].
func Lerp(from, to core.Coordinate, t float64) core.Coordinate {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	return core.Coordinate{
		Lat: from.Lat + (to.Lat-from.Lat)*t,
		Lon: from.Lon + (to.Lon-from.Lon)*t,
	}
}

// Bounds is the geographic bounding box of a set of coordinates.
// The zero value is empty.
type Bounds struct {
	env geom.Envelope
}

// NewBounds builds the bounding box of the given coordinates.
func NewBounds(coords ...core.Coordinate) Bounds {
	var b Bounds
	for _, c := range coords {
		b = b.Extend(c)
	}
	return b
}

// Extend returns the bounds grown to include c.
func (b Bounds) Extend(c core.Coordinate) Bounds {
	return Bounds{env: b.env.ExpandToIncludeXY(geom.XY{X: c.Lon, Y: c.Lat})}
}

// IsEmpty reports whether no coordinate has been added.
func (b Bounds) IsEmpty() bool {
	return b.env.IsEmpty()
}

// Corners returns the south-west and north-east corners.
// ok is false for empty bounds.
func (b Bounds) Corners() (sw, ne core.Coordinate, ok bool) {
	lo, hi, ok := b.env.MinMaxXYs()
	if !ok {
		return core.Coordinate{}, core.Coordinate{}, false
	}
	return core.Coordinate{Lat: lo.Y, Lon: lo.X}, core.Coordinate{Lat: hi.Y, Lon: hi.X}, true
}

// Equal reports whether two bounds cover exactly the same box.
func (b Bounds) Equal(other Bounds) bool {
	sw1, ne1, ok1 := b.Corners()
	sw2, ne2, ok2 := other.Corners()
	if ok1 != ok2 {
		return false
	}
	return sw1 == sw2 && ne1 == ne2
}
