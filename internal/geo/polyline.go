package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/phototrip/phototrip/pkg/core"
	"github.com/wroge/wgs84"
)

// Route builds a LineString (x=lon, y=lat) through the given coordinates.
func Route(path []core.Coordinate) (geom.LineString, error) {
	if len(path) < 2 {
		return geom.LineString{}, fmt.Errorf("route must have at least 2 points, got %d", len(path))
	}

	flatCoords := make([]float64, 0, len(path)*2)
	for _, c := range path {
		flatCoords = append(flatCoords, c.Lon, c.Lat)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// RouteLengthMeters measures the route in Web Mercator (EPSG:3857) meters.
// Mercator lengths are stretched away from the equator; the value is meant
// for display, not navigation.
func RouteLengthMeters(path []core.Coordinate) float64 {
	if len(path) < 2 {
		return 0
	}

	f := wgs84.EPSG().Transform(4326, 3857)
	flatCoords := make([]float64, 0, len(path)*2)
	for _, c := range path {
		x, y, _ := f(c.Lon, c.Lat, 0)
		flatCoords = append(flatCoords, x, y)
	}

	ls := geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXY))
	return ls.Length()
}
